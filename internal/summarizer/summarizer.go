// Package summarizer builds a short extractive preview of an ingested document.
package summarizer

import (
	"math"
	"regexp"
	"sort"
	"strings"

	"docqa/internal/domain"
)

// DefaultSentences is the preview length used when none is given.
const DefaultSentences = 3

var (
	tokenPattern    = regexp.MustCompile(`\p{L}+(?:['’]\p{L}+)*`)
	sentencePattern = regexp.MustCompile(`[^.!?]+[.!?]+`)
)

// Summarizer ranks sentences by the normalized frequency of their content words.
type Summarizer struct {
	stopwords map[string]struct{}
}

func New() *Summarizer {
	return &Summarizer{stopwords: stopwords()}
}

type sentence struct {
	pos   int
	text  string
	score float64
}

// Preview summarizes the indexed chunks of a document. Only chunk text is
// considered, so headings and boilerplate never reach the preview.
func (s *Summarizer) Preview(chunks []domain.Chunk, max int) string {
	var b strings.Builder
	for _, c := range chunks {
		b.WriteString(c.Text)
		b.WriteString("\n")
	}
	return s.Summarize(b.String(), max)
}

// Summarize returns up to max top-ranked sentences in document order.
// Text without sentence punctuation is returned trimmed and unchanged.
func (s *Summarizer) Summarize(text string, max int) string {
	if max <= 0 {
		max = DefaultSentences
	}
	var sents []sentence
	for i, raw := range sentencePattern.FindAllString(text, -1) {
		t := strings.Join(strings.Fields(raw), " ")
		if t != "" {
			sents = append(sents, sentence{pos: i, text: t})
		}
	}
	if len(sents) == 0 {
		return strings.Join(strings.Fields(text), " ")
	}

	freq := map[string]float64{}
	var top float64
	for _, st := range sents {
		for _, tok := range s.contentTokens(st.text) {
			freq[tok]++
			top = math.Max(top, freq[tok])
		}
	}

	if top == 0 {
		top = 1
	}
	for i := range sents {
		toks := tokenPattern.FindAllString(strings.ToLower(sents[i].text), -1)
		if len(toks) == 0 {
			continue
		}
		var score float64
		for _, tok := range toks {
			score += freq[tok] / top
		}
		// dampen long sentences
		sents[i].score = score / math.Sqrt(float64(len(toks)))
	}

	sort.SliceStable(sents, func(i, j int) bool { return sents[i].score > sents[j].score })
	if max < len(sents) {
		sents = sents[:max]
	}
	sort.Slice(sents, func(i, j int) bool { return sents[i].pos < sents[j].pos })

	out := make([]string, len(sents))
	for i, st := range sents {
		out[i] = st.text
	}
	return strings.Join(out, " ")
}

func (s *Summarizer) contentTokens(text string) []string {
	toks := tokenPattern.FindAllString(strings.ToLower(text), -1)
	out := toks[:0]
	for _, t := range toks {
		if _, stop := s.stopwords[t]; !stop {
			out = append(out, t)
		}
	}
	return out
}

func stopwords() map[string]struct{} {
	words := []string{
		"a", "an", "the", "and", "or", "but", "if", "then", "else", "for", "to", "of", "in", "on", "at", "by", "with", "as", "is", "are", "was", "were", "be", "been", "being", "it", "this", "that", "these", "those", "from", "up", "down", "over", "under", "again", "further", "than", "so", "such", "into", "about", "between", "through", "during", "before", "after", "above", "below", "out", "off", "own", "same", "too", "very", "can", "will", "just", "don", "should", "now",
	}
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}
