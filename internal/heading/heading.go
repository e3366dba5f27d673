// Package heading finds numbered section headings in OCR'd page text.
//
// Recognition is a textual heuristic: a heading is a line made of a numeric
// label ("3", "3.", "3.1") followed by a title, with a line break on both
// sides. Decimal numbers, numbered lists and running page headers that fit
// this shape are reported as headings too; callers accept that.
package heading

import (
	"regexp"
	"strings"
)

// Heading is a numbered title found on a page. Label is an ordering hint
// only and is not guaranteed to be unique within a document.
type Heading struct {
	Label string
	Title string
}

var headingRe = regexp.MustCompile(`\n(\d+\.?\d*)\s*(.+?)\n`)

// Extract returns the headings of a single page in order of appearance.
// The start of the page counts as a line break; the end of the page does not.
func Extract(page string) []Heading {
	matches := headingRe.FindAllStringSubmatch("\n"+page, -1)
	if len(matches) == 0 {
		return nil
	}
	out := make([]Heading, 0, len(matches))
	for _, m := range matches {
		out = append(out, Heading{
			Label: strings.TrimSuffix(m[1], "."),
			Title: strings.TrimSpace(m[2]),
		})
	}
	return out
}

// Lines returns the trimmed text of every heading line Extract finds on page,
// in the same order.
func Lines(page string) []string {
	matches := headingRe.FindAllString("\n"+page, -1)
	if len(matches) == 0 {
		return nil
	}
	out := make([]string, len(matches))
	for i, m := range matches {
		out[i] = strings.TrimSpace(m)
	}
	return out
}
