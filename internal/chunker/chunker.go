// Package chunker splits OCR'd pages into paragraph chunks tagged with the
// section title in force on their page.
package chunker

import (
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"docqa/internal/domain"
	"docqa/internal/heading"
	"docqa/internal/titlemap"
)

const (
	// boilerplate is removed from every page before splitting.
	boilerplate = "Table of Contents"
	// MinChunkRunes is the shortest paragraph kept; anything at or below is dropped.
	MinChunkRunes = 5
)

// ChunkPage splits the page at 0-based index n into paragraph chunks.
// Chunk IDs are "{n}_{i}" where i counts every paragraph candidate,
// including the ones that are dropped afterwards. A paragraph that is exactly
// one of the heading lines found on the page is dropped; other paragraphs
// starting with a number are kept.
func ChunkPage(n int, text string, tm *titlemap.TitleMap) ([]domain.Chunk, error) {
	if !utf8.ValidString(text) {
		return nil, fmt.Errorf("page %d: text is not valid UTF-8", n+1)
	}
	headings := make(map[string]struct{})
	for _, line := range heading.Lines(text) {
		headings[line] = struct{}{}
	}
	text = strings.ReplaceAll(text, boilerplate, "")
	title, _ := tm.Lookup(n + 1)

	var chunks []domain.Chunk
	for i, p := range strings.Split(text, "\n\n") {
		p = strings.TrimSpace(p)
		if utf8.RuneCountInString(p) <= MinChunkRunes {
			continue
		}
		if _, ok := headings[p]; ok {
			continue
		}
		chunks = append(chunks, domain.Chunk{
			ID:    fmt.Sprintf("%d_%d", n, i),
			Text:  p,
			Title: title,
			Page:  n + 1,
			Index: i,
		})
	}
	return chunks, nil
}

// ChunkDocument chunks every page. A page that fails is logged and skipped;
// the remaining pages are still processed.
func ChunkDocument(pages []string, tm *titlemap.TitleMap, log *slog.Logger) []domain.Chunk {
	var all []domain.Chunk
	for n, page := range pages {
		chunks, err := ChunkPage(n, page, tm)
		if err != nil {
			if log != nil {
				log.Warn("skipping page", "page", n+1, "error", err)
			}
			continue
		}
		all = append(all, chunks...)
	}
	return all
}
