// Package titlemap assigns section titles to page ranges.
package titlemap

import (
	"fmt"
	"strings"

	"docqa/internal/heading"
)

// Range is an inclusive, 1-based page range.
type Range struct {
	Start int
	End   int
}

// Contains reports whether page lies inside the range.
func (r Range) Contains(page int) bool {
	return page >= r.Start && page <= r.End
}

func (r Range) String() string {
	return fmt.Sprintf("%d-%d", r.Start, r.End)
}

// Entry pairs a page range with the title in force over it.
type Entry struct {
	Range Range
	Title string
}

// TitleMap maps page ranges to section titles in order of discovery.
// Pages before the first heading are not covered by any range.
type TitleMap struct {
	entries []Entry
}

// Build scans every page for headings and closes a range each time a new
// heading opens. The last open title runs to the final page.
func Build(pages []string) *TitleMap {
	tm := &TitleMap{}
	var current string
	open := false
	start := 1

	for i, page := range pages {
		pageNum := i + 1
		for _, h := range heading.Extract(page) {
			if open {
				end := pageNum - 1
				if end < start {
					end = start
				}
				tm.put(Range{Start: start, End: end}, current)
			}
			current = h.Title
			start = pageNum
			open = true
		}
	}
	if open {
		end := len(pages)
		if end < start {
			end = start
		}
		tm.put(Range{Start: start, End: end}, current)
	}
	return tm
}

// put records a range, overwriting the title of an identical range in place.
func (tm *TitleMap) put(r Range, title string) {
	for i := range tm.entries {
		if tm.entries[i].Range == r {
			tm.entries[i].Title = title
			return
		}
	}
	tm.entries = append(tm.entries, Entry{Range: r, Title: title})
}

// Lookup returns the title of the first range containing page.
func (tm *TitleMap) Lookup(page int) (string, bool) {
	if tm == nil {
		return "", false
	}
	for _, e := range tm.entries {
		if e.Range.Contains(page) {
			return e.Title, true
		}
	}
	return "", false
}

// Entries returns a copy of the ranges in discovery order.
func (tm *TitleMap) Entries() []Entry {
	if tm == nil {
		return nil
	}
	out := make([]Entry, len(tm.entries))
	copy(out, tm.entries)
	return out
}

// Len returns the number of ranges.
func (tm *TitleMap) Len() int {
	if tm == nil {
		return 0
	}
	return len(tm.entries)
}

// String renders the map as {"3-6": "Intro", ...}.
func (tm *TitleMap) String() string {
	var b strings.Builder
	b.WriteString("{")
	for i, e := range tm.Entries() {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%q: %q", e.Range.String(), e.Title)
	}
	b.WriteString("}")
	return b.String()
}
