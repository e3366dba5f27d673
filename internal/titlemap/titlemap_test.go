package titlemap

import (
	"reflect"
	"testing"
)

func pagesWith(n int, headings map[int]string) []string {
	pages := make([]string, n)
	for i := range pages {
		pages[i] = "ordinary page text"
	}
	for p, h := range headings {
		pages[p-1] = "header\n" + h + "\nbody"
	}
	return pages
}

func TestBuild_NoHeadings(t *testing.T) {
	tm := Build(pagesWith(4, nil))
	if tm.Len() != 0 {
		t.Fatalf("expected empty map, got %s", tm)
	}
	for p := 1; p <= 4; p++ {
		if title, ok := tm.Lookup(p); ok {
			t.Errorf("page %d: unexpected title %q", p, title)
		}
	}
}

func TestBuild_TwoSections(t *testing.T) {
	tm := Build(pagesWith(10, map[int]string{3: "1. T1", 7: "2. T2"}))

	want := []Entry{
		{Range{3, 6}, "T1"},
		{Range{7, 10}, "T2"},
	}
	if got := tm.Entries(); !reflect.DeepEqual(got, want) {
		t.Fatalf("entries = %v, want %v", got, want)
	}
	if s := tm.String(); s != `{"3-6": "T1", "7-10": "T2"}` {
		t.Errorf("String() = %s", s)
	}

	for _, p := range []int{1, 2} {
		if _, ok := tm.Lookup(p); ok {
			t.Errorf("page %d should be unmapped", p)
		}
	}
	checks := map[int]string{3: "T1", 6: "T1", 7: "T2", 10: "T2"}
	for p, want := range checks {
		if got, _ := tm.Lookup(p); got != want {
			t.Errorf("Lookup(%d) = %q, want %q", p, got, want)
		}
	}
}

func TestBuild_SeveralHeadingsOnOnePage(t *testing.T) {
	pages := []string{
		"intro",
		"x\n1. Alpha\ntext\n2. Beta\nmore",
		"plain",
	}
	tm := Build(pages)

	want := []Entry{
		{Range{2, 2}, "Alpha"},
		{Range{2, 3}, "Beta"},
	}
	if got := tm.Entries(); !reflect.DeepEqual(got, want) {
		t.Fatalf("entries = %v, want %v", got, want)
	}
	if got, _ := tm.Lookup(2); got != "Alpha" {
		t.Errorf("first match for page 2 = %q, want Alpha", got)
	}
	if got, _ := tm.Lookup(3); got != "Beta" {
		t.Errorf("Lookup(3) = %q, want Beta", got)
	}
}

func TestBuild_HeadingOnLastPage(t *testing.T) {
	tm := Build(pagesWith(3, map[int]string{3: "4 Appendix"}))
	want := []Entry{{Range{3, 3}, "Appendix"}}
	if got := tm.Entries(); !reflect.DeepEqual(got, want) {
		t.Fatalf("entries = %v, want %v", got, want)
	}
}

func TestBuild_EmptyDocument(t *testing.T) {
	if tm := Build(nil); tm.Len() != 0 {
		t.Fatalf("expected empty map, got %s", tm)
	}
}
