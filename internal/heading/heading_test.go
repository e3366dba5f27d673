package heading

import (
	"reflect"
	"testing"
)

func TestExtract(t *testing.T) {
	tests := []struct {
		name string
		page string
		want []Heading
	}{
		{"no headings", "plain text\nwith lines\n", nil},
		{"first line of page", "1. Scope\n\nBody text here.", []Heading{{"1", "Scope"}}},
		{"decimal label", "intro\n2.3 Methods\nbody", []Heading{{"2.3", "Methods"}}},
		{"label without dot", "x\n4 Results\ny", []Heading{{"4", "Results"}}},
		{"needs trailing break", "intro\n5. Last line", nil},
		{"two headings", "a\n1. One\nbody\n2. Two\nmore", []Heading{{"1", "One"}, {"2", "Two"}}},
		{"title is trimmed", "a\n7   Spaced out   \nb", []Heading{{"7", "Spaced out"}}},
		{"not at line start", "a see 3. Intro\nb", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Extract(tt.page)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Extract(%q) = %#v, want %#v", tt.page, got, tt.want)
			}
		})
	}
}

func TestExtract_AdjacentHeadingsShareBreak(t *testing.T) {
	// The break that ends one heading cannot start the next.
	got := Extract("x\n1. One\n2. Two\n3. Three\n")
	want := []Heading{{"1", "One"}, {"3", "Three"}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %#v, want %#v", got, want)
	}
}

func TestLines(t *testing.T) {
	tests := []struct {
		page string
		want []string
	}{
		{"1. Scope\n\nBody text here.", []string{"1. Scope"}},
		{"intro\n2.1 Background  \nmore", []string{"2.1 Background"}},
		{"Body text here.", nil},
		// the end of the page is not a line break
		{"Intro.\n\n3 people attended the meeting.", nil},
	}
	for _, tt := range tests {
		if got := Lines(tt.page); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("Lines(%q) = %q, want %q", tt.page, got, tt.want)
		}
	}
}
