package section

import (
	"testing"

	"github.com/google/uuid"
)

func TestNewComputesCounts(t *testing.T) {
	docID := uuid.New()
	s := New(docID, TypeContent, "Intro", "one two  three\nfour")
	if s.DocumentID != docID {
		t.Errorf("expected document id %s, got %s", docID, s.DocumentID)
	}
	if s.WordCount != 4 {
		t.Errorf("expected word count 4, got %d", s.WordCount)
	}
	if s.CharCount != int64(len("one two  three\nfour")) {
		t.Errorf("expected char count %d, got %d", len("one two  three\nfour"), s.CharCount)
	}
	if !s.IsRoot() {
		t.Error("expected new section to be a root")
	}
}

func TestRecalculateCountsIdempotent(t *testing.T) {
	s := New(uuid.New(), TypeParagraph, "", "alpha beta gamma")
	w, c := s.WordCount, s.CharCount
	s.RecalculateCounts()
	if s.WordCount != w || s.CharCount != c {
		t.Errorf("counts changed on recompute: words %d -> %d, chars %d -> %d", w, s.WordCount, c, s.CharCount)
	}
}

func TestCountWords(t *testing.T) {
	tests := []struct {
		text string
		want int64
	}{
		{"", 0},
		{"   \n\t ", 0},
		{"word", 1},
		{"two words", 2},
		{"  padded   tokens  here  ", 3},
	}
	for _, tc := range tests {
		if got := CountWords(tc.text); got != tc.want {
			t.Errorf("CountWords(%q): expected %d, got %d", tc.text, tc.want, got)
		}
	}
}

func TestSetContentUpdatesCounts(t *testing.T) {
	s := New(uuid.New(), TypeContent, "", "short")
	s.SetContent("a much longer body of text")
	if s.WordCount != 6 {
		t.Errorf("expected word count 6, got %d", s.WordCount)
	}
	if s.CharCount != int64(len("a much longer body of text")) {
		t.Errorf("expected char count %d, got %d", len("a much longer body of text"), s.CharCount)
	}
}

func TestLabel(t *testing.T) {
	titled := New(uuid.New(), TypeSection, "1. Scope", "")
	if titled.Label() != "1. Scope" {
		t.Errorf("expected label %q, got %q", "1. Scope", titled.Label())
	}
	untitled := New(uuid.New(), TypeContent, "", "body")
	if untitled.Label() != "CONTENT" {
		t.Errorf("expected label %q, got %q", "CONTENT", untitled.Label())
	}
}

func TestPageRange(t *testing.T) {
	intp := func(n int) *int { return &n }
	tests := []struct {
		name  string
		start *int
		end   *int
		want  string
	}{
		{"none", nil, nil, ""},
		{"same", intp(3), intp(3), "3"},
		{"span", intp(2), intp(5), "2-5"},
		{"start only", intp(7), nil, "7"},
		{"end only", nil, intp(9), "9"},
	}
	for _, tc := range tests {
		s := &Section{PageStart: tc.start, PageEnd: tc.end}
		if got := s.PageRange(); got != tc.want {
			t.Errorf("%s: expected %q, got %q", tc.name, tc.want, got)
		}
	}
}
