package section

import (
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Section is one node of a document's structural tree. ParentID is nil for
// root sections; children are never stored on the record, they are computed
// by grouping on ParentID (see Tree).
type Section struct {
	ID         uuid.UUID `json:"id"`
	DocumentID uuid.UUID `json:"document_id"`

	Type    Type   `json:"section_type"`
	Title   string `json:"title,omitempty"`
	Content string `json:"content"`

	HierarchyPath  string `json:"hierarchy_path"`
	HierarchyLevel int    `json:"hierarchy_level"`
	SectionOrder   int    `json:"section_order"`

	WordCount int64 `json:"word_count"`
	CharCount int64 `json:"char_count"`

	PageStart *int `json:"page_start,omitempty"`
	PageEnd   *int `json:"page_end,omitempty"`

	ParentID *uuid.UUID `json:"parent_section_id,omitempty"`

	// IndexRef is assigned by the downstream search indexer once the
	// section has been embedded; nil until then. Never set here.
	IndexRef *string `json:"index_ref,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Version   int64     `json:"version"`
}

// New creates a section for a document with content-derived counts.
func New(documentID uuid.UUID, typ Type, title, content string) *Section {
	s := &Section{
		ID:         uuid.New(),
		DocumentID: documentID,
		Type:       typ,
		Title:      title,
	}
	s.SetContent(content)
	return s
}

// SetContent replaces the section body and recomputes the derived counts.
// Counts are therefore always consistent with Content.
func (s *Section) SetContent(content string) {
	s.Content = content
	s.RecalculateCounts()
}

// RecalculateCounts recomputes WordCount and CharCount from Content.
// Idempotent: calling it twice without a content change yields the same
// values.
func (s *Section) RecalculateCounts() {
	s.WordCount = CountWords(s.Content)
	s.CharCount = int64(len(s.Content))
}

// CountWords returns the whitespace-delimited token count of text, 0 for
// blank input.
func CountWords(text string) int64 {
	return int64(len(strings.Fields(text)))
}

// IsRoot reports whether the section has no parent.
func (s *Section) IsRoot() bool {
	return s.ParentID == nil
}

// Label is the display name used in full paths: the title, or the type code
// when the section is untitled.
func (s *Section) Label() string {
	if s.Title != "" {
		return s.Title
	}
	return string(s.Type)
}

// PageRange formats the page span: a single number when start and end match
// or only one is set, "start-end" otherwise, "" when neither is set.
func (s *Section) PageRange() string {
	switch {
	case s.PageStart == nil && s.PageEnd == nil:
		return ""
	case s.PageStart != nil && s.PageEnd != nil:
		if *s.PageStart == *s.PageEnd {
			return strconv.Itoa(*s.PageStart)
		}
		return strconv.Itoa(*s.PageStart) + "-" + strconv.Itoa(*s.PageEnd)
	case s.PageStart != nil:
		return strconv.Itoa(*s.PageStart)
	default:
		return strconv.Itoa(*s.PageEnd)
	}
}
