// Package section models the structural tree a document decomposes into:
// a fixed taxonomy of section kinds, the persisted Section record, and an
// arena-style Tree for navigating parent/child relations.
package section

// Type identifies the kind of a section within the document hierarchy.
type Type string

const (
	TypeChapter    Type = "CHAPTER"
	TypeSubChapter Type = "SUB_CHAPTER"
	TypeSection    Type = "SECTION"
	TypeSubSection Type = "SUB_SECTION"
	TypeHeading    Type = "HEADING"
	TypeParagraph  Type = "PARAGRAPH"
	TypeContent    Type = "CONTENT"
)

// typeInfo carries the intrinsic ordinal and description of each type.
var typeInfo = map[Type]struct {
	level       int
	description string
}{
	TypeChapter:    {1, "Main chapter"},
	TypeSubChapter: {2, "Sub-chapter"},
	TypeSection:    {3, "Section"},
	TypeSubSection: {4, "Sub-section"},
	TypeHeading:    {5, "Heading"},
	TypeParagraph:  {6, "Paragraph"},
	TypeContent:    {7, "Content"},
}

// Valid reports whether t is one of the known section types.
func (t Type) Valid() bool {
	_, ok := typeInfo[t]
	return ok
}

// Level returns the intrinsic hierarchy ordinal of the type (1 for chapters,
// 7 for generic content). 0 for unknown types.
func (t Type) Level() int {
	return typeInfo[t].level
}

// Description returns the human-readable description of the type.
func (t Type) Description() string {
	return typeInfo[t].description
}

// IsStructural reports whether the type is an organizational unit rather
// than body content.
func (t Type) IsStructural() bool {
	switch t {
	case TypeChapter, TypeSubChapter, TypeSection, TypeSubSection, TypeHeading:
		return true
	}
	return false
}

// IsContent reports whether the type holds actual document content.
func (t Type) IsContent() bool {
	return t == TypeParagraph || t == TypeContent
}

// CanHaveChildren reports whether sections of this type may have child
// sections attached.
func (t Type) CanHaveChildren() bool {
	switch t {
	case TypeChapter, TypeSubChapter, TypeSection, TypeSubSection:
		return true
	}
	return false
}

// CanBeChildOf reports whether this type may nest directly under parent.
// The zero value parent ("") stands for the document root, which only
// admits chapters. The detector does not enforce this lattice; it is
// advisory validation for callers that build trees by hand.
func (t Type) CanBeChildOf(parent Type) bool {
	if parent == "" {
		return t == TypeChapter
	}
	switch parent {
	case TypeChapter:
		return t == TypeSubChapter || t == TypeSection || t == TypeHeading || t == TypeParagraph || t == TypeContent
	case TypeSubChapter:
		return t == TypeSection || t == TypeSubSection || t == TypeHeading || t == TypeParagraph || t == TypeContent
	case TypeSection:
		return t == TypeSubSection || t == TypeHeading || t == TypeParagraph || t == TypeContent
	case TypeSubSection:
		return t == TypeHeading || t == TypeParagraph || t == TypeContent
	case TypeHeading:
		return t == TypeParagraph || t == TypeContent
	default:
		return false
	}
}
