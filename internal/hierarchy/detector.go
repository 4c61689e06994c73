// Package hierarchy turns extracted plain text into an ordered, parented
// list of sections. The detector is a single left-to-right pass over the
// text lines with three pattern matchers tried in fixed priority order;
// lines that match nothing degrade to content, never to errors.
package hierarchy

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/NiranjanVenkatesan/rag-application/internal/section"
	"github.com/google/uuid"
)

var (
	chapterPattern = regexp.MustCompile(`(?i)^\s*Chapter\s+(\d+)\s*[:\-]?\s*(.+)$`)
	numberPattern  = regexp.MustCompile(`^\s*(\d+)\.\s*(.+)$`)
)

// Detect scans text and returns the detected sections in document order.
// An empty result is a valid outcome (no structural markers and no content);
// the caller is expected to synthesize a whole-document fallback section in
// that case (see Fallback). Detect never fails: unrecognized lines are
// accumulated as content of the section being filled.
func Detect(documentID uuid.UUID, text string) []*section.Section {
	cur := &cursor{docID: documentID}
	for _, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		if m := chapterPattern.FindStringSubmatch(line); m != nil {
			cur.startChapter(m[1], strings.TrimSpace(m[2]))
			continue
		}
		if m := numberPattern.FindStringSubmatch(line); m != nil {
			cur.startNumbered(m[1], strings.TrimSpace(m[2]))
			continue
		}
		cur.content(line)
	}
	cur.flush()
	return cur.sections
}

// Fallback builds the single whole-document content section used when
// detection yields nothing.
func Fallback(documentID uuid.UUID, text string) *section.Section {
	s := section.New(documentID, section.TypeContent, "Document Content", text)
	s.HierarchyPath = "1"
	s.HierarchyLevel = 0
	s.SectionOrder = 1
	defaultPages(s)
	return s
}

// cursor is the mutable scan state: the open chapter and section, the
// running numbering counters, and the content buffer for the section
// currently being filled.
type cursor struct {
	docID    uuid.UUID
	sections []*section.Section

	chapter *section.Section // open chapter, nil before the first marker
	current *section.Section // section receiving content lines

	chapterNumber int
	sectionNumber int // resets on each new chapter
	order         int // strictly increasing across the whole document

	buf strings.Builder
}

// flush moves the buffered content into the section being filled and
// recomputes its counts. No-op when nothing is buffered.
func (c *cursor) flush() {
	if c.buf.Len() == 0 || c.current == nil {
		return
	}
	c.current.SetContent(c.buf.String())
	c.buf.Reset()
}

func (c *cursor) startChapter(digits, title string) {
	c.flush()
	c.chapterNumber++
	c.sectionNumber = 0
	c.order++

	s := section.New(c.docID, section.TypeChapter, "Chapter "+digits+": "+title, "")
	s.HierarchyPath = strconv.Itoa(c.chapterNumber)
	s.HierarchyLevel = 0
	s.SectionOrder = c.order
	defaultPages(s)

	c.sections = append(c.sections, s)
	c.chapter = s
	// The chapter node is a structural header; content after it opens a
	// new section, it never fills the chapter itself.
	c.current = nil
}

func (c *cursor) startNumbered(digits, title string) {
	c.flush()
	c.sectionNumber++
	c.order++

	s := section.New(c.docID, section.TypeSection, digits+". "+title, "")
	if c.chapter != nil {
		pid := c.chapter.ID
		s.ParentID = &pid
		s.HierarchyPath = c.chapter.HierarchyPath + "." + strconv.Itoa(c.sectionNumber)
		s.HierarchyLevel = 1
	} else {
		s.HierarchyPath = strconv.Itoa(c.sectionNumber)
		s.HierarchyLevel = 0
	}
	s.SectionOrder = c.order
	defaultPages(s)

	c.sections = append(c.sections, s)
	c.current = s
}

func (c *cursor) content(line string) {
	if c.current == nil {
		// No section is open yet: lazily start a root-level content
		// section to hold unclaimed text.
		c.order++
		s := section.New(c.docID, section.TypeContent, "Document Content", "")
		s.HierarchyPath = "1"
		s.HierarchyLevel = 0
		s.SectionOrder = c.order
		defaultPages(s)
		c.sections = append(c.sections, s)
		c.current = s
	}
	if c.buf.Len() > 0 {
		c.buf.WriteByte('\n')
	}
	c.buf.WriteString(line)
}

// defaultPages marks a section as spanning page 1; page boundaries are not
// derivable from plain text.
func defaultPages(s *section.Section) {
	start, end := 1, 1
	s.PageStart = &start
	s.PageEnd = &end
}
