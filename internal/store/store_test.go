package store

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/NiranjanVenkatesan/rag-application/internal/document"
	"github.com/NiranjanVenkatesan/rag-application/internal/section"
)

func createTestDoc(t *testing.T, s *Store) *document.Document {
	t.Helper()
	doc := document.New(uuid.NewString()+".txt", "report.txt", "text/plain", 42)
	if err := s.CreateDocument(context.Background(), doc); err != nil {
		t.Fatalf("create document: %v", err)
	}
	return doc
}

func TestDocumentRoundtrip(t *testing.T) {
	s := OpenTemp(t)
	ctx := context.Background()

	doc := createTestDoc(t, s)
	doc.SetMeta("source", "unit-test")
	if err := s.UpdateDocument(ctx, doc); err != nil {
		t.Fatalf("update: %v", err)
	}

	got, err := s.GetDocument(ctx, doc.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.ID != doc.ID {
		t.Errorf("expected id %s, got %s", doc.ID, got.ID)
	}
	if got.OriginalFilename != "report.txt" {
		t.Errorf("expected original filename %q, got %q", "report.txt", got.OriginalFilename)
	}
	if got.FileSize != 42 {
		t.Errorf("expected file size 42, got %d", got.FileSize)
	}
	if got.Status != document.StatusPending {
		t.Errorf("expected PENDING, got %s", got.Status)
	}
	if got.Version != 2 {
		t.Errorf("expected version 2 after one update, got %d", got.Version)
	}
	if got.Meta("source") != "unit-test" {
		t.Errorf("expected metadata roundtrip, got %v", got.Meta("source"))
	}
	if got.ProcessingStartedAt != nil {
		t.Error("expected nil start timestamp")
	}
	if got.UploadedAt.IsZero() || got.CreatedAt.IsZero() {
		t.Error("expected timestamps populated")
	}
}

func TestGetDocumentNotFound(t *testing.T) {
	s := OpenTemp(t)
	_, err := s.GetDocument(context.Background(), uuid.New())
	if !errors.Is(err, document.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestUpdateDocumentStaleVersion(t *testing.T) {
	s := OpenTemp(t)
	ctx := context.Background()
	doc := createTestDoc(t, s)

	// Two readers load the same version.
	a, err := s.GetDocument(ctx, doc.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	b, err := s.GetDocument(ctx, doc.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}

	if err := a.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := s.UpdateDocument(ctx, a); err != nil {
		t.Fatalf("first update: %v", err)
	}

	if err := b.Cancel(); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	err = s.UpdateDocument(ctx, b)
	if !errors.Is(err, ErrStaleVersion) {
		t.Errorf("expected ErrStaleVersion, got %v", err)
	}

	// The winner's write survived.
	got, err := s.GetDocument(ctx, doc.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != document.StatusProcessing {
		t.Errorf("expected PROCESSING, got %s", got.Status)
	}
}

func TestUpdateDocumentMissing(t *testing.T) {
	s := OpenTemp(t)
	doc := document.New("x.txt", "x.txt", "text/plain", 1)
	doc.Version = 1
	err := s.UpdateDocument(context.Background(), doc)
	if !errors.Is(err, document.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestListDocuments(t *testing.T) {
	s := OpenTemp(t)
	ctx := context.Background()

	var docs []*document.Document
	for i := 0; i < 3; i++ {
		docs = append(docs, createTestDoc(t, s))
	}
	failed := docs[1]
	if err := failed.Fail("boom"); err != nil {
		t.Fatalf("fail: %v", err)
	}
	if err := s.UpdateDocument(ctx, failed); err != nil {
		t.Fatalf("update: %v", err)
	}

	all, err := s.ListDocuments(ctx, ListOptions{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 documents, got %d", len(all))
	}

	onlyFailed, err := s.ListDocuments(ctx, ListOptions{Status: document.StatusFailed})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(onlyFailed) != 1 || onlyFailed[0].ID != failed.ID {
		t.Error("expected only the failed document")
	}

	page, err := s.ListDocuments(ctx, ListOptions{Limit: 2})
	if err != nil {
		t.Fatalf("list page: %v", err)
	}
	if len(page) != 2 {
		t.Errorf("expected 2 documents with limit 2, got %d", len(page))
	}
}

func TestDeleteDocumentCascades(t *testing.T) {
	s := OpenTemp(t)
	ctx := context.Background()
	doc := createTestDoc(t, s)

	chapter := section.New(doc.ID, section.TypeChapter, "Chapter 1: A", "")
	chapter.SectionOrder = 1
	child := section.New(doc.ID, section.TypeSection, "1. B", "body")
	child.SectionOrder = 2
	pid := chapter.ID
	child.ParentID = &pid
	if err := s.ReplaceSections(ctx, doc.ID, []*section.Section{chapter, child}); err != nil {
		t.Fatalf("replace sections: %v", err)
	}

	if err := s.DeleteDocument(ctx, doc.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := s.GetDocument(ctx, doc.ID); !errors.Is(err, document.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if _, err := s.GetSection(ctx, chapter.ID); !errors.Is(err, ErrSectionNotFound) {
		t.Errorf("expected cascade to remove sections, got %v", err)
	}
	if _, err := s.GetSection(ctx, child.ID); !errors.Is(err, ErrSectionNotFound) {
		t.Errorf("expected cascade to remove child sections, got %v", err)
	}

	if err := s.DeleteDocument(ctx, doc.ID); !errors.Is(err, document.ErrNotFound) {
		t.Errorf("expected ErrNotFound on second delete, got %v", err)
	}
}

func seedSections(t *testing.T, s *Store, docID uuid.UUID) (*section.Section, []*section.Section) {
	t.Helper()
	chapter := section.New(docID, section.TypeChapter, "Chapter 1: A", "")
	chapter.SectionOrder = 1
	chapter.HierarchyLevel = 0

	s1 := section.New(docID, section.TypeSection, "1. One", "alpha")
	s1.SectionOrder = 2
	s1.HierarchyLevel = 1
	s2 := section.New(docID, section.TypeSection, "2. Two", "beta")
	s2.SectionOrder = 3
	s2.HierarchyLevel = 1
	pid := chapter.ID
	s1.ParentID = &pid
	s2.ParentID = &pid

	all := []*section.Section{chapter, s1, s2}
	if err := s.ReplaceSections(context.Background(), docID, all); err != nil {
		t.Fatalf("replace sections: %v", err)
	}
	return chapter, all
}

func TestSectionQueries(t *testing.T) {
	s := OpenTemp(t)
	ctx := context.Background()
	doc := createTestDoc(t, s)
	chapter, all := seedSections(t, s, doc.ID)

	got, err := s.SectionsByDocument(ctx, doc.ID)
	if err != nil {
		t.Fatalf("by document: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 sections, got %d", len(got))
	}
	for i := range got {
		if got[i].SectionOrder != i+1 {
			t.Errorf("expected section order %d at index %d, got %d", i+1, i, got[i].SectionOrder)
		}
	}
	if got[1].ParentID == nil || *got[1].ParentID != chapter.ID {
		t.Error("expected parent id roundtrip")
	}
	if got[1].WordCount != 1 || got[1].Content != "alpha" {
		t.Errorf("expected content roundtrip, got %q (%d words)", got[1].Content, got[1].WordCount)
	}

	roots, err := s.RootSections(ctx, doc.ID)
	if err != nil {
		t.Fatalf("roots: %v", err)
	}
	if len(roots) != 1 || roots[0].ID != chapter.ID {
		t.Error("expected single root chapter")
	}

	kids, err := s.ChildSections(ctx, chapter.ID)
	if err != nil {
		t.Fatalf("children: %v", err)
	}
	if len(kids) != 2 || kids[0].Title != "1. One" || kids[1].Title != "2. Two" {
		t.Error("expected ordered children")
	}

	level1, err := s.SectionsByLevel(ctx, doc.ID, 1)
	if err != nil {
		t.Fatalf("by level: %v", err)
	}
	if len(level1) != 2 {
		t.Errorf("expected 2 level-1 sections, got %d", len(level1))
	}

	chapters, err := s.SectionsByType(ctx, doc.ID, section.TypeChapter)
	if err != nil {
		t.Fatalf("by type: %v", err)
	}
	if len(chapters) != 1 {
		t.Errorf("expected 1 chapter, got %d", len(chapters))
	}
	_ = all
}

func TestReplaceSectionsReplaces(t *testing.T) {
	s := OpenTemp(t)
	ctx := context.Background()
	doc := createTestDoc(t, s)
	_, first := seedSections(t, s, doc.ID)

	// A re-processing episode writes a different hierarchy; the old rows
	// must be gone.
	repl := section.New(doc.ID, section.TypeContent, "Document Content", "replacement")
	repl.SectionOrder = 1
	if err := s.ReplaceSections(ctx, doc.ID, []*section.Section{repl}); err != nil {
		t.Fatalf("replace: %v", err)
	}

	got, err := s.SectionsByDocument(ctx, doc.ID)
	if err != nil {
		t.Fatalf("by document: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 section after replacement, got %d", len(got))
	}
	if got[0].ID != repl.ID {
		t.Error("expected only the replacement section")
	}
	for _, old := range first {
		if _, err := s.GetSection(ctx, old.ID); !errors.Is(err, ErrSectionNotFound) {
			t.Errorf("expected old section %s gone, got %v", old.ID, err)
		}
	}
}

func TestReplaceSectionsIsolatedPerDocument(t *testing.T) {
	s := OpenTemp(t)
	ctx := context.Background()
	doc1 := createTestDoc(t, s)
	doc2 := createTestDoc(t, s)
	seedSections(t, s, doc1.ID)
	seedSections(t, s, doc2.ID)

	if err := s.ReplaceSections(ctx, doc1.ID, nil); err != nil {
		t.Fatalf("replace with empty: %v", err)
	}
	got1, err := s.SectionsByDocument(ctx, doc1.ID)
	if err != nil {
		t.Fatalf("by document: %v", err)
	}
	if len(got1) != 0 {
		t.Errorf("expected doc1 sections cleared, got %d", len(got1))
	}
	got2, err := s.SectionsByDocument(ctx, doc2.ID)
	if err != nil {
		t.Fatalf("by document: %v", err)
	}
	if len(got2) != 3 {
		t.Errorf("expected doc2 sections untouched, got %d", len(got2))
	}
}

func TestIndexRefAssignment(t *testing.T) {
	s := OpenTemp(t)
	ctx := context.Background()
	doc := createTestDoc(t, s)
	chapter, all := seedSections(t, s, doc.ID)

	unindexed, err := s.UnindexedSections(ctx, doc.ID)
	if err != nil {
		t.Fatalf("unindexed: %v", err)
	}
	if len(unindexed) != len(all) {
		t.Fatalf("expected all %d sections unindexed, got %d", len(all), len(unindexed))
	}

	if err := s.SetSectionIndexRef(ctx, chapter.ID, "vec-00042"); err != nil {
		t.Fatalf("set index ref: %v", err)
	}

	got, err := s.GetSection(ctx, chapter.ID)
	if err != nil {
		t.Fatalf("get section: %v", err)
	}
	if got.IndexRef == nil || *got.IndexRef != "vec-00042" {
		t.Error("expected index ref stored")
	}
	if got.Version != 2 {
		t.Errorf("expected version bump to 2, got %d", got.Version)
	}

	unindexed, err = s.UnindexedSections(ctx, doc.ID)
	if err != nil {
		t.Fatalf("unindexed: %v", err)
	}
	if len(unindexed) != len(all)-1 {
		t.Errorf("expected %d unindexed after assignment, got %d", len(all)-1, len(unindexed))
	}

	if err := s.SetSectionIndexRef(ctx, uuid.New(), "vec-x"); !errors.Is(err, ErrSectionNotFound) {
		t.Errorf("expected ErrSectionNotFound, got %v", err)
	}
}

func TestDocumentStats(t *testing.T) {
	s := OpenTemp(t)
	ctx := context.Background()

	d1 := createTestDoc(t, s)
	d2 := createTestDoc(t, s)
	createTestDoc(t, s)

	if err := d1.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := d1.Complete(); err != nil {
		t.Fatalf("complete: %v", err)
	}
	if err := s.UpdateDocument(ctx, d1); err != nil {
		t.Fatalf("update: %v", err)
	}
	seedSections(t, s, d2.ID)

	stats, err := s.DocumentStats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.TotalDocuments != 3 {
		t.Errorf("expected 3 documents, got %d", stats.TotalDocuments)
	}
	if stats.ByStatus[document.StatusPending] != 2 {
		t.Errorf("expected 2 pending, got %d", stats.ByStatus[document.StatusPending])
	}
	if stats.ByStatus[document.StatusCompleted] != 1 {
		t.Errorf("expected 1 completed, got %d", stats.ByStatus[document.StatusCompleted])
	}
	if stats.TotalSections != 3 {
		t.Errorf("expected 3 sections, got %d", stats.TotalSections)
	}
}
