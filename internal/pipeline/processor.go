// Package pipeline drives documents through the processing lifecycle:
// extract text, detect the section hierarchy, persist it, and move the
// document's status accordingly. A channel-fed worker pool (Orchestrator)
// runs Processor episodes with bounded concurrency.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/NiranjanVenkatesan/rag-application/internal/document"
	"github.com/NiranjanVenkatesan/rag-application/internal/extractor"
	"github.com/NiranjanVenkatesan/rag-application/internal/hierarchy"
	"github.com/NiranjanVenkatesan/rag-application/internal/store"
)

// ExtractFunc pulls plain text from a stored document file.
type ExtractFunc func(r io.Reader, filename string) (string, error)

// Processor runs one processing episode per document: PENDING -> PROCESSING,
// then COMPLETED with a fresh section hierarchy, or FAILED with the error
// message recorded. A document is never left in PROCESSING: every exit path
// persists a terminal status or returns the document untouched.
type Processor struct {
	store     *store.Store
	uploadDir string
	log       *slog.Logger
	extract   ExtractFunc
}

// NewProcessor builds a processor reading uploads from uploadDir.
func NewProcessor(st *store.Store, uploadDir string, log *slog.Logger) *Processor {
	return &Processor{
		store:     st,
		uploadDir: uploadDir,
		log:       log,
		extract:   extractor.Extract,
	}
}

// SetExtract swaps the extraction step. Tests use this to avoid real files.
func (p *Processor) SetExtract(fn ExtractFunc) { p.extract = fn }

// Process runs the full episode for one document. Status transition
// violations (already processing, completed, cancelled) come back as
// *document.StateTransitionError without touching the document; extraction
// and persistence failures mark it FAILED and return the cause.
func (p *Processor) Process(ctx context.Context, id uuid.UUID) error {
	doc, err := p.store.GetDocument(ctx, id)
	if err != nil {
		return err
	}
	log := p.log.With("doc_id", doc.ID, "filename", doc.OriginalFilename)

	if err := doc.Start(); err != nil {
		log.Warn("processing refused", "status", doc.Status, "error", err)
		return err
	}
	if err := p.store.UpdateDocument(ctx, doc); err != nil {
		return fmt.Errorf("persist PROCESSING: %w", err)
	}
	log.Info("processing started")

	text, err := p.extractText(doc)
	if err != nil {
		log.Error("extraction failed", "error", err)
		p.fail(ctx, doc, err.Error())
		return err
	}

	sections := hierarchy.Detect(doc.ID, text)
	if len(sections) == 0 {
		// No markers and no content lines: keep the raw text reachable.
		sections = append(sections, hierarchy.Fallback(doc.ID, text))
	}
	log.Info("hierarchy detected", "sections", len(sections))

	if err := p.store.ReplaceSections(ctx, doc.ID, sections); err != nil {
		log.Error("persist sections failed", "error", err)
		p.fail(ctx, doc, "persist sections: "+err.Error())
		return err
	}

	doc.SetMeta("section_count", len(sections))
	if err := doc.Complete(); err != nil {
		return err
	}
	if err := p.store.UpdateDocument(ctx, doc); err != nil {
		return fmt.Errorf("persist COMPLETED: %w", err)
	}
	if dur, ok := doc.ProcessingDuration(); ok {
		log.Info("processing completed", "sections", len(sections), "duration", dur)
	}
	return nil
}

func (p *Processor) extractText(doc *document.Document) (string, error) {
	f, err := os.Open(filepath.Join(p.uploadDir, doc.Filename))
	if err != nil {
		return "", fmt.Errorf("open upload: %w", err)
	}
	defer f.Close()
	return p.extract(f, doc.OriginalFilename)
}

// fail records the terminal FAILED status. Persistence errors here are
// logged, not returned: the original failure is the one the caller cares
// about.
func (p *Processor) fail(ctx context.Context, doc *document.Document, message string) {
	if err := doc.Fail(message); err != nil {
		p.log.Error("cannot mark document failed", "doc_id", doc.ID, "error", err)
		return
	}
	if err := p.store.UpdateDocument(ctx, doc); err != nil {
		p.log.Error("persist FAILED status", "doc_id", doc.ID, "error", err)
	}
}

// Retry returns a FAILED document to PENDING so it can be resubmitted.
func (p *Processor) Retry(ctx context.Context, id uuid.UUID) (*document.Document, error) {
	doc, err := p.store.GetDocument(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := doc.ResetForRetry(); err != nil {
		return nil, err
	}
	if err := p.store.UpdateDocument(ctx, doc); err != nil {
		return nil, err
	}
	p.log.Info("document reset for retry", "doc_id", doc.ID)
	return doc, nil
}

// Cancel marks a document CANCELLED. Cancellation does not interrupt an
// episode already running, it prevents a new one from starting.
func (p *Processor) Cancel(ctx context.Context, id uuid.UUID) (*document.Document, error) {
	doc, err := p.store.GetDocument(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := doc.Cancel(); err != nil {
		return nil, err
	}
	if err := p.store.UpdateDocument(ctx, doc); err != nil {
		return nil, err
	}
	p.log.Info("document cancelled", "doc_id", doc.ID)
	return doc, nil
}

// RemoveArtifacts deletes the stored upload file. Missing files are fine.
func (p *Processor) RemoveArtifacts(doc *document.Document) error {
	err := os.Remove(filepath.Join(p.uploadDir, doc.Filename))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove upload: %w", err)
	}
	return nil
}
