package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/NiranjanVenkatesan/rag-application/internal/document"
	"github.com/NiranjanVenkatesan/rag-application/internal/extractor"
	"github.com/NiranjanVenkatesan/rag-application/internal/pipeline"
	"github.com/NiranjanVenkatesan/rag-application/internal/store"
)

// handleUpload accepts a multipart file, stores it under the upload dir, and
// creates a PENDING document. Unless process=false is sent, the document is
// queued for processing immediately.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes+1024*1024) // form overhead

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		jsonError(w, "invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		jsonError(w, "file is required: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer file.Close()

	originalName := sanitizeFilename(header.Filename)
	if !extractor.Supported(originalName) {
		jsonError(w, fmt.Sprintf("unsupported file type: %s", filepath.Ext(originalName)), http.StatusBadRequest)
		return
	}

	doc := document.New("", originalName, header.Header.Get("Content-Type"), 0)
	doc.Filename = doc.ID.String() + strings.ToLower(filepath.Ext(originalName))

	size, err := s.saveUpload(file, doc.Filename)
	if err != nil {
		if errors.Is(err, errUploadTooLarge) {
			jsonError(w, fmt.Sprintf("file exceeds max size (%d bytes)", s.cfg.MaxUploadBytes), http.StatusRequestEntityTooLarge)
		} else {
			s.log.Error("save upload", "filename", originalName, "error", err)
			jsonError(w, "failed to store file", http.StatusInternalServerError)
		}
		return
	}
	doc.FileSize = size

	if err := s.store.CreateDocument(r.Context(), doc); err != nil {
		s.log.Error("create document", "error", err)
		if rerr := s.orch.Processor().RemoveArtifacts(doc); rerr != nil {
			s.log.Warn("remove upload file", "doc_id", doc.ID, "error", rerr)
		}
		jsonError(w, "failed to create document", http.StatusInternalServerError)
		return
	}

	queued := false
	if r.FormValue("process") != "false" {
		if err := s.orch.Submit(doc.ID); err != nil {
			s.log.Warn("submit after upload", "doc_id", doc.ID, "error", err)
		} else {
			queued = true
		}
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"document": doc,
		"queued":   queued,
	})
}

var errUploadTooLarge = errors.New("upload too large")

func (s *Server) saveUpload(src io.Reader, name string) (int64, error) {
	if err := os.MkdirAll(s.cfg.UploadDir, 0o755); err != nil {
		return 0, fmt.Errorf("create upload dir: %w", err)
	}
	path := filepath.Join(s.cfg.UploadDir, name)
	dst, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("create upload file: %w", err)
	}
	defer dst.Close()

	size, err := io.Copy(dst, io.LimitReader(src, s.cfg.MaxUploadBytes+1))
	if err != nil {
		os.Remove(path)
		return 0, fmt.Errorf("write upload file: %w", err)
	}
	if size > s.cfg.MaxUploadBytes {
		os.Remove(path)
		return 0, errUploadTooLarge
	}
	return size, nil
}

func (s *Server) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	doc, ok := s.loadDocument(w, r)
	if !ok {
		return
	}

	resp := map[string]any{"document": doc}
	if r.URL.Query().Get("include_sections") == "true" {
		sections, err := s.store.SectionsByDocument(r.Context(), doc.ID)
		if err != nil {
			s.log.Error("load sections", "doc_id", doc.ID, "error", err)
			jsonError(w, "failed to load sections", http.StatusInternalServerError)
			return
		}
		resp["sections"] = emptyIfNil(sections)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	opts := store.ListOptions{Limit: 50}
	q := r.URL.Query()
	if v := q.Get("status"); v != "" {
		status := document.Status(strings.ToUpper(v))
		if !status.Valid() {
			jsonError(w, "unknown status: "+v, http.StatusBadRequest)
			return
		}
		opts.Status = status
	}
	if v := q.Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			opts.Limit = n
		}
	}
	if v := q.Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			opts.Offset = n
		}
	}

	docs, err := s.store.ListDocuments(r.Context(), opts)
	if err != nil {
		s.log.Error("list documents", "error", err)
		jsonError(w, "failed to list documents", http.StatusInternalServerError)
		return
	}
	if docs == nil {
		docs = []*document.Document{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"documents": docs,
		"limit":     opts.Limit,
		"offset":    opts.Offset,
	})
}

// handleDeleteDocument removes the document row (sections go via the cascade)
// and the stored upload file, best effort.
func (s *Server) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	doc, ok := s.loadDocument(w, r)
	if !ok {
		return
	}
	if err := s.store.DeleteDocument(r.Context(), doc.ID); err != nil {
		if errors.Is(err, document.ErrNotFound) {
			jsonError(w, "document not found", http.StatusNotFound)
			return
		}
		s.log.Error("delete document", "doc_id", doc.ID, "error", err)
		jsonError(w, "failed to delete document", http.StatusInternalServerError)
		return
	}
	if err := s.orch.Processor().RemoveArtifacts(doc); err != nil {
		s.log.Warn("remove upload file", "doc_id", doc.ID, "error", err)
	}
	writeJSON(w, http.StatusOK, map[string]any{"deleted": doc.ID})
}

// handleProcess queues a document for processing. The status check here is a
// fast-path courtesy; the worker revalidates the transition when it picks the
// document up.
func (s *Server) handleProcess(w http.ResponseWriter, r *http.Request) {
	doc, ok := s.loadDocument(w, r)
	if !ok {
		return
	}
	if !document.CanTransition(doc.Status, document.StatusProcessing) {
		jsonError(w, fmt.Sprintf("document is %s and cannot be processed", doc.Status), http.StatusConflict)
		return
	}
	if err := s.orch.Submit(doc.ID); err != nil {
		jsonError(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{
		"doc_id": doc.ID,
		"status": doc.Status,
	})
}

// handleRetry resets a FAILED document to PENDING and queues it again.
func (s *Server) handleRetry(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "docID")
	if !ok {
		return
	}
	doc, err := s.orch.Processor().Retry(r.Context(), id)
	if err != nil {
		s.writeLifecycleError(w, id, err)
		return
	}
	if err := s.orch.Submit(doc.ID); err != nil {
		jsonError(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{
		"doc_id": doc.ID,
		"status": doc.Status,
	})
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "docID")
	if !ok {
		return
	}
	doc, err := s.orch.Processor().Cancel(r.Context(), id)
	if err != nil {
		s.writeLifecycleError(w, id, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"doc_id": doc.ID,
		"status": doc.Status,
	})
}

func (s *Server) writeLifecycleError(w http.ResponseWriter, id uuid.UUID, err error) {
	var ste *document.StateTransitionError
	switch {
	case errors.Is(err, document.ErrNotFound):
		jsonError(w, "document not found", http.StatusNotFound)
	case errors.As(err, &ste):
		jsonError(w, ste.Error(), http.StatusConflict)
	case errors.Is(err, pipeline.ErrQueueFull):
		jsonError(w, err.Error(), http.StatusServiceUnavailable)
	default:
		s.log.Error("lifecycle operation", "doc_id", id, "error", err)
		jsonError(w, "internal error", http.StatusInternalServerError)
	}
}

func (s *Server) loadDocument(w http.ResponseWriter, r *http.Request) (*document.Document, bool) {
	id, ok := parseID(w, r, "docID")
	if !ok {
		return nil, false
	}
	doc, err := s.store.GetDocument(r.Context(), id)
	if err != nil {
		if errors.Is(err, document.ErrNotFound) {
			jsonError(w, "document not found", http.StatusNotFound)
		} else {
			s.log.Error("load document", "doc_id", id, "error", err)
			jsonError(w, "internal error", http.StatusInternalServerError)
		}
		return nil, false
	}
	return doc, true
}

func parseID(w http.ResponseWriter, r *http.Request, param string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, param))
	if err != nil {
		jsonError(w, "invalid id: "+err.Error(), http.StatusBadRequest)
		return uuid.Nil, false
	}
	return id, true
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func sanitizeFilename(name string) string {
	name = filepath.Base(name)
	name = strings.ReplaceAll(name, "/", "_")
	name = strings.ReplaceAll(name, "\\", "_")
	name = strings.ReplaceAll(name, "..", "_")
	if name == "" || name == "." {
		name = "unnamed"
	}
	return name
}
