package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/NiranjanVenkatesan/rag-application/internal/section"
	"github.com/NiranjanVenkatesan/rag-application/internal/store"
)

func (s *Server) handleDocumentSections(w http.ResponseWriter, r *http.Request) {
	doc, ok := s.loadDocument(w, r)
	if !ok {
		return
	}
	sections, err := s.store.SectionsByDocument(r.Context(), doc.ID)
	if err != nil {
		s.log.Error("load sections", "doc_id", doc.ID, "error", err)
		jsonError(w, "failed to load sections", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"sections": emptyIfNil(sections)})
}

// treeNode is a section with its children nested, plus the rendered
// root-to-node path.
type treeNode struct {
	*section.Section
	FullPath string      `json:"full_path"`
	Children []*treeNode `json:"children"`
}

// handleSectionTree renders the document's hierarchy as nested JSON.
func (s *Server) handleSectionTree(w http.ResponseWriter, r *http.Request) {
	doc, ok := s.loadDocument(w, r)
	if !ok {
		return
	}
	sections, err := s.store.SectionsByDocument(r.Context(), doc.ID)
	if err != nil {
		s.log.Error("load sections", "doc_id", doc.ID, "error", err)
		jsonError(w, "failed to load sections", http.StatusInternalServerError)
		return
	}

	tree := section.NewTree(sections)
	var build func(secs []*section.Section) []*treeNode
	build = func(secs []*section.Section) []*treeNode {
		nodes := make([]*treeNode, 0, len(secs))
		for _, sec := range secs {
			path, err := tree.FullPath(sec.ID)
			if err != nil {
				path = sec.Label()
			}
			nodes = append(nodes, &treeNode{
				Section:  sec,
				FullPath: path,
				Children: build(tree.Children(sec.ID)),
			})
		}
		return nodes
	}
	writeJSON(w, http.StatusOK, map[string]any{"tree": build(tree.Roots())})
}

func (s *Server) handleRootSections(w http.ResponseWriter, r *http.Request) {
	doc, ok := s.loadDocument(w, r)
	if !ok {
		return
	}
	sections, err := s.store.RootSections(r.Context(), doc.ID)
	if err != nil {
		s.log.Error("load root sections", "doc_id", doc.ID, "error", err)
		jsonError(w, "failed to load sections", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"sections": emptyIfNil(sections)})
}

func (s *Server) handleSectionsByLevel(w http.ResponseWriter, r *http.Request) {
	doc, ok := s.loadDocument(w, r)
	if !ok {
		return
	}
	level, err := strconv.Atoi(chi.URLParam(r, "level"))
	if err != nil || level < 0 {
		jsonError(w, "invalid level", http.StatusBadRequest)
		return
	}
	sections, err := s.store.SectionsByLevel(r.Context(), doc.ID, level)
	if err != nil {
		s.log.Error("load sections by level", "doc_id", doc.ID, "error", err)
		jsonError(w, "failed to load sections", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"sections": emptyIfNil(sections)})
}

func (s *Server) handleSectionsByType(w http.ResponseWriter, r *http.Request) {
	doc, ok := s.loadDocument(w, r)
	if !ok {
		return
	}
	typ := section.Type(strings.ToUpper(chi.URLParam(r, "type")))
	if !typ.Valid() {
		jsonError(w, "unknown section type: "+chi.URLParam(r, "type"), http.StatusBadRequest)
		return
	}
	sections, err := s.store.SectionsByType(r.Context(), doc.ID, typ)
	if err != nil {
		s.log.Error("load sections by type", "doc_id", doc.ID, "error", err)
		jsonError(w, "failed to load sections", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"sections": emptyIfNil(sections)})
}

func (s *Server) handleUnindexedSections(w http.ResponseWriter, r *http.Request) {
	doc, ok := s.loadDocument(w, r)
	if !ok {
		return
	}
	sections, err := s.store.UnindexedSections(r.Context(), doc.ID)
	if err != nil {
		s.log.Error("load unindexed sections", "doc_id", doc.ID, "error", err)
		jsonError(w, "failed to load sections", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"sections": emptyIfNil(sections)})
}

func (s *Server) handleGetSection(w http.ResponseWriter, r *http.Request) {
	sec, ok := s.loadSection(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"section": sec})
}

func (s *Server) handleSectionChildren(w http.ResponseWriter, r *http.Request) {
	sec, ok := s.loadSection(w, r)
	if !ok {
		return
	}
	children, err := s.store.ChildSections(r.Context(), sec.ID)
	if err != nil {
		s.log.Error("load children", "section_id", sec.ID, "error", err)
		jsonError(w, "failed to load sections", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"sections": emptyIfNil(children)})
}

// handleSetIndexRef records the external search-index reference assigned to
// a section by the downstream indexer.
func (s *Server) handleSetIndexRef(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "sectionID")
	if !ok {
		return
	}
	var body struct {
		IndexRef string `json:"index_ref"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		jsonError(w, "invalid body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(body.IndexRef) == "" {
		jsonError(w, "index_ref is required", http.StatusBadRequest)
		return
	}
	if err := s.store.SetSectionIndexRef(r.Context(), id, body.IndexRef); err != nil {
		if errors.Is(err, store.ErrSectionNotFound) {
			jsonError(w, "section not found", http.StatusNotFound)
			return
		}
		s.log.Error("set index ref", "section_id", id, "error", err)
		jsonError(w, "failed to update section", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"section_id": id,
		"index_ref":  body.IndexRef,
	})
}

func (s *Server) loadSection(w http.ResponseWriter, r *http.Request) (*section.Section, bool) {
	id, ok := parseID(w, r, "sectionID")
	if !ok {
		return nil, false
	}
	sec, err := s.store.GetSection(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrSectionNotFound) {
			jsonError(w, "section not found", http.StatusNotFound)
		} else {
			s.log.Error("load section", "section_id", id, "error", err)
			jsonError(w, "internal error", http.StatusInternalServerError)
		}
		return nil, false
	}
	return sec, true
}

func emptyIfNil(sections []*section.Section) []*section.Section {
	if sections == nil {
		return []*section.Section{}
	}
	return sections
}
