package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/NiranjanVenkatesan/rag-application/internal/section"
)

// ErrSectionNotFound is returned when a referenced section does not exist.
var ErrSectionNotFound = errors.New("store: section not found")

const sectionColumns = `id, document_id, parent_section_id, section_type, title,
	content, hierarchy_path, hierarchy_level, section_order, word_count, char_count,
	page_start, page_end, index_ref, created_at, updated_at, version`

// ReplaceSections atomically swaps the stored hierarchy of a document for the
// given one: prior sections are deleted and the new batch inserted in a single
// transaction. Sections must arrive parents-before-children (detection order
// already satisfies this).
func (s *Store) ReplaceSections(ctx context.Context, documentID uuid.UUID, sections []*section.Section) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("replace sections: begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM document_sections WHERE document_id = ?`, documentID.String()); err != nil {
		return fmt.Errorf("replace sections: clear: %w", err)
	}

	now := time.Now().UTC()
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO document_sections (`+sectionColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("replace sections: prepare: %w", err)
	}
	defer stmt.Close()

	for _, sec := range sections {
		sec.CreatedAt = now
		sec.UpdatedAt = now
		sec.Version = 1

		var parentID any
		if sec.ParentID != nil {
			parentID = sec.ParentID.String()
		}
		var indexRef any
		if sec.IndexRef != nil {
			indexRef = *sec.IndexRef
		}
		_, err := stmt.ExecContext(ctx,
			sec.ID.String(), documentID.String(), parentID,
			string(sec.Type), nullStr(sec.Title), sec.Content,
			nullStr(sec.HierarchyPath), sec.HierarchyLevel, sec.SectionOrder,
			sec.WordCount, sec.CharCount, sec.PageStart, sec.PageEnd, indexRef,
			timeStr(now), timeStr(now), sec.Version,
		)
		if err != nil {
			return fmt.Errorf("replace sections: insert %s: %w", sec.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("replace sections: commit: %w", err)
	}
	return nil
}

// GetSection returns the section with the given ID, or ErrSectionNotFound.
func (s *Store) GetSection(ctx context.Context, id uuid.UUID) (*section.Section, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+sectionColumns+` FROM document_sections WHERE id = ?`, id.String())
	sec, err := scanSection(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSectionNotFound
	}
	return sec, err
}

// SectionsByDocument returns all sections of a document in section order.
func (s *Store) SectionsByDocument(ctx context.Context, documentID uuid.UUID) ([]*section.Section, error) {
	return s.querySections(ctx,
		`SELECT `+sectionColumns+` FROM document_sections
		 WHERE document_id = ? ORDER BY section_order`, documentID.String())
}

// RootSections returns a document's parentless sections in section order.
func (s *Store) RootSections(ctx context.Context, documentID uuid.UUID) ([]*section.Section, error) {
	return s.querySections(ctx,
		`SELECT `+sectionColumns+` FROM document_sections
		 WHERE document_id = ? AND parent_section_id IS NULL ORDER BY section_order`,
		documentID.String())
}

// ChildSections returns the direct children of a section in section order.
func (s *Store) ChildSections(ctx context.Context, parentID uuid.UUID) ([]*section.Section, error) {
	return s.querySections(ctx,
		`SELECT `+sectionColumns+` FROM document_sections
		 WHERE parent_section_id = ? ORDER BY section_order`, parentID.String())
}

// SectionsByLevel returns a document's sections at one hierarchy level.
func (s *Store) SectionsByLevel(ctx context.Context, documentID uuid.UUID, level int) ([]*section.Section, error) {
	return s.querySections(ctx,
		`SELECT `+sectionColumns+` FROM document_sections
		 WHERE document_id = ? AND hierarchy_level = ? ORDER BY section_order`,
		documentID.String(), level)
}

// SectionsByType returns a document's sections of one type.
func (s *Store) SectionsByType(ctx context.Context, documentID uuid.UUID, typ section.Type) ([]*section.Section, error) {
	return s.querySections(ctx,
		`SELECT `+sectionColumns+` FROM document_sections
		 WHERE document_id = ? AND section_type = ? ORDER BY section_order`,
		documentID.String(), string(typ))
}

// UnindexedSections returns the document's sections not yet handed to the
// search index.
func (s *Store) UnindexedSections(ctx context.Context, documentID uuid.UUID) ([]*section.Section, error) {
	return s.querySections(ctx,
		`SELECT `+sectionColumns+` FROM document_sections
		 WHERE document_id = ? AND index_ref IS NULL ORDER BY section_order`,
		documentID.String())
}

// SetSectionIndexRef records the search-index reference for a section and
// bumps its version.
func (s *Store) SetSectionIndexRef(ctx context.Context, id uuid.UUID, ref string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE document_sections
		SET index_ref = ?, updated_at = ?, version = version + 1
		WHERE id = ?`,
		ref, timeStr(time.Now().UTC()), id.String())
	if err != nil {
		return fmt.Errorf("set index ref %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("set index ref %s: %w", id, err)
	}
	if n == 0 {
		return ErrSectionNotFound
	}
	return nil
}

func (s *Store) querySections(ctx context.Context, query string, args ...any) ([]*section.Section, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query sections: %w", err)
	}
	defer rows.Close()

	var out []*section.Section
	for rows.Next() {
		sec, err := scanSection(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sec)
	}
	return out, rows.Err()
}

func scanSection(row rowScanner) (*section.Section, error) {
	var (
		sec                section.Section
		id, docID          string
		parentID           sql.NullString
		typ                string
		title, path        sql.NullString
		pageStart, pageEnd sql.NullInt64
		indexRef           sql.NullString
		createdAt, updated string
	)
	err := row.Scan(&id, &docID, &parentID, &typ, &title,
		&sec.Content, &path, &sec.HierarchyLevel, &sec.SectionOrder,
		&sec.WordCount, &sec.CharCount, &pageStart, &pageEnd, &indexRef,
		&createdAt, &updated, &sec.Version)
	if err != nil {
		return nil, err
	}
	if sec.ID, err = uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("scan section id: %w", err)
	}
	if sec.DocumentID, err = uuid.Parse(docID); err != nil {
		return nil, fmt.Errorf("scan section document id: %w", err)
	}
	if parentID.Valid {
		pid, err := uuid.Parse(parentID.String)
		if err != nil {
			return nil, fmt.Errorf("scan section parent id: %w", err)
		}
		sec.ParentID = &pid
	}
	sec.Type = section.Type(typ)
	sec.Title = title.String
	sec.HierarchyPath = path.String
	if pageStart.Valid {
		v := int(pageStart.Int64)
		sec.PageStart = &v
	}
	if pageEnd.Valid {
		v := int(pageEnd.Int64)
		sec.PageEnd = &v
	}
	if indexRef.Valid {
		ref := indexRef.String
		sec.IndexRef = &ref
	}
	if sec.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("scan section created_at: %w", err)
	}
	if sec.UpdatedAt, err = parseTime(updated); err != nil {
		return nil, fmt.Errorf("scan section updated_at: %w", err)
	}
	return &sec, nil
}
