package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/NiranjanVenkatesan/rag-application/internal/document"
)

const documentColumns = `id, filename, original_filename, file_size, mime_type,
	processing_status, uploaded_at, processing_started_at, processing_completed_at,
	error_message, metadata, created_at, updated_at, version`

// CreateDocument inserts a new document, stamping audit fields and version 1.
func (s *Store) CreateDocument(ctx context.Context, d *document.Document) error {
	now := time.Now().UTC()
	d.CreatedAt = now
	d.UpdatedAt = now
	d.Version = 1

	meta, err := marshalMeta(d.Metadata)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO documents (`+documentColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		d.ID.String(), d.Filename, d.OriginalFilename, d.FileSize, d.MimeType,
		string(d.Status), timeStr(d.UploadedAt),
		nullTimeStr(d.ProcessingStartedAt), nullTimeStr(d.ProcessingCompletedAt),
		nullStr(d.ErrorMessage), meta,
		timeStr(d.CreatedAt), timeStr(d.UpdatedAt), d.Version,
	)
	if err != nil {
		return fmt.Errorf("insert document %s: %w", d.ID, err)
	}
	return nil
}

// GetDocument returns the document with the given ID, or document.ErrNotFound.
func (s *Store) GetDocument(ctx context.Context, id uuid.UUID) (*document.Document, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+documentColumns+` FROM documents WHERE id = ?`, id.String())
	d, err := scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, document.ErrNotFound
	}
	return d, err
}

// ListOptions filters and pages a document listing.
type ListOptions struct {
	Status document.Status // zero value means all statuses
	Limit  int             // <= 0 means no limit
	Offset int
}

// ListDocuments returns documents newest upload first.
func (s *Store) ListDocuments(ctx context.Context, opts ListOptions) ([]*document.Document, error) {
	query := `SELECT ` + documentColumns + ` FROM documents`
	var args []any
	if opts.Status != "" {
		query += ` WHERE processing_status = ?`
		args = append(args, string(opts.Status))
	}
	query += ` ORDER BY uploaded_at DESC, id`
	if opts.Limit > 0 {
		query += ` LIMIT ? OFFSET ?`
		args = append(args, opts.Limit, opts.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	var out []*document.Document
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// UpdateDocument writes d back with an optimistic version check. On success
// d.Version and d.UpdatedAt reflect the stored row. A concurrent update
// surfaces as ErrStaleVersion; a missing row as document.ErrNotFound.
func (s *Store) UpdateDocument(ctx context.Context, d *document.Document) error {
	meta, err := marshalMeta(d.Metadata)
	if err != nil {
		return err
	}
	now := time.Now().UTC()

	res, err := s.db.ExecContext(ctx, `
		UPDATE documents SET
			filename = ?, original_filename = ?, file_size = ?, mime_type = ?,
			processing_status = ?, uploaded_at = ?,
			processing_started_at = ?, processing_completed_at = ?,
			error_message = ?, metadata = ?, updated_at = ?, version = version + 1
		WHERE id = ? AND version = ?`,
		d.Filename, d.OriginalFilename, d.FileSize, d.MimeType,
		string(d.Status), timeStr(d.UploadedAt),
		nullTimeStr(d.ProcessingStartedAt), nullTimeStr(d.ProcessingCompletedAt),
		nullStr(d.ErrorMessage), meta, timeStr(now),
		d.ID.String(), d.Version,
	)
	if err != nil {
		return fmt.Errorf("update document %s: %w", d.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update document %s: %w", d.ID, err)
	}
	if n == 0 {
		var exists int
		if err := s.db.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM documents WHERE id = ?`, d.ID.String()).Scan(&exists); err != nil {
			return fmt.Errorf("update document %s: %w", d.ID, err)
		}
		if exists == 0 {
			return document.ErrNotFound
		}
		return fmt.Errorf("update document %s: %w", d.ID, ErrStaleVersion)
	}
	d.Version++
	d.UpdatedAt = now
	return nil
}

// DeleteDocument removes the document; its sections go with it via the
// foreign key cascade.
func (s *Store) DeleteDocument(ctx context.Context, id uuid.UUID) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE id = ?`, id.String())
	if err != nil {
		return fmt.Errorf("delete document %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete document %s: %w", id, err)
	}
	if n == 0 {
		return document.ErrNotFound
	}
	return nil
}

// Stats summarizes the stored corpus.
type Stats struct {
	TotalDocuments int64                     `json:"total_documents"`
	ByStatus       map[document.Status]int64 `json:"by_status"`
	TotalSections  int64                     `json:"total_sections"`
}

// DocumentStats returns document counts by status plus the total section count.
func (s *Store) DocumentStats(ctx context.Context) (*Stats, error) {
	st := &Stats{ByStatus: map[document.Status]int64{}}

	rows, err := s.db.QueryContext(ctx,
		`SELECT processing_status, COUNT(*) FROM documents GROUP BY processing_status`)
	if err != nil {
		return nil, fmt.Errorf("document stats: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var status string
		var count int64
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("document stats: %w", err)
		}
		st.ByStatus[document.Status(status)] = count
		st.TotalDocuments += count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("document stats: %w", err)
	}

	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM document_sections`).Scan(&st.TotalSections); err != nil {
		return nil, fmt.Errorf("section stats: %w", err)
	}
	return st, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (*document.Document, error) {
	var (
		d                  document.Document
		id, status         string
		uploadedAt         string
		startedAt, doneAt  sql.NullString
		errMsg             sql.NullString
		meta               string
		createdAt, updated string
	)
	err := row.Scan(&id, &d.Filename, &d.OriginalFilename, &d.FileSize, &d.MimeType,
		&status, &uploadedAt, &startedAt, &doneAt, &errMsg, &meta,
		&createdAt, &updated, &d.Version)
	if err != nil {
		return nil, err
	}
	if d.ID, err = uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("scan document id: %w", err)
	}
	d.Status = document.Status(status)
	if d.UploadedAt, err = parseTime(uploadedAt); err != nil {
		return nil, fmt.Errorf("scan uploaded_at: %w", err)
	}
	if d.ProcessingStartedAt, err = parseNullTime(startedAt); err != nil {
		return nil, fmt.Errorf("scan processing_started_at: %w", err)
	}
	if d.ProcessingCompletedAt, err = parseNullTime(doneAt); err != nil {
		return nil, fmt.Errorf("scan processing_completed_at: %w", err)
	}
	d.ErrorMessage = errMsg.String
	if d.Metadata, err = unmarshalMeta(meta); err != nil {
		return nil, err
	}
	if d.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("scan created_at: %w", err)
	}
	if d.UpdatedAt, err = parseTime(updated); err != nil {
		return nil, fmt.Errorf("scan updated_at: %w", err)
	}
	return &d, nil
}
