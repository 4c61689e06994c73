// Package document holds the Document entity and its processing lifecycle:
// PENDING -> PROCESSING -> {COMPLETED, FAILED, CANCELLED}, with an explicit
// retry path back out of FAILED.
package document

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a referenced document does not exist.
var ErrNotFound = errors.New("document not found")

// Document is an uploaded file tracked through the processing lifecycle.
// Sections belong to the document by composition: deleting a document
// deletes its sections.
type Document struct {
	ID uuid.UUID `json:"id"`

	// Filename is the system-generated storage name; OriginalFilename is
	// what the user uploaded.
	Filename         string `json:"filename"`
	OriginalFilename string `json:"original_filename"`
	FileSize         int64  `json:"file_size"`
	MimeType         string `json:"mime_type"`

	Status Status `json:"processing_status"`

	UploadedAt            time.Time  `json:"uploaded_at"`
	ProcessingStartedAt   *time.Time `json:"processing_started_at,omitempty"`
	ProcessingCompletedAt *time.Time `json:"processing_completed_at,omitempty"`
	ErrorMessage          string     `json:"error_message,omitempty"`

	Metadata map[string]any `json:"metadata,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Version   int64     `json:"version"`
}

// New creates a freshly uploaded document in PENDING with an empty
// metadata map.
func New(filename, originalFilename, mimeType string, fileSize int64) *Document {
	now := time.Now().UTC()
	return &Document{
		ID:               uuid.New(),
		Filename:         filename,
		OriginalFilename: originalFilename,
		FileSize:         fileSize,
		MimeType:         mimeType,
		Status:           StatusPending,
		UploadedAt:       now,
		Metadata:         map[string]any{},
	}
}

// Start moves the document into PROCESSING, stamping the start time and
// clearing any prior error and completion timestamp (a direct restart from
// FAILED must not keep the old failure's end time). Rejected when the
// document is already being processed, already completed, or cancelled.
func (d *Document) Start() error {
	if !CanTransition(d.Status, StatusProcessing) {
		return &StateTransitionError{From: d.Status, To: StatusProcessing, Reason: startRefusal(d.Status)}
	}
	now := time.Now().UTC()
	d.Status = StatusProcessing
	d.ProcessingStartedAt = &now
	d.ProcessingCompletedAt = nil
	d.ErrorMessage = ""
	return nil
}

func startRefusal(s Status) string {
	switch s {
	case StatusProcessing:
		return "document is already being processed"
	case StatusCompleted:
		return "document has already been processed"
	case StatusCancelled:
		return "document processing was cancelled"
	default:
		return ""
	}
}

// Complete marks processing as finished successfully.
func (d *Document) Complete() error {
	if !CanTransition(d.Status, StatusCompleted) {
		return &StateTransitionError{From: d.Status, To: StatusCompleted}
	}
	now := time.Now().UTC()
	d.Status = StatusCompleted
	d.ProcessingCompletedAt = &now
	return nil
}

// Fail marks processing as failed and records the error message.
func (d *Document) Fail(message string) error {
	if !CanTransition(d.Status, StatusFailed) {
		return &StateTransitionError{From: d.Status, To: StatusFailed}
	}
	now := time.Now().UTC()
	d.Status = StatusFailed
	d.ProcessingCompletedAt = &now
	d.ErrorMessage = message
	return nil
}

// Cancel marks the document CANCELLED. Cancellation is cooperative: it does
// not interrupt a run already in flight, it prevents a new one from starting.
func (d *Document) Cancel() error {
	if !CanTransition(d.Status, StatusCancelled) {
		return &StateTransitionError{From: d.Status, To: StatusCancelled}
	}
	now := time.Now().UTC()
	d.Status = StatusCancelled
	d.ProcessingCompletedAt = &now
	return nil
}

// ResetForRetry prepares a FAILED document for another processing cycle:
// error message and both processing timestamps are cleared and the document
// returns to PENDING. Only legal from FAILED.
func (d *Document) ResetForRetry() error {
	if d.Status != StatusFailed {
		return &StateTransitionError{From: d.Status, To: StatusProcessing, Reason: "only failed documents can be retried"}
	}
	d.Status = StatusPending
	d.ErrorMessage = ""
	d.ProcessingStartedAt = nil
	d.ProcessingCompletedAt = nil
	return nil
}

// ProcessingDuration returns the elapsed processing time when both
// timestamps are set.
func (d *Document) ProcessingDuration() (time.Duration, bool) {
	if d.ProcessingStartedAt == nil || d.ProcessingCompletedAt == nil {
		return 0, false
	}
	return d.ProcessingCompletedAt.Sub(*d.ProcessingStartedAt), true
}

// SetMeta stores a metadata value under key.
func (d *Document) SetMeta(key string, value any) {
	if d.Metadata == nil {
		d.Metadata = map[string]any{}
	}
	d.Metadata[key] = value
}

// Meta returns the metadata value for key, or nil.
func (d *Document) Meta(key string) any {
	if d.Metadata == nil {
		return nil
	}
	return d.Metadata[key]
}
