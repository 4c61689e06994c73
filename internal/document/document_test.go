package document

import (
	"errors"
	"testing"
	"time"
)

func newTestDoc() *Document {
	return New("abc123.txt", "report.txt", "text/plain", 42)
}

func TestNewDocument(t *testing.T) {
	d := newTestDoc()
	if d.Status != StatusPending {
		t.Errorf("expected status PENDING, got %s", d.Status)
	}
	if d.OriginalFilename != "report.txt" {
		t.Errorf("expected original filename %q, got %q", "report.txt", d.OriginalFilename)
	}
	if d.Metadata == nil {
		t.Error("expected non-nil metadata map")
	}
	if d.UploadedAt.IsZero() {
		t.Error("expected uploaded timestamp set")
	}
	if d.ProcessingStartedAt != nil || d.ProcessingCompletedAt != nil {
		t.Error("expected processing timestamps unset")
	}
}

func TestStartCompleteLifecycle(t *testing.T) {
	d := newTestDoc()
	if err := d.Start(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.Status != StatusProcessing {
		t.Errorf("expected PROCESSING, got %s", d.Status)
	}
	if d.ProcessingStartedAt == nil {
		t.Fatal("expected start timestamp set")
	}

	if err := d.Complete(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.Status != StatusCompleted {
		t.Errorf("expected COMPLETED, got %s", d.Status)
	}
	if d.ProcessingCompletedAt == nil {
		t.Fatal("expected completion timestamp set")
	}

	if _, ok := d.ProcessingDuration(); !ok {
		t.Error("expected processing duration available")
	}
}

func TestStartRefusals(t *testing.T) {
	tests := []struct {
		name   string
		status Status
		reason string
	}{
		{"processing", StatusProcessing, "document is already being processed"},
		{"completed", StatusCompleted, "document has already been processed"},
		{"cancelled", StatusCancelled, "document processing was cancelled"},
	}
	for _, tc := range tests {
		d := newTestDoc()
		d.Status = tc.status
		err := d.Start()
		if err == nil {
			t.Fatalf("%s: expected error", tc.name)
		}
		var ste *StateTransitionError
		if !errors.As(err, &ste) {
			t.Fatalf("%s: expected StateTransitionError, got %T", tc.name, err)
		}
		if ste.Reason != tc.reason {
			t.Errorf("%s: expected reason %q, got %q", tc.name, tc.reason, ste.Reason)
		}
		if d.Status != tc.status {
			t.Errorf("%s: status mutated to %s on refused transition", tc.name, d.Status)
		}
	}
}

func TestFailRecordsMessage(t *testing.T) {
	d := newTestDoc()
	if err := d.Start(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := d.Fail("extract pdf text: broken xref"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.Status != StatusFailed {
		t.Errorf("expected FAILED, got %s", d.Status)
	}
	if d.ErrorMessage != "extract pdf text: broken xref" {
		t.Errorf("expected error message stored, got %q", d.ErrorMessage)
	}
	if d.ProcessingCompletedAt == nil {
		t.Error("expected completion timestamp on failure")
	}
}

func TestFailFromPending(t *testing.T) {
	// A document can fail before processing starts (e.g. its file vanished).
	d := newTestDoc()
	if err := d.Fail("upload missing"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.Status != StatusFailed {
		t.Errorf("expected FAILED, got %s", d.Status)
	}
}

func TestCancel(t *testing.T) {
	d := newTestDoc()
	if err := d.Cancel(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.Status != StatusCancelled {
		t.Errorf("expected CANCELLED, got %s", d.Status)
	}

	// Cancelled documents cannot be started or retried.
	if err := d.Start(); err == nil {
		t.Error("expected error starting cancelled document")
	}
	if err := d.ResetForRetry(); err == nil {
		t.Error("expected error retrying cancelled document")
	}
}

func TestResetForRetry(t *testing.T) {
	d := newTestDoc()
	if err := d.Start(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := d.Fail("boom"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := d.ResetForRetry(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.Status != StatusPending {
		t.Errorf("expected PENDING after retry reset, got %s", d.Status)
	}
	if d.ErrorMessage != "" {
		t.Errorf("expected error message cleared, got %q", d.ErrorMessage)
	}
	if d.ProcessingStartedAt != nil || d.ProcessingCompletedAt != nil {
		t.Error("expected processing timestamps cleared")
	}

	// The document can go through a full cycle again.
	if err := d.Start(); err != nil {
		t.Fatalf("unexpected error on second start: %v", err)
	}
	if err := d.Complete(); err != nil {
		t.Fatalf("unexpected error on second complete: %v", err)
	}
}

func TestResetForRetryOnlyFromFailed(t *testing.T) {
	for _, status := range []Status{StatusPending, StatusProcessing, StatusCompleted, StatusCancelled} {
		d := newTestDoc()
		d.Status = status
		err := d.ResetForRetry()
		if err == nil {
			t.Errorf("%s: expected error", status)
			continue
		}
		var ste *StateTransitionError
		if !errors.As(err, &ste) {
			t.Errorf("%s: expected StateTransitionError, got %T", status, err)
			continue
		}
		if ste.Reason != "only failed documents can be retried" {
			t.Errorf("%s: unexpected reason %q", status, ste.Reason)
		}
	}
}

func TestStartClearsPriorError(t *testing.T) {
	d := newTestDoc()
	d.Status = StatusFailed
	d.ErrorMessage = "old failure"
	if err := d.Start(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.ErrorMessage != "" {
		t.Errorf("expected error cleared on start, got %q", d.ErrorMessage)
	}
}

func TestStartFromFailedClearsCompletedAt(t *testing.T) {
	// FAILED -> PROCESSING is a legal direct transition; the prior failure's
	// end timestamp must not survive into the new run.
	d := newTestDoc()
	if err := d.Start(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := d.Fail("boom"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := d.Start(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.Status != StatusProcessing {
		t.Fatalf("expected PROCESSING, got %s", d.Status)
	}
	if d.ProcessingCompletedAt != nil {
		t.Errorf("expected completion timestamp cleared, got %v", d.ProcessingCompletedAt)
	}
	if d.ProcessingStartedAt == nil {
		t.Error("expected start timestamp set")
	}
}

func TestProcessingDuration(t *testing.T) {
	d := newTestDoc()
	if _, ok := d.ProcessingDuration(); ok {
		t.Error("expected no duration before processing")
	}
	start := time.Now().UTC()
	end := start.Add(1500 * time.Millisecond)
	d.ProcessingStartedAt = &start
	d.ProcessingCompletedAt = &end
	dur, ok := d.ProcessingDuration()
	if !ok {
		t.Fatal("expected duration available")
	}
	if dur != 1500*time.Millisecond {
		t.Errorf("expected 1.5s, got %s", dur)
	}
}

func TestMetadata(t *testing.T) {
	d := newTestDoc()
	d.SetMeta("section_count", 7)
	if got := d.Meta("section_count"); got != 7 {
		t.Errorf("expected 7, got %v", got)
	}
	if got := d.Meta("missing"); got != nil {
		t.Errorf("expected nil for missing key, got %v", got)
	}

	var zero Document
	zero.SetMeta("k", "v")
	if got := zero.Meta("k"); got != "v" {
		t.Errorf("expected lazy map init, got %v", got)
	}
}
