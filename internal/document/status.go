package document

// Status is the processing state of a document.
type Status string

const (
	StatusPending    Status = "PENDING"
	StatusProcessing Status = "PROCESSING"
	StatusCompleted  Status = "COMPLETED"
	StatusFailed     Status = "FAILED"
	StatusCancelled  Status = "CANCELLED"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusCompleted, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

// IsFinal reports whether s is terminal (COMPLETED, FAILED, or CANCELLED).
func (s Status) IsFinal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCancelled
}

// IsActive reports whether the document is queued or in flight.
func (s Status) IsActive() bool {
	return s == StatusPending || s == StatusProcessing
}

// IsSuccessful reports whether processing finished cleanly.
func (s Status) IsSuccessful() bool {
	return s == StatusCompleted
}

// IsFailed reports whether processing ended without success.
func (s Status) IsFailed() bool {
	return s == StatusFailed || s == StatusCancelled
}

// transitions is the single source of truth for status legality. Every
// mutation consults CanTransition before touching a document; terminal
// states admit nothing except the explicit FAILED -> PROCESSING retry.
var transitions = map[Status][]Status{
	StatusPending:    {StatusProcessing, StatusFailed, StatusCancelled},
	StatusProcessing: {StatusCompleted, StatusFailed, StatusCancelled},
	StatusFailed:     {StatusProcessing},
}

// CanTransition reports whether from -> to is a legal status transition.
func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// StateTransitionError reports an attempt at an illegal status transition.
type StateTransitionError struct {
	From   Status
	To     Status
	Reason string
}

func (e *StateTransitionError) Error() string {
	if e.Reason != "" {
		return "invalid status transition " + string(e.From) + " -> " + string(e.To) + ": " + e.Reason
	}
	return "invalid status transition " + string(e.From) + " -> " + string(e.To)
}
