package tickets

import "strings"

// Status is the closed set of states the UI renders. The backend grew
// several spellings over time; everything funnels through the mapping table
// below.
type Status string

const (
	StatusPending   Status = "pending"
	StatusApproved  Status = "approved"
	StatusCompleted Status = "completed"
)

// backendStatus is the finite mapping from backend values to UI states.
// Values the table does not know fall through to pending: a visible,
// non-final state is the safe default for an unrecognized record.
var backendStatus = map[string]Status{
	"pending":     StatusPending,
	"in_review":   StatusPending,
	"needs_info":  StatusPending,
	"rejected":    StatusPending,
	"approved":    StatusApproved,
	"approve":     StatusApproved,
	"completed":   StatusCompleted,
	"complete":    StatusCompleted,
	"done":        StatusCompleted,
	"deployed":    StatusCompleted,
	"implemented": StatusCompleted,
}

// MapBackendStatus collapses a backend status value to a UI state.
func MapBackendStatus(raw string) Status {
	if s, ok := backendStatus[strings.ToLower(strings.TrimSpace(raw))]; ok {
		return s
	}
	return StatusPending
}

// UIStatus returns the display state for the ticket.
func (t Ticket) UIStatus() Status {
	return MapBackendStatus(t.Status)
}
