// Package dashboard prepares ticket lists for display and export.
package dashboard

import (
	"sort"
	"strings"

	"github.com/stacyposk/logiccart-change-hub/internal/tickets"
)

// Filter narrows a ticket list. Zero values match everything.
type Filter struct {
	// Status matches the mapped UI state, not the backend's raw value.
	Status tickets.Status
	// Search matches case-insensitively against id, page area, change type
	// and description.
	Search string
	// Month restricts to tickets created in a calendar month ("2026-08").
	Month string
}

// Apply returns the tickets matching the filter, preserving input order.
func (f Filter) Apply(list []tickets.Ticket) []tickets.Ticket {
	search := strings.ToLower(strings.TrimSpace(f.Search))
	out := make([]tickets.Ticket, 0, len(list))
	for _, t := range list {
		if f.Status != "" && t.UIStatus() != f.Status {
			continue
		}
		if f.Month != "" && t.CreatedAt.Format("2006-01") != f.Month {
			continue
		}
		if search != "" && !matches(t, search) {
			continue
		}
		out = append(out, t)
	}
	return out
}

func matches(t tickets.Ticket, search string) bool {
	for _, field := range []string{t.TicketID, t.PageArea, t.ChangeType, t.Description, t.RequesterName} {
		if strings.Contains(strings.ToLower(field), search) {
			return true
		}
	}
	return false
}

// SortKey selects the dashboard sort order.
type SortKey string

const (
	SortCreatedDesc SortKey = "created_desc"
	SortCreatedAsc  SortKey = "created_asc"
	SortStatus      SortKey = "status"
)

// statusRank orders UI states for the status sort: open work first.
var statusRank = map[tickets.Status]int{
	tickets.StatusPending:   0,
	tickets.StatusApproved:  1,
	tickets.StatusCompleted: 2,
}

// Sort orders the list in place. Unknown keys fall back to newest-first.
// The sort is stable so equal rows keep their relative order across
// re-renders.
func Sort(list []tickets.Ticket, key SortKey) {
	switch key {
	case SortCreatedAsc:
		sort.SliceStable(list, func(i, j int) bool {
			return list[i].CreatedAt.Before(list[j].CreatedAt)
		})
	case SortStatus:
		sort.SliceStable(list, func(i, j int) bool {
			return statusRank[list[i].UIStatus()] < statusRank[list[j].UIStatus()]
		})
	default:
		sort.SliceStable(list, func(i, j int) bool {
			return list[i].CreatedAt.After(list[j].CreatedAt)
		})
	}
}
