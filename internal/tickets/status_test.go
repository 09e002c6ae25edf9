package tickets

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMapBackendStatus(t *testing.T) {
	tests := []struct {
		raw  string
		want Status
	}{
		{"pending", StatusPending},
		{"in_review", StatusPending},
		{"needs_info", StatusPending},
		{"rejected", StatusPending},
		{"approved", StatusApproved},
		{"approve", StatusApproved},
		{"APPROVED", StatusApproved},
		{"  completed  ", StatusCompleted},
		{"done", StatusCompleted},
		{"deployed", StatusCompleted},
		{"implemented", StatusCompleted},
		{"", StatusPending},
		{"some-future-state", StatusPending},
	}
	for _, tt := range tests {
		t.Run("maps "+tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.want, MapBackendStatus(tt.raw))
		})
	}
}

func TestTicketUIStatus(t *testing.T) {
	assert.Equal(t, StatusApproved, Ticket{Status: "approve"}.UIStatus())
	assert.Equal(t, StatusPending, Ticket{}.UIStatus())
}
