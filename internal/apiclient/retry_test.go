package apiclient

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestShouldRetry(t *testing.T) {
	const max = 3

	tests := []struct {
		name    string
		attempt int
		class   Class
		want    bool
	}{
		{"server failure retries", 1, ClassServer, true},
		{"network failure retries", 1, ClassNetwork, true},
		{"timeout retries", 2, ClassTimeout, true},
		{"client failure never retries", 1, ClassClient, false},
		{"auth failure never retries", 1, ClassAuth, false},
		{"no failure never retries", 1, ClassNone, false},
		{"ceiling reached", 3, ClassServer, false},
		{"past ceiling", 4, ClassServer, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ShouldRetry(tt.attempt, max, tt.class))
		})
	}
}

func TestScheduleIncreases(t *testing.T) {
	schedule := NewDeterministicSchedule()

	first := schedule.Next()
	second := schedule.Next()
	third := schedule.Next()

	assert.Greater(t, second, first)
	assert.Greater(t, third, second)
}

func TestScheduleCapped(t *testing.T) {
	schedule := NewDeterministicSchedule()

	var last time.Duration
	for i := 0; i < 20; i++ {
		last = schedule.Next()
	}
	assert.LessOrEqual(t, last, 5*time.Second)
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name   string
		status int
		err    error
		want   Class
	}{
		{"2xx", http.StatusOK, nil, ClassNone},
		{"created", http.StatusCreated, nil, ClassNone},
		{"401", http.StatusUnauthorized, nil, ClassAuth},
		{"400", http.StatusBadRequest, nil, ClassClient},
		{"404", http.StatusNotFound, nil, ClassClient},
		{"500", http.StatusInternalServerError, nil, ClassServer},
		{"503", http.StatusServiceUnavailable, nil, ClassServer},
		{"deadline", 0, context.DeadlineExceeded, ClassTimeout},
		{"timeout sentinel", 0, ErrTimeout, ClassTimeout},
		{"other transport error", 0, errors.New("connection refused"), ClassNetwork},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.status, tt.err))
		})
	}
}
