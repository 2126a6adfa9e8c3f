package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Activity is one immutable log entry representing a single run of an
// automation. Rows are append-only and never mutated after insert.
type Activity struct {
	ID             uuid.UUID `json:"id"`
	AutomationID   uuid.UUID `json:"automation_id"`
	UserID         uuid.UUID `json:"user_id"`
	AutomationName string    `json:"automation_name"`
	Status         string    `json:"status"`
	Message        string    `json:"message"`
	Platform       string    `json:"platform"`
	Timestamp      time.Time `json:"timestamp"`
	CreatedAt      time.Time `json:"created_at"`
}

// IsFailure reports whether a run status counts against failed_runs.
// The comparison is case-insensitive: external platforms report "error",
// "Error", "FAILED" and similar variants.
func IsFailure(status string) bool {
	switch strings.ToLower(status) {
	case "error", "failed":
		return true
	}
	return false
}
