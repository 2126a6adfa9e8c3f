package models

import (
	"time"

	"github.com/google/uuid"
)

// Automation status values.
const (
	AutomationActive = "active"
	AutomationPaused = "paused"
)

// Automation is a named, trackable workflow whose runs are logged.
// Identity for find-or-create purposes is the (UserID, Name) pair, which is
// backed by a unique constraint so concurrent first runs converge on one row.
type Automation struct {
	ID         uuid.UUID  `json:"id"`
	UserID     uuid.UUID  `json:"user_id"`
	Name       string     `json:"name"`
	Platform   string     `json:"platform"`
	Status     string     `json:"status"`
	LastRun    *time.Time `json:"last_run"`
	NextRun    *time.Time `json:"next_run"`
	RunsToday  int        `json:"runs_today"`
	FailedRuns int        `json:"failed_runs"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}
