package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/General-creator/biz-automation-pilot-sub000/pkg/apperrors"
	"github.com/General-creator/biz-automation-pilot-sub000/pkg/database"
	"github.com/General-creator/biz-automation-pilot-sub000/pkg/models"
)

// AutomationRepository defines the interface for automation data access.
type AutomationRepository interface {
	// FindOrCreate resolves an automation by (userID, name), creating it if
	// absent. Returns the automation and whether it was created. Safe under
	// concurrent first runs: the (user_id, name) unique constraint plus
	// insert-on-conflict-do-nothing-then-reselect guarantees convergence on
	// a single row.
	FindOrCreate(ctx context.Context, userID uuid.UUID, name, platform string) (*models.Automation, bool, error)

	// GetForUser fetches an automation by id scoped to its owner. The
	// ownership predicate (id AND user_id) must never be relaxed to a bare
	// id lookup; this is a multi-tenant resource.
	GetForUser(ctx context.Context, id, userID uuid.UUID) (*models.Automation, error)

	ListByUserAndPlatform(ctx context.Context, userID uuid.UUID, platform string) ([]*models.Automation, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.Automation, error)

	// TouchLastRun stamps last_run on the automation.
	TouchLastRun(ctx context.Context, id uuid.UUID, lastRun time.Time) error

	// IncrementRuns bumps runs_today through the increment_runs SQL
	// function, an atomic server-side increment. Never read-modify-write
	// counters from application code.
	IncrementRuns(ctx context.Context, id uuid.UUID) error

	// IncrementFailures bumps failed_runs through increment_failures.
	IncrementFailures(ctx context.Context, id uuid.UUID) error
}

// automationRepository implements AutomationRepository using PostgreSQL.
type automationRepository struct{}

// NewAutomationRepository creates a new automation repository.
func NewAutomationRepository() AutomationRepository {
	return &automationRepository{}
}

const automationColumns = `id, user_id, name, platform, status, last_run, next_run, runs_today, failed_runs, created_at, updated_at`

func (r *automationRepository) FindOrCreate(ctx context.Context, userID uuid.UUID, name, platform string) (*models.Automation, bool, error) {
	scope, ok := database.GetUserScope(ctx)
	if !ok {
		return nil, false, fmt.Errorf("no user scope in context")
	}

	insert := `
		INSERT INTO orbit_automations (id, user_id, name, platform, status, runs_today, failed_runs, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, 0, 0, now(), now())
		ON CONFLICT (user_id, name) DO NOTHING
		RETURNING ` + automationColumns

	automation, err := scanAutomation(scope.Q().QueryRow(ctx, insert,
		uuid.New(), userID, name, platform, models.AutomationActive))
	if err == nil {
		return automation, true, nil
	}
	if err != pgx.ErrNoRows {
		return nil, false, fmt.Errorf("failed to create automation: %w", err)
	}

	// Conflict: the row already exists (possibly created by a concurrent
	// request a moment ago). Reselect it.
	reselect := `
		SELECT ` + automationColumns + `
		FROM orbit_automations
		WHERE user_id = $1 AND name = $2`

	automation, err = scanAutomation(scope.Q().QueryRow(ctx, reselect, userID, name))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, false, apperrors.ErrNotFound
		}
		return nil, false, fmt.Errorf("failed to reselect automation: %w", err)
	}

	return automation, false, nil
}

func (r *automationRepository) GetForUser(ctx context.Context, id, userID uuid.UUID) (*models.Automation, error) {
	scope, ok := database.GetUserScope(ctx)
	if !ok {
		return nil, fmt.Errorf("no user scope in context")
	}

	query := `
		SELECT ` + automationColumns + `
		FROM orbit_automations
		WHERE id = $1 AND user_id = $2`

	automation, err := scanAutomation(scope.Q().QueryRow(ctx, query, id, userID))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get automation: %w", err)
	}

	return automation, nil
}

func (r *automationRepository) ListByUserAndPlatform(ctx context.Context, userID uuid.UUID, platform string) ([]*models.Automation, error) {
	query := `
		SELECT ` + automationColumns + `
		FROM orbit_automations
		WHERE user_id = $1 AND platform = $2
		ORDER BY created_at DESC`

	return r.list(ctx, query, userID, platform)
}

func (r *automationRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.Automation, error) {
	query := `
		SELECT ` + automationColumns + `
		FROM orbit_automations
		WHERE user_id = $1
		ORDER BY created_at DESC`

	return r.list(ctx, query, userID)
}

func (r *automationRepository) list(ctx context.Context, query string, args ...any) ([]*models.Automation, error) {
	scope, ok := database.GetUserScope(ctx)
	if !ok {
		return nil, fmt.Errorf("no user scope in context")
	}

	rows, err := scope.Q().Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list automations: %w", err)
	}
	defer rows.Close()

	var automations []*models.Automation
	for rows.Next() {
		automation, err := scanAutomation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan automation: %w", err)
		}
		automations = append(automations, automation)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list automations: %w", err)
	}

	return automations, nil
}

func (r *automationRepository) TouchLastRun(ctx context.Context, id uuid.UUID, lastRun time.Time) error {
	scope, ok := database.GetUserScope(ctx)
	if !ok {
		return fmt.Errorf("no user scope in context")
	}

	query := `
		UPDATE orbit_automations
		SET last_run = $2, updated_at = now()
		WHERE id = $1`

	result, err := scope.Q().Exec(ctx, query, id, lastRun)
	if err != nil {
		return fmt.Errorf("failed to update last_run: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}

	return nil
}

func (r *automationRepository) IncrementRuns(ctx context.Context, id uuid.UUID) error {
	scope, ok := database.GetUserScope(ctx)
	if !ok {
		return fmt.Errorf("no user scope in context")
	}

	if _, err := scope.Q().Exec(ctx, `SELECT increment_runs($1)`, id); err != nil {
		return fmt.Errorf("failed to increment runs: %w", err)
	}
	return nil
}

func (r *automationRepository) IncrementFailures(ctx context.Context, id uuid.UUID) error {
	scope, ok := database.GetUserScope(ctx)
	if !ok {
		return fmt.Errorf("no user scope in context")
	}

	if _, err := scope.Q().Exec(ctx, `SELECT increment_failures($1)`, id); err != nil {
		return fmt.Errorf("failed to increment failures: %w", err)
	}
	return nil
}

// scanAutomation scans one automation row.
func scanAutomation(row pgx.Row) (*models.Automation, error) {
	var automation models.Automation
	err := row.Scan(
		&automation.ID,
		&automation.UserID,
		&automation.Name,
		&automation.Platform,
		&automation.Status,
		&automation.LastRun,
		&automation.NextRun,
		&automation.RunsToday,
		&automation.FailedRuns,
		&automation.CreatedAt,
		&automation.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &automation, nil
}

// Ensure automationRepository implements AutomationRepository at compile time.
var _ AutomationRepository = (*automationRepository)(nil)
