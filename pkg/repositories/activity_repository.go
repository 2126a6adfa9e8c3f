package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/General-creator/biz-automation-pilot-sub000/pkg/database"
	"github.com/General-creator/biz-automation-pilot-sub000/pkg/models"
)

// ActivityRepository defines the interface for activity log data access.
// Activities are append-only; there is no update or delete.
type ActivityRepository interface {
	Insert(ctx context.Context, activity *models.Activity) error
	ListRecentByAutomation(ctx context.Context, automationID, userID uuid.UUID, limit int) ([]*models.Activity, error)
}

// activityRepository implements ActivityRepository using PostgreSQL.
type activityRepository struct{}

// NewActivityRepository creates a new activity repository.
func NewActivityRepository() ActivityRepository {
	return &activityRepository{}
}

// Insert appends one activity row.
func (r *activityRepository) Insert(ctx context.Context, activity *models.Activity) error {
	scope, ok := database.GetUserScope(ctx)
	if !ok {
		return fmt.Errorf("no user scope in context")
	}

	if activity.ID == uuid.Nil {
		activity.ID = uuid.New()
	}
	activity.CreatedAt = time.Now()

	query := `
		INSERT INTO orbit_activities (id, automation_id, user_id, automation_name, status, message, platform, timestamp, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := scope.Q().Exec(ctx, query,
		activity.ID,
		activity.AutomationID,
		activity.UserID,
		activity.AutomationName,
		activity.Status,
		activity.Message,
		activity.Platform,
		activity.Timestamp,
		activity.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert activity: %w", err)
	}

	return nil
}

// ListRecentByAutomation returns the most recent activities for an
// automation, newest first. The user_id predicate keeps the query
// tenant-scoped even without RLS.
func (r *activityRepository) ListRecentByAutomation(ctx context.Context, automationID, userID uuid.UUID, limit int) ([]*models.Activity, error) {
	scope, ok := database.GetUserScope(ctx)
	if !ok {
		return nil, fmt.Errorf("no user scope in context")
	}

	query := `
		SELECT id, automation_id, user_id, automation_name, status, message, platform, timestamp, created_at
		FROM orbit_activities
		WHERE automation_id = $1 AND user_id = $2
		ORDER BY timestamp DESC
		LIMIT $3`

	rows, err := scope.Q().Query(ctx, query, automationID, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list activities: %w", err)
	}
	defer rows.Close()

	var activities []*models.Activity
	for rows.Next() {
		var activity models.Activity
		err := rows.Scan(
			&activity.ID,
			&activity.AutomationID,
			&activity.UserID,
			&activity.AutomationName,
			&activity.Status,
			&activity.Message,
			&activity.Platform,
			&activity.Timestamp,
			&activity.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan activity: %w", err)
		}
		activities = append(activities, &activity)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list activities: %w", err)
	}

	return activities, nil
}

// Ensure activityRepository implements ActivityRepository at compile time.
var _ ActivityRepository = (*activityRepository)(nil)
