package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/General-creator/biz-automation-pilot-sub000/pkg/apperrors"
	"github.com/General-creator/biz-automation-pilot-sub000/pkg/database"
	"github.com/General-creator/biz-automation-pilot-sub000/pkg/models"
	"github.com/General-creator/biz-automation-pilot-sub000/pkg/repositories"
)

// RunReport is one ingested run outcome from an external platform.
type RunReport struct {
	AutomationName string `json:"automationName"`
	Status         string `json:"status"`
	Timestamp      string `json:"timestamp,omitempty"` // RFC 3339; defaults to ingestion time
	Message        string `json:"message,omitempty"`
}

// RunReceipt identifies the rows produced by a logged run.
type RunReceipt struct {
	ActivityID   uuid.UUID `json:"activityId"`
	AutomationID uuid.UUID `json:"automationId"`
	Timestamp    time.Time `json:"timestamp"`
}

// RunLogger records ingested runs: it resolves or creates the named
// automation, appends an activity row and maintains the run counters.
type RunLogger interface {
	LogRun(ctx context.Context, identity *models.Identity, report RunReport) (*RunReceipt, error)
}

type runLogger struct {
	platformTag string
	automations repositories.AutomationRepository
	activities  repositories.ActivityRepository
	logger      *zap.Logger
}

// NewRunLogger creates a run logger. platformTag is stamped on automations
// created by ingestion.
func NewRunLogger(
	platformTag string,
	automations repositories.AutomationRepository,
	activities repositories.ActivityRepository,
	logger *zap.Logger,
) RunLogger {
	return &runLogger{
		platformTag: platformTag,
		automations: automations,
		activities:  activities,
		logger:      logger,
	}
}

// LogRun validates the report and applies it in a single transaction:
// automation find-or-create, activity insert, last_run stamp and counter
// increments all commit or roll back together. There is no deduplication;
// identical reports produce distinct activities and double-counted runs.
func (s *runLogger) LogRun(ctx context.Context, identity *models.Identity, report RunReport) (*RunReceipt, error) {
	if report.AutomationName == "" || report.Status == "" {
		return nil, apperrors.ErrMissingFields
	}

	runAt := time.Now()
	if report.Timestamp != "" {
		parsed, err := time.Parse(time.RFC3339, report.Timestamp)
		if err != nil {
			return nil, apperrors.ErrBadTimestamp
		}
		runAt = parsed
	}

	scope, ok := database.GetUserScope(ctx)
	if !ok {
		return nil, fmt.Errorf("no user scope in context")
	}

	var receipt *RunReceipt
	err := scope.WithTx(ctx, func(ctx context.Context) error {
		automation, created, err := s.automations.FindOrCreate(ctx, identity.UserID, report.AutomationName, s.platformTag)
		if err != nil {
			return err
		}
		if created {
			s.logger.Info("Created automation from ingested run",
				zap.String("automation_id", automation.ID.String()),
				zap.String("name", automation.Name))
		}

		activity := &models.Activity{
			AutomationID:   automation.ID,
			UserID:         identity.UserID,
			AutomationName: automation.Name,
			Status:         report.Status,
			Message:        report.Message,
			Platform:       s.platformTag,
			Timestamp:      runAt,
		}
		if err := s.activities.Insert(ctx, activity); err != nil {
			return err
		}

		if err := s.automations.TouchLastRun(ctx, automation.ID, time.Now()); err != nil {
			return err
		}
		if err := s.automations.IncrementRuns(ctx, automation.ID); err != nil {
			return err
		}
		if models.IsFailure(report.Status) {
			if err := s.automations.IncrementFailures(ctx, automation.ID); err != nil {
				return err
			}
		}

		receipt = &RunReceipt{
			ActivityID:   activity.ID,
			AutomationID: automation.ID,
			Timestamp:    runAt,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return receipt, nil
}

// Ensure runLogger implements RunLogger at compile time.
var _ RunLogger = (*runLogger)(nil)
