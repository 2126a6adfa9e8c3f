package services

import (
	"context"

	"github.com/google/uuid"

	"github.com/General-creator/biz-automation-pilot-sub000/pkg/models"
	"github.com/General-creator/biz-automation-pilot-sub000/pkg/repositories"
)

// recentActivityLimit is how many activity rows a status read returns.
const recentActivityLimit = 10

// AutomationStatus is an automation together with its most recent activity.
type AutomationStatus struct {
	Automation *models.Automation `json:"automation"`
	Activities []*models.Activity `json:"activities"`
}

// AutomationService provides read-only projections over automations.
type AutomationService interface {
	// ListIngested returns the caller's automations on the ingest platform.
	ListIngested(ctx context.Context, identity *models.Identity) ([]*models.Automation, error)

	// ListAll returns the caller's automations across all platforms.
	ListAll(ctx context.Context, identity *models.Identity) ([]*models.Automation, error)

	// Status returns an automation owned by the caller plus its recent
	// activity, newest first. Automations owned by other users are
	// indistinguishable from missing ones (apperrors.ErrNotFound).
	Status(ctx context.Context, identity *models.Identity, automationID uuid.UUID) (*AutomationStatus, error)
}

type automationService struct {
	platformTag string
	automations repositories.AutomationRepository
	activities  repositories.ActivityRepository
}

// NewAutomationService creates a new automation read service.
func NewAutomationService(
	platformTag string,
	automations repositories.AutomationRepository,
	activities repositories.ActivityRepository,
) AutomationService {
	return &automationService{
		platformTag: platformTag,
		automations: automations,
		activities:  activities,
	}
}

func (s *automationService) ListIngested(ctx context.Context, identity *models.Identity) ([]*models.Automation, error) {
	return s.automations.ListByUserAndPlatform(ctx, identity.UserID, s.platformTag)
}

func (s *automationService) ListAll(ctx context.Context, identity *models.Identity) ([]*models.Automation, error) {
	return s.automations.ListByUser(ctx, identity.UserID)
}

func (s *automationService) Status(ctx context.Context, identity *models.Identity, automationID uuid.UUID) (*AutomationStatus, error) {
	automation, err := s.automations.GetForUser(ctx, automationID, identity.UserID)
	if err != nil {
		return nil, err
	}

	activities, err := s.activities.ListRecentByAutomation(ctx, automationID, identity.UserID, recentActivityLimit)
	if err != nil {
		return nil, err
	}

	return &AutomationStatus{
		Automation: automation,
		Activities: activities,
	}, nil
}

// Ensure automationService implements AutomationService at compile time.
var _ AutomationService = (*automationService)(nil)
