package services

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/General-creator/biz-automation-pilot-sub000/pkg/apperrors"
	"github.com/General-creator/biz-automation-pilot-sub000/pkg/models"
)

// mockAutomationRepository is an in-memory AutomationRepository for unit tests.
type mockAutomationRepository struct {
	automations map[uuid.UUID]*models.Automation

	findOrCreateCalls int
	incrementRuns     int
	incrementFailures int
	touchedLastRun    bool
}

func newMockAutomationRepository() *mockAutomationRepository {
	return &mockAutomationRepository{automations: make(map[uuid.UUID]*models.Automation)}
}

func (m *mockAutomationRepository) FindOrCreate(ctx context.Context, userID uuid.UUID, name, platform string) (*models.Automation, bool, error) {
	m.findOrCreateCalls++
	for _, automation := range m.automations {
		if automation.UserID == userID && automation.Name == name {
			return automation, false, nil
		}
	}
	automation := &models.Automation{
		ID:       uuid.New(),
		UserID:   userID,
		Name:     name,
		Platform: platform,
		Status:   models.AutomationActive,
	}
	m.automations[automation.ID] = automation
	return automation, true, nil
}

func (m *mockAutomationRepository) GetForUser(ctx context.Context, id, userID uuid.UUID) (*models.Automation, error) {
	automation, ok := m.automations[id]
	if !ok || automation.UserID != userID {
		return nil, apperrors.ErrNotFound
	}
	return automation, nil
}

func (m *mockAutomationRepository) ListByUserAndPlatform(ctx context.Context, userID uuid.UUID, platform string) ([]*models.Automation, error) {
	var out []*models.Automation
	for _, automation := range m.automations {
		if automation.UserID == userID && automation.Platform == platform {
			out = append(out, automation)
		}
	}
	return out, nil
}

func (m *mockAutomationRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.Automation, error) {
	var out []*models.Automation
	for _, automation := range m.automations {
		if automation.UserID == userID {
			out = append(out, automation)
		}
	}
	return out, nil
}

func (m *mockAutomationRepository) TouchLastRun(ctx context.Context, id uuid.UUID, lastRun time.Time) error {
	automation, ok := m.automations[id]
	if !ok {
		return apperrors.ErrNotFound
	}
	automation.LastRun = &lastRun
	m.touchedLastRun = true
	return nil
}

func (m *mockAutomationRepository) IncrementRuns(ctx context.Context, id uuid.UUID) error {
	m.automations[id].RunsToday++
	m.incrementRuns++
	return nil
}

func (m *mockAutomationRepository) IncrementFailures(ctx context.Context, id uuid.UUID) error {
	m.automations[id].FailedRuns++
	m.incrementFailures++
	return nil
}

// mockActivityRepository is an in-memory ActivityRepository for unit tests.
type mockActivityRepository struct {
	activities []*models.Activity
	insertErr  error
}

func (m *mockActivityRepository) Insert(ctx context.Context, activity *models.Activity) error {
	if m.insertErr != nil {
		return m.insertErr
	}
	if activity.ID == uuid.Nil {
		activity.ID = uuid.New()
	}
	m.activities = append(m.activities, activity)
	return nil
}

func (m *mockActivityRepository) ListRecentByAutomation(ctx context.Context, automationID, userID uuid.UUID, limit int) ([]*models.Activity, error) {
	var out []*models.Activity
	for _, activity := range m.activities {
		if activity.AutomationID == automationID && activity.UserID == userID {
			out = append(out, activity)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

// mockIntegrationRepository is an in-memory IntegrationRepository for unit tests.
type mockIntegrationRepository struct {
	integrations map[uuid.UUID]*models.Integration
	createErrs   []error
	createCalls  int
}

func newMockIntegrationRepository() *mockIntegrationRepository {
	return &mockIntegrationRepository{integrations: make(map[uuid.UUID]*models.Integration)}
}

func (m *mockIntegrationRepository) Create(ctx context.Context, integration *models.Integration) error {
	m.createCalls++
	if len(m.createErrs) > 0 {
		err := m.createErrs[0]
		m.createErrs = m.createErrs[1:]
		if err != nil {
			return err
		}
	}
	if integration.ID == uuid.Nil {
		integration.ID = uuid.New()
	}
	m.integrations[integration.ID] = integration
	return nil
}

func (m *mockIntegrationRepository) Get(ctx context.Context, id uuid.UUID) (*models.Integration, error) {
	integration, ok := m.integrations[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return integration, nil
}

func (m *mockIntegrationRepository) GetByAPIKey(ctx context.Context, apiKey string) (*models.Integration, error) {
	for _, integration := range m.integrations {
		if integration.APIKey == apiKey {
			return integration, nil
		}
	}
	return nil, apperrors.ErrNotFound
}

func (m *mockIntegrationRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.Integration, error) {
	var out []*models.Integration
	for _, integration := range m.integrations {
		if integration.UserID == userID {
			out = append(out, integration)
		}
	}
	return out, nil
}

func (m *mockIntegrationRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	integration, ok := m.integrations[id]
	if !ok {
		return apperrors.ErrNotFound
	}
	integration.Status = status
	return nil
}

func (m *mockIntegrationRepository) UpdateAPIKey(ctx context.Context, id uuid.UUID, apiKey string) error {
	integration, ok := m.integrations[id]
	if !ok {
		return apperrors.ErrNotFound
	}
	integration.APIKey = apiKey
	return nil
}

// mockVerifier records cache invalidations.
type mockVerifier struct {
	invalidated []string
}

func (m *mockVerifier) VerifyKey(ctx context.Context, key string) (*models.Identity, error) {
	return nil, apperrors.ErrInvalidKey
}

func (m *mockVerifier) Invalidate(ctx context.Context, key string) {
	m.invalidated = append(m.invalidated, key)
}
