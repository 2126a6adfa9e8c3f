package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/General-creator/biz-automation-pilot-sub000/pkg/apperrors"
	"github.com/General-creator/biz-automation-pilot-sub000/pkg/models"
)

func TestAutomationService_ListIngested_FiltersByPlatform(t *testing.T) {
	userID := uuid.New()
	automations := newMockAutomationRepository()

	ingested := &models.Automation{ID: uuid.New(), UserID: userID, Name: "Invoice Sync", Platform: "orbit-api"}
	manual := &models.Automation{ID: uuid.New(), UserID: userID, Name: "Manual Import", Platform: "internal"}
	automations.automations[ingested.ID] = ingested
	automations.automations[manual.ID] = manual

	service := NewAutomationService("orbit-api", automations, &mockActivityRepository{})

	got, err := service.ListIngested(context.Background(), &models.Identity{UserID: userID})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Invoice Sync", got[0].Name)

	all, err := service.ListAll(context.Background(), &models.Identity{UserID: userID})
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestAutomationService_Status(t *testing.T) {
	userID := uuid.New()
	automations := newMockAutomationRepository()
	activities := &mockActivityRepository{}

	automation := &models.Automation{ID: uuid.New(), UserID: userID, Name: "Invoice Sync", Platform: "orbit-api"}
	automations.automations[automation.ID] = automation

	for i := 0; i < 3; i++ {
		activities.activities = append(activities.activities, &models.Activity{
			ID:           uuid.New(),
			AutomationID: automation.ID,
			UserID:       userID,
			Status:       "success",
			Timestamp:    time.Now(),
		})
	}

	service := NewAutomationService("orbit-api", automations, activities)

	status, err := service.Status(context.Background(), &models.Identity{UserID: userID}, automation.ID)
	require.NoError(t, err)
	assert.Equal(t, automation.ID, status.Automation.ID)
	assert.Len(t, status.Activities, 3)
}

func TestAutomationService_Status_OtherUsersAutomation(t *testing.T) {
	automations := newMockAutomationRepository()
	automation := &models.Automation{ID: uuid.New(), UserID: uuid.New(), Name: "Invoice Sync"}
	automations.automations[automation.ID] = automation

	service := NewAutomationService("orbit-api", automations, &mockActivityRepository{})

	// A different caller must not be able to tell this automation exists
	_, err := service.Status(context.Background(), &models.Identity{UserID: uuid.New()}, automation.ID)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}
