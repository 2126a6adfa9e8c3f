package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/General-creator/biz-automation-pilot-sub000/pkg/apperrors"
	"github.com/General-creator/biz-automation-pilot-sub000/pkg/audit"
	"github.com/General-creator/biz-automation-pilot-sub000/pkg/models"
)

// mockIntegrationService is a mock for services.IntegrationService.
type mockIntegrationService struct {
	integration  *models.Integration
	integrations []*models.Integration
	key          string
	createErr    error
	listErr      error
	keyErr       error
	regenErr     error
	statusErr    error

	lastStatus string
}

func (m *mockIntegrationService) Create(ctx context.Context, identity *models.Identity, name, integrationType string) (*models.Integration, error) {
	if m.createErr != nil {
		return nil, m.createErr
	}
	return m.integration, nil
}

func (m *mockIntegrationService) List(ctx context.Context, identity *models.Identity) ([]*models.Integration, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	return m.integrations, nil
}

func (m *mockIntegrationService) GetKey(ctx context.Context, identity *models.Identity, id uuid.UUID) (string, error) {
	if m.keyErr != nil {
		return "", m.keyErr
	}
	return m.key, nil
}

func (m *mockIntegrationService) RegenerateKey(ctx context.Context, identity *models.Identity, id uuid.UUID) (string, error) {
	if m.regenErr != nil {
		return "", m.regenErr
	}
	return m.key, nil
}

func (m *mockIntegrationService) SetStatus(ctx context.Context, identity *models.Identity, id uuid.UUID, status string) error {
	m.lastStatus = status
	return m.statusErr
}

func TestIntegrationsHandler_Create_ReturnsPlaintextKey(t *testing.T) {
	identity := &models.Identity{UserID: uuid.New()}
	testKey := "abcdef1234567890abcdef1234567890abcdef1234567890abcdef1234567890"
	mockService := &mockIntegrationService{
		integration: &models.Integration{
			ID:     uuid.New(),
			UserID: identity.UserID,
			Name:   "Zapier",
			Type:   "zapier",
			APIKey: testKey,
			Status: models.IntegrationConnected,
		},
	}
	handler := NewIntegrationsHandler(mockService, &mockAutomationService{}, audit.NewSecurityAuditor(zap.NewNop()), zap.NewNop())

	body := `{"name":"Zapier","type":"zapier"}`
	req := identityRequest(http.MethodPost, "/api/integrations", body, identity)

	rec := httptest.NewRecorder()
	handler.Create(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	resp := decodeEnvelope(t, rec)
	assert.True(t, resp.Success)

	data, ok := resp.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, testKey, data["api_key"])
	assert.Equal(t, "connected", data["status"])
}

func TestIntegrationsHandler_Create_MissingFields(t *testing.T) {
	identity := &models.Identity{UserID: uuid.New()}
	handler := NewIntegrationsHandler(&mockIntegrationService{}, &mockAutomationService{}, audit.NewSecurityAuditor(zap.NewNop()), zap.NewNop())

	req := identityRequest(http.MethodPost, "/api/integrations", `{"name":"Zapier"}`, identity)

	rec := httptest.NewRecorder()
	handler.Create(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decodeEnvelope(t, rec)
	assert.False(t, resp.Success)
	assert.Equal(t, "Missing required fields: name and type", resp.Message)
}

func TestIntegrationsHandler_List_MasksKeys(t *testing.T) {
	identity := &models.Identity{UserID: uuid.New()}
	mockService := &mockIntegrationService{
		integrations: []*models.Integration{
			{
				ID:        uuid.New(),
				UserID:    identity.UserID,
				Name:      "Zapier",
				Type:      "zapier",
				APIKey:    "super-secret-key",
				Status:    models.IntegrationConnected,
				CreatedAt: time.Now(),
			},
		},
	}
	handler := NewIntegrationsHandler(mockService, &mockAutomationService{}, audit.NewSecurityAuditor(zap.NewNop()), zap.NewNop())

	req := identityRequest(http.MethodGet, "/api/integrations", "", identity)

	rec := httptest.NewRecorder()
	handler.List(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "super-secret-key")

	resp := decodeEnvelope(t, rec)
	data, ok := resp.Data.([]interface{})
	require.True(t, ok)
	require.Len(t, data, 1)

	view, ok := data[0].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "****", view["api_key"])
}

func TestIntegrationsHandler_GetKey_MaskedByDefault(t *testing.T) {
	identity := &models.Identity{UserID: uuid.New()}
	mockService := &mockIntegrationService{key: "super-secret-key"}
	handler := NewIntegrationsHandler(mockService, &mockAutomationService{}, audit.NewSecurityAuditor(zap.NewNop()), zap.NewNop())

	integrationID := uuid.New()
	req := identityRequest(http.MethodGet, "/api/integrations/"+integrationID.String()+"/key", "", identity)
	req.SetPathValue("iid", integrationID.String())

	rec := httptest.NewRecorder()
	handler.GetKey(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	resp := decodeEnvelope(t, rec)
	data, ok := resp.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "****", data["key"])
	assert.True(t, data["masked"].(bool))
}

func TestIntegrationsHandler_GetKey_Revealed(t *testing.T) {
	identity := &models.Identity{UserID: uuid.New()}
	mockService := &mockIntegrationService{key: "super-secret-key"}
	handler := NewIntegrationsHandler(mockService, &mockAutomationService{}, audit.NewSecurityAuditor(zap.NewNop()), zap.NewNop())

	integrationID := uuid.New()
	req := identityRequest(http.MethodGet, "/api/integrations/"+integrationID.String()+"/key?reveal=true", "", identity)
	req.SetPathValue("iid", integrationID.String())

	rec := httptest.NewRecorder()
	handler.GetKey(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	resp := decodeEnvelope(t, rec)
	data, ok := resp.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "super-secret-key", data["key"])
	assert.False(t, data["masked"].(bool))
}

func TestIntegrationsHandler_GetKey_NotFound(t *testing.T) {
	identity := &models.Identity{UserID: uuid.New()}
	mockService := &mockIntegrationService{keyErr: apperrors.ErrNotFound}
	handler := NewIntegrationsHandler(mockService, &mockAutomationService{}, audit.NewSecurityAuditor(zap.NewNop()), zap.NewNop())

	integrationID := uuid.New()
	req := identityRequest(http.MethodGet, "/api/integrations/"+integrationID.String()+"/key", "", identity)
	req.SetPathValue("iid", integrationID.String())

	rec := httptest.NewRecorder()
	handler.GetKey(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestIntegrationsHandler_RegenerateKey(t *testing.T) {
	identity := &models.Identity{UserID: uuid.New()}
	mockService := &mockIntegrationService{key: "fresh-key"}
	handler := NewIntegrationsHandler(mockService, &mockAutomationService{}, audit.NewSecurityAuditor(zap.NewNop()), zap.NewNop())

	integrationID := uuid.New()
	req := identityRequest(http.MethodPost, "/api/integrations/"+integrationID.String()+"/key/regenerate", "", identity)
	req.SetPathValue("iid", integrationID.String())

	rec := httptest.NewRecorder()
	handler.RegenerateKey(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	resp := decodeEnvelope(t, rec)
	data, ok := resp.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "fresh-key", data["key"])
}

func TestIntegrationsHandler_Update_Status(t *testing.T) {
	identity := &models.Identity{UserID: uuid.New()}
	mockService := &mockIntegrationService{}
	handler := NewIntegrationsHandler(mockService, &mockAutomationService{}, audit.NewSecurityAuditor(zap.NewNop()), zap.NewNop())

	integrationID := uuid.New()
	req := identityRequest(http.MethodPatch, "/api/integrations/"+integrationID.String(),
		`{"status":"disconnected"}`, identity)
	req.SetPathValue("iid", integrationID.String())

	rec := httptest.NewRecorder()
	handler.Update(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	resp := decodeEnvelope(t, rec)
	assert.True(t, resp.Success)
	assert.Equal(t, "disconnected", mockService.lastStatus)
}

func TestIntegrationsHandler_Update_InvalidStatus(t *testing.T) {
	identity := &models.Identity{UserID: uuid.New()}
	mockService := &mockIntegrationService{statusErr: apperrors.ErrInvalidStatus}
	handler := NewIntegrationsHandler(mockService, &mockAutomationService{}, audit.NewSecurityAuditor(zap.NewNop()), zap.NewNop())

	integrationID := uuid.New()
	req := identityRequest(http.MethodPatch, "/api/integrations/"+integrationID.String(),
		`{"status":"paused"}`, identity)
	req.SetPathValue("iid", integrationID.String())

	rec := httptest.NewRecorder()
	handler.Update(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decodeEnvelope(t, rec)
	assert.Equal(t, "Status must be connected or disconnected", resp.Message)
}

func TestIntegrationsHandler_ListAutomations_EmptyIsArray(t *testing.T) {
	identity := &models.Identity{UserID: uuid.New()}
	handler := NewIntegrationsHandler(&mockIntegrationService{}, &mockAutomationService{}, audit.NewSecurityAuditor(zap.NewNop()), zap.NewNop())

	req := identityRequest(http.MethodGet, "/api/automations", "", identity)

	rec := httptest.NewRecorder()
	handler.ListAutomations(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	// The dashboard expects [] rather than null for no automations
	var raw map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &raw))
	assert.JSONEq(t, `[]`, string(raw["data"]))
}
