package handlers

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/General-creator/biz-automation-pilot-sub000/pkg/audit"
	"github.com/General-creator/biz-automation-pilot-sub000/pkg/auth"
	"github.com/General-creator/biz-automation-pilot-sub000/pkg/models"
	"github.com/General-creator/biz-automation-pilot-sub000/pkg/services"
)

// maskedKey replaces API keys in responses unless the caller asks to reveal.
const maskedKey = "****"

// CreateIntegrationRequest is the body for POST /api/integrations.
type CreateIntegrationRequest struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// CreateIntegrationResponse carries the plaintext key exactly once, at
// creation time.
type CreateIntegrationResponse struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Type   string `json:"type"`
	Status string `json:"status"`
	APIKey string `json:"api_key"`
}

// IntegrationView is the list/read projection; the key is always masked.
type IntegrationView struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Type      string `json:"type"`
	Status    string `json:"status"`
	APIKey    string `json:"api_key"`
	CreatedAt string `json:"created_at"`
}

// GetKeyResponse is the response for GET /api/integrations/{iid}/key.
type GetKeyResponse struct {
	Key    string `json:"key"`    // Masked or full key depending on ?reveal=true
	Masked bool   `json:"masked"` // Whether key is masked
}

// RegenerateKeyResponse is the response for POST /api/integrations/{iid}/key/regenerate.
type RegenerateKeyResponse struct {
	Key string `json:"key"` // New unmasked key
}

// UpdateIntegrationRequest is the body for PATCH /api/integrations/{iid}.
type UpdateIntegrationRequest struct {
	Status string `json:"status"`
}

// IntegrationsHandler handles the JWT-authenticated dashboard API for
// managing integrations and reading automations.
type IntegrationsHandler struct {
	integrations services.IntegrationService
	automations  services.AutomationService
	auditor      *audit.SecurityAuditor
	logger       *zap.Logger
}

// NewIntegrationsHandler creates a new integrations handler.
func NewIntegrationsHandler(
	integrations services.IntegrationService,
	automations services.AutomationService,
	auditor *audit.SecurityAuditor,
	logger *zap.Logger,
) *IntegrationsHandler {
	return &IntegrationsHandler{
		integrations: integrations,
		automations:  automations,
		auditor:      auditor,
		logger:       logger,
	}
}

// RegisterRoutes registers the dashboard routes on the given mux.
func (h *IntegrationsHandler) RegisterRoutes(mux *http.ServeMux, authMiddleware *auth.Middleware, scopeMiddleware ScopeMiddleware) {
	mux.HandleFunc("POST /api/integrations",
		authMiddleware.RequireUser(scopeMiddleware(h.Create)))
	mux.HandleFunc("GET /api/integrations",
		authMiddleware.RequireUser(scopeMiddleware(h.List)))
	mux.HandleFunc("GET /api/integrations/{iid}/key",
		authMiddleware.RequireUser(scopeMiddleware(h.GetKey)))
	mux.HandleFunc("POST /api/integrations/{iid}/key/regenerate",
		authMiddleware.RequireUser(scopeMiddleware(h.RegenerateKey)))
	mux.HandleFunc("PATCH /api/integrations/{iid}",
		authMiddleware.RequireUser(scopeMiddleware(h.Update)))
	mux.HandleFunc("GET /api/automations",
		authMiddleware.RequireUser(scopeMiddleware(h.ListAutomations)))
}

// Create handles POST /api/integrations
// Registers a connected platform and issues its API key. The plaintext key
// appears in this response only; afterwards it is masked everywhere.
func (h *IntegrationsHandler) Create(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.GetIdentity(r.Context())
	if !ok {
		h.serverError(w, "Missing identity in context", nil)
		return
	}

	var req CreateIntegrationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.badRequest(w, "Invalid JSON body")
		return
	}
	if req.Name == "" || req.Type == "" {
		h.badRequest(w, "Missing required fields: name and type")
		return
	}

	integration, err := h.integrations.Create(r.Context(), identity, req.Name, req.Type)
	if err != nil {
		h.serverError(w, "Failed to create integration", err)
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{
		Success: true,
		Data: CreateIntegrationResponse{
			ID:     integration.ID.String(),
			Name:   integration.Name,
			Type:   integration.Type,
			Status: integration.Status,
			APIKey: integration.APIKey,
		},
	}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// List handles GET /api/integrations
func (h *IntegrationsHandler) List(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.GetIdentity(r.Context())
	if !ok {
		h.serverError(w, "Missing identity in context", nil)
		return
	}

	integrations, err := h.integrations.List(r.Context(), identity)
	if err != nil {
		h.serverError(w, "Failed to list integrations", err)
		return
	}

	views := make([]IntegrationView, 0, len(integrations))
	for _, integration := range integrations {
		views = append(views, IntegrationView{
			ID:        integration.ID.String(),
			Name:      integration.Name,
			Type:      integration.Type,
			Status:    integration.Status,
			APIKey:    maskedKey,
			CreatedAt: integration.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		})
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{
		Success: true,
		Data:    views,
	}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// GetKey handles GET /api/integrations/{iid}/key
// Returns the API key (masked by default, or full key with ?reveal=true).
func (h *IntegrationsHandler) GetKey(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.GetIdentity(r.Context())
	if !ok {
		h.serverError(w, "Missing identity in context", nil)
		return
	}

	integrationID, ok := ParseIntegrationID(w, r, h.logger)
	if !ok {
		return
	}

	key, err := h.integrations.GetKey(r.Context(), identity, integrationID)
	if err != nil {
		h.respondError(w, "Failed to get integration key", err)
		return
	}

	reveal := r.URL.Query().Get("reveal") == "true"

	responseKey := key
	masked := false
	if !reveal {
		responseKey = maskedKey
		masked = true
	} else {
		h.auditor.LogKeyRevealed(identity.UserID, integrationID, r.RemoteAddr)
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{
		Success: true,
		Data: GetKeyResponse{
			Key:    responseKey,
			Masked: masked,
		},
	}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// RegenerateKey handles POST /api/integrations/{iid}/key/regenerate
// Generates a new key, invalidating any previous key.
func (h *IntegrationsHandler) RegenerateKey(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.GetIdentity(r.Context())
	if !ok {
		h.serverError(w, "Missing identity in context", nil)
		return
	}

	integrationID, ok := ParseIntegrationID(w, r, h.logger)
	if !ok {
		return
	}

	newKey, err := h.integrations.RegenerateKey(r.Context(), identity, integrationID)
	if err != nil {
		h.respondError(w, "Failed to regenerate integration key", err)
		return
	}
	h.auditor.LogKeyRegenerated(identity.UserID, integrationID, r.RemoteAddr)

	if err := WriteJSON(w, http.StatusOK, ApiResponse{
		Success: true,
		Data: RegenerateKeyResponse{
			Key: newKey,
		},
	}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Update handles PATCH /api/integrations/{iid}
// Toggles the integration between connected and disconnected.
func (h *IntegrationsHandler) Update(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.GetIdentity(r.Context())
	if !ok {
		h.serverError(w, "Missing identity in context", nil)
		return
	}

	integrationID, ok := ParseIntegrationID(w, r, h.logger)
	if !ok {
		return
	}

	var req UpdateIntegrationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.badRequest(w, "Invalid JSON body")
		return
	}

	if err := h.integrations.SetStatus(r.Context(), identity, integrationID, req.Status); err != nil {
		h.respondError(w, "Failed to update integration", err)
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{
		Success: true,
		Message: "Integration updated",
	}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// ListAutomations handles GET /api/automations
// Returns the caller's automations across all platforms for the dashboard.
func (h *IntegrationsHandler) ListAutomations(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.GetIdentity(r.Context())
	if !ok {
		h.serverError(w, "Missing identity in context", nil)
		return
	}

	automations, err := h.automations.ListAll(r.Context(), identity)
	if err != nil {
		h.serverError(w, "Failed to list automations", err)
		return
	}
	if automations == nil {
		automations = []*models.Automation{}
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{
		Success: true,
		Data:    automations,
	}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

func (h *IntegrationsHandler) respondError(w http.ResponseWriter, logMessage string, cause error) {
	status, message := statusForError(cause)
	if status == http.StatusInternalServerError {
		h.logger.Error(logMessage, zap.Error(cause))
	}
	if err := ErrorResponse(w, status, message); err != nil {
		h.logger.Error("Failed to write error response", zap.Error(err))
	}
}

func (h *IntegrationsHandler) badRequest(w http.ResponseWriter, message string) {
	if err := ErrorResponse(w, http.StatusBadRequest, message); err != nil {
		h.logger.Error("Failed to write error response", zap.Error(err))
	}
}

func (h *IntegrationsHandler) serverError(w http.ResponseWriter, logMessage string, cause error) {
	h.logger.Error(logMessage, zap.Error(cause))
	if err := ErrorResponse(w, http.StatusInternalServerError, "Server error"); err != nil {
		h.logger.Error("Failed to write error response", zap.Error(err))
	}
}
