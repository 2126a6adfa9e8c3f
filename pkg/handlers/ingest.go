package handlers

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/General-creator/biz-automation-pilot-sub000/pkg/auth"
	"github.com/General-creator/biz-automation-pilot-sub000/pkg/models"
	"github.com/General-creator/biz-automation-pilot-sub000/pkg/services"
)

// IngestHandler serves the API-key-authenticated webhook ingestion surface
// that external automation platforms call to report run outcomes.
type IngestHandler struct {
	runLogger    services.RunLogger
	automations  services.AutomationService
	maxBodyBytes int64
	logger       *zap.Logger
}

// NewIngestHandler creates a new ingestion handler.
func NewIngestHandler(
	runLogger services.RunLogger,
	automations services.AutomationService,
	maxBodyBytes int64,
	logger *zap.Logger,
) *IngestHandler {
	return &IngestHandler{
		runLogger:    runLogger,
		automations:  automations,
		maxBodyBytes: maxBodyBytes,
		logger:       logger,
	}
}

// ScopeMiddleware sets up a user-scoped DB connection after authentication.
type ScopeMiddleware func(http.HandlerFunc) http.HandlerFunc

// RegisterRoutes registers the ingestion routes on the given mux.
// keyMiddleware authenticates by bearer API key; scopeMiddleware opens the
// per-request user-scoped database connection. /auth/test touches no data
// beyond key resolution, so it skips the scope middleware.
func (h *IngestHandler) RegisterRoutes(mux *http.ServeMux, keyMiddleware *auth.APIKeyMiddleware, scopeMiddleware ScopeMiddleware) {
	mux.HandleFunc("GET /auth/test", keyMiddleware.RequireKey(h.AuthTest))
	mux.HandleFunc("POST /runs/log", keyMiddleware.RequireKey(scopeMiddleware(h.LogRun)))
	mux.HandleFunc("GET /workspaces/{wid}/automations", keyMiddleware.RequireKey(scopeMiddleware(h.ListAutomations)))
	mux.HandleFunc("GET /automations/{aid}/status", keyMiddleware.RequireKey(scopeMiddleware(h.Status)))

	// Method-less registrations keep wrong-method requests in the JSON
	// envelope instead of the mux's plain-text 405.
	mux.HandleFunc("/auth/test", h.NotFound)
	mux.HandleFunc("/runs/log", h.NotFound)
	mux.HandleFunc("/workspaces/{wid}/automations", h.NotFound)
	mux.HandleFunc("/automations/{aid}/status", h.NotFound)

	// Fallback for anything the mux doesn't match.
	mux.HandleFunc("/", h.NotFound)
}

// AuthTest handles GET /auth/test
// Succeeding at all means the key resolved to a connected integration.
func (h *IngestHandler) AuthTest(w http.ResponseWriter, r *http.Request) {
	if err := WriteJSON(w, http.StatusOK, ApiResponse{
		Success: true,
		Message: "API key is valid",
	}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// LogRun handles POST /runs/log
// Accepts a run report and records it against the named automation.
func (h *IngestHandler) LogRun(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.GetIdentity(r.Context())
	if !ok {
		h.serverError(w, "Missing identity in context", nil)
		return
	}

	var report services.RunReport
	body := http.MaxBytesReader(w, r.Body, h.maxBodyBytes)
	if err := json.NewDecoder(body).Decode(&report); err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "Invalid JSON body"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	receipt, err := h.runLogger.LogRun(r.Context(), identity, report)
	if err != nil {
		status, message := statusForError(err)
		if status == http.StatusInternalServerError {
			h.logger.Error("Failed to log run",
				zap.String("user_id", identity.UserID.String()),
				zap.Error(err))
		}
		if err := ErrorResponse(w, status, message); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{
		Success: true,
		Message: "Run logged",
		Data:    receipt,
	}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// ListAutomations handles GET /workspaces/{wid}/automations
// Returns the caller's ingested automations. The workspace ID must match the
// verified identity; a workspace the caller cannot see reads as not found.
func (h *IngestHandler) ListAutomations(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.GetIdentity(r.Context())
	if !ok {
		h.serverError(w, "Missing identity in context", nil)
		return
	}

	workspaceID, ok := ParseWorkspaceID(w, r, h.logger)
	if !ok {
		return
	}
	if workspaceID != identity.UserID {
		if err := ErrorResponse(w, http.StatusNotFound, "Workspace not found"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	automations, err := h.automations.ListIngested(r.Context(), identity)
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

// Status handles GET /automations/{aid}/status
// Returns the automation plus its recent activity. Automations owned by
// other users return 404, never another tenant's data.
func (h *IngestHandler) Status(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.GetIdentity(r.Context())
	if !ok {
		h.serverError(w, "Missing identity in context", nil)
		return
	}

	automationID, ok := ParseAutomationID(w, r, h.logger)
	if !ok {
		return
	}

	status, err := h.automations.Status(r.Context(), identity, automationID)
	if err != nil {
		code, message := statusForError(err)
		if code == http.StatusNotFound {
			message = "Automation not found"
		} else if code == http.StatusInternalServerError {
			h.logger.Error("Failed to read automation status",
				zap.String("automation_id", automationID.String()),
				zap.Error(err))
		}
		if err := ErrorResponse(w, code, message); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{
		Success: true,
		Data:    status,
	}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// NotFound answers any unmatched route with the JSON envelope.
func (h *IngestHandler) NotFound(w http.ResponseWriter, r *http.Request) {
	if err := ErrorResponse(w, http.StatusNotFound, "Endpoint not found"); err != nil {
		h.logger.Error("Failed to write error response", zap.Error(err))
	}
}

func (h *IngestHandler) serverError(w http.ResponseWriter, logMessage string, cause error) {
	h.logger.Error(logMessage, zap.Error(cause))
	if err := ErrorResponse(w, http.StatusInternalServerError, "Server error"); err != nil {
		h.logger.Error("Failed to write error response", zap.Error(err))
	}
}
