package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/General-creator/biz-automation-pilot-sub000/pkg/apperrors"
	"github.com/General-creator/biz-automation-pilot-sub000/pkg/audit"
	"github.com/General-creator/biz-automation-pilot-sub000/pkg/models"
)

// KeyVerifier resolves a presented API key to the integration owner.
// Implemented by services.KeyVerifier; declared here so the middleware does
// not depend on the services package.
type KeyVerifier interface {
	VerifyKey(ctx context.Context, key string) (*models.Identity, error)
}

// APIKeyMiddleware authenticates webhook ingestion requests by bearer API key.
type APIKeyMiddleware struct {
	verifier KeyVerifier
	auditor  *audit.SecurityAuditor
	logger   *zap.Logger
}

// NewAPIKeyMiddleware creates middleware backed by the given verifier.
// Rejected keys are reported to the auditor.
func NewAPIKeyMiddleware(verifier KeyVerifier, auditor *audit.SecurityAuditor, logger *zap.Logger) *APIKeyMiddleware {
	return &APIKeyMiddleware{
		verifier: verifier,
		auditor:  auditor,
		logger:   logger,
	}
}

// RequireKey extracts the bearer API key, resolves it to an identity and
// stores the identity in the request context. Requests without a key are
// rejected before any data-store access.
func (m *APIKeyMiddleware) RequireKey(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key := extractBearerKey(r)
		if key == "" {
			m.writeUnauthorized(w, "Unauthorized: missing key")
			return
		}

		identity, err := m.verifier.VerifyKey(r.Context(), key)
		if err != nil {
			if errors.Is(err, apperrors.ErrKeyCollision) {
				// More than one integration holds this key. The unique index
				// should make this impossible, so never pick a row silently.
				m.logger.Error("API key integrity fault", zap.Error(err))
				m.writeEnvelope(w, http.StatusInternalServerError, "Server error")
				return
			}
			m.logger.Debug("API key verification failed",
				zap.String("path", r.URL.Path),
				zap.Error(err))
			m.auditor.LogKeyRejected(r.URL.Path, r.RemoteAddr)
			m.writeUnauthorized(w, "Unauthorized: invalid key")
			return
		}

		ctx := SetIdentity(r.Context(), identity)
		next(w, r.WithContext(ctx))
	}
}

// extractBearerKey returns the API key from the Authorization header, or ""
// if the header is absent or malformed.
func extractBearerKey(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return ""
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

func (m *APIKeyMiddleware) writeUnauthorized(w http.ResponseWriter, message string) {
	m.writeEnvelope(w, http.StatusUnauthorized, message)
}

func (m *APIKeyMiddleware) writeEnvelope(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"success": false,
		"message": message,
	})
}
