package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/General-creator/biz-automation-pilot-sub000/pkg/apperrors"
	"github.com/General-creator/biz-automation-pilot-sub000/pkg/audit"
	"github.com/General-creator/biz-automation-pilot-sub000/pkg/models"
)

// mockKeyVerifier is a mock for KeyVerifier.
type mockKeyVerifier struct {
	identity *models.Identity
	err      error

	calls   int
	lastKey string
}

func (m *mockKeyVerifier) VerifyKey(ctx context.Context, key string) (*models.Identity, error) {
	m.calls++
	m.lastKey = key
	if m.err != nil {
		return nil, m.err
	}
	return m.identity, nil
}

func requireKeyHandler(t *testing.T, verifier *mockKeyVerifier) (http.HandlerFunc, *bool) {
	t.Helper()
	middleware := NewAPIKeyMiddleware(verifier, audit.NewSecurityAuditor(zap.NewNop()), zap.NewNop())
	called := false
	next := func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusOK)
	}
	return middleware.RequireKey(next), &called
}

func TestRequireKey_MissingHeader(t *testing.T) {
	verifier := &mockKeyVerifier{}
	handler, called := requireKeyHandler(t, verifier)

	req := httptest.NewRequest(http.MethodPost, "/runs/log", nil)
	rec := httptest.NewRecorder()
	handler(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, *called)
	// No data-store access before a key is even presented
	assert.Zero(t, verifier.calls)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, false, resp["success"])
	assert.Equal(t, "Unauthorized: missing key", resp["message"])
}

func TestRequireKey_MalformedHeader(t *testing.T) {
	verifier := &mockKeyVerifier{}
	handler, called := requireKeyHandler(t, verifier)

	req := httptest.NewRequest(http.MethodPost, "/runs/log", nil)
	req.Header.Set("Authorization", "Basic dXNlcjpwYXNz")
	rec := httptest.NewRecorder()
	handler(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, *called)
	assert.Zero(t, verifier.calls)
	assert.Contains(t, rec.Body.String(), "Unauthorized: missing key")
}

func TestRequireKey_InvalidKey(t *testing.T) {
	verifier := &mockKeyVerifier{err: apperrors.ErrInvalidKey}
	handler, called := requireKeyHandler(t, verifier)

	req := httptest.NewRequest(http.MethodPost, "/runs/log", nil)
	req.Header.Set("Authorization", "Bearer wrong-key")
	rec := httptest.NewRecorder()
	handler(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, *called)
	assert.Equal(t, 1, verifier.calls)
	assert.Contains(t, rec.Body.String(), "Unauthorized: invalid key")
}

func TestRequireKey_KeyCollisionIsServerError(t *testing.T) {
	verifier := &mockKeyVerifier{err: apperrors.ErrKeyCollision}
	handler, called := requireKeyHandler(t, verifier)

	req := httptest.NewRequest(http.MethodPost, "/runs/log", nil)
	req.Header.Set("Authorization", "Bearer duplicated-key")
	rec := httptest.NewRecorder()
	handler(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.False(t, *called)
	assert.Contains(t, rec.Body.String(), "Server error")
}

func TestRequireKey_ValidKeySetsIdentity(t *testing.T) {
	identity := &models.Identity{UserID: uuid.New(), IntegrationID: uuid.New()}
	verifier := &mockKeyVerifier{identity: identity}
	middleware := NewAPIKeyMiddleware(verifier, audit.NewSecurityAuditor(zap.NewNop()), zap.NewNop())

	var gotIdentity *models.Identity
	handler := middleware.RequireKey(func(w http.ResponseWriter, r *http.Request) {
		gotIdentity, _ = GetIdentity(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodPost, "/runs/log", nil)
	req.Header.Set("Authorization", "Bearer good-key")
	rec := httptest.NewRecorder()
	handler(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "good-key", verifier.lastKey)
	require.NotNil(t, gotIdentity)
	assert.Equal(t, identity.UserID, gotIdentity.UserID)
	assert.Equal(t, identity.IntegrationID, gotIdentity.IntegrationID)
}

func TestExtractBearerKey(t *testing.T) {
	tests := []struct {
		name   string
		header string
		want   string
	}{
		{"no header", "", ""},
		{"bearer key", "Bearer abc123", "abc123"},
		{"lowercase scheme", "bearer abc123", "abc123"},
		{"wrong scheme", "Basic abc123", ""},
		{"scheme only", "Bearer", ""},
		{"padded key", "Bearer  abc123 ", "abc123"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/auth/test", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			assert.Equal(t, tt.want, extractBearerKey(req))
		})
	}
}
