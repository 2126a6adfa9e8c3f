package services

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/General-creator/biz-automation-pilot-sub000/pkg/apperrors"
)

func TestVerifyKey_EmptyKey(t *testing.T) {
	verifier := NewKeyVerifier(nil, newMockIntegrationRepository(), nil, 0, zap.NewNop())

	_, err := verifier.VerifyKey(context.Background(), "")
	assert.ErrorIs(t, err, apperrors.ErrMissingKey)
}

func TestCacheKeyFor_HashesRawKey(t *testing.T) {
	key := "super-secret-api-key"
	cacheKey := cacheKeyFor(key)

	assert.True(t, strings.HasPrefix(cacheKey, "orbit:apikey:"))
	// The raw credential must never appear in the cache key
	assert.NotContains(t, cacheKey, key)
	// sha256 hex digest after the prefix
	assert.Len(t, strings.TrimPrefix(cacheKey, "orbit:apikey:"), 64)

	assert.Equal(t, cacheKey, cacheKeyFor(key))
	assert.NotEqual(t, cacheKey, cacheKeyFor(key+"x"))
}

func TestInvalidate_NilCacheIsNoop(t *testing.T) {
	verifier := NewKeyVerifier(nil, newMockIntegrationRepository(), nil, 0, zap.NewNop())

	// Must not panic with caching disabled
	verifier.Invalidate(context.Background(), "some-key")
}
