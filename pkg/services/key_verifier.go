// Package services contains the business logic for orbit-api.
package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/General-creator/biz-automation-pilot-sub000/pkg/apperrors"
	"github.com/General-creator/biz-automation-pilot-sub000/pkg/database"
	"github.com/General-creator/biz-automation-pilot-sub000/pkg/models"
	"github.com/General-creator/biz-automation-pilot-sub000/pkg/repositories"
)

// KeyVerifier resolves presented API keys to integration owners.
type KeyVerifier interface {
	// VerifyKey maps an API key to the owning user and integration.
	// An empty key fails with apperrors.ErrMissingKey; an unknown or
	// disconnected key fails with apperrors.ErrInvalidKey.
	VerifyKey(ctx context.Context, key string) (*models.Identity, error)

	// Invalidate drops any cached identity for the key. Call on
	// disconnect and key regeneration so revocation takes effect
	// immediately instead of after the cache TTL.
	Invalidate(ctx context.Context, key string)
}

type keyVerifier struct {
	db       *database.DB
	repo     repositories.IntegrationRepository
	cache    *redis.Client // nil disables caching
	cacheTTL time.Duration
	logger   *zap.Logger
}

// NewKeyVerifier creates a key verifier. cache may be nil, in which case
// every verification hits Postgres.
func NewKeyVerifier(
	db *database.DB,
	repo repositories.IntegrationRepository,
	cache *redis.Client,
	cacheTTL time.Duration,
	logger *zap.Logger,
) KeyVerifier {
	return &keyVerifier{
		db:       db,
		repo:     repo,
		cache:    cache,
		cacheTTL: cacheTTL,
		logger:   logger,
	}
}

func (v *keyVerifier) VerifyKey(ctx context.Context, key string) (*models.Identity, error) {
	if key == "" {
		return nil, apperrors.ErrMissingKey
	}

	if identity := v.cacheGet(ctx, key); identity != nil {
		return identity, nil
	}

	// Key resolution runs before identity is known, so it uses an
	// unscoped connection.
	scope, err := v.db.WithoutUser(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire connection: %w", err)
	}
	defer scope.Close()

	integration, err := v.repo.GetByAPIKey(database.SetUserScope(ctx, scope), key)
	if err != nil {
		if err == apperrors.ErrNotFound {
			return nil, apperrors.ErrInvalidKey
		}
		return nil, err
	}

	if !integration.Connected() {
		v.logger.Debug("Rejected key for disconnected integration",
			zap.String("integration_id", integration.ID.String()))
		return nil, apperrors.ErrInvalidKey
	}

	identity := &models.Identity{
		UserID:        integration.UserID,
		IntegrationID: integration.ID,
	}
	v.cacheSet(ctx, key, identity)

	return identity, nil
}

func (v *keyVerifier) Invalidate(ctx context.Context, key string) {
	if v.cache == nil || key == "" {
		return
	}
	if err := v.cache.Del(ctx, cacheKeyFor(key)).Err(); err != nil {
		v.logger.Warn("Failed to invalidate key cache entry", zap.Error(err))
	}
}

// cacheGet returns the cached identity for the key, or nil on miss or any
// cache error. Cache failures degrade to a Postgres lookup.
func (v *keyVerifier) cacheGet(ctx context.Context, key string) *models.Identity {
	if v.cache == nil {
		return nil
	}

	payload, err := v.cache.Get(ctx, cacheKeyFor(key)).Bytes()
	if err != nil {
		if err != redis.Nil {
			v.logger.Warn("Key cache read failed", zap.Error(err))
		}
		return nil
	}

	var identity models.Identity
	if err := json.Unmarshal(payload, &identity); err != nil {
		v.logger.Warn("Dropping malformed key cache entry", zap.Error(err))
		return nil
	}
	return &identity
}

func (v *keyVerifier) cacheSet(ctx context.Context, key string, identity *models.Identity) {
	if v.cache == nil {
		return
	}

	payload, err := json.Marshal(identity)
	if err != nil {
		return
	}
	if err := v.cache.Set(ctx, cacheKeyFor(key), payload, v.cacheTTL).Err(); err != nil {
		v.logger.Warn("Key cache write failed", zap.Error(err))
	}
}

// cacheKeyFor hashes the API key so raw credentials never reach Redis.
func cacheKeyFor(key string) string {
	sum := sha256.Sum256([]byte(key))
	return "orbit:apikey:" + hex.EncodeToString(sum[:])
}

// Ensure keyVerifier implements KeyVerifier at compile time.
var _ KeyVerifier = (*keyVerifier)(nil)
