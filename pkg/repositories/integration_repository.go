package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/General-creator/biz-automation-pilot-sub000/pkg/apperrors"
	"github.com/General-creator/biz-automation-pilot-sub000/pkg/database"
	"github.com/General-creator/biz-automation-pilot-sub000/pkg/models"
)

// IntegrationRepository defines the interface for integration data access.
type IntegrationRepository interface {
	Create(ctx context.Context, integration *models.Integration) error
	Get(ctx context.Context, id uuid.UUID) (*models.Integration, error)
	GetByAPIKey(ctx context.Context, apiKey string) (*models.Integration, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.Integration, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) error
	UpdateAPIKey(ctx context.Context, id uuid.UUID, apiKey string) error
}

// integrationRepository implements IntegrationRepository using PostgreSQL.
type integrationRepository struct{}

// NewIntegrationRepository creates a new integration repository.
func NewIntegrationRepository() IntegrationRepository {
	return &integrationRepository{}
}

const integrationColumns = `id, user_id, name, type, api_key, status, created_at, updated_at`

// Create inserts a new integration. The api_key unique index turns key
// collisions into apperrors.ErrKeyCollision so callers can retry with a
// fresh key instead of surfacing a raw constraint error.
func (r *integrationRepository) Create(ctx context.Context, integration *models.Integration) error {
	scope, ok := database.GetUserScope(ctx)
	if !ok {
		return fmt.Errorf("no user scope in context")
	}

	if integration.ID == uuid.Nil {
		integration.ID = uuid.New()
	}

	now := time.Now()
	integration.CreatedAt = now
	integration.UpdatedAt = now
	if integration.Status == "" {
		integration.Status = models.IntegrationConnected
	}

	query := `
		INSERT INTO orbit_integrations (id, user_id, name, type, api_key, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := scope.Q().Exec(ctx, query,
		integration.ID,
		integration.UserID,
		integration.Name,
		integration.Type,
		integration.APIKey,
		integration.Status,
		integration.CreatedAt,
		integration.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err, "orbit_integrations_api_key_key") {
			return apperrors.ErrKeyCollision
		}
		return fmt.Errorf("failed to create integration: %w", err)
	}

	return nil
}

// Get retrieves an integration by ID. RLS restricts the row to the scoped user.
func (r *integrationRepository) Get(ctx context.Context, id uuid.UUID) (*models.Integration, error) {
	scope, ok := database.GetUserScope(ctx)
	if !ok {
		return nil, fmt.Errorf("no user scope in context")
	}

	query := `
		SELECT ` + integrationColumns + `
		FROM orbit_integrations
		WHERE id = $1`

	integration, err := scanIntegration(scope.Q().QueryRow(ctx, query, id))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get integration: %w", err)
	}

	return integration, nil
}

// GetByAPIKey resolves an API key to its integration. The query runs without
// LIMIT so a second matching row is detected and reported as an integrity
// fault rather than silently picking one. The api_key unique index should
// make that case impossible.
func (r *integrationRepository) GetByAPIKey(ctx context.Context, apiKey string) (*models.Integration, error) {
	scope, ok := database.GetUserScope(ctx)
	if !ok {
		return nil, fmt.Errorf("no user scope in context")
	}

	query := `
		SELECT ` + integrationColumns + `
		FROM orbit_integrations
		WHERE api_key = $1`

	rows, err := scope.Q().Query(ctx, query, apiKey)
	if err != nil {
		return nil, fmt.Errorf("failed to look up api key: %w", err)
	}
	defer rows.Close()

	var match *models.Integration
	for rows.Next() {
		if match != nil {
			return nil, apperrors.ErrKeyCollision
		}
		match, err = scanIntegration(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan integration: %w", err)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to look up api key: %w", err)
	}
	if match == nil {
		return nil, apperrors.ErrNotFound
	}

	return match, nil
}

// ListByUser returns all integrations owned by the given user.
func (r *integrationRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.Integration, error) {
	scope, ok := database.GetUserScope(ctx)
	if !ok {
		return nil, fmt.Errorf("no user scope in context")
	}

	query := `
		SELECT ` + integrationColumns + `
		FROM orbit_integrations
		WHERE user_id = $1
		ORDER BY created_at DESC`

	rows, err := scope.Q().Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list integrations: %w", err)
	}
	defer rows.Close()

	var integrations []*models.Integration
	for rows.Next() {
		integration, err := scanIntegration(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan integration: %w", err)
		}
		integrations = append(integrations, integration)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list integrations: %w", err)
	}

	return integrations, nil
}

// UpdateStatus toggles an integration between connected and disconnected.
func (r *integrationRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	scope, ok := database.GetUserScope(ctx)
	if !ok {
		return fmt.Errorf("no user scope in context")
	}

	query := `
		UPDATE orbit_integrations
		SET status = $2, updated_at = now()
		WHERE id = $1`

	result, err := scope.Q().Exec(ctx, query, id, status)
	if err != nil {
		return fmt.Errorf("failed to update integration status: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}

	return nil
}

// UpdateAPIKey replaces an integration's API key, invalidating the old one.
func (r *integrationRepository) UpdateAPIKey(ctx context.Context, id uuid.UUID, apiKey string) error {
	scope, ok := database.GetUserScope(ctx)
	if !ok {
		return fmt.Errorf("no user scope in context")
	}

	query := `
		UPDATE orbit_integrations
		SET api_key = $2, updated_at = now()
		WHERE id = $1`

	result, err := scope.Q().Exec(ctx, query, id, apiKey)
	if err != nil {
		if isUniqueViolation(err, "orbit_integrations_api_key_key") {
			return apperrors.ErrKeyCollision
		}
		return fmt.Errorf("failed to update api key: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}

	return nil
}

// scanIntegration scans one integration row.
func scanIntegration(row pgx.Row) (*models.Integration, error) {
	var integration models.Integration
	err := row.Scan(
		&integration.ID,
		&integration.UserID,
		&integration.Name,
		&integration.Type,
		&integration.APIKey,
		&integration.Status,
		&integration.CreatedAt,
		&integration.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &integration, nil
}

// Ensure integrationRepository implements IntegrationRepository at compile time.
var _ IntegrationRepository = (*integrationRepository)(nil)
