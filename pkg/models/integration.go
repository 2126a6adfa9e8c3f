// Package models contains domain types for orbit-api.
package models

import (
	"time"

	"github.com/google/uuid"
)

// Integration status values.
const (
	IntegrationConnected    = "connected"
	IntegrationDisconnected = "disconnected"
)

// Integration is a user-owned credential record granting one external
// platform ingestion access via an API key. The api_key column carries a
// unique index, so at most one integration can ever hold a given key.
type Integration struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	Name      string    `json:"name"`
	Type      string    `json:"type"`
	APIKey    string    `json:"-"` // Never serialized; exposed masked or on create/regenerate only
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Connected reports whether the integration currently accepts ingestion.
func (i *Integration) Connected() bool {
	return i.Status == IntegrationConnected
}

// Identity is the resolved owner of a verified API key.
type Identity struct {
	UserID        uuid.UUID `json:"user_id"`
	IntegrationID uuid.UUID `json:"integration_id"`
}
