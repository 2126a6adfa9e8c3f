package database

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Querier is the subset of pgx operations repositories need. Both
// *pgxpool.Conn and pgx.Tx satisfy it, so repository code is identical
// inside and outside a transaction.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// UserScope wraps a connection with user context and ensures cleanup.
// The connection has app.current_user_id set for RLS policy evaluation on
// orbit_integrations, orbit_automations and orbit_activities.
type UserScope struct {
	Conn *pgxpool.Conn

	// tx is the active transaction, if WithTx is running. Scopes are
	// per-request and used from a single goroutine.
	tx pgx.Tx
}

// Q returns the active querier: the in-flight transaction if one is open,
// otherwise the scoped connection.
func (s *UserScope) Q() Querier {
	if s.tx != nil {
		return s.tx
	}
	return s.Conn
}

// WithTx runs fn inside a single transaction on the scoped connection.
// Repository calls made from fn (through Q) join the transaction. The
// transaction is rolled back entirely if fn returns an error.
func (s *UserScope) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if s.tx != nil {
		return fmt.Errorf("nested transactions are not supported")
	}

	tx, err := s.Conn.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	s.tx = tx
	defer func() { s.tx = nil }()

	if err := fn(ctx); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Close resets the user context and releases the connection to the pool.
// This MUST be called to prevent user context from leaking to the next request.
func (s *UserScope) Close() {
	if s.Conn == nil {
		return
	}
	_, _ = s.Conn.Exec(context.Background(), "RESET app.current_user_id")
	s.Conn.Release()
}

// WithUser acquires a connection and sets the user context for RLS.
// The returned UserScope MUST be closed with defer scope.Close().
func (db *DB) WithUser(ctx context.Context, userID uuid.UUID) (*UserScope, error) {
	conn, err := db.Pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}

	_, err = conn.Exec(ctx, "SELECT set_config('app.current_user_id', $1, false)", userID.String())
	if err != nil {
		conn.Release()
		return nil, err
	}

	return &UserScope{Conn: conn}, nil
}

// WithoutUser acquires a connection without user context.
// Use this for operations that run before identity is known, such as
// resolving an API key to its owner. The returned UserScope MUST be closed
// with defer scope.Close().
func (db *DB) WithoutUser(ctx context.Context) (*UserScope, error) {
	conn, err := db.Pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	return &UserScope{Conn: conn}, nil
}
