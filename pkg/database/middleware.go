package database

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/General-creator/biz-automation-pilot-sub000/pkg/auth"
)

// WithUserContext creates middleware that sets up a user-scoped DB connection.
// It runs AFTER auth middleware and uses the identity resolved from the API
// key or dashboard JWT. The connection is automatically cleaned up after the
// handler returns.
func WithUserContext(db *DB, logger *zap.Logger) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			identity, ok := auth.GetIdentity(r.Context())
			if !ok {
				logger.Error("Missing identity in request context")
				writeError(w, http.StatusInternalServerError, "Missing identity context")
				return
			}

			scope, err := db.WithUser(r.Context(), identity.UserID)
			if err != nil {
				logger.Error("Failed to acquire user-scoped connection",
					zap.String("user_id", identity.UserID.String()),
					zap.Error(err))
				writeError(w, http.StatusInternalServerError, "Database connection error")
				return
			}
			defer scope.Close()

			ctx := SetUserScope(r.Context(), scope)
			next(w, r.WithContext(ctx))
		}
	}
}

// writeError writes a JSON error response in the ingest envelope shape.
func writeError(w http.ResponseWriter, statusCode int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"success": false,
		"message": message,
	})
}
