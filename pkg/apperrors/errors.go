package apperrors

import "errors"

var (
	ErrNotFound      = errors.New("not found")
	ErrConflict      = errors.New("conflict")
	ErrMissingKey    = errors.New("missing api key")
	ErrInvalidKey    = errors.New("invalid api key")
	ErrMissingFields = errors.New("missing required fields")
	ErrBadTimestamp  = errors.New("invalid timestamp")
	ErrKeyCollision  = errors.New("api key collision")
	ErrInvalidStatus = errors.New("invalid integration status")
)
