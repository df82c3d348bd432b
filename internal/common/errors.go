package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Service-level errors.
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")

	// ErrorAlreadyExists is returned when an account with the same auth token
	// is registered twice.
	ErrorAlreadyExists = errors.New("already exists")

	// ErrorInvalidRecord is returned for records missing an id or a type.
	ErrorInvalidRecord = errors.New("invalid record")
)
