package client

import "errors"

var (
	ErrUnavailable   = errors.New("server unavailable")
	ErrUnauthorized  = errors.New("unauthorized")
	ErrNotFound      = errors.New("record not found")
	ErrRejected      = errors.New("request rejected")
	ErrNotAuthorized = errors.New("no auth token set")
)
