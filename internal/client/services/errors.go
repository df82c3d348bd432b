package services

import (
	"errors"

	"github.com/dmitrijs2005/profilekeeper/internal/cryptox"
)

var (
	// ErrMissingCredentials is returned by Key and Auth when username or
	// password is not set.
	ErrMissingCredentials = cryptox.ErrMissingCredentials

	ErrNoSession       = errors.New("no saved session")
	ErrNoAuth          = errors.New("no auth bundle")
	ErrNotLoggedIn     = errors.New("not logged in")
	ErrKeyNotFound     = errors.New("user key not found")
	ErrInvalidArgument = errors.New("invalid argument")
	ErrNoAccountID     = errors.New("account id missing from response")
)
