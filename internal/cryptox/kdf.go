// Package cryptox implements the derived-key authentication protocol: the
// password-based key derivation, the deterministic auth token and the
// versioned cipher formats used for the token and for local data.
//
// The constants in this file are part of the wire protocol. The server checks
// auth tokens produced with exactly this formula, so changing any of them
// requires a new format version.
package cryptox

import (
	"crypto/sha256"
	"errors"

	"golang.org/x/crypto/pbkdf2"
)

const (
	// KeyIterations is the PBKDF2 iteration count.
	KeyIterations = 400
	// KeySize is the derived key length in bytes (AES-256).
	KeySize = 32
	// IVSize is the AES block size used by the legacy format.
	IVSize = 16

	keySaltSuffix = ":a_pinch_of_salt"
	// ivSuffix guarantees at least 16 bytes of IV seed for any username.
	ivSuffix = "4c281987249be78a"
)

// ErrMissingCredentials signals that username or password is empty, so no key
// or token can be derived. It is an expected condition, not a failure.
var ErrMissingCredentials = errors.New("username and password are required")

// DeriveKey returns the 32-byte key for the given credentials:
// PBKDF2-HMAC-SHA256(password, username+":a_pinch_of_salt", 400 iterations).
// There is no random salt; equal inputs always give equal keys.
func DeriveKey(password, username string) ([]byte, error) {
	if password == "" || username == "" {
		return nil, ErrMissingCredentials
	}
	salt := []byte(username + keySaltSuffix)
	return pbkdf2.Key([]byte(password), salt, KeyIterations, KeySize, sha256.New), nil
}

// DeriveIV returns the deterministic IV bound to username: the first 16 bytes
// of username+"4c281987249be78a". The result is always IVSize bytes long.
func DeriveIV(username string) []byte {
	seed := []byte(username + ivSuffix)
	iv := make([]byte, IVSize)
	copy(iv, seed[:IVSize])
	return iv
}
