package cryptox

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
)

// AuthTokenVersion is the format every auth token is serialized with.
// Tokens and cookies issued so far are version 0; moving off it needs a
// migration path on the server.
const AuthTokenVersion = FormatLegacy

// passwordHashes maps a format version to the password hash embedded in
// auth tokens of that version.
var passwordHashes = map[Version]func(password string) string{
	FormatLegacy: func(password string) string {
		sum := sha256.Sum256([]byte(password))
		return hex.EncodeToString(sum[:])
	},
}

// HashPassword hashes password with the algorithm bound to version v.
func HashPassword(v Version, password string) (string, error) {
	h, ok := passwordHashes[v]
	if !ok {
		return "", fmt.Errorf("%w: no password hash for version %d", ErrUnknownVersion, v)
	}
	return h(password), nil
}

// EncodeAuthToken builds the auth token: hash(password)+":"+username
// encrypted under key with the IV derived from username. The output is
// deterministic for fixed inputs. There is no client-side decode.
func EncodeAuthToken(password, username string, key []byte) (string, error) {
	if password == "" || username == "" {
		return "", ErrMissingCredentials
	}

	hash, err := HashPassword(AuthTokenVersion, password)
	if err != nil {
		return "", err
	}
	record := hash + ":" + username

	return Encrypt(key, []byte(record), Options{IV: DeriveIV(username), Version: AuthTokenVersion})
}

// KeyToString encodes a key for cookies and the settings key map.
func KeyToString(key []byte) string {
	return base64.StdEncoding.EncodeToString(key)
}

// KeyFromString decodes a key produced by KeyToString.
func KeyFromString(s string) ([]byte, error) {
	key, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("decode key: %w", err)
	}
	return key, nil
}
