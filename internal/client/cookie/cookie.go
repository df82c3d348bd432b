// Package cookie persists the remembered session: a named value with an
// expiry measured in days.
package cookie

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/profilekeeper/internal/client/repositories/metadata"
)

// ErrNotFound is returned by Read for an absent or expired cookie.
var ErrNotFound = errors.New("cookie not found")

type Store interface {
	Write(ctx context.Context, name, value string, days int) error
	Read(ctx context.Context, name string) (string, error)
	Dispose(ctx context.Context, name string) error
}

// Bundle is the session cookie payload.
type Bundle struct {
	ID        string `json:"id"`
	Key       string `json:"k"`
	Auth      string `json:"a"`
	LastBoard string `json:"last_board,omitempty"`
}

type entry struct {
	Value     string `json:"value"`
	ExpiresAt int64  `json:"expires_at"`
}

// MetadataStore keeps cookies in the local metadata table.
type MetadataStore struct {
	repo metadata.Repository
	now  func() time.Time
}

func NewMetadataStore(repo metadata.Repository) *MetadataStore {
	return &MetadataStore{repo: repo, now: time.Now}
}

// WithClock replaces the clock used for expiry.
func (s *MetadataStore) WithClock(now func() time.Time) *MetadataStore {
	s.now = now
	return s
}

func (s *MetadataStore) Write(ctx context.Context, name, value string, days int) error {
	if days <= 0 {
		return fmt.Errorf("cookie %s: duration must be positive, got %d days", name, days)
	}
	e := entry{
		Value:     value,
		ExpiresAt: s.now().Add(time.Duration(days) * 24 * time.Hour).UnixMilli(),
	}
	b, err := json.Marshal(e)
	if err != nil {
		return err
	}
	return s.repo.Set(ctx, metadata.CookiePrefix+name, b)
}

func (s *MetadataStore) Read(ctx context.Context, name string) (string, error) {
	b, err := s.repo.Get(ctx, metadata.CookiePrefix+name)
	if err != nil {
		return "", err
	}
	if b == nil {
		return "", ErrNotFound
	}

	var e entry
	if err := json.Unmarshal(b, &e); err != nil {
		return "", fmt.Errorf("cookie %s: %w", name, err)
	}
	if s.now().UnixMilli() >= e.ExpiresAt {
		if err := s.Dispose(ctx, name); err != nil {
			return "", err
		}
		return "", ErrNotFound
	}
	return e.Value, nil
}

func (s *MetadataStore) Dispose(ctx context.Context, name string) error {
	return s.repo.Delete(ctx, metadata.CookiePrefix+name)
}

// Expiry reports when the named cookie expires; ok is false if absent.
func (s *MetadataStore) Expiry(ctx context.Context, name string) (t time.Time, ok bool, err error) {
	b, err := s.repo.Get(ctx, metadata.CookiePrefix+name)
	if err != nil || b == nil {
		return time.Time{}, false, err
	}
	var e entry
	if err := json.Unmarshal(b, &e); err != nil {
		return time.Time{}, false, fmt.Errorf("cookie %s: %w", name, err)
	}
	return time.UnixMilli(e.ExpiresAt), true, nil
}

// EncodeBundle and DecodeBundle convert the session bundle to the cookie
// value.
func EncodeBundle(b Bundle) (string, error) {
	out, err := json.Marshal(b)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

func DecodeBundle(s string) (Bundle, error) {
	var b Bundle
	if err := json.Unmarshal([]byte(s), &b); err != nil {
		return Bundle{}, fmt.Errorf("decode session bundle: %w", err)
	}
	if b.Key == "" || b.Auth == "" {
		return Bundle{}, errors.New("decode session bundle: missing key or auth")
	}
	return b, nil
}
