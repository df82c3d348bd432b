package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"maps"
)

// Settings is the private part of the user record. Keys maps item ids to
// their key strings; Values holds free-form preferences.
type Settings struct {
	Keys   map[string]string `json:"keys"`
	Values map[string]string `json:"values"`
}

// NewSettings returns empty, non-nil settings.
func NewSettings() Settings {
	return Settings{Keys: map[string]string{}, Values: map[string]string{}}
}

// Clone returns a deep copy.
func (s Settings) Clone() Settings {
	c := NewSettings()
	maps.Copy(c.Keys, s.Keys)
	maps.Copy(c.Values, s.Values)
	return c
}

// Empty reports whether no keys or values are set.
func (s Settings) Empty() bool {
	return len(s.Keys) == 0 && len(s.Values) == 0
}

// EncodeSettings serializes settings to JSON.
func EncodeSettings(s Settings) ([]byte, error) {
	if s.Keys == nil {
		s.Keys = map[string]string{}
	}
	if s.Values == nil {
		s.Values = map[string]string{}
	}
	return json.Marshal(s)
}

// DecodeSettings parses JSON settings; unknown fields are rejected.
func DecodeSettings(b []byte) (Settings, error) {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.DisallowUnknownFields()

	var s Settings
	if err := dec.Decode(&s); err != nil {
		return Settings{}, fmt.Errorf("decode settings: %w", err)
	}
	if s.Keys == nil {
		s.Keys = map[string]string{}
	}
	if s.Values == nil {
		s.Values = map[string]string{}
	}
	return s, nil
}
