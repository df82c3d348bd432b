package models

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Persona is a public identity owned by the user. Its body travels
// unencrypted.
type Persona struct {
	ID      string
	UserID  string
	Name    string
	Email   string
	LastMod int64
}

type personaBody struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Record converts p to the push shape.
func (p Persona) Record(recordType string) (SyncRecord, error) {
	b, err := json.Marshal(personaBody{Name: p.Name, Email: p.Email})
	if err != nil {
		return SyncRecord{}, err
	}
	return SyncRecord{ID: p.ID, Type: recordType, Body: string(b), LastMod: p.LastMod}, nil
}

// PersonaFromRecord decodes a broadcast persona owned by userID.
func PersonaFromRecord(rec SyncRecord, userID string) (Persona, error) {
	dec := json.NewDecoder(bytes.NewReader([]byte(rec.Body)))
	dec.DisallowUnknownFields()

	var b personaBody
	if err := dec.Decode(&b); err != nil {
		return Persona{}, fmt.Errorf("decode persona %s: %w", rec.ID, err)
	}
	return Persona{ID: rec.ID, UserID: userID, Name: b.Name, Email: b.Email, LastMod: rec.LastMod}, nil
}
