package models

// SyncRecord is a record pushed to or broadcast by the remote API.
type SyncRecord struct {
	ID      string
	CID     string
	Type    string
	Body    string
	LastMod int64
	Deleted bool
}

// UserRowFromRecord converts a remote user record to its local row shape.
func UserRowFromRecord(rec SyncRecord) UserRow {
	return UserRow{
		Key:     UserKey,
		ID:      rec.ID,
		CID:     rec.CID,
		Body:    rec.Body,
		LastMod: rec.LastMod,
	}
}

// RecordFromUserRow converts a local user row to the push shape.
func RecordFromUserRow(row UserRow, recordType string) SyncRecord {
	return SyncRecord{
		ID:      row.ID,
		CID:     row.CID,
		Type:    recordType,
		Body:    row.Body,
		LastMod: row.LastMod,
	}
}
