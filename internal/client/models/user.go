package models

// UserKey is the fixed primary key of the single local user row.
const UserKey = "user"

// Credentials are held only while the key and auth token are derived and are
// never persisted.
type Credentials struct {
	Username string
	Password string
}

// Empty reports whether either part is missing.
func (c Credentials) Empty() bool {
	return c.Username == "" || c.Password == ""
}

// User is the in-memory user record.
type User struct {
	ID          string
	CID         string
	Settings    Settings
	LastMod     int64 // unix milliseconds
	LocalChange bool
	LastBoard   string
}

// UserRow is the local store shape of the user record. Body holds the
// encrypted settings.
type UserRow struct {
	Key         string
	ID          string
	CID         string
	Body        string
	LastMod     int64
	LocalChange bool
}

// ServerAuth is an auth bundle issued by the server. Key is in the
// KeyToString encoding.
type ServerAuth struct {
	UID  string
	Auth string
	Key  string
}
