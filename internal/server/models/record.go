package models

// Record is a synced record owned by an account. The key is
// (UserID, Type, ID). LastMod is stamped by the server in unix milliseconds.
type Record struct {
	UserID  string
	Type    string
	ID      string
	CID     string
	Body    string
	LastMod int64
	Deleted bool
}
