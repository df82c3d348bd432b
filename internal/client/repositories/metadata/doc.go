// Package metadata stores small client-side key/value blobs in the local
// SQLite database. It backs the session cookie and the sync watermark.
package metadata
