// Package users persists the single local user row.
//
// The table is keyed by the constant models.UserKey and is indexed on
// last_mod (watermark range reads) and local_change (dirty flag). The dirty
// flag is claimed with one UPDATE ... RETURNING statement, so of two
// concurrent claims exactly one observes the dirty row.
//
// Reads that find no row return (nil, nil).
package users
