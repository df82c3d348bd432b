// Package personas persists the personas owned by the local user.
package personas
