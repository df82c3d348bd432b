// Package models defines the client-side data model: the user record, its
// encrypted settings, owned personas and the shapes exchanged with the local
// store and the remote API.
package models
