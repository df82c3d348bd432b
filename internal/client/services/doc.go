// Package services contains the application services of the profilekeeper
// client.
//
// Session holds the authenticated session material (derived key, auth token,
// user id) and the in-memory user record. UserSync reconciles the user record
// between memory, the local store and the remote API. Pusher is the shared
// push procedure that registers echo suppression before every network write.
//
// Expected conditions are sentinel errors (ErrNoSession, ErrKeyNotFound,
// ErrNotLoggedIn, cryptox.ErrMissingCredentials). Local and remote failures
// are returned and also emitted as events.Notice for display.
package services
