// Package cli provides the interactive profilekeeper client.
//
// NewApp wires configuration, the local SQLite store, the gRPC client, the
// session and the reconciler. App.Run restores a remembered session from its
// cookie, starts the connectivity watcher, the sync loop and the broadcast
// subscription, and then blocks in the REPL until the user exits.
package cli
