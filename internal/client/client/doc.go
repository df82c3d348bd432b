// Package client contains the remote API client and the local store
// bootstrap of the profilekeeper CLI.
//
// # Overview
//
//  1. Client is the transport-agnostic API contract: Join, TestAuth,
//     PushRecord, DeleteRecord, Subscribe and Ping.
//  2. GRPCClient implements it over the rpcx ProfileService. An interceptor
//     puts the auth token into outgoing metadata; the token comes from
//     WithAuth on the call context or from SetAuth on the client.
//  3. InitDatabase opens the SQLite store, applies the embedded goose
//     migrations and wires the repositories.
//
// # Error Handling
//
// gRPC status codes are mapped to sentinel errors that callers match with
// errors.Is: ErrUnauthorized, ErrUnavailable, ErrNotFound, ErrRejected.
package client
