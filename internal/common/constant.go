// Package common contains constants, sentinel errors and small byte helpers
// shared by the client and the reference server.
package common

// AuthTokenHeaderName is the gRPC metadata key carrying the auth token on
// authenticated calls.
const AuthTokenHeaderName = "auth_token"

// UserRecordType is the record type used for the singleton user record on the
// push and broadcast channels.
const UserRecordType = "user"

// PersonaRecordType is the record type of owned persona records.
const PersonaRecordType = "persona"
