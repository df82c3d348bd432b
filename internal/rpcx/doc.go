// Package rpcx describes the ProfileService gRPC contract shared by the
// client and the reference server.
//
// Messages are google.protobuf.Struct values, so the contract needs no
// generated code: ServiceDesc wires the handlers and the typed helpers in
// this package convert between Struct and the wire types Record and Account.
package rpcx
