package grpc

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/profilekeeper/internal/common"
	"github.com/dmitrijs2005/profilekeeper/internal/rpcx"
	"github.com/dmitrijs2005/profilekeeper/internal/server/models"
	"github.com/dmitrijs2005/profilekeeper/internal/server/services"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

func (s *GRPCServer) Join(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	auth, err := rpcx.AuthFromJoinRequest(in)
	if err != nil {
		return nil, toStatus(err)
	}

	acc, err := s.profile.Join(ctx, auth)
	if err != nil {
		s.logger.Error(ctx, "join failed", "error", err)
		return nil, toStatus(err)
	}
	return rpcx.Account{ID: acc.ID}.Struct(), nil
}

// Auth confirms the token and returns the stored user record.
func (s *GRPCServer) Auth(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	acc, ok := accountFromContext(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, "unauthorized")
	}

	rec, err := s.profile.UserRecord(ctx, acc)
	if err != nil {
		s.logger.Error(ctx, "load user record", "error", err)
		return nil, toStatus(err)
	}
	return rpcx.Account{ID: acc.ID, CID: rec.CID, Body: rec.Body, LastMod: rec.LastMod}.Struct(), nil
}

func (s *GRPCServer) PushRecord(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	acc, ok := accountFromContext(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, "unauthorized")
	}

	wire, err := rpcx.RecordFromStruct(in)
	if err != nil {
		return nil, toStatus(err)
	}

	rec, err := s.profile.Push(ctx, acc, fromWire(wire))
	if err != nil {
		return nil, toStatus(err)
	}
	s.logger.Debug(ctx, "record pushed", "user", acc.ID, "type", rec.Type, "id", rec.ID, "last_mod", rec.LastMod)
	return toWire(rec).Struct(), nil
}

func (s *GRPCServer) DeleteRecord(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	acc, ok := accountFromContext(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, "unauthorized")
	}

	recordType, id, err := rpcx.FromDeleteRequest(in)
	if err != nil {
		return nil, toStatus(err)
	}
	if err := s.profile.Delete(ctx, acc, recordType, id); err != nil {
		return nil, toStatus(err)
	}
	return rpcx.Empty(), nil
}

// Subscribe streams every change to the caller's records until the client
// goes away or the server stops. Headers are sent once the subscription is
// registered, so a client that has them will not miss a later push.
func (s *GRPCServer) Subscribe(in *structpb.Struct, stream rpcx.SubscribeStream) error {
	ctx := stream.Context()
	acc, ok := accountFromContext(ctx)
	if !ok {
		return status.Error(codes.Unauthenticated, "unauthorized")
	}

	since, err := rpcx.SinceFromSubscribeRequest(in)
	if err != nil {
		return toStatus(err)
	}
	sub, backlog, err := s.profile.Subscribe(ctx, acc, since)
	if err != nil {
		return toStatus(err)
	}
	defer s.profile.Unsubscribe(sub)

	if err := stream.SendHeader(metadata.MD{}); err != nil {
		return err
	}
	for _, rec := range backlog {
		if err := stream.Send(toWire(rec).Struct()); err != nil {
			return err
		}
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-s.stopping:
			return status.Error(codes.Unavailable, "server stopping")
		case rec, ok := <-sub.C:
			if !ok {
				return nil
			}
			if err := stream.Send(toWire(rec).Struct()); err != nil {
				return err
			}
		}
	}
}

func toStatus(err error) error {
	switch {
	case errors.Is(err, common.ErrorUnauthorized):
		return status.Error(codes.Unauthenticated, "unauthorized")
	case errors.Is(err, common.ErrorAlreadyExists):
		return status.Error(codes.AlreadyExists, "account already exists")
	case errors.Is(err, services.ErrForbidden):
		return status.Error(codes.PermissionDenied, "forbidden")
	case errors.Is(err, common.ErrorInvalidRecord), errors.Is(err, rpcx.ErrBadMessage):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, common.ErrorNotFound):
		return status.Error(codes.NotFound, "not found")
	default:
		return status.Error(codes.Internal, "internal error")
	}
}

func toWire(r models.Record) rpcx.Record {
	return rpcx.Record{ID: r.ID, CID: r.CID, Type: r.Type, Body: r.Body, LastMod: r.LastMod, Deleted: r.Deleted}
}

func fromWire(r rpcx.Record) models.Record {
	return models.Record{ID: r.ID, CID: r.CID, Type: r.Type, Body: r.Body, LastMod: r.LastMod, Deleted: r.Deleted}
}
