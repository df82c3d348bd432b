package rpcx

import (
	"errors"
	"fmt"

	"google.golang.org/protobuf/types/known/structpb"
)

// Message field names.
const (
	FieldID      = "id"
	FieldCID     = "cid"
	FieldType    = "type"
	FieldBody    = "body"
	FieldLastMod = "last_mod"
	FieldDeleted = "deleted"
	FieldAuth    = "auth"
)

var ErrBadMessage = errors.New("bad message")

// Record is a synced record on the wire.
type Record struct {
	ID      string
	CID     string
	Type    string
	Body    string
	LastMod int64
	Deleted bool
}

// Account is the user record returned by Join and Auth.
type Account struct {
	ID      string
	CID     string
	Body    string
	LastMod int64
}

func (r Record) Struct() *structpb.Struct {
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		FieldID:      structpb.NewStringValue(r.ID),
		FieldCID:     structpb.NewStringValue(r.CID),
		FieldType:    structpb.NewStringValue(r.Type),
		FieldBody:    structpb.NewStringValue(r.Body),
		FieldLastMod: structpb.NewNumberValue(float64(r.LastMod)),
		FieldDeleted: structpb.NewBoolValue(r.Deleted),
	}}
}

// RecordFromStruct decodes a Record. type is required, the rest may be
// absent.
func RecordFromStruct(s *structpb.Struct) (Record, error) {
	var (
		r   Record
		err error
	)
	if r.Type, err = stringField(s, FieldType, true); err != nil {
		return Record{}, err
	}
	if r.ID, err = stringField(s, FieldID, false); err != nil {
		return Record{}, err
	}
	if r.CID, err = stringField(s, FieldCID, false); err != nil {
		return Record{}, err
	}
	if r.Body, err = stringField(s, FieldBody, false); err != nil {
		return Record{}, err
	}
	if r.LastMod, err = int64Field(s, FieldLastMod); err != nil {
		return Record{}, err
	}
	if r.Deleted, err = boolField(s, FieldDeleted); err != nil {
		return Record{}, err
	}
	return r, nil
}

func (a Account) Struct() *structpb.Struct {
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		FieldID:      structpb.NewStringValue(a.ID),
		FieldCID:     structpb.NewStringValue(a.CID),
		FieldBody:    structpb.NewStringValue(a.Body),
		FieldLastMod: structpb.NewNumberValue(float64(a.LastMod)),
	}}
}

func AccountFromStruct(s *structpb.Struct) (Account, error) {
	var (
		a   Account
		err error
	)
	if a.ID, err = stringField(s, FieldID, true); err != nil {
		return Account{}, err
	}
	if a.CID, err = stringField(s, FieldCID, false); err != nil {
		return Account{}, err
	}
	if a.Body, err = stringField(s, FieldBody, false); err != nil {
		return Account{}, err
	}
	if a.LastMod, err = int64Field(s, FieldLastMod); err != nil {
		return Account{}, err
	}
	return a, nil
}

// JoinRequest carries the auth token of the account being created.
func JoinRequest(auth string) *structpb.Struct {
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		FieldAuth: structpb.NewStringValue(auth),
	}}
}

func AuthFromJoinRequest(s *structpb.Struct) (string, error) {
	return stringField(s, FieldAuth, true)
}

func DeleteRequest(recordType, id string) *structpb.Struct {
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		FieldType: structpb.NewStringValue(recordType),
		FieldID:   structpb.NewStringValue(id),
	}}
}

func FromDeleteRequest(s *structpb.Struct) (recordType, id string, err error) {
	if recordType, err = stringField(s, FieldType, true); err != nil {
		return "", "", err
	}
	if id, err = stringField(s, FieldID, true); err != nil {
		return "", "", err
	}
	return recordType, id, nil
}

// SubscribeRequest asks for a replay of records changed after since. Zero
// means live changes only.
func SubscribeRequest(since int64) *structpb.Struct {
	if since <= 0 {
		return Empty()
	}
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		FieldLastMod: structpb.NewNumberValue(float64(since)),
	}}
}

func SinceFromSubscribeRequest(s *structpb.Struct) (int64, error) {
	return int64Field(s, FieldLastMod)
}

// Empty is the empty message.
func Empty() *structpb.Struct {
	return &structpb.Struct{Fields: map[string]*structpb.Value{}}
}

func field(s *structpb.Struct, name string) *structpb.Value {
	if s == nil {
		return nil
	}
	return s.GetFields()[name]
}

func stringField(s *structpb.Struct, name string, required bool) (string, error) {
	v := field(s, name)
	if v == nil {
		if required {
			return "", fmt.Errorf("%w: missing %q", ErrBadMessage, name)
		}
		return "", nil
	}
	sv, ok := v.GetKind().(*structpb.Value_StringValue)
	if !ok {
		return "", fmt.Errorf("%w: %q is not a string", ErrBadMessage, name)
	}
	if required && sv.StringValue == "" {
		return "", fmt.Errorf("%w: empty %q", ErrBadMessage, name)
	}
	return sv.StringValue, nil
}

func int64Field(s *structpb.Struct, name string) (int64, error) {
	v := field(s, name)
	if v == nil {
		return 0, nil
	}
	nv, ok := v.GetKind().(*structpb.Value_NumberValue)
	if !ok {
		return 0, fmt.Errorf("%w: %q is not a number", ErrBadMessage, name)
	}
	return int64(nv.NumberValue), nil
}

func boolField(s *structpb.Struct, name string) (bool, error) {
	v := field(s, name)
	if v == nil {
		return false, nil
	}
	bv, ok := v.GetKind().(*structpb.Value_BoolValue)
	if !ok {
		return false, fmt.Errorf("%w: %q is not a bool", ErrBadMessage, name)
	}
	return bv.BoolValue, nil
}
