package rpcx

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/types/known/structpb"
)

func TestRecordFromStruct(t *testing.T) {
	in := Record{ID: "u1", CID: "c1", Type: "user", Body: "enc", LastMod: 1700000000123, Deleted: true}

	got, err := RecordFromStruct(in.Struct())
	require.NoError(t, err)
	assert.Equal(t, in, got)
}

func TestRecordFromStruct_Validation(t *testing.T) {
	tests := []struct {
		name   string
		fields map[string]any
	}{
		{"missing type", map[string]any{"id": "u1"}},
		{"empty type", map[string]any{"type": ""}},
		{"id not string", map[string]any{"type": "user", "id": 5}},
		{"last_mod not number", map[string]any{"type": "user", "last_mod": "soon"}},
		{"deleted not bool", map[string]any{"type": "user", "deleted": "yes"}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			s, err := structpb.NewStruct(tc.fields)
			require.NoError(t, err)

			_, err = RecordFromStruct(s)
			assert.ErrorIs(t, err, ErrBadMessage)
		})
	}
}

func TestAccountFromStruct(t *testing.T) {
	in := Account{ID: "u1", CID: "c1", Body: "enc", LastMod: 42}
	got, err := AccountFromStruct(in.Struct())
	require.NoError(t, err)
	assert.Equal(t, in, got)

	_, err = AccountFromStruct(Empty())
	assert.ErrorIs(t, err, ErrBadMessage)
}

func TestJoinAndDeleteRequests(t *testing.T) {
	auth, err := AuthFromJoinRequest(JoinRequest("tok"))
	require.NoError(t, err)
	assert.Equal(t, "tok", auth)

	_, err = AuthFromJoinRequest(nil)
	assert.ErrorIs(t, err, ErrBadMessage)

	typ, id, err := FromDeleteRequest(DeleteRequest("persona", "p1"))
	require.NoError(t, err)
	assert.Equal(t, "persona", typ)
	assert.Equal(t, "p1", id)

	_, _, err = FromDeleteRequest(DeleteRequest("persona", ""))
	assert.ErrorIs(t, err, ErrBadMessage)
}

func TestSubscribeRequest(t *testing.T) {
	since, err := SinceFromSubscribeRequest(SubscribeRequest(1700000000123))
	require.NoError(t, err)
	assert.Equal(t, int64(1700000000123), since)

	assert.Empty(t, SubscribeRequest(0).GetFields())
	since, err = SinceFromSubscribeRequest(Empty())
	require.NoError(t, err)
	assert.Zero(t, since)

	bad, err := structpb.NewStruct(map[string]any{"last_mod": "later"})
	require.NoError(t, err)
	_, err = SinceFromSubscribeRequest(bad)
	assert.ErrorIs(t, err, ErrBadMessage)
}
