package cli

import (
	"context"
	"testing"

	"github.com/dmitrijs2005/profilekeeper/internal/client/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loggedInApp(t *testing.T, api *fakeAPI, input string) (*App, func() string) {
	t.Helper()
	stubPassword(t, "secret")
	a, out := newTestApp(t, "", api, "alice\n"+input)
	require.NoError(t, a.Join(context.Background()))
	out.Reset()
	return a, func() string {
		s := out.String()
		out.Reset()
		return s
	}
}

func TestKeyCommands(t *testing.T) {
	a, output := loggedInApp(t, &fakeAPI{}, "")
	ctx := context.Background()

	require.NoError(t, a.AddKey(ctx, []string{"item1", "k-one"}))
	assert.Contains(t, output(), "Key saved")

	require.NoError(t, a.FindKey(ctx, []string{"item1"}))
	assert.Equal(t, "k-one\n", output())

	require.NoError(t, a.RemoveKey(ctx, []string{"item1"}))
	assert.Contains(t, output(), "Key removed")

	err := a.FindKey(ctx, []string{"item1"})
	require.ErrorIs(t, err, services.ErrKeyNotFound)
	assert.Contains(t, output(), "No key for item1")
}

func TestAddKey_PromptsForMissingArgs(t *testing.T) {
	a, _ := loggedInApp(t, &fakeAPI{}, "item2\nk-two\n")
	ctx := context.Background()

	require.NoError(t, a.AddKey(ctx, nil))

	key, err := a.session.FindUserKey("item2")
	require.NoError(t, err)
	assert.Equal(t, []byte("k-two"), key)
}

func TestSet_MarksRowDirty(t *testing.T) {
	a, output := loggedInApp(t, &fakeAPI{}, "")
	ctx := context.Background()

	require.NoError(t, a.Set(ctx, []string{"theme", "dark"}))
	assert.Contains(t, output(), "Saved")
	assert.Equal(t, "dark", a.session.User().Settings.Values["theme"])

	row, err := a.repos.Users.Get(ctx)
	require.NoError(t, err)
	assert.True(t, row.LocalChange)
}

func TestSync_PushesPendingRow(t *testing.T) {
	api := &fakeAPI{}
	a, output := loggedInApp(t, api, "")
	ctx := context.Background()

	require.NoError(t, a.Set(ctx, []string{"theme", "dark"}))
	require.NoError(t, a.Sync(ctx))

	assert.Contains(t, output(), "Synced")
	assert.Equal(t, 1, api.pushCount())

	row, err := a.repos.Users.Get(ctx)
	require.NoError(t, err)
	assert.False(t, row.LocalChange)
}

func TestPersonaCommands(t *testing.T) {
	api := &fakeAPI{}
	a, output := loggedInApp(t, api, "")
	ctx := context.Background()

	require.NoError(t, a.Persona(ctx, []string{"add", "Work", "w@example.org"}))
	assert.Contains(t, output(), "added")

	list, err := a.session.Personas(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)

	require.NoError(t, a.Persona(ctx, []string{"list"}))
	assert.Contains(t, output(), "Work <w@example.org>")

	require.NoError(t, a.Persona(ctx, []string{"rm", list[0].ID}))
	assert.Contains(t, output(), "Persona removed")
	assert.Equal(t, []string{"persona/" + list[0].ID}, api.deleted)

	require.NoError(t, a.Persona(ctx, []string{"list"}))
	assert.Contains(t, output(), "No personas")

	assert.ErrorIs(t, a.Persona(ctx, nil), errUsage)
	assert.ErrorIs(t, a.Persona(ctx, []string{"rename"}), errUsage)
}
