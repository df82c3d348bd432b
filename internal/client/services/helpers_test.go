package services

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/profilekeeper/internal/client/client"
	"github.com/dmitrijs2005/profilekeeper/internal/client/cookie"
	"github.com/dmitrijs2005/profilekeeper/internal/client/events"
	"github.com/dmitrijs2005/profilekeeper/internal/client/ignore"
	"github.com/dmitrijs2005/profilekeeper/internal/client/models"
	"github.com/dmitrijs2005/profilekeeper/internal/cryptox"
	"github.com/dmitrijs2005/profilekeeper/internal/logging"
	"github.com/stretchr/testify/require"
)

// ---- fake client ----

type fakeClient struct {
	mu sync.Mutex

	JoinUser *models.User
	JoinErr  error

	TestAuthErr error
	PushErr     error
	DeleteErr   error

	// Remote is the account record FetchUser returns. Nil means offline.
	Remote   *models.SyncRecord
	FetchErr error

	LastJoinAuth string
	AuthHistory  []string
	Pushed       []models.SyncRecord
	Deleted      []string
	Since        []int64

	Broadcast chan models.SyncRecord

	auth string
}

var _ client.Client = (*fakeClient)(nil)

func (f *fakeClient) Close() error { return nil }

func (f *fakeClient) Join(ctx context.Context, auth string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.LastJoinAuth = auth
	if f.JoinErr != nil {
		return nil, f.JoinErr
	}
	if f.JoinUser != nil {
		u := *f.JoinUser
		return &u, nil
	}
	return &models.User{ID: "u1", Settings: models.NewSettings()}, nil
}

func (f *fakeClient) TestAuth(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.auth == "" {
		return client.ErrNotAuthorized
	}
	return f.TestAuthErr
}

func (f *fakeClient) FetchUser(ctx context.Context) (*models.SyncRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FetchErr != nil {
		return nil, f.FetchErr
	}
	if f.Remote == nil {
		return nil, client.ErrUnavailable
	}
	rec := *f.Remote
	return &rec, nil
}

func (f *fakeClient) PushRecord(ctx context.Context, rec models.SyncRecord) (*models.SyncRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.PushErr != nil {
		return nil, f.PushErr
	}
	f.Pushed = append(f.Pushed, rec)
	return &rec, nil
}

func (f *fakeClient) DeleteRecord(ctx context.Context, recordType, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.DeleteErr != nil {
		return f.DeleteErr
	}
	f.Deleted = append(f.Deleted, recordType+"/"+id)
	return nil
}

func (f *fakeClient) Subscribe(ctx context.Context, since int64) (<-chan models.SyncRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Broadcast == nil {
		return nil, client.ErrUnavailable
	}
	f.Since = append(f.Since, since)
	return f.Broadcast, nil
}

func (f *fakeClient) Ping(ctx context.Context) error { return nil }

func (f *fakeClient) SetAuth(auth string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.auth = auth
	f.AuthHistory = append(f.AuthHistory, auth)
}

func (f *fakeClient) ClearAuth() { f.SetAuth("") }

func (f *fakeClient) setRemote(rec *models.SyncRecord) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Remote = rec
}

func (f *fakeClient) subscribes() []int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int64(nil), f.Since...)
}

func (f *fakeClient) pushed() []models.SyncRecord {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.SyncRecord(nil), f.Pushed...)
}

// ---- environment ----

type env struct {
	t       *testing.T
	repos   *client.Repositories
	fc      *fakeClient
	bus     *events.Bus
	ignore  *ignore.List
	cookies *cookie.MetadataStore
	pusher  *Pusher
	session *Session
	sync    *UserSync

	mu      sync.Mutex
	clock   time.Time
	notices []string
	logins  int
	logouts int
}

var alice = models.Credentials{Username: "alice", Password: "secret"}

func newEnv(t *testing.T) *env {
	t.Helper()

	repos, err := client.InitDatabase(context.Background(), filepath.Join(t.TempDir(), "client.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = repos.Close() })

	e := &env{
		t:     t,
		repos: repos,
		fc:    &fakeClient{},
		bus:   events.NewBus(),
		clock: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	e.ignore = ignore.New()
	e.cookies = cookie.NewMetadataStore(repos.Metadata).WithClock(e.cookieNow)
	e.pusher = NewPusher(e.fc, e.ignore, time.Minute)
	e.session = e.newSession()
	e.sync = NewUserSync(UserSyncDeps{
		Session:  e.session,
		Users:    repos.Users,
		Personas: repos.Personas,
		Metadata: repos.Metadata,
		Client:   e.fc,
		Ignore:   e.ignore,
		Pusher:   e.pusher,
		Bus:      e.bus,
		Logger:   logging.Nop(),
	}).WithClock(e.tick)

	e.bus.Subscribe(events.Notice, "test", func(p any) {
		e.mu.Lock()
		defer e.mu.Unlock()
		e.notices = append(e.notices, p.(string))
	})
	e.bus.Subscribe(events.Login, "test", func(any) {
		e.mu.Lock()
		defer e.mu.Unlock()
		e.logins++
	})
	e.bus.Subscribe(events.Logout, "test", func(any) {
		e.mu.Lock()
		defer e.mu.Unlock()
		e.logouts++
	})
	return e
}

func (e *env) newSession() *Session {
	return NewSession(SessionDeps{
		DB:       e.repos.DB,
		Client:   e.fc,
		Users:    e.repos.Users,
		Personas: e.repos.Personas,
		Cookies:  e.cookies,
		Bus:      e.bus,
		Ignore:   e.ignore,
		Pusher:   e.pusher,
		Logger:   logging.Nop(),
	}, SessionConfig{CookieName: "user", IgnoreTTL: time.Minute}).WithClock(e.tick)
}

// tick advances the clock by a millisecond per call, so every stamp is
// strictly newer than the previous one.
func (e *env) tick() time.Time {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.clock = e.clock.Add(time.Millisecond)
	return e.clock
}

func (e *env) cookieNow() time.Time {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.clock
}

func (e *env) noticeCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.notices)
}

func (e *env) loginCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.logins
}

func (e *env) login() {
	e.t.Helper()
	require.NoError(e.t, e.session.Login(context.Background(), alice, LoginOptions{}))
}

// encryptSettings builds a row body the way another device would.
func (e *env) encryptSettings(values map[string]string) string {
	e.t.Helper()
	return e.encryptSettingsFor(alice, values)
}

func (e *env) encryptSettingsFor(creds models.Credentials, values map[string]string) string {
	e.t.Helper()
	key, err := cryptox.DeriveKey(creds.Password, creds.Username)
	require.NoError(e.t, err)

	s := models.NewSettings()
	for k, v := range values {
		s.Values[k] = v
	}
	plain, err := models.EncodeSettings(s)
	require.NoError(e.t, err)

	body, err := cryptox.Encrypt(key, plain, cryptox.Options{Version: cryptox.FormatGCM})
	require.NoError(e.t, err)
	return body
}
