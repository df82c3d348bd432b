package cli

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/profilekeeper/internal/client/client"
	"github.com/dmitrijs2005/profilekeeper/internal/client/config"
	"github.com/dmitrijs2005/profilekeeper/internal/client/models"
	"github.com/dmitrijs2005/profilekeeper/internal/logging"
	"github.com/stretchr/testify/require"
)

type fakeAPI struct {
	mu      sync.Mutex
	pingErr error
	joinErr error
	authErr error
	auth    string
	pushed  []models.SyncRecord
	deleted []string
}

var _ client.Client = (*fakeAPI)(nil)

func (f *fakeAPI) Close() error { return nil }
func (f *fakeAPI) Join(ctx context.Context, auth string) (*models.User, error) {
	if f.joinErr != nil {
		return nil, f.joinErr
	}
	return &models.User{ID: "u1", Settings: models.NewSettings()}, nil
}
func (f *fakeAPI) TestAuth(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.auth == "" {
		return client.ErrNotAuthorized
	}
	return f.authErr
}
func (f *fakeAPI) PushRecord(ctx context.Context, rec models.SyncRecord) (*models.SyncRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pushed = append(f.pushed, rec)
	return &rec, nil
}
func (f *fakeAPI) DeleteRecord(ctx context.Context, recordType, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, recordType+"/"+id)
	return nil
}
func (f *fakeAPI) FetchUser(ctx context.Context) (*models.SyncRecord, error) {
	return nil, client.ErrUnavailable
}
func (f *fakeAPI) Subscribe(ctx context.Context, since int64) (<-chan models.SyncRecord, error) {
	return nil, client.ErrUnavailable
}
func (f *fakeAPI) Ping(ctx context.Context) error { return f.pingErr }
func (f *fakeAPI) SetAuth(auth string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.auth = auth
}
func (f *fakeAPI) ClearAuth() { f.SetAuth("") }

func (f *fakeAPI) pushCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.pushed)
}

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.SyncInterval = time.Hour
	cfg.IgnoreTTL = time.Minute
	return cfg
}

// newTestApp builds an App over a fresh SQLite file. input feeds the
// prompts; the returned buffer collects everything printed.
func newTestApp(t *testing.T, dbPath string, api *fakeAPI, input string) (*App, *bytes.Buffer) {
	t.Helper()
	if dbPath == "" {
		dbPath = filepath.Join(t.TempDir(), "profile.db")
	}
	repos, err := client.InitDatabase(context.Background(), dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = repos.Close() })

	var out bytes.Buffer
	a := newApp(testConfig(), repos, api, logging.Nop(), bufio.NewReader(strings.NewReader(input)), &out)
	return a, &out
}

// stubPassword makes every password prompt answer pw.
func stubPassword(t *testing.T, pw string) {
	t.Helper()
	orig := getPassword
	getPassword = func(_ io.Writer) ([]byte, error) { return []byte(pw), nil }
	t.Cleanup(func() { getPassword = orig })
}
