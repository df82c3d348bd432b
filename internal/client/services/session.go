package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/profilekeeper/internal/client/client"
	"github.com/dmitrijs2005/profilekeeper/internal/client/cookie"
	"github.com/dmitrijs2005/profilekeeper/internal/client/events"
	"github.com/dmitrijs2005/profilekeeper/internal/client/ignore"
	"github.com/dmitrijs2005/profilekeeper/internal/client/models"
	"github.com/dmitrijs2005/profilekeeper/internal/client/repositories/personas"
	"github.com/dmitrijs2005/profilekeeper/internal/client/repositories/users"
	"github.com/dmitrijs2005/profilekeeper/internal/common"
	"github.com/dmitrijs2005/profilekeeper/internal/cryptox"
	"github.com/dmitrijs2005/profilekeeper/internal/dbx"
	"github.com/dmitrijs2005/profilekeeper/internal/logging"
	"github.com/google/uuid"
)

// State is the login state of a Session.
type State int

const (
	StateLoggedOut State = iota
	StateLoggingIn
	StateLoggedIn
)

func (s State) String() string {
	switch s {
	case StateLoggedOut:
		return "logged out"
	case StateLoggingIn:
		return "logging in"
	case StateLoggedIn:
		return "logged in"
	default:
		return "unknown"
	}
}

// Cookie durations in days.
const (
	RememberDays = 30
	SessionDays  = 1
)

// Subscription tags. Logout drops every tag bound to the user session.
const (
	tagJoinAddLocal = "user:join:add_local_record"
	TagSyncOnSave   = "user:save_settings"
)

type LoginOptions struct {
	Remember bool
	Silent   bool
}

type DestroyOptions struct {
	SkipRemoteSync bool
}

type SessionConfig struct {
	CookieName string
	IgnoreTTL  time.Duration
}

type SessionDeps struct {
	// DB makes the logout teardown of owned personas atomic. Without it
	// personas are deleted one by one through Personas.
	DB       *sql.DB
	Client   client.Client
	Users    users.Repository
	Personas personas.Repository
	Cookies  cookie.Store
	Bus      *events.Bus
	Ignore   *ignore.List
	Pusher   *Pusher
	Logger   logging.Logger
}

// Session owns the derived key, the auth token and the in-memory user
// record. At most one Session is active per process.
type Session struct {
	cfg      SessionConfig
	db       *sql.DB
	client   client.Client
	users    users.Repository
	personas personas.Repository
	cookies  cookie.Store
	bus      *events.Bus
	ignore   *ignore.List
	pusher   *Pusher
	log      logging.Logger
	now      func() time.Time

	mu    sync.Mutex
	state State
	creds models.Credentials
	key   []byte
	auth  string
	user  models.User
	// gen changes on every login, logout and credentials change
	gen uint64
}

func NewSession(deps SessionDeps, cfg SessionConfig) *Session {
	if cfg.CookieName == "" {
		cfg.CookieName = "user"
	}
	log := deps.Logger
	if log == nil {
		log = logging.Nop()
	}
	return &Session{
		cfg:      cfg,
		db:       deps.DB,
		client:   deps.Client,
		users:    deps.Users,
		personas: deps.Personas,
		cookies:  deps.Cookies,
		bus:      deps.Bus,
		ignore:   deps.Ignore,
		pusher:   deps.Pusher,
		log:      log.With("module", "session"),
		now:      time.Now,
		user:     models.User{Settings: models.NewSettings()},
	}
}

// WithClock replaces the clock used for last_mod stamps.
func (s *Session) WithClock(now func() time.Time) *Session {
	s.now = now
	return s
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) LoggedIn() bool {
	return s.State() == StateLoggedIn
}

// User returns a copy of the in-memory user record.
func (s *Session) User() models.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.user
	u.Settings = s.user.Settings.Clone()
	return u
}

func (s *Session) UserID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.user.ID
}

func (s *Session) SetLastBoard(board string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user.LastBoard = board
}

// SetCredentials sets the username and password the key and auth token are
// derived from. Cached material from earlier credentials is dropped.
func (s *Session) SetCredentials(creds models.Credentials) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setCredentialsLocked(creds)
}

func (s *Session) setCredentialsLocked(creds models.Credentials) {
	if s.creds != creds {
		common.WipeByteArray(s.key)
		s.key = nil
		s.auth = ""
		s.gen++
	}
	s.creds = creds
}

// Key returns a copy of the derived key, deriving and caching it on first
// use.
func (s *Session) Key() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key, err := s.keyLocked()
	if err != nil {
		return nil, err
	}
	return append([]byte(nil), key...), nil
}

func (s *Session) keyLocked() ([]byte, error) {
	if s.key != nil {
		return s.key, nil
	}
	key, err := cryptox.DeriveKey(s.creds.Password, s.creds.Username)
	if err != nil {
		return nil, err
	}
	s.key = key
	return key, nil
}

// Auth returns the auth token, computing and caching it on first use.
func (s *Session) Auth() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.authLocked()
}

func (s *Session) authLocked() (string, error) {
	if s.auth != "" {
		return s.auth, nil
	}
	if s.creds.Empty() {
		return "", ErrMissingCredentials
	}
	key, err := s.keyLocked()
	if err != nil {
		return "", err
	}
	auth, err := cryptox.EncodeAuthToken(s.creds.Password, s.creds.Username, key)
	if err != nil {
		return "", err
	}
	s.auth = auth
	return auth, nil
}

// Login derives the session material from creds, drops the plaintext
// credentials, learns the account id when the API is reachable and writes
// the session cookie.
func (s *Session) Login(ctx context.Context, creds models.Credentials, opts LoginOptions) error {
	s.mu.Lock()
	s.state = StateLoggingIn
	s.setCredentialsLocked(creds)
	if _, err := s.authLocked(); err != nil {
		s.state = StateLoggedOut
		s.creds = models.Credentials{}
		s.mu.Unlock()
		return err
	}
	s.creds = models.Credentials{}
	s.state = StateLoggedIn
	s.gen++
	s.mu.Unlock()

	if err := s.ResolveIdentity(ctx); err != nil {
		s.log.Debug(ctx, "user id not resolved", "error", err)
	}
	if err := s.dropForeignRow(ctx); err != nil {
		s.log.Warn(ctx, "check local user row", "error", err)
	}

	days := SessionDays
	if opts.Remember {
		days = RememberDays
	}
	if err := s.WriteCookie(ctx, days); err != nil {
		s.log.Warn(ctx, "write session cookie", "error", err)
		s.notice("Could not remember your session: " + err.Error())
	}

	s.log.Info(ctx, "logged in", "remember", opts.Remember)
	if !opts.Silent {
		s.bus.Emit(events.Login, s)
	}
	return nil
}

// LoginFromAuth adopts a server-issued auth bundle without deriving.
func (s *Session) LoginFromAuth(ctx context.Context, auth *models.ServerAuth) error {
	if auth == nil {
		return ErrNoAuth
	}
	key, err := cryptox.KeyFromString(auth.Key)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.creds = models.Credentials{}
	s.user.ID = auth.UID
	s.auth = auth.Auth
	s.key = key
	s.state = StateLoggedIn
	s.gen++
	s.mu.Unlock()

	s.log.Info(ctx, "logged in from server auth", "id", auth.UID)
	s.bus.Emit(events.Login, s)
	return nil
}

// LoginFromCookie restores the session from the session cookie. It returns
// ErrNoSession when none is stored.
func (s *Session) LoginFromCookie(ctx context.Context) error {
	raw, err := s.cookies.Read(ctx, s.cfg.CookieName)
	if errors.Is(err, cookie.ErrNotFound) {
		return ErrNoSession
	}
	if err != nil {
		return fmt.Errorf("read session cookie: %w", err)
	}

	b, err := cookie.DecodeBundle(raw)
	if err != nil {
		return err
	}
	key, err := cryptox.KeyFromString(b.Key)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.creds = models.Credentials{}
	s.key = key
	s.auth = b.Auth
	s.user.ID = b.ID
	s.user.LastBoard = b.LastBoard
	s.state = StateLoggedIn
	s.gen++
	s.mu.Unlock()

	if b.ID == "" {
		if err := s.ResolveIdentity(ctx); err != nil {
			s.log.Debug(ctx, "user id not resolved", "error", err)
		}
	}

	s.log.Info(ctx, "session restored", "id", s.UserID())
	s.bus.Emit(events.Login, s)
	return nil
}

// WriteCookie stores the session bundle for days.
func (s *Session) WriteCookie(ctx context.Context, days int) error {
	s.mu.Lock()
	key, err := s.keyLocked()
	if err != nil {
		s.mu.Unlock()
		return err
	}
	auth, err := s.authLocked()
	if err != nil {
		s.mu.Unlock()
		return err
	}
	b := cookie.Bundle{
		ID:        s.user.ID,
		Key:       cryptox.KeyToString(key),
		Auth:      auth,
		LastBoard: s.user.LastBoard,
	}
	s.mu.Unlock()

	value, err := cookie.EncodeBundle(b)
	if err != nil {
		return err
	}
	return s.cookies.Write(ctx, s.cfg.CookieName, value, days)
}

// Logout clears the session material and the in-memory record, disposes the
// cookie and destroys owned personas locally. Nothing is deleted remotely.
func (s *Session) Logout(ctx context.Context) error {
	s.mu.Lock()
	userID := s.user.ID
	common.WipeByteArray(s.key)
	s.key = nil
	s.auth = ""
	s.creds = models.Credentials{}
	s.state = StateLoggedOut
	s.user = models.User{Settings: models.NewSettings()}
	s.gen++
	s.mu.Unlock()

	var errs []error
	if err := s.cookies.Dispose(ctx, s.cfg.CookieName); err != nil {
		errs = append(errs, fmt.Errorf("dispose session cookie: %w", err))
	}

	s.bus.Unsubscribe(events.Saved, TagSyncOnSave)
	s.bus.Unsubscribe(events.Login, tagJoinAddLocal)

	if userID != "" {
		if err := s.destroyOwnedPersonas(ctx, userID); err != nil {
			errs = append(errs, err)
		}
	}
	s.ignore.Clear()

	s.log.Info(ctx, "logged out", "id", userID)
	s.bus.Emit(events.Logout, s)
	return errors.Join(errs...)
}

// destroyOwnedPersonas deletes the user's personas locally in one
// transaction. Nothing is deleted remotely.
func (s *Session) destroyOwnedPersonas(ctx context.Context, userID string) error {
	if s.db == nil {
		owned, err := s.personas.ListByUser(ctx, userID)
		if err != nil {
			return err
		}
		var errs []error
		for _, p := range owned {
			if err := s.DestroyPersona(ctx, p.ID, DestroyOptions{SkipRemoteSync: true}); err != nil {
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	}

	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := personas.NewSQLiteRepository(tx)
		owned, err := repo.ListByUser(ctx, userID)
		if err != nil {
			return err
		}
		for _, p := range owned {
			if err := repo.Delete(ctx, p.ID); err != nil {
				return err
			}
		}
		return nil
	})
}

// ResolveIdentity asks the API which account the auth token belongs to and
// adopts its id and stored record. It is a no-op once the id is known.
func (s *Session) ResolveIdentity(ctx context.Context) error {
	s.mu.Lock()
	if s.state != StateLoggedIn {
		s.mu.Unlock()
		return ErrNotLoggedIn
	}
	if s.user.ID != "" {
		s.mu.Unlock()
		return nil
	}
	gen := s.gen
	auth := s.auth
	s.mu.Unlock()

	rec, err := s.client.FetchUser(client.WithAuth(ctx, auth))
	if err != nil {
		return fmt.Errorf("fetch user: %w", err)
	}
	if rec.ID == "" {
		return fmt.Errorf("fetch user: %w", ErrNoAccountID)
	}
	return s.adopt(ctx, gen, *rec)
}

// adopt reconciles the local row with the account record rec. Pending local
// edits of this account are kept and re-keyed to rec.ID; otherwise a stored
// remote record replaces the local row. A row of any other account is
// dropped.
func (s *Session) adopt(ctx context.Context, gen uint64, rec models.SyncRecord) error {
	local, err := s.users.Get(ctx)
	if err != nil {
		return fmt.Errorf("read local user row: %w", err)
	}

	var row *models.UserRow
	switch {
	case local != nil && local.LocalChange && (local.ID == "" || local.ID == rec.ID):
		r := *local
		r.ID = rec.ID
		row = &r
	case rec.Body != "":
		r := models.UserRowFromRecord(rec)
		r.LastMod = s.now().UnixMilli()
		row = &r
	case local != nil && local.ID != rec.ID:
		if err := s.users.Delete(ctx); err != nil {
			return fmt.Errorf("drop local user row: %w", err)
		}
		s.log.Info(ctx, "dropped user row of another account", "id", local.ID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateLoggedIn || s.gen != gen {
		return ErrNotLoggedIn
	}
	if row == nil {
		s.user.ID = rec.ID
		return nil
	}

	s.ignore.Add(ignore.Local, s.cfg.IgnoreTTL, row.ID)
	if err := s.users.Upsert(ctx, *row); err != nil {
		s.ignore.Remove(ignore.Local, row.ID)
		return err
	}
	if err := s.applyLocked(*row); err != nil {
		return err
	}
	s.log.Debug(ctx, "user: api -> mem", "id", row.ID, "pending", row.LocalChange)
	return nil
}

// dropForeignRow deletes a local row that belongs to another account: its
// id differs from the session's or its body does not open under the
// session key.
func (s *Session) dropForeignRow(ctx context.Context) error {
	row, err := s.users.Get(ctx)
	if err != nil || row == nil {
		return err
	}

	id := s.UserID()
	foreign := id != "" && row.ID != "" && row.ID != id
	if !foreign && row.Body != "" {
		key, err := s.Key()
		if err != nil {
			return err
		}
		_, err = cryptox.Decrypt(key, row.Body)
		common.WipeByteArray(key)
		foreign = err != nil
	}
	if !foreign {
		return nil
	}

	if err := s.users.Delete(ctx); err != nil {
		return fmt.Errorf("drop local user row: %w", err)
	}
	s.log.Info(ctx, "dropped user row of another account", "id", row.ID)
	return nil
}

// Join creates the account for creds. The first local save of the new user
// record is deferred until the next login.
func (s *Session) Join(ctx context.Context, creds models.Credentials) (*models.User, error) {
	s.SetCredentials(creds)
	auth, err := s.Auth()
	if err != nil {
		return nil, err
	}

	u, err := s.client.Join(ctx, auth)
	if err != nil {
		s.log.Error(ctx, "join failed", "error", err)
		s.notice("Error adding user: " + err.Error())
		return nil, err
	}

	s.mu.Lock()
	s.user.ID = u.ID
	s.user.LastMod = u.LastMod
	s.mu.Unlock()

	saveCtx := context.WithoutCancel(ctx)
	s.bus.Subscribe(events.Login, tagJoinAddLocal, func(any) {
		s.bus.Unsubscribe(events.Login, tagJoinAddLocal)
		if err := s.SaveSettings(saveCtx); err != nil {
			s.log.Error(saveCtx, "save new user record", "error", err)
		}
	})

	s.log.Info(ctx, "account created", "id", u.ID)
	return u, nil
}

// TestAuth checks the current auth token against the API.
func (s *Session) TestAuth(ctx context.Context) error {
	auth, err := s.Auth()
	if err != nil {
		return err
	}

	s.client.SetAuth(auth)
	defer s.client.ClearAuth()

	if err := s.client.TestAuth(ctx); err != nil {
		s.notice("Auth check failed: " + err.Error())
		return err
	}
	return nil
}

func (s *Session) AddUserKey(ctx context.Context, itemID string, key []byte) error {
	if itemID == "" || len(key) == 0 {
		return ErrInvalidArgument
	}
	s.mu.Lock()
	s.user.Settings.Keys[itemID] = cryptox.KeyToString(key)
	s.mu.Unlock()

	return s.SaveSettings(ctx)
}

func (s *Session) RemoveUserKey(ctx context.Context, itemID string) error {
	if itemID == "" {
		return ErrInvalidArgument
	}
	s.mu.Lock()
	delete(s.user.Settings.Keys, itemID)
	s.mu.Unlock()

	return s.SaveSettings(ctx)
}

// FindUserKey returns the key stored for itemID or ErrKeyNotFound.
func (s *Session) FindUserKey(itemID string) ([]byte, error) {
	if itemID == "" {
		return nil, ErrKeyNotFound
	}
	s.mu.Lock()
	enc, ok := s.user.Settings.Keys[itemID]
	s.mu.Unlock()

	if !ok || enc == "" {
		return nil, ErrKeyNotFound
	}
	return cryptox.KeyFromString(enc)
}

// SetValue stores a free-form setting and saves.
func (s *Session) SetValue(ctx context.Context, name, value string) error {
	if name == "" {
		return ErrInvalidArgument
	}
	s.mu.Lock()
	if value == "" {
		delete(s.user.Settings.Values, name)
	} else {
		s.user.Settings.Values[name] = value
	}
	s.mu.Unlock()

	return s.SaveSettings(ctx)
}

// SaveSettings encrypts the settings and writes the user row marked dirty.
// The id goes on the Local ignore list so the store->memory pass skips
// this write.
func (s *Session) SaveSettings(ctx context.Context) error {
	err := s.saveSettings(ctx)
	if err != nil {
		s.log.Error(ctx, "save settings", "error", err)
		s.notice("There was an error saving your user settings: " + err.Error())
	}
	return err
}

func (s *Session) saveSettings(ctx context.Context) error {
	s.mu.Lock()
	if s.state != StateLoggedIn {
		s.mu.Unlock()
		return ErrNotLoggedIn
	}
	k, err := s.keyLocked()
	if err != nil {
		s.mu.Unlock()
		return err
	}
	key := append([]byte(nil), k...)
	defer common.WipeByteArray(key)
	gen := s.gen
	if s.user.CID == "" {
		s.user.CID = uuid.NewString()
	}
	settings := s.user.Settings.Clone()
	row := models.UserRow{
		Key:         models.UserKey,
		ID:          s.user.ID,
		CID:         s.user.CID,
		LastMod:     s.now().UnixMilli(),
		LocalChange: true,
	}
	s.mu.Unlock()

	plain, err := models.EncodeSettings(settings)
	if err != nil {
		return err
	}
	row.Body, err = cryptox.Encrypt(key, plain, cryptox.Options{Version: cryptox.FormatGCM})
	if err != nil {
		return err
	}

	// the session may have ended while encrypting
	s.mu.Lock()
	if s.state != StateLoggedIn || s.gen != gen {
		s.mu.Unlock()
		return ErrNotLoggedIn
	}
	s.ignore.Add(ignore.Local, s.cfg.IgnoreTTL, row.ID)
	if err := s.users.Upsert(ctx, row); err != nil {
		s.ignore.Remove(ignore.Local, row.ID)
		s.mu.Unlock()
		return err
	}
	s.user.LastMod = row.LastMod
	s.user.LocalChange = true
	s.mu.Unlock()

	s.log.Debug(ctx, "user: mem -> db", "keys", len(settings.Keys))
	s.bus.Emit(events.Saved, row)
	return nil
}

// Apply adopts a local store row into memory. It is a no-op when logged
// out. A row that cannot be decrypted leaves memory unchanged.
func (s *Session) Apply(row models.UserRow) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateLoggedIn {
		return nil
	}
	return s.applyLocked(row)
}

func (s *Session) applyLocked(row models.UserRow) error {
	key, err := s.keyLocked()
	if err != nil {
		return err
	}

	settings := models.NewSettings()
	if row.Body != "" {
		plain, err := cryptox.Decrypt(key, row.Body)
		if err != nil {
			return fmt.Errorf("decrypt user settings: %w", err)
		}
		if settings, err = models.DecodeSettings(plain); err != nil {
			return err
		}
	}

	s.user.ID = row.ID
	s.user.CID = row.CID
	s.user.Settings = settings
	s.user.LastMod = row.LastMod
	s.user.LocalChange = row.LocalChange
	return nil
}

// AddPersona creates a persona owned by the user, stores it and pushes it.
func (s *Session) AddPersona(ctx context.Context, name, email string) (models.Persona, error) {
	if name == "" {
		return models.Persona{}, ErrInvalidArgument
	}
	s.mu.Lock()
	if s.state != StateLoggedIn {
		s.mu.Unlock()
		return models.Persona{}, ErrNotLoggedIn
	}
	p := models.Persona{
		ID:      uuid.NewString(),
		UserID:  s.user.ID,
		Name:    name,
		Email:   email,
		LastMod: s.now().UnixMilli(),
	}
	auth := s.auth
	s.mu.Unlock()

	if err := s.personas.Upsert(ctx, p); err != nil {
		s.notice("Problem saving persona: " + err.Error())
		return models.Persona{}, err
	}

	rec, err := p.Record(common.PersonaRecordType)
	if err != nil {
		return models.Persona{}, err
	}
	if _, err := s.pusher.Push(client.WithAuth(ctx, auth), rec); err != nil {
		s.notice("Problem syncing persona remotely: " + err.Error())
		return p, err
	}
	return p, nil
}

// Personas lists the personas owned by the user.
func (s *Session) Personas(ctx context.Context) ([]models.Persona, error) {
	id := s.UserID()
	if id == "" {
		return nil, nil
	}
	return s.personas.ListByUser(ctx, id)
}

// DestroyPersona deletes a persona locally and, unless SkipRemoteSync is
// set, remotely.
func (s *Session) DestroyPersona(ctx context.Context, id string, opts DestroyOptions) error {
	if err := s.personas.Delete(ctx, id); err != nil {
		return err
	}
	if opts.SkipRemoteSync {
		return nil
	}

	auth, err := s.Auth()
	if err != nil {
		return err
	}
	if err := s.pusher.Delete(client.WithAuth(ctx, auth), common.PersonaRecordType, id); err != nil {
		s.notice("Problem deleting persona remotely: " + err.Error())
		return err
	}
	return nil
}

func (s *Session) notice(msg string) {
	s.bus.Emit(events.Notice, msg)
}
