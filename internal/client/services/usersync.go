package services

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/dmitrijs2005/profilekeeper/internal/client/client"
	"github.com/dmitrijs2005/profilekeeper/internal/client/events"
	"github.com/dmitrijs2005/profilekeeper/internal/client/ignore"
	"github.com/dmitrijs2005/profilekeeper/internal/client/models"
	"github.com/dmitrijs2005/profilekeeper/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/profilekeeper/internal/client/repositories/personas"
	"github.com/dmitrijs2005/profilekeeper/internal/client/repositories/users"
	"github.com/dmitrijs2005/profilekeeper/internal/common"
	"github.com/dmitrijs2005/profilekeeper/internal/logging"
)

const (
	tagSyncBind  = "sync:bind"
	tagSyncReset = "sync:reset"
	tagWatch     = "sync:watch:"
)

type UserSyncDeps struct {
	Session  *Session
	Users    users.Repository
	Personas personas.Repository
	Metadata metadata.Repository
	Client   client.Client
	Ignore   *ignore.List
	Pusher   *Pusher
	Bus      *events.Bus
	Logger   logging.Logger
}

// UserSync reconciles the user record in three independent directions:
// store->memory (SyncFromDB), store->API (SyncToAPI) and API->store
// (SyncFromAPI). Each pass is safe to run at any time; stale and echoed
// records are dropped as successful no-ops.
type UserSync struct {
	session  *Session
	users    users.Repository
	personas personas.Repository
	meta     metadata.Repository
	client   client.Client
	ignore   *ignore.List
	pusher   *Pusher
	bus      *events.Bus
	log      logging.Logger
	now      func() time.Time

	// kick wakes Run after a local save
	kick chan struct{}

	// since is the newest broadcast last_mod seen, replayed from on
	// resubscribe
	since   atomic.Int64
	watches atomic.Uint64
}

func NewUserSync(deps UserSyncDeps) *UserSync {
	log := deps.Logger
	if log == nil {
		log = logging.Nop()
	}
	u := &UserSync{
		session:  deps.Session,
		users:    deps.Users,
		personas: deps.Personas,
		meta:     deps.Metadata,
		client:   deps.Client,
		ignore:   deps.Ignore,
		pusher:   deps.Pusher,
		bus:      deps.Bus,
		log:      log.With("module", "usersync"),
		now:      time.Now,
		kick:     make(chan struct{}, 1),
	}

	deps.Bus.Subscribe(events.Login, tagSyncBind, func(any) { u.Bind() })
	deps.Bus.Subscribe(events.Logout, tagSyncReset, func(any) { u.since.Store(0) })
	return u
}

// WithClock replaces the clock used for last_mod stamps and watermarks.
func (u *UserSync) WithClock(now func() time.Time) *UserSync {
	u.now = now
	return u
}

// Bind subscribes to local saves so Run pushes without waiting for the next
// tick. Logout removes the subscription.
func (u *UserSync) Bind() {
	u.bus.Subscribe(events.Saved, TagSyncOnSave, func(any) {
		select {
		case u.kick <- struct{}{}:
		default:
		}
	})
}

// SyncFromDB adopts the local user row into memory if it is at least as new
// as lastLocalSync and is not the echo of our own save.
func (u *UserSync) SyncFromDB(ctx context.Context, lastLocalSync int64) error {
	row, err := u.users.SinceLastMod(ctx, lastLocalSync)
	if err != nil {
		u.log.Error(ctx, "user.sync_from_db", "error", err)
		u.notice("Problem syncing user record locally: " + err.Error())
		return fmt.Errorf("sync from db: %w", err)
	}
	if row == nil {
		return nil
	}
	if u.ignore.ShouldIgnore(ignore.Local, row.ID) {
		return nil
	}
	if row.LastMod < lastLocalSync {
		return nil
	}
	if !u.session.LoggedIn() {
		return nil
	}
	if id := u.session.UserID(); id != "" && row.ID != "" && row.ID != id {
		return nil
	}

	if err := u.session.Apply(*row); err != nil {
		u.log.Error(ctx, "apply user row", "error", err)
		u.notice("Problem syncing user record locally: " + err.Error())
		return fmt.Errorf("sync from db: %w", err)
	}
	u.log.Debug(ctx, "user: db -> mem", "id", row.ID, "last_mod", row.LastMod)
	return nil
}

// SyncToAPI claims the dirty flag and pushes the row. A failed push marks the
// row dirty again so the next pass retries it. A row is held back until the
// account id is known.
func (u *UserSync) SyncToAPI(ctx context.Context) error {
	if !u.session.LoggedIn() {
		return nil
	}
	if u.session.UserID() == "" {
		if err := u.session.ResolveIdentity(ctx); err != nil {
			u.log.Debug(ctx, "user id not resolved", "error", err)
		}
	}
	id := u.session.UserID()

	row, err := u.users.ClaimLocalChange(ctx)
	if err != nil {
		u.log.Error(ctx, "user.sync_to_api", "error", err)
		u.notice("Problem syncing user record remotely: " + err.Error())
		return fmt.Errorf("sync to api: %w", err)
	}
	if row == nil {
		return nil
	}
	if row.ID == "" {
		row.ID = id
	}
	if row.ID == "" || (id != "" && row.ID != id) {
		u.log.Debug(ctx, "user push held", "row_id", row.ID, "id", id)
		return u.users.MarkLocalChange(ctx)
	}

	auth, err := u.session.Auth()
	if err == nil {
		u.log.Debug(ctx, "user: db -> api", "id", row.ID)
		_, err = u.pusher.Push(client.WithAuth(ctx, auth), models.RecordFromUserRow(*row, common.UserRecordType))
	}
	if err != nil {
		if merr := u.users.MarkLocalChange(ctx); merr != nil {
			err = errors.Join(err, merr)
		}
		u.log.Error(ctx, "user.sync_to_api", "error", err)
		u.notice("Problem syncing user record remotely: " + err.Error())
		return fmt.Errorf("sync to api: %w", err)
	}
	return nil
}

// SyncFromAPI writes a remote user change to the local store unless it is
// the echo of our own push or belongs to another account.
func (u *UserSync) SyncFromAPI(ctx context.Context, rec models.SyncRecord) error {
	if u.ignore.ShouldIgnore(ignore.Remote, rec.ID, rec.CID) {
		return nil
	}
	if !u.session.LoggedIn() || rec.ID != u.session.UserID() {
		return nil
	}

	row := models.UserRowFromRecord(rec)
	row.Key = models.UserKey
	row.LastMod = u.now().UnixMilli()

	u.log.Debug(ctx, "user: api -> db", "id", rec.ID)
	if err := u.users.Upsert(ctx, row); err != nil {
		u.notice("Problem syncing user record locally: " + err.Error())
		return fmt.Errorf("sync from api: %w", err)
	}
	return nil
}

// syncPersonaFromAPI applies a broadcast persona change locally.
func (u *UserSync) syncPersonaFromAPI(ctx context.Context, rec models.SyncRecord) error {
	if u.ignore.ShouldIgnore(ignore.Remote, rec.ID, rec.CID) {
		return nil
	}
	userID := u.session.UserID()
	if !u.session.LoggedIn() || userID == "" {
		return nil
	}

	if rec.Deleted {
		return u.personas.Delete(ctx, rec.ID)
	}
	p, err := models.PersonaFromRecord(rec, userID)
	if err != nil {
		return err
	}
	p.LastMod = u.now().UnixMilli()
	return u.personas.Upsert(ctx, p)
}

// Dispatch applies one broadcast record by type.
func (u *UserSync) Dispatch(ctx context.Context, rec models.SyncRecord) error {
	switch rec.Type {
	case common.UserRecordType:
		return u.SyncFromAPI(ctx, rec)
	case common.PersonaRecordType:
		return u.syncPersonaFromAPI(ctx, rec)
	default:
		u.log.Debug(ctx, "skip broadcast", "type", rec.Type, "id", rec.ID)
		return nil
	}
}

// Watch consumes the broadcast stream until ctx is done, the stream ends or
// the session logs out. It resubscribes from the newest last_mod it has
// seen, so changes made while disconnected are replayed.
func (u *UserSync) Watch(ctx context.Context) error {
	auth, err := u.session.Auth()
	if err != nil {
		return err
	}
	owner := u.session.UserID()
	if owner == "" {
		if err := u.session.ResolveIdentity(ctx); err != nil {
			return fmt.Errorf("subscribe: %w", err)
		}
		owner = u.session.UserID()
	}

	wctx, cancel := context.WithCancel(ctx)
	defer cancel()

	tag := fmt.Sprintf("%s%d", tagWatch, u.watches.Add(1))
	u.bus.Subscribe(events.Logout, tag, func(any) { cancel() })
	defer u.bus.Unsubscribe(events.Logout, tag)

	if !u.session.LoggedIn() || u.session.UserID() != owner {
		return ErrNotLoggedIn
	}

	ch, err := u.client.Subscribe(client.WithAuth(wctx, auth), u.since.Load())
	if err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}

	for {
		select {
		case <-wctx.Done():
			return u.watchEnded(ctx)
		case rec, ok := <-ch:
			if !ok {
				if wctx.Err() != nil {
					return u.watchEnded(ctx)
				}
				return client.ErrUnavailable
			}
			if !u.session.LoggedIn() || u.session.UserID() != owner {
				return ErrNotLoggedIn
			}
			if err := u.Dispatch(wctx, rec); err != nil {
				u.log.Warn(ctx, "apply broadcast", "type", rec.Type, "id", rec.ID, "error", err)
			}
			u.advanceSince(rec.LastMod)
		}
	}
}

func (u *UserSync) watchEnded(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return ErrNotLoggedIn
}

func (u *UserSync) advanceSince(lastMod int64) {
	for {
		cur := u.since.Load()
		if lastMod <= cur || u.since.CompareAndSwap(cur, lastMod) {
			return
		}
	}
}

// SyncOnce runs SyncToAPI, then SyncFromDB with the persisted watermark, and
// advances the watermark to the start of the pass.
func (u *UserSync) SyncOnce(ctx context.Context) error {
	if !u.session.LoggedIn() {
		return nil
	}

	var errs []error
	if err := u.SyncToAPI(ctx); err != nil {
		errs = append(errs, err)
	}

	start := u.now().UnixMilli()
	wm, err := u.meta.GetInt64(ctx, metadata.KeyLastLocalSync)
	if err != nil {
		return errors.Join(append(errs, err)...)
	}
	if err := u.SyncFromDB(ctx, wm); err != nil {
		return errors.Join(append(errs, err)...)
	}
	if err := u.meta.SetInt64(ctx, metadata.KeyLastLocalSync, start); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Run calls SyncOnce every interval and after each local save, until ctx is
// done. Pass errors are logged, not returned.
func (u *UserSync) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		case <-u.kick:
		}
		if err := u.SyncOnce(ctx); err != nil {
			u.log.Warn(ctx, "sync pass failed", "error", err)
		}
	}
}

func (u *UserSync) notice(msg string) {
	u.bus.Emit(events.Notice, msg)
}
