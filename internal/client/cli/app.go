package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/dmitrijs2005/profilekeeper/internal/client/client"
	"github.com/dmitrijs2005/profilekeeper/internal/client/config"
	"github.com/dmitrijs2005/profilekeeper/internal/client/cookie"
	"github.com/dmitrijs2005/profilekeeper/internal/client/events"
	"github.com/dmitrijs2005/profilekeeper/internal/client/ignore"
	"github.com/dmitrijs2005/profilekeeper/internal/client/services"
	"github.com/dmitrijs2005/profilekeeper/internal/filex"
	"github.com/dmitrijs2005/profilekeeper/internal/logging"
)

type Mode string

const (
	ModeOffline Mode = "offline"
	ModeOnline  Mode = "online"
)

const (
	tagNoticePrinter = "cli:notice"
	pingTimeout      = 3 * time.Second
)

type App struct {
	config  *config.Config
	repos   *client.Repositories
	api     client.Client
	bus     *events.Bus
	session *services.Session
	sync    *services.UserSync
	log     logging.Logger
	reader  *bufio.Reader
	out     io.Writer

	mu   sync.Mutex
	mode Mode
}

// NewApp opens the local database, dials the server and wires the session
// and reconciler around them.
func NewApp(c *config.Config) (*App, error) {
	ctx := context.Background()
	log := logging.New(os.Stderr, c.LogLevel, c.LogFormat)

	if err := filex.EnsureParentDir(c.DatabasePath); err != nil {
		return nil, err
	}

	repos, err := client.InitDatabase(ctx, c.DatabasePath)
	if err != nil {
		log.Error(ctx, "error initializing database", "error", err)
		return nil, err
	}

	apiClient, err := client.NewGRPCClient(c.ServerEndpointAddr)
	if err != nil {
		_ = repos.Close()
		return nil, err
	}

	return newApp(c, repos, apiClient, log, bufio.NewReader(os.Stdin), os.Stdout), nil
}

func newApp(c *config.Config, repos *client.Repositories, api client.Client, log logging.Logger, in *bufio.Reader, out io.Writer) *App {
	bus := events.NewBus()
	ign := ignore.New()
	pusher := services.NewPusher(api, ign, c.IgnoreTTL)

	session := services.NewSession(services.SessionDeps{
		DB:       repos.DB,
		Client:   api,
		Users:    repos.Users,
		Personas: repos.Personas,
		Cookies:  cookie.NewMetadataStore(repos.Metadata),
		Bus:      bus,
		Ignore:   ign,
		Pusher:   pusher,
		Logger:   log,
	}, services.SessionConfig{CookieName: c.CookieName, IgnoreTTL: c.IgnoreTTL})

	us := services.NewUserSync(services.UserSyncDeps{
		Session:  session,
		Users:    repos.Users,
		Personas: repos.Personas,
		Metadata: repos.Metadata,
		Client:   api,
		Ignore:   ign,
		Pusher:   pusher,
		Bus:      bus,
		Logger:   log,
	})

	a := &App{
		config:  c,
		repos:   repos,
		api:     api,
		bus:     bus,
		session: session,
		sync:    us,
		log:     log.With("module", "cli"),
		reader:  in,
		out:     out,
	}
	bus.Subscribe(events.Notice, tagNoticePrinter, func(p any) {
		fmt.Fprintf(a.out, "! %v\n", p)
	})
	return a
}

// Run blocks in the REPL until the user exits, then releases the database
// and the connection.
func (a *App) Run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer func() {
		cancel()
		a.bus.UnsubscribeAll()
		_ = a.api.Close()
		_ = a.repos.Close()
	}()
	a.Root(ctx)
}

// Root restores a remembered session if there is one, starts the background
// loops and hands stdin to the REPL.
func (a *App) Root(ctx context.Context) {
	fmt.Fprintln(a.out, "Welcome to profilekeeper (type 'help' for commands)")

	a.restoreSession(ctx)

	go a.StartOnlineStatusWatcher(ctx, a.config.SyncInterval)
	go func() {
		_ = a.sync.Run(ctx, a.config.SyncInterval)
	}()
	go a.watchBroadcasts(ctx, a.config.SyncInterval)

	runREPL(ctx, a, a.getStatus, a.reader)
}

func (a *App) restoreSession(ctx context.Context) {
	err := a.session.LoginFromCookie(ctx)
	switch {
	case err == nil:
		fmt.Fprintf(a.out, "Restored session for user %s\n", a.session.UserID())
	case errors.Is(err, services.ErrNoSession):
	default:
		a.log.Warn(ctx, "restore session", "error", err)
	}
}

func (a *App) isLoggedIn() bool {
	return a.session.LoggedIn()
}

func (a *App) getMode() Mode {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.mode
}

func (a *App) setMode(mode Mode) {
	a.mu.Lock()
	changed := a.mode != mode
	a.mode = mode
	a.mu.Unlock()

	if changed {
		a.log.Info(context.Background(), "connectivity changed", "mode", mode)
	}
}

func (a *App) getStatus() string {
	s := ""
	if id := a.session.UserID(); id != "" && a.isLoggedIn() {
		s = id + " "
	}
	if m := a.getMode(); m != "" {
		s += string(m)
	}
	if s != "" {
		s = fmt.Sprintf("(%s)", s)
	}
	return s
}

// StartOnlineStatusWatcher pings the server every interval and flips Mode.
func (a *App) StartOnlineStatusWatcher(ctx context.Context, interval time.Duration) {
	a.checkOnline(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			a.checkOnline(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (a *App) checkOnline(ctx context.Context) {
	pctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := a.api.Ping(pctx); err != nil {
		a.setMode(ModeOffline)
		return
	}
	a.setMode(ModeOnline)
}

// watchBroadcasts keeps a subscription open while logged in and re-subscribes
// after the stream drops.
func (a *App) watchBroadcasts(ctx context.Context, retry time.Duration) {
	for {
		if a.isLoggedIn() {
			err := a.sync.Watch(ctx)
			if ctx.Err() != nil {
				return
			}
			a.log.Debug(ctx, "broadcast stream ended", "error", err)
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(retry):
		}
	}
}
