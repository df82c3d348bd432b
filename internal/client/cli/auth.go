package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/profilekeeper/internal/client/client"
	"github.com/dmitrijs2005/profilekeeper/internal/client/models"
	"github.com/dmitrijs2005/profilekeeper/internal/client/services"
	"github.com/dmitrijs2005/profilekeeper/internal/common"
)

// getSimpleText, getPassword and getConfirm are indirections used to
// facilitate testing.
var (
	getSimpleText = GetSimpleText
	getPassword   = GetPassword
	getConfirm    = GetConfirm
)

// readCredentials prompts for a username and a password. The password bytes
// are wiped once copied into the string.
func (a *App) readCredentials() (models.Credentials, error) {
	userName, err := getSimpleText(a.reader, "Enter username", a.out)
	if err != nil {
		return models.Credentials{}, err
	}

	password, err := getPassword(a.out)
	if err != nil {
		return models.Credentials{}, err
	}
	defer common.WipeByteArray(password)

	return models.Credentials{Username: userName, Password: string(password)}, nil
}

// Join creates an account on the server and logs in with it. The first save
// of the new user record happens on that login.
func (a *App) Join(ctx context.Context) error {
	creds, err := a.readCredentials()
	if err != nil {
		return err
	}

	u, err := a.session.Join(ctx, creds)
	if err != nil {
		a.reportAuthError(err)
		return err
	}

	if err := a.session.Login(ctx, creds, services.LoginOptions{Remember: true}); err != nil {
		fmt.Fprintf(a.out, "Login failed: %s\n", err.Error())
		return err
	}

	fmt.Fprintf(a.out, "Joined as %s\n", u.ID)
	return nil
}

// Login prompts for credentials and the remember-me choice. The session key
// and auth token are derived locally, so logging in works offline.
func (a *App) Login(ctx context.Context) error {
	creds, err := a.readCredentials()
	if err != nil {
		return err
	}

	remember, err := getConfirm(a.reader, "Remember me?", a.out)
	if err != nil {
		return err
	}

	if err := a.session.Login(ctx, creds, services.LoginOptions{Remember: remember}); err != nil {
		fmt.Fprintf(a.out, "Login failed: %s\n", err.Error())
		return err
	}

	// pull the local row into memory right away rather than on the next tick
	if err := a.sync.SyncOnce(ctx); err != nil {
		a.log.Warn(ctx, "initial sync", "error", err)
	}

	fmt.Fprintln(a.out, "Logged in")
	return nil
}

// Logout forgets the session locally. Nothing is deleted on the server.
func (a *App) Logout(ctx context.Context) error {
	if err := a.session.Logout(ctx); err != nil {
		fmt.Fprintf(a.out, "Logout finished with errors: %s\n", err.Error())
		return err
	}
	fmt.Fprintln(a.out, "Logged out")
	return nil
}

// TestAuth asks the server whether the current auth token is accepted.
func (a *App) TestAuth(ctx context.Context) error {
	if err := a.session.TestAuth(ctx); err != nil {
		a.reportAuthError(err)
		return err
	}
	fmt.Fprintln(a.out, "Auth OK")
	return nil
}

// Status prints the session state, user id, connectivity and key count.
func (a *App) Status(ctx context.Context) error {
	u := a.session.User()

	fmt.Fprintf(a.out, "state:  %s\n", a.session.State())
	if u.ID != "" {
		fmt.Fprintf(a.out, "user:   %s\n", u.ID)
	}
	if m := a.getMode(); m != "" {
		fmt.Fprintf(a.out, "mode:   %s\n", m)
	}
	fmt.Fprintf(a.out, "keys:   %d\n", len(u.Settings.Keys))
	fmt.Fprintf(a.out, "values: %d\n", len(u.Settings.Values))
	if u.LastBoard != "" {
		fmt.Fprintf(a.out, "board:  %s\n", u.LastBoard)
	}
	return nil
}

func (a *App) reportAuthError(err error) {
	switch {
	case errors.Is(err, services.ErrMissingCredentials):
		fmt.Fprintln(a.out, "Username and password are required")
	case errors.Is(err, client.ErrUnauthorized):
		fmt.Fprintln(a.out, "Server rejected the credentials")
	case errors.Is(err, client.ErrUnavailable):
		fmt.Fprintln(a.out, "Server unavailable")
	default:
		fmt.Fprintf(a.out, "Error: %s\n", err.Error())
	}
}
