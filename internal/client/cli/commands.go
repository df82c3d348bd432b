package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/profilekeeper/internal/client/services"
)

var errUsage = errors.New("usage")

// AddKey stores an item key in the user's settings: addkey <item> <key>.
func (a *App) AddKey(ctx context.Context, args []string) error {
	itemID, err := argOrPrompt(a.reader, args, 0, "Enter item id", a.out)
	if err != nil {
		return err
	}
	key, err := argOrPrompt(a.reader, args, 1, "Enter key", a.out)
	if err != nil {
		return err
	}

	if err := a.session.AddUserKey(ctx, itemID, []byte(key)); err != nil {
		fmt.Fprintf(a.out, "Error: %s\n", err.Error())
		return err
	}
	fmt.Fprintln(a.out, "Key saved")
	return nil
}

// FindKey prints the key stored for an item: findkey <item>.
func (a *App) FindKey(ctx context.Context, args []string) error {
	itemID, err := argOrPrompt(a.reader, args, 0, "Enter item id", a.out)
	if err != nil {
		return err
	}

	key, err := a.session.FindUserKey(itemID)
	if err != nil {
		if errors.Is(err, services.ErrKeyNotFound) {
			fmt.Fprintf(a.out, "No key for %s\n", itemID)
		} else {
			fmt.Fprintf(a.out, "Error: %s\n", err.Error())
		}
		return err
	}
	fmt.Fprintln(a.out, string(key))
	return nil
}

// RemoveKey drops an item key: removekey <item>.
func (a *App) RemoveKey(ctx context.Context, args []string) error {
	itemID, err := argOrPrompt(a.reader, args, 0, "Enter item id", a.out)
	if err != nil {
		return err
	}

	if err := a.session.RemoveUserKey(ctx, itemID); err != nil {
		fmt.Fprintf(a.out, "Error: %s\n", err.Error())
		return err
	}
	fmt.Fprintln(a.out, "Key removed")
	return nil
}

// Set stores a free-form setting value: set <name> <value>.
func (a *App) Set(ctx context.Context, args []string) error {
	name, err := argOrPrompt(a.reader, args, 0, "Enter setting name", a.out)
	if err != nil {
		return err
	}
	value, err := argOrPrompt(a.reader, args, 1, "Enter value", a.out)
	if err != nil {
		return err
	}

	if err := a.session.SetValue(ctx, name, value); err != nil {
		fmt.Fprintf(a.out, "Error: %s\n", err.Error())
		return err
	}
	fmt.Fprintln(a.out, "Saved")
	return nil
}

// Sync runs one reconciliation pass now.
func (a *App) Sync(ctx context.Context) error {
	if err := a.sync.SyncOnce(ctx); err != nil {
		fmt.Fprintf(a.out, "Sync finished with errors: %s\n", err.Error())
		return err
	}
	fmt.Fprintln(a.out, "Synced")
	return nil
}

// Persona manages personas: persona add <name> <email> | list | rm <id>.
func (a *App) Persona(ctx context.Context, args []string) error {
	if len(args) == 0 {
		fmt.Fprintln(a.out, "Usage: persona add <name> <email> | persona list | persona rm <id>")
		return errUsage
	}

	switch args[0] {
	case "add":
		name, err := argOrPrompt(a.reader, args, 1, "Enter persona name", a.out)
		if err != nil {
			return err
		}
		email, err := argOrPrompt(a.reader, args, 2, "Enter email", a.out)
		if err != nil {
			return err
		}
		p, err := a.session.AddPersona(ctx, name, email)
		if err != nil {
			fmt.Fprintf(a.out, "Error: %s\n", err.Error())
			return err
		}
		fmt.Fprintf(a.out, "Persona %s added\n", p.ID)

	case "list", "ls":
		list, err := a.session.Personas(ctx)
		if err != nil {
			fmt.Fprintf(a.out, "Error: %s\n", err.Error())
			return err
		}
		if len(list) == 0 {
			fmt.Fprintln(a.out, "No personas")
		}
		for _, p := range list {
			fmt.Fprintf(a.out, "%s  %s <%s>\n", p.ID, p.Name, p.Email)
		}

	case "rm", "delete":
		id, err := argOrPrompt(a.reader, args, 1, "Enter persona id", a.out)
		if err != nil {
			return err
		}
		if err := a.session.DestroyPersona(ctx, id, services.DestroyOptions{}); err != nil {
			fmt.Fprintf(a.out, "Error: %s\n", err.Error())
			return err
		}
		fmt.Fprintln(a.out, "Persona removed")

	default:
		fmt.Fprintln(a.out, "Unknown persona command:", args[0])
		return errUsage
	}
	return nil
}
