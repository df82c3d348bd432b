package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// execIface is the command surface the REPL dispatches to. *App satisfies it;
// tests provide a lightweight stub.
type execIface interface {
	isLoggedIn() bool
	Join(ctx context.Context) error
	Login(ctx context.Context) error
	Logout(ctx context.Context) error
	Status(ctx context.Context) error
	TestAuth(ctx context.Context) error
	AddKey(ctx context.Context, args []string) error
	FindKey(ctx context.Context, args []string) error
	RemoveKey(ctx context.Context, args []string) error
	Set(ctx context.Context, args []string) error
	Sync(ctx context.Context) error
	Persona(ctx context.Context, args []string) error
}

// runREPL reads commands from reader until EOF, "exit" or "quit".
//
//	Not logged in:  help, join, login, status, exit
//	Logged in:      help, status, testauth, addkey, findkey, removekey,
//	                set, persona, sync, logout, exit
//
// Errors returned by handlers are ignored here; handlers print their own.
func runREPL(ctx context.Context, a execIface, statusFn func() string, reader *bufio.Reader) {
	for {
		printlnFn(fmt.Sprintf("pk %s> ", statusFn()))
		line, err := reader.ReadString('\n')
		if err != nil && (!errors.Is(err, io.EOF) || line == "") {
			return
		}
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		if requiresLogin(cmd) && !a.isLoggedIn() {
			printlnFn("Please log in first")
			continue
		}

		switch cmd {
		case "help":
			if a.isLoggedIn() {
				printlnFn("Available commands: status, testauth, addkey, findkey, removekey, set, persona, sync, logout, exit")
			} else {
				printlnFn("Available commands: join, login, status, exit")
			}

		case "join":
			_ = a.Join(ctx)

		case "login":
			_ = a.Login(ctx)

		case "logout":
			_ = a.Logout(ctx)

		case "status":
			_ = a.Status(ctx)

		case "testauth":
			_ = a.TestAuth(ctx)

		case "addkey":
			_ = a.AddKey(ctx, args)

		case "findkey":
			_ = a.FindKey(ctx, args)

		case "removekey":
			_ = a.RemoveKey(ctx, args)

		case "set":
			_ = a.Set(ctx, args)

		case "persona":
			_ = a.Persona(ctx, args)

		case "sync":
			_ = a.Sync(ctx)

		case "exit", "quit":
			printlnFn("Bye!")
			return

		default:
			printlnFn("Unknown command:", cmd)
		}

		if err != nil {
			return
		}
	}
}

func requiresLogin(cmd string) bool {
	switch cmd {
	case "logout", "testauth", "addkey", "findkey", "removekey", "set", "persona", "sync":
		return true
	default:
		return false
	}
}
