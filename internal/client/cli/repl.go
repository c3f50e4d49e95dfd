package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

// printlnFn is a test seam for user-facing output.
var printlnFn = fmt.Println

// execIface is the command surface the REPL drives. *App satisfies it.
type execIface interface {
	isLoggedIn() bool
	Register(ctx context.Context) error
	Login(ctx context.Context) error
	Logout(ctx context.Context) error
	Me(ctx context.Context) error
	Users(ctx context.Context, args []string) error
	Show(ctx context.Context, args []string) error
	Update(ctx context.Context) error
	Delete(ctx context.Context, args []string) error
}

const (
	guestHelp  = "Available commands: register, login, help, exit"
	memberHelp = "Available commands: me, users [page], show <id>, update, delete [id], logout, help, exit"
)

// runREPL reads commands line by line from reader and dispatches them to a
// until EOF, "exit" or "quit".
//
//	Not logged in: register, login, help, exit | quit
//	Logged in:     me, users [page], show <id>, update, delete [id], logout,
//	               help, exit | quit
//
// Command errors are printed and the loop goes on.
func runREPL(ctx context.Context, a execIface, statusFn func() string, reader *bufio.Reader) {
	for {
		printlnFn(fmt.Sprintf("ga %s> ", statusFn()))

		line, err := reader.ReadString('\n')
		if err != nil && (!errors.Is(err, io.EOF) || line == "") {
			return
		}
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		if cmd == "exit" || cmd == "quit" {
			printlnFn("Bye!")
			return
		}

		report(dispatch(ctx, a, cmd, args))
	}
}

func dispatch(ctx context.Context, a execIface, cmd string, args []string) error {
	switch cmd {
	case "help":
		if a.isLoggedIn() {
			printlnFn(memberHelp)
		} else {
			printlnFn(guestHelp)
		}
		return nil
	case "register":
		return a.Register(ctx)
	case "login":
		return a.Login(ctx)
	}

	if !a.isLoggedIn() {
		switch cmd {
		case "me", "users", "show", "update", "delete", "logout":
			printlnFn("Please log in first")
			return nil
		}
	}

	switch cmd {
	case "me":
		return a.Me(ctx)
	case "users":
		return a.Users(ctx, args)
	case "show":
		return a.Show(ctx, args)
	case "update":
		return a.Update(ctx)
	case "delete":
		return a.Delete(ctx, args)
	case "logout":
		return a.Logout(ctx)
	default:
		printlnFn("Unknown command:", cmd)
		return nil
	}
}

func report(err error) {
	switch {
	case err == nil, errors.Is(err, context.Canceled):
	case errors.Is(err, errUsage):
		printlnFn("Usage:", strings.TrimPrefix(err.Error(), errUsage.Error()+": "))
	default:
		printlnFn("Error:", err)
	}
}
