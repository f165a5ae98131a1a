package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// execIface defines the minimal command surface the REPL needs to operate.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	isLoggedIn() bool
	Register(ctx context.Context) error
	Login(ctx context.Context) error
	Logout(ctx context.Context) error

	List(ctx context.Context, name string) error
	Search(ctx context.Context, name, q string) error
	Show(ctx context.Context, name string, id int64) error
	Add(ctx context.Context, name string) error
	Edit(ctx context.Context, name string, id int64) error
	Delete(ctx context.Context, name string, id int64) error

	Records(ctx context.Context) error
	Parts(ctx context.Context) error
	Stats(ctx context.Context) error
	Profile(ctx context.Context) error
	EditProfile(ctx context.Context) error
}

const (
	helpAnonymous = "Available commands: register, login, exit"
	helpSignedIn  = "Available commands: (l)ist <collection>, search <collection> <text>, show <collection> <id>, " +
		"add <collection>, edit <collection> <id>, delete <collection> <id>, records, parts, stats, " +
		"profile, editprofile, logout, exit\n" +
		"Collections: customers, vehicles, services, records, parts, categories, suppliers, incomes, usages"
)

// runREPL starts a simple read–eval–print loop for the autoservice console.
//
// It reads a line from reader, parses the first token as the command, and
// dispatches to methods on 'a'. Unknown commands are reported back to the
// user. The loop exits on EOF or when the user types "exit" or "quit".
//
// Commands that need a session are refused until the user logs in.
//
// Any errors returned by command handlers are ignored here; handlers print
// their own errors. This keeps the REPL loop resilient and focused on I/O.
func runREPL(ctx context.Context, a execIface, statusFn func() string, reader *bufio.Reader) {
	for {
		printlnFn(fmt.Sprintf("autoservice%s> ", prefixSpace(statusFn())))
		line, err := reader.ReadString('\n')
		if err != nil && (!errors.Is(err, io.EOF) || strings.TrimSpace(line) == "") {
			return
		}
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		switch cmd {
		case "help":
			if a.isLoggedIn() {
				printlnFn(helpSignedIn)
			} else {
				printlnFn(helpAnonymous)
			}
			continue

		case "exit", "quit":
			printlnFn("Bye!")
			return

		case "register":
			_ = a.Register(ctx)
			continue

		case "login":
			_ = a.Login(ctx)
			continue
		}

		if !a.isLoggedIn() {
			if isKnown(cmd) {
				printlnFn("Please log in first.")
			} else {
				printlnFn("Unknown command:", cmd)
			}
			continue
		}

		switch cmd {
		case "l", "list":
			if name, ok := needName(args, "list <collection>"); ok {
				_ = a.List(ctx, name)
			}

		case "search":
			if name, ok := needName(args, "search <collection> <text>"); ok {
				_ = a.Search(ctx, name, strings.Join(args[1:], " "))
			}

		case "show":
			if name, id, ok := needID(args, "show <collection> <id>"); ok {
				_ = a.Show(ctx, name, id)
			}

		case "add":
			if name, ok := needName(args, "add <collection>"); ok {
				_ = a.Add(ctx, name)
			}

		case "edit":
			if name, id, ok := needID(args, "edit <collection> <id>"); ok {
				_ = a.Edit(ctx, name, id)
			}

		case "delete":
			if name, id, ok := needID(args, "delete <collection> <id>"); ok {
				_ = a.Delete(ctx, name, id)
			}

		case "records":
			_ = a.Records(ctx)

		case "parts":
			_ = a.Parts(ctx)

		case "stats":
			_ = a.Stats(ctx)

		case "profile":
			_ = a.Profile(ctx)

		case "editprofile":
			_ = a.EditProfile(ctx)

		case "logout":
			_ = a.Logout(ctx)

		default:
			printlnFn("Unknown command:", cmd)
		}
	}
}

var signedInCommands = map[string]bool{
	"l": true, "list": true, "search": true, "show": true, "add": true, "edit": true, "delete": true,
	"records": true, "parts": true, "stats": true, "profile": true, "editprofile": true, "logout": true,
}

func isKnown(cmd string) bool { return signedInCommands[cmd] }

func needName(args []string, usage string) (string, bool) {
	if len(args) == 0 {
		printlnFn("Usage:", usage)
		return "", false
	}
	return args[0], true
}

func needID(args []string, usage string) (string, int64, bool) {
	if len(args) < 2 {
		printlnFn("Usage:", usage)
		return "", 0, false
	}
	id, err := strconv.ParseInt(args[1], 10, 64)
	if err != nil || id <= 0 {
		printlnFn("Invalid id:", args[1])
		return "", 0, false
	}
	return args[0], id, true
}

func prefixSpace(s string) string {
	if s == "" {
		return ""
	}
	return " " + s
}
