package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/dmitrijs2005/fieldmate/internal/client/session"
	"github.com/dmitrijs2005/fieldmate/internal/common"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// execIface defines the command surface the REPL dispatches to.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	Screen() session.Destination
	Foreground()

	Login(ctx context.Context) error
	SetupPin(ctx context.Context) error
	Unlock(ctx context.Context) error
	Lock(ctx context.Context) error
	Logout(ctx context.Context) error

	Jobs(ctx context.Context) error
	Search(ctx context.Context, query string) error
	Job(ctx context.Context, id string) error

	Start(ctx context.Context, jobID, notes string) error
	Stop(ctx context.Context, notes string) error
	Entries(ctx context.Context) error

	Notifications(ctx context.Context) error
	Read(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error

	Docs(ctx context.Context, jobID string) error
	AddDoc(ctx context.Context, jobID, path string) error

	Fix(ctx context.Context, args []string) error
	Flush(ctx context.Context) error

	Sync(ctx context.Context) error
	Update(ctx context.Context) error
	Status(ctx context.Context) error
}

// gateCommands lists what may run while a gate screen is shown.
var gateCommands = map[session.Kind][]string{
	session.KindLogin:     {"login", "update"},
	session.KindPinSetup:  {"pin", "logout"},
	session.KindPinUnlock: {"unlock", "logout"},
}

const mainHelp = `Commands:
  jobs                      list assigned jobs
  search <text>             filter cached jobs
  job <id>                  show a job
  start <job> [notes]       start a timer
  stop [notes]              stop the running timer
  entries                   list time entries
  notifications             list notifications
  read <id>|all             mark notifications read
  delete <id>               delete a notification
  docs <job>                list job documents
  adddoc <job> <path>       attach a file to a job
  fix <lat> <lon> [acc]     record a location
  flush                     upload queued locations
  sync                      push pending changes and refresh
  update                    check for a new version
  lock | logout | status | exit`

// runREPL reads commands from reader until EOF, "exit" or "quit".
//
// Every line first signals the gate that the app is in the foreground, so
// an expired session is caught before the command runs. While a gate
// screen is shown only the commands able to leave it are accepted.
// Handler errors are printed as their user-facing message.
func runREPL(ctx context.Context, a execIface, statusFn func() string, reader *bufio.Reader) {
	for {
		printlnFn(fmt.Sprintf("fm%s> ", statusFn()))
		line, err := reader.ReadString('\n')
		if err != nil && (!errors.Is(err, io.EOF) || line == "") {
			return
		}
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		a.Foreground()
		screen := a.Screen()

		switch cmd {
		case "exit", "quit":
			printlnFn("Bye!")
			return
		case "help":
			if allowed, gated := gateCommands[screen.Kind()]; gated {
				printlnFn("Available commands:", strings.Join(allowed, ", ")+", status, exit")
			} else {
				printlnFn(mainHelp)
			}
			continue
		case "status":
			report(a.Status(ctx))
			continue
		}

		if allowed, gated := gateCommands[screen.Kind()]; gated && !slices.Contains(allowed, cmd) {
			printlnFn("Not available now. Available commands:", strings.Join(allowed, ", "))
			continue
		}

		switch cmd {
		case "login":
			report(a.Login(ctx))
		case "pin":
			report(a.SetupPin(ctx))
		case "unlock":
			report(a.Unlock(ctx))
		case "lock":
			report(a.Lock(ctx))
		case "logout":
			report(a.Logout(ctx))

		case "jobs", "l":
			report(a.Jobs(ctx))
		case "search":
			report(a.Search(ctx, strings.Join(args, " ")))
		case "job":
			if len(args) == 0 {
				printlnFn("Usage: job <id>")
				continue
			}
			report(a.Job(ctx, args[0]))

		case "start":
			if len(args) == 0 {
				printlnFn("Usage: start <job> [notes]")
				continue
			}
			report(a.Start(ctx, args[0], strings.Join(args[1:], " ")))
		case "stop":
			report(a.Stop(ctx, strings.Join(args, " ")))
		case "entries":
			report(a.Entries(ctx))

		case "notifications", "n":
			report(a.Notifications(ctx))
		case "read":
			if len(args) == 0 {
				printlnFn("Usage: read <id>|all")
				continue
			}
			report(a.Read(ctx, args[0]))
		case "delete":
			if len(args) == 0 {
				printlnFn("Usage: delete <id>")
				continue
			}
			report(a.Delete(ctx, args[0]))

		case "docs":
			if len(args) == 0 {
				printlnFn("Usage: docs <job>")
				continue
			}
			report(a.Docs(ctx, args[0]))
		case "adddoc":
			if len(args) < 2 {
				printlnFn("Usage: adddoc <job> <path>")
				continue
			}
			report(a.AddDoc(ctx, args[0], strings.Join(args[1:], " ")))

		case "fix":
			report(a.Fix(ctx, args))
		case "flush":
			report(a.Flush(ctx))
		case "sync":
			report(a.Sync(ctx))
		case "update":
			report(a.Update(ctx))

		default:
			printlnFn("Unknown command:", cmd)
		}
	}
}

func report(err error) {
	if err == nil {
		return
	}
	if errors.Is(err, errNoDocuments) {
		printlnFn("Documents are not available.")
		return
	}
	printlnFn(common.PublicMessage(err))
}
