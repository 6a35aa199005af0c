// Command detention runs the detention ledger as an HTTP service or
// performs single ledger operations from the command line.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if errors.Is(err, errUsage) {
			os.Exit(2)
		}
		fmt.Fprintln(os.Stderr, "detention:", err)
		os.Exit(1)
	}
}

var errUsage = errors.New("usage")

const usage = `usage: detention <command> [flags] [args]

commands:
  serve                                   run the HTTP API
  migrate                                 apply schema migrations
  classes                                 list classes
  add-class NAME                          create a class
  students --class ID [--sort asc|desc]   list a class roster
  add-student --class ID NAME             add one student
  import --class ID [--file PATH] [TEXT]  replace a roster from comma or newline separated names
  add --student ID --minutes N [--note]   record a minute adjustment
  serve45 --student ID                    record one served 45-minute detention
  undo --student ID                       remove the latest entry
  last --student ID                       show the entry undo would remove
  history --student ID [--limit N]        show a student's entries, newest first
  reconcile (--student ID | --class ID)   recompute cached totals from entries

global flags: --config --driver --dsn --database --log-level --pretty
`

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	if len(args) == 0 || args[0] == "help" || args[0] == "-h" || args[0] == "--help" {
		fmt.Fprint(stderr, usage)
		return errUsage
	}

	cmd, ok := commands[args[0]]
	if !ok {
		fmt.Fprintf(stderr, "unknown command %q\n\n%s", args[0], usage)
		return errUsage
	}
	return cmd(ctx, args[1:], stdout, stderr)
}
