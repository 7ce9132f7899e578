// Command debate is a terminal client for debate rooms: it manages rooms and
// accounts over the REST API and joins a room's live chat.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/afero"
	"github.com/spf13/pflag"

	"github.com/dkeye/debateroom/internal/adapters/api"
	"github.com/dkeye/debateroom/internal/adapters/stomp"
	"github.com/dkeye/debateroom/internal/config"
	"github.com/dkeye/debateroom/internal/core"
	"github.com/dkeye/debateroom/internal/identity"
)

var errUsage = errors.New("usage")

const usage = `usage: debate [flags] <command> [args]

commands:
  rooms                                   list rooms
  create --title T --description D        create a room
  show <id>                               show one room
  delete <id>                             delete a room
  who <id>                                list who is connected to a room
  live                                    list rooms with people in them
  signup --username U --password P        create an account
  login --username U --password P         log in and remember the name
  join <id> [--name N]                    join a room's live chat
`

// env carries what every command needs.
type env struct {
	cfg    *config.Config
	api    *api.Client
	ids    *identity.Manager
	dialer core.Dialer
	in     io.Reader
	out    io.Writer
}

type command func(ctx context.Context, e *env, args []string) error

var commands = map[string]command{
	"rooms":  runRooms,
	"create": runCreate,
	"show":   runShow,
	"delete": runDelete,
	"who":    runWho,
	"live":   runLive,
	"signup": runSignup,
	"login":  runLogin,
	"join":   runJoin,
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	err := run(ctx, os.Args[1:], os.Stdin, os.Stdout)
	switch {
	case err == nil:
	case errors.Is(err, errUsage), errors.Is(err, pflag.ErrHelp):
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	default:
		fmt.Fprintln(os.Stderr, "debate:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, in io.Reader, out io.Writer) error {
	fs := pflag.NewFlagSet("debate", pflag.ContinueOnError)
	fs.SetInterspersed(false)
	fs.SetOutput(io.Discard)
	fs.String("base-url", "", "REST API base url")
	fs.String("ws-endpoint", "", "websocket endpoint")
	fs.String("identity-file", "", "where the participant identity is stored")
	fs.String("log-level", "", "log level")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		return errUsage
	}
	cmd, ok := commands[fs.Arg(0)]
	if !ok {
		return fmt.Errorf("%w: unknown command %q", errUsage, fs.Arg(0))
	}

	cfg, err := config.Load(fs)
	if err != nil {
		return err
	}
	cfg.SetupLogging()

	path := cfg.IdentityFile
	if path == "" {
		path = identity.DefaultPath()
	}
	e := &env{
		cfg:    cfg,
		api:    api.NewClient(cfg.BaseURL, nil),
		ids:    identity.NewManager(afero.NewOsFs(), path),
		dialer: stomp.NewDialer(cfg.WSEndpoint),
		in:     in,
		out:    out,
	}
	return cmd(ctx, e, fs.Args()[1:])
}
