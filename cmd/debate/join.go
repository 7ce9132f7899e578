package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/dkeye/debateroom/internal/app/realtime"
	"github.com/dkeye/debateroom/internal/domain"
)

const guestName = "guest"

// participant resolves who joins: an explicit name is remembered for the
// profile, otherwise the remembered name or a guest name is used.
func (e *env) participant(name string) (domain.ParticipantIdentity, error) {
	if name != "" {
		return e.ids.Remember(name)
	}
	if who, ok := e.ids.Current(); ok {
		return who, nil
	}
	return domain.NewParticipantIdentity(e.ids.GetOrCreateParticipantID(), guestName)
}

func runJoin(ctx context.Context, e *env, args []string) error {
	fs := flagSet("join")
	name := fs.String("name", "", "display name, remembered for later sessions")
	id, err := roomArg(fs, args)
	if err != nil {
		return err
	}
	who, err := e.participant(*name)
	if err != nil {
		return err
	}
	room, err := e.api.GetRoom(ctx, id)
	if err != nil {
		return err
	}
	printRoom(e, room)
	fmt.Fprintf(e.out, "you are %s; type a line to send it, /quit to leave\n", who.DisplayName)

	mgr := realtime.NewManager(e.dialer, realtime.Options{
		ReconnectDelay: e.cfg.ReconnectDelay,
		TypingTTL:      e.cfg.TypingTTL,
	})
	defer mgr.Close()
	ch, err := mgr.Connect(ctx, id, who)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		p := newPrinter(e.out)
		p.render(ch.Snapshot())
		for range ch.Changes() {
			p.render(ch.Snapshot())
		}
		p.render(ch.Snapshot())
		return nil
	})
	g.Go(func() error {
		defer ch.Teardown()
		return readInput(gctx, e.in, e.out, ch)
	})
	return g.Wait()
}

// readInput sends each non-empty line from in until EOF, /quit, ctx ends or
// the channel goes away.
func readInput(ctx context.Context, in io.Reader, out io.Writer, ch *realtime.Channel) error {
	lines := make(chan string)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(in)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ch.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			line = strings.TrimSpace(line)
			switch line {
			case "":
				continue
			case "/quit":
				return nil
			}
			_ = ch.EmitTyping()
			if _, err := ch.SendMessage(line); err != nil {
				fmt.Fprintf(out, "! not sent: %v\n", err)
			}
		}
	}
}

// printer writes the difference between successive views. The message log
// only grows, so already printed entries are skipped by position.
type printer struct {
	w       io.Writer
	printed int
	state   domain.ConnectionState
	typing  domain.ParticipantID
	count   int
}

func newPrinter(w io.Writer) *printer {
	return &printer{w: w, state: -1}
}

func (p *printer) render(v realtime.View) {
	if v.State != p.state {
		p.state = v.State
		fmt.Fprintf(p.w, "-- %s\n", v.State)
	}
	if v.Participants != p.count {
		p.count = v.Participants
		fmt.Fprintf(p.w, "-- %d in the room\n", v.Participants)
	}
	for _, m := range v.Messages[min(p.printed, len(v.Messages)):] {
		if v.IsOwn(m) {
			fmt.Fprintf(p.w, "[%s] you: %s\n", m.SenderName, m.Text)
		} else {
			fmt.Fprintf(p.w, "[%s] %s\n", m.SenderName, m.Text)
		}
	}
	p.printed = len(v.Messages)

	var typing domain.ParticipantID
	if v.Typing != nil {
		typing = v.Typing.SenderID
	}
	if typing != p.typing {
		p.typing = typing
		if v.Typing != nil {
			fmt.Fprintf(p.w, "... %s is typing\n", v.Typing.SenderName)
		}
	}
}
