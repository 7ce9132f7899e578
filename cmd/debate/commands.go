package main

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/pflag"

	"github.com/dkeye/debateroom/internal/domain"
)

func flagSet(name string) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	return fs
}

// roomArg parses fs and returns its single positional room id.
func roomArg(fs *pflag.FlagSet, args []string) (domain.RoomID, error) {
	if err := fs.Parse(args); err != nil {
		return "", err
	}
	if fs.NArg() != 1 || fs.Arg(0) == "" {
		return "", fmt.Errorf("%w: %s needs exactly one room id", errUsage, fs.Name())
	}
	return domain.RoomID(fs.Arg(0)), nil
}

func runRooms(ctx context.Context, e *env, args []string) error {
	if err := flagSet("rooms").Parse(args); err != nil {
		return err
	}
	rooms, err := e.api.ListRooms(ctx)
	if err != nil {
		return err
	}
	if len(rooms) == 0 {
		fmt.Fprintln(e.out, "no rooms yet")
		return nil
	}
	tw := tabwriter.NewWriter(e.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tPARTICIPANTS")
	for _, r := range rooms {
		fmt.Fprintf(tw, "%s\t%s\t%d\n", r.ID, r.Title, r.ParticipantsCount)
	}
	return tw.Flush()
}

func runCreate(ctx context.Context, e *env, args []string) error {
	fs := flagSet("create")
	var draft domain.RoomDraft
	fs.StringVar(&draft.Title, "title", "", "room title")
	fs.StringVar(&draft.Description, "description", "", "room description")
	if err := fs.Parse(args); err != nil {
		return err
	}
	room, err := e.api.CreateRoom(ctx, draft)
	if err != nil {
		return err
	}
	fmt.Fprintf(e.out, "created room %s\n", room.ID)
	return nil
}

func runShow(ctx context.Context, e *env, args []string) error {
	id, err := roomArg(flagSet("show"), args)
	if err != nil {
		return err
	}
	room, err := e.api.GetRoom(ctx, id)
	if err != nil {
		return err
	}
	printRoom(e, room)
	return nil
}

func printRoom(e *env, room domain.Room) {
	fmt.Fprintf(e.out, "%s (#%s)\n%s\nparticipants: %d\n", room.Title, room.ID, room.Description, room.ParticipantsCount)
}

func runDelete(ctx context.Context, e *env, args []string) error {
	id, err := roomArg(flagSet("delete"), args)
	if err != nil {
		return err
	}
	if err := e.api.DeleteRoom(ctx, id); err != nil {
		return err
	}
	fmt.Fprintf(e.out, "deleted room %s\n", id)
	return nil
}

func runWho(ctx context.Context, e *env, args []string) error {
	id, err := roomArg(flagSet("who"), args)
	if err != nil {
		return err
	}
	members, err := e.api.Participants(ctx, id)
	if err != nil {
		return err
	}
	if len(members) == 0 {
		fmt.Fprintln(e.out, "nobody is here")
		return nil
	}
	for _, m := range members {
		fmt.Fprintln(e.out, m.Username)
	}
	return nil
}

func runLive(ctx context.Context, e *env, args []string) error {
	if err := flagSet("live").Parse(args); err != nil {
		return err
	}
	live, err := e.api.LiveRooms(ctx)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(e.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tCONNECTED")
	for _, r := range live {
		fmt.Fprintf(tw, "%s\t%d\n", r.ID, r.MemberCount)
	}
	return tw.Flush()
}

func credentials(name string, args []string) (string, string, error) {
	fs := flagSet(name)
	user := fs.String("username", "", "account name")
	pass := fs.String("password", "", "account password")
	if err := fs.Parse(args); err != nil {
		return "", "", err
	}
	if *user == "" || *pass == "" {
		return "", "", fmt.Errorf("%w: %s needs --username and --password", errUsage, name)
	}
	return *user, *pass, nil
}

func runSignup(ctx context.Context, e *env, args []string) error {
	user, pass, err := credentials("signup", args)
	if err != nil {
		return err
	}
	name, err := e.api.Signup(ctx, user, pass)
	if err != nil {
		return err
	}
	fmt.Fprintf(e.out, "account %s created, log in to use it\n", name)
	return nil
}

// runLogin checks the credentials and stores the account name as the
// profile's display name.
func runLogin(ctx context.Context, e *env, args []string) error {
	user, pass, err := credentials("login", args)
	if err != nil {
		return err
	}
	name, err := e.api.Login(ctx, user, pass)
	if err != nil {
		return err
	}
	who, err := e.ids.Remember(name)
	if err != nil {
		return err
	}
	fmt.Fprintf(e.out, "logged in as %s\n", who.DisplayName)
	return nil
}
