package app

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/goliatone/go-rentadmin/pkg/api"
	"github.com/goliatone/go-rentadmin/pkg/form"
	"github.com/goliatone/go-rentadmin/pkg/listing"
	"github.com/goliatone/go-rentadmin/pkg/media"
	"github.com/goliatone/go-rentadmin/pkg/prompt"
	"github.com/goliatone/go-rentadmin/pkg/session"
	"github.com/goliatone/go-rentadmin/pkg/theme"
)

var (
	// ErrUsage is returned for unknown commands or bad arguments.
	ErrUsage = errors.New("usage error")
	// ErrNotSignedIn is returned when a command needs a session.
	ErrNotSignedIn = errors.New("not signed in; run `rentadmin login`")
)

// Usage lists the commands.
const Usage = `usage: rentadmin [-config file] <command> [arguments]

commands:
  login                         sign in and store the session token
  signup                        register and store the session token
  logout                        end the session
  whoami                        show the signed-in user
  list <cars|decorations>       show one page (-page N)
  delete <cars|decorations> ID  delete after confirmation
  create <cars|decorations>     fill and submit a new listing
  edit <cars|decorations> ID    change and submit an existing listing
  draft <show|clear> <cars|decorations> [ID]
  theme [light|dark|toggle]     show or change the color theme
`

// Run dispatches one command.
func (a *App) Run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("%w: no command", ErrUsage)
	}
	cmd, rest := args[0], args[1:]
	a.Logger.Debug("run command", zap.String("command", cmd))
	switch cmd {
	case "login":
		return a.authenticate(ctx, false)
	case "signup":
		return a.authenticate(ctx, true)
	case "logout":
		return a.logout(ctx)
	case "whoami":
		return a.whoami()
	case "list":
		return a.list(ctx, rest)
	case "delete":
		return a.delete(ctx, rest)
	case "create":
		return a.edit(ctx, "create", rest)
	case "edit":
		return a.edit(ctx, "edit", rest)
	case "draft":
		return a.draft(ctx, rest)
	case "theme":
		return a.theme(ctx, rest)
	default:
		return fmt.Errorf("%w: unknown command %q", ErrUsage, cmd)
	}
}

func (a *App) println(format string, args ...any) {
	fmt.Fprintf(a.Out, format+"\n", args...)
}

func (a *App) requireRoute(route string) error {
	if !a.Gate.Allowed(route) {
		return ErrNotSignedIn
	}
	return nil
}

func parseType(raw string) (listing.EntityType, error) {
	t, err := listing.ParseEntityType(raw)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUsage, err)
	}
	return t, nil
}

func (a *App) authenticate(ctx context.Context, signup bool) error {
	creds, err := prompt.Credentials(ctx, a.Driver, signup)
	if err != nil {
		return err
	}
	var token string
	if signup {
		token, err = a.Client.Signup(ctx, creds)
	} else {
		token, err = a.Client.Login(ctx, creds)
	}
	if err != nil {
		if msg := api.MessageOf(err); msg != "" {
			a.println("%s", msg)
		}
		return err
	}
	if err := a.Gate.Authenticate(ctx, token); err != nil {
		return err
	}
	a.println("Signed in.")
	return nil
}

func (a *App) logout(ctx context.Context) error {
	if a.Gate.State() != session.Authenticated {
		return ErrNotSignedIn
	}
	if err := a.Gate.Logout(ctx, a.Client); err != nil {
		return err
	}
	a.println("Signed out.")
	return nil
}

func (a *App) whoami() error {
	id, err := a.Gate.Identity()
	if err != nil {
		if errors.Is(err, session.ErrNoSession) {
			return ErrNotSignedIn
		}
		return err
	}
	name := id.Name
	if name == "" {
		name = id.Email
	}
	if name == "" {
		name = id.Subject
	}
	a.println("%s", name)
	if !id.ExpiresAt.IsZero() {
		a.println("session expires %s", id.ExpiresAt.Local().Format(time.RFC1123))
	}
	return nil
}

func (a *App) list(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("list", flag.ContinueOnError)
	fs.SetOutput(a.Out)
	page := fs.Int("page", 1, "page number")
	t, rest, err := typeArg(args)
	if err != nil {
		return err
	}
	if err := fs.Parse(rest); err != nil {
		return fmt.Errorf("%w: %v", ErrUsage, err)
	}
	if err := a.requireRoute(t.ListRoute()); err != nil {
		return err
	}
	lv, err := a.List(t)
	if err != nil {
		return err
	}
	fetchErr := lv.FetchPage(ctx, *page)
	if err := a.Views.List(a.Out, lv.View(a.Client.ImageURL)); err != nil {
		return err
	}
	return fetchErr
}

func (a *App) delete(ctx context.Context, args []string) error {
	t, rest, err := typeArg(args)
	if err != nil {
		return err
	}
	if len(rest) != 1 {
		return fmt.Errorf("%w: delete needs an id", ErrUsage)
	}
	if err := a.requireRoute(t.ListRoute()); err != nil {
		return err
	}
	lv, err := a.List(t)
	if err != nil {
		return err
	}
	deleted, err := lv.Delete(ctx, rest[0])
	if err != nil {
		return err
	}
	if deleted {
		a.println("Deleted %s.", rest[0])
	} else {
		a.println("Nothing deleted.")
	}
	return nil
}

type setFlags []string

func (s *setFlags) String() string { return strings.Join(*s, ",") }

func (s *setFlags) Set(v string) error {
	if !strings.Contains(v, "=") {
		return fmt.Errorf("expected path=value, got %q", v)
	}
	*s = append(*s, v)
	return nil
}

func (a *App) edit(ctx context.Context, mode string, args []string) error {
	fs := flag.NewFlagSet(mode, flag.ContinueOnError)
	fs.SetOutput(a.Out)
	var sets setFlags
	fs.Var(&sets, "set", "field value as path=value (repeatable)")
	photos := fs.String("photos", "", "comma-separated photo paths")
	videos := fs.String("videos", "", "comma-separated video paths")
	noPrompt := fs.Bool("no-prompt", false, "submit without interactive prompts")

	t, rest, err := typeArg(args)
	if err != nil {
		return err
	}
	id := ""
	if mode == "edit" {
		if len(rest) == 0 || strings.HasPrefix(rest[0], "-") {
			return fmt.Errorf("%w: edit needs an id", ErrUsage)
		}
		id, rest = rest[0], rest[1:]
	}
	if err := fs.Parse(rest); err != nil {
		return fmt.Errorf("%w: %v", ErrUsage, err)
	}
	route := t.CreateRoute()
	if id != "" {
		route = t.EditRoute(id)
	}
	if err := a.requireRoute(route); err != nil {
		return err
	}

	fc, err := a.Form(ctx, t, id)
	if err != nil {
		return err
	}
	defer fc.Close()

	if err := fc.Mount(ctx); err != nil {
		a.println("%s", fc.Message())
		return err
	}
	for _, kv := range sets {
		path, value, _ := strings.Cut(kv, "=")
		if err := fc.Set(ctx, path, value); err != nil {
			return fmt.Errorf("%w: --set %s: %v", ErrUsage, path, err)
		}
	}
	if !*noPrompt {
		values, err := fc.Entity()
		if err != nil {
			return err
		}
		if err := prompt.Fill(ctx, a.Driver, values); err != nil {
			return err
		}
		if err := fc.Apply(ctx, values); err != nil {
			return err
		}
	}
	if err := a.selectMedia(ctx, fc, media.SlotPhotos, *photos, *noPrompt); err != nil {
		return err
	}
	if err := a.selectMedia(ctx, fc, media.SlotVideos, *videos, *noPrompt); err != nil {
		return err
	}

	submitErr := fc.Submit(ctx)
	if submitErr == nil {
		a.println("Saved. Continue at %s", a.Route())
		return nil
	}
	if err := a.Views.Form(a.Out, fc.View()); err != nil {
		return err
	}
	return submitErr
}

func (a *App) selectMedia(ctx context.Context, fc *form.Controller, slot media.Slot, raw string, noPrompt bool) error {
	var paths []string
	if raw != "" {
		for _, p := range strings.Split(raw, ",") {
			if p = strings.TrimSpace(p); p != "" {
				paths = append(paths, p)
			}
		}
	} else if !noPrompt {
		label := fmt.Sprintf("%s (%d selected)", slotLabel(slot), len(fc.Previews(slot)))
		var err error
		if paths, err = prompt.Paths(ctx, a.Driver, label); err != nil {
			return err
		}
	}
	if len(paths) == 0 {
		return nil
	}
	if err := fc.SelectFiles(ctx, slot, paths); err != nil {
		a.println("%s", fc.Message())
		return err
	}
	for _, url := range fc.Previews(slot) {
		a.println("  %s", url)
	}
	return nil
}

func (a *App) draft(ctx context.Context, args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("%w: draft <show|clear> <type> [id]", ErrUsage)
	}
	t, err := parseType(args[1])
	if err != nil {
		return err
	}
	id := ""
	if len(args) > 2 {
		id = args[2]
	}
	switch args[0] {
	case "show":
		raw, ok, err := a.Drafts.Raw(ctx, t, id)
		if err != nil {
			return err
		}
		if !ok {
			a.println("No draft saved.")
			return nil
		}
		a.println("%s", raw)
		return nil
	case "clear":
		if err := a.Drafts.Clear(ctx, t, id); err != nil {
			return err
		}
		a.println("Draft cleared.")
		return nil
	default:
		return fmt.Errorf("%w: unknown draft action %q", ErrUsage, args[0])
	}
}

func (a *App) theme(ctx context.Context, args []string) error {
	var (
		variant string
		err     error
	)
	switch {
	case len(args) == 0:
		variant, err = a.Theme.Current(ctx)
	case args[0] == "toggle":
		variant, err = a.Theme.Toggle(ctx)
	case args[0] == theme.Light || args[0] == theme.Dark:
		variant, err = args[0], a.Theme.Set(ctx, args[0])
	default:
		return fmt.Errorf("%w: theme takes light, dark or toggle", ErrUsage)
	}
	if err != nil {
		return err
	}
	if err := a.ReloadViews(ctx); err != nil {
		return err
	}
	a.println("Theme: %s", variant)
	return nil
}

func slotLabel(slot media.Slot) string {
	if slot == media.SlotVideos {
		return "Videos"
	}
	return "Photos"
}

func typeArg(args []string) (listing.EntityType, []string, error) {
	if len(args) == 0 {
		return "", nil, fmt.Errorf("%w: missing entity type (cars or decorations)", ErrUsage)
	}
	t, err := parseType(args[0])
	if err != nil {
		return "", nil, err
	}
	return t, args[1:], nil
}
