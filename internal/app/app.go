// Package app wires configuration, state, the backend client and the
// controllers into one object used by the command line.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/goliatone/go-rentadmin/components/preview"
	"github.com/goliatone/go-rentadmin/internal/config"
	"github.com/goliatone/go-rentadmin/pkg/api"
	"github.com/goliatone/go-rentadmin/pkg/draft"
	"github.com/goliatone/go-rentadmin/pkg/form"
	"github.com/goliatone/go-rentadmin/pkg/listing"
	"github.com/goliatone/go-rentadmin/pkg/listview"
	"github.com/goliatone/go-rentadmin/pkg/media"
	"github.com/goliatone/go-rentadmin/pkg/nav"
	"github.com/goliatone/go-rentadmin/pkg/prompt"
	"github.com/goliatone/go-rentadmin/pkg/render"
	"github.com/goliatone/go-rentadmin/pkg/render/template"
	"github.com/goliatone/go-rentadmin/pkg/session"
	"github.com/goliatone/go-rentadmin/pkg/store"
	"github.com/goliatone/go-rentadmin/pkg/theme"
)

// App holds the long-lived collaborators of one command invocation.
type App struct {
	Config   *config.Config
	Logger   *zap.Logger
	Store    store.Store
	Gate     *session.Gate
	Client   *api.Client
	Drafts   *draft.Store
	Theme    *theme.Preference
	Views    *render.Views
	Registry *prometheus.Registry
	Driver   prompt.Driver
	Out      io.Writer

	route string

	previewMu   sync.Mutex
	previews    *preview.Component
	stopPreview func(context.Context) error
}

// Option customises New.
type Option func(*App)

// WithStore replaces the configured state backend.
func WithStore(st store.Store) Option {
	return func(a *App) {
		a.Store = st
	}
}

// WithDriver sets the prompt driver (survey by default).
func WithDriver(driver prompt.Driver) Option {
	return func(a *App) {
		a.Driver = driver
	}
}

// WithOutput sets where views are written (stdout by default).
func WithOutput(w io.Writer) Option {
	return func(a *App) {
		a.Out = w
	}
}

// New builds an App from cfg.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger, options ...Option) (*App, error) {
	if cfg == nil {
		return nil, errors.New("app: config is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &App{
		Config:   cfg,
		Logger:   logger,
		Registry: prometheus.NewRegistry(),
		Out:      os.Stdout,
	}
	for _, option := range options {
		if option != nil {
			option(a)
		}
	}

	if a.Store == nil {
		st, err := OpenStore(ctx, cfg)
		if err != nil {
			return nil, err
		}
		a.Store = st
	}

	gate, err := session.New(ctx, a.Store, session.WithNavigator(a.navigator()), session.WithLogger(logger))
	if err != nil {
		return nil, err
	}
	a.Gate = gate

	clientOptions := []api.Option{
		api.WithTokenSource(gate),
		api.WithLogger(logger),
		api.WithMetrics(api.NewMetrics(a.Registry)),
		api.WithTimeout(cfg.RequestTimeout),
		api.WithLegacyDecorUpdatePath(cfg.LegacyDecorUpdatePath),
	}
	if cfg.OpenAPIPath != "" {
		raw, err := os.ReadFile(cfg.OpenAPIPath)
		if err != nil {
			return nil, fmt.Errorf("app: read openapi document: %w", err)
		}
		routes, err := api.LoadRoutes(ctx, raw)
		if err != nil {
			return nil, err
		}
		clientOptions = append(clientOptions, api.WithRoutes(routes))
	}
	if a.Client, err = api.New(cfg.BackendURL(), clientOptions...); err != nil {
		return nil, err
	}

	keying, err := draft.ParseKeying(cfg.DraftKeying)
	if err != nil {
		return nil, err
	}
	a.Drafts = draft.New(a.Store, draft.WithKeying(keying))

	if a.Theme, err = theme.NewPreference(a.Store, nil); err != nil {
		return nil, err
	}
	if err := a.ReloadViews(ctx); err != nil {
		return nil, err
	}

	if a.Driver == nil {
		tokens, _ := a.Theme.Tokens(ctx)
		a.Driver = prompt.NewSurveyDriver(
			prompt.WithOutput(a.Out),
			prompt.WithTheme(prompt.Theme{InfoPrefix: tokens["muted"], Reset: tokens["reset"]}),
		)
	}
	return a, nil
}

// OpenStore opens the state backend selected by cfg.
func OpenStore(ctx context.Context, cfg *config.Config) (store.Store, error) {
	switch cfg.StateBackend {
	case "memory":
		return store.NewMemory(nil), nil
	case "redis":
		st, err := store.NewRedis(ctx, cfg.RedisAddr, cfg.RedisPrefix)
		if err != nil {
			return nil, err
		}
		return st, nil
	case "file", "":
		st, err := store.OpenFile(cfg.StatePath)
		if err != nil {
			return nil, err
		}
		return st, nil
	default:
		return nil, fmt.Errorf("app: unknown state backend %q", cfg.StateBackend)
	}
}

// ReloadViews rebuilds the views with the current theme tokens.
func (a *App) ReloadViews(ctx context.Context) error {
	tokens, err := a.Theme.Tokens(ctx)
	if err != nil {
		return err
	}
	engine, err := template.New(template.WithBaseDir(a.Config.TemplateDir))
	if err != nil {
		return err
	}
	a.Views, err = render.NewViews(engine, render.WithTokens(tokens))
	return err
}

func (a *App) navigator() nav.Navigator {
	return nav.Func(func(route string) {
		a.route = route
		a.Logger.Debug("navigate", zap.String("route", route))
	})
}

// Route returns the last route navigated to.
func (a *App) Route() string {
	return a.route
}

// issuer starts the preview server on first use, keyed with a secret for
// this run. With no preview address previews stay in memory.
func (a *App) issuer(ctx context.Context) (media.URLIssuer, error) {
	if a.Config.PreviewAddr == "" {
		return nil, nil
	}
	a.previewMu.Lock()
	defer a.previewMu.Unlock()
	if a.previews != nil {
		return a.previews, nil
	}
	component := preview.New(
		preview.WithLogger(a.Logger),
		preview.WithRegistry(a.Registry),
		preview.WithAccessKey(uuid.NewString()),
	)
	stop, err := component.Start(ctx, a.Config.PreviewAddr)
	if err != nil {
		return nil, err
	}
	a.previews, a.stopPreview = component, stop
	return component, nil
}

// Form returns a form controller for t. An empty id opens a create form.
func (a *App) Form(ctx context.Context, t listing.EntityType, id string) (*form.Controller, error) {
	issuer, err := a.issuer(ctx)
	if err != nil {
		return nil, err
	}
	encoding, err := api.ParseEncoding(a.Config.SubmitEncoding)
	if err != nil {
		return nil, err
	}
	return form.New(t, id, a.Client, a.Gate,
		form.WithDrafts(a.Drafts),
		form.WithMedia(media.NewManager(issuer, media.WithLogger(a.Logger))),
		form.WithNavigator(a.navigator()),
		form.WithLogger(a.Logger),
		form.WithEncoding(encoding),
		form.WithClearDraftOnSubmit(a.Config.ClearDraftOnSubmit),
	)
}

// List returns a list controller for t.
func (a *App) List(t listing.EntityType) (*listview.Controller, error) {
	return listview.New(t, a.Client, a.Gate,
		listview.WithPageSize(a.Config.PageSize),
		listview.WithConfirmer(prompt.Confirmer{Driver: a.Driver}),
		listview.WithNavigator(a.navigator()),
		listview.WithLogger(a.Logger),
		listview.WithSurfaceFetchErrors(a.Config.SurfaceFetchErrors),
	)
}

// Close stops the preview server and releases the state backend.
func (a *App) Close() error {
	var errs []error
	a.previewMu.Lock()
	if a.stopPreview != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		errs = append(errs, a.stopPreview(ctx))
		cancel()
	}
	a.previewMu.Unlock()
	if a.Store != nil {
		errs = append(errs, a.Store.Close())
	}
	_ = a.Logger.Sync()
	return errors.Join(errs...)
}
