// Package session decides whether the admin is signed in and owns the only
// code path that changes that.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/goliatone/go-rentadmin/pkg/api"
	"github.com/goliatone/go-rentadmin/pkg/nav"
	"github.com/goliatone/go-rentadmin/pkg/store"
)

// ErrLogoutRejected is returned when the backend answers logout with
// success=false. The local session is kept.
var ErrLogoutRejected = errors.New("session: logout rejected by backend")

// State is the authentication state.
type State int

const (
	Unauthenticated State = iota
	Authenticated
)

func (s State) String() string {
	if s == Authenticated {
		return "authenticated"
	}
	return "unauthenticated"
}

// Event describes one transition.
type Event struct {
	From   State
	To     State
	Reason string
}

// Logouter ends a session on the backend.
type Logouter interface {
	Logout(ctx context.Context) (bool, error)
}

var (
	authenticatedRoutes = []string{
		"/", "/add-car", "/update-car/:id", "/cars-list",
		"/add-decoration", "/update-decor/:id", "/decorations-lists",
	}
	publicRoutes = []string{nav.RouteSignup, nav.RouteLogin}
)

// Gate holds the session token and state.
type Gate struct {
	// transitionMu serialises transitions so the stored and in-memory
	// tokens always agree. mu guards the fields below.
	transitionMu sync.Mutex

	mu     sync.Mutex
	store  store.Store
	nav    nav.Navigator
	logger *zap.Logger
	state  State
	token  string
	subs   map[int]func(Event)
	nextID int
}

var _ api.TokenSource = (*Gate)(nil)

// Option customises a Gate.
type Option func(*Gate)

// WithNavigator sets where route changes go.
func WithNavigator(n nav.Navigator) Option {
	return func(g *Gate) {
		if n != nil {
			g.nav = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(g *Gate) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// New evaluates the initial state once from the token in st.
func New(ctx context.Context, st store.Store, options ...Option) (*Gate, error) {
	if st == nil {
		return nil, errors.New("session: store is required")
	}
	g := &Gate{
		store:  st,
		nav:    nav.Discard,
		logger: zap.NewNop(),
		subs:   make(map[int]func(Event)),
	}
	for _, option := range options {
		if option != nil {
			option(g)
		}
	}

	token, ok, err := st.Get(ctx, store.KeyAuthToken)
	if err != nil {
		return nil, fmt.Errorf("session: read token: %w", err)
	}
	if ok && token != "" {
		g.token = token
		g.state = Authenticated
	}
	return g, nil
}

// State returns the current state.
func (g *Gate) State() State {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// Token implements api.TokenSource.
func (g *Gate) Token() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.token
}

// Subscribe registers fn for every transition and returns a function that
// removes it.
func (g *Gate) Subscribe(fn func(Event)) func() {
	g.mu.Lock()
	id := g.nextID
	g.nextID++
	g.subs[id] = fn
	g.mu.Unlock()
	return func() {
		g.mu.Lock()
		delete(g.subs, id)
		g.mu.Unlock()
	}
}

// Authenticate stores token after a successful login or signup.
func (g *Gate) Authenticate(ctx context.Context, token string) error {
	if strings.TrimSpace(token) == "" {
		return errors.New("session: empty token")
	}
	return g.transition(ctx, token, "login", nav.RouteHome)
}

// Expire drops the session after the backend rejected the token.
func (g *Gate) Expire(ctx context.Context) error {
	return g.transition(ctx, "", "expired", nav.RouteLogin)
}

// Logout asks the backend to end the session. The token is dropped only
// when the backend reports success, or when it says the token is already
// invalid.
func (g *Gate) Logout(ctx context.Context, backend Logouter) error {
	ok, err := backend.Logout(ctx)
	if err != nil {
		if api.IsAuthExpired(err) {
			return g.Expire(ctx)
		}
		g.logger.Error("An error occurred during logout", zap.Error(err))
		return err
	}
	if !ok {
		g.logger.Error("Logout failed")
		return ErrLogoutRejected
	}
	return g.transition(ctx, "", "logout", nav.RouteLogin)
}

// transition is the only place that changes the session.
func (g *Gate) transition(ctx context.Context, token, reason, route string) error {
	g.transitionMu.Lock()
	event, subs, err := g.apply(ctx, token, reason)
	g.transitionMu.Unlock()
	if err != nil {
		return err
	}

	g.logger.Info("session transition",
		zap.Stringer("from", event.From),
		zap.Stringer("to", event.To),
		zap.String("reason", reason),
	)
	for _, fn := range subs {
		fn(event)
	}
	g.nav.Navigate(route)
	return nil
}

func (g *Gate) apply(ctx context.Context, token, reason string) (Event, []func(Event), error) {
	if token == "" {
		if err := g.store.Delete(ctx, store.KeyAuthToken); err != nil {
			return Event{}, nil, fmt.Errorf("session: clear token: %w", err)
		}
	} else if err := g.store.Set(ctx, store.KeyAuthToken, token); err != nil {
		return Event{}, nil, fmt.Errorf("session: store token: %w", err)
	}

	g.mu.Lock()
	from := g.state
	g.token = token
	if token == "" {
		g.state = Unauthenticated
	} else {
		g.state = Authenticated
	}
	event := Event{From: from, To: g.state, Reason: reason}
	subs := make([]func(Event), 0, len(g.subs))
	for _, fn := range g.subs {
		subs = append(subs, fn)
	}
	g.mu.Unlock()
	return event, subs, nil
}

// Allowed reports whether route is mounted in the current state.
func (g *Gate) Allowed(route string) bool {
	patterns := publicRoutes
	if g.State() == Authenticated {
		patterns = authenticatedRoutes
	}
	for _, pattern := range patterns {
		if matchRoute(pattern, route) {
			return true
		}
	}
	return false
}

// Routes returns the route patterns mounted in the current state.
func (g *Gate) Routes() []string {
	if g.State() == Authenticated {
		return append([]string(nil), authenticatedRoutes...)
	}
	return append([]string(nil), publicRoutes...)
}

func matchRoute(pattern, route string) bool {
	if pattern == route {
		return true
	}
	ps := strings.Split(strings.Trim(pattern, "/"), "/")
	rs := strings.Split(strings.Trim(route, "/"), "/")
	if len(ps) != len(rs) {
		return false
	}
	for i := range ps {
		if strings.HasPrefix(ps[i], ":") {
			if rs[i] == "" {
				return false
			}
			continue
		}
		if ps[i] != rs[i] {
			return false
		}
	}
	return true
}
