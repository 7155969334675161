// Package listview drives the paginated list of cars or decorations:
// fetching pages, deleting items and opening the edit form.
package listview

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/goliatone/go-rentadmin/pkg/api"
	"github.com/goliatone/go-rentadmin/pkg/listing"
	"github.com/goliatone/go-rentadmin/pkg/nav"
)

// DefaultPageSize is the number of items requested per page.
const DefaultPageSize = 10

// Backend is the slice of the API client the list needs.
type Backend interface {
	ListPage(ctx context.Context, t listing.EntityType, page, limit int) (api.Page, error)
	Delete(ctx context.Context, t listing.EntityType, id string) (string, error)
}

// Session exposes the token and the expiry transition of the auth gate.
type Session interface {
	Token() string
	Expire(ctx context.Context) error
}

// Confirmer asks the user a yes/no question.
type Confirmer interface {
	Confirm(ctx context.Context, message string) (bool, error)
}

// ConfirmFunc adapts a function to Confirmer.
type ConfirmFunc func(ctx context.Context, message string) (bool, error)

// Confirm implements Confirmer.
func (f ConfirmFunc) Confirm(ctx context.Context, message string) (bool, error) {
	return f(ctx, message)
}

// ErrNoConfirmer is returned by Delete when no confirmer is configured.
var ErrNoConfirmer = errors.New("listview: confirmer is required")

// Controller owns the state of one list view.
type Controller struct {
	mu sync.Mutex

	entityType listing.EntityType
	backend    Backend
	session    Session
	confirmer  Confirmer
	navigator  nav.Navigator
	logger     *zap.Logger

	pageSize      int
	surfaceErrors bool

	items      []listing.Entity
	page       int
	totalPages int
	banner     string
	generation uint64
}

// Option customises a Controller.
type Option func(*Controller)

// WithPageSize overrides DefaultPageSize.
func WithPageSize(size int) Option {
	return func(c *Controller) {
		if size > 0 {
			c.pageSize = size
		}
	}
}

// WithConfirmer sets the delete confirmation prompt.
func WithConfirmer(confirmer Confirmer) Option {
	return func(c *Controller) {
		c.confirmer = confirmer
	}
}

// WithNavigator sets where Edit navigates.
func WithNavigator(n nav.Navigator) Option {
	return func(c *Controller) {
		if n != nil {
			c.navigator = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Controller) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithSurfaceFetchErrors controls whether a failed fetch shows a banner.
// When false the banner is cleared instead.
func WithSurfaceFetchErrors(surface bool) Option {
	return func(c *Controller) {
		c.surfaceErrors = surface
	}
}

// New returns a list controller for entity type t, positioned on page 1.
func New(t listing.EntityType, backend Backend, session Session, options ...Option) (*Controller, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("listview: unknown entity type %q", t)
	}
	if backend == nil {
		return nil, errors.New("listview: backend is required")
	}
	if session == nil {
		return nil, errors.New("listview: session is required")
	}
	c := &Controller{
		entityType:    t,
		backend:       backend,
		session:       session,
		navigator:     nav.Discard,
		logger:        zap.NewNop(),
		pageSize:      DefaultPageSize,
		surfaceErrors: true,
		page:          1,
		totalPages:    1,
	}
	for _, option := range options {
		if option != nil {
			option(c)
		}
	}
	c.logger = c.logger.With(zap.String("entity", string(t)))
	return c, nil
}

// FailedMessage is the banner shown when a page cannot be loaded.
func (c *Controller) FailedMessage() string {
	return fmt.Sprintf("Failed to load %ss.", c.entityType.Noun())
}

// FetchPage loads page and makes it current. A response that arrives after
// a newer fetch started is discarded.
func (c *Controller) FetchPage(ctx context.Context, page int) error {
	if page < 1 {
		page = 1
	}
	c.mu.Lock()
	c.generation++
	gen := c.generation
	c.page = page
	limit := c.pageSize
	c.mu.Unlock()

	result, err := c.backend.ListPage(ctx, c.entityType, page, limit)

	c.mu.Lock()
	if gen != c.generation {
		c.mu.Unlock()
		c.logger.Debug("discarding stale page", zap.Int("page", page))
		return nil
	}
	if err != nil {
		if c.surfaceErrors {
			c.banner = c.FailedMessage()
		} else {
			c.banner = ""
		}
		c.mu.Unlock()
		c.logger.Error("Fetch error", zap.Int("page", page), zap.Error(err))
		if api.IsAuthExpired(err) {
			c.expire(ctx)
		}
		return err
	}
	defer c.mu.Unlock()

	switch {
	case !result.Success:
		c.banner = c.entityType.EmptyMessage()
	case len(result.Items) == 0:
		c.items = nil
		c.banner = c.entityType.EmptyMessage()
	default:
		c.items = result.Items
		c.totalPages = result.TotalPages
		if c.totalPages < 1 {
			c.totalPages = 1
		}
		c.banner = ""
	}
	return nil
}

// Reload fetches the current page again.
func (c *Controller) Reload(ctx context.Context) error {
	return c.FetchPage(ctx, c.Page())
}

// Next moves to the following page, staying on the last one.
func (c *Controller) Next(ctx context.Context) error {
	return c.GoTo(ctx, c.Page()+1)
}

// Prev moves to the previous page, staying on the first one.
func (c *Controller) Prev(ctx context.Context) error {
	return c.GoTo(ctx, c.Page()-1)
}

// GoTo clamps page to [1, totalPages] and fetches it.
func (c *Controller) GoTo(ctx context.Context, page int) error {
	c.mu.Lock()
	if page > c.totalPages {
		page = c.totalPages
	}
	if page < 1 {
		page = 1
	}
	c.mu.Unlock()
	return c.FetchPage(ctx, page)
}

// DeletePrompt is the confirmation question for one entity type.
func (c *Controller) DeletePrompt() string {
	return fmt.Sprintf("Are you sure you want to delete this %s?", c.entityType.Noun())
}

// Delete asks for confirmation and removes id. It reports whether the
// backend removed the item. Backend refusals are logged, not returned.
func (c *Controller) Delete(ctx context.Context, id string) (bool, error) {
	if c.confirmer == nil {
		return false, ErrNoConfirmer
	}
	log := c.logger.With(zap.String("id", id))
	log.Info("removing item")
	ok, err := c.confirmer.Confirm(ctx, c.DeletePrompt())
	if err != nil {
		return false, err
	}
	if !ok {
		log.Info("deletion cancelled")
		return false, nil
	}
	if c.session.Token() == "" {
		log.Warn("No token found. User might not be logged in.")
		return false, nil
	}

	message, err := c.backend.Delete(ctx, c.entityType, id)
	if err != nil {
		log.Error("error deleting item", zap.Error(err))
		if api.IsAuthExpired(err) {
			c.expire(ctx)
		}
		return false, nil
	}
	log.Info("item deleted", zap.String("message", message))

	c.mu.Lock()
	kept := c.items[:0:0]
	for _, item := range c.items {
		if item.Base().ID != id {
			kept = append(kept, item)
		}
	}
	c.items = kept
	c.mu.Unlock()

	if err := c.Reload(ctx); err != nil {
		log.Warn("reload after delete failed", zap.Error(err))
	}
	return true, nil
}

// Edit opens the edit form of id.
func (c *Controller) Edit(id string) {
	c.navigator.Navigate(c.entityType.EditRoute(id))
}

func (c *Controller) expire(ctx context.Context) {
	if err := c.session.Expire(ctx); err != nil {
		c.logger.Error("expire session failed", zap.Error(err))
	}
}

// Type returns the entity type of the list.
func (c *Controller) Type() listing.EntityType { return c.entityType }

// Page returns the current page number.
func (c *Controller) Page() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.page
}

// TotalPages returns the last known page count.
func (c *Controller) TotalPages() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.totalPages
}

// Banner returns the current status message.
func (c *Controller) Banner() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.banner
}

// Items returns the entities of the current page.
func (c *Controller) Items() []listing.Entity {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]listing.Entity(nil), c.items...)
}
