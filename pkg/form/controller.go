// Package form drives the create and edit forms of a listing: field edits,
// media selection, draft persistence and submission.
package form

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/goliatone/go-rentadmin/pkg/api"
	"github.com/goliatone/go-rentadmin/pkg/draft"
	"github.com/goliatone/go-rentadmin/pkg/listing"
	"github.com/goliatone/go-rentadmin/pkg/media"
	"github.com/goliatone/go-rentadmin/pkg/nav"
	"github.com/goliatone/go-rentadmin/pkg/render"
)

// User-facing messages.
const (
	MsgSubmitFailed = "An error occurred while submitting the form."
	MsgFetchFailed  = "Failed to fetch car data"
	MsgUpdateFailed = "Failed to update car details"
)

var (
	// ErrSubmitInProgress is returned when Submit is called while a previous
	// submission has not finished.
	ErrSubmitInProgress = errors.New("form: submit already in progress")
	// ErrClosed is returned by operations on a closed controller.
	ErrClosed = errors.New("form: controller closed")
)

// Mode distinguishes create forms from edit forms.
type Mode int

const (
	ModeCreate Mode = iota
	ModeEdit
)

func (m Mode) String() string {
	if m == ModeEdit {
		return "edit"
	}
	return "create"
}

// Backend is the slice of the API client the form needs.
type Backend interface {
	Get(ctx context.Context, t listing.EntityType, id string) (listing.Entity, error)
	Create(ctx context.Context, payload api.Payload) error
	Update(ctx context.Context, id string, payload api.Payload) error
	ImageURL(ref string) string
}

// Session exposes the token and the expiry transition of the auth gate.
type Session interface {
	Token() string
	Expire(ctx context.Context) error
}

// Controller owns the state of one form instance.
type Controller struct {
	mu sync.Mutex

	entityType listing.EntityType
	id         string
	mode       Mode
	entity     listing.Entity

	backend   Backend
	session   Session
	drafts    *draft.Store
	media     *media.Manager
	navigator nav.Navigator
	logger    *zap.Logger

	encoding   api.Encoding
	clearDraft bool

	message     string
	fieldErrors map[string][]string
	submitting  bool
	closed      bool
}

// Option customises a Controller.
type Option func(*Controller)

// WithDrafts enables draft persistence for create forms.
func WithDrafts(drafts *draft.Store) Option {
	return func(c *Controller) {
		c.drafts = drafts
	}
}

// WithMedia sets the media preview manager.
func WithMedia(manager *media.Manager) Option {
	return func(c *Controller) {
		if manager != nil {
			c.media = manager
		}
	}
}

// WithNavigator sets where successful submissions navigate.
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

// WithEncoding selects the submission body encoding.
func WithEncoding(encoding api.Encoding) Option {
	return func(c *Controller) {
		if encoding != "" {
			c.encoding = encoding
		}
	}
}

// WithClearDraftOnSubmit removes the create draft after a successful submit.
func WithClearDraftOnSubmit(clear bool) Option {
	return func(c *Controller) {
		c.clearDraft = clear
	}
}

// New returns a controller for entity type t. An empty id opens a create
// form; otherwise the form edits that entity.
func New(t listing.EntityType, id string, backend Backend, session Session, options ...Option) (*Controller, error) {
	if backend == nil {
		return nil, errors.New("form: backend is required")
	}
	if session == nil {
		return nil, errors.New("form: session is required")
	}
	entity, err := listing.New(t)
	if err != nil {
		return nil, err
	}
	c := &Controller{
		entityType: t,
		id:         strings.TrimSpace(id),
		entity:     entity,
		backend:    backend,
		session:    session,
		navigator:  nav.Discard,
		logger:     zap.NewNop(),
		encoding:   api.EncodingMultipart,
	}
	if c.id != "" {
		c.mode = ModeEdit
	}
	for _, option := range options {
		if option != nil {
			option(c)
		}
	}
	if c.media == nil {
		c.media = media.NewManager(nil, media.WithLogger(c.logger))
	}
	c.logger = c.logger.With(zap.String("entity", string(t)), zap.String("mode", c.mode.String()))
	return c, nil
}

// Mount loads the initial state: the remote entity in edit mode, the saved
// draft in create mode.
func (c *Controller) Mount(ctx context.Context) error {
	if c.mode == ModeEdit {
		return c.mountEdit(ctx)
	}
	return c.mountCreate(ctx)
}

func (c *Controller) mountEdit(ctx context.Context) error {
	entity, err := c.backend.Get(ctx, c.entityType, c.id)
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if err != nil {
		c.message = MsgFetchFailed
		c.mu.Unlock()
		c.logger.Error("fetch entity failed", zap.String("id", c.id), zap.Error(err))
		if api.IsAuthExpired(err) {
			c.expire(ctx)
		}
		return fmt.Errorf("form: fetch %s: %w", c.id, err)
	}
	defer c.mu.Unlock()
	c.entity = entity
	for _, slot := range media.Slots() {
		refs := entity.Base().Media(string(slot))
		urls := make([]string, len(refs))
		for i, ref := range refs {
			urls[i] = c.backend.ImageURL(ref)
		}
		c.media.SetRemote(slot, urls)
	}
	return nil
}

func (c *Controller) mountCreate(ctx context.Context) error {
	if c.drafts == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	found, err := c.drafts.Load(ctx, c.entity, "")
	if err != nil {
		return err
	}
	if !found {
		return nil
	}
	c.logger.Debug("draft restored")
	for _, slot := range media.Slots() {
		paths := c.entity.Base().Media(string(slot))
		if len(paths) == 0 {
			continue
		}
		files, err := media.StatAll(paths)
		if err == nil {
			err = c.media.Select(slot, files)
		}
		if err != nil {
			c.logger.Warn("draft media dropped", zap.String("slot", string(slot)), zap.Error(err))
			_ = c.entity.Base().SetMedia(string(slot), nil)
		}
	}
	return nil
}

// Set updates one field addressed by its dotted path.
func (c *Controller) Set(ctx context.Context, path, value string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	if err := c.entity.Set(path, value); err != nil {
		return err
	}
	delete(c.fieldErrors, path)
	return c.persistLocked(ctx)
}

// Apply copies every editable field of values into the form.
func (c *Controller) Apply(ctx context.Context, values listing.Entity) error {
	if values == nil || values.Type() != c.entityType {
		return fmt.Errorf("form: apply expects a %s", c.entityType)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	for _, spec := range values.Fields() {
		value, err := values.Get(spec.Path)
		if err != nil {
			return err
		}
		if err := c.entity.Set(spec.Path, value); err != nil {
			return err
		}
		delete(c.fieldErrors, spec.Path)
	}
	return c.persistLocked(ctx)
}

// Toggle flips a boolean field.
func (c *Controller) Toggle(ctx context.Context, path string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	spec, ok := listing.Lookup(c.entity.Fields(), path)
	if !ok || spec.Kind != listing.KindBool {
		return fmt.Errorf("%w: %s is not a boolean field", listing.ErrUnknownField, path)
	}
	current, err := c.entity.Get(path)
	if err != nil {
		return err
	}
	on, _ := strconv.ParseBool(current)
	if err := c.entity.Set(path, strconv.FormatBool(!on)); err != nil {
		return err
	}
	return c.persistLocked(ctx)
}

// SelectFiles replaces the files of a media slot. A batch rejected by the
// slot policy leaves the previous selection in place.
func (c *Controller) SelectFiles(ctx context.Context, slot media.Slot, paths []string) error {
	files, err := media.StatAll(paths)
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	if err == nil {
		err = c.media.Select(slot, files)
	}
	if err != nil {
		var violation *media.PolicyViolation
		if errors.As(err, &violation) {
			c.message = violation.Error()
		} else {
			c.message = err.Error()
		}
		return err
	}
	refs := make([]string, len(files))
	for i, f := range files {
		refs[i] = f.Path
	}
	if err := c.entity.Base().SetMedia(string(slot), refs); err != nil {
		return err
	}
	c.message = ""
	delete(c.fieldErrors, string(slot))
	return c.persistLocked(ctx)
}

// Submit validates the form and sends it. On success it navigates to the
// list view of the entity type.
func (c *Controller) Submit(ctx context.Context) error {
	payload, err := c.beginSubmit()
	if err != nil {
		if api.IsAuthExpired(err) {
			c.expire(ctx)
		}
		return err
	}

	if c.mode == ModeEdit {
		err = c.backend.Update(ctx, c.id, payload)
	} else {
		err = c.backend.Create(ctx, payload)
	}

	c.mu.Lock()
	c.submitting = false
	if err != nil {
		c.failSubmit(err)
		c.mu.Unlock()
		if api.IsAuthExpired(err) {
			c.expire(ctx)
		}
		return err
	}
	defer c.mu.Unlock()

	c.message = ""
	c.fieldErrors = nil
	if c.mode == ModeCreate && c.clearDraft && c.drafts != nil {
		if err := c.drafts.Clear(ctx, c.entityType, ""); err != nil {
			c.logger.Warn("clear draft failed", zap.Error(err))
		}
	}
	c.logger.Info("form submitted", zap.String("id", c.id))
	c.navigator.Navigate(c.entityType.ListRoute())
	return nil
}

func (c *Controller) beginSubmit() (api.Payload, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return api.Payload{}, ErrClosed
	}
	if c.submitting {
		return api.Payload{}, ErrSubmitInProgress
	}

	errs := c.entity.Validate()
	if c.mode == ModeCreate {
		for _, slot := range media.Slots() {
			if len(c.media.Files(slot)) == 0 {
				errs.Add(string(slot), "required")
			}
		}
	}
	if !errs.Empty() {
		c.fieldErrors = errs
		c.message = errs.First(append(c.entity.Fields(), mediaSpecs()...))
		return api.Payload{}, &api.Error{
			Kind:    api.KindValidation,
			Message: c.message,
			Fields:  errs,
		}
	}
	if c.mode == ModeCreate && c.session.Token() == "" {
		c.logger.Warn("no session token for create")
		c.message = "Not Authorized"
		return api.Payload{}, &api.Error{Kind: api.KindAuthExpired, Message: c.message}
	}

	snapshot, err := listing.Clone(c.entity)
	if err != nil {
		return api.Payload{}, err
	}
	snapshot.Sanitize()
	payload := api.Payload{Entity: snapshot, Encoding: c.encoding}
	for _, slot := range media.Slots() {
		for _, f := range c.media.Files(slot) {
			payload.Uploads = append(payload.Uploads, api.Upload{Slot: string(slot), Path: f.Path, Name: f.Name})
		}
	}
	c.submitting = true
	return payload, nil
}

// failSubmit records the outcome of a failed request. Callers expire the
// session themselves, outside the lock.
func (c *Controller) failSubmit(err error) {
	c.logger.Error("submit failed", zap.String("id", c.id), zap.Error(err))
	var apiErr *api.Error
	errors.As(err, &apiErr)

	switch api.KindOf(err) {
	case api.KindAuthExpired:
		c.message = api.MessageOf(err)
		return
	case api.KindValidation:
		if apiErr != nil {
			mapping := render.MapErrorPayload(c.entity.Fields(), apiErr.Fields)
			c.fieldErrors = mapping.Fields
		}
	}

	switch {
	case c.mode == ModeEdit:
		c.message = MsgUpdateFailed
	case api.KindOf(err) == api.KindNetwork || apiErr == nil:
		c.message = MsgSubmitFailed
	default:
		c.message = api.MessageOf(err)
		if c.message == "" {
			c.message = api.DefaultErrorMessage
		}
	}
}

func (c *Controller) expire(ctx context.Context) {
	if err := c.session.Expire(ctx); err != nil {
		c.logger.Error("expire session failed", zap.Error(err))
	}
}

func (c *Controller) persistLocked(ctx context.Context) error {
	if c.mode != ModeCreate || c.drafts == nil {
		return nil
	}
	return c.drafts.Save(ctx, c.entity)
}

// Close releases preview URLs. Further operations fail with ErrClosed.
func (c *Controller) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	return c.media.Close()
}

// Mode reports whether the form creates or edits.
func (c *Controller) Mode() Mode { return c.mode }

// Type returns the entity type of the form.
func (c *Controller) Type() listing.EntityType { return c.entityType }

// Fields returns the editable field specs.
func (c *Controller) Fields() []listing.FieldSpec {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.entity.Fields()
}

// Entity returns a copy of the current form values.
func (c *Controller) Entity() (listing.Entity, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return listing.Clone(c.entity)
}

// Value returns the text of one field.
func (c *Controller) Value(path string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.entity.Get(path)
}

// Message returns the current form-level message.
func (c *Controller) Message() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.message
}

// FieldErrors returns messages keyed by field path.
func (c *Controller) FieldErrors() map[string][]string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string][]string, len(c.fieldErrors))
	for k, v := range c.fieldErrors {
		out[k] = append([]string(nil), v...)
	}
	return out
}

// Previews returns the preview URLs of a media slot.
func (c *Controller) Previews(slot media.Slot) []string {
	return c.media.Previews(slot)
}
