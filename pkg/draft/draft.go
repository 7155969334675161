// Package draft persists in-progress form values so an unfinished create form
// survives a restart.
package draft

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/goliatone/go-rentadmin/pkg/listing"
	"github.com/goliatone/go-rentadmin/pkg/store"
)

// Keying selects how drafts are keyed.
type Keying string

const (
	// KeyByType stores one draft per entity type ("carFormData").
	KeyByType Keying = "type"
	// KeyByIdentity stores one draft per entity type and identifier.
	KeyByIdentity Keying = "identity"
)

// ParseKeying validates raw, defaulting to KeyByType.
func ParseKeying(raw string) (Keying, error) {
	switch Keying(raw) {
	case "", KeyByType:
		return KeyByType, nil
	case KeyByIdentity:
		return KeyByIdentity, nil
	default:
		return "", fmt.Errorf("draft: unknown keying %q", raw)
	}
}

// Store reads and writes drafts through a state store.
type Store struct {
	backend store.Store
	keying  Keying
}

// Option customises a Store.
type Option func(*Store)

// WithKeying selects the keying scheme.
func WithKeying(keying Keying) Option {
	return func(s *Store) {
		if keying != "" {
			s.keying = keying
		}
	}
}

// New wraps backend.
func New(backend store.Store, options ...Option) *Store {
	s := &Store{backend: backend, keying: KeyByType}
	for _, option := range options {
		if option != nil {
			option(s)
		}
	}
	return s
}

// Key returns the storage key for a form. id is ignored under type keying and
// an empty id means a new entity.
func (s *Store) Key(t listing.EntityType, id string) string {
	if s.keying != KeyByIdentity {
		return t.DraftKey()
	}
	if id == "" {
		id = "new"
	}
	return t.DraftKey() + ":" + id
}

// Save overwrites the draft for the entity's form.
func (s *Store) Save(ctx context.Context, entity listing.Entity) error {
	if entity == nil {
		return errors.New("draft: entity is nil")
	}
	data, err := json.Marshal(entity)
	if err != nil {
		return fmt.Errorf("draft: encode %s: %w", entity.Type(), err)
	}
	key := s.Key(entity.Type(), entity.Base().ID)
	if err := s.backend.Set(ctx, key, string(data)); err != nil {
		return fmt.Errorf("draft: save %s: %w", key, err)
	}
	return nil
}

// Load decodes the stored draft for into's form. It reports false when no
// draft exists; into is left untouched in that case.
func (s *Store) Load(ctx context.Context, into listing.Entity, id string) (bool, error) {
	if into == nil {
		return false, errors.New("draft: target is nil")
	}
	key := s.Key(into.Type(), id)
	raw, ok, err := s.backend.Get(ctx, key)
	if err != nil {
		return false, fmt.Errorf("draft: load %s: %w", key, err)
	}
	if !ok || raw == "" {
		return false, nil
	}
	fresh, err := listing.New(into.Type())
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal([]byte(raw), fresh); err != nil {
		return false, fmt.Errorf("draft: decode %s: %w", key, err)
	}
	if err := copyEntity(into, fresh); err != nil {
		return false, err
	}
	return true, nil
}

// Raw returns the stored JSON for a form.
func (s *Store) Raw(ctx context.Context, t listing.EntityType, id string) (string, bool, error) {
	return s.backend.Get(ctx, s.Key(t, id))
}

// Clear removes the draft for a form.
func (s *Store) Clear(ctx context.Context, t listing.EntityType, id string) error {
	key := s.Key(t, id)
	if err := s.backend.Delete(ctx, key); err != nil {
		return fmt.Errorf("draft: clear %s: %w", key, err)
	}
	return nil
}

func copyEntity(dst, src listing.Entity) error {
	switch d := dst.(type) {
	case *listing.Car:
		*d = *src.(*listing.Car)
	case *listing.Decoration:
		*d = *src.(*listing.Decoration)
	default:
		return fmt.Errorf("draft: unsupported entity %T", dst)
	}
	return nil
}
