// Package theme persists the light/dark preference and resolves it to the
// terminal tokens used by the list and form views.
package theme

import (
	"context"
	"errors"
	"fmt"
	"sync"

	gotheme "github.com/goliatone/go-theme"

	"github.com/goliatone/go-rentadmin/pkg/store"
)

// Name is the manifest name of the built-in theme.
const Name = "rentadmin"

// Variants.
const (
	Light = "light"
	Dark  = "dark"
)

// ErrUnknownVariant is returned for variants other than light and dark.
var ErrUnknownVariant = errors.New("theme: unknown variant")

// Manifest returns the built-in manifest. Light is the base token set; the
// dark variant overrides it.
func Manifest() *gotheme.Manifest {
	return &gotheme.Manifest{
		Name:    Name,
		Version: "1.0.0",
		Tokens: map[string]string{
			"accent": "\x1b[1;34m",
			"error":  "\x1b[31m",
			"muted":  "\x1b[2m",
			"reset":  "\x1b[0m",
		},
		Variants: map[string]gotheme.Variant{
			Dark: {
				Tokens: map[string]string{
					"accent": "\x1b[1;36m",
					"error":  "\x1b[1;91m",
					"muted":  "\x1b[90m",
				},
			},
		},
	}
}

// Selector resolves variants of one manifest.
type Selector struct {
	manifest *gotheme.Manifest
}

var _ gotheme.ThemeSelector = (*Selector)(nil)

// NewSelector validates manifest by registering it and returns a selector
// for it. A nil manifest selects the built-in one.
func NewSelector(manifest *gotheme.Manifest) (*Selector, error) {
	if manifest == nil {
		manifest = Manifest()
	}
	registry := gotheme.NewRegistry()
	if err := registry.Register(manifest); err != nil {
		return nil, fmt.Errorf("theme: register %s: %w", manifest.Name, err)
	}
	return &Selector{manifest: manifest}, nil
}

// Select implements gotheme.ThemeSelector. An empty variant means light.
func (s *Selector) Select(name, variant string, _ ...gotheme.QueryOption) (*gotheme.Selection, error) {
	if name != "" && name != s.manifest.Name {
		return nil, fmt.Errorf("theme: unknown theme %q", name)
	}
	if variant == "" {
		variant = Light
	}
	if variant != Light {
		if _, ok := s.manifest.Variants[variant]; !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownVariant, variant)
		}
	}
	return &gotheme.Selection{
		Theme:    s.manifest.Name,
		Variant:  variant,
		Manifest: s.manifest,
	}, nil
}

// Tokens flattens a selection: base tokens overlaid with the variant's.
func Tokens(selection *gotheme.Selection) map[string]string {
	out := make(map[string]string)
	if selection == nil || selection.Manifest == nil {
		return out
	}
	for k, v := range selection.Manifest.Tokens {
		out[k] = v
	}
	if variant, ok := selection.Manifest.Variants[selection.Variant]; ok {
		for k, v := range variant.Tokens {
			out[k] = v
		}
	}
	return out
}

// Preference stores the chosen variant under the "theme" key.
type Preference struct {
	mu       sync.Mutex
	store    store.Store
	selector gotheme.ThemeSelector
}

// NewPreference wraps st. A nil selector uses the built-in manifest.
func NewPreference(st store.Store, selector gotheme.ThemeSelector) (*Preference, error) {
	if st == nil {
		return nil, errors.New("theme: store is required")
	}
	if selector == nil {
		s, err := NewSelector(nil)
		if err != nil {
			return nil, err
		}
		selector = s
	}
	return &Preference{store: st, selector: selector}, nil
}

// Current returns the stored variant. Anything but "dark" reads as light.
func (p *Preference) Current(ctx context.Context) (string, error) {
	value, _, err := p.store.Get(ctx, store.KeyTheme)
	if err != nil {
		return "", fmt.Errorf("theme: read preference: %w", err)
	}
	if value == Dark {
		return Dark, nil
	}
	return Light, nil
}

// Set stores variant.
func (p *Preference) Set(ctx context.Context, variant string) error {
	if variant != Light && variant != Dark {
		return fmt.Errorf("%w: %q", ErrUnknownVariant, variant)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.store.Set(ctx, store.KeyTheme, variant); err != nil {
		return fmt.Errorf("theme: store preference: %w", err)
	}
	return nil
}

// Toggle flips between light and dark and returns the new variant.
func (p *Preference) Toggle(ctx context.Context) (string, error) {
	current, err := p.Current(ctx)
	if err != nil {
		return "", err
	}
	next := Dark
	if current == Dark {
		next = Light
	}
	if err := p.Set(ctx, next); err != nil {
		return "", err
	}
	return next, nil
}

// Tokens resolves the stored variant to view tokens.
func (p *Preference) Tokens(ctx context.Context) (map[string]string, error) {
	variant, err := p.Current(ctx)
	if err != nil {
		return nil, err
	}
	selection, err := p.selector.Select(Name, variant)
	if err != nil {
		return nil, err
	}
	return Tokens(selection), nil
}
