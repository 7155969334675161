package listing

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrUnknownField is returned when a path does not address a form field.
	ErrUnknownField = errors.New("listing: unknown field")
	// ErrReadOnlyField is returned when a path addresses a server-owned field.
	ErrReadOnlyField = errors.New("listing: field is read-only")
)

// FieldKind describes how a field is edited.
type FieldKind string

const (
	KindText     FieldKind = "text"
	KindTextArea FieldKind = "textarea"
	KindEmail    FieldKind = "email"
	KindNumber   FieldKind = "number"
	KindEnum     FieldKind = "enum"
	KindList     FieldKind = "list"
	KindBool     FieldKind = "bool"
)

// FieldSpec describes one editable field addressed by a dotted path.
type FieldSpec struct {
	Path     string
	Label    string
	Kind     FieldKind
	Required bool
	MinLen   int
	MaxLen   int
	Options  []string
}

// FieldErrors maps dotted field paths to validation messages.
type FieldErrors map[string][]string

// Add appends a message for path.
func (e FieldErrors) Add(path, message string) {
	e[path] = append(e[path], message)
}

// Empty reports whether no errors were recorded.
func (e FieldErrors) Empty() bool {
	return len(e) == 0
}

// Paths returns the sorted list of paths with errors.
func (e FieldErrors) Paths() []string {
	out := make([]string, 0, len(e))
	for path := range e {
		out = append(out, path)
	}
	sort.Strings(out)
	return out
}

// First returns the first message in field order, formatted as
// "<path>: <message>".
func (e FieldErrors) First(order []FieldSpec) string {
	for _, spec := range order {
		if msgs := e[spec.Path]; len(msgs) > 0 {
			return fmt.Sprintf("%s: %s", spec.Label, msgs[0])
		}
	}
	for _, path := range e.Paths() {
		if msgs := e[path]; len(msgs) > 0 {
			return fmt.Sprintf("%s: %s", path, msgs[0])
		}
	}
	return ""
}

// Error implements error so a FieldErrors value can be returned directly.
func (e FieldErrors) Error() string {
	parts := make([]string, 0, len(e))
	for _, path := range e.Paths() {
		parts = append(parts, path+": "+strings.Join(e[path], "; "))
	}
	return "listing: invalid fields: " + strings.Join(parts, ", ")
}

// Lookup returns the spec registered for path.
func Lookup(specs []FieldSpec, path string) (FieldSpec, bool) {
	for _, spec := range specs {
		if spec.Path == path {
			return spec, true
		}
	}
	return FieldSpec{}, false
}

// Paths returns the dotted paths of specs in order.
func Paths(specs []FieldSpec) []string {
	out := make([]string, len(specs))
	for i, spec := range specs {
		out[i] = spec.Path
	}
	return out
}

func commonFields(noun string) []FieldSpec {
	return []FieldSpec{
		{Path: "title", Label: noun + " Title", Kind: KindText, Required: true},
		{Path: "owner.name", Label: noun + " Owner Name", Kind: KindText, Required: true},
		{Path: "owner.phone", Label: noun + " Owner Phone", Kind: KindText, Required: true, MinLen: 10, MaxLen: 15},
		{Path: "owner.email", Label: noun + " Owner Email", Kind: KindEmail, Required: true},
		{Path: "owner.facebook", Label: noun + " Owner Facebook (optional)", Kind: KindText},
		{Path: "owner.instagram", Label: noun + " Owner Instagram (optional)", Kind: KindText},
	}
}

func trailingFields() []FieldSpec {
	return []FieldSpec{
		{Path: "location", Label: "Location", Kind: KindText, Required: true},
		{Path: "description", Label: "Description", Kind: KindTextArea, Required: true},
		{Path: "isVerified", Label: "Is Verified", Kind: KindBool},
	}
}
