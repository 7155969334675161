package listing

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// EntityType identifies one of the two listing variants.
type EntityType string

const (
	// TypeCar identifies car rental listings.
	TypeCar EntityType = "car"
	// TypeDecoration identifies decoration rental listings.
	TypeDecoration EntityType = "decoration"
)

// Types lists every supported entity type in display order.
func Types() []EntityType {
	return []EntityType{TypeCar, TypeDecoration}
}

// ParseEntityType accepts the canonical names plus the short aliases used by
// the CLI ("cars", "decor", "decorations").
func ParseEntityType(raw string) (EntityType, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "car", "cars":
		return TypeCar, nil
	case "decoration", "decorations", "decor", "decors":
		return TypeDecoration, nil
	default:
		return "", fmt.Errorf("listing: unknown entity type %q", raw)
	}
}

// Valid reports whether t is a known entity type.
func (t EntityType) Valid() bool {
	return t == TypeCar || t == TypeDecoration
}

// Noun is the singular noun used in user-facing messages.
func (t EntityType) Noun() string {
	if t == TypeDecoration {
		return "decor"
	}
	return "car"
}

// DraftKey is the state-store key under which the in-progress create form is
// persisted.
func (t EntityType) DraftKey() string {
	if t == TypeDecoration {
		return "decorFormData"
	}
	return "carFormData"
}

// ListRoute is the route of the paginated list view.
func (t EntityType) ListRoute() string {
	if t == TypeDecoration {
		return "/decorations-lists"
	}
	return "/cars-list"
}

// CreateRoute is the route of the create form.
func (t EntityType) CreateRoute() string {
	if t == TypeDecoration {
		return "/add-decoration"
	}
	return "/add-car"
}

// EditRoute is the route of the edit form for id.
func (t EntityType) EditRoute(id string) string {
	if t == TypeDecoration {
		return "/update-decor/" + id
	}
	return "/update-car/" + id
}

// EmptyMessage is the banner shown when a list page has no items.
func (t EntityType) EmptyMessage() string {
	return fmt.Sprintf("No %ss found.", t.Noun())
}

// RentalDuration is the billing period of a car rental.
type RentalDuration string

const (
	Hourly  RentalDuration = "hourly"
	Daily   RentalDuration = "daily"
	Weekly  RentalDuration = "weekly"
	Monthly RentalDuration = "monthly"
)

// RentalDurations returns the allowed durations in display order.
func RentalDurations() []string {
	return []string{string(Hourly), string(Daily), string(Weekly), string(Monthly)}
}

// DecorationType is the category of a decoration listing.
type DecorationType string

const (
	Churches    DecorationType = "Churches"
	Halls       DecorationType = "Halls"
	Cars        DecorationType = "Cars"
	ChairCovers DecorationType = "Chair Covers"
	LEDSigns    DecorationType = "LED Signs"
)

// DecorationTypes returns the allowed decoration categories.
func DecorationTypes() []string {
	return []string{string(Churches), string(Halls), string(Cars), string(ChairCovers), string(LEDSigns)}
}

var jsonNumberPattern = regexp.MustCompile(`^-?(0|[1-9][0-9]*)(\.[0-9]+)?([eE][+-]?[0-9]+)?$`)

// Number holds a numeric form value as typed text. It decodes from either a
// JSON number or a JSON string and encodes back as a number when the text is
// a valid JSON number literal, so values round-trip unchanged.
type Number string

// Valid reports whether the text is a JSON number literal.
func (n Number) Valid() bool {
	return jsonNumberPattern.MatchString(string(n))
}

// MarshalJSON implements json.Marshaler.
func (n Number) MarshalJSON() ([]byte, error) {
	if n.Valid() {
		return []byte(n), nil
	}
	return json.Marshal(string(n))
}

// UnmarshalJSON implements json.Unmarshaler.
func (n *Number) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	switch {
	case trimmed == "null":
		*n = ""
		return nil
	case strings.HasPrefix(trimmed, `"`):
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*n = Number(s)
		return nil
	default:
		if !jsonNumberPattern.MatchString(trimmed) {
			return fmt.Errorf("listing: invalid number %s", trimmed)
		}
		*n = Number(trimmed)
		return nil
	}
}

// SplitList converts comma-separated form text into list items. The
// separator is ", " to match how lists are displayed by JoinList.
func SplitList(text string) []string {
	if text == "" {
		return []string{}
	}
	return strings.Split(text, ", ")
}

// JoinList renders list items as comma-separated form text.
func JoinList(items []string) string {
	return strings.Join(items, ", ")
}
