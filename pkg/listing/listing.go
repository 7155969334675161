package listing

import (
	"encoding/json"
	"fmt"
	"net/mail"
	"strconv"
	"strings"
)

// Owner holds the contact details of the person renting out a listing.
type Owner struct {
	Name      string `json:"name"`
	Phone     string `json:"phone"`
	Email     string `json:"email"`
	Instagram string `json:"instagram"`
	Facebook  string `json:"facebook"`
}

// Listing is the shape shared by every entity type.
type Listing struct {
	ID          string   `json:"_id,omitempty"`
	Title       string   `json:"title"`
	Owner       Owner    `json:"owner"`
	Photos      []string `json:"photos"`
	Videos      []string `json:"videos"`
	Location    string   `json:"location"`
	Description string   `json:"description"`
	IsVerified  bool     `json:"isVerified"`
	Image       string   `json:"image,omitempty"`
}

// Entity is implemented by *Car and *Decoration.
type Entity interface {
	Type() EntityType
	Base() *Listing
	Fields() []FieldSpec
	Get(path string) (string, error)
	Set(path, value string) error
	Validate() FieldErrors
	Sanitize()
	Summary() Row
}

// New returns an empty entity of the given type with form defaults applied.
func New(t EntityType) (Entity, error) {
	switch t {
	case TypeCar:
		return NewCar(), nil
	case TypeDecoration:
		return NewDecoration(), nil
	default:
		return nil, fmt.Errorf("listing: unknown entity type %q", t)
	}
}

// Clone returns a deep copy of e.
func Clone(e Entity) (Entity, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("listing: clone: %w", err)
	}
	out, err := New(e.Type())
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(data, out); err != nil {
		return nil, fmt.Errorf("listing: clone: %w", err)
	}
	return out, nil
}

// Row is the summary shown for one entity in a list view.
type Row struct {
	ID     string
	Image  string
	Title  string
	Detail string
	Extra  string
}

func emptyListing() Listing {
	return Listing{
		Photos: []string{},
		Videos: []string{},
	}
}

// Base returns the shared fields.
func (l *Listing) Base() *Listing {
	return l
}

func (l *Listing) get(path string) (string, bool) {
	switch path {
	case "_id":
		return l.ID, true
	case "title":
		return l.Title, true
	case "owner.name":
		return l.Owner.Name, true
	case "owner.phone":
		return l.Owner.Phone, true
	case "owner.email":
		return l.Owner.Email, true
	case "owner.facebook":
		return l.Owner.Facebook, true
	case "owner.instagram":
		return l.Owner.Instagram, true
	case "photos":
		return JoinList(l.Photos), true
	case "videos":
		return JoinList(l.Videos), true
	case "location":
		return l.Location, true
	case "description":
		return l.Description, true
	case "isVerified":
		return strconv.FormatBool(l.IsVerified), true
	default:
		return "", false
	}
}

func (l *Listing) set(path, value string) (bool, error) {
	switch path {
	case "_id", "photos", "videos":
		return true, fmt.Errorf("%w: %s", ErrReadOnlyField, path)
	case "title":
		l.Title = value
	case "owner.name":
		l.Owner.Name = value
	case "owner.phone":
		l.Owner.Phone = value
	case "owner.email":
		l.Owner.Email = value
	case "owner.facebook":
		l.Owner.Facebook = value
	case "owner.instagram":
		l.Owner.Instagram = value
	case "location":
		l.Location = value
	case "description":
		l.Description = value
	case "isVerified":
		b, err := strconv.ParseBool(strings.TrimSpace(value))
		if err != nil {
			return true, fmt.Errorf("listing: isVerified: %w", err)
		}
		l.IsVerified = b
	default:
		return false, nil
	}
	return true, nil
}

// SetMedia replaces the media references of a slot ("photos" or "videos").
func (l *Listing) SetMedia(slot string, refs []string) error {
	cp := append([]string{}, refs...)
	switch slot {
	case "photos":
		l.Photos = cp
	case "videos":
		l.Videos = cp
	default:
		return fmt.Errorf("%w: %s", ErrUnknownField, slot)
	}
	return nil
}

// Media returns the references held by a slot.
func (l *Listing) Media(slot string) []string {
	switch slot {
	case "photos":
		return append([]string(nil), l.Photos...)
	case "videos":
		return append([]string(nil), l.Videos...)
	default:
		return nil
	}
}

func (l *Listing) validate(specs []FieldSpec, errs FieldErrors, get func(string) (string, error)) {
	for _, spec := range specs {
		value, err := get(spec.Path)
		if err != nil {
			errs.Add(spec.Path, err.Error())
			continue
		}
		trimmed := strings.TrimSpace(value)
		if spec.Required && trimmed == "" && spec.Kind != KindBool {
			errs.Add(spec.Path, "required")
			continue
		}
		if trimmed == "" {
			continue
		}
		if spec.MinLen > 0 && len(value) < spec.MinLen {
			errs.Add(spec.Path, fmt.Sprintf("must be at least %d characters", spec.MinLen))
		}
		if spec.MaxLen > 0 && len(value) > spec.MaxLen {
			errs.Add(spec.Path, fmt.Sprintf("must be at most %d characters", spec.MaxLen))
		}
		switch spec.Kind {
		case KindEmail:
			if addr, err := mail.ParseAddress(trimmed); err != nil || addr.Address != trimmed {
				errs.Add(spec.Path, "must be a valid email address")
			}
		case KindNumber:
			if !Number(trimmed).Valid() {
				errs.Add(spec.Path, "must be a number")
			}
		case KindEnum:
			if !contains(spec.Options, value) {
				errs.Add(spec.Path, fmt.Sprintf("must be one of %s", strings.Join(spec.Options, ", ")))
			}
		}
	}
}

func (l *Listing) sanitize() {
	l.Title = SanitizeText(l.Title)
	l.Location = SanitizeText(l.Location)
	l.Description = SanitizeText(l.Description)
	l.Owner.Name = SanitizeText(l.Owner.Name)
}

func (l *Listing) coverImage() string {
	if l.Image != "" {
		return l.Image
	}
	if len(l.Photos) > 0 {
		return l.Photos[0]
	}
	return ""
}

func contains(options []string, value string) bool {
	for _, option := range options {
		if option == value {
			return true
		}
	}
	return false
}
