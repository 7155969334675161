package listing

import "fmt"

// Decoration is a decoration rental listing.
type Decoration struct {
	Listing
	TypeOfDecoration DecorationType `json:"typeOfDecoration"`
}

var _ Entity = (*Decoration)(nil)

// NewDecoration returns an empty decoration form.
func NewDecoration() *Decoration {
	return &Decoration{Listing: emptyListing()}
}

// Type implements Entity.
func (d *Decoration) Type() EntityType { return TypeDecoration }

// Fields implements Entity.
func (d *Decoration) Fields() []FieldSpec {
	specs := commonFields("Decoration")
	specs = append(specs, FieldSpec{
		Path:     "typeOfDecoration",
		Label:    "Type of Decoration",
		Kind:     KindEnum,
		Required: true,
		Options:  DecorationTypes(),
	})
	return append(specs, trailingFields()...)
}

// Get implements Entity.
func (d *Decoration) Get(path string) (string, error) {
	if path == "typeOfDecoration" {
		return string(d.TypeOfDecoration), nil
	}
	if v, ok := d.Listing.get(path); ok {
		return v, nil
	}
	return "", fmt.Errorf("%w: %s", ErrUnknownField, path)
}

// Set implements Entity.
func (d *Decoration) Set(path, value string) error {
	if path == "typeOfDecoration" {
		d.TypeOfDecoration = DecorationType(value)
		return nil
	}
	handled, err := d.Listing.set(path, value)
	if err != nil {
		return err
	}
	if !handled {
		return fmt.Errorf("%w: %s", ErrUnknownField, path)
	}
	return nil
}

// Validate implements Entity.
func (d *Decoration) Validate() FieldErrors {
	errs := FieldErrors{}
	d.Listing.validate(d.Fields(), errs, d.Get)
	return errs
}

// Sanitize implements Entity.
func (d *Decoration) Sanitize() {
	d.Listing.sanitize()
}

// Summary implements Entity.
func (d *Decoration) Summary() Row {
	return Row{
		ID:     d.ID,
		Image:  d.coverImage(),
		Title:  d.Title,
		Detail: d.Location,
		Extra:  string(d.TypeOfDecoration),
	}
}
