package listing

import "fmt"

// Car is a car rental listing.
type Car struct {
	Listing
	YearOfProduction         Number         `json:"yearOfProduction"`
	Color                    string         `json:"color"`
	TypeOfCar                string         `json:"typeOfCar"`
	Interior                 string         `json:"interior"`
	NumberOfSeats            Number         `json:"numberOfSeats"`
	AdditionalAmenities      []string       `json:"additionalAmenities"`
	RentalPrice              Number         `json:"rentalPrice"`
	RentalDuration           RentalDuration `json:"rentalDuration"`
	SpecialOptionsForWedding []string       `json:"specialOptionsForWedding"`
}

var _ Entity = (*Car)(nil)

// NewCar returns an empty car form.
func NewCar() *Car {
	return &Car{
		Listing:                  emptyListing(),
		AdditionalAmenities:      []string{},
		RentalDuration:           Hourly,
		SpecialOptionsForWedding: []string{},
	}
}

// Type implements Entity.
func (c *Car) Type() EntityType { return TypeCar }

// Fields implements Entity.
func (c *Car) Fields() []FieldSpec {
	specs := commonFields("Car")
	specs = append(specs,
		FieldSpec{Path: "yearOfProduction", Label: "Year of Production", Kind: KindNumber, Required: true},
		FieldSpec{Path: "color", Label: "Color", Kind: KindText, Required: true},
		FieldSpec{Path: "typeOfCar", Label: "Type of Car", Kind: KindText, Required: true},
		FieldSpec{Path: "interior", Label: "Interior", Kind: KindText, Required: true},
		FieldSpec{Path: "numberOfSeats", Label: "Number of Seats", Kind: KindNumber, Required: true, MinLen: 1},
		FieldSpec{Path: "additionalAmenities", Label: "Additional Amenities (comma-separated)", Kind: KindList, Required: true},
		FieldSpec{Path: "rentalPrice", Label: "Rental Price", Kind: KindNumber, Required: true},
		FieldSpec{Path: "rentalDuration", Label: "Rental Duration", Kind: KindEnum, Required: true, Options: RentalDurations()},
		FieldSpec{Path: "specialOptionsForWedding", Label: "Special Options for Wedding (comma-separated)", Kind: KindList, Required: true},
	)
	return append(specs, trailingFields()...)
}

// Get implements Entity.
func (c *Car) Get(path string) (string, error) {
	switch path {
	case "yearOfProduction":
		return string(c.YearOfProduction), nil
	case "color":
		return c.Color, nil
	case "typeOfCar":
		return c.TypeOfCar, nil
	case "interior":
		return c.Interior, nil
	case "numberOfSeats":
		return string(c.NumberOfSeats), nil
	case "additionalAmenities":
		return JoinList(c.AdditionalAmenities), nil
	case "rentalPrice":
		return string(c.RentalPrice), nil
	case "rentalDuration":
		return string(c.RentalDuration), nil
	case "specialOptionsForWedding":
		return JoinList(c.SpecialOptionsForWedding), nil
	}
	if v, ok := c.Listing.get(path); ok {
		return v, nil
	}
	return "", fmt.Errorf("%w: %s", ErrUnknownField, path)
}

// Set implements Entity. Only the addressed field changes.
func (c *Car) Set(path, value string) error {
	switch path {
	case "yearOfProduction":
		c.YearOfProduction = Number(value)
	case "color":
		c.Color = value
	case "typeOfCar":
		c.TypeOfCar = value
	case "interior":
		c.Interior = value
	case "numberOfSeats":
		c.NumberOfSeats = Number(value)
	case "additionalAmenities":
		c.AdditionalAmenities = SplitList(value)
	case "rentalPrice":
		c.RentalPrice = Number(value)
	case "rentalDuration":
		c.RentalDuration = RentalDuration(value)
	case "specialOptionsForWedding":
		c.SpecialOptionsForWedding = SplitList(value)
	default:
		handled, err := c.Listing.set(path, value)
		if err != nil {
			return err
		}
		if !handled {
			return fmt.Errorf("%w: %s", ErrUnknownField, path)
		}
	}
	return nil
}

// Validate implements Entity.
func (c *Car) Validate() FieldErrors {
	errs := FieldErrors{}
	c.Listing.validate(c.Fields(), errs, c.Get)
	return errs
}

// Sanitize implements Entity.
func (c *Car) Sanitize() {
	c.Listing.sanitize()
	c.Color = SanitizeText(c.Color)
	c.TypeOfCar = SanitizeText(c.TypeOfCar)
	c.Interior = SanitizeText(c.Interior)
	c.AdditionalAmenities = sanitizeAll(c.AdditionalAmenities)
	c.SpecialOptionsForWedding = sanitizeAll(c.SpecialOptionsForWedding)
}

// Summary implements Entity.
func (c *Car) Summary() Row {
	return Row{
		ID:     c.ID,
		Image:  c.coverImage(),
		Title:  c.Title,
		Detail: c.Color,
		Extra:  "₹" + string(c.RentalPrice),
	}
}
