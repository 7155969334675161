package prompt

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/goliatone/go-rentadmin/pkg/api"
	"github.com/goliatone/go-rentadmin/pkg/listing"
)

// Fill prompts for each field of entity, re-asking until the value passes
// the entity's validation for that field. When paths is non-empty only those
// fields are prompted.
func Fill(ctx context.Context, driver Driver, entity listing.Entity, paths ...string) error {
	if driver == nil {
		return ErrNoDriver
	}
	specs := entity.Fields()
	if len(paths) > 0 {
		selected := make([]listing.FieldSpec, 0, len(paths))
		for _, path := range paths {
			spec, ok := listing.Lookup(specs, path)
			if !ok {
				return fmt.Errorf("%w: %s", listing.ErrUnknownField, path)
			}
			selected = append(selected, spec)
		}
		specs = selected
	}
	for _, spec := range specs {
		if err := promptField(ctx, driver, entity, spec); err != nil {
			return err
		}
	}
	return nil
}

func promptField(ctx context.Context, driver Driver, entity listing.Entity, spec listing.FieldSpec) error {
	for {
		current, err := entity.Get(spec.Path)
		if err != nil {
			return err
		}
		value, err := ask(ctx, driver, spec, current)
		if err != nil {
			return err
		}
		if err := entity.Set(spec.Path, value); err != nil {
			_ = driver.Info(ctx, fmt.Sprintf("Invalid %s: %v", spec.Label, err))
			continue
		}
		if msgs := entity.Validate()[spec.Path]; len(msgs) > 0 {
			_ = driver.Info(ctx, fmt.Sprintf("Invalid %s: %s", spec.Label, msgs[0]))
			continue
		}
		return nil
	}
}

func ask(ctx context.Context, driver Driver, spec listing.FieldSpec, current string) (string, error) {
	message := spec.Label
	if spec.Required && spec.Kind != listing.KindBool {
		message += " *"
	}
	switch spec.Kind {
	case listing.KindBool:
		def, _ := strconv.ParseBool(current)
		ok, err := driver.Confirm(ctx, ConfirmConfig{Message: message, Default: def})
		if err != nil {
			return "", err
		}
		return strconv.FormatBool(ok), nil
	case listing.KindEnum:
		idx, err := driver.Select(ctx, SelectConfig{
			Message:      message,
			Options:      spec.Options,
			DefaultIndex: indexOf(spec.Options, current),
		})
		if err != nil {
			return "", err
		}
		if idx < 0 || idx >= len(spec.Options) {
			return "", fmt.Errorf("prompt: invalid %s selection", spec.Path)
		}
		return spec.Options[idx], nil
	case listing.KindTextArea:
		return driver.TextArea(ctx, TextAreaConfig{Message: message, Default: current})
	default:
		return driver.Input(ctx, InputConfig{Message: message, Default: current})
	}
}

// Credentials asks for the login fields, plus a name when signing up.
func Credentials(ctx context.Context, driver Driver, signup bool) (api.Credentials, error) {
	var creds api.Credentials
	if driver == nil {
		return creds, ErrNoDriver
	}
	required := func(label string) func(string) error {
		return func(s string) error {
			if strings.TrimSpace(s) == "" {
				return fmt.Errorf("%s is required", label)
			}
			return nil
		}
	}
	var err error
	if signup {
		if creds.Name, err = driver.Input(ctx, InputConfig{Message: "Name", Validator: required("name")}); err != nil {
			return creds, err
		}
	}
	if creds.Email, err = driver.Input(ctx, InputConfig{Message: "Email", Validator: required("email")}); err != nil {
		return creds, err
	}
	if creds.Password, err = driver.Password(ctx, InputConfig{Message: "Password", Validator: required("password")}); err != nil {
		return creds, err
	}
	return creds, nil
}

// Paths asks for a comma-separated list of local file paths.
func Paths(ctx context.Context, driver Driver, label string) ([]string, error) {
	if driver == nil {
		return nil, ErrNoDriver
	}
	raw, err := driver.Input(ctx, InputConfig{
		Message: label,
		Help:    "Comma-separated file paths; leave empty to keep the current selection.",
	})
	if err != nil {
		return nil, err
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out, nil
}

// Confirmer adapts a Driver to a yes/no question.
type Confirmer struct {
	Driver Driver
}

// Confirm asks message and defaults to no.
func (c Confirmer) Confirm(ctx context.Context, message string) (bool, error) {
	if c.Driver == nil {
		return false, ErrNoDriver
	}
	return c.Driver.Confirm(ctx, ConfirmConfig{Message: message})
}
