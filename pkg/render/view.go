// Package render turns controller state into terminal output and maps
// backend error payloads onto form fields.
package render

import (
	"errors"
	"io"

	"github.com/goliatone/go-rentadmin/pkg/listing"
	"github.com/goliatone/go-rentadmin/pkg/render/template"
)

// Template names.
const (
	TemplateList = "list"
	TemplateForm = "form"
)

// ListData is the view model of one list page.
type ListData struct {
	Heading     string
	Message     string
	DetailLabel string
	ExtraLabel  string
	Rows        []listing.Row
	Page        int
	TotalPages  int
}

// FieldLine is one rendered form field.
type FieldLine struct {
	Label string
	Value string
	Error string
}

// MediaLine summarises one media slot.
type MediaLine struct {
	Label    string
	Count    int
	Previews []string
	Error    string
}

// FormData is the view model of a form summary.
type FormData struct {
	Heading string
	Message string
	Fields  []FieldLine
	Media   []MediaLine
}

// Token names read by the templates.
var tokenNames = []string{"accent", "error", "muted", "reset"}

// Views renders list pages and form summaries.
type Views struct {
	engine *template.Engine
	theme  map[string]any
}

// ViewOption customises Views.
type ViewOption func(*Views)

// WithTokens sets the theme tokens (terminal escape sequences) used by the
// templates. Unknown names are ignored.
func WithTokens(tokens map[string]string) ViewOption {
	return func(v *Views) {
		for _, name := range tokenNames {
			if value, ok := tokens[name]; ok {
				v.theme[name] = value
			}
		}
	}
}

// NewViews wraps engine.
func NewViews(engine *template.Engine, options ...ViewOption) (*Views, error) {
	if engine == nil {
		return nil, errors.New("render: template engine is required")
	}
	v := &Views{engine: engine, theme: make(map[string]any, len(tokenNames))}
	for _, name := range tokenNames {
		v.theme[name] = ""
	}
	for _, option := range options {
		if option != nil {
			option(v)
		}
	}
	return v, nil
}

// List writes a list page.
func (v *Views) List(w io.Writer, data ListData) error {
	rows := make([]map[string]any, 0, len(data.Rows))
	for _, row := range data.Rows {
		rows = append(rows, map[string]any{
			"id":     row.ID,
			"title":  row.Title,
			"detail": row.Detail,
			"extra":  row.Extra,
			"image":  row.Image,
		})
	}
	_, err := v.engine.RenderTemplate(TemplateList, map[string]any{
		"heading":     data.Heading,
		"message":     data.Message,
		"detailLabel": data.DetailLabel,
		"extraLabel":  data.ExtraLabel,
		"rows":        rows,
		"page":        data.Page,
		"totalPages":  data.TotalPages,
		"theme":       v.theme,
	}, w)
	return err
}

// Form writes a form summary.
func (v *Views) Form(w io.Writer, data FormData) error {
	fields := make([]map[string]any, 0, len(data.Fields))
	for _, f := range data.Fields {
		fields = append(fields, map[string]any{"label": f.Label, "value": f.Value, "error": f.Error})
	}
	media := make([]map[string]any, 0, len(data.Media))
	for _, m := range data.Media {
		media = append(media, map[string]any{"label": m.Label, "count": m.Count, "previews": m.Previews, "error": m.Error})
	}
	_, err := v.engine.RenderTemplate(TemplateForm, map[string]any{
		"heading": data.Heading,
		"message": data.Message,
		"fields":  fields,
		"media":   media,
		"theme":   v.theme,
	}, w)
	return err
}
