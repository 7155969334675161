package render

import (
	"strconv"
	"strings"

	"github.com/goliatone/go-rentadmin/pkg/listing"
)

// ErrorMapping splits a backend error payload into field-level and
// form-level messages keyed by the dotted field paths used by the form
// controllers.
type ErrorMapping struct {
	Fields map[string][]string
	Form   []string
}

// MergeFormErrors concatenates form-level messages, trimming whitespace and
// dropping duplicates while preserving order.
func MergeFormErrors(existing []string, extras ...string) []string {
	combined := make([]string, 0, len(existing)+len(extras))
	combined = append(combined, existing...)
	combined = append(combined, extras...)
	return normalizeMessages(combined)
}

// MapErrorPayload normalises backend error paths ("owner[phone]",
// "body.owner.phone", "/owner/phone") onto the dotted paths of fields.
// Unknown paths become form-level errors so messages are not lost.
func MapErrorPayload(fields []listing.FieldSpec, payload map[string][]string) ErrorMapping {
	mapping := ErrorMapping{
		Fields: make(map[string][]string),
	}
	if len(payload) == 0 {
		mapping.Fields = nil
		return mapping
	}

	fieldPaths := make(map[string]struct{}, len(fields))
	for _, field := range fields {
		fieldPaths[field.Path] = struct{}{}
		if head, _, ok := strings.Cut(field.Path, "."); ok {
			fieldPaths[head] = struct{}{}
		}
	}
	for _, media := range []string{"photos", "videos"} {
		fieldPaths[media] = struct{}{}
	}

	for rawPath, messages := range payload {
		normalized := normalizeMessages(messages)
		if len(normalized) == 0 {
			continue
		}
		mapped, formLevel := mapErrorPath(rawPath, fieldPaths)
		if formLevel || mapped == "" {
			mapping.Form = append(mapping.Form, normalized...)
			continue
		}
		mapping.Fields[mapped] = append(mapping.Fields[mapped], normalized...)
	}

	if len(mapping.Fields) == 0 {
		mapping.Fields = nil
	}
	mapping.Form = normalizeMessages(mapping.Form)
	return mapping
}

func normalizeMessages(messages []string) []string {
	if len(messages) == 0 {
		return nil
	}
	out := make([]string, 0, len(messages))
	seen := make(map[string]struct{}, len(messages))
	for _, message := range messages {
		trimmed := strings.TrimSpace(message)
		if trimmed == "" {
			continue
		}
		if _, exists := seen[trimmed]; exists {
			continue
		}
		seen[trimmed] = struct{}{}
		out = append(out, trimmed)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func mapErrorPath(raw string, fieldPaths map[string]struct{}) (string, bool) {
	trimmed := strings.TrimSpace(raw)
	if isFormLevelKey(trimmed) {
		return "", true
	}
	segments := parsePathSegments(trimmed)
	if len(segments) == 0 {
		return "", true
	}

	best := ""
	for _, variant := range [][]string{segments, stripNumeric(dropWrappers(segments))} {
		for end := len(variant); end > 0; end-- {
			candidate := strings.Join(variant[:end], ".")
			if _, ok := fieldPaths[candidate]; ok {
				if strings.Count(candidate, ".") >= strings.Count(best, ".") || best == "" {
					best = candidate
				}
				break
			}
		}
	}
	if best == "" {
		return "", true
	}
	return best, false
}

func parsePathSegments(path string) []string {
	clean := strings.TrimSpace(path)
	for _, prefix := range []string{"#/", "$.", "$/", "#", "$", "/", "."} {
		clean = strings.TrimPrefix(clean, prefix)
	}
	clean = strings.NewReplacer("[", ".", "]", "").Replace(clean)
	clean = strings.Trim(clean, "./")
	if clean == "" {
		return nil
	}
	parts := strings.FieldsFunc(clean, func(r rune) bool {
		return r == '.' || r == '/'
	})
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if segment := strings.TrimSpace(part); segment != "" {
			out = append(out, segment)
		}
	}
	return out
}

func dropWrappers(segments []string) []string {
	out := segments
	for len(out) > 0 {
		switch strings.ToLower(out[0]) {
		case "body", "request", "payload", "data":
			out = out[1:]
			continue
		}
		break
	}
	return out
}

func stripNumeric(segments []string) []string {
	out := make([]string, 0, len(segments))
	for _, segment := range segments {
		if _, err := strconv.Atoi(segment); err == nil {
			continue
		}
		out = append(out, segment)
	}
	return out
}

func isFormLevelKey(key string) bool {
	switch strings.ToLower(strings.TrimSpace(key)) {
	case "", ".", "/", "#", "$", "form", "__all__", "non_field_errors":
		return true
	default:
		return false
	}
}
