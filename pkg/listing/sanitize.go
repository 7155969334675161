package listing

import (
	"html"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

var (
	textPolicyOnce sync.Once
	textPolicy     *bluemonday.Policy
)

const maxSanitizePasses = 8

// SanitizeText strips markup from free text while keeping plain characters
// such as "&" intact. Entity-encoded markup is decoded and stripped too; the
// result is a fixed point, so decoding it again cannot produce a tag.
func SanitizeText(raw string) string {
	if !strings.ContainsAny(raw, "<>&") {
		return raw
	}
	policy := textSanitizer()
	current := raw
	for i := 0; i < maxSanitizePasses; i++ {
		cleaned := policy.Sanitize(html.UnescapeString(current))
		next := html.UnescapeString(cleaned)
		if next == current {
			return strings.TrimSpace(next)
		}
		current = next
	}
	// Did not settle: keep the escaped form.
	return strings.TrimSpace(policy.Sanitize(html.UnescapeString(current)))
}

func sanitizeAll(values []string) []string {
	if values == nil {
		return nil
	}
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = SanitizeText(v)
	}
	return out
}

func textSanitizer() *bluemonday.Policy {
	textPolicyOnce.Do(func() {
		textPolicy = bluemonday.StrictPolicy()
	})
	return textPolicy
}
