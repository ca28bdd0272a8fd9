package utils

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var sanitizer = bluemonday.UGCPolicy()

// Sanitize strips unsafe markup and surrounding whitespace from user text.
func Sanitize(input string) string {
	return strings.TrimSpace(sanitizer.Sanitize(input))
}
