package util

import (
	"regexp"
	"strings"
)

var spaces = regexp.MustCompile(`\s+`)

// NormalizeName trims user input and collapses inner whitespace so that
// "  Acme   Corp " and "Acme Corp" address the same version chain.
func NormalizeName(raw string) string {
	return spaces.ReplaceAllString(strings.TrimSpace(raw), " ")
}
