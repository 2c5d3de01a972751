// Package textutil holds the shared tag-name canonicalization. Assignment
// and filtering must agree on the canonical form, and the packages doing
// each cannot import one another, so the pure transform lives here.
package textutil

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

var tagFolder = cases.Fold()

// NormalizeTag canonicalizes a tag name: Unicode NFC, case folded,
// surrounding whitespace trimmed and inner runs collapsed to single
// spaces. Returns the empty string when nothing remains.
func NormalizeTag(raw string) string {
	name := norm.NFC.String(raw)
	name = tagFolder.String(name)
	return strings.Join(strings.Fields(name), " ")
}
