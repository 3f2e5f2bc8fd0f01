package util

import (
	"golang.org/x/text/unicode/norm"
)

// Normalize applies NFKD normalization. Used for usernames recorded as
// the request identity, so visually identical names compare equal.
func Normalize(s string) string {
	return norm.NFKD.String(s)
}
