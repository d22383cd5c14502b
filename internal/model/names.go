package model

import (
	"strings"

	"github.com/google/uuid"
	"golang.org/x/text/unicode/norm"
)

func newID() string {
	return uuid.NewString()
}

// normaliseTitle trims and NFC-normalises a user-supplied name so that
// visually identical titles compare equal.
func normaliseTitle(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}

// sameTitle compares titles case-insensitively after normalisation.
func sameTitle(a, b string) bool {
	return strings.EqualFold(normaliseTitle(a), normaliseTitle(b))
}
