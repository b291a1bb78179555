package model

import (
	"fmt"
	"strings"
)

// Gender selects which half of the score table applies. The values are the
// labels used by the World Athletics scoring tables.
type Gender string

// Supported genders.
const (
	Man   Gender = "Man"
	Woman Gender = "Woman"
)

// ParseGender resolves common spellings ("men", "female", "W", ...) to a Gender.
func ParseGender(s string) (Gender, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "man", "men", "male", "m":
		return Man, nil
	case "woman", "women", "female", "w", "f":
		return Woman, nil
	default:
		return "", fmt.Errorf("%q: %w", s, ErrUnknownGender)
	}
}

// Valid reports whether g is one of the supported genders.
func (g Gender) Valid() bool {
	return g == Man || g == Woman
}
