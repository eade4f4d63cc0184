// Package batch validates user-supplied batch identifiers and derives
// filesystem-safe folder names from them.
package batch

import (
	"strings"

	"invoicedrop/pkg/faults"
)

// Bounds restricts identifier length. Zero values fall back to defaults.
type Bounds struct {
	MinLen int
	MaxLen int
}

const (
	DefaultMinLen = 3
	DefaultMaxLen = 50
)

func (b Bounds) min() int {
	if b.MinLen > 0 {
		return b.MinLen
	}
	return DefaultMinLen
}

func (b Bounds) max() int {
	if b.MaxLen > 0 {
		return b.MaxLen
	}
	return DefaultMaxLen
}

// Validate trims raw and checks it against the identifier rules.
// It returns the normalized identifier, or a validation sentinel from
// pkg/faults describing the first rule that failed.
func Validate(raw string, bounds Bounds) (string, error) {
	normalized := strings.TrimSpace(raw)
	if normalized == "" {
		return "", faults.ErrEmptyIdentifier
	}
	if len(normalized) < bounds.min() {
		return "", faults.ErrIdentifierTooShort
	}
	if len(normalized) > bounds.max() {
		return "", faults.ErrIdentifierTooLong
	}
	for _, r := range normalized {
		if !isAllowed(r) {
			return "", faults.ErrInvalidCharacters
		}
	}
	return normalized, nil
}

func isAllowed(r rune) bool {
	switch {
	case r >= 'A' && r <= 'Z':
		return true
	case r >= 'a' && r <= 'z':
		return true
	case r >= '0' && r <= '9':
		return true
	case r == '-' || r == '_' || r == '.':
		return true
	}
	return false
}

// SafeFolderName substitutes path-breaking characters with underscores.
// Identifiers that already passed Validate come through unchanged; this is a
// second layer for identifier values injected by other entry points.
func SafeFolderName(identifier string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '<', '>', ':', '"', '/', '\\', '|', '?', '*':
			return '_'
		}
		return r
	}, identifier)
}
