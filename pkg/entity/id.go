// SPDX-License-Identifier: MPL-2.0

// Package entity defines the descriptor schema for plugin entity types: the
// versioned type descriptors third-party plugins register, their field
// schemas, the payload snapshots transforms consume, and the blueprint
// skeletons used to create new entities.
package entity

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/graftlabs/graft/pkg/semver"
)

// ID is a canonical snake_case entity or setting identifier.
type ID string

// ErrInvalidID indicates an identifier that does not follow snake_case rules.
var ErrInvalidID = errors.New("invalid identifier")

// idRegex matches canonical identifiers: lowercase, digits and underscores,
// starting with a letter.
var idRegex = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

// String returns the identifier as a plain string.
func (id ID) String() string {
	return string(id)
}

// Validate checks that the identifier is canonical.
func (id ID) Validate() error {
	if !idRegex.MatchString(string(id)) {
		return fmt.Errorf("%w: %q (want snake_case starting with a letter)", ErrInvalidID, id)
	}
	return nil
}

// NormalizeID converts a display name into a canonical identifier:
// "IP Address" and "ipAddress" both become "ip_address". Characters outside
// [a-z0-9_] are treated as separators and runs of separators collapse.
func NormalizeID(s string) ID {
	var b strings.Builder
	b.Grow(len(s) + 4)

	prevUnderscore := true // swallow leading separators
	prevLowerOrDigit := false
	for _, r := range s {
		switch {
		case unicode.IsUpper(r):
			if prevLowerOrDigit && !prevUnderscore {
				b.WriteByte('_')
			}
			b.WriteRune(unicode.ToLower(r))
			prevUnderscore = false
			prevLowerOrDigit = false
		case unicode.IsLower(r):
			b.WriteRune(r)
			prevUnderscore = false
			prevLowerOrDigit = true
		case unicode.IsDigit(r):
			b.WriteRune(r)
			prevUnderscore = false
			prevLowerOrDigit = true
		default:
			if !prevUnderscore {
				b.WriteByte('_')
				prevUnderscore = true
			}
			prevLowerOrDigit = false
		}
	}

	return ID(strings.Trim(b.String(), "_"))
}

// Ref is a parsed entity type reference: a bare identifier or the
// "identifier@version" form pinning an exact version.
type Ref struct {
	// ID is the normalized entity type identifier.
	ID ID
	// Version is the pinned version, empty for a bare reference that
	// resolves to the highest registered version.
	Version string
}

// ErrInvalidRef indicates a reference that cannot be parsed.
var ErrInvalidRef = errors.New("invalid entity reference")

// ParseRef parses an entity type reference. The identifier part is
// normalized, so "IP Address@1.2.0" and "ip_address@1.2.0" are equivalent.
func ParseRef(s string) (Ref, error) {
	name, version, pinned := strings.Cut(s, "@")

	id := NormalizeID(name)
	if err := id.Validate(); err != nil {
		return Ref{}, fmt.Errorf("%w: %q: %v", ErrInvalidRef, s, err)
	}

	if !pinned {
		return Ref{ID: id}, nil
	}
	if !semver.IsValidVersion(version) {
		return Ref{}, fmt.Errorf("%w: %q: bad version %q", ErrInvalidRef, s, version)
	}
	return Ref{ID: id, Version: version}, nil
}

// String returns the reference in its canonical written form.
func (r Ref) String() string {
	if r.Version == "" {
		return string(r.ID)
	}
	return string(r.ID) + "@" + r.Version
}

// Pinned reports whether the reference names an exact version.
func (r Ref) Pinned() bool {
	return r.Version != ""
}
