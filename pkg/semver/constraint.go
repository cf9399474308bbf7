// SPDX-License-Identifier: MPL-2.0

package semver

import (
	"fmt"
	"regexp"
	"strings"
)

// Constraint represents a single version constraint clause.
type Constraint struct {
	// Op is the comparison operator (==, !=, >=, <=, >, <, ~=).
	Op string
	// Version is the version to compare against.
	Version *Version
	// Original is the original clause string.
	Original string

	// prec is the number of version components written in the clause,
	// needed to expand ~= (compatible release).
	prec int
}

// ConstraintSet is the AND of zero or more clauses, parsed from a
// comma-separated requirement string. The empty set is the wildcard.
type ConstraintSet struct {
	clauses  []*Constraint
	original string
}

// constraintRegex matches a single constraint clause. A bare version means ==.
var constraintRegex = regexp.MustCompile(`^(==|!=|>=|<=|>|<|~=)?\s*v?(\d+)(\.\d+)?(\.\d+)?(-[0-9A-Za-z\-\.]+)?(\+[0-9A-Za-z\-\.]+)?$`)

// ParseConstraint parses a single constraint clause.
func ParseConstraint(s string) (*Constraint, error) {
	s = strings.TrimSpace(s)

	matches := constraintRegex.FindStringSubmatch(s)
	if matches == nil {
		return nil, fmt.Errorf("invalid constraint format: %q", s)
	}

	op := matches[1]
	if op == "" {
		op = "=="
	}

	version, err := ParseVersion(strings.Join(matches[2:], ""))
	if err != nil {
		return nil, fmt.Errorf("invalid version in constraint %q: %w", s, err)
	}

	prec := 1
	if matches[3] != "" {
		prec++
	}
	if matches[4] != "" {
		prec++
	}

	if op == "~=" && prec < 2 {
		return nil, fmt.Errorf("compatible release constraint %q needs at least major.minor", s)
	}

	return &Constraint{
		Op:       op,
		Version:  version,
		Original: s,
		prec:     prec,
	}, nil
}

// Matches checks if a version satisfies the constraint. Matching a parsed
// constraint allocates nothing.
func (c *Constraint) Matches(v *Version) bool {
	switch c.Op {
	case "==":
		return v.Compare(c.Version) == 0

	case "!=":
		return v.Compare(c.Version) != 0

	case "~=":
		// Compatible release: ~=1.2.3 := >=1.2.3 ==1.2.*
		//                     ~=1.2   := >=1.2   ==1.*
		if v.Compare(c.Version) < 0 {
			return false
		}
		if c.prec >= 3 {
			return v.Major == c.Version.Major && v.Minor == c.Version.Minor
		}
		return v.Major == c.Version.Major

	case ">":
		return v.Compare(c.Version) > 0

	case ">=":
		return v.Compare(c.Version) >= 0

	case "<":
		return v.Compare(c.Version) < 0

	case "<=":
		return v.Compare(c.Version) <= 0

	default:
		return false
	}
}

// ceiling returns the exclusive release-triple upper bound of a ~= clause.
func (c *Constraint) ceiling() *Version {
	if c.prec >= 3 {
		return &Version{Major: c.Version.Major, Minor: c.Version.Minor + 1}
	}
	return &Version{Major: c.Version.Major + 1}
}

// ParseConstraintSet parses a comma-separated requirement string into the AND
// of its clauses. Empty or "*" input yields the wildcard set. Any malformed
// clause fails the whole set.
func ParseConstraintSet(s string) (*ConstraintSet, error) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" || trimmed == "*" {
		return &ConstraintSet{original: trimmed}, nil
	}

	parts := strings.Split(trimmed, ",")
	clauses := make([]*Constraint, 0, len(parts))
	for _, part := range parts {
		c, err := ParseConstraint(part)
		if err != nil {
			return nil, err
		}
		clauses = append(clauses, c)
	}

	return &ConstraintSet{clauses: clauses, original: trimmed}, nil
}

// IsValidConstraintSet checks if a string is a valid requirement.
func IsValidConstraintSet(s string) bool {
	_, err := ParseConstraintSet(s)
	return err == nil
}

// Matches checks if a version satisfies every clause of the set.
func (cs *ConstraintSet) Matches(v *Version) bool {
	for _, c := range cs.clauses {
		if !c.Matches(v) {
			return false
		}
	}
	return true
}

// IsWildcard reports whether the set admits every version.
func (cs *ConstraintSet) IsWildcard() bool {
	return len(cs.clauses) == 0
}

// String returns the requirement as written, or "*" for the wildcard.
func (cs *ConstraintSet) String() string {
	if cs.IsWildcard() {
		return "*"
	}
	return cs.original
}

// Resolve returns the highest version matching the set, preferring releases
// over prereleases. Returns nil when nothing matches.
func (cs *ConstraintSet) Resolve(versions []*Version) *Version {
	var matching []*Version
	for _, v := range versions {
		if cs.Matches(v) {
			matching = append(matching, v)
		}
	}
	return Highest(matching)
}

// bound is one end of the interval admitted by a set of range clauses.
type bound struct {
	v         *Version
	inclusive bool
}

// Overlaps reports whether any version can satisfy both constraint sets at
// once, so registering the two side by side would be ambiguous. The check is
// structural over clause bounds; no candidate versions are probed. It is
// symmetric: Overlaps(a, b) == Overlaps(b, a). Ranges separated only by
// adjacent prerelease tags are treated as overlapping.
func Overlaps(a, b *ConstraintSet) bool {
	clauses := make([]*Constraint, 0, len(a.clauses)+len(b.clauses))
	clauses = append(clauses, a.clauses...)
	clauses = append(clauses, b.clauses...)
	return satisfiable(clauses)
}

// satisfiable reports whether some version passes every clause.
func satisfiable(clauses []*Constraint) bool {
	if len(clauses) == 0 {
		return true
	}

	// A pinned version must pass everything else.
	for _, c := range clauses {
		if c.Op == "==" {
			return admits(clauses, c.Version)
		}
	}

	var lo, hi *bound
	var ceil *Version
	for _, c := range clauses {
		switch c.Op {
		case ">", ">=":
			lo = tighterLower(lo, &bound{v: c.Version, inclusive: c.Op == ">="})
		case "<", "<=":
			hi = tighterUpper(hi, &bound{v: c.Version, inclusive: c.Op == "<="})
		case "~=":
			lo = tighterLower(lo, &bound{v: c.Version, inclusive: true})
			if ceil == nil || compareTriple(c.ceiling(), ceil) < 0 {
				ceil = c.ceiling()
			}
		}
	}

	// Unbounded below: the tail cannot be emptied by finitely many !=.
	if lo == nil {
		return true
	}
	if ceil != nil && compareTriple(lo.v, ceil) >= 0 {
		return false
	}
	if hi == nil {
		return true
	}

	switch c := lo.v.Compare(hi.v); {
	case c > 0:
		return false
	case c < 0:
		return true
	case !lo.inclusive || !hi.inclusive:
		return false
	default:
		// Degenerate single-point interval.
		return admits(clauses, lo.v)
	}
}

// admits reports whether a version passes every clause.
func admits(clauses []*Constraint, v *Version) bool {
	for _, c := range clauses {
		if !c.Matches(v) {
			return false
		}
	}
	return true
}

func tighterLower(cur, candidate *bound) *bound {
	if cur == nil {
		return candidate
	}
	switch c := candidate.v.Compare(cur.v); {
	case c > 0:
		return candidate
	case c == 0 && !candidate.inclusive:
		return candidate
	default:
		return cur
	}
}

func tighterUpper(cur, candidate *bound) *bound {
	if cur == nil {
		return candidate
	}
	switch c := candidate.v.Compare(cur.v); {
	case c < 0:
		return candidate
	case c == 0 && !candidate.inclusive:
		return candidate
	default:
		return cur
	}
}
