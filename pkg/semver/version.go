// SPDX-License-Identifier: MPL-2.0

// Package semver implements semantic version parsing and the constraint
// language used to bind transforms to entity type versions: comma-separated
// AND clauses with the operators ==, !=, >=, <=, >, < and ~= (compatible
// release). An empty requirement is the wildcard that admits every version.
package semver

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
)

// Version represents a parsed semantic version.
type Version struct {
	Major      int
	Minor      int
	Patch      int
	Prerelease string
	Build      string
	Original   string
}

// semverRegex matches semantic version strings. Minor and patch are optional
// and default to zero, so "1" and "1.2" parse like "1.0.0" and "1.2.0".
var semverRegex = regexp.MustCompile(`^v?(\d+)(?:\.(\d+))?(?:\.(\d+))?(?:-([0-9A-Za-z\-\.]+))?(?:\+([0-9A-Za-z\-\.]+))?$`)

// ParseVersion parses a version string into a Version struct.
func ParseVersion(s string) (*Version, error) {
	matches := semverRegex.FindStringSubmatch(s)
	if matches == nil {
		return nil, fmt.Errorf("invalid version format: %s", s)
	}

	v := &Version{Original: s}

	var err error
	v.Major, err = strconv.Atoi(matches[1])
	if err != nil {
		return nil, fmt.Errorf("invalid major version: %w", err)
	}

	if matches[2] != "" {
		v.Minor, err = strconv.Atoi(matches[2])
		if err != nil {
			return nil, fmt.Errorf("invalid minor version: %w", err)
		}
	}

	if matches[3] != "" {
		v.Patch, err = strconv.Atoi(matches[3])
		if err != nil {
			return nil, fmt.Errorf("invalid patch version: %w", err)
		}
	}

	v.Prerelease = matches[4]
	v.Build = matches[5]

	return v, nil
}

// String returns the version as originally written.
func (v *Version) String() string {
	return v.Original
}

// Canonical returns the normalized "major.minor.patch[-prerelease]" form,
// so "1.2" and "1.2.0" canonicalize identically. Build metadata is dropped.
func (v *Version) Canonical() string {
	s := fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
	if v.Prerelease != "" {
		s += "-" + v.Prerelease
	}
	return s
}

// Compare compares two versions.
// Returns -1 if v < other, 0 if v == other, 1 if v > other.
// Prerelease versions sort before their release; prerelease tags compare
// lexicographically. Build metadata is ignored.
func (v *Version) Compare(other *Version) int {
	if c := compareTriple(v, other); c != 0 {
		return c
	}

	// Prerelease versions have lower precedence
	if v.Prerelease == "" && other.Prerelease != "" {
		return 1
	}
	if v.Prerelease != "" && other.Prerelease == "" {
		return -1
	}
	if v.Prerelease != other.Prerelease {
		if v.Prerelease < other.Prerelease {
			return -1
		}
		return 1
	}

	return 0
}

// compareTriple compares only the major.minor.patch release triple.
func compareTriple(v, other *Version) int {
	if v.Major != other.Major {
		if v.Major < other.Major {
			return -1
		}
		return 1
	}

	if v.Minor != other.Minor {
		if v.Minor < other.Minor {
			return -1
		}
		return 1
	}

	if v.Patch != other.Patch {
		if v.Patch < other.Patch {
			return -1
		}
		return 1
	}

	return 0
}

// IsValidVersion checks if a string is a valid semantic version.
func IsValidVersion(s string) bool {
	_, err := ParseVersion(s)
	return err == nil
}

// SortVersions sorts parsed versions in descending order (newest first).
func SortVersions(versions []*Version) {
	sort.Slice(versions, func(i, j int) bool {
		return versions[i].Compare(versions[j]) > 0
	})
}

// Highest returns the highest of the given versions, preferring release
// versions over prereleases: a prerelease wins only when no release version
// is present. Returns nil for an empty slice.
func Highest(versions []*Version) *Version {
	var best, bestPre *Version
	for _, v := range versions {
		if v.Prerelease != "" {
			if bestPre == nil || v.Compare(bestPre) > 0 {
				bestPre = v
			}
			continue
		}
		if best == nil || v.Compare(best) > 0 {
			best = v
		}
	}
	if best != nil {
		return best
	}
	return bestPre
}
