package update

import (
	"fmt"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// ParseVersion parses a version string such as "1.4.0", "v1.4.0" or
// "2.0.0-rc.1". Partial versions like "1.4" are accepted.
func ParseVersion(s string) (*semver.Version, error) {
	v, err := semver.NewVersion(strings.TrimSpace(s))
	if err != nil {
		return nil, fmt.Errorf("invalid version format: %s", s)
	}
	return v, nil
}

// CompareVersions compares two version strings
// Returns:
//   - 1 if v1 > v2
//   - 0 if v1 == v2
//   - -1 if v1 < v2
//   - error if either version is invalid
func CompareVersions(v1, v2 string) (int, error) {
	ver1, err := ParseVersion(v1)
	if err != nil {
		return 0, fmt.Errorf("invalid version v1: %w", err)
	}

	ver2, err := ParseVersion(v2)
	if err != nil {
		return 0, fmt.Errorf("invalid version v2: %w", err)
	}

	return ver1.Compare(ver2), nil
}

// SameVersion reports whether a and b name the same release. Semantic
// versions compare by value; anything else compares as text, ignoring a
// leading "v" and surrounding whitespace.
func SameVersion(a, b string) bool {
	a, b = strings.TrimSpace(a), strings.TrimSpace(b)
	if a == "" || b == "" {
		return false
	}
	if c, err := CompareVersions(a, b); err == nil {
		return c == 0
	}
	return NormalizeVersion(a) == NormalizeVersion(b)
}

// KnownVersion reports whether v is a concrete version.
func KnownVersion(v string) bool {
	v = strings.TrimSpace(v)
	return v != "" && !strings.EqualFold(v, UnknownVersion)
}

// NeedsUpdate decides whether a release at version latest should be
// installed over current. Only two equal, concrete versions skip the update.
func NeedsUpdate(latest, current string) bool {
	if !KnownVersion(latest) || strings.TrimSpace(current) == "" {
		return true
	}
	return !SameVersion(latest, current)
}

// NormalizeVersion removes the 'v' prefix if present
func NormalizeVersion(s string) string {
	return strings.TrimPrefix(strings.TrimSpace(s), "v")
}
