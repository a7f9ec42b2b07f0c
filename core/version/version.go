package version

import (
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/mod/semver"
)

// Version is a major.minor.patch triple. A zero major version marks a
// pre-1.0 project with no stability guarantee.
type Version struct {
	Major int
	Minor int
	Patch int
}

// Parse reads a dotted "major.minor.patch" string. Prerelease and build
// suffixes, a leading "v", and leading zeros are rejected.
func Parse(s string) (Version, error) {
	if s == "" {
		return Version{}, fmt.Errorf("empty version string")
	}
	if strings.HasPrefix(s, "v") {
		return Version{}, fmt.Errorf("invalid version %q: unexpected 'v' prefix", s)
	}

	// semver.Canonical fills in missing components, so a round trip through
	// it only matches for a complete, suffix-free triple.
	sv := "v" + s
	if !semver.IsValid(sv) || semver.Canonical(sv) != sv || semver.Prerelease(sv) != "" {
		return Version{}, fmt.Errorf("invalid version %q: want major.minor.patch", s)
	}

	parts := strings.Split(s, ".")
	nums := make([]int, len(parts))
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return Version{}, fmt.Errorf("invalid version %q: %w", s, err)
		}
		nums[i] = n
	}

	return Version{Major: nums[0], Minor: nums[1], Patch: nums[2]}, nil
}

// MustParse is like Parse but panics on error. Intended for tests and
// package-level literals.
func MustParse(s string) Version {
	v, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return v
}

// String returns the dotted form, e.g. "0.3.5".
func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
}

// IsPre1 reports whether v is below 1.0.0.
func (v Version) IsPre1() bool {
	return v.Compare(Version{Major: 1}) < 0
}

// Compare returns -1, 0 or +1 following semver ordering.
func (v Version) Compare(w Version) int {
	return semver.Compare("v"+v.String(), "v"+w.String())
}
