// Package version picks the version a linked dependency is given for one
// install run, and orders the version keys published by a repository index.
package version

import (
	"slices"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/maruel/natural"

	cerrors "github.com/matzehuels/composer-link/pkg/errors"
)

// Sentinel is the base version used when the repository index has no
// release of the dependency. Its patch successor, 999.999.999, sorts above
// any real release.
const Sentinel = "999.999.998"

// Parse parses a version string. A leading "^" is ignored so that a caret
// constraint can be read back as the version it was built from.
func Parse(s string) (*semver.Version, error) {
	v, err := semver.NewVersion(trimCaret(s))
	if err != nil {
		return nil, cerrors.Wrap(cerrors.ErrCodeVersionParse, err, "failed to parse version string: %s", s)
	}
	return v, nil
}

func trimCaret(s string) string {
	for len(s) > 0 && s[0] == '^' {
		s = s[1:]
	}
	return s
}

// Next returns the version to install for a linked dependency: the patch
// successor of latest, or of [Sentinel] when latest is nil.
//
// Pre-release and metadata parts are dropped, so 1.2.3-beta becomes 1.2.4.
func Next(latest *semver.Version) *semver.Version {
	base := latest
	if base == nil {
		base = semver.MustParse(Sentinel)
	}
	return semver.New(base.Major(), base.Minor(), base.Patch()+1, "", "")
}

// Constraint returns the caret constraint requiring v, e.g. "^1.2.4".
func Constraint(v *semver.Version) string {
	return "^" + v.String()
}

// Satisfies reports whether v satisfies constraint.
func Satisfies(constraint string, v *semver.Version) (bool, error) {
	c, err := semver.NewConstraint(constraint)
	if err != nil {
		return false, cerrors.Wrap(cerrors.ErrCodeVersionParse, err, "failed to parse constraint: %s", constraint)
	}
	return c.Check(v), nil
}

// SortNatural sorts version keys in natural order, comparing runs of digits
// by value: "0.9.0" < "1.0.0" < "1.2.0" < "1.10.0". Keys that compare equal
// by value ("1.01" and "1.1") fall back to byte order.
func SortNatural(keys []string) {
	slices.SortFunc(keys, compareNatural)
}

func compareNatural(a, b string) int {
	switch {
	case natural.Less(a, b):
		return -1
	case natural.Less(b, a):
		return 1
	}
	return strings.Compare(a, b)
}

// Latest returns the last of keys in natural order, or "" if keys is empty.
// The input slice is not modified.
func Latest(keys []string) string {
	if len(keys) == 0 {
		return ""
	}
	sorted := slices.Clone(keys)
	SortNatural(sorted)
	return sorted[len(sorted)-1]
}
