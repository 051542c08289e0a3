// Package core implements the publish-gating workflow: the semantic version
// order, the registry document model, the monotonicity and subset validators,
// the snapshot builder, and the decision engine that picks between
// retag-latest, publish-new, and skip.
package core

import (
	"fmt"
	"strconv"
	"strings"
)

// Semver is a three-component semantic version. Immutable once constructed.
type Semver struct {
	Major uint64
	Minor uint64
	Patch uint64
}

// ParseSemver parses "major.minor.patch". The second return is false when
// text does not match the strict numeric three-component form; callers fall
// back to lexical string comparison for such values.
func ParseSemver(text string) (Semver, bool) {
	parts := strings.Split(text, ".")
	if len(parts) != 3 {
		return Semver{}, false
	}
	var nums [3]uint64
	for i, part := range parts {
		n, err := strconv.ParseUint(part, 10, 64)
		if err != nil {
			return Semver{}, false
		}
		nums[i] = n
	}
	return Semver{Major: nums[0], Minor: nums[1], Patch: nums[2]}, true
}

// Compare returns -1, 0, or 1 by tuple order on (major, minor, patch).
func (v Semver) Compare(o Semver) int {
	if c := compareUint64(v.Major, o.Major); c != 0 {
		return c
	}
	if c := compareUint64(v.Minor, o.Minor); c != 0 {
		return c
	}
	return compareUint64(v.Patch, o.Patch)
}

// AtLeast reports whether v >= o.
func (v Semver) AtLeast(o Semver) bool {
	return v.Compare(o) >= 0
}

func (v Semver) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
}

func compareUint64(a, b uint64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// versionAtLeast reports whether newer >= older. When both sides parse as
// semantic versions the version order applies; otherwise the comparison is
// lexical.
func versionAtLeast(newer, older string) bool {
	nv, nok := ParseSemver(newer)
	ov, ook := ParseSemver(older)
	if nok && ook {
		return nv.AtLeast(ov)
	}
	return newer >= older
}
