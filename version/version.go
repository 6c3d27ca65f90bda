// Package version implements the three-component version numbers used by
// add-on submissions, add-on manifests and the API versions registry.
package version

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// ErrInvalidVersionString is returned by Parse for anything that is not
// "M.m" or "M.m.p" with all-digit components.
var ErrInvalidVersionString = errors.New("invalid version string")

// LenientPattern is the grammar ParseLenient accepts. Group 1 is always the
// major component; groups 2 and 3-4 carry the two- and three-part forms.
var LenientPattern = regexp.MustCompile(`^(\d+)(?:$|\.(\d+)$|\.(\d+)\.(\d+)$)`)

// MajorMinorPatch is a version triple. The zero value is 0.0.0.
type MajorMinorPatch struct {
	Major int `json:"major"`
	Minor int `json:"minor"`
	Patch int `json:"patch"`
}

// New returns the triple for the given components.
func New(major, minor, patch int) MajorMinorPatch {
	return MajorMinorPatch{Major: major, Minor: minor, Patch: patch}
}

// Parse reads the strict "M.m" or "M.m.p" form. A missing patch is zero and
// leading zeros are accepted, so "1.02" is 1.2.0.
func Parse(raw string) (MajorMinorPatch, error) {
	parts := strings.Split(raw, ".")
	if len(parts) < 2 || len(parts) > 3 {
		return MajorMinorPatch{}, fmt.Errorf("%w: %q must have two or three components", ErrInvalidVersionString, raw)
	}

	nums := [3]int{}
	for i, part := range parts {
		n, err := parseComponent(part)
		if err != nil {
			return MajorMinorPatch{}, fmt.Errorf("%w: %q: %v", ErrInvalidVersionString, raw, err)
		}
		nums[i] = n
	}
	return MajorMinorPatch{Major: nums[0], Minor: nums[1], Patch: nums[2]}, nil
}

// ParseLenient reads free-form version names such as "13.06" or "2".
// Input that does not match LenientPattern yields 0.0.0; this function never
// fails.
func ParseLenient(raw string) MajorMinorPatch {
	match := LenientPattern.FindStringSubmatch(raw)
	if match == nil {
		return MajorMinorPatch{}
	}

	nums := make([]int, 0, 3)
	for _, group := range match[1:] {
		if group == "" {
			continue
		}
		n, err := strconv.Atoi(group)
		if err != nil {
			// Only reachable on overflow.
			return MajorMinorPatch{}
		}
		nums = append(nums, n)
	}
	for len(nums) < 3 {
		nums = append(nums, 0)
	}
	return MajorMinorPatch{Major: nums[0], Minor: nums[1], Patch: nums[2]}
}

func parseComponent(part string) (int, error) {
	if part == "" {
		return 0, errors.New("empty component")
	}
	for _, r := range part {
		if r < '0' || r > '9' {
			return 0, fmt.Errorf("component %q is not a number", part)
		}
	}
	n, err := strconv.Atoi(part)
	if err != nil {
		return 0, fmt.Errorf("component %q: %w", part, err)
	}
	return n, nil
}

// String renders the fully qualified "M.m.p" form.
func (v MajorMinorPatch) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
}

// Compare returns -1, 0 or 1 ordering v against other component by component.
func (v MajorMinorPatch) Compare(other MajorMinorPatch) int {
	for _, d := range [3]int{v.Major - other.Major, v.Minor - other.Minor, v.Patch - other.Patch} {
		switch {
		case d < 0:
			return -1
		case d > 0:
			return 1
		}
	}
	return 0
}

// Less reports whether v sorts before other.
func (v MajorMinorPatch) Less(other MajorMinorPatch) bool {
	return v.Compare(other) < 0
}

// IsZero reports whether v is 0.0.0.
func (v MajorMinorPatch) IsZero() bool {
	return v == MajorMinorPatch{}
}

// UnmarshalJSON accepts the object shape and rejects negative components.
func (v *MajorMinorPatch) UnmarshalJSON(data []byte) error {
	type plain MajorMinorPatch
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	if p.Major < 0 || p.Minor < 0 || p.Patch < 0 {
		return fmt.Errorf("%w: negative component in %s", ErrInvalidVersionString, string(data))
	}
	*v = MajorMinorPatch(p)
	return nil
}
