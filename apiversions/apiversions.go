// Package apiversions loads the registry of known NVDA API versions. The
// registry decides which versions a submission may declare as its minimum
// or last tested version, and which of those are stable.
package apiversions

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/Masterminds/semver/v3"

	"github.com/petal-labs/addonvet/version"
)

// ErrEmpty is returned by Latest when no entry qualifies.
var ErrEmpty = errors.New("apiversions: no versions")

// Entry is one element of the API versions file.
type Entry struct {
	Description  string                   `json:"description,omitempty"`
	APIVer       version.MajorMinorPatch  `json:"apiVer"`
	BackCompatTo *version.MajorMinorPatch `json:"backCompatTo,omitempty"`
	Experimental bool                     `json:"experimental,omitempty"`
}

// Registry is the read-only set of known API versions, in file order.
type Registry struct {
	entries []Entry
	all     map[string]struct{}
	stable  map[string]struct{}
	order   []string
}

// Load reads and parses an API versions file.
func Load(path string) (*Registry, error) {
	// #nosec G304 -- path is supplied by the operator.
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading api versions %s: %w", path, err)
	}
	reg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parsing api versions %s: %w", path, err)
	}
	return reg, nil
}

// Parse builds a registry from the JSON array form.
func Parse(data []byte) (*Registry, error) {
	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, err
	}
	return New(entries), nil
}

// New builds a registry from already decoded entries.
func New(entries []Entry) *Registry {
	r := &Registry{
		entries: entries,
		all:     make(map[string]struct{}, len(entries)),
		stable:  make(map[string]struct{}, len(entries)),
	}
	for _, e := range entries {
		key := e.APIVer.String()
		if _, exists := r.all[key]; !exists {
			r.order = append(r.order, key)
		}
		r.all[key] = struct{}{}
		if !e.Experimental {
			r.stable[key] = struct{}{}
		}
	}
	return r
}

// Entries returns a copy of the decoded entries.
func (r *Registry) Entries() []Entry {
	out := make([]Entry, len(r.entries))
	copy(out, r.entries)
	return out
}

// Versions returns every known version formatted as "M.m.p", in file order.
func (r *Registry) Versions() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// StableVersions is Versions without the experimental entries.
func (r *Registry) StableVersions() []string {
	out := make([]string, 0, len(r.stable))
	for _, key := range r.order {
		if _, ok := r.stable[key]; ok {
			out = append(out, key)
		}
	}
	return out
}

// Has reports whether v is a known version.
func (r *Registry) Has(v version.MajorMinorPatch) bool {
	_, ok := r.all[v.String()]
	return ok
}

// HasStable reports whether v is a known, non-experimental version.
func (r *Registry) HasStable(v version.MajorMinorPatch) bool {
	_, ok := r.stable[v.String()]
	return ok
}

// Len returns the number of distinct versions.
func (r *Registry) Len() int {
	return len(r.order)
}

// Latest returns the highest known version, optionally restricted to stable
// ones.
func (r *Registry) Latest(stableOnly bool) (version.MajorMinorPatch, error) {
	keys := r.order
	if stableOnly {
		keys = r.StableVersions()
	}
	if len(keys) == 0 {
		return version.MajorMinorPatch{}, ErrEmpty
	}

	collection := make(semver.Collection, 0, len(keys))
	for _, key := range keys {
		sv, err := semver.StrictNewVersion(key)
		if err != nil {
			return version.MajorMinorPatch{}, fmt.Errorf("apiversions: %s: %w", key, err)
		}
		collection = append(collection, sv)
	}
	sort.Sort(collection)

	latest := collection[len(collection)-1]
	return version.New(int(latest.Major()), int(latest.Minor()), int(latest.Patch())), nil // #nosec G115 -- components originate from int
}
