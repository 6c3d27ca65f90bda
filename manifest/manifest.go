// Package manifest parses the manifest.ini file shipped inside every NVDA
// add-on package.
//
// The literal value "None", which manifest authors and older tooling use for
// "not set", is normalised here: optional string fields become nil and API
// version fields become 0.0.0. Nothing past this package needs to know the
// sentinel exists.
package manifest

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/ini.v1"

	"github.com/petal-labs/addonvet/version"
)

// FileName is the manifest location at the root of a package.
const FileName = "manifest.ini"

// noneValue is the sentinel manifests use for an unset value.
const noneValue = "None"

var (
	// ErrInvalidManifest wraps every load-time validation problem.
	ErrInvalidManifest = errors.New("invalid manifest file")
	// ErrManifestNotFound is returned when a package has no root manifest.ini.
	ErrManifestNotFound = errors.New("manifest.ini not found in package")
)

var loadOptions = ini.LoadOptions{
	KeyValueDelimiters:        "=",
	IgnoreInlineComment:       true,
	UnescapeValueDoubleQuotes: true,
}

// Manifest is the typed form of manifest.ini.
type Manifest struct {
	Name    string
	Summary string
	Author  string
	Version string

	Description *string
	URL         *string
	Changelog   *string
	DocFileName *string

	MinimumNVDAVersion    version.MajorMinorPatch
	LastTestedNVDAVersion version.MajorMinorPatch

	// Problems lists validation failures found while loading. A manifest
	// with problems still carries every field that could be read.
	Problems []string
}

// Err returns nil for a valid manifest, or an error wrapping
// ErrInvalidManifest that lists every problem.
func (m *Manifest) Err() error {
	if len(m.Problems) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %s", ErrInvalidManifest, strings.Join(m.Problems, "; "))
}

// Load reads a manifest.ini file from disk.
func Load(path string) (*Manifest, error) {
	// #nosec G304 -- path is supplied by the caller.
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading manifest %s: %w", path, err)
	}
	return Parse(data)
}

// Parse reads manifest.ini content. The returned error covers syntax only;
// missing keys, bad API versions and the version range constraint are
// reported through Manifest.Problems.
func Parse(data []byte) (*Manifest, error) {
	sec, err := loadSection(data)
	if err != nil {
		return nil, err
	}

	m := &Manifest{}
	m.Name = m.required(sec, "name")
	m.Summary = m.required(sec, "summary")
	m.Author = m.required(sec, "author")
	m.Version = m.required(sec, "version")

	m.Description = optional(sec, "description")
	m.URL = optional(sec, "url")
	if m.URL != nil && *m.URL == "" {
		m.URL = nil
	}
	m.Changelog = optional(sec, "changelog")
	m.DocFileName = optional(sec, "docFileName")

	var minOK, lastOK bool
	m.MinimumNVDAVersion, minOK = m.apiVersion(sec, "minimumNVDAVersion")
	m.LastTestedNVDAVersion, lastOK = m.apiVersion(sec, "lastTestedNVDAVersion")

	if minOK && lastOK && m.LastTestedNVDAVersion.Less(m.MinimumNVDAVersion) {
		m.Problems = append(m.Problems, fmt.Sprintf(
			"Constraint not met: minimumNVDAVersion (%s) <= lastTestedNVDAVersion (%s)",
			m.MinimumNVDAVersion, m.LastTestedNVDAVersion,
		))
	}
	return m, nil
}

func loadSection(data []byte) (*ini.Section, error) {
	cfg, err := ini.LoadSources(loadOptions, data)
	if err != nil {
		return nil, fmt.Errorf("manifest: parse: %w", err)
	}
	return cfg.Section(ini.DefaultSection), nil
}

func (m *Manifest) required(sec *ini.Section, key string) string {
	if !sec.HasKey(key) {
		m.Problems = append(m.Problems, fmt.Sprintf("%s: missing required key", key))
		return ""
	}
	return sec.Key(key).String()
}

func (m *Manifest) apiVersion(sec *ini.Section, key string) (version.MajorMinorPatch, bool) {
	if !sec.HasKey(key) {
		return version.MajorMinorPatch{}, true
	}
	raw := sec.Key(key).String()
	if raw == "" || raw == noneValue {
		return version.MajorMinorPatch{}, true
	}
	v, err := version.Parse(raw)
	if err != nil {
		m.Problems = append(m.Problems, fmt.Sprintf("%s: %q is not a valid API Version string: %v", key, raw, err))
		return version.MajorMinorPatch{}, false
	}
	return v, true
}

func optional(sec *ini.Section, key string) *string {
	if !sec.HasKey(key) {
		return nil
	}
	v := sec.Key(key).String()
	if v == noneValue {
		return nil
	}
	return &v
}
