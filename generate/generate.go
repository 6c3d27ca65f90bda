// Package generate builds submission records from add-on packages.
package generate

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/petal-labs/addonvet/fetch"
	"github.com/petal-labs/addonvet/manifest"
	"github.com/petal-labs/addonvet/submission"
	"github.com/petal-labs/addonvet/version"
)

// Params are the submission details that do not come from the package.
type Params struct {
	Channel     string
	Publisher   string
	SourceURL   string
	DownloadURL string
	LicenseName string
	// LicenseURL is optional; nil or empty leaves licenseURL out.
	LicenseURL *string
}

// Record builds the submission for a package from its manifest, its
// translations and its checksum. now becomes submissionTime.
func Record(m *manifest.Manifest, translations []manifest.Translation, sha string, p Params, now time.Time) (*submission.Record, error) {
	number, err := version.Parse(m.Version)
	if err != nil {
		return nil, fmt.Errorf("manifest version invalid %s: %w", m.Version, err)
	}
	if m.Name == "" {
		return nil, missingKey("name")
	}
	if m.Summary == "" {
		return nil, missingKey("summary")
	}
	if m.Description == nil {
		return nil, missingKey("description")
	}

	built, err := Translations(translations)
	if err != nil {
		return nil, err
	}

	licenseURL := p.LicenseURL
	if licenseURL != nil && *licenseURL == "" {
		licenseURL = nil
	}

	return &submission.Record{
		AddonID:            m.Name,
		DisplayName:        m.Summary,
		URL:                p.DownloadURL,
		Description:        *m.Description,
		SHA256:             sha,
		AddonVersionName:   m.Version,
		AddonVersionNumber: number,
		MinNVDAVersion:     m.MinimumNVDAVersion,
		LastTestedVersion:  m.LastTestedNVDAVersion,
		Channel:            p.Channel,
		Publisher:          p.Publisher,
		SourceURL:          p.SourceURL,
		License:            p.LicenseName,
		Homepage:           m.URL,
		Changelog:          m.Changelog,
		LicenseURL:         licenseURL,
		SubmissionTime:     now.UnixMilli(),
		Translations:       built,
	}, nil
}

// Translations converts translated manifests into record translations.
// Summary and description are required for every language.
func Translations(in []manifest.Translation) ([]submission.Translation, error) {
	out := make([]submission.Translation, 0, len(in))
	for _, t := range in {
		if t.Summary == nil {
			return nil, fmt.Errorf("translation for %s missing required key 'summary'", t.Language)
		}
		if t.Description == nil {
			return nil, fmt.Errorf("translation for %s missing required key 'description'", t.Language)
		}
		out = append(out, submission.Translation{
			Language:    t.Language,
			DisplayName: *t.Summary,
			Description: *t.Description,
			Changelog:   t.Changelog,
		})
	}
	return out, nil
}

// OutputPath is <parentDir>/<addonId>/<M.m.p>.json.
func OutputPath(r *submission.Record, parentDir string) string {
	return filepath.Join(parentDir, r.AddonID, r.AddonVersionNumber.String()+".json")
}

// FromPackage reads the package at pkgPath, builds its record and writes it
// under parentDir. It returns the written path. A manifest with problems is
// returned as an error wrapping manifest.ErrInvalidManifest.
func FromPackage(pkgPath, parentDir string, p Params, now time.Time) (string, error) {
	pkg, err := manifest.OpenPackage(pkgPath)
	if err != nil {
		return "", err
	}
	defer pkg.Close()

	m, err := pkg.Manifest()
	if err != nil {
		return "", err
	}
	if len(m.Problems) > 0 {
		return "", &ManifestError{Problems: m.Problems}
	}
	translations, err := pkg.Translations()
	if err != nil {
		return "", err
	}
	sha, err := fetch.SHA256File(pkgPath)
	if err != nil {
		return "", err
	}

	r, err := Record(m, translations, sha, p, now)
	if err != nil {
		return "", err
	}
	path := OutputPath(r, parentDir)
	if err := submission.WriteFile(path, r); err != nil {
		return "", err
	}
	return path, nil
}

func missingKey(key string) error {
	return fmt.Errorf("manifest missing required key '%s'", key)
}

// ManifestError lists the problems found in a package manifest. It wraps
// manifest.ErrInvalidManifest.
type ManifestError struct {
	Problems []string
}

func (e *ManifestError) Error() string {
	return manifest.ErrInvalidManifest.Error() + ": " + strings.Join(e.Problems, "; ")
}

func (e *ManifestError) Unwrap() error {
	return manifest.ErrInvalidManifest
}
