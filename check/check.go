// Package check holds the consistency rules run against a submission.
//
// Every rule is a pure function returning the messages it found, in order,
// or nil when the submission passes. A mismatch is data, not an error; only
// I/O failures are returned as errors.
package check

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/petal-labs/addonvet/fetch"
	"github.com/petal-labs/addonvet/manifest"
	"github.com/petal-labs/addonvet/submission"
)

const (
	downloadScheme    = "https://"
	downloadExtension = ".nvda-addon"
)

var addonIDPattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9\-_]*[A-Za-z0-9]$`)

// DownloadURLFormat requires an https URL to a .nvda-addon file.
func DownloadURLFormat(url string) []string {
	var errs []string
	if !strings.HasPrefix(url, downloadScheme) {
		errs = append(errs, "Add-on download url must start with https://")
	}
	if !strings.HasSuffix(url, downloadExtension) {
		errs = append(errs, "Add-on download url must end with .nvda-addon")
	}
	return errs
}

// SHA256 compares the digest of the downloaded package at path with the
// declared one, ignoring case.
func SHA256(path, expected string) ([]string, error) {
	actual, err := fetch.SHA256File(path)
	if err != nil {
		return nil, err
	}
	if !strings.EqualFold(actual, expected) {
		return []string{fmt.Sprintf("Sha256 of .nvda-addon at URL is: %s", actual)}, nil
	}
	return nil, nil
}

// SummaryMatchesDisplayName compares the manifest summary with displayName.
func SummaryMatchesDisplayName(m *manifest.Manifest, r *submission.Record) []string {
	if m.Summary != r.DisplayName {
		return []string{fmt.Sprintf(
			"Submission 'displayName' must be set to '%s' in json file. Instead got: '%s'",
			m.Summary, r.DisplayName,
		)}
	}
	return nil
}

// DescriptionMatches compares the manifest description with description. A
// manifest without a description never matches.
func DescriptionMatches(m *manifest.Manifest, r *submission.Record) []string {
	if m.Description == nil || *m.Description != r.Description {
		return []string{fmt.Sprintf(
			"Submission 'description' must be set to '%s' in json file. Instead got: '%s'",
			display(m.Description), r.Description,
		)}
	}
	return nil
}

// ChangelogMatches compares the optional changelogs. Both absent is a match.
func ChangelogMatches(m *manifest.Manifest, r *submission.Record) []string {
	if !optionalEqual(m.Changelog, r.Changelog) {
		return []string{fmt.Sprintf(
			"Submission 'changelog' must be set to '%s' in json file instead of %s",
			display(m.Changelog), display(r.Changelog),
		)}
	}
	return nil
}

// URLMatchesHomepage compares the manifest url with homepage. Both absent is
// a match.
func URLMatchesHomepage(m *manifest.Manifest, r *submission.Record) []string {
	if !optionalEqual(m.URL, r.Homepage) {
		return []string{fmt.Sprintf(
			"Submission 'homepage' must be set to '%s' in json file instead of %s",
			display(m.URL), display(r.Homepage),
		)}
	}
	return nil
}

// AddonID checks the manifest name against the directory the submission is
// filed under, against addonId, and against the id format.
func AddonID(m *manifest.Manifest, submissionPath string, r *submission.Record) []string {
	var errs []string
	idInPath := filepath.Base(filepath.Dir(submissionPath))
	if m.Name != idInPath {
		errs = append(errs, fmt.Sprintf(
			"Submitted json file must be placed in a folder matching the addonId/name '%s'", m.Name,
		))
	}
	if m.Name != r.AddonID {
		errs = append(errs, fmt.Sprintf(
			"Submission data 'addonId' field does not match 'name' field in addon manifest: %s vs %s",
			m.Name, r.AddonID,
		))
	}
	if !addonIDPattern.MatchString(m.Name) {
		errs = append(errs, fmt.Sprintf(
			"Submission data 'addonId' field does not match the expected format:"+
				" must start and end with a letter, and contain only letters,"+
				" numbers, underscores, and hyphens. ID: %s",
			r.AddonID,
		))
	}
	return errs
}

// MinNVDAVersionMatches compares minimumNVDAVersion with minNVDAVersion.
func MinNVDAVersionMatches(m *manifest.Manifest, r *submission.Record) []string {
	if m.MinimumNVDAVersion != r.MinNVDAVersion {
		return []string{fmt.Sprintf(
			"Submission data 'minNVDAVersion' field does not match 'minNVDAVersion' field in"+
				" addon manifest: %s vs minNVDAVersion: %s",
			m.MinimumNVDAVersion, r.MinNVDAVersion,
		)}
	}
	return nil
}

// LastTestedNVDAVersionMatches compares lastTestedNVDAVersion with
// lastTestedVersion.
func LastTestedNVDAVersionMatches(m *manifest.Manifest, r *submission.Record) []string {
	if m.LastTestedNVDAVersion != r.LastTestedVersion {
		return []string{fmt.Sprintf(
			"Submission data 'lastTestedVersion' field does not match 'lastTestedNVDAVersion' field in"+
				" addon manifest: %s vs lastTestedVersion: %s",
			m.LastTestedNVDAVersion, r.LastTestedVersion,
		)}
	}
	return nil
}

func optionalEqual(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// display renders an optional value the way it appears in messages.
func display(s *string) string {
	if s == nil {
		return "None"
	}
	return *s
}
