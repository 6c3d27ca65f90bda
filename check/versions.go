package check

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/petal-labs/addonvet/apiversions"
	"github.com/petal-labs/addonvet/manifest"
	"github.com/petal-labs/addonvet/submission"
	"github.com/petal-labs/addonvet/version"
)

// Versions runs the three version checks in order: file name, manifest
// version, parsed version name.
func Versions(m *manifest.Manifest, submissionPath string, r *submission.Record) []string {
	var errs []string
	errs = append(errs, SubmissionFilenameMatchesVersionNumber(submissionPath, r)...)
	errs = append(errs, ManifestVersionMatchesVersionName(m, r)...)
	errs = append(errs, ParsedVersionNameMatchesVersionNumber(r)...)
	return errs
}

// SubmissionFilenameMatchesVersionNumber requires the file to be named
// "<M.m.p>.json" after addonVersionNumber.
func SubmissionFilenameMatchesVersionNumber(submissionPath string, r *submission.Record) []string {
	base := filepath.Base(submissionPath)
	fromPath := strings.TrimSuffix(base, filepath.Ext(base))
	want := r.AddonVersionNumber.String()
	if fromPath != want {
		return []string{fmt.Sprintf(
			"Submission filename and versionNumber mismatch error:"+
				" addonVersionNumber: %s version from submission filename: %s expected submission filename: %s.json",
			want, fromPath, want,
		)}
	}
	return nil
}

// ManifestVersionMatchesVersionName compares the manifest version with
// addonVersionName verbatim.
func ManifestVersionMatchesVersionName(m *manifest.Manifest, r *submission.Record) []string {
	if m.Version != r.AddonVersionName {
		return []string{fmt.Sprintf(
			"Submission data 'addonVersionName' field does not match 'version' field in"+
				" addon manifest: %s vs addonVersionName: %s",
			m.Version, r.AddonVersionName,
		)}
	}
	return nil
}

// ParsedVersionNameMatchesVersionNumber warns when addonVersionName does not
// leniently parse to addonVersionNumber.
func ParsedVersionNameMatchesVersionNumber(r *submission.Record) []string {
	if version.ParseLenient(r.AddonVersionName) != r.AddonVersionNumber {
		return []string{fmt.Sprintf(
			"Warning: submission data 'addonVersionName' and 'addonVersionNumber' mismatch."+
				"  Unable to parse: %s and match with %s",
			r.AddonVersionName, r.AddonVersionNumber,
		)}
	}
	return nil
}

// LastTestedVersionExist requires lastTestedVersion to be a known API
// version, and a stable one on the stable channel.
func LastTestedVersionExist(r *submission.Record, reg *apiversions.Registry) []string {
	return versionExists("Last tested version error", r.LastTestedVersion, r.Channel, reg)
}

// MinRequiredVersionExist is LastTestedVersionExist for minNVDAVersion.
func MinRequiredVersionExist(r *submission.Record, reg *apiversions.Registry) []string {
	return versionExists("Minimum required version error", r.MinNVDAVersion, r.Channel, reg)
}

func versionExists(prefix string, v version.MajorMinorPatch, channel string, reg *apiversions.Registry) []string {
	switch {
	case !reg.Has(v):
		return []string{fmt.Sprintf("%s: %s doesn't exist", prefix, v)}
	case channel == submission.ChannelStable && !reg.HasStable(v):
		return []string{fmt.Sprintf(
			"%s: %s is not stable yet. Please submit add-on using the beta or dev channel.", prefix, v,
		)}
	}
	return nil
}
