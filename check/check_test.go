package check

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/petal-labs/addonvet/apiversions"
	"github.com/petal-labs/addonvet/manifest"
	"github.com/petal-labs/addonvet/submission"
	"github.com/petal-labs/addonvet/version"
)

var submissionPath = filepath.Join("addons", "fake", "13.0.0.json")

func strPtr(s string) *string { return &s }

func newManifest() *manifest.Manifest {
	return &manifest.Manifest{
		Name:                  "fake",
		Summary:               "mock addon",
		Author:                "Name <name@domain.com>",
		Version:               "13.0.0",
		Description:           strPtr("The description for the addon"),
		URL:                   strPtr("https://nvaccess.org"),
		Changelog:             strPtr("Fixed a bug."),
		MinimumNVDAVersion:    version.New(2022, 1, 0),
		LastTestedNVDAVersion: version.New(2023, 1, 0),
	}
}

func newRecord() *submission.Record {
	return &submission.Record{
		AddonID:            "fake",
		DisplayName:        "mock addon",
		URL:                "https://github.com/nvaccess/dont/use/this/address/fake.nvda-addon",
		Description:        "The description for the addon",
		AddonVersionName:   "13.0.0",
		AddonVersionNumber: version.New(13, 0, 0),
		MinNVDAVersion:     version.New(2022, 1, 0),
		LastTestedVersion:  version.New(2023, 1, 0),
		Channel:            submission.ChannelStable,
		Homepage:           strPtr("https://nvaccess.org"),
		Changelog:          strPtr("Fixed a bug."),
	}
}

func newRegistry() *apiversions.Registry {
	return apiversions.New([]apiversions.Entry{
		{APIVer: version.New(0, 0, 0)},
		{APIVer: version.New(2022, 1, 0)},
		{APIVer: version.New(2023, 1, 0)},
		{APIVer: version.New(2024, 1, 0), Experimental: true},
	})
}

func TestValidSubmissionPassesEveryCheck(t *testing.T) {
	m, r := newManifest(), newRecord()
	assert.Empty(t, DownloadURLFormat(r.URL))
	assert.Empty(t, SummaryMatchesDisplayName(m, r))
	assert.Empty(t, DescriptionMatches(m, r))
	assert.Empty(t, ChangelogMatches(m, r))
	assert.Empty(t, URLMatchesHomepage(m, r))
	assert.Empty(t, AddonID(m, submissionPath, r))
	assert.Empty(t, MinNVDAVersionMatches(m, r))
	assert.Empty(t, LastTestedNVDAVersionMatches(m, r))
	assert.Empty(t, Versions(m, submissionPath, r))
	assert.Empty(t, LastTestedVersionExist(r, newRegistry()))
	assert.Empty(t, MinRequiredVersionExist(r, newRegistry()))
}

func TestDownloadURLFormat(t *testing.T) {
	tests := []struct {
		url  string
		want []string
	}{
		{url: "https://example.com/fake.nvda-addon"},
		{url: "http://example.com/fake.nvda-addon", want: []string{"Add-on download url must start with https://"}},
		{url: "https://example.com/fake.zip", want: []string{"Add-on download url must end with .nvda-addon"}},
		{url: "http://example.com/fake.zip", want: []string{
			"Add-on download url must start with https://",
			"Add-on download url must end with .nvda-addon",
		}},
	}
	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			assert.Equal(t, tt.want, DownloadURLFormat(tt.url))
		})
	}
}

func TestSHA256(t *testing.T) {
	path := filepath.Join(t.TempDir(), "addon.nvda-addon")
	require.NoError(t, os.WriteFile(path, []byte("abc"), 0o600))
	const sum = "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad"

	errs, err := SHA256(path, sum)
	require.NoError(t, err)
	assert.Empty(t, errs)

	errs, err = SHA256(path, "BA7816BF8F01CFEA414140DE5DAE2223B00361A396177A9CB410FF61F20015AD")
	require.NoError(t, err)
	assert.Empty(t, errs, "comparison ignores case")

	errs, err = SHA256(path, "e27fc9a3ba2a1dcde8b2dd8b1cdb2d9c2f4a4e4d9bd4c3f5f48c5a6bd8f1e0a7")
	require.NoError(t, err)
	assert.Equal(t, []string{"Sha256 of .nvda-addon at URL is: " + sum}, errs)

	_, err = SHA256(filepath.Join(t.TempDir(), "missing"), sum)
	assert.Error(t, err)
}

func TestSummaryMatchesDisplayName(t *testing.T) {
	r := newRecord()
	r.DisplayName = "Mock Addon"
	assert.Equal(t, []string{
		"Submission 'displayName' must be set to 'mock addon' in json file. Instead got: 'Mock Addon'",
	}, SummaryMatchesDisplayName(newManifest(), r))
}

func TestDescriptionMatches(t *testing.T) {
	r := newRecord()
	r.Description = "other"
	assert.Equal(t, []string{
		"Submission 'description' must be set to 'The description for the addon' in json file. Instead got: 'other'",
	}, DescriptionMatches(newManifest(), r))

	m := newManifest()
	m.Description = nil
	assert.Len(t, DescriptionMatches(m, newRecord()), 1)
}

func TestChangelogMatches(t *testing.T) {
	tests := []struct {
		name     string
		manifest *string
		record   *string
		want     []string
	}{
		{name: "both absent"},
		{name: "equal", manifest: strPtr("a"), record: strPtr("a")},
		{
			name: "differ", manifest: strPtr("a"), record: strPtr("b"),
			want: []string{"Submission 'changelog' must be set to 'a' in json file instead of b"},
		},
		{
			name: "missing in submission", manifest: strPtr("a"),
			want: []string{"Submission 'changelog' must be set to 'a' in json file instead of None"},
		},
		{
			name: "missing in manifest", record: strPtr("b"),
			want: []string{"Submission 'changelog' must be set to 'None' in json file instead of b"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, r := newManifest(), newRecord()
			m.Changelog, r.Changelog = tt.manifest, tt.record
			assert.Equal(t, tt.want, ChangelogMatches(m, r))
		})
	}
}

func TestURLMatchesHomepage(t *testing.T) {
	m, r := newManifest(), newRecord()
	r.Homepage = strPtr("https://example.com")
	assert.Equal(t, []string{
		"Submission 'homepage' must be set to 'https://nvaccess.org' in json file instead of https://example.com",
	}, URLMatchesHomepage(m, r))

	m.URL, r.Homepage = nil, nil
	assert.Empty(t, URLMatchesHomepage(m, r))

	r.Homepage = strPtr("https://example.com")
	assert.Equal(t, []string{
		"Submission 'homepage' must be set to 'None' in json file instead of https://example.com",
	}, URLMatchesHomepage(m, r))
}

func TestAddonID(t *testing.T) {
	const formatMsg = "Submission data 'addonId' field does not match the expected format:" +
		" must start and end with a letter, and contain only letters," +
		" numbers, underscores, and hyphens. ID: "

	tests := []struct {
		name    string
		manName string
		addonID string
		path    string
		want    []string
	}{
		{name: "valid", manName: "fake", addonID: "fake", path: submissionPath},
		{name: "valid with separators", manName: "fake-addon_2", addonID: "fake-addon_2",
			path: filepath.Join("addons", "fake-addon_2", "1.0.0.json")},
		{
			name: "wrong folder", manName: "fake", addonID: "fake",
			path: filepath.Join("addons", "other", "13.0.0.json"),
			want: []string{"Submitted json file must be placed in a folder matching the addonId/name 'fake'"},
		},
		{
			name: "id mismatch", manName: "fake", addonID: "fakeAddon", path: submissionPath,
			want: []string{"Submission data 'addonId' field does not match 'name' field in addon manifest: fake vs fakeAddon"},
		},
		{
			name: "leading digit", manName: "1fake", addonID: "1fake",
			path: filepath.Join("addons", "1fake", "13.0.0.json"),
			want: []string{formatMsg + "1fake"},
		},
		{
			name: "trailing hyphen", manName: "fake-", addonID: "fake-",
			path: filepath.Join("addons", "fake-", "13.0.0.json"),
			want: []string{formatMsg + "fake-"},
		},
		{
			name: "single letter", manName: "f", addonID: "f",
			path: filepath.Join("addons", "f", "13.0.0.json"),
			want: []string{formatMsg + "f"},
		},
		{
			name: "everything wrong", manName: "fake addon", addonID: "fake",
			path: submissionPath,
			want: []string{
				"Submitted json file must be placed in a folder matching the addonId/name 'fake addon'",
				"Submission data 'addonId' field does not match 'name' field in addon manifest: fake addon vs fake",
				formatMsg + "fake",
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, r := newManifest(), newRecord()
			m.Name, r.AddonID = tt.manName, tt.addonID
			assert.Equal(t, tt.want, AddonID(m, tt.path, r))
		})
	}
}

func TestNVDAVersionMatches(t *testing.T) {
	m, r := newManifest(), newRecord()
	r.MinNVDAVersion = version.New(2023, 1, 0)
	r.LastTestedVersion = version.New(2024, 1, 0)

	assert.Equal(t, []string{
		"Submission data 'minNVDAVersion' field does not match 'minNVDAVersion' field in addon manifest: 2022.1.0 vs minNVDAVersion: 2023.1.0",
	}, MinNVDAVersionMatches(m, r))
	assert.Equal(t, []string{
		"Submission data 'lastTestedVersion' field does not match 'lastTestedNVDAVersion' field in addon manifest: 2023.1.0 vs lastTestedVersion: 2024.1.0",
	}, LastTestedNVDAVersionMatches(m, r))
}

func TestVersions(t *testing.T) {
	tests := []struct {
		name        string
		manifestVer string
		versionName string
		number      version.MajorMinorPatch
		path        string
		want        []string
	}{
		{
			name: "matching", manifestVer: "13.0.0", versionName: "13.0.0",
			number: version.New(13, 0, 0), path: submissionPath,
		},
		{
			name: "date based", manifestVer: "13.06", versionName: "13.06",
			number: version.New(13, 6, 0), path: filepath.Join("addons", "fake", "13.6.0.json"),
		},
		{
			name: "short file name", manifestVer: "13.06", versionName: "13.06",
			number: version.New(13, 6, 0), path: filepath.Join("addons", "fake", "13.06.json"),
			want: []string{"Submission filename and versionNumber mismatch error: addonVersionNumber: 13.6.0 version from submission filename: 13.06 expected submission filename: 13.6.0.json"},
		},
		{
			name: "suffixed name", manifestVer: "13.06-NG", versionName: "13.06-NG",
			number: version.New(13, 6, 0), path: filepath.Join("addons", "fake", "13.6.0.json"),
			want: []string{"Warning: submission data 'addonVersionName' and 'addonVersionNumber' mismatch.  Unable to parse: 13.06-NG and match with 13.6.0"},
		},
		{
			name: "prose name", manifestVer: "June Release '21", versionName: "June Release '21",
			number: version.New(21, 6, 0), path: filepath.Join("addons", "fake", "21.6.0.json"),
			want: []string{"Warning: submission data 'addonVersionName' and 'addonVersionNumber' mismatch.  Unable to parse: June Release '21 and match with 21.6.0"},
		},
		{
			name: "everything wrong", manifestVer: "12.0.0", versionName: "13.1.0",
			number: version.New(13, 0, 0), path: filepath.Join("addons", "fake", "13.0.json"),
			want: []string{
				"Submission filename and versionNumber mismatch error: addonVersionNumber: 13.0.0 version from submission filename: 13.0 expected submission filename: 13.0.0.json",
				"Submission data 'addonVersionName' field does not match 'version' field in addon manifest: 12.0.0 vs addonVersionName: 13.1.0",
				"Warning: submission data 'addonVersionName' and 'addonVersionNumber' mismatch.  Unable to parse: 13.1.0 and match with 13.0.0",
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, r := newManifest(), newRecord()
			m.Version = tt.manifestVer
			r.AddonVersionName = tt.versionName
			r.AddonVersionNumber = tt.number
			assert.Equal(t, tt.want, Versions(m, tt.path, r))
		})
	}
}

func TestVersionExists(t *testing.T) {
	reg := newRegistry()
	tests := []struct {
		name       string
		v          version.MajorMinorPatch
		channel    string
		wantLast   []string
		wantMinReq []string
	}{
		{name: "stable on stable", v: version.New(2023, 1, 0), channel: submission.ChannelStable},
		{name: "experimental on beta", v: version.New(2024, 1, 0), channel: submission.ChannelBeta},
		{name: "experimental on dev", v: version.New(2024, 1, 0), channel: submission.ChannelDev},
		{
			name: "experimental on stable", v: version.New(2024, 1, 0), channel: submission.ChannelStable,
			wantLast:   []string{"Last tested version error: 2024.1.0 is not stable yet. Please submit add-on using the beta or dev channel."},
			wantMinReq: []string{"Minimum required version error: 2024.1.0 is not stable yet. Please submit add-on using the beta or dev channel."},
		},
		{
			name: "unknown", v: version.New(9999, 3, 0), channel: submission.ChannelBeta,
			wantLast:   []string{"Last tested version error: 9999.3.0 doesn't exist"},
			wantMinReq: []string{"Minimum required version error: 9999.3.0 doesn't exist"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newRecord()
			r.Channel = tt.channel
			r.LastTestedVersion, r.MinNVDAVersion = tt.v, tt.v
			assert.Equal(t, tt.wantLast, LastTestedVersionExist(r, reg))
			assert.Equal(t, tt.wantMinReq, MinRequiredVersionExist(r, reg))
		})
	}
}
