package submission

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/petal-labs/addonvet/version"
)

func TestLoad_Fixture(t *testing.T) {
	r, err := Load(filepath.Join("testdata", "13.0.0.json"), nil)
	require.NoError(t, err)

	assert.Equal(t, "fake", r.AddonID)
	assert.Equal(t, version.New(13, 0, 0), r.AddonVersionNumber)
	assert.Equal(t, version.New(2022, 1, 0), r.MinNVDAVersion)
	assert.Equal(t, version.New(2023, 1, 0), r.LastTestedVersion)
	assert.Equal(t, ChannelStable, r.Channel)
	require.NotNil(t, r.Homepage)
	assert.Equal(t, "https://nvaccess.org", *r.Homepage)
	assert.False(t, r.Legacy)
	require.Len(t, r.Translations, 1)
	assert.Nil(t, r.Translations[0].Changelog)
}

func TestWrite_MatchesCanonicalFixture(t *testing.T) {
	path := filepath.Join("testdata", "13.0.0.json")
	want, err := os.ReadFile(path)
	require.NoError(t, err)

	r, err := Load(path, nil)
	require.NoError(t, err)

	got, err := Marshal(r)
	require.NoError(t, err)
	assert.Equal(t, string(want), string(got))
}

func TestWrite_Formatting(t *testing.T) {
	r := &Record{
		AddonID:     "fake",
		DisplayName: "Écran <braille>",
		Description: "日本語",
	}
	data, err := Marshal(r)
	require.NoError(t, err)
	out := string(data)

	assert.Contains(t, out, "\n\t\"addonId\": \"fake\"")
	assert.Contains(t, out, "Écran <braille>")
	assert.Contains(t, out, "日本語")
	for _, key := range []string{"homepage", "changelog", "licenseURL", "legacy", "submissionTime", "translations"} {
		assert.NotContains(t, out, `"`+key+`"`)
	}
}

func TestDecode_SchemaViolations(t *testing.T) {
	valid, err := os.ReadFile(filepath.Join("testdata", "13.0.0.json"))
	require.NoError(t, err)

	tests := []struct {
		name    string
		mutate  func(string) string
		problem string
	}{
		{
			name:    "bad channel",
			mutate:  func(s string) string { return strings.Replace(s, `"channel": "stable"`, `"channel": "nightly"`, 1) },
			problem: "channel",
		},
		{
			name:    "missing publisher",
			mutate:  func(s string) string { return strings.Replace(s, `"publisher": "Name",`, ``, 1) },
			problem: "publisher",
		},
		{
			name:    "negative version",
			mutate:  func(s string) string { return strings.Replace(s, `"major": 13`, `"major": -13`, 1) },
			problem: "major",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode([]byte(tt.mutate(string(valid))), nil)
			require.Error(t, err)

			var schemaErr *SchemaError
			require.True(t, errors.As(err, &schemaErr), "error = %v", err)
			assert.Contains(t, schemaErr.Error(), tt.problem)
		})
	}
}

func TestDecode_MalformedJSON(t *testing.T) {
	_, err := Decode([]byte(`{"addonId": `), nil)
	require.Error(t, err)
	var schemaErr *SchemaError
	assert.False(t, errors.As(err, &schemaErr))
}

func TestWriteFile_CreatesDirectories(t *testing.T) {
	r, err := Load(filepath.Join("testdata", "13.0.0.json"), nil)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "addons", "fake", "13.0.0.json")
	require.NoError(t, WriteFile(path, r))

	again, err := Load(path, nil)
	require.NoError(t, err)
	assert.Equal(t, r, again)
}

func TestLoadSchema(t *testing.T) {
	s, err := LoadSchema(filepath.Join("schema", "addonVersion_schema.json"))
	require.NoError(t, err)
	assert.Error(t, s.Validate([]byte(`{}`)))
}
