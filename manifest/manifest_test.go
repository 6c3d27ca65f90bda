package manifest

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/petal-labs/addonvet/internal/addontest"
	"github.com/petal-labs/addonvet/version"
)

func TestLoad_Fixture(t *testing.T) {
	m, err := Load(filepath.Join("testdata", "manifest.ini"))
	require.NoError(t, err)
	require.NoError(t, m.Err())

	assert.Equal(t, "fake", m.Name)
	assert.Equal(t, "mock addon", m.Summary)
	assert.Equal(t, "Name <name@domain.com>", m.Author)
	assert.Equal(t, "13.0.0", m.Version)
	require.NotNil(t, m.Description)
	assert.Equal(t, "The description for the addon", *m.Description)
	require.NotNil(t, m.URL)
	assert.Equal(t, "https://nvaccess.org", *m.URL)
	require.NotNil(t, m.Changelog)
	assert.Equal(t, "Fixed a bug.", *m.Changelog)
	require.NotNil(t, m.DocFileName)
	assert.Equal(t, "readme.html", *m.DocFileName)
	assert.Equal(t, version.New(2022, 1, 0), m.MinimumNVDAVersion)
	assert.Equal(t, version.New(2023, 1, 0), m.LastTestedNVDAVersion)
}

func TestLoad_NoneSentinel(t *testing.T) {
	m, err := Load(filepath.Join("testdata", "manifest_none.ini"))
	require.NoError(t, err)
	require.NoError(t, m.Err())

	assert.Nil(t, m.URL)
	assert.Nil(t, m.Changelog)
	assert.Nil(t, m.Description)
	assert.Nil(t, m.DocFileName)
	assert.True(t, m.MinimumNVDAVersion.IsZero())
	assert.Equal(t, version.New(2023, 1, 0), m.LastTestedNVDAVersion)
}

func TestParse_Problems(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		problem string
	}{
		{
			name:    "missing name",
			input:   "summary = s\nauthor = a\nversion = 1.0\n",
			problem: "name: missing required key",
		},
		{
			name:    "bad api version",
			input:   "name = n\nsummary = s\nauthor = a\nversion = 1.0\nminimumNVDAVersion = 2019\n",
			problem: `minimumNVDAVersion: "2019" is not a valid API Version string`,
		},
		{
			name:    "range",
			input:   "name = n\nsummary = s\nauthor = a\nversion = 1.0\nminimumNVDAVersion = 2023.1\nlastTestedNVDAVersion = 2022.1\n",
			problem: "Constraint not met: minimumNVDAVersion (2023.1.0) <= lastTestedNVDAVersion (2022.1.0)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := Parse([]byte(tt.input))
			require.NoError(t, err)
			require.NotEmpty(t, m.Problems)
			assert.Contains(t, m.Problems[0], tt.problem)

			err = m.Err()
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidManifest))
		})
	}
}

func TestParse_EmptyURLIsAbsent(t *testing.T) {
	m, err := Parse([]byte("name = n\nsummary = s\nauthor = a\nversion = 1.0\nurl =\n"))
	require.NoError(t, err)
	assert.Nil(t, m.URL)
}

func TestPackage_ManifestAndTranslations(t *testing.T) {
	pkgPath := addontest.DefaultPackage(t, t.TempDir())

	pkg, err := OpenPackage(pkgPath)
	require.NoError(t, err)
	defer pkg.Close()

	m, err := pkg.Manifest()
	require.NoError(t, err)
	assert.Equal(t, "fake", m.Name)

	translations, err := pkg.Translations()
	require.NoError(t, err)
	require.Len(t, translations, 1)
	fr := translations[0]
	assert.Equal(t, "fr", fr.Language)
	require.NotNil(t, fr.Summary)
	assert.Equal(t, "module factice", *fr.Summary)
	require.NotNil(t, fr.Description)
	assert.Equal(t, "La description du module", *fr.Description)
	require.NotNil(t, fr.Changelog)
	assert.Equal(t, "Correction d'un bogue.", *fr.Changelog)
}

func TestPackage_TranslationsSorted(t *testing.T) {
	pkgPath := addontest.WritePackage(t, filepath.Join(t.TempDir(), "a.nvda-addon"), map[string]string{
		"manifest.ini":              addontest.Manifest,
		"locale/pt_BR/manifest.ini": "summary = s\ndescription = d\n",
		"locale/de/manifest.ini":    "summary = s\ndescription = d\n",
		"locale/de/nvda.po":         "",
	})

	pkg, err := OpenPackage(pkgPath)
	require.NoError(t, err)
	defer pkg.Close()

	translations, err := pkg.Translations()
	require.NoError(t, err)
	require.Len(t, translations, 2)
	assert.Equal(t, "de", translations[0].Language)
	assert.Equal(t, "pt_BR", translations[1].Language)
	assert.Nil(t, translations[0].Changelog)
}

func TestReadPackage_NoManifest(t *testing.T) {
	pkgPath := addontest.WritePackage(t, filepath.Join(t.TempDir(), "empty.nvda-addon"), map[string]string{
		"readme.txt": "hello",
	})

	_, err := ReadPackage(pkgPath)
	assert.ErrorIs(t, err, ErrManifestNotFound)
}

func TestReadPackage_NotAZip(t *testing.T) {
	_, err := ReadPackage(filepath.Join("testdata", "manifest.ini"))
	assert.Error(t, err)
}
