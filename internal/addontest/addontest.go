// Package addontest builds add-on packages and submission fixtures for tests.
package addontest

import (
	"archive/zip"
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"sort"
	"testing"
)

// Manifest is a valid manifest.ini for the "fake" add-on.
const Manifest = `name = fake
summary = "mock addon"
description = """The description for the addon"""
author = "Name <name@domain.com>"
url = https://nvaccess.org
version = 13.0.0
docFileName = readme.html
minimumNVDAVersion = 2022.1
lastTestedNVDAVersion = 2023.1.0
changelog = """Fixed a bug."""
`

// FrenchManifest is a translated manifest for locale/fr.
const FrenchManifest = `summary = "module factice"
description = "La description du module"
changelog = "Correction d'un bogue."
`

// DownloadURL is the download location used by submission fixtures.
const DownloadURL = "https://github.com/nvaccess/dont/use/this/address/fake.nvda-addon"

// WritePackage writes a zip archive containing entries to path and returns
// path. Entries are written in name order.
func WritePackage(tb testing.TB, path string, entries map[string]string) string {
	tb.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		tb.Fatalf("MkdirAll() error = %v", err)
	}
	f, err := os.Create(path)
	if err != nil {
		tb.Fatalf("Create(%s) error = %v", path, err)
	}
	defer f.Close()

	names := make([]string, 0, len(entries))
	for name := range entries {
		names = append(names, name)
	}
	sort.Strings(names)

	zw := zip.NewWriter(f)
	for _, name := range names {
		w, err := zw.Create(name)
		if err != nil {
			tb.Fatalf("zip Create(%s) error = %v", name, err)
		}
		if _, err := w.Write([]byte(entries[name])); err != nil {
			tb.Fatalf("zip Write(%s) error = %v", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		tb.Fatalf("zip Close() error = %v", err)
	}
	return path
}

// DefaultPackage writes the fake add-on, with a French translation, to
// dir/fake.nvda-addon.
func DefaultPackage(tb testing.TB, dir string) string {
	tb.Helper()
	return WritePackage(tb, filepath.Join(dir, "fake.nvda-addon"), map[string]string{
		"manifest.ini":           Manifest,
		"locale/fr/manifest.ini": FrenchManifest,
		"doc/en/readme.html":     "<p>readme</p>",
	})
}

// SHA256 returns the lower-case hex digest of the file at path.
func SHA256(tb testing.TB, path string) string {
	tb.Helper()
	// #nosec G304 -- test fixture path.
	data, err := os.ReadFile(path)
	if err != nil {
		tb.Fatalf("ReadFile(%s) error = %v", path, err)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
