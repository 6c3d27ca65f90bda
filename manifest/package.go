package manifest

import (
	"archive/zip"
	"fmt"
	"io"
	"path"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
)

// localePattern matches translated manifests inside a package.
const localePattern = "locale/*/manifest.ini"

// maxEntrySize bounds how much of a single manifest entry is read.
const maxEntrySize = 1 << 20

// Translation is the translated metadata carried by
// locale/<language>/manifest.ini.
type Translation struct {
	Language    string
	Summary     *string
	Description *string
	Changelog   *string
}

// Package is an opened .nvda-addon archive. Entries are read in place; the
// archive is never extracted to disk.
type Package struct {
	zr *zip.ReadCloser
}

// OpenPackage opens the add-on archive at path.
func OpenPackage(p string) (*Package, error) {
	zr, err := zip.OpenReader(p)
	if err != nil {
		return nil, fmt.Errorf("opening add-on package %s: %w", p, err)
	}
	return &Package{zr: zr}, nil
}

// Close releases the archive.
func (p *Package) Close() error {
	return p.zr.Close()
}

// Manifest parses the root manifest.ini.
func (p *Package) Manifest() (*Manifest, error) {
	for _, f := range p.zr.File {
		if f.Name != FileName {
			continue
		}
		data, err := readEntry(f)
		if err != nil {
			return nil, err
		}
		return Parse(data)
	}
	return nil, ErrManifestNotFound
}

// Translations returns every locale/<language>/manifest.ini, sorted by
// language code.
func (p *Package) Translations() ([]Translation, error) {
	var out []Translation
	for _, f := range p.zr.File {
		matched, err := doublestar.Match(localePattern, f.Name)
		if err != nil {
			return nil, fmt.Errorf("matching %s: %w", f.Name, err)
		}
		if !matched {
			continue
		}

		data, err := readEntry(f)
		if err != nil {
			return nil, err
		}
		sec, err := loadSection(data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", f.Name, err)
		}
		out = append(out, Translation{
			Language:    path.Base(path.Dir(f.Name)),
			Summary:     optional(sec, "summary"),
			Description: optional(sec, "description"),
			Changelog:   optional(sec, "changelog"),
		})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Language < out[j].Language })
	return out, nil
}

// ReadPackage opens the archive at path and parses its manifest.
func ReadPackage(p string) (*Manifest, error) {
	pkg, err := OpenPackage(p)
	if err != nil {
		return nil, err
	}
	defer pkg.Close()
	return pkg.Manifest()
}

func readEntry(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", f.Name, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(io.LimitReader(rc, maxEntrySize+1))
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", f.Name, err)
	}
	if len(data) > maxEntrySize {
		return nil, fmt.Errorf("%s exceeds %d bytes", f.Name, maxEntrySize)
	}
	return data, nil
}
