package generate

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/petal-labs/addonvet/fetch"
	"github.com/petal-labs/addonvet/manifest"
	"github.com/petal-labs/addonvet/submission"
	"github.com/petal-labs/addonvet/validate"
)

// Regenerator rebuilds the translations of existing submission files from
// their published packages.
type Regenerator struct {
	HTTPClient *http.Client
	Schema     *submission.Schema
	ScratchDir string
	BlockSize  int

	// ErrorFile, when set, receives a "Validation Errors:" section for every
	// package whose manifest is invalid.
	ErrorFile string

	Logger *zap.Logger
}

// Dir regenerates every <dir>/**/*.json and returns the rewritten paths.
func (g *Regenerator) Dir(ctx context.Context, dir string) ([]string, error) {
	files, err := validate.FindSubmissions(filepath.Join(dir, "**", "*.json"))
	if err != nil {
		return nil, err
	}

	var written []string
	for _, file := range files {
		if err := ctx.Err(); err != nil {
			return written, err
		}
		ok, err := g.File(ctx, file)
		if err != nil {
			return written, fmt.Errorf("%s: %w", file, err)
		}
		if ok {
			written = append(written, file)
		}
	}
	return written, nil
}

// File regenerates one submission. It reports false when the file was left
// untouched: legacy records and packages with invalid manifests.
func (g *Regenerator) File(ctx context.Context, path string) (bool, error) {
	log := g.logger().With(zap.String("file", path))

	r, err := submission.Load(path, g.Schema)
	if err != nil {
		return false, err
	}
	if r.Legacy {
		log.Debug("legacy submission, skipping")
		return false, nil
	}

	dir, err := fetch.ScratchDir(g.ScratchDir, "addonvet-regen-")
	if err != nil {
		return false, err
	}
	defer os.RemoveAll(dir)

	pkgPath := filepath.Join(dir, "addon.nvda-addon")
	if err := fetch.Download(ctx, g.HTTPClient, r.URL, pkgPath, g.BlockSize); err != nil {
		return false, err
	}

	pkg, err := manifest.OpenPackage(pkgPath)
	if err != nil {
		return false, err
	}
	defer pkg.Close()

	m, err := pkg.Manifest()
	if err != nil {
		return false, err
	}
	if problems := m.Err(); problems != nil {
		log.Warn("invalid manifest, skipping", zap.Error(problems))
		return false, g.writeManifestErrors(m)
	}

	translations, err := pkg.Translations()
	if err != nil {
		return false, err
	}
	if r.Translations, err = Translations(translations); err != nil {
		return false, err
	}

	if err := submission.WriteFile(path, r); err != nil {
		return false, err
	}
	log.Info("wrote json file")
	return true, nil
}

func (g *Regenerator) writeManifestErrors(m *manifest.Manifest) error {
	if g.ErrorFile == "" {
		return nil
	}
	return WriteManifestErrors(g.ErrorFile, m.Problems)
}

func (g *Regenerator) logger() *zap.Logger {
	if g.Logger == nil {
		return zap.NewNop()
	}
	return g.Logger
}

// WriteManifestErrors appends a "Validation Errors:" section listing
// problems to path.
func WriteManifestErrors(path string, problems []string) error {
	// #nosec G304 -- error file path is operator supplied.
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening error file %s: %w", path, err)
	}
	if _, err := fmt.Fprintln(f, "Validation Errors:"); err != nil {
		_ = f.Close()
		return err
	}
	for _, p := range problems {
		if _, err := fmt.Fprintln(f, p); err != nil {
			_ = f.Close()
			return err
		}
	}
	return f.Close()
}
