// Package validate runs every check against a submission file, in order,
// and collects the resulting messages.
package validate

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/petal-labs/addonvet/apiversions"
	"github.com/petal-labs/addonvet/check"
	"github.com/petal-labs/addonvet/fetch"
	"github.com/petal-labs/addonvet/manifest"
	"github.com/petal-labs/addonvet/submission"
)

// FatalPrefix starts the message appended when validation cannot continue.
const FatalPrefix = "Fatal error, unable to continue: "

// DownloadFailedMessage precedes the fatal message for a non-200 download.
const DownloadFailedMessage = "Download of addon failed"

// addonFileName is the download target inside the per-run scratch directory.
const addonFileName = "addon.nvda-addon"

// Validator validates submission files. The zero value is not usable;
// Registry is required.
type Validator struct {
	// Registry lists the known API versions.
	Registry *apiversions.Registry

	// Schema validates submission JSON. Nil means the embedded schema.
	Schema *submission.Schema

	// HTTPClient downloads packages. Nil means http.DefaultClient.
	HTTPClient *http.Client

	// ScratchDir holds one temporary directory per validation. Empty means
	// the system temporary directory.
	ScratchDir string

	// BlockSize is the download copy size. Zero means fetch.DefaultBlockSize.
	BlockSize int

	Logger  *zap.Logger
	OnEvent EventHandler
}

// ValidateSubmission runs every check against the submission at path and
// returns the messages in the order they were found. It never fails: a
// problem that stops validation becomes a final message starting with
// FatalPrefix. A nil result means the submission is valid.
func (v *Validator) ValidateSubmission(ctx context.Context, path string) []string {
	return v.validate(ctx, uuid.NewString(), path).Errors
}

func (v *Validator) validate(ctx context.Context, runID, path string) Report {
	r := &run{v: v, ctx: ctx, runID: runID, path: path, log: v.logger().With(
		zap.String("run_id", runID),
		zap.String("file", path),
	)}

	start := time.Now()
	v.emit(NewEvent(EventSubmissionStarted, runID, path))
	r.log.Debug("validating submission")

	fatal := r.execute()
	if fatal != nil {
		r.errs = append(r.errs, FatalPrefix+fatal.Error())
		r.log.Warn("validation aborted", zap.Error(fatal))
	}

	done := NewEvent(EventSubmissionFinished, runID, path).WithElapsed(time.Since(start))
	done.Messages = len(r.errs)
	done.Fatal = fatal != nil
	done.Legacy = r.legacy
	v.emit(done)
	r.log.Debug("submission validated", zap.Int("messages", len(r.errs)), zap.Duration("elapsed", done.Elapsed))

	return Report{RunID: runID, File: path, Errors: r.errs}
}

func (v *Validator) logger() *zap.Logger {
	if v.Logger == nil {
		return zap.NewNop()
	}
	return v.Logger
}

func (v *Validator) emit(e Event) {
	if v.OnEvent != nil {
		v.OnEvent(e)
	}
}

// run is the state of one ValidateSubmission call.
type run struct {
	v      *Validator
	ctx    context.Context
	runID  string
	path   string
	log    *zap.Logger
	errs   []string
	legacy bool
}

func (r *run) add(msgs ...string) {
	r.errs = append(r.errs, msgs...)
}

// stage runs fn, emitting start and end events around it. A panic in fn
// becomes the stage's error.
func (r *run) stage(s Stage, fn func() error) error {
	start := time.Now()
	before := len(r.errs)
	r.v.emit(NewEvent(EventStageStarted, r.runID, r.path).WithStage(s))

	err := protect(fn)

	kind := EventStageFinished
	if err != nil {
		kind = EventStageFailed
	}
	e := NewEvent(kind, r.runID, r.path).WithStage(s).WithElapsed(time.Since(start))
	e.Messages = len(r.errs) - before
	if err != nil {
		e.Err = err.Error()
	}
	r.v.emit(e)
	return err
}

func protect(fn func() error) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("%v", p)
		}
	}()
	return fn()
}

func (r *run) execute() (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("%v", p)
		}
	}()

	var rec *submission.Record
	if err := r.stage(StageSchema, func() error {
		var err error
		rec, err = submission.Load(r.path, r.v.Schema)
		return err
	}); err != nil {
		return err
	}

	if rec.Legacy {
		r.legacy = true
		r.log.Debug("legacy submission, skipping checks")
		return nil
	}

	if err := r.stage(StageURL, func() error {
		if msgs := check.DownloadURLFormat(rec.URL); len(msgs) > 0 {
			r.add(msgs...)
			return errors.New(rec.URL)
		}
		return nil
	}); err != nil {
		return err
	}

	dir, err := fetch.ScratchDir(r.v.ScratchDir, "addonvet-")
	if err != nil {
		return err
	}
	defer func() {
		if rmErr := os.RemoveAll(dir); rmErr != nil {
			r.log.Warn("removing scratch directory", zap.String("dir", dir), zap.Error(rmErr))
		}
	}()
	addonPath := filepath.Join(dir, addonFileName)

	if err := r.stage(StageDownload, func() error {
		r.log.Debug("downloading add-on", zap.String("url", rec.URL))
		err := fetch.Download(r.ctx, r.v.HTTPClient, rec.URL, addonPath, r.v.BlockSize)
		var statusErr *fetch.StatusError
		if errors.As(err, &statusErr) {
			r.add(DownloadFailedMessage)
		}
		return err
	}); err != nil {
		return err
	}

	if err := r.stage(StageChecksum, func() error {
		msgs, err := check.SHA256(addonPath, rec.SHA256)
		r.add(msgs...)
		return err
	}); err != nil {
		return err
	}

	if err := r.stage(StageAPIVersions, func() error {
		r.add(check.LastTestedVersionExist(rec, r.v.Registry)...)
		r.add(check.MinRequiredVersionExist(rec, r.v.Registry)...)
		return nil
	}); err != nil {
		return err
	}

	var m *manifest.Manifest
	if err := r.stage(StageManifest, func() error {
		var err error
		if m, err = manifest.ReadPackage(addonPath); err != nil {
			return err
		}
		return m.Err()
	}); err != nil {
		return err
	}

	if err := r.stage(StageConsistency, func() error {
		r.add(check.SummaryMatchesDisplayName(m, rec)...)
		r.add(check.DescriptionMatches(m, rec)...)
		r.add(check.ChangelogMatches(m, rec)...)
		r.add(check.URLMatchesHomepage(m, rec)...)
		r.add(check.AddonID(m, r.path, rec)...)
		r.add(check.MinNVDAVersionMatches(m, rec)...)
		r.add(check.LastTestedNVDAVersionMatches(m, rec)...)
		r.add(check.Versions(m, r.path, rec)...)
		return nil
	}); err != nil {
		return err
	}

	return nil
}
