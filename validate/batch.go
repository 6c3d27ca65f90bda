package validate

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/google/uuid"
)

// Report is the outcome of validating one submission file.
type Report struct {
	RunID  string   `json:"runId"`
	File   string   `json:"file"`
	Errors []string `json:"errors"`
}

// OK reports whether the submission produced no messages.
func (r Report) OK() bool {
	return len(r.Errors) == 0
}

// FindSubmissions expands a glob, including "**", into a sorted file list.
func FindSubmissions(pattern string) ([]string, error) {
	matches, err := doublestar.FilepathGlob(pattern, doublestar.WithFilesOnly())
	if err != nil {
		return nil, fmt.Errorf("expanding %q: %w", pattern, err)
	}
	sort.Strings(matches)
	return matches, nil
}

// ValidateFiles validates files one at a time, in order. Each report is
// passed to onReport as soon as it is ready. Cancelling ctx stops the batch
// before the next file; the reports gathered so far are returned with the
// context error.
func (v *Validator) ValidateFiles(ctx context.Context, files []string, onReport func(Report)) ([]Report, error) {
	reports := make([]Report, 0, len(files))
	for _, file := range files {
		if err := ctx.Err(); err != nil {
			return reports, err
		}
		rep := v.validate(ctx, uuid.NewString(), file)
		reports = append(reports, rep)
		if onReport != nil {
			onReport(rep)
		}
	}
	return reports, nil
}

// WriteErrorReport writes the error file section for one submission:
//
//	Validation Errors for <file>:
//	- <message>
//
// followed by a blank line.
func WriteErrorReport(w io.Writer, rep Report) error {
	if _, err := fmt.Fprintf(w, "Validation Errors for %s:\n", rep.File); err != nil {
		return err
	}
	for _, msg := range rep.Errors {
		if _, err := fmt.Fprintf(w, "- %s\n", msg); err != nil {
			return err
		}
	}
	_, err := io.WriteString(w, "\n")
	return err
}

// AppendErrorFile appends the report for rep to the file at path.
func AppendErrorFile(path string, rep Report) error {
	// #nosec G304 -- error file path is operator supplied.
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening error file %s: %w", path, err)
	}
	if err := WriteErrorReport(f, rep); err != nil {
		_ = f.Close()
		return fmt.Errorf("writing error file %s: %w", path, err)
	}
	return f.Close()
}
