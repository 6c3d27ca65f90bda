// Package submission models the JSON metadata record submitted for one
// add-on release: loading with schema validation, and canonical writing.
package submission

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/petal-labs/addonvet/version"
)

// Channel values accepted by the schema.
const (
	ChannelStable = "stable"
	ChannelBeta   = "beta"
	ChannelDev    = "dev"
)

// Translation is the localized metadata of a record.
type Translation struct {
	Language    string  `json:"language"`
	DisplayName string  `json:"displayName"`
	Description string  `json:"description"`
	Changelog   *string `json:"changelog,omitempty"`
}

// Record is one submission. Optional keys are pointers and are omitted from
// the written JSON when nil. Field order is the canonical key order.
type Record struct {
	AddonID            string                  `json:"addonId"`
	DisplayName        string                  `json:"displayName"`
	URL                string                  `json:"URL"`
	Description        string                  `json:"description"`
	SHA256             string                  `json:"sha256"`
	AddonVersionName   string                  `json:"addonVersionName"`
	AddonVersionNumber version.MajorMinorPatch `json:"addonVersionNumber"`
	MinNVDAVersion     version.MajorMinorPatch `json:"minNVDAVersion"`
	LastTestedVersion  version.MajorMinorPatch `json:"lastTestedVersion"`
	Channel            string                  `json:"channel"`
	Publisher          string                  `json:"publisher"`
	SourceURL          string                  `json:"sourceURL"`
	License            string                  `json:"license"`
	Homepage           *string                 `json:"homepage,omitempty"`
	Changelog          *string                 `json:"changelog,omitempty"`
	LicenseURL         *string                 `json:"licenseURL,omitempty"`
	Legacy             bool                    `json:"legacy,omitempty"`
	SubmissionTime     int64                   `json:"submissionTime,omitempty"`
	Translations       []Translation           `json:"translations,omitempty"`
}

// Load reads the record at path and validates it against schema before
// decoding. A nil schema means the embedded default.
func Load(path string, schema *Schema) (*Record, error) {
	// #nosec G304 -- submission paths come from the operator's glob.
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading submission %s: %w", path, err)
	}
	return Decode(data, schema)
}

// Decode validates data against schema and decodes it.
func Decode(data []byte, schema *Schema) (*Record, error) {
	if schema == nil {
		var err error
		if schema, err = DefaultSchema(); err != nil {
			return nil, err
		}
	}
	if err := schema.Validate(data); err != nil {
		return nil, err
	}

	var r Record
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("decoding submission: %w", err)
	}
	return &r, nil
}

// Write encodes r with tab indentation. Non-ASCII text and HTML characters
// are written as-is.
func Write(w io.Writer, r *Record) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "\t")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(r); err != nil {
		return fmt.Errorf("encoding submission: %w", err)
	}
	return nil
}

// Marshal returns the canonical encoding of r.
func Marshal(r *Record) ([]byte, error) {
	var buf bytes.Buffer
	if err := Write(&buf, r); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteFile writes r to path, creating parent directories.
func WriteFile(path string, r *Record) error {
	data, err := Marshal(r)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil { // #nosec G306 -- submission files are public metadata
		return fmt.Errorf("writing submission %s: %w", path, err)
	}
	return nil
}
