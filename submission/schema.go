package submission

import (
	_ "embed"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"
)

//go:embed schema/addonVersion_schema.json
var defaultSchemaJSON []byte

var (
	defaultSchema     *Schema
	defaultSchemaErr  error
	defaultSchemaOnce sync.Once
)

// SchemaError lists every violation found in a submission.
type SchemaError struct {
	Problems []string
}

func (e *SchemaError) Error() string {
	return "submission does not match schema: " + strings.Join(e.Problems, "; ")
}

// Schema is a compiled submission JSON schema.
type Schema struct {
	compiled *gojsonschema.Schema
}

// NewSchema compiles a JSON schema document.
func NewSchema(data []byte) (*Schema, error) {
	compiled, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(data))
	if err != nil {
		return nil, fmt.Errorf("compiling submission schema: %w", err)
	}
	return &Schema{compiled: compiled}, nil
}

// LoadSchema compiles the schema file at path.
func LoadSchema(path string) (*Schema, error) {
	// #nosec G304 -- schema path is operator configuration.
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading schema %s: %w", path, err)
	}
	return NewSchema(data)
}

// DefaultSchema returns the embedded schema, compiled once.
func DefaultSchema() (*Schema, error) {
	defaultSchemaOnce.Do(func() {
		defaultSchema, defaultSchemaErr = NewSchema(defaultSchemaJSON)
	})
	return defaultSchema, defaultSchemaErr
}

// Validate checks doc against the schema. Violations are returned as a
// *SchemaError; malformed JSON as a plain error.
func (s *Schema) Validate(doc []byte) error {
	res, err := s.compiled.Validate(gojsonschema.NewBytesLoader(doc))
	if err != nil {
		return fmt.Errorf("validating submission: %w", err)
	}
	if res.Valid() {
		return nil
	}
	problems := make([]string, 0, len(res.Errors()))
	for _, e := range res.Errors() {
		problems = append(problems, fmt.Sprintf("%s: %s", e.Field(), e.Description()))
	}
	return &SchemaError{Problems: problems}
}
