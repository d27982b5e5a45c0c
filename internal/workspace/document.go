// Package workspace encodes and decodes workspace export documents.
//
// Two schema versions exist. Version 1 stored a single "category" string on
// line items and actuals; version 2 stores an ordered "tags" list. Decode
// accepts both and normalizes to version 2 before anything else sees the
// records. Encode always writes version 2.
package workspace

import (
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"cashplan/internal/core"

	"gopkg.in/yaml.v3"
)

type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

const (
	VersionLegacy  = 1
	CurrentVersion = 2
)

// ValidationWindow is how many line items and actuals are checked for
// missing fields. Larger exports are only sampled.
const ValidationWindow = 5

var (
	ErrUnsupportedVersion = errors.New("unsupported schema version")
	ErrMissingField       = errors.New("missing required field")
	ErrUnknownFormat      = errors.New("unknown document format")
)

// Document is a complete workspace export.
type Document struct {
	Version   int             `json:"version" yaml:"version"`
	Workspace core.Workspace  `json:"workspace" yaml:"workspace"`
	LineItems []core.LineItem `json:"lineItems" yaml:"lineItems"`
	Actuals   []core.Actual   `json:"actuals" yaml:"actuals"`
}

// New builds a current-version document.
func New(ws core.Workspace, items []core.LineItem, actuals []core.Actual) Document {
	if items == nil {
		items = []core.LineItem{}
	}
	if actuals == nil {
		actuals = []core.Actual{}
	}
	return Document{Version: CurrentVersion, Workspace: ws, LineItems: items, Actuals: actuals}
}

// FormatFromFilename picks YAML for .yaml/.yml files and JSON otherwise.
func FormatFromFilename(name string) Format {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// ParseFormat validates a user-supplied format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatJSON, FormatYAML:
		return f, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
	}
}

// FieldError names one missing field in one record.
type FieldError struct {
	Record string
	Field  string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: missing required field %q", e.Record, e.Field)
}

func (e *FieldError) Unwrap() error { return ErrMissingField }

// Encode writes doc as the current schema version.
func Encode(doc Document, format Format) ([]byte, error) {
	doc.Version = CurrentVersion
	if doc.LineItems == nil {
		doc.LineItems = []core.LineItem{}
	}
	if doc.Actuals == nil {
		doc.Actuals = []core.Actual{}
	}

	switch format {
	case FormatJSON:
		return json.MarshalIndent(doc, "", "  ")
	case FormatYAML:
		return yaml.Marshal(doc)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

// Decode parses an export document.
//
// An unsupported version yields a single error naming it. Otherwise every
// missing required field on the workspace, and on the first
// ValidationWindow line items and actuals, is reported; the errors are
// joined. The returned document is always version 2.
func Decode(data []byte, format Format) (Document, error) {
	var generic map[string]any
	if err := unmarshal(data, format, &generic); err != nil {
		return Document{}, fmt.Errorf("decode document: %w", err)
	}
	if generic == nil {
		return Document{}, fmt.Errorf("decode document: %w", &FieldError{Record: "document", Field: "version"})
	}

	rawVersion, present := generic["version"]
	if !present {
		return Document{}, &FieldError{Record: "document", Field: "version"}
	}
	version, ok := versionOf(rawVersion)
	if !ok || (version != VersionLegacy && version != CurrentVersion) {
		return Document{}, fmt.Errorf("%w: %v", ErrUnsupportedVersion, rawVersion)
	}

	if errs := checkRequired(generic); len(errs) > 0 {
		return Document{}, errors.Join(errs...)
	}

	var raw rawDocument
	if err := unmarshal(data, format, &raw); err != nil {
		return Document{}, fmt.Errorf("decode document: %w", err)
	}
	raw.approvalSet = approvalKeys(generic)
	doc := raw.normalize()
	if err := doc.Workspace.Validate(); err != nil {
		return Document{}, fmt.Errorf("invalid workspace: %w", err)
	}
	return doc, nil
}

func unmarshal(data []byte, format Format, v any) error {
	switch format {
	case FormatJSON:
		return json.Unmarshal(data, v)
	case FormatYAML:
		return yaml.Unmarshal(data, v)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

// versionOf accepts the numeric shapes JSON and YAML decode to.
func versionOf(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case float64:
		if n != float64(int(n)) {
			return 0, false
		}
		return int(n), true
	case string:
		if i, err := strconv.Atoi(strings.TrimSpace(n)); err == nil {
			return i, true
		}
	}
	return 0, false
}
