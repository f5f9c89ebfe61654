// Package violations loads rule-violation reports and indexes them by
// canonical file path.
package violations

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	shrderrors "github.com/scan-io-git/lintgraph/pkg/shared/errors"
)

// Report formats accepted by Load.
const (
	FormatJSON  = "json"
	FormatSARIF = "sarif"
)

// FileEntry is one "files" element of a report. Violations stay raw so that
// every record is passed through exactly as the linter wrote it.
type FileEntry struct {
	Filename   *string         `json:"filename"`
	Violations json.RawMessage `json:"violations"`
}

// Report is a decoded violation report.
type Report struct {
	Files []json.RawMessage
}

// Load reads a report in the given format.
func Load(path, format string) (*Report, error) {
	switch format {
	case "", FormatJSON:
		return ReadFile(path)
	case FormatSARIF:
		return ReadSARIFFile(path)
	default:
		return nil, fmt.Errorf("unsupported violation report format %q", format)
	}
}

// ReadFile loads a PMD JSON report.
func ReadFile(path string) (*Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, shrderrors.Wrap(shrderrors.ErrInputNotFound, "violation report %q", path)
		}
		return nil, fmt.Errorf("failed to read violation report %q: %w", path, err)
	}
	report, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("violation report %q: %w", path, err)
	}
	return report, nil
}

// Decode parses a PMD JSON report. The top level must be an object whose
// "files" member is a list; individual entries are validated later.
func Decode(data []byte) (*Report, error) {
	if !json.Valid(data) {
		return nil, shrderrors.Wrap(shrderrors.ErrInputMalformed, "could not decode JSON")
	}
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, shrderrors.Wrap(shrderrors.ErrInputMalformed, "top-level value is not an object")
	}

	var top map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &top); err != nil {
		return nil, shrderrors.Wrap(shrderrors.ErrInputMalformed, "could not decode JSON: %v", err)
	}

	rawFiles, ok := top["files"]
	if !ok {
		return nil, shrderrors.Wrap(shrderrors.ErrInputMalformed, "'files' key not found")
	}
	var files []json.RawMessage
	if err := json.Unmarshal(rawFiles, &files); err != nil || files == nil {
		return nil, shrderrors.Wrap(shrderrors.ErrInputMalformed, "'files' is not a list")
	}
	return &Report{Files: files}, nil
}
