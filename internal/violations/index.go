package violations

import (
	"bytes"
	"encoding/json"

	"github.com/hashicorp/go-hclog"

	"github.com/scan-io-git/lintgraph/internal/pathrec"
)

// Index maps canonical path keys to the violations reported for them.
// Records of entries sharing a key are concatenated in report order.
type Index struct {
	entries map[string]*entry
	order   []string

	// FileEntries counts report entries that contributed to the index.
	FileEntries int
	// Skipped counts malformed report entries.
	Skipped int
}

type entry struct {
	original   string
	violations []json.RawMessage
}

// BuildIndex indexes every well-formed entry of report. Malformed entries
// are logged and skipped; they never fail the build.
func BuildIndex(report *Report, logger hclog.Logger) *Index {
	idx := &Index{entries: make(map[string]*entry)}
	if report == nil {
		return idx
	}

	for i, raw := range report.Files {
		var fe FileEntry
		if err := json.Unmarshal(raw, &fe); err != nil || !isObject(raw) {
			logger.Warn("violation report entry is not a valid file object, skipping", "index", i)
			idx.Skipped++
			continue
		}
		if fe.Filename == nil || *fe.Filename == "" {
			logger.Warn("violation report entry without a 'filename' field, skipping", "index", i)
			idx.Skipped++
			continue
		}

		key := pathrec.Key(*fe.Filename)
		e, ok := idx.entries[key]
		if !ok {
			e = &entry{original: *fe.Filename, violations: []json.RawMessage{}}
			idx.entries[key] = e
			idx.order = append(idx.order, key)
		}

		records, ok := decodeList(fe.Violations)
		if !ok {
			logger.Warn("violations are not a list, skipping violations for this file", "filename", *fe.Filename)
		} else {
			e.violations = append(e.violations, records...)
		}
		idx.FileEntries++
	}

	return idx
}

// decodeList accepts a missing member as an empty list.
func decodeList(raw json.RawMessage) ([]json.RawMessage, bool) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, true
	}
	if trimmed[0] != '[' {
		return nil, false
	}
	var list []json.RawMessage
	if err := json.Unmarshal(trimmed, &list); err != nil {
		return nil, false
	}
	return list, true
}

func isObject(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && trimmed[0] == '{'
}

// Len returns the number of distinct keys.
func (idx *Index) Len() int {
	return len(idx.order)
}

// Keys returns the indexed keys in first-seen order.
func (idx *Index) Keys() []string {
	keys := make([]string, len(idx.order))
	copy(keys, idx.order)
	return keys
}

// Lookup returns the violations recorded under key.
func (idx *Index) Lookup(key string) ([]json.RawMessage, bool) {
	e, ok := idx.entries[key]
	if !ok {
		return nil, false
	}
	return e.violations, true
}

// Original returns the filename, as first written in the report, that produced key.
func (idx *Index) Original(key string) string {
	if e, ok := idx.entries[key]; ok {
		return e.original
	}
	return ""
}
