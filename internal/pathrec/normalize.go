// Package pathrec reconciles file paths reported by different analyzers into
// one canonical key space so violations can be attached to graph vertices.
package pathrec

import (
	"path"
	"strings"
)

// UnknownOrigin is the path the graph exporter emits for synthetic FILE vertices.
const UnknownOrigin = "<unknown>"

// Normalize rewrites backslashes to forward slashes and cleans the result:
// "." and ".." elements are resolved and repeated separators collapse.
func Normalize(p string) string {
	return path.Clean(strings.ReplaceAll(p, "\\", "/"))
}

// NormalizePtr is Normalize for optional values; nil stays nil.
func NormalizePtr(p *string) *string {
	if p == nil {
		return nil
	}
	n := Normalize(*p)
	return &n
}

// Key returns the canonical lookup key for p: normalized and case-folded.
func Key(p string) string {
	return strings.ToLower(Normalize(p))
}
