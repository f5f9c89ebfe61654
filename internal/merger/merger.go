// Package merger attaches rule violations to the FILE vertices of a code
// property graph export.
package merger

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/hashicorp/go-hclog"

	"github.com/scan-io-git/lintgraph/internal/graphson"
	"github.com/scan-io-git/lintgraph/internal/pathrec"
	"github.com/scan-io-git/lintgraph/internal/violations"
	shrderrors "github.com/scan-io-git/lintgraph/pkg/shared/errors"
	"github.com/scan-io-git/lintgraph/pkg/shared/files"
)

// ViolationsProperty is the vertex property receiving the matched records.
const ViolationsProperty = "pmd_violations"

// UnmatchedFile is a reported file for which no FILE vertex was found.
type UnmatchedFile struct {
	Key      string `json:"key"`
	Filename string `json:"filename"`
}

// Result summarises one merge.
type Result struct {
	FileVertices       int             `json:"file_vertices"`
	MatchedVertices    int             `json:"matched_vertices"`
	MatchedKeys        int             `json:"matched_keys"`
	SkippedVertices    int             `json:"skipped_vertices"`
	UnresolvedVertices int             `json:"unresolved_vertices"`
	ReportedFiles      int             `json:"reported_files"`
	ReportEntries      int             `json:"report_entries"`
	SkippedEntries     int             `json:"skipped_entries"`
	Unmatched          []UnmatchedFile `json:"unmatched"`
}

// Options controls MergeFiles.
type Options struct {
	Format      string // violation report format, json or sarif
	SummaryPath string // optional path receiving Result as JSON
}

// Merger joins a violation index onto graph documents.
type Merger struct {
	reconciler *pathrec.Reconciler
	logger     hclog.Logger
}

// New creates a Merger. A nil reconciler falls back to the default bytecode strategy.
func New(reconciler *pathrec.Reconciler, logger hclog.Logger) *Merger {
	if reconciler == nil {
		reconciler = pathrec.NewDefault(pathrec.DefaultBytecodeOptions())
	}
	return &Merger{reconciler: reconciler, logger: logger}
}

// Merge sets the violations property on every FILE vertex of doc whose
// reconciled path is present in idx. Each vertex is visited once; nothing
// other than the violations property is changed.
func (m *Merger) Merge(idx *violations.Index, doc *graphson.Document) (*Result, error) {
	res := &Result{
		ReportedFiles:  idx.Len(),
		ReportEntries:  idx.FileEntries,
		SkippedEntries: idx.Skipped,
		Unmatched:      []UnmatchedFile{},
	}
	matchedKeys := make(map[string]struct{})

	for _, v := range doc.Graph.Vertices {
		if !v.IsObject() || v.Label() != graphson.LabelFile {
			continue
		}
		res.FileVertices++

		path, err := v.FilePath()
		if err != nil {
			m.logger.Warn("could not extract a file path from FILE vertex, skipping", "vertex_id", v.ID(), "error", err)
			res.SkippedVertices++
			continue
		}

		out := m.reconciler.Reconcile(path)
		if out.Skip {
			m.logger.Trace("skipping FILE vertex with unknown origin", "vertex_id", v.ID())
			res.SkippedVertices++
			continue
		}
		if out.Unresolved {
			m.logger.Debug("no package root found in bytecode path", "vertex_id", v.ID(), "path", path)
			res.UnresolvedVertices++
		}
		if out.Strategy != "" {
			m.logger.Trace("path reconciled", "strategy", out.Strategy, "from", path, "to", out.Rewritten)
		}

		records, ok := idx.Lookup(out.Key)
		if !ok {
			continue
		}

		encoded, err := json.Marshal(records)
		if err != nil {
			return nil, fmt.Errorf("failed to encode violations for %q: %w", path, err)
		}
		if err := v.SetProperty(ViolationsProperty, encoded); err != nil {
			m.logger.Warn("could not attach violations to FILE vertex, skipping", "vertex_id", v.ID(), "error", err)
			res.SkippedVertices++
			continue
		}
		m.logger.Debug("violations attached", "path", path, "count", len(records))
		res.MatchedVertices++
		matchedKeys[out.Key] = struct{}{}
	}

	res.MatchedKeys = len(matchedKeys)
	for _, key := range idx.Keys() {
		if _, ok := matchedKeys[key]; ok {
			continue
		}
		res.Unmatched = append(res.Unmatched, UnmatchedFile{Key: key, Filename: idx.Original(key)})
	}
	sort.Slice(res.Unmatched, func(i, j int) bool {
		return res.Unmatched[i].Key < res.Unmatched[j].Key
	})

	return res, nil
}

// MergeFiles loads both inputs, merges them and writes the augmented graph to
// outPath. Nothing is written unless every step before the write succeeds.
func (m *Merger) MergeFiles(reportPath, graphPath, outPath string, opts Options) (*Result, error) {
	m.logger.Info("loading violation report", "path", reportPath, "format", opts.Format)
	report, err := violations.Load(reportPath, opts.Format)
	if err != nil {
		return nil, err
	}
	idx := violations.BuildIndex(report, m.logger)
	m.logger.Info("violation index built", "files", idx.Len(), "entries", idx.FileEntries, "skipped", idx.Skipped)

	m.logger.Info("loading graph export", "path", graphPath)
	doc, err := graphson.ReadFile(graphPath)
	if err != nil {
		return nil, err
	}
	m.logger.Debug("graph export decoded", "envelope", doc.Shape.String(), "vertices", len(doc.Graph.Vertices))

	res, err := m.Merge(idx, doc)
	if err != nil {
		return nil, err
	}

	data, err := doc.Encode()
	if err != nil {
		return nil, fmt.Errorf("failed to encode merged graph: %w", err)
	}
	if err := files.WriteJsonFile(outPath, data); err != nil {
		return nil, shrderrors.Wrap(shrderrors.ErrPersistence, "failed to write merged graph %q: %v", outPath, err)
	}

	m.logSummary(res, outPath)

	if opts.SummaryPath != "" {
		summary, err := json.MarshalIndent(res, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("failed to encode merge summary: %w", err)
		}
		if err := files.WriteJsonFile(opts.SummaryPath, summary); err != nil {
			return nil, shrderrors.Wrap(shrderrors.ErrPersistence, "failed to write merge summary %q: %v", opts.SummaryPath, err)
		}
	}
	return res, nil
}

func (m *Merger) logSummary(res *Result, outPath string) {
	m.logger.Info("merge completed",
		"output", outPath,
		"file_vertices", res.FileVertices,
		"matched_vertices", res.MatchedVertices,
		"matched_keys", res.MatchedKeys,
		"skipped_vertices", res.SkippedVertices,
		"reported_files", res.ReportedFiles,
		"unmatched", len(res.Unmatched),
	)
	if len(res.Unmatched) == 0 {
		return
	}
	m.logger.Warn("reported files without a matching FILE vertex", "count", len(res.Unmatched))
	for _, u := range res.Unmatched {
		m.logger.Info("unmatched report file", "filename", u.Filename)
	}
}
