package pipeline

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/scan-io-git/lintgraph/internal/ci"
	"github.com/scan-io-git/lintgraph/internal/merger"
	"github.com/scan-io-git/lintgraph/internal/upload"
	"github.com/scan-io-git/lintgraph/pkg/shared/files"
)

// Stage statuses.
const (
	StatusOK      = "OK"
	StatusFailed  = "FAILED"
	StatusSkipped = "SKIPPED"
)

// Run statuses.
const (
	RunSucceeded = "succeeded"
	RunPartial   = "partial"
	RunFailed    = "failed"
)

// StageReport records one stage execution.
type StageReport struct {
	Name     string        `json:"name"`
	Status   string        `json:"status"`
	Fatal    bool          `json:"fatal"`
	Message  string        `json:"message,omitempty"`
	Duration time.Duration `json:"duration"`
}

// RunReport summarises a whole run.
type RunReport struct {
	RunID     string              `json:"run_id"`
	Status    string              `json:"status"`
	StartedAt time.Time           `json:"started_at"`
	Duration  time.Duration       `json:"duration"`
	Stages    []StageReport       `json:"stages"`
	CI        *ci.Environment     `json:"ci,omitempty"`
	Merge     *merger.Result      `json:"merge,omitempty"`
	Uploads   []upload.FileResult `json:"uploads,omitempty"`
}

// Stage returns the report of the named stage.
func (r *RunReport) Stage(name string) (StageReport, bool) {
	for _, s := range r.Stages {
		if s.Name == name {
			return s, true
		}
	}
	return StageReport{}, false
}

func (r *RunReport) record(s StageReport) {
	r.Stages = append(r.Stages, s)
}

func (r *RunReport) finish(fatal error) {
	r.Duration = time.Since(r.StartedAt)
	switch {
	case fatal != nil:
		r.Status = RunFailed
	case r.hasFailures():
		r.Status = RunPartial
	default:
		r.Status = RunSucceeded
	}
}

func (r *RunReport) hasFailures() bool {
	for _, s := range r.Stages {
		if s.Status == StatusFailed {
			return true
		}
	}
	return false
}

// WriteFile stores the report as indented JSON.
func (r *RunReport) WriteFile(path string) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode run report: %w", err)
	}
	return files.WriteJsonFile(path, data)
}
