package pipeline

import (
	"fmt"
	"time"

	"github.com/scan-io-git/lintgraph/internal/upload"
	"github.com/scan-io-git/lintgraph/internal/violations"
)

// DefaultTargetURL is where the receiver service listens by default.
const DefaultTargetURL = "http://localhost:5001/api/upload-graph"

// RunConfig holds every setting of one pipeline run. It is built once and
// handed to each stage; stages never read settings from anywhere else.
type RunConfig struct {
	ExportDir    string
	PMDReport    string
	PMDFormat    string
	JoernExport  string
	MergedOutput string
	SummaryPath  string

	SkipContainers bool
	SkipUpload     bool
	// AllowPartialUpload turns upload failures into a partial run instead of a failed one.
	AllowPartialUpload bool

	TargetURL       string
	ComposeFile     string
	ProjectDir      string
	ProjectEncoding string

	ReceiverService  string
	ReadinessTimeout time.Duration
	PollInterval     time.Duration
}

// Validate checks settings that do not depend on the filesystem.
func (c RunConfig) Validate() error {
	if c.PMDReport == "" || c.JoernExport == "" || c.MergedOutput == "" {
		return fmt.Errorf("pmd report, joern export and merged output paths are required")
	}
	switch c.PMDFormat {
	case "", violations.FormatJSON, violations.FormatSARIF:
	default:
		return fmt.Errorf("unsupported pmd format %q", c.PMDFormat)
	}
	if !c.SkipUpload {
		switch c.ProjectEncoding {
		case "", upload.EncodingRaw, upload.EncodingBase64:
		default:
			return fmt.Errorf("unsupported project encoding %q", c.ProjectEncoding)
		}
		if c.TargetURL == "" {
			return fmt.Errorf("target url is required when uploading")
		}
		if c.ReceiverService == "" {
			return fmt.Errorf("receiver service is required when uploading")
		}
	}
	if !c.SkipContainers || !c.SkipUpload {
		if c.ComposeFile == "" {
			return fmt.Errorf("compose file is required unless both containers and upload are skipped")
		}
	}
	return nil
}
