package orchestrate

import (
	"fmt"

	"github.com/scan-io-git/lintgraph/internal/upload"
	"github.com/scan-io-git/lintgraph/internal/violations"
)

// validateOrchestrateArgs validates the arguments provided to the orchestrate command.
func validateOrchestrateArgs(options *RunOptionsOrchestrate, args []string) error {
	if len(args) > 0 {
		return fmt.Errorf("orchestrate takes no positional arguments, got %v", args)
	}
	switch options.PMDFormat {
	case "", violations.FormatJSON, violations.FormatSARIF:
	default:
		return fmt.Errorf("invalid 'pmd-format' %q", options.PMDFormat)
	}
	switch options.ProjectEncoding {
	case "", upload.EncodingRaw, upload.EncodingBase64:
	default:
		return fmt.Errorf("invalid 'project-encoding' %q, expected %q or %q", options.ProjectEncoding, upload.EncodingRaw, upload.EncodingBase64)
	}
	if !options.SkipUpload && options.TargetURL == "" {
		return fmt.Errorf("the 'target-url' flag must not be empty unless 'skip-upload' is set")
	}
	if (!options.SkipDocker || !options.SkipUpload) && options.ComposeFile == "" {
		return fmt.Errorf("the 'compose-file' flag must not be empty unless both 'skip-docker' and 'skip-upload' are set")
	}
	return nil
}
