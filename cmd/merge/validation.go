package merge

import (
	"fmt"

	"github.com/scan-io-git/lintgraph/internal/violations"
)

// validateMergeArgs validates the arguments provided to the merge command.
func validateMergeArgs(options *RunOptionsMerge) error {
	if options.PMDInput == "" {
		return fmt.Errorf("the 'pmd-input' flag must be specified")
	}
	if options.JoernInput == "" {
		return fmt.Errorf("the 'joern-input' flag must be specified")
	}
	if options.Output == "" {
		return fmt.Errorf("the 'output' flag must be specified")
	}
	switch options.PMDFormat {
	case violations.FormatJSON, violations.FormatSARIF:
	default:
		return fmt.Errorf("invalid 'pmd-format' %q, expected %q or %q", options.PMDFormat, violations.FormatJSON, violations.FormatSARIF)
	}
	return nil
}
