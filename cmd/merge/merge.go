package merge

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/scan-io-git/lintgraph/internal/config"
	"github.com/scan-io-git/lintgraph/internal/logger"
	"github.com/scan-io-git/lintgraph/internal/merger"
	"github.com/scan-io-git/lintgraph/internal/pathrec"
	"github.com/scan-io-git/lintgraph/pkg/shared"
	"github.com/scan-io-git/lintgraph/pkg/shared/errors"
)

// RunOptionsMerge holds the arguments for the merge command.
type RunOptionsMerge struct {
	PMDInput   string `json:"pmd_input"`
	JoernInput string `json:"joern_input"`
	Output     string `json:"output"`
	PMDFormat  string `json:"pmd_format"`
	Summary    string `json:"summary,omitempty"`
}

var (
	AppConfig         *config.Config
	mergeOptions      RunOptionsMerge
	exampleMergeUsage = `  # Merge a PMD JSON report into a Joern GraphSON export
  lintgraph merge --pmd-input export/lint/pmd_report.json --joern-input export/cpg_all/export.json --output export/merged_graph.json

  # Merge a SARIF report and write a summary next to the graph
  lintgraph merge --pmd-input pmd.sarif --pmd-format sarif --joern-input export.json --output merged.json --summary merge_summary.json`
)

// MergeCmd represents the merge command.
var MergeCmd = &cobra.Command{
	Use:                   "merge --pmd-input PATH --joern-input PATH --output PATH [--pmd-format json|sarif] [--summary PATH]",
	SilenceUsage:          true,
	DisableFlagsInUseLine: true,
	Example:               exampleMergeUsage,
	Short:                 "Attach PMD violations to the FILE vertices of a Joern graph export",
	RunE:                  runMergeCommand,
}

// Init initializes the global configuration variable.
func Init(cfg *config.Config) {
	AppConfig = cfg
}

func runMergeCommand(cmd *cobra.Command, args []string) error {
	if len(args) == 0 && !shared.HasFlags(cmd.Flags()) {
		return cmd.Help()
	}

	logger := logger.NewLogger(AppConfig, "core-merge")

	if err := validateMergeArgs(&mergeOptions); err != nil {
		logger.Error("invalid merge arguments", "error", err)
		return errors.NewCommandError(mergeOptions, err, 1)
	}

	m := merger.New(newReconciler(AppConfig), logger)
	if _, err := m.MergeFiles(mergeOptions.PMDInput, mergeOptions.JoernInput, mergeOptions.Output, merger.Options{
		Format:      mergeOptions.PMDFormat,
		SummaryPath: mergeOptions.Summary,
	}); err != nil {
		logger.Error("merge command failed", "error", err)
		return errors.NewCommandError(mergeOptions, fmt.Errorf("merge failed: %w", err), 1)
	}

	logger.Info("merge command completed successfully", "output", mergeOptions.Output)
	return nil
}

// newReconciler builds the path reconciler from the merge section of the config.
func newReconciler(cfg *config.Config) *pathrec.Reconciler {
	opts := pathrec.DefaultBytecodeOptions()
	if cfg == nil {
		return pathrec.NewDefault(opts)
	}
	if cfg.Merge.SourceRoot != "" {
		opts.SourceRoot = cfg.Merge.SourceRoot
	}
	if len(cfg.Merge.PackageRoots) > 0 {
		opts.PackageRoots = cfg.Merge.PackageRoots
	}
	return pathrec.NewDefault(opts)
}

func init() {
	MergeCmd.Flags().StringVar(&mergeOptions.PMDInput, "pmd-input", "", "Path to the PMD violation report.")
	MergeCmd.Flags().StringVar(&mergeOptions.JoernInput, "joern-input", "", "Path to the Joern GraphSON export.")
	MergeCmd.Flags().StringVarP(&mergeOptions.Output, "output", "o", "", "Path of the merged graph to write.")
	MergeCmd.Flags().StringVar(&mergeOptions.PMDFormat, "pmd-format", "json", "Format of the violation report: json or sarif.")
	MergeCmd.Flags().StringVar(&mergeOptions.Summary, "summary", "", "Optional path for a JSON merge summary.")
	MergeCmd.Flags().BoolP("help", "h", false, "Show help for the merge command.")
}
