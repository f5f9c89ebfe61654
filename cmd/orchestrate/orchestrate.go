package orchestrate

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/hashicorp/go-hclog"
	"github.com/spf13/cobra"

	"github.com/scan-io-git/lintgraph/internal/compose"
	"github.com/scan-io-git/lintgraph/internal/config"
	"github.com/scan-io-git/lintgraph/internal/logger"
	"github.com/scan-io-git/lintgraph/internal/merger"
	"github.com/scan-io-git/lintgraph/internal/pathrec"
	"github.com/scan-io-git/lintgraph/internal/pipeline"
	"github.com/scan-io-git/lintgraph/internal/upload"
	"github.com/scan-io-git/lintgraph/pkg/shared"
	"github.com/scan-io-git/lintgraph/pkg/shared/errors"
	"github.com/scan-io-git/lintgraph/pkg/shared/httpclient"
)

// Exit codes of the orchestrate command.
const (
	ExitFailed  = 1
	ExitPartial = 2
)

// RunOptionsOrchestrate holds the arguments for the orchestrate command.
type RunOptionsOrchestrate struct {
	ExportDir          string `json:"export_dir"`
	PMDReport          string `json:"pmd_report"`
	PMDFormat          string `json:"pmd_format"`
	JoernExport        string `json:"joern_export"`
	MergedOutput       string `json:"merged_output"`
	Summary            string `json:"summary,omitempty"`
	TargetURL          string `json:"target_url"`
	SkipDocker         bool   `json:"skip_docker"`
	SkipUpload         bool   `json:"skip_upload"`
	AllowPartialUpload bool   `json:"allow_partial_upload"`
	ComposeFile        string `json:"compose_file"`
	ProjectDir         string `json:"project_dir"`
	ProjectEncoding    string `json:"project_encoding"`
	ReceiverService    string `json:"receiver_service"`
	ReportFile         string `json:"report_file,omitempty"`
}

var (
	AppConfig               *config.Config
	orchestrateOptions      RunOptionsOrchestrate
	exampleOrchestrateUsage = `  # Run the analyzers, merge their output and upload everything to the receiver
  lintgraph orchestrate --compose-file ./docker-compose.yml --project-dir ../project

  # Merge artifacts that already exist without touching containers or the network
  lintgraph orchestrate --skip-docker --skip-upload --export-dir ./export

  # Upload base64 envelopes and keep a JSON run report
  lintgraph orchestrate --project-encoding base64 --report-file run_report.json`
)

// OrchestrateCmd represents the orchestrate command.
var OrchestrateCmd = &cobra.Command{
	Use:                   "orchestrate [--export-dir PATH] [--pmd-report PATH] [--joern-export PATH] [--merged-output PATH] [--target-url URL] [--skip-docker] [--skip-upload] [--compose-file PATH] [--project-dir PATH] [--report-file PATH]",
	SilenceUsage:          true,
	DisableFlagsInUseLine: true,
	Example:               exampleOrchestrateUsage,
	Short:                 "Run the analyzers, merge violations into the code graph and upload the results",
	RunE:                  runOrchestrateCommand,
}

// Init initializes the global configuration variable.
func Init(cfg *config.Config) {
	AppConfig = cfg
}

func runOrchestrateCommand(cmd *cobra.Command, args []string) error {
	logger := logger.NewLogger(AppConfig, "core-orchestrate")

	if err := validateOrchestrateArgs(&orchestrateOptions, args); err != nil {
		logger.Error("invalid orchestrate arguments", "error", err)
		return errors.NewCommandError(orchestrateOptions, err, ExitFailed)
	}

	runCfg, err := buildRunConfig(&orchestrateOptions, AppConfig)
	if err != nil {
		logger.Error("failed to resolve run settings", "error", err)
		return errors.NewCommandError(orchestrateOptions, err, ExitFailed)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	p := newPipeline(AppConfig, runCfg, logger)
	return execute(ctx, p, runCfg, orchestrateOptions.ReportFile, logger)
}

// execute runs p and maps the run status to an exit code.
func execute(ctx context.Context, p *pipeline.Pipeline, runCfg pipeline.RunConfig, reportFile string, logger hclog.Logger) error {
	report, runErr := p.Run(ctx, runCfg)

	if reportFile != "" && report != nil {
		if err := report.WriteFile(reportFile); err != nil {
			logger.Error("failed to write run report", "path", reportFile, "error", err)
			if runErr == nil {
				return errors.NewCommandError(report, err, ExitFailed)
			}
		}
	}

	if runErr != nil {
		logger.Error("orchestrate command failed", "error", runErr)
		return errors.NewCommandError(report, runErr, ExitFailed)
	}
	if report.Status == pipeline.RunPartial {
		logger.Warn("orchestrate command finished with failures", "status", report.Status)
		return errors.NewCommandError(report, fmt.Errorf("run %s finished partially", report.RunID), ExitPartial)
	}

	logger.Info("orchestrate command completed successfully", "run_id", report.RunID)
	return nil
}

// buildRunConfig resolves flags against the configuration file.
func buildRunConfig(opts *RunOptionsOrchestrate, cfg *config.Config) (pipeline.RunConfig, error) {
	if cfg == nil {
		cfg = &config.Config{}
		config.ApplyDefaults(cfg)
	}

	exportDir := shared.StringOr(opts.ExportDir, pipeline.DefaultExportDir)
	runCfg := pipeline.RunConfig{
		ExportDir:          exportDir,
		PMDReport:          pipeline.ResolveArtifact(exportDir, opts.PMDReport, pipeline.DefaultPMDReportRel),
		PMDFormat:          opts.PMDFormat,
		JoernExport:        pipeline.ResolveArtifact(exportDir, opts.JoernExport, pipeline.DefaultJoernExportRel),
		MergedOutput:       pipeline.ResolveArtifact(exportDir, opts.MergedOutput, pipeline.DefaultMergedOutputRel),
		SummaryPath:        opts.Summary,
		SkipContainers:     opts.SkipDocker,
		SkipUpload:         opts.SkipUpload,
		AllowPartialUpload: opts.AllowPartialUpload,
		TargetURL:          shared.StringOr(opts.TargetURL, pipeline.DefaultTargetURL),
		ComposeFile:        opts.ComposeFile,
		ProjectDir:         opts.ProjectDir,
		ProjectEncoding:    opts.ProjectEncoding,
		ReceiverService:    shared.StringOr(opts.ReceiverService, cfg.Compose.ReceiverService),
		ReadinessTimeout:   cfg.Compose.ReadinessTimeout,
		PollInterval:       cfg.Compose.PollInterval,
	}

	if runCfg.ComposeFile != "" {
		abs, err := filepath.Abs(runCfg.ComposeFile)
		if err != nil {
			return runCfg, fmt.Errorf("failed to resolve compose file %q: %w", runCfg.ComposeFile, err)
		}
		runCfg.ComposeFile = abs
	}

	return runCfg, runCfg.Validate()
}

// newPipeline wires the real compose CLI, merger and upload client.
func newPipeline(cfg *config.Config, runCfg pipeline.RunConfig, logger hclog.Logger) *pipeline.Pipeline {
	var command []string
	opts := pathrec.DefaultBytecodeOptions()
	if cfg != nil {
		command = cfg.Compose.Command
		opts.SourceRoot = shared.StringOr(cfg.Merge.SourceRoot, opts.SourceRoot)
		if len(cfg.Merge.PackageRoots) > 0 {
			opts.PackageRoots = cfg.Merge.PackageRoots
		}
	}
	if len(command) == 0 {
		command = config.DefaultComposeCommand()
	}

	runner := compose.NewCLIRunner(command, filepath.Dir(runCfg.ComposeFile), logger.Named("compose"))
	m := merger.New(pathrec.NewDefault(opts), logger.Named("merger"))
	uploader := upload.New(httpclient.InitializeRestyClient(logger.Named("http"), cfg), logger.Named("upload"))
	return pipeline.New(runner, m, uploader, logger)
}

func init() {
	OrchestrateCmd.Flags().StringVar(&orchestrateOptions.ExportDir, "export-dir", pipeline.DefaultExportDir, "Directory holding the analyzer artifacts.")
	OrchestrateCmd.Flags().StringVar(&orchestrateOptions.PMDReport, "pmd-report", "", "Path to the PMD report (default <export-dir>/"+pipeline.DefaultPMDReportRel+").")
	OrchestrateCmd.Flags().StringVar(&orchestrateOptions.PMDFormat, "pmd-format", "json", "Format of the PMD report: json or sarif.")
	OrchestrateCmd.Flags().StringVar(&orchestrateOptions.JoernExport, "joern-export", "", "Path to the Joern export (default <export-dir>/"+pipeline.DefaultJoernExportRel+").")
	OrchestrateCmd.Flags().StringVar(&orchestrateOptions.MergedOutput, "merged-output", "", "Path of the merged graph (default <export-dir>/"+pipeline.DefaultMergedOutputRel+").")
	OrchestrateCmd.Flags().StringVar(&orchestrateOptions.Summary, "summary", "", "Optional path for a JSON merge summary.")
	OrchestrateCmd.Flags().StringVar(&orchestrateOptions.TargetURL, "target-url", pipeline.DefaultTargetURL, "Upload endpoint of the receiver service.")
	OrchestrateCmd.Flags().BoolVar(&orchestrateOptions.SkipDocker, "skip-docker", false, "Do not run the analyzer containers.")
	OrchestrateCmd.Flags().BoolVar(&orchestrateOptions.SkipUpload, "skip-upload", false, "Do not start the receiver or upload anything.")
	OrchestrateCmd.Flags().BoolVar(&orchestrateOptions.AllowPartialUpload, "allow-partial-upload", false, "Treat upload failures as a partial run instead of a failure.")
	OrchestrateCmd.Flags().StringVar(&orchestrateOptions.ComposeFile, "compose-file", "./docker-compose.yml", "Compose file defining the analyzer and receiver services.")
	OrchestrateCmd.Flags().StringVar(&orchestrateOptions.ProjectDir, "project-dir", "../project", "Project whose source files are uploaded after the graph.")
	OrchestrateCmd.Flags().StringVar(&orchestrateOptions.ProjectEncoding, "project-encoding", upload.EncodingRaw, "Encoding of project file uploads: raw or base64.")
	OrchestrateCmd.Flags().StringVar(&orchestrateOptions.ReceiverService, "receiver-service", "", "Compose service receiving uploads (default from config).")
	OrchestrateCmd.Flags().StringVar(&orchestrateOptions.ReportFile, "report-file", "", "Optional path for the JSON run report.")
	OrchestrateCmd.Flags().BoolP("help", "h", false, "Show help for the orchestrate command.")
}
