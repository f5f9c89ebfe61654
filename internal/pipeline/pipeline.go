// Package pipeline runs the analyzers, merges their artifacts and uploads
// the results.
package pipeline

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-hclog"

	"github.com/scan-io-git/lintgraph/internal/ci"
	"github.com/scan-io-git/lintgraph/internal/compose"
	"github.com/scan-io-git/lintgraph/internal/merger"
	"github.com/scan-io-git/lintgraph/internal/upload"
	shrderrors "github.com/scan-io-git/lintgraph/pkg/shared/errors"
	"github.com/scan-io-git/lintgraph/pkg/shared/files"
)

// Stage names.
const (
	StageInit            = "init"
	StageRunContainers   = "run_containers"
	StageReceiverService = "receiver_service"
	StageMerge           = "merge"
	StageUpload          = "upload"
)

// Stage is one step of a run.
type Stage struct {
	Name  string
	Fatal bool
	Skip  func(cfg RunConfig) bool
	Run   func(ctx context.Context, cfg RunConfig, report *RunReport) error
	// Repair is advisory: it may log a suggestion, it never changes the outcome.
	Repair func(ctx context.Context, cfg RunConfig, err error)
}

// Pipeline wires the analyzers, the merger and the uploader together.
type Pipeline struct {
	runner   compose.Runner
	merger   *merger.Merger
	uploader *upload.Client
	logger   hclog.Logger
	// lookupEnv reads the CI environment; nil means the process environment.
	lookupEnv ci.LookupFunc
}

// New creates a Pipeline.
func New(runner compose.Runner, m *merger.Merger, uploader *upload.Client, logger hclog.Logger) *Pipeline {
	return &Pipeline{runner: runner, merger: m, uploader: uploader, logger: logger}
}

// Run executes Init, RunContainers, Merge and Upload in order. When upload is
// enabled Merge and Upload run while the receiver service is up. The returned
// error is non-nil only when a fatal stage failed; non-fatal failures mark
// the report partial.
func (p *Pipeline) Run(ctx context.Context, cfg RunConfig) (*RunReport, error) {
	report := &RunReport{RunID: uuid.NewString(), StartedAt: time.Now(), CI: ci.Detect(p.lookupEnv)}
	logger := p.logger.With("run_id", report.RunID)
	if report.CI != nil {
		logger = logger.With("ci", report.CI.Provider)
	}
	logger.Info("pipeline started", "skip_containers", cfg.SkipContainers, "skip_upload", cfg.SkipUpload)

	err := p.run(ctx, cfg, report, logger)
	report.finish(err)
	if err != nil {
		logger.Error("pipeline failed", "error", err, "elapsed", report.Duration.String())
		return report, err
	}
	logger.Info("pipeline finished", "status", report.Status, "elapsed", report.Duration.String())
	return report, nil
}

func (p *Pipeline) run(ctx context.Context, cfg RunConfig, report *RunReport, logger hclog.Logger) error {
	if err := cfg.Validate(); err != nil {
		report.record(StageReport{Name: StageInit, Status: StatusFailed, Fatal: true, Message: err.Error()})
		return err
	}

	c := compose.New(p.runner, cfg.ComposeFile, logger)
	if err := p.runStages(ctx, cfg, report, logger, p.initStage(), p.containerStage(c)); err != nil {
		return err
	}

	rest := applyPolicies(cfg, []Stage{p.mergeStage(), p.uploadStage()})
	if cfg.SkipUpload {
		return p.runStages(ctx, cfg, report, logger, rest...)
	}

	svc := compose.NewServiceManager(c, cfg.ReceiverService, cfg.ReadinessTimeout, cfg.PollInterval, logger)
	started := time.Now()
	entered := false
	err := svc.With(ctx, func(ctx context.Context) error {
		entered = true
		report.record(StageReport{Name: StageReceiverService, Status: StatusOK, Fatal: true, Duration: time.Since(started)})
		return p.runStages(ctx, cfg, report, logger, rest...)
	})
	if err != nil && !entered {
		report.record(StageReport{Name: StageReceiverService, Status: StatusFailed, Fatal: true, Message: err.Error(), Duration: time.Since(started)})
		return fmt.Errorf("receiver service unavailable: %w", err)
	}
	return err
}

// runStages stops at the first fatal failure.
func (p *Pipeline) runStages(ctx context.Context, cfg RunConfig, report *RunReport, logger hclog.Logger, stages ...Stage) error {
	for _, s := range stages {
		if s.Skip != nil && s.Skip(cfg) {
			logger.Info("stage skipped", "stage", s.Name)
			report.record(StageReport{Name: s.Name, Status: StatusSkipped, Fatal: s.Fatal})
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		logger.Info("stage started", "stage", s.Name)
		start := time.Now()
		err := s.Run(ctx, cfg, report)
		sr := StageReport{Name: s.Name, Status: StatusOK, Fatal: s.Fatal, Duration: time.Since(start)}
		if err == nil {
			report.record(sr)
			logger.Info("stage finished", "stage", s.Name, "elapsed", sr.Duration.String())
			continue
		}

		sr.Status = StatusFailed
		sr.Message = err.Error()
		report.record(sr)
		if s.Repair != nil {
			s.Repair(ctx, cfg, err)
		}
		if s.Fatal {
			logger.Error("stage failed", "stage", s.Name, "error", err)
			return fmt.Errorf("stage %s failed: %w", s.Name, err)
		}
		logger.Warn("stage failed, continuing", "stage", s.Name, "error", err)
	}
	return nil
}

func (p *Pipeline) initStage() Stage {
	return Stage{
		Name:  StageInit,
		Fatal: true,
		Run: func(_ context.Context, cfg RunConfig, _ *RunReport) error {
			if cfg.SkipContainers {
				for _, path := range []string{cfg.PMDReport, cfg.JoernExport} {
					if _, err := files.RequireNonEmptyFile(path); err != nil {
						return fmt.Errorf("containers are skipped but a required artifact is unavailable: %w", err)
					}
				}
			} else if !files.IsDir(cfg.ProjectDir) {
				return shrderrors.Wrap(shrderrors.ErrInputNotFound, "project directory %q does not exist", cfg.ProjectDir)
			}

			if cfg.ExportDir != "" {
				if err := files.CreateFolderIfNotExists(cfg.ExportDir); err != nil {
					return err
				}
			}
			for _, path := range []string{cfg.PMDReport, cfg.JoernExport, cfg.MergedOutput} {
				if err := files.CreateParentFolder(path); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

func (p *Pipeline) containerStage(c *compose.Compose) Stage {
	return Stage{
		Name:  StageRunContainers,
		Fatal: true,
		Skip:  func(cfg RunConfig) bool { return cfg.SkipContainers },
		Run: func(ctx context.Context, cfg RunConfig, _ *RunReport) error {
			if err := c.RunAnalysis(ctx); err != nil {
				return err
			}
			for _, path := range []string{cfg.PMDReport, cfg.JoernExport} {
				if _, err := files.RequireNonEmptyFile(path); err != nil {
					return fmt.Errorf("analysis finished without its expected output: %w", err)
				}
			}
			return nil
		},
		Repair: func(_ context.Context, cfg RunConfig, err error) {
			p.logger.Warn("the graph exporter clears its temporary cpg.bin on start; rerun the pipeline, or run the exporter alone and resume with --skip-docker",
				"command", fmt.Sprintf("docker compose -f %s run --rm joern", cfg.ComposeFile),
				"expected_export", cfg.JoernExport,
				"cause", err)
		},
	}
}

func (p *Pipeline) mergeStage() Stage {
	return Stage{
		Name:  StageMerge,
		Fatal: true,
		Run: func(_ context.Context, cfg RunConfig, report *RunReport) error {
			res, err := p.merger.MergeFiles(cfg.PMDReport, cfg.JoernExport, cfg.MergedOutput, merger.Options{
				Format:      cfg.PMDFormat,
				SummaryPath: cfg.SummaryPath,
			})
			if err != nil {
				return err
			}
			report.Merge = res
			if _, err := files.RequireNonEmptyFile(cfg.MergedOutput); err != nil {
				return fmt.Errorf("merge produced no output: %w", err)
			}
			return nil
		},
		Repair: func(_ context.Context, cfg RunConfig, err error) {
			p.logger.Warn("regenerate or fix the analyzer artifacts, then merge them again without rerunning the containers using --skip-docker",
				"pmd_report", cfg.PMDReport,
				"joern_export", cfg.JoernExport,
				"cause", err)
		},
	}
}

func (p *Pipeline) uploadStage() Stage {
	return Stage{
		Name:  StageUpload,
		Fatal: true,
		Skip:  func(cfg RunConfig) bool { return cfg.SkipUpload },
		Run: func(ctx context.Context, cfg RunConfig, report *RunReport) error {
			failed := 0
			merged := p.uploader.Attempt(ctx, upload.Request{
				Path:        cfg.MergedOutput,
				TargetURL:   cfg.TargetURL,
				ContentType: "application/json",
				FileType:    upload.FileTypeMergedGraph,
			}, upload.EncodingRaw)
			report.Uploads = append(report.Uploads, merged)
			if !merged.OK {
				failed++
			}

			if cfg.ProjectDir != "" && files.IsDir(cfg.ProjectDir) {
				results, err := p.uploader.UploadProject(ctx, cfg.ProjectDir, cfg.TargetURL, cfg.ProjectEncoding)
				report.Uploads = append(report.Uploads, results...)
				if err != nil {
					p.logger.Error("project upload incomplete", "error", err)
					failed++
				}
			} else if cfg.ProjectDir != "" {
				p.logger.Warn("project directory not found, only the merged graph was uploaded", "project_dir", cfg.ProjectDir)
			}

			if failed > 0 {
				return shrderrors.Wrap(shrderrors.ErrNetwork, "%d upload step(s) failed", failed)
			}
			return nil
		},
	}
}

// applyPolicies relaxes stage fatality according to cfg.
func applyPolicies(cfg RunConfig, stages []Stage) []Stage {
	for i := range stages {
		if stages[i].Name == StageUpload && cfg.AllowPartialUpload {
			stages[i].Fatal = false
		}
	}
	return stages
}

// Artifact locations relative to the export directory.
const (
	DefaultExportDir       = "./export"
	DefaultPMDReportRel    = "lint/pmd_report.json"
	DefaultJoernExportRel  = "cpg_all/export.json"
	DefaultMergedOutputRel = "merged_graph.json"
)

// ResolveArtifact places rel under exportDir unless it is absolute. An empty
// rel selects fallback.
func ResolveArtifact(exportDir, rel, fallback string) string {
	if rel == "" {
		rel = fallback
	}
	if filepath.IsAbs(rel) {
		return rel
	}
	return filepath.Join(exportDir, rel)
}
