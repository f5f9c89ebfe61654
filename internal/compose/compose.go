package compose

import (
	"context"
	"fmt"
	"strings"

	"github.com/hashicorp/go-hclog"
)

// Analysis services started by RunAnalysis. The job's exit code is taken
// from the linter container.
var (
	AnalysisServices = []string{"joern", "lint"}
	ExitCodeService  = "lint"
)

// Compose issues subcommands against one compose file.
type Compose struct {
	runner Runner
	file   string
	logger hclog.Logger
}

// New binds runner to composeFile.
func New(runner Runner, composeFile string, logger hclog.Logger) *Compose {
	return &Compose{runner: runner, file: composeFile, logger: logger}
}

func (c *Compose) run(ctx context.Context, args ...string) (Result, error) {
	return c.runner.Run(ctx, append([]string{"-f", c.file}, args...)...)
}

// RunAnalysis runs the analyzer containers as one blocking job and fails
// when the job exits nonzero.
func (c *Compose) RunAnalysis(ctx context.Context) error {
	args := []string{"up", "--build", "--abort-on-container-exit", "--exit-code-from", ExitCodeService}
	args = append(args, AnalysisServices...)

	c.logger.Info("running analysis containers", "compose_file", c.file, "services", AnalysisServices)
	res, err := c.run(ctx, args...)
	if err != nil {
		return fmt.Errorf("analysis containers failed with exit code %d: %w", res.ExitCode, err)
	}
	if res.ExitCode != 0 {
		return fmt.Errorf("analysis containers failed with exit code %d", res.ExitCode)
	}
	return nil
}

// Up starts service detached, rebuilding its image.
func (c *Compose) Up(ctx context.Context, service string) error {
	_, err := c.run(ctx, "up", "-d", "--build", service)
	return err
}

// IsRunning reports whether a container exists for service.
func (c *Compose) IsRunning(ctx context.Context, service string) (bool, error) {
	res, err := c.run(ctx, "ps", "-q", service)
	if err != nil {
		return false, err
	}
	return strings.TrimSpace(res.Output) != "", nil
}

// Logs returns the last lines of service output.
func (c *Compose) Logs(ctx context.Context, service string, tail int) (string, error) {
	res, err := c.run(ctx, "logs", fmt.Sprintf("--tail=%d", tail), service)
	return res.Output, err
}

// Stop stops service containers.
func (c *Compose) Stop(ctx context.Context, service string) error {
	_, err := c.run(ctx, "stop", service)
	return err
}

// Remove force-removes stopped service containers.
func (c *Compose) Remove(ctx context.Context, service string) error {
	_, err := c.run(ctx, "rm", "-f", service)
	return err
}
