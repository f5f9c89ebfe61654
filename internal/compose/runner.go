// Package compose drives the container orchestration CLI.
package compose

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"

	"github.com/hashicorp/go-hclog"

	shrderrors "github.com/scan-io-git/lintgraph/pkg/shared/errors"
)

// Result is the outcome of one CLI invocation.
type Result struct {
	ExitCode int
	Output   string
}

// Runner executes the orchestration CLI with the given arguments.
type Runner interface {
	Run(ctx context.Context, args ...string) (Result, error)
}

// CLIRunner runs a real command, e.g. "docker compose".
type CLIRunner struct {
	command []string
	dir     string
	logger  hclog.Logger
}

// NewCLIRunner creates a runner executing command in dir.
func NewCLIRunner(command []string, dir string, logger hclog.Logger) *CLIRunner {
	return &CLIRunner{command: command, dir: dir, logger: logger}
}

// Run executes the command, streaming its output to the logger. A nonzero
// exit is reported both in Result.ExitCode and as an ErrExternalProcess error.
func (r *CLIRunner) Run(ctx context.Context, args ...string) (Result, error) {
	if len(r.command) == 0 {
		return Result{ExitCode: -1}, fmt.Errorf("no orchestration command configured")
	}

	argv := append(append([]string{}, r.command[1:]...), args...)
	cmd := exec.CommandContext(ctx, r.command[0], argv...)
	cmd.Dir = r.dir
	r.logger.Debug("running command", "cmd", cmd.Args, "dir", r.dir)

	var stdBuffer bytes.Buffer
	mw := io.MultiWriter(r.logger.StandardWriter(&hclog.StandardLoggerOptions{
		InferLevels: true,
	}), &stdBuffer)

	cmd.Stdout = mw
	cmd.Stderr = mw

	err := cmd.Run()
	res := Result{Output: stdBuffer.String()}
	if err == nil {
		return res, nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		res.ExitCode = exitErr.ExitCode()
	} else {
		res.ExitCode = -1
	}
	r.logger.Error(fmt.Sprintf("%q execution error", strings.Join(cmd.Args, " ")), "error", err)
	return res, shrderrors.Wrap(shrderrors.ErrExternalProcess, "%q exited with code %d: %v", strings.Join(cmd.Args, " "), res.ExitCode, err)
}
