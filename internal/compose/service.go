package compose

import (
	"context"
	"fmt"
	"time"

	"github.com/hashicorp/go-hclog"

	shrderrors "github.com/scan-io-git/lintgraph/pkg/shared/errors"
)

const logTailLines = 50

// ServiceManager owns the lifecycle of one detached helper service.
type ServiceManager struct {
	compose          *Compose
	service          string
	readinessTimeout time.Duration
	pollInterval     time.Duration
	logger           hclog.Logger

	confirmed bool
}

// NewServiceManager creates a manager for service.
func NewServiceManager(c *Compose, service string, readinessTimeout, pollInterval time.Duration, logger hclog.Logger) *ServiceManager {
	return &ServiceManager{
		compose:          c,
		service:          service,
		readinessTimeout: readinessTimeout,
		pollInterval:     pollInterval,
		logger:           logger,
	}
}

// Acquire starts the service and waits until a container is listed for it.
// On failure the tail of the service logs is dumped.
func (m *ServiceManager) Acquire(ctx context.Context) error {
	m.logger.Info("starting service", "service", m.service)
	if err := m.compose.Up(ctx, m.service); err != nil {
		m.dumpLogs(ctx)
		return fmt.Errorf("failed to start service %q: %w", m.service, err)
	}

	if err := m.waitReady(ctx); err != nil {
		m.dumpLogs(ctx)
		return err
	}
	m.confirmed = true
	m.logger.Info("service is running", "service", m.service)
	return nil
}

// waitReady polls until the service is listed. Every check shares one
// deadline, so a hung CLI call cannot outlast the readiness timeout.
func (m *ServiceManager) waitReady(ctx context.Context) error {
	readyCtx, cancel := context.WithTimeout(ctx, m.readinessTimeout)
	defer cancel()
	deadline, _ := readyCtx.Deadline()

	notReady := func() error {
		if err := ctx.Err(); err != nil {
			return err
		}
		return shrderrors.Wrap(shrderrors.ErrExternalProcess, "service %q not running after %s", m.service, m.readinessTimeout)
	}

	for {
		running, err := m.compose.IsRunning(readyCtx, m.service)
		if err != nil {
			m.logger.Debug("readiness check failed", "service", m.service, "error", err)
		}
		if running {
			return nil
		}
		if readyCtx.Err() != nil || !time.Now().Add(m.pollInterval).Before(deadline) {
			return notReady()
		}

		timer := time.NewTimer(m.pollInterval)
		select {
		case <-readyCtx.Done():
			timer.Stop()
			return notReady()
		case <-timer.C:
		}
	}
}

func (m *ServiceManager) dumpLogs(ctx context.Context) {
	out, err := m.compose.Logs(ctx, m.service, logTailLines)
	if err != nil {
		m.logger.Warn("could not fetch service logs", "service", m.service, "error", err)
		return
	}
	m.logger.Error("service logs", "service", m.service, "tail", out)
}

// Release stops and removes the service. Failures are logged only. When
// the service was never confirmed running only the removal is attempted.
func (m *ServiceManager) Release(ctx context.Context) {
	if m.confirmed {
		m.logger.Info("stopping service", "service", m.service)
		if err := m.compose.Stop(ctx, m.service); err != nil {
			m.logger.Warn("failed to stop service", "service", m.service, "error", err)
		}
	}
	if err := m.compose.Remove(ctx, m.service); err != nil {
		m.logger.Warn("failed to remove service", "service", m.service, "error", err)
	}
	m.confirmed = false
}

// With runs fn while the service is up and always releases it afterwards.
func (m *ServiceManager) With(ctx context.Context, fn func(ctx context.Context) error) error {
	defer m.Release(context.WithoutCancel(ctx))
	if err := m.Acquire(ctx); err != nil {
		return err
	}
	return fn(ctx)
}
