package logger

import (
	"bytes"
	"testing"

	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/assert"

	"github.com/scan-io-git/lintgraph/internal/config"
)

func TestDetermineLogLevel(t *testing.T) {
	t.Setenv(LogLevelEnv, "")

	assert.Equal(t, hclog.Info, determineLogLevel(nil))
	assert.Equal(t, hclog.Debug, determineLogLevel(&config.Config{Logger: config.Logger{Level: "debug"}}))
	assert.Equal(t, hclog.Info, determineLogLevel(&config.Config{Logger: config.Logger{Level: "verbose"}}))

	t.Setenv(LogLevelEnv, "error")
	assert.Equal(t, hclog.Error, determineLogLevel(&config.Config{Logger: config.Logger{Level: "debug"}}))
}

func TestNewLoggerJSONFormat(t *testing.T) {
	t.Setenv(LogLevelEnv, "")
	yes := true
	cfg := &config.Config{Logger: config.Logger{Level: "INFO", JSONFormat: &yes}}

	var buf bytes.Buffer
	newLogger(cfg, "core-merge", &buf).Info("merge finished", "matched", 3)

	assert.Contains(t, buf.String(), `"@message":"merge finished"`)
	assert.Contains(t, buf.String(), `"matched":3`)
	assert.Contains(t, buf.String(), `"@module":"core-merge"`)
}
