package receive

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scan-io-git/lintgraph/internal/config"
)

func TestResolveReceiverConfig(t *testing.T) {
	cfg := &config.Config{Receiver: config.Receiver{S3: config.S3{Bucket: "graphs"}}}
	config.ApplyDefaults(cfg)

	rcfg := resolveReceiverConfig(&RunOptionsReceive{}, cfg)
	assert.Equal(t, config.DefaultReceiverAddr, rcfg.Addr)
	assert.Equal(t, config.DefaultUploadFolder, rcfg.UploadFolder)
	assert.Equal(t, config.StorageLocal, rcfg.Storage)

	rcfg = resolveReceiverConfig(&RunOptionsReceive{Addr: ":5001", UploadFolder: "/data", Storage: config.StorageS3}, cfg)
	assert.Equal(t, ":5001", rcfg.Addr)
	assert.Equal(t, "/data", rcfg.UploadFolder)
	assert.Equal(t, config.StorageS3, rcfg.Storage)
	assert.Equal(t, "graphs", rcfg.S3.Bucket)

	rcfg = resolveReceiverConfig(&RunOptionsReceive{}, nil)
	assert.Equal(t, config.DefaultReceiverAddr, rcfg.Addr)
}

func TestValidateReceiveArgs(t *testing.T) {
	tests := []struct {
		name    string
		rcfg    config.Receiver
		args    []string
		wantErr string
	}{
		{name: "Local storage", rcfg: config.Receiver{Addr: ":5000", Storage: config.StorageLocal}},
		{name: "S3 with bucket", rcfg: config.Receiver{Addr: ":5000", Storage: config.StorageS3, S3: config.S3{Bucket: "b"}}},
		{name: "S3 without bucket", rcfg: config.Receiver{Addr: ":5000", Storage: config.StorageS3}, wantErr: "bucket"},
		{name: "Unknown storage", rcfg: config.Receiver{Addr: ":5000", Storage: "ftp"}, wantErr: "unsupported storage"},
		{name: "Empty address", rcfg: config.Receiver{}, wantErr: "addr"},
		{name: "Positional arguments", rcfg: config.Receiver{Addr: ":5000"}, args: []string{"x"}, wantErr: "positional"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateReceiveArgs(tt.rcfg, tt.args)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
