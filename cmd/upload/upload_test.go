package upload

import (
	"bytes"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scan-io-git/lintgraph/internal/receiver"
	"github.com/scan-io-git/lintgraph/internal/upload"
	shrderrors "github.com/scan-io-git/lintgraph/pkg/shared/errors"
)

func TestValidateUploadArgs(t *testing.T) {
	tests := []struct {
		name    string
		options RunOptionsUpload
		args    []string
		wantErr string
	}{
		{name: "Raw upload", options: RunOptionsUpload{TargetURL: "http://x", Encoding: "raw"}, args: []string{"a.json"}},
		{name: "Base64 upload", options: RunOptionsUpload{TargetURL: "http://x", Encoding: "base64"}, args: []string{"a.json"}},
		{name: "No file", options: RunOptionsUpload{TargetURL: "http://x", Encoding: "raw"}, wantErr: "exactly one file"},
		{name: "Two files", options: RunOptionsUpload{TargetURL: "http://x", Encoding: "raw"}, args: []string{"a", "b"}, wantErr: "exactly one file"},
		{name: "Empty target", options: RunOptionsUpload{Encoding: "raw"}, args: []string{"a.json"}, wantErr: "target-url"},
		{name: "Unknown encoding", options: RunOptionsUpload{TargetURL: "http://x", Encoding: "zip"}, args: []string{"a.json"}, wantErr: "encoding"},
		{name: "Content type with base64", options: RunOptionsUpload{TargetURL: "http://x", Encoding: "base64", ContentType: "text/plain"}, args: []string{"a.json"}, wantErr: "content-type"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateUploadArgs(&tt.options, tt.args)
			if tt.wantErr == "" {
				require.NoError(t, err)
				assert.Equal(t, tt.args[0], tt.options.File)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestUploadCommand(t *testing.T) {
	uploads := t.TempDir()
	store, err := receiver.NewLocalStore(uploads)
	require.NoError(t, err)
	srv := httptest.NewServer(receiver.New(store, hclog.NewNullLogger()).Router())
	defer srv.Close()
	target := srv.URL + receiver.UploadRoute

	file := filepath.Join(t.TempDir(), "Bar.java")
	require.NoError(t, os.WriteFile(file, []byte("class Bar {}"), 0o644))

	t.Run("Base64 envelope is stored under its original name", func(t *testing.T) {
		var out bytes.Buffer
		UploadCmd.SetOut(&out)
		UploadCmd.SetArgs([]string{"--target-url", target, "--encoding", "base64", "--file-type", upload.FileTypeSource, file})
		require.NoError(t, UploadCmd.Execute())

		assert.Contains(t, out.String(), `"saved_filename": "Bar.java"`)
		data, err := os.ReadFile(filepath.Join(uploads, "Bar.java"))
		require.NoError(t, err)
		assert.Equal(t, "class Bar {}", string(data))
	})

	t.Run("Missing file fails before sending", func(t *testing.T) {
		UploadCmd.SetArgs([]string{"--target-url", target, "--encoding", "raw", filepath.Join(t.TempDir(), "missing.json")})
		err := UploadCmd.Execute()
		require.Error(t, err)
		assert.ErrorIs(t, err, shrderrors.ErrInputNotFound)
		assert.Equal(t, 1, shrderrors.ExitCode(err))
	})
}
