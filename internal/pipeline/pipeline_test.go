package pipeline

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scan-io-git/lintgraph/internal/ci"
	"github.com/scan-io-git/lintgraph/internal/compose"
	"github.com/scan-io-git/lintgraph/internal/merger"
	"github.com/scan-io-git/lintgraph/internal/receiver"
	"github.com/scan-io-git/lintgraph/internal/upload"
	shrderrors "github.com/scan-io-git/lintgraph/pkg/shared/errors"
)

const (
	testReport = `{"files":[{"filename":"/sources/src/main/java/org/foo/Bar.java","violations":[{"rule":"X"}]}]}`
	testGraph  = `{"@type":"tinker:graph","@value":{"vertices":[{"id":1,"label":"FILE","properties":{"NAME":"/tmp/jimple2cpg42/org/foo/Bar.class"}}],"edges":[]}}`
)

type fixture struct {
	dir     string
	cfg     RunConfig
	runner  *compose.MockRunner
	uploads string
	server  *httptest.Server
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()
	export := filepath.Join(dir, "export")
	project := filepath.Join(dir, "project")
	require.NoError(t, os.MkdirAll(filepath.Join(project, "src", "main", "java", "org", "foo"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(project, "src", "main", "java", "org", "foo", "Bar.java"), []byte("class Bar {}"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(project, "pom.xml"), []byte("<project/>"), 0o644))

	uploads := filepath.Join(dir, "uploads")
	store, err := receiver.NewLocalStore(uploads)
	require.NoError(t, err)
	srv := httptest.NewServer(receiver.New(store, hclog.NewNullLogger()).Router())
	t.Cleanup(srv.Close)

	f := &fixture{
		dir:     dir,
		uploads: uploads,
		server:  srv,
		runner:  &compose.MockRunner{Responses: map[string][]compose.MockResponse{"ps": {compose.Ok("c0ffee\n")}}},
		cfg: RunConfig{
			ExportDir:        export,
			PMDReport:        ResolveArtifact(export, "", DefaultPMDReportRel),
			JoernExport:      ResolveArtifact(export, "", DefaultJoernExportRel),
			MergedOutput:     ResolveArtifact(export, "", DefaultMergedOutputRel),
			TargetURL:        srv.URL + receiver.UploadRoute,
			ComposeFile:      "docker-compose.yml",
			ProjectDir:       project,
			ProjectEncoding:  upload.EncodingRaw,
			ReceiverService:  "mock_receiver",
			ReadinessTimeout: 50 * time.Millisecond,
			PollInterval:     time.Millisecond,
		},
	}
	f.runner.OnRun = func(args []string) {
		if strings.Contains(strings.Join(args, " "), "--abort-on-container-exit") {
			f.writeArtifacts(t)
		}
	}
	return f
}

func (f *fixture) writeArtifacts(t *testing.T) {
	require.NoError(t, os.MkdirAll(filepath.Dir(f.cfg.PMDReport), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Dir(f.cfg.JoernExport), 0o755))
	require.NoError(t, os.WriteFile(f.cfg.PMDReport, []byte(testReport), 0o644))
	require.NoError(t, os.WriteFile(f.cfg.JoernExport, []byte(testGraph), 0o644))
}

func (f *fixture) pipeline() *Pipeline {
	logger := hclog.NewNullLogger()
	return New(f.runner, merger.New(nil, logger), upload.New(resty.New(), logger), logger)
}

func stageStatuses(r *RunReport) map[string]string {
	out := make(map[string]string, len(r.Stages))
	for _, s := range r.Stages {
		out[s.Name] = s.Status
	}
	return out
}

func TestRunFullPipeline(t *testing.T) {
	f := newFixture(t)

	report, err := f.pipeline().Run(context.Background(), f.cfg)
	require.NoError(t, err)
	assert.Equal(t, RunSucceeded, report.Status)
	assert.NotEmpty(t, report.RunID)
	assert.Equal(t, map[string]string{
		StageInit:            StatusOK,
		StageRunContainers:   StatusOK,
		StageReceiverService: StatusOK,
		StageMerge:           StatusOK,
		StageUpload:          StatusOK,
	}, stageStatuses(report))

	require.NotNil(t, report.Merge)
	assert.Equal(t, 1, report.Merge.MatchedVertices)

	assert.Equal(t, []string{
		"-f docker-compose.yml up --build --abort-on-container-exit --exit-code-from lint joern lint",
		"-f docker-compose.yml up -d --build mock_receiver",
		"-f docker-compose.yml ps -q mock_receiver",
		"-f docker-compose.yml stop mock_receiver",
		"-f docker-compose.yml rm -f mock_receiver",
	}, f.runner.Commands())

	require.Len(t, report.Uploads, 3)
	assert.Equal(t, upload.FileTypeMergedGraph, report.Uploads[0].FileType)
	for _, u := range report.Uploads {
		assert.True(t, u.OK, u.Path)
	}

	merged, err := os.ReadFile(filepath.Join(f.uploads, "merged_graph.json"))
	require.NoError(t, err)
	assert.Contains(t, string(merged), `"pmd_violations"`)
	_, err = os.Stat(filepath.Join(f.uploads, "Bar.java"))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(f.uploads, "pom.xml"))
	assert.NoError(t, err)
}

func TestRunSkipContainersWithoutReportFailsBeforeMerge(t *testing.T) {
	f := newFixture(t)
	f.cfg.SkipContainers = true
	f.cfg.SkipUpload = true
	require.NoError(t, os.MkdirAll(filepath.Dir(f.cfg.JoernExport), 0o755))
	require.NoError(t, os.WriteFile(f.cfg.JoernExport, []byte(testGraph), 0o644))

	report, err := f.pipeline().Run(context.Background(), f.cfg)
	require.Error(t, err)
	assert.ErrorIs(t, err, shrderrors.ErrInputNotFound)
	assert.Equal(t, RunFailed, report.Status)
	assert.Equal(t, map[string]string{StageInit: StatusFailed}, stageStatuses(report))
	assert.Empty(t, f.runner.Commands())

	_, statErr := os.Stat(f.cfg.MergedOutput)
	assert.True(t, os.IsNotExist(statErr))
}

func TestRunSkipContainersAndUpload(t *testing.T) {
	f := newFixture(t)
	f.cfg.SkipContainers = true
	f.cfg.SkipUpload = true
	f.cfg.ComposeFile = ""
	f.writeArtifacts(t)

	report, err := f.pipeline().Run(context.Background(), f.cfg)
	require.NoError(t, err)
	assert.Equal(t, RunSucceeded, report.Status)
	assert.Equal(t, map[string]string{
		StageInit:          StatusOK,
		StageRunContainers: StatusSkipped,
		StageMerge:         StatusOK,
		StageUpload:        StatusSkipped,
	}, stageStatuses(report))
	assert.Empty(t, f.runner.Commands())

	info, err := os.Stat(f.cfg.MergedOutput)
	require.NoError(t, err)
	assert.NotZero(t, info.Size())
}

func TestRunContainerFailureIsFatal(t *testing.T) {
	f := newFixture(t)
	f.runner.OnRun = nil
	f.runner.Responses["up"] = []compose.MockResponse{compose.Fail(1, "joern crashed")}

	report, err := f.pipeline().Run(context.Background(), f.cfg)
	require.Error(t, err)
	assert.ErrorIs(t, err, shrderrors.ErrExternalProcess)
	assert.Equal(t, RunFailed, report.Status)
	_, merged := report.Stage(StageMerge)
	assert.False(t, merged)
	assert.Len(t, f.runner.Commands(), 1)
}

func TestRunContainersWithoutOutputFail(t *testing.T) {
	f := newFixture(t)
	f.runner.OnRun = nil

	report, err := f.pipeline().Run(context.Background(), f.cfg)
	require.Error(t, err)
	assert.ErrorIs(t, err, shrderrors.ErrInputNotFound)
	s, ok := report.Stage(StageRunContainers)
	require.True(t, ok)
	assert.Equal(t, StatusFailed, s.Status)
	assert.Contains(t, s.Message, "expected output")
}

func TestRunProjectDirMissing(t *testing.T) {
	f := newFixture(t)
	f.cfg.ProjectDir = filepath.Join(f.dir, "nope")

	_, err := f.pipeline().Run(context.Background(), f.cfg)
	assert.ErrorIs(t, err, shrderrors.ErrInputNotFound)
	assert.Empty(t, f.runner.Commands())
}

func TestRunReceiverServiceUnavailable(t *testing.T) {
	f := newFixture(t)
	f.runner.Responses["ps"] = []compose.MockResponse{compose.Ok("")}

	report, err := f.pipeline().Run(context.Background(), f.cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "receiver service unavailable")

	statuses := stageStatuses(report)
	assert.Equal(t, StatusFailed, statuses[StageReceiverService])
	assert.NotContains(t, statuses, StageMerge)

	cmds := f.runner.Commands()
	assert.Contains(t, cmds, "-f docker-compose.yml logs --tail=50 mock_receiver")
	assert.Equal(t, "-f docker-compose.yml rm -f mock_receiver", cmds[len(cmds)-1])
	assert.NotContains(t, cmds, "-f docker-compose.yml stop mock_receiver")
}

func TestRunUploadFailure(t *testing.T) {
	for _, allowPartial := range []bool{false, true} {
		t.Run(map[bool]string{false: "fatal", true: "partial"}[allowPartial], func(t *testing.T) {
			f := newFixture(t)
			rejecting := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusServiceUnavailable)
			}))
			defer rejecting.Close()
			f.cfg.TargetURL = rejecting.URL
			f.cfg.AllowPartialUpload = allowPartial

			report, err := f.pipeline().Run(context.Background(), f.cfg)

			assert.Len(t, report.Uploads, 3, "every upload is attempted")
			for _, u := range report.Uploads {
				assert.False(t, u.OK)
			}
			if allowPartial {
				require.NoError(t, err)
				assert.Equal(t, RunPartial, report.Status)
			} else {
				require.Error(t, err)
				assert.ErrorIs(t, err, shrderrors.ErrNetwork)
				assert.Equal(t, RunFailed, report.Status)
			}
			cmds := f.runner.Commands()
			assert.Equal(t, "-f docker-compose.yml rm -f mock_receiver", cmds[len(cmds)-1])
		})
	}
}

func TestRunReportWriteFile(t *testing.T) {
	f := newFixture(t)
	f.cfg.SkipContainers = true
	f.cfg.SkipUpload = true
	f.writeArtifacts(t)

	report, err := f.pipeline().Run(context.Background(), f.cfg)
	require.NoError(t, err)

	path := filepath.Join(f.dir, "reports", "run.json")
	require.NoError(t, report.WriteFile(path))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), report.RunID)
	assert.Contains(t, string(data), `"status": "succeeded"`)
}

func TestRunRecordsCIProvenance(t *testing.T) {
	f := newFixture(t)
	f.cfg.SkipContainers = true
	f.cfg.SkipUpload = true
	f.writeArtifacts(t)

	p := f.pipeline()
	p.lookupEnv = func(key string) string {
		return map[string]string{"GITHUB_REPOSITORY": "acme/shop", "GITHUB_SHA": "abc123"}[key]
	}
	report, err := p.Run(context.Background(), f.cfg)
	require.NoError(t, err)
	require.NotNil(t, report.CI)
	assert.Equal(t, ci.ProviderGitHub, report.CI.Provider)
	assert.Equal(t, "abc123", report.CI.Commit)

	p.lookupEnv = func(string) string { return "" }
	report, err = p.Run(context.Background(), f.cfg)
	require.NoError(t, err)
	assert.Nil(t, report.CI)
}

func TestValidate(t *testing.T) {
	base := RunConfig{
		PMDReport:       "a",
		JoernExport:     "b",
		MergedOutput:    "c",
		TargetURL:       DefaultTargetURL,
		ComposeFile:     "docker-compose.yml",
		ReceiverService: "mock_receiver",
	}
	require.NoError(t, base.Validate())

	tests := []struct {
		name   string
		mutate func(c *RunConfig)
	}{
		{name: "missing paths", mutate: func(c *RunConfig) { c.MergedOutput = "" }},
		{name: "bad pmd format", mutate: func(c *RunConfig) { c.PMDFormat = "xml" }},
		{name: "bad encoding", mutate: func(c *RunConfig) { c.ProjectEncoding = "zip" }},
		{name: "missing target", mutate: func(c *RunConfig) { c.TargetURL = "" }},
		{name: "missing compose file", mutate: func(c *RunConfig) { c.ComposeFile = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestResolveArtifact(t *testing.T) {
	assert.Equal(t, filepath.Join("export", "lint", "pmd_report.json"), ResolveArtifact("export", "", DefaultPMDReportRel))
	assert.Equal(t, filepath.Join("export", "custom.json"), ResolveArtifact("export", "custom.json", DefaultPMDReportRel))
	assert.Equal(t, "/abs/out.json", ResolveArtifact("export", "/abs/out.json", DefaultMergedOutputRel))
}

func TestRunMergeFailureLogsRerunAdvice(t *testing.T) {
	f := newFixture(t)
	f.cfg.SkipContainers = true
	f.cfg.SkipUpload = true
	f.writeArtifacts(t)
	require.NoError(t, os.WriteFile(f.cfg.JoernExport, []byte(`{"nodes":[]}`), 0o644))

	var buf bytes.Buffer
	logger := hclog.New(&hclog.LoggerOptions{Output: &buf, Level: hclog.Info})
	p := New(f.runner, merger.New(nil, hclog.NewNullLogger()), upload.New(resty.New(), logger), logger)

	report, err := p.Run(context.Background(), f.cfg)
	require.Error(t, err)
	assert.ErrorIs(t, err, shrderrors.ErrInputMalformed)
	assert.Equal(t, RunFailed, report.Status)
	assert.Equal(t, StatusFailed, stageStatuses(report)[StageMerge])
	assert.Contains(t, buf.String(), "--skip-docker")
	assert.Contains(t, buf.String(), "joern_export="+f.cfg.JoernExport)
}
