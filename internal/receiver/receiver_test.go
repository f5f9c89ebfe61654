package receiver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/scan-io-git/lintgraph/internal/config"
	"github.com/scan-io-git/lintgraph/internal/upload"
	shrderrors "github.com/scan-io-git/lintgraph/pkg/shared/errors"
)

type failingStore struct{}

func (failingStore) Save(context.Context, string, []byte) (string, error) {
	return "", shrderrors.Wrap(shrderrors.ErrPersistence, "disk full")
}

func (failingStore) String() string { return "failing" }

func newLocalReceiver(t *testing.T) (*Receiver, string) {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "uploads")
	store, err := NewLocalStore(dir)
	require.NoError(t, err)
	return New(store, hclog.NewNullLogger()), dir
}

func post(t *testing.T, h http.Handler, contentType string, body []byte, header http.Header) (*httptest.ResponseRecorder, upload.Response) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, UploadRoute, bytes.NewReader(body))
	for k, v := range header {
		req.Header[k] = v
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var resp upload.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp), rec.Body.String())
	return rec, resp
}

func TestUploadGraphEnvelope(t *testing.T) {
	r, dir := newLocalReceiver(t)

	body := `{"file_content_base64": "` + b64("hi") + `", "original_filename": "x.txt"}`
	rec, resp := post(t, r.Router(), "application/json", []byte(body), nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, upload.StatusReceived, resp.Status)
	assert.Equal(t, "x.txt", resp.SavedFilename)
	assert.Equal(t, int64(2), resp.Size)

	data, err := os.ReadFile(filepath.Join(dir, "x.txt"))
	require.NoError(t, err)
	assert.Equal(t, "hi", string(data))
}

func TestUploadGraphRawOverwrites(t *testing.T) {
	r, dir := newLocalReceiver(t)
	h := headers(upload.HeaderOriginalFilename, "merged.json")

	for _, body := range []string{`{"v":1}`, `{"v":2}`} {
		rec, _ := post(t, r.Router(), "application/json", []byte(body), h)
		require.Equal(t, http.StatusOK, rec.Code)
	}

	data, err := os.ReadFile(filepath.Join(dir, "merged.json"))
	require.NoError(t, err)
	assert.Equal(t, `{"v":2}`, string(data))
}

func TestUploadGraphMalformedJSONStillStored(t *testing.T) {
	r, dir := newLocalReceiver(t)

	rec, resp := post(t, r.Router(), "application/json", []byte(`{broken`), nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, DefaultMalformedName, resp.SavedFilename)

	_, err := os.Stat(filepath.Join(dir, DefaultMalformedName))
	assert.NoError(t, err)
}

func TestUploadGraphErrors(t *testing.T) {
	tests := []struct {
		name       string
		store      Store
		body       string
		wantStatus int
		wantMsg    string
	}{
		{name: "empty body", body: "", wantStatus: http.StatusBadRequest, wantMsg: "No data received"},
		{name: "bad base64", body: `{"file_content_base64": "%%%%", "original_filename": "x.txt"}`, wantStatus: http.StatusBadRequest, wantMsg: "invalid base64"},
		{name: "storage failure", store: failingStore{}, body: `{"a":1}`, wantStatus: http.StatusInternalServerError, wantMsg: "disk full"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, _ := newLocalReceiver(t)
			if tt.store != nil {
				r = New(tt.store, hclog.NewNullLogger())
			}
			rec, resp := post(t, r.Router(), "application/json", []byte(tt.body), nil)
			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, "error", resp.Status)
			assert.Contains(t, resp.Message, tt.wantMsg)
		})
	}
}

func TestHealth(t *testing.T) {
	r, _ := newLocalReceiver(t)
	rec := httptest.NewRecorder()
	r.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, HealthRoute, nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestEveryRequestIsLoggedAtInfo(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)
	var buf bytes.Buffer
	r := New(store, hclog.New(&hclog.LoggerOptions{Output: &buf, Level: hclog.Info}))

	r.Router().ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, HealthRoute, nil))
	r.Router().ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, UploadRoute, nil))

	lines := strings.Count(buf.String(), "request served")
	assert.Equal(t, 2, lines)
	assert.Contains(t, buf.String(), "path=/healthz status=200")
	assert.Contains(t, buf.String(), "path=/api/upload-graph status=400")
}

func TestProcessKeepsFailureClasses(t *testing.T) {
	r, _ := newLocalReceiver(t)
	_, err := r.Process(context.Background(), "application/json", nil, http.Header{})
	assert.ErrorIs(t, err, shrderrors.ErrInputMalformed)

	r = New(failingStore{}, hclog.NewNullLogger())
	res, err := r.Process(context.Background(), "text/plain", []byte("x"), http.Header{})
	assert.ErrorIs(t, err, shrderrors.ErrPersistence)
	assert.False(t, res.OK)
}

type fakeUploader struct {
	inputs []*s3manager.UploadInput
	bodies []string
	err    error
}

func (f *fakeUploader) UploadWithContext(_ aws.Context, input *s3manager.UploadInput, _ ...func(*s3manager.Uploader)) (*s3manager.UploadOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	buf := new(bytes.Buffer)
	_, _ = buf.ReadFrom(input.Body)
	f.inputs = append(f.inputs, input)
	f.bodies = append(f.bodies, buf.String())
	return &s3manager.UploadOutput{Location: "https://bucket.s3/" + aws.StringValue(input.Key)}, nil
}

func TestS3StoreSave(t *testing.T) {
	fake := &fakeUploader{}
	store := newS3Store(config.S3{Bucket: "graphs", Prefix: "runs/42"}, fake)

	loc, err := store.Save(context.Background(), "merged.json", []byte(`{}`))
	require.NoError(t, err)
	assert.Equal(t, "https://bucket.s3/runs/42/merged.json", loc)
	require.Len(t, fake.inputs, 1)
	assert.Equal(t, "graphs", aws.StringValue(fake.inputs[0].Bucket))
	assert.Equal(t, "runs/42/merged.json", aws.StringValue(fake.inputs[0].Key))
	assert.Equal(t, `{}`, fake.bodies[0])
	assert.Equal(t, "s3://graphs/runs/42", store.String())
}

func TestS3StoreSaveError(t *testing.T) {
	store := newS3Store(config.S3{Bucket: "graphs"}, &fakeUploader{err: awserr.New("AccessDenied", "denied", nil)})

	_, err := store.Save(context.Background(), "x.txt", []byte("x"))
	assert.ErrorIs(t, err, shrderrors.ErrPersistence)
	assert.Contains(t, err.Error(), "AccessDenied")

	store = newS3Store(config.S3{Bucket: "graphs"}, &fakeUploader{err: errors.New("boom")})
	_, err = store.Save(context.Background(), "x.txt", []byte("x"))
	assert.ErrorIs(t, err, shrderrors.ErrPersistence)
}

func TestNewStore(t *testing.T) {
	store, err := NewStore(config.Receiver{Storage: config.StorageLocal, UploadFolder: filepath.Join(t.TempDir(), "u")})
	require.NoError(t, err)
	assert.IsType(t, &LocalStore{}, store)

	_, err = NewStore(config.Receiver{Storage: "ftp"})
	assert.EqualError(t, err, `unsupported storage backend "ftp"`)

	_, err = NewStore(config.Receiver{Storage: config.StorageS3})
	assert.Error(t, err)
}

func TestServeShutsDownCleanly(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	r, dir := newLocalReceiver(t)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Serve(ctx, ln) }()

	client := &http.Client{Transport: &http.Transport{DisableKeepAlives: true}, Timeout: 5 * time.Second}
	url := "http://" + ln.Addr().String()

	resp, err := client.Get(url + HealthRoute)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	req, err := http.NewRequest(http.MethodPost, url+UploadRoute, strings.NewReader("plain text"))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "text/plain")
	req.Header.Set(upload.HeaderOriginalFilename, "notes.txt")
	resp, err = client.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(ShutdownTimeout):
		t.Fatal("server did not shut down")
	}

	data, err := os.ReadFile(filepath.Join(dir, "notes.txt"))
	require.NoError(t, err)
	assert.Equal(t, "plain text", string(data))
}
