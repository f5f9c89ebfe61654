// Package upload sends artifacts to a payload receiver.
package upload

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"github.com/hashicorp/go-hclog"

	shrderrors "github.com/scan-io-git/lintgraph/pkg/shared/errors"
	"github.com/scan-io-git/lintgraph/pkg/shared/files"
)

const defaultContentType = "application/octet-stream"

// Request describes a single upload.
type Request struct {
	Path          string // local file to send
	TargetURL     string
	ContentType   string // overrides the type guessed from the extension (raw only)
	FileType      string
	PathInProject string
}

// Client uploads files with a configured resty client.
type Client struct {
	httpc  *resty.Client
	logger hclog.Logger
}

// New wraps httpc. Timeouts and retries are taken from httpc as configured.
func New(httpc *resty.Client, logger hclog.Logger) *Client {
	return &Client{httpc: httpc, logger: logger}
}

// Upload sends req using the given encoding.
func (c *Client) Upload(ctx context.Context, req Request, encoding string) (*Response, error) {
	switch encoding {
	case "", EncodingRaw:
		return c.UploadRaw(ctx, req)
	case EncodingBase64:
		return c.UploadBase64(ctx, req)
	default:
		return nil, fmt.Errorf("unsupported upload encoding %q", encoding)
	}
}

// UploadRaw posts the exact file bytes with routing headers.
func (c *Client) UploadRaw(ctx context.Context, req Request) (*Response, error) {
	data, err := readPayload(req.Path)
	if err != nil {
		return nil, err
	}

	contentType := req.ContentType
	if contentType == "" {
		contentType = ContentTypeFor(req.Path)
	}

	r := c.newRequest(ctx).
		SetHeaders(routingHeaders(req)).
		SetHeader("Content-Type", contentType).
		SetBody(data)
	return c.send(r, req, len(data))
}

// UploadBase64 posts the file wrapped in an Envelope.
func (c *Client) UploadBase64(ctx context.Context, req Request) (*Response, error) {
	data, err := readPayload(req.Path)
	if err != nil {
		return nil, err
	}

	env := Envelope{
		FileContentBase64: base64.StdEncoding.EncodeToString(data),
		OriginalFilename:  filepath.Base(req.Path),
		FileType:          req.FileType,
		FilePathInProject: req.PathInProject,
	}
	r := c.newRequest(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(env)
	return c.send(r, req, len(data))
}

func (c *Client) newRequest(ctx context.Context) *resty.Request {
	return c.httpc.R().
		SetContext(ctx).
		SetHeader(HeaderRequestID, uuid.NewString())
}

// routingHeaders carries the metadata of a raw upload. Envelopes hold the
// same fields in their body and are sent without them.
func routingHeaders(req Request) map[string]string {
	h := map[string]string{HeaderOriginalFilename: filepath.Base(req.Path)}
	if req.FileType != "" {
		h[HeaderFileType] = req.FileType
	}
	if req.PathInProject != "" {
		h[HeaderPathInProject] = req.PathInProject
	}
	return h
}

func (c *Client) send(r *resty.Request, req Request, size int) (*Response, error) {
	c.logger.Debug("uploading file", "path", req.Path, "size", size, "target", req.TargetURL, "request_id", r.Header.Get(HeaderRequestID))

	start := time.Now()
	resp, err := r.Post(req.TargetURL)
	if err != nil {
		return nil, shrderrors.Wrap(shrderrors.ErrNetwork, "upload of %q to %s failed: %v", req.Path, req.TargetURL, err)
	}

	if resp.IsError() {
		return nil, shrderrors.Wrap(shrderrors.ErrNetwork, "upload of %q rejected with status %d: %s",
			req.Path, resp.StatusCode(), strings.TrimSpace(string(resp.Body())))
	}

	var out Response
	if err := json.Unmarshal(resp.Body(), &out); err != nil {
		return nil, shrderrors.Wrap(shrderrors.ErrNetwork, "could not decode receiver response for %q: %v", req.Path, err)
	}
	if out.Status != StatusReceived {
		return &out, shrderrors.Wrap(shrderrors.ErrNetwork, "receiver answered %q for %q: %s", out.Status, req.Path, out.Message)
	}

	c.logger.Info("file uploaded", "path", req.Path, "saved_as", out.SavedFilename, "size", out.Size, "elapsed", time.Since(start).String())
	return &out, nil
}

// readPayload loads the file, rejecting missing and zero-byte files before any request is made.
func readPayload(path string) ([]byte, error) {
	if _, err := files.RequireNonEmptyFile(path); err != nil {
		return nil, fmt.Errorf("cannot upload: %w", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %q: %w", path, err)
	}
	if len(data) == 0 {
		return nil, shrderrors.Wrap(shrderrors.ErrInputNotFound, "cannot upload: file %q is empty", path)
	}
	return data, nil
}

// ContentTypeFor guesses a media type from the file extension.
func ContentTypeFor(path string) string {
	if ct := mime.TypeByExtension(filepath.Ext(path)); ct != "" {
		return ct
	}
	return defaultContentType
}
