package receiver

import (
	"context"
	"fmt"
	"net/http"

	"github.com/hashicorp/go-hclog"
)

// Result is the outcome of processing one request.
type Result struct {
	OK            bool
	SavedFilename string
	Size          int64
	Message       string
}

// Receiver parses uploads and hands them to a Store.
type Receiver struct {
	store  Store
	logger hclog.Logger
}

// New creates a Receiver persisting into store.
func New(store Store, logger hclog.Logger) *Receiver {
	return &Receiver{store: store, logger: logger}
}

// Process parses body and persists the outcome. Parse failures wrap
// ErrInputMalformed, storage failures wrap ErrPersistence.
func (r *Receiver) Process(ctx context.Context, contentType string, body []byte, header http.Header) (Result, error) {
	d, err := Parse(contentType, body, header)
	if err != nil {
		r.logger.Error("could not parse payload", "content_type", contentType, "error", err)
		return Result{Message: err.Error()}, err
	}
	if d.Warning != "" {
		r.logger.Warn(d.Warning, "filename", d.Filename)
	}
	r.logger.Debug("payload parsed", "kind", d.Kind.String(), "filename", d.Filename, "file_type", d.FileType, "path_in_project", d.PathInProject)

	location, err := r.store.Save(ctx, d.Filename, d.Content)
	if err != nil {
		r.logger.Error("could not persist payload", "filename", d.Filename, "error", err)
		return Result{SavedFilename: d.Filename, Message: err.Error()}, err
	}

	size := int64(len(d.Content))
	r.logger.Info("file saved", "filename", d.Filename, "size", size, "location", location)
	return Result{
		OK:            true,
		SavedFilename: d.Filename,
		Size:          size,
		Message:       fmt.Sprintf("File '%s' (Size: %d bytes) saved successfully.", d.Filename, size),
	}, nil
}
