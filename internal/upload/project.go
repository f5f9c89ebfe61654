package upload

import (
	"context"
	"fmt"
	"io/fs"
	"time"

	shrderrors "github.com/scan-io-git/lintgraph/pkg/shared/errors"
	"github.com/scan-io-git/lintgraph/pkg/shared/files"
)

// skippedDirs are never uploaded as part of a project.
var skippedDirs = []string{".git"}

// FileResult records the outcome of one upload attempt.
type FileResult struct {
	Path          string        `json:"path"`
	PathInProject string        `json:"path_in_project,omitempty"`
	FileType      string        `json:"file_type"`
	OK            bool          `json:"ok"`
	Skipped       bool          `json:"skipped,omitempty"`
	SavedFilename string        `json:"saved_filename,omitempty"`
	Error         string        `json:"error,omitempty"`
	Duration      time.Duration `json:"duration"`
}

// Attempt uploads req and records the outcome instead of failing.
func (c *Client) Attempt(ctx context.Context, req Request, encoding string) FileResult {
	start := time.Now()
	res := FileResult{Path: req.Path, PathInProject: req.PathInProject, FileType: req.FileType}

	out, err := c.Upload(ctx, req, encoding)
	res.Duration = time.Since(start)
	if err != nil {
		c.logger.Error("upload failed", "path", req.Path, "error", err)
		res.Error = err.Error()
		return res
	}
	res.OK = true
	res.SavedFilename = out.SavedFilename
	return res
}

// UploadProject sends every regular file under projectDir as a source file.
// Zero-byte files are skipped with a warning. A failed upload or an
// unreadable entry never stops the walk; the returned error reports how
// many attempts failed.
func (c *Client) UploadProject(ctx context.Context, projectDir, targetURL, encoding string) ([]FileResult, error) {
	var results []FileResult
	failed := 0

	c.logger.Info("uploading project files", "project_dir", projectDir, "encoding", encoding)
	err := files.WalkRegularFiles(projectDir, skippedDirs, func(path, rel string, info fs.FileInfo) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if info.Size() == 0 {
			c.logger.Warn("skipping empty project file", "path", rel)
			results = append(results, FileResult{Path: path, PathInProject: rel, FileType: FileTypeSource, Skipped: true})
			return nil
		}

		res := c.Attempt(ctx, Request{
			Path:          path,
			TargetURL:     targetURL,
			FileType:      FileTypeSource,
			PathInProject: rel,
		}, encoding)
		if !res.OK {
			failed++
		}
		results = append(results, res)
		return nil
	}, func(path, rel string, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		c.logger.Error("project entry unreadable, continuing", "path", rel, "error", err)
		results = append(results, FileResult{Path: path, PathInProject: rel, FileType: FileTypeSource, Error: err.Error()})
		failed++
		return nil
	})
	if err != nil {
		return results, fmt.Errorf("failed to walk project directory %q: %w", projectDir, err)
	}

	if failed > 0 {
		return results, shrderrors.Wrap(shrderrors.ErrNetwork, "%d of %d project file uploads failed", failed, len(results))
	}
	c.logger.Info("project files uploaded", "count", len(results))
	return results, nil
}
