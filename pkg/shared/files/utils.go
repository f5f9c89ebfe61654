package files

import (
	"bufio"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	shrderrors "github.com/scan-io-git/lintgraph/pkg/shared/errors"
)

// ExpandPath resolves paths that include a tilde (~) to the user's home directory.
func ExpandPath(path string) (string, error) {
	if strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(homeDir, path[2:]), nil
	}
	return path, nil
}

// ValidatePath checks if the given path is a valid file path for reading.
func ValidatePath(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("path stat error: %w", err)
	}
	if info.IsDir() {
		return fmt.Errorf("path %q is a directory, not a file", path)
	}

	if info.Mode()&os.ModeType != 0 {
		return fmt.Errorf("path %q is not a regular file", path)
	}
	return nil
}

// RequireNonEmptyFile returns the size of the regular file at path.
// A missing or zero-byte file is reported as ErrInputNotFound.
func RequireNonEmptyFile(path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, shrderrors.Wrap(shrderrors.ErrInputNotFound, "file %q does not exist", path)
		}
		return 0, fmt.Errorf("path stat error: %w", err)
	}
	if !info.Mode().IsRegular() {
		return 0, fmt.Errorf("path %q is not a regular file", path)
	}
	if info.Size() == 0 {
		return 0, shrderrors.Wrap(shrderrors.ErrInputNotFound, "file %q is empty", path)
	}
	return info.Size(), nil
}

// IsDir reports whether path exists and is a directory.
func IsDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// CreateFolderIfNotExists checks if a folder exists, and if not, creates it.
func CreateFolderIfNotExists(folder string) error {
	if _, err := os.Stat(folder); os.IsNotExist(err) {
		if err := os.MkdirAll(folder, os.ModePerm); err != nil {
			return fmt.Errorf("unable to create folder %q: %w", folder, err)
		}
	} else if err != nil {
		return fmt.Errorf("unable to check folder %q: %w", folder, err)
	}
	return nil
}

// CreateParentFolder makes sure the directory holding file exists.
func CreateParentFolder(file string) error {
	dir := filepath.Dir(file)
	if dir == "" || dir == "." {
		return nil
	}
	return CreateFolderIfNotExists(dir)
}

// WriteJsonFile writes JSON data to the specified file, creating its parent folder.
func WriteJsonFile(outputFile string, data []byte) error {
	if err := CreateParentFolder(outputFile); err != nil {
		return err
	}

	file, err := os.OpenFile(outputFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("failed creating file: %w", err)
	}
	defer file.Close()

	datawriter := bufio.NewWriter(file)
	if _, err := datawriter.Write(data); err != nil {
		return fmt.Errorf("error writing data to file: %w", err)
	}
	if err := datawriter.Flush(); err != nil {
		return fmt.Errorf("error writing data to file: %w", err)
	}

	return nil
}

// WalkErrorFunc is called for an entry that cannot be read. Returning nil
// skips the entry (or the whole directory) and continues the walk.
type WalkErrorFunc func(path, rel string, err error) error

// WalkRegularFiles calls fn for every regular file under root in lexical order.
// Directories named in skipDirs are not descended into. rel is slash-separated
// and relative to root. Unreadable entries below root go to onErr; a nil
// onErr aborts the walk on the first one.
func WalkRegularFiles(root string, skipDirs []string, fn func(path, rel string, info fs.FileInfo) error, onErr WalkErrorFunc) error {
	skip := make(map[string]struct{}, len(skipDirs))
	for _, d := range skipDirs {
		skip[d] = struct{}{}
	}

	relTo := func(path string) string {
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return filepath.ToSlash(path)
		}
		return filepath.ToSlash(rel)
	}
	fail := func(path string, d fs.DirEntry, err error) error {
		if onErr == nil || path == root {
			return err
		}
		if herr := onErr(path, relTo(path), err); herr != nil {
			return herr
		}
		if d != nil && d.IsDir() {
			return filepath.SkipDir
		}
		return nil
	}

	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return fail(path, d, fmt.Errorf("failed to access %q: %w", path, err))
		}
		if d.IsDir() {
			if _, ok := skip[d.Name()]; ok && path != root {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return fail(path, d, fmt.Errorf("failed to stat %q: %w", path, err))
		}
		return fn(path, relTo(path), info)
	})
}
