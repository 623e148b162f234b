package repositories

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"
)

// AnchorRepository persists the anchor configurations an analyst finalizes
type AnchorRepository interface {
	// Save stores payload under the dataset and returns where it went
	Save(ctx context.Context, dataset string, payload []byte) (string, error)
	// List returns every stored artifact for the dataset
	List(ctx context.Context, dataset string) ([]string, error)
}

// FileAnchorRepository writes each submission to <root>/<dataset>/<dataset>-<uuid>.json
type FileAnchorRepository struct {
	root string
}

// NewFileAnchorRepository creates a file-backed anchor repository
func NewFileAnchorRepository(root string) *FileAnchorRepository {
	return &FileAnchorRepository{root: root}
}

// Root returns the base directory
func (r *FileAnchorRepository) Root() string { return r.root }

func (r *FileAnchorRepository) datasetDir(dataset string) (string, error) {
	if dataset == "" || dataset != filepath.Base(dataset) || strings.HasPrefix(dataset, ".") {
		return "", fmt.Errorf("invalid dataset name %q", dataset)
	}
	return filepath.Join(r.root, dataset), nil
}

// Save creates the dataset directory if needed and writes payload to a new,
// uniquely named file. Concurrent saves never share a path.
func (r *FileAnchorRepository) Save(ctx context.Context, dataset string, payload []byte) (string, error) {
	dir, err := r.datasetDir(dataset)
	if err != nil {
		return "", NewPersistenceError("save_anchors", "", err)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", NewPersistenceError("create_directory", dir, err)
	}

	name := dataset + "-" + strings.Replace(uuid.New().String(), "-", "", -1) + ".json"
	path := filepath.Join(dir, name)
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", NewPersistenceError("create_file", path, err)
	}
	if _, err := f.Write(payload); err != nil {
		f.Close()
		os.Remove(path)
		return "", NewPersistenceError("write_file", path, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return "", NewPersistenceError("close_file", path, err)
	}
	return path, nil
}

// List returns the stored artifact paths in lexical order
func (r *FileAnchorRepository) List(ctx context.Context, dataset string) ([]string, error) {
	dir, err := r.datasetDir(dataset)
	if err != nil {
		return nil, NewPersistenceError("list_anchors", "", err)
	}
	paths, err := filepath.Glob(filepath.Join(dir, dataset+"-*.json"))
	if err != nil {
		return nil, NewPersistenceError("list_anchors", dir, err)
	}
	sort.Strings(paths)
	return paths, nil
}

// PersistenceError reports a failed write of finalized anchors
type PersistenceError struct {
	Operation string
	Path      string
	Err       error
}

func (e *PersistenceError) Error() string {
	prefix := e.Operation
	if e.Path != "" {
		prefix += " (path: " + e.Path + ")"
	}
	if e.Err != nil {
		return prefix + ": " + e.Err.Error()
	}
	return prefix + ": unknown error"
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// NewPersistenceError creates a new persistence error
func NewPersistenceError(operation, path string, err error) *PersistenceError {
	return &PersistenceError{
		Operation: operation,
		Path:      path,
		Err:       err,
	}
}
