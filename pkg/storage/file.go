package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/matzehuels/mindmap/pkg/document"
	pkgerrors "github.com/matzehuels/mindmap/pkg/errors"
	pkgio "github.com/matzehuels/mindmap/pkg/io"
)

// FileStore keeps each document as <name>.json in a directory.
type FileStore struct {
	dir string
}

// NewFileStore creates the directory if needed. An empty dir defaults to
// the user data directory (~/.local/share/mindmap/documents).
func NewFileStore(dir string) (*FileStore, error) {
	if dir == "" {
		var err error
		if dir, err = defaultDir(); err != nil {
			return nil, err
		}
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, backendErr(err, "create %s", dir)
	}
	return &FileStore{dir: dir}, nil
}

func defaultDir() (string, error) {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "mindmap", "documents"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home dir: %w", err)
	}
	return filepath.Join(home, ".local", "share", "mindmap", "documents"), nil
}

// Dir returns the storage directory.
func (s *FileStore) Dir() string { return s.dir }

func (s *FileStore) path(name string) string {
	return filepath.Join(s.dir, name+".json")
}

// Save writes the document atomically.
func (s *FileStore) Save(ctx context.Context, name string, doc *document.Document) (err error) {
	defer observe(ctx, BackendFile, "save", time.Now(), &err)
	if err = pkgerrors.ValidateDocumentName(name); err != nil {
		return err
	}
	data, err := encode(doc)
	if err != nil {
		return err
	}
	if err = pkgio.WriteFileAtomic(s.path(name), data); err != nil {
		return backendErr(err, "save %q", name)
	}
	return nil
}

// Load reads a stored document.
func (s *FileStore) Load(ctx context.Context, name string) (doc *document.Document, err error) {
	defer observe(ctx, BackendFile, "load", time.Now(), &err)
	if err = pkgerrors.ValidateDocumentName(name); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.path(name))
	if os.IsNotExist(err) {
		return nil, notFound(name)
	}
	if err != nil {
		return nil, backendErr(err, "load %q", name)
	}
	return decode(name, data)
}

// List returns every stored document.
func (s *FileStore) List(ctx context.Context) (out []Info, err error) {
	defer observe(ctx, BackendFile, "list", time.Now(), &err)
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, backendErr(err, "list %s", s.dir)
	}
	for _, e := range entries {
		name, ok := strings.CutSuffix(e.Name(), ".json")
		if e.IsDir() || !ok || pkgerrors.ValidateDocumentName(name) != nil {
			continue
		}
		fi, err := e.Info()
		if err != nil {
			continue
		}
		out = append(out, Info{Name: name, Size: fi.Size(), UpdatedAt: fi.ModTime().UTC()})
	}
	sortInfos(out)
	return out, nil
}

// Delete removes a stored document.
func (s *FileStore) Delete(ctx context.Context, name string) (err error) {
	defer observe(ctx, BackendFile, "delete", time.Now(), &err)
	if err = pkgerrors.ValidateDocumentName(name); err != nil {
		return err
	}
	err = os.Remove(s.path(name))
	if os.IsNotExist(err) {
		return notFound(name)
	}
	if err != nil {
		return backendErr(err, "delete %q", name)
	}
	return nil
}

// Close does nothing.
func (s *FileStore) Close() error { return nil }

var _ Store = (*FileStore)(nil)
