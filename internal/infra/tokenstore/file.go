package tokenstore

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"

	"github.com/aalvaropc/doclane/internal/domain"
	"github.com/aalvaropc/doclane/internal/ports"
)

const defaultFileName = "session.json"

// FileStore persists the session as a small JSON file readable only by the owner.
type FileStore struct {
	path string
}

// NewFileStore stores the session at path. An empty path means ~/.doclane/session.json.
func NewFileStore(path string) *FileStore {
	if path == "" {
		path = DefaultPath()
	}
	return &FileStore{path: filepath.Clean(path)}
}

// DefaultPath is where the file store keeps the session when not configured.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, ".doclane", defaultFileName)
}

var _ ports.TokenStorage = (*FileStore)(nil)

func (f *FileStore) Path() string { return f.path }

func (f *FileStore) Load(_ context.Context) (domain.Session, error) {
	b, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return domain.Session{}, nil
		}
		return domain.Session{}, &domain.OpError{
			Op:   "tokenstore.file.load",
			Kind: domain.KindExecution,
			Path: f.path,
			Err:  err,
		}
	}

	var s domain.Session
	if err := json.Unmarshal(b, &s); err != nil {
		return domain.Session{}, &domain.OpError{
			Op:   "tokenstore.file.load",
			Kind: domain.KindInvalidConfig,
			Path: f.path,
			Err:  err,
		}
	}
	return s, nil
}

func (f *FileStore) Save(_ context.Context, s domain.Session) error {
	if err := os.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		return &domain.OpError{
			Op:   "tokenstore.file.mkdir",
			Kind: domain.KindExecution,
			Path: filepath.Dir(f.path),
			Err:  err,
		}
	}

	b, err := json.Marshal(s)
	if err != nil {
		return &domain.OpError{
			Op:   "tokenstore.file.marshal",
			Kind: domain.KindExecution,
			Path: f.path,
			Err:  err,
		}
	}

	// Atomic-ish write: tmp then rename.
	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o600); err != nil {
		return &domain.OpError{
			Op:   "tokenstore.file.write",
			Kind: domain.KindExecution,
			Path: tmp,
			Err:  err,
		}
	}
	if err := os.Rename(tmp, f.path); err != nil {
		_ = os.Remove(tmp)
		return &domain.OpError{
			Op:   "tokenstore.file.rename",
			Kind: domain.KindExecution,
			Path: f.path,
			Err:  err,
		}
	}
	return nil
}

func (f *FileStore) Delete(_ context.Context) error {
	if err := os.Remove(f.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return &domain.OpError{
			Op:   "tokenstore.file.delete",
			Kind: domain.KindExecution,
			Path: f.path,
			Err:  err,
		}
	}
	return nil
}
