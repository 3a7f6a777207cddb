package repository

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	domrepo "PricePulse/internal/domain/repository"
)

// FSArtifactStore keeps model blobs as files under a base directory,
// one file per (product, kind). Load freshness comes straight from the
// file modification time.
type FSArtifactStore struct {
	dir string
}

var _ domrepo.ArtifactStore = (*FSArtifactStore)(nil)

func NewFSArtifactStore(dir string) (*FSArtifactStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create artifact dir: %w", err)
	}
	return &FSArtifactStore{dir: dir}, nil
}

func (s *FSArtifactStore) Save(_ context.Context, productID, kind string, blob []byte) error {
	path := s.path(productID, kind)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, blob, 0o644); err != nil {
		return fmt.Errorf("write artifact: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replace artifact: %w", err)
	}
	return nil
}

func (s *FSArtifactStore) Load(_ context.Context, productID, kind string) ([]byte, time.Time, error) {
	path := s.path(productID, kind)
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, time.Time{}, domrepo.ErrArtifactNotFound
		}
		return nil, time.Time{}, fmt.Errorf("stat artifact: %w", err)
	}
	blob, err := os.ReadFile(path)
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("read artifact: %w", err)
	}
	return blob, info.ModTime(), nil
}

func (s *FSArtifactStore) Delete(_ context.Context, productID string) error {
	matches, err := filepath.Glob(filepath.Join(s.dir, sanitize(productID)+"_*.json"))
	if err != nil {
		return fmt.Errorf("glob artifacts: %w", err)
	}
	for _, m := range matches {
		if err := os.Remove(m); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("remove artifact: %w", err)
		}
	}
	return nil
}

func (s *FSArtifactStore) path(productID, kind string) string {
	return filepath.Join(s.dir, fmt.Sprintf("%s_%s.json", sanitize(productID), kind))
}

// sanitize keeps product IDs from escaping the artifact directory.
func sanitize(id string) string {
	id = strings.ReplaceAll(id, "/", "_")
	id = strings.ReplaceAll(id, string(filepath.Separator), "_")
	return strings.ReplaceAll(id, "..", "_")
}
