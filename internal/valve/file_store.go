package valve

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

const (
	storeDirPermissions  = 0750
	storeFilePermissions = 0600
)

// FileStore keeps the valves as a JSON array in a single file.
type FileStore struct {
	path string
}

// NewFileStore returns a store backed by the file at path.
// The file and its directory are created on the first Save.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the file location.
func (s *FileStore) Path() string {
	return s.path
}

// Load reads and decodes the store file.
func (s *FileStore) Load(_ context.Context) ([]Valve, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("reading valve store: %w", err)
	}
	var valves []Valve
	if err := json.Unmarshal(data, &valves); err != nil {
		return nil, fmt.Errorf("decoding valve store %s: %w", s.path, err)
	}
	return valves, nil
}

// Save writes the valves to a temporary file in the same directory and
// renames it over the store, so readers never see a partial file.
func (s *FileStore) Save(_ context.Context, valves []Valve) error {
	if valves == nil {
		valves = []Valve{}
	}
	data, err := json.MarshalIndent(valves, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding valves: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, storeDirPermissions); err != nil {
		return fmt.Errorf("creating store directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) //nolint:errcheck // Fails harmlessly once renamed

	if _, err := tmp.Write(append(data, '\n')); err != nil {
		tmp.Close() //nolint:errcheck // Already failing
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close() //nolint:errcheck // Already failing
		return fmt.Errorf("syncing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Chmod(tmpName, storeFilePermissions); err != nil {
		return fmt.Errorf("setting store permissions: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("replacing valve store: %w", err)
	}
	return nil
}
