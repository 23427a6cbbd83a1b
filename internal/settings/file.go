package settings

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

const (
	configDirName  = "prayer-times"
	configFileName = "settings.toml"
)

// Persister loads and saves settings.
type Persister interface {
	Load() (Settings, error)
	Save(Settings) error
}

// Dir returns the config directory path.
// It respects $XDG_CONFIG_HOME if set, otherwise uses ~/.config/.
func Dir() (string, error) {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("cannot determine home directory: %w", err)
		}
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, configDirName), nil
}

// Path returns the full path to the settings file.
func Path() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, configFileName), nil
}

// FileStore persists settings as TOML.
type FileStore struct {
	path string
}

// NewFileStore returns a store for path; an empty path means Path().
func NewFileStore(path string) (*FileStore, error) {
	if path == "" {
		p, err := Path()
		if err != nil {
			return nil, err
		}
		path = p
	}
	return &FileStore{path: path}, nil
}

// Path is the file the store reads and writes.
func (f *FileStore) Path() string {
	return f.path
}

// Load reads the settings file.
// A missing file yields Defaults(). Keys absent from the file keep their
// default values.
func (f *FileStore) Load() (Settings, error) {
	s := Defaults()

	data, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return s, nil
		}
		return Settings{}, fmt.Errorf("failed to read settings file: %w", err)
	}

	if err := toml.Unmarshal(data, &s); err != nil {
		return Settings{}, fmt.Errorf("invalid settings file %s: %w", f.path, err)
	}

	return s, nil
}

// Save writes the settings, creating the directory if needed. The file is
// replaced atomically so a crash never leaves a half-written file.
func (f *FileStore) Save(s Settings) error {
	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("cannot create config directory %s: %w", dir, err)
	}

	data, err := toml.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to marshal settings: %w", err)
	}

	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write settings file: %w", err)
	}
	if err := os.Rename(tmp, f.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to replace settings file: %w", err)
	}

	return nil
}

// Reset deletes the settings file.
func (f *FileStore) Reset() error {
	err := os.Remove(f.path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to delete settings file: %w", err)
	}
	return nil
}
