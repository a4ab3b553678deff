// Package prefs persists user preferences as named string slots backed by a
// viper-managed file under the user config directory.
package prefs

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/spf13/viper"
)

// Preference slot names.
const (
	KeyFolderName    = "folder_name"
	KeyMicDevice     = "mic_device"
	KeyCameraDevice  = "camera_device"
	KeyMicEnabled    = "mic_enabled"
	KeyCameraEnabled = "camera_enabled"
	KeyScreenEnabled = "screen_enabled"
)

// Store reads and writes preference slots. Absent slots resolve to their
// documented defaults: mic and camera enabled, screen disabled.
type Store struct {
	mu   sync.Mutex
	v    *viper.Viper
	path string
}

// Open loads (or initializes) the preference file at path. An empty path
// resolves to the default location under the user config directory.
func Open(path string) (*Store, error) {
	if path == "" {
		configDir, err := os.UserConfigDir()
		if err != nil {
			return nil, fmt.Errorf("could not determine config directory: %w", err)
		}
		path = filepath.Join(configDir, "capdeck", "preferences.yaml")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("could not create preference directory: %w", err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.SetDefault(KeyMicEnabled, "true")
	v.SetDefault(KeyCameraEnabled, "true")
	v.SetDefault(KeyScreenEnabled, "false")

	if _, err := os.Stat(path); err == nil {
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("could not read preferences %s: %w", path, err)
		}
	}

	return &Store{v: v, path: path}, nil
}

// Get returns the slot value, or its default when never written.
func (s *Store) Get(key string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.v.GetString(key)
}

// Set writes the slot and flushes the file so the value survives restart.
func (s *Store) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.v.Set(key, value)
	if err := s.v.WriteConfigAs(s.path); err != nil {
		return fmt.Errorf("could not write preferences %s: %w", s.path, err)
	}
	return nil
}
