// Package settings persists the generation configuration the core
// consumes but does not own: streaming toggle, temperature, and system
// instructions. Any change must invalidate the live session.
package settings

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"
)

// DefaultInstructions is the system prompt used until the user edits it.
const DefaultInstructions = "You are a friendly barista assistant for a coffee shop. " +
	"Use the available tools to show the menu, add drinks to the cart, and review the cart. " +
	"Never invent menu items or prices; always rely on tool results."

// Settings are the persisted generation parameters.
type Settings struct {
	Streaming    bool    `yaml:"streaming"`
	Temperature  float64 `yaml:"temperature"`
	Instructions string  `yaml:"instructions"`
}

// Default returns the settings used when no file exists yet.
func Default() Settings {
	return Settings{
		Streaming:    true,
		Temperature:  0.7,
		Instructions: DefaultInstructions,
	}
}

// Validate checks the configurable ranges.
func (s Settings) Validate() error {
	if s.Temperature < 0 || s.Temperature > 2 {
		return fmt.Errorf("settings: temperature %.2f outside [0, 2]", s.Temperature)
	}
	return nil
}

// Store loads and saves a settings file, caching the last good value.
type Store struct {
	path string

	mu      sync.RWMutex
	current Settings
}

// NewStore binds a store to path and loads it, falling back to defaults
// when the file does not exist.
func NewStore(path string) (*Store, error) {
	st := &Store{path: path, current: Default()}
	if err := st.Reload(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}
	return st, nil
}

// Path returns the backing file path.
func (s *Store) Path() string { return s.path }

// Current returns the cached settings value.
func (s *Store) Current() Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Reload reads the file and replaces the cached value. The previous
// value is kept on any failure.
func (s *Store) Reload() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return err
	}
	loaded := Default()
	if err := yaml.Unmarshal(data, &loaded); err != nil {
		return fmt.Errorf("settings: decode %s: %w", s.path, err)
	}
	if err := loaded.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	s.current = loaded
	s.mu.Unlock()
	return nil
}

// Save validates, persists, and caches value.
func (s *Store) Save(value Settings) error {
	if err := value.Validate(); err != nil {
		return err
	}
	data, err := yaml.Marshal(value)
	if err != nil {
		return fmt.Errorf("settings: encode: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(s.path, data, 0o600); err != nil {
		return err
	}
	s.mu.Lock()
	s.current = value
	s.mu.Unlock()
	return nil
}
