// Package prefs persists user preferences such as the color theme.
package prefs

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/adrg/xdg"
	"gopkg.in/yaml.v3"
)

// KeyTheme holds "light" or "dark".
const KeyTheme = "theme"

// Theme values.
const (
	ThemeLight = "light"
	ThemeDark  = "dark"
)

// ErrInvalidTheme is returned by SetTheme for values other than ThemeLight
// and ThemeDark.
var ErrInvalidTheme = errors.New("prefs: invalid theme")

// Store is a string key-value preference store.
type Store interface {
	// Get returns the value for key and whether it was set
	Get(key string) (string, bool)

	// Set stores value under key, persisting it if the store is durable
	Set(key, value string) error

	// Keys returns all keys, sorted
	Keys() []string
}

// MemoryStore is a Store that lives only as long as the process.
type MemoryStore struct {
	mu    sync.RWMutex
	items map[string]string
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{items: make(map[string]string)}
}

func (s *MemoryStore) Get(key string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.items[key]
	return v, ok
}

func (s *MemoryStore) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[key] = value
	return nil
}

func (s *MemoryStore) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sortedKeys(s.items)
}

// FileStore is a Store backed by a YAML file. Every Set rewrites the file.
type FileStore struct {
	mu    sync.RWMutex
	path  string
	items map[string]string
}

// DefaultPath returns $XDG_CONFIG_HOME/timemaster/prefs.yaml.
func DefaultPath() string {
	return filepath.Join(xdg.ConfigHome, "timemaster", "prefs.yaml")
}

// OpenFile loads the store at path, or DefaultPath if path is empty.
// A missing file is not an error; it is created on the first Set.
func OpenFile(path string) (*FileStore, error) {
	if path == "" {
		path = DefaultPath()
	}

	s := &FileStore{path: path, items: make(map[string]string)}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read prefs %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &s.items); err != nil {
		return nil, fmt.Errorf("parse prefs %s: %w", path, err)
	}
	if s.items == nil {
		s.items = make(map[string]string)
	}
	return s, nil
}

// Path returns the backing file.
func (s *FileStore) Path() string {
	return s.path
}

func (s *FileStore) Get(key string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.items[key]
	return v, ok
}

// Set updates key and writes the whole file atomically via a temp file
// and rename. On failure the in-memory value is rolled back.
func (s *FileStore) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, had := s.items[key]
	s.items[key] = value

	if err := s.writeLocked(); err != nil {
		if had {
			s.items[key] = prev
		} else {
			delete(s.items, key)
		}
		return err
	}
	return nil
}

func (s *FileStore) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sortedKeys(s.items)
}

func (s *FileStore) writeLocked() error {
	data, err := yaml.Marshal(s.items)
	if err != nil {
		return fmt.Errorf("encode prefs: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create prefs dir: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write prefs: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replace prefs: %w", err)
	}
	return nil
}

// Theme returns the saved theme, or fallback when none is saved or the
// saved value is not recognized.
func Theme(s Store, fallback string) string {
	if v, ok := s.Get(KeyTheme); ok && (v == ThemeLight || v == ThemeDark) {
		return v
	}
	return fallback
}

// SetTheme validates and saves the theme.
func SetTheme(s Store, theme string) error {
	if theme != ThemeLight && theme != ThemeDark {
		return fmt.Errorf("%w: %q", ErrInvalidTheme, theme)
	}
	return s.Set(KeyTheme, theme)
}

// Toggle flips the theme and saves it, returning the new value.
// The new value is returned even if saving failed.
func Toggle(s Store, current string) (string, error) {
	next := ThemeDark
	if current == ThemeDark {
		next = ThemeLight
	}
	return next, SetTheme(s, next)
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
