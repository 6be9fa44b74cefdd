package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Dir is the per-project state directory.
const Dir = ".loopdash"

var (
	// ErrNoProject is returned when no .loopdash directory can be found.
	ErrNoProject = errors.New("no loopdash project found (run 'loopdash init' first)")
	// ErrNotFound is returned for unknown stories.
	ErrNotFound = errors.New("not found")
)

// Store is the file-backed task and trace state of one project. It plays the
// part of the external backends: the loop writes stories, the running set
// and per-agent event logs here, and the dashboard reads them back.
type Store struct {
	root string // path to the .loopdash directory
	mu   sync.RWMutex
}

func New(projectDir string) (*Store, error) {
	if strings.TrimSpace(projectDir) == "" {
		return nil, fmt.Errorf("project directory is empty")
	}
	return &Store{root: filepath.Join(cleanPath(projectDir), Dir)}, nil
}

// Init creates the directory layout and an empty stories file.
func (s *Store) Init() error {
	for _, d := range []string{s.root, filepath.Join(s.root, "agents")} {
		if err := os.MkdirAll(d, 0755); err != nil {
			return fmt.Errorf("creating directory %s: %w", d, err)
		}
	}
	if _, _, found := s.storiesPath(); found {
		return nil
	}
	return s.SaveWorkItems(nil)
}

func (s *Store) Exists() bool {
	info, err := os.Stat(s.root)
	return err == nil && info.IsDir()
}

func (s *Store) Root() string {
	return s.root
}

// FindProjectDir walks up from startDir until a directory containing
// .loopdash is found. It returns ErrNoProject when none is present.
func FindProjectDir(startDir string) (string, error) {
	candidate := cleanPath(startDir)
	for {
		info, err := os.Stat(filepath.Join(candidate, Dir))
		if err == nil && info.IsDir() {
			return candidate, nil
		}
		if err != nil && !os.IsNotExist(err) {
			return "", err
		}
		parent := filepath.Dir(candidate)
		if parent == candidate {
			return "", ErrNoProject
		}
		candidate = parent
	}
}

func cleanPath(path string) string {
	path = strings.TrimSpace(path)
	if path == "" {
		path = "."
	}
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	return filepath.Clean(path)
}

// Helpers

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return writeFileAtomic(path, data)
}

// readJSON decodes path into v. A missing file leaves v untouched and
// returns false.
func readJSON(path string, v any) (bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("parsing %s: %w", path, err)
	}
	return true, nil
}

// writeFileAtomic replaces path via a temp file so pollers never observe a
// half-written document.
func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}
