// store_stories.go contains work item and running-set methods.
package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/agusx1211/loopdash/internal/debug"
	"github.com/agusx1211/loopdash/internal/story"
)

// storiesFile is the on-disk envelope. A bare list of stories is accepted
// on read as well.
type storiesFile struct {
	Project string           `json:"project,omitempty" yaml:"project,omitempty"`
	Stories []story.WorkItem `json:"stories" yaml:"stories"`
}

var storiesCandidates = []string{"stories.yaml", "stories.yml", "stories.json"}

// storiesPath returns the first existing stories file, or the default YAML
// path when none exists.
func (s *Store) storiesPath() (path string, isJSON bool, found bool) {
	for _, name := range storiesCandidates {
		p := filepath.Join(s.root, name)
		if _, err := os.Stat(p); err == nil {
			return p, strings.HasSuffix(name, ".json"), true
		}
	}
	return filepath.Join(s.root, storiesCandidates[0]), false, false
}

// ListWorkItems reads the stories file in declaration order. A missing file
// yields no items.
func (s *Store) ListWorkItems() ([]story.WorkItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listWorkItemsLocked()
}

func (s *Store) listWorkItemsLocked() ([]story.WorkItem, error) {
	path, isJSON, found := s.storiesPath()
	if !found {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var items []story.WorkItem
	if isJSON {
		items, err = decodeStoriesJSON(data)
	} else {
		items, err = decodeStoriesYAML(data)
	}
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	debug.LogKV("store", "work items loaded", "path", path, "count", len(items))
	return items, nil
}

func decodeStoriesYAML(data []byte) ([]story.WorkItem, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	if len(doc.Content) == 0 {
		return nil, nil
	}
	root := doc.Content[0]
	if root.Kind == yaml.SequenceNode {
		var items []story.WorkItem
		if err := root.Decode(&items); err != nil {
			return nil, err
		}
		return items, nil
	}
	var f storiesFile
	if err := root.Decode(&f); err != nil {
		return nil, err
	}
	return f.Stories, nil
}

func decodeStoriesJSON(data []byte) ([]story.WorkItem, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, nil
	}
	if trimmed[0] == '[' {
		var items []story.WorkItem
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return nil, err
		}
		return items, nil
	}
	var f storiesFile
	if err := json.Unmarshal(trimmed, &f); err != nil {
		return nil, err
	}
	return f.Stories, nil
}

// SaveWorkItems rewrites the stories file, keeping its current format.
func (s *Store) SaveWorkItems(items []story.WorkItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveWorkItemsLocked(items)
}

func (s *Store) saveWorkItemsLocked(items []story.WorkItem) error {
	if items == nil {
		items = []story.WorkItem{}
	}
	path, isJSON, _ := s.storiesPath()
	f := storiesFile{Stories: items}

	var (
		data []byte
		err  error
	)
	if isJSON {
		data, err = json.MarshalIndent(f, "", "  ")
	} else {
		data, err = yaml.Marshal(f)
	}
	if err != nil {
		return err
	}
	if err := os.MkdirAll(s.root, 0755); err != nil {
		return err
	}
	return writeFileAtomic(path, data)
}

// AddWorkItem appends a new story. Ids must be unique.
func (s *Store) AddWorkItem(item story.WorkItem) error {
	if strings.TrimSpace(item.ID) == "" {
		return fmt.Errorf("story id is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	items, err := s.listWorkItemsLocked()
	if err != nil {
		return err
	}
	for _, it := range items {
		if it.ID == item.ID {
			return fmt.Errorf("story %q already exists", item.ID)
		}
	}
	return s.saveWorkItemsLocked(append(items, item))
}

// UpdateWorkItem applies fn to the story with the given id and saves.
func (s *Store) UpdateWorkItem(id string, fn func(*story.WorkItem)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	items, err := s.listWorkItemsLocked()
	if err != nil {
		return err
	}
	for i := range items {
		if items[i].ID == id {
			fn(&items[i])
			return s.saveWorkItemsLocked(items)
		}
	}
	return fmt.Errorf("story %q: %w", id, ErrNotFound)
}

func (s *Store) runningPath() string {
	return filepath.Join(s.root, "running.json")
}

// RunningIDs returns the ids of stories currently being executed, sorted.
func (s *Store) RunningIDs() ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var ids []string
	if _, err := readJSON(s.runningPath(), &ids); err != nil {
		return nil, err
	}
	return ids, nil
}

// SetRunning adds or removes id from the running set.
func (s *Store) SetRunning(id string, running bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var ids []string
	if _, err := readJSON(s.runningPath(), &ids); err != nil {
		return err
	}
	set := story.NewIDSet(ids...)
	if running {
		set[id] = struct{}{}
	} else {
		delete(set, id)
	}
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return writeJSON(s.runningPath(), out)
}
