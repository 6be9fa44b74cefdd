// store_agents.go contains per-agent trace methods: the event log, the
// reported hierarchy, the active set and the outcome summary.
package store

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/agusx1211/loopdash/internal/debug"
	"github.com/agusx1211/loopdash/internal/trace"
)

const (
	eventsFile    = "events.jsonl"
	hierarchyFile = "hierarchy.json"
	activeFile    = "active.json"
	summaryFile   = "summary.json"
)

func (s *Store) agentsDir() string {
	return filepath.Join(s.root, "agents")
}

func (s *Store) agentDir(agentID string) (string, error) {
	agentID = strings.TrimSpace(agentID)
	if agentID == "" {
		return "", fmt.Errorf("agent id is required")
	}
	if agentID == "." || agentID == ".." || strings.ContainsAny(agentID, `/\`) {
		return "", fmt.Errorf("invalid agent id %q", agentID)
	}
	return filepath.Join(s.agentsDir(), agentID), nil
}

// AppendEvent writes e as one line of the agent's event log.
func (s *Store) AppendEvent(agentID string, e trace.Event) error {
	dir, err := s.agentDir(agentID)
	if err != nil {
		return err
	}
	line, err := json.Marshal(e)
	if err != nil {
		return err
	}
	line = append(line, '\n')

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating agent dir: %w", err)
	}
	f, err := os.OpenFile(filepath.Join(dir, eventsFile), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("opening event log: %w", err)
	}
	if _, err := f.Write(line); err != nil {
		f.Close()
		return fmt.Errorf("appending event: %w", err)
	}
	return f.Close()
}

// PollEvents returns the events written after cursor, together with the
// agent's current hierarchy and active set, and the cursor for the next call.
//
// Only complete lines are consumed: a trailing line without a newline is
// left for the next poll. Malformed lines are skipped. If the log shrank
// below cursor (cleared or rotated) reading restarts from the beginning.
func (s *Store) PollEvents(agentID string, cursor int64) (trace.Batch, int64, error) {
	var batch trace.Batch
	dir, err := s.agentDir(agentID)
	if err != nil {
		return batch, cursor, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	events, next, err := readEventsFrom(filepath.Join(dir, eventsFile), cursor)
	if err != nil {
		return batch, cursor, err
	}
	batch.Events = events

	var h trace.Hierarchy
	if _, err := readJSON(filepath.Join(dir, hierarchyFile), &h); err != nil {
		return batch, cursor, err
	}
	batch.Hierarchy = h

	var active []string
	if _, err := readJSON(filepath.Join(dir, activeFile), &active); err != nil {
		return batch, cursor, err
	}
	batch.Active = active

	return batch, next, nil
}

func readEventsFrom(path string, cursor int64) ([]trace.Event, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, 0, nil
		}
		return nil, cursor, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, cursor, err
	}
	if cursor < 0 || cursor > info.Size() {
		debug.LogKV("store", "event log shrank, rereading", "path", path, "cursor", cursor, "size", info.Size())
		cursor = 0
	}
	if _, err := f.Seek(cursor, io.SeekStart); err != nil {
		return nil, cursor, err
	}
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, cursor, err
	}

	end := bytes.LastIndexByte(data, '\n')
	if end < 0 {
		return nil, cursor, nil
	}
	complete := data[:end+1]

	var events []trace.Event
	sc := bufio.NewScanner(bytes.NewReader(complete))
	sc.Buffer(make([]byte, 0, 64*1024), len(complete)+1)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := bytes.TrimSpace(sc.Bytes())
		if len(line) == 0 {
			continue
		}
		var e trace.Event
		if err := json.Unmarshal(line, &e); err != nil {
			debug.LogKV("store", "skipping malformed event line", "path", path, "offset", cursor, "line", lineNo, "error", err)
			continue
		}
		events = append(events, e)
	}
	if err := sc.Err(); err != nil {
		return nil, cursor, err
	}
	return events, cursor + int64(len(complete)), nil
}

// PollSummary returns the backend's completed/failed tally for the agent.
// A missing summary yields zero counts.
func (s *Store) PollSummary(agentID string) (trace.OutcomeCounts, error) {
	var out trace.OutcomeCounts
	dir, err := s.agentDir(agentID)
	if err != nil {
		return out, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, err = readJSON(filepath.Join(dir, summaryFile), &out)
	return out, err
}

// SetHierarchy records the backend-reported parent to children mapping.
func (s *Store) SetHierarchy(agentID string, h trace.Hierarchy) error {
	dir, err := s.agentDir(agentID)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return writeJSON(filepath.Join(dir, hierarchyFile), h)
}

// SetActive records the ids the backend considers running.
func (s *Store) SetActive(agentID string, ids []string) error {
	dir, err := s.agentDir(agentID)
	if err != nil {
		return err
	}
	if ids == nil {
		ids = []string{}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return writeJSON(filepath.Join(dir, activeFile), ids)
}

// SetSummary records the backend's outcome tally.
func (s *Store) SetSummary(agentID string, counts trace.OutcomeCounts) error {
	dir, err := s.agentDir(agentID)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return writeJSON(filepath.Join(dir, summaryFile), counts)
}

// ClearAgent removes all trace history for the agent. Clearing an unknown
// agent is not an error.
func (s *Store) ClearAgent(agentID string) error {
	dir, err := s.agentDir(agentID)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("clearing agent %s: %w", agentID, err)
	}
	debug.LogKV("store", "agent history cleared", "agent", agentID)
	return nil
}

// ListAgents returns the ids of agents with recorded history, sorted.
func (s *Store) ListAgents() ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entries, err := os.ReadDir(s.agentsDir())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var ids []string
	for _, e := range entries {
		if e.IsDir() {
			ids = append(ids, e.Name())
		}
	}
	sort.Strings(ids)
	return ids, nil
}
