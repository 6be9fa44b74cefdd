// Package story derives dependency structure and readiness for the work items
// ("stories") an autonomous loop iterates over.
//
// Everything here is a pure function of its inputs: items are supplied fresh
// on every call and nothing is cached between calls, so Resolve is safe to run
// on every poll tick.
package story

import (
	"fmt"
	"strings"
)

// WorkItem is a single story as supplied by the task state backend.
type WorkItem struct {
	ID            string   `json:"id" yaml:"id"`
	Title         string   `json:"title,omitempty" yaml:"title,omitempty"`
	DependencyIDs []string `json:"depends_on,omitempty" yaml:"depends_on,omitempty"`
	Passes        bool     `json:"passes" yaml:"passes"`
	Priority      int      `json:"priority,omitempty" yaml:"priority,omitempty"`
	Effort        string   `json:"effort,omitempty" yaml:"effort,omitempty"`
}

// Status is the derived execution eligibility of a work item.
type Status int

const (
	StatusPending Status = iota
	StatusReady
	StatusBlocked
	StatusRunning
	StatusDone
)

// AllStatuses lists every status in display order.
func AllStatuses() []Status {
	return []Status{StatusRunning, StatusReady, StatusBlocked, StatusPending, StatusDone}
}

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusReady:
		return "ready"
	case StatusBlocked:
		return "blocked"
	case StatusRunning:
		return "running"
	case StatusDone:
		return "done"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s Status) MarshalText() ([]byte, error) {
	switch s {
	case StatusPending, StatusReady, StatusBlocked, StatusRunning, StatusDone:
		return []byte(s.String()), nil
	default:
		return nil, fmt.Errorf("story: invalid status %d", int(s))
	}
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Status) UnmarshalText(text []byte) error {
	for _, st := range AllStatuses() {
		if st.String() == strings.ToLower(strings.TrimSpace(string(text))) {
			*s = st
			return nil
		}
	}
	return fmt.Errorf("story: unknown status %q", string(text))
}

// MissingPolicy decides how a dependency id that matches no known item is
// treated during classification.
type MissingPolicy int

const (
	// MissingBlocks counts an unresolved id as an unmet dependency.
	MissingBlocks MissingPolicy = iota
	// MissingIgnored treats an unresolved id as satisfied.
	MissingIgnored
	// MissingPending leaves the item pending unless a known dependency blocks it.
	MissingPending
)

func (p MissingPolicy) String() string {
	switch p {
	case MissingBlocks:
		return "block"
	case MissingIgnored:
		return "ignore"
	case MissingPending:
		return "pending"
	default:
		return fmt.Sprintf("policy(%d)", int(p))
	}
}

// ParseMissingPolicy parses "block", "ignore" or "pending". The empty string
// yields the default, MissingBlocks.
func ParseMissingPolicy(raw string) (MissingPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "block", "blocked", "strict":
		return MissingBlocks, nil
	case "ignore", "ignored", "satisfied":
		return MissingIgnored, nil
	case "pending":
		return MissingPending, nil
	default:
		return MissingBlocks, fmt.Errorf("unknown missing dependency policy %q (want block, ignore or pending)", raw)
	}
}
