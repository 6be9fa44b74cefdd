// Package trace rebuilds the live subagent hierarchy of one agent run from the
// spawn/progress/completion events a telemetry backend reports.
//
// Events may arrive more than once, out of order, or with fields missing.
// The Aggregator keeps a flat map of node snapshots keyed by subagent id and
// rebuilds the forest from it on every Snapshot call.
package trace

import (
	"strings"
	"time"
)

// EventType is the lifecycle transition an event reports.
type EventType string

const (
	EventSpawned   EventType = "spawned"
	EventProgress  EventType = "progress"
	EventCompleted EventType = "completed"
	EventFailed    EventType = "failed"
)

// Known reports whether t is one of the four lifecycle transitions.
func (t EventType) Known() bool {
	switch t {
	case EventSpawned, EventProgress, EventCompleted, EventFailed:
		return true
	default:
		return false
	}
}

// Event is one point-in-time notification about a subagent.
//
// Deliveries are deduplicated on (SubagentID, Type, Timestamp). Events
// without a timestamp share the zero time, so a second timestampless event
// of the same type for the same subagent is treated as a redelivery and
// dropped.
type Event struct {
	SubagentID    string    `json:"subagent_id"`
	ParentAgentID string    `json:"parent_agent_id,omitempty"`
	Type          EventType `json:"event_type"`
	Depth         int       `json:"depth,omitempty"`
	Description   string    `json:"description,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
	Error         string    `json:"error,omitempty"`
	DurationSecs  float64   `json:"duration_secs,omitempty"`
}

// key identifies a delivery for duplicate suppression.
type eventKey struct {
	id   string
	typ  EventType
	nano int64
}

func (e Event) key() eventKey {
	return eventKey{id: e.SubagentID, typ: e.Type, nano: e.Timestamp.UnixNano()}
}

// Status is the lifecycle state of a node.
type Status string

const (
	StatusSpawned   Status = "spawned"
	StatusProgress  Status = "progress"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Active reports whether the subagent is still running.
func (s Status) Active() bool { return s == StatusSpawned || s == StatusProgress }

// Terminal reports whether the subagent has finished.
func (s Status) Terminal() bool { return s == StatusCompleted || s == StatusFailed }

// Hierarchy maps a parent id to its child ids, as reported by the backend.
type Hierarchy map[string][]string

// Batch is the result of one poll against the telemetry backend.
type Batch struct {
	Events    []Event   `json:"events"`
	Hierarchy Hierarchy `json:"hierarchy,omitempty"`
	Active    []string  `json:"active,omitempty"`
}

// OutcomeCounts partitions finished subagents.
type OutcomeCounts struct {
	Completed int `json:"completed"`
	Failed    int `json:"failed"`
}

// Finished is Completed + Failed.
func (o OutcomeCounts) Finished() int { return o.Completed + o.Failed }

func normalizeType(t EventType) EventType {
	return EventType(strings.ToLower(strings.TrimSpace(string(t))))
}
