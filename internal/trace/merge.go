package trace

import (
	"time"

	"github.com/agusx1211/loopdash/internal/debug"
)

// Node is the derived view of one subagent. Children is rebuilt on every
// snapshot and is never owned by the node.
type Node struct {
	ID           string    `json:"id"`
	ParentID     string    `json:"parent_id,omitempty"`
	Description  string    `json:"description,omitempty"`
	Status       Status    `json:"status"`
	Depth        int       `json:"depth"`
	StartedAt    time.Time `json:"started_at"`
	CompletedAt  time.Time `json:"completed_at,omitzero"`
	UpdatedAt    time.Time `json:"updated_at,omitzero"`
	DurationSecs float64   `json:"duration_secs,omitempty"`
	Error        string    `json:"error,omitempty"`
	Highlighted  bool      `json:"highlighted,omitempty"`
	Children     []*Node   `json:"children,omitempty"`
}

// Elapsed returns the run time so far, or the final duration once finished.
func (n *Node) Elapsed(now time.Time) time.Duration {
	if n.DurationSecs > 0 {
		return time.Duration(n.DurationSecs * float64(time.Second))
	}
	if n.StartedAt.IsZero() {
		return 0
	}
	if !n.CompletedAt.IsZero() {
		return n.CompletedAt.Sub(n.StartedAt)
	}
	return now.Sub(n.StartedAt)
}

func (n *Node) clone() *Node {
	c := *n
	c.Children = nil
	return &c
}

// Merge folds e into nodes, creating the node on first sight. It reports
// whether a node was created.
//
// Status and timestamp-derived fields are overwritten by the incoming event;
// the description is only replaced by a non-empty one. Lineage comes from the
// first event that carries it: a parent is only filled while unknown, and a
// depth only while still zero. Unknown event types
// still create or touch the node but leave its status alone. Events without
// a subagent id cannot be keyed and are skipped.
func Merge(nodes map[string]*Node, e Event) bool {
	if e.SubagentID == "" {
		debug.LogKV("trace", "event without subagent id skipped", "type", e.Type, "parent", e.ParentAgentID)
		return false
	}
	typ := normalizeType(e.Type)

	n, exists := nodes[e.SubagentID]
	if !exists {
		n = &Node{
			ID:          e.SubagentID,
			ParentID:    e.ParentAgentID,
			Depth:       e.Depth,
			Description: e.Description,
			Status:      StatusSpawned,
			StartedAt:   e.Timestamp,
		}
		nodes[e.SubagentID] = n
	} else {
		if n.ParentID == "" && e.ParentAgentID != "" {
			n.ParentID = e.ParentAgentID
		}
		if n.Depth == 0 && e.Depth > 0 {
			n.Depth = e.Depth
		}
		if e.Description != "" {
			n.Description = e.Description
		}
	}

	if !e.Timestamp.IsZero() {
		n.UpdatedAt = e.Timestamp
	}

	switch typ {
	case EventSpawned:
		n.Status = StatusSpawned
		if !e.Timestamp.IsZero() {
			n.StartedAt = e.Timestamp
		}
		n.CompletedAt = time.Time{}
		n.DurationSecs = 0
	case EventProgress:
		n.Status = StatusProgress
		if n.StartedAt.IsZero() {
			n.StartedAt = e.Timestamp
		}
		n.CompletedAt = time.Time{}
		n.DurationSecs = 0
	case EventCompleted, EventFailed:
		n.Status = StatusCompleted
		if typ == EventFailed {
			n.Status = StatusFailed
			if e.Error != "" {
				n.Error = e.Error
			}
		}
		n.CompletedAt = e.Timestamp
		n.DurationSecs = finishedDuration(n, e)
	default:
		debug.LogKV("trace", "unknown event type, status unchanged",
			"subagent_id", e.SubagentID, "type", e.Type)
	}
	return !exists
}

func finishedDuration(n *Node, e Event) float64 {
	if e.DurationSecs > 0 {
		return e.DurationSecs
	}
	if n.StartedAt.IsZero() || n.CompletedAt.IsZero() || !n.CompletedAt.After(n.StartedAt) {
		return 0
	}
	return n.CompletedAt.Sub(n.StartedAt).Seconds()
}
