package trace

import (
	"time"

	"github.com/agusx1211/loopdash/internal/debug"
)

// DefaultHighlightWindow is how long a node counts as newly started.
const DefaultHighlightWindow = 3 * time.Second

// Snapshot is a complete, self-contained view of everything ingested so far.
// Nothing in it aliases Aggregator state.
type Snapshot struct {
	Roots       []*Node       `json:"roots"`
	ActiveCount int           `json:"active_count"`
	TotalCount  int           `json:"total_count"`
	Outcomes    OutcomeCounts `json:"outcomes"`
	TakenAt     time.Time     `json:"taken_at"`
}

// Walk visits every node depth-first, parents before children.
func (s Snapshot) Walk(fn func(n *Node, level int)) {
	var visit func(nodes []*Node, level int)
	visit = func(nodes []*Node, level int) {
		for _, n := range nodes {
			fn(n, level)
			visit(n.Children, level+1)
		}
	}
	visit(s.Roots, 0)
}

// Find returns the node with the given id, or nil.
func (s Snapshot) Find(id string) *Node {
	var found *Node
	s.Walk(func(n *Node, _ int) {
		if found == nil && n.ID == id {
			found = n
		}
	})
	return found
}

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithHighlightWindow sets how long after StartedAt a node is highlighted.
func WithHighlightWindow(d time.Duration) Option {
	return func(a *Aggregator) {
		if d >= 0 {
			a.window = d
		}
	}
}

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(a *Aggregator) {
		if now != nil {
			a.now = now
		}
	}
}

// Aggregator accumulates events for one monitored agent.
//
// It is not safe for concurrent use; a single poll loop owns it and hands
// Snapshots to readers.
type Aggregator struct {
	nodes     map[string]*Node
	seen      map[eventKey]struct{}
	hierarchy Hierarchy

	window time.Duration
	now    func() time.Time
}

// New returns an empty Aggregator.
func New(opts ...Option) *Aggregator {
	a := &Aggregator{
		nodes:  make(map[string]*Node),
		seen:   make(map[eventKey]struct{}),
		window: DefaultHighlightWindow,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Ingest merges events in order. Deliveries already merged, identified by
// (subagent id, event type, timestamp), are skipped. A non-empty hierarchy
// replaces the previously stored one; a nil or empty one keeps it.
func (a *Aggregator) Ingest(events []Event, hierarchy Hierarchy) {
	created, skipped := 0, 0
	for _, e := range events {
		if e.SubagentID == "" {
			Merge(a.nodes, e)
			continue
		}
		e.Type = normalizeType(e.Type)
		k := e.key()
		if _, dup := a.seen[k]; dup {
			skipped++
			continue
		}
		a.seen[k] = struct{}{}
		if Merge(a.nodes, e) {
			created++
		}
	}
	if len(hierarchy) > 0 {
		a.hierarchy = copyHierarchy(hierarchy)
	}
	debug.LogKV("trace", "ingest",
		"events", len(events), "created", created, "duplicates", skipped, "nodes", len(a.nodes))
}

// IngestBatch ingests one poll result.
func (a *Aggregator) IngestBatch(b Batch) {
	a.Ingest(b.Events, b.Hierarchy)
}

// Snapshot rebuilds the forest and counts from the current node map.
func (a *Aggregator) Snapshot() Snapshot {
	now := a.now()
	snap := Snapshot{
		Roots:   BuildForest(a.nodes, a.hierarchy),
		TakenAt: now,
	}
	snap.ActiveCount, snap.TotalCount, snap.Outcomes = Summarize(a.nodes)
	snap.Walk(func(n *Node, _ int) {
		n.Highlighted = isFresh(n, now, a.window)
	})
	return snap
}

// Clear drops all accumulated state.
func (a *Aggregator) Clear() {
	a.nodes = make(map[string]*Node)
	a.seen = make(map[eventKey]struct{})
	a.hierarchy = nil
	debug.Log("trace", "aggregator cleared")
}

// Len returns the number of known subagents.
func (a *Aggregator) Len() int { return len(a.nodes) }

func isFresh(n *Node, now time.Time, window time.Duration) bool {
	if window <= 0 || n.StartedAt.IsZero() {
		return false
	}
	age := now.Sub(n.StartedAt)
	return age >= 0 && age < window
}

func copyHierarchy(h Hierarchy) Hierarchy {
	out := make(Hierarchy, len(h))
	for p, kids := range h {
		out[p] = append([]string(nil), kids...)
	}
	return out
}
