// Package monitor connects the story and trace engines to the backends that
// feed them. Board re-derives the dependency view from the task backend on
// every refresh; Agent pulls new trace events and keeps an Aggregator current.
package monitor

import (
	"fmt"
	"time"

	"github.com/agusx1211/loopdash/internal/debug"
	"github.com/agusx1211/loopdash/internal/story"
	"github.com/agusx1211/loopdash/internal/trace"
)

// WorkSource is the task state backend.
type WorkSource interface {
	ListWorkItems() ([]story.WorkItem, error)
	RunningIDs() ([]string, error)
}

// EventSource is the telemetry backend for subagent events.
type EventSource interface {
	PollEvents(agentID string, cursor int64) (trace.Batch, int64, error)
	PollSummary(agentID string) (trace.OutcomeCounts, error)
	ClearAgent(agentID string) error
}

// Board resolves the current work items into layers and statuses.
type Board struct {
	Source   WorkSource
	Resolver story.Resolver
}

// Refresh reads the backend and resolves the items. Nothing is cached.
func (b *Board) Refresh() (story.Result, error) {
	items, err := b.Source.ListWorkItems()
	if err != nil {
		return story.Result{}, fmt.Errorf("listing work items: %w", err)
	}
	running, err := b.Source.RunningIDs()
	if err != nil {
		return story.Result{}, fmt.Errorf("reading running set: %w", err)
	}
	return b.Resolver.Resolve(items, story.NewIDSet(running...)), nil
}

// View is what one Agent refresh produces. Active and Summary are the
// backend's own figures, kept alongside the aggregated snapshot.
type View struct {
	AgentID  string              `json:"agent_id"`
	Snapshot trace.Snapshot      `json:"snapshot"`
	Active   []string            `json:"active,omitempty"`
	Summary  trace.OutcomeCounts `json:"summary"`
	Polled   time.Time           `json:"polled"`
}

// Agent follows the subagent events of one monitored agent.
// Like the Aggregator it wraps, it is owned by a single goroutine.
type Agent struct {
	Source     EventSource
	ID         string
	Aggregator *trace.Aggregator

	cursor int64
	last   View
	ok     bool
}

func NewAgent(src EventSource, id string, opts ...trace.Option) *Agent {
	return &Agent{Source: src, ID: id, Aggregator: trace.New(opts...)}
}

// Refresh polls for events after the current cursor, ingests them and
// returns a fresh view. On error the previous view is returned along with
// the error, and the cursor is left untouched so the next call retries.
func (a *Agent) Refresh() (View, error) {
	if a.Aggregator == nil {
		a.Aggregator = trace.New()
	}
	batch, next, err := a.Source.PollEvents(a.ID, a.cursor)
	if err != nil {
		return a.last, fmt.Errorf("polling events for %s: %w", a.ID, err)
	}
	summary, err := a.Source.PollSummary(a.ID)
	if err != nil {
		return a.last, fmt.Errorf("polling summary for %s: %w", a.ID, err)
	}

	a.Aggregator.IngestBatch(batch)
	a.cursor = next

	snap := a.Aggregator.Snapshot()
	a.last = View{
		AgentID:  a.ID,
		Snapshot: snap,
		Active:   batch.Active,
		Summary:  summary,
		Polled:   snap.TakenAt,
	}
	a.ok = true
	return a.last, nil
}

// Last returns the most recent successful view and whether one exists.
func (a *Agent) Last() (View, bool) {
	return a.last, a.ok
}

// Clear drops the backend history, the aggregated state and the cursor.
// Local state is reset even when the backend clear fails.
func (a *Agent) Clear() error {
	err := a.Source.ClearAgent(a.ID)
	if a.Aggregator != nil {
		a.Aggregator.Clear()
	}
	a.cursor = 0
	a.last = View{AgentID: a.ID}
	a.ok = false
	debug.LogKV("monitor", "agent cleared", "agent", a.ID, "error", err)
	if err != nil {
		return fmt.Errorf("clearing %s: %w", a.ID, err)
	}
	return nil
}
