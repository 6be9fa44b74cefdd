package monitor

import (
	"errors"
	"testing"
	"time"

	"github.com/agusx1211/loopdash/internal/story"
	"github.com/agusx1211/loopdash/internal/trace"
)

type fakeWork struct {
	items   []story.WorkItem
	running []string
	err     error
}

func (f *fakeWork) ListWorkItems() ([]story.WorkItem, error) { return f.items, f.err }
func (f *fakeWork) RunningIDs() ([]string, error)            { return f.running, nil }

type fakeEvents struct {
	events  []trace.Event
	hier    trace.Hierarchy
	summary trace.OutcomeCounts
	err     error
	cleared int
	cursors []int64
}

func (f *fakeEvents) PollEvents(_ string, cursor int64) (trace.Batch, int64, error) {
	f.cursors = append(f.cursors, cursor)
	if f.err != nil {
		return trace.Batch{}, cursor, f.err
	}
	if int(cursor) > len(f.events) {
		cursor = 0
	}
	b := trace.Batch{Events: f.events[cursor:], Hierarchy: f.hier, Active: []string{"x"}}
	return b, int64(len(f.events)), nil
}

func (f *fakeEvents) PollSummary(string) (trace.OutcomeCounts, error) { return f.summary, nil }

func (f *fakeEvents) ClearAgent(string) error {
	f.cleared++
	f.events = nil
	return nil
}

func TestBoardRefresh(t *testing.T) {
	src := &fakeWork{
		items: []story.WorkItem{
			{ID: "A", Passes: true},
			{ID: "B", DependencyIDs: []string{"A"}},
			{ID: "C", DependencyIDs: []string{"B"}},
		},
		running: []string{"B"},
	}
	b := &Board{Source: src}
	res, err := b.Refresh()
	if err != nil {
		t.Fatal(err)
	}
	want := map[string]story.Status{"A": story.StatusDone, "B": story.StatusRunning, "C": story.StatusBlocked}
	for id, st := range want {
		if res.Statuses[id] != st {
			t.Errorf("%s = %v, want %v", id, res.Statuses[id], st)
		}
	}

	// Items are re-read every refresh.
	src.items[1].Passes = true
	src.running = nil
	res, _ = b.Refresh()
	if res.Statuses["C"] != story.StatusReady {
		t.Fatalf("C = %v after B passed", res.Statuses["C"])
	}

	src.err = errors.New("disk gone")
	if _, err := b.Refresh(); err == nil {
		t.Fatal("expected error")
	}
}

func TestAgentRefreshAdvancesCursor(t *testing.T) {
	ts := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	src := &fakeEvents{
		events: []trace.Event{
			{SubagentID: "a", Type: trace.EventSpawned, Timestamp: ts},
			{SubagentID: "b", ParentAgentID: "a", Depth: 1, Type: trace.EventSpawned, Timestamp: ts},
		},
		summary: trace.OutcomeCounts{Completed: 7},
	}
	a := NewAgent(src, "main", trace.WithClock(func() time.Time { return ts.Add(time.Minute) }))

	if _, ok := a.Last(); ok {
		t.Fatal("Last should be empty before the first refresh")
	}
	v, err := a.Refresh()
	if err != nil {
		t.Fatal(err)
	}
	if v.Snapshot.TotalCount != 2 || len(v.Snapshot.Roots) != 1 {
		t.Fatalf("snapshot = %+v", v.Snapshot)
	}
	if v.Summary.Completed != 7 || len(v.Active) != 1 {
		t.Fatalf("backend figures = %+v %v", v.Summary, v.Active)
	}

	src.events = append(src.events, trace.Event{SubagentID: "b", Type: trace.EventCompleted, Timestamp: ts.Add(time.Second)})
	v, _ = a.Refresh()
	if got := v.Snapshot.Find("b"); got == nil || got.Status != trace.StatusCompleted {
		t.Fatalf("b = %+v", got)
	}
	if src.cursors[0] != 0 || src.cursors[1] != 2 {
		t.Fatalf("cursors = %v", src.cursors)
	}
}

func TestAgentRefreshKeepsLastViewOnError(t *testing.T) {
	ts := time.Now()
	src := &fakeEvents{events: []trace.Event{{SubagentID: "a", Type: trace.EventSpawned, Timestamp: ts}}}
	a := NewAgent(src, "main")
	good, err := a.Refresh()
	if err != nil {
		t.Fatal(err)
	}

	src.err = errors.New("timeout")
	got, err := a.Refresh()
	if err == nil {
		t.Fatal("expected error")
	}
	if got.Snapshot.TotalCount != good.Snapshot.TotalCount {
		t.Fatalf("view lost on error: %+v", got)
	}

	src.err = nil
	if _, err := a.Refresh(); err != nil {
		t.Fatal(err)
	}
	if last := src.cursors[len(src.cursors)-1]; last != 1 {
		t.Fatalf("cursor after recovery = %d, want 1", last)
	}
}

func TestAgentClear(t *testing.T) {
	src := &fakeEvents{events: []trace.Event{{SubagentID: "a", Type: trace.EventSpawned, Timestamp: time.Now()}}}
	a := NewAgent(src, "main")
	a.Refresh()

	if err := a.Clear(); err != nil {
		t.Fatal(err)
	}
	if src.cleared != 1 {
		t.Fatalf("backend cleared %d times", src.cleared)
	}
	if a.Aggregator.Len() != 0 {
		t.Fatal("aggregator not cleared")
	}
	v, err := a.Refresh()
	if err != nil {
		t.Fatal(err)
	}
	if v.Snapshot.TotalCount != 0 {
		t.Fatalf("stale nodes after clear: %+v", v.Snapshot)
	}
	if last := src.cursors[len(src.cursors)-1]; last != 0 {
		t.Fatalf("cursor not reset: %d", last)
	}
}
