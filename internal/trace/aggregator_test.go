package trace

import (
	"fmt"
	"math/rand"
	"reflect"
	"testing"
	"time"
)

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func fixedClock(at time.Time) Option {
	return WithClock(func() time.Time { return at })
}

func ev(id, parent string, typ EventType, depth int, offset time.Duration) Event {
	return Event{
		SubagentID:    id,
		ParentAgentID: parent,
		Type:          typ,
		Depth:         depth,
		Timestamp:     t0.Add(offset),
	}
}

func collectIDs(s Snapshot) map[string]int {
	seen := map[string]int{}
	s.Walk(func(n *Node, _ int) { seen[n.ID]++ })
	return seen
}

func TestSpawnThenCompleteIsOneNode(t *testing.T) {
	a := New(fixedClock(t0.Add(time.Minute)))
	a.Ingest([]Event{{
		SubagentID: "s1", ParentAgentID: "root", Type: EventSpawned, Depth: 1,
		Description: "write tests", Timestamp: t0,
	}}, nil)
	a.Ingest([]Event{{SubagentID: "s1", Type: EventCompleted, Timestamp: t0.Add(5 * time.Second)}}, nil)

	snap := a.Snapshot()
	if snap.TotalCount != 1 || len(snap.Roots) != 1 {
		t.Fatalf("total=%d roots=%d, want 1 and 1", snap.TotalCount, len(snap.Roots))
	}
	n := snap.Roots[0]
	if n.ID != "s1" || n.Status != StatusCompleted {
		t.Fatalf("root = %s/%s, want s1/completed", n.ID, n.Status)
	}
	if n.Description != "write tests" {
		t.Fatalf("description = %q, want it kept", n.Description)
	}
	if n.DurationSecs != 5 {
		t.Fatalf("duration = %v, want 5", n.DurationSecs)
	}
	if n.ParentID != "root" || n.Depth != 1 {
		t.Fatalf("lineage = %s/%d, want root/1", n.ParentID, n.Depth)
	}
	if snap.ActiveCount != 0 || snap.Outcomes.Completed != 1 {
		t.Fatalf("counts = active %d, outcomes %+v", snap.ActiveCount, snap.Outcomes)
	}
}

func TestIngestIsIdempotent(t *testing.T) {
	events := []Event{
		ev("a", "root", EventSpawned, 1, 0),
		ev("b", "a", EventSpawned, 2, time.Second),
		ev("b", "a", EventProgress, 2, 2*time.Second),
		ev("a", "", EventFailed, 0, 3*time.Second),
		{SubagentID: "c", Type: "mystery", Timestamp: t0.Add(4 * time.Second)},
	}
	for _, e := range events {
		once := New(fixedClock(t0.Add(time.Hour)))
		once.Ingest([]Event{e}, nil)

		twice := New(fixedClock(t0.Add(time.Hour)))
		twice.Ingest([]Event{e}, nil)
		twice.Ingest([]Event{e}, nil)

		if !reflect.DeepEqual(once.Snapshot(), twice.Snapshot()) {
			t.Fatalf("event %+v: snapshot changed on re-ingest", e)
		}
	}
}

func TestReplayedWindowDoesNotRegress(t *testing.T) {
	a := New(fixedClock(t0.Add(time.Hour)))
	spawn := ev("s1", "root", EventSpawned, 1, 0)
	done := ev("s1", "", EventCompleted, 0, 10*time.Second)

	a.Ingest([]Event{spawn, done}, nil)
	want := a.Snapshot()

	// A later poll resends an overlapping window that starts before the completion.
	a.Ingest([]Event{spawn}, nil)
	a.Ingest([]Event{spawn, done}, nil)
	if got := a.Snapshot(); !reflect.DeepEqual(got, want) {
		t.Fatalf("snapshot changed after overlapping re-poll:\n got %+v\nwant %+v", got.Roots[0], want.Roots[0])
	}
}

func TestDescriptionNotBlanked(t *testing.T) {
	a := New()
	a.Ingest([]Event{
		{SubagentID: "s", Type: EventSpawned, Description: "refactor parser", Timestamp: t0},
		{SubagentID: "s", Type: EventProgress, Timestamp: t0.Add(time.Second)},
	}, nil)
	if got := a.Snapshot().Find("s").Description; got != "refactor parser" {
		t.Fatalf("description = %q", got)
	}

	a.Ingest([]Event{{SubagentID: "s", Type: EventProgress, Description: "running tests", Timestamp: t0.Add(2 * time.Second)}}, nil)
	if got := a.Snapshot().Find("s").Description; got != "running tests" {
		t.Fatalf("description = %q, want the newer one", got)
	}
}

func TestUnknownEventType(t *testing.T) {
	a := New()
	a.Ingest([]Event{
		{SubagentID: "s", Type: EventProgress, Timestamp: t0},
		{SubagentID: "s", Type: "checkpoint", Description: "halfway", Timestamp: t0.Add(time.Second)},
		{SubagentID: "fresh", Type: "checkpoint", Timestamp: t0.Add(2 * time.Second)},
	}, nil)

	snap := a.Snapshot()
	s := snap.Find("s")
	if s == nil || s.Status != StatusProgress || s.Description != "halfway" {
		t.Fatalf("node s = %+v, want progress with updated description", s)
	}
	if fresh := snap.Find("fresh"); fresh == nil {
		t.Fatal("unknown event type dropped the node")
	}
	if snap.TotalCount != 2 {
		t.Fatalf("total = %d, want 2", snap.TotalCount)
	}
}

func TestEventTypeCaseInsensitive(t *testing.T) {
	a := New()
	a.Ingest([]Event{{SubagentID: "s", Type: " Completed ", Timestamp: t0}}, nil)
	if got := a.Snapshot().Find("s").Status; got != StatusCompleted {
		t.Fatalf("status = %s", got)
	}
}

func TestEmptySubagentIDSkipped(t *testing.T) {
	a := New()
	a.Ingest([]Event{{Type: EventSpawned, Timestamp: t0}}, nil)
	if a.Len() != 0 {
		t.Fatalf("len = %d, want 0", a.Len())
	}
}

func TestLineageKeptOnStatusUpdate(t *testing.T) {
	a := New()
	a.Ingest([]Event{
		ev("p", "", EventSpawned, 0, 0),
		ev("c", "p", EventSpawned, 1, time.Second),
	}, nil)
	// Follow-ups name the parent but omit the depth, or name another parent.
	a.Ingest([]Event{
		ev("c", "p", EventCompleted, 0, 5*time.Second),
		ev("c", "elsewhere", EventProgress, 3, 6*time.Second),
	}, nil)

	snap := a.Snapshot()
	if len(snap.Roots) != 1 || snap.Roots[0].ID != "p" {
		t.Fatalf("roots = %+v, want only p", snap.Roots)
	}
	c := snap.Find("c")
	if c == nil || c.ParentID != "p" || c.Depth != 1 {
		t.Fatalf("c lineage = %+v, want p/1", c)
	}
	if len(snap.Roots[0].Children) != 1 || snap.Roots[0].Children[0].ID != "c" {
		t.Fatalf("p children = %+v, want [c]", snap.Roots[0].Children)
	}
}

func TestLineageFilledWhenFirstSeenWithout(t *testing.T) {
	a := New()
	a.Ingest([]Event{
		ev("p", "", EventSpawned, 0, 0),
		ev("c", "", EventProgress, 0, time.Second),
		ev("c", "p", EventProgress, 1, 2*time.Second),
	}, nil)
	p := a.Snapshot().Find("p")
	if p == nil || len(p.Children) != 1 || p.Children[0].ID != "c" {
		t.Fatalf("late lineage not applied: %+v", p)
	}
}

func TestTimestamplessRepeatIsRedelivery(t *testing.T) {
	a := New()
	a.Ingest([]Event{
		{SubagentID: "s", Type: EventProgress, Description: "first"},
		{SubagentID: "s", Type: EventProgress, Description: "second"},
	}, nil)
	if got := a.Snapshot().Find("s").Description; got != "first" {
		t.Fatalf("description = %q, want first", got)
	}
}

func TestOrphanBecomesRoot(t *testing.T) {
	a := New()
	a.Ingest([]Event{
		ev("child", "missing-parent", EventSpawned, 2, 0),
		ev("top", "root", EventSpawned, 1, time.Second),
		ev("leaf", "top", EventSpawned, 2, 2*time.Second),
	}, nil)

	snap := a.Snapshot()
	var rootIDs []string
	for _, r := range snap.Roots {
		rootIDs = append(rootIDs, r.ID)
	}
	if !reflect.DeepEqual(rootIDs, []string{"top", "child"}) {
		t.Fatalf("roots = %v, want [top child]", rootIDs)
	}
	if len(snap.Roots[0].Children) != 1 || snap.Roots[0].Children[0].ID != "leaf" {
		t.Fatalf("top children = %+v", snap.Roots[0].Children)
	}

	// The parent shows up later and the orphan is re-homed.
	a.Ingest([]Event{ev("missing-parent", "root", EventSpawned, 1, 3*time.Second)}, nil)
	snap = a.Snapshot()
	mp := snap.Find("missing-parent")
	if mp == nil || len(mp.Children) != 1 || mp.Children[0].ID != "child" {
		t.Fatalf("late parent did not adopt orphan: %+v", mp)
	}
}

func TestDepthZeroIsRoot(t *testing.T) {
	a := New()
	a.Ingest([]Event{
		ev("p", "root", EventSpawned, 1, 0),
		ev("q", "p", EventSpawned, 0, time.Second),
	}, nil)
	if got := len(a.Snapshot().Roots); got != 2 {
		t.Fatalf("roots = %d, want 2", got)
	}
}

func TestHierarchyPreferredOverLineage(t *testing.T) {
	a := New()
	a.Ingest([]Event{
		ev("p1", "root", EventSpawned, 1, 0),
		ev("p2", "root", EventSpawned, 1, time.Second),
		ev("c", "p1", EventSpawned, 2, 2*time.Second),
	}, Hierarchy{"p2": {"c"}})

	snap := a.Snapshot()
	if p2 := snap.Find("p2"); len(p2.Children) != 1 || p2.Children[0].ID != "c" {
		t.Fatalf("p2 children = %+v, want [c]", p2.Children)
	}
	if p1 := snap.Find("p1"); len(p1.Children) != 0 {
		t.Fatalf("p1 children = %+v, want none", p1.Children)
	}

	// An empty hierarchy on a later poll keeps the stored one.
	a.Ingest(nil, Hierarchy{})
	if p2 := a.Snapshot().Find("p2"); len(p2.Children) != 1 {
		t.Fatal("stored hierarchy was dropped by an empty update")
	}
}

func TestHierarchyLoopAndDoubleClaim(t *testing.T) {
	a := New()
	a.Ingest([]Event{
		ev("x", "root", EventSpawned, 1, 0),
		ev("y", "root", EventSpawned, 1, time.Second),
		ev("z", "root", EventSpawned, 1, 2*time.Second),
	}, Hierarchy{
		"x": {"y", "z"},
		"y": {"x", "z"},
	})

	snap := a.Snapshot()
	seen := collectIDs(snap)
	for _, id := range []string{"x", "y", "z"} {
		if seen[id] != 1 {
			t.Fatalf("node %s appears %d times", id, seen[id])
		}
	}
	if len(snap.Roots) != 1 {
		t.Fatalf("roots = %d, want 1 after the loop is cut", len(snap.Roots))
	}
}

func TestChildrenMostRecentFirst(t *testing.T) {
	a := New()
	a.Ingest([]Event{
		ev("p", "root", EventSpawned, 1, 0),
		ev("old", "p", EventSpawned, 2, time.Second),
		ev("new", "p", EventSpawned, 2, 3*time.Second),
		ev("mid-b", "p", EventSpawned, 2, 2*time.Second),
		ev("mid-a", "p", EventSpawned, 2, 2*time.Second),
	}, nil)

	var got []string
	for _, c := range a.Snapshot().Find("p").Children {
		got = append(got, c.ID)
	}
	want := []string{"new", "mid-a", "mid-b", "old"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("children = %v, want %v", got, want)
	}
}

func TestHighlightWindow(t *testing.T) {
	now := t0.Add(10 * time.Second)
	a := New(WithHighlightWindow(3*time.Second), WithClock(func() time.Time { return now }))
	a.Ingest([]Event{
		ev("recent", "root", EventSpawned, 1, 8*time.Second),
		ev("stale", "root", EventSpawned, 1, 2*time.Second),
	}, nil)

	snap := a.Snapshot()
	if !snap.Find("recent").Highlighted {
		t.Fatal("recent node should be highlighted")
	}
	if snap.Find("stale").Highlighted {
		t.Fatal("stale node should not be highlighted")
	}

	now = now.Add(5 * time.Second)
	if a.Snapshot().Find("recent").Highlighted {
		t.Fatal("highlight should expire once the window passes")
	}
}

func TestSnapshotDoesNotAlias(t *testing.T) {
	a := New()
	a.Ingest([]Event{ev("s", "root", EventSpawned, 1, 0)}, nil)
	snap := a.Snapshot()
	snap.Roots[0].Status = StatusFailed
	snap.Roots[0].Children = append(snap.Roots[0].Children, &Node{ID: "bogus"})

	again := a.Snapshot()
	if again.Roots[0].Status != StatusSpawned || len(again.Roots[0].Children) != 0 {
		t.Fatalf("mutating a snapshot leaked into the aggregator: %+v", again.Roots[0])
	}
}

func TestClear(t *testing.T) {
	a := New()
	e := ev("s", "root", EventSpawned, 1, 0)
	a.Ingest([]Event{e}, Hierarchy{"s": {"t"}})
	a.Clear()
	if snap := a.Snapshot(); snap.TotalCount != 0 || len(snap.Roots) != 0 {
		t.Fatalf("snapshot after clear = %+v", snap)
	}
	// The duplicate filter is reset too.
	a.Ingest([]Event{e}, nil)
	if a.Len() != 1 {
		t.Fatalf("len = %d after re-ingest following clear", a.Len())
	}
}

func TestSummarize(t *testing.T) {
	a := New()
	a.Ingest([]Event{
		ev("a", "root", EventSpawned, 1, 0),
		ev("b", "root", EventProgress, 1, 0),
		ev("c", "root", EventCompleted, 1, 0),
		ev("d", "root", EventFailed, 1, 0),
		ev("e", "root", EventFailed, 1, 0),
	}, nil)
	snap := a.Snapshot()
	if snap.ActiveCount != 2 || snap.TotalCount != 5 {
		t.Fatalf("active=%d total=%d", snap.ActiveCount, snap.TotalCount)
	}
	if snap.Outcomes != (OutcomeCounts{Completed: 1, Failed: 2}) {
		t.Fatalf("outcomes = %+v", snap.Outcomes)
	}
}

func TestStatusPredicates(t *testing.T) {
	tests := []struct {
		status           Status
		active, terminal bool
	}{
		{StatusSpawned, true, false},
		{StatusProgress, true, false},
		{StatusCompleted, false, true},
		{StatusFailed, false, true},
	}
	for _, tt := range tests {
		if tt.status.Active() != tt.active || tt.status.Terminal() != tt.terminal {
			t.Errorf("%s: Active=%v Terminal=%v", tt.status, tt.status.Active(), tt.status.Terminal())
		}
	}
}

func TestFailedKeepsError(t *testing.T) {
	a := New()
	a.Ingest([]Event{
		ev("s", "root", EventSpawned, 1, 0),
		{SubagentID: "s", Type: EventFailed, Error: "exit status 2", DurationSecs: 1.5, Timestamp: t0.Add(time.Minute)},
	}, nil)
	n := a.Snapshot().Find("s")
	if n.Error != "exit status 2" || n.DurationSecs != 1.5 {
		t.Fatalf("node = %+v", n)
	}
	if n.Elapsed(t0.Add(time.Hour)) != 1500*time.Millisecond {
		t.Fatalf("elapsed = %v", n.Elapsed(t0.Add(time.Hour)))
	}
}

func TestForestPropertyRandomized(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	types := []EventType{EventSpawned, EventProgress, EventCompleted, EventFailed, "other"}

	for round := 0; round < 50; round++ {
		a := New()
		for poll := 0; poll < 10; poll++ {
			var events []Event
			for i := 0; i < 8; i++ {
				id := fmt.Sprintf("n%d", rng.Intn(30))
				parent := fmt.Sprintf("n%d", rng.Intn(30))
				if rng.Intn(5) == 0 {
					parent = ""
				}
				events = append(events, Event{
					SubagentID:    id,
					ParentAgentID: parent,
					Type:          types[rng.Intn(len(types))],
					Depth:         rng.Intn(4),
					Timestamp:     t0.Add(time.Duration(rng.Intn(100)) * time.Second),
				})
			}
			var h Hierarchy
			if rng.Intn(2) == 0 {
				h = Hierarchy{}
				for i := 0; i < 5; i++ {
					p := fmt.Sprintf("n%d", rng.Intn(30))
					h[p] = append(h[p], fmt.Sprintf("n%d", rng.Intn(30)))
				}
			}
			a.Ingest(events, h)

			snap := a.Snapshot()
			seen := collectIDs(snap)
			if len(seen) != snap.TotalCount {
				t.Fatalf("round %d poll %d: %d distinct nodes in forest, total %d", round, poll, len(seen), snap.TotalCount)
			}
			for id, c := range seen {
				if c != 1 {
					t.Fatalf("round %d poll %d: node %s appears %d times", round, poll, id, c)
				}
			}
		}
	}
}
