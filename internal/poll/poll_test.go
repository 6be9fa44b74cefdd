package poll

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func runPoller(t *testing.T, p *Poller) (cancel func()) {
	t.Helper()
	ctx, stop := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()
	return func() {
		stop()
		select {
		case err := <-done:
			if err != nil {
				t.Errorf("Run returned %v", err)
			}
		case <-time.After(2 * time.Second):
			t.Fatal("Run did not return after cancel")
		}
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func TestRunTicksImmediatelyAndPeriodically(t *testing.T) {
	var n atomic.Int32
	p := New(10*time.Millisecond, func(context.Context) error {
		n.Add(1)
		return nil
	})
	cancel := runPoller(t, p)
	waitFor(t, func() bool { return n.Load() >= 3 })
	cancel()
}

func TestRunSurvivesErrors(t *testing.T) {
	var calls atomic.Int32
	var mu sync.Mutex
	var errs []error
	boom := errors.New("backend unavailable")

	p := &Poller{
		Interval: 10 * time.Millisecond,
		Tick: func(context.Context) error {
			if calls.Add(1) <= 2 {
				return boom
			}
			return nil
		},
		OnError: func(err error) {
			mu.Lock()
			errs = append(errs, err)
			mu.Unlock()
		},
	}
	cancel := runPoller(t, p)
	waitFor(t, func() bool { return calls.Load() >= 4 })
	cancel()

	mu.Lock()
	defer mu.Unlock()
	if len(errs) != 2 {
		t.Fatalf("OnError called %d times, want 2", len(errs))
	}
	if !errors.Is(errs[0], boom) {
		t.Fatalf("unexpected error %v", errs[0])
	}
}

func TestKickForcesTick(t *testing.T) {
	var n atomic.Int32
	p := New(time.Hour, func(context.Context) error {
		n.Add(1)
		return nil
	})
	cancel := runPoller(t, p)
	defer cancel()

	waitFor(t, func() bool { return n.Load() == 1 })
	p.Kick()
	waitFor(t, func() bool { return n.Load() == 2 })
}

func TestSubmitRunsOnLoopThenTicks(t *testing.T) {
	var (
		mu    sync.Mutex
		trace []string
	)
	record := func(s string) {
		mu.Lock()
		trace = append(trace, s)
		mu.Unlock()
	}
	p := New(time.Hour, func(context.Context) error {
		record("tick")
		return nil
	})
	cancel := runPoller(t, p)
	defer cancel()

	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(trace) == 1
	})
	if !p.Submit(func() { record("clear") }) {
		t.Fatal("Submit rejected")
	}
	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(trace) == 3
	})

	mu.Lock()
	defer mu.Unlock()
	want := []string{"tick", "clear", "tick"}
	for i := range want {
		if trace[i] != want[i] {
			t.Fatalf("trace = %v, want %v", trace, want)
		}
	}
}

func TestSubmitNil(t *testing.T) {
	p := New(time.Second, nil)
	if p.Submit(nil) {
		t.Fatal("nil action should be rejected")
	}
}

func TestRunStopsWhenCancelledBeforeStart(t *testing.T) {
	var n atomic.Int32
	p := New(time.Millisecond, func(context.Context) error {
		n.Add(1)
		return nil
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := p.Run(ctx); err != nil {
		t.Fatalf("Run = %v", err)
	}
	if n.Load() != 0 {
		t.Fatalf("ticked %d times after cancel", n.Load())
	}
}
