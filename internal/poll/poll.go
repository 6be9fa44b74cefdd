// Package poll drives periodic refreshes against the backends.
//
// A Poller owns one goroutine. Tick and every submitted action run on it, so
// state touched only from there (the trace aggregator, the poll cursor) needs
// no locking.
package poll

import (
	"context"
	"sync"
	"time"

	"github.com/agusx1211/loopdash/internal/debug"
	"github.com/agusx1211/loopdash/internal/eventq"
)

// DefaultInterval is used when Interval is zero or negative.
const DefaultInterval = 2 * time.Second

const actionQueueSize = 16

// Poller calls Tick immediately and then every Interval until its context is
// cancelled. A failing Tick is reported to OnError and retried on the next
// interval; the loop itself never stops on error.
type Poller struct {
	Interval time.Duration
	Tick     func(ctx context.Context) error
	OnError  func(error)

	initOnce sync.Once
	actions  chan func()
	kick     chan struct{}
}

func New(interval time.Duration, tick func(ctx context.Context) error) *Poller {
	return &Poller{Interval: interval, Tick: tick}
}

func (p *Poller) init() {
	p.initOnce.Do(func() {
		p.actions = make(chan func(), actionQueueSize)
		p.kick = make(chan struct{}, 1)
	})
}

// Kick requests a tick as soon as the loop is free. Kicks coalesce.
func (p *Poller) Kick() {
	p.init()
	eventq.Offer(p.kick, struct{}{})
}

// Submit queues fn to run on the loop goroutine, followed by an immediate
// tick. It returns false when the queue is full.
func (p *Poller) Submit(fn func()) bool {
	if fn == nil {
		return false
	}
	p.init()
	return eventq.Offer(p.actions, fn)
}

// Run blocks until ctx is cancelled. It returns nil on cancellation.
func (p *Poller) Run(ctx context.Context) error {
	p.init()
	interval := p.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	debug.LogKV("poll", "poller started", "interval", interval)
	defer debug.LogKV("poll", "poller stopped")

	for {
		p.tick(ctx)

		select {
		case <-ctx.Done():
			return nil
		case fn := <-p.actions:
			fn()
			p.drainActions()
		case <-p.kick:
		case <-ticker.C:
		}
	}
}

func (p *Poller) drainActions() {
	for {
		select {
		case fn := <-p.actions:
			fn()
		default:
			return
		}
	}
}

func (p *Poller) tick(ctx context.Context) {
	if p.Tick == nil || ctx.Err() != nil {
		return
	}
	if err := p.Tick(ctx); err != nil {
		debug.LogKV("poll", "tick failed", "error", err)
		if p.OnError != nil {
			p.OnError(err)
		}
	}
}
