package dashboard

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/sync/errgroup"

	"github.com/agusx1211/loopdash/internal/debug"
	"github.com/agusx1211/loopdash/internal/eventq"
	"github.com/agusx1211/loopdash/internal/monitor"
	"github.com/agusx1211/loopdash/internal/poll"
	"github.com/agusx1211/loopdash/internal/story"
	"github.com/agusx1211/loopdash/internal/trace"
)

// RunConfig holds everything needed to launch the dashboard.
type RunConfig struct {
	Work        monitor.WorkSource
	Events      monitor.EventSource
	ProjectName string
	// AgentID is the agent whose subagents are shown. Empty shows stories only.
	AgentID string

	Interval        time.Duration
	HighlightWindow time.Duration
	MissingPolicy   story.MissingPolicy
}

// Refresher produces dashboard states. It is driven by a single poll loop.
type Refresher struct {
	Board *monitor.Board
	Agent *monitor.Agent
	Now   func() time.Time
}

// NewRefresher wires the engines for cfg.
func NewRefresher(cfg RunConfig) *Refresher {
	r := &Refresher{
		Board: &monitor.Board{Source: cfg.Work, Resolver: story.Resolver{MissingPolicy: cfg.MissingPolicy}},
		Now:   time.Now,
	}
	if cfg.AgentID != "" && cfg.Events != nil {
		r.Agent = monitor.NewAgent(cfg.Events, cfg.AgentID, trace.WithHighlightWindow(cfg.HighlightWindow))
	}
	return r
}

// Refresh polls both backends. Errors are carried in the State; the last
// good trace view is kept when the trace backend fails.
func (r *Refresher) Refresh() State {
	st := State{At: r.Now()}
	st.Board, st.BoardErr = r.Board.Refresh()
	if r.Agent != nil {
		st.HasAgent = true
		st.Trace, st.TraceErr = r.Agent.Refresh()
	}
	return st
}

// Clear resets the followed agent's history.
func (r *Refresher) Clear() error {
	if r.Agent == nil {
		return nil
	}
	return r.Agent.Clear()
}

// Run launches the dashboard and its poll loop. It returns when the user
// quits or ctx is cancelled.
func Run(ctx context.Context, cfg RunConfig) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Only the newest state matters; older ones are dropped.
	stateCh := make(chan State, 1)
	refresher := NewRefresher(cfg)

	poller := poll.New(cfg.Interval, func(ctx context.Context) error {
		st := refresher.Refresh()
		eventq.Replace(ctx, stateCh, st)
		return nil
	})

	model := NewModel(cfg.ProjectName, cfg.AgentID, stateCh, Actions{
		Refresh: poller.Kick,
		Clear: func() {
			poller.Submit(func() {
				if err := refresher.Clear(); err != nil {
					debug.LogKV("dashboard", "clear failed", "agent", cfg.AgentID, "error", err)
				}
			})
		},
	})
	p := tea.NewProgram(model, tea.WithAltScreen())

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return poller.Run(gctx)
	})
	g.Go(func() error {
		defer cancel()
		_, err := p.Run()
		return err
	})
	g.Go(func() error {
		<-gctx.Done()
		p.Quit()
		return nil
	})

	debug.LogKV("dashboard", "started", "project", cfg.ProjectName, "agent", cfg.AgentID, "interval", cfg.Interval)
	return g.Wait()
}
