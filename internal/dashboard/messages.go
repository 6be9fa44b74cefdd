package dashboard

import (
	"time"

	"github.com/agusx1211/loopdash/internal/monitor"
	"github.com/agusx1211/loopdash/internal/story"
)

// State is one complete refresh, published by the poll loop.
type State struct {
	Board    story.Result
	BoardErr error

	// HasAgent is false when no agent is being followed.
	HasAgent bool
	Trace    monitor.View
	TraceErr error

	At time.Time
}

// StateMsg delivers a State to the program.
type StateMsg struct {
	State State
}

// closedMsg signals the state channel was closed.
type closedMsg struct{}

type tickMsg struct{}
