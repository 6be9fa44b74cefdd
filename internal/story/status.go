package story

// IDSet is a set of work item ids, typically the ones currently executing.
type IDSet map[string]struct{}

// NewIDSet builds a set from ids.
func NewIDSet(ids ...string) IDSet {
	s := make(IDSet, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

// Has reports membership. A nil set is empty.
func (s IDSet) Has(id string) bool {
	_, ok := s[id]
	return ok
}

// Classify derives an item's status from the graph and the running set.
// The first matching rule wins: done, running, blocked, ready, pending.
func Classify(item WorkItem, g *Graph, running IDSet, policy MissingPolicy) Status {
	if item.Passes {
		return StatusDone
	}
	if running.Has(item.ID) {
		return StatusRunning
	}

	for _, dep := range g.dependencies[item.ID] {
		if d, _ := g.Item(dep); !d.Passes {
			return StatusBlocked
		}
	}

	if len(g.missing[item.ID]) == 0 {
		return StatusReady
	}
	switch policy {
	case MissingIgnored:
		return StatusReady
	case MissingPending:
		return StatusPending
	default:
		return StatusBlocked
	}
}
