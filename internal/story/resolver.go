package story

import "github.com/agusx1211/loopdash/internal/debug"

// Result is everything the board view needs for one set of items.
type Result struct {
	Graph    *Graph            `json:"-"`
	Cycle    Cycle             `json:"cycle,omitempty"`
	Layers   []Layer           `json:"layers"`
	Statuses map[string]Status `json:"statuses"`
}

// Resolver composes graph building, cycle detection, layering and
// classification. The zero value uses MissingBlocks.
type Resolver struct {
	MissingPolicy MissingPolicy
}

// Resolve runs the default Resolver.
func Resolve(items []WorkItem, running IDSet) Result {
	return Resolver{}.Resolve(items, running)
}

// Resolve builds the graph for items and derives the cycle report, display
// layers and a status for every item. A cycle never prevents layering.
func (r Resolver) Resolve(items []WorkItem, running IDSet) Result {
	g := BuildGraph(items)
	res := Result{
		Graph:    g,
		Cycle:    FindCycle(g),
		Layers:   AssignLayers(g),
		Statuses: make(map[string]Status, g.Len()),
	}
	for _, it := range g.items {
		res.Statuses[it.ID] = Classify(it, g, running, r.MissingPolicy)
	}
	if dups := g.Duplicates(); len(dups) > 0 {
		debug.LogKV("story", "duplicate work item ids ignored", "ids", dups)
	}
	return res
}

// Counts tallies items per status.
func (res Result) Counts() map[Status]int {
	out := make(map[Status]int, len(AllStatuses()))
	for _, st := range res.Statuses {
		out[st]++
	}
	return out
}

// NextReady returns the ready item a loop iteration would pick up next: the
// earliest layer holding a ready item, and within it the lowest priority
// value, ties broken by input order.
func (res Result) NextReady() (WorkItem, bool) {
	for _, layer := range res.Layers {
		var (
			best  WorkItem
			found bool
		)
		for _, it := range layer.Items {
			if res.Statuses[it.ID] != StatusReady {
				continue
			}
			if !found || it.Priority < best.Priority {
				best, found = it, true
			}
		}
		if found {
			return best, true
		}
	}
	return WorkItem{}, false
}
