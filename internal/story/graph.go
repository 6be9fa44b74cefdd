package story

// Graph is the adjacency view over one set of work items.
//
// Edges run dependency -> dependent. Only ids that resolve to an item become
// edges; unresolved ids are kept per item and reported by Missing.
type Graph struct {
	items []WorkItem     // input order, duplicates removed
	index map[string]int // id -> position in items

	dependents   map[string][]string // forward: dependency -> dependents
	dependencies map[string][]string // reverse: item -> resolved dependencies
	missing      map[string][]string // item -> unresolved dependency ids

	duplicates []string
}

// BuildGraph builds forward and reverse adjacency in a single pass.
//
// Item ids are expected to be unique; when they are not, the first
// occurrence wins and later ones are recorded in Duplicates.
func BuildGraph(items []WorkItem) *Graph {
	g := &Graph{
		items:        make([]WorkItem, 0, len(items)),
		index:        make(map[string]int, len(items)),
		dependents:   make(map[string][]string, len(items)),
		dependencies: make(map[string][]string, len(items)),
		missing:      make(map[string][]string),
	}
	for _, it := range items {
		if _, dup := g.index[it.ID]; dup {
			g.duplicates = append(g.duplicates, it.ID)
			continue
		}
		g.index[it.ID] = len(g.items)
		g.items = append(g.items, it)
	}

	for _, it := range g.items {
		seen := make(map[string]struct{}, len(it.DependencyIDs))
		for _, dep := range it.DependencyIDs {
			if _, ok := seen[dep]; ok {
				continue
			}
			seen[dep] = struct{}{}
			if _, ok := g.index[dep]; !ok {
				g.missing[it.ID] = append(g.missing[it.ID], dep)
				continue
			}
			g.dependencies[it.ID] = append(g.dependencies[it.ID], dep)
			g.dependents[dep] = append(g.dependents[dep], it.ID)
		}
	}
	return g
}

// Len returns the number of distinct items.
func (g *Graph) Len() int { return len(g.items) }

// Items returns the items in input order.
func (g *Graph) Items() []WorkItem {
	out := make([]WorkItem, len(g.items))
	copy(out, g.items)
	return out
}

// Item looks up an item by id.
func (g *Graph) Item(id string) (WorkItem, bool) {
	i, ok := g.index[id]
	if !ok {
		return WorkItem{}, false
	}
	return g.items[i], true
}

// Dependents returns the items that depend on id, in input order.
func (g *Graph) Dependents(id string) []string {
	return append([]string(nil), g.dependents[id]...)
}

// Dependencies returns the resolved dependencies of id, in declaration order.
func (g *Graph) Dependencies(id string) []string {
	return append([]string(nil), g.dependencies[id]...)
}

// Missing returns the dependency ids of id that match no item.
func (g *Graph) Missing(id string) []string {
	return append([]string(nil), g.missing[id]...)
}

// HasEdge reports whether item depends on dep.
func (g *Graph) HasEdge(item, dep string) bool {
	for _, d := range g.dependencies[item] {
		if d == dep {
			return true
		}
	}
	return false
}

// Duplicates returns ids that appeared more than once in the input.
func (g *Graph) Duplicates() []string {
	return append([]string(nil), g.duplicates...)
}

func (g *Graph) position(id string) int { return g.index[id] }
