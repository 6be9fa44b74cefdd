package story

import "sort"

// Layer groups items that share a topological depth. Overflow marks the
// final catch-all layer holding items Kahn's algorithm could not place
// because they sit on, or downstream of, a cycle.
type Layer struct {
	Index    int        `json:"index"`
	Items    []WorkItem `json:"items"`
	Overflow bool       `json:"overflow,omitempty"`
}

// IDs returns the item ids of the layer in order.
func (l Layer) IDs() []string {
	out := make([]string, len(l.Items))
	for i, it := range l.Items {
		out[i] = it.ID
	}
	return out
}

// AssignLayers peels zero in-degree items off the graph layer by layer.
//
// Members of a layer keep input order. Whatever is left once no item has
// zero in-degree becomes one overflow layer, so every item is placed exactly
// once whether or not the graph is acyclic.
func AssignLayers(g *Graph) []Layer {
	indeg := make(map[string]int, g.Len())
	for _, it := range g.items {
		indeg[it.ID] = len(g.dependencies[it.ID])
	}

	var current []string
	for _, it := range g.items {
		if indeg[it.ID] == 0 {
			current = append(current, it.ID)
		}
	}

	placed := make(map[string]bool, g.Len())
	var layers []Layer
	for len(current) > 0 {
		layer := Layer{Index: len(layers)}
		var next []string
		for _, id := range current {
			placed[id] = true
			it, _ := g.Item(id)
			layer.Items = append(layer.Items, it)
			for _, dependent := range g.dependents[id] {
				indeg[dependent]--
				if indeg[dependent] == 0 {
					next = append(next, dependent)
				}
			}
		}
		layers = append(layers, layer)

		sort.Slice(next, func(i, j int) bool { return g.position(next[i]) < g.position(next[j]) })
		current = next
	}

	if len(placed) < g.Len() {
		overflow := Layer{Index: len(layers), Overflow: true}
		for _, it := range g.items {
			if !placed[it.ID] {
				overflow.Items = append(overflow.Items, it)
			}
		}
		layers = append(layers, overflow)
	}
	return layers
}
