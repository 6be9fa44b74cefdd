package trace

import (
	"sort"

	"github.com/agusx1211/loopdash/internal/debug"
)

// BuildForest rebuilds the subagent forest from the flat node map.
//
// A parent recorded in hierarchy wins over the lineage carried by the events.
// Without one, a node hangs under its declared parent when that parent is
// known and the node's depth is non-zero; otherwise it becomes a root, so
// orphans stay visible. Each node appears exactly once: a child claimed by
// several parents keeps the first claim (parents in id order) and parent
// loops are cut by promoting the node where the loop closes to a root.
//
// The returned nodes are fresh copies; nodes is not modified.
func BuildForest(nodes map[string]*Node, hierarchy Hierarchy) []*Node {
	ids := sortedIDs(nodes)
	parent := explicitParents(nodes, hierarchy)

	for _, id := range ids {
		if _, ok := parent[id]; ok {
			continue
		}
		n := nodes[id]
		if n.Depth == 0 || n.ParentID == "" || n.ParentID == id {
			continue
		}
		if _, ok := nodes[n.ParentID]; !ok {
			debug.LogKV("trace", "orphan subagent promoted to root", "subagent_id", id, "parent", n.ParentID)
			continue
		}
		parent[id] = n.ParentID
	}
	cutParentLoops(ids, parent)

	copies := make(map[string]*Node, len(nodes))
	for _, id := range ids {
		copies[id] = nodes[id].clone()
	}
	var roots []*Node
	for _, id := range ids {
		if p, ok := parent[id]; ok {
			copies[p].Children = append(copies[p].Children, copies[id])
			continue
		}
		roots = append(roots, copies[id])
	}

	sortNodes(roots)
	return roots
}

func explicitParents(nodes map[string]*Node, hierarchy Hierarchy) map[string]string {
	parent := make(map[string]string, len(nodes))
	if len(hierarchy) == 0 {
		return parent
	}
	parents := make([]string, 0, len(hierarchy))
	for p := range hierarchy {
		parents = append(parents, p)
	}
	sort.Strings(parents)

	for _, p := range parents {
		if _, ok := nodes[p]; !ok {
			continue
		}
		for _, c := range hierarchy[p] {
			if c == p {
				continue
			}
			if _, ok := nodes[c]; !ok {
				continue
			}
			if _, claimed := parent[c]; claimed {
				continue
			}
			parent[c] = p
		}
	}
	return parent
}

func cutParentLoops(ids []string, parent map[string]string) {
	const (
		unvisited = iota
		onPath
		settled
	)
	state := make(map[string]int, len(ids))
	for _, id := range ids {
		var path []string
		cur := id
		for {
			if state[cur] == settled {
				break
			}
			if state[cur] == onPath {
				debug.LogKV("trace", "hierarchy loop cut", "subagent_id", cur, "parent", parent[cur])
				delete(parent, cur)
				break
			}
			state[cur] = onPath
			path = append(path, cur)
			p, ok := parent[cur]
			if !ok {
				break
			}
			cur = p
		}
		for _, v := range path {
			state[v] = settled
		}
	}
}

// sortNodes orders siblings most recently started first, ties by id, and
// recurses into every subtree.
func sortNodes(nodes []*Node) {
	sort.SliceStable(nodes, func(i, j int) bool {
		a, b := nodes[i], nodes[j]
		if !a.StartedAt.Equal(b.StartedAt) {
			return a.StartedAt.After(b.StartedAt)
		}
		return a.ID < b.ID
	})
	for _, n := range nodes {
		sortNodes(n.Children)
	}
}

func sortedIDs(nodes map[string]*Node) []string {
	ids := make([]string, 0, len(nodes))
	for id := range nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Summarize counts active, total and finished nodes.
func Summarize(nodes map[string]*Node) (active, total int, outcomes OutcomeCounts) {
	for _, n := range nodes {
		switch {
		case n.Status.Active():
			active++
		case n.Status.Terminal():
			if n.Status == StatusFailed {
				outcomes.Failed++
			} else {
				outcomes.Completed++
			}
		}
	}
	return active, len(nodes), outcomes
}
