package story

import (
	"strings"

	"github.com/agusx1211/loopdash/internal/debug"
)

// Cycle is an ordered chain of item ids where each item depends on the next
// and the last depends on the first. A nil Cycle means none was found.
type Cycle []string

func (c Cycle) String() string {
	if len(c) == 0 {
		return ""
	}
	return strings.Join(c, " -> ") + " -> " + c[0]
}

// Contains reports whether id is part of the cycle.
func (c Cycle) Contains(id string) bool {
	for _, v := range c {
		if v == id {
			return true
		}
	}
	return false
}

type dfsFrame struct {
	id   string
	next int // index into the dependency list still to explore
}

// FindCycle returns the first dependency cycle reached by a depth-first walk
// that starts from each unvisited item in input order and follows
// dependencies in declaration order.
//
// The walk keeps its own stack so very deep dependency chains cannot exhaust
// the goroutine stack.
func FindCycle(g *Graph) Cycle {
	const (
		white = iota
		gray
		black
	)

	color := make(map[string]int, g.Len())
	for _, root := range g.items {
		if color[root.ID] != white {
			continue
		}

		stack := []dfsFrame{{id: root.ID}}
		onPath := map[string]int{root.ID: 0} // id -> stack depth
		color[root.ID] = gray

		for len(stack) > 0 {
			top := &stack[len(stack)-1]
			deps := g.dependencies[top.id]
			if top.next >= len(deps) {
				color[top.id] = black
				delete(onPath, top.id)
				stack = stack[:len(stack)-1]
				continue
			}
			dep := deps[top.next]
			top.next++

			switch color[dep] {
			case white:
				color[dep] = gray
				onPath[dep] = len(stack)
				stack = append(stack, dfsFrame{id: dep})
			case gray:
				start := onPath[dep]
				cycle := make(Cycle, 0, len(stack)-start)
				for _, f := range stack[start:] {
					cycle = append(cycle, f.id)
				}
				debug.LogKV("story", "dependency cycle found", "cycle", cycle.String())
				return cycle
			}
		}
	}
	return nil
}
