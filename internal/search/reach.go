package search

import (
	"github.com/signalsfoundry/optical-pce/internal/graph"
)

// reachable runs a breadth-first walk from the A-end nodes that honours
// node validity, layer membership and the link constraints but ignores
// resources and accumulated bounds. It separates "no connectivity" from
// "connectivity without capacity" when a search is exhausted.
func (e *engine) reachable() bool {
	seen := make([]bool, len(e.g.Nodes))
	queue := make([]graph.NodeIndex, 0, len(e.a.A.Nodes))
	starts := map[graph.NodeIndex]bool{}
	for _, n := range e.a.A.Nodes {
		if e.a.NodeValid(n) {
			seen[n] = true
			starts[n] = true
			queue = append(queue, n)
		}
	}

	for len(queue) > 0 {
		u := queue[0]
		queue = queue[1:]
		if !starts[u] && !e.a.Transit(u) {
			continue
		}
		for _, li := range e.g.Out[u] {
			link := e.g.Link(li)
			v := link.Dst
			if !e.layerLink(link) || !e.a.NodeValid(v) {
				continue
			}
			if starts[u] {
				if _, ok := e.terminal(&e.a.A, u, link.SrcPort); !ok && !e.a.Transit(u) {
					continue
				}
			}
			if !e.admissible(link, e.in.Evaluation.Link(li)) {
				continue
			}
			if e.a.Z.HasNode(v) {
				if _, ok := e.terminal(&e.a.Z, v, link.DstPort); ok {
					return true
				}
			}
			// Z is tested on every admissible entry since an xponder end
			// only terminates through the ports its candidate rides on.
			if seen[v] || !e.a.Transit(v) {
				continue
			}
			seen[v] = true
			queue = append(queue, v)
		}
	}
	return false
}
