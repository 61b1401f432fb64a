package baseline

import "sort"

// DependencyGraph captures the direct-dependency edges between resource
// addresses derived from a plan (one address depends on another when its
// configuration references the other's attributes), plus each node's
// strongly-connected-component membership computed with Tarjan's
// algorithm. Membership in a non-trivial SCC means a cycle, which a
// tree-shaped Terraform/CDK dependency graph should never have but which
// cross-module references can still produce.
type DependencyGraph struct {
	edges   map[string][]string // address -> direct dependencies
	reverse map[string][]string // address -> direct dependents
	inCycle map[string]bool
}

// NewDependencyGraph builds a graph from a direct-dependency edge list
// and precomputes cycle membership for every node so DependencyContext
// never needs to re-run Tarjan per lookup.
func NewDependencyGraph(edges map[string][]string) *DependencyGraph {
	g := &DependencyGraph{
		edges:   edges,
		reverse: make(map[string][]string),
		inCycle: make(map[string]bool),
	}
	for from, tos := range edges {
		for _, to := range tos {
			g.reverse[to] = append(g.reverse[to], from)
		}
	}
	for _, scc := range tarjanSCC(edges) {
		if len(scc) > 1 {
			for _, node := range scc {
				g.inCycle[node] = true
			}
			continue
		}
		// A single-node component is still a cycle if it has a self-edge.
		node := scc[0]
		for _, to := range edges[node] {
			if to == node {
				g.inCycle[node] = true
			}
		}
	}
	return g
}

// Context returns the dependency context for one address: its direct
// dependencies (sorted), the count of resources transitively depending
// on it, and whether it participates in a dependency cycle.
func (g *DependencyGraph) Context(address string) DependencyContext {
	direct := append([]string(nil), g.edges[address]...)
	sort.Strings(direct)
	return DependencyContext{
		DirectDependencies: direct,
		DownstreamCount:    len(g.downstream(address)),
		InCycle:            g.inCycle[address],
	}
}

// downstream performs a breadth-first walk of the reverse edge set to
// count every resource that transitively depends on address.
func (g *DependencyGraph) downstream(address string) map[string]bool {
	visited := make(map[string]bool)
	queue := append([]string(nil), g.reverse[address]...)
	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]
		if visited[node] {
			continue
		}
		visited[node] = true
		queue = append(queue, g.reverse[node]...)
	}
	return visited
}

// tarjanSCC computes strongly connected components over a directed graph
// given as an adjacency list, using Tarjan's algorithm. Iteration order
// over the node set is sorted for determinism, since Go map iteration is
// not ordered.
func tarjanSCC(edges map[string][]string) [][]string {
	nodeSet := make(map[string]bool)
	for from, tos := range edges {
		nodeSet[from] = true
		for _, to := range tos {
			nodeSet[to] = true
		}
	}
	nodes := make([]string, 0, len(nodeSet))
	for n := range nodeSet {
		nodes = append(nodes, n)
	}
	sort.Strings(nodes)

	state := &tarjanState{
		index:   make(map[string]int),
		lowlink: make(map[string]int),
		onStack: make(map[string]bool),
		edges:   edges,
	}

	var result [][]string
	for _, n := range nodes {
		if _, visited := state.index[n]; !visited {
			state.strongConnect(n, &result)
		}
	}
	return result
}

type tarjanState struct {
	counter int
	index   map[string]int
	lowlink map[string]int
	onStack map[string]bool
	stack   []string
	edges   map[string][]string
}

func (s *tarjanState) strongConnect(v string, result *[][]string) {
	s.index[v] = s.counter
	s.lowlink[v] = s.counter
	s.counter++
	s.stack = append(s.stack, v)
	s.onStack[v] = true

	neighbors := append([]string(nil), s.edges[v]...)
	sort.Strings(neighbors)
	for _, w := range neighbors {
		if _, visited := s.index[w]; !visited {
			s.strongConnect(w, result)
			if s.lowlink[w] < s.lowlink[v] {
				s.lowlink[v] = s.lowlink[w]
			}
		} else if s.onStack[w] {
			if s.index[w] < s.lowlink[v] {
				s.lowlink[v] = s.index[w]
			}
		}
	}

	if s.lowlink[v] == s.index[v] {
		var component []string
		for {
			n := len(s.stack) - 1
			w := s.stack[n]
			s.stack = s.stack[:n]
			s.onStack[w] = false
			component = append(component, w)
			if w == v {
				break
			}
		}
		*result = append(*result, component)
	}
}
