package dtn

import (
	"github.com/asgard/cgrsat/internal/engineerr"
)

// TEGEdge is one per-epoch directed contact snapshot in a
// TimeEvolvingGraph: a scheduled window from From to To.
type TEGEdge struct {
	From     string
	To       string
	Start    int64
	End      int64
	Distance int64
	Rate     int64
}

// TimeEvolvingGraph is a sequence of per-epoch directed snapshots over
// a shared node-id vertex set, bounded by a single overall horizon
// [Start, End] used to size the synthetic src_src/dst_dst sentinels.
type TimeEvolvingGraph struct {
	Edges []TEGEdge
	Start int64
	End   int64
}

// sentinelRate is the large-but-finite stand-in for "infinite rate" on
// the synthetic src_src/dst_dst vertices, matching the union graph's
// convention that these vertices never bottleneck a route.
const sentinelRate = 100000

// ToContactGraph implements §4.3: enumerate all simple paths from
// origin to destination in the snapshot union (multi-edges allowed,
// each a distinct contact window), collect the contacts lying on any
// such path, and wrap them with synthetic src_src/dst_dst sentinels.
// Returns nil, nil if no path exists.
func (t *TimeEvolvingGraph) ToContactGraph(origin, destination string, bounds PathBounds) (*ContactGraph, error) {
	if origin == destination {
		return nil, engineerr.New(engineerr.InvalidArgument, "origin and destination must differ")
	}

	adj := make(map[string][]TEGEdge)
	for _, e := range t.Edges {
		adj[e.From] = append(adj[e.From], e)
	}

	paths := t.allSimplePaths(origin, destination, adj, bounds)
	if len(paths) == 0 {
		return nil, nil
	}

	// Step 3: for each intermediate node on any such path, collect the
	// outgoing edges to the next node along the path — in node-visit
	// order, first-seen, matching the Python reference's iteration
	// order over a dict keyed by node.
	var order []string
	seen := make(map[string]bool)
	perNode := make(map[string][]TEGEdge)
	for _, p := range paths {
		for i := 0; i < len(p)-1; i++ {
			node := p[i]
			next := p[i+1]
			if !seen[node] {
				seen[node] = true
				order = append(order, node)
			}
			for _, e := range adj[node] {
				if e.To == next {
					perNode[node] = append(perNode[node], e)
				}
			}
		}
	}

	vertices := []ContactVertex{
		{FromNode: origin, ToNode: origin, Start: t.Start, End: t.End, Distance: 0, Rate: sentinelRate},
	}
	for _, node := range order {
		for _, e := range dedupeEdges(perNode[node]) {
			vertices = append(vertices, ContactVertex{
				FromNode: e.From,
				ToNode:   e.To,
				Start:    e.Start,
				End:      e.End,
				Distance: e.Distance,
				Rate:     e.Rate,
			})
		}
	}
	vertices = append(vertices, ContactVertex{
		FromNode: destination, ToNode: destination, Start: t.Start, End: t.End, Distance: 0, Rate: sentinelRate,
	})

	edges := DeriveEdges(vertices)
	return NewContactGraph(vertices, edges), nil
}

// dedupeEdges drops exact duplicate contact windows that the path
// enumeration may have collected more than once via different
// candidate paths sharing the same hop.
func dedupeEdges(edges []TEGEdge) []TEGEdge {
	seen := make(map[TEGEdge]bool, len(edges))
	out := make([]TEGEdge, 0, len(edges))
	for _, e := range edges {
		if seen[e] {
			continue
		}
		seen[e] = true
		out = append(out, e)
	}
	return out
}

// allSimplePaths enumerates simple node-id paths (not contact-vertex
// paths) from origin to destination over the snapshot union, bounded
// the same way ContactGraph.AllRoutes is bounded.
func (t *TimeEvolvingGraph) allSimplePaths(origin, destination string, adj map[string][]TEGEdge, bounds PathBounds) [][]string {
	var paths [][]string
	visited := map[string]bool{origin: true}
	path := []string{origin}

	neighbors := func(node string) []string {
		var out []string
		dup := make(map[string]bool)
		for _, e := range adj[node] {
			if !dup[e.To] {
				dup[e.To] = true
				out = append(out, e.To)
			}
		}
		return out
	}

	var dfs func(node string)
	dfs = func(node string) {
		if len(paths) >= bounds.MaxPaths || len(path) > bounds.MaxPathLen {
			return
		}
		if node == destination {
			cp := make([]string, len(path))
			copy(cp, path)
			paths = append(paths, cp)
			return
		}
		for _, next := range neighbors(node) {
			if visited[next] || len(paths) >= bounds.MaxPaths {
				continue
			}
			visited[next] = true
			path = append(path, next)
			dfs(next)
			path = path[:len(path)-1]
			visited[next] = false
		}
	}

	dfs(origin)
	return paths
}
