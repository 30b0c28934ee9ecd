package dtn

import (
	"sort"
	"strings"

	"github.com/asgard/cgrsat/pkg/bundle"
)

// ContactVertex is one vertex of a ContactGraph: a single contact
// (directed node-to-node window), or one of the two synthetic
// sentinels src_src / dst_dst.
type ContactVertex struct {
	FromNode string
	ToNode   string
	Start    int64
	End      int64
	Distance int64
	Rate     int64
}

// Label is the "from-to" token the original routing tables key
// per-hop attributes by.
func (v ContactVertex) Label() string {
	return v.FromNode + "-" + v.ToNode
}

// Volume is the contact's carrying capacity in bytes over its window.
func (v ContactVertex) Volume() int64 {
	return v.Rate * (v.End - v.Start)
}

// ContactGraph is the DAG of contacts described in §3: vertex 0 is
// src_src, vertex n-1 is dst_dst, and a directed edge u→v exists iff
// u.ToNode == v.ToNode's counterpart, i.e. u.ToNode == v.FromNode.
type ContactGraph struct {
	vertices []ContactVertex
	adj      [][]int
}

// DeriveEdges computes the ContactGraph adjacency rule directly from
// vertex attributes: u→v iff u.ToNode == v.FromNode, excluding
// self-loops and any edge leaving the terminal dst_dst vertex.
func DeriveEdges(vertices []ContactVertex) [][2]int {
	n := len(vertices)
	var edges [][2]int
	last := n - 1
	for u := 0; u < n; u++ {
		if u == last {
			continue
		}
		for v := 0; v < n; v++ {
			if u == v {
				continue
			}
			if vertices[u].ToNode == vertices[v].FromNode {
				edges = append(edges, [2]int{u, v})
			}
		}
	}
	return edges
}

// NewContactGraph builds a ContactGraph from an explicit vertex list
// and edge list (the edge list is normally produced by DeriveEdges,
// which the TimeEvolvingGraph conversion in §4.3 also uses).
func NewContactGraph(vertices []ContactVertex, edges [][2]int) *ContactGraph {
	adj := make([][]int, len(vertices))
	for _, e := range edges {
		adj[e[0]] = append(adj[e[0]], e[1])
	}
	return &ContactGraph{vertices: vertices, adj: adj}
}

// PathBounds caps the cost of simple-path enumeration, which is
// exponential in the worst case. MaxPathLen bounds the number of
// vertices considered per candidate path; MaxPaths caps the number of
// complete paths collected before enumeration stops early.
type PathBounds struct {
	MaxPathLen int
	MaxPaths   int
}

// DefaultPathBounds is a conservative bound suitable for contact plans
// with a few dozen scheduled windows.
func DefaultPathBounds() PathBounds {
	return PathBounds{MaxPathLen: 64, MaxPaths: 4096}
}

// AllRoutes enumerates every simple path from src_src (vertex 0) to
// dst_dst (vertex n-1), sorted by hop count ascending, summarised into
// Routes per §3, dropping any whose aggregate rate is zero.
func (g *ContactGraph) AllRoutes(bounds PathBounds) []*bundle.Route {
	n := len(g.vertices)
	if n == 0 {
		return nil
	}
	last := n - 1

	var paths [][]int
	visited := make([]bool, n)
	var path []int

	var dfs func(u int)
	dfs = func(u int) {
		if len(paths) >= bounds.MaxPaths {
			return
		}
		if len(path) > bounds.MaxPathLen {
			return
		}
		if u == last {
			cp := make([]int, len(path))
			copy(cp, path)
			paths = append(paths, cp)
			return
		}
		for _, v := range g.adj[u] {
			if visited[v] || len(paths) >= bounds.MaxPaths {
				continue
			}
			visited[v] = true
			path = append(path, v)
			dfs(v)
			path = path[:len(path)-1]
			visited[v] = false
		}
	}

	visited[0] = true
	path = append(path, 0)
	dfs(0)

	sort.SliceStable(paths, func(i, j int) bool { return len(paths[i]) < len(paths[j]) })

	routes := make([]*bundle.Route, 0, len(paths))
	for _, p := range paths {
		if r := g.summarize(p); r != nil {
			routes = append(routes, r)
		}
	}
	return routes
}

// GetRoutes returns the first K summarised routes (all, if K==0).
func (g *ContactGraph) GetRoutes(k int, bounds PathBounds) []*bundle.Route {
	all := g.AllRoutes(bounds)
	if k == 0 || k >= len(all) {
		return all
	}
	return all[:k]
}

// summarize turns a vertex-index path (src_src ... dst_dst) into a
// Route, per §3: rate is the minimum hop volume, total_time is the
// forward scan t ← max(t, c_i.start) + c_i.distance over every real
// hop (the path excluding the two synthetic sentinels).
func (g *ContactGraph) summarize(path []int) *bundle.Route {
	hops := path
	if len(hops) >= 2 {
		hops = hops[1 : len(hops)-1]
	} else {
		hops = nil
	}
	if len(hops) == 0 {
		return nil
	}

	route := &bundle.Route{
		StartTime: make(map[string]int64, len(hops)),
		EndTime:   make(map[string]int64, len(hops)),
		Distance:  make(map[string]int64, len(hops)),
	}

	rate := int64(-1)
	var totalTime int64
	var nodes []string
	var last string

	for _, idx := range hops {
		v := g.vertices[idx]
		from, to, ok := strings.Cut(v.Label(), "-")
		if !ok {
			continue
		}
		route.StartTime[to] = v.Start
		route.EndTime[to] = v.End
		route.Distance[to] = v.Distance

		vol := v.Volume()
		if rate < 0 || vol < rate {
			rate = vol
		}
		totalTime = maxInt64(totalTime, v.Start) + v.Distance

		if len(nodes) == 0 {
			nodes = append(nodes, from)
		}
		nodes = append(nodes, to)
		last = to
	}
	_ = last

	if rate <= 0 {
		return nil
	}

	route.Path = nodes
	route.Rate = rate
	route.TotalTime = totalTime
	return route
}

func maxInt64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}
