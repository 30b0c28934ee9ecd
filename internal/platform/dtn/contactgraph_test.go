package dtn

import "testing"

func linearChainVertices() []ContactVertex {
	return []ContactVertex{
		{FromNode: "A", ToNode: "A", Start: 0, End: 20, Distance: 0, Rate: 1 << 30},
		{FromNode: "A", ToNode: "B", Start: 0, End: 10, Distance: 1, Rate: 100},
		{FromNode: "B", ToNode: "C", Start: 2, End: 12, Distance: 1, Rate: 100},
		{FromNode: "C", ToNode: "C", Start: 0, End: 20, Distance: 0, Rate: 1 << 30},
	}
}

func TestAllRoutesLinearChain(t *testing.T) {
	vertices := linearChainVertices()
	g := NewContactGraph(vertices, DeriveEdges(vertices))

	routes := g.AllRoutes(DefaultPathBounds())
	if len(routes) != 1 {
		t.Fatalf("expected exactly 1 route, got %d", len(routes))
	}

	r := routes[0]
	wantPath := []string{"A", "B", "C"}
	if len(r.Path) != len(wantPath) {
		t.Fatalf("path = %v, want %v", r.Path, wantPath)
	}
	for i := range wantPath {
		if r.Path[i] != wantPath[i] {
			t.Fatalf("path = %v, want %v", r.Path, wantPath)
		}
	}
	if r.TotalTime != 3 {
		t.Errorf("TotalTime = %d, want 3", r.TotalTime)
	}
	if r.Rate != 1000 {
		t.Errorf("Rate = %d, want 1000", r.Rate)
	}
	if r.StartTime["C"] != 2 || r.EndTime["C"] != 12 {
		t.Errorf("hop C timing = start %d end %d, want start 2 end 12", r.StartTime["C"], r.EndTime["C"])
	}
}

func TestAllRoutesSortedByHopCountAscending(t *testing.T) {
	vertices := []ContactVertex{
		{FromNode: "A", ToNode: "A", Start: 0, End: 20, Rate: 1 << 30},
		{FromNode: "A", ToNode: "B", Start: 0, End: 10, Distance: 1, Rate: 100},
		{FromNode: "B", ToNode: "C", Start: 2, End: 12, Distance: 1, Rate: 100},
		{FromNode: "A", ToNode: "C", Start: 0, End: 10, Distance: 1, Rate: 50},
		{FromNode: "C", ToNode: "C", Start: 0, End: 20, Rate: 1 << 30},
	}
	g := NewContactGraph(vertices, DeriveEdges(vertices))

	routes := g.AllRoutes(DefaultPathBounds())
	if len(routes) != 2 {
		t.Fatalf("expected 2 routes, got %d", len(routes))
	}
	if len(routes[0].Path) > len(routes[1].Path) {
		t.Errorf("routes not sorted by hop count ascending: %v then %v", routes[0].Path, routes[1].Path)
	}
}

func TestAllRoutesDropsZeroRate(t *testing.T) {
	vertices := []ContactVertex{
		{FromNode: "A", ToNode: "A", Start: 0, End: 20, Rate: 1 << 30},
		{FromNode: "A", ToNode: "B", Start: 0, End: 10, Distance: 1, Rate: 0},
		{FromNode: "B", ToNode: "C", Start: 2, End: 12, Distance: 1, Rate: 100},
		{FromNode: "C", ToNode: "C", Start: 0, End: 20, Rate: 1 << 30},
	}
	g := NewContactGraph(vertices, DeriveEdges(vertices))

	routes := g.AllRoutes(DefaultPathBounds())
	if len(routes) != 0 {
		t.Fatalf("expected zero-rate route to be dropped, got %d routes", len(routes))
	}
}

func TestGetRoutesLimitsCount(t *testing.T) {
	vertices := linearChainVertices()
	g := NewContactGraph(vertices, DeriveEdges(vertices))

	routes := g.GetRoutes(0, DefaultPathBounds())
	if len(routes) != 1 {
		t.Fatalf("K=0 should return all routes, got %d", len(routes))
	}
}
