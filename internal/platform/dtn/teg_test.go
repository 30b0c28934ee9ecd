package dtn

import (
	"testing"

	"github.com/asgard/cgrsat/internal/engineerr"
)

func sampleTEG() *TimeEvolvingGraph {
	return &TimeEvolvingGraph{
		Start: 0,
		End:   3,
		Edges: []TEGEdge{
			{From: "A", To: "B", Start: 0, End: 1, Distance: 1, Rate: 2},
			{From: "A", To: "B", Start: 2, End: 3, Distance: 2, Rate: 3},
			{From: "B", To: "C", Start: 1, End: 3, Distance: 1, Rate: 1},
			{From: "A", To: "C", Start: 2, End: 3, Distance: 1, Rate: 1},
			{From: "C", To: "A", Start: 0, End: 3, Distance: 1, Rate: 2},
		},
	}
}

func TestToContactGraphRejectsSelfRoute(t *testing.T) {
	teg := sampleTEG()
	_, err := teg.ToContactGraph("A", "A", DefaultPathBounds())
	if !engineerr.Is(err, engineerr.InvalidArgument) {
		t.Fatalf("expected InvalidArgument, got %v", err)
	}
}

func TestToContactGraphNoPathReturnsNil(t *testing.T) {
	teg := &TimeEvolvingGraph{Start: 0, End: 3, Edges: []TEGEdge{
		{From: "A", To: "B", Start: 0, End: 1, Distance: 1, Rate: 2},
	}}
	g, err := teg.ToContactGraph("A", "Z", DefaultPathBounds())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if g != nil {
		t.Fatal("expected nil ContactGraph when no path exists")
	}
}

func TestToContactGraphUnionMultiEdges(t *testing.T) {
	teg := sampleTEG()
	g, err := teg.ToContactGraph("A", "C", DefaultPathBounds())
	if err != nil {
		t.Fatalf("ToContactGraph: %v", err)
	}
	if g == nil {
		t.Fatal("expected a ContactGraph")
	}

	routes := g.AllRoutes(DefaultPathBounds())
	if len(routes) != 3 {
		t.Fatalf("expected 3 routes (1 direct + 2 via B), got %d", len(routes))
	}

	// Routes are sorted by hop count ascending: the direct A-C hop first.
	direct := routes[0]
	if len(direct.Path) != 2 || direct.Path[0] != "A" || direct.Path[1] != "C" {
		t.Fatalf("first route path = %v, want [A C]", direct.Path)
	}
	if direct.Rate != 1 || direct.TotalTime != 3 {
		t.Errorf("direct route rate/total_time = %d/%d, want 1/3", direct.Rate, direct.TotalTime)
	}

	gotRates := map[int64]int{}
	gotTimes := map[int64]int{}
	for _, r := range routes[1:] {
		if len(r.Path) != 3 || r.Path[0] != "A" || r.Path[1] != "B" || r.Path[2] != "C" {
			t.Errorf("via-B route path = %v, want [A B C]", r.Path)
		}
		gotRates[r.Rate]++
		gotTimes[r.TotalTime]++
	}
	if gotRates[2] != 2 {
		t.Errorf("expected both via-B routes to have rate 2, got rate histogram %v", gotRates)
	}
	if gotTimes[2] != 1 || gotTimes[5] != 1 {
		t.Errorf("expected via-B total_times {2,5}, got %v", gotTimes)
	}
}
