package dtn

import (
	"testing"

	"github.com/asgard/cgrsat/pkg/bundle"
)

func TestFingerprintIsStableAndSensitiveToContent(t *testing.T) {
	a := Fingerprint([]byte(`{"addresses":{}}`))
	b := Fingerprint([]byte(`{"addresses":{}}`))
	c := Fingerprint([]byte(`{"addresses":{"A":["127.0.0.1",9000]}}`))

	if a != b {
		t.Fatalf("fingerprint not stable across identical input: %q vs %q", a, b)
	}
	if a == c {
		t.Fatal("fingerprint did not change when contact plan content changed")
	}
	if len(a) != 64 {
		t.Fatalf("expected a 64-char hex sha256 digest, got length %d", len(a))
	}
}

func TestCachedRouteRoundTrip(t *testing.T) {
	routes := []*bundle.Route{
		{
			Path:      []string{"A", "B", "C"},
			StartTime: map[string]int64{"B": 0, "C": 1},
			EndTime:   map[string]int64{"B": 10, "C": 10},
			Distance:  map[string]int64{"B": 1, "C": 1},
			Rate:      1000,
			TotalTime: 3,
		},
	}

	cached := toCachedRoutes(routes)
	restored := fromCachedRoutes(cached)

	if len(restored) != 1 {
		t.Fatalf("expected 1 restored route, got %d", len(restored))
	}
	r := restored[0]
	if len(r.Path) != 3 || r.Path[2] != "C" {
		t.Fatalf("path not preserved: %v", r.Path)
	}
	if r.TotalTime != 3 || r.Rate != 1000 {
		t.Fatalf("scalar fields not preserved: total_time=%d rate=%d", r.TotalTime, r.Rate)
	}
	if r.EndTime["C"] != 10 || r.StartTime["B"] != 0 {
		t.Fatalf("per-hop maps not preserved: %+v", r)
	}
}
