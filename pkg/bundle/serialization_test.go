package bundle

import (
	"testing"

	"github.com/asgard/cgrsat/internal/engineerr"
)

func TestEncodeDecodeRoundTripNoRoute(t *testing.T) {
	b := New("A", "C", []byte("hello dtn"), 2)
	b.Deadline = 120
	b.Critical = true

	wire, err := Marshal(b)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	got, err := Decode(wire)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}

	if got.Source != b.Source || got.Destination != b.Destination {
		t.Errorf("source/destination mismatch: got %s/%s want %s/%s", got.Source, got.Destination, b.Source, b.Destination)
	}
	if string(got.Payload) != string(b.Payload) {
		t.Errorf("payload mismatch: got %q want %q", got.Payload, b.Payload)
	}
	if got.Priority != b.Priority || got.Deadline != b.Deadline || got.Critical != b.Critical {
		t.Errorf("scalar field mismatch: got %+v", got)
	}
	if got.SizeBytes != b.SizeBytes {
		t.Errorf("SizeBytes = %d, want %d", got.SizeBytes, b.SizeBytes)
	}
	if got.HasRoute() {
		t.Error("expected no route on decoded bundle")
	}
}

func TestEncodeDecodeRoundTripWithRoute(t *testing.T) {
	b := New("A", "C", []byte("payload"), 1)
	b.AssignedRoute = &Route{
		Path:      []string{"A", "B", "C"},
		StartTime: map[string]int64{"B": 0, "C": 2},
		EndTime:   map[string]int64{"B": 10, "C": 12},
		Distance:  map[string]int64{"B": 1, "C": 1},
		Rate:      100,
		TotalTime: 3,
	}
	b.NextHop = "B"

	wire, err := Marshal(b)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	got, err := Decode(wire)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}

	if !got.HasRoute() {
		t.Fatal("expected decoded bundle to carry a route")
	}
	if len(got.AssignedRoute.Path) != 3 || got.AssignedRoute.Path[2] != "C" {
		t.Errorf("route path mismatch: %+v", got.AssignedRoute.Path)
	}
	if got.AssignedRoute.TotalTime != 3 || got.AssignedRoute.Rate != 100 {
		t.Errorf("route summary mismatch: %+v", got.AssignedRoute)
	}
	if got.NextHop != "B" {
		t.Errorf("NextHop = %q, want B", got.NextHop)
	}
}

func TestSizeStampMatchesEncodedLength(t *testing.T) {
	b := New("sat1", "ground0", []byte("telemetry batch"), 3)
	wire, err := Marshal(b)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if b.SizeBytes != len(wire) {
		t.Errorf("SizeBytes = %d, want %d (encoded length)", b.SizeBytes, len(wire))
	}

	decoded, err := Decode(wire)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if decoded.SizeBytes != len(wire) {
		t.Errorf("decoded SizeBytes = %d, want %d", decoded.SizeBytes, len(wire))
	}
}

func TestDecodeToleratesNineFieldInput(t *testing.T) {
	wire := "A" + delimiter + "C" + delimiter + "00000010" + delimiter + "1" +
		delimiter + "0" + delimiter + "0" + delimiter + "1" + delimiter + "0" + delimiter + "hi"

	got, err := Decode(wire)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got.HasRoute() {
		t.Error("9-field input should decode with no route")
	}
	if got.NextHop != "" {
		t.Errorf("NextHop = %q, want empty", got.NextHop)
	}
}

func TestDecodeRejectsBadFieldCount(t *testing.T) {
	_, err := Decode("only" + delimiter + "two")
	if !engineerr.Is(err, engineerr.InvalidEncoding) {
		t.Fatalf("expected InvalidEncoding, got %v", err)
	}
}

func TestDecodeRejectsNonNumericSize(t *testing.T) {
	wire := "A" + delimiter + "C" + delimiter + "notanumber" + delimiter + "1" +
		delimiter + "0" + delimiter + "0" + delimiter + "1" + delimiter + "0" + delimiter + "hi"
	_, err := Decode(wire)
	if !engineerr.Is(err, engineerr.InvalidEncoding) {
		t.Fatalf("expected InvalidEncoding, got %v", err)
	}
}

func TestDecodeRejectsNonNumericDeadline(t *testing.T) {
	wire := "A" + delimiter + "C" + delimiter + "00000010" + delimiter + "1" +
		delimiter + "0" + delimiter + "0" + delimiter + "1" + delimiter + "soon" + delimiter + "hi"
	_, err := Decode(wire)
	if !engineerr.Is(err, engineerr.InvalidEncoding) {
		t.Fatalf("expected InvalidEncoding, got %v", err)
	}
}
