package bundle

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/asgard/cgrsat/internal/engineerr"
)

// delimiter separates wire fields. Chosen to avoid collision with any
// character that can legitimately appear in a node id or payload text.
const delimiter = "|||"

// sizePlaceholder occupies the size field while the rest of the
// encoding is measured; it is the same width as the final stamp.
const sizePlaceholder = "00000000"

const fieldCount = 11

// Encode renders a bundle to its wire form: fields joined by "|||" in
// order source, destination, size, priority, critical, custody,
// fragment, deadline, payload, route_repr, next_hop. size is computed
// by encoding once with a placeholder, measuring the result, and
// restamping — so the stamped value always equals the encoding's own
// length, size field included.
func Encode(b *Bundle) (string, error) {
	routeRepr, err := encodeRouteRepr(b.AssignedRoute)
	if err != nil {
		return "", engineerr.Wrap(err, engineerr.InvalidEncoding, "encoding route_repr")
	}

	fields := []string{
		b.Source,
		b.Destination,
		sizePlaceholder,
		strconv.Itoa(b.Priority),
		boolDigit(b.Critical),
		boolDigit(b.CustodyRequested),
		boolDigit(b.Fragmentable),
		strconv.FormatInt(b.Deadline, 10),
		string(b.Payload),
		routeRepr,
		b.NextHop,
	}
	placeholder := strings.Join(fields, delimiter)

	size := len(placeholder)
	fields[2] = stampSize(size)
	final := strings.Join(fields, delimiter)

	return final, nil
}

// Marshal is Encode with the stamped SizeBytes written back onto b, as
// the engine's record of its own encoded length.
func Marshal(b *Bundle) (string, error) {
	encoded, err := Encode(b)
	if err != nil {
		return "", err
	}
	b.SizeBytes = len(encoded)
	return encoded, nil
}

// Decode parses a bundle from its wire form. It fails with
// InvalidEncoding on a mismatched field count or a non-numeric
// size/priority/deadline; route_repr and next_hop may both be absent
// (9-field input), matching newly generated bundles that have not yet
// been assigned a route.
func Decode(wire string) (*Bundle, error) {
	fields := strings.Split(wire, delimiter)
	if len(fields) < 9 || len(fields) > fieldCount {
		return nil, engineerr.New(engineerr.InvalidEncoding,
			"expected 9 to 11 "+delimiter+"-delimited fields, got "+strconv.Itoa(len(fields)))
	}

	size, err := strconv.Atoi(fields[2])
	if err != nil {
		return nil, engineerr.Wrap(err, engineerr.InvalidEncoding, "non-numeric size field")
	}
	priority, err := strconv.Atoi(fields[3])
	if err != nil {
		return nil, engineerr.Wrap(err, engineerr.InvalidEncoding, "non-numeric priority field")
	}
	deadline, err := strconv.ParseInt(fields[7], 10, 64)
	if err != nil {
		return nil, engineerr.Wrap(err, engineerr.InvalidEncoding, "non-numeric deadline field")
	}

	b := New(fields[0], fields[1], []byte(fields[8]), priority)
	b.SizeBytes = size
	b.Critical = fields[4] == "1"
	b.CustodyRequested = fields[5] == "1"
	b.Fragmentable = fields[6] == "1"
	b.Deadline = deadline

	if len(fields) >= 10 && fields[9] != "" && fields[9] != "None" {
		route, err := decodeRouteRepr(fields[9])
		if err != nil {
			return nil, engineerr.Wrap(err, engineerr.InvalidEncoding, "decoding route_repr")
		}
		b.AssignedRoute = route
	}
	if len(fields) >= 11 && fields[10] != "" && fields[10] != "None" {
		b.NextHop = fields[10]
	}

	return b, nil
}

// Unmarshal is Decode under the teacher's Marshal/Unmarshal naming
// convention, taking bytes instead of a string.
func Unmarshal(data []byte) (*Bundle, error) {
	return Decode(string(data))
}

func stampSize(n int) string {
	s := strconv.Itoa(n)
	for len(s) < 8 {
		s = "0" + s
	}
	return s
}

func boolDigit(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

// encodeRouteRepr is the route_repr sub-codec: a JSON dump sufficient
// to reconstruct path, start_time, end_time, distance, rate, and
// total_time. A bundle with no assigned route encodes to "None", the
// same sentinel a plain textual dump of a missing value would produce.
func encodeRouteRepr(r *Route) (string, error) {
	if r == nil {
		return "None", nil
	}
	data, err := json.Marshal(r)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func decodeRouteRepr(repr string) (*Route, error) {
	var r Route
	if err := json.Unmarshal([]byte(repr), &r); err != nil {
		return nil, err
	}
	return &r, nil
}
