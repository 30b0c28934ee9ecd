package dtn

import (
	"encoding/json"
	"sort"
	"sync"

	"github.com/asgard/cgrsat/internal/engineerr"
	"github.com/asgard/cgrsat/pkg/bundle"
)

// RouteTable maps a destination node id to its ordered route list,
// ordered by hop count ascending (ties stable), and the address table
// used to reach immediate neighbors over the transport.
type RouteTable struct {
	mu        sync.RWMutex
	routes    map[string][]*bundle.Route
	addresses map[string]NodeAddress
}

// NodeAddress is a transport endpoint for a node id, taken from a
// time-graph file's "addresses" map.
type NodeAddress struct {
	Host string
	Port int
}

func newRouteTable() *RouteTable {
	return &RouteTable{
		routes:    make(map[string][]*bundle.Route),
		addresses: make(map[string]NodeAddress),
	}
}

// Routes returns the ordered route list for a destination, or nil if
// none is known.
func (t *RouteTable) Routes(destination string) []*bundle.Route {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.routes[destination]
}

// Address returns the known transport endpoint for a node id.
func (t *RouteTable) Address(nodeID string) (NodeAddress, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	a, ok := t.addresses[nodeID]
	return a, ok
}

// Set replaces the route list for a destination, e.g. after an
// operator refresh or a route-cache hit.
func (t *RouteTable) Set(destination string, routes []*bundle.Route) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.routes[destination] = routes
}

// routeJSON is the pre-computed route shape: a Route summary dumped
// directly into the time-graph file, ready to load verbatim.
type routeJSON struct {
	Path      []string         `json:"path"`
	StartTime map[string]int64 `json:"start_time"`
	EndTime   map[string]int64 `json:"end_time"`
	Distance  map[string]int64 `json:"distance"`
	Rate      int64            `json:"rate"`
	TotalTime int64            `json:"total_time"`
}

// contactGraphJSON is the raw-adjacency shape: a contact graph
// description from which routes are derived at load time via
// ContactGraph.AllRoutes, matching the source's variant that loads a
// contact plan and computes routes on the fly instead of loading them
// pre-computed.
type contactGraphJSON struct {
	Vertices []struct {
		From     string `json:"from"`
		To       string `json:"to"`
		Start    int64  `json:"start"`
		End      int64  `json:"end"`
		Distance int64  `json:"distance"`
		Rate     int64  `json:"rate"`
	} `json:"vertices"`
	Edges [][2]int `json:"edges"`
}

// LoadRouteTable parses a time-graph JSON document per §6/§7.1: the
// "addresses" key feeds the address table; every other top-level key
// is a destination, whose routes are loaded verbatim if the value is
// an array of route summaries, or derived via all_routes() if it is a
// contact-graph description.
func LoadRouteTable(data []byte, bounds PathBounds) (*RouteTable, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, engineerr.Wrap(err, engineerr.InvalidArgument, "time-graph file is not valid JSON")
	}

	table := newRouteTable()

	if addrRaw, ok := raw["addresses"]; ok {
		var addrs map[string][]interface{}
		if err := json.Unmarshal(addrRaw, &addrs); err != nil {
			return nil, engineerr.Wrap(err, engineerr.InvalidArgument, "malformed addresses map")
		}
		for node, pair := range addrs {
			addr, err := parseNodeAddress(pair)
			if err != nil {
				return nil, engineerr.Wrap(err, engineerr.InvalidArgument, "address for "+node)
			}
			table.addresses[node] = addr
		}
		delete(raw, "addresses")
	}

	for dest, value := range raw {
		routes, err := decodeDestinationRoutes(value, bounds)
		if err != nil {
			return nil, engineerr.Wrap(err, engineerr.InvalidArgument, "destination "+dest+" in time-graph file")
		}
		sort.SliceStable(routes, func(i, j int) bool { return len(routes[i].Path) < len(routes[j].Path) })
		table.routes[dest] = routes
	}

	return table, nil
}

// parseNodeAddress accepts the [host, port] pair documented in §6. host
// may be a JSON string or number (the source's earlier variants stored
// a bare port and assumed localhost); port must be numeric.
func parseNodeAddress(pair []interface{}) (NodeAddress, error) {
	if len(pair) != 2 {
		return NodeAddress{}, engineerr.New(engineerr.InvalidArgument, "address must be a [host, port] pair")
	}
	host := "127.0.0.1"
	if s, ok := pair[0].(string); ok && s != "" {
		host = s
	}
	port, ok := pair[1].(float64)
	if !ok {
		return NodeAddress{}, engineerr.New(engineerr.InvalidArgument, "port must be numeric")
	}
	return NodeAddress{Host: host, Port: int(port)}, nil
}

func decodeDestinationRoutes(value json.RawMessage, bounds PathBounds) ([]*bundle.Route, error) {
	var asRoutes []routeJSON
	if err := json.Unmarshal(value, &asRoutes); err == nil && routeJSONLooksValid(asRoutes) {
		routes := make([]*bundle.Route, len(asRoutes))
		for i, r := range asRoutes {
			routes[i] = &bundle.Route{
				Path:      r.Path,
				StartTime: r.StartTime,
				EndTime:   r.EndTime,
				Distance:  r.Distance,
				Rate:      r.Rate,
				TotalTime: r.TotalTime,
			}
		}
		return routes, nil
	}

	var desc contactGraphJSON
	if err := json.Unmarshal(value, &desc); err != nil {
		return nil, engineerr.New(engineerr.InvalidArgument, "value is neither a route array nor a contact-graph description")
	}
	vertices := make([]ContactVertex, len(desc.Vertices))
	for i, v := range desc.Vertices {
		vertices[i] = ContactVertex{FromNode: v.From, ToNode: v.To, Start: v.Start, End: v.End, Distance: v.Distance, Rate: v.Rate}
	}
	edges := desc.Edges
	if edges == nil {
		edges = DeriveEdges(vertices)
	}
	g := NewContactGraph(vertices, edges)
	return g.AllRoutes(bounds), nil
}

// routeJSONLooksValid accepts an empty array as "no routes known" and
// rejects an array in which any element lacks a "path" (for example
// `[{}]`), so such a value falls through to the contact-graph shape. A
// bare object never reaches this check: it fails slice unmarshalling
// outright.
func routeJSONLooksValid(routes []routeJSON) bool {
	if len(routes) == 0 {
		return true
	}
	for _, r := range routes {
		if r.Path == nil {
			return false
		}
	}
	return true
}
