package dtn

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/asgard/cgrsat/internal/platform/db"
	"github.com/asgard/cgrsat/pkg/bundle"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// RouteCache persists a node's own computed RouteTable across
// restarts, keyed by a fingerprint of the time-graph file it was
// loaded from. This is explicitly single-node: it is never read by, or
// written from, any other node, and is not a substitute for the
// inter-node route dissemination the engine does not implement.
type RouteCache struct {
	mongo *db.MongoDB
}

// NewRouteCache binds a cache to the node's routecache collection.
func NewRouteCache(mongo *db.MongoDB) *RouteCache {
	return &RouteCache{mongo: mongo}
}

// Fingerprint hashes the raw time-graph document so a cache entry is
// invalidated automatically whenever the on-disk contact plan changes.
func Fingerprint(timeGraphJSON []byte) string {
	sum := sha256.Sum256(timeGraphJSON)
	return hex.EncodeToString(sum[:])
}

type cachedRouteTable struct {
	Fingerprint string                     `bson:"fingerprint"`
	Destination string                     `bson:"destination"`
	Routes      []cachedRoute              `bson:"routes"`
	CachedAt    time.Time                  `bson:"cached_at"`
}

type cachedRoute struct {
	Path      []string         `bson:"path"`
	StartTime map[string]int64 `bson:"start_time"`
	EndTime   map[string]int64 `bson:"end_time"`
	Distance  map[string]int64 `bson:"distance"`
	Rate      int64            `bson:"rate"`
	TotalTime int64            `bson:"total_time"`
}

// Store caches every destination's route list under fingerprint,
// replacing any prior entry for the same (fingerprint, destination).
func (c *RouteCache) Store(ctx context.Context, fingerprint string, table *RouteTable) error {
	coll := c.mongo.Collection("dtn_route_cache")

	for destination, routes := range table.routes {
		doc := cachedRouteTable{
			Fingerprint: fingerprint,
			Destination: destination,
			Routes:      toCachedRoutes(routes),
			CachedAt:    time.Now().UTC(),
		}
		filter := bson.M{"fingerprint": fingerprint, "destination": destination}
		opts := options.Replace().SetUpsert(true)
		if _, err := coll.ReplaceOne(ctx, filter, doc, opts); err != nil {
			return err
		}
	}
	return nil
}

// Load retrieves a previously cached RouteTable for fingerprint, or
// (nil, false) if nothing is cached yet.
func (c *RouteCache) Load(ctx context.Context, fingerprint string) (*RouteTable, bool, error) {
	coll := c.mongo.Collection("dtn_route_cache")

	cursor, err := coll.Find(ctx, bson.M{"fingerprint": fingerprint})
	if err != nil {
		return nil, false, err
	}
	defer cursor.Close(ctx)

	table := newRouteTable()
	found := false
	for cursor.Next(ctx) {
		var doc cachedRouteTable
		if err := cursor.Decode(&doc); err != nil {
			return nil, false, err
		}
		table.Set(doc.Destination, fromCachedRoutes(doc.Routes))
		found = true
	}
	if err := cursor.Err(); err != nil {
		return nil, false, err
	}
	if !found {
		return nil, false, nil
	}
	return table, true, nil
}

func toCachedRoutes(routes []*bundle.Route) []cachedRoute {
	out := make([]cachedRoute, len(routes))
	for i, r := range routes {
		out[i] = cachedRoute{
			Path:      r.Path,
			StartTime: r.StartTime,
			EndTime:   r.EndTime,
			Distance:  r.Distance,
			Rate:      r.Rate,
			TotalTime: r.TotalTime,
		}
	}
	return out
}

func fromCachedRoutes(routes []cachedRoute) []*bundle.Route {
	out := make([]*bundle.Route, len(routes))
	for i, r := range routes {
		out[i] = &bundle.Route{
			Path:      r.Path,
			StartTime: r.StartTime,
			EndTime:   r.EndTime,
			Distance:  r.Distance,
			Rate:      r.Rate,
			TotalTime: r.TotalTime,
		}
	}
	return out
}
