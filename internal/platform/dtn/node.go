package dtn

import (
	"context"
	"os"
	"time"

	"github.com/asgard/cgrsat/internal/engineerr"
	"github.com/asgard/cgrsat/internal/platform/db"
	"github.com/asgard/cgrsat/internal/platform/observability"
	"github.com/asgard/cgrsat/internal/platform/tracing"
	"github.com/asgard/cgrsat/internal/utils"
	"github.com/asgard/cgrsat/pkg/bundle"
)

// NodeConfig collects everything a Node needs to start: its identity,
// the priority domain it forwards over, and the optional durable
// backends. Audit, route cache, and tracing are all optional; a Node
// with none of them still forwards correctly, just without a
// persistent trail.
type NodeConfig struct {
	NodeID          string
	PriorityCount   int
	Transport       TransportConfig
	Audit           AuditStorage
	RouteCache      *RouteCache
	TracingProvider *tracing.Provider
}

// Node wires C2–C7 into one running process: a RouteTable loaded from
// a time-graph file, a ForwardingEngine over it, a Transport talking
// UDP to the space collaborator, and a ContactScheduler driving the
// single-threaded receive loop. Audit, metrics, and tracing sit beside
// the hot path and never gate it.
type Node struct {
	id         string
	config     NodeConfig
	table      *RouteTable
	engine     *ForwardingEngine
	transport  *Transport
	scheduler  *ContactScheduler
	audit      AuditStorage
	routeCache *RouteCache
	tracing    *tracing.Provider
	logger     *utils.Logger
}

// transportSender adapts a Transport plus the node's own RouteTable
// into the forwarding engine's Sender interface: the engine knows only
// a next-hop node id, the transport needs that id's (host, port).
type transportSender struct {
	node      *Node
	transport *Transport
	table     *RouteTable
}

func (s *transportSender) Send(b *bundle.Bundle) error {
	addr, ok := s.table.Address(b.NextHop)
	if !ok {
		return engineerr.New(engineerr.NoRoute, "no known address for next hop "+b.NextHop)
	}
	if err := s.transport.SendToSpace(b, addr, b.NextHop); err != nil {
		observability.RecordBundleDropped("send_error")
		return err
	}
	observability.RecordBundleSent(b.Priority, b.NextHop)
	s.node.recordAudit(AuditSent, b, "")
	return nil
}

// NewNode loads a time-graph file, builds the route table, engine, and
// transport, and returns a Node ready to Run. timeGraphData is the
// raw bytes of the JSON file named on the CLI; the node keeps its
// fingerprint for route-cache lookups.
func NewNode(ctx context.Context, config NodeConfig, timeGraphData []byte, bounds PathBounds, logger *utils.Logger) (*Node, error) {
	if config.NodeID == "" {
		return nil, engineerr.New(engineerr.InvalidArgument, "node id is required")
	}
	if config.PriorityCount < 1 {
		return nil, engineerr.New(engineerr.InvalidArgument, "priority count must be at least 1")
	}

	table, err := LoadRouteTable(timeGraphData, bounds)
	if err != nil {
		return nil, err
	}

	fingerprint := Fingerprint(timeGraphData)
	if config.RouteCache != nil {
		if cached, found, cacheErr := config.RouteCache.Load(ctx, fingerprint); cacheErr == nil && found {
			logger.Info("node %s: loaded cached route table for fingerprint %s", config.NodeID, fingerprint[:12])
			// The cache holds routes only; keep the address table parsed
			// from the same time-graph file.
			cached.addresses = table.addresses
			table = cached
		} else if cacheErr != nil {
			logger.Warn("node %s: route cache lookup failed, falling back to freshly loaded table: %v", config.NodeID, cacheErr)
		}
		if storeErr := config.RouteCache.Store(ctx, fingerprint, table); storeErr != nil {
			logger.Warn("node %s: failed to persist route table to cache: %v", config.NodeID, storeErr)
		}
	}

	transport, err := NewTransport(config.Transport, logger)
	if err != nil {
		return nil, err
	}
	if err := transport.Listen(); err != nil {
		return nil, err
	}

	n := &Node{
		id:         config.NodeID,
		config:     config,
		table:      table,
		transport:  transport,
		audit:      config.Audit,
		routeCache: config.RouteCache,
		tracing:    config.TracingProvider,
		logger:     logger,
	}

	sender := &transportSender{node: n, transport: transport, table: table}
	n.engine = NewForwardingEngine(config.NodeID, config.PriorityCount, table, sender, logger)
	n.engine.SetObserver(n)
	n.scheduler = NewContactScheduler(transport, n.engine, logger)
	n.scheduler.SetObserver(n)

	return n, nil
}

// OnReceived implements SchedulerObserver: records an inbound bundle's
// audit trail and refreshes queue/limbo gauges after the scheduler has
// handed it to the engine. Runs on the scheduler goroutine, so the
// audit write is fire-and-forget rather than awaited.
func (n *Node) OnReceived(b *bundle.Bundle, wait int64) {
	observability.RecordBundleReceived(b.Source)
	go n.recordAudit(AuditQueued, b, "")
	n.publishQueueMetrics()
	observability.RecordDrainWait(time.Duration(maxInt64(wait, 0)) * time.Second)
}

// OnOutcome implements ForwardingObserver: records the audit trail and
// routing-decision metric for a bundle's terminal handling by one
// Submit call. Runs on whichever goroutine called Submit, so the
// audit write is fire-and-forget rather than awaited.
func (n *Node) OnOutcome(b *bundle.Bundle, outcome BundleOutcome) {
	observability.RecordRoutingDecision(outcome.String())
	switch outcome {
	case OutcomeDelivered:
		go n.recordAudit(AuditDelivered, b, "")
	case OutcomeLimbo:
		go n.recordAudit(AuditLimbo, b, "")
	case OutcomeDropped:
		go n.recordAudit(AuditDropped, b, "")
		observability.RecordBundleDropped("routing")
	}
}

// Run drives the node's receive loop until ctx is cancelled. It is the
// CLI's single blocking call.
func (n *Node) Run(ctx context.Context) {
	n.logger.Info("node %s listening on %s", n.id, n.transport.LocalAddr())
	done := make(chan struct{})
	go func() {
		n.scheduler.Run()
		close(done)
	}()

	select {
	case <-ctx.Done():
		n.scheduler.Stop()
		<-done
	case <-done:
	}
}

// Submit hands a locally originated bundle to the forwarding engine,
// recording audit and metric events around it. now is the scheduler's
// monotonic seconds counter, not wall-clock time.
func (n *Node) Submit(b *bundle.Bundle, now int64) int64 {
	if n.tracing != nil {
		_, span := n.tracing.StartSubmit(context.Background(), b.ID.String(), b.Priority, b.Destination)
		defer span.End()
	}

	n.recordAudit(AuditSubmitted, b, "")

	wait := n.engine.Submit(b, now)
	n.publishQueueMetrics()
	observability.RecordDrainWait(time.Duration(maxInt64(wait, 0)) * time.Second)
	return wait
}

// Close stops the transport and any durable backends the node owns.
func (n *Node) Close() error {
	if n.tracing != nil {
		_ = n.tracing.Shutdown(context.Background())
	}
	if n.audit != nil {
		_ = n.audit.Close()
	}
	return n.transport.Close()
}

func (n *Node) recordAudit(kind AuditEventKind, b *bundle.Bundle, reason string) {
	if n.audit == nil {
		return
	}
	event := AuditEvent{
		BundleID:    b.ID,
		Source:      b.Source,
		Destination: b.Destination,
		Priority:    b.Priority,
		Kind:        kind,
		Reason:      reason,
		At:          time.Now().UTC(),
	}
	if err := n.audit.Record(context.Background(), event); err != nil {
		n.logger.Warn("node %s: audit record failed: %v", n.id, err)
	}
}

func (n *Node) publishQueueMetrics() {
	for p := 1; p <= n.config.PriorityCount; p++ {
		observability.SetQueueDepth(p, n.engine.QueueLen(p))
	}
	observability.SetLimboDepth(n.engine.LimboLen())
}

// NodeConfigFromEnv applies operator overrides for the listen/space
// addresses, falling back to DefaultTransportConfig otherwise. This
// mirrors the teacher's pattern of environment-first configuration
// without introducing a dependency on a config file format the source
// never had.
func NodeConfigFromEnv(nodeID string, priorityCount int) NodeConfig {
	cfg := DefaultTransportConfig()
	if v := os.Getenv("CGRSAT_LISTEN_ADDRESS"); v != "" {
		cfg.ListenAddress = v
	}
	if v := os.Getenv("CGRSAT_SPACE_ADDRESS"); v != "" {
		cfg.SpaceAddress = v
	}
	return NodeConfig{
		NodeID:        nodeID,
		PriorityCount: priorityCount,
		Transport:     cfg,
	}
}

// BuildRouteCache opens a Mongo-backed route cache if a Mongo
// connection is configured, or returns nil to leave the node running
// without one.
func BuildRouteCache(ctx context.Context, cfg *db.Config) (*RouteCache, error) {
	if cfg == nil || cfg.MongoHost == "" {
		return nil, nil
	}
	mongoDB, err := db.NewMongoDB(cfg)
	if err != nil {
		return nil, err
	}
	return NewRouteCache(mongoDB), nil
}
