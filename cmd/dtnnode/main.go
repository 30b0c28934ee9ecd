// Command dtnnode runs a single DTN forwarding node: it loads a
// time-graph file, builds a route table and forwarding engine over it,
// and drives the contact-scheduled receive loop against the shared
// "space" transport simulator until interrupted.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"

	"github.com/asgard/cgrsat/internal/engineerr"
	"github.com/asgard/cgrsat/internal/platform/db"
	"github.com/asgard/cgrsat/internal/platform/dtn"
	"github.com/asgard/cgrsat/internal/platform/observability"
	"github.com/asgard/cgrsat/internal/platform/tracing"
	"github.com/asgard/cgrsat/internal/utils"
)

const usage = "usage: dtnnode <node_id> <priority_count> <time_graph_path>"

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	logger := utils.NewLogger()

	if len(args) != 3 {
		fmt.Fprintln(os.Stderr, usage)
		return 2
	}

	nodeID := args[0]
	priorityCount, err := strconv.Atoi(args[1])
	if err != nil || priorityCount < 1 {
		fmt.Fprintln(os.Stderr, "priority_count must be a positive integer")
		fmt.Fprintln(os.Stderr, usage)
		return 2
	}

	timeGraphPath := resolveTimeGraphPath(args[2])
	timeGraphData, err := os.ReadFile(timeGraphPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "reading time graph file %s: %v\n", timeGraphPath, err)
		return 2
	}

	config := dtn.NodeConfigFromEnv(nodeID, priorityCount)
	config.Audit = buildAuditStorage(logger)

	if provider, err := tracing.NewProvider(nodeID, os.Stdout); err != nil {
		logger.Warn("tracing disabled: %v", err)
	} else {
		config.TracingProvider = provider
	}

	if cache, err := buildRouteCache(); err != nil {
		logger.Warn("route cache disabled: %v", err)
	} else {
		config.RouteCache = cache
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	node, err := dtn.NewNode(ctx, config, timeGraphData, dtn.DefaultPathBounds(), logger)
	if err != nil {
		if engineerr.Is(err, engineerr.InvalidArgument) {
			fmt.Fprintf(os.Stderr, "%v\n%s\n", err, usage)
			return 2
		}
		fmt.Fprintf(os.Stderr, "starting node: %v\n", err)
		return 2
	}
	defer node.Close()

	startMetricsServer(logger)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("node %s interrupted, shutting down", nodeID)
		cancel()
	}()

	node.Run(ctx)
	return 0
}

// resolveTimeGraphPath honors an absolute path, or a relative path
// with a directory component, verbatim; a bare filename is looked up
// under a time_graphs/ directory next to the binary, per spec.md §6.
func resolveTimeGraphPath(arg string) string {
	if filepath.IsAbs(arg) || filepath.Dir(arg) != "." {
		return arg
	}
	exe, err := os.Executable()
	if err != nil {
		return filepath.Join("time_graphs", arg)
	}
	return filepath.Join(filepath.Dir(exe), "time_graphs", arg)
}

func buildAuditStorage(logger *utils.Logger) dtn.AuditStorage {
	if os.Getenv("CGRSAT_AUDIT_BACKEND") != "postgres" {
		return dtn.NewInMemoryAuditStorage(10000)
	}
	cfg, err := db.LoadConfig()
	if err != nil {
		logger.Warn("audit storage config unavailable, falling back to in-memory: %v", err)
		return dtn.NewInMemoryAuditStorage(10000)
	}
	pgDB, err := db.NewPostgresDB(cfg)
	if err != nil {
		logger.Warn("could not reach postgres, falling back to in-memory audit: %v", err)
		return dtn.NewInMemoryAuditStorage(10000)
	}
	storage, err := dtn.NewPostgresAuditStorage(pgDB)
	if err != nil {
		logger.Warn("could not initialize postgres audit storage, falling back to in-memory: %v", err)
		return dtn.NewInMemoryAuditStorage(10000)
	}
	return storage
}

// startMetricsServer exposes /metrics on CGRSAT_METRICS_ADDRESS if the
// operator set one; the node runs without it otherwise.
func startMetricsServer(logger *utils.Logger) {
	addr := os.Getenv("CGRSAT_METRICS_ADDRESS")
	if addr == "" {
		return
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", observability.Handler())
	go func() {
		if err := http.ListenAndServe(addr, mux); err != nil {
			logger.Warn("metrics server stopped: %v", err)
		}
	}()
}

func buildRouteCache() (*dtn.RouteCache, error) {
	if os.Getenv("CGRSAT_ROUTE_CACHE") != "mongo" {
		return nil, nil
	}
	cfg, err := db.LoadConfig()
	if err != nil {
		return nil, err
	}
	return dtn.BuildRouteCache(context.Background(), cfg)
}
