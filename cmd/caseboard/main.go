// Command caseboard runs the integration case board: an HTTP API by default,
// or an MCP tool server over stdio with the "mcp" argument.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"expvar"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/caarlos0/env/v11"
	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"caseboard/internal/adapters/copilot"
	"caseboard/internal/adapters/rest"
	blobcore "caseboard/internal/blob/core"
	"caseboard/internal/core"
	blobfs "caseboard/internal/infra/blob/fs"
	blobmemory "caseboard/internal/infra/blob/memory"
	blobs3 "caseboard/internal/infra/blob/s3"
	"caseboard/internal/seed"
	"caseboard/internal/snapshot"
)

const version = "0.1.0"

type config struct {
	HTTPAddr   string        `env:"CASEBOARD_HTTP_ADDR" envDefault:":8080"`
	BlobDriver string        `env:"CASEBOARD_BLOB_DRIVER" envDefault:"fs"`
	BlobFSRoot string        `env:"CASEBOARD_BLOB_FS_ROOT" envDefault:"./blobdata"`
	Seed       bool          `env:"CASEBOARD_SEED" envDefault:"false"`
	TraceLog   string        `env:"CASEBOARD_TRACE_LOG"`
	Shutdown   time.Duration `env:"CASEBOARD_SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	if err := run(logger); err != nil {
		logger.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	var cfg config
	if err := env.Parse(&cfg); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	engine := core.DefaultRulesEngine()
	store, err := core.OpenPersistentStore(engine)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}

	promMetrics, err := core.NewPrometheusMetricsRecorder(prometheus.DefaultRegisterer)
	if err != nil {
		return fmt.Errorf("register metrics: %w", err)
	}
	// Operation metrics land both in /metrics and /debug/vars.
	metrics := core.NewMultiMetricsRecorder(promMetrics, core.NewExpvarMetricsRecorder("caseboard_metrics"))

	opts := []core.Option{
		core.WithLogger(core.NewSlogLogger(logger)),
		core.WithMetricsRecorder(metrics),
	}
	if cfg.TraceLog != "" {
		traceFile, err := os.OpenFile(cfg.TraceLog, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("open trace log: %w", err)
		}
		defer traceFile.Close()
		opts = append(opts, core.WithTracer(core.NewJSONTracer(traceFile)))
		logger.Info("operation tracing enabled", "path", cfg.TraceLog)
	}
	svc := core.NewService(store, opts...)

	if cfg.Seed {
		tables, err := seed.Tables()
		if err != nil {
			return fmt.Errorf("load seed: %w", err)
		}
		if _, err := svc.MergeTables(ctx, tables); err != nil {
			return fmt.Errorf("apply seed: %w", err)
		}
		logger.Info("seed data merged", "actions", len(tables.Actions), "models", len(tables.Models))
	}

	if len(os.Args) > 1 && os.Args[1] == "mcp" {
		logger.Info("starting caseboard MCP server over stdio")
		srv := copilot.NewServer(svc, version)
		return srv.MCPServer.Run(ctx, &sdkmcp.StdioTransport{})
	}

	blobs, err := openBlobStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("open blob store: %w", err)
	}
	archiver := snapshot.NewArchiver(svc, blobs)

	mux := http.NewServeMux()
	mux.Handle("/api/v1/", rest.NewHandler(svc))
	mux.HandleFunc("/api/v1/snapshots", func(w http.ResponseWriter, r *http.Request) {
		handleSnapshots(w, r, archiver)
	})
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/debug/vars", expvar.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", "addr", cfg.HTTPAddr, "blob_driver", blobs.Driver())
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case <-ctx.Done():
		logger.Info("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Shutdown)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	if doc, err := archiver.Save(shutdownCtx); err != nil {
		logger.Warn("final snapshot failed", "error", err)
	} else {
		logger.Info("final snapshot archived", "id", doc.Meta.ID)
	}
	return nil
}

func openBlobStore(ctx context.Context, cfg config) (blobcore.Store, error) {
	switch blobcore.Driver(cfg.BlobDriver) {
	case blobcore.DriverFilesystem:
		return blobfs.New(cfg.BlobFSRoot)
	case blobcore.DriverS3:
		return blobs3.OpenFromEnv(ctx)
	case blobcore.DriverMemory:
		return blobmemory.New(), nil
	default:
		return nil, fmt.Errorf("unknown blob driver %s", cfg.BlobDriver)
	}
}

func handleSnapshots(w http.ResponseWriter, r *http.Request, archiver *snapshot.Archiver) {
	switch r.Method {
	case http.MethodPost:
		doc, err := archiver.Save(r.Context())
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(doc.Meta)
	case http.MethodGet:
		ids, err := archiver.List(r.Context())
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(ids)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}
