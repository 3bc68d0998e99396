// Command opschartd runs the operations-mapping service: workspace-scoped
// entity stores, durable local persistence, optional best-effort sync to a
// remote Postgres mirror, and an HTTP surface for health, metrics, sync
// control, and workspace export/import.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"opschart/internal/blob"
	"opschart/internal/core"
	"opschart/internal/export"
	"opschart/internal/syncer"
	"opschart/pkg/domain"
)

const (
	envHTTPAddr      = "OPSCHART_HTTP_ADDR"
	envSyncDSN       = "OPSCHART_SYNC_DSN"
	envSyncDebounce  = "OPSCHART_SYNC_DEBOUNCE_MS"
	envWorkspaceName = "OPSCHART_WORKSPACE"
	envUserID        = "OPSCHART_USER"
)

type changeSubscriber interface {
	Subscribe(func([]domain.Change))
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "opschartd: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	zl := zerolog.New(os.Stderr).With().Timestamp().Logger()
	logger := core.NewZerologAdapter(zl)

	var forwarder *syncer.Forwarder
	if dsn := os.Getenv(envSyncDSN); dsn != "" {
		remote, err := syncer.NewPostgresRemote(ctx, dsn)
		if err != nil {
			return fmt.Errorf("connect sync remote: %w", err)
		}
		defer remote.Close() //nolint:errcheck // shutdown path
		opts := []syncer.Option{syncer.WithLogger(logger)}
		if ms := os.Getenv(envSyncDebounce); ms != "" {
			v, err := strconv.Atoi(ms)
			if err != nil {
				return fmt.Errorf("parse %s: %w", envSyncDebounce, err)
			}
			opts = append(opts, syncer.WithDebounce(time.Duration(v)*time.Millisecond))
		}
		forwarder = syncer.New(remote, opts...)
		defer forwarder.Close()
		logger.Info("sync forwarder enabled")
	}

	factory := core.NewStoreFactory(core.NewDefaultRulesEngine)
	wired := func(workspaceID string) (domain.PersistentStore, error) {
		st, err := factory(workspaceID)
		if err != nil {
			return nil, err
		}
		if forwarder != nil {
			if sub, ok := st.(changeSubscriber); ok {
				sub.Subscribe(func(changes []domain.Change) {
					forwarder.Enqueue(workspaceID, changes)
				})
			}
		}
		return st, nil
	}

	container := core.NewContainer(wired, core.WithContainerLogger(logger))
	if _, err := container.CreateWorkspace(envOr(envWorkspaceName, "default"), envOr(envUserID, "local")); err != nil {
		return fmt.Errorf("create workspace: %w", err)
	}

	registry := prometheus.NewRegistry()
	metrics, err := core.NewPrometheusMetricsRecorder(registry)
	if err != nil {
		return fmt.Errorf("register metrics: %w", err)
	}
	service := core.NewService(container,
		core.WithLogger(logger),
		core.WithMetricsRecorder(metrics),
	)

	blobStore, err := blob.Open(ctx)
	if err != nil {
		return fmt.Errorf("open blob store: %w", err)
	}
	archive := export.NewArchive(blobStore)

	mux := http.NewServeMux()
	mux.Handle("GET /metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("GET /sync/status", func(w http.ResponseWriter, _ *http.Request) {
		status := syncer.Status{State: syncer.StateIdle}
		if forwarder != nil {
			status = forwarder.Status()
		}
		writeJSON(w, http.StatusOK, status)
	})
	mux.HandleFunc("POST /sync/flush", func(w http.ResponseWriter, r *http.Request) {
		if forwarder == nil {
			http.Error(w, "sync disabled", http.StatusConflict)
			return
		}
		if err := forwarder.RetryFailed(r.Context()); err != nil {
			http.Error(w, err.Error(), http.StatusBadGateway)
			return
		}
		writeJSON(w, http.StatusOK, forwarder.Status())
	})
	mux.HandleFunc("POST /workspace/export", func(w http.ResponseWriter, r *http.Request) {
		doc, err := service.ExportWorkspace(r.Context())
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		key, err := archive.Save(r.Context(), doc)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"key": key})
	})
	mux.HandleFunc("POST /workspace/import", func(w http.ResponseWriter, r *http.Request) {
		data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, 32<<20))
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		summary, err := service.ImportWorkspace(r.Context(), data)
		if err != nil {
			http.Error(w, err.Error(), http.StatusUnprocessableEntity)
			return
		}
		writeJSON(w, http.StatusOK, summary)
	})

	server := &http.Server{
		Addr:              envOr(envHTTPAddr, ":8080"),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		logger.Info("http listening", "addr", server.Addr)
		errCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown", "error", err)
	}
	if forwarder != nil {
		if err := forwarder.Flush(shutdownCtx); err != nil {
			logger.Warn("final sync flush", "error", err)
		}
	}
	logger.Info("shutdown complete")
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
