package internal

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const adminShutdownTimeout = 5 * time.Second

// StatsProvider returns the document served on /stats.
type StatsProvider func() any

// HealthProvider reports whether the relay still accepts sessions.
type HealthProvider func() bool

type AdminRoutes struct {
	Stats    StatsProvider
	Healthy  HealthProvider
	Gatherer prometheus.Gatherer
	// WebSocket is mounted on /ws when not nil.
	WebSocket http.Handler
}

// NewAdminRouter exposes health, stats, metrics and the optional WebSocket gateway.
func NewAdminRouter(routes AdminRoutes) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		if routes.Healthy != nil && !routes.Healthy() {
			http.Error(w, "stopping", http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte("ok"))
	})

	r.Get("/stats", func(w http.ResponseWriter, _ *http.Request) {
		var stats any = map[string]any{}
		if routes.Stats != nil {
			stats = routes.Stats()
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(stats)
	})

	if routes.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(routes.Gatherer, promhttp.HandlerOpts{}))
	}
	if routes.WebSocket != nil {
		r.Get("/ws", routes.WebSocket.ServeHTTP)
	}
	return r
}

// AdminServerWorker serves the admin router until its context is done.
type AdminServerWorker struct {
	log     *slog.Logger
	address string
	handler http.Handler
	bound   chan<- net.Addr
}

// NewAdminServerWorker builds the worker. bound, if not nil, receives the listening address.
func NewAdminServerWorker(log *slog.Logger, address string, handler http.Handler, bound chan<- net.Addr) *AdminServerWorker {
	return &AdminServerWorker{log: log, address: address, handler: handler, bound: bound}
}

func (w *AdminServerWorker) Run(ctx context.Context) error {
	var lc net.ListenConfig
	listener, err := lc.Listen(ctx, "tcp", w.address)
	if err != nil {
		return err
	}
	if w.bound != nil {
		select {
		case w.bound <- listener.Addr():
		default:
		}
	}

	server := &http.Server{
		Handler:           w.handler,
		ReadHeaderTimeout: 5 * time.Second,
	}
	serveErr := make(chan error, 1)
	go func() {
		w.log.Info("Admin server listening", "address", listener.Addr().String())
		serveErr <- server.Serve(listener)
	}()

	select {
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), adminShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		w.log.Warn("Admin server shutdown failed", "err", err)
	}
	return nil
}
