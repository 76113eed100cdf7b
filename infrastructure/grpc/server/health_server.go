package server

import (
	"context"
	"log/slog"
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// RelayServiceName is the service name reported by the health endpoint.
const RelayServiceName = "chat.Relay"

// HealthServerWorker exposes the standard gRPC health service.
// The relay reports SERVING until it starts shutting down.
type HealthServerWorker struct {
	log     *slog.Logger
	address string
	done    <-chan struct{}
	bound   chan<- net.Addr
}

// NewHealthServerWorker builds the worker. done is closed when the relay stops
// serving; bound, if not nil, receives the listening address.
func NewHealthServerWorker(log *slog.Logger, address string, done <-chan struct{}, bound chan<- net.Addr) *HealthServerWorker {
	return &HealthServerWorker{log: log, address: address, done: done, bound: bound}
}

func (w *HealthServerWorker) Run(ctx context.Context) error {
	var lc net.ListenConfig
	listener, err := lc.Listen(ctx, "tcp", w.address)
	if err != nil {
		return err
	}

	s := grpc.NewServer()
	healthServer := health.NewServer()
	healthpb.RegisterHealthServer(s, healthServer)
	healthServer.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	healthServer.SetServingStatus(RelayServiceName, healthpb.HealthCheckResponse_SERVING)

	if w.bound != nil {
		select {
		case w.bound <- listener.Addr():
		default:
		}
	}

	serveErr := make(chan error, 1)
	go func() {
		w.log.Info("gRPC health server listening", "address", listener.Addr().String())
		serveErr <- s.Serve(listener)
	}()

	select {
	case err := <-serveErr:
		return err
	case <-w.done:
	case <-ctx.Done():
	}

	healthServer.Shutdown()
	s.GracefulStop()
	w.log.Info("gRPC health server stopped")
	return nil
}
