package main

import (
	"chat-relay/contract"
	grpcserver "chat-relay/infrastructure/grpc/server"
	"chat-relay/infrastructure/websocket"
	"chat-relay/internal"
	"chat-relay/moderation"
	"chat-relay/observability"
	"chat-relay/runtime"
	"chat-relay/runtime/workers"
	"context"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mama165/sdk-go/logs"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// relayStats is the document served on /stats and read back by `chatd status`.
type relayStats struct {
	Server  runtime.ServerStats        `json:"server"`
	Pool    workers.PoolStats          `json:"pool"`
	Process observability.ProcessStats `json:"process"`
}

func serveCmd() *cobra.Command {
	var (
		envFile  string
		host     string
		port     int
		logLevel string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the chat relay",
		RunE: func(cmd *cobra.Command, args []string) error {
			config, err := internal.LoadConfig(envFile)
			if err != nil {
				return err
			}
			flags := cmd.Flags()
			if flags.Changed("host") {
				config.Host = host
			}
			if flags.Changed("port") {
				config.Port = port
			}
			if flags.Changed("log-level") {
				config.LogLevel = logLevel
			}
			if err := config.Validate(); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, config)
		},
	}

	cmd.Flags().StringVar(&envFile, "env-file", "", "Load variables from this .env file first")
	cmd.Flags().StringVar(&host, "host", "", "Chat listening host (HOST)")
	cmd.Flags().IntVarP(&port, "port", "p", 0, "Chat listening port (PORT)")
	cmd.Flags().StringVar(&logLevel, "log-level", "", "DEBUG, INFO, WARN or ERROR (LOG_LEVEL)")
	return cmd
}

func serve(ctx context.Context, config internal.Config) error {
	log := logs.GetLoggerFromString(config.LogLevel)

	promRegistry := prometheus.NewRegistry()
	promRegistry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := observability.NewMetrics(promRegistry)
	monitoring := observability.NewMonitoringManager()

	censor, err := newCensor(log, config)
	if err != nil {
		return err
	}

	pool := workers.NewDispatchPool(log, metrics, workers.PoolConfig{
		CoreWorkers: config.CoreWorkers,
		MaxWorkers:  config.MaxWorkers,
		QueueSize:   config.QueueSize,
		KeepAlive:   config.WorkerKeepAlive,
	})
	registry := runtime.NewRegistry()
	server := runtime.NewServer(log, registry, pool, metrics, censor, runtime.ServerConfig{
		MaxNameLength: config.MaxNameLength,
		MaxLineLength: config.MaxLineLength,
		WriteTimeout:  config.WriteTimeout,
	})

	var lc net.ListenConfig
	listener, err := lc.Listen(ctx, "tcp", config.Address())
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", config.Address(), err)
	}

	sup := workers.NewSupervisor(log, config.RestartInterval)
	sup.Add(
		workers.NewAcceptorWorker(log, listener, server),
		workers.NewHeartbeatWorker(log, config.MetricInterval, monitoring, metrics, registry.Count, pool),
	)
	if config.AdminAddr != "" {
		routes := internal.AdminRoutes{
			Stats: func() any {
				return relayStats{Server: server.Stats(), Pool: pool.Stats(), Process: monitoring.GetLatest()}
			},
			Healthy:  func() bool { return !server.Stats().Stopping },
			Gatherer: promRegistry,
		}
		if config.WebSocketEnabled {
			routes.WebSocket = websocket.NewHandler(log, server, websocket.Options{
				MaxLineLength: config.MaxLineLength,
				WriteTimeout:  config.WriteTimeout,
			})
		}
		sup.Add(internal.NewAdminServerWorker(log, config.AdminAddr, internal.NewAdminRouter(routes), nil))
	}
	if config.GRPCHealthAddr != "" {
		sup.Add(grpcserver.NewHealthServerWorker(log, config.GRPCHealthAddr, server.Done(), nil))
	}

	log.Info("Starting chat relay", "address", listener.Addr().String(), "at", time.Now().UTC())

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		sup.Run(gctx)
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("Shutting down gracefully...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), config.ShutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	log.Info("Program stopped cleanly")
	return nil
}

func newCensor(log *slog.Logger, config internal.Config) (contract.Censor, error) {
	words := config.CensoredWordList()
	if len(words) == 0 {
		return nil, nil
	}
	char, err := internal.CharacterRune(config.CharReplacement)
	if err != nil {
		return nil, err
	}
	mod, err := moderation.NewModerator(words, char, log)
	if err != nil {
		return nil, fmt.Errorf("moderator: %w", err)
	}
	log.Info("Moderation enabled", "words", len(words))
	return mod, nil
}
