package runtime

import (
	"chat-relay/contract"
	"chat-relay/domain"
	"chat-relay/errors"
	"chat-relay/infrastructure/tcp"
	"chat-relay/observability"
	"context"
	stderrors "errors"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

const (
	minAcceptBackoff = 5 * time.Millisecond
	maxAcceptBackoff = time.Second

	// how long a stalled peer may hold back the force-close on shutdown
	shutdownNoticeGrace = 500 * time.Millisecond
)

type ServerConfig struct {
	MaxNameLength int
	MaxLineLength int
	WriteTimeout  time.Duration
}

// ServerStats is what the admin endpoint reports about the relay.
type ServerStats struct {
	InstanceID string    `json:"instance_id"`
	StartedAt  time.Time `json:"started_at"`
	Uptime     string    `json:"uptime"`
	Sessions   int       `json:"sessions"`
	Stopping   bool      `json:"stopping"`
}

// Server accepts connections, runs one session loop per connection on the
// dispatcher and relays chat lines through the broadcaster.
type Server struct {
	log         *slog.Logger
	registry    *Registry
	broadcaster *Broadcaster
	dispatcher  contract.Dispatcher
	metrics     *observability.Metrics
	censor      contract.Censor
	config      ServerConfig

	instanceID uuid.UUID
	startedAt  time.Time
	nextID     atomic.Uint64

	stopping atomic.Bool
	stopOnce sync.Once
	done     chan struct{}

	mu        sync.Mutex
	listeners map[net.Listener]struct{}
}

// NewServer wires a server. censor may be nil.
func NewServer(
	log *slog.Logger,
	registry *Registry,
	dispatcher contract.Dispatcher,
	metrics *observability.Metrics,
	censor contract.Censor,
	config ServerConfig,
) *Server {
	return &Server{
		log:         log,
		registry:    registry,
		broadcaster: NewBroadcaster(log, registry, metrics),
		dispatcher:  dispatcher,
		metrics:     metrics,
		censor:      censor,
		config:      config,
		instanceID:  uuid.New(),
		startedAt:   time.Now().UTC(),
		done:        make(chan struct{}),
		listeners:   make(map[net.Listener]struct{}),
	}
}

// Serve accepts connections from listener until ctx is done or Shutdown is called.
// It returns nil once stopped; accept failures while running are retried.
func (s *Server) Serve(ctx context.Context, listener net.Listener) error {
	if !s.track(listener) {
		_ = listener.Close()
		return errors.ErrServerStopped
	}
	defer s.untrack(listener)

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
		case <-s.done:
		case <-stop:
			return
		}
		_ = listener.Close()
	}()

	s.log.Info("Accepting connections", "address", listener.Addr().String())
	var backoff time.Duration
	for {
		conn, err := listener.Accept()
		if err != nil {
			if s.stopping.Load() || ctx.Err() != nil {
				return nil
			}
			if stderrors.Is(err, net.ErrClosed) {
				s.log.Info("Listener closed", "address", listener.Addr().String())
				return nil
			}
			backoff = nextBackoff(backoff)
			s.metrics.AcceptFailed()
			s.log.Warn("Accept failed", "err", err, "retry_in", backoff)
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil
			case <-s.done:
				return nil
			}
			continue
		}
		backoff = 0
		lineConn := tcp.NewLineConn(conn, tcp.Options{
			MaxLineLength: s.config.MaxLineLength,
			WriteTimeout:  s.config.WriteTimeout,
		})
		if _, err := s.Attach(lineConn); err != nil && !stderrors.Is(err, errors.ErrServerStopped) {
			s.log.Warn("Connection rejected", "remote", lineConn.RemoteAddr(), "err", err)
		}
	}
}

// Attach registers conn as a new session and schedules its loop.
// It is the entry point for every transport.
func (s *Server) Attach(conn contract.Conn) (domain.SessionID, error) {
	if s.stopping.Load() {
		_ = conn.Close()
		return "", errors.ErrServerStopped
	}
	id := domain.NewSessionID(s.nextID.Add(1))
	session := NewSession(id, conn)
	if err := s.registry.Register(id, session); err != nil {
		s.log.Error("Session registration failed", "session", id, "err", err)
		_ = session.Close()
		return "", err
	}
	s.metrics.SessionOpened()
	s.log.Info("Client connected", "session", id, "remote", conn.RemoteAddr(), "online", s.registry.Count())

	// Shutdown may have snapshotted the registry just before Register.
	if s.stopping.Load() {
		_ = session.Close()
	}
	if err := s.dispatcher.Submit(func() { s.serveSession(session) }); err != nil {
		s.log.Warn("Session loop not scheduled", "session", id, "err", err)
		s.teardown(session)
		return "", err
	}
	return id, nil
}

// Shutdown stops accepting, tells every session the server is going away,
// closes them and waits for their loops to finish or ctx to expire.
func (s *Server) Shutdown(ctx context.Context) error {
	first := false
	s.stopOnce.Do(func() {
		first = true
		s.stopping.Store(true)
		close(s.done)
	})
	if !first {
		return nil
	}

	s.closeListeners()
	sessions := s.registry.Sessions()
	s.log.Info("Shutting down", "sessions", len(sessions))
	s.announceShutdown(ctx)
	for _, session := range sessions {
		if err := session.Close(); err != nil {
			s.log.Warn("Closing session failed", "session", session.ID(), "name", session.Name(), "err", err)
		}
	}

	s.dispatcher.Stop()
	if err := s.dispatcher.Wait(ctx); err != nil {
		s.log.Warn("Session loops still running", "sessions", s.registry.Count(), "err", err)
		return err
	}
	s.log.Info("Server stopped")
	return nil
}

// announceShutdown sends the shutdown notice, waiting at most the grace period
// or until ctx ends. Writes still pending fail once Shutdown closes the sessions.
func (s *Server) announceShutdown(ctx context.Context) {
	sent := make(chan struct{})
	go func() {
		defer close(sent)
		s.broadcaster.Broadcast(ctx, domain.SystemNotice(domain.ShutdownNotice), "")
	}()

	grace := time.NewTimer(shutdownNoticeGrace)
	defer grace.Stop()
	select {
	case <-sent:
	case <-grace.C:
		s.log.Warn("Shutdown notice still pending, closing sessions anyway")
	case <-ctx.Done():
	}
}

// Done is closed once Shutdown has started.
func (s *Server) Done() <-chan struct{} { return s.done }

func (s *Server) Stats() ServerStats {
	return ServerStats{
		InstanceID: s.instanceID.String(),
		StartedAt:  s.startedAt,
		Uptime:     time.Since(s.startedAt).Truncate(time.Second).String(),
		Sessions:   s.registry.Count(),
		Stopping:   s.stopping.Load(),
	}
}

func (s *Server) track(listener net.Listener) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopping.Load() {
		return false
	}
	s.listeners[listener] = struct{}{}
	return true
}

func (s *Server) untrack(listener net.Listener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.listeners, listener)
}

func (s *Server) closeListeners() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for listener := range s.listeners {
		if err := listener.Close(); err != nil && !stderrors.Is(err, net.ErrClosed) {
			s.log.Warn("Closing listener failed", "address", listener.Addr().String(), "err", err)
		}
	}
}

func nextBackoff(current time.Duration) time.Duration {
	if current == 0 {
		return minAcceptBackoff
	}
	return min(current*2, maxAcceptBackoff)
}
