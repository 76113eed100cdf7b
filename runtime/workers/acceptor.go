package workers

import (
	"context"
	"log/slog"
	"net"
)

// Listener serves accepted connections until ctx is done.
type Listener interface {
	Serve(ctx context.Context, listener net.Listener) error
}

// AcceptorWorker feeds a bound chat socket to the relay.
// The socket is bound by the caller so that a bad address fails startup
// instead of being retried by the supervisor.
type AcceptorWorker struct {
	log      *slog.Logger
	listener net.Listener
	server   Listener
}

func NewAcceptorWorker(log *slog.Logger, listener net.Listener, server Listener) *AcceptorWorker {
	return &AcceptorWorker{log: log, listener: listener, server: server}
}

func (w *AcceptorWorker) Run(ctx context.Context) error {
	w.log.Debug("Acceptor started", "address", w.listener.Addr().String())
	return w.server.Serve(ctx, w.listener)
}
