package runtime

import (
	"chat-relay/domain"
	"chat-relay/errors"
	"chat-relay/observability"
	"context"
	stderrors "errors"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "chat-relay/runtime"

// Delivery summarizes one broadcast.
type Delivery struct {
	ID         uuid.UUID
	Recipients int
	Failed     int
}

// Broadcaster fans a message out to every registered session but one.
//
// Each recipient is written from its own goroutine and Broadcast returns once
// all writes are done, so the messages of one sender reach every recipient in
// the order they were broadcast. Failures stay per recipient: they are logged
// and counted, and the dead session is left to its own loop to clean up.
type Broadcaster struct {
	log      *slog.Logger
	registry *Registry
	metrics  *observability.Metrics
	tracer   trace.Tracer
}

func NewBroadcaster(log *slog.Logger, registry *Registry, metrics *observability.Metrics) *Broadcaster {
	return &Broadcaster{
		log:      log,
		registry: registry,
		metrics:  metrics,
		tracer:   otel.Tracer(tracerName),
	}
}

func (b *Broadcaster) Broadcast(ctx context.Context, msg domain.Outbound, excluded domain.SessionID) Delivery {
	delivery := Delivery{ID: uuid.New()}
	_, span := b.tracer.Start(ctx, "chat.broadcast", trace.WithAttributes(
		attribute.String("broadcast.id", delivery.ID.String()),
		attribute.String("broadcast.kind", msg.Kind.String()),
		attribute.String("broadcast.excluded", excluded.String()),
	))
	defer span.End()

	line := msg.Render()
	var wg sync.WaitGroup
	var failed atomic.Int64
	b.registry.ForEachExcept(excluded, func(session *Session) {
		delivery.Recipients++
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := session.Send(line); err != nil {
				failed.Add(1)
				b.metrics.DeliveryFailed()
				b.logFailure(delivery.ID, session, err)
			}
		}()
	})
	wg.Wait()

	delivery.Failed = int(failed.Load())
	b.metrics.Broadcast(msg.Kind.String())
	span.SetAttributes(
		attribute.Int("broadcast.recipients", delivery.Recipients),
		attribute.Int("broadcast.failed", delivery.Failed),
	)
	if delivery.Failed > 0 {
		span.SetStatus(codes.Error, "partial delivery")
	}
	b.log.Debug("Broadcast delivered",
		"id", delivery.ID, "kind", msg.Kind, "recipients", delivery.Recipients, "failed", delivery.Failed)
	return delivery
}

func (b *Broadcaster) logFailure(id uuid.UUID, session *Session, err error) {
	if stderrors.Is(err, errors.ErrSessionClosed) || isDisconnect(err) {
		b.log.Debug("Recipient already gone", "broadcast", id, "session", session.ID(), "err", err)
		return
	}
	b.log.Warn("Delivery failed", "broadcast", id, "session", session.ID(), "name", session.Name(), "err", err)
}
