package workers

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"market-live/contract"
	"market-live/domain/event"
	"market-live/observability"
)

// FanoutWorker drains the delivery queue and pushes each event to every sink
// its target resolves to at the instant of send.
//
// It provides best-effort fan-out with no guarantees regarding delivery,
// ordering across users, durability, or retries. It is not a message broker:
// durable state is written by the services before anything reaches this
// worker, and a missed push is recoverable through the pull endpoints.
//
// Routing is a single type switch over the tagged event variants:
// presence goes to everyone but the subject, messages to the conversation
// topic members, notifications to every connection of the target user.
// An empty target set is a silent no-op, not an error.
type FanoutWorker struct {
	log         *slog.Logger
	registry    contract.IRegistry
	groups      contract.IGroups
	stats       *observability.DeliveryStats
	deliveries  <-chan event.DeliveryEvent
	telemetry   chan<- event.DeliveryEvent
	sinkTimeout time.Duration
}

func NewFanoutWorker(log *slog.Logger, registry contract.IRegistry, groups contract.IGroups,
	stats *observability.DeliveryStats, deliveries <-chan event.DeliveryEvent,
	telemetry chan<- event.DeliveryEvent, sinkTimeout time.Duration) *FanoutWorker {
	return &FanoutWorker{
		log:         log,
		registry:    registry,
		groups:      groups,
		stats:       stats,
		deliveries:  deliveries,
		telemetry:   telemetry,
		sinkTimeout: sinkTimeout,
	}
}

func (w *FanoutWorker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Context done, stopping fan-out")
			return nil
		case evt := <-w.deliveries:
			w.Fanout(ctx, evt)
			select {
			case w.telemetry <- evt:
			default:
				w.log.Debug("Telemetry event lost")
			}
		}
	}
}

// Fanout resolves the event's target to a sink snapshot and sends to each
// sink independently, one goroutine per sink with a delivery timeout. One
// slow or broken connection never delays the others.
func (w *FanoutWorker) Fanout(ctx context.Context, evt event.DeliveryEvent) {
	sinks, target := w.route(evt)
	w.stats.AddRecent(evt.EventName(), target, len(sinks))
	if len(sinks) == 0 {
		// Target offline or topic empty: drop silently, durability is the
		// repositories' job.
		return
	}

	for _, sink := range sinks {
		go func(s contract.EventSink) {
			sinkCtx, cancel := context.WithTimeout(ctx, w.sinkTimeout)
			defer cancel()
			if err := s.Consume(sinkCtx, evt); err != nil {
				w.stats.IncrSinkErrors()
				w.log.Warn("Sink delivery failed", "event", evt.EventName(), "error", err)
				return
			}
			w.stats.AddDelivered(1)
		}(sink)
	}
}

func (w *FanoutWorker) route(evt event.DeliveryEvent) ([]contract.EventSink, string) {
	switch e := evt.(type) {
	case event.PresenceChanged:
		return w.registry.AllSinksExcept(e.User), string(e.User)
	case event.MessageReceived:
		return w.groups.SinksFor(e.Topic()), string(e.Topic())
	case event.NotificationReceived:
		return w.registry.SinksFor(e.User), string(e.User)
	default:
		// Acks and error replies are unicast by the transport handler and
		// never enter the queue.
		w.log.Debug(fmt.Sprintf("Not a fan-out event : %s", evt.EventName()))
		return nil, ""
	}
}
