package realtime

import (
	"fmt"
	"log/slog"

	"market-live/domain/event"
	"market-live/observability"
)

// Dispatcher is the single entry point into the asynchronous delivery
// pipeline. Dispatch never blocks: when the queue is full the event is
// dropped and counted, which keeps registry bucket locks safe to hold across
// a Dispatch call. Durable state has already been written by the caller, so a
// dropped push is recoverable through the pull endpoints.
type Dispatcher struct {
	log        *slog.Logger
	stats      *observability.DeliveryStats
	deliveries chan event.DeliveryEvent
}

func NewDispatcher(log *slog.Logger, stats *observability.DeliveryStats, bufferSize int) *Dispatcher {
	return &Dispatcher{
		log:        log,
		stats:      stats,
		deliveries: make(chan event.DeliveryEvent, bufferSize),
	}
}

func (d *Dispatcher) Dispatch(e event.DeliveryEvent) {
	select {
	case d.deliveries <- e:
	default:
		d.stats.IncrDroppedDispatch()
		d.log.Warn(fmt.Sprintf("Delivery queue full, dropping %s event", e.EventName()))
	}
}

// Deliveries exposes the queue to the fan-out worker.
func (d *Dispatcher) Deliveries() chan event.DeliveryEvent {
	return d.deliveries
}
