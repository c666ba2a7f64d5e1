package workers

import (
	"context"
	"log/slog"

	"market-live/domain/event"
	"market-live/observability"
)

// TelemetryWorker counts delivered event kinds off the telemetry copy of the
// queue. Losing telemetry events is acceptable; losing deliveries is not,
// which is why this runs on its own channel.
type TelemetryWorker struct {
	log       *slog.Logger
	telemetry <-chan event.DeliveryEvent
	stats     *observability.DeliveryStats
}

func NewTelemetryWorker(log *slog.Logger, telemetry <-chan event.DeliveryEvent,
	stats *observability.DeliveryStats) *TelemetryWorker {
	return &TelemetryWorker{log: log, telemetry: telemetry, stats: stats}
}

func (w *TelemetryWorker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Context done, stopping telemetry")
			return nil
		case evt := <-w.telemetry:
			w.handle(evt)
		}
	}
}

func (w *TelemetryWorker) handle(evt event.DeliveryEvent) {
	switch evt.(type) {
	case event.MessageReceived:
		w.stats.IncrMessagesIn()
	case event.NotificationReceived:
		w.stats.IncrNotificationsIn()
	case event.PresenceChanged:
		w.stats.IncrPresenceTransitions()
	}
}
