package workers

import (
	"context"
	"log/slog"
	"os"
	"time"

	"market-live/contract"
	"market-live/observability"

	"github.com/shirou/gopsutil/process"
)

// HeartbeatWorker periodically logs process health (RSS, CPU) together with
// the registry, groups and delivery gauges.
type HeartbeatWorker struct {
	log      *slog.Logger
	interval time.Duration
	registry contract.IRegistry
	groups   contract.IGroups
	stats    *observability.DeliveryStats
}

func NewHeartbeatWorker(log *slog.Logger, interval time.Duration,
	registry contract.IRegistry, groups contract.IGroups,
	stats *observability.DeliveryStats) *HeartbeatWorker {
	return &HeartbeatWorker{
		log:      log,
		interval: interval,
		registry: registry,
		groups:   groups,
		stats:    stats,
	}
}

func (w *HeartbeatWorker) Run(ctx context.Context) error {
	w.log.Info("Starting heartbeat worker")
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			rss, cpu, err := selfStats(p)
			if err != nil {
				w.log.Error("Failed to collect self stats", "err", err)
				continue
			}

			users, conns := w.registry.Counts()
			topics, members := w.groups.Counts()
			snapshot := w.stats.Snapshot()

			w.log.Info("Heartbeat",
				"ram_mb", rss/1024/1024,
				"cpu_percent", cpu,
				"online_users", users,
				"connections", conns,
				"topics", topics,
				"memberships", members,
				"delivered", snapshot.Delivered,
				"dropped", snapshot.DroppedDispatch,
				"sink_errors", snapshot.SinkErrors,
			)
		}
	}
}

// selfStats retrieves memory and CPU usage for the given process.
func selfStats(p *process.Process) (uint64, float64, error) {
	memInfo, err := p.MemoryInfo()
	if err != nil {
		return 0, 0, err
	}
	cpuPercent, err := p.CPUPercent()
	if err != nil {
		return 0, 0, err
	}
	return memInfo.RSS, cpuPercent, nil
}
