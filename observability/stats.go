// Package observability aggregates realtime delivery metrics for the
// heartbeat log and the debug inspector.
package observability

import (
	"sync"
	"sync/atomic"
	"time"
)

const recentLimit = 20

// RecentDelivery is one fanned-out event kept for the debug inspector.
type RecentDelivery struct {
	Event     string `json:"event"`
	Target    string `json:"target"`
	Sinks     int    `json:"sinks"`
	Timestamp string `json:"timestamp"`
}

// StatsSnapshot is a point-in-time copy of all counters.
type StatsSnapshot struct {
	MessagesIn          uint64           `json:"messages_in"`
	NotificationsIn     uint64           `json:"notifications_in"`
	PresenceTransitions uint64           `json:"presence_transitions"`
	Delivered           uint64           `json:"delivered"`
	DroppedDispatch     uint64           `json:"dropped_dispatch"`
	SinkErrors          uint64           `json:"sink_errors"`
	RecentDeliveries    []RecentDelivery `json:"recent_deliveries"`
}

// DeliveryStats counts fan-out activity. Counters are atomic; only the recent
// ring takes a lock.
type DeliveryStats struct {
	mu     sync.RWMutex
	recent []RecentDelivery

	messagesIn          uint64
	notificationsIn     uint64
	presenceTransitions uint64
	delivered           uint64
	droppedDispatch     uint64
	sinkErrors          uint64
}

func NewDeliveryStats() *DeliveryStats {
	return &DeliveryStats{recent: make([]RecentDelivery, 0, recentLimit)}
}

func (s *DeliveryStats) IncrMessagesIn()          { atomic.AddUint64(&s.messagesIn, 1) }
func (s *DeliveryStats) IncrNotificationsIn()     { atomic.AddUint64(&s.notificationsIn, 1) }
func (s *DeliveryStats) IncrPresenceTransitions() { atomic.AddUint64(&s.presenceTransitions, 1) }
func (s *DeliveryStats) IncrDroppedDispatch()     { atomic.AddUint64(&s.droppedDispatch, 1) }
func (s *DeliveryStats) IncrSinkErrors()          { atomic.AddUint64(&s.sinkErrors, 1) }

func (s *DeliveryStats) AddDelivered(n int) { atomic.AddUint64(&s.delivered, uint64(n)) }

// AddRecent pushes a delivery to the front of the ring, keeping the last 20.
func (s *DeliveryStats) AddRecent(eventName, target string, sinks int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry := RecentDelivery{
		Event:     eventName,
		Target:    target,
		Sinks:     sinks,
		Timestamp: time.Now().Format("15:04:05"),
	}
	s.recent = append([]RecentDelivery{entry}, s.recent...)
	if len(s.recent) > recentLimit {
		s.recent = s.recent[:recentLimit]
	}
}

func (s *DeliveryStats) Snapshot() StatsSnapshot {
	s.mu.RLock()
	recent := make([]RecentDelivery, len(s.recent))
	copy(recent, s.recent)
	s.mu.RUnlock()

	return StatsSnapshot{
		MessagesIn:          atomic.LoadUint64(&s.messagesIn),
		NotificationsIn:     atomic.LoadUint64(&s.notificationsIn),
		PresenceTransitions: atomic.LoadUint64(&s.presenceTransitions),
		Delivered:           atomic.LoadUint64(&s.delivered),
		DroppedDispatch:     atomic.LoadUint64(&s.droppedDispatch),
		SinkErrors:          atomic.LoadUint64(&s.sinkErrors),
		RecentDeliveries:    recent,
	}
}
