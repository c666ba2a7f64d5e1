package realtime

import (
	"hash/fnv"
	"sync"

	"market-live/contract"
	"market-live/domain"
)

type groupBucket struct {
	mu     sync.RWMutex
	topics map[domain.Topic]map[domain.ConnectionID]contract.EventSink
}

// Groups is the topic membership tracker: a pure multiplexing primitive with
// no access control (authorization happens before Join is called). Topics are
// created implicitly on first Join and deleted implicitly when the last
// member leaves. Sharded per topic hash so unrelated topics never contend.
type Groups struct {
	buckets [bucketCount]groupBucket
}

func NewGroups() *Groups {
	g := &Groups{}
	for i := range g.buckets {
		g.buckets[i].topics = make(map[domain.Topic]map[domain.ConnectionID]contract.EventSink)
	}
	return g
}

func (g *Groups) bucketFor(topic domain.Topic) *groupBucket {
	h := fnv.New32a()
	_, _ = h.Write([]byte(topic))
	return &g.buckets[h.Sum32()%bucketCount]
}

// Join adds a connection to a topic. Idempotent: returns false when the
// connection was already a member.
func (g *Groups) Join(topic domain.Topic, conn domain.ConnectionID, sink contract.EventSink) bool {
	b := g.bucketFor(topic)
	b.mu.Lock()
	defer b.mu.Unlock()

	members, ok := b.topics[topic]
	if !ok {
		members = make(map[domain.ConnectionID]contract.EventSink)
		b.topics[topic] = members
	}
	if _, member := members[conn]; member {
		members[conn] = sink
		return false
	}
	members[conn] = sink
	return true
}

// Leave removes a connection from a topic; leaving a topic one is not a
// member of is a no-op. The topic entry disappears with its last member.
func (g *Groups) Leave(topic domain.Topic, conn domain.ConnectionID) bool {
	b := g.bucketFor(topic)
	b.mu.Lock()
	defer b.mu.Unlock()

	members, ok := b.topics[topic]
	if !ok {
		return false
	}
	if _, member := members[conn]; !member {
		return false
	}
	delete(members, conn)
	if len(members) == 0 {
		delete(b.topics, topic)
	}
	return true
}

// LeaveAll removes a connection from every topic it belongs to. Called on
// disconnect; safe to call more than once for the same connection.
func (g *Groups) LeaveAll(conn domain.ConnectionID) {
	for i := range g.buckets {
		b := &g.buckets[i]
		b.mu.Lock()
		for topic, members := range b.topics {
			if _, member := members[conn]; !member {
				continue
			}
			delete(members, conn)
			if len(members) == 0 {
				delete(b.topics, topic)
			}
		}
		b.mu.Unlock()
	}
}

// SinksFor snapshots the sinks of every connection currently in the topic.
// Nil when the topic has no members.
func (g *Groups) SinksFor(topic domain.Topic) []contract.EventSink {
	b := g.bucketFor(topic)
	b.mu.RLock()
	defer b.mu.RUnlock()

	members, ok := b.topics[topic]
	if !ok {
		return nil
	}
	sinks := make([]contract.EventSink, 0, len(members))
	for _, sink := range members {
		sinks = append(sinks, sink)
	}
	return sinks
}

// Counts returns the number of live topics and total memberships.
func (g *Groups) Counts() (topics, members int) {
	for i := range g.buckets {
		b := &g.buckets[i]
		b.mu.RLock()
		topics += len(b.topics)
		for _, m := range b.topics {
			members += len(m)
		}
		b.mu.RUnlock()
	}
	return topics, members
}
