// Package realtime holds the process-wide mutable state of the push layer:
// the connection registry and the topic membership tracker. Both are owned,
// explicitly constructed instances synchronized per key bucket; nothing here
// is a package-level singleton and no single lock serializes unrelated users.
package realtime

import (
	"hash/fnv"
	"sync"
	"time"

	"market-live/contract"
	"market-live/domain"
	"market-live/domain/event"
)

const bucketCount = 32

type registryBucket struct {
	mu    sync.RWMutex
	users map[domain.UserID]map[domain.ConnectionID]contract.EventSink
}

// Registry maps each online user to the set of their live connections.
// Invariant: a user key exists iff the user has at least one connection, so
// the Offline→Online and Online→Offline transitions are detected exactly once
// per user, not once per connection.
//
// Presence events are handed to the dispatcher while the user's bucket is
// still locked: per-user transitions therefore enter the delivery queue in
// the order they happened and strictly alternate. Dispatch never blocks, so
// holding the bucket lock across it is safe.
type Registry struct {
	dispatcher contract.IDispatcher
	buckets    [bucketCount]registryBucket
}

func NewRegistry(dispatcher contract.IDispatcher) *Registry {
	r := &Registry{dispatcher: dispatcher}
	for i := range r.buckets {
		r.buckets[i].users = make(map[domain.UserID]map[domain.ConnectionID]contract.EventSink)
	}
	return r
}

func (r *Registry) bucketFor(user domain.UserID) *registryBucket {
	h := fnv.New32a()
	_, _ = h.Write([]byte(user))
	return &r.buckets[h.Sum32()%bucketCount]
}

// Connect registers a connection for a user. Idempotent per (user, conn):
// re-registering an existing pair only refreshes the sink. Returns true when
// the user just came online, in which case a PresenceChanged event has been
// dispatched.
func (r *Registry) Connect(user domain.UserID, conn domain.ConnectionID, sink contract.EventSink) bool {
	b := r.bucketFor(user)
	b.mu.Lock()
	defer b.mu.Unlock()

	conns, known := b.users[user]
	if !known {
		conns = make(map[domain.ConnectionID]contract.EventSink)
		b.users[user] = conns
	}
	conns[conn] = sink

	if known {
		return false
	}
	r.dispatcher.Dispatch(event.PresenceChanged{User: user, Online: true, At: time.Now().UTC()})
	return true
}

// Disconnect removes a connection. Removing the last one deletes the user key
// and dispatches the Offline transition. Unknown (user, conn) pairs are a
// no-op: duplicate disconnects are expected transport churn, not errors.
func (r *Registry) Disconnect(user domain.UserID, conn domain.ConnectionID) bool {
	b := r.bucketFor(user)
	b.mu.Lock()
	defer b.mu.Unlock()

	conns, known := b.users[user]
	if !known {
		return false
	}
	if _, member := conns[conn]; !member {
		return false
	}
	delete(conns, conn)
	if len(conns) > 0 {
		return false
	}
	delete(b.users, user)
	r.dispatcher.Dispatch(event.PresenceChanged{User: user, Online: false, At: time.Now().UTC()})
	return true
}

// SinksFor returns a point-in-time snapshot of the user's connection sinks.
// Callers must tolerate staleness: a connection may be gone by the time the
// snapshot is used. Nil means the user is offline, which is not an error.
func (r *Registry) SinksFor(user domain.UserID) []contract.EventSink {
	b := r.bucketFor(user)
	b.mu.RLock()
	defer b.mu.RUnlock()

	conns, ok := b.users[user]
	if !ok {
		return nil
	}
	sinks := make([]contract.EventSink, 0, len(conns))
	for _, sink := range conns {
		sinks = append(sinks, sink)
	}
	return sinks
}

// AllSinksExcept snapshots every live connection sink except those belonging
// to the given user. Used for presence broadcasts, which target everyone but
// the subject. Buckets are locked one at a time; the result is not a global
// atomic snapshot, which presence semantics do not require.
func (r *Registry) AllSinksExcept(subject domain.UserID) []contract.EventSink {
	var sinks []contract.EventSink
	for i := range r.buckets {
		b := &r.buckets[i]
		b.mu.RLock()
		for user, conns := range b.users {
			if user == subject {
				continue
			}
			for _, sink := range conns {
				sinks = append(sinks, sink)
			}
		}
		b.mu.RUnlock()
	}
	return sinks
}

// Online reports whether the user currently has at least one live connection.
func (r *Registry) Online(user domain.UserID) bool {
	b := r.bucketFor(user)
	b.mu.RLock()
	defer b.mu.RUnlock()
	_, ok := b.users[user]
	return ok
}

// Counts returns the number of online users and live connections.
func (r *Registry) Counts() (users, connections int) {
	for i := range r.buckets {
		b := &r.buckets[i]
		b.mu.RLock()
		users += len(b.users)
		for _, conns := range b.users {
			connections += len(conns)
		}
		b.mu.RUnlock()
	}
	return users, connections
}
