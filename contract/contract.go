//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"context"
	"reflect"

	"market-live/domain"
	"market-live/domain/event"
)

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

type WorkerName string

// Worker doesn't protect itself
// Can be silly, focused
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the worker.
// This is used for logging and supervision purposes during worker
// lifecycle events, avoiding the need for manual naming in the Worker interface.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

// EventSink is one live connection's inbox. Consume must not block the
// fan-out path: implementations buffer or drop.
type EventSink interface {
	Consume(ctx context.Context, e event.DeliveryEvent) error
}

// IRegistry tracks which users are online and through which connections.
// Connect reports whether the user just came online; Disconnect reports
// whether the user just went offline. Both are idempotent per (user, conn).
type IRegistry interface {
	Connect(user domain.UserID, conn domain.ConnectionID, sink EventSink) bool
	Disconnect(user domain.UserID, conn domain.ConnectionID) bool
	SinksFor(user domain.UserID) []EventSink
	AllSinksExcept(user domain.UserID) []EventSink
	Online(user domain.UserID) bool
	Counts() (users, connections int)
}

// IGroups tracks dynamic topic membership per connection.
type IGroups interface {
	Join(topic domain.Topic, conn domain.ConnectionID, sink EventSink) bool
	Leave(topic domain.Topic, conn domain.ConnectionID) bool
	LeaveAll(conn domain.ConnectionID)
	SinksFor(topic domain.Topic) []EventSink
	Counts() (topics, members int)
}

// IDispatcher enqueues a delivery event for asynchronous fan-out. It never
// blocks the caller; a full queue drops the event.
type IDispatcher interface {
	Dispatch(e event.DeliveryEvent)
}

// IIdentityResolver maps a transport credential to a user identity.
// An empty token or a bad signature yields ok=false, not an error: an
// unauthenticated connection is a valid state.
type IIdentityResolver interface {
	Resolve(token string) (domain.UserID, bool)
}

// IAuthorizer answers "may this user enter this topic". Consulted before any
// Join; the groups tracker itself performs no access control.
type IAuthorizer interface {
	MayAccess(user domain.UserID, topic domain.Topic) bool
}
