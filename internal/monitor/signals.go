// signals.go — per-subscription signal fan-out (spec §4.5, component C5).
package monitor

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/ssss2art/qtmcp/internal/framework"
	"github.com/ssss2art/qtmcp/internal/introspect"
	"github.com/ssss2art/qtmcp/internal/types"
)

// EventKind enumerates the server-pushed event kinds of spec §6.
type EventKind string

const (
	EventSignalEmitted        EventKind = "signalEmitted"
	EventSubscriptionCancelled EventKind = "subscriptionCancelled"
)

// Event is one server-pushed event, destined for one connection.
type Event struct {
	Kind      EventKind `json:"type"`
	SubID     types.SubscriptionID `json:"subId,omitempty"`
	ObjectID  string    `json:"objectId,omitempty"`
	Signal    string    `json:"signal,omitempty"`
	Args      any       `json:"args,omitempty"`
	ArgsError string    `json:"argsError,omitempty"`
	Reason    string    `json:"reason,omitempty"`
}

// Pusher delivers a pushed event to one connection. Implemented by
// internal/rpc's connection registry.
type Pusher interface {
	Push(connID string, ev Event)
}

// IDResolver maps an ObjectID to its current hierarchical ID string, used
// only to label pushed events; the registry satisfies this.
type IDResolver interface {
	IDOf(id types.ObjectID) string
}

// SignalMonitor tracks signal subscriptions and fans out emissions.
// Subscription bookkeeping is guarded by its own mutex because emissions can
// arrive from any thread the Framework chooses to emit a signal-spy callback
// on (spec §5).
type SignalMonitor struct {
	mu      sync.Mutex
	subs    map[types.SubscriptionID]types.Subscription
	counter uint64

	pusher   Pusher
	resolver IDResolver
}

// NewSignalMonitor returns a monitor that pushes events via pusher and
// labels them using resolver.
func NewSignalMonitor(pusher Pusher, resolver IDResolver) *SignalMonitor {
	return &SignalMonitor{
		subs:     make(map[types.SubscriptionID]types.Subscription),
		pusher:   pusher,
		resolver: resolver,
	}
}

// Subscribe records interest in a set of signals on one object for one
// connection and returns the new subscription's ID.
func (m *SignalMonitor) Subscribe(connID string, objID types.ObjectID, signals []string) types.SubscriptionID {
	id := types.SubscriptionID(fmt.Sprintf("sub_%d", atomic.AddUint64(&m.counter, 1)))
	sub := types.NewSubscription(id, connID, objID, signals)

	m.mu.Lock()
	m.subs[id] = sub
	m.mu.Unlock()
	return id
}

// Unsubscribe removes a subscription. Unknown IDs are a silent no-op — the
// caller maps that to an error at the RPC layer if it cares.
func (m *SignalMonitor) Unsubscribe(id types.SubscriptionID) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.subs[id]; !ok {
		return false
	}
	delete(m.subs, id)
	return true
}

// CloseConnection silently releases every subscription owned by connID (no
// subscriptionCancelled event — the connection itself is going away, per
// spec §4.6 "Subscriptions are torn down on CLOSING").
func (m *SignalMonitor) CloseConnection(connID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, sub := range m.subs {
		if sub.ConnID == connID {
			delete(m.subs, id)
		}
	}
}

// OnEmission implements framework.EmissionListener: it coerces the argument
// vector via introspect's rules and pushes signalEmitted to every interested
// subscription. Coercion failure never drops the event silently — it is
// delivered with args: null and an explicit argsError (spec §4.5).
func (m *SignalMonitor) OnEmission(e framework.Emission) {
	m.mu.Lock()
	var matches []types.Subscription
	for _, sub := range m.subs {
		if sub.ObjectID == e.ObjectID && sub.Signals[e.Signal] {
			matches = append(matches, sub)
		}
	}
	m.mu.Unlock()

	if len(matches) == 0 {
		return
	}

	args, argsErr := introspect.ToJSON(e.Args)
	var argsErrStr string
	if argsErr != nil {
		args = nil
		argsErrStr = argsErr.Error()
	}

	objID := m.resolver.IDOf(e.ObjectID)
	for _, sub := range matches {
		m.pusher.Push(sub.ConnID, Event{
			Kind: EventSignalEmitted, SubID: sub.ID, ObjectID: objID,
			Signal: e.Signal, Args: args, ArgsError: argsErrStr,
		})
	}
}

// OnDestroyed implements framework.LifetimeListener (the monitor is
// installed alongside the registry so it can react to source destruction):
// every subscription on the destroyed object is cancelled with reason
// "sourceDestroyed" and an explicit event, not silently dropped.
func (m *SignalMonitor) OnDestroyed(id types.ObjectID) {
	m.mu.Lock()
	var cancelled []types.Subscription
	for subID, sub := range m.subs {
		if sub.ObjectID == id {
			cancelled = append(cancelled, sub)
			delete(m.subs, subID)
		}
	}
	m.mu.Unlock()

	for _, sub := range cancelled {
		m.pusher.Push(sub.ConnID, Event{
			Kind: EventSubscriptionCancelled, SubID: sub.ID, Reason: "sourceDestroyed",
		})
	}
}

// OnConstructed implements framework.LifetimeListener as a no-op: the
// monitor only cares about destruction.
func (m *SignalMonitor) OnConstructed(types.TrackedObject) {}

// Count returns the number of live subscriptions, for tests and metrics.
func (m *SignalMonitor) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.subs)
}
