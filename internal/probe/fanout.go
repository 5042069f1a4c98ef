package probe

import (
	"github.com/ssss2art/qtmcp/internal/framework"
	"github.com/ssss2art/qtmcp/internal/types"
)

// lifetimeFanout forwards one Host callback to every interested consumer.
// hookshim.Install accepts a single LifetimeListener, but the registry, the
// signal monitor (which cancels subscriptions on source destruction), and
// the RPC engine (which broadcasts objectCreated/objectDestroyed) all need
// to observe the same events independently.
type lifetimeFanout struct {
	listeners []framework.LifetimeListener
}

func (f *lifetimeFanout) OnConstructed(obj types.TrackedObject) {
	for _, l := range f.listeners {
		l.OnConstructed(obj)
	}
}

func (f *lifetimeFanout) OnDestroyed(id types.ObjectID) {
	for _, l := range f.listeners {
		l.OnDestroyed(id)
	}
}

// emissionFanout forwards signal-spy callbacks the same way. Currently only
// the signal monitor consumes these, but the shim's Install signature still
// wants a single EmissionListener, and a second consumer (e.g. an audit
// trail) is a one-line addition here rather than a signature change.
type emissionFanout struct {
	listeners []framework.EmissionListener
}

func (f *emissionFanout) OnEmission(e framework.Emission) {
	for _, l := range f.listeners {
		l.OnEmission(e)
	}
}
