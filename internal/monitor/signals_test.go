package monitor

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ssss2art/qtmcp/internal/framework"
	"github.com/ssss2art/qtmcp/internal/types"
)

type fakePusher struct {
	events []pushed
}

type pushed struct {
	connID string
	event  Event
}

func (p *fakePusher) Push(connID string, ev Event) {
	p.events = append(p.events, pushed{connID, ev})
}

type fakeResolver struct{}

func (fakeResolver) IDOf(id types.ObjectID) string { return "QPushButton#submit" }

func TestSubscribeThenEmissionPushesEvent(t *testing.T) {
	pusher := &fakePusher{}
	m := NewSignalMonitor(pusher, fakeResolver{})

	subID := m.Subscribe("conn1", 42, []string{"clicked"})
	require.NotEmpty(t, subID)

	m.OnEmission(framework.Emission{ObjectID: 42, Signal: "clicked", Args: nil})

	require.Len(t, pusher.events, 1)
	require.Equal(t, EventSignalEmitted, pusher.events[0].event.Kind)
	require.Equal(t, "conn1", pusher.events[0].connID)
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	pusher := &fakePusher{}
	m := NewSignalMonitor(pusher, fakeResolver{})
	subID := m.Subscribe("conn1", 42, []string{"clicked"})

	ok := m.Unsubscribe(subID)
	require.True(t, ok)

	m.OnEmission(framework.Emission{ObjectID: 42, Signal: "clicked"})
	require.Empty(t, pusher.events)
}

func TestUnsubscribeUnknownIsNoop(t *testing.T) {
	pusher := &fakePusher{}
	m := NewSignalMonitor(pusher, fakeResolver{})
	require.False(t, m.Unsubscribe("sub_999"))
}

func TestSourceDestructionCancelsSubscription(t *testing.T) {
	pusher := &fakePusher{}
	m := NewSignalMonitor(pusher, fakeResolver{})
	m.Subscribe("conn1", 42, []string{"clicked"})

	m.OnDestroyed(42)

	require.Len(t, pusher.events, 1)
	require.Equal(t, EventSubscriptionCancelled, pusher.events[0].event.Kind)
	require.Equal(t, "sourceDestroyed", pusher.events[0].event.Reason)
	require.Equal(t, 0, m.Count())
}

func TestCloseConnectionReleasesSubscriptionsSilently(t *testing.T) {
	pusher := &fakePusher{}
	m := NewSignalMonitor(pusher, fakeResolver{})
	m.Subscribe("conn1", 42, []string{"clicked"})
	m.Subscribe("conn2", 43, []string{"textChanged"})

	m.CloseConnection("conn1")
	require.Equal(t, 1, m.Count())
	require.Empty(t, pusher.events)
}

func TestUnrelatedSignalDoesNotDeliver(t *testing.T) {
	pusher := &fakePusher{}
	m := NewSignalMonitor(pusher, fakeResolver{})
	m.Subscribe("conn1", 42, []string{"clicked"})

	m.OnEmission(framework.Emission{ObjectID: 42, Signal: "textChanged"})
	require.Empty(t, pusher.events)
}
