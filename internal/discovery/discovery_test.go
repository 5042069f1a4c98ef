package discovery

import (
	"context"
	"encoding/json"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestAnnouncementCarriesListeningPort(t *testing.T) {
	iface, err := net.InterfaceByName("lo")
	if err != nil {
		t.Skipf("no loopback interface available: %v", err)
	}
	addr, err := net.ResolveUDPAddr("udp4", net.JoinHostPort(Group, "47810"))
	require.NoError(t, err)
	listener, err := net.ListenMulticastUDP("udp4", iface, addr)
	if err != nil {
		t.Skipf("multicast join unavailable in this sandbox: %v", err)
	}
	defer listener.Close()
	require.NoError(t, listener.SetReadBuffer(1<<16))

	b, err := New(54321, "1.0", "1")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go b.Run(ctx)

	buf := make([]byte, 4096)
	require.NoError(t, listener.SetReadDeadline(time.Now().Add(3*time.Second)))
	n, _, err := listener.ReadFromUDP(buf)
	require.NoError(t, err)

	var ann Announcement
	require.NoError(t, json.Unmarshal(buf[:n], &ann))
	require.Equal(t, 54321, ann.Port)
	require.Equal(t, "1.0", ann.FrameworkVersion)
}
