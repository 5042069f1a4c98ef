// discovery.go — discovery broadcaster (spec §4.8, component C8).
//
// Periodic UDP multicast announcement, grounded in nothing teacher-specific
// (no repo in the pack does discovery) and built directly from spec.md
// §4.8/§8. Uses gopsutil/v3/process the same way teranos-QNTX/pulse/async
// uses gopsutil/v3/mem: one focused call wrapped in cockroachdb/errors.
package discovery

import (
	"context"
	"encoding/json"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/shirou/gopsutil/v3/process"
	"go.uber.org/zap"

	"github.com/ssss2art/qtmcp/internal/logging"
)

// Group and Port are the fixed discovery multicast coordinates (spec §4.8
// "fixed group and port"); chosen from the administratively-scoped IPv4
// multicast block (RFC 2365) to avoid colliding with routed traffic.
const (
	Group = "239.255.42.99"
	Port  = 47810

	interval = time.Second
)

// Announcement is the discovery datagram payload (spec §4.8).
type Announcement struct {
	PID              int    `json:"pid"`
	Port             int    `json:"port"`
	ExecutableName   string `json:"executable_name"`
	FrameworkVersion string `json:"framework_version"`
	ProtocolVersion  string `json:"protocol_version"`
}

// Broadcaster periodically emits Announcement datagrams to Group:Port.
type Broadcaster struct {
	port             int
	frameworkVersion string
	protocolVersion  string
	executableName   string

	conn *net.UDPConn
}

// New resolves the current process's executable name via gopsutil and
// returns a Broadcaster for the given listening port. frameworkVersion
// identifies the host framework build; protocolVersion is the wire
// protocol's own version tag.
func New(listeningPort int, frameworkVersion, protocolVersion string) (*Broadcaster, error) {
	name, err := executableName()
	if err != nil {
		logging.L().Warn("discovery: executable name resolution failed, announcing an empty name", zap.Error(err))
		name = ""
	}

	addr, err := net.ResolveUDPAddr("udp4", net.JoinHostPort(Group, strconv.Itoa(Port)))
	if err != nil {
		return nil, errors.Wrap(err, "discovery: resolve multicast address")
	}
	conn, err := net.DialUDP("udp4", nil, addr)
	if err != nil {
		return nil, errors.Wrap(err, "discovery: dial multicast group")
	}

	return &Broadcaster{
		port: listeningPort, frameworkVersion: frameworkVersion, protocolVersion: protocolVersion,
		executableName: name, conn: conn,
	}, nil
}

func executableName() (string, error) {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return "", errors.Wrap(err, "discovery: open self process handle")
	}
	name, err := proc.Name()
	if err != nil {
		return "", errors.Wrap(err, "discovery: read process name")
	}
	return name, nil
}

// Run emits an announcement every second until ctx is cancelled. A failed
// send is logged at warn and the loop continues (spec §7 "the probe never
// deliberately aborts the host").
func (b *Broadcaster) Run(ctx context.Context) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	defer b.conn.Close()

	b.announceOnce()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			b.announceOnce()
		}
	}
}

func (b *Broadcaster) announceOnce() {
	payload, err := json.Marshal(Announcement{
		PID: os.Getpid(), Port: b.port, ExecutableName: b.executableName,
		FrameworkVersion: b.frameworkVersion, ProtocolVersion: b.protocolVersion,
	})
	if err != nil {
		logging.L().Warn("discovery: failed to encode announcement", zap.Error(err))
		return
	}
	if _, err := b.conn.Write(payload); err != nil {
		logging.L().Warn("discovery: failed to send announcement", zap.Error(err))
	}
}
