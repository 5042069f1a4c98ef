// server.go — WebSocket server (spec §4.7, component C7).
//
// Timeout constants and the readPump/writePump split are taken from
// teranos-QNTX/server/client.go's gorilla/websocket usage, re-tuned for
// QtMCP's small JSON-RPC frames instead of multi-megabyte graph payloads.
package wsserver

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/ssss2art/qtmcp/internal/logging"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 1 << 20 // QtMCP frames are small JSON-RPC objects, not video frames
	sendQueueSize  = 64      // backpressure threshold; a full queue closes with overflow
)

// Application-defined close codes, outside the IANA-reserved range.
const closeCodeOverflow = 4000

// Handler answers frames and tracks connection lifecycle. internal/rpc.Engine
// satisfies this directly.
type Handler interface {
	Connect(connID string)
	Disconnect(connID string)
	BeginClosing(connID string)
	Handle(connID string, raw []byte) (response []byte, fatal bool)
}

// Server is a loopback-default WebSocket listener implementing the wire
// protocol's single endpoint.
type Server struct {
	handler  Handler
	upgrader websocket.Upgrader

	mu       sync.Mutex
	listener net.Listener
	http     *http.Server
	conns    map[string]*connection
}

// New returns a Server that will answer requests via handler. Bind/port are
// supplied to Listen.
func New(handler Handler) *Server {
	return &Server{
		handler: handler,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
		conns: make(map[string]*connection),
	}
}

// Listen binds bind:port (port 0 requests an OS-assigned port) and starts
// serving in the background. Port() reports the bound port, satisfying the
// port-0 read-back discipline of spec §4.7.
func (s *Server) Listen(bind string, port int) error {
	ln, err := net.Listen("tcp", net.JoinHostPort(bind, strconv.Itoa(port)))
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.listener = ln
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleUpgrade)
	s.http = &http.Server{Handler: mux}
	s.mu.Unlock()

	go func() {
		if err := s.http.Serve(ln); err != nil && err != http.ErrServerClosed {
			logging.L().Warn("wsserver: serve exited", zap.Error(err))
		}
	}()
	return nil
}

// Port returns the bound TCP port, valid only after Listen succeeds.
func (s *Server) Port() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return 0
	}
	return s.listener.Addr().(*net.TCPAddr).Port
}

// Shutdown closes the listener and every live connection.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	srv := s.http
	conns := make([]*connection, 0, len(s.conns))
	for _, c := range s.conns {
		conns = append(conns, c)
	}
	s.mu.Unlock()

	for _, c := range conns {
		s.handler.BeginClosing(c.id)
		c.close(websocket.CloseGoingAway, "server shutting down")
	}
	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}

func (s *Server) handleUpgrade(w http.ResponseWriter, r *http.Request) {
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.L().Warn("wsserver: upgrade failed", zap.Error(err))
		return
	}

	connID := uuid.NewString()
	c := &connection{id: connID, ws: ws, server: s, send: make(chan []byte, sendQueueSize), done: make(chan struct{})}

	s.mu.Lock()
	s.conns[connID] = c
	s.mu.Unlock()

	s.handler.Connect(connID)
	go c.writePump()
	go c.readPump()
}

// Send implements rpc.Sender: it hands data to the named connection's write
// queue, closing the connection with overflow if the queue is full (spec §7
// "Overflow on the per-connection delivery queue closes the connection with
// overflow").
func (s *Server) Send(connID string, data []byte) error {
	s.mu.Lock()
	c, ok := s.conns[connID]
	s.mu.Unlock()
	if !ok {
		return nil
	}
	select {
	case c.send <- data:
		return nil
	default:
		c.close(closeCodeOverflow, "overflow")
		return nil
	}
}

func (s *Server) forget(connID string) {
	s.mu.Lock()
	delete(s.conns, connID)
	s.mu.Unlock()
}
