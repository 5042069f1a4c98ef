package wsserver

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

type fakeHandler struct {
	connected    []string
	disconnected []string
	closing      []string
	reply        []byte
	fatal        bool
}

func (f *fakeHandler) Connect(connID string)      { f.connected = append(f.connected, connID) }
func (f *fakeHandler) Disconnect(connID string)   { f.disconnected = append(f.disconnected, connID) }
func (f *fakeHandler) BeginClosing(connID string) { f.closing = append(f.closing, connID) }
func (f *fakeHandler) Handle(connID string, raw []byte) ([]byte, bool) {
	return f.reply, f.fatal
}

func dialLoopback(t *testing.T, s *Server) *websocket.Conn {
	t.Helper()
	require.NoError(t, s.Listen("127.0.0.1", 0))
	require.Greater(t, s.Port(), 0)

	url := "ws://127.0.0.1:" + strconv.Itoa(s.Port())
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	return conn
}

func TestPortZeroBindsAndReportsRealPort(t *testing.T) {
	h := &fakeHandler{reply: nil}
	s := New(h)
	require.NoError(t, s.Listen("127.0.0.1", 0))
	defer s.Shutdown(context.Background())
	require.Greater(t, s.Port(), 0)
}

func TestConnectCallsHandlerOnUpgrade(t *testing.T) {
	h := &fakeHandler{reply: []byte(`{"jsonrpc":"2.0","id":"1","result":{}}`)}
	s := New(h)
	conn := dialLoopback(t, s)
	defer conn.Close()
	defer s.Shutdown(context.Background())

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"jsonrpc":"2.0","id":"1","method":"noop"}`)))

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	require.Contains(t, string(data), `"result"`)

	require.Eventually(t, func() bool { return len(h.connected) == 1 }, time.Second, 10*time.Millisecond)
}

func TestFatalResponseClosesConnection(t *testing.T) {
	h := &fakeHandler{reply: []byte(`{"jsonrpc":"2.0","error":{"code":"parse","message":"bad"}}`), fatal: true}
	s := New(h)
	conn := dialLoopback(t, s)
	defer conn.Close()
	defer s.Shutdown(context.Background())

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`not valid json`)))

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err := conn.ReadMessage()
	require.Error(t, err)

	require.Eventually(t, func() bool { return len(h.disconnected) == 1 }, time.Second, 10*time.Millisecond)
}

func TestBinaryFrameIsProtocolViolation(t *testing.T) {
	h := &fakeHandler{}
	s := New(h)
	conn := dialLoopback(t, s)
	defer conn.Close()
	defer s.Shutdown(context.Background())

	require.NoError(t, conn.WriteMessage(websocket.BinaryMessage, []byte{1, 2, 3}))

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err := conn.ReadMessage()
	require.Error(t, err)
	closeErr, ok := err.(*websocket.CloseError)
	require.True(t, ok)
	require.Equal(t, websocket.CloseProtocolError, closeErr.Code)
}
