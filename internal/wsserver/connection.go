package wsserver

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/ssss2art/qtmcp/internal/logging"
)

// connection is one upgraded WebSocket client, paired with its outbound
// queue. Shape mirrors teranos-QNTX/server/client.go's readPump/writePump
// split: reads happen inline (one frame answered before the next is read,
// which is what gives each connection FIFO response ordering for free),
// writes go through a buffered channel drained by a dedicated goroutine.
type connection struct {
	id     string
	ws     *websocket.Conn
	server *Server
	send   chan []byte
	done   chan struct{}

	closeOnce sync.Once
}

func (c *connection) readPump() {
	defer func() {
		c.server.handler.Disconnect(c.id)
		c.server.forget(c.id)
		c.ws.Close()
	}()

	c.ws.SetReadLimit(maxMessageSize)
	c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		c.ws.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		msgType, data, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNoStatusReceived) {
				logging.L().Info("wsserver: connection closed", zap.String(logging.FieldConnectionID, c.id), zap.Error(err))
			}
			return
		}

		if msgType != websocket.TextMessage {
			c.close(websocket.CloseProtocolError, "text frames only")
			return
		}

		resp, fatal := c.server.handler.Handle(c.id, data)
		if resp != nil {
			select {
			case c.send <- resp:
			default:
				c.close(closeCodeOverflow, "overflow")
				return
			}
		}
		if fatal {
			c.close(websocket.CloseProtocolError, "protocol error")
			return
		}
	}
}

func (c *connection) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.ws.Close()
	}()

	for {
		select {
		case data := <-c.send:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-c.done:
			return
		case <-ticker.C:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// close sends a close frame with code/reason and signals writePump to stop,
// safe to call more than once or concurrently. It never closes c.send: that
// channel is also written to by Server.Send from arbitrary Framework
// threads via Engine.Push, and a send on a closed channel would panic.
func (c *connection) close(code int, reason string) {
	c.closeOnce.Do(func() {
		deadline := time.Now().Add(writeWait)
		msg := websocket.FormatCloseMessage(code, reason)
		_ = c.ws.WriteControl(websocket.CloseMessage, msg, deadline)
		close(c.done)
	})
}
