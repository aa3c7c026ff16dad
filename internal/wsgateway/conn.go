// Package wsgateway bridges the text command protocol over WebSocket
// so browser-based publishers/consumers can reach the broker without
// touching the core TCP transport (SPEC_FULL.md PART C). Adapted from
// gorilla/websocket, the pack's only real example of the library
// (madcok-co-unicorn/triggers/websocket.go uses it purely as a
// connection-tracking trigger with no wire adapter, so the net.Conn
// bridge here is new wiring rather than a copy).
package wsgateway

import (
	"net"
	"time"

	"github.com/gorilla/websocket"
)

// wsConn adapts a *websocket.Conn to the net.Conn shape broker.Connection
// expects, so the broker's framing, locking, and timeout logic stays
// transport-agnostic. Each WS message is treated as one frame: Read
// returns at most one message's bytes per call, mirroring how a TCP
// Connection.ReadFrame treats one socket Read as one frame.
type wsConn struct {
	ws *websocket.Conn

	readDeadline  time.Time
	writeDeadline time.Time

	pending []byte // leftover bytes from a message larger than the caller's buffer
}

// NewConn wraps ws as a net.Conn.
func NewConn(ws *websocket.Conn) net.Conn {
	return &wsConn{ws: ws}
}

func (c *wsConn) Read(b []byte) (int, error) {
	if len(c.pending) == 0 {
		// A zero deadline is passed through too, clearing any earlier one.
		if err := c.ws.SetReadDeadline(c.readDeadline); err != nil {
			return 0, err
		}
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			return 0, err
		}
		c.pending = data
	}

	n := copy(b, c.pending)
	c.pending = c.pending[n:]
	return n, nil
}

func (c *wsConn) Write(b []byte) (int, error) {
	if !c.writeDeadline.IsZero() {
		if err := c.ws.SetWriteDeadline(c.writeDeadline); err != nil {
			return 0, err
		}
	}
	if err := c.ws.WriteMessage(websocket.TextMessage, b); err != nil {
		return 0, err
	}
	return len(b), nil
}

func (c *wsConn) Close() error        { return c.ws.Close() }
func (c *wsConn) LocalAddr() net.Addr { return c.ws.LocalAddr() }
func (c *wsConn) RemoteAddr() net.Addr { return c.ws.RemoteAddr() }

func (c *wsConn) SetDeadline(t time.Time) error {
	if err := c.SetReadDeadline(t); err != nil {
		return err
	}
	return c.SetWriteDeadline(t)
}
func (c *wsConn) SetReadDeadline(t time.Time) error {
	c.readDeadline = t
	return nil
}
func (c *wsConn) SetWriteDeadline(t time.Time) error {
	c.writeDeadline = t
	return nil
}
