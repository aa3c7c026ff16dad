package broker

import (
	"fmt"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Role is the connection's protocol role, assigned once at handshake
// and never changed afterward (spec.md §3).
type Role int32

const (
	RoleUnassigned Role = iota
	RolePublisher
	RoleConsumer
)

func (r Role) String() string {
	switch r {
	case RolePublisher:
		return "publisher"
	case RoleConsumer:
		return "consumer"
	default:
		return "unassigned"
	}
}

// Connection wraps one TCP socket with a fixed read buffer and
// per-direction locks, following the teacher's clientSession pattern
// (mqttbroker/broker.go: a single writeMu guarding conn.Write) extended
// with a matching read-side lock since this protocol's Group dispatch
// reads acks from the same connection a publisher's handshake task
// may still be touching during handoff.
type Connection struct {
	id     uuid.UUID
	conn   net.Conn
	addr   string
	logger *slog.Logger

	writeTimeout time.Duration
	readTimeout  time.Duration
	bufSize      int

	readMu  sync.Mutex
	writeMu sync.Mutex
	role    atomic.Int32
}

// NewConnection constructs a Connection around an accepted socket.
func NewConnection(conn net.Conn, readTimeout, writeTimeout time.Duration, bufSize int, logger *slog.Logger) *Connection {
	return &Connection{
		id:           uuid.New(),
		conn:         conn,
		addr:         conn.RemoteAddr().String(),
		logger:       logger,
		readTimeout:  readTimeout,
		writeTimeout: writeTimeout,
		bufSize:      bufSize,
	}
}

func (c *Connection) ID() uuid.UUID  { return c.id }
func (c *Connection) Addr() string   { return c.addr }
func (c *Connection) Role() Role     { return Role(c.role.Load()) }
func (c *Connection) SetRole(r Role) { c.role.Store(int32(r)) }
func (c *Connection) Close() error   { return c.conn.Close() }

// ReadFrame reads up to bufSize bytes in one attempt, per spec.md §4.3.
// A timeout of 0 blocks indefinitely (the publisher role's unbounded
// read); any positive timeout bounds the wait (the consumer role's
// 500ms ack read and the handshake's initial read).
func (c *Connection) ReadFrame(timeout time.Duration) ([]byte, *Error) {
	c.readMu.Lock()
	defer c.readMu.Unlock()

	if timeout > 0 {
		if err := c.conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
			return nil, newError(KindUnknown, err)
		}
	} else {
		if err := c.conn.SetReadDeadline(time.Time{}); err != nil {
			return nil, newError(KindUnknown, err)
		}
	}

	buf := make([]byte, c.bufSize+1)
	n, err := c.conn.Read(buf)
	if n == 0 {
		if err == nil {
			return nil, newError(KindDisconnected, nil)
		}
		if ne, ok := err.(net.Error); ok && ne.Timeout() {
			return nil, newError(KindTimeout, err)
		}
		return nil, newError(KindDisconnected, err)
	}
	if n > c.bufSize {
		return nil, newError(KindTooLong, nil)
	}
	return buf[:n], nil
}

// Send writes payload in full, applying the connection's write timeout.
func (c *Connection) Send(payload []byte) *Error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if err := c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout)); err != nil {
		return newError(KindUnknown, err)
	}
	if _, err := c.conn.Write(payload); err != nil {
		if ne, ok := err.(net.Error); ok && ne.Timeout() {
			return newError(KindTimeout, err)
		}
		return newError(KindDisconnected, err)
	}
	return nil
}

func (c *Connection) SendOkSubscribed() *Error {
	return c.Send([]byte("ok subscribed"))
}

// SendOkPublisher sends the publisher ack and atomically marks the
// connection's role, per spec.md §4.3.
func (c *Connection) SendOkPublisher() *Error {
	if err := c.Send([]byte("ok publisher")); err != nil {
		return err
	}
	c.SetRole(RolePublisher)
	return nil
}

func (c *Connection) SendOkMessage() *Error {
	return c.Send([]byte("ok message"))
}

func (c *Connection) SendErrorMessage(msg string) *Error {
	return c.Send([]byte(fmt.Sprintf("error %q", msg)))
}

// ReadTimeout returns the configured consumer-role ack timeout.
func (c *Connection) ReadTimeout() time.Duration { return c.readTimeout }
