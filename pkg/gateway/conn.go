package gateway

import (
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/aeolun/teamline/pkg/protocol"
)

// socket is the write side of a transport connection. *websocket.Conn
// satisfies it; tests substitute a fake.
type socket interface {
	WriteJSON(v interface{}) error
	WriteControl(messageType int, data []byte, deadline time.Time) error
	SetWriteDeadline(t time.Time) error
	Close() error
}

// Conn is one live client connection bound to an authenticated identity.
// Writes are serialized through a mutex and bounded by a deadline so a slow
// peer cannot block delivery to other recipients.
type Conn struct {
	userID       int64
	sock         socket
	writeTimeout time.Duration

	writeMu sync.Mutex
	closed  bool
	closeMu sync.Mutex

	// pendingPings counts heartbeat pings sent since the last pong.
	pendingPings atomic.Int32
}

// NewConn wraps a transport connection for the given identity.
func NewConn(userID int64, sock socket, writeTimeout time.Duration) *Conn {
	return &Conn{
		userID:       userID,
		sock:         sock,
		writeTimeout: writeTimeout,
	}
}

// UserID returns the identity this connection authenticated as.
func (c *Conn) UserID() int64 {
	return c.userID
}

// Send delivers one envelope to the peer. Returns net.ErrClosed after Close.
func (c *Conn) Send(env protocol.Envelope) error {
	c.closeMu.Lock()
	if c.closed {
		c.closeMu.Unlock()
		return net.ErrClosed
	}
	c.closeMu.Unlock()

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if c.writeTimeout > 0 {
		c.sock.SetWriteDeadline(time.Now().Add(c.writeTimeout))
	}
	return c.sock.WriteJSON(env)
}

// Ping sends a heartbeat control frame and records it as pending until the
// peer answers with a pong.
func (c *Conn) Ping() error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	deadline := time.Now().Add(c.writeTimeout)
	if err := c.sock.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
		return err
	}
	c.pendingPings.Add(1)
	return nil
}

// MarkAlive resets the pending ping count. Called from the pong handler.
func (c *Conn) MarkAlive() {
	c.pendingPings.Store(0)
}

// PendingPings returns the number of unanswered heartbeat pings.
func (c *Conn) PendingPings() int {
	return int(c.pendingPings.Load())
}

// Close closes the underlying transport. Safe to call more than once.
func (c *Conn) Close() error {
	c.closeMu.Lock()
	defer c.closeMu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true
	return c.sock.Close()
}
