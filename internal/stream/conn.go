package stream

import (
	"net"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// State is the protocol state of a connection.
type State uint8

const (
	StateAwaitRequest State = iota
	StateSendHeaders
	StateStreamChunks
	StateClosed
)

var stateNames = [...]string{
	StateAwaitRequest: "await_request",
	StateSendHeaders:  "send_headers",
	StateStreamChunks: "stream_chunks",
	StateClosed:       "closed",
}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "unknown"
}

// Conn is the state of one accepted connection, owned by its handler.
type Conn struct {
	id    uuid.UUID
	conn  net.Conn
	port  int
	start time.Time
	state State

	sent     int64 // bytes written so far
	reported int64 // bytes already reported through BytesSent
}

func newConn(conn net.Conn, port int) *Conn {
	return &Conn{
		id:    uuid.New(),
		conn:  conn,
		port:  port,
		start: time.Now(),
	}
}

func (c *Conn) MarshalZerologObject(e *zerolog.Event) {
	e.Stringer("id", c.id).
		Int("port", c.port).
		Str("remote", remoteAddr(c.conn)).
		Stringer("state", c.state)
}

func remoteAddr(conn net.Conn) string {
	if addr := conn.RemoteAddr(); addr != nil {
		return addr.String()
	}
	return "unknown"
}

// write writes p in full and accumulates the bytes actually written,
// including those of a partial write.
func (c *Conn) write(p []byte) (WriteResult, error) {
	n, err := c.conn.Write(p)
	c.sent += int64(n)
	if err == nil && n < len(p) {
		// a short write without error means the peer is gone
		return PeerClosed, nil
	}
	return Classify(err), err
}
