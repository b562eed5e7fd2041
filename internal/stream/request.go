package stream

import (
	"bytes"
	"errors"
	"net"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

var headerTerminator = []byte("\r\n\r\n")

// Request is the decoded first line of a client request, for logging only.
type Request struct {
	Method  string
	Path    string
	Version string
}

func (r *Request) MarshalZerologObject(e *zerolog.Event) {
	e.Str("method", r.Method).Str("path", r.Path).Str("version", r.Version)
}

// readRequest reads until the header terminator, maxSize bytes, the timeout,
// or any read error, whichever comes first.
//
// It never fails, the outcome only matters for logging.
func readRequest(conn net.Conn, maxSize int, timeout time.Duration) (buf []byte, timedOut bool) {
	buf = make([]byte, 0, maxSize)
	if timeout > 0 {
		_ = conn.SetReadDeadline(time.Now().Add(timeout))
		defer conn.SetReadDeadline(time.Time{}) //nolint:errcheck
	}
	for len(buf) < maxSize {
		searchFrom := max(0, len(buf)-len(headerTerminator)+1)
		n, err := conn.Read(buf[len(buf):maxSize])
		buf = buf[:len(buf)+n]
		if bytes.Contains(buf[searchFrom:], headerTerminator) {
			return buf, false
		}
		if err != nil {
			return buf, isTimeout(err)
		}
	}
	return buf, false
}

func isTimeout(err error) bool {
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// parseRequestLine decodes "METHOD PATH HTTP/x.y" from the first line of buf.
//
// It returns nil when there is no complete, well-formed first line.
func parseRequestLine(buf []byte) *Request {
	line, _, found := bytes.Cut(buf, []byte("\r\n"))
	if !found {
		return nil
	}
	fields := strings.Fields(string(line))
	if len(fields) != 3 || !strings.HasPrefix(fields[2], "HTTP/") {
		return nil
	}
	return &Request{Method: fields[0], Path: fields[1], Version: fields[2]}
}
