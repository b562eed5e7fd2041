package stream

import (
	"context"
	"errors"
	"io"
	"net"
	"syscall"
)

// WriteResult is the outcome of a single write to the peer.
type WriteResult uint8

const (
	Written WriteResult = iota
	PeerClosed
	TransportError
)

func (r WriteResult) String() string {
	switch r {
	case Written:
		return "written"
	case PeerClosed:
		return "peer closed"
	case TransportError:
		return "transport error"
	default:
		return "unknown"
	}
}

// Classify maps a write error to a WriteResult.
//
// Resets, broken pipes and closed connections are the normal way a client
// leaves, they are not errors.
func Classify(err error) WriteResult {
	switch {
	case err == nil:
		return Written
	case errors.Is(err, syscall.EPIPE),
		errors.Is(err, syscall.ECONNRESET),
		errors.Is(err, syscall.ECONNABORTED),
		errors.Is(err, net.ErrClosed),
		errors.Is(err, io.ErrClosedPipe),
		errors.Is(err, io.EOF),
		errors.Is(err, context.Canceled):
		return PeerClosed
	default:
		return TransportError
	}
}
