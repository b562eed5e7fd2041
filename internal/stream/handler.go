// Package stream implements the per connection protocol of the server:
// sniff the client request, answer with a header block chosen by the
// listening port, then stream pseudo-random bytes as HTTP/1.1 chunks.
//
// The chunked body is infinite on purpose: the terminating zero-length
// chunk is never sent. Standard HTTP clients wait for the end of the body
// until they give up or disconnect.
package stream

import (
	"context"
	"net"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/yusing/chunkstream/internal/chunk"
	"github.com/yusing/chunkstream/internal/common"
	"github.com/yusing/chunkstream/internal/randsrc"
	"golang.org/x/time/rate"
)

type (
	// Collector receives the metrics of every connection.
	Collector interface {
		ConnectionStarted(port int)
		ConnectionEnded(port int, duration time.Duration, bytesSent int64)
		BytesSent(port int, n int64)
	}
	Options struct {
		RequestTimeout time.Duration
		MaxRequestSize int
		BlockSize      int
		// RateLimit caps the bytes per second of each connection, 0 means unlimited.
		RateLimit int
		// RealtimeBytes reports every write to the collector instead of
		// reporting the total when the connection ends.
		RealtimeBytes bool
		Source        randsrc.Factory
	}
	Handler struct {
		opts      Options
		collector Collector
	}
	// Result describes how a connection ended.
	Result struct {
		// State is the last state reached before closing.
		State    State
		Request  *Request
		TimedOut bool
		Bytes    int64
		Duration time.Duration
		Reason   WriteResult
		Err      error
	}
)

func (o *Options) setDefaults() {
	if o.RequestTimeout <= 0 {
		o.RequestTimeout = common.RequestTimeoutDefault
	}
	if o.MaxRequestSize <= 0 {
		o.MaxRequestSize = common.MaxBlockSize
	}
	if o.BlockSize <= 0 || o.BlockSize > chunk.MaxBlockSize {
		o.BlockSize = chunk.MaxBlockSize
	}
	if o.Source == nil {
		o.Source = randsrc.NewChaCha20
	}
}

func NewHandler(collector Collector, opts Options) *Handler {
	opts.setDefaults()
	return &Handler{opts: opts, collector: collector}
}

// ServeConn implements listener.ConnHandler.
func (h *Handler) ServeConn(ctx context.Context, conn net.Conn, port int) {
	h.Serve(ctx, conn, port)
}

// Serve drives conn through AwaitRequest, SendHeaders and StreamChunks until
// the peer leaves, a write fails or ctx is canceled.
//
// conn is always closed and the connection reported to the collector
// exactly once when Serve returns.
func (h *Handler) Serve(ctx context.Context, conn net.Conn, port int) (res Result) {
	c := newConn(conn, port)
	h.collector.ConnectionStarted(port)
	log.Info().Object("conn", c).Msg("connection established")

	// unblocks pending reads and writes on shutdown
	stop := context.AfterFunc(ctx, func() {
		_ = conn.Close()
	})

	defer func() {
		stop()
		res.State = c.state
		c.state = StateClosed
		_ = conn.Close()

		res.Bytes = c.sent
		res.Duration = time.Since(c.start)
		if res.Reason == PeerClosed && ctx.Err() != nil {
			res.Err = context.Cause(ctx)
		}
		h.collector.ConnectionEnded(port, res.Duration, c.sent-c.reported)
		c.reported = c.sent
		logClosed(c, &res)
	}()

	c.state = StateAwaitRequest
	buf, timedOut := readRequest(conn, h.opts.MaxRequestSize, h.opts.RequestTimeout)
	res.TimedOut = timedOut
	res.Request = parseRequestLine(buf)
	if res.Request != nil {
		log.Debug().Object("conn", c).Object("request", res.Request).Msg("request received")
	} else {
		log.Debug().Object("conn", c).Int("read", len(buf)).Bool("timeout", timedOut).Msg("no request")
	}

	c.state = StateSendHeaders
	if res.Reason, res.Err = h.write(c, HeadersFor(port)); res.Reason != Written {
		return res
	}

	c.state = StateStreamChunks
	res.Reason, res.Err = h.streamChunks(ctx, c)
	return res
}

func (h *Handler) write(c *Conn, p []byte) (WriteResult, error) {
	before := c.sent
	result, err := c.write(p)
	if h.opts.RealtimeBytes && c.sent > before {
		h.collector.BytesSent(c.port, c.sent-c.reported)
		c.reported = c.sent
	}
	return result, err
}

func (h *Handler) streamChunks(ctx context.Context, c *Conn) (WriteResult, error) {
	src, err := h.opts.Source()
	if err != nil {
		return TransportError, err
	}
	defer randsrc.Close(src) //nolint:errcheck

	block := make([]byte, h.opts.BlockSize)
	frame := make([]byte, 0, chunk.FrameSize(h.opts.BlockSize))

	var limiter *rate.Limiter
	if h.opts.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(h.opts.RateLimit), max(h.opts.RateLimit, cap(frame)))
	}

	for {
		if err := src.Fill(block); err != nil {
			return TransportError, err
		}
		frame = chunk.AppendFrame(frame[:0], block)

		if limiter != nil {
			if err := limiter.WaitN(ctx, len(frame)); err != nil {
				// canceled, or the deadline falls before the next send
				<-ctx.Done()
				return PeerClosed, context.Cause(ctx)
			}
		}

		if result, err := h.write(c, frame); result != Written {
			return result, err
		}
	}
}

func logClosed(c *Conn, res *Result) {
	var e *zerolog.Event
	if res.Reason == TransportError {
		e = log.Error().Err(res.Err)
	} else {
		e = log.Info()
		if res.Err != nil {
			e = e.AnErr("reason", res.Err)
		}
	}
	e.Object("conn", c).
		Stringer("last_state", res.State).
		Stringer("outcome", res.Reason).
		Int64("bytes", res.Bytes).
		Dur("duration", res.Duration).
		Msg("connection closed")
}
