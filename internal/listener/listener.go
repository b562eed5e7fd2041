package listener

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/yusing/chunkstream/internal/task"
	"go.uber.org/atomic"
	"golang.org/x/net/netutil"
)

type (
	// ConnHandler serves one accepted connection and closes it when done.
	ConnHandler interface {
		ServeConn(ctx context.Context, conn net.Conn, port int)
	}
	Config struct {
		// Port is the logical port, used to select response headers and
		// to key metrics.
		Port int
		// Addr is the bind address, defaults to ":<Port>".
		Addr string
		// MaxConnections caps concurrent connections, 0 means unbounded.
		MaxConnections int
	}
	Listener struct {
		cfg     Config
		handler ConnHandler

		listener net.Listener
		task     *task.Task

		closed atomic.Bool
		active atomic.Int64
		// closed once the accept loop has returned, no wg.Add after that
		acceptDone chan struct{}
		wg         sync.WaitGroup
	}
)

var ErrAlreadyStarted = errors.New("listener already started")

func New(cfg Config, handler ConnHandler) *Listener {
	if cfg.Addr == "" {
		cfg.Addr = net.JoinHostPort("", strconv.Itoa(cfg.Port))
	}
	return &Listener{cfg: cfg, handler: handler, acceptDone: make(chan struct{})}
}

// ListenAndServe binds the listening socket and starts the accept loop
// under a subtask of parent.
//
// It returns the bind error if any, the accept loop runs until the
// listener is closed or parent is canceled.
func (l *Listener) ListenAndServe(parent task.Parent) error {
	if l.listener != nil {
		return ErrAlreadyStarted
	}
	lis, err := listen(parent.Context(), l.cfg.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", l.cfg.Addr, err)
	}
	if l.cfg.MaxConnections > 0 {
		lis = netutil.LimitListener(lis, l.cfg.MaxConnections)
	}
	l.listener = lis
	l.task = parent.Subtask("listener."+strconv.Itoa(l.cfg.Port), true)
	l.task.OnCancel("close_listener", func() {
		_ = l.Close()
		<-l.acceptDone
		l.wg.Wait()
	})

	log.Info().Object("listener", l).Msg("listening")
	go l.serve()
	return nil
}

func (l *Listener) serve() {
	defer l.task.Finish(nil)
	defer close(l.acceptDone)

	ctx := l.task.Context()
	for {
		if l.closed.Load() {
			return
		}

		select {
		case <-ctx.Done():
			return
		default:
			conn, err := l.listener.Accept()
			if err != nil {
				if l.closed.Load() || errors.Is(err, net.ErrClosed) {
					return
				}
				log.Err(err).Object("listener", l).Msg("failed to accept connection")
				time.Sleep(acceptRetryDelay)
				continue
			}
			if l.closed.Load() {
				_ = conn.Close()
				return
			}
			l.active.Inc()
			l.wg.Add(1)
			go func() {
				defer l.wg.Done()
				defer l.active.Dec()
				l.handler.ServeConn(ctx, conn, l.cfg.Port)
			}()
		}
	}
}

const acceptRetryDelay = 50 * time.Millisecond

// Close stops accepting connections. In-flight connections are closed
// when the listener task finishes.
func (l *Listener) Close() error {
	if l.closed.Swap(true) || l.listener == nil {
		return nil
	}
	return l.listener.Close()
}

// Addr returns the bound address, or nil before ListenAndServe.
func (l *Listener) Addr() net.Addr {
	if l.listener == nil {
		return nil
	}
	return l.listener.Addr()
}

func (l *Listener) Port() int {
	return l.cfg.Port
}

// Active returns the number of connections being served.
func (l *Listener) Active() int64 {
	return l.active.Load()
}

func (l *Listener) MarshalZerologObject(e *zerolog.Event) {
	e.Int("port", l.cfg.Port)
	if addr := l.Addr(); addr != nil {
		e.Str("addr", addr.String())
	} else {
		e.Str("addr", l.cfg.Addr)
	}
	if l.cfg.MaxConnections > 0 {
		e.Int("max_connections", l.cfg.MaxConnections)
	}
}
