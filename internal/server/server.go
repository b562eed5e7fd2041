// Package server runs one listener per configured port, all sharing a
// single connection handler and metrics collector.
package server

import (
	"slices"
	"strconv"

	"github.com/puzpuzpuz/xsync/v4"
	"github.com/rs/zerolog/log"
	"github.com/yusing/chunkstream/internal/config"
	"github.com/yusing/chunkstream/internal/gperr"
	"github.com/yusing/chunkstream/internal/listener"
	"github.com/yusing/chunkstream/internal/stream"
	"github.com/yusing/chunkstream/internal/task"
)

type Server struct {
	cfg       *config.Config
	handler   *stream.Handler
	listeners *xsync.Map[int, *listener.Listener]

	listenerConfig func(port int) listener.Config
}

var ErrNoListener = gperr.New("no listener started")

func New(cfg *config.Config, collector stream.Collector) (*Server, error) {
	opts, err := cfg.HandlerOptions()
	if err != nil {
		return nil, err
	}
	return &Server{
		cfg:            cfg,
		handler:        stream.NewHandler(collector, opts),
		listeners:      xsync.NewMap[int, *listener.Listener](),
		listenerConfig: cfg.ListenerConfig,
	}, nil
}

// Start starts a listener for every configured port.
//
// A port that fails to bind does not affect the others, its error is
// logged. Start returns an error only when no listener could be started.
func (s *Server) Start(parent task.Parent) gperr.Error {
	errs := gperr.NewBuilder("failed to start listeners")
	for _, port := range s.cfg.Ports {
		l := listener.New(s.listenerConfig(port), s.handler)
		if err := l.ListenAndServe(parent); err != nil {
			errs.Add(gperr.PrependSubject("port "+strconv.Itoa(port), err))
			continue
		}
		s.listeners.Store(port, l)
	}

	if s.listeners.Size() == 0 {
		if errs.HasError() {
			return errs.Error()
		}
		return ErrNoListener
	}
	if errs.HasError() {
		gperr.LogError("some ports are not served", errs.Error())
	}
	log.Info().Ints("ports", s.Ports()).Msg("server started")
	return nil
}

// Ports returns the ports being served in ascending order.
func (s *Server) Ports() []int {
	ports := make([]int, 0, s.listeners.Size())
	for port := range s.listeners.Range {
		ports = append(ports, port)
	}
	slices.Sort(ports)
	return ports
}

// Listeners returns the active listeners ordered by port.
func (s *Server) Listeners() []*listener.Listener {
	ports := s.Ports()
	listeners := make([]*listener.Listener, 0, len(ports))
	for _, port := range ports {
		if l, ok := s.listeners.Load(port); ok {
			listeners = append(listeners, l)
		}
	}
	return listeners
}

func (s *Server) Listener(port int) (*listener.Listener, bool) {
	return s.listeners.Load(port)
}
