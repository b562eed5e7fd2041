// Package portstats aggregates per listening port connection metrics.
package portstats

import (
	"slices"
	"sync"
	"time"

	gometrics "github.com/rcrowley/go-metrics"
	"github.com/rs/zerolog/log"
)

type (
	// Collector is safe for concurrent use, every operation is serialized
	// by a single lock over the whole port map.
	Collector struct {
		startTime time.Time
		ports     map[int]*portMetrics
		mu        sync.Mutex
	}
	portMetrics struct {
		total     uint64
		active    int64
		bytes     uint64
		durations []float64 // seconds, in completion order
		meter     gometrics.Meter
	}
	// PortView is the derived, read-only view of one port.
	PortView struct {
		Port        int           `json:"port"`
		Total       uint64        `json:"total"`
		Active      int64         `json:"active"`
		Completed   int           `json:"completed"`
		Bytes       uint64        `json:"bytes"`
		AvgDuration time.Duration `json:"avg_duration"`
		Rate1       float64       `json:"rate1"` // bytes per second, one minute moving average
	}
	// Snapshot is an immutable point-in-time copy of all port metrics.
	Snapshot struct {
		TakenAt time.Time
		Uptime  time.Duration
		ports   map[int]PortView
	}
)

func NewCollector() *Collector {
	return &Collector{
		startTime: time.Now(),
		ports:     make(map[int]*portMetrics),
	}
}

func (c *Collector) getLocked(port int) *portMetrics {
	m, ok := c.ports[port]
	if !ok {
		m = &portMetrics{meter: gometrics.NewMeter()}
		c.ports[port] = m
	}
	return m
}

// ConnectionStarted increments the total and active counters of port.
func (c *Collector) ConnectionStarted(port int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	m := c.getLocked(port)
	m.total++
	m.active++
}

// ConnectionEnded records a completed connection of port.
//
// bytesSent is added to the transmitted total, pass only bytes that were not
// already reported with BytesSent.
func (c *Collector) ConnectionEnded(port int, duration time.Duration, bytesSent int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	m, ok := c.ports[port]
	if !ok || m.active == 0 {
		log.Warn().Int("port", port).Msg("connection ended without a matching start, ignored")
		return
	}
	m.active--
	m.durations = append(m.durations, duration.Seconds())
	m.addBytes(bytesSent)
}

// BytesSent adds n to the transmitted total of port without touching
// the duration history.
func (c *Collector) BytesSent(port int, n int64) {
	if n <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.getLocked(port).addBytes(n)
}

func (m *portMetrics) addBytes(n int64) {
	if n <= 0 {
		return
	}
	m.bytes += uint64(n)
	m.meter.Mark(n)
}

func (m *portMetrics) view(port int) PortView {
	v := PortView{
		Port:      port,
		Total:     m.total,
		Active:    m.active,
		Completed: len(m.durations),
		Bytes:     m.bytes,
		Rate1:     m.meter.Rate1(),
	}
	if len(m.durations) > 0 {
		var sum float64
		for _, d := range m.durations {
			sum += d
		}
		v.AvgDuration = time.Duration(sum / float64(len(m.durations)) * float64(time.Second))
	}
	return v
}

// Snapshot returns an immutable copy of the current metrics.
func (c *Collector) Snapshot() Snapshot {
	now := time.Now()
	c.mu.Lock()
	defer c.mu.Unlock()
	s := Snapshot{
		TakenAt: now,
		Uptime:  now.Sub(c.startTime),
		ports:   make(map[int]PortView, len(c.ports)),
	}
	for port, m := range c.ports {
		s.ports[port] = m.view(port)
	}
	return s
}

// Close stops the throughput meters, the collector must not be used afterwards.
func (c *Collector) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, m := range c.ports {
		m.meter.Stop()
	}
}

// Ports returns the observed ports in ascending order.
func (s Snapshot) Ports() []int {
	ports := make([]int, 0, len(s.ports))
	for port := range s.ports {
		ports = append(ports, port)
	}
	slices.Sort(ports)
	return ports
}

// Port returns the view of port, ok is false if the port was never observed.
func (s Snapshot) Port(port int) (v PortView, ok bool) {
	v, ok = s.ports[port]
	return v, ok
}

// Views returns all port views ordered by port.
func (s Snapshot) Views() []PortView {
	views := make([]PortView, 0, len(s.ports))
	for _, port := range s.Ports() {
		views = append(views, s.ports[port])
	}
	return views
}

// Totals sums all ports.
func (s Snapshot) Totals() (total uint64, active int64, bytes uint64) {
	for _, v := range s.ports {
		total += v.Total
		active += v.Active
		bytes += v.Bytes
	}
	return total, active, bytes
}
