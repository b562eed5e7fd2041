package portstats

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	expect "github.com/yusing/chunkstream/internal/utils/testing"
	"golang.org/x/sync/errgroup"
)

func TestLazyPortCreation(t *testing.T) {
	c := NewCollector()
	defer c.Close()

	_, ok := c.Snapshot().Port(80)
	expect.False(t, ok)

	c.ConnectionStarted(80)
	v, ok := c.Snapshot().Port(80)
	expect.True(t, ok)
	expect.Equal(t, v.Total, 1)
	expect.Equal(t, v.Active, 1)
	expect.Equal(t, v.Completed, 0)
	expect.Equal(t, v.AvgDuration, 0)
}

func TestConcurrentConnections(t *testing.T) {
	c := NewCollector()
	defer c.Close()

	const n = 200
	var g errgroup.Group
	for i := range n {
		g.Go(func() error {
			c.ConnectionStarted(80)
			c.BytesSent(80, 10)
			c.ConnectionEnded(80, time.Duration(i)*time.Millisecond, 5)
			return nil
		})
	}
	expect.NoError(t, g.Wait())

	v, _ := c.Snapshot().Port(80)
	expect.Equal(t, v.Total, n)
	expect.Equal(t, v.Active, 0)
	expect.Equal(t, v.Completed, n)
	expect.Equal(t, v.Bytes, n*15)
}

func TestActiveNeverNegative(t *testing.T) {
	c := NewCollector()
	defer c.Close()

	var stop atomic.Bool
	var negative atomic.Bool
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for !stop.Load() {
			s := c.Snapshot()
			for _, v := range s.Views() {
				if v.Active < 0 || int64(v.Completed) != int64(v.Total)-v.Active {
					negative.Store(true)
				}
			}
		}
	}()

	var g errgroup.Group
	for range 100 {
		g.Go(func() error {
			for range 10 {
				c.ConnectionStarted(443)
				c.ConnectionEnded(443, time.Millisecond, 1)
			}
			return nil
		})
	}
	expect.NoError(t, g.Wait())
	stop.Store(true)
	wg.Wait()

	expect.False(t, negative.Load(), "observed an inconsistent snapshot")
}

func TestOpenTenCloseThree(t *testing.T) {
	c := NewCollector()
	defer c.Close()

	for range 10 {
		c.ConnectionStarted(80)
	}
	for range 3 {
		c.ConnectionEnded(80, time.Second, 100)
	}

	v, _ := c.Snapshot().Port(80)
	expect.Equal(t, v.Total, 10)
	expect.Equal(t, v.Active, 7)
	expect.Equal(t, v.Completed, 3)
	expect.Equal(t, v.Bytes, 300)
}

func TestAverageDuration(t *testing.T) {
	c := NewCollector()
	defer c.Close()

	for _, d := range []time.Duration{time.Second, 2 * time.Second, 6 * time.Second} {
		c.ConnectionStarted(8080)
		c.ConnectionEnded(8080, d, 0)
	}
	v, _ := c.Snapshot().Port(8080)
	expect.Equal(t, v.AvgDuration, 3*time.Second)
}

func TestUnmatchedEndIgnored(t *testing.T) {
	c := NewCollector()
	defer c.Close()

	c.ConnectionEnded(80, time.Second, 100)
	_, ok := c.Snapshot().Port(80)
	expect.False(t, ok)

	c.ConnectionStarted(80)
	c.ConnectionEnded(80, time.Second, 1)
	c.ConnectionEnded(80, time.Second, 1)
	v, _ := c.Snapshot().Port(80)
	expect.Equal(t, v.Active, 0)
	expect.Equal(t, v.Completed, 1)
	expect.Equal(t, v.Bytes, 1)
}

func TestBytesSentWithoutDuration(t *testing.T) {
	c := NewCollector()
	defer c.Close()

	c.ConnectionStarted(443)
	c.BytesSent(443, 8192)
	c.BytesSent(443, 0)
	c.BytesSent(443, -1)

	v, _ := c.Snapshot().Port(443)
	expect.Equal(t, v.Bytes, 8192)
	expect.Equal(t, v.Completed, 0)
	expect.Equal(t, v.Active, 1)
}

func TestSnapshotIsImmutable(t *testing.T) {
	c := NewCollector()
	defer c.Close()

	c.ConnectionStarted(443)
	c.ConnectionStarted(80)
	s := c.Snapshot()
	c.ConnectionStarted(80)
	c.ConnectionStarted(22)

	expect.Equal(t, s.Ports(), []int{80, 443})
	v, _ := s.Port(80)
	expect.Equal(t, v.Total, 1)

	total, active, bytes := s.Totals()
	expect.Equal(t, total, 2)
	expect.Equal(t, active, 2)
	expect.Equal(t, bytes, 0)
	expect.Equal(t, c.Snapshot().Ports(), []int{22, 80, 443})
}
