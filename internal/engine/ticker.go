package engine

import (
	"sync"
	"time"
)

// Ticker is the countdown's cancellable tick source.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

// TickerFactory creates a Ticker firing every d.
type TickerFactory func(d time.Duration) Ticker

type stdTicker struct {
	t *time.Ticker
}

func (s stdTicker) C() <-chan time.Time { return s.t.C }
func (s stdTicker) Stop()               { s.t.Stop() }

// NewStdTicker wraps time.Ticker.
func NewStdTicker(d time.Duration) Ticker {
	return stdTicker{t: time.NewTicker(d)}
}

// countdown owns the goroutine that feeds ticks into an attempt. cancel is
// safe to call more than once and from the tick goroutine itself.
type countdown struct {
	ticker Ticker
	stop   chan struct{}
	done   chan struct{}
	once   sync.Once
}

func startCountdown(factory TickerFactory, interval time.Duration, onTick func()) *countdown {
	c := &countdown{
		ticker: factory(interval),
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
	go func() {
		defer close(c.done)
		for {
			select {
			case <-c.stop:
				return
			case _, ok := <-c.ticker.C():
				if !ok {
					return
				}
				select {
				case <-c.stop:
					return
				default:
				}
				onTick()
			}
		}
	}()
	return c
}

func (c *countdown) cancel() {
	c.once.Do(func() {
		close(c.stop)
		c.ticker.Stop()
	})
}
