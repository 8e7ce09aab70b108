// Package autosave surfaces background save activity to the UI layer.
package autosave

import (
	"reflect"
	"sync"
	"time"

	"github.com/gangwayhq/gangway/pkg/flow"
)

// StatusSource is anything that can report the current save status. The
// persistence outbox satisfies it.
type StatusSource interface {
	Status() flow.SaveStatus
}

// Listener receives a status snapshot whenever it changes.
type Listener func(flow.SaveStatus)

// Coordinator polls a status source on an interval and notifies
// listeners only on change, so the UI can render a save indicator
// without busy-watching the outbox.
type Coordinator struct {
	source   StatusSource
	interval time.Duration

	mu        sync.Mutex
	listeners []Listener
	last      flow.SaveStatus

	stop chan struct{}
	done chan struct{}
	once sync.Once
}

// Option configures the Coordinator.
type Option func(*Coordinator)

// WithInterval sets the polling interval. Default is one second.
func WithInterval(d time.Duration) Option {
	return func(c *Coordinator) { c.interval = d }
}

// New starts a coordinator polling source.
func New(source StatusSource, opts ...Option) *Coordinator {
	c := &Coordinator{
		source:   source,
		interval: time.Second,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.last = source.Status()

	go c.loop()
	return c
}

// Subscribe registers a listener and immediately delivers the current
// status so new subscribers never start blank.
func (c *Coordinator) Subscribe(fn Listener) {
	c.mu.Lock()
	c.listeners = append(c.listeners, fn)
	current := c.last
	c.mu.Unlock()

	fn(current)
}

// Status returns the most recently observed status.
func (c *Coordinator) Status() flow.SaveStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.last
}

func (c *Coordinator) loop() {
	defer close(c.done)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			c.poll()
		}
	}
}

func (c *Coordinator) poll() {
	current := c.source.Status()

	c.mu.Lock()
	if reflect.DeepEqual(current, c.last) {
		c.mu.Unlock()
		return
	}
	c.last = current
	listeners := make([]Listener, len(c.listeners))
	copy(listeners, c.listeners)
	c.mu.Unlock()

	for _, fn := range listeners {
		fn(current)
	}
}

// Close stops the polling loop and waits for it to exit. Safe to call
// more than once.
func (c *Coordinator) Close() {
	c.once.Do(func() { close(c.stop) })
	<-c.done
}
