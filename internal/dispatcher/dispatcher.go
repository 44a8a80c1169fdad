// Package dispatcher routes scene commands such as ":TAP:" or ":FRAME:" to
// their handlers, either inline or through a per-command queue.
package dispatcher

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"
)

var (
	// ErrClosed is returned by Dispatch after Close.
	ErrClosed = errors.New("dispatcher closed")
	// ErrUnknownCommand is returned for commands without a handler.
	ErrUnknownCommand = errors.New("unknown command")
)

// Event is one command line from a device feed or a replay script.
type Event struct {
	Command   string
	Args      []string
	Timestamp time.Time
}

// HandlerFunc processes an event and returns a result.
type HandlerFunc func(Event) (any, error)

// Logger interface for pluggable logging.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// Option configures handler registration.
type Option func(*route)

// route is one registered command.
type route struct {
	command    string
	handler    HandlerFunc
	bufferSize int
	blocking   bool
	logged     bool
	queue      chan Event
}

// Buffered makes the handler async with a queue of the given size.
func Buffered(size int) Option {
	return func(r *route) { r.bufferSize = size }
}

// Blocking makes a buffered handler block when the queue is full instead of dropping.
func Blocking() Option {
	return func(r *route) { r.blocking = true }
}

// Logged adds debug logging to the handler.
func Logged() Option {
	return func(r *route) { r.logged = true }
}

// NormalizeCommand uppercases a command and wraps it in colons, so "tap",
// ":tap:" and " :TAP: " all name ":TAP:".
func NormalizeCommand(raw string) string {
	c := strings.ToUpper(strings.TrimSpace(raw))
	if c == "" {
		return ""
	}
	if !strings.HasPrefix(c, ":") {
		c = ":" + c
	}
	if !strings.HasSuffix(c, ":") {
		c += ":"
	}
	return c
}

// Dispatcher routes events to registered handlers. Synchronous handlers run on
// the caller's goroutine; buffered ones on one goroutine per command, in the
// order they were queued.
type Dispatcher struct {
	logger Logger
	now    func() time.Time
	metric *instruments

	mu     sync.RWMutex
	routes map[string]*route
	closed bool
	wg     sync.WaitGroup
}

// New creates a Dispatcher. Metrics go to the global OTel meter provider.
func New(logger Logger) (*Dispatcher, error) {
	d := &Dispatcher{
		logger: logger,
		now:    time.Now,
		routes: make(map[string]*route),
	}
	in, err := newInstruments(d.queueLengths)
	if err != nil {
		return nil, err
	}
	d.metric = in
	return d, nil
}

// Register adds a handler for the given command with optional configuration.
// Registration must happen before the first Dispatch.
func (d *Dispatcher) Register(command string, h HandlerFunc, opts ...Option) {
	r := &route{command: NormalizeCommand(command), handler: h}
	for _, opt := range opts {
		opt(r)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if r.bufferSize > 0 {
		r.queue = make(chan Event, r.bufferSize)
		d.wg.Add(1)
		go d.drain(r)
	}
	d.routes[r.command] = r
}

// Dispatch routes an event to its registered handler. A zero Timestamp is set
// to the time of dispatch.
func (d *Dispatcher) Dispatch(e Event) (any, error) {
	e.Command = NormalizeCommand(e.Command)
	if e.Timestamp.IsZero() {
		e.Timestamp = d.now()
	}

	d.mu.RLock()
	r, ok := d.routes[e.Command]
	if !ok {
		d.mu.RUnlock()
		return nil, fmt.Errorf("%w: %s", ErrUnknownCommand, e.Command)
	}
	if r.queue == nil {
		d.mu.RUnlock()
		return d.handle(r, e)
	}
	defer d.mu.RUnlock()
	return d.enqueue(r, e)
}

// HasHandler returns true if a handler is registered for the command.
func (d *Dispatcher) HasHandler(command string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	_, ok := d.routes[NormalizeCommand(command)]
	return ok
}

// Commands returns the registered commands, sorted.
func (d *Dispatcher) Commands() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]string, 0, len(d.routes))
	for c := range d.routes {
		out = append(out, c)
	}
	slices.Sort(out)
	return out
}

// Close stops accepting buffered events and waits until every queued event
// has been handled.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	for _, r := range d.routes {
		if r.queue != nil {
			close(r.queue)
		}
	}
	d.mu.Unlock()
	d.wg.Wait()
}

// enqueue must be called with d.mu read-locked.
func (d *Dispatcher) enqueue(r *route, e Event) (any, error) {
	if d.closed {
		return nil, ErrClosed
	}
	if r.blocking {
		r.queue <- e
		return "queued", nil
	}
	select {
	case r.queue <- e:
		return "queued", nil
	default:
		d.metric.drop(r.command)
		return nil, fmt.Errorf("queue full: %s", r.command)
	}
}

func (d *Dispatcher) drain(r *route) {
	defer d.wg.Done()
	for e := range r.queue {
		if _, err := d.handle(r, e); err != nil && !r.logged {
			d.logger.Error("buffered event failed", "command", r.command, "error", err)
		}
	}
}

func (d *Dispatcher) handle(r *route, e Event) (any, error) {
	start := time.Now()
	if r.logged {
		d.logger.Debug("handling event", "command", r.command, "args", len(e.Args))
	}

	result, err := r.handler(e)
	took := time.Since(start)
	d.metric.record(r.command, took, err)

	if r.logged {
		if err != nil {
			d.logger.Error("event failed", "command", r.command, "duration", took, "error", err)
		} else {
			d.logger.Debug("event complete", "command", r.command, "duration", took)
		}
	}
	return result, err
}

func (d *Dispatcher) queueLengths() map[string]int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make(map[string]int)
	for c, r := range d.routes {
		if r.queue != nil {
			out[c] = len(r.queue)
		}
	}
	return out
}
