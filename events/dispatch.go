package events

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/frostbytespace/hiven-go/errors"
	"github.com/frostbytespace/hiven-go/metric"
)

// Handler is a listener callback. Arguments are the parsed event values,
// typically constructed views rather than raw payloads.
type Handler func(args ...any) error

// Listener is a registered callback for one event name. A persistent
// listener stays registered across dispatches; a one-shot listener
// captures the first occurrence's arguments, deregisters itself and
// signals its waiter.
type Listener struct {
	id      uuid.UUID
	event   string
	oneShot bool
	handler Handler

	// one-shot only
	once  sync.Once
	fired chan firing
}

type firing struct {
	args []any
	err  error
}

// Event returns the event name the listener is registered for.
func (l *Listener) Event() string { return l.event }

// ID returns the listener's unique identity.
func (l *Listener) ID() uuid.UUID { return l.id }

// OneShot reports whether the listener deregisters after its first firing.
func (l *Listener) OneShot() bool { return l.oneShot }

// Engine fans parsed events out to registered listeners.
type Engine struct {
	mu        sync.RWMutex
	listeners map[string][]*Listener

	log        *slog.Logger
	dispatched *prometheus.CounterVec
	failures   prometheus.Counter
}

// NewEngine creates a dispatch engine. Metrics registration is optional;
// pass a nil registry to skip it.
func NewEngine(logger *slog.Logger, registry *metric.Registry) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	e := &Engine{
		listeners: make(map[string][]*Listener),
		log:       logger.With("component", "events"),
	}
	if registry != nil {
		e.dispatched = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hiven_events_dispatched_total",
			Help: "Events dispatched to listeners, per event name",
		}, []string{"event"})
		e.failures = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "hiven_listener_failures_total",
			Help: "Listener callbacks that returned an error",
		})
		_ = registry.RegisterCounterVec("events", "dispatched_total", e.dispatched)
		_ = registry.RegisterCounter("events", "listener_failures_total", e.failures)
	}
	return e
}

// Register adds a persistent listener for the given event name. The name
// may carry an "on_" prefix; it is normalized before lookup.
func (e *Engine) Register(event string, handler Handler) (*Listener, error) {
	return e.register(event, handler, false)
}

// RegisterOnce adds a one-shot listener. It fires at most once, then
// deregisters itself.
func (e *Engine) RegisterOnce(event string, handler Handler) (*Listener, error) {
	return e.register(event, handler, true)
}

func (e *Engine) register(event string, handler Handler, oneShot bool) (*Listener, error) {
	name := NormalizeName(event)
	if !Known(name) {
		return nil, errors.WrapInvalid(
			fmt.Errorf("%w: %q", errors.ErrUnknownEvent, event),
			"events", "Register", "validate event name")
	}
	l := &Listener{
		id:      uuid.New(),
		event:   name,
		oneShot: oneShot,
		handler: handler,
	}
	if oneShot {
		l.fired = make(chan firing, 1)
	}
	e.mu.Lock()
	e.listeners[name] = append(e.listeners[name], l)
	e.mu.Unlock()
	e.log.Debug("listener registered", "event", name, "one_shot", oneShot)
	return l, nil
}

// Deregister removes a listener from the registry.
func (e *Engine) Deregister(l *Listener) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.removeLocked(l)
}

func (e *Engine) removeLocked(l *Listener) error {
	list := e.listeners[l.event]
	for i, candidate := range list {
		if candidate.id == l.id {
			e.listeners[l.event] = append(list[:i], list[i+1:]...)
			return nil
		}
	}
	return errors.WrapInvalid(
		fmt.Errorf("%w: listener for %q", errors.ErrListenerNotFound, l.event),
		"events", "Deregister", "remove listener")
}

// Dispatch invokes every listener currently registered for the event.
// All invocations are started and the call returns only after all have
// finished. A failing persistent listener is logged and its error
// surfaced to the caller, but it stays registered; a failing one-shot
// listener surfaces the error to its waiter and still deregisters.
func (e *Engine) Dispatch(ctx context.Context, event string, args ...any) error {
	name := NormalizeName(event)
	if !Known(name) {
		return errors.WrapInvalid(
			fmt.Errorf("%w: %q", errors.ErrUnknownEvent, event),
			"events", "Dispatch", "validate event name")
	}
	if e.dispatched != nil {
		e.dispatched.WithLabelValues(name).Inc()
	}

	e.mu.RLock()
	listeners := make([]*Listener, len(e.listeners[name]))
	copy(listeners, e.listeners[name])
	e.mu.RUnlock()

	if len(listeners) == 0 {
		return nil
	}

	var g errgroup.Group
	for _, l := range listeners {
		l := l
		g.Go(func() error {
			return e.invoke(l, args)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}

func (e *Engine) invoke(l *Listener, args []any) error {
	if l.oneShot {
		// A one-shot fires exactly once even if two dispatches race.
		var err error
		fired := false
		l.once.Do(func() {
			fired = true
			err = e.callHandler(l, args)
			l.fired <- firing{args: args, err: err}
			if derr := e.Deregister(l); derr != nil {
				e.log.Debug("one-shot already removed", "event", l.event)
			}
		})
		if !fired {
			return nil
		}
		return err
	}
	return e.callHandler(l, args)
}

func (e *Engine) callHandler(l *Listener, args []any) error {
	if l.handler == nil {
		return nil
	}
	if err := l.handler(args...); err != nil {
		if e.failures != nil {
			e.failures.Inc()
		}
		e.log.Error("listener callback failed",
			"event", l.event, "listener", l.id.String(), "error", err)
		return errors.Wrap(
			fmt.Errorf("%w: %w", errors.ErrListenerFailed, err),
			"events", "Dispatch", "run listener for "+l.event)
	}
	return nil
}

// WaitFor registers a one-shot listener for the event and blocks until it
// fires, returning the captured arguments. The optional handler is
// invoked with the arguments before WaitFor returns; a handler error is
// returned alongside the captured arguments. Cancelling the context
// deregisters the listener and returns the context error.
func (e *Engine) WaitFor(ctx context.Context, event string, handler Handler) ([]any, error) {
	l, err := e.RegisterOnce(event, handler)
	if err != nil {
		return nil, err
	}
	select {
	case f := <-l.fired:
		return f.args, f.err
	case <-ctx.Done():
		if derr := e.Deregister(l); derr != nil {
			// Fired between ctx expiry and removal; drain the capture.
			select {
			case f := <-l.fired:
				return f.args, f.err
			default:
			}
		}
		return nil, errors.WrapTransient(ctx.Err(), "events", "WaitFor", "wait for "+NormalizeName(event))
	}
}

// ListenerCount returns how many listeners are registered for the event.
func (e *Engine) ListenerCount(event string) int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.listeners[NormalizeName(event)])
}
