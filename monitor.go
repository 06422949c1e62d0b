package session

import (
	"context"
	"sync"
	"time"
)

// ExpiryListener is notified after the Monitor has ended a session, with
// the predicate that fired. Listeners run on the monitor goroutine and
// should hand off anything slow.
type ExpiryListener func(cause ExpiryCause)

// Monitor proactively ends sessions whose token is no longer valid,
// independent of server-side enforcement. It checks once when started and
// then on a periodic ticker while the session is logged in. Checks never
// block the caller; detection forces a logout through the Manager.
type Monitor struct {
	manager  *Manager
	interval time.Duration
	window   time.Duration
	now      func() time.Time
	logger   Logger

	listeners []ExpiryListener

	mu      sync.Mutex
	stop    chan struct{}
	done    chan struct{}
	running bool
}

// MonitorOption customizes Monitor construction.
type MonitorOption func(*Monitor)

// WithCheckInterval overrides how often the monitor re-evaluates.
func WithCheckInterval(interval time.Duration) MonitorOption {
	return func(mo *Monitor) {
		if interval > 0 {
			mo.interval = interval
		}
	}
}

// WithMonitorClock injects a custom clock (useful for tests).
func WithMonitorClock(clock func() time.Time) MonitorOption {
	return func(mo *Monitor) {
		if clock != nil {
			mo.now = clock
		}
	}
}

// WithMonitorLogger overrides the monitor logger.
func WithMonitorLogger(logger Logger) MonitorOption {
	return func(mo *Monitor) {
		if logger != nil {
			mo.logger = logger
		}
	}
}

// WithExpiryListener registers a listener for expiry detections.
func WithExpiryListener(listener ExpiryListener) MonitorOption {
	return func(mo *Monitor) {
		if listener != nil {
			mo.listeners = append(mo.listeners, listener)
		}
	}
}

// NewMonitor returns a monitor bound to the manager's session. The rolling
// window follows the manager's configured maximum session age.
func NewMonitor(manager *Manager, opts ...MonitorOption) *Monitor {
	mo := &Monitor{
		manager:  manager,
		interval: DefaultCheckInterval,
		window:   manager.MaxSessionAge(),
		now:      time.Now,
		logger:   defLogger{},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(mo)
		}
	}

	return mo
}

// Start runs one check immediately, then keeps checking on the configured
// interval until Stop is called or the context is cancelled. Calling Start
// on a running monitor is a no-op.
func (mo *Monitor) Start(ctx context.Context) {
	mo.mu.Lock()
	if mo.running {
		mo.mu.Unlock()
		return
	}
	mo.running = true
	mo.stop = make(chan struct{})
	mo.done = make(chan struct{})
	stop, done := mo.stop, mo.done
	mo.mu.Unlock()

	mo.Check(ctx)

	go func() {
		defer close(done)

		ticker := time.NewTicker(mo.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				mo.Check(ctx)
			case <-stop:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop cancels the periodic checks and waits for the monitor goroutine to
// exit. Safe to call more than once and before Start.
func (mo *Monitor) Stop() {
	mo.mu.Lock()
	if !mo.running {
		mo.mu.Unlock()
		return
	}
	mo.running = false
	stop, done := mo.stop, mo.done
	mo.mu.Unlock()

	close(stop)
	<-done
}

// Check evaluates the current session token once and returns the cause
// that fired, if any. A session that is not logged in is left alone.
func (mo *Monitor) Check(ctx context.Context) ExpiryCause {
	if !mo.manager.IsLoggedIn() {
		return CauseNone
	}

	cause := Evaluate(mo.manager.Token(), mo.now(), mo.window)
	if cause == CauseNone {
		return CauseNone
	}

	if err := mo.manager.Expire(ctx, cause); err != nil {
		mo.logger.Error("session expire failed for cause %s: %v", cause, err)
		return cause
	}

	mo.logger.Info("session ended by expiry check, cause %s", cause)

	for _, listener := range mo.listeners {
		if listener != nil {
			listener(cause)
		}
	}

	return cause
}
