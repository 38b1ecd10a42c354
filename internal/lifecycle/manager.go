// Package lifecycle supervises the store connection and the ordered
// shutdown of the process.
package lifecycle

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
)

// Store is the part of the key-value store the manager needs.
type Store interface {
	Ping(ctx context.Context) error
	Close() error
}

type Options struct {
	// TrackReconnects enables the periodic ping that downgrades the state
	// to Reconnecting. When false the state never leaves Connected.
	TrackReconnects bool
	MonitorInterval time.Duration
	PingTimeout     time.Duration
	BackoffStep     time.Duration
	BackoffMax      time.Duration
}

func DefaultOptions() Options {
	return Options{
		TrackReconnects: true,
		MonitorInterval: 2 * time.Second,
		PingTimeout:     time.Second,
		BackoffStep:     100 * time.Millisecond,
		BackoffMax:      5 * time.Second,
	}
}

// Manager owns the connection state. Only its supervisor goroutine and
// Shutdown change it.
type Manager struct {
	store  Store
	logger *zap.Logger
	opts   Options

	state atomic.Int32

	mu        sync.Mutex
	listeners []func(State)
	cancel    context.CancelFunc
	done      chan struct{}
}

func NewManager(store Store, logger *zap.Logger, opts Options) *Manager {
	def := DefaultOptions()
	if opts.MonitorInterval <= 0 {
		opts.MonitorInterval = def.MonitorInterval
	}
	if opts.PingTimeout <= 0 {
		opts.PingTimeout = def.PingTimeout
	}
	if opts.BackoffStep <= 0 {
		opts.BackoffStep = def.BackoffStep
	}
	if opts.BackoffMax <= 0 {
		opts.BackoffMax = def.BackoffMax
	}
	return &Manager{
		store:  store,
		logger: logger,
		opts:   opts,
	}
}

func (m *Manager) State() State {
	return State(m.state.Load())
}

func (m *Manager) Connected() bool {
	return m.State() == Connected
}

// OnStateChange registers fn to be called after every transition. Callbacks
// run on the supervisor goroutine and must not block.
func (m *Manager) OnStateChange(fn func(State)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = append(m.listeners, fn)
}

// Start launches the supervisor and returns immediately. Calling Start
// again is a no-op.
func (m *Manager) Start(ctx context.Context) {
	m.mu.Lock()
	if m.cancel != nil {
		m.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.done = make(chan struct{})
	m.mu.Unlock()

	m.setState(Connecting)
	m.logger.Info("store connecting...")
	go m.run(ctx)
}

func (m *Manager) run(ctx context.Context) {
	defer close(m.done)

	if err := m.connect(ctx); err != nil {
		return
	}
	if !m.opts.TrackReconnects {
		return
	}

	ticker := time.NewTicker(m.opts.MonitorInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			err := m.ping(ctx)
			if err == nil || ctx.Err() != nil {
				continue
			}
			m.logger.Warn("store connection lost", zap.Error(err))
			m.setState(Reconnecting)
			if err := m.connect(ctx); err != nil {
				return
			}
		}
	}
}

// connect pings until the store answers or ctx is cancelled.
func (m *Manager) connect(ctx context.Context) error {
	var attempt int
	b := backoff.WithContext(newLinearBackOff(m.opts.BackoffStep, m.opts.BackoffMax), ctx)

	err := backoff.RetryNotify(func() error {
		attempt++
		return m.ping(ctx)
	}, b, func(err error, next time.Duration) {
		m.logger.Warn("store reconnection attempt",
			zap.Int("attempt", attempt),
			zap.Duration("next", next),
			zap.Error(err),
		)
	})
	if err != nil {
		return err
	}

	m.setState(Connected)
	m.logger.Info("store connected and ready", zap.Int("attempts", attempt))
	return nil
}

func (m *Manager) ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, m.opts.PingTimeout)
	defer cancel()
	return m.store.Ping(ctx)
}

func (m *Manager) setState(s State) {
	old := State(m.state.Swap(int32(s)))
	if old == s {
		return
	}

	m.mu.Lock()
	listeners := make([]func(State), len(m.listeners))
	copy(listeners, m.listeners)
	m.mu.Unlock()

	for _, fn := range listeners {
		fn(s)
	}
}

func (m *Manager) stop() {
	m.mu.Lock()
	cancel, done := m.cancel, m.done
	m.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Shutdown runs drains in order, stops the supervisor and closes the
// store. Drain failures are logged; the returned error is the store close
// error.
func (m *Manager) Shutdown(ctx context.Context, drains ...func(context.Context) error) error {
	for i, drain := range drains {
		if err := drain(ctx); err != nil {
			m.logger.Error("shutdown step failed", zap.Int("step", i), zap.Error(err))
		}
	}

	m.stop()
	m.setState(Disconnected)

	if err := m.store.Close(); err != nil {
		m.logger.Error("error closing store connection", zap.Error(err))
		return fmt.Errorf("close store: %w", err)
	}
	m.logger.Info("store connection closed")
	return nil
}
