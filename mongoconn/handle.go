// mongoconn/handle.go
package mongoconn

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/dalemusser/cinemadb/pantry/retry"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// DefaultConnectTimeout bounds a single dial (connect + ping).
const DefaultConnectTimeout = 10 * time.Second

// State is the lifecycle position of a Handle.
type State int32

const (
	StateNotConnected State = iota
	StateConnecting
	StateConnected
	StateFailed
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateNotConnected:
		return "not-connected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateFailed:
		return "failed"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Handle is a lazily resolving reference to a MongoDB client. It is handed
// out before the connection completes; consumers observe readiness through
// Done, Wait or State.
type Handle struct {
	target         Target
	uri            string
	logger         *zap.Logger
	dialer         Dialer
	retry          retry.Config
	connectTimeout time.Duration
	appName        string
	metrics        *Metrics

	startOnce  sync.Once
	settleOnce sync.Once
	done       chan struct{}

	mu     sync.RWMutex
	state  State
	client *mongo.Client
	err    error
}

// Option configures a Handle.
type Option func(*Handle)

// WithLogger sets the logger used for connection diagnostics.
// A nil logger is ignored.
func WithLogger(logger *zap.Logger) Option {
	return func(h *Handle) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// WithDialer replaces the default PingDialer.
func WithDialer(d Dialer) Option {
	return func(h *Handle) {
		if d != nil {
			h.dialer = d
		}
	}
}

// WithRetry applies a retry/backoff policy to the connection attempt.
// Without it the handle makes exactly one attempt.
func WithRetry(cfg retry.Config) Option {
	return func(h *Handle) {
		if cfg.RetryIf == nil {
			cfg.RetryIf = retry.SkipPermanent
		}
		h.retry = cfg
	}
}

// WithURI dials the full connection string instead of target.URI(), so
// credentials and options such as authSource, replicaSet or tls reach the
// driver. target keeps naming the handle in logs and selects Database().
func WithURI(uri string) Option {
	return func(h *Handle) { h.uri = strings.TrimSpace(uri) }
}

// WithConnectTimeout bounds each individual dial.
func WithConnectTimeout(d time.Duration) Option {
	return func(h *Handle) {
		if d > 0 {
			h.connectTimeout = d
		}
	}
}

// WithAppName sets the application name reported to the server.
func WithAppName(name string) Option {
	return func(h *Handle) {
		if name != "" {
			h.appName = name
		}
	}
}

// WithMetrics records state, attempts and driver pool events into m.
func WithMetrics(m *Metrics) Option {
	return func(h *Handle) { h.metrics = m }
}

// New returns an unstarted handle for target. Call Start to begin
// connecting.
func New(target Target, opts ...Option) *Handle {
	h := &Handle{
		target:         target,
		logger:         zap.NewNop(),
		dialer:         PingDialer{},
		retry:          retry.Once(),
		connectTimeout: DefaultConnectTimeout,
		appName:        "cinemadb",
		done:           make(chan struct{}),
		state:          StateNotConnected,
	}
	h.retry.RetryIf = retry.SkipPermanent
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Start launches the connection attempt on its own goroutine and returns
// immediately. Only the first call has any effect. The attempt is detached
// from ctx cancellation; ctx only contributes its values.
func (h *Handle) Start(ctx context.Context) *Handle {
	h.startOnce.Do(func() {
		if ctx == nil {
			ctx = context.Background()
		}
		h.mu.Lock()
		if h.state != StateNotConnected {
			h.mu.Unlock()
			return
		}
		h.state = StateConnecting
		h.metrics.observeState(StateConnecting)
		h.mu.Unlock()

		go h.run(context.WithoutCancel(ctx))
	})
	return h
}

func (h *Handle) run(ctx context.Context) {
	defer h.settle()

	client, attempts, err := h.connect(ctx)

	h.mu.Lock()
	if h.state == StateClosed {
		// Close won the race; drop whatever we got.
		h.mu.Unlock()
		if client != nil {
			_ = client.Disconnect(ctx)
		}
		return
	}
	if err != nil {
		h.state = StateFailed
		h.err = &ConnectError{Target: h.target, Attempts: attempts, Err: err}
	} else {
		h.state = StateConnected
		h.client = client
	}
	h.metrics.observeState(h.state)
	h.mu.Unlock()

	if err == nil {
		h.logger.Info("mongo connected",
			zap.String("target", h.target.String()),
			zap.Int("attempts", attempts),
		)
	}
}

func (h *Handle) connect(ctx context.Context) (*mongo.Client, int, error) {
	opts := h.clientOptions()
	attempts := 0

	cfg := h.retry
	cfg.OnRetry = func(attempt int, err error, delay time.Duration) {
		h.logger.Debug("retrying mongo connect",
			zap.Int("attempt", attempt),
			zap.Duration("delay", delay),
		)
	}

	client, err := retry.DoWithResult(ctx, cfg, func(ctx context.Context) (*mongo.Client, error) {
		attempts++
		c, err := h.dial(ctx, opts)
		if err != nil {
			h.metrics.observeAttempt(false)
			h.logger.Error("Connection error",
				zap.Error(err),
				zap.String("target", h.target.String()),
				zap.Int("attempt", attempts),
			)
			return nil, err
		}
		h.metrics.observeAttempt(true)
		return c, nil
	})
	return client, attempts, err
}

// dial runs one bounded attempt. A panicking dialer becomes an error.
func (h *Handle) dial(ctx context.Context, opts *options.ClientOptions) (client *mongo.Client, err error) {
	ctx, cancel := context.WithTimeout(ctx, h.connectTimeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			client, err = nil, fmt.Errorf("dialer panic: %v", r)
		}
	}()
	return h.dialer.Dial(ctx, opts)
}

func (h *Handle) clientOptions() *options.ClientOptions {
	uri := h.uri
	if uri == "" {
		uri = h.target.URI()
	}
	opts := options.Client().
		ApplyURI(uri).
		SetAppName(h.appName).
		SetConnectTimeout(h.connectTimeout).
		SetServerSelectionTimeout(h.connectTimeout)
	if h.metrics != nil {
		opts.SetPoolMonitor(h.metrics.PoolMonitor())
		opts.SetServerMonitor(h.metrics.ServerMonitor())
	}
	return opts
}

func (h *Handle) settle() {
	h.settleOnce.Do(func() { close(h.done) })
}

// Done is closed once the attempt has settled (connected or failed), or
// as soon as Close is called, even with an attempt still in flight.
func (h *Handle) Done() <-chan struct{} { return h.done }

// Wait blocks until the attempt settles or ctx is done. It returns the
// attempt's *ConnectError on failure, ErrClosed after Close, ctx.Err() on
// cancellation, and nil when connected.
func (h *Handle) Wait(ctx context.Context) error {
	select {
	case <-h.done:
	case <-ctx.Done():
		return ctx.Err()
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	switch h.state {
	case StateFailed:
		return h.err
	case StateClosed:
		return ErrClosed
	}
	return nil
}

// State reports the current lifecycle state.
func (h *Handle) State() State {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.state
}

// Err returns the terminal error of a failed attempt, or nil.
func (h *Handle) Err() error {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.err
}

// Target returns the server and database this handle points at.
func (h *Handle) Target() Target { return h.target }

// Client returns the connected client. Before readiness it returns
// ErrNotConnected (joined with the failure, if any).
func (h *Handle) Client() (*mongo.Client, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	switch h.state {
	case StateConnected:
		return h.client, nil
	case StateFailed:
		return nil, fmt.Errorf("%w: %w", ErrNotConnected, h.err)
	case StateClosed:
		return nil, ErrClosed
	default:
		return nil, ErrNotConnected
	}
}

// Database returns the target database on the connected client.
func (h *Handle) Database() (*mongo.Database, error) {
	client, err := h.Client()
	if err != nil {
		return nil, err
	}
	return client.Database(h.target.Database), nil
}

// Close disconnects the client, if any, and moves the handle to the closed
// state. An attempt still in flight is discarded when it completes.
// Calling Close more than once is safe.
func (h *Handle) Close(ctx context.Context) error {
	h.mu.Lock()
	if h.state == StateClosed {
		h.mu.Unlock()
		return nil
	}
	client := h.client
	h.state = StateClosed
	h.client = nil
	h.metrics.observeState(StateClosed)
	h.mu.Unlock()

	// Release waiters now; an in-flight attempt is discarded by run.
	h.settle()
	if client == nil {
		return nil
	}
	if err := client.Disconnect(ctx); err != nil {
		return fmt.Errorf("disconnect mongo: %w", err)
	}
	h.logger.Info("mongo disconnected", zap.String("target", h.target.String()))
	return nil
}
