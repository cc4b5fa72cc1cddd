// mongoconn/metrics.go
package mongoconn

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"go.mongodb.org/mongo-driver/event"
)

// Metrics exports the handle lifecycle and driver pool activity.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	state             prometheus.Gauge
	attempts          *prometheus.CounterVec
	poolConnections   prometheus.Gauge
	heartbeatFailures prometheus.Counter
}

// NewMetrics creates the collectors and registers them with reg. Collectors
// already registered (e.g. a second handle in the same process) are reused.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	var err error
	m := &Metrics{}
	if m.state, err = register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "cinemadb_mongo_connection_state",
		Help: "Connection handle state (0 not-connected, 1 connecting, 2 connected, 3 failed, 4 closed).",
	})); err != nil {
		return nil, err
	}
	if m.attempts, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cinemadb_mongo_connect_attempts_total",
		Help: "Mongo connection attempts by result.",
	}, []string{"result"})); err != nil {
		return nil, err
	}
	if m.poolConnections, err = register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "cinemadb_mongo_pool_connections",
		Help: "Open connections in the driver pool.",
	})); err != nil {
		return nil, err
	}
	if m.heartbeatFailures, err = register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cinemadb_mongo_heartbeat_failures_total",
		Help: "Failed server heartbeats reported by the driver.",
	})); err != nil {
		return nil, err
	}
	return m, nil
}

func register[T prometheus.Collector](reg prometheus.Registerer, c T) (T, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(T); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// PoolMonitor tracks created and closed pool connections.
func (m *Metrics) PoolMonitor() *event.PoolMonitor {
	return &event.PoolMonitor{
		Event: func(e *event.PoolEvent) {
			switch e.Type {
			case event.ConnectionCreated:
				m.poolConnections.Inc()
			case event.ConnectionClosed:
				m.poolConnections.Dec()
			}
		},
	}
}

// ServerMonitor counts failed heartbeats.
func (m *Metrics) ServerMonitor() *event.ServerMonitor {
	return &event.ServerMonitor{
		ServerHeartbeatFailed: func(*event.ServerHeartbeatFailedEvent) {
			m.heartbeatFailures.Inc()
		},
	}
}

func (m *Metrics) observeState(s State) {
	if m == nil {
		return
	}
	m.state.Set(float64(s))
}

func (m *Metrics) observeAttempt(ok bool) {
	if m == nil {
		return
	}
	result := "failure"
	if ok {
		result = "success"
	}
	m.attempts.WithLabelValues(result).Inc()
}
