// metrics/metrics.go
package metrics

import (
	"errors"
	"net/http"
	"strconv"
	"time"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// reqDuration is a histogram of ops HTTP request durations in seconds,
// labeled by route, method, and status code.
var reqDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "cinemadb_http_request_duration_seconds",
		Help:    "Duration of ops HTTP requests.",
		Buckets: []float64{0.005, 0.01, 0.1, 0.5, 2},
	},
	[]string{"path", "method", "status"},
)

// RegisterDefault registers the Go runtime and process collectors plus the
// HTTP request histogram on the default registerer. Calling it more than
// once is harmless; any other registration failure is fatal.
func RegisterDefault(logger *zap.Logger) {
	mustRegister(logger, "Go collector", collectors.NewGoCollector())
	mustRegister(logger, "process collector", collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	mustRegister(logger, "HTTP request histogram", reqDuration)
}

func mustRegister(logger *zap.Logger, name string, c prometheus.Collector) {
	err := prometheus.Register(c)
	if err == nil {
		return
	}
	var are prometheus.AlreadyRegisteredError
	if errors.As(err, &are) {
		return
	}
	if logger != nil {
		logger.Fatal("failed to register "+name, zap.Error(err))
	}
	panic("metrics: failed to register " + name + ": " + err.Error())
}

// maxPathLabelLength caps the path label to keep cardinality bounded.
const maxPathLabelLength = 128

// HTTPMetrics records request duration into the histogram. It labels by
// chi route pattern when available and should sit after the recoverer.
func HTTPMetrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		protoMajor := r.ProtoMajor
		if protoMajor < 1 {
			protoMajor = 1
		}
		ww := middleware.NewWrapResponseWriter(w, protoMajor)

		next.ServeHTTP(ww, r)

		reqDuration.WithLabelValues(
			routeLabel(r),
			r.Method,
			strconv.Itoa(statusLabel(ww.Status())),
		).Observe(time.Since(start).Seconds())
	})
}

// statusLabel maps "never written" to 200 and clamps junk to 500.
func statusLabel(code int) int {
	switch {
	case code == 0:
		return http.StatusOK
	case code < 100 || code > 599:
		return http.StatusInternalServerError
	default:
		return code
	}
}

func routeLabel(r *http.Request) string {
	path := r.URL.Path
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			path = pattern
		}
	}
	if len(path) > maxPathLabelLength {
		path = truncateUTF8(path, maxPathLabelLength-3) + "..."
	}
	return path
}

// Handler exposes the default Prometheus registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

// truncateUTF8 cuts s to at most maxBytes without splitting a rune.
func truncateUTF8(s string, maxBytes int) string {
	if maxBytes <= 0 {
		return ""
	}
	if len(s) <= maxBytes {
		return s
	}
	for maxBytes > 0 && !utf8.RuneStart(s[maxBytes]) {
		maxBytes--
	}
	return s[:maxBytes]
}
