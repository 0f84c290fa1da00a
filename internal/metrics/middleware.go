package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	namespace     = "vitrine"
	httpSubsystem = "http"
)

// unmatchedRoute labels requests that matched no route.
const unmatchedRoute = "unmatched"

var (
	httpRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: httpSubsystem,
		Name:      "requests_total",
		Help:      "Served HTTP requests by route and status code",
	}, []string{"method", "route", "code"})

	httpLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: httpSubsystem,
		Name:      "request_duration_seconds",
		Help:      "Time from the first byte read to the handler returning",
		Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
	}, []string{"method", "route"})

	httpInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: httpSubsystem,
		Name:      "in_flight_requests",
		Help:      "Requests currently inside the handler chain",
	})

	httpUploadBytes = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: httpSubsystem,
		Name:      "upload_bytes",
		Help:      "Declared Content-Length of POST bodies (image searches)",
		Buckets:   prometheus.ExponentialBuckets(16<<10, 4, 7),
	}, []string{"route"})

	httpResponseBytes = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: httpSubsystem,
		Name:      "response_bytes",
		Help:      "Bytes written in the response body",
		Buckets:   prometheus.ExponentialBuckets(256, 4, 8),
	}, []string{"route"})
)

var registerHTTP sync.Once

// RegisterHTTPMetrics registers the middleware collectors with the default registry.
func RegisterHTTPMetrics() {
	registerHTTP.Do(func() {
		prometheus.MustRegister(httpRequests, httpLatency, httpInFlight, httpUploadBytes, httpResponseBytes)
	})
}

// Middleware instruments every request passing through the router.
func Middleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			httpInFlight.Inc()
			defer httpInFlight.Dec()

			began := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			route := routeLabel(r)
			code := ww.Status()
			if code == 0 {
				code = http.StatusOK
			}

			httpRequests.WithLabelValues(r.Method, route, strconv.Itoa(code)).Inc()
			httpLatency.WithLabelValues(r.Method, route).Observe(time.Since(began).Seconds())
			httpResponseBytes.WithLabelValues(route).Observe(float64(ww.BytesWritten()))
			if r.Method == http.MethodPost && r.ContentLength > 0 {
				httpUploadBytes.WithLabelValues(route).Observe(float64(r.ContentLength))
			}
		})
	}
}

// routeLabel reads the matched chi pattern, available only after routing.
func routeLabel(r *http.Request) string {
	rctx := chi.RouteContext(r.Context())
	if rctx == nil {
		return unmatchedRoute
	}
	return trimRoute(rctx.RoutePattern())
}

// trimRoute folds "/products/" into "/products".
func trimRoute(pattern string) string {
	switch {
	case pattern == "":
		return unmatchedRoute
	case pattern == "/":
		return pattern
	default:
		return strings.TrimSuffix(pattern, "/")
	}
}
