package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the application collectors, registered on their own registry.
type Metrics struct {
	registry *prometheus.Registry

	requests    *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	enrollments prometheus.Counter
	submissions *prometheus.CounterVec
}

func New(namespace string) *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status code.",
		}, []string{"method", "route", "code"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latencies by method and route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		enrollments: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "enrollments_total",
			Help:      "Successful course enrollments.",
		}),
		submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "assessment_submissions_total",
			Help:      "Graded assessment submissions, by whether the score was perfect.",
		}, []string{"perfect"}),
	}
	m.registry.MustRegister(
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		m.requests, m.duration, m.enrollments, m.submissions,
	)
	return m
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Middleware records the count and latency of every request, by route pattern.
func (m *Metrics) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			start := time.Now()
			err := next(ctx)
			if err != nil {
				ctx.Error(err) // commit the response so that the status is known
			}

			route := ctx.Path()
			m.requests.WithLabelValues(ctx.Request().Method, route, strconv.Itoa(ctx.Response().Status)).Inc()
			m.duration.WithLabelValues(ctx.Request().Method, route).Observe(time.Since(start).Seconds())
			return nil
		}
	}
}

func (m *Metrics) Enrolled() {
	m.enrollments.Inc()
}

func (m *Metrics) Submitted(perfect bool) {
	m.submissions.WithLabelValues(strconv.FormatBool(perfect)).Inc()
}
