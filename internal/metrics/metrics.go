package metrics

import (
	"context"
	"net/http"
	"strconv"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	eventbus "github.com/protectql/depthgate/internal/eventbus"
	events "github.com/protectql/depthgate/internal/events"
)

var (
	httpRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "depthgate_http_requests_total",
		Help: "Gateway HTTP requests by response status.",
	}, []string{"status"})

	validationTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "depthgate_validations_total",
		Help: "Validation phases by outcome (pass or blocked).",
	}, []string{"outcome"})

	violationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "depthgate_violations_total",
		Help: "Validation findings by rule.",
	}, []string{"rule"})

	validationDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "depthgate_validation_duration_seconds",
		Help:    "Validation phase duration.",
		Buckets: prometheus.DefBuckets,
	})

	proxyDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "depthgate_proxy_duration_seconds",
		Help:    "Upstream forward duration by response status.",
		Buckets: prometheus.DefBuckets,
	}, []string{"status"})
)

var registerOnce sync.Once

// Register attaches eventbus subscribers that record gateway metrics.
// Safe to call more than once; only the first call subscribes.
func Register() {
	registerOnce.Do(func() {
		eventbus.Subscribe(func(ctx context.Context, e events.HTTPFinish) {
			httpRequests.WithLabelValues(strconv.Itoa(e.Status)).Inc()
		})

		eventbus.Subscribe(func(ctx context.Context, e events.ValidationFinish) {
			validationDuration.Observe(e.Duration.Seconds())
			if len(e.Violations) == 0 {
				validationTotal.WithLabelValues("pass").Inc()
				return
			}
			validationTotal.WithLabelValues("blocked").Inc()
			for _, v := range e.Violations {
				violationsTotal.WithLabelValues(v.Rule).Inc()
			}
		})

		eventbus.Subscribe(func(ctx context.Context, e events.ProxyFinish) {
			proxyDuration.WithLabelValues(strconv.Itoa(e.Status)).Observe(e.Duration.Seconds())
		})
	})
}

// Handler serves the Prometheus scrape endpoint.
func Handler() http.Handler { return promhttp.Handler() }
