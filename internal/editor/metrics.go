package editor

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/denismitr/heroic/internal/media/manipulator"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type metrics struct {
	registry        *prometheus.Registry
	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	editDuration    *prometheus.HistogramVec
	editFailures    *prometheus.CounterVec
	editSteps       *prometheus.CounterVec
	activityFailed  prometheus.Counter
}

func newMetrics() *metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &metrics{
		registry: registry,
		requestTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "heroic_editor_requests_total",
			Help: "Total HTTP requests handled by the image editor.",
		}, []string{"method", "route", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "heroic_editor_request_duration_seconds",
			Help:    "Image editor request latency in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
		editDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "heroic_editor_pipeline_duration_seconds",
			Help:    "Time spent decoding, transforming and encoding one image.",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"outcome"}),
		editFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "heroic_editor_pipeline_failures_total",
			Help: "Total failed edits by reason.",
		}, []string{"reason"}),
		editSteps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "heroic_editor_pipeline_steps_total",
			Help: "Total transform steps executed by name.",
		}, []string{"step"}),
		activityFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "heroic_editor_activity_record_failures_total",
			Help: "Total edits whose activity entry could not be recorded.",
		}),
	}
	registry.MustRegister(
		m.requestTotal,
		m.requestDuration,
		m.editDuration,
		m.editFailures,
		m.editSteps,
		m.activityFailed,
	)
	return m
}

func (m *metrics) metricsHandler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// withHTTPMetrics resolves handler errors itself so the recorded status is the one sent
func (m *metrics) withHTTPMetrics(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()
		if err := next(c); err != nil {
			c.Error(err)
		}

		route := routeLabel(c)
		status := strconv.Itoa(c.Response().Status)

		m.requestTotal.WithLabelValues(c.Request().Method, route, status).Inc()
		m.requestDuration.WithLabelValues(c.Request().Method, route, status).Observe(time.Since(start).Seconds())

		return nil
	}
}

func (m *metrics) observeEdit(result *manipulator.Result, err error, elapsed time.Duration) {
	if err != nil {
		reason := failureReason(err)
		m.editFailures.WithLabelValues(reason).Inc()
		m.editDuration.WithLabelValues("failed").Observe(elapsed.Seconds())
		return
	}

	m.editDuration.WithLabelValues("ok").Observe(elapsed.Seconds())
	if result != nil {
		for _, step := range result.Steps {
			m.editSteps.WithLabelValues(step).Inc()
		}
	}
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, manipulator.ErrBadImage):
		return "bad_image"
	case errors.Is(err, manipulator.ErrBadTransformationRequest):
		return "bad_request"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	default:
		return "transformation"
	}
}

func routeLabel(c echo.Context) string {
	if p := c.Path(); p != "" {
		return p
	}

	return "unmatched"
}
