package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "timelapse"

// Recorder owns a private registry with the daemon's job and HTTP metrics.
// All methods are safe on a nil *Recorder, which records nothing.
type Recorder struct {
	registry *prometheus.Registry

	jobsSubmitted  prometheus.Counter
	jobsFinished   *prometheus.CounterVec
	jobsInFlight   prometheus.Gauge
	encodeDuration prometheus.Histogram
	framesEncoded  prometheus.Counter
	httpRequests   *prometheus.CounterVec
	httpDuration   *prometheus.HistogramVec
}

// New builds a Recorder with process and Go runtime collectors attached.
func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		jobsSubmitted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_submitted_total",
			Help:      "Timelapse jobs accepted for encoding",
		}),
		jobsFinished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_finished_total",
			Help:      "Timelapse jobs that reached a terminal state",
		}, []string{"state"}),
		jobsInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "jobs_in_flight",
			Help:      "Timelapse jobs currently encoding",
		}),
		encodeDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "encode_duration_seconds",
			Help:      "Wall time from acceptance to completion of successful jobs",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 12),
		}),
		framesEncoded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_encoded_total",
			Help:      "Frames written into completed timelapse videos",
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "API requests by method, route template, and status code",
		}, []string{"method", "route", "code"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "API request latency by method and route template",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}

	r.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		r.jobsSubmitted,
		r.jobsFinished,
		r.jobsInFlight,
		r.encodeDuration,
		r.framesEncoded,
		r.httpRequests,
		r.httpDuration,
	)
	return r
}

// JobSubmitted counts an accepted job and marks it in flight.
func (r *Recorder) JobSubmitted() {
	if r == nil {
		return
	}
	r.jobsSubmitted.Inc()
	r.jobsInFlight.Inc()
}

// JobFinished records a terminal transition. Duration and frames are only
// observed for completed jobs.
func (r *Recorder) JobFinished(state string, elapsed time.Duration, frames uint) {
	if r == nil {
		return
	}
	r.jobsFinished.WithLabelValues(state).Inc()
	r.jobsInFlight.Dec()
	if state == "completed" {
		r.encodeDuration.Observe(elapsed.Seconds())
		r.framesEncoded.Add(float64(frames))
	}
}

// ObserveRequest records one API request.
func (r *Recorder) ObserveRequest(method, route string, code int, elapsed time.Duration) {
	if r == nil {
		return
	}
	r.httpRequests.WithLabelValues(method, route, strconv.Itoa(code)).Inc()
	r.httpDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// Handler serves the registry in the prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	if r == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}
