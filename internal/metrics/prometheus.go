package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "learnhub"

// PrometheusRecorder exports metrics through a dedicated Prometheus registry.
type PrometheusRecorder struct {
	registry *prometheus.Registry

	httpRequests       *prometheus.CounterVec
	httpDuration       *prometheus.HistogramVec
	courseCache        *prometheus.CounterVec
	usersRegistered    prometheus.Counter
	logins             *prometheus.CounterVec
	enrollments        *prometheus.CounterVec
	recsServed         *prometheus.CounterVec
	recItems           *prometheus.CounterVec
	recDuration        prometheus.Histogram
	activityPublished  *prometheus.CounterVec
	activityProcessed  *prometheus.CounterVec
	activityBatchSize  prometheus.Histogram
	activityBatchTime  prometheus.Histogram
	activityQueueDepth prometheus.Gauge
	activityLag        prometheus.Histogram
	popularRefreshes   *prometheus.CounterVec
}

// NewPrometheus creates a recorder with its own registry, including Go
// runtime and process collectors.
func NewPrometheus() *PrometheusRecorder {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &PrometheusRecorder{
		registry: reg,
		httpRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		httpDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}, []string{"method", "route"}),
		courseCache: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "course_cache_lookups_total",
			Help:      "Course cache lookups by result.",
		}, []string{"result"}),
		usersRegistered: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "users_registered_total",
			Help:      "Total registered users.",
		}),
		logins: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "logins_total",
			Help:      "Login attempts by outcome.",
		}, []string{"outcome"}),
		enrollments: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "enrollment_actions_total",
			Help:      "Enrollment actions by kind.",
		}, []string{"kind"}),
		recsServed: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "recommendations_served_total",
			Help:      "Recommendation responses by source.",
		}, []string{"source"}),
		recItems: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "recommendation_items_total",
			Help:      "Recommended items by stage.",
		}, []string{"reason"}),
		recDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "recommendation_duration_seconds",
			Help:      "Time to compute recommendations.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
		activityPublished: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "activity_events_published_total",
			Help:      "Activity events published by status.",
		}, []string{"status"}),
		activityProcessed: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "activity_events_processed_total",
			Help:      "Activity events processed by status.",
		}, []string{"status"}),
		activityBatchSize: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "activity_batch_size",
			Help:      "Activity worker batch sizes.",
			Buckets:   []float64{1, 5, 10, 25, 50, 100},
		}),
		activityBatchTime: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "activity_batch_duration_seconds",
			Help:      "Activity worker batch processing time.",
			Buckets:   prometheus.DefBuckets,
		}),
		activityQueueDepth: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "activity_queue_depth",
			Help:      "Pending messages in the activity consumer group.",
		}),
		activityLag: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "activity_ingest_lag_seconds",
			Help:      "Delay between an activity event and its persistence.",
			Buckets:   []float64{0.1, 0.5, 1, 5, 10, 30, 60, 300},
		}),
		popularRefreshes: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "popular_snapshot_refreshes_total",
			Help:      "Popular snapshot refreshes by status.",
		}, []string{"status"}),
	}
}

// Handler returns the /metrics HTTP handler for this recorder's registry.
func (p *PrometheusRecorder) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{Registry: p.registry})
}

// Registry exposes the underlying registry.
func (p *PrometheusRecorder) Registry() *prometheus.Registry {
	return p.registry
}

// ObserveHTTPRequest records a served request.
func (p *PrometheusRecorder) ObserveHTTPRequest(method, route string, status int, duration time.Duration) {
	p.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	p.httpDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// IncCourseCacheHit records a course cache hit.
func (p *PrometheusRecorder) IncCourseCacheHit() {
	p.courseCache.WithLabelValues("hit").Inc()
}

// IncCourseCacheMiss records a course cache miss.
func (p *PrometheusRecorder) IncCourseCacheMiss() {
	p.courseCache.WithLabelValues("miss").Inc()
}

// IncUserRegistered records a registration.
func (p *PrometheusRecorder) IncUserRegistered() {
	p.usersRegistered.Inc()
}

// IncLogin records a login attempt.
func (p *PrometheusRecorder) IncLogin(outcome string) {
	p.logins.WithLabelValues(outcome).Inc()
}

// IncEnrollment records an enrollment action.
func (p *PrometheusRecorder) IncEnrollment(kind string) {
	p.enrollments.WithLabelValues(kind).Inc()
}

// IncRecommendationServed records a recommendation response.
func (p *PrometheusRecorder) IncRecommendationServed(source string) {
	p.recsServed.WithLabelValues(source).Inc()
}

// ObserveRecommendationItems records items produced by a stage.
func (p *PrometheusRecorder) ObserveRecommendationItems(reason string, count int) {
	p.recItems.WithLabelValues(reason).Add(float64(count))
}

// ObserveRecommendationDuration records computation time.
func (p *PrometheusRecorder) ObserveRecommendationDuration(duration time.Duration) {
	p.recDuration.Observe(duration.Seconds())
}

// IncActivityEventPublished records a publish outcome.
func (p *PrometheusRecorder) IncActivityEventPublished(status string) {
	p.activityPublished.WithLabelValues(status).Inc()
}

// IncActivityEventProcessed records a processing outcome.
func (p *PrometheusRecorder) IncActivityEventProcessed(status string) {
	p.activityProcessed.WithLabelValues(status).Inc()
}

// ObserveActivityBatchSize records a batch size.
func (p *PrometheusRecorder) ObserveActivityBatchSize(size int) {
	p.activityBatchSize.Observe(float64(size))
}

// ObserveActivityBatchDuration records batch processing time.
func (p *PrometheusRecorder) ObserveActivityBatchDuration(duration time.Duration) {
	p.activityBatchTime.Observe(duration.Seconds())
}

// SetActivityQueueDepth records pending messages.
func (p *PrometheusRecorder) SetActivityQueueDepth(depth int64) {
	p.activityQueueDepth.Set(float64(depth))
}

// ObserveActivityIngestLag records event-to-persist delay.
func (p *PrometheusRecorder) ObserveActivityIngestLag(lag time.Duration) {
	p.activityLag.Observe(lag.Seconds())
}

// IncPopularRefresh records a snapshot refresh.
func (p *PrometheusRecorder) IncPopularRefresh(status string) {
	p.popularRefreshes.WithLabelValues(status).Inc()
}
