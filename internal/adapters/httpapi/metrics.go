package httpapi

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the collectors of one server. Each server gets its own
// registry so tests can build several.
type Metrics struct {
	registry        *prometheus.Registry
	requestCounter  *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	uploadedFiles   *prometheus.CounterVec
	uploadedBytes   prometheus.Counter
	scans           *prometheus.CounterVec
	scanDuration    prometheus.Histogram
}

func NewMetrics(registry *prometheus.Registry) *Metrics {
	if registry == nil {
		registry = prometheus.NewRegistry()
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}
	m := &Metrics{
		registry: registry,
		requestCounter: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "printvault",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"method", "route", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "printvault",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 30, 120, 600},
		}, []string{"method", "route"}),
		uploadedFiles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "printvault",
			Name:      "uploaded_files_total",
			Help:      "Files stored by upload requests",
		}, []string{"kind"}),
		uploadedBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "printvault",
			Name:      "uploaded_bytes_total",
			Help:      "Bytes received by upload requests",
		}),
		scans: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "printvault",
			Name:      "scans_total",
			Help:      "Folder scans by scope and result",
		}, []string{"scope", "result"}),
		scanDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "printvault",
			Name:      "scan_duration_seconds",
			Help:      "Duration of folder scans",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
		}),
	}
	registry.MustRegister(m.requestCounter, m.requestDuration, m.uploadedFiles, m.uploadedBytes, m.scans, m.scanDuration)
	return m
}

// Registry returns the registry backing /metrics
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Middleware records request counts and latency by route template
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		method := c.Request.Method
		m.requestCounter.WithLabelValues(method, route, strconv.Itoa(c.Writer.Status())).Inc()
		m.requestDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
	}
}

// ObserveScan records one scan
func (m *Metrics) ObserveScan(scope string, err error, d time.Duration) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.scans.WithLabelValues(scope, result).Inc()
	m.scanDuration.Observe(d.Seconds())
}

func (m *Metrics) observeUpload(preview bool, files int, bytes int64) {
	if preview {
		m.uploadedFiles.WithLabelValues("preview").Inc()
	}
	m.uploadedFiles.WithLabelValues("payload").Add(float64(files))
	m.uploadedBytes.Add(float64(bytes))
}

func (m *Metrics) handler() gin.HandlerFunc {
	h := promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
	return gin.WrapH(h)
}
