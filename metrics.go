package sitesnap

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds run counters on a private registry, so several pipelines
// (or tests) never collide on registration. A nil *Metrics is a no-op.
type Metrics struct {
	registry *prometheus.Registry

	captures        *prometheus.CounterVec
	attempts        prometheus.Counter
	redirects       prometheus.Counter
	captureDuration prometheus.Histogram
	pageWrites      prometheus.Counter
	pagesTouched    prometheus.Gauge
	renderers       prometheus.Gauge
	pdfExports      *prometheus.CounterVec
}

// NewMetrics registers all collectors on a fresh registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		captures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "sitesnap_captures_total",
			Help: "Total number of capture results by outcome",
		}, []string{"outcome"}), // "success", "fallback"
		attempts: f.NewCounter(prometheus.CounterOpts{
			Name: "sitesnap_capture_attempts_total",
			Help: "Total number of navigation attempts",
		}),
		redirects: f.NewCounter(prometheus.CounterOpts{
			Name: "sitesnap_redirects_total",
			Help: "Total number of captures that ended on a different address",
		}),
		captureDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "sitesnap_capture_duration_seconds",
			Help:    "Wall time of one capture task, retries included",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}),
		pageWrites: f.NewCounter(prometheus.CounterOpts{
			Name: "sitesnap_page_writes_total",
			Help: "Total number of page document saves",
		}),
		pagesTouched: f.NewGauge(prometheus.GaugeOpts{
			Name: "sitesnap_pages",
			Help: "Number of page documents written in this run",
		}),
		renderers: f.NewGauge(prometheus.GaugeOpts{
			Name: "sitesnap_renderers_started",
			Help: "Number of browser sessions started in this run",
		}),
		pdfExports: f.NewCounterVec(prometheus.CounterOpts{
			Name: "sitesnap_pdf_exports_total",
			Help: "Total number of PDF exports by result",
		}, []string{"result"}), // "ok", "error"
	}
}

// Registry exposes the private registry, e.g. for an HTTP handler.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ObserveCapture records one capture result.
func (m *Metrics) ObserveCapture(res CaptureResult) {
	if m == nil {
		return
	}
	m.captures.WithLabelValues(res.Outcome.String()).Inc()
	m.attempts.Add(float64(res.Attempts))
	m.captureDuration.Observe(res.Duration.Seconds())
	if res.Redirected {
		m.redirects.Inc()
	}
}

// ObservePageWrite counts one page save.
func (m *Metrics) ObservePageWrite() {
	if m == nil {
		return
	}
	m.pageWrites.Inc()
}

// SetPages records how many page documents the run touched.
func (m *Metrics) SetPages(n int) {
	if m == nil {
		return
	}
	m.pagesTouched.Set(float64(n))
}

// SetRenderers records how many browser sessions were started.
func (m *Metrics) SetRenderers(n int) {
	if m == nil {
		return
	}
	m.renderers.Set(float64(n))
}

// ObservePDFExport counts one PDF export attempt.
func (m *Metrics) ObservePDFExport(err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.pdfExports.WithLabelValues(result).Inc()
}

// WriteTextfile writes all metrics in the text exposition format, for the
// node exporter textfile collector. The write is atomic.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil {
		return nil
	}
	return prometheus.WriteToTextfile(path, m.registry)
}
