package sitesnap

import (
	"time"

	"github.com/rs/zerolog"
)

// Defaults for a Pipeline.
const (
	DefaultWorkers         = 5
	DefaultMaxRetries      = 3
	DefaultPageSize        = 100
	DefaultPageLoadTimeout = 30 * time.Second
	DefaultReadyTimeout    = 10 * time.Second
	DefaultViewportWidth   = 800
	DefaultViewportHeight  = 600
	DefaultBaseName        = "screenshots"
	DefaultScreenshotDir   = "screenshots"
)

// Option configures a Pipeline.
type Option func(*Pipeline)

// pipelineConfig holds internal configuration for Pipeline.
type pipelineConfig struct {
	workers         int
	maxRetries      int
	pageSize        int
	pageLoadTimeout time.Duration
	readyTimeout    time.Duration
	viewportWidth   int
	viewportHeight  int
	queueSize       int
	rate            float64
	baseName        string
	screenshotDir   string
}

func defaultPipelineConfig() pipelineConfig {
	return pipelineConfig{
		workers:         DefaultWorkers,
		maxRetries:      DefaultMaxRetries,
		pageSize:        DefaultPageSize,
		pageLoadTimeout: DefaultPageLoadTimeout,
		readyTimeout:    DefaultReadyTimeout,
		viewportWidth:   DefaultViewportWidth,
		viewportHeight:  DefaultViewportHeight,
		baseName:        DefaultBaseName,
		screenshotDir:   DefaultScreenshotDir,
	}
}

// WithWorkers sets the number of concurrent workers, each owning one
// renderer. n <= 0 sizes the pool from GOMAXPROCS (see ResolvePoolSize).
func WithWorkers(n int) Option {
	return func(p *Pipeline) {
		p.cfg.workers = ResolvePoolSize(n)
	}
}

// WithMaxRetries sets how many attempts a record gets before the placeholder
// is used.
// Panics if n < 1 (programmer error).
func WithMaxRetries(n int) Option {
	if n < 1 {
		panic("sitesnap: WithMaxRetries needs at least one attempt")
	}
	return func(p *Pipeline) {
		p.cfg.maxRetries = n
	}
}

// WithPageSize sets how many entries each page document holds.
// Panics if n < 1 (programmer error).
func WithPageSize(n int) Option {
	if n < 1 {
		panic("sitesnap: WithPageSize must be positive")
	}
	return func(p *Pipeline) {
		p.cfg.pageSize = n
	}
}

// WithTimeouts sets the per-attempt page-load and readiness bounds.
// Panics if either is <= 0 (programmer error, similar to time.NewTicker).
func WithTimeouts(pageLoad, ready time.Duration) Option {
	if pageLoad <= 0 || ready <= 0 {
		panic("sitesnap: WithTimeouts durations must be positive")
	}
	return func(p *Pipeline) {
		p.cfg.pageLoadTimeout = pageLoad
		p.cfg.readyTimeout = ready
	}
}

// WithViewport fixes the screenshot size. Placeholders use the same size.
// Panics if either side is <= 0.
func WithViewport(width, height int) Option {
	if width <= 0 || height <= 0 {
		panic("sitesnap: WithViewport dimensions must be positive")
	}
	return func(p *Pipeline) {
		p.cfg.viewportWidth = width
		p.cfg.viewportHeight = height
	}
}

// WithQueueSize bounds the submission queue. 0 (default) queues every record.
func WithQueueSize(n int) Option {
	return func(p *Pipeline) {
		if n > 0 {
			p.cfg.queueSize = n
		}
	}
}

// WithRate throttles submission to perSecond records per second.
// 0 (default) disables throttling.
func WithRate(perSecond float64) Option {
	return func(p *Pipeline) {
		if perSecond > 0 {
			p.cfg.rate = perSecond
		}
	}
}

// WithOutput sets the page document base name (which may include a
// directory) and the screenshot directory.
func WithOutput(baseName, screenshotDir string) Option {
	return func(p *Pipeline) {
		if baseName != "" {
			p.cfg.baseName = baseName
		}
		if screenshotDir != "" {
			p.cfg.screenshotDir = screenshotDir
		}
	}
}

// WithRendererFactory replaces the go-rod renderer, e.g. with a fake in tests.
func WithRendererFactory(f RendererFactory) Option {
	return func(p *Pipeline) {
		p.factory = f
	}
}

// WithPageStore replaces the filesystem page store.
func WithPageStore(s PageStore) Option {
	return func(p *Pipeline) {
		p.store = s
	}
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(l zerolog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = l
	}
}

// WithMetrics records run metrics into m.
func WithMetrics(m *Metrics) Option {
	return func(p *Pipeline) {
		p.metrics = m
	}
}

// WithProgress registers a callback invoked once per result, in completion
// order, from the aggregating goroutine.
func WithProgress(fn func(CaptureResult, StatsSnapshot)) Option {
	return func(p *Pipeline) {
		p.progress = fn
	}
}

// WithRunID overrides the generated run identifier.
func WithRunID(id string) Option {
	return func(p *Pipeline) {
		if id != "" {
			p.runID = id
		}
	}
}
