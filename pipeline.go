package sitesnap

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/alnah/go-sitesnap/internal/document"
	"github.com/alnah/go-sitesnap/internal/fileutil"
)

// Pipeline captures every record of a worklist with a fixed pool of
// workers and aggregates the results into page documents.
//
// Create with NewPipeline and call Run once per worklist.
type Pipeline struct {
	cfg      pipelineConfig
	factory  RendererFactory
	store    PageStore
	logger   zerolog.Logger
	metrics  *Metrics
	progress func(CaptureResult, StatsSnapshot)
	runID    string
}

// job is one record queued for capture.
type job struct {
	rec  Record
	path string
}

// NewPipeline creates a Pipeline with default configuration. Without
// WithRendererFactory, renderers are headless Chrome sessions via go-rod.
func NewPipeline(opts ...Option) *Pipeline {
	p := &Pipeline{
		cfg:     defaultPipelineConfig(),
		factory: NewRodFactory(RodOptions{}),
		store:   document.Store{},
		logger:  zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.runID == "" {
		p.runID = uuid.NewString()
	}
	p.logger = p.logger.With().Str("run_id", p.runID).Logger()
	return p
}

// RunID identifies this pipeline's run in logs and reports.
func (p *Pipeline) RunID() string {
	return p.runID
}

// PageSize returns the configured number of entries per page.
func (p *Pipeline) PageSize() int {
	return p.cfg.pageSize
}

// Run captures records and returns the run report.
//
// Invalid records abort the run before anything is scheduled. Canceling ctx
// stops submission; queued records are skipped and in-flight ones finish and
// are aggregated. A storage failure (page save or placeholder write) stops
// submission, drains the workers, and is returned. Renderers are always
// disposed before Run returns. The report is non-nil whenever scheduling
// started, even on error.
func (p *Pipeline) Run(ctx context.Context, records []Record) (*Report, error) {
	report := &Report{RunID: p.runID, StartedAt: time.Now()}

	if err := validateRecords(records); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(p.cfg.screenshotDir, fileutil.DirPerm); err != nil {
		return nil, fmt.Errorf("%w: creating %s: %v", ErrArtifactWrite, p.cfg.screenshotDir, err)
	}

	paths := AssignArtifactPaths(records, p.cfg.screenshotDir)
	workers := p.cfg.workers
	if workers > len(records) && len(records) > 0 {
		workers = len(records)
	}
	queue := p.cfg.queueSize
	if queue <= 0 || queue > len(records) {
		queue = len(records)
	}

	log := p.logger
	log.Info().
		Int("records", len(records)).
		Int("workers", workers).
		Int("page_size", p.cfg.pageSize).
		Int("max_retries", p.cfg.maxRetries).
		Msg("run started")

	pool := NewRendererPool(workers, p.factory, log)
	capturer := newCapturer(p.cfg, log)
	agg := NewAggregator(p.store, p.cfg.baseName, p.cfg.pageSize, log)
	stats := &Stats{}

	// stop is closed by the consumer on a fatal error; the producer also
	// stops on ctx cancellation.
	stop := make(chan struct{})
	var stopOnce sync.Once
	halt := func() { stopOnce.Do(func() { close(stop) }) }

	jobs := make(chan job, queue)
	results := make(chan CaptureResult, workers)

	go p.produce(ctx, stop, jobs, records, paths)

	var wg sync.WaitGroup
	for id := 0; id < workers; id++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			p.work(ctx, stop, id, pool, capturer, jobs, results)
		}(id)
	}
	go func() {
		wg.Wait()
		close(results)
	}()

	// Single consumer: aggregation and statistics happen in completion order.
	var fatal error
	for res := range results {
		if fatal != nil {
			// Drain in-flight work; nothing more is recorded after a fatal error.
			continue
		}
		if errors.Is(res.Err, ErrArtifactWrite) {
			fatal = res.Err
			log.Error().Err(fatal).Int("index", res.Record.Index).Msg("artifact missing, aborting run")
			halt()
			continue
		}

		if _, err := agg.Append(res); err != nil {
			fatal = err
			log.Error().Err(err).Int("index", res.Record.Index).Msg("aggregation failed, aborting run")
			halt()
			continue
		}
		p.metrics.ObservePageWrite()
		stats.Record(res.Outcome)
		p.metrics.ObserveCapture(res)
		if p.progress != nil {
			p.progress(res, stats.Snapshot())
		}
	}

	p.metrics.SetRenderers(pool.Created())
	if err := pool.DisposeAll(); err != nil {
		log.Warn().Err(err).Msg("disposing renderers")
	}

	report.Stats = stats.Snapshot()
	report.Pages = agg.Pages()
	report.FinishedAt = time.Now()
	p.metrics.SetPages(len(report.Pages))

	log.Info().
		Int("total", report.Stats.Total).
		Int("success", report.Stats.Success).
		Int("failed", report.Stats.Failed).
		Int("pages", len(report.Pages)).
		Dur("elapsed", report.Duration()).
		Msg(report.Stats.String())

	if fatal != nil {
		return report, fatal
	}
	if err := ctx.Err(); err != nil && report.Stats.Total < len(records) {
		skipped := len(records) - report.Stats.Total
		log.Warn().Int("skipped", skipped).Msg("run canceled")
		return report, fmt.Errorf("run canceled with %d records skipped: %w", skipped, err)
	}
	return report, nil
}

// produce feeds jobs in input order, honoring the optional rate limit, and
// closes jobs when done or stopped.
func (p *Pipeline) produce(ctx context.Context, stop <-chan struct{}, jobs chan<- job, records []Record, paths []string) {
	defer close(jobs)

	var limiter *rate.Limiter
	if p.cfg.rate > 0 {
		limiter = rate.NewLimiter(rate.Limit(p.cfg.rate), 1)
	}

	for i, rec := range records {
		if limiter != nil {
			if err := limiter.Wait(ctx); err != nil {
				return
			}
		}
		select {
		case jobs <- job{rec: rec, path: paths[i]}:
		case <-ctx.Done():
			return
		case <-stop:
			return
		}
	}
}

// work runs on one goroutine per worker slot. The renderer is acquired on
// the first job and owned by this goroutine for the rest of the run.
func (p *Pipeline) work(ctx context.Context, stop <-chan struct{}, id int, pool *RendererPool, c *Capturer, jobs <-chan job, results chan<- CaptureResult) {
	var (
		r        Renderer
		acquired bool
	)
	// In-flight captures are never interrupted by cancellation.
	captureCtx := context.WithoutCancel(ctx)

	for j := range jobs {
		// Queued but unstarted work is skipped once the run is stopping.
		select {
		case <-ctx.Done():
			continue
		case <-stop:
			continue
		default:
		}

		if !acquired {
			var err error
			r, err = pool.Acquire(id)
			if err != nil {
				p.logger.Error().Err(err).Int("worker", id).Msg("starting renderer")
			} else {
				acquired = true
			}
		}
		results <- c.Capture(captureCtx, id, j.rec, j.path, r)
	}
}

// validateRecords rejects records that cannot be captured.
func validateRecords(records []Record) error {
	for _, rec := range records {
		if err := rec.Validate(); err != nil {
			return fmt.Errorf("%w: %w", ErrMalformedWorklist, err)
		}
	}
	return nil
}

// SortByIndex orders results by record index, for reports that want input
// order rather than completion order.
func SortByIndex(results []CaptureResult) {
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Record.Index < results[j].Record.Index
	})
}
