package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"

	sitesnap "github.com/alnah/go-sitesnap"
	"github.com/alnah/go-sitesnap/internal/config"
	"github.com/alnah/go-sitesnap/internal/hints"
	"github.com/alnah/go-sitesnap/internal/logging"
)

// run loads the configuration, captures the worklist, and prints the report.
// Placeholders are not errors, with one exception: when no browser could be
// started at all, the pages are still written and ErrBrowserConnect is
// returned so the exit code reports the environment problem.
func run(ctx context.Context, positional []string, flags *runFlags, env *Environment) error {
	if err := applyPositional(positional, flags); err != nil {
		return err
	}

	cfg := config.DefaultConfig()
	if flags.common.config != "" {
		var err error
		cfg, err = config.LoadConfig(flags.common.config)
		if err != nil {
			if errors.Is(err, config.ErrConfigNotFound) {
				return fmt.Errorf("loading config: %w%s", err, hints.ForConfigNotFound(flags.common.config))
			}
			return fmt.Errorf("loading config: %w", err)
		}
	}

	// Merge CLI flags into config (CLI wins), then validate the result.
	mergeFlags(flags, cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}
	cfg.ApplyDefaults()

	logger, closeLog, err := logging.Setup(logConfig(cfg, env.Stderr))
	if err != nil {
		return fmt.Errorf("setting up logging: %w", err)
	}
	defer func() { _ = closeLog() }()

	columns := sitesnap.Labels{
		Index:   cfg.Input.Columns.Index,
		Name:    cfg.Input.Columns.Name,
		Address: cfg.Input.Columns.Address,
	}.WithDefaults()
	records, err := sitesnap.ReadWorklist(cfg.Input.Path, sitesnap.WorklistOptions{
		Sheet:   cfg.Input.Sheet,
		Columns: columns,
	})
	if err != nil {
		return fmt.Errorf("%w%s", err, hints.ForWorklist(columns.Index, columns.Name, columns.Address))
	}
	logger.Info().Str("input", cfg.Input.Path).Int("records", len(records)).Msg("worklist loaded")

	var metrics *sitesnap.Metrics
	if cfg.Metrics.File != "" {
		metrics = sitesnap.NewMetrics()
	}

	rodOpts := sitesnap.RodOptions{Bin: cfg.Browser.Bin, NoSandbox: cfg.Browser.NoSandbox}
	factory := env.Renderers
	if factory == nil {
		factory = sitesnap.NewRodFactory(rodOpts)
	}

	var fallbacks []sitesnap.CaptureResult
	progress := func(res sitesnap.CaptureResult, snap sitesnap.StatsSnapshot) {
		if res.Outcome == sitesnap.OutcomeFallback {
			fallbacks = append(fallbacks, res)
		}
		if flags.common.verbose {
			fmt.Fprintf(env.Stdout, "[%d/%d] %d %s -> %s (%s, %v)\n",
				snap.Total, len(records), res.Record.Index, res.Record.Name,
				res.ArtifactPath, res.Outcome, res.Duration.Round(time.Millisecond))
		}
	}

	p := sitesnap.NewPipeline(
		sitesnap.WithWorkers(cfg.Capture.Workers),
		sitesnap.WithMaxRetries(cfg.Capture.MaxRetries),
		sitesnap.WithPageSize(cfg.Output.PageSize),
		sitesnap.WithTimeouts(cfg.Capture.PageLoadTimeout, cfg.Capture.ReadyTimeout),
		sitesnap.WithViewport(cfg.Capture.ViewportWidth, cfg.Capture.ViewportHeight),
		sitesnap.WithQueueSize(cfg.Capture.QueueSize),
		sitesnap.WithRate(cfg.Capture.Rate),
		sitesnap.WithOutput(cfg.PageBase(), cfg.ScreenshotDir()),
		sitesnap.WithRendererFactory(factory),
		sitesnap.WithLogger(logging.Component(logger, "pipeline")),
		sitesnap.WithMetrics(metrics),
		sitesnap.WithProgress(progress),
	)

	report, runErr := p.Run(ctx, records)
	if errors.Is(runErr, sitesnap.ErrArtifactWrite) || errors.Is(runErr, sitesnap.ErrAggregate) {
		runErr = fmt.Errorf("%w%s", runErr, hints.ForOutputDirectory())
	}
	if runErr == nil && noBrowser(report, fallbacks) {
		runErr = fmt.Errorf("%w: every record got a placeholder%s", sitesnap.ErrBrowserConnect, hints.ForBrowserConnect())
	}

	if report != nil && runErr == nil && cfg.Output.PDF {
		exportPDFs(ctx, report, rodOpts, metrics, logging.Component(logger, "export"), env)
	}

	if metrics != nil {
		if err := metrics.WriteTextfile(cfg.Metrics.File); err != nil {
			logger.Warn().Err(err).Str("file", cfg.Metrics.File).Msg("writing metrics")
		}
	}

	if report != nil {
		sitesnap.SortByIndex(fallbacks)
		printReport(env.Stdout, env.Stderr, report, fallbacks, flags.common.quiet)
	}
	return runErr
}

// noBrowser reports whether the run produced nothing but placeholders
// because no renderer could be started. Pages are still complete in that
// case; the error only signals the environment problem.
func noBrowser(report *sitesnap.Report, fallbacks []sitesnap.CaptureResult) bool {
	if report == nil || report.Stats.Total == 0 || report.Stats.Success > 0 {
		return false
	}
	for _, res := range fallbacks {
		if !errors.Is(res.Err, sitesnap.ErrBrowserConnect) {
			return false
		}
	}
	return true
}

// exportPDFs converts the pages touched by this run. Failures are logged and
// leave the Markdown pages in place.
func exportPDFs(ctx context.Context, report *sitesnap.Report, opts sitesnap.RodOptions, metrics *sitesnap.Metrics, logger zerolog.Logger, env *Environment) {
	exporter := env.Exporter
	if exporter == nil {
		exporter = sitesnap.NewPDFExporter(opts, "", logger)
	}
	defer func() {
		if err := exporter.Close(); err != nil {
			logger.Warn().Err(err).Msg("closing PDF exporter")
		}
	}()

	pdfs, err := exporter.Export(ctx, report.Pages)
	report.PDFs = pdfs
	for range pdfs {
		metrics.ObservePDFExport(nil)
	}
	if err != nil {
		for range len(report.Pages) - len(pdfs) {
			metrics.ObservePDFExport(err)
		}
		logger.Warn().Err(err).Int("exported", len(pdfs)).Int("pages", len(report.Pages)).Msg("PDF export incomplete")
	}
}

// logConfig maps the config's log section onto the logging package.
func logConfig(cfg *config.Config, out io.Writer) logging.Config {
	lc := logging.DefaultConfig()
	lc.Level = logging.LogLevel(cfg.Log.Level)
	lc.File = cfg.Log.File
	lc.Output = out
	if cfg.Log.Pretty != nil {
		lc.Pretty = *cfg.Log.Pretty
	}
	return lc
}

// printReport writes the run summary: pages written, PDFs, placeholders in
// index order, and the statistics line.
func printReport(stdout, stderr io.Writer, report *sitesnap.Report, fallbacks []sitesnap.CaptureResult, quiet bool) {
	for _, res := range fallbacks {
		fmt.Fprintf(stderr, "FALLBACK %d %s (%s): %v\n", res.Record.Index, res.Record.Name, res.Record.Address, res.Err)
	}
	if quiet {
		return
	}
	for _, page := range report.Pages {
		fmt.Fprintf(stdout, "Wrote %s\n", page)
	}
	for _, pdf := range report.PDFs {
		fmt.Fprintf(stdout, "Created %s\n", pdf)
	}
	fmt.Fprintf(stdout, "\n%s (%v)\n", report.Stats, report.Duration().Round(time.Millisecond))
}
