package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	flag "github.com/spf13/pflag"

	"github.com/alnah/go-sitesnap/internal/config"
	"github.com/alnah/go-sitesnap/internal/logging"
)

// ErrTooManyArgs is returned when more than input and output base are given.
var ErrTooManyArgs = errors.New("too many arguments")

// commonFlags holds flags shared by every invocation.
type commonFlags struct {
	config  string
	quiet   bool
	verbose bool
}

// inputFlags locate the worklist and its columns.
type inputFlags struct {
	path       string
	sheet      string
	indexCol   string
	nameCol    string
	addressCol string
}

// outputFlags control where pages and screenshots go.
type outputFlags struct {
	dir           string
	baseName      string
	screenshotDir string
	pageSize      int
	pdf           bool
}

// captureFlags tune the worker pool and retry policy.
type captureFlags struct {
	workers      int
	retries      int
	timeout      time.Duration
	readyTimeout time.Duration
	width        int
	height       int
	queueSize    int
	rate         float64
}

// browserFlags override the Chrome launcher.
type browserFlags struct {
	bin       string
	noSandbox bool
}

// logFlags override log settings.
type logFlags struct {
	level string
	file  string
	json  bool
}

// runFlags holds every flag of the sitesnap command.
type runFlags struct {
	common      commonFlags
	input       inputFlags
	output      outputFlags
	capture     captureFlags
	browser     browserFlags
	log         logFlags
	metricsFile string
	version     bool
}

// addCommonFlags adds common flags to a FlagSet.
func addCommonFlags(fs *flag.FlagSet, f *commonFlags) {
	fs.StringVarP(&f.config, "config", "c", "", "config file name or path")
	fs.BoolVarP(&f.quiet, "quiet", "q", false, "only show errors")
	fs.BoolVarP(&f.verbose, "verbose", "v", false, "debug logging and per-record timing")
}

func addInputFlags(fs *flag.FlagSet, f *inputFlags) {
	fs.StringVarP(&f.path, "input", "i", "", "worklist file (.xlsx or .csv)")
	fs.StringVarP(&f.sheet, "sheet", "s", "", "worksheet name (xlsx)")
	fs.StringVar(&f.indexCol, "index-column", "", "header of the index column")
	fs.StringVar(&f.nameCol, "name-column", "", "header of the name column")
	fs.StringVar(&f.addressCol, "address-column", "", "header of the address column")
}

func addOutputFlags(fs *flag.FlagSet, f *outputFlags) {
	fs.StringVarP(&f.dir, "output-dir", "d", "", "directory for page documents")
	fs.StringVarP(&f.baseName, "output", "o", "", "page document base name")
	fs.StringVar(&f.screenshotDir, "screenshot-dir", "", "screenshot directory")
	fs.IntVarP(&f.pageSize, "page-size", "p", 0, "entries per page document")
	fs.BoolVar(&f.pdf, "pdf", false, "export touched pages to PDF")
}

func addCaptureFlags(fs *flag.FlagSet, f *captureFlags) {
	fs.IntVarP(&f.workers, "workers", "w", 0, "concurrent workers, one browser each")
	fs.IntVarP(&f.retries, "retries", "r", 0, "attempts per record before the placeholder")
	fs.DurationVarP(&f.timeout, "timeout", "t", 0, "page load timeout (e.g., 30s)")
	fs.DurationVar(&f.readyTimeout, "ready-timeout", 0, "readiness wait after load (e.g., 10s)")
	fs.IntVar(&f.width, "width", 0, "viewport width in pixels")
	fs.IntVar(&f.height, "height", 0, "viewport height in pixels")
	fs.IntVar(&f.queueSize, "queue-size", 0, "submission queue bound (0 = whole worklist)")
	fs.Float64Var(&f.rate, "rate", 0, "records started per second (0 = unlimited)")
}

func addBrowserFlags(fs *flag.FlagSet, f *browserFlags) {
	fs.StringVar(&f.bin, "browser-bin", "", "Chrome binary")
	fs.BoolVar(&f.noSandbox, "no-sandbox", false, "disable the Chrome sandbox")
}

func addLogFlags(fs *flag.FlagSet, f *logFlags) {
	fs.StringVar(&f.level, "log-level", "", "log level: debug, info, warn, error")
	fs.StringVar(&f.file, "log-file", "", "also append JSON logs to this file")
	fs.Lookup("log-file").NoOptDefVal = logging.DefaultLogFile
	fs.BoolVar(&f.json, "log-json", false, "JSON console logs instead of pretty output")
}

// parseFlags parses os.Args-style arguments, skipping the program name.
func parseFlags(args []string) (*runFlags, []string, error) {
	if len(args) > 0 {
		return parseRunFlags(args[1:])
	}
	return parseRunFlags(args)
}

func parseRunFlags(args []string) (*runFlags, []string, error) {
	fs := flag.NewFlagSet("sitesnap", flag.ContinueOnError)
	f := &runFlags{}

	addCommonFlags(fs, &f.common)
	addInputFlags(fs, &f.input)
	addOutputFlags(fs, &f.output)
	addCaptureFlags(fs, &f.capture)
	addBrowserFlags(fs, &f.browser)
	addLogFlags(fs, &f.log)
	fs.StringVar(&f.metricsFile, "metrics-file", "", "write Prometheus metrics to this textfile")
	fs.BoolVar(&f.version, "version", false, "print version and exit")

	fs.Usage = func() { printUsage(os.Stderr) }

	if err := fs.Parse(args); err != nil {
		return nil, nil, err
	}
	return f, fs.Args(), nil
}

// applyPositional maps "[input] [output-base]" onto the flags. Explicit
// flags win over positional arguments.
func applyPositional(args []string, f *runFlags) error {
	if len(args) > 2 {
		return fmt.Errorf("%w: got %d, want at most input and output base", ErrTooManyArgs, len(args))
	}
	if len(args) > 0 && f.input.path == "" {
		f.input.path = args[0]
	}
	if len(args) > 1 && f.output.baseName == "" {
		f.output.baseName = args[1]
	}
	return nil
}

// mergeFlags copies explicitly set flags over the config (CLI wins).
func mergeFlags(f *runFlags, cfg *config.Config) {
	// Input
	if f.input.path != "" {
		cfg.Input.Path = f.input.path
	}
	if f.input.sheet != "" {
		cfg.Input.Sheet = f.input.sheet
	}
	if f.input.indexCol != "" {
		cfg.Input.Columns.Index = f.input.indexCol
	}
	if f.input.nameCol != "" {
		cfg.Input.Columns.Name = f.input.nameCol
	}
	if f.input.addressCol != "" {
		cfg.Input.Columns.Address = f.input.addressCol
	}

	// Output
	if f.output.dir != "" {
		cfg.Output.Dir = f.output.dir
	}
	if f.output.baseName != "" {
		cfg.Output.BaseName = f.output.baseName
	}
	if f.output.screenshotDir != "" {
		cfg.Output.ScreenshotDir = f.output.screenshotDir
	}
	if f.output.pageSize != 0 {
		cfg.Output.PageSize = f.output.pageSize
	}
	if f.output.pdf {
		cfg.Output.PDF = true
	}

	// Capture
	if f.capture.workers != 0 {
		cfg.Capture.Workers = f.capture.workers
	}
	if f.capture.retries != 0 {
		cfg.Capture.MaxRetries = f.capture.retries
	}
	if f.capture.timeout != 0 {
		cfg.Capture.PageLoadTimeout = f.capture.timeout
	}
	if f.capture.readyTimeout != 0 {
		cfg.Capture.ReadyTimeout = f.capture.readyTimeout
	}
	if f.capture.width != 0 {
		cfg.Capture.ViewportWidth = f.capture.width
	}
	if f.capture.height != 0 {
		cfg.Capture.ViewportHeight = f.capture.height
	}
	if f.capture.queueSize != 0 {
		cfg.Capture.QueueSize = f.capture.queueSize
	}
	if f.capture.rate != 0 {
		cfg.Capture.Rate = f.capture.rate
	}

	// Browser
	if f.browser.bin != "" {
		cfg.Browser.Bin = f.browser.bin
	}
	if f.browser.noSandbox {
		cfg.Browser.NoSandbox = true
	}

	// Logging and metrics
	if f.log.level != "" {
		cfg.Log.Level = f.log.level
	}
	if f.common.verbose {
		cfg.Log.Level = "debug"
	}
	if f.common.quiet {
		cfg.Log.Level = "error"
	}
	if f.log.file != "" {
		cfg.Log.File = f.log.file
	}
	if f.log.json {
		pretty := false
		cfg.Log.Pretty = &pretty
	}
	if f.metricsFile != "" {
		cfg.Metrics.File = f.metricsFile
	}
}
