package main

// Notes:
// - parseFlags: we test short and long forms, durations, and the optional
//   value of --log-file. Usage output on --help goes to os.Stderr and is
//   not captured.
// - mergeFlags: only explicitly set flags override the config; zero values
//   leave config values in place.

import (
	"errors"
	"testing"
	"time"

	flag "github.com/spf13/pflag"

	"github.com/alnah/go-sitesnap/internal/config"
	"github.com/alnah/go-sitesnap/internal/logging"
)

// ---------------------------------------------------------------------------
// TestParseFlags - Flag parsing
// ---------------------------------------------------------------------------

func TestParseFlags(t *testing.T) {
	t.Parallel()

	t.Run("skips program name", func(t *testing.T) {
		t.Parallel()

		f, args, err := parseFlags([]string{"sitesnap", "-w", "3", "list.csv", "out"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if f.capture.workers != 3 {
			t.Errorf("workers = %d, want 3", f.capture.workers)
		}
		if len(args) != 2 || args[0] != "list.csv" || args[1] != "out" {
			t.Errorf("positional = %v, want [list.csv out]", args)
		}
	})

	t.Run("capture flags", func(t *testing.T) {
		t.Parallel()

		f, _, err := parseRunFlags([]string{
			"--retries", "5", "--timeout", "45s", "--ready-timeout", "2s",
			"--width", "1280", "--height", "720", "--rate", "2.5", "--queue-size", "10",
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		c := f.capture
		if c.retries != 5 || c.timeout != 45*time.Second || c.readyTimeout != 2*time.Second {
			t.Errorf("retries/timeouts = %d/%s/%s", c.retries, c.timeout, c.readyTimeout)
		}
		if c.width != 1280 || c.height != 720 {
			t.Errorf("viewport = %dx%d, want 1280x720", c.width, c.height)
		}
		if c.rate != 2.5 || c.queueSize != 10 {
			t.Errorf("rate/queue = %g/%d, want 2.5/10", c.rate, c.queueSize)
		}
	})

	t.Run("log-file without value uses default", func(t *testing.T) {
		t.Parallel()

		f, _, err := parseRunFlags([]string{"--log-file"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if f.log.file != logging.DefaultLogFile {
			t.Errorf("log file = %q, want %q", f.log.file, logging.DefaultLogFile)
		}
	})

	t.Run("log-file with value", func(t *testing.T) {
		t.Parallel()

		f, _, err := parseRunFlags([]string{"--log-file=run.log"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if f.log.file != "run.log" {
			t.Errorf("log file = %q, want run.log", f.log.file)
		}
	})

	t.Run("invalid duration", func(t *testing.T) {
		t.Parallel()

		if _, _, err := parseRunFlags([]string{"--timeout", "soon"}); err == nil {
			t.Fatal("expected error for invalid duration")
		}
	})

	t.Run("unknown flag", func(t *testing.T) {
		t.Parallel()

		if _, _, err := parseRunFlags([]string{"--threads", "4"}); err == nil {
			t.Fatal("expected error for unknown flag")
		}
	})

	t.Run("help", func(t *testing.T) {
		t.Parallel()

		_, _, err := parseRunFlags([]string{"--help"})
		if !errors.Is(err, flag.ErrHelp) {
			t.Errorf("error = %v, want flag.ErrHelp", err)
		}
	})
}

// ---------------------------------------------------------------------------
// TestApplyPositional - Input and output base from arguments
// ---------------------------------------------------------------------------

func TestApplyPositional(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		args      []string
		preset    runFlags
		wantInput string
		wantBase  string
		wantErr   error
	}{
		{name: "none", args: nil},
		{name: "input only", args: []string{"sites.xlsx"}, wantInput: "sites.xlsx"},
		{name: "input and base", args: []string{"sites.csv", "shots"}, wantInput: "sites.csv", wantBase: "shots"},
		{
			name:      "flags win",
			args:      []string{"sites.csv", "shots"},
			preset:    runFlags{input: inputFlags{path: "flag.xlsx"}, output: outputFlags{baseName: "flagbase"}},
			wantInput: "flag.xlsx",
			wantBase:  "flagbase",
		},
		{name: "too many", args: []string{"a", "b", "c"}, wantErr: ErrTooManyArgs},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			f := tt.preset
			err := applyPositional(tt.args, &f)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if f.input.path != tt.wantInput {
				t.Errorf("input = %q, want %q", f.input.path, tt.wantInput)
			}
			if f.output.baseName != tt.wantBase {
				t.Errorf("base = %q, want %q", f.output.baseName, tt.wantBase)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// TestMergeFlags - CLI overrides config
// ---------------------------------------------------------------------------

func TestMergeFlags(t *testing.T) {
	t.Parallel()

	t.Run("zero flags keep config", func(t *testing.T) {
		t.Parallel()

		cfg := config.DefaultConfig()
		cfg.Capture.Workers = 7
		cfg.Input.Sheet = "Sites"
		mergeFlags(&runFlags{}, cfg)

		if cfg.Capture.Workers != 7 {
			t.Errorf("workers = %d, want 7", cfg.Capture.Workers)
		}
		if cfg.Input.Sheet != "Sites" {
			t.Errorf("sheet = %q, want Sites", cfg.Input.Sheet)
		}
		if cfg.Log.Pretty != nil {
			t.Error("pretty should stay unset")
		}
	})

	t.Run("set flags override", func(t *testing.T) {
		t.Parallel()

		cfg := config.DefaultConfig()
		f := &runFlags{
			input:       inputFlags{path: "in.csv", nameCol: "Site"},
			output:      outputFlags{dir: "out", pageSize: 25, pdf: true},
			capture:     captureFlags{workers: 2, retries: 1, timeout: time.Second},
			browser:     browserFlags{bin: "/usr/bin/chromium", noSandbox: true},
			log:         logFlags{level: "warn", json: true},
			metricsFile: "sitesnap.prom",
		}
		mergeFlags(f, cfg)

		if cfg.Input.Path != "in.csv" || cfg.Input.Columns.Name != "Site" {
			t.Errorf("input = %+v", cfg.Input)
		}
		if cfg.Output.Dir != "out" || cfg.Output.PageSize != 25 || !cfg.Output.PDF {
			t.Errorf("output = %+v", cfg.Output)
		}
		if cfg.Capture.Workers != 2 || cfg.Capture.MaxRetries != 1 || cfg.Capture.PageLoadTimeout != time.Second {
			t.Errorf("capture = %+v", cfg.Capture)
		}
		if cfg.Browser.Bin != "/usr/bin/chromium" || !cfg.Browser.NoSandbox {
			t.Errorf("browser = %+v", cfg.Browser)
		}
		if cfg.Log.Level != "warn" {
			t.Errorf("log level = %q, want warn", cfg.Log.Level)
		}
		if cfg.Log.Pretty == nil || *cfg.Log.Pretty {
			t.Error("--log-json should disable pretty output")
		}
		if cfg.Metrics.File != "sitesnap.prom" {
			t.Errorf("metrics file = %q", cfg.Metrics.File)
		}
	})

	t.Run("verbose and quiet set level", func(t *testing.T) {
		t.Parallel()

		cfg := config.DefaultConfig()
		mergeFlags(&runFlags{common: commonFlags{verbose: true}}, cfg)
		if cfg.Log.Level != "debug" {
			t.Errorf("verbose level = %q, want debug", cfg.Log.Level)
		}

		cfg = config.DefaultConfig()
		mergeFlags(&runFlags{common: commonFlags{quiet: true}, log: logFlags{level: "info"}}, cfg)
		if cfg.Log.Level != "error" {
			t.Errorf("quiet level = %q, want error", cfg.Log.Level)
		}
	})
}
