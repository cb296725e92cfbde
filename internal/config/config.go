// Package config loads and validates YAML configuration for capture runs.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	sitesnap "github.com/alnah/go-sitesnap"
	"github.com/alnah/go-sitesnap/internal/fileutil"
	"github.com/alnah/go-sitesnap/internal/yamlutil"
)

// Sentinel errors for config operations.
var (
	ErrConfigNotFound  = errors.New("config file not found")
	ErrEmptyConfigName = errors.New("config name cannot be empty")
	ErrConfigParse     = errors.New("failed to parse config")
	ErrFieldTooLong    = errors.New("field exceeds maximum length")
	ErrInvalidValue    = errors.New("invalid config value")
)

// appDir is the directory under os.UserConfigDir searched for named configs.
const appDir = "go-sitesnap"

// Field length limits.
const (
	MaxPathLength   = 4096
	MaxHeaderLength = 100 // column header names
	MaxSheetLength  = 31  // Excel's own sheet name limit
	MaxBaseLength   = 200 // output base name
)

// Bounds for numeric settings.
const (
	MaxWorkers       = 64
	MaxRetriesLimit  = 10
	MaxPageSize      = 10000
	MinViewportSide  = 100
	MaxViewportSide  = 8192
	MaxTimeoutLength = 10 * time.Minute
)

// Defaults. Pipeline settings mirror the library so the two cannot drift.
const (
	DefaultWorkers         = sitesnap.DefaultWorkers
	DefaultMaxRetries      = sitesnap.DefaultMaxRetries
	DefaultPageSize        = sitesnap.DefaultPageSize
	DefaultPageLoadTimeout = sitesnap.DefaultPageLoadTimeout
	DefaultReadyTimeout    = sitesnap.DefaultReadyTimeout
	DefaultViewportWidth   = sitesnap.DefaultViewportWidth
	DefaultViewportHeight  = sitesnap.DefaultViewportHeight
	DefaultBaseName        = sitesnap.DefaultBaseName
	DefaultScreenshotDir   = sitesnap.DefaultScreenshotDir
	DefaultInputPath       = "list.xlsx"
)

// Config holds all configuration for a capture run.
type Config struct {
	Input   InputConfig   `yaml:"input"`
	Output  OutputConfig  `yaml:"output"`
	Capture CaptureConfig `yaml:"capture"`
	Browser BrowserConfig `yaml:"browser"`
	Log     LogConfig     `yaml:"log"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// InputConfig locates the worklist and its columns.
type InputConfig struct {
	Path    string        `yaml:"path"`  // .xlsx or .csv
	Sheet   string        `yaml:"sheet"` // xlsx only (default: sheet1, falls back to the first sheet)
	Columns ColumnsConfig `yaml:"columns"`
}

// ColumnsConfig names the header cells of the required columns.
type ColumnsConfig struct {
	Index   string `yaml:"index"`
	Name    string `yaml:"name"`
	Address string `yaml:"address"`
}

// OutputConfig defines where artifacts and page documents go.
type OutputConfig struct {
	Dir           string `yaml:"dir"`           // page documents (default: current directory)
	BaseName      string `yaml:"baseName"`      // page file prefix: <baseName>(<start>-<end>).md
	ScreenshotDir string `yaml:"screenshotDir"` // relative paths resolve against Dir
	PageSize      int    `yaml:"pageSize"`
	PDF           bool   `yaml:"pdf"` // also export each touched page to PDF
}

// CaptureConfig tunes the worker pool and per-record policy.
type CaptureConfig struct {
	Workers         int           `yaml:"workers"`
	MaxRetries      int           `yaml:"maxRetries"`
	PageLoadTimeout time.Duration `yaml:"pageLoadTimeout"`
	ReadyTimeout    time.Duration `yaml:"readyTimeout"`
	ViewportWidth   int           `yaml:"viewportWidth"`
	ViewportHeight  int           `yaml:"viewportHeight"`
	QueueSize       int           `yaml:"queueSize"` // 0 = one slot per record
	Rate            float64       `yaml:"rate"`      // records per second, 0 = unlimited
}

// BrowserConfig overrides launcher settings. Environment variables
// ROD_BROWSER_BIN and CI are still honored when these are empty.
type BrowserConfig struct {
	Bin       string `yaml:"bin"`
	NoSandbox bool   `yaml:"noSandbox"`
}

// LogConfig mirrors logging.Config in YAML form.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	File   string `yaml:"file"`   // empty = console only
	Pretty *bool  `yaml:"pretty"` // nil = default (true)
}

// MetricsConfig enables the Prometheus textfile written after a run.
type MetricsConfig struct {
	File string `yaml:"file"` // empty = disabled
}

// Validate checks lengths and numeric bounds. Zero numeric values mean
// "use the default" and are accepted.
// Called automatically by LoadConfig.
func (c *Config) Validate() error {
	checks := []struct {
		name  string
		value string
		max   int
	}{
		{"input.path", c.Input.Path, MaxPathLength},
		{"input.sheet", c.Input.Sheet, MaxSheetLength},
		{"input.columns.index", c.Input.Columns.Index, MaxHeaderLength},
		{"input.columns.name", c.Input.Columns.Name, MaxHeaderLength},
		{"input.columns.address", c.Input.Columns.Address, MaxHeaderLength},
		{"output.dir", c.Output.Dir, MaxPathLength},
		{"output.baseName", c.Output.BaseName, MaxBaseLength},
		{"output.screenshotDir", c.Output.ScreenshotDir, MaxPathLength},
		{"browser.bin", c.Browser.Bin, MaxPathLength},
		{"log.file", c.Log.File, MaxPathLength},
		{"metrics.file", c.Metrics.File, MaxPathLength},
	}
	for _, ch := range checks {
		if err := validateFieldLength(ch.name, ch.value, ch.max); err != nil {
			return err
		}
	}

	if strings.ContainsAny(c.Output.BaseName, "/\\") {
		return fmt.Errorf("%w: output.baseName must not contain path separators: %q", ErrInvalidValue, c.Output.BaseName)
	}

	if err := validateRange("capture.workers", c.Capture.Workers, 0, MaxWorkers); err != nil {
		return err
	}
	if err := validateRange("capture.maxRetries", c.Capture.MaxRetries, 0, MaxRetriesLimit); err != nil {
		return err
	}
	if err := validateRange("output.pageSize", c.Output.PageSize, 0, MaxPageSize); err != nil {
		return err
	}
	if c.Capture.QueueSize < 0 {
		return fmt.Errorf("%w: capture.queueSize must not be negative, got %d", ErrInvalidValue, c.Capture.QueueSize)
	}
	if c.Capture.Rate < 0 {
		return fmt.Errorf("%w: capture.rate must not be negative, got %g", ErrInvalidValue, c.Capture.Rate)
	}
	for _, v := range []struct {
		name  string
		value int
	}{
		{"capture.viewportWidth", c.Capture.ViewportWidth},
		{"capture.viewportHeight", c.Capture.ViewportHeight},
	} {
		if v.value != 0 {
			if err := validateRange(v.name, v.value, MinViewportSide, MaxViewportSide); err != nil {
				return err
			}
		}
	}
	for _, d := range []struct {
		name  string
		value time.Duration
	}{
		{"capture.pageLoadTimeout", c.Capture.PageLoadTimeout},
		{"capture.readyTimeout", c.Capture.ReadyTimeout},
	} {
		if d.value < 0 || d.value > MaxTimeoutLength {
			return fmt.Errorf("%w: %s must be between 0 and %s, got %s", ErrInvalidValue, d.name, MaxTimeoutLength, d.value)
		}
	}

	if c.Log.Level != "" {
		switch strings.ToLower(c.Log.Level) {
		case "debug", "info", "warn", "warning", "error":
			// valid
		default:
			return fmt.Errorf("%w: log.level %q (must be debug, info, warn, or error)", ErrInvalidValue, c.Log.Level)
		}
	}

	return nil
}

// validateFieldLength checks if a field exceeds its maximum allowed length.
func validateFieldLength(fieldName, value string, maxLength int) error {
	if len(value) > maxLength {
		return fmt.Errorf("%w: %s (%d chars, max %d)", ErrFieldTooLong, fieldName, len(value), maxLength)
	}
	return nil
}

func validateRange(fieldName string, value, lo, hi int) error {
	if value < lo || value > hi {
		return fmt.Errorf("%w: %s must be between %d and %d, got %d", ErrInvalidValue, fieldName, lo, hi, value)
	}
	return nil
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() *Config {
	return &Config{
		Input: InputConfig{Path: DefaultInputPath},
		Output: OutputConfig{
			BaseName:      DefaultBaseName,
			ScreenshotDir: DefaultScreenshotDir,
			PageSize:      DefaultPageSize,
		},
		Capture: CaptureConfig{
			Workers:         DefaultWorkers,
			MaxRetries:      DefaultMaxRetries,
			PageLoadTimeout: DefaultPageLoadTimeout,
			ReadyTimeout:    DefaultReadyTimeout,
			ViewportWidth:   DefaultViewportWidth,
			ViewportHeight:  DefaultViewportHeight,
		},
		Log: LogConfig{Level: "info"},
	}
}

// ApplyDefaults fills zero values from DefaultConfig. Explicit values are kept.
func (c *Config) ApplyDefaults() {
	d := DefaultConfig()
	if c.Input.Path == "" {
		c.Input.Path = d.Input.Path
	}
	if c.Output.BaseName == "" {
		c.Output.BaseName = d.Output.BaseName
	}
	if c.Output.ScreenshotDir == "" {
		c.Output.ScreenshotDir = d.Output.ScreenshotDir
	}
	if c.Output.PageSize == 0 {
		c.Output.PageSize = d.Output.PageSize
	}
	if c.Capture.Workers == 0 {
		c.Capture.Workers = d.Capture.Workers
	}
	if c.Capture.MaxRetries == 0 {
		c.Capture.MaxRetries = d.Capture.MaxRetries
	}
	if c.Capture.PageLoadTimeout == 0 {
		c.Capture.PageLoadTimeout = d.Capture.PageLoadTimeout
	}
	if c.Capture.ReadyTimeout == 0 {
		c.Capture.ReadyTimeout = d.Capture.ReadyTimeout
	}
	if c.Capture.ViewportWidth == 0 {
		c.Capture.ViewportWidth = d.Capture.ViewportWidth
	}
	if c.Capture.ViewportHeight == 0 {
		c.Capture.ViewportHeight = d.Capture.ViewportHeight
	}
	if c.Log.Level == "" {
		c.Log.Level = d.Log.Level
	}
}

// ScreenshotDir resolves the screenshot directory against the output directory.
func (c *Config) ScreenshotDir() string {
	if filepath.IsAbs(c.Output.ScreenshotDir) || c.Output.Dir == "" {
		return c.Output.ScreenshotDir
	}
	return filepath.Join(c.Output.Dir, c.Output.ScreenshotDir)
}

// PageBase is the output directory joined with the page base name.
func (c *Config) PageBase() string {
	if c.Output.Dir == "" {
		return c.Output.BaseName
	}
	return filepath.Join(c.Output.Dir, c.Output.BaseName)
}

// LoadConfig loads configuration from a file path or config name.
// If nameOrPath contains a path separator, it's treated as a file path.
// Otherwise, it's treated as a config name and searched in standard locations.
// Missing values are filled by ApplyDefaults.
func LoadConfig(nameOrPath string) (*Config, error) {
	if nameOrPath == "" {
		return nil, ErrEmptyConfigName
	}

	var configPath string
	var err error

	if fileutil.IsFilePath(nameOrPath) {
		configPath = nameOrPath
	} else {
		configPath, err = resolveConfigPath(nameOrPath)
		if err != nil {
			return nil, err
		}
	}

	data, err := os.ReadFile(configPath) // #nosec G304 -- config path is user-provided
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, configPath)
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var cfg Config
	if err := yamlutil.UnmarshalStrict(data, &cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfigParse, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.ApplyDefaults()

	return &cfg, nil
}

// resolveConfigPath searches for a config file by name in standard locations.
// Tries extensions in order: .yaml, .yml
// Tries locations in order: current directory, ~/.config/go-sitesnap/
func resolveConfigPath(name string) (string, error) {
	extensions := []string{".yaml", ".yml"}
	triedPaths := make([]string, 0, len(extensions)*2)

	for _, ext := range extensions {
		localPath := name + ext
		if fileutil.FileExists(localPath) {
			return localPath, nil
		}
		triedPaths = append(triedPaths, localPath)
	}

	userConfigDir, err := os.UserConfigDir()
	if err == nil {
		for _, ext := range extensions {
			userPath := filepath.Join(userConfigDir, appDir, name+ext)
			if fileutil.FileExists(userPath) {
				return userPath, nil
			}
			triedPaths = append(triedPaths, userPath)
		}
	}

	return "", fmt.Errorf("%w: tried %s", ErrConfigNotFound, strings.Join(triedPaths, ", "))
}
