package sitesnap

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/alnah/go-sitesnap/internal/fileutil"
	"github.com/alnah/go-sitesnap/internal/placeholder"
)

const (
	schemeHTTPS = "https://"
	schemeHTTP  = "http://"
	artifactExt = ".png"
)

// Capturer turns one record into exactly one CaptureResult. Renderer faults
// are retried up to maxRetries attempts; anything else, or running out of
// attempts, yields the placeholder image.
type Capturer struct {
	maxRetries      int
	pageLoadTimeout time.Duration
	readyTimeout    time.Duration
	width, height   int
	placeholder     *placeholder.Generator
	logger          zerolog.Logger
}

func newCapturer(cfg pipelineConfig, logger zerolog.Logger) *Capturer {
	return &Capturer{
		maxRetries:      cfg.maxRetries,
		pageLoadTimeout: cfg.pageLoadTimeout,
		readyTimeout:    cfg.readyTimeout,
		width:           cfg.viewportWidth,
		height:          cfg.viewportHeight,
		placeholder:     placeholder.New(cfg.viewportWidth, cfg.viewportHeight),
		logger:          logger,
	}
}

// Capture runs the attempt loop for rec and writes the artifact to
// artifactPath. r may be nil when the worker's renderer failed to start;
// the record then falls back immediately.
//
// The only error that escapes is a failed placeholder write, reported via
// CaptureResult.Err wrapping ErrArtifactWrite.
func (c *Capturer) Capture(ctx context.Context, workerID int, rec Record, artifactPath string, r Renderer) (res CaptureResult) {
	start := time.Now()
	res = CaptureResult{Record: rec, ArtifactPath: artifactPath, WorkerID: workerID}
	log := c.logger.With().
		Int("worker", workerID).
		Int("index", rec.Index).
		Str("name", rec.Name).
		Logger()

	defer func() {
		if p := recover(); p != nil {
			res.Err = fmt.Errorf("panic during capture: %v", p)
			log.Error().Err(res.Err).Msg("capture panicked, using placeholder")
			c.fallback(&res, log)
		}
		res.Duration = time.Since(start)
	}()

	target := NormalizeAddress(rec.Address)
	res.FinalURL = target

	if r == nil {
		res.Err = fmt.Errorf("%w: no renderer for worker %d", ErrBrowserConnect, workerID)
		log.Error().Err(res.Err).Msg("renderer unavailable, using placeholder")
		c.fallback(&res, log)
		return res
	}

	for n := 0; n < c.maxRetries; n++ {
		res.Attempts = n + 1
		final, err := c.attempt(ctx, r, target, artifactPath, log.With().Int("attempt", n+1).Str("url", target).Logger())
		if err == nil {
			res.Outcome = OutcomeSuccess
			res.FinalURL = final
			res.Redirected = !sameAddress(final, target)
			res.Err = nil
			log.Info().Str("url", final).Int("attempts", res.Attempts).Msg("captured")
			return res
		}
		res.Err = err

		if !errors.Is(err, ErrRendererFault) {
			log.Error().Err(err).Str("url", target).Msg("capture failed, using placeholder")
			c.fallback(&res, log)
			return res
		}

		log.Warn().Err(err).Str("url", target).Int("attempt", n+1).Int("max_attempts", c.maxRetries).Msg("attempt failed")
		if n == c.maxRetries-1 {
			break
		}
		// Protocol fallback applies once, after the first attempt only.
		if n == 0 && hasSchemePrefix(target, schemeHTTPS) {
			target = schemeHTTP + target[len(schemeHTTPS):]
			res.FinalURL = target
			log.Info().Str("url", target).Msg("retrying over http")
		}
	}

	log.Error().Err(res.Err).Int("attempts", res.Attempts).Msg("retries exhausted, using placeholder")
	c.fallback(&res, log)
	return res
}

// attempt performs one navigate, wait, resize, and capture cycle. It
// returns the address the page ended on.
func (c *Capturer) attempt(ctx context.Context, r Renderer, target, artifactPath string, log zerolog.Logger) (string, error) {
	if err := r.Navigate(ctx, target, c.pageLoadTimeout); err != nil {
		return "", err
	}
	if err := r.WaitReady(ctx, c.readyTimeout); err != nil {
		if errors.Is(err, ErrRendererFault) {
			return "", err
		}
		log.Debug().Err(err).Msg("page not idle before readiness bound")
	}

	final := target
	current, err := r.CurrentURL()
	if err != nil {
		return "", err
	}
	if current != "" && !sameAddress(current, target) {
		log.Info().Str("from", target).Str("to", current).Msg("redirected")
		final = current
	}

	if err := r.SetViewport(c.width, c.height); err != nil {
		return "", err
	}
	if err := r.CaptureTo(artifactPath); err != nil {
		return "", err
	}
	return final, nil
}

// fallback writes the placeholder over whatever a failed attempt left behind.
func (c *Capturer) fallback(res *CaptureResult, log zerolog.Logger) {
	res.Outcome = OutcomeFallback
	if err := c.placeholder.Generate(res.ArtifactPath); err != nil {
		werr := fmt.Errorf("%w: placeholder %s: %v", ErrArtifactWrite, res.ArtifactPath, err)
		log.Error().Err(werr).Msg("writing placeholder")
		res.Err = errors.Join(werr, res.Err)
	}
}

// NormalizeAddress trims whitespace and prefixes https:// when the address
// carries no http or https scheme.
//
// Examples:
//   - "example.com" -> "https://example.com"
//   - "  HTTP://a.com " -> "HTTP://a.com"
func NormalizeAddress(addr string) string {
	addr = strings.TrimSpace(addr)
	if addr == "" || hasSchemePrefix(addr, schemeHTTP) || hasSchemePrefix(addr, schemeHTTPS) {
		return addr
	}
	return schemeHTTPS + addr
}

// sameAddress reports whether a and b name the same page. Scheme and host
// compare case-insensitively, and an empty path equals "/", so a browser
// reporting "https://example.com/" for "https://example.com" is no redirect.
func sameAddress(a, b string) bool {
	if a == b {
		return true
	}
	ua, errA := url.Parse(a)
	ub, errB := url.Parse(b)
	if errA != nil || errB != nil {
		return false
	}
	return strings.EqualFold(ua.Scheme, ub.Scheme) &&
		strings.EqualFold(ua.Host, ub.Host) &&
		rootPath(ua.EscapedPath()) == rootPath(ub.EscapedPath()) &&
		ua.RawQuery == ub.RawQuery &&
		ua.Fragment == ub.Fragment
}

func rootPath(p string) string {
	if p == "" {
		return "/"
	}
	return p
}

func hasSchemePrefix(s, scheme string) bool {
	return len(s) >= len(scheme) && strings.EqualFold(s[:len(scheme)], scheme)
}

// AssignArtifactPaths returns one PNG path per record, in input order, under
// dir. File names come from the sanitized display name. When names collide
// (case-insensitively, so the result is portable), every record after the
// first gets an "_<Index>" suffix.
func AssignArtifactPaths(records []Record, dir string) []string {
	paths := make([]string, len(records))
	taken := make(map[string]bool, len(records))

	for i, rec := range records {
		base := fileutil.SanitizeFilename(rec.Name)
		if base == "" {
			base = "record-" + strconv.Itoa(rec.Index)
		}

		name := base
		if taken[strings.ToLower(name)] {
			name = fmt.Sprintf("%s_%d", base, rec.Index)
			for n := 2; taken[strings.ToLower(name)]; n++ {
				name = fmt.Sprintf("%s_%d_%d", base, rec.Index, n)
			}
		}
		taken[strings.ToLower(name)] = true
		paths[i] = filepath.Join(dir, name+artifactExt)
	}
	return paths
}
