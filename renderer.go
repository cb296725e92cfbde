package sitesnap

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	"github.com/alnah/go-sitesnap/internal/fileutil"
	"github.com/alnah/go-sitesnap/internal/process"
)

// Renderer is one browser session owned by a single worker.
//
// Navigation, load, and capture failures must wrap ErrRendererFault so the
// capture task can tell them from programming errors.
type Renderer interface {
	// Navigate loads url, bounded by timeout.
	Navigate(ctx context.Context, url string, timeout time.Duration) error
	// WaitReady waits for the page to go idle. Hitting the bound is not a fault.
	WaitReady(ctx context.Context, timeout time.Duration) error
	// CurrentURL reports where the page ended up, after redirects.
	CurrentURL() (string, error)
	SetViewport(width, height int) error
	// CaptureTo writes a PNG screenshot of the viewport to path.
	CaptureTo(path string) error
	Close() error
}

// RendererFactory creates the renderer for a worker slot.
type RendererFactory func(workerID int) (Renderer, error)

// Compile-time interface check.
var _ Renderer = (*rodRenderer)(nil)

// RodOptions configures go-rod renderers.
type RodOptions struct {
	// Bin is the Chrome binary. Empty uses ROD_BROWSER_BIN, then rod's
	// managed download.
	Bin string
	// NoSandbox disables Chrome's sandbox. Forced on when CI=true or a
	// browser binary comes from ROD_BROWSER_BIN (containerized runs).
	NoSandbox bool
}

// NewRodFactory returns a RendererFactory that launches one headless Chrome
// per worker.
func NewRodFactory(opts RodOptions) RendererFactory {
	return func(int) (Renderer, error) {
		return newRodRenderer(opts)
	}
}

// rodRenderer drives one Chrome process through go-rod. Rod downloads
// Chromium on first run if no binary is found.
type rodRenderer struct {
	launcher *launcher.Launcher
	browser  *rod.Browser
	page     *rod.Page
	closeMu  sync.Once
	closeErr error
}

// newLauncher applies the capture flags: headless, maximized window, no
// proxy, and certificate errors ignored.
func newLauncher(opts RodOptions) *launcher.Launcher {
	l := launcher.New().
		Headless(true).
		Set("start-maximized").
		Set("no-proxy-server").
		Set("ignore-certificate-errors")

	bin := opts.Bin
	if bin == "" {
		bin = os.Getenv("ROD_BROWSER_BIN")
	}
	if bin != "" {
		l = l.Bin(bin)
	}

	if opts.NoSandbox || os.Getenv("CI") == "true" || os.Getenv("ROD_BROWSER_BIN") != "" {
		l = l.NoSandbox(true)
	}
	return l
}

func newRodRenderer(opts RodOptions) (*rodRenderer, error) {
	l := newLauncher(opts)
	u, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBrowserConnect, err)
	}

	browser := rod.New().ControlURL(u)
	if err := browser.Connect(); err != nil {
		process.KillProcessGroup(l.PID())
		l.Kill()
		return nil, fmt.Errorf("%w: %v", ErrBrowserConnect, err)
	}
	return &rodRenderer{launcher: l, browser: browser}, nil
}

// ensurePage lazily opens the tab reused by every capture of this worker.
func (r *rodRenderer) ensurePage() (*rod.Page, error) {
	if r.page != nil {
		return r.page, nil
	}
	page, err := r.browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, fmt.Errorf("%w: %w: %v", ErrRendererFault, ErrPageCreate, err)
	}
	r.page = page
	return page, nil
}

// resetPage drops a tab that faulted so the next attempt starts clean.
func (r *rodRenderer) resetPage() {
	if r.page != nil {
		_ = r.page.Close()
		r.page = nil
	}
}

func (r *rodRenderer) Navigate(ctx context.Context, url string, timeout time.Duration) error {
	page, err := r.ensurePage()
	if err != nil {
		return err
	}

	p := page.Context(ctx).Timeout(timeout)
	if err := p.Navigate(url); err != nil {
		r.resetPage()
		return fmt.Errorf("%w: %w: %v", ErrRendererFault, ErrPageLoad, err)
	}
	if err := p.WaitLoad(); err != nil {
		r.resetPage()
		return fmt.Errorf("%w: %w: %v", ErrRendererFault, ErrPageLoad, err)
	}
	return nil
}

func (r *rodRenderer) WaitReady(ctx context.Context, timeout time.Duration) error {
	if r.page == nil {
		return fmt.Errorf("%w: no page loaded", ErrRendererFault)
	}
	if err := r.page.Context(ctx).WaitIdle(timeout); err != nil {
		return fmt.Errorf("waiting for idle: %w", err)
	}
	return nil
}

func (r *rodRenderer) CurrentURL() (string, error) {
	if r.page == nil {
		return "", fmt.Errorf("%w: no page loaded", ErrRendererFault)
	}
	info, err := r.page.Info()
	if err != nil {
		return "", fmt.Errorf("%w: reading page info: %v", ErrRendererFault, err)
	}
	return info.URL, nil
}

func (r *rodRenderer) SetViewport(width, height int) error {
	if r.page == nil {
		return fmt.Errorf("%w: no page loaded", ErrRendererFault)
	}
	err := r.page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             width,
		Height:            height,
		DeviceScaleFactor: 1,
	})
	if err != nil {
		return fmt.Errorf("%w: setting viewport: %v", ErrRendererFault, err)
	}
	return nil
}

func (r *rodRenderer) CaptureTo(path string) error {
	if r.page == nil {
		return fmt.Errorf("%w: no page loaded", ErrRendererFault)
	}
	data, err := r.page.Screenshot(false, &proto.PageCaptureScreenshot{
		Format: proto.PageCaptureScreenshotFormatPng,
	})
	if err != nil {
		r.resetPage()
		return fmt.Errorf("%w: %w: %v", ErrRendererFault, ErrScreenshot, err)
	}
	if err := fileutil.WriteFileAtomic(path, data); err != nil {
		return fmt.Errorf("%w: writing %s: %v", ErrScreenshot, path, err)
	}
	return nil
}

// Close shuts the browser down and kills the Chrome process tree. Safe to
// call more than once.
func (r *rodRenderer) Close() error {
	r.closeMu.Do(func() {
		r.resetPage()
		if r.browser != nil {
			r.closeErr = r.browser.Close()
		}
		if r.launcher != nil {
			process.KillProcessGroup(r.launcher.PID())
			r.launcher.Kill()
			r.launcher.Cleanup()
		}
	})
	return r.closeErr
}
