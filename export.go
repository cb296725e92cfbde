package sitesnap

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/rs/zerolog"

	"github.com/alnah/go-sitesnap/internal/document"
	"github.com/alnah/go-sitesnap/internal/fileutil"
	"github.com/alnah/go-sitesnap/internal/process"
)

// pagePrinter prints a local HTML file to PDF bytes. It lets export tests
// run without a browser.
type pagePrinter interface {
	PrintFile(ctx context.Context, htmlPath string) ([]byte, error)
	Close() error
}

// Compile-time interface check.
var _ pagePrinter = (*rodPrinter)(nil)

// PDF page dimensions in inches (US Letter format).
const (
	paperWidthInches  = 8.5
	paperHeightInches = 11
	marginInches      = 0.5
)

// defaultExportTimeout bounds loading one page document in the browser.
const defaultExportTimeout = 60 * time.Second

// PDFExporter renders page documents to PDF files next to them.
// Create with NewPDFExporter and Close when done.
type PDFExporter struct {
	html    *document.HTMLRenderer
	printer pagePrinter
	logger  zerolog.Logger
}

// NewPDFExporter creates an exporter backed by its own headless Chrome,
// started on the first export. css may be empty for the default style.
func NewPDFExporter(opts RodOptions, css string, logger zerolog.Logger) *PDFExporter {
	return &PDFExporter{
		html:    document.NewHTMLRenderer(css),
		printer: &rodPrinter{opts: opts, timeout: defaultExportTimeout},
		logger:  logger,
	}
}

// Export converts each Markdown page to "<same name>.pdf". Pages are
// independent: a failure is logged and the rest still export. Returns the
// PDFs written and the joined failures, each wrapping ErrPDFExport.
func (e *PDFExporter) Export(ctx context.Context, pages []string) ([]string, error) {
	var (
		written []string
		errs    []error
	)
	for _, page := range pages {
		if err := ctx.Err(); err != nil {
			errs = append(errs, fmt.Errorf("%w: %v", ErrPDFExport, err))
			break
		}
		out, err := e.exportOne(ctx, page)
		if err != nil {
			e.logger.Warn().Err(err).Str("page", page).Msg("PDF export failed")
			errs = append(errs, err)
			continue
		}
		e.logger.Info().Str("pdf", out).Msg("PDF exported")
		written = append(written, out)
	}
	return written, errors.Join(errs...)
}

func (e *PDFExporter) exportOne(ctx context.Context, mdPath string) (string, error) {
	content, err := os.ReadFile(mdPath) // #nosec G304 -- page path produced by the aggregator
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrPDFExport, mdPath, err)
	}

	title := strings.TrimSuffix(filepath.Base(mdPath), filepath.Ext(mdPath))
	doc, err := e.html.ToHTML(ctx, title, content, filepath.Dir(mdPath))
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrPDFExport, mdPath, err)
	}

	tmpPath, cleanup, err := fileutil.WriteTempFile(doc, "html")
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrPDFExport, mdPath, err)
	}
	defer cleanup()

	pdf, err := e.printer.PrintFile(ctx, tmpPath)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrPDFExport, mdPath, err)
	}

	out := document.SwapExt(mdPath, document.PDFExt)
	if err := fileutil.WriteFileAtomic(out, pdf); err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrPDFExport, out, err)
	}
	return out, nil
}

// Close releases the exporter's browser.
func (e *PDFExporter) Close() error {
	if e.printer != nil {
		return e.printer.Close()
	}
	return nil
}

// rodPrinter prints with a lazily launched headless Chrome.
type rodPrinter struct {
	opts     RodOptions
	timeout  time.Duration
	mu       sync.Mutex
	launcher *launcher.Launcher
	browser  *rod.Browser
}

// ensureBrowser lazily connects to the browser. Callers hold mu.
func (r *rodPrinter) ensureBrowser() error {
	if r.browser != nil {
		return nil
	}

	l := newLauncher(r.opts)
	u, err := l.Launch()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBrowserConnect, err)
	}

	browser := rod.New().ControlURL(u)
	if err := browser.Connect(); err != nil {
		process.KillProcessGroup(l.PID())
		l.Kill()
		return fmt.Errorf("%w: %v", ErrBrowserConnect, err)
	}
	r.launcher = l
	r.browser = browser
	return nil
}

// PrintFile opens a local HTML file and prints it to PDF.
func (r *rodPrinter) PrintFile(ctx context.Context, htmlPath string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.ensureBrowser(); err != nil {
		return nil, err
	}

	page, err := r.browser.Page(proto.TargetCreateTarget{URL: "file://" + filepath.ToSlash(htmlPath)})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPageCreate, err)
	}
	defer func() { _ = page.Close() }()

	timeout := r.timeout
	if deadline, ok := ctx.Deadline(); ok {
		timeout = time.Until(deadline)
		if timeout <= 0 {
			return nil, context.DeadlineExceeded
		}
	}

	if err := page.Timeout(timeout).WaitLoad(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPageLoad, err)
	}

	reader, err := page.PDF(&proto.PagePrintToPDF{
		PaperWidth:      floatPtr(paperWidthInches),
		PaperHeight:     floatPtr(paperHeightInches),
		MarginTop:       floatPtr(marginInches),
		MarginBottom:    floatPtr(marginInches),
		MarginLeft:      floatPtr(marginInches),
		MarginRight:     floatPtr(marginInches),
		PrintBackground: true,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPDFExport, err)
	}

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("%w: reading PDF stream: %v", ErrPDFExport, err)
	}
	return data, nil
}

// Close releases browser resources.
func (r *rodPrinter) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var err error
	if r.browser != nil {
		err = r.browser.Close()
		r.browser = nil
	}
	if r.launcher != nil {
		process.KillProcessGroup(r.launcher.PID())
		r.launcher.Kill()
		r.launcher = nil
	}
	return err
}

// floatPtr returns a pointer to a float64 value.
func floatPtr(v float64) *float64 {
	return &v
}
