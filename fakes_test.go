package sitesnap

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alnah/go-sitesnap/internal/document"
	"github.com/alnah/go-sitesnap/internal/fileutil"
)

// Compile-time interface checks.
var (
	_ Renderer  = (*fakeRenderer)(nil)
	_ PageStore = (*failingStore)(nil)
)

// errFakeUnreachable stands in for a DNS or connection failure.
var errFakeUnreachable = fmt.Errorf("%w: net::ERR_NAME_NOT_RESOLVED", ErrRendererFault)

// screenshotPNG is a tiny but valid PNG written by fakeRenderer.
var screenshotPNG = func() []byte {
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			img.Set(x, y, color.RGBA{R: 0x20, G: 0x80, B: 0xc0, A: 0xff})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		panic(err)
	}
	return buf.Bytes()
}()

// fakeRenderer scripts navigation outcomes per URL.
type fakeRenderer struct {
	// navigate returns the URL the page ends on, or an error. nil means
	// every navigation succeeds without redirect.
	navigate   func(url string) (string, error)
	readyErr   error
	captureErr error
	panicOn    string // URL that panics on navigate

	mu       sync.Mutex
	visits   []string
	current  string
	viewport [2]int
	captures int
	closes   int
}

func (f *fakeRenderer) Navigate(_ context.Context, url string, _ time.Duration) error {
	f.mu.Lock()
	f.visits = append(f.visits, url)
	f.mu.Unlock()

	if f.panicOn != "" && url == f.panicOn {
		panic("renderer exploded")
	}
	final := url
	if f.navigate != nil {
		var err error
		final, err = f.navigate(url)
		if err != nil {
			return err
		}
	}
	f.mu.Lock()
	f.current = final
	f.mu.Unlock()
	return nil
}

func (f *fakeRenderer) WaitReady(context.Context, time.Duration) error {
	return f.readyErr
}

func (f *fakeRenderer) CurrentURL() (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.current, nil
}

func (f *fakeRenderer) SetViewport(width, height int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.viewport = [2]int{width, height}
	return nil
}

func (f *fakeRenderer) CaptureTo(path string) error {
	if f.captureErr != nil {
		return f.captureErr
	}
	f.mu.Lock()
	f.captures++
	f.mu.Unlock()
	return fileutil.WriteFileAtomic(path, screenshotPNG)
}

func (f *fakeRenderer) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closes++
	return nil
}

func (f *fakeRenderer) Visits() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.visits...)
}

func (f *fakeRenderer) Closes() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closes
}

// fakeFactory hands out fakeRenderers built by newFn and remembers them.
type fakeFactory struct {
	newFn func(workerID int) *fakeRenderer
	err   error

	mu        sync.Mutex
	calls     int
	renderers []*fakeRenderer
}

func (f *fakeFactory) Factory() RendererFactory {
	return func(workerID int) (Renderer, error) {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.calls++
		if f.err != nil {
			return nil, f.err
		}
		var r *fakeRenderer
		if f.newFn != nil {
			r = f.newFn(workerID)
		} else {
			r = &fakeRenderer{}
		}
		f.renderers = append(f.renderers, r)
		return r, nil
	}
}

func (f *fakeFactory) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *fakeFactory) Renderers() []*fakeRenderer {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*fakeRenderer(nil), f.renderers...)
}

// failingStore loads nothing and fails every save after the first ok ones.
type failingStore struct {
	okSaves int

	mu    sync.Mutex
	saves int
}

func (s *failingStore) Load(string) (*document.Page, bool, error) {
	return nil, false, nil
}

func (s *failingStore) Save(*document.Page, string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saves++
	if s.saves > s.okSaves {
		return errors.New("disk full")
	}
	return nil
}

// syncBuffer is a goroutine-safe log sink.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// records builds n records named site-0..site-(n-1) with indexes from 1.
func records(n int) []Record {
	out := make([]Record, n)
	for i := range out {
		out[i] = Record{
			Index:   i + 1,
			Name:    fmt.Sprintf("site-%d", i),
			Address: fmt.Sprintf("site%d.example", i),
		}
	}
	return out
}

// decodeSize reads a PNG's dimensions.
func decodeSize(t *testing.T, data []byte) (int, int) {
	t.Helper()
	cfg, err := png.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decoding PNG: %v", err)
	}
	return cfg.Width, cfg.Height
}

// countLines counts log lines containing msg.
func countLines(logs, msg string) int {
	n := 0
	for _, line := range strings.Split(logs, "\n") {
		if strings.Contains(line, msg) {
			n++
		}
	}
	return n
}
