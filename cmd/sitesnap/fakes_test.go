package main

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"strings"
	"sync"
	"time"

	sitesnap "github.com/alnah/go-sitesnap"
	"github.com/alnah/go-sitesnap/internal/document"
	"github.com/alnah/go-sitesnap/internal/fileutil"
)

// errUnreachable is what the fake renderer reports for hosts containing "down".
var errUnreachable = errors.New("net::ERR_NAME_NOT_RESOLVED")

// stubRenderer succeeds for every address except those containing "down".
type stubRenderer struct {
	current string
}

func (s *stubRenderer) Navigate(_ context.Context, url string, _ time.Duration) error {
	if strings.Contains(url, "down") {
		return errUnreachable
	}
	s.current = url
	return nil
}

func (s *stubRenderer) WaitReady(context.Context, time.Duration) error { return nil }
func (s *stubRenderer) CurrentURL() (string, error)                  { return s.current, nil }
func (s *stubRenderer) SetViewport(int, int) error                   { return nil }
func (s *stubRenderer) Close() error                                 { return nil }

func (s *stubRenderer) CaptureTo(path string) error {
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewGray(image.Rect(0, 0, 2, 2))); err != nil {
		return err
	}
	return fileutil.WriteFileAtomic(path, buf.Bytes())
}

func stubFactory(int) (sitesnap.Renderer, error) {
	return &stubRenderer{}, nil
}

// stubExporter "exports" by naming the PDF it would have written.
type stubExporter struct {
	err    error
	closed bool
}

func (s *stubExporter) Export(_ context.Context, pages []string) ([]string, error) {
	if s.err != nil {
		return nil, s.err
	}
	out := make([]string, 0, len(pages))
	for _, p := range pages {
		out = append(out, document.SwapExt(p, document.PDFExt))
	}
	return out, nil
}

func (s *stubExporter) Close() error {
	s.closed = true
	return nil
}

// syncBuffer is a bytes.Buffer safe for the pipeline's concurrent logging.
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

// testEnv returns an environment with captured output and the stub renderer.
func testEnv() (*Environment, *syncBuffer, *syncBuffer) {
	stdout, stderr := &syncBuffer{}, &syncBuffer{}
	return &Environment{
		Stdout:    stdout,
		Stderr:    stderr,
		Renderers: stubFactory,
	}, stdout, stderr
}
