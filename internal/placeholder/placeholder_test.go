package placeholder

// Notes:
// - The rendered text cannot be OCR'd in a unit test. Tests check the
//   observable contract instead: a decodable PNG of the configured size, the
//   background at the corners, and foreground (text) pixels around the center.

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
)

func decode(t *testing.T, data []byte) image.Image {
	t.Helper()

	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decoding PNG: %v", err)
	}
	return img
}

func sameRGB(c color.Color, want color.RGBA) bool {
	r, g, b, _ := c.RGBA()
	return uint8(r>>8) == want.R && uint8(g>>8) == want.G && uint8(b>>8) == want.B
}

func countForeground(img image.Image, rect image.Rectangle) int {
	n := 0
	for y := rect.Min.Y; y < rect.Max.Y; y++ {
		for x := rect.Min.X; x < rect.Max.X; x++ {
			if sameRGB(img.At(x, y), Foreground) {
				n++
			}
		}
	}
	return n
}

func TestText(t *testing.T) {
	t.Parallel()

	if Text != "404 Not Found" {
		t.Errorf("Text = %q, want %q", Text, "404 Not Found")
	}
}

func TestNew_Defaults(t *testing.T) {
	t.Parallel()

	g := New(0, -1)
	if g.Width != DefaultWidth || g.Height != DefaultHeight {
		t.Errorf("New(0, -1) = %dx%d, want %dx%d", g.Width, g.Height, DefaultWidth, DefaultHeight)
	}
}

func TestRender(t *testing.T) {
	t.Parallel()

	data, err := New(800, 600).Render()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	img := decode(t, data)

	if got := img.Bounds(); got.Dx() != 800 || got.Dy() != 600 {
		t.Fatalf("bounds = %v, want 800x600", got)
	}

	for _, p := range []image.Point{{0, 0}, {799, 0}, {0, 599}, {799, 599}} {
		if !sameRGB(img.At(p.X, p.Y), Background) {
			t.Errorf("pixel %v = %v, want background", p, img.At(p.X, p.Y))
		}
	}

	center := image.Rect(200, 250, 600, 350)
	if n := countForeground(img, center); n == 0 {
		t.Error("no text pixels found around the center")
	}

	// Text is centered: both halves carry ink.
	left := countForeground(img, image.Rect(0, 0, 400, 600))
	right := countForeground(img, image.Rect(400, 0, 800, 600))
	if left == 0 || right == 0 {
		t.Errorf("text not centered horizontally: left=%d right=%d", left, right)
	}
}

func TestRender_SmallCanvas(t *testing.T) {
	t.Parallel()

	data, err := New(120, 40).Render()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	img := decode(t, data)
	if n := countForeground(img, img.Bounds()); n == 0 {
		t.Error("text should still be drawn on a small canvas")
	}
}

func TestGenerate(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "screenshots", "Broken Site.png")
	if err := New(800, 600).Generate(path); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading placeholder: %v", err)
	}
	decode(t, data)
}

func TestGenerate_UnwritablePath(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	if err := os.WriteFile(blocker, []byte("x"), 0o600); err != nil {
		t.Fatalf("setup: %v", err)
	}
	// A regular file used as a parent directory.
	if err := New(0, 0).Generate(filepath.Join(blocker, "x.png")); err == nil {
		t.Fatal("expected error writing under a regular file")
	}
}
