// Package placeholder renders the stand-in image used when a site cannot be
// captured.
package placeholder

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/alnah/go-sitesnap/internal/fileutil"
)

// Text is drawn on every placeholder.
const Text = "404 Not Found"

// Canvas defaults match the capture viewport so placeholders line up with
// real screenshots in page documents.
const (
	DefaultWidth  = 800
	DefaultHeight = 600
	textScale     = 5
)

var (
	Background = color.RGBA{R: 0xf0, G: 0xf0, B: 0xf0, A: 0xff}
	Foreground = color.RGBA{R: 0x33, G: 0x33, B: 0x33, A: 0xff}
)

// Generator writes placeholder PNGs of a fixed size.
type Generator struct {
	Width  int
	Height int
}

// New returns a Generator for a width x height canvas. Non-positive sizes
// fall back to the defaults.
func New(width, height int) *Generator {
	if width <= 0 {
		width = DefaultWidth
	}
	if height <= 0 {
		height = DefaultHeight
	}
	return &Generator{Width: width, Height: height}
}

// Generate writes the placeholder to path, replacing any partial capture.
func (g *Generator) Generate(path string) error {
	data, err := g.Render()
	if err != nil {
		return err
	}
	if err := fileutil.WriteFileAtomic(path, data); err != nil {
		return fmt.Errorf("writing placeholder: %w", err)
	}
	return nil
}

// Render returns the PNG bytes of the placeholder.
func (g *Generator) Render() ([]byte, error) {
	canvas := image.NewRGBA(image.Rect(0, 0, g.Width, g.Height))
	draw.Draw(canvas, canvas.Bounds(), image.NewUniform(Background), image.Point{}, draw.Src)

	glyphs := renderText(Text)

	// Scale the bitmap font up, shrinking the factor for small canvases.
	scale := textScale
	for scale > 1 && glyphs.Bounds().Dx()*scale > g.Width*9/10 {
		scale--
	}
	w := glyphs.Bounds().Dx() * scale
	h := glyphs.Bounds().Dy() * scale
	x := (g.Width - w) / 2
	y := (g.Height - h) / 2
	target := image.Rect(x, y, x+w, y+h)
	draw.NearestNeighbor.Scale(canvas, target, glyphs, glyphs.Bounds(), draw.Over, nil)

	var buf bytes.Buffer
	if err := png.Encode(&buf, canvas); err != nil {
		return nil, fmt.Errorf("encoding placeholder: %w", err)
	}
	return buf.Bytes(), nil
}

// renderText draws s with the built-in 7x13 face onto a transparent image
// cropped to the text box.
func renderText(s string) *image.RGBA {
	face := basicfont.Face7x13
	metrics := face.Metrics()
	width := font.MeasureString(face, s).Ceil()
	height := (metrics.Ascent + metrics.Descent).Ceil()

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(Foreground),
		Face: face,
		Dot:  fixed.Point26_6{X: 0, Y: metrics.Ascent},
	}
	d.DrawString(s)
	return img
}
