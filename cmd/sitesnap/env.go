package main

import (
	"context"
	"io"
	"os"

	sitesnap "github.com/alnah/go-sitesnap"
)

// Environment holds injectable dependencies for testability.
// Includes I/O and the browser-backed stages of a run.
type Environment struct {
	Stdout io.Writer
	Stderr io.Writer

	// Renderers overrides the renderer factory. Nil launches headless
	// Chrome through go-rod with the configured browser settings.
	Renderers sitesnap.RendererFactory

	// Exporter overrides PDF export. Nil uses sitesnap.PDFExporter.
	Exporter pageExporter
}

// pageExporter turns page documents into PDFs.
type pageExporter interface {
	Export(ctx context.Context, pages []string) ([]string, error)
	Close() error
}

// DefaultEnv returns the production environment.
func DefaultEnv() *Environment {
	return &Environment{
		Stdout: os.Stdout,
		Stderr: os.Stderr,
	}
}
