// Package ocr defines the optical character recognition backend interface
// and the Tesseract implementation used for scanned and image-only
// documents.
package ocr

import (
	"context"
	"errors"
)

// ErrNoBackend is returned when OCR is requested but no backend is
// configured or registered.
var ErrNoBackend = errors.New("ocr: no backend available")

// Options controls a single recognition run.
type Options struct {
	// Languages are tesseract language codes ("eng", "deu"). Empty means
	// the backend default.
	Languages []string `json:"languages,omitempty" yaml:"languages,omitempty"`
	// DPI hints the source resolution for images without density metadata.
	DPI int `json:"dpi,omitempty" yaml:"dpi,omitempty"`
	// PageSegMode maps to tesseract's --psm when the backend supports it.
	PageSegMode int `json:"page_seg_mode,omitempty" yaml:"page_seg_mode,omitempty"`
}

// Backend recognizes text in a raster image.
type Backend interface {
	Name() string
	ProcessImage(ctx context.Context, image []byte, opts Options) (string, error)
}
