package ocr

import (
	"context"
	"fmt"
	"strings"

	"github.com/otiai10/gosseract/v2"
)

// TesseractBackend runs OCR through the tesseract C library via gosseract.
// Each call builds a fresh client; gosseract clients are not safe for
// concurrent use.
type TesseractBackend struct {
	clientFactory func() *gosseract.Client
}

// NewTesseract returns the tesseract-backed OCR backend.
func NewTesseract() *TesseractBackend {
	return &TesseractBackend{clientFactory: gosseract.NewClient}
}

func (b *TesseractBackend) Name() string { return "tesseract" }

func (b *TesseractBackend) ProcessImage(ctx context.Context, image []byte, opts Options) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	c := b.clientFactory()
	defer c.Close()

	if err := c.SetImageFromBytes(image); err != nil {
		return "", fmt.Errorf("setting image: %w", err)
	}
	if len(opts.Languages) > 0 {
		if err := c.SetLanguage(opts.Languages...); err != nil {
			return "", fmt.Errorf("setting languages: %w", err)
		}
	}
	if opts.DPI > 0 {
		if err := c.SetVariable(gosseract.SettableVariable("user_defined_dpi"), fmt.Sprint(opts.DPI)); err != nil {
			return "", fmt.Errorf("setting dpi: %w", err)
		}
	}
	if opts.PageSegMode > 0 {
		c.SetPageSegMode(gosseract.PageSegMode(opts.PageSegMode))
	}

	text, err := c.Text()
	if err != nil {
		return "", fmt.Errorf("recognizing text: %w", err)
	}
	return strings.TrimSpace(text), nil
}
