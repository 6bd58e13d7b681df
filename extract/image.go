package extract

import (
	"bytes"
	"context"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"strconv"

	"github.com/yhilem/distill/mimetype"
)

// ImageExtractor handles image-only media types. Images carry no text
// layer; the pipeline always routes them through OCR afterwards. The
// extractor records dimensions and hands the original bytes through so
// the OCR stage can consume them.
type ImageExtractor struct{}

func (e *ImageExtractor) Name() string { return "image" }

func (e *ImageExtractor) Supports(mime string) bool { return mimetype.IsImage(mime) }

func (e *ImageExtractor) Extract(ctx context.Context, content []byte, mime string, cfg *Config) (*Result, error) {
	result := &Result{
		MimeType: mime,
		Images: []Image{{
			Index:  0,
			Format: mime,
			Data:   content,
		}},
	}
	if imgCfg, _, err := image.DecodeConfig(bytes.NewReader(content)); err == nil {
		result.SetMeta("width", strconv.Itoa(imgCfg.Width))
		result.SetMeta("height", strconv.Itoa(imgCfg.Height))
	}
	return result, nil
}
