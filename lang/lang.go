// Package lang detects the natural languages of extracted text.
package lang

import (
	"strings"
	"sync"

	"github.com/pemistahl/lingua-go"

	"github.com/yhilem/distill/extract"
)

// Config controls language detection.
type Config struct {
	// MinConfidence filters out languages below this score (0..1).
	// Zero means the default of 0.5.
	MinConfidence float64 `json:"min_confidence,omitempty" yaml:"min_confidence,omitempty"`
	// MaxLanguages caps how many languages are reported. Zero means 3.
	MaxLanguages int `json:"max_languages,omitempty" yaml:"max_languages,omitempty"`
}

// Detector wraps a lingua detector. Building the underlying models is
// expensive; build once and reuse.
type Detector struct {
	detector lingua.LanguageDetector
	cfg      Config
}

var (
	defaultOnce     sync.Once
	defaultDetector lingua.LanguageDetector
)

// NewDetector returns a detector over all lingua-supported languages.
// The underlying model set is shared process-wide.
func NewDetector(cfg Config) *Detector {
	if cfg.MinConfidence <= 0 {
		cfg.MinConfidence = 0.5
	}
	if cfg.MaxLanguages <= 0 {
		cfg.MaxLanguages = 3
	}
	defaultOnce.Do(func() {
		defaultDetector = lingua.NewLanguageDetectorBuilder().
			FromAllLanguages().
			WithPreloadedLanguageModels().
			Build()
	})
	return &Detector{detector: defaultDetector, cfg: cfg}
}

// Detect returns the languages of text ordered by confidence, filtered
// by MinConfidence and capped at MaxLanguages. Codes are lowercase
// ISO 639-1.
func (d *Detector) Detect(text string) []extract.DetectedLanguage {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	values := d.detector.ComputeLanguageConfidenceValues(text)
	var out []extract.DetectedLanguage
	for _, v := range values {
		if v.Value() < d.cfg.MinConfidence {
			continue
		}
		out = append(out, extract.DetectedLanguage{
			Language:   strings.ToLower(v.Language().IsoCode639_1().String()),
			Confidence: v.Value(),
		})
		if len(out) >= d.cfg.MaxLanguages {
			break
		}
	}
	return out
}
