package extract

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"
)

// Config is the immutable extraction configuration tree. A nil pointer to
// a stage sub-config means that stage is skipped; presence enables it.
// Config values are never mutated after construction and may be shared
// freely across concurrent extractions.
//
// Every field participates in the cache-key fingerprint: any field can
// change extraction output, so partial fingerprinting is unsafe.
type Config struct {
	// UseCache enables the result cache for this extraction.
	UseCache bool `json:"use_cache" yaml:"use_cache"`

	// ForceOCR runs OCR even when the extractor produced text.
	ForceOCR bool `json:"force_ocr" yaml:"force_ocr"`

	// EnableQualityProcessing gates built-in text cleanup heuristics and
	// quality scoring, independent of the post-processor plugin stage.
	EnableQualityProcessing bool `json:"enable_quality_processing" yaml:"enable_quality_processing"`

	// MaxConcurrency bounds batch extraction workers. Zero means the
	// default of 8.
	MaxConcurrency int `json:"max_concurrency" yaml:"max_concurrency"`

	// ItemTimeout cancels a single item's extraction after this duration.
	// Zero means no per-item timeout. A timed-out item never affects its
	// batch siblings.
	ItemTimeout time.Duration `json:"item_timeout" yaml:"item_timeout"`

	OCR               *OCRConfig            `json:"ocr,omitempty" yaml:"ocr,omitempty"`
	Chunking          *ChunkingConfig       `json:"chunking,omitempty" yaml:"chunking,omitempty"`
	Images            *ImageConfig          `json:"images,omitempty" yaml:"images,omitempty"`
	LanguageDetection *LanguageConfig       `json:"language_detection,omitempty" yaml:"language_detection,omitempty"`
	Keywords          *KeywordConfig        `json:"keywords,omitempty" yaml:"keywords,omitempty"`
	Entities          *EntityConfig         `json:"entities,omitempty" yaml:"entities,omitempty"`
	TokenReduction    *TokenReductionConfig `json:"token_reduction,omitempty" yaml:"token_reduction,omitempty"`
	PostProcessing    *PostProcessingConfig `json:"post_processing,omitempty" yaml:"post_processing,omitempty"`
	PDF               *PDFConfig            `json:"pdf,omitempty" yaml:"pdf,omitempty"`
	HTML              *HTMLConfig           `json:"html,omitempty" yaml:"html,omitempty"`
	Spreadsheet       *SpreadsheetConfig    `json:"spreadsheet,omitempty" yaml:"spreadsheet,omitempty"`
}

// OCRConfig configures the OCR stage. Its presence enables OCR for
// documents whose extracted text falls below MinContentLength; image-only
// media types and ForceOCR run OCR regardless.
type OCRConfig struct {
	// Backend names the registered OCR backend. Empty selects the
	// pipeline default.
	Backend string `json:"backend,omitempty" yaml:"backend,omitempty"`

	// Languages are hints for the backend's trained data (e.g. "eng").
	Languages []string `json:"languages,omitempty" yaml:"languages,omitempty"`

	// DPI is forwarded to backends that use it for layout heuristics.
	DPI int `json:"dpi,omitempty" yaml:"dpi,omitempty"`

	// MinContentLength is the minimum-content heuristic: extracted text
	// shorter than this (in runes) triggers OCR. Zero means 50.
	MinContentLength int `json:"min_content_length,omitempty" yaml:"min_content_length,omitempty"`
}

// EffectiveMinContent returns the minimum-content threshold, defaulted.
func (c *OCRConfig) EffectiveMinContent() int {
	if c == nil || c.MinContentLength <= 0 {
		return 50
	}
	return c.MinContentLength
}

// ChunkingConfig splits content into overlapping character windows.
type ChunkingConfig struct {
	// MaxChars is the maximum characters per chunk. Zero means 1000.
	MaxChars int `json:"max_chars" yaml:"max_chars"`

	// MaxOverlap is the character overlap between consecutive chunks.
	// Zero means 200.
	MaxOverlap int `json:"max_overlap" yaml:"max_overlap"`

	// Embedding, when present, batch-encodes chunk contents and attaches
	// vectors to each chunk.
	Embedding *EmbeddingConfig `json:"embedding,omitempty" yaml:"embedding,omitempty"`
}

// EmbeddingConfig selects the external embedding model runtime.
type EmbeddingConfig struct {
	Provider  string `json:"provider" yaml:"provider"` // ollama, openai-compatible
	Model     string `json:"model" yaml:"model"`
	BaseURL   string `json:"base_url" yaml:"base_url"`
	APIKey    string `json:"api_key,omitempty" yaml:"api_key,omitempty"`
	BatchSize int    `json:"batch_size,omitempty" yaml:"batch_size,omitempty"` // zero means 32
}

// ImageConfig enables extraction of embedded images.
type ImageConfig struct {
	// MaxImages caps extracted images per document. Zero means no cap.
	MaxImages int `json:"max_images,omitempty" yaml:"max_images,omitempty"`
}

// LanguageConfig enables language detection on the final content.
type LanguageConfig struct {
	// MinConfidence drops detections below this confidence. Zero means 0.5.
	MinConfidence float64 `json:"min_confidence,omitempty" yaml:"min_confidence,omitempty"`

	// MaxLanguages caps reported languages. Zero means 3.
	MaxLanguages int `json:"max_languages,omitempty" yaml:"max_languages,omitempty"`
}

// KeywordConfig enables keyword extraction.
type KeywordConfig struct {
	// MaxKeywords caps reported keywords. Zero means 10.
	MaxKeywords int `json:"max_keywords,omitempty" yaml:"max_keywords,omitempty"`
}

// EntityConfig enables regex entity extraction.
type EntityConfig struct {
	// Types restricts extraction to the named entity types. Empty means all.
	Types []string `json:"types,omitempty" yaml:"types,omitempty"`
}

// TokenReductionConfig shrinks content for token-budgeted consumers.
type TokenReductionConfig struct {
	// Mode is "light" (collapse whitespace) or "aggressive" (additionally
	// drop stopwords). Empty means "light".
	Mode string `json:"mode,omitempty" yaml:"mode,omitempty"`
}

// PostProcessingConfig narrows which registered post-processors run.
// Nil runs every registered processor.
type PostProcessingConfig struct {
	// Enabled, when non-empty, runs only the named processors.
	Enabled []string `json:"enabled,omitempty" yaml:"enabled,omitempty"`

	// Disabled skips the named processors. Ignored when Enabled is set.
	Disabled []string `json:"disabled,omitempty" yaml:"disabled,omitempty"`
}

// Runs reports whether the named post-processor should run.
func (c *PostProcessingConfig) Runs(name string) bool {
	if c == nil {
		return true
	}
	if len(c.Enabled) > 0 {
		for _, n := range c.Enabled {
			if n == name {
				return true
			}
		}
		return false
	}
	for _, n := range c.Disabled {
		if n == name {
			return false
		}
	}
	return true
}

// PDFConfig holds PDF-specific options.
type PDFConfig struct {
	// Password decrypts protected documents.
	Password string `json:"password,omitempty" yaml:"password,omitempty"`
}

// HTMLConfig holds HTML-specific options.
type HTMLConfig struct {
	// KeepLinks preserves hyperlink targets in the markdown output.
	// With an HTML config present and KeepLinks false, links collapse
	// to their text. Without an HTML config, targets are preserved.
	KeepLinks bool `json:"keep_links,omitempty" yaml:"keep_links,omitempty"`
}

// SpreadsheetConfig holds spreadsheet-specific options.
type SpreadsheetConfig struct {
	// Sheets restricts extraction to the named sheets. Empty means all.
	Sheets []string `json:"sheets,omitempty" yaml:"sheets,omitempty"`
}

// Fingerprint returns a stable hex digest over the entire config tree.
// Struct fields marshal in declaration order, so equal configs produce
// equal fingerprints and any field change produces a new one.
func (c *Config) Fingerprint() string {
	if c == nil {
		c = &Config{}
	}
	data, err := json.Marshal(c)
	if err != nil {
		// Config is plain data; marshal cannot fail on it.
		data = []byte("unfingerprintable")
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
