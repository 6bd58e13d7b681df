// Package distill turns documents of any common format into clean text,
// tables, metadata and chunks ready for search and RAG ingestion.
//
// A Pipeline resolves the document's media type, dispatches to the best
// extractor, optionally runs OCR on image-only content, cleans and
// chunks the text, enriches it with languages, keywords and entities,
// and runs registered post-processors and validators. Results are
// cached by content and configuration.
package distill

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/yhilem/distill/cache"
	"github.com/yhilem/distill/chunker"
	"github.com/yhilem/distill/embed"
	"github.com/yhilem/distill/extract"
	"github.com/yhilem/distill/keywords"
	"github.com/yhilem/distill/lang"
	"github.com/yhilem/distill/mimetype"
	"github.com/yhilem/distill/ocr"
	"github.com/yhilem/distill/quality"
)

// Result is the output of one extraction. See the extract package for
// field documentation.
type Result = extract.Result

// Pipeline orchestrates extraction end to end. It is safe for
// concurrent use; construct once and share.
type Pipeline struct {
	registries *RegistryService
	dispatcher *extract.Dispatcher
	cache      cache.Cache
	embedder   embed.Provider
	logger     *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithRegistry installs a shared registry service. Without it the
// pipeline gets its own empty one.
func WithRegistry(r *RegistryService) Option {
	return func(p *Pipeline) { p.registries = r }
}

// WithCache installs the result cache. Without it an in-memory cache is
// used.
func WithCache(c cache.Cache) Option {
	return func(p *Pipeline) { p.cache = c }
}

// WithLogger installs a structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(p *Pipeline) { p.logger = l }
}

// WithEmbedder installs the embedding provider used when chunking has
// an embedding config without connection details of its own.
func WithEmbedder(e embed.Provider) Option {
	return func(p *Pipeline) { p.embedder = e }
}

// New builds a Pipeline. The tesseract OCR backend is registered when
// no other backend is present.
func New(opts ...Option) *Pipeline {
	p := &Pipeline{}
	for _, opt := range opts {
		opt(p)
	}
	if p.registries == nil {
		p.registries = NewRegistryService()
	}
	if p.cache == nil {
		p.cache = cache.NewMemory()
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	if len(p.registries.ListOCRBackends()) == 0 {
		p.registries.RegisterOCRBackend(0, ocr.NewTesseract())
	}
	p.dispatcher = extract.NewDispatcher(p.registries.extractors, p.logger)
	return p
}

// Registries exposes the pipeline's plugin registries.
func (p *Pipeline) Registries() *RegistryService { return p.registries }

// Cache exposes the pipeline's result cache.
func (p *Pipeline) Cache() cache.Cache { return p.cache }

// ExtractFile extracts a document from disk. The media type is resolved
// from content with the file extension as a tiebreaker.
func (p *Pipeline) ExtractFile(ctx context.Context, path string, cfg *Config) (*Result, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	mime, err := mimetype.DetectFromPath(path)
	if err != nil {
		mime = mimetype.Detect(content)
	}
	return p.extract(ctx, content, mime, cfg)
}

// ExtractBytes extracts a document from memory. mimeHint may be a media
// type or empty; empty sniffs the content.
func (p *Pipeline) ExtractBytes(ctx context.Context, content []byte, mimeHint string, cfg *Config) (*Result, error) {
	mime := mimeHint
	if mime == "" {
		mime = mimetype.Detect(content)
	}
	return p.extract(ctx, content, mime, cfg)
}

func (p *Pipeline) extract(ctx context.Context, content []byte, mime string, cfg *Config) (*Result, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	if !cfg.UseCache {
		return p.run(ctx, content, mime, cfg)
	}
	return p.cache.GetOrCompute(ctx, cache.Key(content, cfg), func(ctx context.Context) (*Result, error) {
		return p.run(ctx, content, mime, cfg)
	})
}

// run executes the extraction stages in their fixed order.
func (p *Pipeline) run(ctx context.Context, content []byte, mime string, cfg *Config) (*Result, error) {
	logger := p.logger.With("mime", mime, "size", len(content))

	if extract.IsLegacyOffice(mime) {
		converted, newMime, err := extract.ConvertLegacyOffice(ctx, content, mime)
		if err != nil {
			return nil, err
		}
		logger.Debug("converted legacy office document", "to", newMime)
		content, mime = converted, newMime
	}

	result, err := p.dispatcher.Extract(ctx, content, mime, cfg)
	if err != nil {
		return nil, err
	}

	if p.shouldOCR(result, content, mime, cfg) {
		if err := p.runOCR(ctx, result, content, mime, cfg); err != nil {
			return nil, err
		}
	}

	if cfg.EnableQualityProcessing {
		result.Content = quality.Clean(result.Content)
		result.QualityScore = quality.Score(result.Content)
	}

	if cfg.TokenReduction != nil {
		result.Content = reduceTokens(result.Content, cfg.TokenReduction.Mode)
	}

	if cfg.Chunking != nil {
		if err := p.chunk(ctx, result, cfg); err != nil {
			return nil, err
		}
	}

	if cfg.LanguageDetection != nil {
		result.DetectedLanguages = p.detectLanguages(result.Content, cfg.LanguageDetection)
	}
	if cfg.Keywords != nil {
		result.Keywords = keywords.Extract(result.Content, keywords.Config{
			MaxKeywords: cfg.Keywords.MaxKeywords,
		})
	}
	if cfg.Entities != nil {
		result.Entities = filterEntities(keywords.Entities(result.Content), cfg.Entities.Types)
	}

	if err := p.postProcess(ctx, result, cfg); err != nil {
		return nil, err
	}
	if err := p.validate(ctx, result, cfg); err != nil {
		return nil, err
	}

	return result, nil
}

// shouldOCR implements the OCR decision: forced, image-only media type,
// or OCR configured and the extracted text below the minimum-content
// threshold.
func (p *Pipeline) shouldOCR(result *Result, content []byte, mime string, cfg *Config) bool {
	if cfg.ForceOCR {
		return true
	}
	if mimetype.IsImage(mime) {
		return true
	}
	if cfg.OCR == nil {
		return false
	}
	if utf8.RuneCountInString(strings.TrimSpace(result.Content)) < cfg.OCR.EffectiveMinContent() {
		return true
	}
	return false
}

// runOCR recognizes text in the document's images and merges it into
// the result. For image media types the original bytes are the input;
// for text documents with embedded images each image is recognized and
// appended.
func (p *Pipeline) runOCR(ctx context.Context, result *Result, content []byte, mime string, cfg *Config) error {
	var backendName string
	var opts ocr.Options
	if cfg.OCR != nil {
		backendName = cfg.OCR.Backend
		opts = ocr.Options{Languages: cfg.OCR.Languages, DPI: cfg.OCR.DPI}
	}
	backend, err := p.registries.OCRBackend(backendName)
	if err != nil {
		return &OCRError{Backend: backendName, Err: err}
	}

	images := make([][]byte, 0, len(result.Images)+1)
	if mimetype.IsImage(mime) {
		images = append(images, content)
	} else {
		for _, img := range result.Images {
			if len(img.Data) > 0 {
				images = append(images, img.Data)
			}
		}
	}
	if len(images) == 0 {
		return nil
	}

	var texts []string
	if strings.TrimSpace(result.Content) != "" {
		texts = append(texts, result.Content)
	}
	for i, img := range images {
		text, err := backend.ProcessImage(ctx, img, opts)
		if err != nil {
			return &OCRError{Backend: backend.Name(), Err: fmt.Errorf("image %d: %w", i, err)}
		}
		if text != "" {
			texts = append(texts, text)
		}
	}
	result.Content = strings.Join(texts, "\n\n")
	result.SetMeta("ocr_backend", backend.Name())
	return nil
}

// chunk splits the content and optionally attaches embeddings.
func (p *Pipeline) chunk(ctx context.Context, result *Result, cfg *Config) error {
	c := chunker.New(chunker.Config{
		MaxChars:   cfg.Chunking.MaxChars,
		MaxOverlap: cfg.Chunking.MaxOverlap,
	})
	result.Chunks = c.Chunk(result.Content)
	if len(result.Chunks) == 0 || cfg.Chunking.Embedding == nil {
		return nil
	}

	provider := p.embedder
	if provider == nil {
		var err error
		provider, err = embed.NewProvider(embed.Config{
			Provider: cfg.Chunking.Embedding.Provider,
			Model:    cfg.Chunking.Embedding.Model,
			BaseURL:  cfg.Chunking.Embedding.BaseURL,
			APIKey:   cfg.Chunking.Embedding.APIKey,
		})
		if err != nil {
			return fmt.Errorf("configuring embedder: %w", err)
		}
	}

	texts := make([]string, len(result.Chunks))
	for i, ch := range result.Chunks {
		texts[i] = ch.Content
	}
	vectors, err := embed.Batched(ctx, provider, texts, cfg.Chunking.Embedding.BatchSize)
	if err != nil {
		return fmt.Errorf("embedding chunks: %w", err)
	}
	for i := range result.Chunks {
		result.Chunks[i].Embedding = vectors[i]
	}
	return nil
}

func (p *Pipeline) detectLanguages(content string, cfg *extract.LanguageConfig) []extract.DetectedLanguage {
	// The heavy lingua models are shared process-wide inside lang;
	// constructing a Detector per call is cheap.
	det := lang.NewDetector(lang.Config{
		MinConfidence: cfg.MinConfidence,
		MaxLanguages:  cfg.MaxLanguages,
	})
	return det.Detect(content)
}

// postProcess runs registered post-processors in descending priority.
// Any processor error aborts the extraction.
func (p *Pipeline) postProcess(ctx context.Context, result *Result, cfg *Config) error {
	for _, reg := range p.registries.postProcessors.All() {
		if !cfg.PostProcessing.Runs(reg.Name) {
			continue
		}
		if err := reg.Handler.Process(ctx, result, cfg); err != nil {
			return &PluginError{Plugin: reg.Name, Stage: "post-process", Err: err}
		}
	}
	return nil
}

// validate runs registered validators in descending priority, failing
// fast on the first rejection.
func (p *Pipeline) validate(ctx context.Context, result *Result, cfg *Config) error {
	for _, reg := range p.registries.validators.All() {
		if err := reg.Handler.Validate(ctx, result, cfg); err != nil {
			return &ValidationError{Validator: reg.Name, Err: err}
		}
	}
	return nil
}

func filterEntities(ents []extract.Entity, types []string) []extract.Entity {
	if len(types) == 0 {
		return ents
	}
	wanted := make(map[string]bool, len(types))
	for _, t := range types {
		wanted[t] = true
	}
	out := ents[:0]
	for _, e := range ents {
		if wanted[e.Type] {
			out = append(out, e)
		}
	}
	return out
}

// reduceTokens shrinks content for token-budgeted consumers. Light mode
// collapses whitespace; aggressive mode additionally drops English
// stopwords.
func reduceTokens(content, mode string) string {
	fields := strings.Fields(content)
	if mode != "aggressive" {
		return strings.Join(fields, " ")
	}
	kept := fields[:0]
	for _, f := range fields {
		if keywords.IsStopword(strings.ToLower(strings.Trim(f, ".,;:!?\"'()"))) {
			continue
		}
		kept = append(kept, f)
	}
	return strings.Join(kept, " ")
}
