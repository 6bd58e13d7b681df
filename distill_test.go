package distill

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/yhilem/distill/cache"
	"github.com/yhilem/distill/extract"
	"github.com/yhilem/distill/mimetype"
)

// testConfig returns a config that exercises no external engines.
func testConfig() *Config {
	return &Config{UseCache: true, EnableQualityProcessing: true}
}

// countingExtractor wraps the text path and counts invocations.
type countingExtractor struct {
	calls int
	delay func()
	fail  error
}

func (c *countingExtractor) Name() string              { return "counting" }
func (c *countingExtractor) Supports(mime string) bool { return mime == mimetype.PlainText }

func (c *countingExtractor) Extract(ctx context.Context, content []byte, mime string, cfg *Config) (*Result, error) {
	c.calls++
	if c.delay != nil {
		c.delay()
	}
	if c.fail != nil {
		return nil, c.fail
	}
	return &Result{Content: string(content), MimeType: mime}, nil
}

func TestExtractBytesPlainText(t *testing.T) {
	p := New()
	result, err := p.ExtractBytes(context.Background(), []byte("plain document body"), "", testConfig())
	if err != nil {
		t.Fatalf("ExtractBytes: %v", err)
	}
	if result.Content != "plain document body" {
		t.Errorf("content = %q", result.Content)
	}
	if result.MimeType != mimetype.PlainText {
		t.Errorf("mime = %q, want text/plain", result.MimeType)
	}
	if result.QualityScore <= 0 {
		t.Errorf("quality score = %f, want > 0", result.QualityScore)
	}
}

func TestExtractIsIdempotentAndCached(t *testing.T) {
	reg := NewRegistryService()
	ext := &countingExtractor{}
	if err := reg.RegisterExtractor(10, ext); err != nil {
		t.Fatal(err)
	}
	p := New(WithRegistry(reg))

	ctx := context.Background()
	cfg := testConfig()
	first, err := p.ExtractBytes(ctx, []byte("same document"), mimetype.PlainText, cfg)
	if err != nil {
		t.Fatal(err)
	}
	second, err := p.ExtractBytes(ctx, []byte("same document"), mimetype.PlainText, cfg)
	if err != nil {
		t.Fatal(err)
	}
	if ext.calls != 1 {
		t.Errorf("extractor calls = %d, want 1 (second hit served from cache)", ext.calls)
	}
	if first.Content != second.Content {
		t.Errorf("results differ: %q vs %q", first.Content, second.Content)
	}

	// A different config misses the cache.
	other := testConfig()
	other.Keywords = &extract.KeywordConfig{}
	if _, err := p.ExtractBytes(ctx, []byte("same document"), mimetype.PlainText, other); err != nil {
		t.Fatal(err)
	}
	if ext.calls != 2 {
		t.Errorf("extractor calls = %d, want 2 after config change", ext.calls)
	}
}

func TestExtractCacheDisabled(t *testing.T) {
	reg := NewRegistryService()
	ext := &countingExtractor{}
	reg.RegisterExtractor(10, ext)
	p := New(WithRegistry(reg))

	cfg := testConfig()
	cfg.UseCache = false
	for i := 0; i < 2; i++ {
		if _, err := p.ExtractBytes(context.Background(), []byte("doc"), mimetype.PlainText, cfg); err != nil {
			t.Fatal(err)
		}
	}
	if ext.calls != 2 {
		t.Errorf("extractor calls = %d, want 2 with cache off", ext.calls)
	}
}

// customMimeExtractor claims a private media type no built-in handles.
type customMimeExtractor struct {
	fail  error
	calls int
}

func (c *customMimeExtractor) Name() string              { return "custom-blob" }
func (c *customMimeExtractor) Supports(mime string) bool { return mime == "application/x-blob" }

func (c *customMimeExtractor) Extract(ctx context.Context, content []byte, mime string, cfg *Config) (*Result, error) {
	c.calls++
	if c.fail != nil {
		return nil, c.fail
	}
	return &Result{Content: "blob parsed"}, nil
}

func TestFailedExtractionNotCached(t *testing.T) {
	reg := NewRegistryService()
	ext := &customMimeExtractor{fail: errors.New("engine exploded")}
	reg.RegisterExtractor(10, ext)
	p := New(WithRegistry(reg), WithCache(cache.NewMemory()))

	cfg := testConfig()
	ctx := context.Background()
	if _, err := p.ExtractBytes(ctx, []byte("doc"), "application/x-blob", cfg); err == nil {
		t.Fatal("expected extraction failure")
	}

	stats, _ := p.Cache().Stats(ctx)
	if stats.Entries != 0 {
		t.Errorf("entries = %d after failure, want 0", stats.Entries)
	}

	// The failure is not sticky: a later success computes and caches.
	ext.fail = nil
	if _, err := p.ExtractBytes(ctx, []byte("doc"), "application/x-blob", cfg); err != nil {
		t.Fatalf("retry after failure: %v", err)
	}
	if ext.calls != 2 {
		t.Errorf("extractor calls = %d, want 2", ext.calls)
	}
}

func TestChunkingEndToEnd(t *testing.T) {
	p := New()
	cfg := testConfig()
	cfg.Chunking = &extract.ChunkingConfig{MaxChars: 80, MaxOverlap: 20}

	text := strings.Repeat("Sentences fill the document with readable words. ", 20)
	result, err := p.ExtractBytes(context.Background(), []byte(text), mimetype.PlainText, cfg)
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Chunks) < 2 {
		t.Fatalf("chunks = %d, want several", len(result.Chunks))
	}
	for i, ch := range result.Chunks {
		if len(ch.Content) > 80 {
			t.Errorf("chunk %d length %d exceeds max", i, len(ch.Content))
		}
		if result.Content[ch.CharStart:ch.CharEnd] != ch.Content {
			t.Errorf("chunk %d offsets do not index the cleaned content", i)
		}
	}
	if last := result.Chunks[len(result.Chunks)-1]; last.CharEnd != len(result.Content) {
		t.Errorf("final chunk ends at %d, want %d", last.CharEnd, len(result.Content))
	}
}

func TestCacheKeySensitiveToChunkSize(t *testing.T) {
	reg := NewRegistryService()
	ext := &countingExtractor{}
	if err := reg.RegisterExtractor(10, ext); err != nil {
		t.Fatal(err)
	}
	p := New(WithRegistry(reg))

	ctx := context.Background()
	doc := []byte(strings.Repeat("Chunk boundaries move with the window size. ", 10))

	coarse := testConfig()
	coarse.Chunking = &extract.ChunkingConfig{MaxChars: 200, MaxOverlap: 20}
	fine := testConfig()
	fine.Chunking = &extract.ChunkingConfig{MaxChars: 60, MaxOverlap: 20}

	a, err := p.ExtractBytes(ctx, doc, mimetype.PlainText, coarse)
	if err != nil {
		t.Fatal(err)
	}
	b, err := p.ExtractBytes(ctx, doc, mimetype.PlainText, fine)
	if err != nil {
		t.Fatal(err)
	}

	if ext.calls != 2 {
		t.Errorf("extractor calls = %d, want 2 (chunk size change must miss the cache)", ext.calls)
	}
	stats, err := p.Cache().Stats(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if stats.Entries != 2 {
		t.Errorf("cache entries = %d, want 2 distinct keys", stats.Entries)
	}
	if len(a.Chunks) >= len(b.Chunks) {
		t.Errorf("chunk counts %d vs %d: the finer window must produce more chunks", len(a.Chunks), len(b.Chunks))
	}
}

func TestChunkCountArithmetic(t *testing.T) {
	p := New()
	cfg := testConfig()
	cfg.UseCache = false
	cfg.Chunking = &extract.ChunkingConfig{MaxChars: 1000, MaxOverlap: 200}

	// Unbroken text cuts hard at the window edge, so the count follows
	// the stride arithmetic exactly.
	n := 2500
	result, err := p.ExtractBytes(context.Background(), []byte(strings.Repeat("x", n)), mimetype.PlainText, cfg)
	if err != nil {
		t.Fatal(err)
	}

	stride := 1000 - 200
	want := 1 + (n-1000+stride-1)/stride
	if len(result.Chunks) != want {
		t.Errorf("chunks = %d, want %d for %d chars at stride %d", len(result.Chunks), want, n, stride)
	}
	if last := result.Chunks[len(result.Chunks)-1]; last.CharEnd != n {
		t.Errorf("final chunk ends at %d, want %d", last.CharEnd, n)
	}
}

func TestEnrichmentStages(t *testing.T) {
	p := New()
	cfg := testConfig()
	cfg.Keywords = &extract.KeywordConfig{MaxKeywords: 5}
	cfg.Entities = &extract.EntityConfig{}

	text := "The quarterly report is ready. Contact finance@example.com for the " +
		"quarterly report details before 2026-09-30."
	result, err := p.ExtractBytes(context.Background(), []byte(text), mimetype.PlainText, cfg)
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Keywords) == 0 {
		t.Error("no keywords extracted")
	}
	var gotEmail, gotDate bool
	for _, e := range result.Entities {
		switch e.Type {
		case "email":
			gotEmail = true
		case "date":
			gotDate = true
		}
	}
	if !gotEmail || !gotDate {
		t.Errorf("entities = %+v, want email and date", result.Entities)
	}
}

func TestEntityTypeFilter(t *testing.T) {
	p := New()
	cfg := testConfig()
	cfg.Entities = &extract.EntityConfig{Types: []string{"email"}}

	text := "Mail ops@example.com or call +1 555-123-4567 about the service."
	result, err := p.ExtractBytes(context.Background(), []byte(text), mimetype.PlainText, cfg)
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range result.Entities {
		if e.Type != "email" {
			t.Errorf("entity type %q slipped past the filter", e.Type)
		}
	}
	if len(result.Entities) == 0 {
		t.Error("email entity not found")
	}
}

func TestTokenReduction(t *testing.T) {
	p := New()
	cfg := testConfig()
	cfg.EnableQualityProcessing = false
	cfg.TokenReduction = &extract.TokenReductionConfig{Mode: "aggressive"}

	result, err := p.ExtractBytes(context.Background(),
		[]byte("The report is about the new system and its results"), mimetype.PlainText, cfg)
	if err != nil {
		t.Fatal(err)
	}
	for _, stop := range []string{"The ", " the ", " is ", " and "} {
		if strings.Contains(result.Content, stop) {
			t.Errorf("stopword %q survived aggressive reduction: %q", stop, result.Content)
		}
	}
	if !strings.Contains(result.Content, "report") || !strings.Contains(result.Content, "system") {
		t.Errorf("content words lost: %q", result.Content)
	}
}

// appendProcessor appends a marker to the content.
type appendProcessor struct {
	name   string
	marker string
	fail   error
}

func (a *appendProcessor) Name() string { return a.name }

func (a *appendProcessor) Process(ctx context.Context, result *Result, cfg *Config) error {
	if a.fail != nil {
		return a.fail
	}
	result.Content += a.marker
	return nil
}

// lengthValidator rejects content shorter than min bytes.
type lengthValidator struct {
	name string
	min  int
}

func (v *lengthValidator) Name() string { return v.name }

func (v *lengthValidator) Validate(ctx context.Context, result *Result, cfg *Config) error {
	if len(result.Content) < v.min {
		return errors.New("content too short")
	}
	return nil
}

func TestPostProcessorsRunInPriorityOrder(t *testing.T) {
	reg := NewRegistryService()
	reg.RegisterPostProcessor(1, &appendProcessor{name: "second", marker: "|second"})
	reg.RegisterPostProcessor(10, &appendProcessor{name: "first", marker: "|first"})
	p := New(WithRegistry(reg))

	result, err := p.ExtractBytes(context.Background(), []byte("base"), mimetype.PlainText, testConfig())
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasSuffix(result.Content, "|first|second") {
		t.Errorf("content = %q, want markers in descending priority order", result.Content)
	}
}

func TestPostProcessorFailureIsPluginError(t *testing.T) {
	reg := NewRegistryService()
	reg.RegisterPostProcessor(5, &appendProcessor{name: "broken", fail: errors.New("no dice")})
	p := New(WithRegistry(reg))

	_, err := p.ExtractBytes(context.Background(), []byte("base"), mimetype.PlainText, testConfig())
	var perr *PluginError
	if !errors.As(err, &perr) {
		t.Fatalf("error = %v, want *PluginError", err)
	}
	if perr.Plugin != "broken" {
		t.Errorf("plugin = %q, want broken", perr.Plugin)
	}
}

func TestPostProcessingConfigFilters(t *testing.T) {
	reg := NewRegistryService()
	reg.RegisterPostProcessor(5, &appendProcessor{name: "wanted", marker: "|wanted"})
	reg.RegisterPostProcessor(4, &appendProcessor{name: "unwanted", marker: "|unwanted"})
	p := New(WithRegistry(reg))

	cfg := testConfig()
	cfg.PostProcessing = &extract.PostProcessingConfig{Enabled: []string{"wanted"}}
	result, err := p.ExtractBytes(context.Background(), []byte("base"), mimetype.PlainText, cfg)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(result.Content, "unwanted") {
		t.Errorf("disabled processor ran: %q", result.Content)
	}
	if !strings.Contains(result.Content, "|wanted") {
		t.Errorf("enabled processor skipped: %q", result.Content)
	}
}

func TestValidatorRejectionIsValidationError(t *testing.T) {
	reg := NewRegistryService()
	reg.RegisterValidator(5, &lengthValidator{name: "min-length", min: 10_000})
	p := New(WithRegistry(reg))

	_, err := p.ExtractBytes(context.Background(), []byte("tiny"), mimetype.PlainText, testConfig())
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("error = %v, want *ValidationError", err)
	}
	if verr.Validator != "min-length" {
		t.Errorf("validator = %q, want min-length", verr.Validator)
	}
}

func TestValidatorsFailFast(t *testing.T) {
	reg := NewRegistryService()
	reg.RegisterValidator(10, &lengthValidator{name: "strict", min: 10_000})
	ran := false
	reg.RegisterValidator(1, validatorFunc("later", func() { ran = true }))
	p := New(WithRegistry(reg))

	if _, err := p.ExtractBytes(context.Background(), []byte("tiny"), mimetype.PlainText, testConfig()); err == nil {
		t.Fatal("expected validation failure")
	}
	if ran {
		t.Error("lower-priority validator ran after a rejection")
	}
}

type namedValidator struct {
	name string
	fn   func()
}

func validatorFunc(name string, fn func()) *namedValidator {
	return &namedValidator{name: name, fn: fn}
}

func (v *namedValidator) Name() string { return v.name }

func (v *namedValidator) Validate(ctx context.Context, result *Result, cfg *Config) error {
	v.fn()
	return nil
}

func TestUnsupportedFormatError(t *testing.T) {
	p := New()
	cfg := testConfig()
	_, err := p.ExtractBytes(context.Background(), []byte{0x00, 0x01, 0x02, 0x03}, "application/x-unknown-blob", cfg)
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("error = %v, want ErrUnsupportedFormat", err)
	}
}
