package extract

// Result is the outcome of extracting one document. It is produced once
// per extraction and treated as immutable afterwards; only the
// post-processing stage may mutate it before it is returned or cached.
type Result struct {
	// Content is the extracted text.
	Content string `json:"content"`

	// MimeType is the resolved media type the content was extracted as.
	MimeType string `json:"mime_type"`

	// Metadata carries format-level key/value pairs (title, author,
	// page count, sheet names, conversion notes).
	Metadata map[string]string `json:"metadata,omitempty"`

	// Tables holds structured tables found in the document.
	Tables []Table `json:"tables,omitempty"`

	// Images holds embedded images when image extraction is enabled.
	Images []Image `json:"images,omitempty"`

	// Chunks is populated by the chunking stage when enabled.
	Chunks []Chunk `json:"chunks,omitempty"`

	// DetectedLanguages is populated by the language detection stage.
	DetectedLanguages []DetectedLanguage `json:"detected_languages,omitempty"`

	// Keywords is populated by the keyword extraction stage.
	Keywords []Keyword `json:"keywords,omitempty"`

	// Entities is populated by the entity extraction stage.
	Entities []Entity `json:"entities,omitempty"`

	// QualityScore is set by quality processing (0..1, higher is cleaner).
	QualityScore float64 `json:"quality_score,omitempty"`
}

// SetMeta stores a metadata key, allocating the map on first use.
func (r *Result) SetMeta(key, value string) {
	if r.Metadata == nil {
		r.Metadata = make(map[string]string)
	}
	r.Metadata[key] = value
}

// Table is a structured cell grid extracted from a document.
type Table struct {
	PageNumber int        `json:"page_number,omitempty"`
	Name       string     `json:"name,omitempty"` // sheet or caption where known
	Cells      [][]string `json:"cells"`
	Markdown   string     `json:"markdown,omitempty"`
}

// Image is an embedded image extracted from a document.
type Image struct {
	Index       int    `json:"index"`
	Format      string `json:"format"` // media type, e.g. image/png
	Data        []byte `json:"data,omitempty"`
	PageNumber  int    `json:"page_number,omitempty"`
	Description string `json:"description,omitempty"`
}

// Chunk is a bounded sub-range of the extracted content. Offsets are
// byte positions into Result.Content. A chunk belongs to the result that
// created it and is never shared across results.
type Chunk struct {
	Content    string    `json:"content"`
	CharStart  int       `json:"char_start"`
	CharEnd    int       `json:"char_end"`
	TokenCount int       `json:"token_count"`
	FirstPage  int       `json:"first_page,omitempty"`
	LastPage   int       `json:"last_page,omitempty"`
	Embedding  []float32 `json:"embedding,omitempty"`
}

// DetectedLanguage pairs an ISO 639-1 language code with detection confidence.
type DetectedLanguage struct {
	Language   string  `json:"language"`
	Confidence float64 `json:"confidence"`
}

// Keyword is a scored keyword or keyphrase.
type Keyword struct {
	Text  string  `json:"text"`
	Score float64 `json:"score"`
}

// Entity is a span of text recognized as a typed entity.
type Entity struct {
	Text  string `json:"text"`
	Type  string `json:"type"` // email, url, date, money, phone
	Start int    `json:"start"`
	End   int    `json:"end"`
}
