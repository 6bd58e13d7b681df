// Package extract defines the extraction result model, the capability
// interfaces implemented by document extractors, post-processors and
// validators, the built-in extractors, and the priority-ordered dispatcher
// that tries candidates until one succeeds.
//
// Built-in extractors delegate byte-level parsing to specialized engines
// (ledongthuc/pdf, pdfcpu, excelize, goldmark, html-to-markdown); this
// package owns only the orchestration around them.
package extract

import (
	"context"
	"errors"
)

// ErrSkip signals that an extractor is not applicable to the given
// content and the dispatcher should try the next candidate. It is a
// recoverable, per-candidate signal, never surfaced to callers.
var ErrSkip = errors.New("extract: extractor not applicable")

// ErrUnsupportedFormat is returned when no extractor claims a media type.
var ErrUnsupportedFormat = errors.New("extract: unsupported media type")

// Extractor turns raw document bytes into a Result. Implementations must
// be safe for concurrent use.
type Extractor interface {
	// Name identifies the extractor in logs and ParsingError reports.
	Name() string

	// Supports reports whether the extractor claims the media type.
	Supports(mime string) bool

	// Extract parses content. Returning ErrSkip (possibly wrapped) tells
	// the dispatcher to try the next candidate; any other error is a
	// hard parse failure for this candidate.
	Extract(ctx context.Context, content []byte, mime string, cfg *Config) (*Result, error)
}

// PostProcessor mutates or enriches a completed result. Processors run in
// descending registration priority; an error aborts the extraction.
type PostProcessor interface {
	Name() string
	Process(ctx context.Context, result *Result, cfg *Config) error
}

// Validator checks a final result. Validators run in descending
// registration priority and fail fast: the first error aborts the
// extraction and later validators do not run.
type Validator interface {
	Name() string
	Validate(ctx context.Context, result *Result, cfg *Config) error
}
