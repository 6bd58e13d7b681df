package distill

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/yhilem/distill/extract"
)

var (
	// ErrDuplicatePlugin is returned when registering a plugin name that
	// already exists in its registry.
	ErrDuplicatePlugin = errors.New("distill: plugin name already registered")

	// ErrUnsupportedFormat is returned when no extractor claims a
	// document's media type.
	ErrUnsupportedFormat = extract.ErrUnsupportedFormat

	// ErrSkip signals an extractor declining a document so the next
	// candidate can take over.
	ErrSkip = extract.ErrSkip
)

// ParsingError reports extraction failure after every candidate
// extractor was tried.
type ParsingError = extract.ParsingError

// MissingDependencyError reports a required external tool or service
// that is not installed.
type MissingDependencyError = extract.MissingDependencyError

// ValidationError is returned when a registered validator rejects an
// extraction result.
type ValidationError struct {
	Validator string
	Reason    string
	Err       error
}

func (e *ValidationError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("distill: validator %q rejected result: %s", e.Validator, e.Reason)
	}
	return fmt.Sprintf("distill: validator %q rejected result: %v", e.Validator, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// PluginError wraps a failure inside a registered post-processor.
type PluginError struct {
	Plugin string
	Stage  string
	Err    error
}

func (e *PluginError) Error() string {
	return fmt.Sprintf("distill: plugin %q failed in %s stage: %v", e.Plugin, e.Stage, e.Err)
}

func (e *PluginError) Unwrap() error { return e.Err }

// OCRError wraps a failure in the OCR backend.
type OCRError struct {
	Backend string
	Err     error
}

func (e *OCRError) Error() string {
	return fmt.Sprintf("distill: ocr backend %q failed: %v", e.Backend, e.Err)
}

func (e *OCRError) Unwrap() error { return e.Err }

// TimeoutError reports a batch item exceeding its per-item deadline.
type TimeoutError struct {
	Path    string
	Timeout time.Duration
}

func (e *TimeoutError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("distill: extraction of %s timed out after %s", e.Path, e.Timeout)
	}
	return fmt.Sprintf("distill: extraction timed out after %s", e.Timeout)
}

func (e *TimeoutError) Unwrap() error { return context.DeadlineExceeded }
