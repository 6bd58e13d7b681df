package extract

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/yhilem/distill/plugin"
)

// builtinPriority is the priority slot built-in extractors occupy in the
// candidate order. Custom extractors registered with a higher priority
// override built-ins; a lower priority supplements them as fallbacks.
const builtinPriority = 0

// Dispatcher selects and runs extractors for a media type. Candidates are
// the registered custom extractors that claim the type plus the built-ins
// for it, ordered by descending priority. The first success wins; a
// candidate failing with ErrSkip or a hard parse error hands over to the
// next, and exhaustion surfaces as a *ParsingError naming every candidate
// tried.
type Dispatcher struct {
	registry *plugin.Registry[Extractor]
	builtins []Extractor
	logger   *slog.Logger
}

// NewDispatcher builds a dispatcher over the given custom-extractor
// registry with the standard built-in set.
func NewDispatcher(registry *plugin.Registry[Extractor], logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		registry: registry,
		builtins: Builtins(),
		logger:   logger,
	}
}

// candidate pairs an extractor with its effective priority.
type candidate struct {
	extractor Extractor
	priority  int
	custom    bool
}

// Candidates returns the try-order for a media type: descending priority,
// custom extractors before built-ins on equal priority so an explicit
// registration at the built-in slot wins ties.
func (d *Dispatcher) Candidates(mime string) []Extractor {
	var cands []candidate
	if d.registry != nil {
		for _, reg := range d.registry.All() {
			if reg.Handler.Supports(mime) {
				cands = append(cands, candidate{extractor: reg.Handler, priority: reg.Priority, custom: true})
			}
		}
	}
	for _, b := range d.builtins {
		if b.Supports(mime) {
			cands = append(cands, candidate{extractor: b, priority: builtinPriority})
		}
	}
	sort.SliceStable(cands, func(i, j int) bool {
		if cands[i].priority != cands[j].priority {
			return cands[i].priority > cands[j].priority
		}
		return cands[i].custom && !cands[j].custom
	})

	out := make([]Extractor, len(cands))
	for i, c := range cands {
		out[i] = c.extractor
	}
	return out
}

// Extract runs the candidate list for mime until one succeeds.
func (d *Dispatcher) Extract(ctx context.Context, content []byte, mime string, cfg *Config) (*Result, error) {
	candidates := d.Candidates(mime)
	if len(candidates) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, mime)
	}

	var tried []string
	var lastErr error
	for _, ex := range candidates {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		result, err := ex.Extract(ctx, content, mime, cfg)
		if err == nil {
			if result.MimeType == "" {
				result.MimeType = mime
			}
			return result, nil
		}
		tried = append(tried, ex.Name())
		if errors.Is(err, ErrSkip) {
			d.logger.Debug("extractor skipped", "extractor", ex.Name(), "mime", mime)
			continue
		}
		// Missing external engines are actionable; don't mask them behind
		// a generic parsing failure when nothing else can take over.
		var missing *MissingDependencyError
		if errors.As(err, &missing) && len(candidates) == len(tried) {
			return nil, err
		}
		d.logger.Debug("extractor failed, trying next",
			"extractor", ex.Name(), "mime", mime, "error", err)
		lastErr = err
	}

	if lastErr == nil {
		lastErr = ErrSkip
	}
	return nil, &ParsingError{MimeType: mime, Candidates: tried, Last: lastErr}
}
