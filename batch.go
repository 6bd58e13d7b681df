package distill

import (
	"context"
	"errors"
	"sync"
)

// BatchItem is the outcome of one document in a batch. Index is the
// item's position in the input slice; failures populate Err and leave
// Result nil without affecting sibling items.
type BatchItem struct {
	Index  int     `json:"index"`
	Path   string  `json:"path,omitempty"`
	Result *Result `json:"result,omitempty"`
	Err    error   `json:"-"`
}

// BatchExtractFiles extracts documents concurrently with at most
// cfg.MaxConcurrency workers (default 8). Results are returned in input
// order; per-item failures and timeouts occupy their slot only.
func (p *Pipeline) BatchExtractFiles(ctx context.Context, paths []string, cfg *Config) []BatchItem {
	return p.batch(ctx, len(paths), cfg, func(ctx context.Context, i int) (*Result, error) {
		return p.ExtractFile(ctx, paths[i], cfg)
	}, func(i int) string { return paths[i] })
}

// BatchExtractBytes extracts in-memory documents concurrently. Media
// types are sniffed per document.
func (p *Pipeline) BatchExtractBytes(ctx context.Context, docs [][]byte, cfg *Config) []BatchItem {
	return p.batch(ctx, len(docs), cfg, func(ctx context.Context, i int) (*Result, error) {
		return p.ExtractBytes(ctx, docs[i], "", cfg)
	}, func(i int) string { return "" })
}

// BatchExtractFilesAsync is BatchExtractFiles with streaming delivery:
// items arrive on the returned channel as they complete, in completion
// order, and the channel closes when the batch is done. Item contents
// are identical to the blocking variant's.
func (p *Pipeline) BatchExtractFilesAsync(ctx context.Context, paths []string, cfg *Config) <-chan BatchItem {
	return p.batchStream(ctx, len(paths), cfg, func(ctx context.Context, i int) (*Result, error) {
		return p.ExtractFile(ctx, paths[i], cfg)
	}, func(i int) string { return paths[i] })
}

// BatchExtractBytesAsync is the streaming variant of BatchExtractBytes.
func (p *Pipeline) BatchExtractBytesAsync(ctx context.Context, docs [][]byte, cfg *Config) <-chan BatchItem {
	return p.batchStream(ctx, len(docs), cfg, func(ctx context.Context, i int) (*Result, error) {
		return p.ExtractBytes(ctx, docs[i], "", cfg)
	}, func(i int) string { return "" })
}

// batch collects the stream back into a positionally ordered slice.
func (p *Pipeline) batch(ctx context.Context, n int, cfg *Config, work func(context.Context, int) (*Result, error), pathOf func(int) string) []BatchItem {
	items := make([]BatchItem, n)
	for item := range p.batchStream(ctx, n, cfg, work, pathOf) {
		items[item.Index] = item
	}
	return items
}

// batchStream runs the worker pool and sends each item the moment its
// extraction finishes. The channel is buffered for the whole batch, so
// workers never block on a slow consumer.
func (p *Pipeline) batchStream(ctx context.Context, n int, cfg *Config, work func(context.Context, int) (*Result, error), pathOf func(int) string) <-chan BatchItem {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	workers := cfg.MaxConcurrency
	if workers <= 0 {
		workers = 8
	}

	out := make(chan BatchItem, n)
	sem := make(chan struct{}, workers)
	var wg sync.WaitGroup

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			item := BatchItem{Index: i, Path: pathOf(i)}
			if err := ctx.Err(); err != nil {
				item.Err = err
				out <- item
				return
			}

			itemCtx := ctx
			if cfg.ItemTimeout > 0 {
				var cancel context.CancelFunc
				itemCtx, cancel = context.WithTimeout(ctx, cfg.ItemTimeout)
				defer cancel()
			}

			result, err := work(itemCtx, i)
			if err != nil {
				// A deadline on the item context, not the batch context,
				// is this item's timeout.
				if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
					err = &TimeoutError{Path: item.Path, Timeout: cfg.ItemTimeout}
				}
				item.Err = err
			} else {
				item.Result = result
			}
			out <- item
		}(i)
	}

	go func() {
		wg.Wait()
		close(out)
	}()
	return out
}
