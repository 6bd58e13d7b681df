package embed

import (
	"context"
	"fmt"
	"log/slog"
)

// DefaultBatchSize is the number of texts sent per provider call when no
// batch size is configured.
const DefaultBatchSize = 32

// Batched embeds texts in batches of batchSize through the provider.
// When a batch fails, each of its texts is retried individually so one
// oversized or malformed text does not sink its whole batch; texts that
// still fail embed as nil vectors.
func Batched(ctx context.Context, p Provider, texts []string, batchSize int) ([][]float32, error) {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += batchSize {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		end := start + batchSize
		if end > len(texts) {
			end = len(texts)
		}
		batch := texts[start:end]

		vecs, err := p.Embed(ctx, batch)
		if err == nil {
			if len(vecs) != len(batch) {
				return nil, fmt.Errorf("embed: provider returned %d vectors for %d texts", len(vecs), len(batch))
			}
			out = append(out, vecs...)
			continue
		}

		slog.Warn("embed: batch failed, retrying texts individually",
			"batch_start", start, "batch_size", len(batch), "error", err)
		for _, text := range batch {
			single, serr := p.Embed(ctx, []string{text})
			if serr != nil || len(single) != 1 {
				out = append(out, nil)
				continue
			}
			out = append(out, single[0])
		}
	}
	return out, nil
}
