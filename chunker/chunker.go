// Package chunker splits extracted document text into overlapping
// character windows for downstream embedding and retrieval.
package chunker

import (
	"math"
	"strings"
	"unicode/utf8"

	"github.com/yhilem/distill/extract"
)

// Config controls the chunking behaviour.
type Config struct {
	MaxChars   int // Maximum characters per chunk.
	MaxOverlap int // Characters of trailing context repeated in the next chunk.
}

// Chunker converts extracted text into fixed-window chunks.
type Chunker struct {
	cfg Config
}

// New returns a Chunker with the given configuration.
// Zero-value fields are replaced with sensible defaults; an overlap at or
// above the window size is clamped to half the window so splitting always
// advances.
func New(cfg Config) *Chunker {
	if cfg.MaxChars <= 0 {
		cfg.MaxChars = 1000
	}
	if cfg.MaxOverlap < 0 {
		cfg.MaxOverlap = 0
	}
	if cfg.MaxOverlap >= cfg.MaxChars {
		cfg.MaxOverlap = cfg.MaxChars / 2
	}
	return &Chunker{cfg: cfg}
}

// Chunk splits text into windows of at most MaxChars characters.
// Consecutive windows share MaxOverlap characters of context. Window ends
// prefer sentence boundaries, then word boundaries, and only cut
// mid-word when a single word exceeds the window. CharStart and CharEnd
// are byte offsets into the original text.
func (c *Chunker) Chunk(text string) []extract.Chunk {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	if utf8.RuneCountInString(text) <= c.cfg.MaxChars {
		return []extract.Chunk{{
			Content:    text,
			CharStart:  0,
			CharEnd:    len(text),
			TokenCount: estimateTokens(text),
		}}
	}

	var chunks []extract.Chunk
	start := 0
	for start < len(text) {
		end := windowEnd(text, start, c.cfg.MaxChars)
		if end < len(text) {
			end = snapToBoundary(text, start, end)
		}

		content := text[start:end]
		chunks = append(chunks, extract.Chunk{
			Content:    content,
			CharStart:  start,
			CharEnd:    end,
			TokenCount: estimateTokens(content),
		})

		if end >= len(text) {
			break
		}
		next := backOffOverlap(text, end, c.cfg.MaxOverlap)
		if next <= start {
			next = end
		}
		start = next
	}
	return chunks
}

// windowEnd returns the byte offset maxChars runes past start, clamped to
// the end of text.
func windowEnd(text string, start, maxChars int) int {
	i := start
	for n := 0; n < maxChars && i < len(text); n++ {
		_, size := utf8.DecodeRuneInString(text[i:])
		i += size
	}
	return i
}

// snapToBoundary pulls a window end back to the latest sentence boundary
// in its second half, or failing that the latest whitespace. A window
// containing neither is cut as-is.
func snapToBoundary(text string, start, end int) int {
	window := text[start:end]
	half := len(window) / 2

	if idx := lastSentenceEnd(window); idx > half {
		return start + idx
	}
	if idx := strings.LastIndexAny(window, " \t\n"); idx > half {
		return start + idx + 1
	}
	return end
}

// lastSentenceEnd returns the byte offset just past the last terminal
// punctuation followed by whitespace, or -1.
func lastSentenceEnd(s string) int {
	for i := len(s) - 1; i > 0; i-- {
		if s[i] != ' ' && s[i] != '\n' && s[i] != '\t' {
			continue
		}
		switch s[i-1] {
		case '.', '?', '!':
			return i
		}
	}
	return -1
}

// backOffOverlap steps back at most maxOverlap runes from end, then
// forward to the next word start so the overlap never opens mid-word.
func backOffOverlap(text string, end, maxOverlap int) int {
	if maxOverlap == 0 {
		return end
	}
	i := end
	for n := 0; n < maxOverlap && i > 0; n++ {
		_, size := utf8.DecodeLastRuneInString(text[:i])
		i -= size
	}
	if idx := strings.IndexAny(text[i:end], " \t\n"); idx >= 0 {
		return i + idx + 1
	}
	return i
}

// estimateTokens approximates the token count of text using a simple
// word-based heuristic: tokens ~ words * 1.3.
func estimateTokens(text string) int {
	words := len(strings.Fields(text))
	return int(math.Ceil(float64(words) * 1.3))
}
