// Package keywords extracts scored keyphrases and typed entity spans
// from document text.
package keywords

import (
	"sort"
	"strings"
	"unicode"

	"github.com/yhilem/distill/extract"
)

// Config controls keyword extraction.
type Config struct {
	// MaxKeywords caps the returned keyphrases. Zero means 10.
	MaxKeywords int `json:"max_keywords,omitempty" yaml:"max_keywords,omitempty"`
	// MaxPhraseLen caps words per keyphrase. Zero means 3.
	MaxPhraseLen int `json:"max_phrase_len,omitempty" yaml:"max_phrase_len,omitempty"`
}

// Extract returns the top keyphrases of text using RAKE scoring:
// candidate phrases are maximal stopword-free word runs, each word is
// scored degree/frequency over the co-occurrence graph, and a phrase
// scores the sum of its word scores.
func Extract(text string, cfg Config) []extract.Keyword {
	if cfg.MaxKeywords <= 0 {
		cfg.MaxKeywords = 10
	}
	if cfg.MaxPhraseLen <= 0 {
		cfg.MaxPhraseLen = 3
	}

	phrases := candidatePhrases(text, cfg.MaxPhraseLen)
	if len(phrases) == 0 {
		return nil
	}

	// Word degree and frequency across all candidate phrases.
	freq := make(map[string]int)
	degree := make(map[string]int)
	for _, phrase := range phrases {
		for _, word := range phrase {
			freq[word]++
			degree[word] += len(phrase) - 1
		}
	}

	scores := make(map[string]float64, len(phrases))
	counts := make(map[string]int, len(phrases))
	for _, phrase := range phrases {
		var score float64
		for _, word := range phrase {
			score += float64(degree[word]+freq[word]) / float64(freq[word])
		}
		key := strings.Join(phrase, " ")
		scores[key] += score
		counts[key]++
	}

	out := make([]extract.Keyword, 0, len(scores))
	for phrase, total := range scores {
		out = append(out, extract.Keyword{
			Text:  phrase,
			Score: total / float64(counts[phrase]),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Text < out[j].Text
	})
	if len(out) > cfg.MaxKeywords {
		out = out[:cfg.MaxKeywords]
	}
	return out
}

// candidatePhrases splits text at sentence punctuation and stopwords,
// yielding lowercase word runs of at most maxLen words.
func candidatePhrases(text string, maxLen int) [][]string {
	var phrases [][]string
	var current []string

	flush := func() {
		if len(current) > 0 && len(current) <= maxLen {
			phrases = append(phrases, current)
		}
		current = nil
	}

	for _, raw := range strings.FieldsFunc(text, func(r rune) bool {
		return unicode.IsSpace(r) || r == ',' || r == '.' || r == ';' || r == ':' ||
			r == '!' || r == '?' || r == '(' || r == ')' || r == '"' || r == '\''
	}) {
		word := strings.ToLower(strings.Trim(raw, "-–—"))
		if word == "" {
			continue
		}
		if stopwords[word] || isNumeric(word) {
			flush()
			continue
		}
		current = append(current, word)
		if len(current) == maxLen {
			flush()
		}
	}
	flush()
	return phrases
}

func isNumeric(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) && r != '.' && r != ',' && r != '%' {
			return false
		}
	}
	return true
}
