// Package quality cleans extracted text and scores how usable it is.
package quality

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Clean normalizes extracted text: Unicode NFC, zero-width and garbage
// characters removed, runs of spaces collapsed, at most one blank line
// between paragraphs.
func Clean(text string) string {
	text = norm.NFC.String(text)

	text = strings.Map(func(r rune) rune {
		switch r {
		case '\u200b', '\u200c', '\u200d', '\ufeff', '\u00ad':
			return -1
		}
		if isGarbageRune(r) {
			return -1
		}
		return r
	}, text)

	text = repairMojibake(text)

	// Collapse horizontal whitespace per line, preserve paragraph breaks.
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(horizontalSpaceRe.ReplaceAllString(line, " "), " ")
	}
	text = strings.Join(lines, "\n")
	text = blankLinesRe.ReplaceAllString(text, "\n\n")

	return strings.TrimSpace(text)
}

var (
	horizontalSpaceRe = regexp.MustCompile(`[ \t\x{00a0}]+`)
	blankLinesRe      = regexp.MustCompile(`\n{3,}`)
)

// mojibakeReplacements maps common UTF-8-as-Latin-1 sequences back to
// their intended characters.
var mojibakeReplacements = strings.NewReplacer(
	"â€™", "'",
	"â€˜", "'",
	"â€œ", "\"",
	"â€", "\"",
	"â€“", "–",
	"â€”", "—",
	"â€¦", "…",
	"Ã©", "é",
	"Ã¨", "è",
	"Ã¤", "ä",
	"Ã¶", "ö",
	"Ã¼", "ü",
	"ÃŸ", "ß",
	"Ã ", "à",
)

func repairMojibake(text string) string {
	if !strings.Contains(text, "Ã") && !strings.Contains(text, "â€") {
		return text
	}
	return mojibakeReplacements.Replace(text)
}

// isGarbageRune reports characters that never belong in extracted text:
// the private use area, the replacement character, and control
// characters other than whitespace. These show up when a PDF lacks
// ToUnicode maps.
func isGarbageRune(r rune) bool {
	if r >= 0xE000 && r <= 0xF8FF {
		return true
	}
	if r == 0xFFFD {
		return true
	}
	if r < 0x0020 && r != '\n' && r != '\r' && r != '\t' {
		return true
	}
	return false
}

// Score rates text quality in [0,1] as the product of the printable
// ratio and the word-like ratio. Empty text scores 0.
func Score(text string) float64 {
	if strings.TrimSpace(text) == "" {
		return 0
	}
	return printableRatio(text) * wordlikeRatio(text)
}

// printableRatio returns the share of printable characters in text.
func printableRatio(text string) float64 {
	total, printable := 0, 0
	for _, r := range text {
		total++
		if isGarbageRune(r) {
			continue
		}
		if unicode.IsPrint(r) || r == '\n' || r == '\r' || r == '\t' {
			printable++
		}
	}
	if total == 0 {
		return 1
	}
	return float64(printable) / float64(total)
}

// wordlikeRatio returns the share of tokens that look like words
// (2 to 15 runes). Character-by-character extraction failures score low.
func wordlikeRatio(text string) float64 {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return 0
	}
	wordlike := 0
	for _, f := range fields {
		if n := len([]rune(f)); n >= 2 && n <= 15 {
			wordlike++
		}
	}
	return float64(wordlike) / float64(len(fields))
}
