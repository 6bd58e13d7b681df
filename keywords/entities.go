package keywords

import (
	"regexp"
	"sort"

	"github.com/yhilem/distill/extract"
)

// entityPatterns pairs entity types with their recognizers. Patterns are
// deliberately conservative; false positives in entity lists are worse
// than misses.
var entityPatterns = []struct {
	kind string
	re   *regexp.Regexp
}{
	{"email", regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)},
	{"url", regexp.MustCompile(`https?://[^\s<>"')\]]+`)},
	{"date", regexp.MustCompile(`\b(?:\d{4}-\d{2}-\d{2}|\d{1,2}/\d{1,2}/\d{2,4}|(?:Jan|Feb|Mar|Apr|May|Jun|Jul|Aug|Sep|Oct|Nov|Dec)[a-z]* \d{1,2},? \d{4})\b`)},
	{"money", regexp.MustCompile(`(?:[$€£]\s?\d[\d,]*(?:\.\d+)?|\b\d[\d,]*(?:\.\d+)? ?(?:USD|EUR|GBP|dollars|euros)\b)`)},
	{"phone", regexp.MustCompile(`\+?\d{1,3}[-. (]?\d{2,4}[-. )]?\d{3,4}[-. ]?\d{3,4}\b`)},
}

// Entities returns typed spans found in text, ordered by start offset.
// Overlapping matches keep the earlier (and on ties, the longer) span.
func Entities(text string) []extract.Entity {
	var found []extract.Entity
	for _, p := range entityPatterns {
		for _, loc := range p.re.FindAllStringIndex(text, -1) {
			found = append(found, extract.Entity{
				Text:  text[loc[0]:loc[1]],
				Type:  p.kind,
				Start: loc[0],
				End:   loc[1],
			})
		}
	}
	sort.Slice(found, func(i, j int) bool {
		if found[i].Start != found[j].Start {
			return found[i].Start < found[j].Start
		}
		return found[i].End > found[j].End
	})

	out := found[:0]
	lastEnd := -1
	for _, e := range found {
		if e.Start < lastEnd {
			continue
		}
		out = append(out, e)
		lastEnd = e.End
	}
	return out
}
