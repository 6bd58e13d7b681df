package extract

import (
	"fmt"
	"strings"
)

// ParsingError reports that every candidate extractor for a media type
// was exhausted. Candidates lists the extractors tried, in dispatch
// order; Last is the final candidate's failure.
type ParsingError struct {
	MimeType   string
	Candidates []string
	Last       error
}

func (e *ParsingError) Error() string {
	return fmt.Sprintf("extract: all extractors failed for %s (tried %s): %v",
		e.MimeType, strings.Join(e.Candidates, ", "), e.Last)
}

func (e *ParsingError) Unwrap() error { return e.Last }

// MissingDependencyError reports that a required external engine is
// absent. Remediation tells the operator how to install it.
type MissingDependencyError struct {
	Dependency  string
	Remediation string
}

func (e *MissingDependencyError) Error() string {
	return fmt.Sprintf("extract: missing dependency %s (%s)", e.Dependency, e.Remediation)
}
