package extract

// Builtins returns the standard extractor set. All built-ins share the
// same priority slot in the dispatcher; order here only breaks exact
// ties, so the engine-preferred PDF extractor comes before the
// content-stream fallback.
func Builtins() []Extractor {
	return []Extractor{
		&PDFExtractor{},
		&PDFStreamExtractor{},
		&DOCXExtractor{},
		&PPTXExtractor{},
		&SpreadsheetExtractor{},
		&ODTExtractor{},
		&HTMLExtractor{},
		&MarkdownExtractor{},
		&CSVExtractor{},
		&StructuredExtractor{},
		&EmailExtractor{},
		&ImageExtractor{},
		&TextExtractor{},
	}
}
