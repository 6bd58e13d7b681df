package extract

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/yhilem/distill/mimetype"
)

// CSVExtractor handles comma- and tab-separated values, producing both a
// markdown rendering of the grid and a structured Table.
type CSVExtractor struct{}

func (e *CSVExtractor) Name() string { return "csv" }

func (e *CSVExtractor) Supports(mime string) bool {
	return mime == mimetype.CSV || mime == mimetype.TSV
}

func (e *CSVExtractor) Extract(ctx context.Context, content []byte, mime string, cfg *Config) (*Result, error) {
	r := csv.NewReader(bytes.NewReader(content))
	if mime == mimetype.TSV {
		r.Comma = '\t'
	}
	r.FieldsPerRecord = -1

	var rows [][]string
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading csv: %w", err)
		}
		rows = append(rows, record)
	}

	table := Table{Cells: rows, Markdown: rowsToMarkdown(rows)}
	return &Result{
		Content:  table.Markdown,
		MimeType: mime,
		Tables:   []Table{table},
		Metadata: map[string]string{"row_count": fmt.Sprintf("%d", len(rows))},
	}, nil
}

// rowsToMarkdown renders a cell grid as a markdown table, first row as
// header.
func rowsToMarkdown(rows [][]string) string {
	if len(rows) == 0 {
		return ""
	}
	width := 0
	for _, row := range rows {
		if len(row) > width {
			width = len(row)
		}
	}

	var sb strings.Builder
	writeRow := func(row []string) {
		sb.WriteString("|")
		for i := 0; i < width; i++ {
			cell := ""
			if i < len(row) {
				cell = strings.ReplaceAll(row[i], "|", "\\|")
			}
			sb.WriteString(" " + cell + " |")
		}
		sb.WriteByte('\n')
	}

	writeRow(rows[0])
	sb.WriteString("|")
	for i := 0; i < width; i++ {
		sb.WriteString(" --- |")
	}
	sb.WriteByte('\n')
	for _, row := range rows[1:] {
		writeRow(row)
	}
	return strings.TrimRight(sb.String(), "\n")
}
