package extract

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/yhilem/distill/mimetype"
)

// SpreadsheetExtractor reads cell grids through excelize, one Table per
// sheet, and renders each as a markdown table in the content.
type SpreadsheetExtractor struct{}

func (e *SpreadsheetExtractor) Name() string { return "spreadsheet" }

func (e *SpreadsheetExtractor) Supports(mime string) bool {
	switch mime {
	case mimetype.XLSX, mimetype.ODS, "application/vnd.ms-excel.sheet.macroEnabled.12":
		return true
	}
	return false
}

func (e *SpreadsheetExtractor) Extract(ctx context.Context, content []byte, mime string, cfg *Config) (*Result, error) {
	f, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("opening spreadsheet: %w", err)
	}
	defer f.Close()

	var wanted map[string]bool
	if cfg != nil && cfg.Spreadsheet != nil && len(cfg.Spreadsheet.Sheets) > 0 {
		wanted = make(map[string]bool, len(cfg.Spreadsheet.Sheets))
		for _, s := range cfg.Spreadsheet.Sheets {
			wanted[s] = true
		}
	}

	result := &Result{MimeType: mime}
	var sb strings.Builder
	for _, sheet := range f.GetSheetList() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if wanted != nil && !wanted[sheet] {
			continue
		}
		rows, err := f.GetRows(sheet)
		if err != nil || len(rows) == 0 {
			continue
		}
		table := Table{
			Name:     sheet,
			Cells:    rows,
			Markdown: rowsToMarkdown(rows),
		}
		result.Tables = append(result.Tables, table)
		if sb.Len() > 0 {
			sb.WriteString("\n\n")
		}
		fmt.Fprintf(&sb, "## %s\n\n%s", sheet, table.Markdown)
	}

	result.Content = sb.String()
	result.SetMeta("sheet_count", strconv.Itoa(len(result.Tables)))
	return result, nil
}
