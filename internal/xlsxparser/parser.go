// =============================================================================
// SEPA Credit Transfer - XLSX Reader
// =============================================================================
//
// This module reads transaction lists kept in Excel workbooks. One worksheet
// holds one batch: a header row followed by one transfer per row.
//
// SHEET LAYOUT (example):
//
//   | A          | B       | C                  | D           |
//   |------------|---------|--------------------|-------------|
//   | Name       | Amount  | IBAN               | Description |
//   | Jane Doe   | 100.00  | NL39RABO0300065264 | March rent  |
//
// Cells are read as raw values, so a number format such as "#,##0.00" does
// not leak grouping separators into amounts.
//
// =============================================================================

package xlsxparser

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/ginjaninja78/sepa-credit-transfer/internal/config"
	"github.com/ginjaninja78/sepa-credit-transfer/internal/types"
)

// =============================================================================
// PARSER FUNCTIONS
// =============================================================================

// Parse reads the configured worksheet of an XLSX file.
//
// PARAMETERS:
//   - filePath: The path to the workbook.
//   - settings: The XLSX settings from the batch profile.
//
// RETURNS:
//   - The parsed table.
//   - An error if the file, sheet or header row cannot be read.
func Parse(filePath string, settings config.XLSXSettings) (*types.Table, error) {
	f, err := excelize.OpenFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	table, err := ParseWorkbook(f, settings)
	if err != nil {
		return nil, err
	}
	table.Source = filePath

	return table, nil
}

// ParseWorkbook reads the configured worksheet of an open workbook.
func ParseWorkbook(f *excelize.File, settings config.XLSXSettings) (*types.Table, error) {
	sheetName, err := resolveSheet(f, settings.Sheet)
	if err != nil {
		return nil, err
	}

	rows, err := f.GetRows(sheetName, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("failed to read rows of sheet %q: %w", sheetName, err)
	}

	headerRow := settings.HeaderRow
	if headerRow <= 0 {
		headerRow = 1
	}

	// GetRows trims trailing empty rows, so a short slice means the header
	// row is blank or missing.
	if len(rows) < headerRow || types.IsBlank(rows[headerRow-1]) {
		return nil, fmt.Errorf("sheet %q has no header on row %d", sheetName, headerRow)
	}

	headers := types.CleanHeaders(rows[headerRow-1])

	table := &types.Table{
		Headers: headers,
		Rows:    make([]types.Row, 0, len(rows)-headerRow),
	}

	for i := headerRow; i < len(rows); i++ {
		if types.IsBlank(rows[i]) {
			continue
		}
		// Sheet rows are 1-based.
		table.Rows = append(table.Rows, types.NewRow(i+1, headers, rows[i]))
	}

	return table, nil
}

// resolveSheet returns the configured sheet, or the first sheet when none is
// configured.
func resolveSheet(f *excelize.File, name string) (string, error) {
	if name == "" {
		first := f.GetSheetName(0)
		if first == "" {
			return "", fmt.Errorf("workbook has no sheets")
		}
		return first, nil
	}

	index, err := f.GetSheetIndex(name)
	if err != nil {
		return "", fmt.Errorf("failed to look up sheet %q: %w", name, err)
	}
	if index < 0 {
		return "", fmt.Errorf("sheet %q not found (available: %v)", name, f.GetSheetList())
	}

	return name, nil
}
