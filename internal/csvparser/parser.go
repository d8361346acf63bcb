// =============================================================================
// SEPA Credit Transfer - CSV Reader
// =============================================================================
//
// This module reads transaction lists exported as CSV. It handles:
//   - Different delimiters (comma, semicolon, pipe, tab)
//   - Multi-line headers
//   - Custom data start rows
//   - Comment lines
//   - A leading UTF-8 byte order mark, as written by spreadsheet exports
//
// The result is a types.Table: one Row per non-empty data line, keyed by
// header, carrying the row number of the source file for error reports.
//
// =============================================================================

package csvparser

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ginjaninja78/sepa-credit-transfer/internal/config"
	"github.com/ginjaninja78/sepa-credit-transfer/internal/types"
)

// ErrEmptyFile is returned when the input has no records at all.
var ErrEmptyFile = errors.New("CSV file is empty")

const utf8BOM = "\uFEFF"

// =============================================================================
// PARSER FUNCTIONS
// =============================================================================

// Parse reads a CSV file and returns its rows.
//
// PARAMETERS:
//   - filePath: The path to the CSV file.
//   - settings: The CSV settings from the batch profile.
//
// RETURNS:
//   - The parsed table.
//   - An error if the file cannot be read or has no header.
func Parse(filePath string, settings config.CSVSettings) (*types.Table, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	table, err := ParseReader(file, settings)
	if err != nil {
		return nil, err
	}
	table.Source = filePath

	return table, nil
}

// ParseReader reads CSV data from r.
//
// PARSING PROCESS:
//   1. Configure the CSV reader with the delimiter and comment settings
//   2. Read and merge the header rows
//   3. Read data rows starting from DataStartRow
//   4. Convert each non-empty row to a types.Row
func ParseReader(r io.Reader, settings config.CSVSettings) (*types.Table, error) {
	csvReader := csv.NewReader(bufio.NewReader(r))
	configureReader(csvReader, settings)

	allRows, lines, err := readRecords(csvReader)
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV: %w", err)
	}

	if len(allRows) == 0 {
		return nil, ErrEmptyFile
	}

	if len(allRows[0]) > 0 {
		allRows[0][0] = strings.TrimPrefix(allRows[0][0], utf8BOM)
	}

	headers, err := extractHeaders(allRows, settings)
	if err != nil {
		return nil, fmt.Errorf("failed to extract headers: %w", err)
	}

	return &types.Table{
		Headers: headers,
		Rows:    extractDataRows(allRows, lines, headers, settings),
	}, nil
}

// readRecords reads every record together with the file line it starts on.
// encoding/csv drops blank and comment lines, so record indexes alone would
// not match what a user sees in an editor.
func readRecords(reader *csv.Reader) ([][]string, []int, error) {
	var records [][]string
	var lines []int

	for {
		record, err := reader.Read()
		if err == io.EOF {
			return records, lines, nil
		}
		if err != nil {
			return nil, nil, err
		}

		line, _ := reader.FieldPos(0)
		records = append(records, record)
		lines = append(lines, line)
	}
}

// configureReader configures the CSV reader based on the settings.
func configureReader(reader *csv.Reader, settings config.CSVSettings) {
	switch settings.Delimiter {
	case "\\t", "\t", "tab", "TAB":
		reader.Comma = '\t'
	case "|", "pipe", "PIPE":
		reader.Comma = '|'
	case ";", "semicolon":
		reader.Comma = ';'
	default:
		if len(settings.Delimiter) > 0 {
			reader.Comma = rune(settings.Delimiter[0])
		} else {
			reader.Comma = ','
		}
	}

	if len(settings.Comment) > 0 {
		reader.Comment = rune(settings.Comment[0])
	}

	// Exports often have ragged trailing columns.
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
}

// extractHeaders extracts and merges headers from the CSV.
//
// MULTI-LINE HEADER HANDLING:
//   Non-empty values of each column are joined with a space.
//
//   Row 1: "Creditor", "",       "Creditor"
//   Row 2: "Name",     "Amount", "IBAN"
//   Result: "Creditor Name", "Amount", "Creditor IBAN"
func extractHeaders(allRows [][]string, settings config.CSVSettings) ([]string, error) {
	if settings.HeaderRows <= 0 {
		return nil, fmt.Errorf("header_rows must be at least 1")
	}

	if len(allRows) < settings.HeaderRows {
		return nil, fmt.Errorf("file has fewer rows than header_rows setting")
	}

	if settings.HeaderRows == 1 {
		return types.CleanHeaders(allRows[0]), nil
	}

	maxCols := 0
	for i := 0; i < settings.HeaderRows; i++ {
		if len(allRows[i]) > maxCols {
			maxCols = len(allRows[i])
		}
	}

	headers := make([]string, maxCols)
	for col := 0; col < maxCols; col++ {
		var parts []string
		for row := 0; row < settings.HeaderRows; row++ {
			if col < len(allRows[row]) {
				if value := strings.TrimSpace(allRows[row][col]); value != "" {
					parts = append(parts, value)
				}
			}
		}
		headers[col] = strings.Join(parts, " ")
	}

	return types.CleanHeaders(headers), nil
}

// extractDataRows converts the data records to rows, numbered by file line.
// Records with only empty cells are skipped.
func extractDataRows(allRows [][]string, lines []int, headers []string, settings config.CSVSettings) []types.Row {
	// DataStartRow is a 1-indexed record number.
	startIndex := settings.DataStartRow - 1
	if startIndex < settings.HeaderRows {
		startIndex = settings.HeaderRows
	}

	if startIndex >= len(allRows) {
		return []types.Row{}
	}

	rows := make([]types.Row, 0, len(allRows)-startIndex)
	for rowIndex := startIndex; rowIndex < len(allRows); rowIndex++ {
		record := allRows[rowIndex]
		if types.IsBlank(record) {
			continue
		}
		rows = append(rows, types.NewRow(lines[rowIndex], headers, record))
	}

	return rows
}
