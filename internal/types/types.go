// =============================================================================
// SEPA Credit Transfer - Shared Types
// =============================================================================
//
// This package contains the tabular input model shared by the readers and the
// pipeline. Types defined here are used by:
//   - csvparser / xlsxparser (produce tables)
//   - validation (reports problems per row)
//   - converter (maps rows to transactions)
//
// =============================================================================

package types

import (
	"fmt"
	"strings"
)

// =============================================================================
// INPUT TABLE
// =============================================================================

// Table is an input file read into rows keyed by header.
type Table struct {
	// Source is the path of the file the table was read from.
	Source string

	// Headers contains the cleaned column headers in file order.
	Headers []string

	// Rows contains the non-empty data rows in file order.
	Rows []Row
}

// Row is a single data row.
type Row struct {
	// Number is the 1-based row number in the source file, used in reports.
	Number int

	// Fields maps header -> cell value. Values are trimmed.
	Fields map[string]string
}

// NewRow builds a Row from positional cells. Missing trailing cells become
// empty strings; surplus cells are dropped.
func NewRow(number int, headers, cells []string) Row {
	fields := make(map[string]string, len(headers))
	for i, header := range headers {
		if i < len(cells) {
			fields[header] = strings.TrimSpace(cells[i])
		} else {
			fields[header] = ""
		}
	}
	return Row{Number: number, Fields: fields}
}

// Get returns the value for header, or "" when header is empty or absent.
func (r Row) Get(header string) string {
	if header == "" {
		return ""
	}
	return r.Fields[header]
}

// HasHeader reports whether the table has a column named header.
func (t *Table) HasHeader(header string) bool {
	for _, h := range t.Headers {
		if h == header {
			return true
		}
	}
	return false
}

// =============================================================================
// HELPERS
// =============================================================================

// CleanHeaders trims headers and names blank ones "Column_N".
func CleanHeaders(headers []string) []string {
	cleaned := make([]string, len(headers))
	for i, header := range headers {
		header = strings.TrimSpace(header)
		if header == "" {
			header = fmt.Sprintf("Column_%d", i+1)
		}
		cleaned[i] = header
	}
	return cleaned
}

// IsBlank reports whether every cell is empty or whitespace.
func IsBlank(cells []string) bool {
	for _, cell := range cells {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
