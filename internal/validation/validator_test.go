package validation

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ginjaninja78/sepa-credit-transfer/internal/config"
	"github.com/ginjaninja78/sepa-credit-transfer/internal/types"
)

var testMapping = config.ColumnMapping{
	Recipient:     "Name",
	Description:   "Description",
	Amount:        "Amount",
	Country:       "Country",
	IBAN:          "IBAN",
	BIC:           "BIC",
	ExecutionDate: "Date",
	Currency:      "Currency",
}

var testHeaders = []string{"Name", "Description", "Amount", "Country", "IBAN", "BIC", "Date", "Currency"}

func newTable(rows ...[]string) *types.Table {
	table := &types.Table{Headers: testHeaders}
	for i, cells := range rows {
		table.Rows = append(table.Rows, types.NewRow(i+2, testHeaders, cells))
	}
	return table
}

func fieldsOf(errs []*ValidationError) []string {
	fields := make([]string, 0, len(errs))
	for _, err := range errs {
		fields = append(fields, err.Field+":"+err.Rule)
	}
	return fields
}

func TestValidateValidRows(t *testing.T) {
	table := newTable(
		[]string{"Jane Doe", "Rent", "100.00", "NL", "NL39RABO0300065264", "", "2024-03-15", ""},
		[]string{"John Roe", "", "5", "", "NL91 ABNA 0417 1643 00", "abnanl2a", "", "usd"},
	)

	result := ValidateRows(table, testMapping, "EUR")

	assert.True(t, result.IsValid)
	assert.Empty(t, result.Errors)
	assert.Equal(t, 2, result.RowsValidated)
}

func TestValidateRowCollectsEveryProblem(t *testing.T) {
	row := types.NewRow(7, testHeaders, []string{"", "", "1,50", "", "NL92ABNA0417164300", "AB", "15-03-2024", "EURO"})

	errs := NewValidator(testMapping, "EUR").ValidateRow(row)

	assert.Equal(t, []string{
		"recipient:required",
		"amount:format",
		"iban:checksum",
		"bic:format",
		"execution_date:format",
		"currency:format",
	}, fieldsOf(errs))

	for _, err := range errs {
		assert.Equal(t, 7, err.RowNumber)
		assert.Equal(t, SeverityError, err.Severity)
	}
}

func TestValidateRowSuggestsCheckDigits(t *testing.T) {
	row := types.NewRow(2, testHeaders, []string{"Jane", "", "1.00", "", "NL92ABNA0417164300", "", "", ""})

	errs := NewValidator(testMapping, "EUR").ValidateRow(row)

	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Message, "would be 91")
}

func TestValidateRowUnresolvableBIC(t *testing.T) {
	row := types.NewRow(2, testHeaders, []string{"Hans", "", "1.00", "DE", "DE89370400440532013000", "", "", ""})

	errs := NewValidator(testMapping, "EUR").ValidateRow(row)
	assert.Equal(t, []string{"bic:resolve"}, fieldsOf(errs))

	row = types.NewRow(2, testHeaders, []string{"Hans", "", "1.00", "DE", "DE89370400440532013000", "COBADEFF", "", ""})
	assert.Empty(t, NewValidator(testMapping, "EUR").ValidateRow(row))
}

func TestValidateRowWarnings(t *testing.T) {
	row := types.NewRow(3, testHeaders, []string{
		strings.Repeat("n", 71),
		strings.Repeat("d", 141),
		"1.00",
		"Netherlands",
		"NL39RABO0300065264",
		"", "", "",
	})

	errs := NewValidator(testMapping, "EUR").ValidateRow(row)
	assert.Equal(t, []string{"recipient:max_length", "description:max_length", "country:format"}, fieldsOf(errs))
	for _, err := range errs {
		assert.Equal(t, SeverityWarning, err.Severity)
	}
}

func TestValidateCountsAndOptions(t *testing.T) {
	table := newTable(
		[]string{"", "", "", "", "", "", "", ""},
		[]string{"Jane", strings.Repeat("d", 141), "1.00", "", "NL39RABO0300065264", "", "", ""},
	)

	result := ValidateRows(table, testMapping, "EUR")
	assert.False(t, result.IsValid)
	assert.Equal(t, 3, result.ErrorCount)
	assert.Equal(t, 1, result.WarningCount)
	assert.Equal(t, 2, result.RowsValidated)

	stop := NewValidatorWithOptions(testMapping, "EUR", ValidationOptions{StopOnFirstError: true}).Validate(table)
	assert.Equal(t, 1, stop.ErrorCount)
	assert.Equal(t, 1, stop.RowsValidated)
}

func TestValidateWarningsAsErrors(t *testing.T) {
	table := newTable([]string{"Jane", strings.Repeat("d", 141), "1.00", "", "NL39RABO0300065264", "", "", ""})

	lenient := ValidateRows(table, testMapping, "EUR")
	assert.True(t, lenient.IsValid)

	strict := NewValidatorWithOptions(testMapping, "EUR", ValidationOptions{TreatWarningsAsErrors: true}).Validate(table)
	assert.False(t, strict.IsValid)
	assert.Equal(t, 0, strict.ErrorCount)
}

func TestValidateMissingColumns(t *testing.T) {
	table := &types.Table{
		Headers: []string{"Name", "Amount"},
		Rows:    []types.Row{types.NewRow(2, []string{"Name", "Amount"}, []string{"Jane", "1.00"})},
	}

	result := ValidateRows(table, config.ColumnMapping{Recipient: "Name", Amount: "Amount", IBAN: "Account"}, "EUR")

	assert.False(t, result.IsValid)
	assert.Equal(t, 0, result.RowsValidated)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, "iban", result.Errors[0].Field)
	assert.Equal(t, `[ERROR] File, Field 'iban': mapped column "Account" not found in file (value: 'Account')`, result.Errors[0].Error())
}

func TestFormatErrors(t *testing.T) {
	assert.Equal(t, "No validation errors.", FormatErrors(nil))

	out := FormatErrors([]*ValidationError{{
		Severity:  SeverityError,
		RowNumber: 4,
		Field:     "amount",
		Value:     "abc",
		Message:   "amount is not in expected format, should be 0.00",
	}})
	assert.Contains(t, out, "1 problem(s)")
	assert.Contains(t, out, "1. [ERROR] Row 4, Field 'amount': amount is not in expected format, should be 0.00 (value: 'abc')")
}

func TestWriteErrorLog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "payroll_errors.txt")
	errs := []*ValidationError{{Severity: SeverityError, RowNumber: 2, Field: "iban", Message: "IBAN is empty"}}

	require.NoError(t, WriteErrorLog(errs, "payroll.csv", path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Validation report for payroll.csv")
	assert.Contains(t, string(data), "Row 2, Field 'iban': IBAN is empty")

	assert.Error(t, WriteErrorLog(errs, "payroll.csv", filepath.Join(t.TempDir(), "missing", "x.txt")))
}
