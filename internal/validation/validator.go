// =============================================================================
// SEPA Credit Transfer - Row Validation Report
// =============================================================================
//
// This module checks every row of an input table before a batch is built.
// The batch builder stops at the first bad transfer; this report instead
// lists every problem in the file so it can be fixed in one pass.
//
// CHECKS PER ROW:
//   - Required fields: recipient, amount, IBAN
//   - Amount format: digits with at most two decimals
//   - IBAN checksum (with the expected check digits when only those are off)
//   - BIC shape, or BIC resolution when no BIC column is filled in
//   - Execution date format (2006-01-02)
//   - Currency code shape
//
// WARNINGS (do not block the batch):
//   - Description longer than 140 characters (it will be cut)
//   - Recipient name longer than 70 characters
//   - Country code that is not two letters
//
// =============================================================================

package validation

import (
	"bufio"
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/ginjaninja78/sepa-credit-transfer/internal/config"
	"github.com/ginjaninja78/sepa-credit-transfer/internal/iban"
	"github.com/ginjaninja78/sepa-credit-transfer/internal/sepa"
	"github.com/ginjaninja78/sepa-credit-transfer/internal/types"
)

// Severity levels.
const (
	SeverityError   = "error"
	SeverityWarning = "warning"
)

// DateLayout is the accepted execution date format.
const DateLayout = "2006-01-02"

// MaxRecipientLength is the creditor name limit of pain.001.
const MaxRecipientLength = 70

var (
	currencyPattern = regexp.MustCompile(`^[A-Z]{3}$`)
	countryPattern  = regexp.MustCompile(`^[A-Z]{2}$`)
)

// =============================================================================
// VALIDATION ERROR TYPES
// =============================================================================

// ValidationError represents a single validation error.
type ValidationError struct {
	// Severity is SeverityError or SeverityWarning.
	Severity string

	// RowNumber is the row in the input file. Zero for file-level problems.
	RowNumber int

	// Field is the transaction field, e.g. "iban".
	Field string

	// Value is the offending input value.
	Value string

	// Rule is the check that failed, e.g. "checksum".
	Rule string

	// Message is a human-readable error message.
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	location := "File"
	if e.RowNumber > 0 {
		location = fmt.Sprintf("Row %d", e.RowNumber)
	}
	return fmt.Sprintf("[%s] %s, Field '%s': %s (value: '%s')",
		strings.ToUpper(e.Severity),
		location,
		e.Field,
		e.Message,
		e.Value,
	)
}

// =============================================================================
// VALIDATION RESULT
// =============================================================================

// ValidationResult contains the results of validation.
type ValidationResult struct {
	// IsValid is true if there are no fatal errors.
	IsValid bool

	// Errors contains all validation errors (including warnings).
	Errors []*ValidationError

	ErrorCount    int
	WarningCount  int
	RowsValidated int
}

// ValidationOptions contains options for validation.
type ValidationOptions struct {
	// StopOnFirstError stops validation after the first fatal error.
	StopOnFirstError bool

	// TreatWarningsAsErrors makes any warning invalidate the result.
	TreatWarningsAsErrors bool
}

// =============================================================================
// VALIDATOR
// =============================================================================

// Validator checks input rows against a profile's column mapping.
type Validator struct {
	mapping         config.ColumnMapping
	defaultCurrency string
	options         ValidationOptions
}

// NewValidator creates a Validator with default options.
func NewValidator(mapping config.ColumnMapping, defaultCurrency string) *Validator {
	return NewValidatorWithOptions(mapping, defaultCurrency, ValidationOptions{})
}

// NewValidatorWithOptions creates a Validator with custom options.
func NewValidatorWithOptions(mapping config.ColumnMapping, defaultCurrency string, options ValidationOptions) *Validator {
	return &Validator{
		mapping:         mapping,
		defaultCurrency: defaultCurrency,
		options:         options,
	}
}

// ValidateRows is a shortcut for NewValidator(...).Validate(table).
func ValidateRows(table *types.Table, mapping config.ColumnMapping, defaultCurrency string) *ValidationResult {
	return NewValidator(mapping, defaultCurrency).Validate(table)
}

// Validate checks the table headers and then every row.
func (v *Validator) Validate(table *types.Table) *ValidationResult {
	result := &ValidationResult{
		IsValid: true,
		Errors:  make([]*ValidationError, 0),
	}

	// A mapped column missing from the file would fail every row the same
	// way, so it is reported once.
	if headerErrors := v.validateHeaders(table); len(headerErrors) > 0 {
		v.collect(result, headerErrors)
		return result
	}

	for _, row := range table.Rows {
		result.RowsValidated++
		if v.collect(result, v.ValidateRow(row)) {
			return result
		}
	}

	return result
}

// collect adds errs to result and reports whether validation should stop.
func (v *Validator) collect(result *ValidationResult, errs []*ValidationError) bool {
	for _, err := range errs {
		result.Errors = append(result.Errors, err)

		if err.Severity == SeverityError {
			result.ErrorCount++
			result.IsValid = false

			if v.options.StopOnFirstError {
				return true
			}
		} else {
			result.WarningCount++

			if v.options.TreatWarningsAsErrors {
				result.IsValid = false
			}
		}
	}
	return false
}

// validateHeaders reports mapped columns that do not exist in the table.
func (v *Validator) validateHeaders(table *types.Table) []*ValidationError {
	var errs []*ValidationError

	columns := v.mapping.Columns()
	for _, field := range sortedFields(columns) {
		header := columns[field]
		if !table.HasHeader(header) {
			errs = append(errs, &ValidationError{
				Severity: SeverityError,
				Field:    field,
				Value:    header,
				Rule:     "column",
				Message:  fmt.Sprintf("mapped column %q not found in file", header),
			})
		}
	}

	return errs
}

// ValidateRow checks one row. All problems are returned, not just the first.
func (v *Validator) ValidateRow(row types.Row) []*ValidationError {
	var errs []*ValidationError

	add := func(severity, field, value, rule, message string) {
		errs = append(errs, &ValidationError{
			Severity:  severity,
			RowNumber: row.Number,
			Field:     field,
			Value:     value,
			Rule:      rule,
			Message:   message,
		})
	}

	// Recipient.
	recipient := row.Get(v.mapping.Recipient)
	switch {
	case recipient == "":
		add(SeverityError, "recipient", recipient, "required", "recipient is empty")
	case utf8.RuneCountInString(recipient) > MaxRecipientLength:
		add(SeverityWarning, "recipient", recipient, "max_length",
			fmt.Sprintf("recipient is longer than %d characters", MaxRecipientLength))
	}

	// Amount.
	amount := row.Get(v.mapping.Amount)
	if amount == "" {
		add(SeverityError, "amount", amount, "required", "amount is empty")
	} else if _, err := sepa.ParseAmount(amount); err != nil {
		add(SeverityError, "amount", amount, "format", "amount is not in expected format, should be 0.00")
	}

	// Creditor IBAN and BIC.
	account := row.Get(v.mapping.IBAN)
	bic := row.Get(v.mapping.BIC)
	switch {
	case account == "":
		add(SeverityError, "iban", account, "required", "IBAN is empty")
	case !iban.ValidateChecksum(account):
		add(SeverityError, "iban", account, "checksum", ibanMessage(account))
	case bic == "":
		if _, err := iban.ResolveBIC(account); err != nil {
			add(SeverityError, "bic", account, "resolve", "BIC is empty and cannot be derived from the IBAN")
		}
	}
	if bic != "" && !iban.ValidateBICShape(bic) {
		add(SeverityError, "bic", bic, "format", "BIC must be 8 or 11 characters: bank, country, location, branch")
	}

	// Execution date.
	if date := row.Get(v.mapping.ExecutionDate); date != "" {
		if _, err := time.Parse(DateLayout, date); err != nil {
			add(SeverityError, "execution_date", date, "format", "execution date must be formatted as YYYY-MM-DD")
		}
	}

	// Currency.
	currency := strings.ToUpper(row.Get(v.mapping.Currency))
	if currency == "" {
		currency = v.defaultCurrency
	}
	if currency != "" && !currencyPattern.MatchString(currency) {
		add(SeverityError, "currency", currency, "format", "currency must be a three-letter ISO 4217 code")
	}

	// Warnings.
	if description := row.Get(v.mapping.Description); utf8.RuneCountInString(description) > sepa.MaxDescriptionLength {
		add(SeverityWarning, "description", description, "max_length",
			fmt.Sprintf("description is longer than %d characters and will be cut", sepa.MaxDescriptionLength))
	}
	if country := row.Get(v.mapping.Country); country != "" && !countryPattern.MatchString(strings.ToUpper(country)) {
		add(SeverityWarning, "country", country, "format", "country should be a two-letter ISO 3166 code")
	}

	return errs
}

// ibanMessage explains a checksum failure. When the IBAN only has the wrong
// check digits, the expected ones are included.
func ibanMessage(value string) string {
	normalized := iban.Normalize(value)
	if len(normalized) < 5 {
		return "IBAN is too short"
	}

	expected, err := iban.CheckDigits(normalized[:2], normalized[4:])
	if err != nil {
		return "IBAN checksum is invalid"
	}

	return fmt.Sprintf("IBAN checksum is invalid (check digits for this account would be %s)", expected)
}

// sortedFields returns the keys of a column mapping in transaction field
// order, so reports are stable.
func sortedFields(columns map[string]string) []string {
	order := []string{"recipient", "description", "amount", "address", "country", "iban", "bic", "execution_date", "currency"}

	fields := make([]string, 0, len(columns))
	for _, field := range order {
		if _, ok := columns[field]; ok {
			fields = append(fields, field)
		}
	}
	return fields
}

// =============================================================================
// ERROR FORMATTING
// =============================================================================

// FormatErrors formats validation errors for display or logging.
func FormatErrors(errors []*ValidationError) string {
	if len(errors) == 0 {
		return "No validation errors."
	}

	var builder strings.Builder

	builder.WriteString(fmt.Sprintf("Validation completed with %d problem(s):\n\n", len(errors)))

	for i, err := range errors {
		builder.WriteString(fmt.Sprintf("%d. %s\n", i+1, err.Error()))
	}

	return builder.String()
}

// WriteErrorLog writes validation errors to a text file.
//
// PARAMETERS:
//   - errors: The validation errors to write.
//   - source: The input file the errors belong to.
//   - filePath: The path to the output file.
func WriteErrorLog(errors []*ValidationError, source, filePath string) error {
	file, err := os.Create(filePath)
	if err != nil {
		return fmt.Errorf("failed to create error log: %w", err)
	}
	defer file.Close()

	writer := bufio.NewWriter(file)
	fmt.Fprintf(writer, "Validation report for %s\n", source)
	fmt.Fprintf(writer, "Generated: %s\n\n", time.Now().Format(time.RFC3339))
	writer.WriteString(FormatErrors(errors))

	if err := writer.Flush(); err != nil {
		return fmt.Errorf("failed to write error log: %w", err)
	}

	return nil
}
