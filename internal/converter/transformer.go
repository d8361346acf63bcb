// =============================================================================
// SEPA Credit Transfer - Transformation Engine
// =============================================================================
//
// This module cleans raw input values before they are mapped to transfers.
// Bank exports rarely match what a pain.001 file needs: amounts written as
// "1.234,56", IBANs printed in groups of four, names in capitals, dates as
// DD/MM/YYYY. Profiles fix these with transformation rules.
//
// RULE EVALUATION:
//   Rules run in the order they appear in the profile, and the actions of a
//   rule run in sequence. A rule sees the results of the rules before it, so
//   if_empty_use_field can copy an already-cleaned column.
//
//   A rule may name a column that the file does not have. The column is then
//   added, which lets a profile derive values, e.g. a fixed currency.
//
// =============================================================================

package converter

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ginjaninja78/sepa-credit-transfer/internal/config"
	"github.com/ginjaninja78/sepa-credit-transfer/internal/types"
)

var (
	digitsPattern     = regexp.MustCompile(`\d+`)
	whitespacePattern = regexp.MustCompile(`\s+`)
)

// =============================================================================
// TRANSFORMER
// =============================================================================

// Transformer applies a profile's transformation rules to rows.
type Transformer struct {
	rules []config.TransformationRule
}

// NewTransformer creates a new Transformer with the given rules.
func NewTransformer(rules []config.TransformationRule) *Transformer {
	return &Transformer{
		rules: rules,
	}
}

// TransformTable applies every rule to every row of table, in place.
// Columns created by rules are appended to the table headers.
func (t *Transformer) TransformTable(table *types.Table) error {
	for _, rule := range t.rules {
		if !table.HasHeader(rule.Field) {
			table.Headers = append(table.Headers, rule.Field)
		}
	}

	for i := range table.Rows {
		if err := t.TransformRow(&table.Rows[i]); err != nil {
			return err
		}
	}

	return nil
}

// TransformRow applies every rule to one row, in place.
func (t *Transformer) TransformRow(row *types.Row) error {
	if row.Fields == nil {
		row.Fields = make(map[string]string)
	}

	for _, rule := range t.rules {
		value, err := t.apply(rule, row.Fields[rule.Field], row.Fields)
		if err != nil {
			return fmt.Errorf("row %d, field '%s': %w", row.Number, rule.Field, err)
		}
		row.Fields[rule.Field] = value
	}

	return nil
}

// Transform applies the rules for fieldName to a single value.
//
// PARAMETERS:
//   - fieldName: The input column the value comes from.
//   - value: The current value.
//   - allFields: All fields of the row (for if_empty_use_field).
func (t *Transformer) Transform(fieldName, value string, allFields map[string]string) (string, error) {
	result := value
	for _, rule := range t.rules {
		if rule.Field != fieldName {
			continue
		}
		var err error
		if result, err = t.apply(rule, result, allFields); err != nil {
			return "", err
		}
	}
	return result, nil
}

func (t *Transformer) apply(rule config.TransformationRule, value string, allFields map[string]string) (string, error) {
	result := value
	for _, action := range rule.Actions {
		var err error
		result, err = ApplyTransformation(result, action, allFields)
		if err != nil {
			return "", fmt.Errorf("transformation '%s' failed: %w", action.Type, err)
		}
	}
	return result, nil
}

// =============================================================================
// TRANSFORMATION FUNCTIONS
// =============================================================================

// ApplyTransformation applies a single transformation action.
//
// PARAMETERS:
//   - value: The current value.
//   - action: The transformation action to apply.
//   - allFields: All fields in the current row.
//
// RETURNS:
//   - The transformed value.
//   - An error if the action is unknown or misconfigured.
func ApplyTransformation(value string, action config.TransformationAction, allFields map[string]string) (string, error) {
	switch action.Type {

	// =========================================================================
	// STRING MANIPULATIONS
	// =========================================================================

	case "prepend_string":
		return action.Value + value, nil

	case "append_string":
		return value + action.Value, nil

	case "trim":
		return strings.TrimSpace(value), nil

	case "uppercase":
		return strings.ToUpper(value), nil

	case "lowercase":
		return strings.ToLower(value), nil

	case "normalize_whitespace":
		// "Jane   Doe " -> "Jane Doe"
		return strings.TrimSpace(whitespacePattern.ReplaceAllString(value, " ")), nil

	case "remove_whitespace":
		// "NL91 ABNA 0417 1643 00" -> "NL91ABNA0417164300"
		return whitespacePattern.ReplaceAllString(value, ""), nil

	case "replace":
		if action.Find == "" {
			return value, nil
		}
		return strings.ReplaceAll(value, action.Find, action.Value), nil

	case "regex_replace":
		if action.Find == "" {
			return value, nil
		}
		re, err := regexp.Compile(action.Find)
		if err != nil {
			return "", fmt.Errorf("invalid regex pattern: %w", err)
		}
		return re.ReplaceAllString(value, action.Value), nil

	// =========================================================================
	// NUMERIC FORMATTING
	// =========================================================================

	case "pad_zeros_to_length":
		// "123" with value "8" -> "00000123"
		targetLength, err := strconv.Atoi(action.Value)
		if err != nil || targetLength <= 0 {
			return "", fmt.Errorf("invalid length %q", action.Value)
		}
		return PadLeft(value, targetLength, '0'), nil

	case "decimal_comma":
		// European notation: "1.234,56" -> "1234.56"
		if !strings.Contains(value, ",") {
			return value, nil
		}
		value = strings.ReplaceAll(value, ".", "")
		return strings.Replace(value, ",", ".", 1), nil

	case "format_number":
		// "1234.5" with value "2" -> "1234.50". Rounds half away from zero.
		places, err := strconv.Atoi(action.Value)
		if err != nil || places < 0 {
			return "", fmt.Errorf("invalid number of decimal places %q", action.Value)
		}
		num, err := decimal.NewFromString(strings.TrimSpace(value))
		if err != nil {
			// Not a number; validation reports it.
			return value, nil
		}
		return num.StringFixed(int32(places)), nil

	case "extract_digits":
		return strings.Join(digitsPattern.FindAllString(value, -1), ""), nil

	// =========================================================================
	// DATE CONVERSIONS
	// =========================================================================

	case "format_date":
		// Value is "input_layout|output_layout" in Go time layout syntax,
		// e.g. "02/01/2006|2006-01-02".
		layouts := strings.Split(action.Value, "|")
		if len(layouts) != 2 {
			return "", fmt.Errorf("format_date needs \"input|output\" layouts, got %q", action.Value)
		}
		if value == "" {
			return value, nil
		}
		parsed, err := time.Parse(strings.TrimSpace(layouts[0]), value)
		if err != nil {
			// Left for validation to report with the row number.
			return value, nil
		}
		return parsed.Format(strings.TrimSpace(layouts[1])), nil

	// =========================================================================
	// LOOKUPS AND DEFAULTS
	// =========================================================================

	case "lookup":
		if replacement, exists := action.LookupTable[value]; exists {
			return replacement, nil
		}
		return value, nil

	case "lookup_with_default":
		if replacement, exists := action.LookupTable[value]; exists {
			return replacement, nil
		}
		return action.Value, nil

	case "if_empty_use_default":
		if strings.TrimSpace(value) == "" {
			return action.Value, nil
		}
		return value, nil

	case "if_empty_use_field":
		if strings.TrimSpace(value) == "" {
			return allFields[action.Value], nil
		}
		return value, nil

	default:
		return "", fmt.Errorf("unknown transformation type: %s", action.Type)
	}
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// PadLeft pads a string with a character on the left to reach the target length.
func PadLeft(s string, length int, padChar rune) string {
	if len(s) >= length {
		return s
	}
	return strings.Repeat(string(padChar), length-len(s)) + s
}
