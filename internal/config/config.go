// =============================================================================
// SEPA Credit Transfer - Configuration Module
// =============================================================================
//
// This module loads the application configuration and the batch profiles.
//
// CONFIGURATION FILES:
//   1. Main Config (config.yaml): directories, logging, output naming,
//      concurrency.
//   2. Batch Profiles (profiles/*.yaml): one per debtor account / input
//      layout. A profile names the debtor, says how to read the input file
//      and which column feeds which transaction field.
//
// LOADING:
//   YAML is decoded with gopkg.in/yaml.v3, defaults are applied, then the
//   struct is checked against its `validate` tags. Validation messages use
//   the YAML key names so they can be traced back to the file.
//
// =============================================================================

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/ginjaninja78/sepa-credit-transfer/internal/iban"
)

// ErrInvalidConfig is wrapped by every validation failure.
var ErrInvalidConfig = errors.New("invalid configuration")

// =============================================================================
// MAIN CONFIGURATION STRUCTURE
// =============================================================================

// MainConfig holds the global application configuration.
// This is loaded from the main config.yaml file.
type MainConfig struct {
	// =========================================================================
	// DIRECTORY SETTINGS
	// =========================================================================

	// InputDir is scanned for .csv and .xlsx files.
	// Default: "./input"
	InputDir string `yaml:"input_dir" validate:"required"`

	// OutputDir receives the generated pain.001 files and error reports.
	// Default: "./output"
	OutputDir string `yaml:"output_dir" validate:"required"`

	// InputArchiveDir receives input files after a successful build.
	// Default: "./input_archive"
	InputArchiveDir string `yaml:"input_archive_dir" validate:"required"`

	// OutputArchiveDir receives a copy of each generated file.
	// Default: "./output_archive"
	OutputArchiveDir string `yaml:"output_archive_dir" validate:"required"`

	// ProfilesDir contains the batch profile YAML files.
	// Default: "./profiles"
	ProfilesDir string `yaml:"profiles_dir" validate:"required"`

	// =========================================================================
	// LOGGING SETTINGS
	// =========================================================================

	// LogLevel controls the verbosity of logging.
	// Valid values: "debug", "info", "warn", "error"
	// Default: "info"
	LogLevel string `yaml:"log_level" validate:"oneof=debug info warn error"`

	// =========================================================================
	// OUTPUT SETTINGS
	// =========================================================================

	// OutputFileFormat defines the output file name.
	// Placeholders:
	//   {uuid}      - A random UUID
	//   {timestamp} - Current timestamp (YYYYMMDD_HHMMSS)
	//   {profile}   - Profile code
	//   {original}  - Input file name without extension
	//
	// Example: "{profile}_{timestamp}.xml"
	// Default: "{profile}_{uuid}.xml"
	OutputFileFormat string `yaml:"output_file_format" validate:"required"`

	// =========================================================================
	// PROCESSING SETTINGS
	// =========================================================================

	// MaxConcurrency is the maximum number of files built at the same time.
	// Set to 1 for sequential processing.
	// Default: 4
	MaxConcurrency int `yaml:"max_concurrency" validate:"min=1,max=64"`

	// ContinueOnError keeps processing the remaining files after one fails.
	// Default: true
	ContinueOnError bool `yaml:"continue_on_error"`

	// ArchiveOnSuccess moves the input file and copies the output file to the
	// archive directories after a successful build.
	// Default: true
	ArchiveOnSuccess bool `yaml:"archive_on_success"`
}

// =============================================================================
// BATCH PROFILE STRUCTURE
// =============================================================================

// BatchProfile describes one debtor account and the layout of its input files.
type BatchProfile struct {
	// ProfileName is the human-readable name used in logs.
	ProfileName string `yaml:"profile_name" validate:"required"`

	// ProfileCode is a short code used as the profile key and in output file
	// names.
	ProfileCode string `yaml:"profile_code" validate:"required"`

	// FileMatchingPatterns are glob patterns matched against the input file
	// name. The first profile with a matching pattern is used.
	//
	// Examples:
	//   - "payroll_*.csv"
	//   - "suppliers_*.xlsx"
	FileMatchingPatterns []string `yaml:"file_matching_patterns" validate:"dive,required"`

	// Debtor is the account every transfer in the batch is paid from.
	Debtor DebtorSettings `yaml:"debtor"`

	// DefaultCurrency is used for rows without a currency column or value.
	// Default: "EUR"
	DefaultCurrency string `yaml:"default_currency" validate:"iso4217"`

	// CSVSettings controls how .csv inputs are read.
	CSVSettings CSVSettings `yaml:"csv_settings"`

	// XLSXSettings controls how .xlsx inputs are read.
	XLSXSettings XLSXSettings `yaml:"xlsx_settings"`

	// ColumnMapping says which input header feeds which transaction field.
	ColumnMapping ColumnMapping `yaml:"column_mapping"`

	// TransformationRules are applied to raw cell values before mapping.
	TransformationRules []TransformationRule `yaml:"transformation_rules" validate:"dive"`
}

// DebtorSettings identifies the paying account.
type DebtorSettings struct {
	// IBAN of the debtor account. Spaces are allowed.
	IBAN string `yaml:"iban" validate:"required,iban"`

	// BIC of the debtor bank. Derived from the IBAN when empty.
	BIC string `yaml:"bic" validate:"omitempty,bic_shape"`
}

// =============================================================================
// INPUT LAYOUT STRUCTURES
// =============================================================================

// CSVSettings contains settings for parsing CSV files.
type CSVSettings struct {
	// Delimiter is the field separator.
	// Common values: "," (comma), ";" (semicolon), "|" (pipe), "\t" (tab)
	// Default: ","
	Delimiter string `yaml:"delimiter"`

	// HeaderRows is the number of header rows. Multi-row headers are merged
	// column by column with a space.
	// Default: 1
	HeaderRows int `yaml:"header_rows" validate:"min=1"`

	// DataStartRow is the 1-based row where data begins.
	// Default: HeaderRows + 1
	DataStartRow int `yaml:"data_start_row" validate:"gtfield=HeaderRows"`

	// Comment marks lines to skip, e.g. "#". Empty disables comments.
	Comment string `yaml:"comment" validate:"omitempty,len=1"`
}

// XLSXSettings contains settings for reading workbooks.
type XLSXSettings struct {
	// Sheet is the worksheet name. Default: the first sheet.
	Sheet string `yaml:"sheet"`

	// HeaderRow is the 1-based row holding the column headers; data starts
	// on the next row.
	// Default: 1
	HeaderRow int `yaml:"header_row" validate:"min=1"`
}

// ColumnMapping maps transaction fields to input headers. Empty entries
// mean the field is not present in the input.
type ColumnMapping struct {
	Recipient     string `yaml:"recipient" validate:"required"`
	Description   string `yaml:"description"`
	Amount        string `yaml:"amount" validate:"required"`
	Address       string `yaml:"address"`
	Country       string `yaml:"country"`
	IBAN          string `yaml:"iban" validate:"required"`
	BIC           string `yaml:"bic"`
	ExecutionDate string `yaml:"execution_date"`
	Currency      string `yaml:"currency"`
}

// Columns returns the mapped headers keyed by field name, skipping unmapped
// fields.
func (m ColumnMapping) Columns() map[string]string {
	all := map[string]string{
		"recipient":      m.Recipient,
		"description":    m.Description,
		"amount":         m.Amount,
		"address":        m.Address,
		"country":        m.Country,
		"iban":           m.IBAN,
		"bic":            m.BIC,
		"execution_date": m.ExecutionDate,
		"currency":       m.Currency,
	}
	for field, header := range all {
		if header == "" {
			delete(all, field)
		}
	}
	return all
}

// =============================================================================
// TRANSFORMATION RULE STRUCTURE
// =============================================================================

// TransformationRule defines the actions applied to one input column.
type TransformationRule struct {
	// Field is the input column header.
	Field string `yaml:"field" validate:"required"`

	// Actions are applied in order.
	Actions []TransformationAction `yaml:"actions" validate:"required,dive"`
}

// TransformationAction defines a single transformation action.
type TransformationAction struct {
	// Type is the action name. Supported types:
	//   - "prepend_string", "append_string"
	//   - "trim", "uppercase", "lowercase", "normalize_whitespace",
	//     "remove_whitespace"
	//   - "replace", "regex_replace"
	//   - "pad_zeros_to_length"
	//   - "decimal_comma"  : "1.234,56" -> "1234.56"
	//   - "format_number"  : fixed decimal places, e.g. value "2"
	//   - "format_date"    : value "input_layout|output_layout"
	//   - "lookup", "lookup_with_default"
	//   - "if_empty_use_default", "if_empty_use_field"
	//   - "extract_digits"
	Type string `yaml:"type" validate:"required,oneof=prepend_string append_string trim uppercase lowercase normalize_whitespace remove_whitespace replace regex_replace pad_zeros_to_length decimal_comma format_number format_date lookup lookup_with_default if_empty_use_default if_empty_use_field extract_digits"`

	// Value is the parameter for the action; its meaning depends on Type.
	Value string `yaml:"value"`

	// Find is the substring or pattern for "replace" and "regex_replace".
	Find string `yaml:"find,omitempty"`

	// LookupTable maps input values to output values for the lookup actions.
	LookupTable map[string]string `yaml:"lookup_table,omitempty"`
}

// =============================================================================
// VALIDATION
// =============================================================================

var (
	structValidator     *validator.Validate
	structValidatorOnce sync.Once
)

// getValidator returns the shared validator. Field names in errors are the
// YAML keys, and the "iban" / "bic_shape" tags use the identifier checks.
func getValidator() *validator.Validate {
	structValidatorOnce.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())

		v.RegisterTagNameFunc(func(field reflect.StructField) string {
			name := strings.SplitN(field.Tag.Get("yaml"), ",", 2)[0]
			if name == "-" || name == "" {
				return field.Name
			}
			return name
		})

		// Registration only fails on an empty tag or nil func.
		_ = v.RegisterValidation("iban", func(fl validator.FieldLevel) bool {
			return iban.ValidateChecksum(fl.Field().String())
		})
		_ = v.RegisterValidation("bic_shape", func(fl validator.FieldLevel) bool {
			return iban.ValidateBICShape(fl.Field().String())
		})

		structValidator = v
	})
	return structValidator
}

// validateStruct runs the tag checks and flattens the result into one error.
func validateStruct(s interface{}) error {
	err := getValidator().Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrors validator.ValidationErrors
	if !errors.As(err, &fieldErrors) {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	messages := make([]string, 0, len(fieldErrors))
	for _, fe := range fieldErrors {
		messages = append(messages, describeFieldError(fe))
	}
	return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(messages, "; "))
}

// describeFieldError turns a validator error into "key: problem".
func describeFieldError(fe validator.FieldError) string {
	// Namespace is "MainConfig.output_dir"; drop the struct name.
	key := fe.Namespace()
	if i := strings.Index(key, "."); i >= 0 {
		key = key[i+1:]
	}

	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", key)
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s], got %q", key, fe.Param(), fe.Value())
	case "min":
		return fmt.Sprintf("%s must be at least %s", key, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", key, fe.Param())
	case "iso4217":
		return fmt.Sprintf("%s must be an ISO 4217 currency code, got %q", key, fe.Value())
	case "iban":
		return fmt.Sprintf("%s is not a valid IBAN: %q", key, fe.Value())
	case "bic_shape":
		return fmt.Sprintf("%s is not a valid BIC: %q", key, fe.Value())
	case "gtfield":
		return fmt.Sprintf("%s must be greater than %s", key, fe.Param())
	default:
		return fmt.Sprintf("%s failed %q check", key, fe.Tag())
	}
}

// =============================================================================
// CONFIGURATION LOADING FUNCTIONS
// =============================================================================

// LoadMainConfig loads the main configuration from a YAML file.
//
// PARAMETERS:
//   - configPath: The path to the main configuration file.
//
// RETURNS:
//   - A pointer to the MainConfig struct.
//   - An error if the file cannot be read, parsed or validated.
func LoadMainConfig(configPath string) (*MainConfig, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return ParseMainConfig(data)
}

// ParseMainConfig decodes, defaults and validates a main configuration.
func ParseMainConfig(data []byte) (*MainConfig, error) {
	// Boolean defaults are set before decoding so that an explicit false in
	// the file wins.
	config := MainConfig{
		ContinueOnError:  true,
		ArchiveOnSuccess: true,
	}
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyMainConfigDefaults(&config)

	if err := validateStruct(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

// applyMainConfigDefaults sets default values for any unset configuration options.
func applyMainConfigDefaults(config *MainConfig) {
	if config.InputDir == "" {
		config.InputDir = "./input"
	}
	if config.OutputDir == "" {
		config.OutputDir = "./output"
	}
	if config.InputArchiveDir == "" {
		config.InputArchiveDir = "./input_archive"
	}
	if config.OutputArchiveDir == "" {
		config.OutputArchiveDir = "./output_archive"
	}
	if config.ProfilesDir == "" {
		config.ProfilesDir = "./profiles"
	}
	if config.LogLevel == "" {
		config.LogLevel = "info"
	}
	config.LogLevel = strings.ToLower(config.LogLevel)
	if config.OutputFileFormat == "" {
		config.OutputFileFormat = "{profile}_{uuid}.xml"
	}
	if config.MaxConcurrency == 0 {
		config.MaxConcurrency = 4
	}
}

// LoadProfiles loads all batch profiles from a directory.
//
// PARAMETERS:
//   - profilesDir: The directory containing *.yaml / *.yml profile files.
//
// RETURNS:
//   - A map of profiles keyed by profile code.
//   - An error if any file cannot be loaded or two files share a code.
func LoadProfiles(profilesDir string) (map[string]*BatchProfile, error) {
	profiles := make(map[string]*BatchProfile)

	files, err := filepath.Glob(filepath.Join(profilesDir, "*.yaml"))
	if err != nil {
		return nil, fmt.Errorf("failed to list profile files: %w", err)
	}

	ymlFiles, err := filepath.Glob(filepath.Join(profilesDir, "*.yml"))
	if err != nil {
		return nil, fmt.Errorf("failed to list profile files: %w", err)
	}
	files = append(files, ymlFiles...)
	sort.Strings(files)

	sources := make(map[string]string, len(files))
	for _, file := range files {
		profile, err := LoadProfile(file)
		if err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", file, err)
		}

		if previous, exists := sources[profile.ProfileCode]; exists {
			return nil, fmt.Errorf("duplicate profile_code %q in %s and %s", profile.ProfileCode, previous, file)
		}
		sources[profile.ProfileCode] = file
		profiles[profile.ProfileCode] = profile
	}

	return profiles, nil
}

// LoadProfile loads a single batch profile file.
func LoadProfile(filePath string) (*BatchProfile, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	return ParseProfile(data)
}

// ParseProfile decodes, defaults and validates a batch profile.
func ParseProfile(data []byte) (*BatchProfile, error) {
	var profile BatchProfile
	if err := yaml.Unmarshal(data, &profile); err != nil {
		return nil, fmt.Errorf("failed to parse file: %w", err)
	}

	applyProfileDefaults(&profile)

	if err := validateStruct(&profile); err != nil {
		return nil, err
	}

	return &profile, nil
}

// applyProfileDefaults sets default values for a batch profile.
func applyProfileDefaults(profile *BatchProfile) {
	if profile.DefaultCurrency == "" {
		profile.DefaultCurrency = "EUR"
	}
	profile.DefaultCurrency = strings.ToUpper(profile.DefaultCurrency)

	// CSV settings defaults.
	if profile.CSVSettings.Delimiter == "" {
		profile.CSVSettings.Delimiter = ","
	}
	if profile.CSVSettings.HeaderRows == 0 {
		profile.CSVSettings.HeaderRows = 1
	}
	if profile.CSVSettings.DataStartRow == 0 {
		profile.CSVSettings.DataStartRow = profile.CSVSettings.HeaderRows + 1
	}

	// XLSX settings defaults.
	if profile.XLSXSettings.HeaderRow == 0 {
		profile.XLSXSettings.HeaderRow = 1
	}
}

// MatchFile reports whether fileName matches one of the profile's patterns.
// Invalid patterns never match.
func (p *BatchProfile) MatchFile(fileName string) bool {
	for _, pattern := range p.FileMatchingPatterns {
		if matched, err := filepath.Match(pattern, fileName); err == nil && matched {
			return true
		}
	}
	return false
}
