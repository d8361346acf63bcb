// =============================================================================
// SEPA Credit Transfer - Converter Module
// =============================================================================
//
// This module turns one input file into one pain.001 batch. It orchestrates
// the pipeline for a single file, from reading rows to archiving the result.
//
// CONVERSION PIPELINE:
//   1. Read the input file (CSV or XLSX, by extension)
//   2. Apply the profile's transformation rules
//   3. Validate every row and collect all problems
//   4. Map rows to transfers and add them to a batch for the profile debtor
//   5. Render the pain.001 document
//   6. Write the output file
//   7. Archive the processed files
//
// CONCURRENCY:
//   A Converter owns its batch and touches only its own input file, so the
//   build command runs one Converter per file in parallel.
//
// =============================================================================

package converter

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ginjaninja78/sepa-credit-transfer/internal/config"
	"github.com/ginjaninja78/sepa-credit-transfer/internal/csvparser"
	"github.com/ginjaninja78/sepa-credit-transfer/internal/logging"
	"github.com/ginjaninja78/sepa-credit-transfer/internal/sepa"
	"github.com/ginjaninja78/sepa-credit-transfer/internal/types"
	"github.com/ginjaninja78/sepa-credit-transfer/internal/validation"
	"github.com/ginjaninja78/sepa-credit-transfer/internal/xlsxparser"
	"github.com/ginjaninja78/sepa-credit-transfer/pkg/utils"
)

var (
	// ErrValidationFailed is returned when the row report has errors. The
	// details are in Result.Validation and in the error report file.
	ErrValidationFailed = errors.New("input validation failed")

	// ErrUnsupportedFormat is returned for inputs that are neither CSV nor XLSX.
	ErrUnsupportedFormat = errors.New("unsupported input format")
)

// =============================================================================
// RESULT STRUCTURE
// =============================================================================

// Result represents the outcome of processing a single file.
type Result struct {
	// FilePath is the path to the input file that was processed.
	FilePath string

	// Profile is the code of the batch profile used.
	Profile string

	// OutputFile is the path to the generated XML file. Empty if processing
	// failed or on a dry run.
	OutputFile string

	// ErrorReport is the path to the row validation report, if one was written.
	ErrorReport string

	// Document is the rendered pain.001 document.
	Document []byte

	// Validation is the row validation report.
	Validation *validation.ValidationResult

	Success bool

	// Error contains the error if processing failed.
	Error error

	Stats ProcessingStats
}

// ProcessingStats contains statistics about the processing.
type ProcessingStats struct {
	RowsRead           int
	Transactions       int
	ControlSum         decimal.Decimal
	ValidationErrors   int
	ValidationWarnings int
	ProcessingTime     time.Duration
}

// =============================================================================
// CONVERTER STRUCTURE
// =============================================================================

// Converter handles the conversion of a single input file.
type Converter struct {
	filePath   string
	profile    *config.BatchProfile
	mainConfig *config.MainConfig
	files      *utils.FileManager
	logger     logging.Logger
	dryRun     bool
	batchOpts  []sepa.Option
}

// Option customizes a Converter.
type Option func(*Converter)

// WithLogger sets the logger. The batch builder logs through it as well.
func WithLogger(logger logging.Logger) Option {
	return func(c *Converter) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithDryRun renders the document without writing or archiving anything.
func WithDryRun(dryRun bool) Option {
	return func(c *Converter) {
		c.dryRun = dryRun
	}
}

// WithBatchOptions passes options through to sepa.NewBatch.
func WithBatchOptions(opts ...sepa.Option) Option {
	return func(c *Converter) {
		c.batchOpts = append(c.batchOpts, opts...)
	}
}

// =============================================================================
// CONSTRUCTOR
// =============================================================================

// New creates a new Converter instance.
//
// PARAMETERS:
//   - filePath: The path to the input file.
//   - profile: The batch profile for the file.
//   - mainConfig: The main application configuration.
func New(filePath string, profile *config.BatchProfile, mainConfig *config.MainConfig, opts ...Option) *Converter {
	files := utils.NewFileManager(
		mainConfig.InputDir,
		mainConfig.OutputDir,
		mainConfig.InputArchiveDir,
		mainConfig.OutputArchiveDir,
	)
	files.ArchiveOnSuccess = mainConfig.ArchiveOnSuccess

	c := &Converter{
		filePath:   filePath,
		profile:    profile,
		mainConfig: mainConfig,
		files:      files,
		logger:     logging.Nop(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// =============================================================================
// MAIN PROCESSING FUNCTION
// =============================================================================

// Run executes the conversion pipeline for the file.
func (c *Converter) Run() (result Result) {
	startTime := time.Now()
	result = Result{
		FilePath: c.filePath,
		Profile:  c.profile.ProfileCode,
	}
	defer func() {
		result.Stats.ProcessingTime = time.Since(startTime)
	}()

	c.logger.Infof("Processing file %s with profile %s", c.filePath, c.profile.ProfileCode)

	// =========================================================================
	// STEPS 1-3: READ, TRANSFORM AND VALIDATE
	// =========================================================================

	table, report, err := c.Check()
	if err != nil {
		result.Error = err
		return result
	}

	result.Validation = report
	result.Stats.RowsRead = len(table.Rows)
	result.Stats.ValidationErrors = report.ErrorCount
	result.Stats.ValidationWarnings = report.WarningCount

	for _, ve := range report.Errors {
		if ve.Severity == validation.SeverityWarning {
			c.logger.Warnf("%s: %s", filepath.Base(c.filePath), ve.Error())
		}
	}

	if !report.IsValid {
		result.Error = fmt.Errorf("%w: %d error(s) in %s", ErrValidationFailed, report.ErrorCount, filepath.Base(c.filePath))
		result.ErrorReport = c.writeErrorReport(report)
		return result
	}

	// =========================================================================
	// STEP 4: BUILD THE BATCH
	// =========================================================================

	batch, err := c.buildBatch(table)
	if err != nil {
		result.Error = err
		return result
	}

	result.Stats.Transactions = batch.Len()
	result.Stats.ControlSum = batch.Total()

	// =========================================================================
	// STEP 5: RENDER
	// =========================================================================

	document, err := batch.Render()
	if err != nil {
		result.Error = fmt.Errorf("failed to render batch: %w", err)
		return result
	}
	result.Document = document

	if c.dryRun {
		c.logger.Infof("Dry run: %d transfer(s), total %s, nothing written", batch.Len(), batch.Total().StringFixed(2))
		result.Success = true
		return result
	}

	// =========================================================================
	// STEP 6: WRITE OUTPUT FILE
	// =========================================================================

	fileName := utils.GenerateOutputFileName(c.mainConfig.OutputFileFormat, map[string]string{
		"profile":  c.profile.ProfileCode,
		"original": utils.BaseName(c.filePath),
	})

	outputPath, err := c.files.WriteOutputFile(fileName, document)
	if err != nil {
		result.Error = fmt.Errorf("failed to write output: %w", err)
		return result
	}

	result.OutputFile = outputPath
	c.logger.Infof("Wrote %d transfer(s), total %s, to %s", batch.Len(), batch.Total().StringFixed(2), outputPath)

	// =========================================================================
	// STEP 7: ARCHIVE FILES
	// =========================================================================
	// Archival problems are logged; the batch file is already written.

	if c.mainConfig.ArchiveOnSuccess {
		if _, err := c.files.ArchiveInputFile(c.filePath); err != nil {
			c.logger.Warnf("Failed to archive input file: %v", err)
		}
		if _, err := c.files.ArchiveOutputFile(outputPath); err != nil {
			c.logger.Warnf("Failed to archive output file: %v", err)
		}
	}

	result.Success = true
	return result
}

// Check reads, transforms and validates the input file without building a
// batch. The returned report lists every problem found.
func (c *Converter) Check() (*types.Table, *validation.ValidationResult, error) {
	table, err := ReadTable(c.filePath, c.profile)
	if err != nil {
		return nil, nil, err
	}
	c.logger.Debugf("Read %d row(s) from %s", len(table.Rows), c.filePath)

	if err := NewTransformer(c.profile.TransformationRules).TransformTable(table); err != nil {
		return nil, nil, fmt.Errorf("failed to apply transformations: %w", err)
	}

	report := validation.ValidateRows(table, c.profile.ColumnMapping, c.profile.DefaultCurrency)
	c.logger.Debugf("Validated %d row(s): %d error(s), %d warning(s)", report.RowsValidated, report.ErrorCount, report.WarningCount)

	return table, report, nil
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// ReadTable reads an input file with the reader that matches its extension.
func ReadTable(filePath string, profile *config.BatchProfile) (*types.Table, error) {
	switch strings.ToLower(filepath.Ext(filePath)) {
	case ".csv":
		table, err := csvparser.Parse(filePath, profile.CSVSettings)
		if err != nil {
			return nil, fmt.Errorf("failed to parse CSV: %w", err)
		}
		return table, nil
	case ".xlsx":
		table, err := xlsxparser.Parse(filePath, profile.XLSXSettings)
		if err != nil {
			return nil, fmt.Errorf("failed to parse XLSX: %w", err)
		}
		return table, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(filePath))
	}
}

// buildBatch creates the batch for the profile debtor and adds one transfer
// per row, in file order.
func (c *Converter) buildBatch(table *types.Table) (*sepa.Batch, error) {
	opts := append([]sepa.Option{sepa.WithLogger(c.logger)}, c.batchOpts...)

	batch, err := sepa.NewBatch(c.profile.Debtor.IBAN, c.profile.Debtor.BIC, opts...)
	if err != nil {
		return nil, fmt.Errorf("profile %s: %w", c.profile.ProfileCode, err)
	}

	for _, row := range table.Rows {
		input, err := MapRow(row, c.profile.ColumnMapping, c.profile.DefaultCurrency)
		if err != nil {
			return nil, err
		}
		if _, err := batch.AddTransaction(input); err != nil {
			return nil, fmt.Errorf("row %d: %w", row.Number, err)
		}
	}

	return batch, nil
}

// MapRow converts one input row to a transfer using the column mapping.
func MapRow(row types.Row, mapping config.ColumnMapping, defaultCurrency string) (sepa.TransactionInput, error) {
	input := sepa.TransactionInput{
		Recipient:       row.Get(mapping.Recipient),
		Description:     row.Get(mapping.Description),
		Amount:          row.Get(mapping.Amount),
		CreditorAddress: row.Get(mapping.Address),
		CreditorCountry: strings.ToUpper(row.Get(mapping.Country)),
		CreditorIBAN:    row.Get(mapping.IBAN),
		CreditorBIC:     row.Get(mapping.BIC),
		Currency:        row.Get(mapping.Currency),
	}

	if input.Currency == "" {
		input.Currency = defaultCurrency
	}

	if date := row.Get(mapping.ExecutionDate); date != "" {
		parsed, err := time.Parse(validation.DateLayout, date)
		if err != nil {
			return sepa.TransactionInput{}, fmt.Errorf("row %d: invalid execution date %q: %w", row.Number, date, err)
		}
		input.ExecutionDate = parsed
	}

	return input, nil
}

// writeErrorReport writes the row report next to the output files and
// returns its path. Nothing is written on a dry run.
func (c *Converter) writeErrorReport(report *validation.ValidationResult) string {
	if c.dryRun {
		return ""
	}

	path := filepath.Join(c.mainConfig.OutputDir, utils.BaseName(c.filePath)+"_errors.txt")
	if err := validation.WriteErrorLog(report.Errors, c.filePath, path); err != nil {
		c.logger.Errorf("Failed to write error report: %v", err)
		return ""
	}

	c.logger.Warnf("Validation failed for %s, see %s", filepath.Base(c.filePath), path)
	return path
}
