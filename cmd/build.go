// =============================================================================
// SEPA Credit Transfer - Build Command
// =============================================================================
//
// This file defines the 'build' command, which turns input files into
// pain.001 batches.
//
// COMMAND USAGE:
//   sepa-batch build [flags]
//
// FLAGS:
//   --file     : Build only this file instead of scanning the input directory
//   --profile  : Use this profile instead of matching by file name
//   --dry-run  : Render and report, but write and archive nothing
//
// PROCESSING PIPELINE:
//   1. Load configuration and profiles
//   2. Discover .csv and .xlsx files in the input directory
//   3. Match each file to a profile
//   4. Build each file concurrently, at most max_concurrency at a time
//   5. Write the summary and error logs
//
// =============================================================================

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/ginjaninja78/sepa-credit-transfer/internal/config"
	"github.com/ginjaninja78/sepa-credit-transfer/internal/converter"
	"github.com/ginjaninja78/sepa-credit-transfer/internal/logging"
	"github.com/ginjaninja78/sepa-credit-transfer/pkg/utils"
)

// errSkipped marks files that were not started because an earlier file
// failed and continue_on_error is off.
var errSkipped = errors.New("skipped after an earlier failure")

// buildOptions holds the flags of the build command.
type buildOptions struct {
	configPath string
	verbose    bool
	profile    string
	file       string
	dryRun     bool

	// logger overrides the configured logger. Used by tests.
	logger logging.Logger
}

var buildFlags buildOptions

// =============================================================================
// BUILD COMMAND DEFINITION
// =============================================================================

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Build pain.001 batches from input files",
	Long: `The build command scans the input directory for CSV and XLSX files,
matches each to a batch profile and writes one pain.001.001.02 file per input.

Files are built concurrently and independently. A failing file does not stop
the others unless continue_on_error is false.

On success:
  - The batch file is placed in the output directory
  - The input file is moved to the input archive
  - A copy of the batch is placed in the output archive

On error:
  - A validation report (<input>_errors.txt) and an error log are written
    to the output directory
  - The input file remains in the input directory`,

	RunE: func(cmd *cobra.Command, args []string) error {
		opts := buildFlags
		opts.configPath = cfgFile
		opts.verbose = verbose
		return runBuild(cmd.Context(), cmd.OutOrStdout(), opts)
	},
}

func init() {
	rootCmd.AddCommand(buildCmd)

	buildCmd.Flags().StringVar(&buildFlags.file, "file", "", "Build only this file")
	buildCmd.Flags().StringVar(&buildFlags.profile, "profile", "", "Profile code to use instead of matching by file name")
	buildCmd.Flags().BoolVar(&buildFlags.dryRun, "dry-run", false, "Render and validate without writing or archiving")
}

// =============================================================================
// MAIN PROCESSING FUNCTION
// =============================================================================

// runBuild runs the build pipeline and returns an error if any file failed.
func runBuild(ctx context.Context, out io.Writer, opts buildOptions) error {
	startTime := time.Now()

	// =========================================================================
	// STEP 1: LOAD CONFIGURATION
	// =========================================================================

	env, err := loadEnvironment(opts.configPath, opts.verbose)
	if err != nil {
		return err
	}
	defer env.logger.Sync()

	var logger logging.Logger = env.logger
	if opts.logger != nil {
		logger = opts.logger
	}
	mainConfig := env.mainConfig

	logger.Infof("Loaded %d profile(s) from %s", len(env.profiles), mainConfig.ProfilesDir)

	// =========================================================================
	// STEP 2: DISCOVER INPUT FILES
	// =========================================================================

	files := utils.NewFileManager(mainConfig.InputDir, mainConfig.OutputDir, mainConfig.InputArchiveDir, mainConfig.OutputArchiveDir)
	if err := files.EnsureDirectories(); err != nil {
		return err
	}

	var inputFiles []string
	if opts.file != "" {
		if !utils.FileExists(opts.file) {
			return fmt.Errorf("input file not found: %s", opts.file)
		}
		inputFiles = []string{opts.file}
	} else {
		inputFiles, err = files.DiscoverInputFiles()
		if err != nil {
			return err
		}
	}

	if len(inputFiles) == 0 {
		fmt.Fprintln(out, "No input files found.")
		return nil
	}

	logger.Infof("Found %d file(s) to build", len(inputFiles))

	// =========================================================================
	// STEP 3: BUILD FILES CONCURRENTLY
	// =========================================================================
	// The semaphore bounds the number of files in flight. Without
	// continue_on_error the first failure cancels files not yet started.

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	semaphore := make(chan struct{}, mainConfig.MaxConcurrency)
	results := make(chan converter.Result, len(inputFiles))

	for _, file := range inputFiles {
		wg.Add(1)

		go func(filePath string) {
			defer wg.Done()

			select {
			case semaphore <- struct{}{}:
				defer func() { <-semaphore }()
			case <-ctx.Done():
				results <- converter.Result{FilePath: filePath, Error: errSkipped}
				return
			}

			if ctx.Err() != nil {
				results <- converter.Result{FilePath: filePath, Error: errSkipped}
				return
			}

			profile, err := selectProfile(filePath, opts.profile, env.profiles)
			if err != nil {
				results <- converter.Result{FilePath: filePath, Error: err}
				if !mainConfig.ContinueOnError {
					cancel()
				}
				return
			}

			result := converter.New(filePath, profile, mainConfig,
				converter.WithLogger(logger),
				converter.WithDryRun(opts.dryRun),
			).Run()

			if !result.Success && !mainConfig.ContinueOnError {
				cancel()
			}
			results <- result
		}(file)
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	// =========================================================================
	// STEP 4: COLLECT RESULTS
	// =========================================================================

	var collected []converter.Result
	for result := range results {
		collected = append(collected, result)
	}
	sort.Slice(collected, func(i, j int) bool { return collected[i].FilePath < collected[j].FilePath })

	summary := utils.ProcessingSummary{
		StartTime:  startTime,
		TotalFiles: len(inputFiles),
	}
	var errorEntries []utils.ErrorLogEntry

	for _, result := range collected {
		name := filepath.Base(result.FilePath)
		summary.TotalRows += result.Stats.RowsRead
		summary.ValidationErrors += result.Stats.ValidationErrors

		if result.Success {
			summary.SuccessfulFiles++
			summary.TotalTransactions += result.Stats.Transactions
			summary.ProcessedFiles = append(summary.ProcessedFiles, utils.ProcessedFileInfo{
				InputFile:    result.FilePath,
				OutputFile:   result.OutputFile,
				Profile:      result.Profile,
				Rows:         result.Stats.RowsRead,
				Transactions: result.Stats.Transactions,
				ControlSum:   result.Stats.ControlSum.StringFixed(2),
				ProcessTime:  result.Stats.ProcessingTime,
			})

			target := result.OutputFile
			if opts.dryRun {
				target = "(dry run)"
			}
			fmt.Fprintf(out, "  ✓ %s -> %s (%d transfer(s), total %s)\n",
				name, target, result.Stats.Transactions, result.Stats.ControlSum.StringFixed(2))
			continue
		}

		summary.FailedFiles++
		errorType := errorTypeOf(result.Error)
		summary.FailedFilesList = append(summary.FailedFilesList, utils.FailedFileInfo{
			InputFile:    result.FilePath,
			ErrorMessage: result.Error.Error(),
			ErrorType:    errorType,
		})
		errorEntries = append(errorEntries, errorLogEntries(result, errorType)...)

		fmt.Fprintf(out, "  ✗ %s: %v\n", name, result.Error)
	}

	summary.EndTime = time.Now()

	// =========================================================================
	// STEP 5: WRITE LOGS AND PRINT SUMMARY
	// =========================================================================

	if !opts.dryRun {
		if path, err := utils.WriteSummaryLog(summary, mainConfig.OutputDir); err != nil {
			logger.Warnf("Failed to write summary log: %v", err)
		} else {
			logger.Debugf("Wrote summary log %s", path)
		}

		if path, err := utils.WriteErrorLog(errorEntries, mainConfig.OutputDir); err != nil {
			logger.Warnf("Failed to write error log: %v", err)
		} else if path != "" {
			fmt.Fprintf(out, "\nErrors have been logged to %s\n", path)
		}
	}

	fmt.Fprintln(out, "\n=== Build Complete ===")
	fmt.Fprintf(out, "Total files:     %d\n", summary.TotalFiles)
	fmt.Fprintf(out, "Successful:      %d\n", summary.SuccessfulFiles)
	fmt.Fprintf(out, "Failed:          %d\n", summary.FailedFiles)
	fmt.Fprintf(out, "Transfers:       %d\n", summary.TotalTransactions)
	fmt.Fprintf(out, "Time elapsed:    %s\n", summary.EndTime.Sub(startTime).Round(time.Millisecond))

	if summary.FailedFiles > 0 {
		return fmt.Errorf("%d of %d file(s) failed", summary.FailedFiles, summary.TotalFiles)
	}

	return nil
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// selectProfile returns the profile for a file: the named profile when code
// is set, otherwise the first profile (by code) whose patterns match.
func selectProfile(filePath, code string, profiles map[string]*config.BatchProfile) (*config.BatchProfile, error) {
	if code != "" {
		profile, ok := profiles[code]
		if !ok {
			return nil, fmt.Errorf("unknown profile %q", code)
		}
		return profile, nil
	}

	codes := make([]string, 0, len(profiles))
	for c := range profiles {
		codes = append(codes, c)
	}
	sort.Strings(codes)

	fileName := filepath.Base(filePath)
	for _, c := range codes {
		if profiles[c].MatchFile(fileName) {
			return profiles[c], nil
		}
	}

	return nil, fmt.Errorf("no profile matches %s", fileName)
}

func errorTypeOf(err error) string {
	switch {
	case errors.Is(err, converter.ErrValidationFailed):
		return "validation"
	case errors.Is(err, errSkipped):
		return "skipped"
	default:
		return "processing"
	}
}

// errorLogEntries expands a failed result into log entries, one per row
// problem when a validation report is available.
func errorLogEntries(result converter.Result, errorType string) []utils.ErrorLogEntry {
	now := time.Now()
	name := filepath.Base(result.FilePath)

	if result.Validation == nil || result.Validation.IsValid {
		return []utils.ErrorLogEntry{{
			Timestamp:    now,
			FileName:     name,
			ErrorType:    errorType,
			ErrorMessage: result.Error.Error(),
		}}
	}

	var entries []utils.ErrorLogEntry
	for _, ve := range result.Validation.Errors {
		entries = append(entries, utils.ErrorLogEntry{
			Timestamp:    now,
			FileName:     name,
			ErrorType:    errorType + "/" + ve.Severity,
			ErrorMessage: ve.Message,
			RowNumber:    ve.RowNumber,
			FieldName:    ve.Field,
			FieldValue:   ve.Value,
		})
	}
	return entries
}
