// =============================================================================
// SEPA Credit Transfer - File Manager Utility
// =============================================================================
//
// This module provides the file handling around a batch run:
//   - Input discovery (.csv and .xlsx files in the input directory)
//   - Output naming and writing
//   - Archival of processed files
//   - Error and summary logs
//
// ARCHIVAL STRATEGY:
//   - Input files are moved to input_archive after successful processing
//   - Output files are copied to output_archive
//   - Failed files remain in their original location
//   - Error logs are created in the output directory
//
// =============================================================================

package utils

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/olekukonko/tablewriter"
)

// SupportedExtensions lists the input formats the build command reads.
var SupportedExtensions = []string{".csv", ".xlsx"}

// =============================================================================
// FILE MANAGER
// =============================================================================

// FileManager handles file operations for a batch run.
type FileManager struct {
	InputDir         string
	OutputDir        string
	InputArchiveDir  string
	OutputArchiveDir string

	// ArchiveOnSuccess determines whether to archive files after successful processing.
	ArchiveOnSuccess bool
}

// NewFileManager creates a new FileManager with the specified directories.
func NewFileManager(inputDir, outputDir, inputArchiveDir, outputArchiveDir string) *FileManager {
	return &FileManager{
		InputDir:         inputDir,
		OutputDir:        outputDir,
		InputArchiveDir:  inputArchiveDir,
		OutputArchiveDir: outputArchiveDir,
		ArchiveOnSuccess: true,
	}
}

// =============================================================================
// DIRECTORY MANAGEMENT
// =============================================================================

// EnsureDirectories creates all required directories if they don't exist.
func (fm *FileManager) EnsureDirectories() error {
	dirs := []string{
		fm.InputDir,
		fm.OutputDir,
		fm.InputArchiveDir,
		fm.OutputArchiveDir,
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	return nil
}

// =============================================================================
// FILE DISCOVERY
// =============================================================================

// DiscoverInputFiles lists the supported input files in the input directory,
// sorted by name. Subdirectories are not scanned.
func (fm *FileManager) DiscoverInputFiles() ([]string, error) {
	entries, err := os.ReadDir(fm.InputDir)
	if err != nil {
		return nil, fmt.Errorf("failed to scan input directory: %w", err)
	}

	var result []string
	for _, entry := range entries {
		if entry.IsDir() || !IsSupportedInput(entry.Name()) {
			continue
		}
		result = append(result, filepath.Join(fm.InputDir, entry.Name()))
	}

	sort.Strings(result)
	return result, nil
}

// IsSupportedInput reports whether the file extension is one the build
// command can read. Matching is case-insensitive.
func IsSupportedInput(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, supported := range SupportedExtensions {
		if ext == supported {
			return true
		}
	}
	return false
}

// =============================================================================
// OUTPUT
// =============================================================================

// WriteOutputFile writes data to a new file in the output directory.
//
// RETURNS:
//   - The path to the written file.
//   - An error if a file with that name already exists or writing fails.
func (fm *FileManager) WriteOutputFile(fileName string, data []byte) (string, error) {
	outputPath := filepath.Join(fm.OutputDir, fileName)

	// O_EXCL: two batches must never share an output file.
	file, err := os.OpenFile(outputPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return "", fmt.Errorf("failed to create output file: %w", err)
	}

	if _, err := file.Write(data); err != nil {
		file.Close()
		return "", fmt.Errorf("failed to write output file: %w", err)
	}

	if err := file.Close(); err != nil {
		return "", fmt.Errorf("failed to close output file: %w", err)
	}

	return outputPath, nil
}

// =============================================================================
// FILE ARCHIVAL
// =============================================================================

// ArchiveInputFile moves an input file to the archive directory. An
// archived file with the same name is kept; the new one gets a numeric
// suffix ("payroll_1.csv").
//
// RETURNS:
//   - The path to the archived file.
//   - An error if archival fails.
func (fm *FileManager) ArchiveInputFile(filePath string) (string, error) {
	if !fm.ArchiveOnSuccess {
		return filePath, nil
	}

	if err := os.MkdirAll(fm.InputArchiveDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create archive directory: %w", err)
	}

	archivePath, err := freeArchivePath(fm.InputArchiveDir, filePath)
	if err != nil {
		return "", err
	}

	if err := os.Rename(filePath, archivePath); err != nil {
		// Rename fails across devices; fall back to copy and delete.
		if err := copyFile(filePath, archivePath); err != nil {
			return "", fmt.Errorf("failed to copy file to archive: %w", err)
		}
		if err := os.Remove(filePath); err != nil {
			return "", fmt.Errorf("failed to remove original file: %w", err)
		}
	}

	return archivePath, nil
}

// ArchiveOutputFile copies an output file to the archive directory. The
// original stays in the output directory for pickup. Existing archive files
// are never replaced.
func (fm *FileManager) ArchiveOutputFile(filePath string) (string, error) {
	if !fm.ArchiveOnSuccess {
		return filePath, nil
	}

	if err := os.MkdirAll(fm.OutputArchiveDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create archive directory: %w", err)
	}

	archivePath, err := freeArchivePath(fm.OutputArchiveDir, filePath)
	if err != nil {
		return "", err
	}

	if err := copyFile(filePath, archivePath); err != nil {
		return "", fmt.Errorf("failed to copy file to archive: %w", err)
	}

	return archivePath, nil
}

// maxArchiveSuffix bounds the search for a free archive name.
const maxArchiveSuffix = 1000

// freeArchivePath returns a path in dir for filePath's base name that does
// not exist yet, adding "_1", "_2", ... before the extension when needed.
func freeArchivePath(dir, filePath string) (string, error) {
	base := filepath.Base(filePath)
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)

	candidate := filepath.Join(dir, base)
	for i := 1; i <= maxArchiveSuffix; i++ {
		if _, err := os.Lstat(candidate); errors.Is(err, fs.ErrNotExist) {
			return candidate, nil
		} else if err != nil {
			return "", fmt.Errorf("failed to check archive path: %w", err)
		}
		candidate = filepath.Join(dir, fmt.Sprintf("%s_%d%s", stem, i, ext))
	}

	return "", fmt.Errorf("no free archive name for %s in %s", base, dir)
}

// =============================================================================
// OUTPUT FILE NAMING
// =============================================================================

// GenerateOutputFileName generates a unique output file name.
//
// PARAMETERS:
//   - format: The format string for the file name.
//             Placeholders:
//               {uuid}      - A random UUID
//               {timestamp} - Current timestamp (YYYYMMDD_HHMMSS)
//               {date}      - Current date (YYYYMMDD)
//               {profile}   - Profile code
//               {original}  - Input file name without extension
//   - params: A map of placeholder values, keyed without braces.
//
// EXAMPLE:
//   format: "{profile}_{timestamp}_{uuid}.xml"
//   params: {"profile": "ACME"}
//   output: "ACME_20240315_103000_a1b2c3d4-e5f6-7890-abcd-ef1234567890.xml"
func GenerateOutputFileName(format string, params map[string]string) string {
	now := time.Now()

	replacements := map[string]string{
		"{uuid}":      uuid.New().String(),
		"{timestamp}": now.Format("20060102_150405"),
		"{date}":      now.Format("20060102"),
	}

	for key, value := range params {
		replacements["{"+key+"}"] = value
	}

	result := format
	for placeholder, value := range replacements {
		result = strings.ReplaceAll(result, placeholder, value)
	}

	if !strings.HasSuffix(strings.ToLower(result), ".xml") {
		result += ".xml"
	}

	return result
}

// BaseName returns the file name of path without directory and extension.
func BaseName(path string) string {
	name := filepath.Base(path)
	return strings.TrimSuffix(name, filepath.Ext(name))
}

// =============================================================================
// ERROR LOG GENERATION
// =============================================================================

// ErrorLogEntry represents a single error log entry.
type ErrorLogEntry struct {
	Timestamp    time.Time
	FileName     string
	ErrorType    string
	ErrorMessage string
	RowNumber    int
	FieldName    string
	FieldValue   string
}

// WriteErrorLog writes error entries to a timestamped log file, one table
// row per entry.
//
// RETURNS:
//   - The path to the error log file, or "" when there are no entries.
//   - An error if writing fails.
func WriteErrorLog(entries []ErrorLogEntry, outputDir string) (string, error) {
	if len(entries) == 0 {
		return "", nil
	}

	logPath := filepath.Join(outputDir, fmt.Sprintf("error_log_%s.txt", time.Now().Format("20060102_150405")))

	rows := make([][]string, 0, len(entries))
	for i, entry := range entries {
		row := ""
		if entry.RowNumber > 0 {
			row = strconv.Itoa(entry.RowNumber)
		}
		rows = append(rows, []string{
			strconv.Itoa(i + 1),
			entry.Timestamp.Format(logTimeLayout),
			entry.FileName,
			row,
			entry.FieldName,
			entry.FieldValue,
			entry.ErrorType,
			entry.ErrorMessage,
		})
	}

	err := writeReport(logPath, func(w io.Writer) {
		fmt.Fprintf(w, "SEPA Credit Transfer - Error Log\nGenerated: %s\nTotal Errors: %d\n\n",
			time.Now().Format(logTimeLayout), len(entries))
		renderTable(w, []string{"#", "Time", "File", "Row", "Field", "Value", "Type", "Message"}, rows)
	})
	if err != nil {
		return "", fmt.Errorf("failed to write error log: %w", err)
	}

	return logPath, nil
}

// =============================================================================
// PROCESSING SUMMARY
// =============================================================================

// ProcessingSummary contains summary information about a build run.
type ProcessingSummary struct {
	StartTime         time.Time
	EndTime           time.Time
	TotalFiles        int
	SuccessfulFiles   int
	FailedFiles       int
	TotalRows         int
	TotalTransactions int
	ValidationErrors  int
	ProcessedFiles    []ProcessedFileInfo
	FailedFilesList   []FailedFileInfo
}

// ProcessedFileInfo contains information about a successfully processed file.
type ProcessedFileInfo struct {
	InputFile    string
	OutputFile   string
	Profile      string
	Rows         int
	Transactions int
	ControlSum   string
	ProcessTime  time.Duration
}

// FailedFileInfo contains information about a failed file.
type FailedFileInfo struct {
	InputFile    string
	ErrorMessage string
	ErrorType    string
}

// WriteSummaryLog writes the run statistics and a per-file table to a
// timestamped file.
func WriteSummaryLog(summary ProcessingSummary, outputDir string) (string, error) {
	summaryPath := filepath.Join(outputDir, fmt.Sprintf("processing_summary_%s.txt", time.Now().Format("20060102_150405")))

	var rows [][]string
	for _, pf := range summary.ProcessedFiles {
		rows = append(rows, []string{
			"OK",
			filepath.Base(pf.InputFile),
			pf.Profile,
			strconv.Itoa(pf.Rows),
			strconv.Itoa(pf.Transactions),
			pf.ControlSum,
			pf.ProcessTime.Round(time.Millisecond).String(),
			filepath.Base(pf.OutputFile),
		})
	}
	for _, ff := range summary.FailedFilesList {
		rows = append(rows, []string{
			"FAILED",
			filepath.Base(ff.InputFile),
			"", "", "", "", "",
			ff.ErrorType + ": " + ff.ErrorMessage,
		})
	}

	err := writeReport(summaryPath, func(w io.Writer) {
		fmt.Fprintf(w, "SEPA Credit Transfer - Processing Summary\n\n")
		fmt.Fprintf(w, "Started:            %s\n", summary.StartTime.Format(logTimeLayout))
		fmt.Fprintf(w, "Finished:           %s\n", summary.EndTime.Format(logTimeLayout))
		fmt.Fprintf(w, "Duration:           %s\n", summary.EndTime.Sub(summary.StartTime))
		fmt.Fprintf(w, "Files:              %d (%d ok, %d failed)\n", summary.TotalFiles, summary.SuccessfulFiles, summary.FailedFiles)
		fmt.Fprintf(w, "Rows read:          %d\n", summary.TotalRows)
		fmt.Fprintf(w, "Transfers written:  %d\n", summary.TotalTransactions)
		fmt.Fprintf(w, "Validation errors:  %d\n", summary.ValidationErrors)

		if len(rows) > 0 {
			fmt.Fprintln(w)
			renderTable(w, []string{"Status", "Input", "Profile", "Rows", "Transfers", "Control sum", "Time", "Output / error"}, rows)
		}
	})
	if err != nil {
		return "", fmt.Errorf("failed to write summary file: %w", err)
	}

	return summaryPath, nil
}

// =============================================================================
// UTILITY FUNCTIONS
// =============================================================================

const logTimeLayout = "2006-01-02 15:04:05"

// writeReport creates path and hands a buffered writer to fill.
func writeReport(path string, fill func(w io.Writer)) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := bufio.NewWriter(file)
	fill(writer)
	if err := writer.Flush(); err != nil {
		return err
	}
	return file.Sync()
}

// renderTable writes rows as a plain text table. Cells are never wrapped.
func renderTable(w io.Writer, header []string, rows [][]string) {
	table := tablewriter.NewWriter(w)
	table.SetHeader(header)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.AppendBulk(rows)
	table.Render()
}

// copyFile copies a file from src to dst.
func copyFile(src, dst string) error {
	sourceFile, err := os.Open(src)
	if err != nil {
		return err
	}
	defer sourceFile.Close()

	destFile, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return err
	}
	defer destFile.Close()

	if _, err := io.Copy(destFile, sourceFile); err != nil {
		return err
	}

	return destFile.Sync()
}

// FileExists checks if a file exists.
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return !os.IsNotExist(err)
}
