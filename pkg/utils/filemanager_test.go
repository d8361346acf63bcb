package utils

import (
	"os"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(t *testing.T) *FileManager {
	t.Helper()
	root := t.TempDir()
	fm := NewFileManager(
		filepath.Join(root, "input"),
		filepath.Join(root, "output"),
		filepath.Join(root, "input_archive"),
		filepath.Join(root, "output_archive"),
	)
	require.NoError(t, fm.EnsureDirectories())
	return fm
}

func touch(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
}

func assertContent(t *testing.T, path, want string) {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, want, string(data), path)
}

func TestDiscoverInputFiles(t *testing.T) {
	fm := newTestManager(t)
	touch(t, filepath.Join(fm.InputDir, "b_suppliers.XLSX"))
	touch(t, filepath.Join(fm.InputDir, "a_payroll.csv"))
	touch(t, filepath.Join(fm.InputDir, "notes.txt"))
	require.NoError(t, os.Mkdir(filepath.Join(fm.InputDir, "nested.csv"), 0o755))

	files, err := fm.DiscoverInputFiles()
	require.NoError(t, err)

	assert.Equal(t, []string{
		filepath.Join(fm.InputDir, "a_payroll.csv"),
		filepath.Join(fm.InputDir, "b_suppliers.XLSX"),
	}, files)
}

func TestDiscoverInputFilesMissingDir(t *testing.T) {
	fm := NewFileManager(filepath.Join(t.TempDir(), "nope"), "", "", "")
	_, err := fm.DiscoverInputFiles()
	assert.Error(t, err)
}

func TestWriteOutputFileRefusesOverwrite(t *testing.T) {
	fm := newTestManager(t)

	path, err := fm.WriteOutputFile("batch.xml", []byte("<Document/>"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(fm.OutputDir, "batch.xml"), path)

	_, err = fm.WriteOutputFile("batch.xml", []byte("other"))
	assert.Error(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "<Document/>", string(data))
}

func TestArchiveFiles(t *testing.T) {
	fm := newTestManager(t)
	input := filepath.Join(fm.InputDir, "payroll.csv")
	touch(t, input)
	output := filepath.Join(fm.OutputDir, "batch.xml")
	touch(t, output)

	archived, err := fm.ArchiveInputFile(input)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(fm.InputArchiveDir, "payroll.csv"), archived)
	assert.False(t, FileExists(input))
	assert.True(t, FileExists(archived))

	archived, err = fm.ArchiveOutputFile(output)
	require.NoError(t, err)
	assert.True(t, FileExists(output), "output stays for pickup")
	assert.True(t, FileExists(archived))
}

func TestArchiveNeverReplacesExistingFiles(t *testing.T) {
	fm := newTestManager(t)
	require.NoError(t, os.MkdirAll(fm.InputArchiveDir, 0o755))
	require.NoError(t, os.MkdirAll(fm.OutputArchiveDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(fm.InputArchiveDir, "payroll.csv"), []byte("march"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(fm.InputArchiveDir, "payroll_1.csv"), []byte("april"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(fm.OutputArchiveDir, "batch.xml"), []byte("old"), 0o644))

	input := filepath.Join(fm.InputDir, "payroll.csv")
	require.NoError(t, os.WriteFile(input, []byte("may"), 0o644))
	output := filepath.Join(fm.OutputDir, "batch.xml")
	require.NoError(t, os.WriteFile(output, []byte("new"), 0o644))

	archived, err := fm.ArchiveInputFile(input)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(fm.InputArchiveDir, "payroll_2.csv"), archived)
	assert.False(t, FileExists(input))

	archivedOut, err := fm.ArchiveOutputFile(output)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(fm.OutputArchiveDir, "batch_1.xml"), archivedOut)

	assertContent(t, filepath.Join(fm.InputArchiveDir, "payroll.csv"), "march")
	assertContent(t, filepath.Join(fm.InputArchiveDir, "payroll_1.csv"), "april")
	assertContent(t, archived, "may")
	assertContent(t, filepath.Join(fm.OutputArchiveDir, "batch.xml"), "old")
	assertContent(t, archivedOut, "new")
}

func TestArchiveDisabled(t *testing.T) {
	fm := newTestManager(t)
	fm.ArchiveOnSuccess = false
	input := filepath.Join(fm.InputDir, "payroll.csv")
	touch(t, input)

	archived, err := fm.ArchiveInputFile(input)
	require.NoError(t, err)
	assert.Equal(t, input, archived)
	assert.True(t, FileExists(input))
}

func TestGenerateOutputFileName(t *testing.T) {
	name := GenerateOutputFileName("{profile}_{original}_{uuid}", map[string]string{
		"profile":  "ACME",
		"original": "payroll_march",
	})
	assert.Regexp(t, regexp.MustCompile(`^ACME_payroll_march_[0-9a-f-]{36}\.xml$`), name)

	assert.NotEqual(t,
		GenerateOutputFileName("{uuid}.xml", nil),
		GenerateOutputFileName("{uuid}.xml", nil))

	assert.Regexp(t, `^\d{8}_\d{6}\.XML$`, GenerateOutputFileName("{timestamp}.XML", nil))
}

func TestBaseName(t *testing.T) {
	assert.Equal(t, "payroll_march", BaseName("/in/payroll_march.csv"))
	assert.Equal(t, "noext", BaseName("noext"))
}

func TestIsSupportedInput(t *testing.T) {
	assert.True(t, IsSupportedInput("a.csv"))
	assert.True(t, IsSupportedInput("a.XLSX"))
	assert.False(t, IsSupportedInput("a.xls"))
}

func TestWriteErrorLog(t *testing.T) {
	dir := t.TempDir()

	path, err := WriteErrorLog(nil, dir)
	require.NoError(t, err)
	assert.Empty(t, path)

	path, err = WriteErrorLog([]ErrorLogEntry{{
		Timestamp:    time.Now(),
		FileName:     "payroll.csv",
		ErrorType:    "validation",
		ErrorMessage: "IBAN checksum is invalid",
		RowNumber:    4,
		FieldName:    "iban",
		FieldValue:   "NL92ABNA0417164300",
	}}, dir)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	log := string(data)
	assert.Contains(t, log, "Total Errors: 1")
	assert.Contains(t, log, "Message")
	assert.Regexp(t, `\| payroll\.csv \| 4 +\| iban +\| NL92ABNA0417164300 \| validation \| IBAN checksum is invalid \|`, log)
}

func TestWriteSummaryLog(t *testing.T) {
	start := time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)
	path, err := WriteSummaryLog(ProcessingSummary{
		StartTime:       start,
		EndTime:         start.Add(2 * time.Second),
		TotalFiles:      2,
		SuccessfulFiles: 1,
		FailedFiles:     1,
		ProcessedFiles: []ProcessedFileInfo{{
			InputFile: "payroll.csv", OutputFile: "ACME.xml", Profile: "ACME", Transactions: 2, ControlSum: "763.49",
		}},
		FailedFilesList: []FailedFileInfo{{InputFile: "broken.csv", ErrorType: "validation", ErrorMessage: "3 errors"}},
	}, t.TempDir())
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	summary := string(data)
	assert.Contains(t, summary, "Duration:           2s")
	assert.Contains(t, summary, "Files:              2 (1 ok, 1 failed)")
	assert.Regexp(t, `\| OK +\| payroll\.csv +\| ACME +\| 0 +\| 2 +\| 763\.49 +\|`, summary)
	assert.Regexp(t, `\| FAILED +\| broken\.csv .*\| validation: 3 errors +\|`, summary)
}
