package converter

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/ginjaninja78/sepa-credit-transfer/internal/config"
	"github.com/ginjaninja78/sepa-credit-transfer/internal/sepa"
	"github.com/ginjaninja78/sepa-credit-transfer/internal/types"
	"github.com/ginjaninja78/sepa-credit-transfer/pkg/utils"
)

const testProfile = `
profile_name: Acme Payroll
profile_code: ACME
file_matching_patterns: ["payroll_*"]
debtor:
  iban: NL91ABNA0417164300
csv_settings:
  delimiter: ";"
column_mapping:
  recipient: Name
  description: Reference
  amount: Amount
  country: Country
  iban: Account
  execution_date: Date
transformation_rules:
  - field: Account
    actions:
      - type: remove_whitespace
  - field: Amount
    actions:
      - type: decimal_comma
  - field: Date
    actions:
      - type: format_date
        value: "02/01/2006|2006-01-02"
`

const testCSV = "Name;Reference;Amount;Country;Account;Date\n" +
	"Jane Doe;March rent;1.250,00;nl;NL39 RABO 0300 0652 64;01/04/2024\n" +
	"John Roe;Invoice 42;13,49;NL;NL91 ABNA 0417 1643 00;\n"

func fixedClock() time.Time {
	return time.Date(2024, 3, 15, 10, 30, 0, 0, time.FixedZone("CET", 3600))
}

type testEnv struct {
	main    *config.MainConfig
	profile *config.BatchProfile
}

func newTestEnv(t *testing.T) testEnv {
	t.Helper()
	root := t.TempDir()

	main := &config.MainConfig{
		InputDir:         filepath.Join(root, "input"),
		OutputDir:        filepath.Join(root, "output"),
		InputArchiveDir:  filepath.Join(root, "input_archive"),
		OutputArchiveDir: filepath.Join(root, "output_archive"),
		ProfilesDir:      filepath.Join(root, "profiles"),
		LogLevel:         "info",
		OutputFileFormat: "{profile}_{original}.xml",
		MaxConcurrency:   1,
		ArchiveOnSuccess: true,
	}
	fm := utils.NewFileManager(main.InputDir, main.OutputDir, main.InputArchiveDir, main.OutputArchiveDir)
	require.NoError(t, fm.EnsureDirectories())

	profile, err := config.ParseProfile([]byte(testProfile))
	require.NoError(t, err)

	return testEnv{main: main, profile: profile}
}

func (e testEnv) writeInput(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(e.main.InputDir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func deterministic() Option {
	n := 0
	return WithBatchOptions(
		sepa.WithClock(fixedClock),
		sepa.WithIDGenerator(func() string {
			n++
			return fmt.Sprintf("ID%d", n)
		}),
	)
}

func TestRunBuildsWritesAndArchives(t *testing.T) {
	env := newTestEnv(t)
	input := env.writeInput(t, "payroll_march.csv", testCSV)

	result := New(input, env.profile, env.main, deterministic()).Run()

	require.NoError(t, result.Error)
	assert.True(t, result.Success)
	assert.Equal(t, "ACME", result.Profile)
	assert.Equal(t, filepath.Join(env.main.OutputDir, "ACME_payroll_march.xml"), result.OutputFile)
	assert.Equal(t, 2, result.Stats.RowsRead)
	assert.Equal(t, 2, result.Stats.Transactions)
	assert.Equal(t, "1263.49", result.Stats.ControlSum.StringFixed(2))

	data, err := os.ReadFile(result.OutputFile)
	require.NoError(t, err)
	assert.Equal(t, result.Document, data)

	doc, err := sepa.ParseDocument(bytes.NewReader(data))
	require.NoError(t, err)
	require.NoError(t, doc.Verify())
	assert.Equal(t, "ID1", doc.GroupHeader.MessageID)
	assert.Equal(t, "1263.49", doc.GroupHeader.ControlSum)
	require.Len(t, doc.Payments, 2)

	jane := doc.Payments[0]
	assert.Equal(t, "2024-04-01", jane.RequestedExecutionDate)
	assert.Equal(t, "NL39RABO0300065264", jane.Transfer.CreditorIBAN)
	assert.Equal(t, "RABONL2U", jane.Transfer.CreditorBIC)
	assert.Equal(t, "1250.00", jane.Transfer.Amount.Value)
	assert.Equal(t, "NL", jane.Transfer.Country)
	assert.Equal(t, "ABNANL2A", jane.DebtorBIC)

	john := doc.Payments[1]
	assert.Equal(t, "2024-03-15", john.RequestedExecutionDate, "no date means render date")
	assert.Equal(t, "13.49", john.Transfer.Amount.Value)

	assert.NoFileExists(t, input)
	assert.FileExists(t, filepath.Join(env.main.InputArchiveDir, "payroll_march.csv"))
	assert.FileExists(t, filepath.Join(env.main.OutputArchiveDir, "ACME_payroll_march.xml"))
}

func TestRunDryRunWritesNothing(t *testing.T) {
	env := newTestEnv(t)
	input := env.writeInput(t, "payroll_march.csv", testCSV)

	result := New(input, env.profile, env.main, WithDryRun(true)).Run()

	require.NoError(t, result.Error)
	assert.True(t, result.Success)
	assert.Empty(t, result.OutputFile)
	assert.NotEmpty(t, result.Document)
	assert.FileExists(t, input)

	entries, err := os.ReadDir(env.main.OutputDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestRunValidationFailure(t *testing.T) {
	env := newTestEnv(t)
	input := env.writeInput(t, "payroll_bad.csv", "Name;Reference;Amount;Country;Account;Date\n"+
		"Jane Doe;;abc;NL;NL39RABO0300065264;\n"+
		";;1,00;NL;NL92ABNA0417164300;\n")

	core, logs := observer.New(zap.WarnLevel)
	result := New(input, env.profile, env.main, WithLogger(zap.New(core).Sugar())).Run()

	require.ErrorIs(t, result.Error, ErrValidationFailed)
	assert.False(t, result.Success)
	assert.Equal(t, 3, result.Stats.ValidationErrors)
	assert.Equal(t, filepath.Join(env.main.OutputDir, "payroll_bad_errors.txt"), result.ErrorReport)

	report, err := os.ReadFile(result.ErrorReport)
	require.NoError(t, err)
	assert.Contains(t, string(report), "Row 2, Field 'amount'")
	assert.Contains(t, string(report), "Row 3, Field 'recipient'")
	assert.Contains(t, string(report), "Row 3, Field 'iban'")

	assert.FileExists(t, input, "failed input stays in place")
	assert.Equal(t, 1, logs.FilterMessageSnippet("Validation failed").Len())
}

func TestRunZeroTotalIsRejected(t *testing.T) {
	env := newTestEnv(t)
	input := env.writeInput(t, "payroll_zero.csv", "Name;Reference;Amount;Country;Account;Date\n"+
		"Jane Doe;;0,00;NL;NL39RABO0300065264;\n")

	result := New(input, env.profile, env.main).Run()

	assert.ErrorIs(t, result.Error, sepa.ErrEmptyBatch)
	assert.FileExists(t, input)
}

func TestRunXLSXInput(t *testing.T) {
	env := newTestEnv(t)
	env.profile.ColumnMapping = config.ColumnMapping{Recipient: "Name", Amount: "Amount", IBAN: "IBAN", Currency: "Ccy"}
	env.profile.TransformationRules = []config.TransformationRule{
		{Field: "Amount", Actions: []config.TransformationAction{{Type: "format_number", Value: "2"}}},
	}

	f := excelize.NewFile()
	defer f.Close()
	require.NoError(t, f.SetSheetRow("Sheet1", "A1", &[]interface{}{"Name", "Amount", "IBAN", "Ccy"}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A2", &[]interface{}{"Jane Doe", 99.5, "NL39RABO0300065264", "usd"}))
	input := filepath.Join(env.main.InputDir, "payroll_march.xlsx")
	require.NoError(t, f.SaveAs(input))

	result := New(input, env.profile, env.main, WithDryRun(true)).Run()
	require.NoError(t, result.Error)

	doc, err := sepa.ParseDocument(bytes.NewReader(result.Document))
	require.NoError(t, err)
	require.Len(t, doc.Payments, 1)
	assert.Equal(t, "99.50", doc.Payments[0].Transfer.Amount.Value)
	assert.Equal(t, "USD", doc.Payments[0].Transfer.Amount.Currency)
}

func TestRunUnsupportedFormat(t *testing.T) {
	env := newTestEnv(t)
	input := env.writeInput(t, "payroll.txt", "x")

	result := New(input, env.profile, env.main).Run()
	assert.ErrorIs(t, result.Error, ErrUnsupportedFormat)
}

func TestCheckReportsWithoutBuilding(t *testing.T) {
	env := newTestEnv(t)
	input := env.writeInput(t, "payroll_march.csv", testCSV)

	table, report, err := New(input, env.profile, env.main).Check()
	require.NoError(t, err)

	assert.True(t, report.IsValid)
	assert.Equal(t, 2, report.RowsValidated)
	assert.Equal(t, "1250.00", table.Rows[0].Get("Amount"))
	assert.Equal(t, "2024-04-01", table.Rows[0].Get("Date"))
}

func TestMapRow(t *testing.T) {
	headers := []string{"Name", "Amount", "IBAN", "Date", "Ctry"}
	mapping := config.ColumnMapping{Recipient: "Name", Amount: "Amount", IBAN: "IBAN", ExecutionDate: "Date", Country: "Ctry"}

	input, err := MapRow(types.NewRow(2, headers, []string{"Jane", "1.00", "NL39RABO0300065264", "2024-04-01", "nl"}), mapping, "EUR")
	require.NoError(t, err)
	assert.Equal(t, "Jane", input.Recipient)
	assert.Equal(t, "EUR", input.Currency)
	assert.Equal(t, "NL", input.CreditorCountry)
	assert.Equal(t, time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC), input.ExecutionDate)
	assert.Empty(t, input.CreditorBIC)

	_, err = MapRow(types.NewRow(5, headers, []string{"Jane", "1.00", "x", "01-04-2024", ""}), mapping, "EUR")
	assert.ErrorContains(t, err, "row 5")
}
