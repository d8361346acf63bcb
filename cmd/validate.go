// =============================================================================
// SEPA Credit Transfer - Validate Command
// =============================================================================
//
// This file defines the 'validate' command.
//
// COMMAND USAGE:
//   sepa-batch validate                       # Check config and profiles only
//   sepa-batch validate --file payroll.csv    # Also check every row of a file
//
// With --file, every row is checked and all problems are listed. Nothing is
// written or archived.
//
// =============================================================================

package cmd

import (
	"fmt"
	"io"
	"sort"

	"github.com/spf13/cobra"

	"github.com/ginjaninja78/sepa-credit-transfer/internal/converter"
	"github.com/ginjaninja78/sepa-credit-transfer/internal/iban"
	"github.com/ginjaninja78/sepa-credit-transfer/internal/logging"
	"github.com/ginjaninja78/sepa-credit-transfer/internal/validation"
)

type validateOptions struct {
	configPath string
	verbose    bool
	profile    string
	file       string

	logger logging.Logger
}

var validateFlags validateOptions

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check configuration and, optionally, an input file",
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := validateFlags
		opts.configPath = cfgFile
		opts.verbose = verbose
		return runValidate(cmd.OutOrStdout(), opts)
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().StringVar(&validateFlags.file, "file", "", "Input file to check row by row")
	validateCmd.Flags().StringVar(&validateFlags.profile, "profile", "", "Profile code to use instead of matching by file name")
}

// runValidate prints the configuration check and the row report. It returns
// an error when the file has row errors.
func runValidate(out io.Writer, opts validateOptions) error {
	env, err := loadEnvironment(opts.configPath, opts.verbose)
	if err != nil {
		return err
	}
	defer env.logger.Sync()

	var logger logging.Logger = env.logger
	if opts.logger != nil {
		logger = opts.logger
	}

	codes := make([]string, 0, len(env.profiles))
	for code := range env.profiles {
		codes = append(codes, code)
	}
	sort.Strings(codes)

	fmt.Fprintf(out, "Configuration OK: %d profile(s)\n", len(codes))
	for _, code := range codes {
		profile := env.profiles[code]
		fmt.Fprintf(out, "  %-10s %s (debtor %s)\n", code, profile.ProfileName, iban.Normalize(profile.Debtor.IBAN))
	}

	if opts.file == "" {
		return nil
	}

	profile, err := selectProfile(opts.file, opts.profile, env.profiles)
	if err != nil {
		return err
	}

	_, report, err := converter.New(opts.file, profile, env.mainConfig, converter.WithLogger(logger)).Check()
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "\n%s (profile %s): %d row(s) checked\n", opts.file, profile.ProfileCode, report.RowsValidated)
	fmt.Fprint(out, validation.FormatErrors(report.Errors))
	if len(report.Errors) == 0 {
		fmt.Fprintln(out)
	}

	if !report.IsValid {
		return fmt.Errorf("%w: %d error(s), %d warning(s)", converter.ErrValidationFailed, report.ErrorCount, report.WarningCount)
	}

	return nil
}
