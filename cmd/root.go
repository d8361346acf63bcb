// =============================================================================
// SEPA Credit Transfer - Root Command
// =============================================================================
//
// This file defines the root command for the Cobra CLI. All other commands
// are attached to it.
//
// COBRA CLI STRUCTURE:
//   rootCmd (sepa-batch)
//   ├── buildCmd    (sepa-batch build)
//   ├── validateCmd (sepa-batch validate)
//   ├── inspectCmd  (sepa-batch inspect)
//   └── versionCmd  (sepa-batch version)
//
// The root command owns the global flags (--config, --verbose) and the
// helpers that load configuration and build the logger.
//
// =============================================================================

package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ginjaninja78/sepa-credit-transfer/internal/config"
	"github.com/ginjaninja78/sepa-credit-transfer/internal/logging"
)

// =============================================================================
// GLOBAL VARIABLES
// =============================================================================

// cfgFile holds the path to the main configuration file.
var cfgFile string

// verbose forces debug logging regardless of log_level.
var verbose bool

// =============================================================================
// ROOT COMMAND DEFINITION
// =============================================================================

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "sepa-batch",
	Short: "Build SEPA pain.001 credit-transfer batches from CSV and XLSX exports",
	Long: `sepa-batch turns payment lists exported from payroll, accounting or
spreadsheet tools into pain.001.001.02 credit-transfer files for bulk upload
to a bank.

Key Features:
  - IBAN checksum and BIC checks, with BIC lookup for Dutch bank codes
  - Batch profiles per debtor account with column mapping and clean-up rules
  - A full row-by-row validation report before anything is written
  - Concurrent processing of input files
  - Automatic archival on success

Example Usage:
  sepa-batch build                          # Build every file in the input directory
  sepa-batch build --file payroll.csv       # Build one file
  sepa-batch validate --file payroll.csv    # Report problems without building
  sepa-batch inspect --file ACME_batch.xml  # Summarize a generated batch`,

	SilenceUsage: true,

	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

// =============================================================================
// EXECUTE FUNCTION
// =============================================================================

// Execute runs the root command. This is called by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// =============================================================================
// INITIALIZATION
// =============================================================================

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile,
		"config",
		"config.yaml",
		"Path to the main configuration file",
	)

	rootCmd.PersistentFlags().BoolVarP(
		&verbose,
		"verbose",
		"v",
		false,
		"Enable debug logging",
	)
}

// =============================================================================
// SHARED HELPERS
// =============================================================================

// environment is everything a command needs from the configuration files.
type environment struct {
	mainConfig *config.MainConfig
	profiles   map[string]*config.BatchProfile
	logger     *zap.SugaredLogger
}

// loadEnvironment reads the main config and every profile, then builds the
// logger at the configured level.
func loadEnvironment(configPath string, debug bool) (*environment, error) {
	mainConfig, err := config.LoadMainConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load main config: %w", err)
	}

	profiles, err := config.LoadProfiles(mainConfig.ProfilesDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load profiles: %w", err)
	}

	level := mainConfig.LogLevel
	if debug {
		level = "debug"
	}

	logger, err := logging.New(level)
	if err != nil {
		return nil, err
	}

	return &environment{
		mainConfig: mainConfig,
		profiles:   profiles,
		logger:     logger,
	}, nil
}
