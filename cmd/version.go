// =============================================================================
// SEPA Credit Transfer - Version Command
// =============================================================================
//
// COMMAND USAGE:
//   sepa-batch version
//
// OUTPUT:
//   sepa-batch
//   Version:    1.0.0
//   Schema:     pain.001.001.02
//   Build Date: 2024-01-01
//   Go Version: go1.24.0
//
// =============================================================================

package cmd

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/ginjaninja78/sepa-credit-transfer/internal/sepa"
)

// These variables are set at build time using ldflags:
//   go build -ldflags "-X 'github.com/ginjaninja78/sepa-credit-transfer/cmd.Version=1.0.0'"

// Version is the application version.
var Version = "1.0.0"

// BuildDate is the date the application was built.
var BuildDate = "unknown"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Display the application version",
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintln(out, "sepa-batch")
		fmt.Fprintf(out, "Version:    %s\n", Version)
		fmt.Fprintf(out, "Schema:     %s\n", sepa.RootElement)
		fmt.Fprintf(out, "Build Date: %s\n", BuildDate)
		fmt.Fprintf(out, "Go Version: %s\n", runtime.Version())
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
