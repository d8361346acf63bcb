// =============================================================================
// SEPA Credit Transfer - Main Entry Point
// =============================================================================
//
// USAGE:
//   sepa-batch build       - Build pain.001 batches from the input directory
//   sepa-batch validate    - Check configuration, or every row of one file
//   sepa-batch inspect     - Summarize a generated batch file
//   sepa-batch version     - Display the application version
//
// ARCHITECTURE:
//   - cmd/       : CLI command definitions (Cobra)
//   - internal/  : identifier checks, batch builder, readers, pipeline
//   - pkg/       : shared file utilities
//   - profiles/  : one YAML profile per debtor account
//
// =============================================================================

package main

import (
	"github.com/ginjaninja78/sepa-credit-transfer/cmd"
)

func main() {
	cmd.Execute()
}
