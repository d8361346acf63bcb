// =============================================================================
// SEPA Credit Transfer - Inspect Command
// =============================================================================
//
// This file defines the 'inspect' command, which reads a generated pain.001
// file back and prints its header and payments. The header totals are
// checked against the payments.
//
// COMMAND USAGE:
//   sepa-batch inspect --file output/ACME_batch.xml
//
// =============================================================================

package cmd

import (
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/ginjaninja78/sepa-credit-transfer/internal/sepa"
)

var inspectFile string

var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Print a summary of a generated batch file",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runInspect(cmd.OutOrStdout(), inspectFile)
	},
}

func init() {
	rootCmd.AddCommand(inspectCmd)

	inspectCmd.Flags().StringVar(&inspectFile, "file", "", "Batch file to inspect")
	inspectCmd.MarkFlagRequired("file")
}

// runInspect prints the document and returns an error if it cannot be read
// or its header does not match its payments.
func runInspect(out io.Writer, path string) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open batch file: %w", err)
	}
	defer file.Close()

	doc, err := sepa.ParseDocument(file)
	if err != nil {
		return err
	}

	header := doc.GroupHeader
	fmt.Fprintf(out, "Message ID:    %s\n", header.MessageID)
	fmt.Fprintf(out, "Created:       %s\n", header.CreationDateTime)
	fmt.Fprintf(out, "Transactions:  %s\n", header.NumberOfTransactions)
	fmt.Fprintf(out, "Control sum:   %s\n", header.ControlSum)
	if len(doc.Payments) > 0 {
		fmt.Fprintf(out, "Debtor:        %s (%s)\n", doc.Payments[0].DebtorIBAN, doc.Payments[0].DebtorBIC)
	}
	fmt.Fprintln(out)

	table := tablewriter.NewWriter(out)
	table.SetHeader([]string{"#", "Date", "Amount", "Ccy", "Creditor", "IBAN", "BIC", "End-to-end ID"})
	table.SetAutoWrapText(false)
	for i, payment := range doc.Payments {
		tx := payment.Transfer
		table.Append([]string{
			strconv.Itoa(i + 1),
			payment.RequestedExecutionDate,
			tx.Amount.Value,
			tx.Amount.Currency,
			tx.CreditorName,
			tx.CreditorIBAN,
			tx.CreditorBIC,
			tx.EndToEndID,
		})
	}
	table.Render()

	if err := doc.Verify(); err != nil {
		fmt.Fprintf(out, "\nHeader check FAILED: %v\n", err)
		return err
	}

	fmt.Fprintln(out, "\nHeader check OK")
	return nil
}
