// =============================================================================
// BR Code Generator - Verify Command
// =============================================================================
//
// COMMAND USAGE:
//   brcode verify PAYLOAD
//   echo PAYLOAD | brcode verify -
//
// Checks the field structure and the CRC of a payload and prints what a
// wallet would show.
//
// =============================================================================

package cmd

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ginjaninja78/brcode-generator/pkg/brcode"
)

var verifyCmd = &cobra.Command{
	Use:   "verify PAYLOAD",
	Short: "Check the checksum of a payload and print its fields",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		payload := args[0]
		if payload == "-" {
			line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
			if err != nil && err != io.EOF {
				return fmt.Errorf("failed to read payload: %w", err)
			}
			payload = line
		}

		decoded, err := brcode.Decode(strings.TrimSpace(payload))
		if err != nil {
			return fmt.Errorf("invalid payload: %w", err)
		}
		writeDecoded(cmd.OutOrStdout(), decoded)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(verifyCmd)
}

func writeDecoded(w io.Writer, d *brcode.Decoded) {
	amount := "(open)"
	if formatted, ok := brcode.FormatAmount(d.Amount); ok {
		amount = formatted
	}

	fmt.Fprintln(w, "Payload OK")
	fmt.Fprintf(w, "  Key:       %s\n", d.PaymentKey)
	fmt.Fprintf(w, "  Name:      %s\n", d.MerchantName)
	fmt.Fprintf(w, "  City:      %s\n", d.MerchantCity)
	fmt.Fprintf(w, "  Amount:    %s\n", amount)
	fmt.Fprintf(w, "  Reference: %s\n", d.ReferenceLabel)
	fmt.Fprintf(w, "  Category:  %s\n", d.CategoryCode)
	fmt.Fprintf(w, "  Currency:  %s\n", d.Currency)
	fmt.Fprintf(w, "  Country:   %s\n", d.Country)
	fmt.Fprintf(w, "  CRC:       %s\n", d.Checksum)
}
