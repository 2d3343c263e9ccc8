// =============================================================================
// Rechnungstool - Numbers Command
// =============================================================================
//
// COMMAND USAGE:
//   rechnungstool numbers [--date DD.MM.YYYY]...
//
// OUTPUT:
//   Letzte Rechnungsnummer:  2025-09-26-03
//   Nächste Nummer heute:    2025-10-01-01
//   Rechnungen heute:        0
//   Vorschau 30.09.2025:     2025-09-30-01
//
// Nothing is allocated; previews only read the ledger.
//
// =============================================================================

package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/ginjaninja78/rechnungstool/internal/format"
)

var previewDates []string

var numbersCmd = &cobra.Command{
	Use:   "numbers",
	Short: "Show the invoice numbering state without allocating numbers",
	RunE:  runNumbers,
}

func runNumbers(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	engine := newNumberEngine()

	st, err := engine.Status(ctx, time.Now())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	last := "-"
	if st.Last != nil {
		last = st.Last.String()
	}
	fmt.Fprintf(out, "Letzte Rechnungsnummer:  %s\n", last)
	fmt.Fprintf(out, "Nächste Nummer heute:    %s\n", st.NextToday)
	fmt.Fprintf(out, "Rechnungen heute:        %d\n", st.IssuedToday)
	fmt.Fprintf(out, "Tage im Journal:         %d\n", st.Days)

	for _, s := range previewDates {
		d, err := format.ParseGermanDate(s)
		if err != nil {
			return err
		}
		n, err := engine.Peek(ctx, d)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Vorschau %s:     %s\n", d.Format(format.GermanDate), n)
	}
	return nil
}

func init() {
	numbersCmd.Flags().StringArrayVar(&previewDates, "date", nil, "Preview the next number for DD.MM.YYYY (repeatable)")
	rootCmd.AddCommand(numbersCmd)
}
