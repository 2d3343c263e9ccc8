// =============================================================================
// Rechnungstool - Reset Command
// =============================================================================
//
// This file defines the 'reset' maintenance command. It removes leftovers of
// interrupted runs:
//   - temp_invoice_*.xml, test_*.xml and *.tmp in the temp directory
//   - unfinished atomic writes (.*.tmp) in the data and invoices directories
//
// Issued invoices, the ledger and master data are never touched.
//
// COMMAND USAGE:
//   rechnungstool reset --yes
//
// =============================================================================

package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ginjaninja78/rechnungstool/internal/logger"
	"github.com/ginjaninja78/rechnungstool/pkg/utils"
)

var resetConfirmed bool

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Remove leftover working copies and temp files",
	RunE:  runReset,
}

func runReset(cmd *cobra.Command, args []string) error {
	if !resetConfirmed {
		return errors.New("reset removes temp files; pass --yes to confirm")
	}
	log := logger.WithComponent("reset")

	targets := []struct {
		dir      string
		patterns []string
	}{
		{appConfig.TempDir, utils.DefaultTempPatterns},
		{appConfig.DataDir, []string{".*.tmp"}},
		{appConfig.InvoicesDir, []string{".*.tmp"}},
	}

	var removed []string
	var errs []error
	for _, t := range targets {
		files, err := utils.CleanTempFiles(t.dir, t.patterns)
		removed = append(removed, files...)
		if err != nil {
			errs = append(errs, err)
		}
	}

	out := cmd.OutOrStdout()
	for _, f := range removed {
		log.Debug().Str("path", f).Msg("removed")
		fmt.Fprintf(out, "entfernt: %s\n", f)
	}
	fmt.Fprintf(out, "%d Datei(en) entfernt.\n", len(removed))
	log.Info().Int("removed", len(removed)).Msg("reset finished")
	return errors.Join(errs...)
}

func init() {
	resetCmd.Flags().BoolVar(&resetConfirmed, "yes", false, "Confirm removal")
	rootCmd.AddCommand(resetCmd)
}
