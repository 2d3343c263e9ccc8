// =============================================================================
// Rechnungstool - Invoice Command
// =============================================================================
//
// This file defines the 'invoice create' command, which issues one invoice,
// and 'invoice batch', which issues several invoices from one table.
//
// COMMAND USAGE:
//   rechnungstool invoice create --customer K1A2B3C4D [flags]
//   rechnungstool invoice batch --file rechnungen.csv [--continue-on-error]
//       [--error-log fehler.txt]
//
// CREATE FLAGS:
//   --customer    : Customer number (required)
//   --date        : Invoice date DD.MM.YYYY (default today)
//   --item        : Position "description;quantity;unit price" (repeatable)
//   --items-file  : Positions from a .csv or .xlsx file
//   --greeting    : Text printed above the positions
//   --strict      : Treat placeholder warnings as errors
//
// PROCESSING PIPELINE:
//   1. Collect the positions from --item and --items-file
//   2. Wire the ledger, customer store, company profile and PDF renderer
//   3. Run the invoice service
//   4. Print the summary and any warnings
//
// =============================================================================

package cmd

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/ginjaninja78/rechnungstool/internal/batch"
	"github.com/ginjaninja78/rechnungstool/internal/invoice"
	"github.com/ginjaninja78/rechnungstool/internal/logger"
	"github.com/ginjaninja78/rechnungstool/internal/pdf"
	"github.com/ginjaninja78/rechnungstool/internal/store"
	"github.com/ginjaninja78/rechnungstool/internal/types"
	"github.com/ginjaninja78/rechnungstool/internal/validation"
	"github.com/ginjaninja78/rechnungstool/pkg/utils"
)

// =============================================================================
// COMMAND FLAGS
// =============================================================================

var (
	invoiceCustomer  string
	invoiceDate      string
	invoiceItems     []string
	invoiceItemsFile string
	invoiceGreeting  string
	invoiceStrict    bool

	batchFile            string
	batchContinueOnError bool
	batchErrorLog        string
)

// =============================================================================
// INVOICE COMMAND DEFINITION
// =============================================================================

var invoiceCmd = &cobra.Command{
	Use:   "invoice",
	Short: "Create invoices",
}

var invoiceCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create an invoice as PDF and XRechnung XML",
	Long: `The create command issues one invoice for an existing customer.

The invoice number is allocated only after the input has been validated. Once
allocated, a number is never handed out again, even if writing the files fails.

Positions are given with --item (repeatable) or read from a CSV or XLSX file
with the columns Bezeichnung, Menge and Einzelpreis. Both sources may be
combined; file positions come first.

Example:
  rechnungstool invoice create --customer K1A2B3C4D \
      --item "Beratung;2;100" --item "Reisekosten;1;50"`,
	RunE: runInvoiceCreate,
}

var invoiceBatchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Create several invoices from one CSV or XLSX file",
	Long: `The batch command reads a table with one position per row and the columns
Kundennummer, Bezeichnung, Menge, Einzelpreis and optionally Datum, Rechnung
and Text. Rows with the same Rechnung value (or, without that column, the same
customer and date) become one invoice. Invoices are numbered in file order.

By default the run stops at the first failed invoice. With --error-log the
failures are also written to a text file, one finding per line.`,
	RunE: runInvoiceBatch,
}

// runInvoiceCreate is the main function for the 'invoice create' command.
func runInvoiceCreate(cmd *cobra.Command, args []string) error {
	// =========================================================================
	// STEP 1: POSITIONS
	// =========================================================================

	items, err := collectItems()
	if err != nil {
		return err
	}

	// =========================================================================
	// STEP 2: WIRING
	// =========================================================================

	log := logger.WithRun("invoice", uuid.NewString())
	svc := newInvoiceService(log)

	// =========================================================================
	// STEP 3: CREATE
	// =========================================================================

	res, err := svc.Create(cmd.Context(), invoice.Request{
		CustomerNumber: invoiceCustomer,
		Date:           invoiceDate,
		Items:          items,
		Greeting:       invoiceGreeting,
	})
	if err != nil {
		var ce *invoice.CreationError
		if errors.As(err, &ce) && ce.Number != "" {
			log.Error().Err(err).Str("number", ce.Number).Msg("invoice number consumed by failed attempt")
		}
		return err
	}

	// =========================================================================
	// STEP 4: SUMMARY
	// =========================================================================

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, res.Describe())
	fmt.Fprintf(out, "  PDF: %s\n", res.PDFPath)
	fmt.Fprintf(out, "  XML: %s\n", res.XMLPath)
	if len(res.Warnings) > 0 {
		fmt.Fprintf(out, "\n%d Hinweis(e):\n", len(res.Warnings))
		for _, w := range res.Warnings {
			fmt.Fprintf(out, "  - %s\n", w.Error())
		}
	}
	return nil
}

func runInvoiceBatch(cmd *cobra.Command, args []string) error {
	groups, err := batch.Load(batchFile)
	if err != nil {
		return fmt.Errorf("%w: %w", invoice.ErrMissingInput, err)
	}

	runID := uuid.NewString()
	log := logger.WithRun("batch", runID)
	log.Info().Str("file", batchFile).Int("invoices", len(groups)).Msg("batch started")

	runner := batch.NewRunner(newInvoiceService(log), log)
	runner.ContinueOnError = batchContinueOnError
	report, runErr := runner.Run(cmd.Context(), groups)

	out := cmd.OutOrStdout()
	for _, o := range report.Outcomes {
		if o.Err != nil {
			fmt.Fprintf(out, "FEHLER Zeile %d (%s): %v\n", o.Group.FirstRow, o.Group.CustomerNumber, o.Err)
			continue
		}
		fmt.Fprintln(out, o.Result.Describe())
	}
	st := report.Stats
	fmt.Fprintf(out, "\n%d Rechnung(en) erstellt, %d fehlgeschlagen, %d übersprungen (%s)\n",
		st.Invoices, st.Failed, st.Skipped, st.Duration.Round(time.Millisecond))

	if batchErrorLog != "" {
		findings := report.Findings()
		if err := validation.WriteErrorLog(findings, batchErrorLog); err != nil {
			return errors.Join(runErr, fmt.Errorf("failed to write error log: %w", err))
		}
		log.Info().Str("path", batchErrorLog).Int("findings", len(findings)).Msg("error log written")
	}
	return runErr
}

// newInvoiceService wires the invoice service from appConfig.
func newInvoiceService(log zerolog.Logger) *invoice.Service {
	logo := pdf.FindLogo(appConfig.LogoCandidates(), log)
	settings := invoice.SettingsFromConfig(appConfig)
	settings.StrictPlaceholders = invoiceStrict

	return invoice.New(settings, invoice.Dependencies{
		Files:     utils.NewFileManager(appConfig.DataDir, appConfig.InvoicesDir, appConfig.TempDir),
		Numbers:   newNumberEngine(),
		Customers: newCustomerStore(),
		Company: func() (types.CompanyProfile, error) {
			return store.LoadCompany(appConfig.CompanyPath())
		},
		Renderer: pdf.NewRenderer(logo, log),
		Log:      log,
	})
}

// collectItems merges --items-file and --item positions.
func collectItems() ([]types.LineItem, error) {
	var items []types.LineItem
	if invoiceItemsFile != "" {
		fromFile, err := store.LoadItems(invoiceItemsFile)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", invoice.ErrMissingInput, err)
		}
		items = append(items, fromFile...)
	}
	for _, spec := range invoiceItems {
		item, err := store.ParseItemSpec(spec)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", invoice.ErrMissingInput, err)
		}
		items = append(items, item)
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("%w: at least one --item or --items-file is required", invoice.ErrMissingInput)
	}
	return items, nil
}

// =============================================================================
// INITIALIZATION
// =============================================================================

func init() {
	invoiceCreateCmd.Flags().StringVar(&invoiceCustomer, "customer", "", "Customer number")
	invoiceCreateCmd.Flags().StringVar(&invoiceDate, "date", "", "Invoice date DD.MM.YYYY (default today)")
	invoiceCreateCmd.Flags().StringArrayVar(&invoiceItems, "item", nil, `Position "description;quantity;unit price" (repeatable)`)
	invoiceCreateCmd.Flags().StringVar(&invoiceItemsFile, "items-file", "", "Read positions from a .csv or .xlsx file")
	invoiceCreateCmd.Flags().StringVar(&invoiceGreeting, "greeting", "", "Text printed above the positions")
	invoiceCreateCmd.Flags().BoolVar(&invoiceStrict, "strict", false, "Treat placeholder warnings as errors")
	invoiceCreateCmd.MarkFlagRequired("customer")

	invoiceBatchCmd.Flags().StringVar(&batchFile, "file", "", "CSV or XLSX file with one position per row")
	invoiceBatchCmd.Flags().BoolVar(&batchContinueOnError, "continue-on-error", false, "Keep going after a failed invoice")
	invoiceBatchCmd.Flags().BoolVar(&invoiceStrict, "strict", false, "Treat placeholder warnings as errors")
	invoiceBatchCmd.Flags().StringVar(&batchErrorLog, "error-log", "", "Write the failures to this file")
	invoiceBatchCmd.MarkFlagRequired("file")

	invoiceCmd.AddCommand(invoiceCreateCmd, invoiceBatchCmd)
	rootCmd.AddCommand(invoiceCmd)
}
