// =============================================================================
// Rechnungstool - Batch Module
// =============================================================================
//
// This module creates several invoices from one table (CSV or XLSX). Every
// row is one position; rows are grouped into invoices.
//
// INPUT COLUMNS:
//   Kundennummer   customer number (required)
//   Bezeichnung    position description (required)
//   Menge          quantity (required)
//   Einzelpreis    unit price (required)
//   Datum          invoice date DD.MM.YYYY (optional, default today)
//   Rechnung       grouping key (optional)
//   Text           greeting text, taken from the first row of a group
//
// GROUPING:
//   Rows with the same Rechnung value form one invoice. Without that column,
//   rows with the same customer and date form one invoice. Invoices keep the
//   order of their first row.
//
// PROCESSING PIPELINE:
//   1. Read the table
//   2. Group rows into invoices and parse the positions
//   3. Create the invoices one after another, in group order
//   4. Collect per-invoice results and statistics
//
// Invoices are created sequentially so that numbers follow the file order.
//
// =============================================================================

package batch

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/ginjaninja78/rechnungstool/internal/invoice"
	"github.com/ginjaninja78/rechnungstool/internal/store"
	"github.com/ginjaninja78/rechnungstool/internal/types"
	"github.com/ginjaninja78/rechnungstool/internal/validation"
)

var (
	customerHeaders = []string{"Kundennummer", "Kunde", "Customer"}
	dateHeaders     = []string{"Datum", "Rechnungsdatum", "Date"}
	groupHeaders    = []string{"Rechnung", "Gruppe", "Invoice"}
	greetingHeaders = []string{"Text", "Anschreiben", "Greeting"}
)

// =============================================================================
// GROUPS
// =============================================================================

// Group is one invoice to create.
type Group struct {
	// Key identifies the group in logs and reports.
	Key string

	CustomerNumber string
	Date           string
	Greeting       string
	Items          []types.LineItem

	// FirstRow is the 1-based file line of the group's first row, counting
	// the header as line 1.
	FirstRow int
}

// Request converts the group to an invoice request.
func (g Group) Request() invoice.Request {
	return invoice.Request{
		CustomerNumber: g.CustomerNumber,
		Date:           g.Date,
		Items:          g.Items,
		Greeting:       g.Greeting,
	}
}

// Load reads path and groups its rows.
func Load(path string) ([]Group, error) {
	headers, rows, err := store.ReadTable(path, customerHeaders)
	if err != nil {
		return nil, err
	}
	groups, err := GroupRows(headers, rows)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return groups, nil
}

// GroupRows groups header-keyed rows into invoices.
//
// RETURNS:
//   - The groups in order of first occurrence.
//   - An error naming the first row with a missing customer or a bad position.
func GroupRows(headers []string, rows []map[string]string) ([]Group, error) {
	customerCol := store.FindHeader(headers, customerHeaders)
	if customerCol == "" {
		return nil, fmt.Errorf("column Kundennummer is required, found %v", headers)
	}
	descCol, qtyCol, priceCol, err := store.ItemColumns(headers)
	if err != nil {
		return nil, err
	}
	dateCol := store.FindHeader(headers, dateHeaders)
	groupCol := store.FindHeader(headers, groupHeaders)
	greetingCol := store.FindHeader(headers, greetingHeaders)

	index := make(map[string]int)
	var groups []Group

	for i, row := range rows {
		line := i + 2
		customer := strings.TrimSpace(row[customerCol])
		if customer == "" {
			return nil, fmt.Errorf("row %d: customer number is empty", line)
		}
		date := strings.TrimSpace(cell(row, dateCol))

		key := strings.TrimSpace(cell(row, groupCol))
		if key == "" {
			key = customer + "/" + date
		}

		item, err := store.NewLineItem(row[descCol], row[qtyCol], row[priceCol])
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", line, err)
		}

		gi, ok := index[key]
		if !ok {
			gi = len(groups)
			index[key] = gi
			groups = append(groups, Group{
				Key:            key,
				CustomerNumber: customer,
				Date:           date,
				Greeting:       strings.TrimSpace(cell(row, greetingCol)),
				FirstRow:       line,
			})
		}
		g := &groups[gi]
		if g.CustomerNumber != customer || g.Date != date {
			return nil, fmt.Errorf("row %d: invoice %q mixes customers or dates", line, key)
		}
		g.Items = append(g.Items, item)
	}
	return groups, nil
}

func cell(row map[string]string, col string) string {
	if col == "" {
		return ""
	}
	return row[col]
}

// =============================================================================
// RUNNER
// =============================================================================

// Creator creates a single invoice.
type Creator interface {
	Create(ctx context.Context, req invoice.Request) (*invoice.Result, error)
}

// Outcome is the result of one group.
type Outcome struct {
	Group  Group
	Result *invoice.Result
	Err    error
}

// Stats summarizes a batch run. Rows counts the positions of every group
// that was attempted, Positions only those of created invoices.
type Stats struct {
	Rows      int
	Invoices  int
	Positions int
	Failed    int
	Skipped   int
	Duration  time.Duration
}

// Report is the outcome of a batch run.
type Report struct {
	Outcomes []Outcome
	Stats    Stats
}

// Findings lists the failures of the run for the error log. Validation
// failures contribute their findings, tagged with the group's first row in
// Field; any other failure becomes one error finding.
func (r *Report) Findings() []*validation.ValidationError {
	var out []*validation.ValidationError
	for _, o := range r.Outcomes {
		if o.Err == nil {
			continue
		}
		row := fmt.Sprintf("row %d", o.Group.FirstRow)

		var ce *invoice.CreationError
		if errors.As(o.Err, &ce) && len(ce.Findings) > 0 {
			for _, f := range ce.Findings {
				tagged := *f
				tagged.Field = row + " " + f.Field
				out = append(out, &tagged)
			}
			continue
		}
		out = append(out, &validation.ValidationError{
			Severity: validation.SeverityError,
			Field:    row,
			Value:    o.Group.CustomerNumber,
			Rule:     "create",
			Message:  o.Err.Error(),
		})
	}
	return out
}

// Runner creates the invoices of a batch.
type Runner struct {
	creator Creator
	log     zerolog.Logger

	// ContinueOnError keeps going after a failed invoice.
	ContinueOnError bool
}

// NewRunner returns a Runner.
func NewRunner(creator Creator, log zerolog.Logger) *Runner {
	return &Runner{creator: creator, log: log}
}

// Run creates one invoice per group in order. Without ContinueOnError the
// run stops at the first failure and the remaining groups are skipped. The
// returned error joins all failures.
func (r *Runner) Run(ctx context.Context, groups []Group) (*Report, error) {
	start := time.Now()
	report := &Report{Outcomes: make([]Outcome, 0, len(groups))}

	var errs []error
	for i, g := range groups {
		if err := ctx.Err(); err != nil {
			report.Stats.Skipped = len(groups) - i
			errs = append(errs, err)
			break
		}

		log := r.log.With().Str("group", g.Key).Int("row", g.FirstRow).Logger()
		res, err := r.creator.Create(ctx, g.Request())
		report.Outcomes = append(report.Outcomes, Outcome{Group: g, Result: res, Err: err})
		report.Stats.Rows += len(g.Items)

		if err != nil {
			report.Stats.Failed++
			errs = append(errs, fmt.Errorf("row %d (%s): %w", g.FirstRow, g.Key, err))
			log.Error().Err(err).Msg("batch invoice failed")
			if !r.ContinueOnError {
				report.Stats.Skipped = len(groups) - i - 1
				break
			}
			continue
		}

		report.Stats.Invoices++
		report.Stats.Positions += len(g.Items)
		log.Debug().Str("number", res.Number.String()).Msg("batch invoice created")
	}

	report.Stats.Duration = time.Since(start)
	r.log.Info().
		Int("invoices", report.Stats.Invoices).
		Int("failed", report.Stats.Failed).
		Int("skipped", report.Stats.Skipped).
		Dur("duration", report.Stats.Duration).
		Msg("batch finished")
	return report, errors.Join(errs...)
}
