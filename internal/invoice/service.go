// =============================================================================
// Rechnungstool - Invoice Service
// =============================================================================
//
// This module orchestrates the creation of a single invoice, from input
// validation to the durable PDF and XRechnung files.
//
// CREATION PIPELINE:
//   1. Parse the invoice date
//   2. Load the company profile and the customer
//   3. Compute totals and validate the input (errors abort, nothing consumed)
//   4. Allocate the invoice number (persisted before anything is rendered)
//   5. Write the internal working copy and validate it
//   6. Render the PDF
//   7. Delete the working copy
//   8. Write the XRechnung export
//
// FAILURE:
//   Any failure after step 4 leaves the number consumed and is reported with
//   that number. Files written up to the failure stay in place; leftover
//   working copies are removed by the reset command.
//
// =============================================================================

package invoice

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/ginjaninja78/rechnungstool/internal/config"
	"github.com/ginjaninja78/rechnungstool/internal/format"
	"github.com/ginjaninja78/rechnungstool/internal/store"
	"github.com/ginjaninja78/rechnungstool/internal/totals"
	"github.com/ginjaninja78/rechnungstool/internal/types"
	"github.com/ginjaninja78/rechnungstool/internal/validation"
	"github.com/ginjaninja78/rechnungstool/internal/xmlwriter"
	"github.com/ginjaninja78/rechnungstool/pkg/utils"
)

// =============================================================================
// COLLABORATORS
// =============================================================================

// NumberAllocator hands out invoice numbers.
type NumberAllocator interface {
	Allocate(ctx context.Context, date time.Time) (types.InvoiceNumber, error)
}

// CustomerLookup resolves customer numbers.
type CustomerLookup interface {
	Get(ctx context.Context, number string) (types.Customer, error)
}

// DocumentRenderer writes the printable invoice.
type DocumentRenderer interface {
	WriteFile(path string, doc types.Document) error
}

// CompanySource loads the company profile.
type CompanySource func() (types.CompanyProfile, error)

// Settings are the invoice-wide defaults.
type Settings struct {
	Calculator   totals.Calculator
	PaymentDays  int
	Currency     string
	UnitCode     string
	Placeholders xmlwriter.Placeholders

	// StrictPlaceholders turns placeholder warnings into errors.
	StrictPlaceholders bool
}

// SettingsFromConfig derives Settings from the main configuration.
func SettingsFromConfig(cfg *config.MainConfig) Settings {
	return Settings{
		Calculator:   totals.New(cfg.Rate()),
		PaymentDays:  cfg.PaymentDays,
		Currency:     cfg.Currency,
		UnitCode:     cfg.UnitCode,
		Placeholders: xmlwriter.DefaultPlaceholders,
	}
}

// Dependencies are the collaborators of a Service.
type Dependencies struct {
	Files     *utils.FileManager
	Numbers   NumberAllocator
	Customers CustomerLookup
	Company   CompanySource
	Renderer  DocumentRenderer
	Log       zerolog.Logger

	// Now defaults to time.Now.
	Now func() time.Time
}

// =============================================================================
// REQUEST AND RESULT
// =============================================================================

// Request describes the invoice to create.
type Request struct {
	CustomerNumber string

	// Date is DD.MM.YYYY; empty means today.
	Date string

	Items    []types.LineItem
	Greeting string
}

// Result is the outcome of a successful creation.
type Result struct {
	Number   types.InvoiceNumber
	PDFPath  string
	XMLPath  string
	Totals   types.Totals
	Warnings []*validation.ValidationError
	Duration time.Duration
}

// =============================================================================
// SERVICE
// =============================================================================

// Service creates invoices.
type Service struct {
	settings  Settings
	deps      Dependencies
	validator *validation.Validator
}

// New returns a Service.
func New(settings Settings, deps Dependencies) *Service {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &Service{
		settings: settings,
		deps:     deps,
		validator: validation.NewValidatorWithOptions(validation.ValidationOptions{
			TreatWarningsAsErrors: settings.StrictPlaceholders,
			Placeholders:          settings.Placeholders,
		}),
	}
}

// Create runs the creation pipeline for req.
func (s *Service) Create(ctx context.Context, req Request) (*Result, error) {
	start := s.deps.Now()
	log := s.deps.Log

	// =========================================================================
	// STEP 1: INVOICE DATE
	// =========================================================================

	date := format.Day(start)
	if req.Date != "" {
		d, err := format.ParseGermanDate(req.Date)
		if err != nil {
			return nil, inputError("parse date", err)
		}
		date = d
	}

	// =========================================================================
	// STEP 2: PARTIES
	// =========================================================================

	company, err := s.deps.Company()
	switch {
	case errors.Is(err, store.ErrCompanyMissing):
		log.Warn().Err(err).Msg("no company profile, using placeholders")
		company = types.CompanyProfile{}
	case err != nil:
		return nil, inputError("load company", err)
	}
	customer, err := s.deps.Customers.Get(ctx, req.CustomerNumber)
	if err != nil {
		return nil, inputError("load customer", err)
	}

	// =========================================================================
	// STEP 3: TOTALS AND VALIDATION
	// =========================================================================

	doc := types.Document{
		Company:     company,
		Customer:    customer,
		Date:        date,
		Items:       req.Items,
		Totals:      s.settings.Calculator.Compute(req.Items, company.SmallBusiness),
		Greeting:    req.Greeting,
		PaymentDays: s.settings.PaymentDays,
		Currency:    s.settings.Currency,
		UnitCode:    s.settings.UnitCode,
	}

	check := s.validator.ValidateDocument(doc)
	for _, w := range check.Warnings() {
		log.Warn().Str("field", w.Field).Str("value", w.Value).Str("rule", w.Rule).Msg(w.Message)
	}
	if !check.IsValid {
		ce := inputError("validate", errors.New(validation.FormatErrors(check.Errors)))
		ce.Findings = check.Fatal()
		if len(ce.Findings) == 0 {
			ce.Findings = check.Warnings()
		}
		return nil, ce
	}

	// =========================================================================
	// STEP 4: NUMBERING
	// =========================================================================

	number, err := s.deps.Numbers.Allocate(ctx, date)
	if err != nil {
		return nil, ioError("allocate number", "", err)
	}
	doc.Number = number
	n := number.String()
	log = log.With().Str("number", n).Logger()

	if err := s.deps.Files.EnsureDirectories(); err != nil {
		return nil, ioError("prepare directories", n, err)
	}

	// =========================================================================
	// STEP 5: WORKING COPY
	// =========================================================================

	workingCopy := s.deps.Files.WorkingCopyPath(n)
	cii, _ := xmlwriter.GenerateCII(doc, s.settings.Placeholders)
	if err := utils.WriteFileAtomic(workingCopy, cii, 0o644); err != nil {
		return nil, ioError("write working copy", n, err)
	}
	written, err := os.ReadFile(workingCopy)
	if err != nil {
		return nil, ioError("read working copy", n, err)
	}
	if r := s.validator.ValidateWorkingCopy(written, doc); !r.IsValid {
		return nil, &CreationError{
			Op:       "validate working copy",
			Number:   n,
			Err:      errors.New(validation.FormatErrors(r.Errors)),
			Findings: r.Fatal(),
		}
	}
	log.Debug().Str("path", workingCopy).Msg("working copy validated")

	// =========================================================================
	// STEP 6: PDF
	// =========================================================================

	pdfPath := s.deps.Files.PDFPath(n)
	if err := s.deps.Renderer.WriteFile(pdfPath, doc); err != nil {
		return nil, ioError("render pdf", n, err)
	}

	// =========================================================================
	// STEP 7: REMOVE WORKING COPY
	// =========================================================================

	if err := os.Remove(workingCopy); err != nil {
		log.Warn().Err(err).Str("path", workingCopy).Msg("working copy not removed")
	}

	// =========================================================================
	// STEP 8: EXPORT
	// =========================================================================

	xmlPath := s.deps.Files.ExportPath(n)
	ubl, _ := xmlwriter.GenerateUBL(doc, s.settings.Placeholders)
	if err := utils.WriteFileAtomic(xmlPath, ubl, 0o644); err != nil {
		return nil, ioError("write export", n, err)
	}

	result := &Result{
		Number:   number,
		PDFPath:  pdfPath,
		XMLPath:  xmlPath,
		Totals:   doc.Totals,
		Warnings: check.Warnings(),
		Duration: s.deps.Now().Sub(start),
	}
	log.Info().
		Str("customer", customer.Number).
		Str("gross", format.Amount(doc.Totals.Gross)).
		Str("pdf", pdfPath).
		Str("xml", xmlPath).
		Int("warnings", len(result.Warnings)).
		Msg("invoice created")
	return result, nil
}

// Describe returns a one-line summary of a result for terminal output.
func (r *Result) Describe() string {
	return fmt.Sprintf("Rechnung %s: netto %s, MwSt %s, brutto %s",
		r.Number, format.Euro(r.Totals.Net), format.Euro(r.Totals.Tax), format.Euro(r.Totals.Gross))
}
