package invoice

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/ginjaninja78/rechnungstool/internal/numbering"
	"github.com/ginjaninja78/rechnungstool/internal/pdf"
	"github.com/ginjaninja78/rechnungstool/internal/store"
	"github.com/ginjaninja78/rechnungstool/internal/totals"
	"github.com/ginjaninja78/rechnungstool/internal/types"
	"github.com/ginjaninja78/rechnungstool/internal/xmlwriter"
	"github.com/ginjaninja78/rechnungstool/pkg/utils"
)

type customers map[string]types.Customer

func (c customers) Get(_ context.Context, number string) (types.Customer, error) {
	k, ok := c[number]
	if !ok {
		return types.Customer{}, store.ErrCustomerNotFound
	}
	return k, nil
}

type failingRenderer struct{}

func (failingRenderer) WriteFile(string, types.Document) error {
	return errors.New("disk full")
}

type fixture struct {
	svc    *Service
	files  *utils.FileManager
	ledger *numbering.MemoryStore
	exempt bool
}

func newFixture(t *testing.T, exempt bool) *fixture {
	t.Helper()
	dir := t.TempDir()
	f := &fixture{
		files:  utils.NewFileManager(filepath.Join(dir, "daten"), filepath.Join(dir, "rechnungen"), filepath.Join(dir, "tmp")),
		ledger: numbering.NewMemoryStore(nil),
		exempt: exempt,
	}
	company := types.CompanyProfile{
		Name: "Muster GmbH", Street: "Hauptstraße", HouseNumber: "5", ZipCode: "10115", City: "Berlin", Country: "DE",
		Phone: "030 123", Email: "info@muster.de", VATID: "DE123456789", IBAN: "DE89370400440532013000",
		BIC: "COBADEFFXXX", BankName: "Commerzbank", ManagingDirector: "Erika Muster", SmallBusiness: exempt,
	}
	f.svc = New(Settings{
		Calculator:   totals.New(totals.StandardRate),
		PaymentDays:  14,
		Currency:     "EUR",
		UnitCode:     "HUR",
		Placeholders: xmlwriter.DefaultPlaceholders,
	}, Dependencies{
		Files:   f.files,
		Numbers: numbering.NewEngine(f.ledger, zerolog.Nop()),
		Customers: customers{"K1": {
			Number: "K1", Kind: types.CustomerBusiness, Name: "Beispiel AG", ContactPerson: "Frau Schmidt",
			Street: "Weg", HouseNumber: "1", ZipCode: "50667", City: "Köln", Email: "rechnung@beispiel.de",
		}, "K2": {
			Number: "K2", Kind: types.CustomerIndividual, Name: "Max Meier",
		}},
		Company:  func() (types.CompanyProfile, error) { return company, nil },
		Renderer: pdf.NewRenderer(nil, zerolog.Nop()),
		Log:      zerolog.Nop(),
		Now:      func() time.Time { return time.Date(2025, 9, 26, 10, 30, 0, 0, time.UTC) },
	})
	return f
}

func scenario() []types.LineItem {
	return []types.LineItem{
		{Description: "Beratung", Quantity: decimal.NewFromInt(2), UnitPrice: decimal.NewFromInt(100)},
		{Description: "Reisekosten", Quantity: decimal.NewFromInt(1), UnitPrice: decimal.NewFromInt(50)},
		{Description: "Material", Quantity: decimal.NewFromInt(5), UnitPrice: decimal.NewFromInt(10)},
	}
}

func TestCreate(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()

	res, err := f.svc.Create(ctx, Request{CustomerNumber: "K1", Date: "26.09.2025", Items: scenario()})
	if err != nil {
		t.Fatal(err)
	}
	if res.Number.String() != "2025-09-26-01" {
		t.Fatalf("number = %s", res.Number)
	}
	if res.PDFPath != filepath.Join(f.files.InvoicesDir, "Rechnung_2025-09-26-01.pdf") ||
		res.XMLPath != filepath.Join(f.files.InvoicesDir, "XRechnung_2025-09-26-01.xml") {
		t.Fatalf("paths = %s %s", res.PDFPath, res.XMLPath)
	}
	if len(res.Warnings) != 0 {
		t.Fatalf("warnings = %v", res.Warnings)
	}
	if got := res.Describe(); got != "Rechnung 2025-09-26-01: netto 300,00 €, MwSt 57,00 €, brutto 357,00 €" {
		t.Fatalf("describe = %q", got)
	}

	pdfData, err := os.ReadFile(res.PDFPath)
	if err != nil || !strings.HasPrefix(string(pdfData), "%PDF-") {
		t.Fatalf("pdf: %v", err)
	}
	xmlData, err := os.ReadFile(res.XMLPath)
	if err != nil {
		t.Fatal(err)
	}
	ubl, err := xmlwriter.DecodeUBL(xmlData)
	if err != nil {
		t.Fatal(err)
	}
	if ubl.Net != "300.00" || ubl.TaxAmount != "57.00" || ubl.Gross != "357.00" || ubl.TaxCategory != "S" {
		t.Fatalf("export totals = %s %s %s %s", ubl.Net, ubl.TaxAmount, ubl.Gross, ubl.TaxCategory)
	}

	leftovers, _ := filepath.Glob(filepath.Join(f.files.TempDir, "temp_invoice_*.xml"))
	if len(leftovers) != 0 {
		t.Fatalf("working copies left: %v", leftovers)
	}

	second, err := f.svc.Create(ctx, Request{CustomerNumber: "K1", Date: "26.09.2025", Items: scenario()})
	if err != nil {
		t.Fatal(err)
	}
	if second.Number.String() != "2025-09-26-02" {
		t.Fatalf("second number = %s", second.Number)
	}
}

func TestCreate_Exempt(t *testing.T) {
	f := newFixture(t, true)
	res, err := f.svc.Create(context.Background(), Request{CustomerNumber: "K1", Date: "26.09.2025", Items: scenario()})
	if err != nil {
		t.Fatal(err)
	}
	tt := res.Totals
	if !tt.Net.Equal(decimal.NewFromInt(300)) || !tt.Tax.IsZero() || !tt.Gross.Equal(tt.Net) || tt.Category != types.TaxExempt {
		t.Fatalf("totals = %+v", tt)
	}
}

func TestCreate_DefaultsToToday(t *testing.T) {
	f := newFixture(t, false)
	res, err := f.svc.Create(context.Background(), Request{CustomerNumber: "K1", Items: scenario()})
	if err != nil {
		t.Fatal(err)
	}
	if res.Number.String() != "2025-09-26-01" {
		t.Fatalf("number = %s", res.Number)
	}
}

func TestCreate_PlaceholderWarnings(t *testing.T) {
	f := newFixture(t, false)
	res, err := f.svc.Create(context.Background(), Request{CustomerNumber: "K2", Date: "26.09.2025", Items: scenario()})
	if err != nil {
		t.Fatal(err)
	}
	fields := map[string]bool{}
	for _, w := range res.Warnings {
		fields[w.Field] = true
	}
	for _, want := range []string{"customer.email", "customer.street", "customer.city", "customer.zip"} {
		if !fields[want] {
			t.Errorf("no warning for %s", want)
		}
	}
}

func TestCreate_MissingCompanyUsesPlaceholders(t *testing.T) {
	f := newFixture(t, false)
	f.svc.deps.Company = func() (types.CompanyProfile, error) {
		return types.CompanyProfile{}, fmt.Errorf("%w: unternehmen.csv does not exist", store.ErrCompanyMissing)
	}

	res, err := f.svc.Create(context.Background(), Request{CustomerNumber: "K1", Date: "26.09.2025", Items: scenario()})
	if err != nil {
		t.Fatal(err)
	}
	fields := map[string]bool{}
	for _, w := range res.Warnings {
		fields[w.Field] = true
	}
	for _, want := range []string{"company.name", "company.street", "company.iban", "company.vat_id"} {
		if !fields[want] {
			t.Errorf("no warning for %s", want)
		}
	}
	if !res.Totals.Tax.Equal(decimal.NewFromInt(57)) {
		t.Fatalf("tax = %s", res.Totals.Tax)
	}
}

func TestCreate_UnreadableCompanyAborts(t *testing.T) {
	f := newFixture(t, false)
	f.svc.deps.Company = func() (types.CompanyProfile, error) {
		return types.CompanyProfile{}, os.ErrPermission
	}

	_, err := f.svc.Create(context.Background(), Request{CustomerNumber: "K1", Date: "26.09.2025", Items: scenario()})
	if !errors.Is(err, ErrMissingInput) || !errors.Is(err, os.ErrPermission) {
		t.Fatalf("err = %v", err)
	}
	ledger, _ := f.ledger.Snapshot(context.Background())
	if len(ledger) != 0 {
		t.Fatalf("ledger = %v", ledger)
	}
}

func TestCreate_ValidationFindings(t *testing.T) {
	f := newFixture(t, false)
	items := scenario()
	items[1].Quantity = decimal.Zero

	_, err := f.svc.Create(context.Background(), Request{CustomerNumber: "K1", Date: "26.09.2025", Items: items})
	var ce *CreationError
	if !errors.As(err, &ce) {
		t.Fatalf("err = %v", err)
	}
	if len(ce.Findings) != 1 || ce.Findings[0].Field != "items[2].quantity" || ce.Findings[0].LineItemID != 2 {
		t.Fatalf("findings = %+v", ce.Findings)
	}
}

func TestCreate_InputErrorsConsumeNothing(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()

	tests := []struct {
		name string
		req  Request
		is   error
	}{
		{"bad date", Request{CustomerNumber: "K1", Date: "2025-09-26", Items: scenario()}, nil},
		{"unknown customer", Request{CustomerNumber: "K9", Date: "26.09.2025", Items: scenario()}, store.ErrCustomerNotFound},
		{"no items", Request{CustomerNumber: "K1", Date: "26.09.2025"}, nil},
		{"zero quantity", Request{CustomerNumber: "K1", Date: "26.09.2025", Items: []types.LineItem{
			{Description: "X", Quantity: decimal.Zero, UnitPrice: decimal.NewFromInt(1)},
		}}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Create(ctx, tt.req)
			if !errors.Is(err, ErrMissingInput) {
				t.Fatalf("err = %v", err)
			}
			if tt.is != nil && !errors.Is(err, tt.is) {
				t.Fatalf("err = %v, want %v", err, tt.is)
			}
			var ce *CreationError
			if !errors.As(err, &ce) || ce.Number != "" {
				t.Fatalf("creation error = %+v", ce)
			}
		})
	}

	ledger, _ := f.ledger.Snapshot(ctx)
	if len(ledger) != 0 {
		t.Fatalf("ledger = %v", ledger)
	}
}

func TestCreate_RenderFailureKeepsNumber(t *testing.T) {
	f := newFixture(t, false)
	f.svc.deps.Renderer = failingRenderer{}
	ctx := context.Background()

	_, err := f.svc.Create(ctx, Request{CustomerNumber: "K1", Date: "26.09.2025", Items: scenario()})
	if !errors.Is(err, ErrIO) {
		t.Fatalf("err = %v", err)
	}
	var ce *CreationError
	if !errors.As(err, &ce) || ce.Number != "2025-09-26-01" || ce.Op != "render pdf" {
		t.Fatalf("creation error = %+v", ce)
	}

	// The working copy stays for the reset command.
	leftovers, _ := filepath.Glob(filepath.Join(f.files.TempDir, "temp_invoice_*.xml"))
	if len(leftovers) != 1 {
		t.Fatalf("working copies: %v", leftovers)
	}

	f.svc.deps.Renderer = pdf.NewRenderer(nil, zerolog.Nop())
	res, err := f.svc.Create(ctx, Request{CustomerNumber: "K1", Date: "26.09.2025", Items: scenario()})
	if err != nil {
		t.Fatal(err)
	}
	if res.Number.Sequence != 2 {
		t.Fatalf("number reused: %s", res.Number)
	}
}

func TestCreate_StrictPlaceholders(t *testing.T) {
	f := newFixture(t, false)
	f.svc = New(Settings{
		Calculator:         totals.New(totals.StandardRate),
		PaymentDays:        14,
		Currency:           "EUR",
		UnitCode:           "HUR",
		Placeholders:       xmlwriter.DefaultPlaceholders,
		StrictPlaceholders: true,
	}, f.svc.deps)

	_, err := f.svc.Create(context.Background(), Request{CustomerNumber: "K2", Date: "26.09.2025", Items: scenario()})
	if !errors.Is(err, ErrMissingInput) {
		t.Fatalf("err = %v", err)
	}
	var ce *CreationError
	if !errors.As(err, &ce) || len(ce.Findings) == 0 || ce.Findings[0].Rule != "placeholder" {
		t.Fatalf("findings = %+v", ce)
	}
}

func TestCreationError(t *testing.T) {
	err := ioError("write export", "2025-09-26-01", os.ErrPermission)
	if !errors.Is(err, ErrIO) || !errors.Is(err, os.ErrPermission) {
		t.Fatalf("unwrap failed: %v", err)
	}
	if !strings.HasPrefix(err.Error(), "invoice 2025-09-26-01: write export failed") {
		t.Fatalf("message = %s", err)
	}
}
