package batch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/ginjaninja78/rechnungstool/internal/invoice"
	"github.com/ginjaninja78/rechnungstool/internal/types"
	"github.com/ginjaninja78/rechnungstool/internal/validation"
)

type recordingCreator struct {
	requests []invoice.Request
	failFor  string
}

func (c *recordingCreator) Create(_ context.Context, req invoice.Request) (*invoice.Result, error) {
	c.requests = append(c.requests, req)
	if req.CustomerNumber == c.failFor {
		return nil, invoice.ErrMissingInput
	}
	n := types.InvoiceNumber{Date: time.Date(2025, 9, 26, 0, 0, 0, 0, time.UTC), Sequence: len(c.requests)}
	return &invoice.Result{Number: n}, nil
}

func TestGroupRows_ByCustomerAndDate(t *testing.T) {
	headers := []string{"Kundennummer", "Datum", "Bezeichnung", "Menge", "Einzelpreis"}
	rows := []map[string]string{
		{"Kundennummer": "K1", "Datum": "26.09.2025", "Bezeichnung": "Beratung", "Menge": "2", "Einzelpreis": "100"},
		{"Kundennummer": "K2", "Datum": "26.09.2025", "Bezeichnung": "Wartung", "Menge": "1", "Einzelpreis": "80"},
		{"Kundennummer": "K1", "Datum": "26.09.2025", "Bezeichnung": "Reisekosten", "Menge": "1", "Einzelpreis": "50"},
		{"Kundennummer": "K1", "Datum": "27.09.2025", "Bezeichnung": "Material", "Menge": "5", "Einzelpreis": "10"},
	}
	groups, err := GroupRows(headers, rows)
	if err != nil {
		t.Fatal(err)
	}
	if len(groups) != 3 {
		t.Fatalf("groups = %d", len(groups))
	}
	if groups[0].CustomerNumber != "K1" || len(groups[0].Items) != 2 || groups[0].FirstRow != 2 {
		t.Fatalf("first group = %+v", groups[0])
	}
	if groups[1].CustomerNumber != "K2" || groups[2].Date != "27.09.2025" || groups[2].FirstRow != 5 {
		t.Fatalf("groups = %+v", groups)
	}
	if groups[0].Items[1].Description != "Reisekosten" {
		t.Fatalf("item order = %+v", groups[0].Items)
	}
}

func TestGroupRows_ExplicitKey(t *testing.T) {
	headers := []string{"Rechnung", "Kundennummer", "Bezeichnung", "Menge", "Einzelpreis", "Text"}
	rows := []map[string]string{
		{"Rechnung": "A", "Kundennummer": "K1", "Bezeichnung": "X", "Menge": "1", "Einzelpreis": "1", "Text": "Hallo"},
		{"Rechnung": "B", "Kundennummer": "K1", "Bezeichnung": "Y", "Menge": "1", "Einzelpreis": "1"},
		{"Rechnung": "A", "Kundennummer": "K1", "Bezeichnung": "Z", "Menge": "1", "Einzelpreis": "1"},
	}
	groups, err := GroupRows(headers, rows)
	if err != nil {
		t.Fatal(err)
	}
	if len(groups) != 2 || groups[0].Key != "A" || len(groups[0].Items) != 2 || groups[0].Greeting != "Hallo" {
		t.Fatalf("groups = %+v", groups)
	}
}

func TestGroupRows_Errors(t *testing.T) {
	headers := []string{"Rechnung", "Kundennummer", "Bezeichnung", "Menge", "Einzelpreis"}
	tests := []struct {
		name string
		rows []map[string]string
		want string
	}{
		{"empty customer", []map[string]string{
			{"Kundennummer": "", "Bezeichnung": "X", "Menge": "1", "Einzelpreis": "1"},
		}, "row 2"},
		{"bad quantity", []map[string]string{
			{"Kundennummer": "K1", "Bezeichnung": "X", "Menge": "1", "Einzelpreis": "1"},
			{"Kundennummer": "K1", "Bezeichnung": "Y", "Menge": "0", "Einzelpreis": "1"},
		}, "row 3"},
		{"mixed customers", []map[string]string{
			{"Rechnung": "A", "Kundennummer": "K1", "Bezeichnung": "X", "Menge": "1", "Einzelpreis": "1"},
			{"Rechnung": "A", "Kundennummer": "K2", "Bezeichnung": "Y", "Menge": "1", "Einzelpreis": "1"},
		}, "mixes"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := GroupRows(headers, tt.rows)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("err = %v, want %q", err, tt.want)
			}
		})
	}

	if _, err := GroupRows([]string{"Bezeichnung", "Menge", "Einzelpreis"}, nil); err == nil {
		t.Fatal("missing customer column accepted")
	}
}

func TestLoad_SemicolonCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rechnungen.csv")
	content := "Kundennummer;Bezeichnung;Menge;Einzelpreis\nK1;Beratung;2,5;100,00\nK2;Wartung;1;80\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	groups, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(groups) != 2 || groups[0].Items[0].Quantity.String() != "2.5" {
		t.Fatalf("groups = %+v", groups)
	}
}

func batchGroups() []Group {
	return []Group{
		{Key: "K1/", CustomerNumber: "K1", Items: make([]types.LineItem, 2), FirstRow: 2},
		{Key: "K9/", CustomerNumber: "K9", Items: make([]types.LineItem, 1), FirstRow: 4},
		{Key: "K2/", CustomerNumber: "K2", Items: make([]types.LineItem, 3), FirstRow: 5},
	}
}

func TestRunner_StopsAtFirstFailure(t *testing.T) {
	c := &recordingCreator{failFor: "K9"}
	report, err := NewRunner(c, zerolog.Nop()).Run(context.Background(), batchGroups())
	if !errors.Is(err, invoice.ErrMissingInput) || !strings.Contains(err.Error(), "row 4") {
		t.Fatalf("err = %v", err)
	}
	st := report.Stats
	if st.Invoices != 1 || st.Failed != 1 || st.Skipped != 1 || st.Positions != 2 || st.Rows != 3 {
		t.Fatalf("stats = %+v", st)
	}
	if len(c.requests) != 2 {
		t.Fatalf("requests = %d", len(c.requests))
	}
}

func TestRunner_ContinueOnError(t *testing.T) {
	c := &recordingCreator{failFor: "K9"}
	r := NewRunner(c, zerolog.Nop())
	r.ContinueOnError = true

	report, err := r.Run(context.Background(), batchGroups())
	if err == nil {
		t.Fatal("expected joined error")
	}
	st := report.Stats
	if st.Invoices != 2 || st.Failed != 1 || st.Skipped != 0 || st.Positions != 5 {
		t.Fatalf("stats = %+v", st)
	}
	if got := report.Outcomes[2].Result.Number.String(); got != "2025-09-26-03" {
		t.Fatalf("third number = %s", got)
	}
}

func TestRunner_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	c := &recordingCreator{}
	report, err := NewRunner(c, zerolog.Nop()).Run(ctx, batchGroups())
	if !errors.Is(err, context.Canceled) || report.Stats.Skipped != 3 || len(c.requests) != 0 {
		t.Fatalf("err = %v, stats = %+v", err, report.Stats)
	}
}

type findingCreator struct{}

func (findingCreator) Create(_ context.Context, req invoice.Request) (*invoice.Result, error) {
	switch req.CustomerNumber {
	case "K9":
		return nil, &invoice.CreationError{
			Op:  "validate",
			Err: invoice.ErrMissingInput,
			Findings: []*validation.ValidationError{{
				Severity:   validation.SeverityError,
				Field:      "items[1].quantity",
				Value:      "0",
				Rule:       "positive",
				Message:    "Quantity must be greater than zero",
				LineItemID: 1,
			}},
		}
	case "K2":
		return nil, &invoice.CreationError{Op: "render pdf", Number: "2025-09-26-02", Err: invoice.ErrIO}
	}
	return &invoice.Result{}, nil
}

func TestReport_FindingsToErrorLog(t *testing.T) {
	r := NewRunner(findingCreator{}, zerolog.Nop())
	r.ContinueOnError = true
	report, err := r.Run(context.Background(), batchGroups())
	if err == nil {
		t.Fatal("expected joined error")
	}

	findings := report.Findings()
	if len(findings) != 2 {
		t.Fatalf("findings = %+v", findings)
	}
	if findings[0].Field != "row 4 items[1].quantity" || findings[0].Rule != "positive" {
		t.Fatalf("validation finding = %+v", findings[0])
	}
	if findings[1].Field != "row 5" || findings[1].Value != "K2" || findings[1].Rule != "create" ||
		!strings.Contains(findings[1].Message, "2025-09-26-02") {
		t.Fatalf("creation finding = %+v", findings[1])
	}

	path := filepath.Join(t.TempDir(), "fehler.txt")
	if err := validation.WriteErrorLog(findings, path); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"2 finding(s)", "Field 'row 4 items[1].quantity'", "Field 'row 5'"} {
		if !strings.Contains(string(data), want) {
			t.Errorf("error log lacks %q:\n%s", want, data)
		}
	}
}

func TestReport_NoFailuresNoFindings(t *testing.T) {
	report, err := NewRunner(&recordingCreator{}, zerolog.Nop()).Run(context.Background(), batchGroups())
	if err != nil {
		t.Fatal(err)
	}
	if f := report.Findings(); len(f) != 0 {
		t.Fatalf("findings = %+v", f)
	}
}
