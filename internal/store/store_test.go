package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/ginjaninja78/rechnungstool/internal/types"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestLoadCompany(t *testing.T) {
	path := filepath.Join(t.TempDir(), "unternehmen.csv")
	writeFile(t, path, strings.Join(CompanyColumns, ",")+"\n"+
		"Muster GmbH,Hauptstraße,5,10115,Berlin,DE,030 123,info@muster.de,DE123456789,,DE89370400440532013000,COBADEFFXXX,Commerzbank,Erika Muster,JA\n")

	c, err := LoadCompany(path)
	if err != nil {
		t.Fatal(err)
	}
	if c.Name != "Muster GmbH" || c.StreetLine() != "Hauptstraße 5" || c.CityLine() != "10115 Berlin" {
		t.Fatalf("company = %+v", c)
	}
	if !c.SmallBusiness {
		t.Fatal("JA should mark small business")
	}
	if c.ManagingDirector != "Erika Muster" || c.BankName != "Commerzbank" {
		t.Fatalf("company = %+v", c)
	}
}

func TestLoadCompany_Missing(t *testing.T) {
	_, err := LoadCompany(filepath.Join(t.TempDir(), "unternehmen.csv"))
	if !errors.Is(err, ErrCompanyMissing) {
		t.Fatalf("err = %v", err)
	}
}

func TestSaveCompanyRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "unternehmen.csv")
	in := types.CompanyProfile{Name: "A", City: "B", SmallBusiness: true}
	if err := SaveCompany(path, in); err != nil {
		t.Fatal(err)
	}
	out, err := LoadCompany(path)
	if err != nil {
		t.Fatal(err)
	}
	if out != in {
		t.Fatalf("got %+v, want %+v", out, in)
	}
}

func TestParseFlag(t *testing.T) {
	for _, s := range []string{"ja", "Yes", "TRUE", "1", " ja "} {
		if !ParseFlag(s) {
			t.Errorf("%q should be true", s)
		}
	}
	for _, s := range []string{"", "nein", "no", "0", "x"} {
		if ParseFlag(s) {
			t.Errorf("%q should be false", s)
		}
	}
}

func TestCustomerStore_AddAndGet(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "kunden.csv")
	s := NewCustomerStore(path, time.Second, zerolog.Nop())

	biz, err := s.Add(ctx, types.Customer{Kind: types.CustomerBusiness, Name: "Beispiel AG", ContactPerson: "Frau Schmidt", City: "Köln"})
	if err != nil {
		t.Fatal(err)
	}
	priv, err := s.Add(ctx, types.Customer{Kind: types.CustomerIndividual, Name: "Max Meier", ContactPerson: "ignored"})
	if err != nil {
		t.Fatal(err)
	}
	if len(biz.Number) != 9 || !strings.HasPrefix(biz.Number, "K") || strings.ToUpper(biz.Number) != biz.Number {
		t.Fatalf("customer number = %q", biz.Number)
	}
	if biz.Number == priv.Number {
		t.Fatal("customer numbers collide")
	}
	if priv.ContactPerson != "" || priv.Country != "DE" {
		t.Fatalf("individual = %+v", priv)
	}

	got, err := s.Get(ctx, strings.ToLower(biz.Number))
	if err != nil {
		t.Fatal(err)
	}
	if !got.IsBusiness() || got.ContactPerson != "Frau Schmidt" || got.City != "Köln" {
		t.Fatalf("business = %+v", got)
	}
	if _, err := s.Get(ctx, "K00000000"); !errors.Is(err, ErrCustomerNotFound) {
		t.Fatalf("err = %v", err)
	}

	all, err := s.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 2 {
		t.Fatalf("customers = %d", len(all))
	}
}

func TestCustomerStore_RegeneratesOnCollision(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "kunden.csv")
	s := NewCustomerStore(path, time.Second, zerolog.Nop())
	fixed := time.Date(2025, 9, 26, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return fixed }

	entropy := []string{"a", "a", "b"}
	s.entropy = func() string {
		e := entropy[0]
		if len(entropy) > 1 {
			entropy = entropy[1:]
		}
		return e
	}

	first, err := s.Add(ctx, types.Customer{Kind: types.CustomerIndividual, Name: "X"})
	if err != nil {
		t.Fatal(err)
	}
	second, err := s.Add(ctx, types.Customer{Kind: types.CustomerIndividual, Name: "X"})
	if err != nil {
		t.Fatal(err)
	}
	if first.Number == second.Number {
		t.Fatal("collision not resolved")
	}
}

func TestCustomerStore_LegacyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kunden.csv")
	writeFile(t, path, "Kundennummer,Firmenname,Ansprechpartner,Straße,Hausnummer,PLZ,Ort,Land,Telefon,Email,Bemerkungen\n"+
		"K1,Firma,Herr A,Weg,1,12345,Ort,DE,,,\n"+
		"K2,Privat Person,,Weg,2,12345,Ort,,,,\n")
	s := NewCustomerStore(path, time.Second, zerolog.Nop())
	all, err := s.List(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if all[0].Kind != types.CustomerBusiness || all[1].Kind != types.CustomerIndividual {
		t.Fatalf("kinds = %s, %s", all[0].Kind, all[1].Kind)
	}
	if all[1].CountryCode() != "DE" {
		t.Fatalf("country = %s", all[1].CountryCode())
	}
}

func TestCustomerStore_AddValidates(t *testing.T) {
	s := NewCustomerStore(filepath.Join(t.TempDir(), "kunden.csv"), time.Second, zerolog.Nop())
	if _, err := s.Add(context.Background(), types.Customer{Kind: types.CustomerBusiness}); err == nil {
		t.Fatal("expected error for missing name")
	}
	if _, err := s.Add(context.Background(), types.Customer{Name: "X"}); err == nil {
		t.Fatal("expected error for missing kind")
	}
}

func TestParseItemSpec(t *testing.T) {
	item, err := ParseItemSpec("Beratung;2,5;100,00")
	if err != nil {
		t.Fatal(err)
	}
	if item.Description != "Beratung" || !item.Quantity.Equal(decimal.RequireFromString("2.5")) || !item.UnitPrice.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("item = %+v", item)
	}
	for _, bad := range []string{"Beratung;2", ";1;1", "A;0;1", "A;1;-1", "A;x;1"} {
		if _, err := ParseItemSpec(bad); err == nil {
			t.Errorf("%q should fail", bad)
		}
	}
}

func TestLoadItems_CSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "positionen.csv")
	writeFile(t, path, "Bezeichnung;Menge;Einzelpreis\nBeratung;2;100,00\nReisekosten;1;50\n")
	items, err := LoadItems(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 2 || items[1].Description != "Reisekosten" {
		t.Fatalf("items = %+v", items)
	}
}

func TestLoadItems_XLSX(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()
	rows := [][]interface{}{
		{"Bezeichnung", "Menge", "Einzelpreis"},
		{"Beratung", 2, 100},
		{"Material", 5, 10},
	}
	for i, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		r := row
		if err := f.SetSheetRow("Sheet1", cell, &r); err != nil {
			t.Fatal(err)
		}
	}
	path := filepath.Join(t.TempDir(), "positionen.xlsx")
	if err := f.SaveAs(path); err != nil {
		t.Fatal(err)
	}

	items, err := LoadItems(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 2 || !items[1].Quantity.Equal(decimal.NewFromInt(5)) {
		t.Fatalf("items = %+v", items)
	}
}

func TestLoadItems_Unsupported(t *testing.T) {
	if _, err := LoadItems("items.json"); err == nil {
		t.Fatal("expected error")
	}
}
