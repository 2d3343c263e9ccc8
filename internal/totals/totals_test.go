package totals

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/ginjaninja78/rechnungstool/internal/types"
)

func item(desc, qty, price string) types.LineItem {
	return types.LineItem{
		Description: desc,
		Quantity:    decimal.RequireFromString(qty),
		UnitPrice:   decimal.RequireFromString(price),
	}
}

func sampleItems() []types.LineItem {
	return []types.LineItem{
		item("Beratung", "2", "100.00"),
		item("Reisekosten", "1", "50.00"),
		item("Material", "5", "10.00"),
	}
}

func assertAmount(t *testing.T, name string, got decimal.Decimal, want string) {
	t.Helper()
	if !got.Equal(decimal.RequireFromString(want)) {
		t.Fatalf("%s = %s, want %s", name, got.StringFixed(2), want)
	}
}

func TestCompute_Standard(t *testing.T) {
	got := Compute(sampleItems(), false)
	assertAmount(t, "net", got.Net, "300.00")
	assertAmount(t, "tax", got.Tax, "57.00")
	assertAmount(t, "gross", got.Gross, "357.00")
	if got.Category != types.TaxStandard {
		t.Fatalf("category = %s", got.Category)
	}
	assertAmount(t, "rate", got.Rate, "19")
	if got.ExemptionReason != "" {
		t.Fatalf("unexpected exemption reason %q", got.ExemptionReason)
	}
}

func TestCompute_Exempt(t *testing.T) {
	got := Compute(sampleItems(), true)
	assertAmount(t, "net", got.Net, "300.00")
	assertAmount(t, "tax", got.Tax, "0")
	assertAmount(t, "gross", got.Gross, "300.00")
	if got.Category != types.TaxExempt || !got.Exempt() {
		t.Fatalf("category = %s", got.Category)
	}
	if got.ExemptionReason != ExemptionReason {
		t.Fatalf("reason = %q", got.ExemptionReason)
	}
}

func TestCompute_GrossIsNetPlusTax(t *testing.T) {
	sets := [][]types.LineItem{
		nil,
		{item("a", "0.333", "3.33")},
		{item("a", "3", "19.99"), item("b", "0.5", "0.01")},
		{item("a", "1.25", "80.40"), item("b", "7", "13.13"), item("c", "2", "0.07")},
	}
	for i, items := range sets {
		for _, exempt := range []bool{false, true} {
			got := Compute(items, exempt)
			if !got.Gross.Equal(got.Net.Add(got.Tax)) {
				t.Errorf("set %d exempt=%v: gross %s != net %s + tax %s", i, exempt, got.Gross, got.Net, got.Tax)
			}
			if exempt && (!got.Tax.IsZero() || !got.Gross.Equal(got.Net)) {
				t.Errorf("set %d: exempt invoice charged tax %s", i, got.Tax)
			}
			if got.Net.Exponent() < -2 || got.Tax.Exponent() < -2 {
				t.Errorf("set %d: amounts not rounded to cents: %s / %s", i, got.Net, got.Tax)
			}
		}
	}
}

func TestCompute_LineNetsRoundedBeforeSum(t *testing.T) {
	got := Compute([]types.LineItem{item("a", "1", "0.005"), item("b", "1", "0.005")}, false)
	assertAmount(t, "line 1", got.LineNets[0], "0.01")
	assertAmount(t, "net", got.Net, "0.02")
}

func TestNew_CustomRate(t *testing.T) {
	got := New(decimal.NewFromInt(7)).Compute([]types.LineItem{item("Buch", "1", "100")}, false)
	assertAmount(t, "tax", got.Tax, "7.00")
	if New(decimal.Zero).Rate.Cmp(StandardRate) != 0 {
		t.Fatal("zero rate should fall back to the standard rate")
	}
}
