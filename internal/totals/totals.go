// =============================================================================
// Rechnungstool - Totals Calculator
// =============================================================================
//
// Computes net, tax and gross amounts for an invoice in decimal arithmetic.
//
// ROUNDING:
//   - Each line amount (quantity x unit price) is rounded to cents.
//   - Net is the sum of the rounded line amounts, so the table always adds up.
//   - Tax is net x rate, rounded half away from zero to cents.
//   - Gross is net + tax exactly.
//
// One rate applies to the whole invoice. Small businesses under §19 UStG
// charge no VAT and use tax category E.
//
// =============================================================================

package totals

import (
	"github.com/shopspring/decimal"

	"github.com/ginjaninja78/rechnungstool/internal/types"
)

// ExemptionReason is the statutory basis printed in the XML documents.
const ExemptionReason = "Kleinunternehmerregelung nach §19 UStG"

// StandardRate is the German standard VAT rate in percent.
var StandardRate = decimal.NewFromInt(19)

var hundred = decimal.NewFromInt(100)

// Calculator computes invoice totals for a fixed standard rate.
type Calculator struct {
	Rate decimal.Decimal
}

// New returns a calculator for the given rate in percent. A zero or negative
// rate falls back to StandardRate.
func New(rate decimal.Decimal) Calculator {
	if !rate.IsPositive() {
		rate = StandardRate
	}
	return Calculator{Rate: rate}
}

// Compute returns the totals of items. When exempt is set no tax is charged.
func (c Calculator) Compute(items []types.LineItem, exempt bool) types.Totals {
	t := types.Totals{
		LineNets: make([]decimal.Decimal, len(items)),
		Net:      decimal.Zero,
	}
	for i, item := range items {
		t.LineNets[i] = LineNet(item)
		t.Net = t.Net.Add(t.LineNets[i])
	}

	if exempt {
		t.Tax = decimal.Zero
		t.Rate = decimal.Zero
		t.Category = types.TaxExempt
		t.ExemptionReason = ExemptionReason
	} else {
		t.Rate = c.rate()
		t.Tax = t.Net.Mul(t.Rate).Div(hundred).Round(2)
		t.Category = types.TaxStandard
	}
	t.Gross = t.Net.Add(t.Tax)
	return t
}

// Compute uses the standard rate.
func Compute(items []types.LineItem, exempt bool) types.Totals {
	return New(StandardRate).Compute(items, exempt)
}

// LineNet returns quantity x unit price rounded to cents.
func LineNet(item types.LineItem) decimal.Decimal {
	return item.Quantity.Mul(item.UnitPrice).Round(2)
}

func (c Calculator) rate() decimal.Decimal {
	if c.Rate.IsZero() {
		return StandardRate
	}
	return c.Rate
}
