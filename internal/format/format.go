// Package format renders amounts, dates and bank data the way German invoices
// print them, and parses the German input conventions back.
package format

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	// GermanDate is the DD.MM.YYYY layout used for input and on the PDF.
	GermanDate = "02.01.2006"

	// CompactDate is the YYYYMMDD layout of the internal working copy.
	CompactDate = "20060102"

	// ISODate is the YYYY-MM-DD layout of the export document.
	ISODate = "2006-01-02"
)

// Amount returns the value with exactly two decimals and a dot separator, as
// used in both XML documents.
func Amount(d decimal.Decimal) string {
	return d.StringFixed(2)
}

// Euro formats a value as "1.234,56 €".
func Euro(d decimal.Decimal) string {
	return GermanNumber(d) + " €"
}

// GermanNumber formats a value with two decimals, a comma as decimal separator
// and dots between thousands groups. It is derived from Amount so the PDF and
// the XML always show the same digits.
func GermanNumber(d decimal.Decimal) string {
	s := Amount(d)
	sign := ""
	if strings.HasPrefix(s, "-") {
		sign, s = "-", s[1:]
	}
	intPart, frac, _ := strings.Cut(s, ".")

	var b strings.Builder
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(r)
	}
	return sign + b.String() + "," + frac
}

// Quantity prints a quantity without trailing zeros and with a decimal comma.
func Quantity(d decimal.Decimal) string {
	return strings.Replace(d.String(), ".", ",", 1)
}

// Percent prints a rate such as 19 as "19%".
func Percent(rate decimal.Decimal) string {
	return Quantity(rate) + "%"
}

// IBAN groups an IBAN in blocks of four characters.
func IBAN(iban string) string {
	compact := CompactIBAN(iban)
	var b strings.Builder
	for i, r := range compact {
		if i > 0 && i%4 == 0 {
			b.WriteByte(' ')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// CompactIBAN strips blanks and upper-cases the IBAN.
func CompactIBAN(iban string) string {
	return strings.ToUpper(strings.Join(strings.Fields(iban), ""))
}

// ParseGermanDate parses a DD.MM.YYYY calendar date. The result carries no time
// component and is in UTC.
func ParseGermanDate(s string) (time.Time, error) {
	t, err := time.ParseInLocation(GermanDate, strings.TrimSpace(s), time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, expected DD.MM.YYYY", s)
	}
	return t, nil
}

// Day strips the clock from t and returns the calendar date in UTC.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDecimal accepts "1234.56", "1234,56" and "1.234,56".
func ParseDecimal(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "€")
	s = strings.TrimSpace(s)
	if strings.Contains(s, ",") {
		s = strings.ReplaceAll(s, ".", "")
		s = strings.Replace(s, ",", ".", 1)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid number %q", s)
	}
	return d, nil
}
