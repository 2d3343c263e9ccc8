// =============================================================================
// Rechnungstool - Shared Types
// =============================================================================
//
// Domain records shared between the stores, the numbering engine, the
// calculators and the renderers. All records are explicit structs; the
// flat-file layer converts to and from them at its boundary.
//
// =============================================================================

package types

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// COMPANY PROFILE
// =============================================================================

// CompanyProfile is the issuing company. It is loaded once per run and never
// modified while an invoice is being created.
type CompanyProfile struct {
	Name        string
	Street      string
	HouseNumber string
	ZipCode     string
	City        string
	Country     string
	Phone       string
	Email       string

	// VATID is the USt-IdNr. TaxNumber is the Steuernummer. Either may be empty.
	VATID     string
	TaxNumber string

	IBAN     string
	BIC      string
	BankName string

	ManagingDirector string

	// SmallBusiness marks the §19 UStG small-business regime.
	SmallBusiness bool
}

// StreetLine returns "street number" without trailing blanks.
func (c CompanyProfile) StreetLine() string {
	return joinNonEmpty(" ", c.Street, c.HouseNumber)
}

// CityLine returns "zip city".
func (c CompanyProfile) CityLine() string {
	return joinNonEmpty(" ", c.ZipCode, c.City)
}

// SenderLine returns "name, street, zip city" without empty parts, as printed
// above the window of the envelope.
func (c CompanyProfile) SenderLine() string {
	return joinNonEmpty(", ", c.Name, c.StreetLine(), c.CityLine())
}

// =============================================================================
// CUSTOMER
// =============================================================================

// CustomerKind distinguishes business customers from private individuals.
type CustomerKind string

const (
	// CustomerBusiness is a company addressed via a contact person.
	CustomerBusiness CustomerKind = "business"

	// CustomerIndividual is a private person addressed by name only.
	CustomerIndividual CustomerKind = "individual"
)

// ParseCustomerKind accepts the canonical values plus the German labels used
// in the customer file.
func ParseCustomerKind(s string) (CustomerKind, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "business", "firma", "geschäftskunde", "geschaeftskunde", "b2b":
		return CustomerBusiness, true
	case "individual", "privat", "privatkunde", "private", "b2c":
		return CustomerIndividual, true
	}
	return "", false
}

// Customer is a billable party. Number is assigned once when the customer is
// created and never changes afterwards.
type Customer struct {
	Number string
	Kind   CustomerKind

	// Name is the company name for business customers and the person's name
	// for individuals.
	Name string

	// ContactPerson is only meaningful for business customers.
	ContactPerson string

	Street      string
	HouseNumber string
	ZipCode     string
	City        string
	Country     string
	Phone       string
	Email       string
	Notes       string
}

// IsBusiness reports whether the recipient block needs an attention line.
func (c Customer) IsBusiness() bool {
	return c.Kind == CustomerBusiness
}

// StreetLine returns "street number".
func (c Customer) StreetLine() string {
	return joinNonEmpty(" ", c.Street, c.HouseNumber)
}

// CityLine returns "zip city".
func (c Customer) CityLine() string {
	return joinNonEmpty(" ", c.ZipCode, c.City)
}

// CountryCode returns the ISO country code, defaulting to DE.
func (c Customer) CountryCode() string {
	if strings.TrimSpace(c.Country) == "" {
		return "DE"
	}
	return strings.ToUpper(strings.TrimSpace(c.Country))
}

// =============================================================================
// LINE ITEMS
// =============================================================================

// LineItem is one invoice position. Items keep their entry order; the
// position number is the 1-based index.
type LineItem struct {
	Description string
	Quantity    decimal.Decimal
	UnitPrice   decimal.Decimal
}

// =============================================================================
// INVOICE NUMBER
// =============================================================================

// DateLayout is the ISO calendar date used as ledger key.
const DateLayout = "2006-01-02"

// InvoiceNumber is the composite {date, daily sequence} key.
type InvoiceNumber struct {
	Date     time.Time
	Sequence int
}

// String serializes the number as YYYY-MM-DD-NN. The sequence is padded to two
// digits and grows past 99 without wrapping.
func (n InvoiceNumber) String() string {
	return fmt.Sprintf("%s-%02d", n.Date.Format(DateLayout), n.Sequence)
}

// FileSafe returns the number with characters that are invalid in file names
// replaced by hyphens.
func (n InvoiceNumber) FileSafe() string {
	return strings.ReplaceAll(n.String(), ":", "-")
}

// =============================================================================
// TOTALS
// =============================================================================

// TaxCategory is the UNTDID 5305 code used in the XML documents.
type TaxCategory string

const (
	TaxStandard TaxCategory = "S"
	TaxExempt   TaxCategory = "E"
)

// Totals is derived from the line items and never stored.
type Totals struct {
	LineNets        []decimal.Decimal
	Net             decimal.Decimal
	Tax             decimal.Decimal
	Gross           decimal.Decimal
	Rate            decimal.Decimal
	Category        TaxCategory
	ExemptionReason string
}

// Exempt reports whether no VAT is charged.
func (t Totals) Exempt() bool {
	return t.Category == TaxExempt
}

// =============================================================================
// RENDER INPUT
// =============================================================================

// Document is the input tuple shared by every renderer. All renderers read the
// same Totals so they cannot disagree on amounts.
type Document struct {
	Number   InvoiceNumber
	Company  CompanyProfile
	Customer Customer
	Date     time.Time
	Items    []LineItem
	Totals   Totals
	Greeting string

	// PaymentDays is the payment term in days.
	PaymentDays int

	// Currency is the ISO 4217 code.
	Currency string

	// UnitCode is the UN/ECE rec 20 code for item quantities.
	UnitCode string
}

// DueDate returns the invoice date plus the payment term.
func (d Document) DueDate() time.Time {
	return d.Date.AddDate(0, 0, d.PaymentDays)
}

func joinNonEmpty(sep string, parts ...string) string {
	kept := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, sep)
}
