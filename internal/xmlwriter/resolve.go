package xmlwriter

import (
	"strings"

	"github.com/ginjaninja78/rechnungstool/internal/format"
	"github.com/ginjaninja78/rechnungstool/internal/types"
)

// Placeholders are written instead of missing party data so both documents
// stay structurally complete. Every use is reported as a Substitution.
type Placeholders struct {
	SellerName    string
	SellerStreet  string
	SellerZip     string
	SellerCity    string
	SellerCountry string
	SellerVATID   string
	SellerEmail   string
	SellerContact string
	SellerPhone   string
	SellerIBAN    string
	SellerBIC     string
	SellerBank    string

	BuyerName    string
	BuyerStreet  string
	BuyerZip     string
	BuyerCity    string
	BuyerCountry string
	BuyerEmail   string
}

// DefaultPlaceholders are the values used by the tool.
var DefaultPlaceholders = Placeholders{
	SellerName:    "Mein Unternehmen",
	SellerStreet:  "Musterstraße 1",
	SellerZip:     "12345",
	SellerCity:    "Musterstadt",
	SellerCountry: "DE",
	SellerVATID:   "DE999999999",
	SellerEmail:   "info@unternehmen.de",
	SellerContact: "Ansprechpartner",
	SellerPhone:   "+49 123 456789",
	SellerIBAN:    "DE89370400440532013000",
	SellerBIC:     "COBADEFFXXX",
	SellerBank:    "Commerzbank",

	BuyerName:    "Kunde",
	BuyerStreet:  "Kundenstraße 1",
	BuyerZip:     "54321",
	BuyerCity:    "Kundenstadt",
	BuyerCountry: "DE",
	BuyerEmail:   "kunde@example.com",
}

// Substitution records one placeholder written in place of missing data.
type Substitution struct {
	Field       string
	Placeholder string
}

// TaxRegistration identifies the seller towards the tax office.
type TaxRegistration struct {
	ID string

	// Scheme is "VA" for a VAT ID and "FC" for a national tax number.
	Scheme string
}

// Party is a seller or buyer with all placeholders applied.
type Party struct {
	Name    string
	Street  string
	Zip     string
	City    string
	Country string
	Email   string

	// EmailGiven is false when Email holds a placeholder.
	EmailGiven bool

	Contact string
	Phone   string
}

// Resolved is the party and payment data shared by both XML documents.
type Resolved struct {
	Seller Party
	Buyer  Party
	Tax    TaxRegistration
	IBAN   string
	BIC    string
	Bank   string

	Substitutions []Substitution
}

// Resolve fills every missing optional field of doc with its placeholder.
func Resolve(doc types.Document, ph Placeholders) Resolved {
	r := &resolver{}
	c, k := doc.Company, doc.Customer

	res := Resolved{
		Seller: Party{
			Name:    r.pick("company.name", c.Name, ph.SellerName),
			Street:  r.pick("company.street", c.StreetLine(), ph.SellerStreet),
			Zip:     r.pick("company.zip", c.ZipCode, ph.SellerZip),
			City:    r.pick("company.city", c.City, ph.SellerCity),
			Country: r.pick("company.country", strings.ToUpper(strings.TrimSpace(c.Country)), ph.SellerCountry),
			Email:   r.pick("company.email", c.Email, ph.SellerEmail),
			Contact: r.pick("company.managing_director", c.ManagingDirector, ph.SellerContact),
			Phone:   r.pick("company.phone", c.Phone, ph.SellerPhone),
		},
		Buyer: Party{
			Name:    r.pick("customer.name", k.Name, ph.BuyerName),
			Street:  r.pick("customer.street", k.StreetLine(), ph.BuyerStreet),
			Zip:     r.pick("customer.zip", k.ZipCode, ph.BuyerZip),
			City:    r.pick("customer.city", k.City, ph.BuyerCity),
			Country: k.CountryCode(),
			Email:   r.pick("customer.email", k.Email, ph.BuyerEmail),
			Contact: strings.TrimSpace(k.ContactPerson),
			Phone:   strings.TrimSpace(k.Phone),
		},
		IBAN: r.pick("company.iban", format.CompactIBAN(c.IBAN), ph.SellerIBAN),
		BIC:  r.pick("company.bic", c.BIC, ph.SellerBIC),
		Bank: r.pick("company.bank", c.BankName, ph.SellerBank),
	}
	res.Seller.EmailGiven = strings.TrimSpace(c.Email) != ""
	res.Buyer.EmailGiven = strings.TrimSpace(k.Email) != ""

	switch {
	case strings.TrimSpace(c.VATID) != "":
		res.Tax = TaxRegistration{ID: strings.TrimSpace(c.VATID), Scheme: "VA"}
	case strings.TrimSpace(c.TaxNumber) != "":
		res.Tax = TaxRegistration{ID: strings.TrimSpace(c.TaxNumber), Scheme: "FC"}
	default:
		res.Tax = TaxRegistration{ID: r.pick("company.vat_id", "", ph.SellerVATID), Scheme: "VA"}
	}

	res.Substitutions = r.subs
	return res
}

type resolver struct {
	subs []Substitution
}

func (r *resolver) pick(field, value, placeholder string) string {
	if v := strings.TrimSpace(value); v != "" {
		return v
	}
	r.subs = append(r.subs, Substitution{Field: field, Placeholder: placeholder})
	return placeholder
}
