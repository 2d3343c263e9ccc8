package xmlwriter

import (
	"encoding/xml"
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/ginjaninja78/rechnungstool/internal/format"
	"github.com/ginjaninja78/rechnungstool/internal/types"
)

const (
	nsUBL = "urn:oasis:names:specification:ubl:schema:xsd:Invoice-2"
	nsCAC = "urn:oasis:names:specification:ubl:schema:xsd:CommonAggregateComponents-2"
	nsCBC = "urn:oasis:names:specification:ubl:schema:xsd:CommonBasicComponents-2"

	// UBLExemptionReason is the TaxExemptionReason of small-business invoices.
	UBLExemptionReason = "Kleinunternehmerregelung § 19 UStG"
)

// GenerateUBL renders the XRechnung export of doc.
//
// RETURNS:
//   - The document bytes.
//   - The placeholders used for missing data.
func GenerateUBL(doc types.Document, ph Placeholders) ([]byte, []Substitution) {
	res := Resolve(doc, ph)
	return Marshal(BuildUBL(doc, res)), res.Substitutions
}

// BuildUBL builds the ubl:Invoice element tree.
//
// STRUCTURE:
//   <ubl:Invoice>
//     header (customization, profile, number, dates, currency)
//     <cac:AccountingSupplierParty>
//     <cac:AccountingCustomerParty>
//     <cac:PaymentMeans> / <cac:PaymentTerms>
//     <cac:TaxTotal> with one <cac:TaxSubtotal>
//     <cac:LegalMonetaryTotal>
//     one <cac:InvoiceLine> per item, in entry order
//   </ubl:Invoice>
func BuildUBL(doc types.Document, res Resolved) XMLElement {
	t := doc.Totals
	cur := doc.Currency
	number := doc.Number.String()
	money := func(local string, d decimal.Decimal) XMLElement {
		return el("cbc", local, format.Amount(d)).withAttr("currencyID", cur)
	}

	root := group("ubl", "Invoice")
	root.Attributes = []xml.Attr{
		{Name: xml.Name{Space: "xmlns", Local: "ubl"}, Value: nsUBL},
		{Name: xml.Name{Space: "xmlns", Local: "cac"}, Value: nsCAC},
		{Name: xml.Name{Space: "xmlns", Local: "cbc"}, Value: nsCBC},
	}

	root.add(
		el("cbc", "CustomizationID", XRechnungCustomizationID),
		el("cbc", "ProfileID", PeppolProfileID),
		el("cbc", "ID", number),
		el("cbc", "IssueDate", doc.Date.Format(format.ISODate)),
		el("cbc", "DueDate", doc.DueDate().Format(format.ISODate)),
		el("cbc", "InvoiceTypeCode", "380"),
		el("cbc", "Note", "Rechnung"),
		el("cbc", "DocumentCurrencyCode", cur),
		el("cbc", "BuyerReference", "RECHNUNG-"+number),
	)

	// Supplier.
	supplier := group("cac", "Party",
		el("cbc", "EndpointID", res.Seller.Email).withAttr("schemeID", "EM"),
		group("cac", "PartyIdentification", el("cbc", "ID", res.Tax.ID)),
		group("cac", "PartyName", el("cbc", "Name", res.Seller.Name)),
		ublAddress(res.Seller),
	)
	taxScheme := "VAT"
	if res.Tax.Scheme == "FC" {
		taxScheme = "FC"
	}
	supplier.add(
		group("cac", "PartyTaxScheme",
			el("cbc", "CompanyID", res.Tax.ID),
			group("cac", "TaxScheme", el("cbc", "ID", taxScheme)),
		),
		group("cac", "PartyLegalEntity", el("cbc", "RegistrationName", res.Seller.Name)),
		group("cac", "Contact",
			el("cbc", "Name", res.Seller.Contact),
			el("cbc", "Telephone", res.Seller.Phone),
			el("cbc", "ElectronicMail", res.Seller.Email),
		),
	)
	root.add(group("cac", "AccountingSupplierParty", supplier))

	// Customer.
	customer := group("cac", "Party",
		el("cbc", "EndpointID", res.Buyer.Email).withAttr("schemeID", "EM"),
		group("cac", "PartyName", el("cbc", "Name", res.Buyer.Name)),
		ublAddress(res.Buyer),
		group("cac", "PartyLegalEntity", el("cbc", "RegistrationName", res.Buyer.Name)),
	)
	if doc.Customer.IsBusiness() && res.Buyer.Contact != "" {
		customer.add(group("cac", "Contact", el("cbc", "Name", res.Buyer.Contact)))
	}
	root.add(group("cac", "AccountingCustomerParty", customer))

	// Payment.
	root.add(
		group("cac", "PaymentMeans",
			el("cbc", "PaymentMeansCode", "58"),
			el("cbc", "PaymentID", "Rechnung "+number),
			group("cac", "PayeeFinancialAccount",
				el("cbc", "ID", res.IBAN),
				el("cbc", "Name", res.Seller.Name),
				group("cac", "FinancialInstitutionBranch", el("cbc", "ID", res.BIC)),
			),
		),
		group("cac", "PaymentTerms",
			el("cbc", "Note", fmt.Sprintf("Zahlbar innerhalb von %d Tagen ohne Abzug", doc.PaymentDays)),
		),
	)

	// Tax.
	root.add(group("cac", "TaxTotal",
		money("TaxAmount", t.Tax),
		group("cac", "TaxSubtotal",
			money("TaxableAmount", t.Net),
			money("TaxAmount", t.Tax),
			taxCategory("TaxCategory", t, true),
		),
	))

	root.add(group("cac", "LegalMonetaryTotal",
		money("LineExtensionAmount", t.Net),
		money("TaxExclusiveAmount", t.Net),
		money("TaxInclusiveAmount", t.Gross),
		money("PayableAmount", t.Gross),
	))

	for i, item := range doc.Items {
		root.add(group("cac", "InvoiceLine",
			el("cbc", "ID", strconv.Itoa(i+1)),
			el("cbc", "InvoicedQuantity", item.Quantity.String()).withAttr("unitCode", doc.UnitCode),
			money("LineExtensionAmount", t.LineNets[i]),
			group("cac", "Item",
				el("cbc", "Name", item.Description),
				taxCategory("ClassifiedTaxCategory", t, false),
			),
			group("cac", "Price",
				money("PriceAmount", item.UnitPrice),
			),
		))
	}

	return root
}

func taxCategory(local string, t types.Totals, withReason bool) XMLElement {
	c := group("cac", local,
		el("cbc", "ID", string(t.Category)),
		el("cbc", "Percent", t.Rate.String()),
	)
	if withReason && t.Exempt() {
		c.add(el("cbc", "TaxExemptionReason", UBLExemptionReason))
	}
	c.add(group("cac", "TaxScheme", el("cbc", "ID", "VAT")))
	return c
}

func ublAddress(p Party) XMLElement {
	return group("cac", "PostalAddress",
		el("cbc", "StreetName", p.Street),
		el("cbc", "CityName", p.City),
		el("cbc", "PostalZone", p.Zip),
		group("cac", "Country", el("cbc", "IdentificationCode", p.Country)),
	)
}

// =============================================================================
// DECODING
// =============================================================================

// UBLLine is one decoded invoice line.
type UBLLine struct {
	ID        string `xml:"ID"`
	Quantity  string `xml:"InvoicedQuantity"`
	LineTotal string `xml:"LineExtensionAmount"`
	Name      string `xml:"Item>Name"`
	Price     string `xml:"Price>PriceAmount"`
}

// UBL is the decoded subset of an export document.
type UBL struct {
	XMLName       xml.Name  `xml:"Invoice"`
	ID            string    `xml:"ID"`
	IssueDate     string    `xml:"IssueDate"`
	DueDate       string    `xml:"DueDate"`
	Currency      string    `xml:"DocumentCurrencyCode"`
	SupplierName  string    `xml:"AccountingSupplierParty>Party>PartyName>Name"`
	CustomerName  string    `xml:"AccountingCustomerParty>Party>PartyName>Name"`
	CustomerEmail string    `xml:"AccountingCustomerParty>Party>EndpointID"`
	TaxAmount     string    `xml:"TaxTotal>TaxAmount"`
	TaxCategory   string    `xml:"TaxTotal>TaxSubtotal>TaxCategory>ID"`
	TaxPercent    string    `xml:"TaxTotal>TaxSubtotal>TaxCategory>Percent"`
	Exemption     string    `xml:"TaxTotal>TaxSubtotal>TaxCategory>TaxExemptionReason"`
	Net           string    `xml:"LegalMonetaryTotal>TaxExclusiveAmount"`
	Gross         string    `xml:"LegalMonetaryTotal>TaxInclusiveAmount"`
	Payable       string    `xml:"LegalMonetaryTotal>PayableAmount"`
	Lines         []UBLLine `xml:"InvoiceLine"`
}

// DecodeUBL parses an export document.
func DecodeUBL(data []byte) (*UBL, error) {
	var doc UBL
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse export: %w", err)
	}
	return &doc, nil
}
