package xmlwriter

import (
	"encoding/xml"
	"fmt"
	"strconv"

	"github.com/ginjaninja78/rechnungstool/internal/format"
	"github.com/ginjaninja78/rechnungstool/internal/types"
)

const (
	nsRSM = "urn:un:unece:uncefact:data:standard:CrossIndustryInvoice:100"
	nsRAM = "urn:un:unece:uncefact:data:standard:ReusableAggregateBusinessInformationEntity:100"
	nsQDT = "urn:un:unece:uncefact:data:standard:QualifiedDataType:100"
	nsUDT = "urn:un:unece:uncefact:data:standard:UnqualifiedDataType:100"

	// XRechnungCustomizationID is the guideline identifier of XRechnung 3.0.
	XRechnungCustomizationID = "urn:cen.eu:en16931:2017#compliant#urn:xeinkauf.de:kosit:xrechnung_3.0"

	// PeppolProfileID is the business process identifier.
	PeppolProfileID = "urn:fdc:peppol.eu:2017:poacc:billing:01:1.0"

	// ciiUnitCode is "piece", used for every working-copy line.
	ciiUnitCode = "H87"
)

// GenerateCII renders the internal working copy of doc.
//
// RETURNS:
//   - The document bytes.
//   - The placeholders used for missing data.
func GenerateCII(doc types.Document, ph Placeholders) ([]byte, []Substitution) {
	res := Resolve(doc, ph)
	return Marshal(BuildCII(doc, res)), res.Substitutions
}

// BuildCII builds the CrossIndustryInvoice element tree.
func BuildCII(doc types.Document, res Resolved) XMLElement {
	t := doc.Totals
	cur := doc.Currency
	number := doc.Number.String()

	root := group("rsm", "CrossIndustryInvoice")
	root.Attributes = []xml.Attr{
		{Name: xml.Name{Space: "xmlns", Local: "qdt"}, Value: nsQDT},
		{Name: xml.Name{Space: "xmlns", Local: "ram"}, Value: nsRAM},
		{Name: xml.Name{Space: "xmlns", Local: "rsm"}, Value: nsRSM},
		{Name: xml.Name{Space: "xmlns", Local: "udt"}, Value: nsUDT},
	}

	root.add(
		group("rsm", "ExchangedDocumentContext",
			group("ram", "BusinessProcessSpecifiedDocumentContextParameter", el("ram", "ID", PeppolProfileID)),
			group("ram", "GuidelineSpecifiedDocumentContextParameter", el("ram", "ID", XRechnungCustomizationID)),
		),
		group("rsm", "ExchangedDocument",
			el("ram", "ID", number),
			el("ram", "TypeCode", "380"),
			group("ram", "IssueDateTime", compactDate(doc.Date.Format(format.CompactDate))),
		),
	)

	trade := group("rsm", "SupplyChainTradeTransaction")
	for i, item := range doc.Items {
		trade.add(ciiLine(i, item, t))
	}

	seller := group("ram", "SellerTradeParty",
		el("ram", "Name", res.Seller.Name),
		ciiAddress(res.Seller),
		group("ram", "SpecifiedTaxRegistration", el("ram", "ID", res.Tax.ID).withAttr("schemeID", res.Tax.Scheme)),
		group("ram", "URIUniversalCommunication", el("ram", "URIID", res.Seller.Email).withAttr("schemeID", "EM")),
		group("ram", "DefinedTradeContact",
			el("ram", "PersonName", res.Seller.Contact),
			group("ram", "TelephoneUniversalCommunication", el("ram", "CompleteNumber", res.Seller.Phone)),
			group("ram", "EmailURIUniversalCommunication", el("ram", "URIID", res.Seller.Email)),
		),
	)
	buyer := group("ram", "BuyerTradeParty",
		el("ram", "Name", res.Buyer.Name),
	)
	if res.Buyer.Contact != "" && doc.Customer.IsBusiness() {
		buyer.add(group("ram", "DefinedTradeContact", el("ram", "PersonName", res.Buyer.Contact)))
	}
	buyer.add(
		ciiAddress(res.Buyer),
		group("ram", "URIUniversalCommunication", el("ram", "URIID", res.Buyer.Email).withAttr("schemeID", "EM")),
	)

	trade.add(
		group("ram", "ApplicableHeaderTradeAgreement",
			el("ram", "BuyerReference", "RECHNUNG-"+number),
			seller,
			buyer,
		),
		group("ram", "ApplicableHeaderTradeDelivery",
			group("ram", "ActualDeliverySupplyChainEvent",
				group("ram", "OccurrenceDateTime", compactDate(doc.Date.Format(format.CompactDate))),
			),
		),
	)

	tax := group("ram", "ApplicableTradeTax",
		el("ram", "CalculatedAmount", format.Amount(t.Tax)),
		el("ram", "TypeCode", "VAT"),
		el("ram", "BasisAmount", format.Amount(t.Net)),
		el("ram", "CategoryCode", string(t.Category)),
		el("ram", "RateApplicablePercent", t.Rate.String()),
	)
	if t.Exempt() {
		tax.add(el("ram", "ExemptionReason", t.ExemptionReason))
	}

	trade.add(group("ram", "ApplicableHeaderTradeSettlement",
		el("ram", "InvoiceCurrencyCode", cur),
		group("ram", "SpecifiedTradeSettlementPaymentMeans",
			el("ram", "TypeCode", "58"),
			el("ram", "Information", "Überweisung"),
			group("ram", "PayeePartyCreditorFinancialAccount",
				el("ram", "IBANID", res.IBAN),
				el("ram", "AccountName", res.Seller.Name),
			),
			group("ram", "PayeeSpecifiedCreditorFinancialInstitution",
				el("ram", "BICID", res.BIC),
				el("ram", "Name", res.Bank),
			),
		),
		tax,
		group("ram", "SpecifiedTradePaymentTerms",
			el("ram", "Description", fmt.Sprintf("Zahlbar innerhalb %d Tage ohne Abzug.", doc.PaymentDays)),
			group("ram", "DueDateDateTime", compactDate(doc.DueDate().Format(format.CompactDate))),
		),
		group("ram", "SpecifiedTradeSettlementHeaderMonetarySummation",
			el("ram", "LineTotalAmount", format.Amount(t.Net)),
			el("ram", "TaxBasisTotalAmount", format.Amount(t.Net)),
			el("ram", "TaxTotalAmount", format.Amount(t.Tax)).withAttr("currencyID", cur),
			el("ram", "GrandTotalAmount", format.Amount(t.Gross)),
			el("ram", "DuePayableAmount", format.Amount(t.Gross)),
		),
	))

	root.add(trade)
	return root
}

func ciiLine(i int, item types.LineItem, t types.Totals) XMLElement {
	return group("ram", "IncludedSupplyChainTradeLineItem",
		group("ram", "AssociatedDocumentLineDocument", el("ram", "LineID", strconv.Itoa(i+1))),
		group("ram", "SpecifiedTradeProduct", el("ram", "Name", item.Description)),
		group("ram", "SpecifiedLineTradeAgreement",
			group("ram", "NetPriceProductTradePrice", el("ram", "ChargeAmount", format.Amount(item.UnitPrice))),
		),
		group("ram", "SpecifiedLineTradeDelivery",
			el("ram", "BilledQuantity", item.Quantity.String()).withAttr("unitCode", ciiUnitCode),
		),
		group("ram", "SpecifiedLineTradeSettlement",
			group("ram", "ApplicableTradeTax",
				el("ram", "TypeCode", "VAT"),
				el("ram", "CategoryCode", string(t.Category)),
				el("ram", "RateApplicablePercent", t.Rate.String()),
			),
			group("ram", "SpecifiedTradeSettlementLineMonetarySummation",
				el("ram", "LineTotalAmount", format.Amount(t.LineNets[i])),
			),
		),
	)
}

func ciiAddress(p Party) XMLElement {
	return group("ram", "PostalTradeAddress",
		el("ram", "PostcodeCode", p.Zip),
		el("ram", "LineOne", p.Street),
		el("ram", "CityName", p.City),
		el("ram", "CountryID", p.Country),
	)
}

func compactDate(value string) XMLElement {
	return el("udt", "DateTimeString", value).withAttr("format", "102")
}

// =============================================================================
// DECODING
// =============================================================================

// CIILine is one decoded line of a working copy.
type CIILine struct {
	ID        string `xml:"AssociatedDocumentLineDocument>LineID"`
	Name      string `xml:"SpecifiedTradeProduct>Name"`
	Price     string `xml:"SpecifiedLineTradeAgreement>NetPriceProductTradePrice>ChargeAmount"`
	Quantity  string `xml:"SpecifiedLineTradeDelivery>BilledQuantity"`
	LineTotal string `xml:"SpecifiedLineTradeSettlement>SpecifiedTradeSettlementLineMonetarySummation>LineTotalAmount"`
}

type ciiSettlement struct {
	Currency string `xml:"InvoiceCurrencyCode"`
	IBAN     string `xml:"SpecifiedTradeSettlementPaymentMeans>PayeePartyCreditorFinancialAccount>IBANID"`
	Tax      struct {
		Calculated string `xml:"CalculatedAmount"`
		Basis      string `xml:"BasisAmount"`
		Category   string `xml:"CategoryCode"`
		Rate       string `xml:"RateApplicablePercent"`
		Reason     string `xml:"ExemptionReason"`
	} `xml:"ApplicableTradeTax"`
	DueDate string `xml:"SpecifiedTradePaymentTerms>DueDateDateTime>DateTimeString"`
	Sum     struct {
		LineTotal  string `xml:"LineTotalAmount"`
		TaxBasis   string `xml:"TaxBasisTotalAmount"`
		TaxTotal   string `xml:"TaxTotalAmount"`
		GrandTotal string `xml:"GrandTotalAmount"`
		DuePayable string `xml:"DuePayableAmount"`
	} `xml:"SpecifiedTradeSettlementHeaderMonetarySummation"`
}

// CII is the decoded subset of a working copy needed for validation.
type CII struct {
	XMLName   xml.Name `xml:"CrossIndustryInvoice"`
	Number    string   `xml:"ExchangedDocument>ID"`
	IssueDate string   `xml:"ExchangedDocument>IssueDateTime>DateTimeString"`
	Trade     struct {
		Lines      []CIILine     `xml:"IncludedSupplyChainTradeLineItem"`
		BuyerName  string        `xml:"ApplicableHeaderTradeAgreement>BuyerTradeParty>Name"`
		SellerName string        `xml:"ApplicableHeaderTradeAgreement>SellerTradeParty>Name"`
		Settlement ciiSettlement `xml:"ApplicableHeaderTradeSettlement"`
	} `xml:"SupplyChainTradeTransaction"`
}

// DecodeCII parses a working copy.
func DecodeCII(data []byte) (*CII, error) {
	var doc CII
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse working copy: %w", err)
	}
	return &doc, nil
}
