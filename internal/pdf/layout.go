// =============================================================================
// Rechnungstool - PDF Layout
// =============================================================================
//
// Places every element of the printed invoice on an A4 page following the
// DIN 5008 business letter. All positions are millimetres from the top-left
// corner of the page.
//
// PAGE STRUCTURE:
//   Page 1
//     fold marks (87, 192), punch mark (148.5)
//     logo and company block (top right)
//     sender line with rule (window envelope)
//     recipient block (45)
//     invoice data (105), title, greeting
//     item table
//   Further pages
//     item table continued at 40 with the header drawn again
//   Last page
//     totals block, footer with tax disclosure and payment reference
//
// PAGINATION:
//   Before each row and before the totals block the current position is
//   compared with pageLimit. Past it, a new page starts. Each row advances
//   by rowHeight per wrapped description line. A description that runs past
//   pageLimit continues below the repeated header on the next page.
//
// =============================================================================

package pdf

import (
	"fmt"

	"github.com/ginjaninja78/rechnungstool/internal/format"
	"github.com/ginjaninja78/rechnungstool/internal/types"
)

// Layout positions in millimetres.
const (
	foldMark1 = 87.0
	foldMark2 = 192.0
	punchMark = 148.5

	marginLeft  = 20.0
	marginRight = 190.0

	companyTop  = 25.0
	companyStep = 3.5

	senderY     = 17.7
	senderRuleY = 20.0
	senderRuleX = 110.0

	recipientTop  = 45.0
	recipientStep = 4.0

	dataTop    = 105.0
	dataStep   = 4.0
	valueX     = 50.0
	label2X    = 100.0
	value2X    = 140.0
	titleGap   = 6.0
	textGap    = 8.0
	textStep   = 4.0
	tableGap   = 8.0
	totalsGap  = 8.0
	footerTop  = 257.0
	pageLimit  = 197.0
	continueY  = 40.0
	totalsTopY = 120.0

	colPos    = 20.0
	colDesc   = 35.0
	colQty    = 110.0
	colPrice  = 140.0
	colNet    = 175.0
	colTax    = 185.0
	rowHeight = 5.0

	// wrapStep is the spacing of wrapped lines inside one row.
	wrapStep = 3.0

	descWrap     = 40
	greetingWrap = 80

	totalsLabelX = 120.0
)

// DefaultGreeting is printed when no greeting text is given.
const DefaultGreeting = "Vielen Dank für Ihr Vertrauen. Hiermit stellen wir Ihnen folgende Leistungen in Rechnung:"

// layout draws one invoice onto a Canvas.
type layout struct {
	c    Canvas
	doc  types.Document
	logo *Logo

	y     float64
	pages int
}

// Draw renders doc onto c. logo may be nil.
func Draw(c Canvas, doc types.Document, logo *Logo) {
	l := &layout{c: c, doc: doc, logo: logo}
	l.newPage()
	l.marks()
	l.companyBlock()
	l.senderLine()
	l.recipient()
	l.invoiceData()
	l.table()
	l.totals()
	l.footer()
}

func (l *layout) newPage() {
	l.c.AddPage()
	l.pages++
}

func (l *layout) marks() {
	l.c.Line(5, foldMark1, 10, foldMark1)
	l.c.Line(5, foldMark2, 10, foldMark2)
	l.c.Line(2, punchMark, 6, punchMark)
}

// companyBlock prints the right-aligned sender details. The company name is
// left to the logo and the sender line.
func (l *layout) companyBlock() {
	co := l.doc.Company
	if l.logo != nil {
		l.c.Image(l.logo, logoX, logoY, logoWidth, logoHeight)
	}

	y := companyTop
	line := func(s string) {
		l.c.TextRight(marginRight, y, s)
		y += companyStep
	}

	l.c.SetFont("", 9)
	line(co.StreetLine())
	line(co.CityLine())
	line(taxLine(co))
	line("Tel: " + co.Phone)
	line("Email: " + co.Email)

	y += 2
	l.c.SetFont("B", 8)
	line("Bankverbindung:")
	l.c.SetFont("", 8)
	line("IBAN: " + format.IBAN(co.IBAN))
	line("BIC: " + co.BIC)
	line(co.BankName)
}

// taxLine shows the VAT ID of a VAT-registered company, the tax number
// otherwise.
func taxLine(co types.CompanyProfile) string {
	if co.VATID != "" && !co.SmallBusiness {
		return "USt-IdNr: " + co.VATID
	}
	return "St.-Nr.: " + co.TaxNumber
}

func (l *layout) senderLine() {
	co := l.doc.Company
	l.c.SetFont("", 8)
	l.c.Text(marginLeft, senderY, co.SenderLine())
	l.c.Line(marginLeft, senderRuleY, senderRuleX, senderRuleY)
}

func (l *layout) recipient() {
	k := l.doc.Customer
	y := recipientTop
	line := func(s string) {
		l.c.Text(marginLeft, y, s)
		y += recipientStep
	}

	l.c.SetFont("", 11)
	line(k.Name)
	if k.IsBusiness() && k.ContactPerson != "" {
		line("z.Hd. " + k.ContactPerson)
	}
	line(k.StreetLine())
	line(k.CityLine())
	if k.CountryCode() != "DE" {
		line(k.Country)
	}
}

func (l *layout) invoiceData() {
	d := l.doc
	date := d.Date.Format(format.GermanDate)

	y := dataTop
	l.c.SetFont("", 10)
	l.c.Text(marginLeft, y, "Kundennummer:")
	l.c.Text(valueX, y, d.Customer.Number)
	l.c.Text(label2X, y, "Rechnungsnummer:")
	l.c.Text(value2X, y, d.Number.String())

	y += dataStep
	l.c.Text(marginLeft, y, "Rechnungsdatum:")
	l.c.Text(valueX, y, date)
	l.c.Text(label2X, y, "Leistungsdatum:")
	l.c.Text(value2X, y, date+" (= Rechnungsdatum)")

	y += titleGap
	l.c.SetFont("B", 16)
	l.c.Text(marginLeft, y, "Rechnung "+d.Number.String())

	y += textGap
	l.c.SetFont("", 10)
	greeting := Wrap(d.Greeting, greetingWrap)
	if len(greeting) == 0 {
		greeting = []string{DefaultGreeting}
	}
	for _, g := range greeting {
		l.c.Text(marginLeft, y, g)
		y += textStep
	}

	l.y = y + tableGap
}

// tableHeader draws the column titles at l.y and moves below the rule.
func (l *layout) tableHeader() {
	l.c.SetFont("B", 9)
	l.c.Text(colPos, l.y, "Pos.")
	l.c.Text(colDesc, l.y, "Bezeichnung (Art der Leistung)")
	l.c.Text(colQty, l.y, "Menge")
	l.c.TextRight(colPrice, l.y, "Einzelpreis")
	l.c.TextRight(colNet, l.y, "Nettobetrag")
	if !l.doc.Totals.Exempt() {
		l.c.Text(colTax, l.y, "MwSt")
	}
	l.y += 2
	l.c.Line(marginLeft, l.y, marginRight, l.y)
	l.y += 3
}

func (l *layout) table() {
	t := l.doc.Totals
	l.tableHeader()
	l.c.SetFont("", 9)

	for i, item := range l.doc.Items {
		if l.y > pageLimit {
			l.continueTable()
		}

		l.c.Text(colPos, l.y, fmt.Sprint(i+1))
		l.c.Text(colQty, l.y, format.Quantity(item.Quantity))
		l.c.TextRight(colPrice, l.y, format.Euro(item.UnitPrice))
		l.c.TextRight(colNet, l.y, format.Euro(t.LineNets[i]))
		if !t.Exempt() {
			l.c.Text(colTax, l.y, format.Percent(t.Rate))
		}

		lines := Wrap(item.Description, descWrap)
		top, first := l.y, 0
		for j, s := range lines {
			y := top + float64(j-first)*wrapStep
			if j > first && y > pageLimit {
				// The rest of the description continues on the next page.
				l.continueTable()
				top, first, y = l.y, j, l.y
			}
			l.c.Text(colDesc, y, s)
		}
		l.y = top + float64(max(1, len(lines)-first))*rowHeight
	}
}

// continueTable starts a new page and repeats the table header.
func (l *layout) continueTable() {
	l.newPage()
	l.y = continueY
	l.tableHeader()
	l.c.SetFont("", 9)
}

func (l *layout) totals() {
	t := l.doc.Totals
	y := l.y + totalsGap
	if y > pageLimit {
		l.newPage()
		y = totalsTopY
	}

	l.c.Line(colPrice, y, marginRight, y)
	y += 6

	l.c.SetFont("", 10)
	l.c.Text(totalsLabelX, y, "Summe Nettobetrag:")
	l.c.TextRight(marginRight, y, format.Euro(t.Net))
	y += 4
	if t.Exempt() {
		l.c.Text(totalsLabelX, y, "Steuerbefreiung:")
	} else {
		l.c.Text(totalsLabelX, y, fmt.Sprintf("Steuerbetrag (%s):", format.Percent(t.Rate)))
	}
	l.c.TextRight(marginRight, y, format.Euro(t.Tax))
	y += 4
	l.c.Line(totalsLabelX, y, marginRight, y)
	y += 6

	l.c.SetFont("B", 11)
	l.c.Text(totalsLabelX, y, "Gesamtbetrag:")
	l.c.TextRight(marginRight, y, format.Euro(t.Gross))
	l.y = y
}

func (l *layout) footer() {
	t := l.doc.Totals
	y := footerTop

	l.c.SetFont("B", 9)
	l.c.Text(marginLeft, y, "Rechtliche Hinweise:")
	y += 5

	l.c.SetFont("", 8)
	if t.Exempt() {
		l.c.Text(marginLeft, y, "Steuerrechtlicher Hinweis (Pflichtangabe gem. §14 UStG):")
		y += 3
		l.c.Text(marginLeft, y, "Kleinunternehmerregelung nach §19 UStG - keine Umsatzsteuer ausgewiesen")
	} else {
		l.c.Text(marginLeft, y, fmt.Sprintf("Anwendbarer Steuersatz: %s Umsatzsteuer - Steuerbetrag: %s",
			format.Percent(t.Rate), format.Euro(t.Tax)))
	}
	y += 5

	l.c.Text(marginLeft, y, "Zahlungshinweise:")
	y += 3
	l.c.Text(marginLeft, y, fmt.Sprintf(
		"Bitte überweisen Sie den Rechnungsbetrag innerhalb von %d Tagen ohne Abzug auf unser Konto.", l.doc.PaymentDays))
	y += 4

	l.c.SetFont("B", 9)
	l.c.Text(marginLeft, y, "VERWENDUNGSZWECK: Rechnung "+l.doc.Number.String())
	y += 6

	l.c.SetFont("", 8)
	l.c.Text(marginLeft, y, "Es gelten unsere Allgemeinen Geschäftsbedingungen. Erfüllungsort und Gerichtsstand ist unser Geschäftssitz.")
	y += 3
	l.c.Text(marginLeft, y, "Bei Rückfragen stehen wir Ihnen gerne zur Verfügung.")
}
