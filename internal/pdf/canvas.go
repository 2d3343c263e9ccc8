package pdf

import (
	"bytes"
	"time"

	"github.com/go-pdf/fpdf"
)

// Canvas is the drawing surface of the layout. Coordinates are millimetres
// measured from the top-left corner of an A4 page; y is the text baseline.
type Canvas interface {
	AddPage()

	// SetFont selects Helvetica in style "" (regular) or "B" (bold).
	SetFont(style string, size float64)

	Text(x, y float64, s string)
	TextRight(x, y float64, s string)
	Line(x1, y1, x2, y2 float64)

	// Image draws logo inside the box at x, y with width w and height h.
	Image(logo *Logo, x, y, w, h float64)
}

// fpdfCanvas draws onto a go-pdf document using the core Helvetica font.
type fpdfCanvas struct {
	pdf *fpdf.Fpdf
	tr  func(string) string
}

func newFpdfCanvas(title string, created time.Time) *fpdfCanvas {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetMargins(0, 0, 0)
	pdf.SetLineWidth(0.2)
	pdf.SetCreationDate(created)
	pdf.SetModificationDate(created)
	pdf.SetCatalogSort(true)
	pdf.SetTitle(title, true)
	pdf.SetCreator("rechnungstool", true)

	return &fpdfCanvas{
		pdf: pdf,
		// Core fonts are cp1252 encoded; this covers umlauts, § and €.
		tr: pdf.UnicodeTranslatorFromDescriptor(""),
	}
}

func (c *fpdfCanvas) AddPage() { c.pdf.AddPage() }

func (c *fpdfCanvas) SetFont(style string, size float64) {
	c.pdf.SetFont("Helvetica", style, size)
}

func (c *fpdfCanvas) Text(x, y float64, s string) {
	c.pdf.Text(x, y, c.tr(s))
}

func (c *fpdfCanvas) TextRight(x, y float64, s string) {
	s = c.tr(s)
	c.pdf.Text(x-c.pdf.GetStringWidth(s), y, s)
}

func (c *fpdfCanvas) Line(x1, y1, x2, y2 float64) {
	c.pdf.Line(x1, y1, x2, y2)
}

func (c *fpdfCanvas) Image(logo *Logo, x, y, w, h float64) {
	opts := fpdf.ImageOptions{ImageType: "PNG"}
	c.pdf.RegisterImageOptionsReader(logo.Name, opts, bytes.NewReader(logo.PNG))
	dx, dy, dw, dh := logo.Fit(w, h)
	c.pdf.ImageOptions(logo.Name, x+dx, y+dy, dw, dh, false, opts, 0, "")
}

// output finishes the document.
func (c *fpdfCanvas) output() ([]byte, error) {
	var buf bytes.Buffer
	if err := c.pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
