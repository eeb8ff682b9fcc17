package report

import (
	"io"

	"github.com/go-pdf/fpdf"
	"github.com/rotisserie/eris"
)

// Font styles.
const (
	StyleRegular = ""
	StyleBold    = "B"
	StyleItalic  = "I"
)

// Canvas is the drawing surface the layout writes to. Units are millimetres
// with the origin at the top left of the page; y passed to Text is the
// baseline.
type Canvas interface {
	AddPage()
	PageCount() int
	SetPage(n int)
	SetFont(style string, size float64)
	SetTextColor(c Color)
	SetFillColor(c Color)
	Rect(x, y, w, h float64)
	Text(x, y float64, s string)
	TextWidth(s string) float64
	Link(x, y, w, h float64, url string)
	Output(w io.Writer) error
}

// pdfCanvas draws with fpdf using the built-in Helvetica font.
type pdfCanvas struct {
	pdf       *fpdf.Fpdf
	translate func(string) string
}

// NewPDFCanvas returns an A4 portrait canvas with automatic page breaks
// disabled; the layout decides where pages break.
func NewPDFCanvas(title string) Canvas {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetMargins(MarginLeft, MarginTop, MarginLeft)
	pdf.SetTitle(title, true)
	pdf.SetCreator("property-cli", true)
	pdf.SetFont("Helvetica", StyleRegular, 10)
	return &pdfCanvas{
		pdf:       pdf,
		translate: pdf.UnicodeTranslatorFromDescriptor(""),
	}
}

func (c *pdfCanvas) AddPage()       { c.pdf.AddPage() }
func (c *pdfCanvas) PageCount() int { return c.pdf.PageCount() }
func (c *pdfCanvas) SetPage(n int)  { c.pdf.SetPage(n) }

func (c *pdfCanvas) SetFont(style string, size float64) {
	c.pdf.SetFont("Helvetica", style, size)
}

func (c *pdfCanvas) SetTextColor(col Color) { c.pdf.SetTextColor(col.R, col.G, col.B) }
func (c *pdfCanvas) SetFillColor(col Color) { c.pdf.SetFillColor(col.R, col.G, col.B) }

func (c *pdfCanvas) Rect(x, y, w, h float64) {
	c.pdf.Rect(x, y, w, h, "F")
}

func (c *pdfCanvas) Text(x, y float64, s string) {
	c.pdf.Text(x, y, c.translate(s))
}

func (c *pdfCanvas) TextWidth(s string) float64 {
	return c.pdf.GetStringWidth(c.translate(s))
}

func (c *pdfCanvas) Link(x, y, w, h float64, url string) {
	c.pdf.LinkString(x, y, w, h, url)
}

func (c *pdfCanvas) Output(w io.Writer) error {
	if err := c.pdf.Error(); err != nil {
		return eris.Wrap(err, "report: render pdf")
	}
	return eris.Wrap(c.pdf.Output(w), "report: write pdf")
}
