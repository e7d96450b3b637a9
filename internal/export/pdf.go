package export

import (
	"io"

	"github.com/jung-kurt/gofpdf"
)

const pdfFont = "Helvetica"

// PDFWriter is a PageWriter producing an A4 landscape PDF in millimeters.
type PDFWriter struct {
	pdf *gofpdf.Fpdf
	tr  func(string) string
}

// NewPDFWriter creates an empty document.
func NewPDFWriter() *PDFWriter {
	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetMargins(0, 0, 0)
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetFont(pdfFont, "", 10)
	return &PDFWriter{
		pdf: pdf,
		tr:  pdf.UnicodeTranslatorFromDescriptor(""),
	}
}

func (p *PDFWriter) AddPage() { p.pdf.AddPage() }

func (p *PDFWriter) PageSize() (float64, float64) { return p.pdf.GetPageSize() }

func (p *PDFWriter) SetStrokeColor(c Color) { p.pdf.SetDrawColor(int(c.R), int(c.G), int(c.B)) }

func (p *PDFWriter) SetFillColor(c Color) { p.pdf.SetFillColor(int(c.R), int(c.G), int(c.B)) }

func (p *PDFWriter) SetTextColor(c Color) { p.pdf.SetTextColor(int(c.R), int(c.G), int(c.B)) }

func (p *PDFWriter) SetLineWidth(w float64) { p.pdf.SetLineWidth(w) }

func (p *PDFWriter) SetAlpha(a float64) { p.pdf.SetAlpha(a, "Normal") }

func (p *PDFWriter) Line(x1, y1, x2, y2 float64) { p.pdf.Line(x1, y1, x2, y2) }

func (p *PDFWriter) Polygon(pts []Point, style PaintStyle) {
	if len(pts) < 2 {
		return
	}
	out := make([]gofpdf.PointType, len(pts))
	for i, pt := range pts {
		out[i] = gofpdf.PointType{X: pt.X, Y: pt.Y}
	}
	p.pdf.Polygon(out, pdfStyle(style))
}

func (p *PDFWriter) Rect(x, y, w, h float64, style PaintStyle) {
	p.pdf.Rect(x, y, w, h, pdfStyle(style))
}

func (p *PDFWriter) RoundedRect(x, y, w, h, r float64, style PaintStyle) {
	p.pdf.RoundedRect(x, y, w, h, r, "1234", pdfStyle(style))
}

func (p *PDFWriter) Circle(x, y, r float64, style PaintStyle) {
	p.pdf.Circle(x, y, r, pdfStyle(style))
}

func (p *PDFWriter) SetFont(size float64, bold bool) {
	style := ""
	if bold {
		style = "B"
	}
	p.pdf.SetFont(pdfFont, style, size)
}

func (p *PDFWriter) Text(x, y float64, s string) { p.pdf.Text(x, y, p.tr(s)) }

func (p *PDFWriter) TextWidth(s string) float64 { return p.pdf.GetStringWidth(p.tr(s)) }

// PageCount returns the number of pages added so far.
func (p *PDFWriter) PageCount() int { return p.pdf.PageCount() }

// Output writes the document to w, reporting any error met while drawing.
func (p *PDFWriter) Output(w io.Writer) error {
	return p.pdf.Output(w)
}

func pdfStyle(s PaintStyle) string {
	switch s {
	case Fill:
		return "F"
	case FillStroke:
		return "FD"
	default:
		return "D"
	}
}
