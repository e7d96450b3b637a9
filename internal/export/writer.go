package export

// Color is an opaque RGB color.
type Color struct {
	R, G, B uint8
}

// Common colors.
var (
	Black = Color{0, 0, 0}
	White = Color{255, 255, 255}
	Gray  = Color{110, 110, 110}
)

// PaintStyle selects how a closed shape is painted.
type PaintStyle int

const (
	Stroke PaintStyle = iota
	Fill
	FillStroke
)

// Point is a position in page units, with y growing downward.
type Point struct {
	X, Y float64
}

// PageWriter is the document primitive the engine draws onto. All lengths are
// page units (millimeters for the bundled writers) and font sizes are points.
// Drawing errors are accumulated by the writer and reported when the
// document is output.
type PageWriter interface {
	AddPage()
	PageSize() (w, h float64)

	SetStrokeColor(c Color)
	SetFillColor(c Color)
	SetTextColor(c Color)
	SetLineWidth(w float64)
	// SetAlpha sets the opacity of everything drawn afterwards.
	SetAlpha(a float64)

	Line(x1, y1, x2, y2 float64)
	Polygon(pts []Point, style PaintStyle)
	Rect(x, y, w, h float64, style PaintStyle)
	RoundedRect(x, y, w, h, r float64, style PaintStyle)
	Circle(x, y, r float64, style PaintStyle)

	SetFont(size float64, bold bool)
	// Text draws s with its baseline starting at (x, y).
	Text(x, y float64, s string)
	TextWidth(s string) float64
}
