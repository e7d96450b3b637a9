package export

import "math"

// Shape is the marker drawn for the trees of a variety.
type Shape int

const (
	ShapeCircle Shape = iota
	ShapeSquare
	ShapeTriangle
	ShapeDiamond
	ShapeRing
	ShapeHexagon
)

var shapeNames = [...]string{"circle", "square", "triangle", "diamond", "ring", "hexagon"}

func (s Shape) String() string {
	if s < 0 || int(s) >= len(shapeNames) {
		return "unknown"
	}
	return shapeNames[s]
}

// Shapes is the ordered symbol set cycled through by variety index.
var Shapes = [...]Shape{ShapeCircle, ShapeSquare, ShapeTriangle, ShapeDiamond, ShapeRing, ShapeHexagon}

// Palette is the ordered color set cycled through by variety index.
var Palette = [...]Color{
	{46, 125, 50},
	{21, 101, 192},
	{198, 40, 40},
	{239, 108, 0},
	{106, 27, 154},
	{0, 131, 143},
}

// SymbolFor returns the color and shape of the variety at index i.
func SymbolFor(i int) (Color, Shape) {
	return Palette[mod(i, len(Palette))], Shapes[mod(i, len(Shapes))]
}

func mod(i, n int) int {
	return ((i % n) + n) % n
}

// DrawSymbol draws shape centered on (x, y) with radius r.
func DrawSymbol(w PageWriter, shape Shape, x, y, r float64, c Color) {
	w.SetStrokeColor(c)
	w.SetFillColor(c)
	w.SetLineWidth(r / 4)

	switch shape {
	case ShapeCircle:
		w.Circle(x, y, r, Fill)
	case ShapeSquare:
		side := r * 1.6
		w.Rect(x-side/2, y-side/2, side, side, Fill)
	case ShapeTriangle:
		w.Polygon(regularPolygon(3, x, y+r*0.15, r*1.15, -math.Pi/2), Fill)
	case ShapeDiamond:
		w.Polygon(regularPolygon(4, x, y, r*1.15, -math.Pi/2), Fill)
	case ShapeRing:
		w.SetFillColor(White)
		w.SetLineWidth(r / 2.5)
		w.Circle(x, y, r*0.8, FillStroke)
	case ShapeHexagon:
		w.Polygon(regularPolygon(6, x, y, r, 0), Fill)
	}
}

func regularPolygon(n int, x, y, r, rotation float64) []Point {
	pts := make([]Point, n)
	for i := range pts {
		a := rotation + 2*math.Pi*float64(i)/float64(n)
		pts[i] = Point{X: x + r*math.Cos(a), Y: y + r*math.Sin(a)}
	}
	return pts
}
