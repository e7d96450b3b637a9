package export

import (
	"math"

	"github.com/paulmach/orb"

	"github.com/stwalsh4118/orchard/internal/geometry"
)

// minSpan keeps the scale finite for degenerate (zero width or height) boxes.
const minSpan = 1e-6

// Box is a rectangle on the page.
type Box struct {
	X, Y, W, H float64
}

// Transform maps geographic coordinates onto a page box with a uniform
// scale, centering the geometry and flipping the y axis.
type Transform struct {
	MinLng, MinLat float64
	// Scale is page units per degree, identical on both axes.
	Scale            float64
	OffsetX, OffsetY float64
	ScaledWidth      float64
	ScaledHeight     float64
}

// NewTransform fits b into region, leaving padding on every side.
func NewTransform(b orb.Bound, region Box, padding float64) Transform {
	availW := math.Max(region.W-2*padding, 0)
	availH := math.Max(region.H-2*padding, 0)
	spanLng := b.Max[0] - b.Min[0]
	spanLat := b.Max[1] - b.Min[1]

	scale := math.Min(availW/math.Max(spanLng, minSpan), availH/math.Max(spanLat, minSpan))
	t := Transform{
		MinLng:       b.Min[0],
		MinLat:       b.Min[1],
		Scale:        scale,
		ScaledWidth:  spanLng * scale,
		ScaledHeight: spanLat * scale,
	}
	t.OffsetX = region.X + padding + (availW-t.ScaledWidth)/2
	t.OffsetY = region.Y + padding + (availH-t.ScaledHeight)/2
	return t
}

// ToPage converts c to page coordinates.
func (t Transform) ToPage(c geometry.Coord) Point {
	return Point{
		X: t.OffsetX + (c.Lng()-t.MinLng)*t.Scale,
		Y: t.OffsetY + t.ScaledHeight - (c.Lat()-t.MinLat)*t.Scale,
	}
}

// ToPageAll converts every coordinate of coords.
func (t Transform) ToPageAll(coords []geometry.Coord) []Point {
	pts := make([]Point, len(coords))
	for i, c := range coords {
		pts[i] = t.ToPage(c)
	}
	return pts
}
