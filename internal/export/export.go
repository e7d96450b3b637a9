// Package export renders a parcel layout to a paginated, print-ready
// document: the boundary, the tree points of every variety with their
// symbol and initials, a scale bar and a legend that spills over onto extra
// pages when the main page sidebar is too short.
package export

import (
	"errors"
	"fmt"

	"github.com/stwalsh4118/orchard/internal/geometry"
	"github.com/stwalsh4118/orchard/internal/spatial"
)

// ErrNoGeometry is returned when a parcel has no boundary to draw.
var ErrNoGeometry = errors.New("parcel has no geometry to export")

// Variety is the export view of one variety.
type Variety struct {
	Cultivar string
	Geometry geometry.Geometry
}

// Parcel is the export view of a parcel. Varieties are in ordinal order,
// which selects their color and symbol.
type Parcel struct {
	Name         string
	AreaHectares float64
	Boundary     geometry.Geometry
	Varieties    []Variety
}

// Layout holds the page geometry, in page units.
type Layout struct {
	Margin       float64
	HeaderHeight float64
	SidebarWidth float64
	Gutter       float64
	MapPadding   float64
	// PointRadius is the radius of a tree symbol on the map.
	PointRadius float64

	InfoHeight        float64
	LegendTitleHeight float64
	ScaleBarHeight    float64
	// ScaleBarTarget is the preferred bar length before rounding.
	ScaleBarTarget float64
	EntryHeight    float64

	ColumnWidth float64
	ColumnGap   float64
}

// DefaultLayout suits an A4 landscape page in millimeters.
var DefaultLayout = Layout{
	Margin:            10,
	HeaderHeight:      18,
	SidebarWidth:      72,
	Gutter:            6,
	MapPadding:        6,
	PointRadius:       1.6,
	InfoHeight:        40,
	LegendTitleHeight: 8,
	ScaleBarHeight:    24,
	ScaleBarTarget:    36,
	EntryHeight:       16,
	ColumnWidth:       85,
	ColumnGap:         5,
}

func (l Layout) sidebarTop() float64 {
	return l.Margin + l.HeaderHeight
}

func (l Layout) mapBox(pageW, pageH float64) Box {
	top := l.sidebarTop()
	return Box{
		X: l.Margin,
		Y: top,
		W: pageW - 2*l.Margin - l.SidebarWidth - l.Gutter,
		H: pageH - l.Margin - top,
	}
}

func (l Layout) sidebarX(pageW float64) float64 {
	return pageW - l.Margin - l.SidebarWidth
}

// Result describes a rendered document.
type Result struct {
	Pages       int
	LegendPages int
	Filename    string
	ScaleBar    ScaleBar
}

// Renderer draws parcels with a fixed layout.
type Renderer struct {
	layout Layout
}

// NewRenderer creates a renderer using layout.
func NewRenderer(layout Layout) *Renderer {
	return &Renderer{layout: layout}
}

// Render draws p onto w. Nothing is drawn when p has no boundary.
func (r *Renderer) Render(p Parcel, w PageWriter) (Result, error) {
	ring := geometry.ExtractRing(p.Boundary)
	if len(ring) == 0 {
		return Result{}, ErrNoGeometry
	}

	coords := append([]geometry.Coord{}, ring...)
	entries := make([]LegendEntry, len(p.Varieties))
	points := make([][]geometry.PointRef, len(p.Varieties))
	total := 0
	for i, v := range p.Varieties {
		points[i] = geometry.Points(v.Geometry)
		for _, ref := range points[i] {
			coords = append(coords, ref.Coord)
		}
		entries[i] = LegendEntry{
			Index:     i,
			Cultivar:  v.Cultivar,
			Initials:  Initials(v.Cultivar),
			TreeCount: geometry.TreeCount(v.Geometry),
		}
		total += entries[i].TreeCount
	}
	bound, ok := spatial.BoundOf(coords)
	if !ok {
		return Result{}, ErrNoGeometry
	}

	l := r.layout
	pageW, pageH := w.PageSize()
	t := NewTransform(bound, l.mapBox(pageW, pageH), l.MapPadding)

	w.AddPage()
	res := Result{Pages: 1, Filename: Filename(p.Name)}
	r.drawHeader(w, p.Name, pageW)
	drawBoundary(w, t, ring)
	for i := range points {
		c, shape := SymbolFor(i)
		for _, ref := range points[i] {
			pt := t.ToPage(ref.Coord)
			DrawSymbol(w, shape, pt.X, pt.Y, l.PointRadius, c)
			drawBadge(w, entries[i].Initials, pt.X+l.PointRadius*1.3, pt.Y-l.PointRadius*1.3, c)
		}
	}

	sx := l.sidebarX(pageW)
	r.drawInfo(w, p, total, sx)

	legendTop := l.sidebarTop() + l.InfoHeight
	w.SetTextColor(Black)
	w.SetFont(11, true)
	w.Text(sx, legendTop+5, "Legend")

	perColumn, columns := l.legendGrid(pageW, pageH)
	if len(entries) <= l.sidebarCapacity(pageH) {
		for i, e := range entries {
			l.drawEntry(w, e, sx, legendTop+l.LegendTitleHeight+float64(i)*l.EntryHeight, l.SidebarWidth)
		}
	} else {
		slots := Paginate(len(entries), perColumn, columns)
		if len(slots) == 0 {
			return Result{}, fmt.Errorf("legend does not fit a %gx%g page", pageW, pageH)
		}
		res.LegendPages = slots[len(slots)-1].Page + 1
		w.SetFont(8, false)
		w.SetTextColor(Gray)
		w.Text(sx, legendTop+l.LegendTitleHeight+4, fmt.Sprintf("%d varieties, see legend on page 2", len(entries)))
	}

	bar := NewScaleBar(t, (bound.Min[1]+bound.Max[1])/2, l.ScaleBarTarget)
	bar.Draw(w, sx, pageH-l.Margin-l.ScaleBarHeight/2, 2)
	res.ScaleBar = bar

	if res.LegendPages > 0 {
		r.drawLegendPages(w, p.Name, entries, perColumn, columns)
		res.Pages += res.LegendPages
	}
	return res, nil
}

func (r *Renderer) drawHeader(w PageWriter, name string, pageW float64) {
	l := r.layout
	w.SetTextColor(Black)
	w.SetFont(16, true)
	w.Text(l.Margin, l.Margin+7, name)
	w.SetStrokeColor(Gray)
	w.SetLineWidth(0.3)
	w.Line(l.Margin, l.Margin+l.HeaderHeight-6, pageW-l.Margin, l.Margin+l.HeaderHeight-6)
}

func (r *Renderer) drawInfo(w PageWriter, p Parcel, trees int, x float64) {
	y := r.layout.sidebarTop() + 5
	w.SetTextColor(Black)
	w.SetFont(11, true)
	w.Text(x, y, "Parcel")

	w.SetFont(9, false)
	lines := []string{
		fmt.Sprintf("Area: %.2f ha", p.AreaHectares),
		fmt.Sprintf("Trees: %d", trees),
		fmt.Sprintf("Varieties: %d", len(p.Varieties)),
	}
	for i, s := range lines {
		w.Text(x, y+7+float64(i)*5.5, s)
	}
}

func (r *Renderer) drawLegendPages(w PageWriter, name string, entries []LegendEntry, perColumn, columns int) {
	l := r.layout
	page := -1
	for i, slot := range Paginate(len(entries), perColumn, columns) {
		if slot.Page != page {
			page = slot.Page
			w.AddPage()
			pageW, _ := w.PageSize()
			r.drawHeader(w, "Legend: "+name, pageW)
		}
		x := l.Margin + float64(slot.Column)*(l.ColumnWidth+l.ColumnGap)
		y := l.Margin + l.HeaderHeight + float64(slot.Row)*l.EntryHeight
		l.drawEntry(w, entries[i], x, y, l.ColumnWidth)
	}
}

func drawBoundary(w PageWriter, t Transform, ring []geometry.Coord) {
	w.SetStrokeColor(Color{183, 28, 28})
	w.SetLineWidth(0.6)
	w.Polygon(t.ToPageAll(ring), Stroke)
}
