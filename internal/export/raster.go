package export

import (
	"fmt"
	"io"
	"math"

	"github.com/gogpu/gg"
	"github.com/gogpu/gg/text"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
)

const (
	mmPerInch     = 25.4
	pointsPerInch = 72.0

	// A4 landscape, millimeters.
	a4Width  = 297.0
	a4Height = 210.0
)

// RasterWriter is a PageWriter drawing A4 landscape pages into images, used
// for previews. Page units are millimeters.
type RasterWriter struct {
	dpi   float64
	scale float64 // pixels per millimeter

	regular *text.FontSource
	bold    *text.FontSource
	face    text.Face

	pages []*gg.Context
	cur   *gg.Context

	stroke, fill, textColor Color
	lineWidth               float64
	alpha                   float64
	err                     error
}

// NewRasterWriter creates a writer rendering at dpi dots per inch.
func NewRasterWriter(dpi float64) (*RasterWriter, error) {
	if dpi <= 0 {
		return nil, fmt.Errorf("invalid preview resolution %g dpi", dpi)
	}
	regular, err := text.NewFontSource(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("failed to load regular font: %w", err)
	}
	bold, err := text.NewFontSource(gobold.TTF)
	if err != nil {
		return nil, fmt.Errorf("failed to load bold font: %w", err)
	}
	r := &RasterWriter{
		dpi:       dpi,
		scale:     dpi / mmPerInch,
		regular:   regular,
		bold:      bold,
		lineWidth: 0.2,
		alpha:     1,
		textColor: Black,
	}
	r.face = regular.Face(10 * dpi / pointsPerInch)
	return r, nil
}

func (r *RasterWriter) AddPage() {
	ctx := gg.NewContext(r.px(a4Width), r.px(a4Height))
	ctx.ClearWithColor(gg.White)
	ctx.SetFont(r.face)
	r.pages = append(r.pages, ctx)
	r.cur = ctx
}

func (r *RasterWriter) PageSize() (float64, float64) { return a4Width, a4Height }

func (r *RasterWriter) SetStrokeColor(c Color) { r.stroke = c }

func (r *RasterWriter) SetFillColor(c Color) { r.fill = c }

func (r *RasterWriter) SetTextColor(c Color) { r.textColor = c }

func (r *RasterWriter) SetLineWidth(w float64) { r.lineWidth = w }

func (r *RasterWriter) SetAlpha(a float64) { r.alpha = math.Max(0, math.Min(1, a)) }

func (r *RasterWriter) Line(x1, y1, x2, y2 float64) {
	if r.cur == nil {
		return
	}
	r.cur.MoveTo(x1*r.scale, y1*r.scale)
	r.cur.LineTo(x2*r.scale, y2*r.scale)
	r.paint(Stroke)
}

func (r *RasterWriter) Polygon(pts []Point, style PaintStyle) {
	if r.cur == nil || len(pts) < 2 {
		return
	}
	r.cur.MoveTo(pts[0].X*r.scale, pts[0].Y*r.scale)
	for _, pt := range pts[1:] {
		r.cur.LineTo(pt.X*r.scale, pt.Y*r.scale)
	}
	r.cur.ClosePath()
	r.paint(style)
}

func (r *RasterWriter) Rect(x, y, w, h float64, style PaintStyle) {
	if r.cur == nil {
		return
	}
	r.cur.DrawRectangle(x*r.scale, y*r.scale, w*r.scale, h*r.scale)
	r.paint(style)
}

func (r *RasterWriter) RoundedRect(x, y, w, h, radius float64, style PaintStyle) {
	if r.cur == nil {
		return
	}
	r.cur.DrawRoundedRectangle(x*r.scale, y*r.scale, w*r.scale, h*r.scale, radius*r.scale)
	r.paint(style)
}

func (r *RasterWriter) Circle(x, y, radius float64, style PaintStyle) {
	if r.cur == nil {
		return
	}
	r.cur.DrawCircle(x*r.scale, y*r.scale, radius*r.scale)
	r.paint(style)
}

func (r *RasterWriter) SetFont(size float64, bold bool) {
	src := r.regular
	if bold {
		src = r.bold
	}
	r.face = src.Face(size * r.dpi / pointsPerInch)
	if r.cur != nil {
		r.cur.SetFont(r.face)
	}
}

func (r *RasterWriter) Text(x, y float64, s string) {
	if r.cur == nil {
		return
	}
	r.cur.SetRGBA(rgba(r.textColor, r.alpha))
	r.cur.DrawString(s, x*r.scale, y*r.scale)
}

func (r *RasterWriter) TextWidth(s string) float64 {
	w, _ := text.Measure(s, r.face)
	return w / r.scale
}

// Pages returns the number of pages drawn.
func (r *RasterWriter) Pages() int { return len(r.pages) }

// EncodePNG writes page i (from 0) as a PNG image.
func (r *RasterWriter) EncodePNG(i int, w io.Writer) error {
	if r.err != nil {
		return r.err
	}
	if i < 0 || i >= len(r.pages) {
		return fmt.Errorf("page %d out of range (%d pages)", i, len(r.pages))
	}
	return r.pages[i].EncodePNG(w)
}

func (r *RasterWriter) paint(style PaintStyle) {
	ctx := r.cur
	var err error
	switch style {
	case Fill:
		ctx.SetRGBA(rgba(r.fill, r.alpha))
		err = ctx.Fill()
	case FillStroke:
		ctx.SetRGBA(rgba(r.fill, r.alpha))
		if err = ctx.FillPreserve(); err == nil {
			ctx.SetRGBA(rgba(r.stroke, r.alpha))
			ctx.SetLineWidth(r.lineWidth * r.scale)
			err = ctx.Stroke()
		}
	default:
		ctx.SetRGBA(rgba(r.stroke, r.alpha))
		ctx.SetLineWidth(r.lineWidth * r.scale)
		err = ctx.Stroke()
	}
	if err != nil {
		ctx.ClearPath()
		if r.err == nil {
			r.err = fmt.Errorf("failed to paint preview: %w", err)
		}
	}
}

func (r *RasterWriter) px(mm float64) int {
	return int(math.Round(mm * r.scale))
}

func rgba(c Color, alpha float64) (float64, float64, float64, float64) {
	return float64(c.R) / 255, float64(c.G) / 255, float64(c.B) / 255, alpha
}
