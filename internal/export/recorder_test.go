package export

// recorder is a PageWriter that keeps what was drawn on every page.
type recorder struct {
	width, height float64
	pages         []*recordedPage
	alpha         float64
}

type recordedPage struct {
	texts    []string
	polygons [][]Point
	circles  int
	rects    int
	badges   int
}

func newRecorder() *recorder {
	return &recorder{width: 297, height: 210, alpha: 1}
}

func (r *recorder) page() *recordedPage {
	if len(r.pages) == 0 {
		panic("drawing before the first page")
	}
	return r.pages[len(r.pages)-1]
}

func (r *recorder) AddPage() { r.pages = append(r.pages, &recordedPage{}) }
func (r *recorder) PageSize() (float64, float64) { return r.width, r.height }
func (r *recorder) SetStrokeColor(Color) {}
func (r *recorder) SetFillColor(Color) {}
func (r *recorder) SetTextColor(Color) {}
func (r *recorder) SetLineWidth(float64) {}
func (r *recorder) SetAlpha(a float64) { r.alpha = a }
func (r *recorder) Line(_, _, _, _ float64) { r.page() }
func (r *recorder) Rect(_, _, _, _ float64, _ PaintStyle) { r.page().rects++ }
func (r *recorder) Circle(_, _, _ float64, _ PaintStyle) { r.page().circles++ }
func (r *recorder) SetFont(float64, bool) {}
func (r *recorder) Text(_, _ float64, s string) { r.page().texts = append(r.page().texts, s) }

// TextWidth assumes a fixed advance per byte.
func (r *recorder) TextWidth(s string) float64 { return float64(len(s)) * 1.8 }

func (r *recorder) Polygon(pts []Point, _ PaintStyle) {
	r.page().polygons = append(r.page().polygons, append([]Point{}, pts...))
}

func (r *recorder) RoundedRect(_, _, _, _, _ float64, _ PaintStyle) {
	if r.alpha < 1 {
		r.page().badges++
	}
}

func (p *recordedPage) count(s string) int {
	n := 0
	for _, t := range p.texts {
		if t == s {
			n++
		}
	}
	return n
}
