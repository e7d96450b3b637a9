package export

import (
	"math"
	"strconv"
)

// LegendEntry is one variety line of the legend.
type LegendEntry struct {
	Index     int
	Cultivar  string
	Initials  string
	TreeCount int
}

// Slot places a legend entry on a continuation page.
type Slot struct {
	Page   int
	Column int
	Row    int
}

// Paginate flows n entries column by column, then page by page. Pages are
// numbered from 0 among the continuation pages.
func Paginate(n, perColumn, columns int) []Slot {
	if n <= 0 || perColumn <= 0 || columns <= 0 {
		return nil
	}
	perPage := perColumn * columns
	slots := make([]Slot, n)
	for i := range slots {
		within := i % perPage
		slots[i] = Slot{
			Page:   i / perPage,
			Column: within / perColumn,
			Row:    within % perColumn,
		}
	}
	return slots
}

// sidebarCapacity is the number of entries that fit under the legend title
// of the main page sidebar.
func (l Layout) sidebarCapacity(pageH float64) int {
	top := l.sidebarTop() + l.InfoHeight + l.LegendTitleHeight
	bottom := pageH - l.Margin - l.ScaleBarHeight
	return fit(bottom-top, l.EntryHeight)
}

// legendGrid is the number of rows per column and columns per continuation
// page.
func (l Layout) legendGrid(pageW, pageH float64) (perColumn, columns int) {
	top := l.Margin + l.HeaderHeight
	perColumn = fit(pageH-l.Margin-top, l.EntryHeight)
	columns = fit(pageW-2*l.Margin+l.ColumnGap, l.ColumnWidth+l.ColumnGap)
	return perColumn, columns
}

func fit(space, size float64) int {
	if size <= 0 || space <= 0 {
		return 0
	}
	return int(math.Floor(space/size + 1e-9))
}

// drawEntry renders e with its top-left corner at (x, y) within width.
func (l Layout) drawEntry(w PageWriter, e LegendEntry, x, y, width float64) {
	c, shape := SymbolFor(e.Index)
	r := l.EntryHeight / 5
	cx, cy := x+r+1, y+l.EntryHeight/2
	DrawSymbol(w, shape, cx, cy, r, c)
	drawBadge(w, e.Initials, cx+r*1.6, cy+r*0.4, c)

	textX := x + 2*r + 8
	w.SetTextColor(Black)
	w.SetFont(9, true)
	w.Text(textX, y+l.EntryHeight/2-0.5, clip(w, e.Cultivar, x+width-textX))
	w.SetFont(7.5, false)
	w.SetTextColor(Gray)
	w.Text(textX, y+l.EntryHeight/2+3.5, treesLabel(e.TreeCount))
}

// drawBadge renders the semi transparent initials badge anchored at its
// left middle point.
func drawBadge(w PageWriter, initials string, x, y float64, c Color) {
	if initials == "" {
		return
	}
	w.SetFont(5, true)
	tw := w.TextWidth(initials)
	const padX, h = 0.8, 2.8

	w.SetAlpha(0.8)
	w.SetFillColor(White)
	w.SetStrokeColor(c)
	w.SetLineWidth(0.15)
	w.RoundedRect(x, y-h/2, tw+2*padX, h, 0.8, FillStroke)
	w.SetAlpha(1)

	w.SetTextColor(c)
	w.Text(x+padX, y+h/2-0.8, initials)
}

func treesLabel(n int) string {
	if n == 1 {
		return "1 tree"
	}
	return strconv.Itoa(n) + " trees"
}

// clip shortens s with an ellipsis until it fits width.
func clip(w PageWriter, s string, width float64) string {
	if w.TextWidth(s) <= width {
		return s
	}
	r := []rune(s)
	for len(r) > 1 {
		r = r[:len(r)-1]
		if c := string(r) + "..."; w.TextWidth(c) <= width {
			return c
		}
	}
	return string(r)
}
