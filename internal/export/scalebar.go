package export

import (
	"math"
	"strconv"
)

// MetersPerDegreeLat is the length of one degree along a meridian, and of
// one degree of longitude at the equator.
const MetersPerDegreeLat = 111320.0

// NiceDistance rounds d to 1, 2 or 5 times a power of ten.
func NiceDistance(d float64) float64 {
	if d <= 0 || math.IsNaN(d) || math.IsInf(d, 0) {
		return 0
	}
	mag := math.Pow(10, math.Floor(math.Log10(d)))
	norm := d / mag
	switch {
	case norm < 1.5:
		return mag
	case norm < 3:
		return 2 * mag
	case norm < 7:
		return 5 * mag
	default:
		return 10 * mag
	}
}

// FormatDistance labels a distance in meters, switching to kilometers from
// 1000 m.
func FormatDistance(m float64) string {
	if m >= 1000 {
		return strconv.FormatFloat(m/1000, 'f', -1, 64) + " km"
	}
	return strconv.FormatFloat(m, 'f', -1, 64) + " m"
}

// ScaleBar is a bar of Length page units standing for Meters on the ground.
type ScaleBar struct {
	Meters float64
	Length float64
	Label  string
}

// NewScaleBar picks a bar close to target page units for a map drawn with t
// around centerLat.
func NewScaleBar(t Transform, centerLat, target float64) ScaleBar {
	metersPerDegree := MetersPerDegreeLat * math.Cos(centerLat*math.Pi/180)
	if t.Scale <= 0 || metersPerDegree <= 0 {
		return ScaleBar{}
	}
	metersPerUnit := metersPerDegree / t.Scale

	nice := NiceDistance(target * metersPerUnit)
	return ScaleBar{
		Meters: nice,
		Length: nice / metersPerUnit,
		Label:  FormatDistance(nice),
	}
}

const scaleBarSegments = 4

// Draw renders the bar with its left end at (x, y), y being the top of the
// bar, and the label centered above it.
func (s ScaleBar) Draw(w PageWriter, x, y, height float64) {
	if s.Length <= 0 {
		return
	}
	seg := s.Length / scaleBarSegments
	w.SetStrokeColor(Black)
	w.SetLineWidth(0.2)
	for i := 0; i < scaleBarSegments; i++ {
		if i%2 == 0 {
			w.SetFillColor(Black)
		} else {
			w.SetFillColor(White)
		}
		w.Rect(x+float64(i)*seg, y, seg, height, FillStroke)
	}

	w.SetLineWidth(0.3)
	w.Line(x, y-1, x, y+height+1)
	w.Line(x+s.Length, y-1, x+s.Length, y+height+1)

	w.SetFont(7, false)
	w.SetTextColor(Black)
	w.Text(x+(s.Length-w.TextWidth(s.Label))/2, y-2, s.Label)
}
