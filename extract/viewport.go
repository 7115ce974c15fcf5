package extract

import (
	"math"

	"github.com/jupark12/pdf-diff/models"
)

// ReferenceScale is the viewport scale tokens are normalized against.
const ReferenceScale = 1.0

// Viewport maps content-space coordinates onto a top-left origin, y-down canvas of
// Width x Height units, honouring the page rotation.
type Viewport struct {
	Width, Height float64
	transform     [6]float64
}

// NewViewport builds the viewport of box at the given scale.
func NewViewport(box ViewBox, scale float64) Viewport {
	x0, x1 := math.Min(box.X0, box.X1), math.Max(box.X0, box.X1)
	y0, y1 := math.Min(box.Y0, box.Y1), math.Max(box.Y0, box.Y1)
	cx, cy := (x0+x1)/2, (y0+y1)/2

	var ra, rb, rc, rd float64
	switch normalizeRotation(box.Rotate) {
	case 90:
		ra, rb, rc, rd = 0, 1, 1, 0
	case 180:
		ra, rb, rc, rd = -1, 0, 0, 1
	case 270:
		ra, rb, rc, rd = 0, -1, -1, 0
	default:
		ra, rb, rc, rd = 1, 0, 0, -1
	}

	var offX, offY, width, height float64
	if ra == 0 {
		offX, offY = math.Abs(cy-y0)*scale, math.Abs(cx-x0)*scale
		width, height = (y1-y0)*scale, (x1-x0)*scale
	} else {
		offX, offY = math.Abs(cx-x0)*scale, math.Abs(cy-y0)*scale
		width, height = (x1-x0)*scale, (y1-y0)*scale
	}

	return Viewport{
		Width:  width,
		Height: height,
		transform: [6]float64{
			ra * scale,
			rb * scale,
			rc * scale,
			rd * scale,
			offX - ra*scale*cx - rc*scale*cy,
			offY - rb*scale*cx - rd*scale*cy,
		},
	}
}

// Point converts a content-space point into viewport coordinates.
func (v Viewport) Point(x, y float64) (float64, float64) {
	t := v.transform
	return x*t[0] + y*t[2] + t[4], x*t[1] + y*t[3] + t[5]
}

// Metric returns the viewport size as a page metric.
func (v Viewport) Metric() models.PageMetric {
	return models.PageMetric{Width: v.Width, Height: v.Height}
}

func normalizeRotation(deg int) int {
	r := ((deg % 360) + 360) % 360
	return (r + 45) / 90 * 90 % 360
}

// normalizedRect projects the run's extent onto vp and returns it as fractions of the
// viewport, clipped to the page. ok is false when the clipped box has no area.
func normalizedRect(r Run, vp Viewport) (rect models.NormalizedRect, ok bool) {
	a, b, c, d, e, f := r.Transform[0], r.Transform[1], r.Transform[2], r.Transform[3], r.Transform[4], r.Transform[5]

	w := r.Width
	if !(w > 0) {
		w = math.Hypot(a, b)
	}
	h := r.Height
	if !(h > 0) {
		h = math.Hypot(c, d)
	}

	// Unit vectors along the run's baseline and ascent.
	ux, uy := unit(a, b, 1, 0)
	vx, vy := unit(c, d, 0, 1)

	corners := [4][2]float64{
		{e, f},
		{e + w*ux, f + w*uy},
		{e + h*vx, f + h*vy},
		{e + w*ux + h*vx, f + w*uy + h*vy},
	}
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, p := range corners {
		x, y := vp.Point(p[0], p[1])
		minX, maxX = math.Min(minX, x), math.Max(maxX, x)
		minY, maxY = math.Min(minY, y), math.Max(maxY, y)
	}

	left := clamp01(minX / vp.Width)
	right := clamp01(maxX / vp.Width)
	top := clamp01(minY / vp.Height)
	bottom := clamp01(maxY / vp.Height)

	width, height := right-left, bottom-top
	if !(width > 0 && height > 0) {
		return models.NormalizedRect{}, false
	}
	return models.NormalizedRect{X: left, Y: top, Width: width, Height: height}, true
}

func unit(x, y, fx, fy float64) (float64, float64) {
	n := math.Hypot(x, y)
	if !(n > 0) {
		return fx, fy
	}
	return x / n, y / n
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) {
		return v
	}
	return math.Max(0, math.Min(1, v))
}
