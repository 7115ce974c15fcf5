// Package highlight places changed tokens on rendered pages.
package highlight

import "github.com/jupark12/pdf-diff/models"

// Viewport is the size of a rendered page in output units (CSS pixels, image pixels).
type Viewport struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// ViewportAt returns the viewport of a page rendered at scale, given its metric at the
// reference scale.
func ViewportAt(m models.PageMetric, scale float64) Viewport {
	return Viewport{Width: m.Width * scale, Height: m.Height * scale}
}

// Rect is a draw rectangle in viewport units, top-left origin.
type Rect struct {
	Left   float64 `json:"left"`
	Top    float64 `json:"top"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Project maps the token's normalized rectangle onto vp. Callers must project again
// whenever the viewport changes size.
func Project(t models.Token, vp Viewport) Rect {
	return Rect{
		Left:   t.Rect.X * vp.Width,
		Top:    t.Rect.Y * vp.Height,
		Width:  t.Rect.Width * vp.Width,
		Height: t.Rect.Height * vp.Height,
	}
}

// Side selects which half of a change set applies to a document.
type Side int

const (
	// Baseline highlights removed tokens.
	Baseline Side = iota
	// Revised highlights added tokens.
	Revised
)

func (s Side) String() string {
	if s == Revised {
		return "revised"
	}
	return "baseline"
}

// Highlight is one rectangle to draw over a page.
type Highlight struct {
	AbsoluteIndex int    `json:"absoluteIndex"`
	Text          string `json:"text"`
	Rect          Rect   `json:"rect"`
}

// ForPage returns the highlights of page pageIndex: the tokens on that page whose
// absolute index is in the side's half of changes.
func ForPage(tokens []models.Token, pageIndex int, changes models.ChangeSet, side Side, vp Viewport) []Highlight {
	var out []Highlight
	for _, t := range tokens {
		if t.PageIndex != pageIndex || !changed(changes, side, t.AbsoluteIndex) {
			continue
		}
		out = append(out, Highlight{AbsoluteIndex: t.AbsoluteIndex, Text: t.Text, Rect: Project(t, vp)})
	}
	return out
}

// Document returns the highlights of every page of ex rendered at scale, indexed by
// page.
func Document(ex *models.Extraction, changes models.ChangeSet, side Side, scale float64) [][]Highlight {
	pages := make([][]Highlight, len(ex.PageMetrics))
	for i := range pages {
		pages[i] = []Highlight{}
	}
	for _, t := range ex.Tokens {
		if t.PageIndex < 0 || t.PageIndex >= len(pages) || !changed(changes, side, t.AbsoluteIndex) {
			continue
		}
		vp := ViewportAt(ex.PageMetrics[t.PageIndex], scale)
		pages[t.PageIndex] = append(pages[t.PageIndex], Highlight{
			AbsoluteIndex: t.AbsoluteIndex,
			Text:          t.Text,
			Rect:          Project(t, vp),
		})
	}
	return pages
}

func changed(c models.ChangeSet, side Side, idx int) bool {
	if side == Revised {
		return c.IsAdded(idx)
	}
	return c.IsRemoved(idx)
}
