package extract

import (
	"bytes"
	"fmt"
	"io"
	"math"
	"strings"
	"unicode"

	"github.com/ledongthuc/pdf"
)

// US Letter, used when a page declares no usable box.
var defaultBox = ViewBox{X0: 0, Y0: 0, X1: 612, Y1: 792}

// maxInheritDepth bounds the walk up the page tree for inherited attributes.
const maxInheritDepth = 32

type pdfDocument struct {
	r      *pdf.Reader
	closer io.Closer
}

// OpenPDF opens the PDF file at path. The returned Document holds the file open until
// Close is called.
func OpenPDF(path string) (doc Document, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("open %s: malformed pdf: %v", path, r)
		}
	}()
	f, r, err := pdf.Open(path)
	if err != nil {
		if f != nil {
			f.Close()
		}
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return &pdfDocument{r: r, closer: f}, nil
}

// OpenPDFBytes decodes a PDF held in memory.
func OpenPDFBytes(data []byte) (doc Document, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("malformed pdf: %v", r)
		}
	}()
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("read pdf: %w", err)
	}
	return &pdfDocument{r: r}, nil
}

func (d *pdfDocument) NumPages() int {
	return d.r.NumPage()
}

func (d *pdfDocument) Page(index int) (pg Page, err error) {
	pg.Box = defaultBox
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("decode page %d: %v", index, r)
		}
	}()

	p := d.r.Page(index + 1)
	if p.V.IsNull() {
		return pg, fmt.Errorf("page %d not found", index)
	}
	pg.Box = pageBox(p.V)
	pg.Runs = groupRuns(placeGlyphs(p.Content().Text))
	return pg, nil
}

func (d *pdfDocument) Close() error {
	if d.closer == nil {
		return nil
	}
	err := d.closer.Close()
	d.closer = nil
	return err
}

// pageBox returns the visible box of a page: its CropBox, or its MediaBox when no crop
// box is set. Both are inheritable through the page tree.
func pageBox(page pdf.Value) ViewBox {
	box, ok := rectangle(inherited(page, "CropBox"))
	if !ok {
		box, ok = rectangle(inherited(page, "MediaBox"))
	}
	if !ok {
		box = defaultBox
	}
	box.Rotate = int(inherited(page, "Rotate").Int64())
	return box
}

func inherited(v pdf.Value, key string) pdf.Value {
	for i := 0; i < maxInheritDepth && !v.IsNull(); i++ {
		if x := v.Key(key); !x.IsNull() {
			return x
		}
		v = v.Key("Parent")
	}
	return pdf.Value{}
}

func rectangle(v pdf.Value) (ViewBox, bool) {
	if v.Len() != 4 {
		return ViewBox{}, false
	}
	b := ViewBox{
		X0: v.Index(0).Float64(),
		Y0: v.Index(1).Float64(),
		X1: v.Index(2).Float64(),
		Y1: v.Index(3).Float64(),
	}
	if b.X0 == b.X1 || b.Y0 == b.Y1 {
		return ViewBox{}, false
	}
	return b, true
}

// estimatedAdvance is the advance, in ems, given to a glyph whose font has no width
// table.
const estimatedAdvance = 0.5

// placeGlyphs fills in positions for glyphs the decoder could not measure. Without a
// /Widths array (common for the standard 14 fonts) every glyph of a string is reported
// at the string's origin with zero width. Such glyphs are laid out one estimated advance
// after the previous one; any extra movement the decoder did apply (character spacing,
// TJ adjustments) is kept. A jump of more than one em is an explicit reposition and
// starts over from the reported position.
func placeGlyphs(glyphs []pdf.Text) []pdf.Text {
	var prev *pdf.Text
	var prevX float64
	for i := range glyphs {
		g := &glyphs[i]
		rawX := g.X
		size := math.Abs(g.FontSize)
		if g.W != 0 || size == 0 {
			prev = nil
			continue
		}
		if prev != nil && prev.Font == g.Font && prev.FontSize == g.FontSize &&
			math.Abs(g.Y-prev.Y) <= 0.2*size && math.Abs(rawX-prevX) <= size {
			g.X = prev.X + prev.W + (rawX - prevX)
		}
		g.W = estimatedAdvance * size
		prev, prevX = g, rawX
	}
	return glyphs
}

// groupRuns joins the positioned glyphs of a page into word runs. A run ends at a blank
// glyph, at a change of font or size, when the baseline moves, or when the next glyph
// does not start where the previous one ended.
func groupRuns(glyphs []pdf.Text) []Run {
	var runs []Run
	var cur *runBuilder
	flush := func() {
		if cur != nil {
			runs = append(runs, cur.run())
			cur = nil
		}
	}
	for _, g := range glyphs {
		if isBlank(g.S) {
			flush()
			continue
		}
		if cur != nil && !cur.continues(g) {
			flush()
		}
		if cur == nil {
			cur = newRunBuilder(g)
			continue
		}
		cur.add(g)
	}
	flush()
	return runs
}

type runBuilder struct {
	text strings.Builder
	font string
	size float64
	x, y float64
	end  float64
}

func newRunBuilder(g pdf.Text) *runBuilder {
	b := &runBuilder{
		font: g.Font,
		size: math.Abs(g.FontSize),
		x:    g.X,
		y:    g.Y,
		end:  g.X,
	}
	b.add(g)
	return b
}

func (b *runBuilder) add(g pdf.Text) {
	b.text.WriteString(g.S)
	b.end = math.Max(b.end, g.X+g.W)
}

// tolerance is how far, in content units, a glyph may stray from the run and still
// belong to it.
func (b *runBuilder) tolerance() float64 {
	if b.size > 0 {
		return 0.2 * b.size
	}
	return 1
}

func (b *runBuilder) continues(g pdf.Text) bool {
	if g.Font != b.font || math.Abs(math.Abs(g.FontSize)-b.size) > 0.01*b.size {
		return false
	}
	tol := b.tolerance()
	if math.Abs(g.Y-b.y) > tol {
		return false
	}
	gap := g.X - b.end
	return gap <= tol && gap >= -tol
}

func (b *runBuilder) run() Run {
	return Run{
		Text:      b.text.String(),
		Width:     math.Max(0, b.end-b.x),
		Height:    b.size,
		Transform: [6]float64{b.size, 0, 0, b.size, b.x, b.y},
	}
}

func isBlank(s string) bool {
	return strings.IndexFunc(s, func(r rune) bool { return !unicode.IsSpace(r) }) < 0
}
