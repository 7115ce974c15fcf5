package extract

// Document is a decoded, paginated document. Implementations must allow pages to be
// read independently and in any order. The caller that receives a Document owns it
// and must Close it exactly once.
type Document interface {
	NumPages() int
	// Page returns the content of the zero-based page index.
	Page(index int) (Page, error)
	Close() error
}

// Page is the raw content of a single page in content-space coordinates.
type Page struct {
	Box  ViewBox
	Runs []Run
}

// ViewBox is the visible region of a page in content space (x0, y0 lower left, x1, y1
// upper right) together with the page's clockwise rotation in degrees.
type ViewBox struct {
	X0, Y0, X1, Y1 float64
	Rotate         int
}

// Run is one raw text run as reported by the decoder.
type Run struct {
	Text string

	// Width is the measured advance of the run in content space, Height the declared
	// height (font size). Either may be zero when the decoder does not know it.
	Width, Height float64

	// Transform is the affine matrix [a b c d e f] mapping run space into content
	// space; (e, f) is the origin of the run on its baseline.
	Transform [6]float64
}
