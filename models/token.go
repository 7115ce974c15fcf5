package models

// NormalizedRect is a bounding box expressed as fractions of the page viewport.
// All fields are in [0,1]; Width and Height are strictly positive for extracted tokens.
type NormalizedRect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Token is one whitespace-collapsed run of text extracted from a page.
type Token struct {
	Text            string         `json:"text"`
	PageIndex       int            `json:"pageIndex"`
	ItemIndexOnPage int            `json:"itemIndexOnPage"`
	AbsoluteIndex   int            `json:"absoluteIndex"`
	Rect            NormalizedRect `json:"rect"`
}

// PageMetric is the viewport size of a page at the reference scale.
type PageMetric struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Extraction is the result of extracting one document.
type Extraction struct {
	Tokens      []Token      `json:"tokens"`
	FullText    string       `json:"fullText"`
	PageMetrics []PageMetric `json:"pageMetrics"`
}

// TokenSeparator joins token texts into Extraction.FullText.
const TokenSeparator = " "
