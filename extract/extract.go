// Package extract turns paginated documents into position-tagged text tokens.
package extract

import (
	"context"
	"errors"
	"fmt"
	"log"
	"path/filepath"
	"strings"

	"github.com/jupark12/pdf-diff/models"
)

// Opener opens the document stored at path.
type Opener func(path string) (Document, error)

// Extractor produces an Extraction for one document at a time. It is safe for
// concurrent use; every call works on its own Document.
type Extractor struct {
	open Opener
}

// New returns an Extractor that opens files with open. A nil open uses OpenPDF.
func New(open Opener) *Extractor {
	if open == nil {
		open = OpenPDF
	}
	return &Extractor{open: open}
}

// ExtractFile opens path and extracts it. Any failure to open the file is reported as
// an ExtractionError.
func (e *Extractor) ExtractFile(ctx context.Context, path string) (*models.Extraction, error) {
	name := filepath.Base(path)
	doc, err := e.open(path)
	if err != nil {
		return nil, &models.ExtractionError{Document: name, Err: err}
	}
	ex, err := e.Extract(ctx, doc)
	var ee *models.ExtractionError
	if errors.As(err, &ee) && ee.Document == "" {
		ee.Document = name
	}
	return ex, err
}

// Extract reads every page of doc and returns its tokens in reading order. A page that
// fails to decode contributes no tokens. Extract takes ownership of doc and closes it
// before returning.
func (e *Extractor) Extract(ctx context.Context, doc Document) (*models.Extraction, error) {
	defer func() {
		if err := doc.Close(); err != nil {
			log.Printf("extract: failed to release document: %v", err)
		}
	}()

	n := doc.NumPages()
	ex := &models.Extraction{
		Tokens:      make([]models.Token, 0),
		PageMetrics: make([]models.PageMetric, 0, n),
	}

	next := 0
	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		page, err := readPage(doc, i)
		vp := NewViewport(page.Box, ReferenceScale)
		ex.PageMetrics = append(ex.PageMetrics, vp.Metric())
		if err != nil {
			log.Printf("extract: skipping page %d: %v", i, err)
			continue
		}

		for item, run := range page.Runs {
			text := collapseSpace(run.Text)
			if text == "" {
				continue
			}
			rect, ok := normalizedRect(run, vp)
			if !ok {
				continue
			}
			ex.Tokens = append(ex.Tokens, models.Token{
				Text:            text,
				PageIndex:       i,
				ItemIndexOnPage: item,
				AbsoluteIndex:   next,
				Rect:            rect,
			})
			next++
		}
	}

	if len(ex.Tokens) == 0 {
		return nil, &models.ExtractionError{Err: models.ErrNoText}
	}

	texts := make([]string, len(ex.Tokens))
	for i, t := range ex.Tokens {
		texts[i] = t.Text
	}
	ex.FullText = strings.Join(texts, models.TokenSeparator)
	return ex, nil
}

// readPage fetches one page and turns decoder panics into errors.
func readPage(doc Document, i int) (page Page, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("decoder panic: %v", r)
		}
	}()
	return doc.Page(i)
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
