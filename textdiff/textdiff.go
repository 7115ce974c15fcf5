// Package textdiff computes the linear text diff between two documents.
package textdiff

import (
	"strings"

	"github.com/jupark12/pdf-diff/models"
	"znkr.io/diff"
)

// Diff returns the segments that turn a into b when both are split into units of mode
// m. Removed and unchanged segments concatenate to a; added and unchanged segments
// concatenate to b. Adjacent units of the same kind are merged into one segment.
func Diff(a, b string, m models.Mode) []models.DiffSegment {
	if a == b {
		return []models.DiffSegment{{Value: a, Kind: models.Unchanged}}
	}

	var (
		out  []models.DiffSegment
		kind models.SegmentKind
		buf  strings.Builder
	)
	emit := func(k models.SegmentKind, v string) {
		if buf.Len() > 0 && k != kind {
			out = append(out, models.DiffSegment{Value: buf.String(), Kind: kind})
			buf.Reset()
		}
		kind = k
		buf.WriteString(v)
	}

	for _, e := range Align(Segment(a, m), Segment(b, m)) {
		switch e.Op {
		case diff.Match:
			emit(models.Unchanged, e.X)
		case diff.Delete:
			emit(models.Removed, e.X)
		case diff.Insert:
			emit(models.Added, e.Y)
		}
	}
	if buf.Len() > 0 {
		out = append(out, models.DiffSegment{Value: buf.String(), Kind: kind})
	}
	return out
}

// Align returns a minimal edit script from x to y. Among equally short scripts, every
// block of insertions or deletions is moved as far towards the end as the following
// matches allow, so repeated units are always resolved the same way.
//
// The library's size heuristics are disabled; they trade minimality for speed once the
// changed region grows past a few thousand units.
func Align[T comparable](x, y []T) []diff.Edit[T] {
	edits := diff.Edits(x, y, diff.Minimal())
	slide(edits)
	return edits
}

func slide[T comparable](edits []diff.Edit[T]) {
	for i := 0; i < len(edits); {
		op := edits[i].Op
		if op == diff.Match {
			i++
			continue
		}
		j := i
		for j < len(edits) && edits[j].Op == op {
			j++
		}
		for j < len(edits) && edits[j].Op == diff.Match && value(edits[i]) == edits[j].X {
			// The first unit of the block equals the match after it, so the block
			// can shift down by one unit.
			m := edits[j]
			if op == diff.Insert {
				edits[i] = diff.Edit[T]{Op: diff.Match, X: m.X, Y: edits[i].Y}
				edits[j] = diff.Edit[T]{Op: diff.Insert, Y: m.Y}
			} else {
				edits[i] = diff.Edit[T]{Op: diff.Match, X: edits[i].X, Y: m.Y}
				edits[j] = diff.Edit[T]{Op: diff.Delete, X: m.X}
			}
			i++
			j++
		}
		i = j
	}
}

func value[T any](e diff.Edit[T]) T {
	if e.Op == diff.Insert {
		return e.Y
	}
	return e.X
}

// CountWords sums the words of added and removed segments.
func CountWords(segments []models.DiffSegment) models.WordStats {
	var s models.WordStats
	for _, seg := range segments {
		switch seg.Kind {
		case models.Added:
			s.Added += len(strings.Fields(seg.Value))
		case models.Removed:
			s.Removed += len(strings.Fields(seg.Value))
		}
	}
	return s
}
