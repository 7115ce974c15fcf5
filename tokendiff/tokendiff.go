// Package tokendiff aligns two token sequences by text and reports which positioned
// tokens were removed from the baseline or added in the revised document.
package tokendiff

import (
	"slices"

	"github.com/jupark12/pdf-diff/models"
	"github.com/jupark12/pdf-diff/textdiff"
	"znkr.io/diff"
)

// Diff compares a and b token by token. Two tokens are the same item when their text is
// equal; position plays no part in matching. The returned index lists are ascending and
// never nil.
func Diff(a, b []models.Token) models.ChangeSet {
	cs := models.ChangeSet{Removed: []int{}, Added: []int{}}

	xa, xb := texts(a), texts(b)
	if slices.Equal(xa, xb) {
		return cs
	}

	s, t := 0, 0
	for _, e := range textdiff.Align(xa, xb) {
		switch e.Op {
		case diff.Match:
			s++
			t++
		case diff.Delete:
			cs.Removed = append(cs.Removed, a[s].AbsoluteIndex)
			s++
		case diff.Insert:
			cs.Added = append(cs.Added, b[t].AbsoluteIndex)
			t++
		}
	}
	return cs
}

func texts(tokens []models.Token) []string {
	out := make([]string, len(tokens))
	for i, tok := range tokens {
		out[i] = tok.Text
	}
	return out
}
