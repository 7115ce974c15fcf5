package textdiff

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/jupark12/pdf-diff/models"
)

// Segment splits text into the units the diff aligns on for the given mode. The units
// always concatenate back to text.
//
//   - ModeWord: alternating runs of non-space and space characters.
//   - ModeParagraph: lines, each keeping its trailing newline.
//   - ModeSentence: sentences ending in '.', '!' or '?' (plus any closing quotes or
//     brackets), each keeping the whitespace that follows it.
func Segment(text string, m models.Mode) []string {
	switch m {
	case models.ModeParagraph:
		return lines(text)
	case models.ModeSentence:
		return sentences(text)
	default:
		return words(text)
	}
}

func words(s string) []string {
	var out []string
	start := 0
	prevSpace := false
	for i, r := range s {
		space := unicode.IsSpace(r)
		if i > start && space != prevSpace {
			out = append(out, s[start:i])
			start = i
		}
		prevSpace = space
	}
	if start < len(s) {
		out = append(out, s[start:])
	}
	return out
}

func lines(s string) []string {
	if s == "" {
		return nil
	}
	out := strings.SplitAfter(s, "\n")
	if out[len(out)-1] == "" {
		out = out[:len(out)-1]
	}
	return out
}

func sentences(s string) []string {
	var out []string
	start := 0
	for i := 0; i < len(s); {
		r, size := utf8.DecodeRuneInString(s[i:])
		if !isTerminal(r) {
			i += size
			continue
		}
		end := skip(s, i+size, func(r rune) bool { return isTerminal(r) || isCloser(r) })
		next := skip(s, end, unicode.IsSpace)
		if next > end {
			out = append(out, s[start:next])
			start = next
		}
		i = next
	}
	if start < len(s) {
		out = append(out, s[start:])
	}
	return out
}

// skip returns the offset of the first rune at or after i that does not satisfy f.
func skip(s string, i int, f func(rune) bool) int {
	for i < len(s) {
		r, size := utf8.DecodeRuneInString(s[i:])
		if !f(r) {
			break
		}
		i += size
	}
	return i
}

func isTerminal(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}

func isCloser(r rune) bool {
	switch r {
	case '"', '\'', ')', ']', '}', '»', '’', '”':
		return true
	}
	return false
}
