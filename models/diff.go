package models

import (
	"fmt"
	"slices"
)

// Mode is the granularity the text diff aligns on.
//
// Modes are ordered from finest to coarsest, so a larger value never gives more precise
// highlights than a smaller one.
type Mode int

const (
	ModeWord Mode = iota
	ModeParagraph
	ModeSentence
)

func (m Mode) String() string {
	switch m {
	case ModeWord:
		return "word"
	case ModeParagraph:
		return "paragraph"
	case ModeSentence:
		return "sentence"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

func (m Mode) MarshalText() ([]byte, error) {
	switch m {
	case ModeWord, ModeParagraph, ModeSentence:
		return []byte(m.String()), nil
	}
	return nil, fmt.Errorf("unknown mode %d", int(m))
}

func (m *Mode) UnmarshalText(b []byte) error {
	switch string(b) {
	case "word":
		*m = ModeWord
	case "paragraph":
		*m = ModeParagraph
	case "sentence":
		*m = ModeSentence
	default:
		return fmt.Errorf("unknown mode %q", b)
	}
	return nil
}

// SegmentKind classifies a DiffSegment.
type SegmentKind string

const (
	Unchanged SegmentKind = "unchanged"
	Added     SegmentKind = "added"
	Removed   SegmentKind = "removed"
)

// DiffSegment is one run of the linear text diff.
type DiffSegment struct {
	Value string      `json:"value"`
	Kind  SegmentKind `json:"kind"`
}

// WordStats counts the words in added and removed segments.
type WordStats struct {
	Added   int `json:"added"`
	Removed int `json:"removed"`
}

// ChangeSet holds the absolute indexes of tokens only present in the baseline (Removed)
// or only present in the revised document (Added). Both slices are sorted ascending.
type ChangeSet struct {
	Removed []int `json:"removedIndexes"`
	Added   []int `json:"addedIndexes"`
}

// IsRemoved reports whether the baseline token with the given absolute index was removed.
func (c ChangeSet) IsRemoved(idx int) bool {
	_, ok := slices.BinarySearch(c.Removed, idx)
	return ok
}

// IsAdded reports whether the revised token with the given absolute index was added.
func (c ChangeSet) IsAdded(idx int) bool {
	_, ok := slices.BinarySearch(c.Added, idx)
	return ok
}

// Empty reports whether no token changed.
func (c ChangeSet) Empty() bool {
	return len(c.Removed) == 0 && len(c.Added) == 0
}
