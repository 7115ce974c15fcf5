package mode

import (
	"errors"
	"strings"
	"testing"

	"github.com/jupark12/pdf-diff/models"
)

func TestSelect(t *testing.T) {
	tests := []struct {
		n            int
		want         models.Mode
		wantAdvisory bool
		wantErr      bool
	}{
		{n: 0, want: models.ModeWord},
		{n: 18, want: models.ModeWord},
		{n: WordThreshold, want: models.ModeWord},
		{n: WordThreshold + 1, want: models.ModeParagraph, wantAdvisory: true},
		{n: ParagraphThreshold, want: models.ModeParagraph, wantAdvisory: true},
		{n: 950_000, want: models.ModeSentence, wantAdvisory: true},
		{n: AbsoluteLimit, want: models.ModeSentence, wantAdvisory: true},
		{n: AbsoluteLimit + 1, wantErr: true},
		{n: 2_700_000, wantErr: true},
	}
	for _, tt := range tests {
		got, advisory, err := Select(tt.n)
		if tt.wantErr {
			var tl *models.TooLargeError
			if !errors.As(err, &tl) {
				t.Errorf("Select(%d) error = %v, want TooLargeError", tt.n, err)
			} else if tl.Length != tt.n || tl.Limit != AbsoluteLimit {
				t.Errorf("Select(%d) error = %+v", tt.n, tl)
			}
			continue
		}
		if err != nil {
			t.Errorf("Select(%d) unexpected error: %v", tt.n, err)
			continue
		}
		if got != tt.want {
			t.Errorf("Select(%d) = %v, want %v", tt.n, got, tt.want)
		}
		if (advisory != "") != tt.wantAdvisory {
			t.Errorf("Select(%d) advisory = %q, want advisory: %v", tt.n, advisory, tt.wantAdvisory)
		}
	}
}

func TestParagraphAdvisoryMentionsLineBreaks(t *testing.T) {
	_, advisory, _ := Select(WordThreshold + 1)
	if !strings.Contains(advisory, "line breaks") {
		t.Errorf("paragraph advisory %q does not warn about text without line breaks", advisory)
	}
}

func TestSelectMonotonic(t *testing.T) {
	prev := models.ModeWord
	for n := 0; n <= AbsoluteLimit; n += 25_000 {
		m, _, err := Select(n)
		if err != nil {
			t.Fatalf("Select(%d) unexpected error: %v", n, err)
		}
		if m < prev {
			t.Fatalf("Select(%d) = %v, finer than %v for a smaller input", n, m, prev)
		}
		prev = m
	}
}

func TestCombinedLength(t *testing.T) {
	if got := CombinedLength("Invoice", "Größe"); got != 12 {
		t.Errorf("CombinedLength() = %d, want 12", got)
	}
}
