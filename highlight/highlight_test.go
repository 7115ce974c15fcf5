package highlight

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/jupark12/pdf-diff/models"
)

func TestProject(t *testing.T) {
	tok := models.Token{Rect: models.NormalizedRect{X: 0.25, Y: 0.5, Width: 0.1, Height: 0.02}}
	tests := []struct {
		name string
		vp   Viewport
		want Rect
	}{
		{"reference", Viewport{Width: 600, Height: 800}, Rect{Left: 150, Top: 400, Width: 60, Height: 16}},
		{"zoomed", Viewport{Width: 1200, Height: 1600}, Rect{Left: 300, Top: 800, Width: 120, Height: 32}},
		{"empty", Viewport{}, Rect{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Project(tok, tt.vp)
			if diff := cmp.Diff(tt.want, got, cmpopts.EquateApprox(0, 1e-9)); diff != "" {
				t.Errorf("Project() mismatch [-want,+got]:\n%s", diff)
			}
		})
	}
}

func TestViewportAt(t *testing.T) {
	got := ViewportAt(models.PageMetric{Width: 612, Height: 792}, 1.5)
	if got != (Viewport{Width: 918, Height: 1188}) {
		t.Errorf("ViewportAt() = %+v", got)
	}
}

func TestForPage(t *testing.T) {
	rect := models.NormalizedRect{X: 0.5, Y: 0.5, Width: 0.1, Height: 0.1}
	tokens := []models.Token{
		{Text: "kept", PageIndex: 0, AbsoluteIndex: 0, Rect: rect},
		{Text: "gone", PageIndex: 0, AbsoluteIndex: 1, Rect: rect},
		{Text: "also-gone", PageIndex: 1, AbsoluteIndex: 2, Rect: rect},
	}
	changes := models.ChangeSet{Removed: []int{1, 2}, Added: []int{0}}
	vp := Viewport{Width: 100, Height: 200}

	got := ForPage(tokens, 0, changes, Baseline, vp)
	want := []Highlight{{AbsoluteIndex: 1, Text: "gone", Rect: Rect{Left: 50, Top: 100, Width: 10, Height: 20}}}
	if diff := cmp.Diff(want, got, cmpopts.EquateApprox(0, 1e-9)); diff != "" {
		t.Errorf("ForPage(baseline) mismatch [-want,+got]:\n%s", diff)
	}

	// The same index set means something else on the revised side.
	got = ForPage(tokens, 0, changes, Revised, vp)
	if len(got) != 1 || got[0].AbsoluteIndex != 0 {
		t.Errorf("ForPage(revised) = %+v, want token 0", got)
	}

	if got := ForPage(tokens, 0, models.ChangeSet{}, Baseline, vp); len(got) != 0 {
		t.Errorf("ForPage() with no changes = %+v, want none", got)
	}
}

func TestDocument(t *testing.T) {
	ex := &models.Extraction{
		Tokens: []models.Token{
			{Text: "a", PageIndex: 0, AbsoluteIndex: 0, Rect: models.NormalizedRect{X: 0.1, Y: 0.1, Width: 0.1, Height: 0.1}},
			{Text: "b", PageIndex: 1, AbsoluteIndex: 1, Rect: models.NormalizedRect{X: 0.2, Y: 0.2, Width: 0.1, Height: 0.1}},
		},
		PageMetrics: []models.PageMetric{{Width: 100, Height: 100}, {Width: 200, Height: 100}},
	}
	got := Document(ex, models.ChangeSet{Added: []int{1}}, Revised, 2)
	want := [][]Highlight{
		{},
		{{AbsoluteIndex: 1, Text: "b", Rect: Rect{Left: 80, Top: 40, Width: 40, Height: 20}}},
	}
	if diff := cmp.Diff(want, got, cmpopts.EquateApprox(0, 1e-9)); diff != "" {
		t.Errorf("Document() mismatch [-want,+got]:\n%s", diff)
	}
}
