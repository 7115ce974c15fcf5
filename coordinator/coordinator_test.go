package coordinator

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/jupark12/pdf-diff/models"
	"github.com/jupark12/pdf-diff/worker"
)

type fakeExtractor map[string]*models.Extraction

func (f fakeExtractor) ExtractFile(ctx context.Context, path string) (*models.Extraction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	ex, ok := f[path]
	if !ok {
		return nil, &models.ExtractionError{Document: path, Err: models.ErrNoText}
	}
	return ex, nil
}

type fakeSubmitter struct {
	reqs chan models.Request
}

func (s *fakeSubmitter) Submit(req models.Request) { s.reqs <- req }

type fakeRecorder struct {
	mu   sync.Mutex
	recs []models.JobRecord
}

func (r *fakeRecorder) Record(_ context.Context, rec models.JobRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.recs = append(r.recs, rec)
	return nil
}

func (r *fakeRecorder) List(context.Context, string) ([]models.JobRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.JobRecord(nil), r.recs...), nil
}

func (r *fakeRecorder) statuses(jobID int64) []models.JobStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.JobStatus
	for _, rec := range r.recs {
		if rec.JobID == jobID {
			out = append(out, rec.Status)
		}
	}
	return out
}

func extraction(words ...string) *models.Extraction {
	ex := &models.Extraction{
		FullText:    strings.Join(words, models.TokenSeparator),
		PageMetrics: []models.PageMetric{{Width: 612, Height: 792}},
	}
	for i, w := range words {
		ex.Tokens = append(ex.Tokens, models.Token{
			Text:          w,
			AbsoluteIndex: i,
			Rect:          models.NormalizedRect{X: 0.1, Y: 0.1, Width: 0.1, Height: 0.02},
		})
	}
	return ex
}

func inputs(a, b string) Inputs {
	return Inputs{Baseline: Document{ID: a, Path: a}, Revised: Document{ID: b, Path: b}}
}

type harness struct {
	c      *Coordinator
	sub    *fakeSubmitter
	rec    *fakeRecorder
	events chan Event
}

func newHarness(t *testing.T, docs fakeExtractor) *harness {
	t.Helper()
	h := &harness{
		sub:    &fakeSubmitter{reqs: make(chan models.Request, 8)},
		rec:    &fakeRecorder{},
		events: make(chan Event, 64),
	}
	h.c = New(docs, h.sub, h.rec, func(e Event) { h.events <- e })
	t.Cleanup(h.c.Close)
	return h
}

func (h *harness) request(t *testing.T) models.Request {
	t.Helper()
	select {
	case req := <-h.sub.reqs:
		return req
	case <-time.After(5 * time.Second):
		t.Fatal("no request submitted to the worker")
		return models.Request{}
	}
}

// terminal waits for the next result or error event.
func (h *harness) terminal(t *testing.T) Event {
	t.Helper()
	timeout := time.After(5 * time.Second)
	for {
		select {
		case e := <-h.events:
			if e.Type != EventStatus {
				return e
			}
		case <-timeout:
			t.Fatal("no terminal event")
			return Event{}
		}
	}
}

var docs = fakeExtractor{
	"invoice-a": extraction("Invoice", "Total:", "100"),
	"invoice-b": extraction("Invoice", "Total:", "100"),
	"quick":     extraction("The", "quick", "fox"),
	"brown":     extraction("The", "quick", "brown", "fox"),
}

func TestCompareIdentical(t *testing.T) {
	h := newHarness(t, docs)

	id := h.c.Compare(inputs("invoice-a", "invoice-b"))
	req := h.request(t)
	if req.JobID != id || req.Mode != models.ModeWord {
		t.Fatalf("request = job %d mode %v, want job %d word", req.JobID, req.Mode, id)
	}
	if !h.c.Deliver(worker.Compute(req)) {
		t.Fatal("Deliver() rejected the pending job's response")
	}

	e := h.terminal(t)
	if e.Type != EventResult || e.JobID != id {
		t.Fatalf("terminal event = %+v, want result for job %d", e, id)
	}
	want := []models.DiffSegment{{Value: "Invoice Total: 100", Kind: models.Unchanged}}
	if diff := cmp.Diff(want, e.Result.TextDiff); diff != "" {
		t.Errorf("TextDiff mismatch [-want,+got]:\n%s", diff)
	}
	if !e.Result.Changes.Empty() {
		t.Errorf("Changes = %+v, want none", e.Result.Changes)
	}

	s := h.c.Snapshot()
	if s.State != StateSettled || s.Pending != 0 || s.Result == nil || s.Err != nil {
		t.Errorf("Snapshot() = %+v, want settled result", s)
	}
}

func TestCompareAddedWord(t *testing.T) {
	h := newHarness(t, docs)

	h.c.Compare(inputs("quick", "brown"))
	h.c.Deliver(worker.Compute(h.request(t)))

	e := h.terminal(t)
	if e.Result == nil {
		t.Fatalf("terminal event = %+v, want result", e)
	}
	wantChanges := models.ChangeSet{Removed: []int{}, Added: []int{2}}
	if diff := cmp.Diff(wantChanges, e.Result.Changes); diff != "" {
		t.Errorf("Changes mismatch [-want,+got]:\n%s", diff)
	}
	if e.Result.Stats != (models.WordStats{Added: 1}) {
		t.Errorf("Stats = %+v, want one added word", e.Result.Stats)
	}
	if e.Result.Baseline != docs["quick"] || e.Result.Revised != docs["brown"] {
		t.Error("result does not carry both extractions")
	}
}

func TestStaleResponseDropped(t *testing.T) {
	h := newHarness(t, docs)

	first := h.c.Compare(inputs("quick", "brown"))
	req1 := h.request(t)
	second := h.c.Compare(inputs("invoice-a", "invoice-b"))

	// The first job's response arrives while the second is still extracting.
	if h.c.Deliver(worker.Compute(req1)) {
		t.Error("Deliver() accepted a response for a superseded job")
	}
	req2 := h.request(t)
	if req2.JobID != second || second <= first {
		t.Fatalf("job ids = %d then %d, second request for %d", first, second, req2.JobID)
	}
	resp2 := worker.Compute(req2)
	if !h.c.Deliver(resp2) {
		t.Fatal("Deliver() rejected the pending job's response")
	}
	// Late duplicate of the first job, and a repeat of the accepted one.
	if h.c.Deliver(worker.Compute(req1)) {
		t.Error("Deliver() accepted a late response for a superseded job")
	}
	if h.c.Deliver(resp2) {
		t.Error("Deliver() accepted a second terminal outcome for the same job")
	}

	s := h.c.Snapshot()
	if s.Result == nil || s.Result.JobID != second {
		t.Fatalf("Snapshot().Result = %+v, want result for job %d", s.Result, second)
	}
	if !s.Result.Changes.Empty() {
		t.Errorf("final result shows changes from the superseded job: %+v", s.Result.Changes)
	}

	h.c.Close()
	if diff := cmp.Diff([]models.JobStatus{models.StatusPending, models.StatusExtracting, models.StatusDiffing, models.StatusSuperseded}, h.rec.statuses(first)); diff != "" {
		t.Errorf("job %d log mismatch [-want,+got]:\n%s", first, diff)
	}
	if diff := cmp.Diff([]models.JobStatus{models.StatusPending, models.StatusExtracting, models.StatusDiffing, models.StatusCompleted}, h.rec.statuses(second)); diff != "" {
		t.Errorf("job %d log mismatch [-want,+got]:\n%s", second, diff)
	}
}

func TestExtractionError(t *testing.T) {
	h := newHarness(t, docs)

	id := h.c.Compare(inputs("quick", "scanned"))
	e := h.terminal(t)

	var ee *models.ExtractionError
	if e.Type != EventError || e.JobID != id || !errors.As(e.Err, &ee) {
		t.Fatalf("terminal event = %+v, want extraction error for job %d", e, id)
	}
	if models.Retryable(e.Err) {
		t.Error("extraction errors must not be retryable")
	}
	select {
	case req := <-h.sub.reqs:
		t.Errorf("worker received %+v after an extraction error", req)
	default:
	}
}

func TestTooLarge(t *testing.T) {
	big := strings.Repeat("x", 1_350_000)
	h := newHarness(t, fakeExtractor{
		"a": {Tokens: []models.Token{{Text: big}}, FullText: big},
		"b": {Tokens: []models.Token{{Text: big}}, FullText: big},
	})

	h.c.Compare(inputs("a", "b"))
	e := h.terminal(t)

	var tl *models.TooLargeError
	if !errors.As(e.Err, &tl) || tl.Length != 2_700_000 {
		t.Fatalf("terminal event = %+v, want TooLargeError for 2700000 characters", e)
	}
	select {
	case req := <-h.sub.reqs:
		t.Errorf("worker received job %d for oversized inputs", req.JobID)
	default:
	}
}

func TestSentenceModeAdvisory(t *testing.T) {
	half := strings.Repeat("y", 475_000)
	h := newHarness(t, fakeExtractor{
		"a": {Tokens: []models.Token{{Text: half}}, FullText: half},
		"b": {Tokens: []models.Token{{Text: half}}, FullText: half},
	})

	h.c.Compare(inputs("a", "b"))
	req := h.request(t)
	if req.Mode != models.ModeSentence {
		t.Errorf("mode = %v, want sentence", req.Mode)
	}
	if s := h.c.Snapshot(); s.State != StateDiffing || s.Advisory == "" {
		t.Errorf("Snapshot() = %+v, want diffing with an advisory", s)
	}
}

func TestWorkerFault(t *testing.T) {
	h := newHarness(t, docs)

	id := h.c.Compare(inputs("quick", "brown"))
	h.request(t)
	h.c.Deliver(models.Response{Type: models.ResponseError, JobID: id, Message: "out of memory"})

	e := h.terminal(t)
	var wf *models.WorkerFault
	if !errors.As(e.Err, &wf) || wf.Message != "out of memory" {
		t.Fatalf("terminal event = %+v, want WorkerFault", e)
	}
	if !models.Retryable(e.Err) {
		t.Error("worker faults should be retryable")
	}
}

func TestClear(t *testing.T) {
	h := newHarness(t, docs)

	id := h.c.Compare(inputs("quick", "brown"))
	req := h.request(t)
	h.c.Clear()

	if h.c.Deliver(worker.Compute(req)) {
		t.Error("Deliver() accepted a response after Clear")
	}
	s := h.c.Snapshot()
	want := Snapshot{State: StateIdle}
	if diff := cmp.Diff(want, s); diff != "" {
		t.Errorf("Snapshot() after Clear mismatch [-want,+got]:\n%s", diff)
	}

	// A settled result is cleared too.
	next := h.c.Compare(inputs("invoice-a", "invoice-b"))
	if next <= id {
		t.Errorf("job id %d not greater than %d", next, id)
	}
	h.c.Deliver(worker.Compute(h.request(t)))
	h.terminal(t)
	h.c.Clear()
	if s := h.c.Snapshot(); s.State != StateIdle || s.Result != nil {
		t.Errorf("Snapshot() = %+v, want idle without result", s)
	}
}

func TestWithWorker(t *testing.T) {
	var c *Coordinator
	w := worker.NewWorker("test", func(r models.Response) { c.Deliver(r) })
	events := make(chan Event, 64)
	c = New(docs, w, nil, func(e Event) { events <- e })
	defer c.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	w.Start(ctx)

	id := c.Compare(inputs("quick", "brown"))
	timeout := time.After(5 * time.Second)
	for {
		select {
		case e := <-events:
			if e.Type == EventStatus {
				continue
			}
			if e.Type != EventResult || e.JobID != id {
				t.Fatalf("terminal event = %+v, want result for job %d", e, id)
			}
			return
		case <-timeout:
			t.Fatal("no terminal event")
		}
	}
}
