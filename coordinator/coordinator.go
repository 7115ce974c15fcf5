// Package coordinator runs comparisons off the interactive path and keeps only the
// outcome of the latest one.
//
// Every call to Compare starts a new job with a larger id and makes it the pending job.
// Extraction, mode selection and the diff itself may finish in any order across jobs;
// anything that reports back for a job other than the pending one is dropped. Each
// accepted job ends with exactly one terminal event, either a result or an error.
package coordinator

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jupark12/pdf-diff/mode"
	"github.com/jupark12/pdf-diff/models"
	"github.com/jupark12/pdf-diff/store"
	"github.com/jupark12/pdf-diff/textdiff"
	"golang.org/x/sync/errgroup"
)

// State is where the coordinator is in its current comparison.
type State string

const (
	StateIdle       State = "idle"
	StateExtracting State = "extracting"
	StateDiffing    State = "diffing"
	StateSettled    State = "settled"
)

// Event types passed to the notify callback.
const (
	EventStatus = "status"
	EventResult = "result"
	EventError  = "error"
)

// Extractor turns a stored document into an Extraction.
type Extractor interface {
	ExtractFile(ctx context.Context, path string) (*models.Extraction, error)
}

// Submitter accepts diff requests. Responses come back through Coordinator.Deliver.
type Submitter interface {
	Submit(req models.Request)
}

// Document names one input of a comparison.
type Document struct {
	ID   string `json:"id"`
	Path string `json:"-"`
}

// Inputs is the pair of documents to compare.
type Inputs struct {
	Baseline Document
	Revised  Document
}

// Event reports a state change to the interactive side.
type Event struct {
	Type     string
	JobID    int64
	State    State
	Advisory string
	Result   *models.Result
	Err      error
}

// Snapshot is a copy of the coordinator's visible state.
type Snapshot struct {
	State    State
	Pending  int64
	Inputs   Inputs
	Advisory string
	Result   *models.Result
	Err      error
}

type job struct {
	id       int64
	inputs   Inputs
	created  time.Time
	mode     models.Mode
	advisory string
	baseline *models.Extraction
	revised  *models.Extraction
}

// Coordinator owns the pending job id of one session.
type Coordinator struct {
	SessionID string

	extractor Extractor
	worker    Submitter
	notify    func(Event)

	mu       sync.Mutex
	counter  int64
	pending  *job
	inputs   Inputs
	state    State
	advisory string
	result   *models.Result
	err      error
	cancel   context.CancelFunc
	closed   bool

	ctx      context.Context
	stop     context.CancelFunc
	records  chan models.JobRecord
	recorder store.Recorder
	drained  chan struct{}
}

// New creates a coordinator for a new session. notify receives every event in order; it
// is called with the coordinator's lock held and must not call back into it. A nil
// recorder discards job records.
func New(extractor Extractor, worker Submitter, recorder store.Recorder, notify func(Event)) *Coordinator {
	if recorder == nil {
		recorder = store.Discard{}
	}
	if notify == nil {
		notify = func(Event) {}
	}
	ctx, stop := context.WithCancel(context.Background())
	c := &Coordinator{
		SessionID: uuid.New().String(),
		extractor: extractor,
		worker:    worker,
		notify:    notify,
		state:     StateIdle,
		ctx:       ctx,
		stop:      stop,
		records:   make(chan models.JobRecord, 100),
		recorder:  recorder,
		drained:   make(chan struct{}),
	}
	go c.drain()
	return c
}

// Compare starts a comparison of in and returns its job id. Any job still pending is
// superseded: its extraction is cancelled and whatever it reports later is dropped.
func (c *Coordinator) Compare(in Inputs) int64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return 0
	}
	c.supersede()

	c.counter++
	j := &job{id: c.counter, inputs: in, created: time.Now()}
	ctx, cancel := context.WithCancel(c.ctx)

	c.pending = j
	c.cancel = cancel
	c.inputs = in
	c.state = StateExtracting
	c.advisory = ""
	c.result = nil
	c.err = nil

	log.Printf("Session %s accepted job %d (%s vs %s)", c.SessionID, j.id, in.Baseline.ID, in.Revised.ID)
	c.record(j, models.StatusPending, nil)
	c.record(j, models.StatusExtracting, nil)
	c.notify(Event{Type: EventStatus, JobID: j.id, State: StateExtracting})

	go c.run(ctx, j)
	return j.id
}

// Clear drops the inputs, the pending job and any outcome, returning to idle.
func (c *Coordinator) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.supersede()
	c.inputs = Inputs{}
	c.state = StateIdle
	c.advisory = ""
	c.result = nil
	c.err = nil
	c.notify(Event{Type: EventStatus, State: StateIdle})
}

// Deliver hands a worker response to the coordinator. It reports whether the response
// was accepted; responses for any job but the pending one are dropped.
func (c *Coordinator) Deliver(resp models.Response) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	j := c.pending
	if j == nil || resp.JobID != j.id || c.state != StateDiffing {
		log.Printf("Session %s dropping stale response for job %d", c.SessionID, resp.JobID)
		return false
	}

	switch resp.Type {
	case models.ResponseResult:
		c.settle(j, &models.Result{
			JobID:    j.id,
			Mode:     j.mode,
			Advisory: j.advisory,
			TextDiff: resp.TextDiff,
			Changes: models.ChangeSet{
				Removed: nonNil(resp.RemovedIndexes),
				Added:   nonNil(resp.AddedIndexes),
			},
			Stats:    textdiff.CountWords(resp.TextDiff),
			Baseline: j.baseline,
			Revised:  j.revised,
		}, nil)
	case models.ResponseError:
		c.settle(j, nil, &models.WorkerFault{Message: resp.Message})
	default:
		c.settle(j, nil, &models.WorkerFault{Message: fmt.Sprintf("unexpected response type %q", resp.Type)})
	}
	return true
}

// Snapshot returns the current state.
func (c *Coordinator) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := Snapshot{
		State:    c.state,
		Inputs:   c.inputs,
		Advisory: c.advisory,
		Result:   c.result,
		Err:      c.err,
	}
	if c.pending != nil {
		s.Pending = c.pending.id
	}
	return s
}

// Close cancels the pending job and flushes the job log. The coordinator accepts no
// new comparisons afterwards.
func (c *Coordinator) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.supersede()
	c.closed = true
	c.stop()
	close(c.records)
	c.mu.Unlock()

	<-c.drained
}

// run extracts both documents, selects the mode and hands the job to the worker.
func (c *Coordinator) run(ctx context.Context, j *job) {
	defer func() {
		if r := recover(); r != nil {
			c.fail(j, &models.WorkerFault{Message: fmt.Sprint(r)})
		}
	}()

	var baseline, revised *models.Extraction
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		baseline, err = c.extractor.ExtractFile(gctx, j.inputs.Baseline.Path)
		return err
	})
	g.Go(func() (err error) {
		revised, err = c.extractor.ExtractFile(gctx, j.inputs.Revised.Path)
		return err
	})
	if err := g.Wait(); err != nil {
		c.fail(j, err)
		return
	}

	n := mode.CombinedLength(baseline.FullText, revised.FullText)
	m, advisory, err := mode.Select(n)
	if err != nil {
		c.fail(j, err)
		return
	}

	if !c.beginDiff(j, m, advisory, baseline, revised) {
		return
	}
	log.Printf("Session %s diffing job %d: %s", c.SessionID, j.id, mode.Describe(n))
	c.worker.Submit(models.Request{
		JobID:   j.id,
		TextA:   baseline.FullText,
		TextB:   revised.FullText,
		TokensA: baseline.Tokens,
		TokensB: revised.Tokens,
		Mode:    m,
	})
}

func (c *Coordinator) beginDiff(j *job, m models.Mode, advisory string, baseline, revised *models.Extraction) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.pending != j {
		return false
	}
	j.mode = m
	j.advisory = advisory
	j.baseline = baseline
	j.revised = revised

	c.state = StateDiffing
	c.advisory = advisory
	c.record(j, models.StatusDiffing, nil)
	c.notify(Event{Type: EventStatus, JobID: j.id, State: StateDiffing, Advisory: advisory})
	return true
}

func (c *Coordinator) fail(j *job, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.pending != j {
		log.Printf("Session %s dropping outcome of superseded job %d: %v", c.SessionID, j.id, err)
		return
	}
	c.settle(j, nil, err)
}

// settle records the terminal outcome of the pending job. c.mu must be held.
func (c *Coordinator) settle(j *job, result *models.Result, err error) {
	c.pending = nil
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.state = StateSettled
	c.result = result
	c.err = err

	if err != nil {
		log.Printf("Session %s job %d failed: %v", c.SessionID, j.id, err)
		c.record(j, models.StatusFailed, err)
		c.notify(Event{Type: EventError, JobID: j.id, State: StateSettled, Advisory: c.advisory, Err: err})
		return
	}
	log.Printf("Session %s job %d completed: %d removed, %d added tokens",
		c.SessionID, j.id, len(result.Changes.Removed), len(result.Changes.Added))
	c.record(j, models.StatusCompleted, nil)
	c.notify(Event{Type: EventResult, JobID: j.id, State: StateSettled, Advisory: c.advisory, Result: result})
}

// supersede abandons the pending job, if any. c.mu must be held.
func (c *Coordinator) supersede() {
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	if c.pending != nil {
		c.record(c.pending, models.StatusSuperseded, nil)
		c.pending = nil
	}
}

// record queues a job log entry without blocking. c.mu must be held.
func (c *Coordinator) record(j *job, status models.JobStatus, err error) {
	if c.closed {
		return
	}
	rec := models.JobRecord{
		SessionID: c.SessionID,
		JobID:     j.id,
		Baseline:  j.inputs.Baseline.ID,
		Revised:   j.inputs.Revised.ID,
		Status:    status,
		Advisory:  j.advisory,
		CreatedAt: j.created,
		UpdatedAt: time.Now(),
	}
	if status == models.StatusDiffing || status == models.StatusCompleted {
		rec.Mode = j.mode.String()
	}
	if err != nil {
		rec.ErrorKind = models.ErrorKind(err)
		rec.ErrorMessage = err.Error()
	}

	select {
	case c.records <- rec:
	default:
		log.Printf("Session %s job log full, dropping %s record for job %d", c.SessionID, status, j.id)
	}
}

func (c *Coordinator) drain() {
	defer close(c.drained)
	for rec := range c.records {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := c.recorder.Record(ctx, rec); err != nil {
			log.Printf("Session %s failed to record job %d: %v", c.SessionID, rec.JobID, err)
		}
		cancel()
	}
}

func nonNil(s []int) []int {
	if s == nil {
		return []int{}
	}
	return s
}
