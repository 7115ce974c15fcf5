package worker

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/jupark12/pdf-diff/models"
	"github.com/jupark12/pdf-diff/textdiff"
	"github.com/jupark12/pdf-diff/tokendiff"
	"golang.org/x/sync/errgroup"
)

// Worker runs diff requests off the caller's goroutine, one at a time. It holds at most
// one request that has not started yet: submitting a new one replaces it.
type Worker struct {
	ID         string
	Processing bool
	deliver    func(models.Response)
	next       *models.Request
	wake       chan struct{}
	mu         sync.Mutex
}

// NewWorker creates a worker that hands every response to deliver.
func NewWorker(id string, deliver func(models.Response)) *Worker {
	return &Worker{
		ID:      id,
		deliver: deliver,
		wake:    make(chan struct{}, 1),
	}
}

// Start begins processing requests until ctx is done.
func (w *Worker) Start(ctx context.Context) {
	log.Printf("Worker %s starting", w.ID)

	go func() {
		for {
			select {
			case <-ctx.Done():
				log.Printf("Worker %s stopping", w.ID)
				return
			case <-w.wake:
			}

			for {
				req := w.take()
				if req == nil {
					break
				}

				log.Printf("Worker %s processing job %d (%s)", w.ID, req.JobID, req.Mode)
				resp := Compute(*req)
				if resp.Type == models.ResponseError {
					log.Printf("Worker %s failed job %d: %s", w.ID, req.JobID, resp.Message)
				} else {
					log.Printf("Worker %s completed job %d", w.ID, req.JobID)
				}

				w.mu.Lock()
				w.Processing = false
				w.mu.Unlock()

				w.deliver(resp)
			}
		}
	}()
}

// Submit queues req, replacing any request that has not started.
func (w *Worker) Submit(req models.Request) {
	w.mu.Lock()
	if w.next != nil {
		log.Printf("Worker %s dropping unstarted job %d", w.ID, w.next.JobID)
	}
	w.next = &req
	w.mu.Unlock()

	select {
	case w.wake <- struct{}{}:
	default:
	}
}

// Busy reports whether a request is running or waiting.
func (w *Worker) Busy() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.Processing || w.next != nil
}

func (w *Worker) take() *models.Request {
	w.mu.Lock()
	defer w.mu.Unlock()
	req := w.next
	w.next = nil
	w.Processing = req != nil
	return req
}

// Compute runs the text diff and the token diff of req side by side and packages them
// as one response. A panic in either becomes an error response.
func Compute(req models.Request) models.Response {
	var (
		segments []models.DiffSegment
		changes  models.ChangeSet
		g        errgroup.Group
	)
	g.Go(func() (err error) {
		defer recoverTo(&err, "text diff")
		segments = textdiff.Diff(req.TextA, req.TextB, req.Mode)
		return nil
	})
	g.Go(func() (err error) {
		defer recoverTo(&err, "token diff")
		changes = tokendiff.Diff(req.TokensA, req.TokensB)
		return nil
	})
	if err := g.Wait(); err != nil {
		return models.Response{
			Type:    models.ResponseError,
			JobID:   req.JobID,
			Message: err.Error(),
		}
	}

	return models.Response{
		Type:           models.ResponseResult,
		JobID:          req.JobID,
		TextDiff:       segments,
		RemovedIndexes: changes.Removed,
		AddedIndexes:   changes.Added,
	}
}

func recoverTo(err *error, stage string) {
	if r := recover(); r != nil {
		*err = fmt.Errorf("%s panicked: %v", stage, r)
	}
}
