package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/jupark12/pdf-diff/coordinator"
	"github.com/jupark12/pdf-diff/extract"
	"github.com/jupark12/pdf-diff/highlight"
	"github.com/jupark12/pdf-diff/models"
	"github.com/jupark12/pdf-diff/worker"
)

type compareOutput struct {
	Outcome    string               `json:"outcome"`
	Mode       string               `json:"mode,omitempty"`
	Advisory   string               `json:"advisory,omitempty"`
	TextDiff   []models.DiffSegment `json:"textDiff,omitempty"`
	Changes    *models.ChangeSet    `json:"changes,omitempty"`
	Stats      *models.WordStats    `json:"stats,omitempty"`
	Highlights *highlightsOutput    `json:"highlights,omitempty"`
	Error      *compareErrorOutput  `json:"error,omitempty"`
}

type highlightsOutput struct {
	Scale    float64                 `json:"scale"`
	Baseline [][]highlight.Highlight `json:"baseline"`
	Revised  [][]highlight.Highlight `json:"revised"`
}

type compareErrorOutput struct {
	Kind      string `json:"kind"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable"`
}

// compare runs one comparison of two PDF files and writes the outcome as JSON to out.
// It returns the process exit code.
func compare(args []string, out io.Writer) int {
	fs := flag.NewFlagSet("compare", flag.ContinueOnError)
	scale := fs.Float64("scale", 1, "viewport scale for highlight rectangles")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 2 || *scale <= 0 {
		fmt.Fprintln(fs.Output(), "usage: compare [-scale s] baseline.pdf revised.pdf")
		return 2
	}
	return runCompare(extract.New(nil), fs.Arg(0), fs.Arg(1), *scale, out)
}

func runCompare(extractor coordinator.Extractor, baseline, revised string, scale float64, out io.Writer) int {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events := make(chan coordinator.Event, 16)
	var c *coordinator.Coordinator
	w := worker.NewWorker("cli", func(resp models.Response) { c.Deliver(resp) })
	c = coordinator.New(extractor, w, nil, func(e coordinator.Event) {
		if e.Type != coordinator.EventStatus {
			events <- e
		}
	})
	defer c.Close()
	w.Start(ctx)

	c.Compare(coordinator.Inputs{
		Baseline: coordinator.Document{ID: filepath.Base(baseline), Path: baseline},
		Revised:  coordinator.Document{ID: filepath.Base(revised), Path: revised},
	})
	e := <-events

	var res compareOutput
	code := 0
	if e.Err != nil {
		res = compareOutput{
			Outcome: "error",
			Error: &compareErrorOutput{
				Kind:      models.ErrorKind(e.Err),
				Message:   e.Err.Error(),
				Retryable: models.Retryable(e.Err),
			},
		}
		code = 1
	} else {
		r := e.Result
		res = compareOutput{
			Outcome:  "result",
			Mode:     r.Mode.String(),
			Advisory: r.Advisory,
			TextDiff: r.TextDiff,
			Changes:  &r.Changes,
			Stats:    &r.Stats,
			Highlights: &highlightsOutput{
				Scale:    scale,
				Baseline: highlight.Document(r.Baseline, r.Changes, highlight.Baseline, scale),
				Revised:  highlight.Document(r.Revised, r.Changes, highlight.Revised, scale),
			},
		}
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(res); err != nil {
		fmt.Fprintf(os.Stderr, "failed to write output: %v\n", err)
		return 1
	}
	return code
}
