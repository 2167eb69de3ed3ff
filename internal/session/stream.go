package session

import (
	"context"
	"encoding/json"
	"io"

	"visiond/pkg/types"
)

// Generate starts a run and streams its events to w as NDJSON, one
// StreamLine per event, in exactly the order the worker produced them. This
// is the single-consumer drain of the run's marshaling channel. Returns a
// synchronous error (busy, invalid image) before anything is written.
func (c *Controller) Generate(ctx context.Context, req types.GenerateRequest, w io.Writer, flush func()) error {
	run, err := c.Start(ctx, req)
	if err != nil {
		return err
	}
	return streamRun(run, w, flush)
}

// Provision starts a provisioning-only run and streams its progress to w.
func (c *Controller) Provision(ctx context.Context, w io.Writer, flush func()) error {
	run, err := c.StartProvision(ctx)
	if err != nil {
		return err
	}
	return streamRun(run, w, flush)
}

func streamRun(run *Run, w io.Writer, flush func()) error {
	enc := json.NewEncoder(w)
	writeLine := func(line types.StreamLine) error {
		if err := enc.Encode(line); err != nil {
			return err
		}
		if flush != nil {
			flush()
		}
		return nil
	}

	for ev := range run.Events() {
		var line types.StreamLine
		switch ev.Kind {
		case KindState:
			if ev.State.Terminal() {
				// Terminal state is folded into the final line below.
				continue
			}
			line = types.StreamLine{State: ev.State}
		case KindProgress:
			fp := ev.Progress.FilePercent()
			tp := ev.Progress.TotalPercent()
			line = types.StreamLine{
				File:         ev.Progress.File,
				FileStatus:   string(ev.Progress.Status),
				FilePercent:  &fp,
				TotalPercent: &tp,
			}
		case KindDelta:
			line = types.StreamLine{Delta: ev.Delta}
		}
		if err := writeLine(line); err != nil {
			// Consumer went away; stop the worker and drain so it can finish.
			run.Cancel()
			for range run.Events() {
			}
			return err
		}
	}

	final := types.StreamLine{Done: true, State: run.State(), Content: run.Text()}
	if err := run.Err(); err != nil {
		final.Error = err.Error()
	}
	return writeLine(final)
}
