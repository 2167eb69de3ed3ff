package session

import (
	"context"
	"errors"
	"runtime"

	"visiond/internal/prompt"
	"visiond/internal/provision"
	"visiond/pkg/types"
)

// generateWorker drives one full run on a dedicated OS-locked goroutine. The
// model runtime is created, driven and torn down entirely on this thread;
// native handles must never migrate. The events channel is closed only after
// the terminal state has been emitted.
func (c *Controller) generateWorker(run *Run, pc PromptContext, params InferParams) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	defer close(run.done)
	defer close(run.events)

	if !c.ensureProvisioned(run) {
		return
	}

	run.setState(types.StateTokenizing)
	if run.ctx.Err() != nil {
		run.setState(types.StateCancelled)
		return
	}
	sess, err := c.adapter.Start(c.manifest.LocalRoot(), params)
	if err != nil {
		c.fail(run, modelLoadError{cause: err})
		return
	}
	defer func() { _ = sess.Close() }()

	composed := prompt.Compose(pc.SystemPrompt, pc.UserPrompt)
	if run.ctx.Err() != nil {
		run.setState(types.StateCancelled)
		return
	}

	run.setState(types.StateGenerating)
	onToken := func(tok string) error {
		if err := run.ctx.Err(); err != nil {
			return err
		}
		run.appendDelta(tok)
		tokensTotal.Inc()
		return nil
	}
	_, err = sess.Generate(run.ctx, composed, pc.ImageBytes, onToken)
	switch {
	case run.ctx.Err() != nil, errors.Is(err, context.Canceled):
		run.setState(types.StateCancelled)
	case err != nil:
		c.fail(run, err)
	default:
		run.setState(types.StateCompleted)
	}
}

// provisionWorker runs asset provisioning as a standalone run: the state
// machine goes Provisioning and then straight to a terminal state.
func (c *Controller) provisionWorker(run *Run) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	defer close(run.done)
	defer close(run.events)

	if !c.ensureProvisioned(run) {
		return
	}
	run.setState(types.StateCompleted)
}

// ensureProvisioned runs the asset pipeline when the package is missing.
// Returns false when the run reached a terminal state.
func (c *Controller) ensureProvisioned(run *Run) bool {
	if c.manifest.Provisioned() {
		return true
	}
	run.setState(types.StateProvisioning)
	c.publisher.Publish(Event{Name: "provision_start", RunID: run.ID()})
	err := c.prov.Ensure(run.ctx, c.manifest, run.emitProgress)
	if err == nil {
		return true
	}
	if provision.IsCancelled(err) || run.ctx.Err() != nil {
		run.setState(types.StateCancelled)
		return false
	}
	c.fail(run, err)
	return false
}

// fail records the cause, appends it beneath any partial output as a trailing
// diagnostic line, and transitions to Failed. Streamed text is never
// discarded; the reason surfaces inline.
func (c *Controller) fail(run *Run, err error) {
	run.setErr(err)
	diag := "error: " + err.Error()
	if run.Text() != "" {
		diag = "\n" + diag
	}
	run.appendDelta(diag)
	run.setState(types.StateFailed)
}
