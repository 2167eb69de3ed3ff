package session

import (
	"context"
	"strings"
	"sync"

	"visiond/internal/provision"
	"visiond/pkg/types"
)

// RunEventKind discriminates the entries of a run's stream.
type RunEventKind int

const (
	// KindState marks a state machine transition.
	KindState RunEventKind = iota
	// KindProgress carries a provisioning progress update.
	KindProgress
	// KindDelta carries one incremental text fragment.
	KindDelta
)

// RunEvent is one entry of the single-consumer marshaling channel. Events are
// delivered in exactly the order the worker produced them.
type RunEvent struct {
	Kind     RunEventKind
	State    types.GenerationState
	Progress provision.Progress
	Delta    string
}

// Run is one generation unit of work. It is created by Controller.Start,
// mutated only by its dedicated worker goroutine, and observed by a single
// consumer through Events.
type Run struct {
	id     string
	ctx    context.Context
	cancel context.CancelFunc

	mu    sync.Mutex
	state types.GenerationState
	text  strings.Builder
	err   error

	// Buffered so the worker rarely blocks on a healthy consumer; ordering
	// is guaranteed by the single producing goroutine.
	events chan RunEvent
	done   chan struct{}
}

func newRun(parent context.Context, id string) *Run {
	ctx, cancel := context.WithCancel(parent)
	return &Run{
		id:     id,
		ctx:    ctx,
		cancel: cancel,
		state:  types.StateIdle,
		events: make(chan RunEvent, 256),
		done:   make(chan struct{}),
	}
}

// ID returns the run identifier.
func (r *Run) ID() string { return r.id }

// State returns the current state machine state.
func (r *Run) State() types.GenerationState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Text returns the accumulated generated text so far. Append-only while the
// run is generating; stable once the run is terminal.
func (r *Run) Text() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.text.String()
}

// Err returns the failure cause for a Failed run, nil otherwise.
func (r *Run) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}

// Cancel requests cooperative cancellation. Idempotent; a no-op once the run
// is terminal.
func (r *Run) Cancel() { r.cancel() }

// Events returns the ordered single-consumer event stream. The channel is
// closed after the terminal state event has been delivered.
func (r *Run) Events() <-chan RunEvent { return r.events }

// Done is closed once the worker has fully terminated.
func (r *Run) Done() <-chan struct{} { return r.done }

// worker-side helpers; must only be called from the run's worker goroutine.

func (r *Run) setState(s types.GenerationState) {
	r.mu.Lock()
	r.state = s
	r.mu.Unlock()
	r.events <- RunEvent{Kind: KindState, State: s}
}

func (r *Run) appendDelta(delta string) {
	r.mu.Lock()
	r.text.WriteString(delta)
	r.mu.Unlock()
	r.events <- RunEvent{Kind: KindDelta, Delta: delta}
}

func (r *Run) emitProgress(p provision.Progress) {
	r.events <- RunEvent{Kind: KindProgress, Progress: p}
}

func (r *Run) setErr(err error) {
	r.mu.Lock()
	r.err = err
	r.mu.Unlock()
}
