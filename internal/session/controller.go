package session

import (
	"context"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"visiond/internal/manifest"
	"visiond/internal/prompt"
	"visiond/internal/provision"
	"visiond/pkg/types"
)

// Defaults applied when corresponding Config fields are unset.
const (
	defaultMaxTokens = 512
)

// PromptContext is the immutable per-run input: both prompt strings plus the
// raw image bytes, captured at Start.
type PromptContext struct {
	SystemPrompt string
	UserPrompt   string
	ImageBytes   []byte
}

// Config encapsulates all tunables for Controller construction.
type Config struct {
	Manifest    *manifest.Manifest
	Provisioner *provision.Provisioner
	Adapter     InferenceAdapter
	Params      InferParams
	// SystemPrompt used when a request does not carry one.
	SystemPrompt string
	Logger       zerolog.Logger
	Publisher    Publisher
}

// Controller owns the single-flight generation gate: at most one Run is
// non-terminal at any time. It spawns one dedicated worker per run and hands
// the run's ordered event stream to the caller.
type Controller struct {
	manifest     *manifest.Manifest
	prov         *provision.Provisioner
	adapter      InferenceAdapter
	params       InferParams
	systemPrompt string
	logger       zerolog.Logger
	publisher    Publisher

	mu      sync.Mutex
	run     *Run
	lastErr string

	seq       atomic.Uint64
	runsCount atomic.Uint64
	startTime time.Time
}

func NewController(cfg Config) *Controller {
	c := &Controller{
		manifest:     cfg.Manifest,
		prov:         cfg.Provisioner,
		adapter:      cfg.Adapter,
		params:       cfg.Params,
		systemPrompt: cfg.SystemPrompt,
		logger:       cfg.Logger,
		publisher:    cfg.Publisher,
		startTime:    time.Now(),
	}
	if c.systemPrompt == "" {
		c.systemPrompt = prompt.DefaultSystemPrompt
	}
	if c.publisher == nil {
		c.publisher = noopPublisher{}
	}
	if c.params.MaxTokens <= 0 {
		c.params.MaxTokens = defaultMaxTokens
	}
	return c
}

// Start begins a generation run. It fails synchronously, without spawning a
// worker, when another run is non-terminal or the image input is invalid.
// ctx bounds the whole run; Run.Cancel cancels just this run.
func (c *Controller) Start(ctx context.Context, req types.GenerateRequest) (*Run, error) {
	imgPath, err := prompt.ValidateImagePath(req.ImagePath)
	if err != nil {
		return nil, invalidImageError{path: req.ImagePath, cause: err}
	}
	img, err := os.ReadFile(imgPath)
	if err != nil {
		return nil, invalidImageError{path: imgPath, cause: err}
	}
	sys := req.SystemPrompt
	if sys == "" {
		sys = c.systemPrompt
	}
	pc := PromptContext{SystemPrompt: sys, UserPrompt: req.Prompt, ImageBytes: img}
	return c.begin(ctx, func(run *Run) {
		c.generateWorker(run, pc, c.mergeParams(req))
	})
}

// StartProvision begins a provisioning-only run through the same
// single-flight gate, so asset downloads never race a generation.
func (c *Controller) StartProvision(ctx context.Context) (*Run, error) {
	return c.begin(ctx, func(run *Run) {
		c.provisionWorker(run)
	})
}

// begin enforces single-flight, registers the run and spawns its worker plus
// the background waiter that records the outcome.
func (c *Controller) begin(ctx context.Context, work func(*Run)) (*Run, error) {
	c.mu.Lock()
	if c.run != nil && !c.run.State().Terminal() {
		c.mu.Unlock()
		return nil, busyError{}
	}
	run := newRun(ctx, fmt.Sprintf("run-%d", c.seq.Add(1)))
	c.run = run
	c.mu.Unlock()

	c.runsCount.Add(1)
	c.publisher.Publish(Event{Name: "run_start", RunID: run.ID()})
	c.logger.Info().Str("run", run.ID()).Msg("run started")

	go work(run)
	go c.awaitRun(run)
	return run, nil
}

// awaitRun watches worker completion off the consumer path.
func (c *Controller) awaitRun(run *Run) {
	<-run.Done()
	outcome := string(run.State())
	runsTotal.WithLabelValues(outcome).Inc()
	fields := map[string]any{"outcome": outcome}
	if err := run.Err(); err != nil {
		fields["error"] = err.Error()
		c.mu.Lock()
		c.lastErr = err.Error()
		c.mu.Unlock()
	}
	c.publisher.Publish(Event{Name: "run_end", RunID: run.ID(), Fields: fields})
	c.logger.Info().Str("run", run.ID()).Str("outcome", outcome).Msg("run finished")
}

// Cancel requests cancellation of the active run, if any. Idempotent and a
// no-op when no run is active or the run is already terminal.
func (c *Controller) Cancel() {
	c.mu.Lock()
	run := c.run
	c.mu.Unlock()
	if run != nil {
		run.Cancel()
	}
}

// Ready reports whether the model package is provisioned, gating /readyz.
func (c *Controller) Ready() bool { return c.manifest.Provisioned() }

// Assets reports per-asset local state for the API.
func (c *Controller) Assets() types.AssetsResponse {
	return types.AssetsResponse{Root: c.manifest.LocalRoot(), Assets: c.manifest.Statuses()}
}

// Status returns a read-only projection of the controller state.
func (c *Controller) Status() types.StatusResponse {
	c.mu.Lock()
	run := c.run
	lastErr := c.lastErr
	c.mu.Unlock()

	st := types.StatusResponse{
		State:          types.StateIdle,
		Provisioned:    c.manifest.Provisioned(),
		AssetsDir:      c.manifest.LocalRoot(),
		RunsTotal:      c.runsCount.Load(),
		LastError:      lastErr,
		UptimeSeconds:  int64(time.Since(c.startTime).Seconds()),
		ServerTimeUnix: time.Now().Unix(),
	}
	if run != nil {
		st.RunID = run.ID()
		st.State = run.State()
	}
	return st
}

// mergeParams overlays per-request generation parameters onto the defaults.
func (c *Controller) mergeParams(req types.GenerateRequest) InferParams {
	p := c.params
	if req.MaxTokens > 0 {
		p.MaxTokens = req.MaxTokens
	}
	if req.Temperature > 0 {
		p.Temperature = float32(req.Temperature)
	}
	if req.TopP > 0 {
		p.TopP = float32(req.TopP)
	}
	if req.TopK > 0 {
		p.TopK = req.TopK
	}
	if len(req.Stop) > 0 {
		p.Stop = append([]string(nil), req.Stop...)
	}
	if req.Seed != 0 {
		p.Seed = req.Seed
	}
	if req.RepeatPenalty > 0 {
		p.RepeatPenalty = float32(req.RepeatPenalty)
	}
	return p
}
