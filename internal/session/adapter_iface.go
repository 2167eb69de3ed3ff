package session

import "context"

// InferenceAdapter abstracts the multimodal model runtime driven by a run's
// worker. Start loads the model package from its local directory and returns
// a session bound to that worker.
type InferenceAdapter interface {
	Start(modelDir string, params InferParams) (InferSession, error)
}

// InferSession is one loaded model ready to generate. It must be created,
// driven and closed on the same goroutine; the native handles behind real
// implementations are not safe to move across threads.
type InferSession interface {
	// Generate streams decoded text for the composed prompt and image bytes.
	// onToken is invoked once per decoded fragment in emission order.
	// Implementations must return promptly when ctx is canceled.
	Generate(ctx context.Context, prompt string, image []byte, onToken func(string) error) (FinalResult, error)
	// Close releases any resources associated with the session.
	Close() error
}

// InferParams captures generation parameters passed to the adapter.
type InferParams struct {
	MaxTokens     int
	Temperature   float32
	TopP          float32
	TopK          int
	Stop          []string
	Seed          int
	RepeatPenalty float32
	Threads       int
	CtxSize       int
}

// FinalResult summarizes the generation after streaming.
type FinalResult struct {
	Content      string
	FinishReason string
}
