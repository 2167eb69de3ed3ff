package types

// GenerateRequest is the payload for POST /generate.
type GenerateRequest struct {
	// Optional system prompt; the server default is used when empty.
	// example: You are a helpful assistant.
	SystemPrompt string `json:"system_prompt,omitempty" example:"You are a helpful assistant."`
	// Required user prompt text.
	// example: Describe this image.
	Prompt string `json:"prompt" example:"Describe this image."`
	// Required path to a local image file. Surrounding quotes and whitespace
	// are stripped before validation.
	// example: /home/user/Pictures/cat.jpg
	ImagePath string `json:"image_path" example:"/home/user/Pictures/cat.jpg"`
	// Maximum number of new tokens to generate.
	// example: 512
	MaxTokens int `json:"max_tokens,omitempty" example:"512"`
	// Sampling temperature (higher = more random).
	// example: 0.7
	Temperature float64 `json:"temperature,omitempty" example:"0.7"`
	// Nucleus sampling probability.
	// example: 0.9
	TopP float64 `json:"top_p,omitempty" example:"0.9"`
	// Top-K sampling: limit candidates to top K tokens.
	// example: 40
	TopK int `json:"top_k,omitempty" example:"40"`
	// Optional stop sequences.
	Stop []string `json:"stop,omitempty"`
	// Random seed for reproducibility; 0 lets the runtime choose.
	// example: 42
	Seed int `json:"seed,omitempty" example:"42"`
	// Repeat penalty applied by llama-style runtimes.
	// example: 1.1
	RepeatPenalty float64 `json:"repeat_penalty,omitempty" example:"1.1"`
}

// PercentUnknown is reported when a percentage cannot be computed because the
// total size is unknown.
const PercentUnknown = float64(-1)

// StreamLine is one NDJSON line of a /generate or /provision stream.
// Exactly one of the optional groups is populated per line:
// state change, download progress, text delta, or the terminal line.
type StreamLine struct {
	// Run state at the time of emission.
	// example: generating
	State GenerationState `json:"state,omitempty" example:"generating"`
	// Asset file name a progress line refers to.
	// example: model.onnx.data
	File string `json:"file,omitempty" example:"model.onnx.data"`
	// Provisioning status of File (pending, downloading, skipped, completed).
	// example: downloading
	FileStatus string `json:"file_status,omitempty" example:"downloading"`
	// Per-file completion percentage, -1 when unknown.
	FilePercent *float64 `json:"file_percent,omitempty"`
	// Aggregate completion percentage, -1 when unknown.
	TotalPercent *float64 `json:"total_percent,omitempty"`
	// Incremental decoded text.
	Delta string `json:"delta,omitempty"`
	// Set on the final line of a stream.
	Done bool `json:"done,omitempty"`
	// Full accumulated text, set on the final line of a generate stream.
	Content string `json:"content,omitempty"`
	// Failure reason, set on the final line when the run failed.
	Error string `json:"error,omitempty"`
}

// StatusResponse is returned by GET /status.
type StatusResponse struct {
	// Current run state; idle when no run is active.
	// example: idle
	State GenerationState `json:"state" example:"idle"`
	// Identifier of the active or most recent run.
	// example: run-3
	RunID string `json:"run_id,omitempty" example:"run-3"`
	// Whether the model package is fully provisioned on disk.
	// example: true
	Provisioned bool `json:"provisioned" example:"true"`
	// Local root directory holding the model package.
	// example: /home/user/.config/visiond/model
	AssetsDir string `json:"assets_dir" example:"/home/user/.config/visiond/model"`
	// Total generation runs started since boot.
	// example: 12
	RunsTotal uint64 `json:"runs_total" example:"12"`
	// Last error observed by the controller (if any).
	LastError string `json:"last_error,omitempty"`
	// Uptime of the server in seconds.
	// example: 3600
	UptimeSeconds int64 `json:"uptime_seconds" example:"3600"`
	// Server time in unix seconds.
	// example: 1700000000
	ServerTimeUnix int64 `json:"server_time_unix" example:"1700000000"`
}

// AssetsResponse wraps the asset listing returned by GET /assets.
type AssetsResponse struct {
	// Local root directory the assets resolve into.
	Root string `json:"root"`
	// Per-asset presence and size.
	Assets []AssetStatus `json:"assets"`
}

// ErrorResponse is a consistent JSON error payload.
type ErrorResponse struct {
	// Error message.
	// example: invalid JSON body
	Error string `json:"error" example:"invalid JSON body"`
	// HTTP status code.
	// example: 400
	Code int `json:"code" example:"400"`
}
