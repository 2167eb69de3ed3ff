package types

// GenerationState is the lifecycle state of a generation run.
type GenerationState string

const (
	StateIdle         GenerationState = "idle"
	StateProvisioning GenerationState = "provisioning"
	StateTokenizing   GenerationState = "tokenizing"
	StateGenerating   GenerationState = "generating"
	StateCompleted    GenerationState = "completed"
	StateCancelled    GenerationState = "cancelled"
	StateFailed       GenerationState = "failed"
)

// Terminal reports whether s is a terminal run state.
func (s GenerationState) Terminal() bool {
	switch s {
	case StateCompleted, StateCancelled, StateFailed:
		return true
	}
	return false
}

// Asset describes one file of the model package.
type Asset struct {
	// Local file name, last path segment of the source URL.
	// example: tokenizer_config.json
	Name string `json:"name" example:"tokenizer_config.json"`
	// Remote source URL the asset is fetched from.
	URL string `json:"url"`
	// Absolute local path the asset resolves to.
	Path string `json:"path"`
}

// AssetStatus is the on-disk state of one asset for GET /assets.
type AssetStatus struct {
	Asset
	// Whether the file exists locally with size > 0.
	// example: true
	Present bool `json:"present" example:"true"`
	// Local file size in bytes, 0 when absent.
	// example: 499723
	SizeBytes int64 `json:"size_bytes" example:"499723"`
}
