package session

// busyError signals the single-flight gate: a run is already non-terminal.
type busyError struct{}

func (busyError) Error() string { return "a generation run is already active" }

// ErrBusy constructs a busyError.
func ErrBusy() error { return busyError{} }

// IsBusy reports whether err indicates single-flight rejection (maps to 429).
func IsBusy(err error) bool {
	_, ok := err.(busyError)
	return ok
}

// invalidImageError signals a missing or unusable image input; the run is
// never started.
type invalidImageError struct {
	path  string
	cause error
}

func (e invalidImageError) Error() string { return "invalid image " + e.path + ": " + e.cause.Error() }

func (e invalidImageError) Unwrap() error { return e.cause }

// ErrInvalidImage constructs an invalidImageError.
func ErrInvalidImage(path string, cause error) error {
	return invalidImageError{path: path, cause: cause}
}

// IsInvalidImage reports whether err indicates a rejected image input.
func IsInvalidImage(err error) bool {
	_, ok := err.(invalidImageError)
	return ok
}

// modelLoadError wraps a failure to load the model package into the runtime.
type modelLoadError struct{ cause error }

func (e modelLoadError) Error() string { return "load model: " + e.cause.Error() }

func (e modelLoadError) Unwrap() error { return e.cause }

// IsModelLoad reports whether err came from model/processor loading.
func IsModelLoad(err error) bool {
	_, ok := err.(modelLoadError)
	return ok
}

// dependencyUnavailableError signals a missing runtime dependency (e.g., the
// vision CLI binary or a tag-gated adapter).
type dependencyUnavailableError struct{ msg string }

func (e dependencyUnavailableError) Error() string { return e.msg }

// ErrDependencyUnavailable constructs a dependencyUnavailableError.
func ErrDependencyUnavailable(msg string) error { return dependencyUnavailableError{msg: msg} }

// IsDependencyUnavailable reports whether err indicates a missing runtime dependency.
func IsDependencyUnavailable(err error) bool {
	_, ok := err.(dependencyUnavailableError)
	return ok
}
