package provision

// networkError signals a failed fetch of one asset. It is fatal for the whole
// run: inference needs the complete package, a partial set is useless.
type networkError struct {
	file  string
	cause error
}

func (e networkError) Error() string { return "fetch " + e.file + ": " + e.cause.Error() }

func (e networkError) Unwrap() error { return e.cause }

// IsNetwork reports whether err indicates a failed asset fetch.
func IsNetwork(err error) bool {
	_, ok := err.(networkError)
	return ok
}

// cancelledError signals that the run was stopped by its cancellation signal.
// Partially written files are left in place for the next run to skip-check.
type cancelledError struct{ cause error }

func (e cancelledError) Error() string { return "provisioning cancelled: " + e.cause.Error() }

func (e cancelledError) Unwrap() error { return e.cause }

// IsCancelled reports whether err indicates a cancelled provisioning run.
func IsCancelled(err error) bool {
	_, ok := err.(cancelledError)
	return ok
}
