package manifest

// manifestUnavailableError signals that the asset manifest itself could not
// be located or parsed. It is fatal for provisioning.
type manifestUnavailableError struct{ cause error }

func (e manifestUnavailableError) Error() string {
	return "manifest unavailable: " + e.cause.Error()
}

func (e manifestUnavailableError) Unwrap() error { return e.cause }

// IsUnavailable reports whether err indicates a missing/broken manifest.
func IsUnavailable(err error) bool {
	_, ok := err.(manifestUnavailableError)
	return ok
}
