package plantilla

import "fmt"

// TransportError means the gateway could not be reached at all.
type TransportError struct {
	URL   string
	Cause error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("plantilla: gateway unreachable (%s): %v", e.URL, e.Cause)
}

func (e *TransportError) Unwrap() error { return e.Cause }

// PayloadError means the gateway answered but the body is not usable:
// non-2xx status, invalid JSON, or missing fields.
type PayloadError struct {
	URL    string
	Status int
	Reason string
}

func (e *PayloadError) Error() string {
	return fmt.Sprintf("plantilla: malformed payload from %s (status %d): %s", e.URL, e.Status, e.Reason)
}
