package httpclient

import "fmt"

// TransportError reports a failed round trip: the request could not be sent,
// the server answered with an HTTP error status, or the body was not JSON.
// It is fatal to the single call only.
type TransportError struct {
	URL    string // token query value masked
	Status int    // HTTP status, 0 when no response was received
	Err    error
}

func (e *TransportError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("transport: %s returned %d: %v", e.URL, e.Status, e.Err)
	}
	return fmt.Sprintf("transport: %s: %v", e.URL, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}
