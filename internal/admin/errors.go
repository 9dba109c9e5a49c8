package admin

import (
	"fmt"
	"strings"

	"github.com/arcpy/AdministeringArcGISServerwithPython-DS2014/internal/httpclient"
)

// TransportError is returned when the dispatcher could not complete a round trip.
type TransportError = httpclient.TransportError

// AuthenticationError reports a failed token acquisition or renewal. Once it is
// returned by an operation, no further authenticated call on the session can succeed
// until the credentials problem is fixed.
type AuthenticationError struct {
	Messages []string // server-reported messages, if any
	Err      error    // underlying transport error, if any
}

func (e *AuthenticationError) Error() string {
	switch {
	case len(e.Messages) > 0:
		return "authentication failed: " + strings.Join(e.Messages, "; ")
	case e.Err != nil:
		return fmt.Sprintf("authentication failed: %v", e.Err)
	default:
		return "authentication failed: no token returned"
	}
}

func (e *AuthenticationError) Unwrap() error {
	return e.Err
}

// BusinessError reports a well-formed response in which the server rejected the
// request, or one that lacked the keys the operation expects.
type BusinessError struct {
	Operation string
	Messages  []string
	Raw       any
}

func (e *BusinessError) Error() string {
	if len(e.Messages) == 0 {
		return fmt.Sprintf("%s: unsuccessful response", e.Operation)
	}
	return fmt.Sprintf("%s: %s", e.Operation, strings.Join(e.Messages, "; "))
}
