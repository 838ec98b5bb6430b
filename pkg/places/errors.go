package places

import "fmt"

// TransportError wraps network-level failures: connection refused, DNS,
// timeouts, canceled contexts. The request may never have reached the API.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("places: transport: %v", e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// UpstreamError is a non-2xx response from the API. Body carries the raw
// response for diagnostics.
type UpstreamError struct {
	StatusCode int
	Body       string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("places: api error %d: %s", e.StatusCode, e.Body)
}

// DecodeError is a response body that could not be parsed into the
// expected schema. Preview holds a truncated copy of the body.
type DecodeError struct {
	Err     error
	Preview string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("places: decode response: %v (body: %s)", e.Err, e.Preview)
}

func (e *DecodeError) Unwrap() error { return e.Err }
