package traffic

import (
	"fmt"
)

// Route is the static declaration consumed by Traffic.Handle: the request
// shape to validate, the closed table of allowed response shapes, and the
// issue codes the handler may raise.
type Route struct {
	Method    string
	Path      string
	Request   RequestSpec
	Responses []ResponseSpec
	Issues    []string
}

// RequestSpec declares what an incoming request must look like.
type RequestSpec struct {
	// Mime lists the accepted request media kinds (e.g. "json"). A request
	// whose effective kind is not in the list is rejected with
	// unsupported-content-type. An empty list skips the check.
	Mime []string

	// Per-field schemas for path params, query params, and headers. Use
	// AnyString to accept a field's raw value as-is.
	Params  map[string]Schema
	Query   map[string]Schema
	Headers map[string]Schema

	// Content validates the decoded request body. Nil means the body is
	// not decoded or validated.
	Content Schema

	// Raw bypasses body decoding entirely; the handler reads the body
	// itself from Context.HTTPRequest.
	Raw bool
}

// ResponseSpec declares one allowed (status, mime) response shape.
type ResponseSpec struct {
	Status int
	Mime   string

	// Content validates the handler's payload before encoding. Nil means
	// the response carries no payload.
	Content Schema

	// Raw sends the payload unvalidated.
	Raw bool

	// Headers are set on every response emitted through this entry.
	Headers map[string]string

	// Optional marks entries the handler is not required to ever use.
	// Purely descriptive; surfaced in the route catalog.
	Optional bool
}

// respKey indexes the compiled (status, mime) response dispatch table.
type respKey struct {
	status int
	mime   string
}

// validate checks the declaration for defects that must fail at
// registration time rather than per request.
func (r Route) validate() error {
	if r.Method == "" {
		return fmt.Errorf("route %q: method is required", r.Path)
	}
	if r.Path == "" {
		return fmt.Errorf("route %s: path is required", r.Method)
	}
	seen := make(map[respKey]bool, len(r.Responses))
	for _, spec := range r.Responses {
		if spec.Status == 0 {
			return fmt.Errorf("route %s %s: response status is required", r.Method, r.Path)
		}
		if spec.Mime == "" {
			return fmt.Errorf("route %s %s: response mime is required", r.Method, r.Path)
		}
		if spec.Raw && spec.Content != nil {
			return fmt.Errorf("route %s %s: response %d/%s declares both raw and content",
				r.Method, r.Path, spec.Status, spec.Mime)
		}
		key := respKey{status: spec.Status, mime: spec.Mime}
		if seen[key] {
			return fmt.Errorf("route %s %s: duplicate response %d/%s",
				r.Method, r.Path, spec.Status, spec.Mime)
		}
		seen[key] = true
	}
	return nil
}
