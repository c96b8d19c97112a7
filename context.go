package traffic

import (
	"context"
	"net/http"
)

// Handler is the core handler signature. The framework owns parsing and
// serialization — handlers see only the validated Context and finish the
// request through Context.Respond or Context.Issue.
type Handler func(ctx context.Context, req *Context) error

// Context is the validated, per-request view handed to a Handler. It lives
// for exactly one request and is discarded after the handler returns.
type Context struct {
	// Params, Query, and Headers hold the validated values of every
	// declared field, keyed by declared name.
	Params  map[string]any
	Query   map[string]any
	Headers map[string]any

	// Content is the decoded request body tagged with its negotiated
	// kind. Zero when the route declares no body schema.
	Content Content

	traffic *Traffic
	route   *compiledRoute
	w       http.ResponseWriter
	r       *http.Request
	wrote   bool
}

// Traffic returns the owning Traffic instance.
func (c *Context) Traffic() *Traffic { return c.traffic }

// HTTPRequest exposes the underlying request, for raw routes that read the
// body themselves.
func (c *Context) HTTPRequest() *http.Request { return c.r }
