package traffic

import (
	"fmt"
	"net/http"
	"runtime/debug"
)

// compiledRoute is a Route with its lookup tables built once at
// registration: the (status, mime) response dispatch table and the declared
// issue code set.
type compiledRoute struct {
	route     Route
	responses map[respKey]ResponseSpec
	issues    map[string]bool
	handler   Handler
}

// compileRoute checks the declaration and builds the dispatch tables.
func compileRoute(route Route, h Handler) (*compiledRoute, error) {
	if h == nil {
		return nil, fmt.Errorf("route %s %s: handler is required", route.Method, route.Path)
	}
	if err := route.validate(); err != nil {
		return nil, err
	}

	cr := &compiledRoute{
		route:     route,
		responses: make(map[respKey]ResponseSpec, len(route.Responses)),
		issues:    make(map[string]bool, len(route.Issues)),
	}
	for _, spec := range route.Responses {
		cr.responses[respKey{status: spec.Status, mime: spec.Mime}] = spec
	}
	for _, code := range route.Issues {
		cr.issues[code] = true
	}
	cr.handler = h
	return cr, nil
}

// serve wraps a compiled route into an http.HandlerFunc: recovery, the
// validation pipeline, handler dispatch, and the fallbacks for handlers
// that error out or finish without responding.
func (t *Traffic) serve(cr *compiledRoute) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := &Context{
			traffic: t,
			route:   cr,
			w:       w,
			r:       r,
		}

		defer func() {
			if rec := recover(); rec != nil {
				t.logger.Error("route defect",
					"method", cr.route.Method,
					"path", cr.route.Path,
					"panic", rec,
					"stack", string(debug.Stack()),
				)
				if !c.wrote {
					writeBareUnknown(w)
				}
			}
		}()

		if !t.runPipeline(c) {
			return
		}

		if err := cr.handler(r.Context(), c); err != nil {
			if issue, ok := err.(Issue); ok && !c.wrote {
				c.emitIssue(issue) //nolint:errcheck,gosec // best-effort emission
				return
			}
			t.logger.Error("handler failed",
				"method", cr.route.Method,
				"path", cr.route.Path,
				"err", err,
			)
			if !c.wrote {
				c.unknown() //nolint:errcheck,gosec // best-effort emission
			}
			return
		}

		if !c.wrote {
			t.logger.Error("handler finished without responding",
				"method", cr.route.Method,
				"path", cr.route.Path,
			)
			c.unknown() //nolint:errcheck,gosec // best-effort emission
		}
	}
}

// writeBareUnknown is the last-resort 500 used after a panic, when the
// registry itself may be the thing that blew up.
func writeBareUnknown(w http.ResponseWriter) {
	w.Header().Set("Content-Type", contentTypeFor(KindJSON))
	w.WriteHeader(http.StatusInternalServerError)
	//nolint:errcheck,gosec // best-effort after WriteHeader
	w.Write([]byte(`{"code":"/traffic/unknown","status":500,"deflected":false,"description":"internal error"}`))
}
