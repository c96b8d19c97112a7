// Package traffic is a request-validation and content-negotiation layer for
// Go HTTP APIs. Routes are declared as data — per-field schemas for path
// params, query params, and headers, an allowed set of request media kinds,
// and a closed table of (status, mime) response shapes — and the framework
// drives the whole request lifecycle from that declaration: it validates the
// incoming request stage by stage, negotiates and decodes the body, invokes
// the handler with a fully validated Context, and checks the handler's
// response against its declared shape on the way out.
//
// Failures are expressed as issues: typed, serializable error payloads keyed
// by a registry code such as "/traffic/request/invalid-query". Every issue
// carries an HTTP status and a deflected flag telling the client whether the
// fault was in its input (deflected=true) or on the server side.
//
//	t := traffic.New()
//	t.MustHandle(traffic.Route{
//	    Method: http.MethodGet,
//	    Path:   "/articles/{id}",
//	    Request: traffic.RequestSpec{
//	        Mime:   []string{traffic.KindJSON},
//	        Params: map[string]traffic.Schema{"id": traffic.Number()},
//	    },
//	    Responses: []traffic.ResponseSpec{
//	        {Status: http.StatusOK, Mime: traffic.KindJSON, Content: articleSchema},
//	    },
//	    Issues: []string{traffic.CodeUnknown},
//	}, func(ctx context.Context, req *traffic.Context) error {
//	    return req.Respond(http.StatusOK, traffic.KindJSON, lookup(req.Params["id"]))
//	})
//
// Handlers never see http.ResponseWriter; they finish a request either
// through Context.Respond, which only accepts declared (status, mime) pairs,
// or through Context.Issue, which is restricted to the route's declared
// issue codes. A response payload that violates its own declared schema is
// never sent — the client receives a 500 "/traffic/unknown" issue instead.
//
// Middleware uses the standard func(http.Handler) http.Handler signature,
// so the entire Go middleware ecosystem works natively.
package traffic
