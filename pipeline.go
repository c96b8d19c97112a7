package traffic

import (
	"encoding/json"
	"errors"
	"net/http"
	"slices"
	"sort"
)

// runPipeline validates the request in fixed stage order: params, query,
// headers, content-type compatibility, body. The first failing stage writes
// the corresponding issue response and aborts the rest; the handler only
// runs when every stage passed. Returns false on short-circuit.
func (t *Traffic) runPipeline(c *Context) bool {
	req := c.route.route.Request

	params, serr := validateFields(req.Params, c.r.PathValue)
	if serr != nil {
		c.emitIssue(t.registry.Instantiate(CodeInvalidParams, serr))
		return false
	}
	c.Params = params

	query := c.r.URL.Query()
	queryVals, serr := validateFields(req.Query, query.Get)
	if serr != nil {
		c.emitIssue(t.registry.Instantiate(CodeInvalidQuery, serr))
		return false
	}
	c.Query = queryVals

	// Header values come from the HTTP header map. The reference behavior
	// read them from the query string instead; see DESIGN.md.
	headers, serr := validateFields(req.Headers, c.r.Header.Get)
	if serr != nil {
		c.emitIssue(t.registry.Instantiate(CodeInvalidHeaders, serr))
		return false
	}
	c.Headers = headers

	kind := requestKind(c.r)
	if len(req.Mime) > 0 && !slices.Contains(req.Mime, kind) {
		c.writeUnsupportedContentType(req.Mime)
		return false
	}

	if req.Content == nil || req.Raw {
		return true
	}

	data, ok, err := Decode(c.r, kind)
	if !ok {
		c.emitIssue(t.registry.Instantiate(CodeUnsupportedContent))
		return false
	}
	if err != nil {
		c.emitIssue(t.registry.Instantiate(CodeInvalidContent,
			FieldIssue{Path: "content", Message: err.Error()}))
		return false
	}

	validated, err := req.Content.Parse(data)
	if err != nil {
		var serr *SchemaError
		if !errors.As(err, &serr) {
			serr = &SchemaError{Issues: []FieldIssue{{Path: "content", Message: err.Error()}}}
		}
		c.emitIssue(t.registry.Instantiate(CodeInvalidContent, serr))
		return false
	}
	c.Content = Content{Type: kind, Data: validated}

	return true
}

// validateFields runs every declared field of one stage through its schema,
// reading raw values with get. All failures of the stage are aggregated so
// the issue payload carries the complete list. Fields are visited in name
// order so the first reported failure is deterministic.
func validateFields(decl map[string]Schema, get func(string) string) (map[string]any, *SchemaError) {
	if len(decl) == 0 {
		return map[string]any{}, nil
	}

	names := make([]string, 0, len(decl))
	for name := range decl {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make(map[string]any, len(decl))
	var issues []FieldIssue
	for _, name := range names {
		raw := get(name)
		schema := decl[name]
		if schema == AnyString {
			out[name] = raw
			continue
		}
		parsed, err := schema.Parse(raw)
		if err != nil {
			var serr *SchemaError
			if errors.As(err, &serr) {
				issues = append(issues, prefixIssues(name, serr)...)
			} else {
				issues = append(issues, FieldIssue{Path: name, Message: err.Error(), Value: raw})
			}
			continue
		}
		out[name] = parsed
	}
	if len(issues) > 0 {
		return nil, &SchemaError{Issues: issues}
	}
	return out, nil
}

// requestKind computes the effective media kind of the request body:
// the Kind of the Content-Type header, or "octet-stream" when the header
// is absent or malformed.
func requestKind(r *http.Request) string {
	ct := r.Header.Get("Content-Type")
	if ct == "" {
		return kindOctetStream
	}
	mt, err := ParseMediaType(ct)
	if err != nil {
		return kindOctetStream
	}
	return mt.Kind()
}

// writeUnsupportedContentType hand-builds a minimal JSON body for the
// unsupported-content-type issue instead of going through Accept
// negotiation: the client's Content-Type is already known to be unusable,
// so the response sticks to the default wire format.
func (c *Context) writeUnsupportedContentType(supported []string) {
	issue := c.traffic.registry.Instantiate(CodeUnsupportedContentType, supported)
	body, err := json.Marshal(issue)
	if err != nil {
		body = nil
	}
	h := c.w.Header()
	for k, v := range issue.Headers {
		h.Set(k, v)
	}
	if len(body) > 0 {
		h.Set("Content-Type", contentTypeFor(KindJSON))
	}
	c.wrote = true
	c.w.WriteHeader(issue.Status)
	c.w.Write(body) //nolint:errcheck,gosec // best-effort after WriteHeader
}
