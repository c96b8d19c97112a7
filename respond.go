package traffic

import (
	"errors"
	"net/http"
	"strings"
)

// Respond emits a response through one of the route's declared (status,
// mime) entries. Payloads for non-raw entries are validated against the
// declared schema first; a payload that violates its own contract is never
// sent — the defect is logged and the client receives the unknown issue.
// Extra headers passed at the call site are merged over the entry's
// declared headers.
func (c *Context) Respond(status int, mime string, data any, headers ...map[string]string) error {
	t := c.traffic
	if c.wrote {
		return errResponded
	}

	spec, ok := c.route.responses[respKey{status: status, mime: mime}]
	if !ok {
		t.logger.Error("response shape not declared on route",
			"method", c.route.route.Method,
			"path", c.route.route.Path,
			"status", status,
			"mime", mime,
		)
		return c.unknown()
	}

	payload := data
	if !spec.Raw && spec.Content != nil {
		validated, err := spec.Content.Parse(data)
		if err != nil {
			t.logger.Error("response payload violates declared schema",
				"method", c.route.route.Method,
				"path", c.route.route.Path,
				"status", status,
				"mime", mime,
				"err", err,
			)
			return c.unknown()
		}
		payload = validated
	}

	var body []byte
	if payload != nil {
		switch raw := payload.(type) {
		case []byte:
			body = raw
		default:
			encoded, ok, err := Encode(payload, mime)
			if !ok {
				err = ErrUnsupported
			}
			if err != nil {
				t.logger.Error("response payload could not be encoded",
					"method", c.route.route.Method,
					"path", c.route.route.Path,
					"mime", mime,
					"err", err,
				)
				return c.unknown()
			}
			body = encoded
		}
	}

	h := c.w.Header()
	for k, v := range spec.Headers {
		h.Set(k, v)
	}
	for _, m := range headers {
		for k, v := range m {
			h.Set(k, v)
		}
	}
	if len(body) > 0 && h.Get("Content-Type") == "" {
		h.Set("Content-Type", contentTypeFor(mime))
	}

	c.wrote = true
	c.w.WriteHeader(status)
	if len(body) == 0 {
		return nil
	}
	_, err := c.w.Write(body)
	return err
}

// Issue instantiates and emits one of the route's declared issue codes.
// Raising a code the route did not declare is a declaration defect: it is
// logged and the client receives the unknown issue instead.
func (c *Context) Issue(code string, args ...any) error {
	t := c.traffic
	if !c.route.issues[code] {
		t.logger.Error("issue code not declared on route",
			"method", c.route.route.Method,
			"path", c.route.route.Path,
			"code", code,
		)
		return c.unknown()
	}
	return c.emitIssue(t.registry.Instantiate(code, args...))
}

// unknown emits the built-in /traffic/unknown issue.
func (c *Context) unknown() error {
	return c.emitIssue(c.traffic.registry.Instantiate(CodeUnknown))
}

// emitIssue serializes the issue in the format requested by the Accept
// header (falling back to the configured default) and writes it with the
// issue's status and headers. Serialization failures degrade to an empty
// body — the status always reaches the client.
func (c *Context) emitIssue(issue Issue) error {
	t := c.traffic
	if c.wrote {
		return errResponded
	}

	kind := acceptKind(c.r, t.defaultFormat)
	body, ok, err := Encode(issue, kind)
	if (!ok || err != nil) && kind != t.defaultFormat {
		kind = t.defaultFormat
		body, ok, err = Encode(issue, kind)
	}
	if !ok || err != nil {
		if err == nil {
			err = ErrUnsupported
		}
		t.logger.Error("issue payload could not be serialized",
			"code", issue.Code,
			"format", kind,
			"err", err,
		)
		body = nil
	}

	h := c.w.Header()
	for k, v := range issue.Headers {
		h.Set(k, v)
	}
	if len(body) > 0 {
		h.Set("Content-Type", contentTypeFor(kind))
	}

	c.wrote = true
	c.w.WriteHeader(issue.Status)
	if len(body) == 0 {
		return nil
	}
	_, werr := c.w.Write(body)
	return werr
}

// acceptKind resolves the client's requested serialization format from the
// Accept header, using only the suffix-or-subtype component as the codec
// key. Absent, wildcard, or unparseable values fall back to the default.
func acceptKind(r *http.Request, fallback string) string {
	accept := r.Header.Get("Accept")
	if accept == "" {
		return fallback
	}
	if first, _, found := strings.Cut(accept, ","); found {
		accept = first
	}
	mt, err := ParseMediaType(accept)
	if err != nil || mt.Media == "*" || mt.Subtype == "*" {
		return fallback
	}
	return mt.Kind()
}

// errResponded reports a second attempt to finish the same request.
var errResponded = errors.New("traffic: response already written")
