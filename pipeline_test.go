package traffic_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trafficgo/traffic"
	"github.com/trafficgo/traffic/traffictest"
)

// okSchema matches the {"name": string} payload used across these tests.
func okSchema() traffic.Schema {
	return traffic.Object(map[string]traffic.Schema{
		"name": traffic.String(),
	}).Require("name")
}

func okResponse() []traffic.ResponseSpec {
	return []traffic.ResponseSpec{
		{Status: http.StatusOK, Mime: traffic.KindJSON, Content: okSchema()},
	}
}

func respondOK(_ context.Context, req *traffic.Context) error {
	return req.Respond(http.StatusOK, traffic.KindJSON, map[string]any{"name": "a"})
}

func TestPipeline_invalid_params(t *testing.T) {
	t.Parallel()

	handled := false
	tr := traffic.New()
	tr.MustHandle(traffic.Route{
		Method: http.MethodGet,
		Path:   "/articles/{id}",
		Request: traffic.RequestSpec{
			Params: map[string]traffic.Schema{"id": traffic.Number()},
		},
		Responses: okResponse(),
	}, func(ctx context.Context, req *traffic.Context) error {
		handled = true
		return respondOK(ctx, req)
	})

	c := traffictest.NewClient(t, tr)
	resp := c.Do(t, http.MethodGet, "/articles/abc", nil, nil)

	assert.Equal(t, http.StatusBadRequest, resp.Status)
	issue := traffictest.DecodeIssue(t, resp)
	assert.Equal(t, traffic.CodeInvalidParams, issue.Code)
	assert.True(t, issue.Deflected)
	assert.Equal(t, "expected number, received string", issue.Description)
	assert.False(t, handled, "handler must not run after a short-circuit")
}

func TestPipeline_valid_params_reach_handler(t *testing.T) {
	t.Parallel()

	tr := traffic.New()
	tr.MustHandle(traffic.Route{
		Method: http.MethodGet,
		Path:   "/articles/{id}",
		Request: traffic.RequestSpec{
			Params: map[string]traffic.Schema{
				"id": traffic.Number(),
			},
			Query: map[string]traffic.Schema{
				"order": traffic.String().Enum("asc", "desc"),
				"tag":   traffic.AnyString,
			},
		},
		Responses: okResponse(),
	}, func(ctx context.Context, req *traffic.Context) error {
		assert.Equal(t, float64(42), req.Params["id"])
		assert.Equal(t, "desc", req.Query["order"])
		assert.Equal(t, "go", req.Query["tag"])
		return respondOK(ctx, req)
	})

	c := traffictest.NewClient(t, tr)
	resp := c.Do(t, http.MethodGet, "/articles/42?order=desc&tag=go", nil, nil)

	assert.Equal(t, http.StatusOK, resp.Status)
	assert.JSONEq(t, `{"name":"a"}`, string(resp.Body))
}

func TestPipeline_invalid_query(t *testing.T) {
	t.Parallel()

	tr := traffic.New()
	tr.MustHandle(traffic.Route{
		Method: http.MethodGet,
		Path:   "/articles",
		Request: traffic.RequestSpec{
			Query: map[string]traffic.Schema{"page": traffic.Number().Min(1)},
		},
		Responses: okResponse(),
	}, respondOK)

	c := traffictest.NewClient(t, tr)
	resp := c.Do(t, http.MethodGet, "/articles?page=zero", nil, nil)

	assert.Equal(t, http.StatusBadRequest, resp.Status)
	issue := traffictest.DecodeIssue(t, resp)
	assert.Equal(t, traffic.CodeInvalidQuery, issue.Code)
	assert.True(t, issue.Deflected)
}

// Header schemas validate values from the HTTP header map, not the query
// string. This pins the choice documented in DESIGN.md.
func TestPipeline_headers_read_from_header_map(t *testing.T) {
	t.Parallel()

	tr := traffic.New()
	tr.MustHandle(traffic.Route{
		Method: http.MethodGet,
		Path:   "/secure",
		Request: traffic.RequestSpec{
			Headers: map[string]traffic.Schema{"X-Token": traffic.String().Min(8)},
		},
		Responses: okResponse(),
	}, func(ctx context.Context, req *traffic.Context) error {
		assert.Equal(t, "secrettoken", req.Headers["X-Token"])
		return respondOK(ctx, req)
	})

	c := traffictest.NewClient(t, tr)

	// Value only in the query string: the header map is empty, so the
	// stage fails.
	resp := c.Do(t, http.MethodGet, "/secure?X-Token=secrettoken", nil, nil)
	assert.Equal(t, http.StatusBadRequest, resp.Status)
	issue := traffictest.DecodeIssue(t, resp)
	assert.Equal(t, traffic.CodeInvalidHeaders, issue.Code)
	assert.True(t, issue.Deflected)

	// Value in the actual header passes.
	resp = c.Do(t, http.MethodGet, "/secure", nil, map[string]string{"X-Token": "secrettoken"})
	assert.Equal(t, http.StatusOK, resp.Status)
}

func TestPipeline_unsupported_content_type(t *testing.T) {
	t.Parallel()

	tr := traffic.New()
	tr.MustHandle(traffic.Route{
		Method: http.MethodPost,
		Path:   "/articles",
		Request: traffic.RequestSpec{
			Mime:    []string{traffic.KindJSON},
			Content: okSchema(),
		},
		Responses: okResponse(),
	}, respondOK)

	c := traffictest.NewClient(t, tr)

	resp := c.Do(t, http.MethodPost, "/articles", []byte("name=a"),
		map[string]string{"Content-Type": "text/plain"})
	assert.Equal(t, http.StatusBadRequest, resp.Status)
	issue := traffictest.DecodeIssue(t, resp)
	assert.Equal(t, traffic.CodeUnsupportedContentType, issue.Code)
	assert.True(t, issue.Deflected)
	assert.Equal(t, []string{"json"}, issue.Supported)

	// No Content-Type at all resolves to octet-stream and is rejected the
	// same way.
	resp = c.Do(t, http.MethodPost, "/articles", []byte(`{}`), nil)
	assert.Equal(t, http.StatusBadRequest, resp.Status)
	issue = traffictest.DecodeIssue(t, resp)
	assert.Equal(t, traffic.CodeUnsupportedContentType, issue.Code)
}

// The mime check runs even when the route declares no body schema.
func TestPipeline_unsupported_content_type_without_body_schema(t *testing.T) {
	t.Parallel()

	tr := traffic.New()
	tr.MustHandle(traffic.Route{
		Method: http.MethodPost,
		Path:   "/ping",
		Request: traffic.RequestSpec{
			Mime: []string{traffic.KindJSON},
		},
		Responses: okResponse(),
	}, respondOK)

	c := traffictest.NewClient(t, tr)
	resp := c.Do(t, http.MethodPost, "/ping", []byte("hi"),
		map[string]string{"Content-Type": "text/plain"})

	assert.Equal(t, http.StatusBadRequest, resp.Status)
	issue := traffictest.DecodeIssue(t, resp)
	assert.Equal(t, traffic.CodeUnsupportedContentType, issue.Code)
	assert.Equal(t, []string{"json"}, issue.Supported)
}

func TestPipeline_unsupported_content(t *testing.T) {
	t.Parallel()

	// octet-stream is an accepted kind here but has no decoder, so the
	// body stage reports unsupported-content (a server-side limitation,
	// not a client fault).
	tr := traffic.New()
	tr.MustHandle(traffic.Route{
		Method: http.MethodPost,
		Path:   "/blob",
		Request: traffic.RequestSpec{
			Mime:    []string{"octet-stream"},
			Content: okSchema(),
		},
		Responses: okResponse(),
	}, respondOK)

	c := traffictest.NewClient(t, tr)
	resp := c.Do(t, http.MethodPost, "/blob", []byte{0x1}, nil)

	assert.Equal(t, http.StatusBadRequest, resp.Status)
	issue := traffictest.DecodeIssue(t, resp)
	assert.Equal(t, traffic.CodeUnsupportedContent, issue.Code)
	assert.False(t, issue.Deflected)
}

func TestPipeline_invalid_content(t *testing.T) {
	t.Parallel()

	tr := traffic.New()
	tr.MustHandle(traffic.Route{
		Method: http.MethodPost,
		Path:   "/articles",
		Request: traffic.RequestSpec{
			Mime:    []string{traffic.KindJSON},
			Content: okSchema(),
		},
		Responses: okResponse(),
	}, respondOK)

	c := traffictest.NewClient(t, tr)

	resp := c.PostJSON(t, "/articles", map[string]any{"name": 42})
	assert.Equal(t, http.StatusBadRequest, resp.Status)
	issue := traffictest.DecodeIssue(t, resp)
	assert.Equal(t, traffic.CodeInvalidContent, issue.Code)
	assert.True(t, issue.Deflected)
	assert.NotEmpty(t, issue.Issues)

	// Malformed JSON also lands on invalid-content.
	resp = c.Do(t, http.MethodPost, "/articles", []byte(`{"name":`),
		map[string]string{"Content-Type": "application/json"})
	assert.Equal(t, http.StatusBadRequest, resp.Status)
	issue = traffictest.DecodeIssue(t, resp)
	assert.Equal(t, traffic.CodeInvalidContent, issue.Code)
}

func TestPipeline_body_attached_to_context(t *testing.T) {
	t.Parallel()

	tr := traffic.New()
	tr.MustHandle(traffic.Route{
		Method: http.MethodPost,
		Path:   "/articles",
		Request: traffic.RequestSpec{
			Mime:    []string{traffic.KindJSON},
			Content: okSchema(),
		},
		Responses: okResponse(),
	}, func(ctx context.Context, req *traffic.Context) error {
		assert.Equal(t, traffic.KindJSON, req.Content.Type)
		assert.Equal(t, map[string]any{"name": "hello"}, req.Content.Data)
		return respondOK(ctx, req)
	})

	c := traffictest.NewClient(t, tr)
	resp := c.PostJSON(t, "/articles", map[string]any{"name": "hello"})
	assert.Equal(t, http.StatusOK, resp.Status)
}

// Suffixed media types dispatch on their structured-syntax suffix, so
// application/ld+json satisfies a route accepting "json".
func TestPipeline_suffix_dispatch(t *testing.T) {
	t.Parallel()

	tr := traffic.New()
	tr.MustHandle(traffic.Route{
		Method: http.MethodPost,
		Path:   "/articles",
		Request: traffic.RequestSpec{
			Mime:    []string{traffic.KindJSON},
			Content: okSchema(),
		},
		Responses: okResponse(),
	}, respondOK)

	c := traffictest.NewClient(t, tr)
	resp := c.Do(t, http.MethodPost, "/articles", []byte(`{"name":"a"}`),
		map[string]string{"Content-Type": "application/ld+json"})

	assert.Equal(t, http.StatusOK, resp.Status)
}

func TestPipeline_raw_skips_body_decoding(t *testing.T) {
	t.Parallel()

	tr := traffic.New()
	tr.MustHandle(traffic.Route{
		Method: http.MethodPost,
		Path:   "/ingest",
		Request: traffic.RequestSpec{
			Mime: []string{traffic.KindJSON},
			Raw:  true,
		},
		Responses: okResponse(),
	}, func(ctx context.Context, req *traffic.Context) error {
		raw := make([]byte, 64)
		n, _ := req.HTTPRequest().Body.Read(raw)
		assert.Equal(t, `{"name":"a"}`, string(raw[:n]))
		require.Empty(t, req.Content.Type)
		return respondOK(ctx, req)
	})

	c := traffictest.NewClient(t, tr)
	resp := c.PostJSON(t, "/ingest", map[string]any{"name": "a"})
	assert.Equal(t, http.StatusOK, resp.Status)
}
