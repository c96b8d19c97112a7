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

func TestHandle_declaration_defects(t *testing.T) {
	t.Parallel()

	handler := respondOK

	tests := map[string]traffic.Route{
		"missing method": {
			Path: "/articles",
		},
		"missing path": {
			Method: http.MethodGet,
		},
		"missing response status": {
			Method: http.MethodGet,
			Path:   "/articles",
			Responses: []traffic.ResponseSpec{
				{Mime: traffic.KindJSON},
			},
		},
		"missing response mime": {
			Method: http.MethodGet,
			Path:   "/articles",
			Responses: []traffic.ResponseSpec{
				{Status: http.StatusOK},
			},
		},
		"duplicate response pair": {
			Method: http.MethodGet,
			Path:   "/articles",
			Responses: []traffic.ResponseSpec{
				{Status: http.StatusOK, Mime: traffic.KindJSON},
				{Status: http.StatusOK, Mime: traffic.KindJSON},
			},
		},
		"raw and content together": {
			Method: http.MethodGet,
			Path:   "/articles",
			Responses: []traffic.ResponseSpec{
				{Status: http.StatusOK, Mime: traffic.KindJSON, Raw: true, Content: okSchema()},
			},
		},
	}

	for name, route := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			tr := traffic.New()
			assert.Error(t, tr.Handle(route, handler))
		})
	}
}

func TestHandle_nil_handler(t *testing.T) {
	t.Parallel()

	tr := traffic.New()
	err := tr.Handle(traffic.Route{Method: http.MethodGet, Path: "/x"}, nil)
	require.Error(t, err)
}

func TestMustHandle_panics_on_defect(t *testing.T) {
	t.Parallel()

	tr := traffic.New()
	assert.Panics(t, func() {
		tr.MustHandle(traffic.Route{}, respondOK)
	})
}

func TestNew_with_registry(t *testing.T) {
	t.Parallel()

	reg := traffic.NewRegistry()
	tr := traffic.New(traffic.WithRegistry(reg))
	assert.Same(t, reg, tr.Registry())
}

func TestWithDefaultFormat(t *testing.T) {
	t.Parallel()

	tr := traffic.New(traffic.WithDefaultFormat(traffic.KindPlain))
	tr.MustHandle(traffic.Route{
		Method:    http.MethodGet,
		Path:      "/articles",
		Responses: okResponse(),
		Issues:    []string{traffic.CodeUnknown},
	}, func(_ context.Context, req *traffic.Context) error {
		return req.Issue(traffic.CodeUnknown)
	})

	c := traffictest.NewClient(t, tr)
	resp := c.Do(t, http.MethodGet, "/articles", nil, nil)

	assert.Equal(t, http.StatusInternalServerError, resp.Status)
	assert.Equal(t, "text/plain; charset=utf-8", resp.Headers.Get("Content-Type"))
	assert.Equal(t, "/traffic/unknown (500): internal error", string(resp.Body))
}

func TestTraffic_method_routing(t *testing.T) {
	t.Parallel()

	tr := traffic.New()
	tr.MustHandle(traffic.Route{
		Method:    http.MethodGet,
		Path:      "/articles",
		Responses: okResponse(),
	}, respondOK)

	c := traffictest.NewClient(t, tr)

	resp := c.Do(t, http.MethodGet, "/articles", nil, nil)
	assert.Equal(t, http.StatusOK, resp.Status)

	resp = c.Do(t, http.MethodDelete, "/articles", nil, nil)
	assert.Equal(t, http.StatusMethodNotAllowed, resp.Status)
}
