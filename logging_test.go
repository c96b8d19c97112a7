package traffic_test

import (
	"bytes"
	"log/slog"
	"net/http"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/trafficgo/traffic"
	"github.com/trafficgo/traffic/traffictest"
)

// syncBuffer makes the log sink safe for the server's handler goroutines.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestLogger(t *testing.T) {
	t.Parallel()

	var buf syncBuffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	tr := traffic.New()
	tr.Use(traffic.RequestID(), traffic.Logger(logger))
	tr.MustHandle(traffic.Route{
		Method:    http.MethodGet,
		Path:      "/articles",
		Responses: okResponse(),
	}, respondOK)

	c := traffictest.NewClient(t, tr)
	resp := c.Do(t, http.MethodGet, "/articles", nil, nil)
	assert.Equal(t, http.StatusOK, resp.Status)

	out := buf.String()
	assert.Contains(t, out, "msg=request")
	assert.Contains(t, out, "method=GET")
	assert.Contains(t, out, "path=/articles")
	assert.Contains(t, out, "status=200")
	assert.Contains(t, out, "request_id=")
}

func TestLogger_captures_issue_status(t *testing.T) {
	t.Parallel()

	var buf syncBuffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	tr := traffic.New(traffic.WithLogger(slog.New(slog.DiscardHandler)))
	tr.Use(traffic.Logger(logger))
	tr.MustHandle(traffic.Route{
		Method: http.MethodGet,
		Path:   "/articles/{id}",
		Request: traffic.RequestSpec{
			Params: map[string]traffic.Schema{"id": traffic.Number()},
		},
		Responses: okResponse(),
	}, respondOK)

	c := traffictest.NewClient(t, tr)
	resp := c.Do(t, http.MethodGet, "/articles/abc", nil, nil)
	assert.Equal(t, http.StatusBadRequest, resp.Status)

	assert.Contains(t, buf.String(), "status=400")
}
