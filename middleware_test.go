package traffic_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trafficgo/traffic"
	"github.com/trafficgo/traffic/traffictest"
)

func TestRecovery(t *testing.T) {
	t.Parallel()

	panicking := http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	})
	srv := httptest.NewServer(traffic.Recovery()(panicking))
	t.Cleanup(srv.Close)

	resp, err := srv.Client().Get(srv.URL)
	require.NoError(t, err)
	defer func() { require.NoError(t, resp.Body.Close()) }()

	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
}

func TestTimeout(t *testing.T) {
	t.Parallel()

	tr := traffic.New()
	tr.Use(traffic.Timeout(50 * time.Millisecond))
	tr.MustHandle(traffic.Route{
		Method:    http.MethodGet,
		Path:      "/slow",
		Responses: okResponse(),
	}, func(ctx context.Context, req *traffic.Context) error {
		deadline, ok := ctx.Deadline()
		assert.True(t, ok, "request context must carry the deadline")
		assert.WithinDuration(t, time.Now().Add(50*time.Millisecond), deadline, 40*time.Millisecond)
		return respondOK(ctx, req)
	})

	c := traffictest.NewClient(t, tr)
	resp := c.Do(t, http.MethodGet, "/slow", nil, nil)
	assert.Equal(t, http.StatusOK, resp.Status)
}

func TestUse_order(t *testing.T) {
	t.Parallel()

	var order []string
	tag := func(name string) traffic.Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	tr := traffic.New()
	tr.Use(tag("first"), tag("second"))
	tr.MustHandle(traffic.Route{
		Method:    http.MethodGet,
		Path:      "/articles",
		Responses: okResponse(),
	}, respondOK)

	c := traffictest.NewClient(t, tr)
	resp := c.Do(t, http.MethodGet, "/articles", nil, nil)

	assert.Equal(t, http.StatusOK, resp.Status)
	assert.Equal(t, []string{"first", "second"}, order)
}
