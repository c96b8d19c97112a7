package traffic

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"
)

// Traffic is the central type: it owns the issue registry, the registered
// routes, and the middleware chain. It implements http.Handler. The
// registry and route set are effectively immutable once serving starts and
// are shared read-only across all in-flight requests.
type Traffic struct {
	mux        *http.ServeMux
	registry   *Registry
	middleware []Middleware
	routes     []*compiledRoute

	logger        *slog.Logger
	defaultFormat string

	mu sync.Mutex
}

// Option configures a Traffic instance.
type Option func(*Traffic)

// WithRegistry sets the issue registry. Use this to share one customized
// registry across instances or to pre-override factories.
func WithRegistry(reg *Registry) Option {
	return func(t *Traffic) {
		t.registry = reg
	}
}

// WithLogger sets the structured logger used for server-side defects and
// request logging.
func WithLogger(logger *slog.Logger) Option {
	return func(t *Traffic) {
		t.logger = logger
	}
}

// WithDefaultFormat sets the issue serialization kind used when the Accept
// header does not name a usable one. Default: "json".
func WithDefaultFormat(kind string) Option {
	return func(t *Traffic) {
		t.defaultFormat = kind
	}
}

// New creates a Traffic instance with the given options.
func New(opts ...Option) *Traffic {
	t := &Traffic{
		mux:           http.NewServeMux(),
		defaultFormat: KindJSON,
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.registry == nil {
		t.registry = NewRegistry()
	}
	if t.logger == nil {
		t.logger = slog.Default()
	}
	return t
}

// Registry returns the issue registry, for Override calls during setup.
func (t *Traffic) Registry() *Registry { return t.registry }

// Use adds middleware. Middleware is applied in the order added.
func (t *Traffic) Use(mw ...Middleware) {
	t.middleware = append(t.middleware, mw...)
}

// Handle compiles the route declaration and registers it. Declaration
// defects (missing method, duplicate (status, mime) response entries, raw
// and content on the same entry) are reported here, not per request.
func (t *Traffic) Handle(route Route, h Handler) error {
	cr, err := compileRoute(route, h)
	if err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.mux.Handle(route.Method+" "+route.Path, t.serve(cr))
	t.routes = append(t.routes, cr)
	return nil
}

// MustHandle is Handle that panics on declaration defects. For use in
// setup code where a bad declaration should stop the program.
func (t *Traffic) MustHandle(route Route, h Handler) {
	if err := t.Handle(route, h); err != nil {
		panic(fmt.Sprintf("traffic: %v", err))
	}
}

// ServeHTTP implements http.Handler.
func (t *Traffic) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	handler := http.Handler(t.mux)
	for i := len(t.middleware) - 1; i >= 0; i-- {
		handler = t.middleware[i](handler)
	}
	handler.ServeHTTP(w, r)
}

// ListenAndServe starts an HTTP server on the given address. It blocks
// until the context is cancelled, then shuts down gracefully.
func (t *Traffic) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           t,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
