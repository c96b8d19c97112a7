// Command sample runs a small articles API on top of the traffic framework.
//
// Run:
//
//	go run ./cmd/sample
//
// Print the route catalog:
//
//	go run ./cmd/sample -catalog
//
// Then explore:
//
//	GET  http://localhost:8080/catalog.json          — route catalog
//	GET  http://localhost:8080/articles/{id}         — fetch an article
//	POST http://localhost:8080/articles              — create an article
//
// Configuration comes from the environment:
//
//	SAMPLE_ADDR        listen address (default :8080)
//	SAMPLE_RATE        per-IP requests per second (default 50)
//	SAMPLE_BODY_LIMIT  max request body bytes (default 1 MiB)
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/trafficgo/traffic"
)

type config struct {
	Addr      string  `env:"SAMPLE_ADDR" envDefault:":8080"`
	Rate      float64 `env:"SAMPLE_RATE" envDefault:"50"`
	BodyLimit int64   `env:"SAMPLE_BODY_LIMIT" envDefault:"1048576"`
}

func main() {
	catalogFlag := flag.Bool("catalog", false, "Print the route catalog to stdout and exit")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	slog.SetDefault(logger)

	var cfg config
	if err := env.Parse(&cfg); err != nil {
		logger.Error("config parse failed", "err", err)
		os.Exit(1)
	}

	t := newTraffic(logger, cfg)

	if *catalogFlag {
		if err := t.WriteCatalog(os.Stdout); err != nil {
			logger.Error("catalog generation failed", "err", err)
			os.Exit(1)
		}
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	logger.Info("starting server", "addr", cfg.Addr)

	if err := t.ListenAndServe(ctx, cfg.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server error", "err", err)
	}

	logger.Info("server stopped")
}

const codeArticleMissing = "/sample/article/missing"

func newTraffic(logger *slog.Logger, cfg config) *traffic.Traffic {
	t := traffic.New(traffic.WithLogger(logger))

	t.Use(
		traffic.Recovery(),
		traffic.RequestID(),
		traffic.Logger(logger),
		traffic.RateLimit(traffic.RateLimitConfig{Rate: cfg.Rate, Burst: int(cfg.Rate)}),
		traffic.BodyLimit(cfg.BodyLimit),
		traffic.Timeout(10*time.Second),
	)

	t.Registry().Override(codeArticleMissing, func(args ...any) traffic.Issue {
		id := "unknown"
		if len(args) > 0 {
			id = fmt.Sprintf("%v", args[0])
		}
		return traffic.Issue{
			Status:    http.StatusNotFound,
			Deflected: true,
			Extra: map[string]any{
				"description": "no article with id " + id,
				"id":          id,
			},
		}
	})

	store := &articleStore{articles: map[int64]article{
		1: {ID: 1, Title: "hello", Body: "first post"},
	}}

	articleSchema := traffic.Object(map[string]traffic.Schema{
		"id":    traffic.Number().Int(),
		"title": traffic.String().Min(1).Max(200),
		"body":  traffic.String(),
	}).Require("id", "title")

	t.MustHandle(traffic.Route{
		Method: http.MethodGet,
		Path:   "/articles/{id}",
		Request: traffic.RequestSpec{
			Params: map[string]traffic.Schema{"id": traffic.Number().Int().Min(1)},
		},
		Responses: []traffic.ResponseSpec{
			{Status: http.StatusOK, Mime: traffic.KindJSON, Content: articleSchema},
		},
		Issues: []string{codeArticleMissing},
	}, func(_ context.Context, req *traffic.Context) error {
		id := int64(req.Params["id"].(float64))
		a, ok := store.get(id)
		if !ok {
			return req.Issue(codeArticleMissing, strconv.FormatInt(id, 10))
		}
		return req.Respond(http.StatusOK, traffic.KindJSON, a.asMap())
	})

	createSchema := traffic.Object(map[string]traffic.Schema{
		"title": traffic.String().Min(1).Max(200),
		"body":  traffic.String(),
	}).Require("title")

	t.MustHandle(traffic.Route{
		Method: http.MethodPost,
		Path:   "/articles",
		Request: traffic.RequestSpec{
			Mime:    []string{traffic.KindJSON},
			Content: createSchema,
		},
		Responses: []traffic.ResponseSpec{
			{Status: http.StatusCreated, Mime: traffic.KindJSON, Content: articleSchema},
		},
	}, func(_ context.Context, req *traffic.Context) error {
		fields := req.Content.Data.(map[string]any)
		a := store.create(fields["title"].(string), stringOr(fields["body"], ""))
		return req.Respond(http.StatusCreated, traffic.KindJSON, a.asMap(),
			map[string]string{"Location": "/articles/" + strconv.FormatInt(a.ID, 10)})
	})

	t.ServeCatalog("/catalog.json")
	t.ServeCatalogYAML("/catalog.yaml")

	return t
}

func stringOr(v any, fallback string) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fallback
}

type article struct {
	ID    int64
	Title string
	Body  string
}

func (a article) asMap() map[string]any {
	return map[string]any{"id": a.ID, "title": a.Title, "body": a.Body}
}

type articleStore struct {
	mu       sync.Mutex
	nextID   int64
	articles map[int64]article
}

func (s *articleStore) get(id int64) (article, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.articles[id]
	return a, ok
}

func (s *articleStore) create(title, body string) article {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.nextID == 0 {
		s.nextID = int64(len(s.articles)) + 1
	}
	a := article{ID: s.nextID, Title: title, Body: body}
	s.articles[a.ID] = a
	s.nextID++
	return a
}
