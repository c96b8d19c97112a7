package traffic

import (
	"encoding/json"
	"io"
	"net/http"
	"sort"

	"gopkg.in/yaml.v3"
)

// Catalog is a machine-readable description of every registered route:
// which fields are validated, which media kinds are accepted, the declared
// (status, mime) response table, and the issue codes the route may raise.
type Catalog struct {
	Routes []RouteDescription `json:"routes" yaml:"routes"`
}

// RouteDescription describes one registered route.
type RouteDescription struct {
	Method    string                `json:"method" yaml:"method"`
	Path      string                `json:"path" yaml:"path"`
	Request   RequestDescription    `json:"request" yaml:"request"`
	Responses []ResponseDescription `json:"responses,omitempty" yaml:"responses,omitempty"`
	Issues    []string              `json:"issues,omitempty" yaml:"issues,omitempty"`
}

// RequestDescription describes the validated surface of a request.
type RequestDescription struct {
	Mime    []string `json:"mime,omitempty" yaml:"mime,omitempty"`
	Params  []string `json:"params,omitempty" yaml:"params,omitempty"`
	Query   []string `json:"query,omitempty" yaml:"query,omitempty"`
	Headers []string `json:"headers,omitempty" yaml:"headers,omitempty"`
	Content bool     `json:"content" yaml:"content"`
	Raw     bool     `json:"raw,omitempty" yaml:"raw,omitempty"`
}

// ResponseDescription describes one declared response shape.
type ResponseDescription struct {
	Status   int    `json:"status" yaml:"status"`
	Mime     string `json:"mime" yaml:"mime"`
	Raw      bool   `json:"raw,omitempty" yaml:"raw,omitempty"`
	Optional bool   `json:"optional,omitempty" yaml:"optional,omitempty"`
}

// Catalog builds the description of all registered routes.
func (t *Traffic) Catalog() Catalog {
	t.mu.Lock()
	defer t.mu.Unlock()

	cat := Catalog{Routes: make([]RouteDescription, 0, len(t.routes))}
	for _, cr := range t.routes {
		route := cr.route
		rd := RouteDescription{
			Method: route.Method,
			Path:   route.Path,
			Request: RequestDescription{
				Mime:    route.Request.Mime,
				Params:  fieldNames(route.Request.Params),
				Query:   fieldNames(route.Request.Query),
				Headers: fieldNames(route.Request.Headers),
				Content: route.Request.Content != nil,
				Raw:     route.Request.Raw,
			},
			Issues: route.Issues,
		}
		for _, spec := range route.Responses {
			rd.Responses = append(rd.Responses, ResponseDescription{
				Status:   spec.Status,
				Mime:     spec.Mime,
				Raw:      spec.Raw,
				Optional: spec.Optional,
			})
		}
		cat.Routes = append(cat.Routes, rd)
	}
	return cat
}

func fieldNames(decl map[string]Schema) []string {
	if len(decl) == 0 {
		return nil
	}
	names := make([]string, 0, len(decl))
	for name := range decl {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ServeCatalog registers a GET handler at the given pattern that serves
// the route catalog as JSON.
func (t *Traffic) ServeCatalog(pattern string) {
	t.mux.HandleFunc("GET "+pattern, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		//nolint:errcheck,gosec // best-effort after WriteHeader
		json.NewEncoder(w).Encode(t.Catalog())
	})
}

// ServeCatalogYAML registers a GET handler at the given pattern that serves
// the route catalog as YAML.
func (t *Traffic) ServeCatalogYAML(pattern string) {
	t.mux.HandleFunc("GET "+pattern, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/yaml")
		//nolint:errcheck,gosec // best-effort after WriteHeader
		yaml.NewEncoder(w).Encode(t.Catalog())
	})
}

// WriteCatalog writes the route catalog as indented JSON to w.
func (t *Traffic) WriteCatalog(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(t.Catalog())
}

// WriteCatalogYAML writes the route catalog as YAML to w.
func (t *Traffic) WriteCatalogYAML(w io.Writer) error {
	return yaml.NewEncoder(w).Encode(t.Catalog())
}
