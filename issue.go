package traffic

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
)

// Built-in issue codes.
const (
	CodeInvalidParams          = "/traffic/request/invalid-params"
	CodeInvalidQuery           = "/traffic/request/invalid-query"
	CodeInvalidHeaders         = "/traffic/request/invalid-headers"
	CodeInvalidContent         = "/traffic/request/invalid-content"
	CodeUnsupportedContentType = "/traffic/request/unsupported-content-type"
	CodeUnsupportedContent     = "/traffic/request/unsupported-content"
	CodeUnknown                = "/traffic/unknown"
)

// Issue is a typed, serializable error payload. Deflected reports whether
// the fault was in the client's input (true) or in server-side processing
// (false); it is always a concrete boolean on instantiated issues. Extra
// holds factory-specific payload fields, flattened into the wire format
// alongside code, status, and deflected. Issues are immutable once built.
type Issue struct {
	Code      string
	Status    int
	Deflected bool
	Headers   map[string]string
	Extra     map[string]any
}

// Error returns the issue description, falling back to the code.
func (i Issue) Error() string {
	if desc, ok := i.Extra["description"].(string); ok && desc != "" {
		return desc
	}
	return i.Code
}

// String renders the issue for plain-text transmission.
func (i Issue) String() string {
	return fmt.Sprintf("%s (%d): %s", i.Code, i.Status, i.Error())
}

// MarshalJSON flattens Extra next to the base fields. Base fields win on
// key collision. Headers travel on the HTTP response, not in the body.
func (i Issue) MarshalJSON() ([]byte, error) {
	m := make(map[string]any, 3+len(i.Extra))
	for k, v := range i.Extra {
		m[k] = v
	}
	m["code"] = i.Code
	m["status"] = i.Status
	m["deflected"] = i.Deflected
	return json.Marshal(m)
}

// Factory builds the non-code fields of an Issue from caller arguments.
// Factories must be pure; the registry stamps the code itself.
type Factory func(args ...any) Issue

// Registry maps issue codes to factories. It is shared read-mostly across
// all in-flight requests of a Traffic instance; Override is for the setup
// phase (single writer, many readers).
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry returns a registry preloaded with the built-in issue codes.
func NewRegistry() *Registry {
	r := &Registry{factories: make(map[string]Factory)}
	r.Override(CodeInvalidParams, validationFactory())
	r.Override(CodeInvalidQuery, validationFactory())
	r.Override(CodeInvalidHeaders, validationFactory())
	r.Override(CodeInvalidContent, validationFactory())
	r.Override(CodeUnsupportedContentType, unsupportedContentTypeFactory)
	r.Override(CodeUnsupportedContent, unsupportedContentFactory)
	r.Override(CodeUnknown, unknownFactory)
	return r
}

// Override replaces the factory for code, registering the code if it is
// new. Returns the registry for chaining.
func (r *Registry) Override(code string, f Factory) *Registry {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[code] = f
	return r
}

// Instantiate builds the Issue registered under code. Calling it with an
// unregistered code is a declaration defect and panics; the route handler
// recovers it into a logged 500 fallback.
func (r *Registry) Instantiate(code string, args ...any) Issue {
	r.mu.RLock()
	f, ok := r.factories[code]
	r.mu.RUnlock()
	if !ok {
		panic(fmt.Sprintf("traffic: issue code %q is not registered", code))
	}
	issue := f(args...)
	issue.Code = code
	return issue
}

// validationFactory builds the shared payload of the invalid-params,
// invalid-query, invalid-headers, and invalid-content issues: the first
// failure message as description plus the full structured issue list.
func validationFactory() Factory {
	return func(args ...any) Issue {
		issues := collectFieldIssues(args)
		description := "validation failed"
		if len(issues) > 0 {
			description = issues[0].Message
		}
		return Issue{
			Status:    http.StatusBadRequest,
			Deflected: true,
			Extra: map[string]any{
				"description": description,
				"issues":      issues,
			},
		}
	}
}

// collectFieldIssues accepts *SchemaError, FieldIssue, and []FieldIssue
// arguments in any mix.
func collectFieldIssues(args []any) []FieldIssue {
	var out []FieldIssue
	for _, arg := range args {
		switch v := arg.(type) {
		case *SchemaError:
			out = append(out, v.Issues...)
		case FieldIssue:
			out = append(out, v)
		case []FieldIssue:
			out = append(out, v...)
		}
	}
	return out
}

func unsupportedContentTypeFactory(args ...any) Issue {
	var supported []string
	if len(args) > 0 {
		if s, ok := args[0].([]string); ok {
			supported = s
		}
	}
	return Issue{
		Status:    http.StatusBadRequest,
		Deflected: true,
		Extra: map[string]any{
			"description": "unsupported content type",
			"supported":   supported,
		},
	}
}

func unsupportedContentFactory(...any) Issue {
	return Issue{
		Status:    http.StatusBadRequest,
		Deflected: false,
		Extra: map[string]any{
			"description": "no decoder available for the request content",
		},
	}
}

func unknownFactory(...any) Issue {
	return Issue{
		Status:    http.StatusInternalServerError,
		Deflected: false,
		Extra: map[string]any{
			"description": "internal error",
		},
	}
}
