// Package traffictest provides test helpers for the traffic framework.
package traffictest

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/trafficgo/traffic"
)

// Client wraps an httptest.Server for convenient route testing.
type Client struct {
	Server *httptest.Server
}

// NewClient starts a test server for the Traffic instance and registers
// its shutdown with the test cleanup.
func NewClient(t testing.TB, tr *traffic.Traffic) *Client {
	t.Helper()
	srv := httptest.NewServer(tr)
	t.Cleanup(srv.Close)
	return &Client{Server: srv}
}

// Response holds the raw result of a request plus its body bytes.
type Response struct {
	Status  int
	Headers http.Header
	Body    []byte
}

// Do sends a request with the given body and headers and drains the
// response.
func (c *Client) Do(t testing.TB, method, path string, body []byte, headers map[string]string) *Response {
	t.Helper()

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequest(method, c.Server.URL+path, reader)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.Server.Client().Do(req)
	if err != nil {
		t.Fatalf("send request: %v", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read response body: %v", err)
	}
	return &Response{Status: resp.StatusCode, Headers: resp.Header, Body: raw}
}

// GetJSON sends a GET request with a JSON Content-Type.
func (c *Client) GetJSON(t testing.TB, path string) *Response {
	t.Helper()
	return c.Do(t, http.MethodGet, path, nil, map[string]string{"Content-Type": "application/json"})
}

// PostJSON sends a POST request with a JSON body.
func (c *Client) PostJSON(t testing.TB, path string, body any) *Response {
	t.Helper()
	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}
	return c.Do(t, http.MethodPost, path, raw, map[string]string{"Content-Type": "application/json"})
}

// IssueBody is the decoded wire form of an issue response.
type IssueBody struct {
	Code        string          `json:"code"`
	Status      int             `json:"status"`
	Deflected   bool            `json:"deflected"`
	Description string          `json:"description"`
	Supported   []string        `json:"supported"`
	Issues      json.RawMessage `json:"issues"`
}

// DecodeIssue unmarshals a JSON issue response body.
func DecodeIssue(t testing.TB, resp *Response) IssueBody {
	t.Helper()
	var issue IssueBody
	if err := json.Unmarshal(resp.Body, &issue); err != nil {
		t.Fatalf("decode issue body %q: %v", resp.Body, err)
	}
	return issue
}
