package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const defaultHTTPTimeout = 30 * time.Second

// HTTPRequest performs an HTTP call against an arbitrary endpoint. Network
// access is gated by the sandbox policy before this tool ever runs.
type HTTPRequest struct {
	Client *http.Client
}

func (HTTPRequest) Name() string { return "http_request" }
func (HTTPRequest) Kind() Kind   { return KindHTTP }
func (HTTPRequest) Description() string {
	return "Make an HTTP request (GET, POST, PUT, DELETE) to an external service."
}

func (HTTPRequest) Schema() Schema {
	return Schema{Params: []ParamSpec{
		{Name: "url", Type: TypeString, Required: true, Description: "URL to request"},
		{Name: "method", Type: TypeString, Description: "HTTP method (default GET)"},
		{Name: "headers", Type: TypeObject, Description: "Request headers"},
		{Name: "body", Type: TypeString, Description: "Request body for POST/PUT"},
		{Name: "timeout", Type: TypeInt, Role: RoleTimeout, Description: "Timeout in seconds (default 30)"},
	}}
}

func (t HTTPRequest) Invoke(ctx context.Context, params map[string]any) (*Result, error) {
	url := StringParam(params, "url", "")
	method := strings.ToUpper(StringParam(params, "method", "GET"))
	body := StringParam(params, "body", "")

	switch method {
	case http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete:
	default:
		return nil, fmt.Errorf("unsupported method %q", method)
	}

	timeout := defaultHTTPTimeout
	if secs := IntParam(params, "timeout", 0); secs > 0 {
		timeout = time.Duration(secs) * time.Second
	}
	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var reader io.Reader
	if body != "" {
		reader = bytes.NewBufferString(body)
	}
	req, err := http.NewRequestWithContext(reqCtx, method, url, reader)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	req.Header.Set("User-Agent", "taskpilot/1.0")
	for k, v := range ObjectParam(params, "headers") {
		req.Header.Set(k, v)
	}
	if body != "" && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", "application/json")
	}

	client := t.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http %s %s: %w", method, url, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	output := string(respBody)
	// Pretty-print JSON responses so the backend sees structure.
	var parsed any
	if json.Unmarshal(respBody, &parsed) == nil {
		if pretty, err := json.MarshalIndent(parsed, "", "  "); err == nil {
			output = string(pretty)
		}
	}

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("http %d %s: %s", resp.StatusCode, http.StatusText(resp.StatusCode), firstLine(output))
	}
	return &Result{
		Output: output,
		Data: map[string]any{
			"status_code": resp.StatusCode,
			"url":         url,
		},
	}, nil
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
