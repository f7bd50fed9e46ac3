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

// TriggerWorkflow fires an external automation workflow by webhook path, the
// way an n8n instance exposes them. Gated by http_requests_enabled.
type TriggerWorkflow struct {
	// Endpoint is the workflow host, e.g. http://localhost:5678.
	Endpoint string
	Client   *http.Client
}

func (TriggerWorkflow) Name() string { return "trigger_workflow" }
func (TriggerWorkflow) Kind() Kind   { return KindWorkflow }
func (TriggerWorkflow) Description() string {
	return "Trigger an external automation workflow by its webhook path and wait for its response."
}

func (TriggerWorkflow) Schema() Schema {
	return Schema{Params: []ParamSpec{
		{Name: "webhook_path", Type: TypeString, Required: true, Description: "Webhook path of the workflow, e.g. 'deploy-site'"},
		{Name: "payload", Type: TypeObject, Description: "JSON payload passed to the workflow"},
		{Name: "timeout", Type: TypeInt, Role: RoleTimeout, Description: "Timeout in seconds (default 60)"},
	}}
}

func (t TriggerWorkflow) Invoke(ctx context.Context, params map[string]any) (*Result, error) {
	path := strings.Trim(StringParam(params, "webhook_path", ""), "/")
	if path == "" {
		return nil, fmt.Errorf("empty webhook path")
	}
	endpoint := strings.TrimRight(t.Endpoint, "/")
	if endpoint == "" {
		return nil, fmt.Errorf("no workflow endpoint configured")
	}

	timeout := 60 * time.Second
	if secs := IntParam(params, "timeout", 0); secs > 0 {
		timeout = time.Duration(secs) * time.Second
	}
	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var body io.Reader
	if payload, ok := params["payload"]; ok && payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encode payload: %w", err)
		}
		body = bytes.NewReader(data)
	}

	url := endpoint + "/webhook/" + path
	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, url, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "taskpilot/1.0")

	client := t.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("trigger workflow %s: %w", path, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read workflow response: %w", err)
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("workflow %s returned status %d: %s", path, resp.StatusCode, firstLine(string(respBody)))
	}

	out := strings.TrimSpace(string(respBody))
	if out == "" {
		out = fmt.Sprintf("workflow %s triggered (status %d)", path, resp.StatusCode)
	}
	return &Result{
		Output: out,
		Data:   map[string]any{"webhook_path": path, "status_code": resp.StatusCode},
	}, nil
}
