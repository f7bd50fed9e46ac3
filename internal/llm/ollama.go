package llm

import (
	"context"
	"strings"

	"taskpilot/internal/config"
	"taskpilot/internal/models"
)

const defaultOllamaEndpoint = "http://localhost:11434"

// ollama talks to a local Ollama server. No API key is needed.
type ollama struct {
	cfg      config.LLMConfig
	endpoint string
}

func newOllama(cfg config.LLMConfig) *ollama {
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = defaultOllamaEndpoint
	}
	return &ollama{cfg: cfg, endpoint: strings.TrimRight(endpoint, "/")}
}

func (o *ollama) Name() string { return "ollama" }

type olMessage struct {
	Role      string `json:"role"`
	Content   string `json:"content"`
	ToolCalls []struct {
		Function struct {
			Name      string         `json:"name"`
			Arguments map[string]any `json:"arguments"`
		} `json:"function"`
	} `json:"tool_calls,omitempty"`
}

type olResponse struct {
	Message olMessage `json:"message"`
	Done    bool      `json:"done"`
}

func (o *ollama) Propose(ctx context.Context, req Request) (*Response, error) {
	messages := []map[string]string{{"role": "system", "content": req.System}}
	for _, m := range req.Messages {
		messages = append(messages, map[string]string{"role": m.Role, "content": m.Content})
	}

	body := map[string]any{
		"model":    o.cfg.Model,
		"messages": messages,
		"stream":   false,
		"options": map[string]any{
			"num_predict": o.cfg.MaxTokens,
			"temperature": o.cfg.Temperature,
		},
	}
	if len(req.Tools) > 0 {
		declared := make([]map[string]any, 0, len(req.Tools))
		for _, t := range req.Tools {
			declared = append(declared, map[string]any{
				"type": "function",
				"function": map[string]any{
					"name":        t.Name,
					"description": t.Description,
					"parameters":  t.Schema,
				},
			})
		}
		body["tools"] = declared
	}

	var raw olResponse
	if err := postJSON(ctx, o.Name(), o.endpoint+"/api/chat", nil, body, &raw); err != nil {
		return nil, err
	}

	resp := &Response{Text: raw.Message.Content}
	for _, tc := range raw.Message.ToolCalls {
		resp.Proposals = append(resp.Proposals, models.ActionProposal{
			ToolName: tc.Function.Name,
			Params:   tc.Function.Arguments,
		})
	}
	return resp, nil
}
