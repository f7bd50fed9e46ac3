package llm

import (
	"context"

	"taskpilot/internal/config"
	"taskpilot/internal/models"
)

const (
	anthropicURL     = "https://api.anthropic.com/v1/messages"
	anthropicVersion = "2023-06-01"
)

type anthropic struct {
	cfg config.LLMConfig
}

func newAnthropic(cfg config.LLMConfig) *anthropic {
	return &anthropic{cfg: cfg}
}

func (a *anthropic) Name() string { return "anthropic" }

type antContentBlock struct {
	Type  string         `json:"type"`
	Text  string         `json:"text,omitempty"`
	Name  string         `json:"name,omitempty"`
	Input map[string]any `json:"input,omitempty"`
}

type antResponse struct {
	Content    []antContentBlock `json:"content"`
	StopReason string            `json:"stop_reason"`
}

func (a *anthropic) Propose(ctx context.Context, req Request) (*Response, error) {
	messages := make([]map[string]string, 0, len(req.Messages))
	for _, m := range req.Messages {
		messages = append(messages, map[string]string{"role": m.Role, "content": m.Content})
	}

	body := map[string]any{
		"model":       a.cfg.Model,
		"messages":    messages,
		"max_tokens":  a.cfg.MaxTokens,
		"temperature": a.cfg.Temperature,
	}
	if req.System != "" {
		body["system"] = req.System
	}
	if len(req.Tools) > 0 {
		declared := make([]map[string]any, 0, len(req.Tools))
		for _, t := range req.Tools {
			declared = append(declared, map[string]any{
				"name":         t.Name,
				"description":  t.Description,
				"input_schema": t.Schema,
			})
		}
		body["tools"] = declared
	}

	headers := map[string]string{
		"x-api-key":         a.cfg.APIKey,
		"anthropic-version": anthropicVersion,
	}

	var raw antResponse
	if err := postJSON(ctx, a.Name(), anthropicURL, headers, body, &raw); err != nil {
		return nil, err
	}

	resp := &Response{}
	for _, block := range raw.Content {
		switch block.Type {
		case "text":
			resp.Text += block.Text
		case "tool_use":
			resp.Proposals = append(resp.Proposals, models.ActionProposal{
				ToolName: block.Name,
				Params:   block.Input,
			})
		}
	}
	return resp, nil
}
