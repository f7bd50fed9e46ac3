package llm

import (
	"context"
	"encoding/json"
	"fmt"

	"taskpilot/internal/config"
	"taskpilot/internal/models"
)

const openAIURL = "https://api.openai.com/v1/chat/completions"

type openAI struct {
	cfg config.LLMConfig
}

func newOpenAI(cfg config.LLMConfig) *openAI {
	return &openAI{cfg: cfg}
}

func (o *openAI) Name() string { return "openai" }

type oaMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type oaToolCall struct {
	ID       string `json:"id"`
	Function struct {
		Name      string `json:"name"`
		Arguments string `json:"arguments"`
	} `json:"function"`
}

type oaResponse struct {
	Choices []struct {
		Message struct {
			Content   string       `json:"content"`
			ToolCalls []oaToolCall `json:"tool_calls"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}

func (o *openAI) Propose(ctx context.Context, req Request) (*Response, error) {
	messages := []oaMessage{{Role: "system", Content: req.System}}
	for _, m := range req.Messages {
		messages = append(messages, oaMessage{Role: m.Role, Content: m.Content})
	}

	body := map[string]any{
		"model":       o.cfg.Model,
		"messages":    messages,
		"max_tokens":  o.cfg.MaxTokens,
		"temperature": o.cfg.Temperature,
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

	headers := map[string]string{"Authorization": "Bearer " + o.cfg.APIKey}

	var raw oaResponse
	if err := postJSON(ctx, o.Name(), openAIURL, headers, body, &raw); err != nil {
		return nil, err
	}
	if len(raw.Choices) == 0 {
		return nil, &ProviderError{Provider: o.Name(), Message: "empty choices in response"}
	}

	msg := raw.Choices[0].Message
	resp := &Response{Text: msg.Content}
	for _, tc := range msg.ToolCalls {
		var args map[string]any
		if err := json.Unmarshal([]byte(tc.Function.Arguments), &args); err != nil {
			resp.Malformed = fmt.Sprintf("malformed tool arguments for %s: %v", tc.Function.Name, err)
			continue
		}
		resp.Proposals = append(resp.Proposals, models.ActionProposal{
			ToolName: tc.Function.Name,
			Params:   args,
		})
	}
	return resp, nil
}
