package llm

import (
	"context"
	"fmt"

	"taskpilot/internal/config"
	"taskpilot/internal/models"
)

const googleURLFormat = "https://generativelanguage.googleapis.com/v1beta/models/%s:generateContent?key=%s"

type google struct {
	cfg config.LLMConfig
}

func newGoogle(cfg config.LLMConfig) *google {
	return &google{cfg: cfg}
}

func (g *google) Name() string { return "google" }

type gglPart struct {
	Text         string `json:"text,omitempty"`
	FunctionCall *struct {
		Name string         `json:"name"`
		Args map[string]any `json:"args"`
	} `json:"functionCall,omitempty"`
}

type gglResponse struct {
	Candidates []struct {
		Content struct {
			Parts []gglPart `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

func (g *google) Propose(ctx context.Context, req Request) (*Response, error) {
	contents := make([]map[string]any, 0, len(req.Messages))
	for _, m := range req.Messages {
		role := "user"
		if m.Role == "assistant" {
			role = "model"
		}
		contents = append(contents, map[string]any{
			"role":  role,
			"parts": []map[string]any{{"text": m.Content}},
		})
	}

	body := map[string]any{
		"contents": contents,
		"generationConfig": map[string]any{
			"maxOutputTokens": g.cfg.MaxTokens,
			"temperature":     g.cfg.Temperature,
		},
	}
	if req.System != "" {
		body["systemInstruction"] = map[string]any{
			"parts": []map[string]any{{"text": req.System}},
		}
	}
	if len(req.Tools) > 0 {
		decls := make([]map[string]any, 0, len(req.Tools))
		for _, t := range req.Tools {
			decls = append(decls, map[string]any{
				"name":        t.Name,
				"description": t.Description,
				"parameters":  t.Schema,
			})
		}
		body["tools"] = []map[string]any{{"functionDeclarations": decls}}
	}

	url := fmt.Sprintf(googleURLFormat, g.cfg.Model, g.cfg.APIKey)

	var raw gglResponse
	if err := postJSON(ctx, g.Name(), url, nil, body, &raw); err != nil {
		return nil, err
	}
	if len(raw.Candidates) == 0 {
		return nil, &ProviderError{Provider: g.Name(), Message: "no candidates in response"}
	}

	resp := &Response{}
	for _, part := range raw.Candidates[0].Content.Parts {
		if part.FunctionCall != nil {
			resp.Proposals = append(resp.Proposals, models.ActionProposal{
				ToolName: part.FunctionCall.Name,
				Params:   part.FunctionCall.Args,
			})
			continue
		}
		resp.Text += part.Text
	}
	return resp, nil
}
