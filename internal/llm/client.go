package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// httpClient is shared by all providers; per-call deadlines come from ctx.
var httpClient = &http.Client{Timeout: 5 * time.Minute}

// postJSON sends a JSON request and decodes the JSON response into out.
// API failures come back as *ProviderError with Retryable set for quota
// and server-side statuses.
func postJSON(ctx context.Context, provider, url string, headers map[string]string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return &ProviderError{Provider: provider, Message: fmt.Sprintf("encode request: %v", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return &ProviderError{Provider: provider, Message: fmt.Sprintf("build request: %v", err)}
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		// Transport-level failures are worth retrying.
		return &ProviderError{Provider: provider, Message: err.Error(), Retryable: true}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return &ProviderError{Provider: provider, Message: fmt.Sprintf("read response: %v", err), Retryable: true}
	}

	if resp.StatusCode != http.StatusOK {
		return &ProviderError{
			Provider:  provider,
			Status:    resp.StatusCode,
			Message:   headOf(string(data), 512),
			Retryable: resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500,
		}
	}

	if err := json.Unmarshal(data, out); err != nil {
		return &ProviderError{Provider: provider, Message: fmt.Sprintf("decode response: %v", err)}
	}
	return nil
}

func headOf(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
