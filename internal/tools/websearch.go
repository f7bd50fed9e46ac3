package tools

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"
)

// WebSearch queries the DuckDuckGo HTML endpoint, which needs no API key.
// Gated by the web_search_enabled capability flag in the sandbox policy.
type WebSearch struct {
	Client *http.Client
	// BaseURL is overridable for tests.
	BaseURL string
}

const ddgBaseURL = "https://html.duckduckgo.com/html/"

func (WebSearch) Name() string { return "web_search" }
func (WebSearch) Kind() Kind   { return KindSearch }
func (WebSearch) Description() string {
	return "Search the web and return result titles, URLs and snippets."
}

func (WebSearch) Schema() Schema {
	return Schema{Params: []ParamSpec{
		{Name: "query", Type: TypeString, Required: true, Description: "Search query"},
		{Name: "num_results", Type: TypeInt, Description: "Number of results (default 5)"},
	}}
}

var (
	ddgResultRe  = regexp.MustCompile(`<a[^>]*class="result__a"[^>]*href="([^"]*)"[^>]*>([^<]*)</a>`)
	ddgSnippetRe = regexp.MustCompile(`<a[^>]*class="result__snippet"[^>]*>(.*?)</a>`)
	htmlTagRe    = regexp.MustCompile(`<[^>]+>`)
)

func (t WebSearch) Invoke(ctx context.Context, params map[string]any) (*Result, error) {
	query := StringParam(params, "query", "")
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("empty query")
	}
	limit := IntParam(params, "num_results", 5)
	if limit <= 0 {
		limit = 5
	}

	base := t.BaseURL
	if base == "" {
		base = ddgBaseURL
	}
	reqCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, base+"?"+url.Values{"q": {query}}.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; taskpilot/1.0)")

	client := t.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("search returned status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 2<<20))
	if err != nil {
		return nil, fmt.Errorf("read search response: %w", err)
	}

	links := ddgResultRe.FindAllStringSubmatch(string(body), limit)
	snippets := ddgSnippetRe.FindAllStringSubmatch(string(body), limit)
	if len(links) == 0 {
		return nil, fmt.Errorf("no search results found")
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Search results for: %s\n", query)
	for i, m := range links {
		target := resolveRedirect(m[1])
		fmt.Fprintf(&b, "\n%d. %s\n   %s\n", i+1, strings.TrimSpace(m[2]), target)
		if i < len(snippets) {
			snippet := strings.TrimSpace(htmlTagRe.ReplaceAllString(snippets[i][1], ""))
			if snippet != "" {
				fmt.Fprintf(&b, "   %s\n", snippet)
			}
		}
	}
	return &Result{
		Output: b.String(),
		Data:   map[string]any{"query": query, "count": len(links)},
	}, nil
}

// resolveRedirect unwraps DuckDuckGo's uddg redirect parameter.
func resolveRedirect(href string) string {
	if !strings.Contains(href, "uddg=") {
		return href
	}
	raw := href[strings.Index(href, "uddg=")+len("uddg="):]
	if i := strings.IndexByte(raw, '&'); i >= 0 {
		raw = raw[:i]
	}
	if decoded, err := url.QueryUnescape(raw); err == nil {
		return decoded
	}
	return href
}
