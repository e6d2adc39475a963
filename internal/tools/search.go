package tools

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/html"

	"github.com/mwiater/compliance-agent/internal/logging"
)

const (
	// DefaultSearchEndpoint is the DuckDuckGo HTML interface.
	DefaultSearchEndpoint = "https://html.duckduckgo.com/html/"
	searchUserAgent       = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"
	maxSearchResults      = 3
	maxSearchBody         = 2 << 20
)

// GovernmentDomains is the allow-list searches are restricted to.
var GovernmentDomains = []string{"ird.govt.nz", "companies.govt.nz", "mbie.govt.nz"}

// SearchTool looks up recent regulatory information on NZ government sites.
// It never returns an error: failures degrade to guidance text.
type SearchTool struct {
	client   *http.Client
	endpoint string
}

// NewSearchTool builds a SearchTool. A nil client gets a 10 second timeout
// and an empty endpoint selects DefaultSearchEndpoint.
func NewSearchTool(client *http.Client, endpoint string) *SearchTool {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	if strings.TrimSpace(endpoint) == "" {
		endpoint = DefaultSearchEndpoint
	}
	return &SearchTool{client: client, endpoint: endpoint}
}

// Definition describes the search tool to the model.
func (s *SearchTool) Definition() Definition {
	return Definition{
		Name:        SearchName,
		Description: "Search the internet for recent New Zealand regulatory changes, compliance updates, and government announcements. Use for current information not in the compliance calendar.",
		Parameters: objectSchema(map[string]any{
			"query": map[string]any{
				"type":        "string",
				"description": "Search query for regulatory changes (e.g. 'New Zealand tax changes 2024', 'IRD compliance updates')",
			},
		}, "query"),
	}
}

// Invoke runs the search chain: HTML results first, then static guidance.
func (s *SearchTool) Invoke(ctx context.Context, args map[string]any) (string, error) {
	query, _ := args["query"].(string)
	query = strings.TrimSpace(query)

	results, err := s.search(ctx, query)
	if err != nil {
		logging.LogEvent("compliance search failed: %v", err)
		return searchFailure(err), nil
	}
	if len(results) == 0 {
		return searchFallback(query), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Recent search results for: %s", query)
	for _, r := range results {
		fmt.Fprintf(&b, "\n\n%s\n   %s\n   %s", r.Title, r.Snippet, r.URL)
	}
	return b.String(), nil
}

// SearchResult is one parsed hit.
type SearchResult struct {
	Title   string
	Snippet string
	URL     string
}

func focusQuery(query string) string {
	sites := make([]string, 0, len(GovernmentDomains))
	for _, d := range GovernmentDomains {
		sites = append(sites, "site:"+d)
	}
	return query + " " + strings.Join(sites, " OR ")
}

func (s *SearchTool) search(ctx context.Context, query string) ([]SearchResult, error) {
	endpoint, err := url.Parse(s.endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid search endpoint: %w", err)
	}
	params := endpoint.Query()
	params.Set("q", focusQuery(query))
	endpoint.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", searchUserAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		// Non-200 from the search page is treated as "no results".
		return nil, nil
	}

	doc, err := html.Parse(io.LimitReader(resp.Body, maxSearchBody))
	if err != nil {
		return nil, fmt.Errorf("parse search results: %w", err)
	}
	return parseResults(doc, maxSearchResults), nil
}

// parseResults walks div.result blocks and keeps those with both a title
// link (a.result__a) and a snippet (a.result__snippet).
func parseResults(doc *html.Node, limit int) []SearchResult {
	var out []SearchResult
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if len(out) >= limit {
			return
		}
		if n.Type == html.ElementNode && n.Data == "div" && hasClass(n, "result") {
			title := findElement(n, "a", "result__a")
			snippet := findElement(n, "a", "result__snippet")
			if title != nil && snippet != nil {
				out = append(out, SearchResult{
					Title:   strings.TrimSpace(textContent(title)),
					Snippet: strings.TrimSpace(textContent(snippet)),
					URL:     resolveLink(attr(title, "href")),
				})
			}
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return out
}

func findElement(n *html.Node, tag, class string) *html.Node {
	if n.Type == html.ElementNode && n.Data == tag && hasClass(n, class) {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findElement(c, tag, class); found != nil {
			return found
		}
	}
	return nil
}

func hasClass(n *html.Node, class string) bool {
	for _, field := range strings.Fields(attr(n, "class")) {
		if field == class {
			return true
		}
	}
	return false
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func textContent(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.Join(strings.Fields(b.String()), " ")
}

// resolveLink unwraps DuckDuckGo redirect links (//duckduckgo.com/l/?uddg=...).
func resolveLink(href string) string {
	u, err := url.Parse(href)
	if err != nil {
		return href
	}
	if target := u.Query().Get("uddg"); target != "" {
		return target
	}
	return href
}

func searchFallback(query string) string {
	return fmt.Sprintf(`Search for '%s' completed but no specific results found.

Recommended actions:
- Visit ird.govt.nz directly for latest tax updates
- Check companies.govt.nz for business compliance changes
- Review mbie.govt.nz for employment law updates
- Subscribe to IRD email updates for real-time notifications

Direct links:
- IRD News: https://www.ird.govt.nz/about-us/news-updates
- Companies Office Updates: https://www.companies.govt.nz/news-and-updates/
- MBIE Updates: https://www.mbie.govt.nz/about/news/`, query)
}

func searchFailure(err error) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Search failed: %v\nPlease check these official sources manually:", err)
	for _, d := range GovernmentDomains {
		b.WriteString("\n- " + d)
	}
	return b.String()
}
