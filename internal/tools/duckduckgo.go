package tools

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

const (
	defaultSearchURL  = "https://html.duckduckgo.com/html/"
	DefaultMaxResults = 5
)

type SearchResult struct {
	Title string `json:"title"`
	Href  string `json:"href"`
	Body  string `json:"body"`
}

// DuckDuckGo searches the web through DuckDuckGo's HTML endpoint, which needs no API key.
type DuckDuckGo struct {
	client    *resty.Client
	searchURL string
}

func NewDuckDuckGo() *DuckDuckGo {
	return NewDuckDuckGoWithURL(defaultSearchURL)
}

func NewDuckDuckGoWithURL(searchURL string) *DuckDuckGo {
	return &DuckDuckGo{
		client: resty.New().
			SetTimeout(15*time.Second).
			SetHeader("User-Agent", "Mozilla/5.0 (compatible; autorag/1.0)"),
		searchURL: searchURL,
	}
}

func (d *DuckDuckGo) Search(ctx context.Context, query string, maxResults int) ([]SearchResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("query cannot be empty")
	}
	if maxResults <= 0 {
		maxResults = DefaultMaxResults
	}

	resp, err := d.client.R().
		SetContext(ctx).
		SetFormData(map[string]string{"q": query}).
		Post(d.searchURL)
	if err != nil {
		return nil, fmt.Errorf("duckduckgo request failed: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("duckduckgo returned status: %s", resp.Status())
	}

	root, err := html.Parse(bytes.NewReader(resp.Body()))
	if err != nil {
		return nil, fmt.Errorf("failed to parse duckduckgo response: %w", err)
	}

	return parseResults(root, maxResults), nil
}

// parseResults reads result__a anchors and the result__snippet that follows each.
func parseResults(root *html.Node, maxResults int) []SearchResult {
	var results []SearchResult
	var visit func(*html.Node)
	visit = func(n *html.Node) {
		if len(results) > maxResults {
			return
		}
		if n.Type == html.ElementNode && n.DataAtom == atom.A {
			switch {
			case hasClass(n, "result__a"):
				results = append(results, SearchResult{
					Title: nodeText(n),
					Href:  resolveHref(attr(n, "href")),
				})
				return
			case hasClass(n, "result__snippet") && len(results) > 0:
				results[len(results)-1].Body = nodeText(n)
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			visit(c)
		}
	}
	visit(root)

	if len(results) > maxResults {
		results = results[:maxResults]
	}
	return results
}

// resolveHref unwraps DuckDuckGo's /l/?uddg= redirect links.
func resolveHref(href string) string {
	if strings.HasPrefix(href, "//") {
		href = "https:" + href
	}
	u, err := url.Parse(href)
	if err != nil {
		return href
	}
	if target := u.Query().Get("uddg"); target != "" {
		return target
	}
	return href
}

func nodeText(n *html.Node) string {
	var b strings.Builder
	var visit func(*html.Node)
	visit = func(c *html.Node) {
		if c.Type == html.TextNode {
			b.WriteString(c.Data)
		}
		for child := c.FirstChild; child != nil; child = child.NextSibling {
			visit(child)
		}
	}
	visit(n)
	return strings.Join(strings.Fields(b.String()), " ")
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func hasClass(n *html.Node, class string) bool {
	for _, c := range strings.Fields(attr(n, "class")) {
		if c == class {
			return true
		}
	}
	return false
}
