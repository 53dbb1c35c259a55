package parsing

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
	"golang.org/x/net/publicsuffix"

	"github.com/halit-vural/autorag/internal/models"
)

var (
	contentTags    = []atom.Atom{atom.Article, atom.Main}
	contentClasses = []string{"content", "main-content", "post-content"}
	skippedExts    = []string{".pdf", ".jpg", ".png"}
)

// WebsiteReader crawls a site breadth first from a start URL, staying on its domain.
// Only pages with a recognisable main content element produce documents.
type WebsiteReader struct {
	MaxDepth  int
	MaxLinks  int
	ChunkSize int

	client *resty.Client
	logger *zap.Logger
}

func NewWebsiteReader(logger *zap.Logger) *WebsiteReader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WebsiteReader{
		MaxDepth:  1,
		MaxLinks:  2,
		ChunkSize: DefaultChunkSize,
		client: resty.New().
			SetTimeout(15*time.Second).
			SetHeader("User-Agent", "Mozilla/5.0 (compatible; autorag/1.0)"),
		logger: logger,
	}
}

type crawlItem struct {
	url   string
	depth int
}

// Read returns the chunked main content of up to MaxLinks pages. Fetch failures are logged and skipped.
func (r *WebsiteReader) Read(ctx context.Context, startURL string) ([]models.Document, error) {
	start, err := url.Parse(strings.TrimSpace(startURL))
	if err != nil || start.Host == "" {
		return nil, fmt.Errorf("invalid url %q", startURL)
	}
	primary := primaryDomain(start.Hostname())

	visited := map[string]bool{}
	queued := map[string]bool{start.String(): true}
	queue := []crawlItem{{url: start.String(), depth: 1}}
	pages := 0

	var docs []models.Document
	for len(queue) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		item := queue[0]
		queue = queue[1:]

		if visited[item.url] || item.depth > r.MaxDepth || pages >= r.MaxLinks {
			continue
		}
		visited[item.url] = true

		root, err := r.fetch(ctx, item.url)
		if err != nil {
			r.logger.Warn("failed to crawl page", zap.String("url", item.url), zap.Error(err))
			continue
		}

		if content := mainContent(root); content != "" {
			doc := models.Document{
				ID:      item.url,
				Name:    startURL,
				Content: content,
				Meta:    map[string]any{"url": item.url},
			}
			docs = append(docs, ChunkDocument(doc, r.ChunkSize)...)
			pages++
		}

		base, _ := url.Parse(item.url)
		for _, link := range links(root, base) {
			if queued[link] || !sameDomain(link, primary) {
				continue
			}
			queued[link] = true
			queue = append(queue, crawlItem{url: link, depth: item.depth + 1})
		}
	}

	return docs, nil
}

func (r *WebsiteReader) fetch(ctx context.Context, pageURL string) (*html.Node, error) {
	resp, err := r.client.R().SetContext(ctx).Get(pageURL)
	if err != nil {
		return nil, err
	}
	if resp.IsError() {
		return nil, fmt.Errorf("server returned status: %s", resp.Status())
	}
	return html.Parse(bytes.NewReader(resp.Body()))
}

func primaryDomain(host string) string {
	if domain, err := publicsuffix.EffectiveTLDPlusOne(host); err == nil {
		return domain
	}
	return host
}

func sameDomain(link, primary string) bool {
	u, err := url.Parse(link)
	if err != nil {
		return false
	}
	host := u.Hostname()
	return host == primary || strings.HasSuffix(host, "."+primary)
}

// links collects absolute http(s) hrefs without fragments, skipping binary files.
func links(root *html.Node, base *url.URL) []string {
	var out []string
	walk(root, func(n *html.Node) bool {
		if n.Type != html.ElementNode || n.DataAtom != atom.A {
			return true
		}
		href := strings.TrimSpace(attr(n, "href"))
		if href == "" {
			return true
		}
		ref, err := url.Parse(href)
		if err != nil {
			return true
		}
		abs := base.ResolveReference(ref)
		abs.Fragment = ""
		if abs.Scheme != "http" && abs.Scheme != "https" {
			return true
		}
		for _, ext := range skippedExts {
			if strings.HasSuffix(strings.ToLower(abs.Path), ext) {
				return true
			}
		}
		out = append(out, abs.String())
		return true
	})
	return out
}

// mainContent returns the text of the first article or main element, else of the first div with a content class.
func mainContent(root *html.Node) string {
	for _, tag := range contentTags {
		if n := find(root, func(n *html.Node) bool { return n.Type == html.ElementNode && n.DataAtom == tag }); n != nil {
			return text(n)
		}
	}
	for _, class := range contentClasses {
		n := find(root, func(n *html.Node) bool {
			return n.Type == html.ElementNode && n.DataAtom == atom.Div && hasClass(n, class)
		})
		if n != nil {
			return text(n)
		}
	}
	return ""
}

func find(root *html.Node, match func(*html.Node) bool) *html.Node {
	var found *html.Node
	walk(root, func(n *html.Node) bool {
		if found != nil {
			return false
		}
		if match(n) {
			found = n
			return false
		}
		return true
	})
	return found
}

// walk visits n and its descendants depth first; visit returns false to skip a subtree.
func walk(n *html.Node, visit func(*html.Node) bool) {
	if !visit(n) {
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c, visit)
	}
}

func text(n *html.Node) string {
	var parts []string
	walk(n, func(c *html.Node) bool {
		if c.Type == html.ElementNode && (c.DataAtom == atom.Script || c.DataAtom == atom.Style || c.DataAtom == atom.Noscript) {
			return false
		}
		if c.Type == html.TextNode {
			if t := strings.TrimSpace(c.Data); t != "" {
				parts = append(parts, t)
			}
		}
		return true
	})
	return strings.Join(parts, " ")
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
