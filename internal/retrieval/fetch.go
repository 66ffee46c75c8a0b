package retrieval

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"golang.org/x/net/html"
)

// maxPageSize bounds how much of a result page is parsed
const maxPageSize = 2 << 20

// fetcher downloads and parses HTML pages
type fetcher struct {
	client    *http.Client
	userAgent string
}

func newFetcher(client *http.Client, userAgent string) fetcher {
	if client == nil {
		client = http.DefaultClient
	}
	if userAgent == "" {
		userAgent = "Mozilla/5.0"
	}
	return fetcher{client: client, userAgent: userAgent}
}

// fetchHTML GETs pageURL and parses the body. Non-2xx responses are errors.
func (f fetcher) fetchHTML(ctx context.Context, pageURL string) (*html.Node, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	// Set headers to look like a browser
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, resp.Status)
	}

	doc, err := html.Parse(io.LimitReader(resp.Body, maxPageSize))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}
	return doc, nil
}

// walk visits n and its descendants depth-first until visit returns false
func walk(n *html.Node, visit func(*html.Node) bool) bool {
	if !visit(n) {
		return false
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if !walk(c, visit) {
			return false
		}
	}
	return true
}

// getAttrValue returns the value of an attribute.
func getAttrValue(n *html.Node, key string) string {
	for _, attr := range n.Attr {
		if attr.Key == key {
			return attr.Val
		}
	}
	return ""
}

// hasClass reports whether n's class list contains class
func hasClass(n *html.Node, class string) bool {
	for _, c := range strings.Fields(getAttrValue(n, "class")) {
		if c == class {
			return true
		}
	}
	return false
}

// getTextContent returns all text content within a node, whitespace collapsed.
func getTextContent(n *html.Node) string {
	var parts []string
	walk(n, func(c *html.Node) bool {
		if c.Type == html.TextNode {
			if t := strings.TrimSpace(c.Data); t != "" {
				parts = append(parts, t)
			}
		}
		return true
	})
	return strings.Join(strings.Fields(strings.Join(parts, " ")), " ")
}

// metaDescription returns the page description from <meta name="description">
// or, failing that, <meta property="og:description">.
func metaDescription(doc *html.Node) string {
	var description, og string
	walk(doc, func(n *html.Node) bool {
		if n.Type != html.ElementNode || n.Data != "meta" {
			return true
		}
		content := strings.TrimSpace(getAttrValue(n, "content"))
		switch {
		case strings.EqualFold(getAttrValue(n, "name"), "description") && description == "":
			description = content
		case strings.EqualFold(getAttrValue(n, "property"), "og:description") && og == "":
			og = content
		}
		return description == ""
	})
	if description != "" {
		return description
	}
	return og
}
