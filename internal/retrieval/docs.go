package retrieval

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/net/html"
)

// DocsSearcher finds documentation pages through a site-restricted
// DuckDuckGo HTML search.
type DocsSearcher struct {
	fetcher
	searchURL string
	site      string
}

// NewDocsSearcher creates a docs searcher. searchURL is the DuckDuckGo HTML
// endpoint and site the documentation host the query is restricted to.
func NewDocsSearcher(client *http.Client, userAgent, searchURL, site string) *DocsSearcher {
	return &DocsSearcher{
		fetcher:   newFetcher(client, userAgent),
		searchURL: searchURL,
		site:      site,
	}
}

// Search implements Source
func (s *DocsSearcher) Search(ctx context.Context, query string) ([]SearchResult, error) {
	q := query
	if s.site != "" {
		q = "site:" + s.site + " " + query
	}

	doc, err := s.fetchHTML(ctx, s.searchURL+"?q="+url.QueryEscape(q))
	if err != nil {
		return nil, err
	}
	return parseDuckDuckGoResults(doc, MaxDocs), nil
}

// parseDuckDuckGoResults extracts result__a links from a DuckDuckGo page.
func parseDuckDuckGoResults(doc *html.Node, maxResults int) []SearchResult {
	var results []SearchResult

	walk(doc, func(n *html.Node) bool {
		if len(results) >= maxResults {
			return false
		}
		if n.Type != html.ElementNode || n.Data != "a" || !hasClass(n, "result__a") {
			return true
		}

		href := getAttrValue(n, "href")
		title := getTextContent(n)
		if href != "" && title != "" {
			results = append(results, SearchResult{Title: title, URL: unwrapRedirect(href)})
		}
		return true
	})

	return results
}

// unwrapRedirect resolves DuckDuckGo's "/l/?uddg=<target>" redirect links
func unwrapRedirect(href string) string {
	if !strings.Contains(href, "uddg=") {
		return href
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
