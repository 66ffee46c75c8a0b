package retrieval

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/net/html"
)

// ForumSearcher finds topics on a Discourse community forum
type ForumSearcher struct {
	fetcher
	baseURL string
}

// NewForumSearcher creates a forum searcher for the forum at baseURL
func NewForumSearcher(client *http.Client, userAgent, baseURL string) *ForumSearcher {
	return &ForumSearcher{
		fetcher: newFetcher(client, userAgent),
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// Search implements Source
func (s *ForumSearcher) Search(ctx context.Context, query string) ([]SearchResult, error) {
	doc, err := s.fetchHTML(ctx, s.baseURL+"/search?q="+url.QueryEscape(query))
	if err != nil {
		return nil, err
	}
	return parseForumResults(doc, s.baseURL, MaxForum), nil
}

// parseForumResults collects distinct topic links ("/t/...") in page order
func parseForumResults(doc *html.Node, baseURL string, maxResults int) []SearchResult {
	var results []SearchResult
	seen := make(map[string]bool)

	walk(doc, func(n *html.Node) bool {
		if len(results) >= maxResults {
			return false
		}
		if n.Type != html.ElementNode || n.Data != "a" {
			return true
		}

		href := strings.TrimPrefix(getAttrValue(n, "href"), baseURL)
		if !strings.HasPrefix(href, "/t/") {
			return true
		}
		title := getTextContent(n)
		topic := baseURL + href
		if title == "" || seen[topic] {
			return true
		}

		seen[topic] = true
		results = append(results, SearchResult{Title: title, URL: topic})
		return true
	})

	return results
}
