package retrieval

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

// workflowLinkPattern matches catalog links such as /workflows/1234-slack-alerts/
var workflowLinkPattern = regexp.MustCompile(`^(?:https?://[^/]+)?/workflows/(\d+)-([^/?#]+)`)

// TemplateSearcher finds workflow templates in the public catalog and points
// them at the import flow of the configured n8n instance.
type TemplateSearcher struct {
	fetcher
	catalogURL string
	importBase string
}

// NewTemplateSearcher creates a template searcher. catalogURL is the catalog
// search page and importBase the instance that imports templates.
func NewTemplateSearcher(client *http.Client, userAgent, catalogURL, importBase string) *TemplateSearcher {
	return &TemplateSearcher{
		fetcher:    newFetcher(client, userAgent),
		catalogURL: catalogURL,
		importBase: strings.TrimRight(importBase, "/"),
	}
}

// ImportURL is the deterministic import link for template id
func (s *TemplateSearcher) ImportURL(id string) string {
	return fmt.Sprintf("%s/templates/%s/setup", s.importBase, id)
}

// SearchTemplates implements TemplateSource
func (s *TemplateSearcher) SearchTemplates(ctx context.Context, query string) ([]TemplateResult, error) {
	pageURL := s.catalogURL + "?q=" + url.QueryEscape(query)
	doc, err := s.fetchHTML(ctx, pageURL)
	if err != nil {
		return nil, err
	}

	origin := ""
	if u, err := url.Parse(s.catalogURL); err == nil {
		origin = u.Scheme + "://" + u.Host
	}
	return s.parseTemplates(doc, origin, MaxTemplates), nil
}

// Summary implements Enricher using the page's meta description
func (s *TemplateSearcher) Summary(ctx context.Context, pageURL string) (string, error) {
	doc, err := s.fetchHTML(ctx, pageURL)
	if err != nil {
		return "", err
	}
	return metaDescription(doc), nil
}

func (s *TemplateSearcher) parseTemplates(doc *html.Node, origin string, maxResults int) []TemplateResult {
	var results []TemplateResult
	seen := make(map[string]bool)

	walk(doc, func(n *html.Node) bool {
		if len(results) >= maxResults {
			return false
		}
		if n.Type != html.ElementNode || n.Data != "a" {
			return true
		}

		m := workflowLinkPattern.FindStringSubmatch(getAttrValue(n, "href"))
		if m == nil || seen[m[1]] {
			return true
		}
		id, slug := m[1], m[2]
		seen[id] = true

		results = append(results, TemplateResult{
			SearchResult: SearchResult{Title: titleFromSlug(slug)},
			ID:           id,
			ImportURL:    s.ImportURL(id),
			PageURL:      fmt.Sprintf("%s/workflows/%s-%s/", origin, id, slug),
		})
		return true
	})

	return results
}

// titleFromSlug turns "send-slack-alerts" into "send slack alerts"
func titleFromSlug(slug string) string {
	if decoded, err := url.PathUnescape(slug); err == nil {
		slug = decoded
	}
	return strings.TrimSpace(strings.ReplaceAll(slug, "-", " "))
}
