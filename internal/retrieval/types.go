// Package retrieval queries the documentation, forum and template-catalog
// sites and aggregates their results for a chat turn.
package retrieval

import (
	"context"
	"time"
)

// Source names, in the order results are reported
const (
	SourceDocs      = "docs"
	SourceForum     = "forum"
	SourceTemplates = "templates"
)

// Per-source result caps
const (
	MaxDocs      = 3
	MaxForum     = 3
	MaxTemplates = 5
	// MaxEnriched bounds the summary lookups per query
	MaxEnriched = 3
)

// SearchResult is one hit from the docs or forum source
type SearchResult struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

// TemplateResult is one workflow template from the catalog
type TemplateResult struct {
	SearchResult
	ID        string `json:"id"`
	ImportURL string `json:"importUrl"`
	Summary   string `json:"summary,omitempty"`

	// PageURL is the catalog page used for summary enrichment. It is not
	// shown to clients, who import through ImportURL instead.
	PageURL string `json:"-"`
}

// Source searches one knowledge source
type Source interface {
	Search(ctx context.Context, query string) ([]SearchResult, error)
}

// TemplateSource searches the workflow-template catalog
type TemplateSource interface {
	SearchTemplates(ctx context.Context, query string) ([]TemplateResult, error)
}

// Enricher looks up a short description for a template page
type Enricher interface {
	Summary(ctx context.Context, pageURL string) (string, error)
}

// Report describes how one source behaved during a query
type Report struct {
	Source   string        `json:"source"`
	Count    int           `json:"count"`
	Duration time.Duration `json:"duration"`
	Failed   bool          `json:"failed"`
}

// Results holds the aggregated, capped results of one query
type Results struct {
	Docs      []SearchResult   `json:"docs"`
	Forum     []SearchResult   `json:"forum"`
	Templates []TemplateResult `json:"templates"`

	// Reports are in call order: docs, forum, templates
	Reports []Report `json:"-"`
}

// Empty reports whether no source returned anything
func (r Results) Empty() bool {
	return len(r.Docs) == 0 && len(r.Forum) == 0 && len(r.Templates) == 0
}
