package retrieval

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/whitelabel-ai/askai-service/internal/observability"
	metrics "github.com/whitelabel-ai/askai-service/pkg/observability"
)

// DefaultTimeout bounds every individual source call
const DefaultTimeout = 5 * time.Second

// Aggregator fans a query out to the three knowledge sources. It never
// fails: a source that errors, times out or panics contributes nothing.
type Aggregator struct {
	docs      Source
	forum     Source
	templates TemplateSource
	enricher  Enricher
	timeout   time.Duration
	logger    *zap.Logger
}

// Option configures an Aggregator
type Option func(*Aggregator)

// WithTimeout overrides the per-source timeout
func WithTimeout(d time.Duration) Option {
	return func(a *Aggregator) {
		if d > 0 {
			a.timeout = d
		}
	}
}

// WithEnricher enables best-effort template summaries
func WithEnricher(e Enricher) Option {
	return func(a *Aggregator) {
		a.enricher = e
	}
}

// WithLogger sets the logger
func WithLogger(l *zap.Logger) Option {
	return func(a *Aggregator) {
		if l != nil {
			a.logger = l
		}
	}
}

// NewAggregator creates an aggregator over the given sources. Any source may
// be nil, in which case it always contributes an empty list.
func NewAggregator(docs, forum Source, templates TemplateSource, opts ...Option) *Aggregator {
	a := &Aggregator{
		docs:      docs,
		forum:     forum,
		templates: templates,
		timeout:   DefaultTimeout,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Query searches all sources concurrently and returns capped results. An
// empty query makes no calls.
func (a *Aggregator) Query(ctx context.Context, text string) Results {
	text = strings.TrimSpace(text)
	res := Results{
		Docs:      []SearchResult{},
		Forum:     []SearchResult{},
		Templates: []TemplateResult{},
		Reports: []Report{
			{Source: SourceDocs},
			{Source: SourceForum},
			{Source: SourceTemplates},
		},
	}
	if text == "" {
		return res
	}

	var g errgroup.Group

	g.Go(func() error {
		if a.docs == nil {
			return nil
		}
		docs, report := collect(ctx, a, SourceDocs, MaxDocs, func(ctx context.Context) ([]SearchResult, error) {
			return a.docs.Search(ctx, text)
		})
		res.Docs, res.Reports[0] = docs, report
		return nil
	})

	g.Go(func() error {
		if a.forum == nil {
			return nil
		}
		forum, report := collect(ctx, a, SourceForum, MaxForum, func(ctx context.Context) ([]SearchResult, error) {
			return a.forum.Search(ctx, text)
		})
		res.Forum, res.Reports[1] = forum, report
		return nil
	})

	g.Go(func() error {
		if a.templates == nil {
			return nil
		}
		templates, report := collect(ctx, a, SourceTemplates, MaxTemplates, func(ctx context.Context) ([]TemplateResult, error) {
			return a.templates.SearchTemplates(ctx, text)
		})
		a.enrich(ctx, templates)
		res.Templates, res.Reports[2] = templates, report
		return nil
	})

	_ = g.Wait()
	return res
}

// collect runs one source call under the aggregator's timeout, absorbing
// errors and panics, and caps the result list.
func collect[T any](ctx context.Context, a *Aggregator, source string, limit int, fn func(context.Context) ([]T, error)) ([]T, Report) {
	ctx, span := observability.StartSpanWithOtel(ctx, "retrieval."+source,
		trace.WithAttributes(attribute.String("retrieval.source", source)))
	defer span.End()

	start := time.Now()
	items, err := callWithTimeout(ctx, a.timeout, fn)
	duration := time.Since(start)

	if err != nil {
		a.logger.Debug("search failed",
			zap.String("source", source),
			zap.Duration("duration", duration),
			zap.Error(err))
		span.RecordError(err)
		items = nil
	}
	if len(items) > limit {
		items = items[:limit]
	}
	if items == nil {
		items = []T{}
	}

	span.SetAttributes(attribute.Int("retrieval.count", len(items)))
	metrics.RecordSearch(source, len(items), err != nil, duration)

	return items, Report{Source: source, Count: len(items), Duration: duration, Failed: err != nil}
}

// callWithTimeout returns when fn does or when the timeout fires, whichever
// comes first, so a source that ignores cancellation cannot stall the turn.
func callWithTimeout[T any](ctx context.Context, timeout time.Duration, fn func(context.Context) ([]T, error)) ([]T, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type result struct {
		items []T
		err   error
	}
	done := make(chan result, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- result{err: fmt.Errorf("search panicked: %v", r)}
			}
		}()
		items, err := fn(ctx)
		done <- result{items: items, err: err}
	}()

	select {
	case r := <-done:
		return r.items, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// enrich fills Summary for the first templates. Failures leave it empty.
func (a *Aggregator) enrich(ctx context.Context, templates []TemplateResult) {
	if a.enricher == nil {
		return
	}

	var g errgroup.Group
	for i := range templates {
		if i >= MaxEnriched {
			break
		}
		if templates[i].PageURL == "" || templates[i].Summary != "" {
			continue
		}
		g.Go(func() error {
			summary, err := callWithTimeout(ctx, a.timeout, func(ctx context.Context) ([]string, error) {
				s, err := a.enricher.Summary(ctx, templates[i].PageURL)
				return []string{s}, err
			})
			if err != nil || len(summary) == 0 {
				a.logger.Debug("template summary unavailable", zap.String("id", templates[i].ID), zap.Error(err))
				return nil
			}
			templates[i].Summary = strings.TrimSpace(summary[0])
			return nil
		})
	}
	_ = g.Wait()
}
