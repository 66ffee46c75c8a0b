package retrieval

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"
)

var leakOptions = []goleak.Option{
	goleak.IgnoreTopFunction("net/http.(*persistConn).readLoop"),
	goleak.IgnoreTopFunction("net/http.(*persistConn).writeLoop"),
	goleak.IgnoreTopFunction("internal/poll.runtime_pollWait"),
}

type fakeSource struct {
	results []SearchResult
	err     error
	block   bool
	panics  bool
	calls   atomic.Int32
}

func (f *fakeSource) Search(ctx context.Context, query string) ([]SearchResult, error) {
	f.calls.Add(1)
	if f.panics {
		panic("scraper exploded")
	}
	if f.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return f.results, f.err
}

type fakeTemplates struct {
	results []TemplateResult
	err     error
	calls   atomic.Int32
}

func (f *fakeTemplates) SearchTemplates(ctx context.Context, query string) ([]TemplateResult, error) {
	f.calls.Add(1)
	return f.results, f.err
}

type fakeEnricher struct {
	summaries map[string]string
	calls     atomic.Int32
}

func (f *fakeEnricher) Summary(ctx context.Context, pageURL string) (string, error) {
	f.calls.Add(1)
	s, ok := f.summaries[pageURL]
	if !ok {
		return "", errors.New("not found")
	}
	return s, nil
}

func results(n int) []SearchResult {
	out := make([]SearchResult, n)
	for i := range out {
		out[i] = SearchResult{Title: string(rune('a' + i)), URL: "https://example.com/" + string(rune('a'+i))}
	}
	return out
}

func templates(n int) []TemplateResult {
	out := make([]TemplateResult, n)
	for i := range out {
		id := string(rune('1' + i))
		out[i] = TemplateResult{
			SearchResult: SearchResult{Title: "t" + id},
			ID:           id,
			ImportURL:    "https://import/" + id,
			PageURL:      "https://page/" + id,
		}
	}
	return out
}

func TestAggregator_AllSources(t *testing.T) {
	defer goleak.VerifyNone(t, leakOptions...)

	docs := &fakeSource{results: results(5)}
	forum := &fakeSource{results: results(2)}
	tpl := &fakeTemplates{results: templates(7)}

	a := NewAggregator(docs, forum, tpl, WithLogger(zaptest.NewLogger(t)))
	res := a.Query(context.Background(), "slack")

	assert.Len(t, res.Docs, MaxDocs)
	assert.Len(t, res.Forum, 2)
	assert.Len(t, res.Templates, MaxTemplates)
	assert.False(t, res.Empty())

	require.Len(t, res.Reports, 3)
	assert.Equal(t, []string{SourceDocs, SourceForum, SourceTemplates},
		[]string{res.Reports[0].Source, res.Reports[1].Source, res.Reports[2].Source})
	assert.Equal(t, MaxDocs, res.Reports[0].Count)
}

func TestAggregator_FailedSourceIsolated(t *testing.T) {
	defer goleak.VerifyNone(t, leakOptions...)

	tests := []struct {
		name  string
		forum *fakeSource
	}{
		{"error", &fakeSource{err: errors.New("503")}},
		{"timeout", &fakeSource{block: true}},
		{"panic", &fakeSource{panics: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			docs := &fakeSource{results: results(2)}
			tpl := &fakeTemplates{results: templates(1)}

			a := NewAggregator(docs, tt.forum, tpl, WithTimeout(50*time.Millisecond))

			start := time.Now()
			res := a.Query(context.Background(), "code")
			assert.Less(t, time.Since(start), 2*time.Second)

			assert.Len(t, res.Docs, 2)
			assert.Empty(t, res.Forum)
			assert.NotNil(t, res.Forum)
			assert.Len(t, res.Templates, 1)
			assert.True(t, res.Reports[1].Failed)
			assert.False(t, res.Reports[0].Failed)
		})
	}
}

func TestAggregator_EmptyQuery(t *testing.T) {
	docs := &fakeSource{results: results(1)}
	forum := &fakeSource{results: results(1)}
	tpl := &fakeTemplates{results: templates(1)}

	res := NewAggregator(docs, forum, tpl).Query(context.Background(), "   ")

	assert.True(t, res.Empty())
	assert.Zero(t, docs.calls.Load())
	assert.Zero(t, forum.calls.Load())
	assert.Zero(t, tpl.calls.Load())
}

func TestAggregator_NilSources(t *testing.T) {
	res := NewAggregator(nil, nil, nil).Query(context.Background(), "x")
	assert.True(t, res.Empty())
	assert.NotNil(t, res.Docs)
	assert.NotNil(t, res.Templates)
}

func TestAggregator_Enrichment(t *testing.T) {
	defer goleak.VerifyNone(t, leakOptions...)

	tpl := &fakeTemplates{results: templates(5)}
	enricher := &fakeEnricher{summaries: map[string]string{
		"https://page/1": " First summary ",
		"https://page/3": "Third summary",
		"https://page/4": "never fetched",
	}}

	a := NewAggregator(nil, nil, tpl, WithEnricher(enricher))
	res := a.Query(context.Background(), "slack")

	require.Len(t, res.Templates, 5)
	assert.Equal(t, "First summary", res.Templates[0].Summary)
	assert.Empty(t, res.Templates[1].Summary)
	assert.Equal(t, "Third summary", res.Templates[2].Summary)
	assert.Empty(t, res.Templates[3].Summary)
	assert.Equal(t, int32(MaxEnriched), enricher.calls.Load())
}
