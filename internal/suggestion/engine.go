// Package suggestion turns generated code into whole-block replacement
// proposals and keeps them until a client applies one.
package suggestion

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/whitelabel-ai/askai-service/internal/apperr"
	"github.com/whitelabel-ai/askai-service/internal/segment"
	metrics "github.com/whitelabel-ai/askai-service/pkg/observability"
)

// Language families recognised by SelectPreferredCode
const (
	FamilyJavaScript = "javascript"
	FamilyTypeScript = "typescript"
	FamilyPython     = "python"
)

var familyTags = map[string][]string{
	FamilyJavaScript: {"javascript", "js"},
	FamilyTypeScript: {"typescript", "ts"},
	FamilyPython:     {"python", "py"},
}

// fallbackFamilies is the order used after the hinted family
var fallbackFamilies = []string{FamilyJavaScript, FamilyTypeScript, FamilyPython}

// hintFamily returns the family named by hint, or "" when none matches. Full
// names match anywhere in the hint; the short tags only as whole words, so
// "jsCode" is JavaScript while "itemLists" names no family.
func hintFamily(hint string) string {
	lower := strings.ToLower(hint)
	for _, family := range []string{FamilyPython, FamilyTypeScript, FamilyJavaScript} {
		if strings.Contains(lower, family) {
			return family
		}
	}

	for _, word := range hintWords(hint) {
		switch word {
		case "py":
			return FamilyPython
		case "ts":
			return FamilyTypeScript
		case "js":
			return FamilyJavaScript
		}
	}
	return ""
}

// hintWords lowercases hint and splits it at punctuation and at
// lower-to-upper case changes ("n8n-nodes.jsCode" -> n8n nodes js code).
func hintWords(hint string) []string {
	var words []string
	var word []rune
	flush := func() {
		if len(word) > 0 {
			words = append(words, string(word))
			word = word[:0]
		}
	}

	prevLower := false
	for _, r := range hint {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			flush()
			prevLower = false
			continue
		}
		if unicode.IsUpper(r) && prevLower {
			flush()
		}
		word = append(word, unicode.ToLower(r))
		prevLower = unicode.IsLower(r) || unicode.IsDigit(r)
	}
	flush()
	return words
}

// priorityTags returns the language tags in selection order for hint
func priorityTags(hint string) []string {
	first := hintFamily(hint)

	var tags []string
	if first != "" {
		tags = append(tags, familyTags[first]...)
	}
	for _, family := range fallbackFamilies {
		if family != first {
			tags = append(tags, familyTags[family]...)
		}
	}
	return append(tags, segment.DefaultLanguage)
}

// SelectPreferredCode picks the block to propose. It returns false when
// there are no blocks.
func SelectPreferredCode(blocks []segment.CodeBlock, languageHint string) (string, bool) {
	if len(blocks) == 0 {
		return "", false
	}

	for _, tag := range priorityTags(languageHint) {
		for _, b := range blocks {
			if strings.EqualFold(b.Language, tag) {
				return b.Code, true
			}
		}
	}
	return blocks[0].Code, true
}

// BuildDiff renders a whole-block replacement: a hunk header followed by
// every original line removed and every proposed line added.
func BuildDiff(original, proposed string) string {
	oldLines := splitLines(original)
	newLines := splitLines(proposed)

	var b strings.Builder
	fmt.Fprintf(&b, "@@ -1,%d +1,%d @@", len(oldLines), len(newLines))
	for _, line := range oldLines {
		b.WriteString("\n-")
		b.WriteString(line)
	}
	for _, line := range newLines {
		b.WriteString("\n+")
		b.WriteString(line)
	}
	return b.String()
}

func splitLines(s string) []string {
	return strings.Split(strings.ReplaceAll(s, "\r\n", "\n"), "\n")
}

// LineChanges counts lines added and removed between two versions using a
// line-mode diff.
func LineChanges(original, proposed string) (added, removed int) {
	dmp := diffmatchpatch.New()
	a, b, lines := dmp.DiffLinesToChars(
		strings.ReplaceAll(original, "\r\n", "\n"),
		strings.ReplaceAll(proposed, "\r\n", "\n"),
	)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(a, b, false), lines)

	for _, d := range diffs {
		n := countLines(d.Text)
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			added += n
		case diffmatchpatch.DiffDelete:
			removed += n
		}
	}
	return added, removed
}

func countLines(text string) int {
	if text == "" {
		return 0
	}
	parts := strings.Split(text, "\n")
	if parts[len(parts)-1] == "" {
		parts = parts[:len(parts)-1]
	}
	return len(parts)
}

// Describe summarises a replacement for the code-diff message
func Describe(original, proposed string) string {
	added, removed := LineChanges(original, proposed)
	if added == 0 && removed == 0 {
		return "Código sugerido sin cambios respecto al nodo"
	}
	return fmt.Sprintf("Reemplazar el código del nodo (+%d / -%d líneas)", added, removed)
}

// Engine mints and resolves suggestions against a Store
type Engine struct {
	store Store
	newID func() string
	now   func() time.Time
}

// EngineOption configures an Engine
type EngineOption func(*Engine)

// WithIDFunc overrides id generation (tests)
func WithIDFunc(fn func() string) EngineOption {
	return func(e *Engine) {
		e.newID = fn
	}
}

// WithNow overrides the clock (tests)
func WithNow(fn func() time.Time) EngineOption {
	return func(e *Engine) {
		e.now = fn
	}
}

// NewEngine creates an engine over store
func NewEngine(store Store, opts ...EngineOption) *Engine {
	e := &Engine{
		store: store,
		newID: uuid.NewString,
		now:   func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Register stores a new suggestion and returns its id
func (e *Engine) Register(ctx context.Context, sessionID, original, proposed string) (string, error) {
	sg := &Suggestion{
		ID:           e.newID(),
		SessionID:    sessionID,
		OriginalCode: original,
		ProposedCode: proposed,
		CreatedAt:    e.now(),
	}
	if err := e.store.Put(ctx, sg); err != nil {
		return "", fmt.Errorf("register suggestion: %w", err)
	}

	metrics.RecordSuggestion("registered")
	e.reportSize(ctx)
	return sg.ID, nil
}

// Apply returns the suggestion for sessionID. The entry stays in the store,
// so repeated calls return the same code.
func (e *Engine) Apply(ctx context.Context, sessionID, suggestionID string) (*Suggestion, error) {
	if sessionID == "" || suggestionID == "" {
		return nil, apperr.Validation("sessionId and suggestionId required")
	}

	sg, err := e.store.Get(ctx, suggestionID)
	if err != nil {
		if errors.Is(err, ErrSuggestionNotFound) {
			metrics.RecordSuggestion("not_found")
			return nil, apperr.NotFound("Not found")
		}
		return nil, fmt.Errorf("lookup suggestion: %w", err)
	}
	if sg.SessionID != sessionID {
		metrics.RecordSuggestion("session_mismatch")
		return nil, apperr.Conflict("Session mismatch")
	}

	metrics.RecordSuggestion("applied")
	return sg, nil
}

// Close releases the underlying store
func (e *Engine) Close() error {
	return e.store.Close()
}

func (e *Engine) reportSize(ctx context.Context) {
	if n, err := e.store.Len(ctx); err == nil {
		metrics.SetSuggestionsStored(n)
	}
}
