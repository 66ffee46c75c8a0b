package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/whitelabel-ai/askai-service/internal/apperr"
	"github.com/whitelabel-ai/askai-service/internal/llm/provider"
	"github.com/whitelabel-ai/askai-service/internal/observability"
	"github.com/whitelabel-ai/askai-service/internal/retrieval"
	"github.com/whitelabel-ai/askai-service/internal/segment"
	"github.com/whitelabel-ai/askai-service/internal/suggestion"
	metrics "github.com/whitelabel-ai/askai-service/pkg/observability"
	"github.com/whitelabel-ai/askai-service/pkg/security"
)

const (
	// DefaultCompletionTimeout bounds one completion call
	DefaultCompletionTimeout = 120 * time.Second

	// DefaultMaxTokens caps generated output
	DefaultMaxTokens = 1024

	greetingText  = "¡Hola! Soy tu asistente de n8n. Cuéntame qué necesitas y te ayudo con tu workflow."
	emptyReply    = "No pude generar una respuesta. Intenta reformular la pregunta."
	turnFailed    = "Ocurrió un error al procesar tu mensaje."
	askFailed     = "Ask AI failed"
	noTextMessage = "payload required"
)

// defaultReplies close every turn that is not a templates answer
var defaultReplies = []QuickReply{
	{Type: ReplyNewSuggestion, Text: "Dame otra sugerencia"},
	{Type: ReplyResolved, Text: "Listo, gracias", IsFeedback: true},
}

// toolInfo names the tool message for each retrieval source
var toolInfo = map[string]struct{ name, title string }{
	retrieval.SourceDocs:      {"search_docs", "Buscando en la documentación"},
	retrieval.SourceForum:     {"search_forum", "Buscando en el foro de la comunidad"},
	retrieval.SourceTemplates: {"search_templates", "Buscando plantillas"},
}

// Retriever gathers knowledge-source results for a query
type Retriever interface {
	Query(ctx context.Context, text string) retrieval.Results
}

// Orchestrator runs chat turns and one-shot code questions
type Orchestrator struct {
	provider     provider.Provider
	providerName string
	retriever    Retriever
	engine       *suggestion.Engine
	templates    TemplateResponder
	logger       *zap.Logger
	timeout      time.Duration
	maxTokens    int
	model        string
	newSession   func() string
}

// Option configures an Orchestrator
type Option func(*Orchestrator)

// WithLogger sets the fallback logger used when a request carries none
func WithLogger(l *zap.Logger) Option {
	return func(o *Orchestrator) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithCompletionTimeout bounds every completion call
func WithCompletionTimeout(d time.Duration) Option {
	return func(o *Orchestrator) {
		if d > 0 {
			o.timeout = d
		}
	}
}

// WithMaxTokens caps generated output
func WithMaxTokens(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.maxTokens = n
		}
	}
}

// WithModel overrides the provider's default model
func WithModel(model string) Option {
	return func(o *Orchestrator) {
		o.model = model
	}
}

// WithProviderName names the configured provider in misconfiguration errors
func WithProviderName(name string) Option {
	return func(o *Orchestrator) {
		o.providerName = name
	}
}

// WithSessionIDFunc overrides session id generation (tests)
func WithSessionIDFunc(fn func() string) Option {
	return func(o *Orchestrator) {
		o.newSession = fn
	}
}

// NewOrchestrator creates an orchestrator. A nil provider is allowed: every
// operation needing it then fails with a misconfiguration error.
func NewOrchestrator(p provider.Provider, retriever Retriever, engine *suggestion.Engine, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		provider:   p,
		retriever:  retriever,
		engine:     engine,
		logger:     zap.NewNop(),
		timeout:    DefaultCompletionTimeout,
		maxTokens:  DefaultMaxTokens,
		newSession: uuid.NewString,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.providerName == "" && p != nil {
		o.providerName = p.Name()
	}
	return o
}

// Configured reports whether a completion provider is available
func (o *Orchestrator) Configured() bool {
	return o.provider != nil
}

func (o *Orchestrator) misconfigured() error {
	name := o.providerName
	if name == "" {
		name = "provider"
	}
	return apperr.Misconfiguration(fmt.Sprintf("Service misconfigured: %s key missing", strings.ToUpper(name)))
}

// Chat runs one chat turn. Request-shape and configuration problems are
// returned as errors; anything failing inside the turn becomes an error
// message in an otherwise successful response.
func (o *Orchestrator) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = o.newSession()
	}

	text := req.UserText()
	if strings.TrimSpace(text) == "" && req.Payload.Type == "" {
		return nil, apperr.Validation(noTextMessage)
	}
	if o.provider == nil {
		return nil, o.misconfigured()
	}

	ctx, span := observability.StartSpanWithOtel(ctx, "chat.turn",
		trace.WithAttributes(
			attribute.String("chat.session_id", sessionID),
			attribute.String("chat.payload_type", req.Payload.Type),
		),
	)
	defer span.End()

	messages, branch, err := o.runTurn(ctx, sessionID, req, text)
	if err != nil {
		observability.LoggerFromContext(ctx, o.logger).Warn("chat turn failed",
			zap.String("session_id", sessionID),
			zap.Error(err),
		)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		messages, branch = append(messages, ErrorMessage(clientMessage(err, turnFailed))), metrics.BranchError
	}

	span.SetAttributes(attribute.String("chat.branch", branch), attribute.Int("chat.messages", len(messages)))
	metrics.RecordChatTurn(branch)

	return &ChatResponse{SessionID: sessionID, Messages: messages}, nil
}

// runTurn does the work of Chat. On error it returns the tool messages
// produced so far so the client still sees which searches ran.
func (o *Orchestrator) runTurn(ctx context.Context, sessionID string, req ChatRequest, text string) (messages []Message, branch string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("chat turn panic: %v", r)
		}
	}()

	query := strings.TrimSpace(text)
	if query == "" {
		greeting := TextMessage(greetingText)
		greeting.QuickReplies = append([]QuickReply(nil), defaultReplies...)
		return []Message{greeting}, metrics.BranchGreeting, nil
	}

	results := o.retrieve(ctx, query)
	messages = toolMessages(query, results)

	if content, ok := o.templates.Respond(query, results.Templates); ok {
		return append(messages, content...), metrics.BranchTemplates, nil
	}

	raw, err := o.complete(ctx, chatSystemPrompt, BuildChatPrompt(text, results, req.Payload.Context))
	if err != nil {
		return messages, metrics.BranchCompletion, err
	}

	return append(messages, o.assemble(ctx, sessionID, req, raw)...), metrics.BranchCompletion, nil
}

func (o *Orchestrator) retrieve(ctx context.Context, query string) retrieval.Results {
	if o.retriever == nil {
		return retrieval.Results{}
	}
	return o.retriever.Query(ctx, query)
}

// toolMessages announces every search and then reports its outcome. The
// searches run concurrently, so all start before any completes.
func toolMessages(query string, results retrieval.Results) []Message {
	if len(results.Reports) == 0 {
		return nil
	}

	input := ToolUpdate{Type: "input", Data: map[string]string{"query": query}}
	out := make([]Message, 0, 2*len(results.Reports))
	for _, r := range results.Reports {
		info := toolInfo[r.Source]
		out = append(out, ToolMessage(info.name, info.title, ToolRunning, input))
	}
	for _, r := range results.Reports {
		info := toolInfo[r.Source]
		output := ToolUpdate{Type: "output", Data: map[string]any{"titles": resultTitles(r.Source, results)}}
		out = append(out, ToolMessage(info.name, info.title, ToolCompleted, output))
	}
	return out
}

func resultTitles(source string, results retrieval.Results) []string {
	titles := []string{}
	switch source {
	case retrieval.SourceDocs:
		for _, r := range results.Docs {
			titles = append(titles, r.Title)
		}
	case retrieval.SourceForum:
		for _, r := range results.Forum {
			titles = append(titles, r.Title)
		}
	case retrieval.SourceTemplates:
		for _, r := range results.Templates {
			titles = append(titles, r.Title)
		}
	}
	return titles
}

// assemble turns generated text into content messages, proposing a code
// replacement when the node already has code.
func (o *Orchestrator) assemble(ctx context.Context, sessionID string, req ChatRequest, raw string) []Message {
	segments := segment.Split(raw)
	blocks := segment.Code(segments)

	var diff *Message
	var selected string
	if original := req.originalCode(); original != "" && len(blocks) > 0 && o.engine != nil {
		selected, _ = suggestion.SelectPreferredCode(blocks, req.Payload.Context.LanguageHint())
		id, err := o.engine.Register(ctx, sessionID, original, selected)
		if err != nil {
			observability.LoggerFromContext(ctx, o.logger).Warn("suggestion not registered", zap.Error(err))
		} else {
			m := CodeDiffMessage(
				suggestion.Describe(original, selected),
				suggestion.BuildDiff(original, selected),
				id,
				append([]QuickReply(nil), defaultReplies...),
			)
			diff = &m
		}
	}

	var content []Message
	skipped := false
	for _, s := range segments {
		switch {
		case s.Kind == segment.KindCode:
			if diff != nil && !skipped && s.Content == selected {
				skipped = true
				continue
			}
			content = append(content, CodeMessage(s.Content))
		case s.Content != "":
			content = append(content, TextMessage(s.Content))
		}
	}

	if diff != nil {
		return append(content, *diff)
	}
	if len(content) == 0 {
		content = append(content, TextMessage(emptyReply))
	}
	content[len(content)-1].QuickReplies = append([]QuickReply(nil), defaultReplies...)
	return content
}

// Ask answers a one-shot question with code only
func (o *Orchestrator) Ask(ctx context.Context, req AskRequest) (string, error) {
	if strings.TrimSpace(req.Question) == "" {
		return "", apperr.Validation("question required")
	}
	if o.provider == nil {
		return "", o.misconfigured()
	}

	raw, err := o.complete(ctx, askSystemPrompt, BuildAskPrompt(req))
	if err != nil {
		observability.LoggerFromContext(ctx, o.logger).Warn("ask-ai completion failed", zap.Error(err))
		return "", apperr.Upstream(provider.StatusOf(err), clientMessage(err, askFailed), err)
	}

	blocks := segment.Code(segment.Split(raw))
	if len(blocks) == 0 {
		return strings.TrimSpace(raw), nil
	}
	code := make([]string, 0, len(blocks))
	for _, b := range blocks {
		code = append(code, b.Code)
	}
	return strings.Join(code, "\n\n"), nil
}

// Apply returns the code of a previously proposed suggestion
func (o *Orchestrator) Apply(ctx context.Context, req ApplyRequest) (*ApplyResponse, error) {
	if o.engine == nil {
		return nil, apperr.NotFound("Not found")
	}
	sg, err := o.engine.Apply(ctx, req.SessionID, req.SuggestionID)
	if err != nil {
		return nil, err
	}
	return &ApplyResponse{
		SessionID:  req.SessionID,
		Parameters: ApplyParameters{JSCode: sg.ProposedCode},
	}, nil
}

// complete runs one bounded completion call
func (o *Orchestrator) complete(ctx context.Context, system, user string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	resp, err := o.provider.CreateCompletion(ctx, provider.CompletionRequest{
		Messages:  provider.SystemUser(system, user),
		Model:     o.model,
		MaxTokens: o.maxTokens,
	})
	if err != nil {
		return "", err
	}
	if resp == nil {
		return "", errors.New("empty completion response")
	}
	return resp.Content, nil
}

// clientMessage is the sanitised error text shown to a client
func clientMessage(err error, fallback string) string {
	var pe *provider.ProviderError
	msg := err.Error()
	if errors.As(err, &pe) && pe.Message != "" {
		msg = pe.Message
	}
	if msg = security.SanitizeMessage(msg); msg == "" {
		return fallback
	}
	return msg
}
