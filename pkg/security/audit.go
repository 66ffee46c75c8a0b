package security

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// Audit event types
const (
	EventTokenIssued       = "auth.token_issued"
	EventAuthDenied        = "auth.denied"
	EventSuggestionApplied = "suggestion.applied"
)

// Audit results
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
)

// AuditEvent represents a security-relevant action
type AuditEvent struct {
	Timestamp time.Time
	EventType string
	RequestID string
	// Subject is the masked licence certificate, when known
	Subject   string
	IPAddress string
	Resource  string
	Result    string
	Error     string
}

// AuditLogger records audit events
type AuditLogger interface {
	Log(event *AuditEvent)
}

// NewAuditEvent builds an event stamped with the current time. The licence
// certificate is masked and err, if any, is sanitized.
func NewAuditEvent(eventType, licenseCert string, err error) *AuditEvent {
	event := &AuditEvent{
		Timestamp: time.Now(),
		EventType: eventType,
		Subject:   MaskSecret(licenseCert),
		Result:    ResultSuccess,
	}
	if err != nil {
		event.Result = ResultFailure
		event.Error = SanitizeMessage(err.Error())
	}
	return event
}

// ZapAuditLogger writes audit events as structured log lines
type ZapAuditLogger struct {
	logger *zap.Logger
}

// NewZapAuditLogger creates an audit logger on top of logger, tagging every
// line with audit=true so events can be filtered from request logs.
func NewZapAuditLogger(logger *zap.Logger) *ZapAuditLogger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ZapAuditLogger{logger: logger.With(zap.Bool("audit", true))}
}

// Log implements AuditLogger
func (l *ZapAuditLogger) Log(event *AuditEvent) {
	if event == nil {
		return
	}
	fields := []zap.Field{
		zap.String("event_type", event.EventType),
		zap.Time("timestamp", event.Timestamp),
		zap.String("result", event.Result),
	}
	if event.RequestID != "" {
		fields = append(fields, zap.String("request_id", event.RequestID))
	}
	if event.Subject != "" {
		fields = append(fields, zap.String("subject", event.Subject))
	}
	if event.IPAddress != "" {
		fields = append(fields, zap.String("ip", event.IPAddress))
	}
	if event.Resource != "" {
		fields = append(fields, zap.String("resource", event.Resource))
	}
	if event.Error != "" {
		fields = append(fields, zap.String("error", event.Error))
	}

	if event.Result == ResultFailure {
		l.logger.Warn("audit", fields...)
		return
	}
	l.logger.Info("audit", fields...)
}

// InMemoryAuditLogger keeps events in memory (tests)
type InMemoryAuditLogger struct {
	mu     sync.Mutex
	events []AuditEvent
}

// NewInMemoryAuditLogger creates an empty in-memory audit logger
func NewInMemoryAuditLogger() *InMemoryAuditLogger {
	return &InMemoryAuditLogger{}
}

// Log implements AuditLogger
func (l *InMemoryAuditLogger) Log(event *AuditEvent) {
	if event == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, *event)
}

// GetEvents returns a copy of the recorded events
func (l *InMemoryAuditLogger) GetEvents() []AuditEvent {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]AuditEvent(nil), l.events...)
}

// NoOpAuditLogger discards events
type NoOpAuditLogger struct{}

// Log implements AuditLogger
func (NoOpAuditLogger) Log(*AuditEvent) {}
