package security

import (
	"errors"
	"sync"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewAuditEvent(t *testing.T) {
	event := NewAuditEvent(EventTokenIssued, "license-certificate-1234", nil)

	if event.Timestamp.IsZero() {
		t.Error("timestamp should be set")
	}
	if event.EventType != EventTokenIssued {
		t.Errorf("event type = %q", event.EventType)
	}
	if event.Subject != "lice****1234" {
		t.Errorf("subject = %q, want masked licence", event.Subject)
	}
	if event.Result != ResultSuccess || event.Error != "" {
		t.Errorf("result = %q, error = %q", event.Result, event.Error)
	}

	failed := NewAuditEvent(EventAuthDenied, "", errors.New("token sk-abcdefghijklmnop rejected"))
	if failed.Result != ResultFailure {
		t.Errorf("result = %q, want failure", failed.Result)
	}
	if failed.Subject != "" {
		t.Errorf("subject = %q, want empty", failed.Subject)
	}
	if failed.Error != "token [REDACTED] rejected" {
		t.Errorf("error = %q, want sanitized", failed.Error)
	}
}

func TestZapAuditLogger(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	audit := NewZapAuditLogger(zap.New(core))

	ok := NewAuditEvent(EventSuggestionApplied, "cert-abcdefgh", nil)
	ok.RequestID = "req-1"
	ok.Resource = "suggestion-1"
	audit.Log(ok)
	audit.Log(NewAuditEvent(EventAuthDenied, "", errors.New("expired")))
	audit.Log(nil)

	entries := logs.All()
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}

	first := entries[0]
	if first.Level != zapcore.InfoLevel || first.Message != "audit" {
		t.Errorf("first entry = %s %q", first.Level, first.Message)
	}
	fields := first.ContextMap()
	if fields["audit"] != true || fields["event_type"] != EventSuggestionApplied {
		t.Errorf("unexpected fields: %v", fields)
	}
	if fields["request_id"] != "req-1" || fields["resource"] != "suggestion-1" {
		t.Errorf("unexpected fields: %v", fields)
	}
	if _, present := fields["error"]; present {
		t.Error("error field should be omitted on success")
	}

	second := entries[1]
	if second.Level != zapcore.WarnLevel {
		t.Errorf("failure level = %s, want warn", second.Level)
	}
	if second.ContextMap()["error"] != "expired" {
		t.Errorf("error field = %v", second.ContextMap()["error"])
	}
}

func TestInMemoryAuditLogger_Concurrent(t *testing.T) {
	audit := NewInMemoryAuditLogger()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			audit.Log(NewAuditEvent(EventTokenIssued, "cert", nil))
		}()
	}
	wg.Wait()
	audit.Log(nil)

	events := audit.GetEvents()
	if len(events) != 50 {
		t.Fatalf("expected 50 events, got %d", len(events))
	}
	events[0].EventType = "changed"
	if audit.GetEvents()[0].EventType != EventTokenIssued {
		t.Error("GetEvents should return a copy")
	}

	NoOpAuditLogger{}.Log(NewAuditEvent(EventTokenIssued, "cert", nil))
}
