package security

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestSSRFValidator_ValidateIP(t *testing.T) {
	v := NewSSRFValidator(SSRFConfig{})

	tests := []struct {
		ip      string
		blocked bool
	}{
		{"8.8.8.8", false},
		{"104.18.12.33", false},
		{"2606:4700::6810:1", false},
		{"127.0.0.1", true},
		{"::1", true},
		{"10.1.2.3", true},
		{"172.16.0.1", true},
		{"192.168.1.10", true},
		{"169.254.169.254", true},
		{"fe80::1", true},
		{"224.0.0.1", true},
		{"0.0.0.0", true},
	}

	for _, tt := range tests {
		t.Run(tt.ip, func(t *testing.T) {
			err := v.ValidateIP(net.ParseIP(tt.ip))
			if tt.blocked && !errors.Is(err, ErrBlockedDestination) {
				t.Errorf("ValidateIP(%s) = %v, want blocked", tt.ip, err)
			}
			if !tt.blocked && err != nil {
				t.Errorf("ValidateIP(%s) = %v, want nil", tt.ip, err)
			}
		})
	}

	if err := v.ValidateIP(nil); !errors.Is(err, ErrBlockedDestination) {
		t.Errorf("ValidateIP(nil) = %v, want blocked", err)
	}
}

func TestSSRFValidator_ValidateURL(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		config  SSRFConfig
		url     string
		wantErr bool
	}{
		{name: "public ip", url: "https://8.8.8.8/search", wantErr: false},
		{name: "loopback", url: "http://127.0.0.1:8080/", wantErr: true},
		{name: "ipv6 loopback", url: "http://[::1]:11434", wantErr: true},
		{name: "metadata service", url: "http://169.254.169.254/latest/meta-data", wantErr: true},
		{name: "private range", url: "http://10.0.0.1/admin", wantErr: true},
		{name: "file scheme", url: "file:///etc/passwd", wantErr: true},
		{name: "ftp scheme", url: "ftp://8.8.8.8/", wantErr: true},
		{name: "missing host", url: "http:///path", wantErr: true},
		{name: "malformed", url: "http://[::1", wantErr: true},
		{name: "private allowed", config: SSRFConfig{AllowPrivate: true}, url: "http://127.0.0.1:8080/", wantErr: false},
		{name: "custom scheme", config: SSRFConfig{AllowedSchemes: []string{"HTTPS"}}, url: "http://8.8.8.8/", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewSSRFValidator(tt.config).ValidateURL(ctx, tt.url)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateURL(%q) error = %v, wantErr %v", tt.url, err, tt.wantErr)
			}
		})
	}
}

func TestSSRFValidator_HTTPClientBlocksLoopback(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "internal")
	}))
	defer server.Close()

	client := NewSSRFValidator(SSRFConfig{}).HTTPClient(5 * time.Second)
	resp, err := client.Get(server.URL)
	if err == nil {
		_ = resp.Body.Close()
		t.Fatal("expected loopback request to be refused")
	}
	if !errors.Is(err, ErrBlockedDestination) {
		t.Errorf("error = %v, want ErrBlockedDestination", err)
	}
}

func TestSSRFValidator_HTTPClientAllowPrivate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "ok")
	}))
	defer server.Close()

	client := NewSSRFValidator(SSRFConfig{AllowPrivate: true}).HTTPClient(5 * time.Second)
	resp, err := client.Get(server.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, _ := io.ReadAll(resp.Body)
	if string(body) != "ok" {
		t.Errorf("body = %q, want ok", body)
	}
}

func TestSSRFValidator_RedirectLimits(t *testing.T) {
	var server *httptest.Server
	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/scheme":
			http.Redirect(w, r, "ftp://example.com/", http.StatusFound)
		default:
			http.Redirect(w, r, server.URL+r.URL.Path+"x", http.StatusFound)
		}
	}))
	defer server.Close()

	client := NewSSRFValidator(SSRFConfig{AllowPrivate: true}).HTTPClient(5 * time.Second)

	for _, path := range []string{"/scheme", "/loop"} {
		resp, err := client.Get(server.URL + path)
		if err == nil {
			_ = resp.Body.Close()
			t.Errorf("GET %s: expected redirect error", path)
		}
	}
}
