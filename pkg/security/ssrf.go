package security

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"syscall"
	"time"
)

// maxRedirects bounds redirect chains followed by guarded clients
const maxRedirects = 5

// ErrBlockedDestination is returned when an outbound request targets an
// address the validator does not allow.
var ErrBlockedDestination = errors.New("destination not allowed")

// SSRFConfig controls which destinations outbound fetches may reach
type SSRFConfig struct {
	// AllowedSchemes defaults to http and https
	AllowedSchemes []string
	// AllowPrivate permits loopback, private and link-local addresses.
	// Only meant for local development and tests.
	AllowPrivate bool
}

// SSRFValidator guards the HTTP clients used to fetch third-party pages.
// The check runs on the dialed address, so a hostname that re-resolves to an
// internal address between validation and connect is still refused.
type SSRFValidator struct {
	schemes      map[string]bool
	allowPrivate bool
	resolver     *net.Resolver
}

// NewSSRFValidator creates a validator from config
func NewSSRFValidator(config SSRFConfig) *SSRFValidator {
	if len(config.AllowedSchemes) == 0 {
		config.AllowedSchemes = []string{"http", "https"}
	}
	schemes := make(map[string]bool, len(config.AllowedSchemes))
	for _, s := range config.AllowedSchemes {
		schemes[strings.ToLower(s)] = true
	}
	return &SSRFValidator{
		schemes:      schemes,
		allowPrivate: config.AllowPrivate,
		resolver:     net.DefaultResolver,
	}
}

// ValidateURL checks the scheme of rawURL and every address its host
// resolves to.
func (v *SSRFValidator) ValidateURL(ctx context.Context, rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if err := v.validateScheme(u); err != nil {
		return err
	}

	host := u.Hostname()
	if host == "" {
		return fmt.Errorf("%w: missing host", ErrBlockedDestination)
	}
	if ip := net.ParseIP(host); ip != nil {
		return v.ValidateIP(ip)
	}

	addrs, err := v.resolver.LookupIPAddr(ctx, host)
	if err != nil {
		return fmt.Errorf("resolve %s: %w", host, err)
	}
	for _, addr := range addrs {
		if err := v.ValidateIP(addr.IP); err != nil {
			return err
		}
	}
	return nil
}

// ValidateIP rejects loopback, private, link-local (cloud metadata included),
// multicast and unspecified addresses unless private targets are allowed.
func (v *SSRFValidator) ValidateIP(ip net.IP) error {
	if v.allowPrivate {
		return nil
	}
	switch {
	case ip == nil, ip.IsUnspecified():
		return fmt.Errorf("%w: unspecified address", ErrBlockedDestination)
	case ip.IsLoopback():
		return fmt.Errorf("%w: loopback address %s", ErrBlockedDestination, ip)
	case ip.IsPrivate():
		return fmt.Errorf("%w: private address %s", ErrBlockedDestination, ip)
	case ip.IsLinkLocalUnicast(), ip.IsLinkLocalMulticast():
		return fmt.Errorf("%w: link-local address %s", ErrBlockedDestination, ip)
	case ip.IsMulticast(), ip.IsInterfaceLocalMulticast():
		return fmt.Errorf("%w: multicast address %s", ErrBlockedDestination, ip)
	}
	return nil
}

func (v *SSRFValidator) validateScheme(u *url.URL) error {
	if !v.schemes[strings.ToLower(u.Scheme)] {
		return fmt.Errorf("%w: scheme %q", ErrBlockedDestination, u.Scheme)
	}
	return nil
}

// control runs after name resolution, right before connect
func (v *SSRFValidator) control(_, address string, _ syscall.RawConn) error {
	host, _, err := net.SplitHostPort(address)
	if err != nil {
		host = address
	}
	ip := net.ParseIP(host)
	if ip == nil {
		return fmt.Errorf("%w: unresolved address %s", ErrBlockedDestination, address)
	}
	return v.ValidateIP(ip)
}

// SecureTransport returns a transport that refuses to connect to blocked
// addresses.
func (v *SSRFValidator) SecureTransport() *http.Transport {
	dialer := &net.Dialer{
		Timeout:   10 * time.Second,
		KeepAlive: 30 * time.Second,
		Control:   v.control,
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.Proxy = nil
	transport.DialContext = dialer.DialContext
	transport.MaxIdleConnsPerHost = 10
	return transport
}

// HTTPClient returns a client with SecureTransport whose redirects are
// re-checked against the allowed schemes.
func (v *SSRFValidator) HTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout:   timeout,
		Transport: v.SecureTransport(),
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= maxRedirects {
				return fmt.Errorf("stopped after %d redirects", maxRedirects)
			}
			return v.validateScheme(req.URL)
		},
	}
}
