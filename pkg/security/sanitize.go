package security

import (
	"regexp"
	"strings"
)

var (
	secretPatterns = []*regexp.Regexp{
		regexp.MustCompile(`sk-[A-Za-z0-9_\-]{8,}`),
		regexp.MustCompile(`(?i)(api[_-]?key|token|secret)=[^\s&]+`),
		regexp.MustCompile(`(?i)bearer\s+[A-Za-z0-9_\-\.=]+`),
		regexp.MustCompile(`eyJ[A-Za-z0-9_\-]+\.[A-Za-z0-9_\-]+\.[A-Za-z0-9_\-]+`),
	}
	ipPattern       = regexp.MustCompile(`\b\d{1,3}(\.\d{1,3}){3}(:\d+)?\b`)
	fileLinePattern = regexp.MustCompile(`\S+\.go:\d+`)
	pathPattern     = regexp.MustCompile(`(/(home|Users|var|etc|opt|tmp|root)/\S*)`)
)

// SanitizeMessage removes secrets, IP addresses, file paths and source
// locations from an error message before it is shown to a client.
func SanitizeMessage(msg string) string {
	msg = removeSecretPatterns(msg)
	msg = ipPattern.ReplaceAllString(msg, "[IP_ADDRESS]")
	msg = fileLinePattern.ReplaceAllString(msg, "[FILE:LINE]")
	msg = pathPattern.ReplaceAllString(msg, "[PATH]")
	return strings.TrimSpace(msg)
}

// removeSecretPatterns removes patterns that look like API keys or secrets
func removeSecretPatterns(msg string) string {
	for _, p := range secretPatterns {
		msg = p.ReplaceAllString(msg, "[REDACTED]")
	}
	return msg
}

// MaskSecret masks a secret for logging purposes
func MaskSecret(secret string) string {
	if secret == "" {
		return ""
	}

	if len(secret) <= 8 {
		return "****"
	}

	return secret[:4] + "****" + secret[len(secret)-4:]
}
