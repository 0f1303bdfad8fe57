package common

import (
	"fmt"
	"net/url"
	"strings"
)

// NormalizeTargetURL validates a user-supplied URL and normalizes it to an
// absolute https URL. A bare domain like "example.com" is accepted.
func NormalizeTargetURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("url is required")
	}

	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("invalid url: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", fmt.Errorf("unsupported scheme '%s'", parsed.Scheme)
	}

	host := strings.ToLower(parsed.Hostname())
	if host == "" || !strings.Contains(host, ".") {
		return "", fmt.Errorf("invalid host '%s'", parsed.Host)
	}

	parsed.Host = strings.ToLower(parsed.Host)
	return parsed.String(), nil
}

// NormalizeDomain reduces a domain or URL to its bare registrable form:
// lowercase host without scheme, www prefix, path, or port.
func NormalizeDomain(raw string) string {
	raw = strings.TrimSpace(strings.ToLower(raw))
	if raw == "" {
		return ""
	}

	if strings.Contains(raw, "://") {
		if parsed, err := url.Parse(raw); err == nil && parsed.Hostname() != "" {
			raw = parsed.Hostname()
		}
	}

	// Strip any path that survived (bare "example.com/pricing" input)
	if idx := strings.IndexAny(raw, "/?#"); idx >= 0 {
		raw = raw[:idx]
	}
	if idx := strings.Index(raw, ":"); idx >= 0 {
		raw = raw[:idx]
	}

	raw = strings.TrimPrefix(raw, "www.")
	if !strings.Contains(raw, ".") {
		return ""
	}
	return raw
}

// DomainURL converts a bare domain into an absolute https URL.
func DomainURL(domain string) string {
	return "https://" + NormalizeDomain(domain)
}

// PathOf returns the path portion of a URL, defaulting to "/".
func PathOf(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Path == "" {
		return "/"
	}
	return parsed.Path
}
