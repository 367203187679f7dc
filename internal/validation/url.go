package validation

import (
	"fmt"
	"net"
	"net/netip"
	"net/url"
	"strings"

	"github.com/pders01/jobfeed/internal/model"
)

// rss2jsonHost is the JSON proxy many public job feeds are routed through.
// Its rss_url query parameter is validated like a direct feed URL.
const rss2jsonHost = "api.rss2json.com"

// SourceValidator checks configured feed sources before they are crawled.
type SourceValidator struct {
	// AllowLocalhost determines if localhost URLs are permitted
	AllowLocalhost bool
	// AllowPrivateIPs determines if private IP addresses are permitted
	AllowPrivateIPs bool
	// MaxLength is the maximum allowed URL length
	MaxLength int
}

// NewSourceValidator creates a validator with secure defaults
func NewSourceValidator() *SourceValidator {
	return &SourceValidator{MaxLength: 2048}
}

// NewPermissiveSourceValidator allows loopback and private addresses, for
// local feeds and tests.
func NewPermissiveSourceValidator() *SourceValidator {
	return &SourceValidator{
		AllowLocalhost:  true,
		AllowPrivateIPs: true,
		MaxLength:       2048,
	}
}

// ValidateSource normalizes src.URL and requires an organization name.
func (v *SourceValidator) ValidateSource(src model.Source) (model.Source, error) {
	src.Organization = strings.TrimSpace(src.Organization)
	if src.Organization == "" {
		return src, fmt.Errorf("source %q: organization is required", src.URL)
	}

	normalized, err := v.ValidateAndNormalize(src.URL)
	if err != nil {
		return src, fmt.Errorf("source %s: %w", src.Organization, err)
	}
	src.URL = normalized
	src.Category = strings.TrimSpace(src.Category)
	src.Education = strings.TrimSpace(src.Education)
	return src, nil
}

// ValidateSources validates every source and rejects duplicate URLs.
func (v *SourceValidator) ValidateSources(sources []model.Source) ([]model.Source, error) {
	out := make([]model.Source, 0, len(sources))
	seen := make(map[string]string, len(sources))
	for _, src := range sources {
		valid, err := v.ValidateSource(src)
		if err != nil {
			return nil, err
		}
		if prev, ok := seen[valid.URL]; ok {
			return nil, fmt.Errorf("source %s: duplicate URL already used by %s", valid.Organization, prev)
		}
		seen[valid.URL] = valid.Organization
		out = append(out, valid)
	}
	return out, nil
}

// ValidateAndNormalize validates a feed URL and returns the normalized version
func (v *SourceValidator) ValidateAndNormalize(input string) (string, error) {
	input = strings.TrimSpace(input)

	if input == "" {
		return "", fmt.Errorf("URL cannot be empty")
	}
	if v.MaxLength > 0 && len(input) > v.MaxLength {
		return "", fmt.Errorf("URL too long (max %d characters)", v.MaxLength)
	}
	if strings.ContainsAny(input, "<>\"'` ") {
		return "", fmt.Errorf("URL contains invalid characters")
	}

	if !strings.HasPrefix(input, "http://") && !strings.HasPrefix(input, "https://") {
		input = "https://" + input
	}

	parsedURL, err := url.Parse(input)
	if err != nil {
		return "", fmt.Errorf("invalid URL format: %w", err)
	}
	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return "", fmt.Errorf("URL must use http or https protocol")
	}
	if parsedURL.Hostname() == "" {
		return "", fmt.Errorf("URL must have a valid hostname")
	}

	if err := v.validateHost(parsedURL.Hostname()); err != nil {
		return "", err
	}

	if strings.EqualFold(parsedURL.Hostname(), rss2jsonHost) {
		inner := parsedURL.Query().Get("rss_url")
		if inner == "" {
			return "", fmt.Errorf("%s URL is missing rss_url", rss2jsonHost)
		}
		if _, err := v.ValidateAndNormalize(inner); err != nil {
			return "", fmt.Errorf("rss_url: %w", err)
		}
	}

	parsedURL.Fragment = ""
	return parsedURL.String(), nil
}

func (v *SourceValidator) validateHost(hostname string) error {
	if !v.AllowLocalhost && isLocalhost(hostname) {
		return fmt.Errorf("localhost URLs are not permitted")
	}

	if !v.AllowPrivateIPs {
		if ip := net.ParseIP(hostname); ip != nil && isPrivateIP(ip) {
			return fmt.Errorf("private IP addresses are not permitted")
		}
	}

	if hostname == "0.0.0.0" || hostname == "255.255.255.255" {
		return fmt.Errorf("unroutable host %s", hostname)
	}
	return nil
}

func isLocalhost(hostname string) bool {
	hostname = strings.ToLower(hostname)
	return hostname == "localhost" ||
		hostname == "127.0.0.1" ||
		hostname == "::1" ||
		strings.HasSuffix(hostname, ".localhost")
}

func isPrivateIP(ip net.IP) bool {
	addr, ok := netip.AddrFromSlice(ip)
	if !ok {
		return false
	}
	addr = addr.Unmap()
	return addr.IsPrivate() || addr.IsLoopback() || addr.IsLinkLocalUnicast()
}
