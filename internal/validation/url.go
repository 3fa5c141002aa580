package validation

import (
	"fmt"
	"net/url"
	"strings"
)

// ValidateExternalURL checks that an externally hosted asset reference is a
// well-formed http, https or protocol-relative URL that is safe to place in
// an HTML attribute.
func ValidateExternalURL(rawURL string) error {
	if strings.ContainsAny(rawURL, " \t\r\n\"'<>`") {
		return fmt.Errorf("URL contains characters not allowed in an attribute: %q", rawURL)
	}

	candidate := rawURL
	if strings.HasPrefix(candidate, "//") {
		candidate = "https:" + candidate
	}

	parsed, err := url.Parse(candidate)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}

	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("invalid URL scheme: %s (only http/https allowed)", parsed.Scheme)
	}

	if parsed.Host == "" {
		return fmt.Errorf("URL must have a valid hostname")
	}

	return nil
}
