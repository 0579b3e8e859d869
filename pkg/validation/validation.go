package validation

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"unicode/utf8"
)

var agentLabelRegex = regexp.MustCompile(`^[a-zA-Z0-9._-]+$`)

// ValidateAgentLabel validates the X-Agent-Label header value before it is
// turned into a domain.AgentID (spec §7 "bearer token + X-Agent-Label
// header").
func ValidateAgentLabel(label string) error {
	label = strings.TrimSpace(label)
	if label == "" {
		return fmt.Errorf("agent label is required")
	}
	if len(label) > 100 {
		return fmt.Errorf("agent label is too long (max 100 characters)")
	}
	if !agentLabelRegex.MatchString(label) {
		return fmt.Errorf("agent label contains invalid characters")
	}
	return nil
}

// ValidateURL validates a backend or storage endpoint URL (JanusBackend.JanusURL,
// RecordingStorage.Endpoint).
func ValidateURL(urlStr string) error {
	if urlStr == "" {
		return fmt.Errorf("URL is required")
	}
	u, err := url.Parse(urlStr)
	if err != nil {
		return fmt.Errorf("invalid URL format: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("invalid URL scheme (must be http or https)")
	}
	if u.Host == "" {
		return fmt.Errorf("URL must have a host")
	}
	return nil
}

// ValidateTags validates a Room.Tags or RTC.Tags payload against a size
// budget, since tags are stored as opaque JSON and otherwise unbounded.
func ValidateTags(tags map[string]any) error {
	if len(tags) > 64 {
		return fmt.Errorf("too many tags (max 64)")
	}
	for k, v := range tags {
		if len(k) > 64 {
			return fmt.Errorf("tag key %q is too long (max 64 characters)", k)
		}
		if s, ok := v.(string); ok && len(s) > 512 {
			return fmt.Errorf("tag value for %q is too long (max 512 characters)", k)
		}
	}
	return nil
}

// ValidateNonEmptyString validates that string is not empty after trimming.
func ValidateNonEmptyString(s, fieldName string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return fmt.Errorf("%s is required", fieldName)
	}
	return nil
}

// ValidateStringLength validates string length in runes, used for
// free-text fields that aren't bounded by their own domain type.
func ValidateStringLength(s string, min, max int, fieldName string) error {
	length := utf8.RuneCountInString(s)
	if length < min {
		return fmt.Errorf("%s must be at least %d characters", fieldName, min)
	}
	if length > max {
		return fmt.Errorf("%s is too long (max %d characters)", fieldName, max)
	}
	return nil
}
