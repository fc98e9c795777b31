package utils

import (
	"errors"
	"html"
	"net/url"
	"regexp"
	"strings"
	"unicode/utf8"
)

// Message length limits
const (
	MaxMessageLength  = 8000 // Characters for text messages
	MaxMediaURLLength = 2048
)

// Dangerous patterns for XSS prevention
var (
	scriptTagRegex = regexp.MustCompile(`(?i)<script[^>]*>.*?</script>`)
	onEventRegex   = regexp.MustCompile(`(?i)\s+on\w+\s*=`)
)

// SanitizeMessageContent cleans and validates text message content.
// Returns sanitized content or error if validation fails.
func SanitizeMessageContent(content string) (string, error) {
	if strings.TrimSpace(content) == "" {
		return "", errors.New("message cannot be empty")
	}
	if utf8.RuneCountInString(content) > MaxMessageLength {
		return "", errors.New("message exceeds maximum length")
	}

	content = scriptTagRegex.ReplaceAllString(content, "")
	content = onEventRegex.ReplaceAllString(content, " ")
	content = html.EscapeString(content)
	content = strings.TrimSpace(content)

	if content == "" {
		return "", errors.New("message cannot be empty after sanitization")
	}
	return content, nil
}

// ValidateMediaURL checks that media message content points at an http(s) resource.
func ValidateMediaURL(raw string) error {
	if len(raw) > MaxMediaURLLength {
		return errors.New("media URL too long (max 2048 characters)")
	}

	raw = strings.TrimSpace(raw)
	if raw == "" {
		return errors.New("media URL cannot be empty")
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return errors.New("invalid media URL format")
	}
	if parsed.Scheme != "https" && parsed.Scheme != "http" {
		return errors.New("only http(s) media URLs are allowed")
	}
	if parsed.Host == "" {
		return errors.New("media URL must include a host")
	}

	lower := strings.ToLower(raw)
	if strings.Contains(lower, "<script") || strings.Contains(lower, "onerror=") {
		return errors.New("unsafe media URL detected")
	}
	return nil
}
