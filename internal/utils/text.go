package utils

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

var harmfulPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?is)<script.*?>.*?</script>`),
	regexp.MustCompile(`(?i)javascript:`),
	regexp.MustCompile(`(?i)data:.*?base64`),
	regexp.MustCompile(`(?i)vbscript:`),
	regexp.MustCompile(`(?i)on(load|error|click)\s*=`),
}

// ContainsHarmfulContent flags script tags, script URLs and inline event handlers.
func ContainsHarmfulContent(text string) bool {
	for _, pattern := range harmfulPatterns {
		if pattern.MatchString(text) {
			return true
		}
	}
	return false
}

// ValidateText trims text and checks its rune length and content.
func ValidateText(text, field string, minLength, maxLength int) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", fmt.Errorf("%s cannot be empty", field)
	}

	length := utf8.RuneCountInString(text)
	if length < minLength {
		return "", fmt.Errorf("%s must be at least %d characters long", field, minLength)
	}
	if length > maxLength {
		return "", fmt.Errorf("%s must be less than %d characters long", field, maxLength)
	}
	if ContainsHarmfulContent(text) {
		return "", fmt.Errorf("%s contains potentially harmful content", field)
	}
	return text, nil
}

// TruncateRunes cuts s to at most n runes.
func TruncateRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
