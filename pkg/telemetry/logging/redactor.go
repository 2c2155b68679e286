package logging

import (
	"regexp"
	"strings"

	"mercator-hq/switchboard/pkg/config"
)

// Redactor removes credentials and PII from log values.
type Redactor struct {
	patterns []redactPattern
}

// redactPattern contains a compiled regex and replacement string.
type redactPattern struct {
	name        string
	regex       *regexp.Regexp
	replacement string
}

// Built-in pattern names.
const (
	PatternBearerToken = "bearer_token"
	PatternAPIKey      = "api_key"
	PatternGoogleKey   = "google_api_key"
	PatternQueryKey    = "query_key"
	PatternEmail       = "email"
	PatternPassword    = "password"
)

// defaultPatterns run in order; bearer tokens first so the token is not
// half-rewritten by the key pattern.
var defaultPatterns = []struct {
	name        string
	regex       string
	replacement string
}{
	{PatternBearerToken, `Bearer\s+[a-zA-Z0-9\-._~+/]+=*`, "Bearer ***"},
	// OpenAI (sk-, sk-proj-), Anthropic (sk-ant-), Groq (gsk_) keys.
	{PatternAPIKey, `\b(sk-(?:ant-|proj-)?|gsk_)[a-zA-Z0-9_\-]{8,}`, "${1}***"},
	{PatternGoogleKey, `\bAIza[0-9A-Za-z_\-]{20,}`, "AIza***"},
	{PatternQueryKey, `([?&](?:key|api_key|apikey)=)[^&\s]+`, "${1}***"},
	{PatternEmail, `\b([a-zA-Z0-9._%+-])[a-zA-Z0-9._%+-]*@([a-zA-Z0-9.-]+\.[a-zA-Z]{2,})\b`, "${1}***@${2}"},
	{PatternPassword, `(?i)(password|passwd|pwd)([:=]\s*)[^\s&]+`, "${1}${2}***"},
}

// sensitiveKeys mark attribute keys whose whole value is masked.
var sensitiveKeys = []string{
	"password", "passwd", "secret", "token",
	"api_key", "apikey", "authorization", "x-api-key", "x-goog-api-key",
	"private_key", "dsn",
}

// NewRedactor creates a Redactor with the built-in patterns followed by
// customPatterns. Invalid custom patterns are skipped.
func NewRedactor(customPatterns []config.RedactPattern) *Redactor {
	r := &Redactor{}

	for _, p := range defaultPatterns {
		r.patterns = append(r.patterns, redactPattern{
			name:        p.name,
			regex:       regexp.MustCompile(p.regex),
			replacement: p.replacement,
		})
	}

	for _, p := range customPatterns {
		regex, err := regexp.Compile(p.Pattern)
		if err != nil {
			continue
		}
		r.patterns = append(r.patterns, redactPattern{
			name:        p.Name,
			regex:       regex,
			replacement: p.Replacement,
		})
	}

	return r
}

// RedactString applies every pattern to value.
func (r *Redactor) RedactString(value string) string {
	if r == nil || value == "" {
		return value
	}

	for _, pattern := range r.patterns {
		value = pattern.regex.ReplaceAllString(value, pattern.replacement)
	}
	return value
}

// RedactValue redacts a keyed value. Values under sensitive keys are
// masked down to a short prefix; everything else goes through RedactString.
func (r *Redactor) RedactValue(key, value string) string {
	if r == nil || value == "" {
		return value
	}
	if r.isSensitiveKey(key) {
		return RedactAPIKey(value)
	}
	return r.RedactString(value)
}

// isSensitiveKey checks if a key name indicates sensitive data.
func (r *Redactor) isSensitiveKey(key string) bool {
	lowerKey := strings.ToLower(key)
	// Token counts are routine numeric fields, not credentials.
	if strings.HasSuffix(lowerKey, "tokens") {
		return false
	}
	for _, sensitive := range sensitiveKeys {
		if strings.Contains(lowerKey, sensitive) {
			return true
		}
	}
	return false
}

// RedactAPIKey redacts a credential, keeping only a short prefix.
func RedactAPIKey(apiKey string) string {
	if len(apiKey) <= 8 {
		return "***"
	}
	return apiKey[:4] + "***"
}
