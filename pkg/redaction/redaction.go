// Package redaction masks secrets before they reach log output.
package redaction

import (
	"regexp"
	"sync"
)

// Config controls which secret classes are masked.
type Config struct {
	Enabled        bool     `json:"enabled"`
	RedactAPIKeys  bool     `json:"redact_api_keys"`
	RedactTokens   bool     `json:"redact_tokens"`
	CustomPatterns []string `json:"custom_patterns"`
	Replacement    string   `json:"replacement"`
}

// DefaultConfig returns the default redaction configuration.
func DefaultConfig() Config {
	return Config{
		Enabled:       true,
		RedactAPIKeys: true,
		RedactTokens:  true,
		Replacement:   "[REDACTED]",
	}
}

// Redactor applies the configured masking patterns.
type Redactor struct {
	config  Config
	builtin []*regexp.Regexp
	custom  []*regexp.Regexp
}

// NewRedactor creates a Redactor for the given configuration.
func NewRedactor(config Config) *Redactor {
	r := &Redactor{config: config}
	if config.RedactAPIKeys {
		r.builtin = append(r.builtin,
			regexp.MustCompile(`(?i)(api[_-]?key|api[_-]?secret|secret[_-]?key)\s*[=:]\s*['"]?[a-zA-Z0-9_\-]{16,}['"]?`),
			regexp.MustCompile(`sk-[a-zA-Z0-9\-]{20,}`),
		)
	}
	if config.RedactTokens {
		r.builtin = append(r.builtin,
			regexp.MustCompile(`(?i)bearer\s+[a-zA-Z0-9_\-\.]{16,}`),
			regexp.MustCompile(`(?i)(auth[_-]?token|access[_-]?token)\s*[=:]\s*['"]?[a-zA-Z0-9_\-\.]{16,}['"]?`),
		)
	}
	for _, pattern := range config.CustomPatterns {
		if re, err := regexp.Compile(pattern); err == nil {
			r.custom = append(r.custom, re)
		}
	}
	return r
}

// Redact masks all matches in s.
func (r *Redactor) Redact(s string) string {
	if !r.config.Enabled {
		return s
	}
	for _, re := range r.builtin {
		s = re.ReplaceAllString(s, r.config.Replacement)
	}
	for _, re := range r.custom {
		s = re.ReplaceAllString(s, r.config.Replacement)
	}
	return s
}

// RedactFields masks string values in a log field map.
func (r *Redactor) RedactFields(fields map[string]any) map[string]any {
	if !r.config.Enabled || len(fields) == 0 {
		return fields
	}
	out := make(map[string]any, len(fields))
	for k, v := range fields {
		if s, ok := v.(string); ok {
			out[k] = r.Redact(s)
		} else {
			out[k] = v
		}
	}
	return out
}

var (
	globalMu sync.RWMutex
	global   = NewRedactor(DefaultConfig())
)

// SetGlobalConfig replaces the process-wide redactor configuration.
func SetGlobalConfig(config Config) {
	globalMu.Lock()
	defer globalMu.Unlock()
	global = NewRedactor(config)
}

// Redact masks secrets using the process-wide redactor.
func Redact(s string) string {
	globalMu.RLock()
	defer globalMu.RUnlock()
	return global.Redact(s)
}

// RedactFields masks field values using the process-wide redactor.
func RedactFields(fields map[string]any) map[string]any {
	globalMu.RLock()
	defer globalMu.RUnlock()
	return global.RedactFields(fields)
}
