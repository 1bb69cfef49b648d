// Package redact masks values that must never reach the external LLM
// analyst — credentials, contact details, anything not itself a metric or
// a campaign identifier — adapted from tarsy's pkg/masking, which applied
// the same idea to MCP tool results and alert payloads. That version
// resolved patterns through a per-MCP-server config registry; the analyst
// has exactly one fixed redaction policy, so the group/registry
// indirection is gone and what is left is the compiled-pattern core.
package redact

import (
	"fmt"
	"regexp"
)

// CompiledPattern holds a pre-compiled regex pattern with its replacement.
type CompiledPattern struct {
	Name        string
	Regex       *regexp.Regexp
	Replacement string
}

func mustCompile(name, pattern, replacement string) *CompiledPattern {
	re, err := regexp.Compile(pattern)
	if err != nil {
		panic(fmt.Sprintf("redact: built-in pattern %q does not compile: %v", name, err))
	}
	return &CompiledPattern{Name: name, Regex: re, Replacement: replacement}
}

// builtinPatterns is the fixed set applied to every analyst request. Order
// matters only for log clarity, not correctness: patterns don't overlap.
var builtinPatterns = []*CompiledPattern{
	mustCompile("email", `[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`, "[REDACTED_EMAIL]"),
	mustCompile("bearer_token", `(?i)bearer\s+[a-zA-Z0-9._\-]{10,}`, "[REDACTED_TOKEN]"),
	mustCompile("api_key_assignment", `(?i)(api[_-]?key|secret|token|password)\s*[:=]\s*['"]?[a-zA-Z0-9._\-]{8,}['"]?`, "${1}=[REDACTED]"),
	mustCompile("credit_card", `\b(?:\d[ -]*?){13,16}\b`, "[REDACTED_CARD]"),
	mustCompile("phone", `\b\+?\d{1,3}[-.\s]?\(?\d{3}\)?[-.\s]?\d{3}[-.\s]?\d{4}\b`, "[REDACTED_PHONE]"),
	mustCompile("ipv4", `\b(?:\d{1,3}\.){3}\d{1,3}\b`, "[REDACTED_IP]"),
}
