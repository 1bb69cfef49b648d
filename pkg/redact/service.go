package redact

import "log/slog"

// Redactor applies the fixed built-in pattern set to free-text fields
// (campaign names, analyst reasoning/notes) before they cross a process
// boundary to the external LLM. Stateless and safe for concurrent use.
type Redactor struct {
	patterns []*CompiledPattern
}

// New returns a Redactor with the built-in pattern set compiled and ready.
func New() *Redactor {
	slog.Debug("redactor initialized", "patterns", len(builtinPatterns))
	return &Redactor{patterns: builtinPatterns}
}

// Text applies every built-in pattern to s and returns the masked result.
func (r *Redactor) Text(s string) string {
	if s == "" {
		return s
	}
	masked := s
	for _, p := range r.patterns {
		masked = p.Regex.ReplaceAllString(masked, p.Replacement)
	}
	return masked
}

// Fields applies Text to every value in a map, used to redact a batch of
// free-text request fields (e.g. campaign name, prior reasoning notes) in
// one pass without the caller re-deriving which fields are free text.
func (r *Redactor) Fields(fields map[string]string) map[string]string {
	out := make(map[string]string, len(fields))
	for k, v := range fields {
		out[k] = r.Text(v)
	}
	return out
}
