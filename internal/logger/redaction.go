package logger

import (
	"io"
	"regexp"
)

const redacted = "[REDACTED]"

// Redactor masks credentials in log output.
type Redactor struct {
	patterns []*regexp.Regexp
}

// NewRedactor creates a redactor with patterns for the credentials this
// program handles.
func NewRedactor() *Redactor {
	return &Redactor{
		patterns: []*regexp.Regexp{
			// Google API keys
			regexp.MustCompile(`AIza[0-9A-Za-z_-]{35}`),
			// Bearer tokens sent to remote MCP servers
			regexp.MustCompile(`Bearer\s+[a-zA-Z0-9._-]+`),
			// key=value style secrets in MCP server env
			regexp.MustCompile(`(?i)(api[_-]?key|token|secret|password)(["\s:=]+)[^\s",}]+`),
		},
	}
}

// Redact masks sensitive substrings of s.
func (r *Redactor) Redact(s string) string {
	for i, pattern := range r.patterns {
		if i == len(r.patterns)-1 {
			s = pattern.ReplaceAllString(s, "${1}${2}"+redacted)
			continue
		}
		s = pattern.ReplaceAllString(s, redacted)
	}
	return s
}

// Wrap returns a writer that redacts before writing to w.
func (r *Redactor) Wrap(w io.Writer) io.Writer {
	return &redactingWriter{writer: w, redactor: r}
}

type redactingWriter struct {
	writer   io.Writer
	redactor *Redactor
}

func (w *redactingWriter) Write(p []byte) (int, error) {
	if _, err := w.writer.Write([]byte(w.redactor.Redact(string(p)))); err != nil {
		return 0, err
	}
	return len(p), nil
}
