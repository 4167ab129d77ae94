// Package audit records who changed which review, separately from request logs.
package audit

import (
	"net"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

const (
	StatusSuccess = "success"
	StatusFailure = "failure"
)

// Entry represents a single audit log entry with structured fields
type Entry struct {
	Timestamp    time.Time         `json:"timestamp"`
	Action       string            `json:"action"`
	UserID       string            `json:"user_id"`
	ResourceType string            `json:"resource_type,omitempty"`
	ResourceID   string            `json:"resource_id,omitempty"`
	IPAddress    string            `json:"ip_address,omitempty"`
	Status       string            `json:"status"`
	RequestID    string            `json:"request_id,omitempty"`
	Details      map[string]string `json:"details,omitempty"`
}

// Logger writes audit entries as zerolog events nested under "audit".
// A nil *Logger discards everything.
type Logger struct {
	output zerolog.Logger
	now    func() time.Time
}

func NewLoggerWithZerolog(logger zerolog.Logger) *Logger {
	return &Logger{output: logger, now: time.Now}
}

func (l *Logger) Log(entry Entry) {
	if l == nil {
		return
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = l.now().UTC()
	}
	l.output.Info().
		Str("log_type", "audit").
		Interface("audit", entry).
		Msg(entry.Action)
}

// LogFromRequest fills in the client address and request ID from r.
func (l *Logger) LogFromRequest(r *http.Request, entry Entry) {
	if l == nil {
		return
	}
	entry.IPAddress = clientIP(r)
	if entry.RequestID == "" {
		entry.RequestID = r.Header.Get("X-Request-ID")
	}
	l.Log(entry)
}

// clientIP uses the socket address only; forwarded headers are not trusted here.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
