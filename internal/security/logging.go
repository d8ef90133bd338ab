// Package security provides structured JSON logging for audit-friendly
// request and event records.
package security

import (
	"encoding/json"
	"log"
	"os"
	"time"
)

// LogLevel represents the severity of a log entry.
type LogLevel string

const (
	LogLevelInfo     LogLevel = "INFO"
	LogLevelWarning  LogLevel = "WARNING"
	LogLevelError    LogLevel = "ERROR"
	LogLevelCritical LogLevel = "CRITICAL"
)

// SecurityEventType identifies a categorized security or engine event.
type SecurityEventType string

const (
	// EventRateLimitExceeded fires when a client exceeds an endpoint limit.
	EventRateLimitExceeded SecurityEventType = "RATE_LIMIT_EXCEEDED"

	// EventSQLInjectionAttempt fires when request input matches injection patterns.
	EventSQLInjectionAttempt SecurityEventType = "SQL_INJECTION_ATTEMPT"

	// EventXSSAttempt fires when request input matches script-injection patterns.
	EventXSSAttempt SecurityEventType = "XSS_ATTEMPT"

	// EventValidationFailure fires when request input fails validation.
	EventValidationFailure SecurityEventType = "VALIDATION_FAILURE"

	// EventScorerDegraded fires when an auto-map run skipped pairs because
	// the similarity scorer failed or timed out.
	EventScorerDegraded SecurityEventType = "SCORER_DEGRADED"

	// EventFrameworkSkipped fires when harmonize-all could not process a
	// target framework at all.
	EventFrameworkSkipped SecurityEventType = "FRAMEWORK_SKIPPED"
)

// LogEntry is the JSON shape of every log line.
type LogEntry struct {
	Timestamp time.Time              `json:"timestamp"`
	Level     LogLevel               `json:"level"`
	Message   string                 `json:"message"`
	EventType SecurityEventType      `json:"event_type,omitempty"`
	ActorID   *int                   `json:"actor_id,omitempty"`
	IPAddress string                 `json:"ip_address,omitempty"`
	UserAgent string                 `json:"user_agent,omitempty"`
	Method    string                 `json:"method,omitempty"`
	Path      string                 `json:"path,omitempty"`
	Status    int                    `json:"status,omitempty"`
	LatencyMS int64                  `json:"latency_ms,omitempty"`
	Error     string                 `json:"error,omitempty"`
	Extra     map[string]interface{} `json:"extra,omitempty"`
}

// Logger writes structured JSON log entries.
// The zero output defaults to stdout; tests swap it for a buffer.
type Logger struct {
	output *log.Logger
}

// NewLogger creates a logger writing JSON lines to stdout.
func NewLogger() *Logger {
	return &Logger{
		output: log.New(os.Stdout, "", 0),
	}
}

// SetOutput redirects log output, primarily for tests.
func (l *Logger) SetOutput(out *log.Logger) {
	l.output = out
}

func (l *Logger) write(entry LogEntry) {
	entry.Timestamp = time.Now().UTC()
	data, err := json.Marshal(entry)
	if err != nil {
		// Marshal can only fail on unsupported Extra values; fall back to
		// the bare message so the event is not lost.
		l.output.Printf(`{"timestamp":%q,"level":%q,"message":%q}`,
			entry.Timestamp.Format(time.RFC3339Nano), entry.Level, entry.Message)
		return
	}
	l.output.Println(string(data))
}

// Info logs an informational message.
func (l *Logger) Info(message string) {
	l.write(LogEntry{Level: LogLevelInfo, Message: message})
}

// Warn logs a warning message.
func (l *Logger) Warn(message string) {
	l.write(LogEntry{Level: LogLevelWarning, Message: message})
}

// Error logs an error message with an optional underlying error.
func (l *Logger) Error(message string, err error) {
	entry := LogEntry{Level: LogLevelError, Message: message}
	if err != nil {
		entry.Error = err.Error()
	}
	l.write(entry)
}

// Critical logs a critical failure with an optional underlying error.
func (l *Logger) Critical(message string, err error) {
	entry := LogEntry{Level: LogLevelCritical, Message: message}
	if err != nil {
		entry.Error = err.Error()
	}
	l.write(entry)
}

// SecurityEvent logs a categorized security event with request context.
// actorID may be nil for unauthenticated or system actions.
func (l *Logger) SecurityEvent(eventType SecurityEventType, actorID *int, ipAddress, userAgent string, extra map[string]interface{}) {
	l.write(LogEntry{
		Level:     LogLevelWarning,
		Message:   string(eventType),
		EventType: eventType,
		ActorID:   actorID,
		IPAddress: ipAddress,
		UserAgent: userAgent,
		Extra:     extra,
	})
}

// HTTPRequest logs one handled HTTP request.
func (l *Logger) HTTPRequest(method, path string, status int, latencyMS int64, ipAddress, userAgent string) {
	l.write(LogEntry{
		Level:     LogLevelInfo,
		Message:   "http_request",
		Method:    method,
		Path:      path,
		Status:    status,
		LatencyMS: latencyMS,
		IPAddress: ipAddress,
		UserAgent: userAgent,
	})
}
