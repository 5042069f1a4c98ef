// log.go — console log buffer entry (spec §3 "Console log buffer").
package types

import "time"

// Severity mirrors the Framework's log categories.
type Severity string

const (
	SeverityDebug Severity = "debug"
	SeverityInfo  Severity = "info"
	SeverityWarn  Severity = "warn"
	SeverityError Severity = "error"
)

// LogEntry is one captured host log message.
type LogEntry struct {
	Severity  Severity  `json:"severity"`
	Text      string    `json:"text"`
	File      string    `json:"file"`
	Line      int       `json:"line"`
	Function  string    `json:"function"`
	Timestamp time.Time `json:"timestamp"`
}
