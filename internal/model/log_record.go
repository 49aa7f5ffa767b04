package model

// Well-known level tokens. Levels are an open set; any whitespace-free token
// is a valid level.
const (
	LevelError   = "ERROR"
	LevelWarning = "WARNING"
	LevelInfo    = "INFO"
	LevelDebug   = "DEBUG"
)

// LogRecord represents a single parsed log line.
type LogRecord struct {
	Timestamp string `json:"timestamp"`
	Level     string `json:"level"`
	Message   string `json:"message"`
}

// String renders the record back in "TIMESTAMP LEVEL MESSAGE" form.
func (r LogRecord) String() string {
	if r.Message == "" {
		return r.Timestamp + " " + r.Level
	}
	return r.Timestamp + " " + r.Level + " " + r.Message
}
