package model

import "time"

// SystemStage is the stage name used for log entries not produced by a
// pipeline stage.
const SystemStage = "System"

// LogEntry is one record in a run's append-only activity log. Stage
// identity is carried structurally rather than encoded into the message
// text.
type LogEntry struct {
	Time    time.Time
	Stage   string
	Message string
}
