// Package eventlog implements the append-only activity log backing a run's
// audit trail and live activity feed.
package eventlog

import (
	"sync"
	"time"

	"github.com/agentictax/taxpilot/internal/model"
)

// subscriberBuffer bounds each subscriber channel; a subscriber that falls
// this far behind starts missing entries rather than blocking appends.
const subscriberBuffer = 64

// Log is an ordered, append-only record of stage activity. Append never
// blocks and never fails; insertion order is the log's total order.
type Log struct {
	clock       func() time.Time
	mu          sync.Mutex
	entries     []model.LogEntry
	subscribers []chan model.LogEntry
}

// New creates an empty log using wall-clock timestamps.
func New() *Log {
	return NewWithClock(time.Now)
}

// NewWithClock creates a log with an injected clock for deterministic tests.
func NewWithClock(clock func() time.Time) *Log {
	return &Log{clock: clock}
}

// Append records a message attributed to the named stage.
func (l *Log) Append(stage, message string) {
	if stage == "" {
		stage = model.SystemStage
	}
	entry := model.LogEntry{
		Time:    l.clock(),
		Stage:   stage,
		Message: message,
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, entry)
	for _, ch := range l.subscribers {
		select {
		case ch <- entry:
		default:
		}
	}
}

// Snapshot returns a copy of the full ordered entry sequence.
func (l *Log) Snapshot() []model.LogEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]model.LogEntry, len(l.entries))
	copy(out, l.entries)
	return out
}

// Len returns the number of entries appended so far.
func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// Subscribe returns a channel receiving entries appended after this call,
// plus a cancel function that closes the channel.
func (l *Log) Subscribe() (<-chan model.LogEntry, func()) {
	ch := make(chan model.LogEntry, subscriberBuffer)

	l.mu.Lock()
	l.subscribers = append(l.subscribers, ch)
	l.mu.Unlock()

	cancel := func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		for i, sub := range l.subscribers {
			if sub == ch {
				l.subscribers = append(l.subscribers[:i], l.subscribers[i+1:]...)
				close(ch)
				return
			}
		}
	}
	return ch, cancel
}

// AuditRow is one row of the read-only audit view.
type AuditRow struct {
	Time   time.Time
	Stage  string
	Action string
}

// AuditRows renders the log as audit-table rows. Stage identity comes from
// the structured entry, not from parsing the message text.
func (l *Log) AuditRows() []AuditRow {
	entries := l.Snapshot()
	rows := make([]AuditRow, len(entries))
	for i, e := range entries {
		rows[i] = AuditRow{Time: e.Time, Stage: e.Stage, Action: e.Message}
	}
	return rows
}
