// Package notify carries user-facing notifications from the script runtime
// to the host: a bounded queue filled on the tick goroutine, and sinks that
// present drained notifications (log, desktop).
package notify

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hako/durafmt"
)

// Level is the severity of a notification.
type Level int

const (
	// LevelInfo is for informational notices.
	LevelInfo Level = iota

	// LevelWarn is for conditions the user should act on.
	LevelWarn

	// LevelError is for failures.
	LevelError
)

// String returns the level name.
func (l Level) String() string {
	switch l {
	case LevelInfo:
		return "info"
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	default:
		return "unknown"
	}
}

// Notification is one message for the user.
type Notification struct {
	ID      uuid.UUID
	Level   Level
	Title   string
	Body    string
	Source  string
	Created time.Time
}

// New creates a notification with a fresh ID.
func New(level Level, title, body string) Notification {
	return Notification{
		ID:      uuid.New(),
		Level:   level,
		Title:   title,
		Body:    body,
		Created: time.Now(),
	}
}

// String returns "title: body".
func (n Notification) String() string {
	return n.Title + ": " + n.Body
}

// ScriptDisabled builds the notice pushed when a script's error breaker
// trips and the script is unloaded.
func ScriptDisabled(script string, threshold int, window time.Duration) Notification {
	n := New(LevelWarn, "Script disabled",
		fmt.Sprintf("%s was unloaded after %d errors within %s.", script, threshold, FormatDuration(window)))
	n.Source = script
	return n
}

// FormatDuration renders d for people, e.g. "30 seconds" or "1 minute 30 seconds".
func FormatDuration(d time.Duration) string {
	if d <= 0 {
		return "0 seconds"
	}
	return durafmt.Parse(d).LimitFirstN(2).String()
}

// DefaultQueueLimit bounds a Queue created with a non-positive limit.
const DefaultQueueLimit = 64

// Queue is a bounded FIFO of notifications. When full, the oldest entry is
// dropped. It is safe for concurrent use.
type Queue struct {
	mu      sync.Mutex
	items   []Notification
	limit   int
	dropped uint64
}

// NewQueue creates a queue holding at most limit notifications.
func NewQueue(limit int) *Queue {
	if limit <= 0 {
		limit = DefaultQueueLimit
	}
	return &Queue{limit: limit}
}

// Notify appends n.
func (q *Queue) Notify(n Notification) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) >= q.limit {
		q.items = q.items[1:]
		q.dropped++
	}
	q.items = append(q.items, n)
}

// Drain removes and returns all queued notifications in arrival order.
func (q *Queue) Drain() []Notification {
	q.mu.Lock()
	defer q.mu.Unlock()

	items := q.items
	q.items = nil
	return items
}

// Len returns the number of queued notifications.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Dropped returns how many notifications were discarded because the queue
// was full.
func (q *Queue) Dropped() uint64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.dropped
}
