package docstore

import (
	"sync"
	"time"

	"github.com/and161185/recipebook/internal/model"
)

// TimeLayout is the fixed-width encoding of server timestamps; lexical order equals time order.
const TimeLayout = "2006-01-02T15:04:05.000000000Z"

type serverTimestamp struct{}

// ServerTimestamp is a field placeholder replaced by the store with its own clock on write.
var ServerTimestamp any = serverTimestamp{}

// IsServerTimestamp reports whether v is the placeholder.
func IsServerTimestamp(v any) bool {
	_, ok := v.(serverTimestamp)
	return ok
}

// FormatTime encodes t using TimeLayout in UTC.
func FormatTime(t time.Time) string { return t.UTC().Format(TimeLayout) }

// ParseTime accepts TimeLayout, RFC3339 strings and time.Time values.
func ParseTime(v any) (time.Time, bool) {
	switch x := v.(type) {
	case time.Time:
		return x, true
	case string:
		if t, err := time.Parse(TimeLayout, x); err == nil {
			return t, true
		}
		if t, err := time.Parse(time.RFC3339Nano, x); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// Clock hands out strictly increasing server times.
type Clock struct {
	mu   sync.Mutex
	now  func() time.Time
	last time.Time
}

// NewClock returns a clock backed by now (time.Now when nil).
func NewClock(now func() time.Time) *Clock {
	if now == nil {
		now = time.Now
	}
	return &Clock{now: now}
}

// Next returns a time after every value previously returned.
func (c *Clock) Next() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.now().UTC()
	if !t.After(c.last) {
		t = c.last.Add(time.Nanosecond)
	}
	c.last = t
	return t
}

// Stamp replaces every ServerTimestamp placeholder in f with one clock reading.
func (c *Clock) Stamp(f model.Fields) model.Fields {
	var ts string
	for k, v := range f {
		if IsServerTimestamp(v) {
			if ts == "" {
				ts = FormatTime(c.Next())
			}
			f[k] = ts
		}
	}
	return f
}
