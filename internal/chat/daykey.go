package chat

import "time"

const dayKeyLayout = "2006-01-02"

// DayKey returns the calendar-day bucket key for an instant in the given
// zone. Bucketing is computed once per append call from the store's clock,
// never from message content.
func DayKey(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return t.In(loc).Format(dayKeyLayout)
}

// ClockTime formats an instant as the "HH:mm" display hint.
func ClockTime(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return t.In(loc).Format("15:04")
}
