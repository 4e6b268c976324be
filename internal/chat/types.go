package chat

import "time"

// Sender identifies who authored a transcript message.
type Sender string

const (
	SenderUser Sender = "user"
	SenderBot  Sender = "bot"
)

// Message is a single transcript entry. DisplayTime is the "HH:mm" hint shown
// next to the bubble; CreatedAt is the authoritative instant stamped by the
// store on ingest and is never derived from the client.
type Message struct {
	ID          string    `json:"id,omitempty"`
	Sender      Sender    `json:"sender"`
	Text        string    `json:"text"`
	DisplayTime string    `json:"time"`
	CreatedAt   time.Time `json:"timestamp"`
}

// DayBucket holds every message a user exchanged on one calendar day.
// Date is a civil date in "2006-01-02" form, no time component.
type DayBucket struct {
	Date     string    `json:"date"`
	Messages []Message `json:"messages"`
}

// History is the day-bucketed conversation aggregate, one per user.
// Buckets are ordered oldest first and are never merged or reordered.
type History struct {
	UserID  string      `json:"user_id"`
	Buckets []DayBucket `json:"conversations"`
}

// QueryLogEntry is one query/response pair, recorded flat per turn.
type QueryLogEntry struct {
	Query     string    `json:"query"`
	Response  string    `json:"response"`
	CreatedAt time.Time `json:"timestamp"`
}

// QueryLog is the flat projection of a user's turns, joined with the owning
// user's profile fields when served over HTTP.
type QueryLog struct {
	UserID  string          `json:"user_id"`
	Name    string          `json:"name,omitempty"`
	Email   string          `json:"email,omitempty"`
	Entries []QueryLogEntry `json:"messages"`
}
