package history

import (
	"context"
	"errors"
	"fmt"

	"github.com/antoniostano/concierge/internal/chat"
)

var (
	// ErrInvalidID means the user identifier is malformed. It is returned
	// before any read or write.
	ErrInvalidID = errors.New("invalid user identifier")
	// ErrNotFound is returned only by QueryLog when no entry has ever been
	// recorded for the user. GetOrCreate and History treat absence as an
	// empty aggregate instead.
	ErrNotFound = errors.New("no conversations found")
)

// Store persists the two per-user conversation views: the day-bucketed
// history and the flat query log. Every completed turn updates both.
type Store interface {
	// GetOrCreate returns the user's history. Absence implies an empty
	// history; nothing is materialized until the first append.
	GetOrCreate(ctx context.Context, userID string) (chat.History, error)
	// AppendMessages appends a batch to today's bucket, creating the bucket
	// when the day has none yet. The batch is validated up front and lands
	// atomically: either every message is appended or none.
	AppendMessages(ctx context.Context, userID string, msgs []chat.Message) error
	// AppendQueryEntry records one query/response pair, creating the log
	// lazily.
	AppendQueryEntry(ctx context.Context, userID, query, response string) error
	// History is the read-only projection of GetOrCreate.
	History(ctx context.Context, userID string) (chat.History, error)
	// QueryLog returns the flat projection, or ErrNotFound when the user has
	// no recorded entries.
	QueryLog(ctx context.Context, userID string) (chat.QueryLog, error)
	Close() error
}

// validateBatch runs the identifier check first, then every message, so a
// bad call is rejected before the store is touched.
func validateBatch(userID string, msgs []chat.Message) error {
	if !chat.ValidUserID(userID) {
		return ErrInvalidID
	}
	for i := range msgs {
		if err := msgs[i].Validate(); err != nil {
			return fmt.Errorf("message %d: %w", i, err)
		}
	}
	return nil
}
