package history

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/antoniostano/concierge/internal/chat"
)

// MemoryStore keeps per-user conversation state in process, for local/dev
// use. Writes for one user are serialized by a per-user lock, so two
// concurrent batches append one after the other instead of overwriting each
// other's read-modify-write.
type MemoryStore struct {
	now func() time.Time
	loc *time.Location

	mu    sync.Mutex
	users map[string]*userState
}

type userState struct {
	mu      sync.Mutex
	buckets []chat.DayBucket
	entries []chat.QueryLogEntry
}

func NewMemoryStore(loc *time.Location) *MemoryStore {
	if loc == nil {
		loc = time.UTC
	}
	return &MemoryStore{
		now:   time.Now,
		loc:   loc,
		users: make(map[string]*userState),
	}
}

func (s *MemoryStore) user(userID string, create bool) *userState {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.users[userID]
	if u == nil && create {
		u = &userState{}
		s.users[userID] = u
	}
	return u
}

func (s *MemoryStore) AppendMessages(_ context.Context, userID string, msgs []chat.Message) error {
	if err := validateBatch(userID, msgs); err != nil {
		return err
	}
	if len(msgs) == 0 {
		return nil
	}

	now := s.now().UTC()
	day := chat.DayKey(now, s.loc)

	stamped := make([]chat.Message, len(msgs))
	for i, m := range msgs {
		if m.ID == "" {
			m.ID = uuid.NewString()
		}
		// The store's clock is the timestamp of record; the client string is
		// only a display hint.
		m.CreatedAt = now
		stamped[i] = m
	}

	u := s.user(userID, true)
	u.mu.Lock()
	defer u.mu.Unlock()

	for i := range u.buckets {
		if u.buckets[i].Date == day {
			u.buckets[i].Messages = append(u.buckets[i].Messages, stamped...)
			return nil
		}
	}
	u.buckets = append(u.buckets, chat.DayBucket{Date: day, Messages: stamped})
	return nil
}

func (s *MemoryStore) AppendQueryEntry(_ context.Context, userID, query, response string) error {
	if !chat.ValidUserID(userID) {
		return ErrInvalidID
	}

	u := s.user(userID, true)
	u.mu.Lock()
	defer u.mu.Unlock()
	u.entries = append(u.entries, chat.QueryLogEntry{
		Query:     query,
		Response:  response,
		CreatedAt: s.now().UTC(),
	})
	return nil
}

func (s *MemoryStore) GetOrCreate(ctx context.Context, userID string) (chat.History, error) {
	return s.History(ctx, userID)
}

func (s *MemoryStore) History(_ context.Context, userID string) (chat.History, error) {
	if !chat.ValidUserID(userID) {
		return chat.History{}, ErrInvalidID
	}

	out := chat.History{UserID: userID}
	u := s.user(userID, false)
	if u == nil {
		return out, nil
	}

	u.mu.Lock()
	defer u.mu.Unlock()
	out.Buckets = make([]chat.DayBucket, len(u.buckets))
	for i, b := range u.buckets {
		msgs := make([]chat.Message, len(b.Messages))
		copy(msgs, b.Messages)
		out.Buckets[i] = chat.DayBucket{Date: b.Date, Messages: msgs}
	}
	return out, nil
}

func (s *MemoryStore) QueryLog(_ context.Context, userID string) (chat.QueryLog, error) {
	if !chat.ValidUserID(userID) {
		return chat.QueryLog{}, ErrInvalidID
	}

	u := s.user(userID, false)
	if u == nil {
		return chat.QueryLog{}, ErrNotFound
	}

	u.mu.Lock()
	defer u.mu.Unlock()
	if len(u.entries) == 0 {
		return chat.QueryLog{}, ErrNotFound
	}
	entries := make([]chat.QueryLogEntry, len(u.entries))
	copy(entries, u.entries)
	return chat.QueryLog{UserID: userID, Entries: entries}, nil
}

func (s *MemoryStore) Close() error { return nil }
