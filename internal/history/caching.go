package history

import (
	"context"
	"log"

	"github.com/antoniostano/concierge/internal/cache"
)

// QueryLogCacheKey names the cached rendered query-log projection for a user.
func QueryLogCacheKey(userID string) string {
	return "querylog:" + userID
}

// invalidatingStore drops the cached query-log projection whenever a new
// entry lands, whichever path recorded it, so a cached read can never hide a
// completed turn for the rest of its TTL.
type invalidatingStore struct {
	Store
	cache cache.Cache
}

// WithQueryLogInvalidation wraps a store so AppendQueryEntry invalidates the
// user's cached projection after the write succeeds.
func WithQueryLogInvalidation(s Store, c cache.Cache) Store {
	if c == nil {
		return s
	}
	return &invalidatingStore{Store: s, cache: c}
}

func (s *invalidatingStore) AppendQueryEntry(ctx context.Context, userID, query, response string) error {
	if err := s.Store.AppendQueryEntry(ctx, userID, query, response); err != nil {
		return err
	}
	if err := s.cache.Invalidate(ctx, QueryLogCacheKey(userID)); err != nil {
		log.Printf("invalidate query log cache for %s: %v", userID, err)
	}
	return nil
}
