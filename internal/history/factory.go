package history

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// NewStore creates a postgres-backed store on the shared pool when one is
// configured, otherwise in-memory.
func NewStore(ctx context.Context, pool *pgxpool.Pool, loc *time.Location) (Store, error) {
	if pool == nil {
		return NewMemoryStore(loc), nil
	}
	return NewPostgresStore(ctx, pool, loc)
}
