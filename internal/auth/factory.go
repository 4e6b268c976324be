package auth

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// NewUserStore creates a postgres-backed store on the shared pool when one is
// configured, otherwise in-memory.
func NewUserStore(ctx context.Context, pool *pgxpool.Pool) (UserStore, error) {
	if pool == nil {
		return NewMemoryUserStore(), nil
	}
	return NewPostgresUserStore(ctx, pool)
}
