package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresUserStore persists accounts in PostgreSQL.
type PostgresUserStore struct {
	pool *pgxpool.Pool
}

// NewPostgresUserStore sets up the users schema on a shared connection pool.
// The pool is owned by the caller; Close does not touch it.
func NewPostgresUserStore(ctx context.Context, pool *pgxpool.Pool) (*PostgresUserStore, error) {
	stmt := `CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		email TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	);`
	if _, err := pool.Exec(ctx, stmt); err != nil {
		return nil, fmt.Errorf("init users schema: %w", err)
	}
	return &PostgresUserStore{pool: pool}, nil
}

func (s *PostgresUserStore) Create(ctx context.Context, user User) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO users (id, name, email, password_hash, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		user.ID, user.Name, user.Email, user.PasswordHash, user.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrEmailTaken
		}
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (s *PostgresUserStore) ByEmail(ctx context.Context, email string) (User, error) {
	return s.scanOne(ctx,
		`SELECT id, name, email, password_hash, created_at FROM users WHERE email=$1`,
		strings.ToLower(email),
	)
}

func (s *PostgresUserStore) ByID(ctx context.Context, id string) (User, error) {
	return s.scanOne(ctx,
		`SELECT id, name, email, password_hash, created_at FROM users WHERE id=$1`,
		id,
	)
}

func (s *PostgresUserStore) scanOne(ctx context.Context, query string, arg any) (User, error) {
	var u User
	err := s.pool.QueryRow(ctx, query, arg).Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, ErrUserNotFound
	}
	if err != nil {
		return User{}, fmt.Errorf("query user: %w", err)
	}
	return u, nil
}

func (s *PostgresUserStore) Close() error {
	// The pool is shared with other stores and closed by its owner.
	return nil
}
