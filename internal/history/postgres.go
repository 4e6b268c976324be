package history

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/antoniostano/concierge/internal/chat"
)

// PostgresStore persists conversation history in PostgreSQL. Messages are
// stored one row each; day buckets are reconstructed on read by grouping on
// the day column, so an append is a plain insert and never rewrites the
// aggregate.
type PostgresStore struct {
	pool *pgxpool.Pool
	now  func() time.Time
	loc  *time.Location
}

// NewPostgresStore sets up the chat schema on a shared connection pool. The
// pool is owned by the caller; Close does not touch it.
func NewPostgresStore(ctx context.Context, pool *pgxpool.Pool, loc *time.Location) (*PostgresStore, error) {
	if err := initSchema(ctx, pool); err != nil {
		return nil, err
	}

	if loc == nil {
		loc = time.UTC
	}
	return &PostgresStore{pool: pool, now: time.Now, loc: loc}, nil
}

func initSchema(ctx context.Context, pool *pgxpool.Pool) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS chat_messages (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			day TEXT NOT NULL,
			seq BIGSERIAL,
			sender TEXT NOT NULL,
			body TEXT NOT NULL,
			display_time TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);`,
		`CREATE INDEX IF NOT EXISTS idx_chat_messages_user_seq ON chat_messages (user_id, seq);`,
		`CREATE TABLE IF NOT EXISTS query_log (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			query TEXT NOT NULL,
			response TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);`,
		`CREATE INDEX IF NOT EXISTS idx_query_log_user_created ON query_log (user_id, created_at);`,
	}

	for _, stmt := range stmts {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("init schema failed on %q: %w", stmt, err)
		}
	}
	return nil
}

func (s *PostgresStore) AppendMessages(ctx context.Context, userID string, msgs []chat.Message) error {
	if err := validateBatch(userID, msgs); err != nil {
		return err
	}
	if len(msgs) == 0 {
		return nil
	}

	now := s.now().UTC()
	day := chat.DayKey(now, s.loc)

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin append: %w", err)
	}
	defer tx.Rollback(ctx)

	// One writer per user at a time keeps batch order stable under
	// concurrent sessions.
	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, userID); err != nil {
		return fmt.Errorf("lock user stream: %w", err)
	}

	for _, m := range msgs {
		id := m.ID
		if id == "" {
			id = uuid.NewString()
		}
		_, err := tx.Exec(ctx,
			`INSERT INTO chat_messages (id, user_id, day, sender, body, display_time, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			id, userID, day, string(m.Sender), m.Text, m.DisplayTime, now,
		)
		if err != nil {
			return fmt.Errorf("append message: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit append: %w", err)
	}
	return nil
}

func (s *PostgresStore) AppendQueryEntry(ctx context.Context, userID, query, response string) error {
	if !chat.ValidUserID(userID) {
		return ErrInvalidID
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO query_log (id, user_id, query, response, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		uuid.NewString(), userID, query, response, s.now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("append query entry: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetOrCreate(ctx context.Context, userID string) (chat.History, error) {
	return s.History(ctx, userID)
}

func (s *PostgresStore) History(ctx context.Context, userID string) (chat.History, error) {
	if !chat.ValidUserID(userID) {
		return chat.History{}, ErrInvalidID
	}

	rows, err := s.pool.Query(ctx,
		`SELECT id, day, sender, body, display_time, created_at
		 FROM chat_messages WHERE user_id=$1 ORDER BY seq`,
		userID,
	)
	if err != nil {
		return chat.History{}, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	out := chat.History{UserID: userID}
	bucketIdx := make(map[string]int)
	for rows.Next() {
		var (
			m      chat.Message
			day    string
			sender string
		)
		if err := rows.Scan(&m.ID, &day, &sender, &m.Text, &m.DisplayTime, &m.CreatedAt); err != nil {
			return chat.History{}, fmt.Errorf("scan history row: %w", err)
		}
		m.Sender = chat.Sender(sender)

		i, ok := bucketIdx[day]
		if !ok {
			i = len(out.Buckets)
			bucketIdx[day] = i
			out.Buckets = append(out.Buckets, chat.DayBucket{Date: day})
		}
		out.Buckets[i].Messages = append(out.Buckets[i].Messages, m)
	}
	if err := rows.Err(); err != nil {
		return chat.History{}, fmt.Errorf("iterate history rows: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) QueryLog(ctx context.Context, userID string) (chat.QueryLog, error) {
	if !chat.ValidUserID(userID) {
		return chat.QueryLog{}, ErrInvalidID
	}

	rows, err := s.pool.Query(ctx,
		`SELECT query, response, created_at
		 FROM query_log WHERE user_id=$1 ORDER BY created_at`,
		userID,
	)
	if err != nil {
		return chat.QueryLog{}, fmt.Errorf("query log: %w", err)
	}
	defer rows.Close()

	out := chat.QueryLog{UserID: userID}
	for rows.Next() {
		var e chat.QueryLogEntry
		if err := rows.Scan(&e.Query, &e.Response, &e.CreatedAt); err != nil {
			return chat.QueryLog{}, fmt.Errorf("scan query log row: %w", err)
		}
		out.Entries = append(out.Entries, e)
	}
	if err := rows.Err(); err != nil {
		return chat.QueryLog{}, fmt.Errorf("iterate query log rows: %w", err)
	}
	if len(out.Entries) == 0 {
		return chat.QueryLog{}, ErrNotFound
	}
	return out, nil
}

func (s *PostgresStore) Close() error {
	// The pool is shared with other stores and closed by its owner.
	return nil
}
