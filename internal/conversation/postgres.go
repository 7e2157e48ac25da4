package conversation

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore keeps conversation histories in PostgreSQL for deployments
// that want histories to outlive the process.
type PostgresStore struct {
	pool *pgxpool.Pool

	// count is best-effort for the sessions gauge; the table is the truth.
	mu    sync.Mutex
	count int
}

func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := initSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}
	s := &PostgresStore{pool: pool}
	if err := pool.QueryRow(ctx, `SELECT COUNT(*) FROM conversations`).Scan(&s.count); err != nil {
		pool.Close()
		return nil, fmt.Errorf("count conversations: %w", err)
	}
	return s, nil
}

func initSchema(ctx context.Context, pool *pgxpool.Pool) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS conversations (
			id TEXT PRIMARY KEY,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);`,
		`CREATE TABLE IF NOT EXISTS conversation_turns (
			seq BIGSERIAL PRIMARY KEY,
			conversation_id TEXT NOT NULL REFERENCES conversations (id) ON DELETE CASCADE,
			role TEXT NOT NULL,
			content TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);`,
		`CREATE INDEX IF NOT EXISTS idx_conversation_turns_conv_seq ON conversation_turns (conversation_id, seq);`,
	}
	for _, stmt := range stmts {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("init schema failed on %q: %w", stmt, err)
		}
	}
	return nil
}

func (s *PostgresStore) GetOrCreate(ctx context.Context, id string) (string, []Turn, error) {
	if id == "" {
		id = uuid.NewString()
	}
	tag, err := s.pool.Exec(ctx,
		`INSERT INTO conversations (id) VALUES ($1) ON CONFLICT (id) DO NOTHING`, id)
	if err != nil {
		return "", nil, fmt.Errorf("ensure conversation: %w", err)
	}
	if tag.RowsAffected() > 0 {
		s.mu.Lock()
		s.count++
		s.mu.Unlock()
	}
	turns, err := s.readTurns(ctx, id)
	if err != nil {
		return "", nil, err
	}
	return id, turns, nil
}

func (s *PostgresStore) Append(ctx context.Context, id string, turns ...Turn) error {
	if len(turns) == 0 {
		return nil
	}
	// One transaction per call keeps a round-trip's user+assistant pair
	// adjacent under concurrent appends to the same conversation.
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin append: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx,
		`INSERT INTO conversations (id) VALUES ($1) ON CONFLICT (id) DO NOTHING`, id); err != nil {
		return fmt.Errorf("ensure conversation: %w", err)
	}
	for _, t := range turns {
		if _, err := tx.Exec(ctx,
			`INSERT INTO conversation_turns (conversation_id, role, content) VALUES ($1, $2, $3)`,
			id, string(t.Role), t.Content); err != nil {
			return fmt.Errorf("append turn: %w", err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit append: %w", err)
	}
	return nil
}

func (s *PostgresStore) Read(ctx context.Context, id string) ([]Turn, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM conversations WHERE id=$1)`, id).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("lookup conversation: %w", err)
	}
	if !exists {
		return nil, ErrNotFound
	}
	return s.readTurns(ctx, id)
}

func (s *PostgresStore) readTurns(ctx context.Context, id string) ([]Turn, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT role, content FROM conversation_turns WHERE conversation_id=$1 ORDER BY seq`, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return []Turn{}, nil
		}
		return nil, fmt.Errorf("query turns: %w", err)
	}
	defer rows.Close()

	turns := []Turn{}
	for rows.Next() {
		var role, content string
		if err := rows.Scan(&role, &content); err != nil {
			return nil, fmt.Errorf("scan turn: %w", err)
		}
		turns = append(turns, Turn{Role: Role(role), Content: content})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate turns: %w", err)
	}
	return turns, nil
}

func (s *PostgresStore) Delete(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM conversations WHERE id=$1`, id)
	if err != nil {
		return fmt.Errorf("delete conversation: %w", err)
	}
	if tag.RowsAffected() > 0 {
		s.mu.Lock()
		s.count--
		s.mu.Unlock()
	}
	return nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.count
}
