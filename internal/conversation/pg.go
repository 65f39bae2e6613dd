package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PGStore persists conversations in Postgres, one row per key with the
// full context as jsonb.
type PGStore struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
	locks  *keyLocks
}

func NewPGStore(log *slog.Logger, pool *pgxpool.Pool) *PGStore {
	if log == nil {
		log = slog.Default()
	}
	return &PGStore{
		pool:   pool,
		logger: log.With(slog.String("service", "conversation_store")),
		locks:  newKeyLocks(),
	}
}

func (s *PGStore) Load(ctx context.Context, key string) (Conversation, error) {
	var raw []byte
	err := s.pool.QueryRow(ctx,
		`SELECT context FROM conversations WHERE conversation_key = $1`, key,
	).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return Conversation{}, nil
	}
	if err != nil {
		return Conversation{}, fmt.Errorf("load conversation: %w", err)
	}

	var turns []Turn
	if err := json.Unmarshal(raw, &turns); err != nil {
		return Conversation{}, fmt.Errorf("decode conversation context: %w", err)
	}
	return Conversation{Context: turns}, nil
}

// AppendAndSave loads the stored context, appends turns in order and
// upserts the whole sequence back under the same key. The per-key lock
// serializes concurrent read-modify-writes within this process.
func (s *PGStore) AppendAndSave(ctx context.Context, key string, turns []Turn) error {
	unlock := s.locks.lock(key)
	defer unlock()

	existing, err := s.Load(ctx, key)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	extended := append(existing.Context, turns...)
	raw, err := json.Marshal(extended)
	if err != nil {
		return fmt.Errorf("%w: encode context: %v", ErrPersistence, err)
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO conversations (conversation_key, context, updated_at)
		 VALUES ($1, $2, now())
		 ON CONFLICT (conversation_key)
		 DO UPDATE SET context = EXCLUDED.context, updated_at = now()`,
		key, raw,
	)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	s.logger.Debug("conversation saved",
		slog.String("key", key),
		slog.Int("appended", len(turns)),
		slog.Int("total", len(extended)),
	)
	return nil
}
