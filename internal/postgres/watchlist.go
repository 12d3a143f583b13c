package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tickerdeck/tickerdeck/internal/domain"
)

// WatchlistStore implements domain.WatchlistStore on PostgreSQL.
type WatchlistStore struct {
	pool *pgxpool.Pool
}

var _ domain.WatchlistStore = (*WatchlistStore)(nil)

func NewWatchlistStore(pool *pgxpool.Pool) *WatchlistStore {
	return &WatchlistStore{pool: pool}
}

func (s *WatchlistStore) List(ctx context.Context, userID string) ([]string, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT symbol FROM watchlists
		WHERE user_id = $1
		ORDER BY created_at, symbol`,
		userID)
	if err != nil {
		return nil, fmt.Errorf("list watchlist for %s: %w", userID, err)
	}
	defer rows.Close()

	symbols := make([]string, 0, 8)
	for rows.Next() {
		var sym string
		if err := rows.Scan(&sym); err != nil {
			return nil, fmt.Errorf("scan watchlist row: %w", err)
		}
		symbols = append(symbols, sym)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate watchlist rows: %w", err)
	}
	return symbols, nil
}

// Add inserts the symbol; duplicates are a no-op so adds are idempotent.
func (s *WatchlistStore) Add(ctx context.Context, userID, symbol string) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO watchlists (user_id, symbol)
		VALUES ($1, $2)
		ON CONFLICT (user_id, symbol) DO NOTHING`,
		userID, symbol)
	if err != nil {
		return fmt.Errorf("add %s to watchlist for %s: %w", symbol, userID, err)
	}
	return nil
}

// Remove deletes the symbol. Removing an absent symbol is a no-op.
func (s *WatchlistStore) Remove(ctx context.Context, userID, symbol string) error {
	_, err := s.pool.Exec(ctx, `
		DELETE FROM watchlists
		WHERE user_id = $1 AND symbol = $2`,
		userID, symbol)
	if err != nil {
		return fmt.Errorf("remove %s from watchlist for %s: %w", symbol, userID, err)
	}
	return nil
}
