package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/PRobi23/doodlekong/domain"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PostgresRepo struct {
	pool *pgxpool.Pool
}

func NewPostgresRepo(ctx context.Context, connString string) (*PostgresRepo, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, err
	}
	return &PostgresRepo{pool: pool}, nil
}

func (pgr *PostgresRepo) Close() {
	pgr.pool.Close()
}

// Generate implements the game.WordBank interface.
// It fetches 'count' random words from the words table in the database.
// Returns an empty slice if the query fails.
func (pgr *PostgresRepo) Generate(count int) []string {
	ctx := context.Background()

	query := `SELECT word FROM words ORDER BY RANDOM() LIMIT $1`

	rows, err := pgr.pool.Query(ctx, query, count)
	if err != nil {
		return []string{}
	}
	defer rows.Close()

	words := make([]string, 0, count)
	for rows.Next() {
		var word string
		if err := rows.Scan(&word); err != nil {
			continue
		}
		words = append(words, word)
	}

	return words
}

// SeedWords inserts words that are not stored yet and reports how many
// were added.
func (pgr *PostgresRepo) SeedWords(ctx context.Context, words []string) (int64, error) {
	tag, err := pgr.pool.Exec(ctx, `INSERT INTO words(word) SELECT unnest($1::text[]) ON CONFLICT (word) DO NOTHING`, words)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return 0, err
		}
		return 0, fmt.Errorf("%w: %w", domain.UnexpectedDatabaseError, err)
	}
	return tag.RowsAffected(), nil
}

func (pgr *PostgresRepo) CountWords(ctx context.Context) (int, error) {
	var count int
	err := pgr.pool.QueryRow(ctx, `SELECT COUNT(*) FROM words`).Scan(&count)
	if err != nil {
		switch {
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			return 0, err
		default:
			return 0, fmt.Errorf("%w: %w", domain.UnexpectedDatabaseError, err)
		}
	}
	return count, nil
}
