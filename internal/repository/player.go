package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
	"valplus/internal/db"
	"valplus/internal/domain"

	sq "github.com/Masterminds/squirrel"
	"github.com/rs/zerolog"
)

type PlayerRepository struct {
	queries *db.Queries
	db      *sql.DB
	logger  zerolog.Logger
}

func NewPlayerRepository(sqlDB *sql.DB, queries *db.Queries, logger zerolog.Logger) *PlayerRepository {
	return &PlayerRepository{
		queries: queries,
		db:      sqlDB,
		logger:  logger,
	}
}

// GetSummary returns nil, nil when the player has never been seen.
func (r *PlayerRepository) GetSummary(ctx context.Context, playerID string) (*domain.PlayerSummary, error) {
	return r.get(ctx, r.queries, playerID)
}

func (r *PlayerRepository) get(ctx context.Context, q *db.Queries, playerID string) (*domain.PlayerSummary, error) {
	row, err := q.GetPlayerSummary(ctx, playerID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get player summary: %w", err)
	}
	summary := toSummary(row)
	return &summary, nil
}

// TouchSummary inserts the player with times_seen = 1 or bumps times_seen and
// last_seen, returning the stored row. Both statements share a transaction.
func (r *PlayerRepository) TouchSummary(ctx context.Context, playerID string, now time.Time) (domain.PlayerSummary, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.PlayerSummary{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	summary, err := r.touch(ctx, r.queries.WithTx(tx), playerID, now)
	if err != nil {
		return domain.PlayerSummary{}, err
	}

	if err := tx.Commit(); err != nil {
		return domain.PlayerSummary{}, fmt.Errorf("failed to commit player summary %s: %w", playerID, err)
	}
	return summary, nil
}

// touch runs on q, which callers bind to an open transaction.
func (r *PlayerRepository) touch(ctx context.Context, q *db.Queries, playerID string, now time.Time) (domain.PlayerSummary, error) {
	now = now.UTC()
	if err := q.TouchPlayerSummary(ctx, db.TouchPlayerSummaryParams{
		PlayerID:  playerID,
		FirstSeen: now,
		LastSeen:  now,
	}); err != nil {
		return domain.PlayerSummary{}, fmt.Errorf("failed to touch player summary %s: %w", playerID, err)
	}

	row, err := q.GetPlayerSummary(ctx, playerID)
	if err != nil {
		return domain.PlayerSummary{}, fmt.Errorf("failed to read player summary %s: %w", playerID, err)
	}

	r.logger.Debug().
		Str("player_id", playerID).
		Int64("times_seen", row.TimesSeen).
		Msg("player summary touched")

	return toSummary(row), nil
}

// SeedSummary creates a summary with explicit counters. Existing summaries are
// left untouched; the return value reports whether a row was created.
func (r *PlayerRepository) SeedSummary(ctx context.Context, summary domain.PlayerSummary) (bool, error) {
	n, err := r.queries.SeedPlayerSummary(ctx, db.SeedPlayerSummaryParams{
		PlayerID:  summary.PlayerID,
		TimesSeen: int64(summary.TimesSeen),
		FirstSeen: summary.FirstSeen.UTC(),
		LastSeen:  summary.LastSeen.UTC(),
	})
	if err != nil {
		return false, fmt.Errorf("failed to seed player summary %s: %w", summary.PlayerID, err)
	}
	return n > 0, nil
}

type SummaryFilter struct {
	MinTimesSeen int
	SeenSince    *time.Time
	Limit        int
}

// List returns summaries ordered by most recently seen.
func (r *PlayerRepository) List(ctx context.Context, filter SummaryFilter) ([]domain.PlayerSummary, error) {
	qb := sq.Select("player_id", "times_seen", "first_seen", "last_seen").
		From("player_summaries").
		OrderBy("last_seen DESC", "player_id ASC")

	if filter.MinTimesSeen > 0 {
		qb = qb.Where(sq.GtOrEq{"times_seen": filter.MinTimesSeen})
	}
	if filter.SeenSince != nil {
		qb = qb.Where(sq.GtOrEq{"last_seen": filter.SeenSince.UTC()})
	}
	if filter.Limit > 0 {
		qb = qb.Limit(uint64(filter.Limit))
	}

	query, args, err := qb.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build summary query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list player summaries: %w", err)
	}
	defer rows.Close()

	var result []domain.PlayerSummary
	for rows.Next() {
		var row db.PlayerSummary
		if err := rows.Scan(&row.PlayerID, &row.TimesSeen, &row.FirstSeen, &row.LastSeen); err != nil {
			return nil, fmt.Errorf("failed to scan player summary: %w", err)
		}
		result = append(result, toSummary(row))
	}
	return result, rows.Err()
}

func toSummary(row db.PlayerSummary) domain.PlayerSummary {
	return domain.PlayerSummary{
		PlayerID:  row.PlayerID,
		TimesSeen: int(row.TimesSeen),
		FirstSeen: row.FirstSeen,
		LastSeen:  row.LastSeen,
	}
}
