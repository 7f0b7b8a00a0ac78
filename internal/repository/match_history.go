package repository

import (
	"context"
	"database/sql"
	"fmt"
	"valplus/internal/constants"
	"valplus/internal/db"
	"valplus/internal/domain"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog"
)

type MatchHistoryRepository struct {
	queries *db.Queries
	db      *sql.DB
	logger  zerolog.Logger
}

func NewMatchHistoryRepository(sqlDB *sql.DB, queries *db.Queries, logger zerolog.Logger) *MatchHistoryRepository {
	return &MatchHistoryRepository{
		queries: queries,
		db:      sqlDB,
		logger:  logger,
	}
}

// List returns the player's matches oldest first.
func (r *MatchHistoryRepository) List(ctx context.Context, playerID string) ([]domain.MatchHistoryRecord, error) {
	rows, err := r.queries.ListMatchHistory(ctx, playerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list match history: %w", err)
	}

	result := make([]domain.MatchHistoryRecord, len(rows))
	for i, row := range rows {
		result[i] = fromMatchRow(row)
	}
	return result, nil
}

// Record inserts rec unless (player, match) is already present. rec.ID is
// assigned here; the returned record carries it.
func (r *MatchHistoryRepository) Record(ctx context.Context, rec domain.MatchHistoryRecord) (domain.MatchHistoryRecord, bool, error) {
	return r.record(ctx, r.queries, rec)
}

// RecordBatch inserts records in one transaction and reports how many were
// new. Duplicates are skipped, not errors.
func (r *MatchHistoryRepository) RecordBatch(ctx context.Context, records []domain.MatchHistoryRecord) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	qtx := r.queries.WithTx(tx)

	inserted := 0
	for i := 0; i < len(records); i += constants.DBBatchSize {
		end := i + constants.DBBatchSize
		if end > len(records) {
			end = len(records)
		}

		for _, rec := range records[i:end] {
			_, ok, err := r.record(ctx, qtx, rec)
			if err != nil {
				return 0, err
			}
			if ok {
				inserted++
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit match history batch: %w", err)
	}
	return inserted, nil
}

func (r *MatchHistoryRepository) record(ctx context.Context, q *db.Queries, rec domain.MatchHistoryRecord) (domain.MatchHistoryRecord, bool, error) {
	id, err := gonanoid.New()
	if err != nil {
		return domain.MatchHistoryRecord{}, false, fmt.Errorf("failed to generate nanoid: %w", err)
	}
	rec.ID = id
	rec.PlayedAt = rec.PlayedAt.UTC()

	n, err := q.InsertMatchHistory(ctx, db.InsertMatchHistoryParams{
		ID:       rec.ID,
		PlayerID: rec.PlayerID,
		MatchID:  rec.MatchID,
		MapID:    rec.MapID,
		ModeID:   rec.ModeID,
		AgentID:  rec.AgentID,
		IsEnemy:  rec.IsEnemy,
		PlayedAt: rec.PlayedAt,
	})
	if err != nil {
		return domain.MatchHistoryRecord{}, false, fmt.Errorf("failed to insert match history %s/%s: %w", rec.PlayerID, rec.MatchID, err)
	}
	if n == 0 {
		r.logger.Debug().Str("player_id", rec.PlayerID).Str("match_id", rec.MatchID).Msg("match already recorded")
		return domain.MatchHistoryRecord{}, false, nil
	}
	return rec, true, nil
}

func fromMatchRow(row db.MatchHistory) domain.MatchHistoryRecord {
	return domain.MatchHistoryRecord{
		ID:       row.ID,
		PlayerID: row.PlayerID,
		MatchID:  row.MatchID,
		MapID:    row.MapID,
		ModeID:   row.ModeID,
		AgentID:  row.AgentID,
		IsEnemy:  row.IsEnemy,
		PlayedAt: row.PlayedAt,
	}
}
