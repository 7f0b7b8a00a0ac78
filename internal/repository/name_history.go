package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"
	"valplus/internal/db"
	"valplus/internal/domain"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog"
)

type NameHistoryRepository struct {
	queries *db.Queries
	db      *sql.DB
	logger  zerolog.Logger
}

func NewNameHistoryRepository(sqlDB *sql.DB, queries *db.Queries, logger zerolog.Logger) *NameHistoryRepository {
	return &NameHistoryRepository{
		queries: queries,
		db:      sqlDB,
		logger:  logger,
	}
}

// List returns the player's names oldest first.
func (r *NameHistoryRepository) List(ctx context.Context, playerID string) ([]domain.NameHistoryRecord, error) {
	rows, err := r.queries.ListNameHistory(ctx, playerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list name history: %w", err)
	}

	result := make([]domain.NameHistoryRecord, len(rows))
	for i, row := range rows {
		result[i] = domain.NameHistoryRecord{
			ID:         row.ID,
			PlayerID:   row.PlayerID,
			Name:       row.Name,
			Tag:        row.Tag,
			RecordedAt: row.RecordedAt,
		}
	}
	return result, nil
}

// Record inserts (name, tag) for the player unless that pair is already
// present. The returned record is only meaningful when inserted is true.
func (r *NameHistoryRepository) Record(ctx context.Context, playerID, name, tag string, at time.Time) (domain.NameHistoryRecord, bool, error) {
	return r.record(ctx, r.queries, playerID, name, tag, at)
}

func (r *NameHistoryRepository) record(ctx context.Context, q *db.Queries, playerID, name, tag string, at time.Time) (domain.NameHistoryRecord, bool, error) {
	id, err := gonanoid.New()
	if err != nil {
		return domain.NameHistoryRecord{}, false, fmt.Errorf("failed to generate nanoid: %w", err)
	}

	rec := domain.NameHistoryRecord{
		ID:         id,
		PlayerID:   playerID,
		Name:       name,
		Tag:        tag,
		RecordedAt: at.UTC(),
	}

	n, err := q.InsertNameHistory(ctx, db.InsertNameHistoryParams{
		ID:         rec.ID,
		PlayerID:   rec.PlayerID,
		Name:       rec.Name,
		Tag:        rec.Tag,
		RecordedAt: rec.RecordedAt,
	})
	if err != nil {
		return domain.NameHistoryRecord{}, false, fmt.Errorf("failed to insert name history for %s: %w", playerID, err)
	}

	if n == 0 {
		r.logger.Debug().Str("player_id", playerID).Str("name", name).Str("tag", tag).Msg("name already recorded")
		return domain.NameHistoryRecord{}, false, nil
	}
	r.logger.Debug().Str("player_id", playerID).Str("name", name).Str("tag", tag).Msg("new name recorded")
	return rec, true, nil
}
