package repository

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"
	"valplus/internal/db"
	"valplus/internal/domain"

	"github.com/rs/zerolog"
)

// HistoryStore is the single owner of persisted player history. Writes are
// serialized behind one lock; reads go straight to the database.
type HistoryStore struct {
	db      *sql.DB
	queries *db.Queries
	players *PlayerRepository
	names   *NameHistoryRepository
	matches *MatchHistoryRepository

	mu  sync.Mutex
	now func() time.Time
}

func NewHistoryStore(players *PlayerRepository, names *NameHistoryRepository, matches *MatchHistoryRepository) *HistoryStore {
	return &HistoryStore{
		db:      players.db,
		queries: players.queries,
		players: players,
		names:   names,
		matches: matches,
		now:     time.Now,
	}
}

// NewHistoryStoreFromDB wires the three repositories over one connection.
func NewHistoryStoreFromDB(sqlDB *sql.DB, logger zerolog.Logger) *HistoryStore {
	queries := db.New(sqlDB)
	return NewHistoryStore(
		NewPlayerRepository(sqlDB, queries, logger),
		NewNameHistoryRepository(sqlDB, queries, logger),
		NewMatchHistoryRepository(sqlDB, queries, logger),
	)
}

// WithClock replaces the time source used for touches and name records.
func (s *HistoryStore) WithClock(now func() time.Time) *HistoryStore {
	s.now = now
	return s
}

func (s *HistoryStore) GetSummary(ctx context.Context, playerID string) (*domain.PlayerSummary, error) {
	return s.players.GetSummary(ctx, playerID)
}

func (s *HistoryStore) TouchSummary(ctx context.Context, playerID string) (domain.PlayerSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.players.TouchSummary(ctx, playerID, s.now())
}

func (s *HistoryStore) SeedSummary(ctx context.Context, summary domain.PlayerSummary) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.players.SeedSummary(ctx, summary)
}

func (s *HistoryStore) ListSummaries(ctx context.Context, filter SummaryFilter) ([]domain.PlayerSummary, error) {
	return s.players.List(ctx, filter)
}

func (s *HistoryStore) GetNameHistory(ctx context.Context, playerID string) ([]domain.NameHistoryRecord, error) {
	return s.names.List(ctx, playerID)
}

func (s *HistoryStore) RecordName(ctx context.Context, playerID, name, tag string) (domain.NameHistoryRecord, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.names.Record(ctx, playerID, name, tag, s.now())
}

// RecordNameAt is RecordName with an explicit timestamp, used by imports.
func (s *HistoryStore) RecordNameAt(ctx context.Context, playerID, name, tag string, at time.Time) (domain.NameHistoryRecord, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.names.Record(ctx, playerID, name, tag, at)
}

func (s *HistoryStore) GetMatchHistory(ctx context.Context, playerID string) ([]domain.MatchHistoryRecord, error) {
	return s.matches.List(ctx, playerID)
}

func (s *HistoryStore) RecordMatch(ctx context.Context, rec domain.MatchHistoryRecord) (domain.MatchHistoryRecord, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.matches.Record(ctx, rec)
}

func (s *HistoryStore) RecordMatches(ctx context.Context, records []domain.MatchHistoryRecord) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.matches.RecordBatch(ctx, records)
}

// RecordEncounter records the player's row for rec.MatchID, counts the match
// in their summary and records (name, tag), all in one transaction. The
// summary is only bumped when the match row is new or no summary exists, so a
// retried match is counted exactly once.
func (s *HistoryStore) RecordEncounter(ctx context.Context, rec domain.MatchHistoryRecord, name, tag string) (domain.Encounter, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.Encounter{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	qtx := s.queries.WithTx(tx)
	now := s.now()

	var enc domain.Encounter
	enc.Match, enc.MatchInserted, err = s.matches.record(ctx, qtx, rec)
	if err != nil {
		return domain.Encounter{}, err
	}

	summary, err := s.players.get(ctx, qtx, rec.PlayerID)
	if err != nil {
		return domain.Encounter{}, err
	}
	if enc.MatchInserted || summary == nil {
		touched, err := s.players.touch(ctx, qtx, rec.PlayerID, now)
		if err != nil {
			return domain.Encounter{}, err
		}
		summary = &touched
	}
	enc.Summary = *summary

	enc.Name, enc.NameInserted, err = s.names.record(ctx, qtx, rec.PlayerID, name, tag, now)
	if err != nil {
		return domain.Encounter{}, err
	}

	if err := tx.Commit(); err != nil {
		return domain.Encounter{}, fmt.Errorf("failed to commit encounter %s/%s: %w", rec.PlayerID, rec.MatchID, err)
	}
	return enc, nil
}
