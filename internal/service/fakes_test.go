package service

import (
	"context"
	"database/sql"
	"net/http"
	"path/filepath"
	"sync"
	"testing"
	"time"
	"valplus/internal/api"
	"valplus/internal/database"
	"valplus/internal/domain"
	"valplus/internal/repository"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

var testSession = domain.SessionContext{
	Region:   "eu",
	Shard:    "eu",
	PlayerID: "A",
}

type fakeGameClient struct {
	mu sync.Mutex

	live    *api.MatchPointer
	liveErr error
	pre     *api.MatchPointer
	preErr  error

	coreMatch *api.CoreGameMatch
	preMatch  *api.PreGameMatch
	rosterErr error

	pointerCalls int
	rosterCalls  int
}

func notFound() error {
	return &api.StatusError{URL: "fake", Code: http.StatusNotFound}
}

func (f *fakeGameClient) GetCoreGamePlayer(ctx context.Context, session domain.SessionContext) (*api.MatchPointer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pointerCalls++
	if f.liveErr != nil {
		return nil, f.liveErr
	}
	if f.live == nil {
		return nil, notFound()
	}
	return f.live, nil
}

func (f *fakeGameClient) GetPreGamePlayer(ctx context.Context, session domain.SessionContext) (*api.MatchPointer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pointerCalls++
	if f.preErr != nil {
		return nil, f.preErr
	}
	if f.pre == nil {
		return nil, notFound()
	}
	return f.pre, nil
}

func (f *fakeGameClient) GetCoreGameMatch(ctx context.Context, session domain.SessionContext, matchID string) (*api.CoreGameMatch, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rosterCalls++
	if f.rosterErr != nil {
		return nil, f.rosterErr
	}
	return f.coreMatch, nil
}

func (f *fakeGameClient) GetPreGameMatch(ctx context.Context, session domain.SessionContext, matchID string) (*api.PreGameMatch, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rosterCalls++
	if f.rosterErr != nil {
		return nil, f.rosterErr
	}
	return f.preMatch, nil
}

func (f *fakeGameClient) setLive(match *api.CoreGameMatch) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.live = &api.MatchPointer{MatchID: match.MatchID}
	f.coreMatch = match
}

type fakeNameClient struct {
	mu        sync.Mutex
	names     map[string][2]string
	err       error
	calls     int
	requested []string
}

func (f *fakeNameClient) GetPlayerNames(ctx context.Context, session domain.SessionContext, playerIDs []string) ([]api.NameServiceEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.requested = append([]string(nil), playerIDs...)
	if f.err != nil {
		return nil, f.err
	}

	var entries []api.NameServiceEntry
	for _, id := range playerIDs {
		if n, ok := f.names[id]; ok {
			entries = append(entries, api.NameServiceEntry{Subject: id, GameName: n[0], TagLine: n[1]})
		}
	}
	return entries, nil
}

func coreMatch(id string, players ...[2]string) *api.CoreGameMatch {
	m := &api.CoreGameMatch{
		MatchID: id,
		MapID:   "/Game/Maps/Ascent/Ascent",
		ModeID:  "/Game/GameModes/Bomb/BombGameMode.BombGameMode_C",
	}
	for _, p := range players {
		m.Players = append(m.Players, api.CoreGamePlayer{
			Subject:     p[0],
			TeamID:      p[1],
			CharacterID: "agent-" + p[0],
		})
	}
	return m
}

func newTestHistoryStore(t *testing.T) *repository.HistoryStore {
	t.Helper()

	store, _ := openTestHistory(t)
	return store
}

func openTestHistory(t *testing.T) (*repository.HistoryStore, *sql.DB) {
	t.Helper()

	sqlDB, err := database.Open(filepath.Join(t.TempDir(), "history.db"), zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	var mu sync.Mutex
	store := repository.NewHistoryStoreFromDB(sqlDB, zerolog.Nop()).WithClock(func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		now = now.Add(time.Second)
		return now
	})
	return store, sqlDB
}
