package service

import (
	"context"
	"fmt"
	"time"
	"valplus/internal/domain"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// HistoryStore is the persistence the reconciler reads and writes.
type HistoryStore interface {
	GetSummary(ctx context.Context, playerID string) (*domain.PlayerSummary, error)
	GetNameHistory(ctx context.Context, playerID string) ([]domain.NameHistoryRecord, error)
	GetMatchHistory(ctx context.Context, playerID string) ([]domain.MatchHistoryRecord, error)
	RecordEncounter(ctx context.Context, rec domain.MatchHistoryRecord, name, tag string) (domain.Encounter, error)
}

type MatchReconciler struct {
	poller   *MatchPoller
	resolver *IdentityResolver
	store    HistoryStore
	logger   zerolog.Logger
	now      func() time.Time
}

func NewMatchReconciler(poller *MatchPoller, resolver *IdentityResolver, store HistoryStore, logger zerolog.Logger) *MatchReconciler {
	return &MatchReconciler{
		poller:   poller,
		resolver: resolver,
		store:    store,
		logger:   logger,
		now:      time.Now,
	}
}

// Reconcile detects a new match relative to previous and returns the enriched
// roster. Only a live game is written to history; a pre-game roster is shown
// with what is already known. A nil snapshot with a nil error means there is
// nothing new to show.
func (r *MatchReconciler) Reconcile(ctx context.Context, session domain.SessionContext, previous domain.MatchRef) (*domain.Snapshot, error) {
	outcome, err := r.poller.Poll(ctx, session, previous)
	if err != nil {
		return nil, err
	}
	if outcome.Kind != NewMatch {
		return nil, nil
	}

	roster := outcome.Roster
	identities, err := r.resolver.Resolve(ctx, session, roster.PlayerIDs())
	if err != nil {
		return nil, err
	}

	observer, observed := roster.Entry(session.PlayerID)
	if !observed {
		r.logger.Warn().
			Str("match_id", roster.Match.ID).
			Str("player_id", session.PlayerID).
			Msg("own player missing from roster, treating everyone as ally")
	}

	playedAt := r.now().UTC()
	snapshot := &domain.Snapshot{
		Match:      roster.Match,
		MapID:      roster.MapID,
		ModeID:     roster.ModeID,
		Players:    make([]domain.EnrichedPlayer, 0, len(roster.Entries)),
		CapturedAt: playedAt,
	}

	for _, entry := range roster.Entries {
		identity, ok := identities[entry.PlayerID]
		if !ok {
			r.logger.Warn().Str("player_id", entry.PlayerID).Str("match_id", roster.Match.ID).Msg("player identity unresolved, skipping")
			continue
		}

		isEnemy := observed && entry.TeamID != observer.TeamID
		player, err := r.reconcilePlayer(ctx, roster, entry, identity, isEnemy, playedAt)
		if err != nil {
			r.logger.Warn().Err(err).Str("player_id", entry.PlayerID).Str("match_id", roster.Match.ID).Msg("failed to reconcile player, skipping")
			continue
		}
		snapshot.Players = append(snapshot.Players, player)
	}

	r.logger.Info().
		Str("match_id", roster.Match.ID).
		Str("phase", string(roster.Match.Phase)).
		Int("roster", len(roster.Entries)).
		Int("players", len(snapshot.Players)).
		Msg("match reconciled")

	return snapshot, nil
}

func (r *MatchReconciler) reconcilePlayer(ctx context.Context, roster *domain.MatchRoster, entry domain.RosterEntry, identity domain.PlayerIdentity, isEnemy bool, playedAt time.Time) (domain.EnrichedPlayer, error) {
	var (
		prior   *domain.PlayerSummary
		names   []domain.NameHistoryRecord
		matches []domain.MatchHistoryRecord
	)

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		prior, err = r.store.GetSummary(gCtx, entry.PlayerID)
		return err
	})
	g.Go(func() error {
		var err error
		names, err = r.store.GetNameHistory(gCtx, entry.PlayerID)
		return err
	})
	g.Go(func() error {
		var err error
		matches, err = r.store.GetMatchHistory(gCtx, entry.PlayerID)
		return err
	})
	if err := g.Wait(); err != nil {
		return domain.EnrichedPlayer{}, fmt.Errorf("failed to read history: %w", err)
	}

	var enc domain.Encounter
	if roster.Match.Phase == domain.PhaseLiveGame {
		var err error
		enc, err = r.store.RecordEncounter(ctx, domain.MatchHistoryRecord{
			PlayerID: entry.PlayerID,
			MatchID:  roster.Match.ID,
			MapID:    roster.MapID,
			ModeID:   roster.ModeID,
			AgentID:  entry.AgentID,
			IsEnemy:  isEnemy,
			PlayedAt: playedAt,
		}, identity.Name, identity.Tag)
		if err != nil {
			return domain.EnrichedPlayer{}, fmt.Errorf("failed to record encounter: %w", err)
		}
	}

	player := domain.EnrichedPlayer{
		PlayerID:     entry.PlayerID,
		Name:         identity.Name,
		Tag:          identity.Tag,
		TeamID:       entry.TeamID,
		AgentID:      entry.AgentID,
		AccountLevel: entry.AccountLevel,
		Incognito:    entry.Incognito,
		IsEnemy:      isEnemy,
		Summary:      domain.PlayerSummary{PlayerID: entry.PlayerID},
		FirstMeeting: isFirstMeeting(prior, matches, roster.Match.ID),
		NameHistory:  names,
		MatchHistory: matches,
	}
	if prior != nil {
		player.Summary = *prior
	}
	if enc.NameInserted {
		player.NameHistory = append(player.NameHistory, enc.Name)
	}
	if enc.MatchInserted {
		player.MatchHistory = append(player.MatchHistory, enc.Match)
	}
	if player.NameHistory == nil {
		player.NameHistory = []domain.NameHistoryRecord{}
	}
	if player.MatchHistory == nil {
		player.MatchHistory = []domain.MatchHistoryRecord{}
	}
	return player, nil
}

// isFirstMeeting is true when nothing links the player to an earlier match.
// A row already recorded for this match, as after a restart, does not count.
func isFirstMeeting(prior *domain.PlayerSummary, matches []domain.MatchHistoryRecord, matchID string) bool {
	if prior == nil {
		return true
	}
	for _, m := range matches {
		if m.MatchID != matchID {
			return false
		}
	}
	return prior.TimesSeen <= 1
}
