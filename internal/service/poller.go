package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"valplus/internal/api"
	"valplus/internal/domain"

	"github.com/rs/zerolog"
)

var ErrRosterFetch = errors.New("failed to fetch match roster")

// MatchClient is the subset of the game API the poller needs.
type MatchClient interface {
	GetCoreGamePlayer(ctx context.Context, session domain.SessionContext) (*api.MatchPointer, error)
	GetCoreGameMatch(ctx context.Context, session domain.SessionContext, matchID string) (*api.CoreGameMatch, error)
	GetPreGamePlayer(ctx context.Context, session domain.SessionContext) (*api.MatchPointer, error)
	GetPreGameMatch(ctx context.Context, session domain.SessionContext, matchID string) (*api.PreGameMatch, error)
}

type OutcomeKind int

const (
	NoMatch OutcomeKind = iota
	SameMatch
	NewMatch
)

func (k OutcomeKind) String() string {
	switch k {
	case SameMatch:
		return "same_match"
	case NewMatch:
		return "new_match"
	default:
		return "no_match"
	}
}

type MatchOutcome struct {
	Kind   OutcomeKind
	Match  domain.MatchRef
	Roster *domain.MatchRoster // set for NewMatch only
}

type MatchPoller struct {
	client MatchClient
	logger zerolog.Logger
}

func NewMatchPoller(client MatchClient, logger zerolog.Logger) *MatchPoller {
	return &MatchPoller{client: client, logger: logger}
}

// Poll reports where the session's player currently is relative to previous.
// A live game wins over a lingering pre-game pointer.
func (p *MatchPoller) Poll(ctx context.Context, session domain.SessionContext, previous domain.MatchRef) (MatchOutcome, error) {
	ref, err := p.locate(ctx, session)
	if err != nil {
		return MatchOutcome{}, err
	}
	if ref.IsZero() {
		return MatchOutcome{Kind: NoMatch}, nil
	}
	if ref == previous {
		p.logger.Debug().Str("match_id", ref.ID).Str("phase", string(ref.Phase)).Msg("still in the same match")
		return MatchOutcome{Kind: SameMatch, Match: ref}, nil
	}

	roster, err := p.fetchRoster(ctx, session, ref)
	if err != nil {
		return MatchOutcome{}, fmt.Errorf("%w %s: %w", ErrRosterFetch, ref.ID, err)
	}

	p.logger.Info().
		Str("match_id", ref.ID).
		Str("phase", string(ref.Phase)).
		Int("players", len(roster.Entries)).
		Msg("new match detected")

	return MatchOutcome{Kind: NewMatch, Match: ref, Roster: roster}, nil
}

func (p *MatchPoller) locate(ctx context.Context, session domain.SessionContext) (domain.MatchRef, error) {
	id, err := pointerID(p.client.GetCoreGamePlayer(ctx, session))
	if err != nil {
		return domain.MatchRef{}, err
	}
	if id != "" {
		return domain.MatchRef{ID: id, Phase: domain.PhaseLiveGame}, nil
	}

	id, err = pointerID(p.client.GetPreGamePlayer(ctx, session))
	if err != nil {
		return domain.MatchRef{}, err
	}
	if id != "" {
		return domain.MatchRef{ID: id, Phase: domain.PhasePreGame}, nil
	}

	return domain.MatchRef{}, nil
}

// pointerID maps a pointer lookup to a match id. 404, 400 and an unparseable
// body are the normal "not in this phase" replies. Anything else, including
// an expired session's 401/403, is an error for the caller.
func pointerID(ptr *api.MatchPointer, err error) (string, error) {
	if err == nil {
		if ptr == nil {
			return "", nil
		}
		return ptr.MatchID, nil
	}

	var decErr *api.DecodeError
	if errors.As(err, &decErr) ||
		api.IsStatus(err, http.StatusNotFound) ||
		api.IsStatus(err, http.StatusBadRequest) {
		return "", nil
	}
	return "", err
}

func (p *MatchPoller) fetchRoster(ctx context.Context, session domain.SessionContext, ref domain.MatchRef) (*domain.MatchRoster, error) {
	switch ref.Phase {
	case domain.PhaseLiveGame:
		match, err := p.client.GetCoreGameMatch(ctx, session, ref.ID)
		if err != nil {
			return nil, err
		}
		return coreGameRoster(ref, match), nil
	case domain.PhasePreGame:
		match, err := p.client.GetPreGameMatch(ctx, session, ref.ID)
		if err != nil {
			return nil, err
		}
		return preGameRoster(ref, match)
	default:
		return nil, fmt.Errorf("unknown match phase %q", ref.Phase)
	}
}

func coreGameRoster(ref domain.MatchRef, match *api.CoreGameMatch) *domain.MatchRoster {
	roster := &domain.MatchRoster{
		Match:   ref,
		MapID:   match.MapID,
		ModeID:  match.ModeID,
		Entries: make([]domain.RosterEntry, 0, len(match.Players)),
	}

	for _, pl := range match.Players {
		id := pl.Subject
		if id == "" {
			id = pl.PlayerIdentity.Subject
		}
		if id == "" {
			continue
		}
		roster.Entries = append(roster.Entries, domain.RosterEntry{
			PlayerID:     id,
			TeamID:       pl.TeamID,
			AgentID:      pl.CharacterID,
			AccountLevel: pl.PlayerIdentity.AccountLevel,
			Incognito:    pl.PlayerIdentity.Incognito,
		})
	}
	return roster
}

// preGameRoster only sees the ally team. Agents count once locked in.
func preGameRoster(ref domain.MatchRef, match *api.PreGameMatch) (*domain.MatchRoster, error) {
	if match.AllyTeam == nil {
		return nil, &api.DecodeError{URL: "pregame/v1/matches/" + ref.ID, Err: errors.New("response has no ally team")}
	}

	roster := &domain.MatchRoster{
		Match:   ref,
		MapID:   match.MapID,
		ModeID:  match.Mode,
		Entries: make([]domain.RosterEntry, 0, len(match.AllyTeam.Players)),
	}

	for _, pl := range match.AllyTeam.Players {
		if pl.Subject == "" {
			continue
		}
		agent := ""
		if pl.CharacterSelectionState == "locked" {
			agent = pl.CharacterID
		}
		roster.Entries = append(roster.Entries, domain.RosterEntry{
			PlayerID:     pl.Subject,
			TeamID:       match.AllyTeam.TeamID,
			AgentID:      agent,
			AccountLevel: pl.PlayerIdentity.AccountLevel,
			Incognito:    pl.PlayerIdentity.Incognito,
		})
	}
	return roster, nil
}
