package service

import (
	"context"
	"errors"
	"fmt"
	"valplus/internal/api"
	"valplus/internal/domain"

	"github.com/rs/zerolog"
)

var ErrIdentityResolve = errors.New("failed to resolve player identities")

type NameClient interface {
	GetPlayerNames(ctx context.Context, session domain.SessionContext, playerIDs []string) ([]api.NameServiceEntry, error)
}

type IdentityResolver struct {
	client NameClient
	logger zerolog.Logger
}

func NewIdentityResolver(client NameClient, logger zerolog.Logger) *IdentityResolver {
	return &IdentityResolver{client: client, logger: logger}
}

// Resolve looks up every id in a single request. The result may hold fewer
// entries than requested; callers treat a missing id as unresolved.
func (r *IdentityResolver) Resolve(ctx context.Context, session domain.SessionContext, playerIDs []string) (map[string]domain.PlayerIdentity, error) {
	result := make(map[string]domain.PlayerIdentity, len(playerIDs))

	wanted := make(map[string]struct{}, len(playerIDs))
	ids := make([]string, 0, len(playerIDs))
	for _, id := range playerIDs {
		if id == "" {
			continue
		}
		if _, dup := wanted[id]; dup {
			continue
		}
		wanted[id] = struct{}{}
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return result, nil
	}

	entries, err := r.client.GetPlayerNames(ctx, session, ids)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrIdentityResolve, err)
	}

	for _, e := range entries {
		if _, ok := wanted[e.Subject]; !ok {
			continue
		}
		if e.GameName == "" {
			continue
		}
		result[e.Subject] = domain.PlayerIdentity{
			PlayerID: e.Subject,
			Name:     e.GameName,
			Tag:      e.TagLine,
		}
	}

	if missing := len(ids) - len(result); missing > 0 {
		r.logger.Warn().Int("requested", len(ids)).Int("missing", missing).Msg("name service returned a partial batch")
	}
	return result, nil
}
