package auth

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
	"valplus/internal/domain"

	"github.com/golang-jwt/jwt/v5"
)

// ErrAuthUnavailable means no game session can be built yet, usually because
// the game client is not running. Callers wait and retry.
var ErrAuthUnavailable = errors.New("game session unavailable")

// Authenticator produces the session used by every game API call.
type Authenticator interface {
	Authenticate(ctx context.Context) (domain.SessionContext, error)
}

// EnvAuthenticator builds a session from tokens exported by an external
// launcher. The environment is re-read on every call so that refreshed tokens
// are picked up without a restart.
type EnvAuthenticator struct {
	getenv func(string) string
	now    func() time.Time
}

func NewEnvAuthenticator() *EnvAuthenticator {
	return &EnvAuthenticator{
		getenv: os.Getenv,
		now:    time.Now,
	}
}

func (a *EnvAuthenticator) Authenticate(ctx context.Context) (domain.SessionContext, error) {
	if err := ctx.Err(); err != nil {
		return domain.SessionContext{}, err
	}

	access := strings.TrimSpace(a.getenv("RIOT_ACCESS_TOKEN"))
	entitlement := strings.TrimSpace(a.getenv("RIOT_ENTITLEMENT_TOKEN"))
	region := strings.ToLower(strings.TrimSpace(a.getenv("RIOT_REGION")))
	shard := strings.ToLower(strings.TrimSpace(a.getenv("RIOT_SHARD")))
	version := strings.TrimSpace(a.getenv("RIOT_CLIENT_VERSION"))

	if access == "" || entitlement == "" {
		return domain.SessionContext{}, fmt.Errorf("%w: access or entitlement token not set", ErrAuthUnavailable)
	}
	if region == "" {
		return domain.SessionContext{}, fmt.Errorf("%w: region not set", ErrAuthUnavailable)
	}
	if shard == "" {
		shard = region
	}

	claims, err := parseAccessToken(access)
	if err != nil {
		return domain.SessionContext{}, fmt.Errorf("%w: %v", ErrAuthUnavailable, err)
	}
	if claims.ExpiresAt != nil && !claims.ExpiresAt.After(a.now()) {
		return domain.SessionContext{}, fmt.Errorf("%w: access token expired at %s", ErrAuthUnavailable, claims.ExpiresAt.Time.Format(time.RFC3339))
	}

	playerID := strings.TrimSpace(a.getenv("RIOT_PLAYER_ID"))
	if playerID == "" {
		playerID = claims.Subject
	}
	if playerID == "" {
		return domain.SessionContext{}, fmt.Errorf("%w: own player id unknown", ErrAuthUnavailable)
	}

	return domain.SessionContext{
		Region:           region,
		Shard:            shard,
		PlayerID:         playerID,
		AccessToken:      access,
		EntitlementToken: entitlement,
		ClientVersion:    version,
	}, nil
}

// parseAccessToken reads the claims without verifying the signature; the
// token is only forwarded to the game API, which does the verification.
func parseAccessToken(token string) (*jwt.RegisteredClaims, error) {
	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, fmt.Errorf("failed to parse access token: %w", err)
	}
	return claims, nil
}
