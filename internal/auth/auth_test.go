package auth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func signToken(t *testing.T, subject string, expires time.Time) string {
	t.Helper()

	claims := jwt.RegisteredClaims{
		Subject:   subject,
		ExpiresAt: jwt.NewNumericDate(expires),
		IssuedAt:  jwt.NewNumericDate(fixedNow.Add(-time.Hour)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return token
}

func newTestAuthenticator(env map[string]string) *EnvAuthenticator {
	return &EnvAuthenticator{
		getenv: func(key string) string { return env[key] },
		now:    func() time.Time { return fixedNow },
	}
}

func TestEnvAuthenticator(t *testing.T) {
	valid := signToken(t, "puuid-self", fixedNow.Add(time.Hour))
	expired := signToken(t, "puuid-self", fixedNow.Add(-time.Minute))

	tests := []struct {
		name        string
		env         map[string]string
		wantErr     bool
		wantPlayer  string
		wantShard   string
		wantVersion string
	}{
		{
			name: "subject becomes player id",
			env: map[string]string{
				"RIOT_ACCESS_TOKEN":      valid,
				"RIOT_ENTITLEMENT_TOKEN": "ent",
				"RIOT_REGION":            "EU",
				"RIOT_CLIENT_VERSION":    "release-08.00",
			},
			wantPlayer:  "puuid-self",
			wantShard:   "eu",
			wantVersion: "release-08.00",
		},
		{
			name: "explicit player id and shard",
			env: map[string]string{
				"RIOT_ACCESS_TOKEN":      valid,
				"RIOT_ENTITLEMENT_TOKEN": "ent",
				"RIOT_REGION":            "latam",
				"RIOT_SHARD":             "na",
				"RIOT_PLAYER_ID":         "override",
			},
			wantPlayer: "override",
			wantShard:  "na",
		},
		{
			name:    "nothing exported",
			env:     map[string]string{},
			wantErr: true,
		},
		{
			name: "missing region",
			env: map[string]string{
				"RIOT_ACCESS_TOKEN":      valid,
				"RIOT_ENTITLEMENT_TOKEN": "ent",
			},
			wantErr: true,
		},
		{
			name: "expired token",
			env: map[string]string{
				"RIOT_ACCESS_TOKEN":      expired,
				"RIOT_ENTITLEMENT_TOKEN": "ent",
				"RIOT_REGION":            "eu",
			},
			wantErr: true,
		},
		{
			name: "garbage token",
			env: map[string]string{
				"RIOT_ACCESS_TOKEN":      "not-a-jwt",
				"RIOT_ENTITLEMENT_TOKEN": "ent",
				"RIOT_REGION":            "eu",
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			session, err := newTestAuthenticator(tt.env).Authenticate(context.Background())
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrAuthUnavailable)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantPlayer, session.PlayerID)
			assert.Equal(t, tt.wantShard, session.Shard)
			assert.Equal(t, tt.wantVersion, session.ClientVersion)
			assert.Equal(t, "ent", session.EntitlementToken)
		})
	}
}

func TestEnvAuthenticatorCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestAuthenticator(map[string]string{}).Authenticate(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
