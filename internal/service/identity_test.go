package service

import (
	"context"
	"errors"
	"testing"
	"valplus/internal/api"
	"valplus/internal/domain"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveSingleBatch(t *testing.T) {
	client := &fakeNameClient{names: map[string][2]string{
		"A": {"Alice", "EU1"},
		"B": {"Bob", "EU2"},
	}}
	resolver := NewIdentityResolver(client, zerolog.Nop())

	got, err := resolver.Resolve(context.Background(), testSession, []string{"A", "B", "A", ""})
	require.NoError(t, err)
	assert.Equal(t, 1, client.calls)
	assert.Equal(t, []string{"A", "B"}, client.requested)
	assert.Equal(t, map[string]domain.PlayerIdentity{
		"A": {PlayerID: "A", Name: "Alice", Tag: "EU1"},
		"B": {PlayerID: "B", Name: "Bob", Tag: "EU2"},
	}, got)
}

func TestResolvePartialBatch(t *testing.T) {
	client := &fakeNameClient{names: map[string][2]string{
		"A": {"Alice", "EU1"},
		"C": {"", ""},
	}}
	resolver := NewIdentityResolver(client, zerolog.Nop())

	got, err := resolver.Resolve(context.Background(), testSession, []string{"A", "B", "C"})
	require.NoError(t, err)
	assert.Len(t, got, 1)
	assert.Contains(t, got, "A")
}

func TestResolveIgnoresUnrequested(t *testing.T) {
	resolver := NewIdentityResolver(&stubNames{entries: []api.NameServiceEntry{
		{Subject: "A", GameName: "Alice", TagLine: "EU1"},
		{Subject: "Z", GameName: "Zed", TagLine: "NA1"},
	}}, zerolog.Nop())

	got, err := resolver.Resolve(context.Background(), testSession, []string{"A"})
	require.NoError(t, err)
	assert.Len(t, got, 1)
	assert.NotContains(t, got, "Z")
}

func TestResolveEmpty(t *testing.T) {
	client := &fakeNameClient{}
	resolver := NewIdentityResolver(client, zerolog.Nop())

	got, err := resolver.Resolve(context.Background(), testSession, nil)
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Equal(t, 0, client.calls)
}

func TestResolveBatchFailure(t *testing.T) {
	client := &fakeNameClient{err: &api.NetworkError{URL: "fake", Err: errors.New("timeout")}}
	resolver := NewIdentityResolver(client, zerolog.Nop())

	_, err := resolver.Resolve(context.Background(), testSession, []string{"A"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrIdentityResolve)
	assert.True(t, api.IsRetryable(err))
}

type stubNames struct {
	entries []api.NameServiceEntry
}

func (s *stubNames) GetPlayerNames(ctx context.Context, session domain.SessionContext, playerIDs []string) ([]api.NameServiceEntry, error) {
	return s.entries, nil
}
