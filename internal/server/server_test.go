package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"
	"valplus/internal/config"
	"valplus/internal/domain"
	"valplus/internal/poll"
	"valplus/internal/repository"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCycle struct {
	mu        sync.Mutex
	current   *domain.Snapshot
	refreshes int
}

func (c *fakeCycle) Current() *domain.Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

func (c *fakeCycle) ForceRefresh() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.refreshes++
}

func (c *fakeCycle) setCurrent(snap *domain.Snapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = snap
}

func (c *fakeCycle) refreshCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.refreshes
}

func (c *fakeCycle) Status() poll.Status {
	return poll.Status{State: poll.StateIdle, Authenticated: true, AutoRefresh: true}
}

type fakeHistory struct {
	mu        sync.Mutex
	summaries map[string]domain.PlayerSummary
	names     map[string][]domain.NameHistoryRecord
	err       error
	filter    repository.SummaryFilter
}

func (h *fakeHistory) GetSummary(ctx context.Context, playerID string) (*domain.PlayerSummary, error) {
	if h.err != nil {
		return nil, h.err
	}
	s, ok := h.summaries[playerID]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

func (h *fakeHistory) lastFilter() repository.SummaryFilter {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.filter
}

func (h *fakeHistory) GetNameHistory(ctx context.Context, playerID string) ([]domain.NameHistoryRecord, error) {
	return h.names[playerID], nil
}

func (h *fakeHistory) GetMatchHistory(ctx context.Context, playerID string) ([]domain.MatchHistoryRecord, error) {
	return nil, nil
}

func (h *fakeHistory) ListSummaries(ctx context.Context, filter repository.SummaryFilter) ([]domain.PlayerSummary, error) {
	h.mu.Lock()
	h.filter = filter
	h.mu.Unlock()
	if h.err != nil {
		return nil, h.err
	}
	out := make([]domain.PlayerSummary, 0, len(h.summaries))
	for _, s := range h.summaries {
		out = append(out, s)
	}
	return out, nil
}

type fakeSettings struct {
	mu sync.Mutex
	s  config.Settings
}

func (f *fakeSettings) Get() config.Settings {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.s
}

func (f *fakeSettings) Update(next config.Settings) error {
	if err := next.Validate(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.s = next
	return nil
}

type fixture struct {
	cycle    *fakeCycle
	history  *fakeHistory
	settings *fakeSettings
	hub      *Hub
	srv      *httptest.Server
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	seen := time.Date(2024, 3, 1, 20, 0, 0, 0, time.UTC)
	f := &fixture{
		cycle: &fakeCycle{},
		history: &fakeHistory{
			summaries: map[string]domain.PlayerSummary{
				"B": {PlayerID: "B", TimesSeen: 3, FirstSeen: seen, LastSeen: seen},
			},
			names: map[string][]domain.NameHistoryRecord{
				"B": {{ID: "n1", PlayerID: "B", Name: "Bob", Tag: "EU1", RecordedAt: seen}},
			},
		},
		settings: &fakeSettings{s: config.Settings{
			AutoRefresh:       true,
			PollInterval:      10 * time.Second,
			AuthRetryInterval: 15 * time.Second,
		}},
		hub: NewHub(zerolog.Nop()),
	}
	go f.hub.Run()
	t.Cleanup(f.hub.Stop)

	s := &Server{
		cycle:    f.cycle,
		history:  f.history,
		settings: f.settings,
		hub:      f.hub,
		logger:   zerolog.Nop(),
	}
	f.srv = httptest.NewServer(s.Handler())
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fixture) do(t *testing.T, method, path, body string) (*http.Response, map[string]any) {
	t.Helper()

	req, err := http.NewRequest(method, f.srv.URL+path, strings.NewReader(body))
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp, out
}

func TestSnapshotEndpoint(t *testing.T) {
	f := newFixture(t)

	resp, body := f.do(t, http.MethodGet, "/api/snapshot", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Nil(t, body["snapshot"])
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))

	f.cycle.setCurrent(&domain.Snapshot{Match: domain.MatchRef{ID: "M1", Phase: domain.PhaseLiveGame}})
	_, body = f.do(t, http.MethodGet, "/api/snapshot", "")
	snap := body["snapshot"].(map[string]any)
	assert.Equal(t, "M1", snap["match"].(map[string]any)["match_id"])
	assert.Equal(t, "idle", body["status"].(map[string]any)["state"])
}

func TestRefreshEndpoint(t *testing.T) {
	f := newFixture(t)

	resp, _ := f.do(t, http.MethodPost, "/api/refresh", "")
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)
	assert.Equal(t, 1, f.cycle.refreshCount())

	resp, err := http.Get(f.srv.URL + "/api/refresh")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestGetPlayer(t *testing.T) {
	f := newFixture(t)

	resp, body := f.do(t, http.MethodGet, "/api/players/B", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(3), body["summary"].(map[string]any)["times_seen"])
	assert.Len(t, body["name_history"], 1)
	assert.Equal(t, []any{}, body["match_history"])

	resp, body = f.do(t, http.MethodGet, "/api/players/nobody", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "player not seen", body["error"])
}

func TestGetPlayerStoreFailure(t *testing.T) {
	f := newFixture(t)
	f.history.err = errors.New("disk I/O error")

	resp, _ := f.do(t, http.MethodGet, "/api/players/B", "")
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
}

func TestListPlayers(t *testing.T) {
	tests := []struct {
		name       string
		query      string
		wantStatus int
		wantFilter repository.SummaryFilter
	}{
		{"defaults", "", http.StatusOK, repository.SummaryFilter{Limit: 50}},
		{"min seen", "?min_seen=2&limit=10", http.StatusOK, repository.SummaryFilter{MinTimesSeen: 2, Limit: 10}},
		{"limit capped", "?limit=10000", http.StatusOK, repository.SummaryFilter{Limit: 500}},
		{"bad limit", "?limit=0", http.StatusBadRequest, repository.SummaryFilter{}},
		{"bad min seen", "?min_seen=x", http.StatusBadRequest, repository.SummaryFilter{}},
		{"bad since", "?since=yesterday", http.StatusBadRequest, repository.SummaryFilter{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			resp, body := f.do(t, http.MethodGet, "/api/players"+tt.query, "")
			assert.Equal(t, tt.wantStatus, resp.StatusCode)
			if tt.wantStatus == http.StatusOK {
				assert.Equal(t, tt.wantFilter, f.history.lastFilter())
				assert.Len(t, body["players"], 1)
			}
		})
	}
}

func TestListPlayersSince(t *testing.T) {
	f := newFixture(t)

	resp, _ := f.do(t, http.MethodGet, "/api/players?since=2024-03-01T00:00:00Z", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	filter := f.history.lastFilter()
	require.NotNil(t, filter.SeenSince)
	assert.True(t, filter.SeenSince.Equal(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)))
}

func TestSettingsEndpoints(t *testing.T) {
	f := newFixture(t)

	resp, body := f.do(t, http.MethodGet, "/api/settings", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(10), body["poll_interval_seconds"])

	resp, body = f.do(t, http.MethodPut, "/api/settings", `{"auto_refresh": false, "poll_interval_seconds": 5}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, false, body["auto_refresh"])
	assert.Equal(t, float64(5), body["poll_interval_seconds"])
	assert.Equal(t, 15*time.Second, f.settings.Get().AuthRetryInterval, "absent fields are left unchanged")

	resp, _ = f.do(t, http.MethodPut, "/api/settings", `{"poll_interval_seconds": 0.5}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, 5*time.Second, f.settings.Get().PollInterval)

	resp, _ = f.do(t, http.MethodPut, "/api/settings", `not json`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestCORSPreflight(t *testing.T) {
	f := newFixture(t)

	req, err := http.NewRequest(http.MethodOptions, f.srv.URL+"/api/settings", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodPut)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
}

func dial(t *testing.T, f *fixture) *websocket.Conn {
	t.Helper()

	url := "ws" + strings.TrimPrefix(f.srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg Message
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func TestWebSocketReceivesCurrentThenBroadcast(t *testing.T) {
	f := newFixture(t)
	f.cycle.setCurrent(&domain.Snapshot{Match: domain.MatchRef{ID: "M1", Phase: domain.PhaseLiveGame}})

	conn := dial(t, f)
	msg := readMessage(t, conn)
	assert.Equal(t, "snapshot", msg.Type)
	require.NotNil(t, msg.Snapshot)
	assert.Equal(t, "M1", msg.Snapshot.Match.ID)

	require.Eventually(t, func() bool { return f.hub.ClientCount() == 1 }, 2*time.Second, 5*time.Millisecond)

	snapshots := make(chan domain.Snapshot, 1)
	go f.hub.Forward(snapshots)
	snapshots <- domain.Snapshot{Match: domain.MatchRef{ID: "M2", Phase: domain.PhaseLiveGame}}

	msg = readMessage(t, conn)
	assert.Equal(t, "M2", msg.Snapshot.Match.ID)
	close(snapshots)
}

func TestWebSocketUnregistersOnClose(t *testing.T) {
	f := newFixture(t)

	conn := dial(t, f)
	require.Eventually(t, func() bool { return f.hub.ClientCount() == 1 }, 2*time.Second, 5*time.Millisecond)

	conn.Close()
	require.Eventually(t, func() bool { return f.hub.ClientCount() == 0 }, 2*time.Second, 5*time.Millisecond)
}

func TestHubStopTwice(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	done := make(chan struct{})
	go func() {
		hub.Run()
		close(done)
	}()

	assert.NotPanics(t, hub.Stop)
	assert.NotPanics(t, hub.Stop)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("hub did not stop")
	}
}
