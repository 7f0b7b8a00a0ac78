package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"
	"valplus/internal/config"
	"valplus/internal/constants"
	"valplus/internal/domain"
	"valplus/internal/middleware"
	"valplus/internal/poll"
	"valplus/internal/repository"

	"github.com/rs/cors"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

type Cycle interface {
	Current() *domain.Snapshot
	ForceRefresh()
	Status() poll.Status
}

type History interface {
	GetSummary(ctx context.Context, playerID string) (*domain.PlayerSummary, error)
	GetNameHistory(ctx context.Context, playerID string) ([]domain.NameHistoryRecord, error)
	GetMatchHistory(ctx context.Context, playerID string) ([]domain.MatchHistoryRecord, error)
	ListSummaries(ctx context.Context, filter repository.SummaryFilter) ([]domain.PlayerSummary, error)
}

type Settings interface {
	Get() config.Settings
	Update(next config.Settings) error
}

// Server is the local feed the presentation layer reads snapshots and
// history from.
type Server struct {
	cycle    Cycle
	history  History
	settings Settings
	hub      *Hub
	logger   zerolog.Logger
	srv      *http.Server
}

func NewServer(cfg *config.Config, cycle Cycle, history History, settings Settings, hub *Hub, logger zerolog.Logger) *Server {
	s := &Server{
		cycle:    cycle,
		history:  history,
		settings: settings,
		hub:      hub,
		logger:   logger,
	}
	s.srv = &http.Server{
		Addr:              net.JoinHostPort("127.0.0.1", cfg.ServerPort),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/snapshot", s.handleSnapshot)
	mux.HandleFunc("GET /api/status", s.handleStatus)
	mux.HandleFunc("POST /api/refresh", s.handleRefresh)
	mux.HandleFunc("GET /api/players", s.handleListPlayers)
	mux.HandleFunc("GET /api/players/{id}", s.handleGetPlayer)
	mux.HandleFunc("GET /api/settings", s.handleGetSettings)
	mux.HandleFunc("PUT /api/settings", s.handleUpdateSettings)
	mux.HandleFunc("GET /ws", s.handleWebSocket)

	c := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
		AllowedHeaders: []string{"*"},
	})

	return middleware.RequestID(s.logger)(c.Handler(mux))
}

func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.srv.Addr, err)
	}

	go func() {
		s.logger.Info().Str("addr", s.srv.Addr).Msg("server starting")
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error().Err(err).Msg("server failed")
		}
	}()
	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(ctx, constants.ShutdownTimeout)
	defer cancel()

	if err := s.srv.Shutdown(shutdownCtx); err != nil {
		s.logger.Error().Err(err).Msg("server shutdown failed")
		return err
	}
	s.logger.Info().Msg("server stopped gracefully")
	return nil
}

type snapshotResponse struct {
	Snapshot *domain.Snapshot `json:"snapshot"`
	Status   poll.Status      `json:"status"`
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, snapshotResponse{
		Snapshot: s.cycle.Current(),
		Status:   s.cycle.Status(),
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.cycle.Status())
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	s.cycle.ForceRefresh()
	writeJSON(w, http.StatusAccepted, s.cycle.Status())
}

type playerResponse struct {
	Summary      domain.PlayerSummary        `json:"summary"`
	NameHistory  []domain.NameHistoryRecord  `json:"name_history"`
	MatchHistory []domain.MatchHistoryRecord `json:"match_history"`
}

func (s *Server) handleGetPlayer(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	ctx, cancel := context.WithTimeout(r.Context(), constants.DatabaseTimeout)
	defer cancel()

	var (
		summary *domain.PlayerSummary
		resp    playerResponse
	)

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		summary, err = s.history.GetSummary(gCtx, id)
		return err
	})
	g.Go(func() error {
		var err error
		resp.NameHistory, err = s.history.GetNameHistory(gCtx, id)
		return err
	})
	g.Go(func() error {
		var err error
		resp.MatchHistory, err = s.history.GetMatchHistory(gCtx, id)
		return err
	})
	if err := g.Wait(); err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Str("player_id", id).Msg("failed to load player history")
		writeError(w, http.StatusInternalServerError, "failed to load player history")
		return
	}

	if summary == nil {
		writeError(w, http.StatusNotFound, "player not seen")
		return
	}

	resp.Summary = *summary
	if resp.NameHistory == nil {
		resp.NameHistory = []domain.NameHistoryRecord{}
	}
	if resp.MatchHistory == nil {
		resp.MatchHistory = []domain.MatchHistoryRecord{}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleListPlayers(w http.ResponseWriter, r *http.Request) {
	filter := repository.SummaryFilter{Limit: constants.PlayerListDefaultLimit}

	q := r.URL.Query()
	if v := q.Get("min_seen"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "min_seen must be a non-negative integer")
			return
		}
		filter.MinTimesSeen = n
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		filter.Limit = min(n, constants.PlayerListMaxLimit)
	}
	if v := q.Get("since"); v != "" {
		since, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "since must be an RFC 3339 timestamp")
			return
		}
		filter.SeenSince = &since
	}

	ctx, cancel := context.WithTimeout(r.Context(), constants.DatabaseTimeout)
	defer cancel()

	summaries, err := s.history.ListSummaries(ctx, filter)
	if err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("failed to list players")
		writeError(w, http.StatusInternalServerError, "failed to list players")
		return
	}
	if summaries == nil {
		summaries = []domain.PlayerSummary{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"players": summaries})
}

type settingsDTO struct {
	AutoRefresh              *bool    `json:"auto_refresh,omitempty"`
	PollIntervalSeconds      *float64 `json:"poll_interval_seconds,omitempty"`
	AuthRetryIntervalSeconds *float64 `json:"auth_retry_interval_seconds,omitempty"`
}

func toSettingsDTO(s config.Settings) settingsDTO {
	auto := s.AutoRefresh
	interval := s.PollInterval.Seconds()
	retry := s.AuthRetryInterval.Seconds()
	return settingsDTO{AutoRefresh: &auto, PollIntervalSeconds: &interval, AuthRetryIntervalSeconds: &retry}
}

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, toSettingsDTO(s.settings.Get()))
}

// handleUpdateSettings applies the fields present in the body over the
// current settings.
func (s *Server) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	var req settingsDTO
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 4096)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid settings body")
		return
	}

	next := s.settings.Get()
	if req.AutoRefresh != nil {
		next.AutoRefresh = *req.AutoRefresh
	}
	if req.PollIntervalSeconds != nil {
		next.PollInterval = time.Duration(*req.PollIntervalSeconds * float64(time.Second))
	}
	if req.AuthRetryIntervalSeconds != nil {
		next.AuthRetryInterval = time.Duration(*req.AuthRetryIntervalSeconds * float64(time.Second))
	}

	if err := s.settings.Update(next); err != nil {
		if errors.Is(err, config.ErrInvalidSettings) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("failed to save settings")
		writeError(w, http.StatusInternalServerError, "failed to save settings")
		return
	}
	writeJSON(w, http.StatusOK, toSettingsDTO(s.settings.Get()))
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	s.hub.serve(w, r, s.cycle.Current())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
