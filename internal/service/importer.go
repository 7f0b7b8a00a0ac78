package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"sort"
	"strings"
	"time"
	"valplus/internal/domain"

	"github.com/rs/zerolog"
)

// ImportStore is the persistence the importer writes through.
type ImportStore interface {
	SeedSummary(ctx context.Context, summary domain.PlayerSummary) (bool, error)
	RecordNameAt(ctx context.Context, playerID, name, tag string, at time.Time) (domain.NameHistoryRecord, bool, error)
	RecordMatches(ctx context.Context, records []domain.MatchHistoryRecord) (int, error)
}

type ImportStats struct {
	Success int `json:"success"`
	Failed  int `json:"failed"`
	Total   int `json:"total"`
}

type Importer struct {
	store  ImportStore
	logger zerolog.Logger
}

func NewImporter(store ImportStore, logger zerolog.Logger) *Importer {
	return &Importer{store: store, logger: logger}
}

type vryEntry struct {
	Name    string          `json:"name"`
	Agent   string          `json:"agent"`
	Map     json.RawMessage `json:"map"`
	MatchID string          `json:"match_id"`
	Epoch   *float64        `json:"epoch"`
}

// ImportVRY loads a VRY stats.json document: an object keyed by player id whose
// values are arrays of past encounters. Malformed entries are counted as
// failed and skipped; only an unreadable document aborts the import.
func (i *Importer) ImportVRY(ctx context.Context, r io.Reader) (ImportStats, error) {
	var doc map[string][]json.RawMessage
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return ImportStats{}, fmt.Errorf("failed to decode vry history: %w", err)
	}

	playerIDs := make([]string, 0, len(doc))
	for id := range doc {
		playerIDs = append(playerIDs, id)
	}
	sort.Strings(playerIDs)

	var stats ImportStats
	for _, playerID := range playerIDs {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		entries := doc[playerID]
		stats.Total += len(entries)

		ok, failed := i.importPlayer(ctx, playerID, entries)
		stats.Success += ok
		stats.Failed += failed
	}

	i.logger.Info().
		Int("players", len(playerIDs)).
		Int("success", stats.Success).
		Int("failed", stats.Failed).
		Int("total", stats.Total).
		Msg("vry history imported")

	return stats, nil
}

func (i *Importer) importPlayer(ctx context.Context, playerID string, raw []json.RawMessage) (int, int) {
	failed := 0
	records := make([]domain.MatchHistoryRecord, 0, len(raw))
	names := make(map[[2]string]time.Time)
	matchIDs := make(map[string]struct{})
	var first, last time.Time

	for _, msg := range raw {
		entry, playedAt, err := parseVRYEntry(msg)
		if err != nil {
			i.logger.Warn().Err(err).Str("player_id", playerID).Msg("skipping malformed vry entry")
			failed++
			continue
		}

		records = append(records, domain.MatchHistoryRecord{
			PlayerID: playerID,
			MatchID:  entry.MatchID,
			MapID:    vryMapName(entry.Map),
			AgentID:  entry.Agent,
			PlayedAt: playedAt,
		})
		matchIDs[entry.MatchID] = struct{}{}

		if name, tag, ok := splitRiotID(entry.Name); ok {
			key := [2]string{name, tag}
			if seen, dup := names[key]; !dup || playedAt.Before(seen) {
				names[key] = playedAt
			}
		}

		if first.IsZero() || playedAt.Before(first) {
			first = playedAt
		}
		if playedAt.After(last) {
			last = playedAt
		}
	}

	if len(records) == 0 {
		return 0, failed
	}

	if _, err := i.store.RecordMatches(ctx, records); err != nil {
		i.logger.Warn().Err(err).Str("player_id", playerID).Msg("failed to import match history")
		return 0, failed + len(records)
	}

	for key, at := range names {
		if _, _, err := i.store.RecordNameAt(ctx, playerID, key[0], key[1], at); err != nil {
			i.logger.Warn().Err(err).Str("player_id", playerID).Str("name", key[0]).Msg("failed to import name")
		}
	}

	if _, err := i.store.SeedSummary(ctx, domain.PlayerSummary{
		PlayerID:  playerID,
		TimesSeen: len(matchIDs),
		FirstSeen: first,
		LastSeen:  last,
	}); err != nil {
		i.logger.Warn().Err(err).Str("player_id", playerID).Msg("failed to seed player summary")
	}

	return len(records), failed
}

func parseVRYEntry(msg json.RawMessage) (vryEntry, time.Time, error) {
	var entry vryEntry
	if err := json.Unmarshal(msg, &entry); err != nil {
		return vryEntry{}, time.Time{}, err
	}
	if entry.MatchID == "" {
		return vryEntry{}, time.Time{}, errors.New("entry has no match_id")
	}
	if entry.Epoch == nil || math.IsNaN(*entry.Epoch) || *entry.Epoch <= 0 {
		return vryEntry{}, time.Time{}, errors.New("entry has no epoch")
	}

	sec, frac := math.Modf(*entry.Epoch)
	return entry, time.Unix(int64(sec), int64(frac*1e9)).UTC(), nil
}

// vryMapName accepts both the plain string and the {"name": ...} object forms.
func vryMapName(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}

	var name string
	if err := json.Unmarshal(raw, &name); err == nil {
		return name
	}

	var obj struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil {
		return obj.Name
	}
	return ""
}

func splitRiotID(riotID string) (string, string, bool) {
	name, tag, _ := strings.Cut(strings.TrimSpace(riotID), "#")
	if name == "" {
		return "", "", false
	}
	return name, tag, true
}
