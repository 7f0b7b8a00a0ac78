package domain

import (
	"time"
)

// SessionContext is the per-session credential and routing bundle supplied by
// the authenticator. It is never mutated; re-authentication builds a new one.
type SessionContext struct {
	Region           string
	Shard            string
	PlayerID         string
	AccessToken      string
	EntitlementToken string
	ClientVersion    string
}

type RosterEntry struct {
	PlayerID     string `json:"player_id"`
	TeamID       string `json:"team_id"`
	AgentID      string `json:"agent_id"` // empty while a pre-game pick is not locked
	AccountLevel int    `json:"account_level"`
	Incognito    bool   `json:"incognito"`
}

type MatchRoster struct {
	Match   MatchRef      `json:"match"`
	MapID   string        `json:"map_id"`
	ModeID  string        `json:"mode_id"`
	Entries []RosterEntry `json:"entries"`
}

// Entry returns the roster entry for playerID.
func (r *MatchRoster) Entry(playerID string) (RosterEntry, bool) {
	for _, e := range r.Entries {
		if e.PlayerID == playerID {
			return e, true
		}
	}
	return RosterEntry{}, false
}

// PlayerIDs returns the ids in roster order.
func (r *MatchRoster) PlayerIDs() []string {
	ids := make([]string, 0, len(r.Entries))
	for _, e := range r.Entries {
		ids = append(ids, e.PlayerID)
	}
	return ids
}

type PlayerIdentity struct {
	PlayerID string `json:"player_id"`
	Name     string `json:"name"`
	Tag      string `json:"tag"`
}

type PlayerSummary struct {
	PlayerID  string    `json:"player_id"`
	TimesSeen int       `json:"times_seen"`
	FirstSeen time.Time `json:"first_seen"`
	LastSeen  time.Time `json:"last_seen"`
}

type NameHistoryRecord struct {
	ID         string    `json:"id"` // nanoid
	PlayerID   string    `json:"player_id"`
	Name       string    `json:"name"`
	Tag        string    `json:"tag"`
	RecordedAt time.Time `json:"recorded_at"`
}

type MatchHistoryRecord struct {
	ID       string    `json:"id"` // nanoid
	PlayerID string    `json:"player_id"`
	MatchID  string    `json:"match_id"`
	MapID    string    `json:"map_id"`
	ModeID   string    `json:"mode_id"`
	AgentID  string    `json:"agent_id"`
	IsEnemy  bool      `json:"is_enemy"`
	PlayedAt time.Time `json:"played_at"`
}

// EnrichedPlayer is a roster entry merged with the player's history as it
// stood before this match, plus whatever this match recorded. All slices are
// owned copies.
type EnrichedPlayer struct {
	PlayerID     string `json:"player_id"`
	Name         string `json:"name"`
	Tag          string `json:"tag"`
	TeamID       string `json:"team_id"`
	AgentID      string `json:"agent_id"`
	AccountLevel int    `json:"account_level"`
	Incognito    bool   `json:"incognito"`
	IsEnemy      bool   `json:"is_enemy"`

	// Summary is the pre-encounter summary; zero valued on a first encounter.
	Summary      PlayerSummary `json:"summary"`
	FirstMeeting bool          `json:"first_meeting"`

	NameHistory  []NameHistoryRecord  `json:"name_history"`
	MatchHistory []MatchHistoryRecord `json:"match_history"`
}

// Encounter is what one live-game sighting of a player wrote to history.
type Encounter struct {
	Match         MatchHistoryRecord
	MatchInserted bool
	Name          NameHistoryRecord
	NameInserted  bool
	Summary       PlayerSummary
}
