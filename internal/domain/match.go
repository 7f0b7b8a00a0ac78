package domain

import "time"

type Phase string

const (
	PhaseNone     Phase = ""
	PhasePreGame  Phase = "pregame"
	PhaseLiveGame Phase = "coregame"
)

// MatchRef identifies one phase of one match. A pre-game and a live game
// share the match id but are reconciled separately.
type MatchRef struct {
	ID    string `json:"match_id"`
	Phase Phase  `json:"phase"`
}

func (m MatchRef) IsZero() bool {
	return m.ID == ""
}

// Snapshot is the immutable result published to the consumer after a
// successful reconciliation.
type Snapshot struct {
	Match      MatchRef         `json:"match"`
	MapID      string           `json:"map_id"`
	ModeID     string           `json:"mode_id"`
	Players    []EnrichedPlayer `json:"players"`
	CapturedAt time.Time        `json:"captured_at"`
}

// Clone returns a deep copy so the receiver can be retained after the
// producer publishes a newer snapshot.
func (s Snapshot) Clone() Snapshot {
	out := s
	out.Players = make([]EnrichedPlayer, len(s.Players))
	for i, p := range s.Players {
		cp := p
		cp.NameHistory = append([]NameHistoryRecord(nil), p.NameHistory...)
		cp.MatchHistory = append([]MatchHistoryRecord(nil), p.MatchHistory...)
		out.Players[i] = cp
	}
	return out
}
