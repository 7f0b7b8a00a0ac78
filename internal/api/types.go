package api

// MatchPointer is the answer of both "which match am I in" endpoints.
type MatchPointer struct {
	Subject string `json:"Subject"`
	MatchID string `json:"MatchID"`
}

type PlayerIdentityInfo struct {
	Subject          string `json:"Subject"`
	PlayerCardID     string `json:"PlayerCardID"`
	PlayerTitleID    string `json:"PlayerTitleID"`
	AccountLevel     int    `json:"AccountLevel"`
	Incognito        bool   `json:"Incognito"`
	HideAccountLevel bool   `json:"HideAccountLevel"`
}

type CoreGameMatch struct {
	MatchID string           `json:"MatchID"`
	MapID   string           `json:"MapID"`
	ModeID  string           `json:"ModeID"`
	State   string           `json:"State"`
	Players []CoreGamePlayer `json:"Players"`
}

type CoreGamePlayer struct {
	Subject        string             `json:"Subject"`
	TeamID         string             `json:"TeamID"`
	CharacterID    string             `json:"CharacterID"`
	PlayerIdentity PlayerIdentityInfo `json:"PlayerIdentity"`
}

type PreGameMatch struct {
	ID       string       `json:"ID"`
	MapID    string       `json:"MapID"`
	Mode     string       `json:"Mode"`
	AllyTeam *PreGameTeam `json:"AllyTeam"`
}

type PreGameTeam struct {
	TeamID  string          `json:"TeamID"`
	Players []PreGamePlayer `json:"Players"`
}

type PreGamePlayer struct {
	Subject                 string             `json:"Subject"`
	CharacterID             string             `json:"CharacterID"`
	CharacterSelectionState string             `json:"CharacterSelectionState"`
	CompetitiveTier         int                `json:"CompetitiveTier"`
	PlayerIdentity          PlayerIdentityInfo `json:"PlayerIdentity"`
}

type NameServiceEntry struct {
	DisplayName string `json:"DisplayName"`
	Subject     string `json:"Subject"`
	GameName    string `json:"GameName"`
	TagLine     string `json:"TagLine"`
}
