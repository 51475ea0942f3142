package models

import (
	"encoding/json"
	"fmt"
)

// RoomStatus is the lifecycle tag of a room as stored in the room store.
type RoomStatus string

const (
	StatusWaiting  RoomStatus = "WAITING"
	StatusPlay     RoomStatus = "PLAY"
	StatusFinished RoomStatus = "FINISHED"
)

// GameType selects which minigame a room is playing.
type GameType string

const (
	GameColorMatch    GameType = "COLOR_MATCH"
	GameClickerBattle GameType = "CLICKER_BATTLE"
)

// Role identifies one of the two seats in a room.
type Role string

const (
	RoleHost  Role = "host"
	RoleGuest Role = "guest"
)

// Valid reports whether r is one of the two known role keys.
func (r Role) Valid() bool {
	return r == RoleHost || r == RoleGuest
}

// Opponent returns the other seat's role key.
func (r Role) Opponent() Role {
	if r == RoleHost {
		return RoleGuest
	}
	return RoleHost
}

// Player is one seat's state within a room. Each client writes exclusively to
// its own role's subtree; Score/Combo are used by the color-match game and
// Clicks by the click battle.
type Player struct {
	Name           string `json:"name"`
	Score          int    `json:"score"`
	Combo          int    `json:"combo"`
	Clicks         int    `json:"clicks"`
	Alive          bool   `json:"alive"`
	SelectedShopID string `json:"selectedShopId,omitempty"`
}

// ScoreUpdate carries one owner-side publish of score fields. All fields are
// merged; the store's last-write-per-field-wins semantics apply.
type ScoreUpdate struct {
	Score  int  `json:"score"`
	Combo  int  `json:"combo"`
	Clicks int  `json:"clicks"`
	Alive  bool `json:"alive"`
}

// Apply merges a score update into the player, leaving identity fields alone.
func (p *Player) Apply(u ScoreUpdate) {
	p.Score = u.Score
	p.Combo = u.Combo
	p.Clicks = u.Clicks
	p.Alive = u.Alive
}

// Room is the shared synchronization unit for one two-player match.
type Room struct {
	Status            RoomStatus       `json:"status"`
	GameType          GameType         `json:"gameType"`
	Players           map[Role]*Player `json:"players"`
	ShopCandidates    []Shop           `json:"shopCandidates,omitempty"`
	WinnerSelectionID string           `json:"winnerSelectionId,omitempty"`
	StartTime         int64            `json:"startTime,omitempty"`
}

// NewRoom builds a fresh WAITING room with a single host seat.
func NewRoom(gameType GameType, host *Player, candidates []Shop) *Room {
	return &Room{
		Status:         StatusWaiting,
		GameType:       gameType,
		Players:        map[Role]*Player{RoleHost: host},
		ShopCandidates: candidates,
	}
}

// DecodeRoom parses a stored room snapshot, rejecting malformed records
// instead of propagating zero values from a loosely-typed store document.
func DecodeRoom(data []byte) (*Room, error) {
	var r Room
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("decode room: %w", err)
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return &r, nil
}

// Validate checks the structural invariants of a room snapshot.
func (r *Room) Validate() error {
	switch r.Status {
	case StatusWaiting, StatusPlay, StatusFinished:
	default:
		return fmt.Errorf("room has unknown status %q", r.Status)
	}
	switch r.GameType {
	case GameColorMatch, GameClickerBattle:
	default:
		return fmt.Errorf("room has unknown game type %q", r.GameType)
	}
	if len(r.Players) == 0 {
		return fmt.Errorf("room has no players")
	}
	for role, p := range r.Players {
		if !role.Valid() {
			return fmt.Errorf("room has unknown role key %q", role)
		}
		if p == nil || p.Name == "" {
			return fmt.Errorf("room seat %q has no player name", role)
		}
	}
	if _, ok := r.Players[RoleHost]; !ok {
		return fmt.Errorf("room has no host seat")
	}
	return nil
}

// Clone returns a deep copy so snapshots handed to subscribers cannot alias
// store-internal state.
func (r *Room) Clone() *Room {
	cp := *r
	cp.Players = make(map[Role]*Player, len(r.Players))
	for role, p := range r.Players {
		pc := *p
		cp.Players[role] = &pc
	}
	cp.ShopCandidates = append([]Shop(nil), r.ShopCandidates...)
	return &cp
}
