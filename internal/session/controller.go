// Package session implements the room session controller: client-side logic
// that creates or joins a room, mirrors local game state into the room store,
// and mirrors remote changes back into local state.
//
// Known soft spots, kept on purpose:
// nothing stops a third session from merging itself over an occupied guest
// seat, and round outcomes are evaluated against the last opponent snapshot
// this session happened to observe, with no round-end barrier.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/yama-shu/gourmet-battle/internal/models"
	"github.com/yama-shu/gourmet-battle/internal/store"
)

var (
	// ErrNotHost is returned when a guest tries a host-only operation.
	ErrNotHost = errors.New("only the host can start the match")
	// ErrNotJoined is returned for operations requiring an established room.
	ErrNotJoined = errors.New("session has not joined a room")
)

// Snapshot is the locally mirrored view of the room: the opponent's state and
// the pooled shop candidates, as of the last store notification.
type Snapshot struct {
	Status                 models.RoomStatus
	OpponentName           string
	OpponentScore          int
	OpponentCombo          int
	OpponentClicks         int
	OpponentAlive          bool
	OpponentSelectedShopID string
	ShopCandidates         []models.Shop
}

// Outcome labels one side's view of the round result.
type Outcome string

const (
	OutcomeWin  Outcome = "WIN"
	OutcomeLose Outcome = "LOSE"
	OutcomeDraw Outcome = "DRAW"
)

// Result is the end-of-round resolution: who won from this session's point of
// view, and which restaurant that decides.
type Result struct {
	Outcome       Outcome      `json:"outcome"`
	MyScore       int          `json:"myScore"`
	OpponentScore int          `json:"opponentScore"`
	DecidedShop   *models.Shop `json:"decidedShop,omitempty"`
}

// Controller is one player's session over the room store. The store handle is
// injected at construction so tests can substitute an in-memory double.
type Controller struct {
	store store.RoomStore
	log   *logrus.Entry

	mu       sync.Mutex
	gameType models.GameType
	joined   bool
	roomID   string
	role     models.Role
	name     string
	selfShop *models.Shop
	snap     Snapshot
	started  bool

	// OnChange is invoked with the refreshed snapshot after every remote
	// update. OnMatchStart fires once, when the room status flips to PLAY
	// while this session is still waiting. Set both before Run.
	OnChange     func(Snapshot)
	OnMatchStart func()
}

// New builds an unjoined controller over the given store handle.
func New(st store.RoomStore, log *logrus.Logger) *Controller {
	return &Controller{
		store: st,
		log:   log.WithField("component", "session"),
		snap:  Snapshot{OpponentAlive: true},
	}
}

// CreateRoom writes a full WAITING room with this session as host. Overwrite
// semantics: no existence check, an id collision replaces the old room.
func (c *Controller) CreateRoom(ctx context.Context, name, roomID string, gameType models.GameType, selfShop *models.Shop) error {
	player := &models.Player{Name: name, Alive: true}
	var candidates []models.Shop
	if selfShop != nil {
		player.SelectedShopID = selfShop.ID
		candidates = []models.Shop{*selfShop}
	}

	room := models.NewRoom(gameType, player, candidates)
	if err := c.store.PutRoom(ctx, roomID, room); err != nil {
		return fmt.Errorf("create room %s: %w", roomID, err)
	}

	c.mu.Lock()
	c.joined = true
	c.roomID = roomID
	c.role = models.RoleHost
	c.name = name
	c.gameType = gameType
	c.selfShop = selfShop
	c.snap.Status = models.StatusWaiting
	c.mu.Unlock()

	c.log.WithFields(logrus.Fields{"room": roomID, "role": models.RoleHost}).Info("room created")
	return nil
}

// JoinRoom reads the room once and merges this session into the guest seat,
// pooling its shop candidate (deduplicated by id). A missing room returns
// store.ErrRoomNotFound with no partial write, leaving the session unjoined.
func (c *Controller) JoinRoom(ctx context.Context, name, roomID string, selfShop *models.Shop) error {
	room, err := c.store.GetRoom(ctx, roomID)
	if err != nil {
		return fmt.Errorf("join room %s: %w", roomID, err)
	}

	player := &models.Player{Name: name, Alive: true}
	if selfShop != nil {
		player.SelectedShopID = selfShop.ID
	}
	if err := c.store.MergePlayer(ctx, roomID, models.RoleGuest, player); err != nil {
		return fmt.Errorf("join room %s: %w", roomID, err)
	}
	if selfShop != nil {
		candidates := models.AppendShopCandidate(room.ShopCandidates, *selfShop)
		if err := c.store.SetShopCandidates(ctx, roomID, candidates); err != nil {
			return fmt.Errorf("join room %s: %w", roomID, err)
		}
	}

	c.mu.Lock()
	c.joined = true
	c.roomID = roomID
	c.role = models.RoleGuest
	c.name = name
	c.gameType = room.GameType
	c.selfShop = selfShop
	c.snap.Status = room.Status
	c.mu.Unlock()

	c.log.WithFields(logrus.Fields{"room": roomID, "role": models.RoleGuest}).Info("room joined")
	return nil
}

// Run opens the session's single store subscription and mirrors remote
// changes into the local snapshot until ctx is cancelled. This is the only
// inbound synchronization channel; the loop only ever sees the latest room
// snapshot, never an ordered change log.
func (c *Controller) Run(ctx context.Context) error {
	c.mu.Lock()
	if !c.joined {
		c.mu.Unlock()
		return ErrNotJoined
	}
	roomID := c.roomID
	c.mu.Unlock()

	updates, err := c.store.Subscribe(ctx, roomID)
	if err != nil {
		return fmt.Errorf("subscribe to room %s: %w", roomID, err)
	}

	for room := range updates {
		c.apply(room)
	}
	return nil
}

// apply republishes one remote snapshot into local state.
func (c *Controller) apply(room *models.Room) {
	c.mu.Lock()
	opponent := room.Players[c.role.Opponent()]
	if opponent != nil {
		c.snap.OpponentName = opponent.Name
		c.snap.OpponentScore = opponent.Score
		c.snap.OpponentCombo = opponent.Combo
		c.snap.OpponentClicks = opponent.Clicks
		c.snap.OpponentAlive = opponent.Alive
		c.snap.OpponentSelectedShopID = opponent.SelectedShopID
	}
	if room.ShopCandidates != nil {
		c.snap.ShopCandidates = room.ShopCandidates
	}
	c.snap.Status = room.Status

	startSignal := room.Status == models.StatusPlay && !c.started
	if startSignal {
		c.started = true
	}
	snap := c.snap
	onChange, onMatchStart := c.OnChange, c.OnMatchStart
	c.mu.Unlock()

	if onChange != nil {
		onChange(snap)
	}
	if startSignal && onMatchStart != nil {
		onMatchStart()
	}
}

// PublishSelf merges the session's own score fields into its seat. One-way:
// it never reads before writing, each side owns its seat's fields.
func (c *Controller) PublishSelf(ctx context.Context, update models.ScoreUpdate) error {
	c.mu.Lock()
	if !c.joined {
		c.mu.Unlock()
		return ErrNotJoined
	}
	roomID, role := c.roomID, c.role
	c.mu.Unlock()

	if err := c.store.UpdateScore(ctx, roomID, role, update); err != nil {
		return fmt.Errorf("publish score to room %s: %w", roomID, err)
	}
	return nil
}

// StartMatch flips the room status to PLAY. Host only; every subscription in
// the room observes the flip and leaves WAITING.
func (c *Controller) StartMatch(ctx context.Context) error {
	c.mu.Lock()
	if !c.joined {
		c.mu.Unlock()
		return ErrNotJoined
	}
	if c.role != models.RoleHost {
		c.mu.Unlock()
		return ErrNotHost
	}
	roomID := c.roomID
	c.mu.Unlock()

	if err := c.store.SetStatus(ctx, roomID, models.StatusPlay); err != nil {
		return fmt.Errorf("start match in room %s: %w", roomID, err)
	}
	return nil
}

// Snapshot returns the current mirrored view.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snap
}

// Role returns the session's seat, valid only after a create or join.
func (c *Controller) Role() models.Role {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.role
}

// RoomID returns the joined room id, or "" when unjoined.
func (c *Controller) RoomID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.roomID
}

// GameType returns the room's game variant, known after a create or join.
func (c *Controller) GameType() models.GameType {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gameType
}

// Result resolves the round from this session's point of view, comparing the
// final local score against the last opponent score this session observed.
// That opponent value can be stale: there is no shared round-end instant.
//
// The winner's own selection decides the restaurant; on a loss the first
// candidate not matching this session's own pick approximates the winner's
// choice.
func (c *Controller) Result(finalScore int) Result {
	c.mu.Lock()
	defer c.mu.Unlock()

	opponentScore := c.snap.OpponentScore
	if c.gameType == models.GameClickerBattle {
		opponentScore = c.snap.OpponentClicks
	}

	res := Result{
		MyScore:       finalScore,
		OpponentScore: opponentScore,
	}
	switch {
	case finalScore > opponentScore:
		res.Outcome = OutcomeWin
	case finalScore < opponentScore:
		res.Outcome = OutcomeLose
	default:
		res.Outcome = OutcomeDraw
	}

	if res.Outcome == OutcomeWin {
		res.DecidedShop = c.selfShop
		return res
	}
	selfID := ""
	if c.selfShop != nil {
		selfID = c.selfShop.ID
	}
	for i := range c.snap.ShopCandidates {
		if c.snap.ShopCandidates[i].ID != selfID {
			shop := c.snap.ShopCandidates[i]
			res.DecidedShop = &shop
			break
		}
	}
	return res
}
