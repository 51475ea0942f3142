// Package store provides the room store: a tree-structured key-value space
// holding one document per room, with point writes, merge updates, point
// reads, and a change subscription per room.
//
// There is no compare-and-swap and no multi-field transaction guarantee.
// Concurrent writers are expected to own disjoint subtrees (their own seat),
// so merges are plain read-modify-write with last-write-per-field-wins
// semantics.
package store

import (
	"context"
	"errors"

	"github.com/yama-shu/gourmet-battle/internal/models"
)

// ErrRoomNotFound is returned by reads and merges against an absent room id.
var ErrRoomNotFound = errors.New("room not found")

// RoomStore is the synchronization backend shared by all sessions. A handle
// is injected into each session controller so tests can substitute an
// in-memory double.
type RoomStore interface {
	// PutRoom writes a full room document. Overwrite semantics: an existing
	// document under the same id is replaced without an existence check.
	PutRoom(ctx context.Context, id string, room *models.Room) error

	// GetRoom reads the room once. Returns ErrRoomNotFound when absent.
	GetRoom(ctx context.Context, id string) (*models.Room, error)

	// MergePlayer merges a whole player into the given seat. The seat is
	// overwritten if occupied; the store enforces nothing.
	MergePlayer(ctx context.Context, id string, role models.Role, player *models.Player) error

	// UpdateScore merges score fields into the caller's own seat.
	UpdateScore(ctx context.Context, id string, role models.Role, update models.ScoreUpdate) error

	// SetStatus merges a new lifecycle status into the room.
	SetStatus(ctx context.Context, id string, status models.RoomStatus) error

	// SetShopCandidates replaces the room's candidate list.
	SetShopCandidates(ctx context.Context, id string, shops []models.Shop) error

	// Subscribe opens one continuous change feed for the room. The current
	// snapshot (if any) is delivered first, then one snapshot per observed
	// change. Intermediate snapshots may be coalesced; the latest write is
	// always delivered. The channel closes when ctx is cancelled.
	Subscribe(ctx context.Context, id string) (<-chan *models.Room, error)
}
