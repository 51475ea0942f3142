package store

import (
	"context"
	"sync"

	"github.com/yama-shu/gourmet-battle/internal/models"
)

// MemoryStore is an in-process RoomStore used by tests and by dev mode when
// no Redis address is configured. Both players' sessions must share the same
// instance for changes to propagate.
type MemoryStore struct {
	mu    sync.Mutex
	rooms map[string]*models.Room
	subs  map[string][]chan *models.Room
}

// NewMemoryStore returns an empty in-memory room store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		rooms: make(map[string]*models.Room),
		subs:  make(map[string][]chan *models.Room),
	}
}

func (s *MemoryStore) PutRoom(ctx context.Context, id string, room *models.Room) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rooms[id] = room.Clone()
	s.notifyLocked(id)
	return nil
}

func (s *MemoryStore) GetRoom(ctx context.Context, id string) (*models.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	room, ok := s.rooms[id]
	if !ok {
		return nil, ErrRoomNotFound
	}
	return room.Clone(), nil
}

func (s *MemoryStore) MergePlayer(ctx context.Context, id string, role models.Role, player *models.Player) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	room, ok := s.rooms[id]
	if !ok {
		return ErrRoomNotFound
	}
	pc := *player
	room.Players[role] = &pc
	s.notifyLocked(id)
	return nil
}

func (s *MemoryStore) UpdateScore(ctx context.Context, id string, role models.Role, update models.ScoreUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	room, ok := s.rooms[id]
	if !ok {
		return ErrRoomNotFound
	}
	p, ok := room.Players[role]
	if !ok {
		return ErrRoomNotFound
	}
	p.Apply(update)
	s.notifyLocked(id)
	return nil
}

func (s *MemoryStore) SetStatus(ctx context.Context, id string, status models.RoomStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	room, ok := s.rooms[id]
	if !ok {
		return ErrRoomNotFound
	}
	room.Status = status
	s.notifyLocked(id)
	return nil
}

func (s *MemoryStore) SetShopCandidates(ctx context.Context, id string, shops []models.Shop) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	room, ok := s.rooms[id]
	if !ok {
		return ErrRoomNotFound
	}
	room.ShopCandidates = append([]models.Shop(nil), shops...)
	s.notifyLocked(id)
	return nil
}

// Subscribe registers a coalescing change feed for the room. The channel has
// capacity 1; when a subscriber lags, the stale snapshot is dropped so only
// the latest state is delivered.
func (s *MemoryStore) Subscribe(ctx context.Context, id string) (<-chan *models.Room, error) {
	ch := make(chan *models.Room, 1)

	s.mu.Lock()
	s.subs[id] = append(s.subs[id], ch)
	if room, ok := s.rooms[id]; ok {
		ch <- room.Clone()
	}
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		s.mu.Lock()
		subs := s.subs[id]
		for i, sub := range subs {
			if sub == ch {
				s.subs[id] = append(subs[:i], subs[i+1:]...)
				break
			}
		}
		s.mu.Unlock()
		close(ch)
	}()

	return ch, nil
}

// notifyLocked fans the current snapshot out to every subscriber of the room.
// Assumes the store lock is held.
func (s *MemoryStore) notifyLocked(id string) {
	room, ok := s.rooms[id]
	if !ok {
		return
	}
	for _, ch := range s.subs[id] {
		snapshot := room.Clone()
		select {
		case ch <- snapshot:
		default:
			// Subscriber lags: replace the queued snapshot with the latest.
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- snapshot:
			default:
			}
		}
	}
}
