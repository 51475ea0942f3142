package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/yama-shu/gourmet-battle/internal/models"
)

const roomKeyPrefix = "gourmet:room:"

// RedisStore keeps one JSON room document per key and fans out change
// notifications over a per-room pub/sub channel. Merges are read-modify-write
// without any watch/CAS; the two sessions of a room write disjoint seats, so
// the only cross-writer fields (status, candidates) follow last-write-wins.
type RedisStore struct {
	rdb *redis.Client
	log *logrus.Logger
}

// NewRedisStore connects a room store backed by the Redis instance at addr.
func NewRedisStore(ctx context.Context, addr string, db int, log *logrus.Logger) (*RedisStore, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   db,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis at %s: %w", addr, err)
	}
	return &RedisStore{rdb: rdb, log: log}, nil
}

func roomKey(id string) string     { return roomKeyPrefix + id }
func roomChannel(id string) string { return roomKeyPrefix + id + ":changes" }

func (s *RedisStore) PutRoom(ctx context.Context, id string, room *models.Room) error {
	return s.write(ctx, id, room)
}

func (s *RedisStore) GetRoom(ctx context.Context, id string) (*models.Room, error) {
	data, err := s.rdb.Get(ctx, roomKey(id)).Bytes()
	if err == redis.Nil {
		return nil, ErrRoomNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read room %s: %w", id, err)
	}
	return models.DecodeRoom(data)
}

func (s *RedisStore) MergePlayer(ctx context.Context, id string, role models.Role, player *models.Player) error {
	return s.merge(ctx, id, func(room *models.Room) {
		pc := *player
		room.Players[role] = &pc
	})
}

func (s *RedisStore) UpdateScore(ctx context.Context, id string, role models.Role, update models.ScoreUpdate) error {
	return s.merge(ctx, id, func(room *models.Room) {
		if p, ok := room.Players[role]; ok {
			p.Apply(update)
		}
	})
}

func (s *RedisStore) SetStatus(ctx context.Context, id string, status models.RoomStatus) error {
	return s.merge(ctx, id, func(room *models.Room) {
		room.Status = status
	})
}

func (s *RedisStore) SetShopCandidates(ctx context.Context, id string, shops []models.Shop) error {
	return s.merge(ctx, id, func(room *models.Room) {
		room.ShopCandidates = append([]models.Shop(nil), shops...)
	})
}

// Subscribe delivers the current snapshot first, then every published change
// until ctx is cancelled.
func (s *RedisStore) Subscribe(ctx context.Context, id string) (<-chan *models.Room, error) {
	pubsub := s.rdb.Subscribe(ctx, roomChannel(id))
	// Force the subscription onto the wire before reading the initial
	// snapshot, so no change between the two is missed.
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, fmt.Errorf("subscribe to room %s: %w", id, err)
	}

	ch := make(chan *models.Room, 1)

	go func() {
		defer close(ch)
		defer pubsub.Close()

		if room, err := s.GetRoom(ctx, id); err == nil {
			ch <- room
		}

		msgs := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				room, err := models.DecodeRoom([]byte(msg.Payload))
				if err != nil {
					s.log.WithError(err).WithField("room", id).Warn("discarding malformed room snapshot")
					continue
				}
				select {
				case ch <- room:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return ch, nil
}

// write stores the document and publishes the new snapshot to subscribers.
func (s *RedisStore) write(ctx context.Context, id string, room *models.Room) error {
	data, err := json.Marshal(room)
	if err != nil {
		return fmt.Errorf("marshal room %s: %w", id, err)
	}
	if err := s.rdb.Set(ctx, roomKey(id), data, 0).Err(); err != nil {
		return fmt.Errorf("write room %s: %w", id, err)
	}
	if err := s.rdb.Publish(ctx, roomChannel(id), data).Err(); err != nil {
		return fmt.Errorf("publish room %s: %w", id, err)
	}
	return nil
}

// merge applies fn to the current document and writes the result back.
func (s *RedisStore) merge(ctx context.Context, id string, fn func(*models.Room)) error {
	room, err := s.GetRoom(ctx, id)
	if err != nil {
		return err
	}
	fn(room)
	return s.write(ctx, id, room)
}
