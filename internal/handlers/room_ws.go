// internal/handlers/room_ws.go
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/sirupsen/logrus"

	"github.com/yama-shu/gourmet-battle/internal/game"
	"github.com/yama-shu/gourmet-battle/internal/models"
	"github.com/yama-shu/gourmet-battle/internal/session"
	"github.com/yama-shu/gourmet-battle/internal/store"
)

// RoomServer hosts the per-player room websocket. Each connection carries one
// session controller over the shared room store and, once the match starts,
// one game engine.
type RoomServer struct {
	log   *logrus.Logger
	store store.RoomStore
	clock clockwork.Clock
}

// NewRoomServer wires a room server around the given store and clock.
func NewRoomServer(logger *logrus.Logger, st store.RoomStore, clock clockwork.Clock) *RoomServer {
	return &RoomServer{
		log:   logger,
		store: st,
		clock: clock,
	}
}

// roomConn is one player's live websocket presence.
type roomConn struct {
	id  uuid.UUID
	out chan map[string]interface{}
	log *logrus.Entry
}

// write pushes a message onto the connection's out channel non-blockingly.
func (c *roomConn) write(msg map[string]interface{}) {
	select {
	case c.out <- msg:
	default:
		msgType, _ := msg["type"].(string)
		c.log.WithField("msg_type", msgType).Warn("out channel full, dropped message")
	}
}

func (c *roomConn) writeError(code, msg string) {
	c.write(map[string]interface{}{
		"type":    "error",
		"code":    code,
		"message": msg,
	})
}

// playerSession ties a connection to its controller and engine.
type playerSession struct {
	mu      sync.Mutex
	ctrl    *session.Controller
	color   *game.ColorMatch
	clicker *game.Clicker
}

// inboundPacket is the union of all client packets; the type field selects
// which of the remaining fields matter.
type inboundPacket struct {
	Type     string          `json:"type"`
	Name     string          `json:"name,omitempty"`
	RoomID   string          `json:"room_id,omitempty"`
	GameType models.GameType `json:"game_type,omitempty"`
	Shop     *models.Shop    `json:"shop,omitempty"`
	ColorID  string          `json:"color_id,omitempty"`
}

// Handler upgrades to the room websocket and runs the connection until the
// client leaves or the socket drops.
func (s *RoomServer) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			Subprotocols:   []string{"gourmet"},
			OriginPatterns: []string{"*"}, // Adjust in production
		})
		if err != nil {
			s.log.Warnf("websocket accept error: %v", err)
			return
		}
		defer c.Close(websocket.StatusInternalError, "handler finished")

		if c.Subprotocol() != "gourmet" {
			c.Close(BadSubprotocolError, "client must speak the gourmet subprotocol")
			return
		}

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		connID := uuid.New()
		conn := &roomConn{
			id:  connID,
			out: make(chan map[string]interface{}, 32),
			log: s.log.WithFields(logrus.Fields{"conn": connID, "remote": r.RemoteAddr}),
		}
		conn.log.Info("room websocket connected")

		go s.writePump(ctx, c, conn)
		s.readPump(ctx, c, conn)

		conn.log.Info("room websocket disconnected")
	}
}

// readPump decodes inbound packets and dispatches them. It owns the
// connection's playerSession for its whole lifetime.
func (s *RoomServer) readPump(ctx context.Context, c *websocket.Conn, conn *roomConn) {
	ps := &playerSession{}

	for {
		typ, data, err := c.Read(ctx)
		if err != nil {
			return
		}
		if typ != websocket.MessageText {
			conn.log.Warnf("ignoring non-text message type %d", typ)
			continue
		}

		var packet inboundPacket
		if err := json.Unmarshal(data, &packet); err != nil {
			conn.writeError("invalid_packet", "invalid JSON format")
			continue
		}

		switch packet.Type {
		case "create_room":
			s.handleCreateRoom(ctx, conn, ps, packet)
		case "join_room":
			s.handleJoinRoom(ctx, conn, ps, packet)
		case "start_match":
			s.handleStartMatch(ctx, conn, ps)
		case "answer":
			ps.mu.Lock()
			eng := ps.color
			ps.mu.Unlock()
			if eng == nil {
				conn.writeError("not_joined", "no color match in progress")
				continue
			}
			eng.Answer(packet.ColorID)
		case "click":
			ps.mu.Lock()
			eng := ps.clicker
			ps.mu.Unlock()
			if eng == nil {
				conn.writeError("not_joined", "no click battle in progress")
				continue
			}
			eng.Click()
		case "leave":
			c.Close(websocket.StatusNormalClosure, "left room")
			return
		default:
			conn.writeError("unknown_type", "unknown packet type: "+packet.Type)
		}
	}
}

func (s *RoomServer) handleCreateRoom(ctx context.Context, conn *roomConn, ps *playerSession, packet inboundPacket) {
	if packet.Name == "" || packet.RoomID == "" {
		conn.writeError("invalid_packet", "name and room_id are required")
		return
	}
	if packet.GameType != models.GameColorMatch && packet.GameType != models.GameClickerBattle {
		conn.writeError("invalid_packet", "unknown game_type")
		return
	}

	ps.mu.Lock()
	if ps.ctrl != nil {
		ps.mu.Unlock()
		conn.writeError("already_joined", "session already has a room")
		return
	}
	ps.mu.Unlock()

	ctrl := session.New(s.store, s.log)
	if err := ctrl.CreateRoom(ctx, packet.Name, packet.RoomID, packet.GameType, packet.Shop); err != nil {
		conn.writeError("create_failed", "failed to create room")
		return
	}
	s.attach(ctx, conn, ps, ctrl)

	conn.write(map[string]interface{}{
		"type":    "room_joined",
		"room_id": packet.RoomID,
		"role":    models.RoleHost,
		"status":  models.StatusWaiting,
	})
}

func (s *RoomServer) handleJoinRoom(ctx context.Context, conn *roomConn, ps *playerSession, packet inboundPacket) {
	if packet.Name == "" || packet.RoomID == "" {
		conn.writeError("invalid_packet", "name and room_id are required")
		return
	}

	ps.mu.Lock()
	if ps.ctrl != nil {
		ps.mu.Unlock()
		conn.writeError("already_joined", "session already has a room")
		return
	}
	ps.mu.Unlock()

	ctrl := session.New(s.store, s.log)
	if err := ctrl.JoinRoom(ctx, packet.Name, packet.RoomID, packet.Shop); err != nil {
		if errors.Is(err, store.ErrRoomNotFound) {
			conn.writeError("room_not_found", "その部屋は見つかりませんでした")
		} else {
			conn.writeError("join_failed", "failed to join room")
		}
		return
	}
	s.attach(ctx, conn, ps, ctrl)

	conn.write(map[string]interface{}{
		"type":      "room_joined",
		"room_id":   packet.RoomID,
		"role":      models.RoleGuest,
		"status":    ctrl.Snapshot().Status,
		"game_type": ctrl.GameType(),
	})
}

func (s *RoomServer) handleStartMatch(ctx context.Context, conn *roomConn, ps *playerSession) {
	ps.mu.Lock()
	ctrl := ps.ctrl
	ps.mu.Unlock()
	if ctrl == nil {
		conn.writeError("not_joined", "create or join a room first")
		return
	}
	if err := ctrl.StartMatch(ctx); err != nil {
		if errors.Is(err, session.ErrNotHost) {
			conn.writeError("not_host", "only the host can start the match")
		} else {
			conn.writeError("start_failed", "failed to start match")
		}
	}
}

// attach builds the game engine for the room's variant, wires the controller
// callbacks to the websocket, and starts the subscription loop.
func (s *RoomServer) attach(ctx context.Context, conn *roomConn, ps *playerSession, ctrl *session.Controller) {
	publish := func(u models.ScoreUpdate) {
		if err := ctrl.PublishSelf(ctx, u); err != nil {
			conn.log.WithError(err).Warn("score publish failed")
		}
	}

	ps.mu.Lock()
	ps.ctrl = ctrl
	switch ctrl.GameType() {
	case models.GameColorMatch:
		eng := game.NewColorMatch(s.clock, rand.New(rand.NewSource(time.Now().UnixNano())), publish)
		eng.OnQuestion = func(q game.Question) {
			conn.write(map[string]interface{}{"type": "question", "question": q})
		}
		eng.OnTick = func(timeLeft float64) {
			conn.write(map[string]interface{}{"type": "tick", "time_left": timeLeft})
		}
		eng.OnGameOver = func(score, combo int) {
			conn.write(map[string]interface{}{
				"type":   "game_over",
				"score":  score,
				"combo":  combo,
				"result": ctrl.Result(score),
			})
		}
		ps.color = eng
	case models.GameClickerBattle:
		eng := game.NewClicker(s.clock, publish)
		eng.OnCountdown = func(count int) {
			conn.write(map[string]interface{}{"type": "countdown", "count": count})
		}
		eng.OnTick = func(timeLeft float64) {
			conn.write(map[string]interface{}{"type": "tick", "time_left": timeLeft})
		}
		eng.OnGameOver = func(clicks int) {
			conn.write(map[string]interface{}{
				"type":   "game_over",
				"clicks": clicks,
				"result": ctrl.Result(clicks),
			})
		}
		ps.clicker = eng
	}
	color, clicker := ps.color, ps.clicker
	ps.mu.Unlock()

	ctrl.OnChange = func(snap session.Snapshot) {
		conn.write(map[string]interface{}{
			"type":   "room_update",
			"status": snap.Status,
			"opponent": map[string]interface{}{
				"name":   snap.OpponentName,
				"score":  snap.OpponentScore,
				"combo":  snap.OpponentCombo,
				"clicks": snap.OpponentClicks,
				"alive":  snap.OpponentAlive,
			},
			"shop_candidates": snap.ShopCandidates,
		})
	}
	ctrl.OnMatchStart = func() {
		var err error
		if color != nil {
			err = color.Start(ctx)
		} else if clicker != nil {
			err = clicker.Start(ctx)
		}
		if err != nil {
			conn.log.WithError(err).Warn("engine start failed")
			return
		}
		phase := game.PhasePlay
		if clicker != nil {
			phase = game.PhaseStarting
		}
		conn.write(map[string]interface{}{"type": "phase", "phase": phase.String()})
	}

	go func() {
		if err := ctrl.Run(ctx); err != nil {
			conn.log.WithError(err).Warn("session loop exited")
		}
	}()
}

// writePump serializes outbound packets and keeps the connection alive with
// periodic pings.
func (s *RoomServer) writePump(ctx context.Context, c *websocket.Conn, conn *roomConn) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-conn.out:
			if !ok {
				return
			}
			data, err := json.Marshal(msg)
			if err != nil {
				conn.log.WithError(err).Warn("failed to marshal outgoing message")
				continue
			}
			writeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			err = c.Write(writeCtx, websocket.MessageText, data)
			cancel()
			if err != nil {
				conn.log.WithError(err).Warn("websocket write failed")
				return
			}
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
			err := c.Ping(pingCtx)
			cancel()
			if err != nil {
				conn.log.WithError(err).Warn("ping failed, assuming disconnect")
				return
			}
		}
	}
}
