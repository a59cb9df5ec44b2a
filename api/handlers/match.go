package handlers

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"

	"github.com/turingroom/turing-room-api/api"
	"github.com/turingroom/turing-room-api/databases"
	"github.com/turingroom/turing-room-api/matchmaker"
	"github.com/turingroom/turing-room-api/models"
)

// Close codes mirrored to websocket clients
const (
	closeUnauthorized = 4401
	closeForbidden    = 4403
	closeUnknownGame  = 4404
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// wsConn serializes writes to one websocket connection. Frames come from both
// the reader goroutine and matchmaker callbacks, and gorilla permits only one
// concurrent writer.
type wsConn struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (c *wsConn) Send(v interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteJSON(v)
}

func (c *wsConn) SendRaw(payload []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteMessage(websocket.TextMessage, payload)
}

func (c *wsConn) Close() error {
	return c.conn.Close()
}

// closeWith sends a close frame with the given application code and drops the
// connection
func (c *wsConn) closeWith(code int, reason string) {
	c.mu.Lock()
	_ = c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(code, reason), time.Now().Add(time.Second))
	c.mu.Unlock()
	_ = c.conn.Close()
}

// Match serves the matchmaking websocket
type Match struct {
	Matchmaker *matchmaker.Matchmaker
	UDB        databases.UserDatabase
	JWTSecret  string
}

type matchFrame struct {
	Action string `json:"action"`
}

// Serve upgrades /ws/match and relays queue commands to the matchmaker until
// the client disconnects
func (h Match) Serve(w http.ResponseWriter, r *http.Request) {
	raw, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		zap.S().Debugw("websocket upgrade failed", "error", err)
		return
	}
	conn := &wsConn{conn: raw}
	defer conn.Close()

	userID, err := api.ParseSocketToken(h.JWTSecret, r.URL.Query().Get("token"))
	if err != nil {
		conn.closeWith(closeUnauthorized, "unauthorized")
		return
	}

	rating := models.DefaultElo
	ctx, cancel := api.WithQueryTimeout(r.Context())
	if user, err := h.UDB.FindOne(ctx, bson.M{"_id": userID}); err == nil {
		rating = user.Elo
	}
	cancel()

	h.Matchmaker.Register(userID, conn)
	defer h.Matchmaker.Unregister(userID)
	zap.S().Infow("matchmaking socket opened", "userId", userID)

	for {
		_, payload, err := raw.ReadMessage()
		if err != nil {
			zap.S().Debugw("matchmaking socket closed", "userId", userID, "error", err)
			return
		}
		var frame matchFrame
		if err := json.Unmarshal(payload, &frame); err != nil {
			_ = conn.Send(models.ErrorFrame{Error: "malformed frame"})
			continue
		}

		switch frame.Action {
		case "join":
			if err := h.Matchmaker.Join(userID, rating); err != nil {
				_ = conn.Send(models.ErrorFrame{Error: err.Error()})
			}
		case "leave":
			h.Matchmaker.Leave(userID)
		case "accept":
			h.Matchmaker.Accept(userID)
		case "decline":
			h.Matchmaker.Decline(userID)
		default:
			_ = conn.Send(models.ErrorFrame{Error: "unknown action"})
		}
	}
}
