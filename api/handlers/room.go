package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/turingroom/turing-room-api/api"
	"github.com/turingroom/turing-room-api/broker"
	"github.com/turingroom/turing-room-api/databases"
	"github.com/turingroom/turing-room-api/llm"
	"github.com/turingroom/turing-room-api/models"
)

const (
	replyTemperature = 1.0
	replyMaxTokens   = 256
	replyTimeout     = 60 * time.Second
)

// Room serves the per-game relay websocket
type Room struct {
	Broker    broker.Broker
	GDB       databases.GameDatabase
	MDB       databases.MessageDatabase
	Judge     Judge
	Completer llm.Completer
	Persona   string
	JWTSecret string

	// Delay overrides the reply delay model; nil means llm.ReplyDelay
	Delay func(replyLen, prevLen int) time.Duration
}

func (h Room) replyDelay(replyLen, prevLen int) time.Duration {
	if h.Delay != nil {
		return h.Delay(replyLen, prevLen)
	}
	return llm.ReplyDelay(replyLen, prevLen)
}

type roomFrame struct {
	Action         string      `json:"action"`
	Sender         models.Role `json:"sender"`
	Recipient      models.Role `json:"recipient"`
	Body           string      `json:"body"`
	SuspectAIID    string      `json:"suspect_ai_id"`
	SuspectHumanID string      `json:"suspect_human_id"`
}

// roomSession is one authenticated connection inside a game room
type roomSession struct {
	h    Room
	conn *wsConn
	game *models.Game
	role models.Role

	// prevReplyLen feeds the reading-time term of the next reply delay
	mu           sync.Mutex
	prevReplyLen int
}

// Serve upgrades /ws/rooms/{game_id}/{role}, wires the role's subscriptions
// and processes inbound frames until the client disconnects
func (h Room) Serve(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	gameID := vars["game_id"]
	role := models.Role(vars["role"])

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

	// the AI seat is driven by the server, never by a client
	if !role.Valid() || role == models.RoleAI {
		conn.closeWith(closeForbidden, "unknown role")
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	game, err := h.GDB.FindOne(ctx, bson.M{"_id": gameID})
	cancel()
	if err != nil {
		conn.closeWith(closeUnknownGame, "unknown game")
		return
	}

	seat := game.InterrogatorID
	if role == models.RoleHumanWitness {
		seat = game.WitnessHumanID
	}
	if userID != seat {
		conn.closeWith(closeForbidden, "not a participant of this game")
		return
	}

	sub, err := h.Broker.Subscribe(broker.ChannelsForRole(game.ID, role)...)
	if err != nil {
		zap.S().Errorw("failed to subscribe room channels", "gameId", game.ID, "error", err)
		return
	}
	defer sub.Close()

	go func() {
		for payload := range sub.C {
			if err := conn.SendRaw(payload); err != nil {
				return
			}
		}
	}()

	s := &roomSession{h: h, conn: conn, game: game, role: role}
	zap.S().Infow("room socket opened", "gameId", game.ID, "role", role, "userId", userID)

	for {
		_, payload, err := raw.ReadMessage()
		if err != nil {
			zap.S().Debugw("room socket closed", "gameId", game.ID, "role", role, "error", err)
			return
		}
		var frame roomFrame
		if err := json.Unmarshal(payload, &frame); err != nil {
			_ = conn.Send(models.ErrorFrame{Error: "malformed frame"})
			continue
		}

		switch frame.Action {
		case "message":
			s.handleMessage(frame)
		case "guess":
			s.handleGuess(frame)
		default:
			_ = conn.Send(models.ErrorFrame{Error: "unknown action"})
		}
	}
}

// handleMessage validates, stamps, publishes and persists one chat message. A
// message from the interrogator to the AI seat also kicks off the reply
// pipeline.
func (s *roomSession) handleMessage(frame roomFrame) {
	if frame.Body == "" {
		_ = s.conn.Send(models.ErrorFrame{Error: "empty body"})
		return
	}
	if frame.Sender == "" {
		_ = s.conn.Send(models.ErrorFrame{Error: "sender is required"})
		return
	}
	if frame.Sender != s.role {
		_ = s.conn.Send(models.ErrorFrame{Error: "sender does not match your role"})
		return
	}
	if !s.allowedRecipient(frame.Recipient) {
		_ = s.conn.Send(models.ErrorFrame{Error: "invalid recipient"})
		return
	}

	ctx, cancel := api.WithQueryTimeout(context.Background())
	defer cancel()

	current, err := s.h.GDB.FindOne(ctx, bson.M{"_id": s.game.ID})
	if err != nil || current.Status != models.GameStatusChat {
		_ = s.conn.Send(models.ErrorFrame{Error: "chat phase is over"})
		return
	}

	// the transcript is fetched before persisting so the prompt history does
	// not contain the message being answered twice
	var history []models.Message
	toAI := s.role == models.RoleInterrogator && frame.Recipient == models.RoleAI
	if toAI {
		history = s.aiTranscript(ctx)
	}

	ts := time.Now().UTC()
	packet, err := json.Marshal(models.ChatPacket{
		Action:    "message",
		Sender:    s.role,
		Recipient: frame.Recipient,
		Body:      frame.Body,
		Ts:        ts.Format(time.RFC3339Nano),
	})
	if err != nil {
		_ = s.conn.Send(models.ErrorFrame{Error: "malformed frame"})
		return
	}
	if err := s.h.Broker.Publish(broker.Channel(s.game.ID, s.role, frame.Recipient), packet); err != nil {
		zap.S().Errorw("failed to publish message", "gameId", s.game.ID, "error", err)
	}
	s.persist(ctx, s.role, frame.Recipient, frame.Body, ts)

	if toAI {
		go s.aiReply(history, frame.Body)
	}
}

// handleGuess runs the interrogator's final accusation through the judge
func (s *roomSession) handleGuess(frame roomFrame) {
	if s.role != models.RoleInterrogator {
		_ = s.conn.Send(models.ErrorFrame{Error: "only the interrogator may guess"})
		return
	}
	if _, err := uuid.Parse(frame.SuspectAIID); err != nil {
		_ = s.conn.Send(models.ErrorFrame{Error: "suspect_ai_id is not a valid id"})
		return
	}
	if _, err := uuid.Parse(frame.SuspectHumanID); err != nil {
		_ = s.conn.Send(models.ErrorFrame{Error: "suspect_human_id is not a valid id"})
		return
	}

	ctx, cancel := api.WithQueryTimeout(context.Background())
	defer cancel()

	judged, err := s.h.Judge.FinishAndJudge(ctx, s.game.ID, s.game.InterrogatorID, frame.SuspectAIID, frame.SuspectHumanID)
	if err != nil {
		zap.S().Errorw("failed to judge game", "gameId", s.game.ID, "error", err)
		_ = s.conn.Send(models.ErrorFrame{Error: "failed to judge game"})
		return
	}

	correct := judged.Success != nil && *judged.Success
	_ = s.conn.Send(models.GuessResult{Action: "guess_result", Correct: correct})
}

// aiReply generates, sanitizes, delays and delivers the AI witness's answer.
// A reply never triggers another reply; the pipeline runs one level deep.
func (s *roomSession) aiReply(history []models.Message, input string) {
	prompt := llm.BuildPrompt([]llm.PromptFunc{
		llm.SystemPersona(s.h.Persona),
		llm.RoomContext(s.game.ID),
		llm.History(),
	}, history, input)

	ctx, cancel := context.WithTimeout(context.Background(), replyTimeout)
	defer cancel()

	reply, err := s.h.Completer.Complete(ctx, prompt, replyTemperature, replyMaxTokens)
	if err != nil {
		zap.S().Errorw("completion failed", "gameId", s.game.ID, "error", err)
		_ = s.conn.Send(models.ErrorFrame{Error: "witness is unavailable"})
		return
	}

	clean := llm.CleanReply(reply)
	if clean == "" {
		return
	}

	s.mu.Lock()
	prev := s.prevReplyLen
	s.prevReplyLen = len(clean)
	s.mu.Unlock()
	time.Sleep(s.h.replyDelay(len(clean), prev))

	// the chat may have closed while the reply was being typed
	qctx, qcancel := api.WithQueryTimeout(context.Background())
	defer qcancel()
	current, err := s.h.GDB.FindOne(qctx, bson.M{"_id": s.game.ID})
	if err != nil || current.Status != models.GameStatusChat {
		return
	}

	ts := time.Now().UTC()
	packet, err := json.Marshal(models.ChatPacket{
		Action:    "message",
		Sender:    models.RoleAI,
		Recipient: models.RoleInterrogator,
		Body:      clean,
		Ts:        ts.Format(time.RFC3339Nano),
	})
	if err != nil {
		return
	}
	if err := s.h.Broker.Publish(broker.Channel(s.game.ID, models.RoleAI, models.RoleInterrogator), packet); err != nil {
		zap.S().Errorw("failed to publish reply", "gameId", s.game.ID, "error", err)
	}
	s.persist(qctx, models.RoleAI, models.RoleInterrogator, clean, ts)
}

// aiTranscript returns the interrogator/AI exchange in timestamp order
func (s *roomSession) aiTranscript(ctx context.Context) []models.Message {
	opts := options.Find().SetSort(bson.D{{Key: "ts", Value: 1}})
	history, err := s.h.MDB.Find(ctx, bson.M{
		"gameId": s.game.ID,
		"$or": []bson.M{
			{"sender": models.RoleInterrogator, "recipient": models.RoleAI},
			{"sender": models.RoleAI, "recipient": models.RoleInterrogator},
		},
	}, opts)
	if err != nil {
		zap.S().Errorw("failed to load transcript", "gameId", s.game.ID, "error", err)
		return nil
	}
	return history
}

func (s *roomSession) persist(ctx context.Context, sender, recipient models.Role, body string, ts time.Time) {
	_, err := s.h.MDB.InsertOne(ctx, models.Message{
		ID:        uuid.NewString(),
		GameID:    s.game.ID,
		Sender:    sender,
		Recipient: recipient,
		Body:      body,
		Ts:        ts,
	})
	if err != nil {
		zap.S().Errorw("failed to persist message", "gameId", s.game.ID, "error", err)
	}
}

// allowedRecipient enforces the room topology: the interrogator may address
// either witness, a witness may only address the interrogator
func (s *roomSession) allowedRecipient(recipient models.Role) bool {
	if !recipient.Valid() || recipient == s.role {
		return false
	}
	if s.role == models.RoleInterrogator {
		return recipient == models.RoleAI || recipient == models.RoleHumanWitness
	}
	return recipient == models.RoleInterrogator
}
