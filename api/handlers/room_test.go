package handlers_test

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/turingroom/turing-room-api/api"
	"github.com/turingroom/turing-room-api/api/handlers"
	"github.com/turingroom/turing-room-api/broker"
	"github.com/turingroom/turing-room-api/databases/mocks"
	"github.com/turingroom/turing-room-api/llm"
	"github.com/turingroom/turing-room-api/models"
)

type fakeCompleter struct {
	reply string
	err   error
}

func (f fakeCompleter) Complete(ctx context.Context, messages []llm.ChatMessage, temperature float64, maxTokens int) (string, error) {
	return f.reply, f.err
}

type roomFixture struct {
	srv   *httptest.Server
	gdb   *mocks.GameDatabase
	mdb   *mocks.MessageDatabase
	judge *fakeJudge
}

func newRoomServer(t *testing.T, game *models.Game, reply string, judge *fakeJudge) roomFixture {
	gdb := &mocks.GameDatabase{}
	if game != nil {
		gdb.On("FindOne", mock.Anything, mock.Anything).Return(game, nil)
	} else {
		gdb.On("FindOne", mock.Anything, mock.Anything).Return(nil, mongo.ErrNoDocuments)
	}

	mdb := &mocks.MessageDatabase{}
	mdb.On("Find", mock.Anything, mock.Anything, mock.Anything).Return(nil, nil)
	mdb.On("InsertOne", mock.Anything, mock.Anything).Return(nil, nil)

	if judge == nil {
		judge = &fakeJudge{}
	}
	h := handlers.Room{
		Broker:    broker.NewMemory(),
		GDB:       gdb,
		MDB:       mdb,
		Judge:     judge,
		Completer: fakeCompleter{reply: reply},
		Persona:   llm.DefaultPersona,
		JWTSecret: testSecret,
		Delay:     func(int, int) time.Duration { return 0 },
	}

	r := mux.NewRouter()
	r.HandleFunc("/ws/rooms/{game_id}/{role}", h.Serve)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return roomFixture{srv: srv, gdb: gdb, mdb: mdb, judge: judge}
}

func dialRoom(t *testing.T, srv *httptest.Server, gameID string, role models.Role, userID string) *websocket.Conn {
	token, err := api.NewSocketToken(testSecret, userID, time.Minute)
	assert.NoError(t, err)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/rooms/" + gameID + "/" + string(role) + "?token=" + token
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	assert.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	return conn
}

func expectClose(t *testing.T, conn *websocket.Conn, code int) {
	_, _, err := conn.ReadMessage()
	closeErr, ok := err.(*websocket.CloseError)
	assert.True(t, ok, "expected close frame, got %v", err)
	assert.Equal(t, code, closeErr.Code)
}

func TestRoomSocketUnknownGame(t *testing.T) {
	fx := newRoomServer(t, nil, "", nil)
	conn := dialRoom(t, fx.srv, "missing", models.RoleInterrogator, "int")
	expectClose(t, conn, 4404)
}

func TestRoomSocketNotAParticipant(t *testing.T) {
	fx := newRoomServer(t, runningGame(), "", nil)
	conn := dialRoom(t, fx.srv, "g1", models.RoleInterrogator, "stranger")
	expectClose(t, conn, 4403)
}

func TestRoomSocketAISeatRejected(t *testing.T) {
	fx := newRoomServer(t, runningGame(), "", nil)
	conn := dialRoom(t, fx.srv, "g1", models.RoleAI, "int")
	expectClose(t, conn, 4403)
}

func TestRoomRelaysInterrogatorToHumanWitness(t *testing.T) {
	game := runningGame()
	fx := newRoomServer(t, game, "", nil)

	interrogator := dialRoom(t, fx.srv, "g1", models.RoleInterrogator, "int")
	witness := dialRoom(t, fx.srv, "g1", models.RoleHumanWitness, testHumanID)

	assert.NoError(t, interrogator.WriteJSON(map[string]string{
		"action":    "message",
		"sender":    "I",
		"recipient": "H",
		"body":      "where did you grow up",
	}))

	frame := readJSON(t, witness)
	assert.Equal(t, "message", frame["action"])
	assert.Equal(t, "I", frame["sender"])
	assert.Equal(t, "where did you grow up", frame["body"])
	assert.NotEmpty(t, frame["ts"])
}

func TestRoomAIReplyPipeline(t *testing.T) {
	game := runningGame()
	fx := newRoomServer(t, game, "i grew up near (pauses) the coast", nil)

	interrogator := dialRoom(t, fx.srv, "g1", models.RoleInterrogator, "int")

	assert.NoError(t, interrogator.WriteJSON(map[string]string{
		"action":    "message",
		"sender":    "I",
		"recipient": "A",
		"body":      "where did you grow up",
	}))

	frame := readJSON(t, interrogator)
	assert.Equal(t, "message", frame["action"])
	assert.Equal(t, "A", frame["sender"])
	assert.Equal(t, "I", frame["recipient"])
	// the stage direction is stripped and terminal punctuation added
	assert.Equal(t, "i grew up near the coast.", frame["body"])
}

func TestRoomWitnessCannotSpoofSender(t *testing.T) {
	game := runningGame()
	fx := newRoomServer(t, game, "", nil)

	witness := dialRoom(t, fx.srv, "g1", models.RoleHumanWitness, testHumanID)

	assert.NoError(t, witness.WriteJSON(map[string]string{
		"action":    "message",
		"sender":    "I",
		"recipient": "H",
		"body":      "pretending to be the interrogator",
	}))

	frame := readJSON(t, witness)
	assert.Contains(t, frame["error"], "sender does not match")
}

func TestRoomMessageRequiresSender(t *testing.T) {
	game := runningGame()
	fx := newRoomServer(t, game, "", nil)

	interrogator := dialRoom(t, fx.srv, "g1", models.RoleInterrogator, "int")

	assert.NoError(t, interrogator.WriteJSON(map[string]string{
		"action":    "message",
		"recipient": "H",
		"body":      "no sender on this one",
	}))

	frame := readJSON(t, interrogator)
	assert.Contains(t, frame["error"], "sender is required")
}

func TestRoomMessageAfterChatPhase(t *testing.T) {
	game := runningGame()
	game.Status = models.GameStatusJudging
	fx := newRoomServer(t, game, "", nil)

	interrogator := dialRoom(t, fx.srv, "g1", models.RoleInterrogator, "int")

	assert.NoError(t, interrogator.WriteJSON(map[string]string{
		"action":    "message",
		"sender":    "I",
		"recipient": "H",
		"body":      "too late",
	}))

	frame := readJSON(t, interrogator)
	assert.Contains(t, frame["error"], "chat phase is over")
}

func TestRoomGuessOnlyInterrogator(t *testing.T) {
	game := runningGame()
	fx := newRoomServer(t, game, "", nil)

	witness := dialRoom(t, fx.srv, "g1", models.RoleHumanWitness, testHumanID)

	assert.NoError(t, witness.WriteJSON(map[string]string{
		"action":           "guess",
		"suspect_ai_id":    testAIID,
		"suspect_human_id": testHumanID,
	}))

	frame := readJSON(t, witness)
	assert.Contains(t, frame["error"], "only the interrogator")
}

func TestRoomGuessRejectsMalformedSuspectID(t *testing.T) {
	game := runningGame()
	judge := &fakeJudge{}
	fx := newRoomServer(t, game, "", judge)

	interrogator := dialRoom(t, fx.srv, "g1", models.RoleInterrogator, "int")
	witness := dialRoom(t, fx.srv, "g1", models.RoleHumanWitness, testHumanID)

	assert.NoError(t, interrogator.WriteJSON(map[string]string{
		"action":           "guess",
		"suspect_ai_id":    "not-a-uuid",
		"suspect_human_id": testHumanID,
	}))

	frame := readJSON(t, interrogator)
	assert.Contains(t, frame["error"], "suspect_ai_id is not a valid id")
	assert.Empty(t, judge.gotAI)

	// the session survives a bad guess and keeps relaying
	assert.NoError(t, interrogator.WriteJSON(map[string]string{
		"action":    "message",
		"sender":    "I",
		"recipient": "H",
		"body":      "still here",
	}))
	relayed := readJSON(t, witness)
	assert.Equal(t, "still here", relayed["body"])
}

func TestRoomGuessReturnsResult(t *testing.T) {
	game := runningGame()

	ended := *game
	ended.Status = models.GameStatusEnded
	success := true
	ended.Success = &success

	fx := newRoomServer(t, game, "", &fakeJudge{game: &ended})

	interrogator := dialRoom(t, fx.srv, "g1", models.RoleInterrogator, "int")

	assert.NoError(t, interrogator.WriteJSON(map[string]string{
		"action":           "guess",
		"suspect_ai_id":    testAIID,
		"suspect_human_id": testHumanID,
	}))

	frame := readJSON(t, interrogator)
	assert.Equal(t, "guess_result", frame["action"])
	assert.Equal(t, true, frame["is_correct"])
}

func TestRoomUnknownAction(t *testing.T) {
	game := runningGame()
	fx := newRoomServer(t, game, "", nil)

	interrogator := dialRoom(t, fx.srv, "g1", models.RoleInterrogator, "int")

	assert.NoError(t, interrogator.WriteJSON(map[string]string{"action": "dance"}))

	frame := readJSON(t, interrogator)
	assert.Contains(t, frame["error"], "unknown action")
}
