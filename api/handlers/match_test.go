package handlers_test

import (
	"context"
	"errors"
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
	"github.com/turingroom/turing-room-api/databases/mocks"
	"github.com/turingroom/turing-room-api/matchmaker"
	"github.com/turingroom/turing-room-api/models"
)

const testSecret = "test-secret"

type stubStarter struct{}

func (stubStarter) CreateAndStart(ctx context.Context, interrogatorID, humanWitnessID string) (*models.Game, error) {
	return &models.Game{
		ID:             "game-xyz",
		InterrogatorID: interrogatorID,
		WitnessHumanID: humanWitnessID,
		Status:         models.GameStatusChat,
	}, nil
}

func newMatchServer(t *testing.T) (*httptest.Server, *matchmaker.Matchmaker) {
	udb := &mocks.UserDatabase{}
	udb.On("FindOne", mock.Anything, mock.Anything).Return(nil, mongo.ErrNoDocuments)

	m := matchmaker.New(stubStarter{}, time.Minute, "")
	h := handlers.Match{Matchmaker: m, UDB: udb, JWTSecret: testSecret}

	r := mux.NewRouter()
	r.HandleFunc("/ws/match", h.Serve)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv, m
}

func dialMatch(t *testing.T, srv *httptest.Server, userID string) *websocket.Conn {
	token, err := api.NewSocketToken(testSecret, userID, time.Minute)
	assert.NoError(t, err)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/match?token=" + token
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	assert.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	return conn
}

func readJSON(t *testing.T, conn *websocket.Conn) map[string]interface{} {
	var frame map[string]interface{}
	assert.NoError(t, conn.ReadJSON(&frame))
	return frame
}

func TestMatchSocketRejectsBadToken(t *testing.T) {
	srv, _ := newMatchServer(t)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/match?token=garbage"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	assert.NoError(t, err)
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, _, err = conn.ReadMessage()
	closeErr, ok := err.(*websocket.CloseError)
	assert.True(t, ok)
	assert.Equal(t, 4401, closeErr.Code)
}

func TestMatchSocketDisconnectTearsDownRegistration(t *testing.T) {
	srv, m := newMatchServer(t)
	conn := dialMatch(t, srv, "alice")

	assert.NoError(t, conn.WriteJSON(map[string]string{"action": "join"}))
	assert.NoError(t, conn.Close())

	// the handler's deferred cleanup drops the registration and the socket
	assert.Eventually(t, func() bool {
		return errors.Is(m.Join("alice", models.DefaultElo), matchmaker.ErrNotConnected)
	}, time.Second, 10*time.Millisecond)
}

func TestMatchSocketDoubleJoin(t *testing.T) {
	srv, _ := newMatchServer(t)
	conn := dialMatch(t, srv, "alice")

	assert.NoError(t, conn.WriteJSON(map[string]string{"action": "join"}))
	assert.NoError(t, conn.WriteJSON(map[string]string{"action": "join"}))

	frame := readJSON(t, conn)
	assert.Contains(t, frame["error"], "already in the queue")
}

func TestMatchSocketPairAndAccept(t *testing.T) {
	srv, m := newMatchServer(t)
	alice := dialMatch(t, srv, "alice")
	bob := dialMatch(t, srv, "bob")

	assert.NoError(t, alice.WriteJSON(map[string]string{"action": "join"}))
	assert.NoError(t, bob.WriteJSON(map[string]string{"action": "join"}))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go m.Run(ctx)

	found := readJSON(t, alice)
	assert.Equal(t, "match_found", found["action"])
	role := found["role"].(string)
	assert.Contains(t, []string{"I", "H"}, role)

	foundBob := readJSON(t, bob)
	assert.Equal(t, "match_found", foundBob["action"])
	assert.NotEqual(t, role, foundBob["role"])
	assert.Equal(t, found["match_id"], foundBob["match_id"])

	assert.NoError(t, alice.WriteJSON(map[string]string{"action": "accept"}))
	assert.NoError(t, bob.WriteJSON(map[string]string{"action": "accept"}))

	for _, conn := range []*websocket.Conn{alice, bob} {
		starting := readJSON(t, conn)
		assert.Equal(t, "game_starting", starting["action"])
		matched := readJSON(t, conn)
		assert.Equal(t, "matched", matched["action"])
		assert.Equal(t, "game-xyz", matched["game_id"])
	}
}

func TestMatchSocketDeclineRequeuesTheOther(t *testing.T) {
	srv, m := newMatchServer(t)
	alice := dialMatch(t, srv, "alice")
	bob := dialMatch(t, srv, "bob")

	assert.NoError(t, alice.WriteJSON(map[string]string{"action": "join"}))
	assert.NoError(t, bob.WriteJSON(map[string]string{"action": "join"}))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go m.Run(ctx)

	readJSON(t, alice)
	readJSON(t, bob)

	assert.NoError(t, bob.WriteJSON(map[string]string{"action": "decline"}))

	requeued := readJSON(t, alice)
	assert.Equal(t, "requeue", requeued["action"])
}
