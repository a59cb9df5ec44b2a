package handlers_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/crypto/bcrypt"

	"github.com/turingroom/turing-room-api/api/handlers"
	"github.com/turingroom/turing-room-api/databases/mocks"
	"github.com/turingroom/turing-room-api/models"
)

func TestUser_RegisterHandler(t *testing.T) {
	db := &mocks.UserDatabase{}
	db.On("FindOne", mock.Anything, bson.M{"email": "alice@example.com"}).Return(nil, mongo.ErrNoDocuments)
	db.On("InsertOne", mock.Anything, mock.MatchedBy(func(u models.User) bool {
		return u.ID != "" &&
			u.Email == "alice@example.com" &&
			u.Elo == models.DefaultElo &&
			bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte("hunter2")) == nil
	})).Return(nil, nil)

	u := handlers.User{DB: db}

	body, _ := json.Marshal(map[string]string{
		"email":        "alice@example.com",
		"display_name": "alice",
		"password":     "hunter2",
	})
	req := httptest.NewRequest("POST", "/api/v1/user/register", bytes.NewReader(body))
	rr := httptest.NewRecorder()

	http.HandlerFunc(u.RegisterHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusCreated, rr.Code)
	var created models.User
	assert.NoError(t, json.Unmarshal(rr.Body.Bytes(), &created))
	assert.Equal(t, "alice", created.DisplayName)
	assert.Equal(t, models.DefaultElo, created.Elo)
	// the hash never leaves the server
	assert.NotContains(t, rr.Body.String(), "passwordHash")
	db.AssertExpectations(t)
}

func TestUser_RegisterHandlerDuplicateEmail(t *testing.T) {
	db := &mocks.UserDatabase{}
	db.On("FindOne", mock.Anything, mock.Anything).Return(&models.User{ID: "u1", Email: "alice@example.com"}, nil)

	u := handlers.User{DB: db}

	body, _ := json.Marshal(map[string]string{"email": "alice@example.com", "password": "hunter2"})
	req := httptest.NewRequest("POST", "/api/v1/user/register", bytes.NewReader(body))
	rr := httptest.NewRecorder()

	http.HandlerFunc(u.RegisterHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusConflict, rr.Code)
	db.AssertNotCalled(t, "InsertOne", mock.Anything, mock.Anything)
}

func TestUser_RegisterHandlerMissingPassword(t *testing.T) {
	u := handlers.User{DB: &mocks.UserDatabase{}}

	body, _ := json.Marshal(map[string]string{"email": "alice@example.com"})
	req := httptest.NewRequest("POST", "/api/v1/user/register", bytes.NewReader(body))
	rr := httptest.NewRecorder()

	http.HandlerFunc(u.RegisterHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestUser_UserHandler(t *testing.T) {
	db := &mocks.UserDatabase{}
	db.On("FindOne", mock.Anything, bson.M{"_id": "u1"}).Return(&models.User{ID: "u1", DisplayName: "alice", Elo: 1024}, nil)

	u := handlers.User{DB: db}

	req := httptest.NewRequest("GET", "/api/v1/user/u1", nil)
	req = mux.SetURLVars(req, map[string]string{"user_id": "u1"})
	rr := httptest.NewRecorder()

	http.HandlerFunc(u.UserHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	var got models.User
	assert.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	assert.Equal(t, 1024, got.Elo)
}

func TestUser_UserHandlerNotFound(t *testing.T) {
	db := &mocks.UserDatabase{}
	db.On("FindOne", mock.Anything, mock.Anything).Return(nil, mongo.ErrNoDocuments)

	u := handlers.User{DB: db}

	req := httptest.NewRequest("GET", "/api/v1/user/missing", nil)
	req = mux.SetURLVars(req, map[string]string{"user_id": "missing"})
	rr := httptest.NewRecorder()

	http.HandlerFunc(u.UserHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestUser_UsersFindAllHandlerEmpty(t *testing.T) {
	db := &mocks.UserDatabase{}
	db.On("Find", mock.Anything, mock.Anything, mock.Anything).Return(nil, nil)

	u := handlers.User{DB: db}

	req := httptest.NewRequest("GET", "/api/v1/users?limit=10", nil)
	rr := httptest.NewRecorder()

	http.HandlerFunc(u.UsersFindAllHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "[]", rr.Body.String())
}

func TestUser_UpdateUserHandlerNotFound(t *testing.T) {
	db := &mocks.UserDatabase{}
	db.On("UpdateOne", mock.Anything, mock.Anything, mock.Anything).Return(&mongo.UpdateResult{MatchedCount: 0}, nil)

	u := handlers.User{DB: db}

	body, _ := json.Marshal(map[string]string{"display_name": "new-name"})
	req := httptest.NewRequest("PUT", "/api/v1/user/missing", bytes.NewReader(body))
	req = mux.SetURLVars(req, map[string]string{"user_id": "missing"})
	rr := httptest.NewRecorder()

	http.HandlerFunc(u.UpdateUserHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestUser_UserGamesHandler(t *testing.T) {
	gdb := &mocks.GameDatabase{}
	gdb.On("Find", mock.Anything, bson.M{"$or": []bson.M{
		{"interrogatorId": "u1"},
		{"witnessHumanId": "u1"},
	}}, mock.Anything).Return([]models.Game{{ID: "g1", InterrogatorID: "u1"}}, nil)

	u := handlers.User{GDB: gdb}

	req := httptest.NewRequest("GET", "/api/v1/user/u1/games", nil)
	req = mux.SetURLVars(req, map[string]string{"user_id": "u1"})
	rr := httptest.NewRecorder()

	http.HandlerFunc(u.UserGamesHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	var games []models.Game
	assert.NoError(t, json.Unmarshal(rr.Body.Bytes(), &games))
	assert.Len(t, games, 1)
	assert.Equal(t, "g1", games[0].ID)
}
