package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/turingroom/turing-room-api/api"
	"github.com/turingroom/turing-room-api/config"
	"github.com/turingroom/turing-room-api/databases"
	"github.com/turingroom/turing-room-api/models"
)

// User exported for testing purposes
type User struct {
	DB  databases.UserDatabase
	GDB databases.GameDatabase
}

type registerRequest struct {
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	Password    string `json:"password"`
}

// RegisterHandler creates a user with a bcrypt-hashed password and the
// starting rating
func (u User) RegisterHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	var req registerRequest
	err := json.NewDecoder(r.Body).Decode(&req)
	if err != nil {
		config.ErrorStatus("failed to decode request", http.StatusBadRequest, w, err)
		return
	}
	if req.Email == "" || req.Password == "" {
		config.ErrorStatus("email and password are required", http.StatusBadRequest, w, fmt.Errorf("missing credentials"))
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	// check if the user already exists
	existingUser, _ := u.DB.FindOne(ctx, bson.M{"email": req.Email})
	if existingUser != nil {
		config.ErrorStatus("email already exists", http.StatusConflict, w, fmt.Errorf("duplicate email"))
		return
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		config.ErrorStatus("failed to hash password", http.StatusInternalServerError, w, err)
		return
	}

	user := models.User{
		ID:           uuid.NewString(),
		Email:        req.Email,
		DisplayName:  req.DisplayName,
		PasswordHash: string(hashedPassword),
		Elo:          models.DefaultElo,
		CreatedAt:    time.Now().UTC(),
	}
	if _, err := u.DB.InsertOne(ctx, user); err != nil {
		config.ErrorStatus("failed to insert user", http.StatusInternalServerError, w, err)
		return
	}

	b, err := json.Marshal(user)
	if err != nil {
		config.ErrorStatus("failed to marshal response", http.StatusInternalServerError, w, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
	w.Write(b)
}

// UserHandler returns a user given a userID
func (u User) UserHandler(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["user_id"]

	zap.S().Debugf("user_id: %v", userID)

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	dbResp, err := u.DB.FindOne(ctx, bson.M{"_id": userID})
	if err != nil {
		config.ErrorStatus("failed to get user by ID", http.StatusNotFound, w, err)
		return
	}

	b, err := json.Marshal(dbResp)
	if err != nil {
		config.ErrorStatus("failed to marshal response", http.StatusInternalServerError, w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write(b)
}

// UsersFindAllHandler lists users ordered by rating, paged with limit/offset
// query params
func (u User) UsersFindAllHandler(w http.ResponseWriter, r *http.Request) {
	limit, err := strconv.ParseInt(r.URL.Query().Get("limit"), 10, 64)
	if err != nil || limit <= 0 || limit > 100 {
		limit = 50
	}
	offset, err := strconv.ParseInt(r.URL.Query().Get("offset"), 10, 64)
	if err != nil || offset < 0 {
		offset = 0
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	opts := options.Find().
		SetSort(bson.D{{Key: "elo", Value: -1}}).
		SetLimit(limit).
		SetSkip(offset)
	dbResp, err := u.DB.Find(ctx, bson.M{}, opts)
	if err != nil {
		config.ErrorStatus("failed to list users", http.StatusInternalServerError, w, err)
		return
	}
	// Because the frontend requires that the data elements exist, if len == 0
	// then we will just return an empty data object
	if len(dbResp) == 0 {
		dbResp = []models.User{}
	}
	b, err := json.Marshal(dbResp)
	if err != nil {
		config.ErrorStatus("failed to marshal response", http.StatusInternalServerError, w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write(b)
}

type updateUserRequest struct {
	DisplayName string `json:"display_name"`
}

// UpdateUserHandler updates a user's display name
func (u User) UpdateUserHandler(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["user_id"]

	var req updateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		config.ErrorStatus("failed to decode request", http.StatusBadRequest, w, err)
		return
	}
	if req.DisplayName == "" {
		config.ErrorStatus("display_name is required", http.StatusBadRequest, w, fmt.Errorf("empty display_name"))
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	res, err := u.DB.UpdateOne(ctx, bson.M{"_id": userID}, bson.M{"$set": bson.M{"displayName": req.DisplayName}})
	if err != nil {
		config.ErrorStatus("failed to update user", http.StatusInternalServerError, w, err)
		return
	}
	if res.MatchedCount == 0 {
		config.ErrorStatus("user not found", http.StatusNotFound, w, fmt.Errorf("no user with id %s", userID))
		return
	}

	dbResp, err := u.DB.FindOne(ctx, bson.M{"_id": userID})
	if err != nil {
		config.ErrorStatus("failed to get user by ID", http.StatusNotFound, w, err)
		return
	}
	b, err := json.Marshal(dbResp)
	if err != nil {
		config.ErrorStatus("failed to marshal response", http.StatusInternalServerError, w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write(b)
}

// DeleteUserHandler removes a user
func (u User) DeleteUserHandler(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["user_id"]

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	if err := u.DB.DeleteOne(ctx, bson.M{"_id": userID}); err != nil {
		config.ErrorStatus("failed to delete user", http.StatusInternalServerError, w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(fmt.Sprintf(`{"deleted": "%s"}`, userID)))
}

// UserGamesHandler returns a user's game history, newest first
func (u User) UserGamesHandler(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["user_id"]

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "startedAt", Value: -1}})
	dbResp, err := u.GDB.Find(ctx, bson.M{"$or": []bson.M{
		{"interrogatorId": userID},
		{"witnessHumanId": userID},
	}}, opts)
	if err != nil {
		config.ErrorStatus("failed to get games by user ID", http.StatusInternalServerError, w, err)
		return
	}
	if len(dbResp) == 0 {
		dbResp = []models.Game{}
	}
	b, err := json.Marshal(dbResp)
	if err != nil {
		config.ErrorStatus("failed to marshal response", http.StatusInternalServerError, w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write(b)
}
