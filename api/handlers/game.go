package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/turingroom/turing-room-api/api"
	"github.com/turingroom/turing-room-api/config"
	"github.com/turingroom/turing-room-api/databases"
	"github.com/turingroom/turing-room-api/models"
)

// Judge closes a game from the interrogator's final accusation
type Judge interface {
	FinishAndJudge(ctx context.Context, gameID, interrogatorID, accusedAIID, accusedHumanID string) (*models.Game, error)
}

// Game exported for testing purposes
type Game struct {
	DB    databases.GameDatabase
	MDB   databases.MessageDatabase
	Judge Judge
}

// gameView is the public shape of a game. While a game is running the two
// witness ids are listed in lexicographic order so the payload never reveals
// which one is the AI; the assignment appears once the game has ended.
type gameView struct {
	ID             string            `json:"_id"`
	InterrogatorID string            `json:"interrogatorId"`
	Witnesses      []string          `json:"witnesses"`
	Status         models.GameStatus `json:"status"`
	StartedAt      time.Time         `json:"startedAt"`
	EndedAt        *time.Time        `json:"endedAt,omitempty"`
	Success        *bool             `json:"success,omitempty"`
	WitnessAIID    string            `json:"witnessAiId,omitempty"`
	WitnessHumanID string            `json:"witnessHumanId,omitempty"`
}

func newGameView(g *models.Game) gameView {
	witnesses := []string{g.WitnessAIID, g.WitnessHumanID}
	sort.Strings(witnesses)

	v := gameView{
		ID:             g.ID,
		InterrogatorID: g.InterrogatorID,
		Witnesses:      witnesses,
		Status:         g.Status,
		StartedAt:      g.StartedAt,
		EndedAt:        g.EndedAt,
		Success:        g.Success,
	}
	if g.Status == models.GameStatusEnded {
		v.WitnessAIID = g.WitnessAIID
		v.WitnessHumanID = g.WitnessHumanID
	}
	return v
}

// GameHandler returns a game given a gameID
func (g Game) GameHandler(w http.ResponseWriter, r *http.Request) {
	gameID := mux.Vars(r)["game_id"]

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	dbResp, err := g.DB.FindOne(ctx, bson.M{"_id": gameID})
	if err != nil {
		config.ErrorStatus("failed to get game by ID", http.StatusNotFound, w, err)
		return
	}

	b, err := json.Marshal(newGameView(dbResp))
	if err != nil {
		config.ErrorStatus("failed to marshal response", http.StatusInternalServerError, w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write(b)
}

// GuessHandler is the REST twin of the room socket's guess action
func (g Game) GuessHandler(w http.ResponseWriter, r *http.Request) {
	gameID := mux.Vars(r)["game_id"]

	var req models.GuessPacket
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		config.ErrorStatus("failed to decode request", http.StatusBadRequest, w, err)
		return
	}
	if _, err := uuid.Parse(req.SuspectAIID); err != nil {
		config.ErrorStatus("suspect_ai_id is not a valid id", http.StatusBadRequest, w, err)
		return
	}
	if _, err := uuid.Parse(req.SuspectHumanID); err != nil {
		config.ErrorStatus("suspect_human_id is not a valid id", http.StatusBadRequest, w, err)
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	game, err := g.DB.FindOne(ctx, bson.M{"_id": gameID})
	if err != nil {
		config.ErrorStatus("failed to get game by ID", http.StatusNotFound, w, err)
		return
	}
	if req.InterrogatorID != game.InterrogatorID {
		config.ErrorStatus("only the interrogator may guess", http.StatusForbidden, w, fmt.Errorf("user %s is not the interrogator", req.InterrogatorID))
		return
	}

	judged, err := g.Judge.FinishAndJudge(ctx, gameID, game.InterrogatorID, req.SuspectAIID, req.SuspectHumanID)
	if err != nil {
		config.ErrorStatus("failed to judge game", http.StatusInternalServerError, w, err)
		return
	}

	correct := judged.Success != nil && *judged.Success
	b, err := json.Marshal(models.GuessResult{Action: "guess_result", Correct: correct})
	if err != nil {
		config.ErrorStatus("failed to marshal response", http.StatusInternalServerError, w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write(b)
}

// MessagesHandler returns a game's transcript ordered by timestamp
func (g Game) MessagesHandler(w http.ResponseWriter, r *http.Request) {
	gameID := mux.Vars(r)["game_id"]

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "ts", Value: 1}})
	dbResp, err := g.MDB.Find(ctx, bson.M{"gameId": gameID}, opts)
	if err != nil {
		config.ErrorStatus("failed to get messages by game ID", http.StatusInternalServerError, w, err)
		return
	}
	if len(dbResp) == 0 {
		dbResp = []models.Message{}
	}
	b, err := json.Marshal(dbResp)
	if err != nil {
		config.ErrorStatus("failed to marshal response", http.StatusInternalServerError, w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write(b)
}
