package games

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"github.com/turingroom/turing-room-api/broker"
	"github.com/turingroom/turing-room-api/databases"
	"github.com/turingroom/turing-room-api/models"
)

// Releaser frees matchmaking slots held by users whose game has ended, so
// they can queue again
type Releaser interface {
	Release(userIDs ...string)
}

// Service owns the game lifecycle: creation, the chat-phase deadline, the
// judgment transition and the rating update. A game moves
// CHAT -> JUDGING -> ENDED, or straight CHAT -> ENDED on an early guess;
// ENDED is terminal.
type Service struct {
	Games   databases.GameDatabase
	Users   databases.UserDatabase
	Guesses databases.GuessDatabase
	Broker  broker.Broker

	// ChatDuration bounds the chat phase; canonical default is 300s
	ChatDuration time.Duration

	// Releaser is optional; when set, both participants are released on ENDED
	Releaser Releaser

	mu     sync.Mutex
	timers map[string]*time.Timer
}

// NewService wires a game service over the given collaborators
func NewService(games databases.GameDatabase, users databases.UserDatabase, guesses databases.GuessDatabase, b broker.Broker, chatDuration time.Duration) *Service {
	return &Service{
		Games:        games,
		Users:        users,
		Guesses:      guesses,
		Broker:       b,
		ChatDuration: chatDuration,
		timers:       make(map[string]*time.Timer),
	}
}

// CreateAndStart creates both participants if they are new, inserts a game in
// the CHAT state and arms the chat-phase deadline. The concealed AI witness
// identity is minted here; the interrogator only ever sees two witness ids.
func (s *Service) CreateAndStart(ctx context.Context, interrogatorID, humanWitnessID string) (*models.Game, error) {
	if _, err := s.getOrCreateUser(ctx, interrogatorID); err != nil {
		return nil, err
	}
	if _, err := s.getOrCreateUser(ctx, humanWitnessID); err != nil {
		return nil, err
	}

	game := models.Game{
		ID:             uuid.NewString(),
		InterrogatorID: interrogatorID,
		WitnessHumanID: humanWitnessID,
		WitnessAIID:    uuid.NewString(),
		Status:         models.GameStatusChat,
		StartedAt:      time.Now().UTC(),
	}
	if _, err := s.Games.InsertOne(ctx, game); err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.timers[game.ID] = time.AfterFunc(s.ChatDuration, func() {
		if err := s.EndChat(context.Background(), game.ID); err != nil {
			zap.S().Errorw("chat deadline transition failed", "gameId", game.ID, "error", err)
		}
	})
	s.mu.Unlock()

	zap.S().Infow("game started",
		"gameId", game.ID,
		"interrogator", interrogatorID,
		"witness", humanWitnessID,
	)
	return &game, nil
}

// Get returns a game by id
func (s *Service) Get(ctx context.Context, gameID string) (*models.Game, error) {
	return s.Games.FindOne(ctx, bson.M{"_id": gameID})
}

// EndChat moves a game from CHAT to JUDGING and tells every connected relay
// to prompt for the final judgment. Safe to call on a game that has already
// moved on; the transition is a conditional update and losing it is a no-op.
func (s *Service) EndChat(ctx context.Context, gameID string) error {
	_, err := s.Games.FindOneAndUpdate(ctx,
		bson.M{"_id": gameID, "status": models.GameStatusChat},
		bson.M{"$set": bson.M{"status": models.GameStatusJudging}},
	)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil
	}
	if err != nil {
		return err
	}

	payload, err := json.Marshal(models.ChatEnded{
		Action: "chat_ended",
		Detail: "chat is over, the interrogator must now make a final guess",
	})
	if err != nil {
		return err
	}
	for _, ch := range broker.NoticeChannels(gameID) {
		if err := s.Broker.Publish(ch, payload); err != nil {
			zap.S().Errorw("failed to publish chat_ended", "channel", ch, "error", err)
		}
	}
	return nil
}

// FinishAndJudge records the interrogator's accusation, closes the game and
// updates ratings. Judgment is gated on a conditional update keyed on a
// non-terminal status: of two concurrent calls exactly one writes the guess
// and ratings, the other gets the already-ended game back unchanged.
func (s *Service) FinishAndJudge(ctx context.Context, gameID, interrogatorID, accusedAIID, accusedHumanID string) (*models.Game, error) {
	game, err := s.Games.FindOne(ctx, bson.M{"_id": gameID})
	if err != nil {
		return nil, err
	}
	if game.Status == models.GameStatusEnded {
		return game, nil
	}

	correct := accusedAIID == game.WitnessAIID && accusedHumanID == game.WitnessHumanID
	now := time.Now().UTC()

	updated, err := s.Games.FindOneAndUpdate(ctx,
		bson.M{"_id": gameID, "status": bson.M{"$ne": models.GameStatusEnded}},
		bson.M{"$set": bson.M{
			"status":  models.GameStatusEnded,
			"success": correct,
			"endedAt": now,
		}},
	)
	if errors.Is(err, mongo.ErrNoDocuments) {
		// lost the judgment race; the winner already scored this game
		return s.Games.FindOne(ctx, bson.M{"_id": gameID})
	}
	if err != nil {
		return nil, err
	}

	if _, err := s.Guesses.InsertOne(ctx, models.Guess{
		GameID:         gameID,
		InterrogatorID: interrogatorID,
		GuessedAIID:    accusedAIID,
		GuessedHumanID: accusedHumanID,
		Correct:        correct,
		GuessedAt:      now,
	}); err != nil {
		zap.S().Errorw("failed to record guess", "gameId", gameID, "error", err)
	}

	if err := s.applyRatings(ctx, updated, correct); err != nil {
		zap.S().Errorw("failed to update ratings", "gameId", gameID, "error", err)
	}

	s.cancelTimer(gameID)
	if s.Releaser != nil {
		s.Releaser.Release(updated.InterrogatorID, updated.WitnessHumanID)
	}

	zap.S().Infow("game judged", "gameId", gameID, "correct", correct)
	return updated, nil
}

// SweepOverdue closes the chat phase of games whose deadline passed without
// the in-process timer firing (lost across a restart). Returns how many games
// were moved to JUDGING.
func (s *Service) SweepOverdue(ctx context.Context) (int, error) {
	cutoff := time.Now().UTC().Add(-s.ChatDuration)
	overdue, err := s.Games.Find(ctx, bson.M{
		"status":    models.GameStatusChat,
		"startedAt": bson.M{"$lt": cutoff},
	})
	if err != nil {
		return 0, err
	}

	moved := 0
	for _, g := range overdue {
		if err := s.EndChat(ctx, g.ID); err != nil {
			zap.S().Errorw("sweep failed to end chat", "gameId", g.ID, "error", err)
			continue
		}
		moved++
	}
	return moved, nil
}

// applyRatings always rates the interrogator; the human witness is rated
// symmetrically with the inverse outcome. An AI witness is never rated and
// stands in at the nominal default rating.
func (s *Service) applyRatings(ctx context.Context, game *models.Game, correct bool) error {
	interrogator, err := s.Users.FindOne(ctx, bson.M{"_id": game.InterrogatorID})
	if err != nil {
		return err
	}

	witnessElo := models.DefaultElo
	var witness *models.User
	if game.WitnessHumanID != "" {
		witness, err = s.Users.FindOne(ctx, bson.M{"_id": game.WitnessHumanID})
		if err != nil {
			return err
		}
		witnessElo = witness.Elo
	}

	newInterrogatorElo := CalcElo(interrogator.Elo, witnessElo, correct)
	if _, err := s.Users.UpdateOne(ctx,
		bson.M{"_id": interrogator.ID},
		bson.M{"$set": bson.M{"elo": newInterrogatorElo}},
	); err != nil {
		return err
	}

	if witness != nil {
		newWitnessElo := CalcElo(witness.Elo, interrogator.Elo, !correct)
		if _, err := s.Users.UpdateOne(ctx,
			bson.M{"_id": witness.ID},
			bson.M{"$set": bson.M{"elo": newWitnessElo}},
		); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) getOrCreateUser(ctx context.Context, userID string) (*models.User, error) {
	user, err := s.Users.FindOne(ctx, bson.M{"_id": userID})
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, err
	}

	created := models.User{
		ID:        userID,
		Elo:       models.DefaultElo,
		CreatedAt: time.Now().UTC(),
	}
	if _, err := s.Users.InsertOne(ctx, created); err != nil {
		return nil, err
	}
	return &created, nil
}

// cancelTimer stops the chat deadline for a game that ended early so the
// JUDGING transition cannot fire post mortem
func (s *Service) cancelTimer(gameID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.timers[gameID]; ok {
		t.Stop()
		delete(s.timers, gameID)
	}
}
