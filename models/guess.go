package models

import "time"

// Guess holds the structure for the guess collection in mongo. The
// (gameId, interrogatorId) pair is the logical key; at most one guess is
// written per game.
type Guess struct {
	GameID         string    `json:"gameId" bson:"gameId"`
	InterrogatorID string    `json:"interrogatorId" bson:"interrogatorId"`
	GuessedAIID    string    `json:"guessedAiId" bson:"guessedAiId"`
	GuessedHumanID string    `json:"guessedHumanId" bson:"guessedHumanId"`
	Correct        bool      `json:"correct" bson:"correct"`
	GuessedAt      time.Time `json:"guessedAt" bson:"guessedAt"`
}
