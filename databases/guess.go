package databases

// go generate: mockery --name GuessDatabase

import (
	"context"

	"github.com/turingroom/turing-room-api/models"
)

const guessName = "guesses"

// GuessDatabase contains the methods to use with the guess database
type GuessDatabase interface {
	FindOne(ctx context.Context, filter interface{}) (*models.Guess, error)
	InsertOne(ctx context.Context, guess models.Guess) (InsertOneResultHelper, error)
}

type guessDatabase struct {
	db DatabaseHelper
}

// NewGuessDatabase initializes a new instance of guess database with the provided db connection
func NewGuessDatabase(db DatabaseHelper) GuessDatabase {
	return &guessDatabase{
		db: db,
	}
}

func (g *guessDatabase) FindOne(ctx context.Context, filter interface{}) (*models.Guess, error) {
	guess := &models.Guess{}
	err := g.db.Collection(guessName).FindOne(ctx, filter).Decode(guess)
	if err != nil {
		return nil, err
	}
	return guess, nil
}

func (g *guessDatabase) InsertOne(ctx context.Context, guess models.Guess) (InsertOneResultHelper, error) {
	res, err := g.db.Collection(guessName).InsertOne(ctx, guess)
	return res, err
}
