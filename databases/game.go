package databases

// go generate: mockery --name GameDatabase

import (
	"context"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/turingroom/turing-room-api/models"
)

const gameName = "games"

// GameDatabase contains the methods to use with the game database
type GameDatabase interface {
	FindOne(ctx context.Context, filter interface{}) (*models.Game, error)
	Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) ([]models.Game, error)
	InsertOne(ctx context.Context, game models.Game) (InsertOneResultHelper, error)
	UpdateOne(ctx context.Context, filter interface{}, update interface{}, opts ...*options.UpdateOptions) (*mongo.UpdateResult, error)
	// FindOneAndUpdate applies update to the first document matching filter
	// and returns the post-update document. It is the single-round-trip
	// compare-and-set used to gate terminal transitions.
	FindOneAndUpdate(ctx context.Context, filter interface{}, update interface{}) (*models.Game, error)
}

type gameDatabase struct {
	db DatabaseHelper
}

// NewGameDatabase initializes a new instance of game database with the provided db connection
func NewGameDatabase(db DatabaseHelper) GameDatabase {
	return &gameDatabase{
		db: db,
	}
}

func (g *gameDatabase) FindOne(ctx context.Context, filter interface{}) (*models.Game, error) {
	game := &models.Game{}
	err := g.db.Collection(gameName).FindOne(ctx, filter).Decode(game)
	if err != nil {
		return nil, err
	}
	return game, nil
}

func (g *gameDatabase) Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) ([]models.Game, error) {
	var games []models.Game
	cr, err := g.db.Collection(gameName).Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}
	err = cr.Decode(&games)
	if err != nil {
		return nil, err
	}
	return games, nil
}

func (g *gameDatabase) InsertOne(ctx context.Context, game models.Game) (InsertOneResultHelper, error) {
	res, err := g.db.Collection(gameName).InsertOne(ctx, game)
	return res, err
}

func (g *gameDatabase) UpdateOne(ctx context.Context, filter interface{}, update interface{}, opts ...*options.UpdateOptions) (*mongo.UpdateResult, error) {
	res, err := g.db.Collection(gameName).UpdateOne(ctx, filter, update, opts...)
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (g *gameDatabase) FindOneAndUpdate(ctx context.Context, filter interface{}, update interface{}) (*models.Game, error) {
	after := options.After
	opts := &options.FindOneAndUpdateOptions{ReturnDocument: &after}
	game := &models.Game{}
	err := g.db.Collection(gameName).FindOneAndUpdate(ctx, filter, update, opts).Decode(game)
	if err != nil {
		return nil, err
	}
	return game, nil
}
