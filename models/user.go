package models

import "time"

// DefaultElo is the rating assigned to newly created users and to the AI
// witness when scoring against it.
const DefaultElo = 1000

// User holds the structure for the user collection in mongo
type User struct {
	ID           string    `json:"_id" bson:"_id"`
	Email        string    `json:"email" bson:"email"`
	DisplayName  string    `json:"displayName" bson:"displayName"`
	PasswordHash string    `json:"-" bson:"passwordHash"`
	Elo          int       `json:"elo" bson:"elo"`
	CreatedAt    time.Time `json:"createdAt" bson:"createdAt"`
}
