package models

import "time"

// GameStatus is the lifecycle state of a game
type GameStatus string

// Game lifecycle states. ENDED is terminal: no status transition or guess is
// accepted once a game reaches it.
const (
	GameStatusChat    GameStatus = "CHAT"
	GameStatusJudging GameStatus = "JUDGING"
	GameStatusEnded   GameStatus = "ENDED"
)

// Role identifies a chat participant within a game
type Role string

// Chat participant roles, also used as the channel name segments
const (
	RoleInterrogator Role = "I"
	RoleAI           Role = "A"
	RoleHumanWitness Role = "H"
)

// Valid reports whether r is one of the three known roles
func (r Role) Valid() bool {
	return r == RoleInterrogator || r == RoleAI || r == RoleHumanWitness
}

// Game holds the structure for the game collection in mongo
type Game struct {
	ID             string     `json:"_id" bson:"_id"`
	InterrogatorID string     `json:"interrogatorId" bson:"interrogatorId"`
	WitnessHumanID string     `json:"witnessHumanId" bson:"witnessHumanId"`
	WitnessAIID    string     `json:"witnessAiId" bson:"witnessAiId"`
	Status         GameStatus `json:"status" bson:"status"`
	StartedAt      time.Time  `json:"startedAt" bson:"startedAt"`
	EndedAt        *time.Time `json:"endedAt" bson:"endedAt"`
	Success        *bool      `json:"success" bson:"success"`
}
