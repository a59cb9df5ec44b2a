package models

import "time"

// Message holds the structure for the message collection in mongo. The Ts
// column is the authoritative transcript order, not network arrival order.
type Message struct {
	ID        string    `json:"_id" bson:"_id"`
	GameID    string    `json:"gameId" bson:"gameId"`
	Sender    Role      `json:"sender" bson:"sender"`
	Recipient Role      `json:"recipient" bson:"recipient"`
	Body      string    `json:"body" bson:"body"`
	Ts        time.Time `json:"ts" bson:"ts"`
}
