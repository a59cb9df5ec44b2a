package models

// Frames exchanged over the matchmaking and room websockets. Every frame
// carries an "action" discriminator so clients can switch on it.

// MatchFound invites a queued player to confirm a pairing
type MatchFound struct {
	Action  string `json:"action"`
	MatchID string `json:"match_id"`
	Role    Role   `json:"role"`
	Window  int    `json:"window"`
}

// Matched tells a confirmed player which game to join
type Matched struct {
	Action string `json:"action"`
	GameID string `json:"game_id"`
}

// GameStarting precedes Matched so the client can show a transition screen
type GameStarting struct {
	Action string `json:"action"`
	GameID string `json:"game_id"`
	Detail string `json:"detail"`
}

// Requeue tells a player their pending match dissolved and they are back in
// the queue
type Requeue struct {
	Action string `json:"action"`
}

// MatchTimeout tells a player the confirmation window elapsed
type MatchTimeout struct {
	Action string `json:"action"`
	Detail string `json:"detail"`
}

// ChatEnded is published once per role when a game moves to the judging phase
type ChatEnded struct {
	Action string `json:"action"`
	Detail string `json:"detail"`
}

// GuessResult answers an interrogator's guess
type GuessResult struct {
	Action  string `json:"action"`
	Correct bool   `json:"is_correct"`
}

// ErrorFrame is sent for recoverable protocol errors; the connection stays
// open after one
type ErrorFrame struct {
	Error string `json:"error"`
}

// ChatPacket is the wire form of a relayed chat message
type ChatPacket struct {
	Action    string `json:"action"`
	Sender    Role   `json:"sender"`
	Recipient Role   `json:"recipient"`
	Body      string `json:"body"`
	Ts        string `json:"ts,omitempty"`
}

// GuessPacket is the inbound guess frame on a room socket
type GuessPacket struct {
	Action         string `json:"action"`
	SuspectAIID    string `json:"suspect_ai_id"`
	SuspectHumanID string `json:"suspect_human_id"`
	InterrogatorID string `json:"interrogator_id"`
}
