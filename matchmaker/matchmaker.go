package matchmaker

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/turingroom/turing-room-api/models"
)

// Join errors surfaced to the websocket layer
var (
	ErrAlreadyQueued = errors.New("user is already in the queue")
	ErrBusy          = errors.New("user is in a pending match or an active game")
	ErrNotConnected  = errors.New("user has no matchmaking connection")
)

// Notifier delivers frames to one connected player. *websocket.Conn satisfies
// it through WriteJSON and Close.
type Notifier interface {
	Send(v interface{}) error
	Close() error
}

// GameStarter creates a game once both sides of a pending match confirmed
type GameStarter interface {
	CreateAndStart(ctx context.Context, interrogatorID, humanWitnessID string) (*models.Game, error)
}

// pendingMatch is a proposed pairing awaiting confirmation from both sides.
// done flips exactly once, under the matchmaker lock, whether the match
// finalises, times out or dissolves, so the outcomes cannot interleave.
type pendingMatch struct {
	id       string
	users    [2]string
	roles    map[string]models.Role
	ratings  map[string]int
	accepted map[string]bool
	timer    *time.Timer
	done     bool
}

func (pm *pendingMatch) other(userID string) string {
	if pm.users[0] == userID {
		return pm.users[1]
	}
	return pm.users[0]
}

// Matchmaker owns the waiting queue and the three per-user registries:
// connected players, pending matches and users inside an active game. All
// state changes happen under one mutex; game creation runs outside it.
type Matchmaker struct {
	Starter       GameStarter
	ConfirmWindow time.Duration

	mu      sync.Mutex
	queue   *queue
	players map[string]Notifier
	pending map[string]*pendingMatch
	active  map[string]struct{}
	rnd     *rand.Rand
}

// New builds a matchmaker; queueMode selects the queue ordering policy
func New(starter GameStarter, confirmWindow time.Duration, queueMode string) *Matchmaker {
	return &Matchmaker{
		Starter:       starter,
		ConfirmWindow: confirmWindow,
		queue:         newQueue(queueMode),
		players:       make(map[string]Notifier),
		pending:       make(map[string]*pendingMatch),
		active:        make(map[string]struct{}),
		rnd:           rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Run drives the pairing loop until ctx is cancelled
func (m *Matchmaker) Run(ctx context.Context) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			zap.S().Info("matchmaker stopped")
			return
		case <-ticker.C:
			m.Pair()
		}
	}
}

// Register attaches a player's matchmaking connection
func (m *Matchmaker) Register(userID string, n Notifier) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.players[userID] = n
}

// Unregister drops a player's connection and whatever matchmaking state they
// held. A disconnect inside a pending match counts as a decline: the other
// side goes back to the head of the queue. Active game membership survives a
// dropped matchmaking socket.
func (m *Matchmaker) Unregister(userID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.players, userID)
	m.queue.remove(userID)
	m.dissolveLocked(userID)
}

// Join puts a connected player into the waiting queue
func (m *Matchmaker) Join(userID string, rating int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.players[userID]; !ok {
		return ErrNotConnected
	}
	if m.queue.contains(userID) {
		return ErrAlreadyQueued
	}
	if _, ok := m.pending[userID]; ok {
		return ErrBusy
	}
	if _, ok := m.active[userID]; ok {
		return ErrBusy
	}
	m.queue.push(userID, rating)
	zap.S().Infow("user joined queue", "userId", userID, "queued", m.queue.len())
	return nil
}

// Leave removes a player from the waiting queue; it does not touch a pending
// match they may have already been offered
func (m *Matchmaker) Leave(userID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queue.remove(userID)
}

// Pair drains the queue two at a time, offering a pending match to each pair
func (m *Matchmaker) Pair() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for m.queue.len() >= 2 {
		a, b, _ := m.queue.popPair()
		m.offerLocked(a, b)
	}
}

// offerLocked proposes a match between two queued players, flipping a coin
// for who interrogates
func (m *Matchmaker) offerLocked(a, b entry) {
	interrogator, witness := a, b
	if m.rnd.Intn(2) == 0 {
		interrogator, witness = b, a
	}

	pm := &pendingMatch{
		id:    uuid.NewString(),
		users: [2]string{a.userID, b.userID},
		roles: map[string]models.Role{
			interrogator.userID: models.RoleInterrogator,
			witness.userID:      models.RoleHumanWitness,
		},
		ratings:  map[string]int{a.userID: a.rating, b.userID: b.rating},
		accepted: make(map[string]bool),
	}
	m.pending[a.userID] = pm
	m.pending[b.userID] = pm

	window := int(m.ConfirmWindow.Seconds())
	for _, u := range pm.users {
		if err := m.sendLocked(u, models.MatchFound{
			Action:  "match_found",
			MatchID: pm.id,
			Role:    pm.roles[u],
			Window:  window,
		}); err != nil {
			zap.S().Warnw("match offer undeliverable", "userId", u, "error", err)
			m.dissolveLocked(u)
			return
		}
	}

	pm.timer = time.AfterFunc(m.ConfirmWindow, func() { m.expire(pm) })
	zap.S().Infow("match offered", "matchId", pm.id, "interrogator", interrogator.userID, "witness", witness.userID)
}

// Accept records a player's confirmation; once both sides confirmed the game
// is created and both are told where to go
func (m *Matchmaker) Accept(userID string) {
	m.mu.Lock()
	pm, ok := m.pending[userID]
	if !ok || pm.done {
		m.mu.Unlock()
		return
	}
	pm.accepted[userID] = true
	if !pm.accepted[pm.other(userID)] {
		m.mu.Unlock()
		return
	}

	pm.done = true
	pm.timer.Stop()
	var interrogator, witness string
	for u, r := range pm.roles {
		delete(m.pending, u)
		m.active[u] = struct{}{}
		if r == models.RoleInterrogator {
			interrogator = u
		} else {
			witness = u
		}
	}
	m.mu.Unlock()

	m.startGame(pm, interrogator, witness)
}

// Decline dissolves a pending match and drops the decliner's connection; the
// player who did not decline goes back to the head of the queue
func (m *Matchmaker) Decline(userID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	pm, ok := m.pending[userID]
	if !ok || pm.done {
		return
	}
	m.dissolveLocked(userID)
	if n, ok := m.players[userID]; ok {
		_ = n.Close()
	}
}

// Release frees users whose game ended so they may queue again. It satisfies
// the game service's release hook.
func (m *Matchmaker) Release(userIDs ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range userIDs {
		delete(m.active, u)
	}
}

// IsActive reports whether a user is currently inside a game
func (m *Matchmaker) IsActive(userID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.active[userID]
	return ok
}

// startGame runs outside the lock; a failed creation sends both players back
// to the head of the queue
func (m *Matchmaker) startGame(pm *pendingMatch, interrogator, witness string) {
	game, err := m.Starter.CreateAndStart(context.Background(), interrogator, witness)

	m.mu.Lock()
	defer m.mu.Unlock()

	if err != nil {
		zap.S().Errorw("game creation failed, requeueing pair", "matchId", pm.id, "error", err)
		for _, u := range pm.users {
			delete(m.active, u)
			m.queue.pushFront(u, pm.ratings[u])
			_ = m.sendLocked(u, models.Requeue{Action: "requeue"})
		}
		return
	}

	for _, u := range pm.users {
		_ = m.sendLocked(u, models.GameStarting{
			Action: "game_starting",
			GameID: game.ID,
			Detail: "both players confirmed",
		})
		if err := m.sendLocked(u, models.Matched{Action: "matched", GameID: game.ID}); err != nil {
			zap.S().Warnw("matched notice undeliverable", "userId", u, "gameId", game.ID, "error", err)
		}
	}
	zap.S().Infow("match finalised", "matchId", pm.id, "gameId", game.ID)
}

// expire is the confirmation window callback. Players who had accepted are
// requeued at the front; players who never answered are notified and
// disconnected, and must reconnect to queue again.
func (m *Matchmaker) expire(pm *pendingMatch) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if pm.done {
		return
	}
	pm.done = true
	for _, u := range pm.users {
		delete(m.pending, u)
		if pm.accepted[u] {
			m.queue.pushFront(u, pm.ratings[u])
			_ = m.sendLocked(u, models.Requeue{Action: "requeue"})
		} else {
			_ = m.sendLocked(u, models.MatchTimeout{
				Action: "match_timeout",
				Detail: "confirmation window elapsed",
			})
			if n, ok := m.players[u]; ok {
				_ = n.Close()
			}
		}
	}
	zap.S().Infow("match offer expired", "matchId", pm.id)
}

// dissolveLocked tears down userID's pending match, if any, treating userID
// as the party at fault. The other player is requeued at the front.
func (m *Matchmaker) dissolveLocked(userID string) {
	pm, ok := m.pending[userID]
	if !ok || pm.done {
		return
	}
	pm.done = true
	if pm.timer != nil {
		pm.timer.Stop()
	}
	for _, u := range pm.users {
		delete(m.pending, u)
		if u == userID {
			continue
		}
		m.queue.pushFront(u, pm.ratings[u])
		_ = m.sendLocked(u, models.Requeue{Action: "requeue"})
	}
	zap.S().Infow("match dissolved", "matchId", pm.id, "by", userID)
}

func (m *Matchmaker) sendLocked(userID string, v interface{}) error {
	n, ok := m.players[userID]
	if !ok {
		return ErrNotConnected
	}
	return n.Send(v)
}
