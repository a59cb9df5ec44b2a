package matchmaker

import (
	"sort"
	"time"
)

// QueueModeRating orders the queue by enqueue time biased with the player's
// rating so players of similar strength tend to surface next to each other.
// Any other mode value means plain first-in first-out.
const QueueModeRating = "rating"

type entry struct {
	userID     string
	rating     int
	enqueuedAt time.Time
}

// key is the ordering position of an entry in rating mode. A rating point
// spread of 25 counts the same as one second of waiting, so long waits still
// win out over rating proximity.
func (e entry) key() int64 {
	return e.enqueuedAt.Unix() + int64(e.rating/25)
}

// queue is not safe for concurrent use; the matchmaker serialises access
// under its own lock
type queue struct {
	mode    string
	entries []entry
}

func newQueue(mode string) *queue {
	return &queue{mode: mode}
}

func (q *queue) len() int {
	return len(q.entries)
}

func (q *queue) contains(userID string) bool {
	for _, e := range q.entries {
		if e.userID == userID {
			return true
		}
	}
	return false
}

func (q *queue) push(userID string, rating int) {
	q.entries = append(q.entries, entry{userID: userID, rating: rating, enqueuedAt: time.Now().UTC()})
}

// pushFront reinstates a player at the head of the queue, used when a pending
// match dissolved through no fault of theirs
func (q *queue) pushFront(userID string, rating int) {
	e := entry{userID: userID, rating: rating, enqueuedAt: time.Now().UTC().Add(-time.Hour)}
	q.entries = append([]entry{e}, q.entries...)
}

func (q *queue) remove(userID string) bool {
	for i, e := range q.entries {
		if e.userID == userID {
			q.entries = append(q.entries[:i], q.entries[i+1:]...)
			return true
		}
	}
	return false
}

// popPair removes and returns the next two players to be matched
func (q *queue) popPair() (entry, entry, bool) {
	if len(q.entries) < 2 {
		return entry{}, entry{}, false
	}
	if q.mode == QueueModeRating {
		sort.SliceStable(q.entries, func(i, j int) bool {
			return q.entries[i].key() < q.entries[j].key()
		})
	}
	a, b := q.entries[0], q.entries[1]
	q.entries = q.entries[2:]
	return a, b, true
}
