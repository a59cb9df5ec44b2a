package broker

import (
	"fmt"

	"github.com/turingroom/turing-room-api/models"
)

// Broker is the publish/subscribe fabric the room relays coordinate through.
// Payloads published to one channel are delivered to its subscribers in
// publish order.
type Broker interface {
	Publish(channel string, payload []byte) error
	Subscribe(channels ...string) (*Subscription, error)
}

// Subscription drains payloads from one or more channels. Close stops
// delivery and releases the underlying connection; C is closed afterwards.
type Subscription struct {
	C <-chan []byte

	close func() error
}

// Close terminates the subscription
func (s *Subscription) Close() error {
	return s.close()
}

// Channel derives the directional channel name for a game from the sender and
// recipient roles, e.g. room:<gameID>:I_A
func Channel(gameID string, sender, recipient models.Role) string {
	return fmt.Sprintf("room:%s:%s_%s", gameID, sender, recipient)
}

// GameChannels lists all four directional channels of a game, used for
// room-state notices that every connected relay should see
func GameChannels(gameID string) []string {
	return []string{
		Channel(gameID, models.RoleInterrogator, models.RoleAI),
		Channel(gameID, models.RoleAI, models.RoleInterrogator),
		Channel(gameID, models.RoleInterrogator, models.RoleHumanWitness),
		Channel(gameID, models.RoleHumanWitness, models.RoleInterrogator),
	}
}

// NoticeChannels returns the smallest channel set that reaches every role
// exactly once under the ChannelsForRole subscription map
func NoticeChannels(gameID string) []string {
	return []string{
		Channel(gameID, models.RoleAI, models.RoleInterrogator),
		Channel(gameID, models.RoleInterrogator, models.RoleAI),
		Channel(gameID, models.RoleInterrogator, models.RoleHumanWitness),
	}
}

// ChannelsForRole returns the channels a connection with the given role
// should subscribe to. The interrogator hears both witnesses; each witness
// hears only the interrogator.
func ChannelsForRole(gameID string, role models.Role) []string {
	switch role {
	case models.RoleInterrogator:
		return []string{
			Channel(gameID, models.RoleAI, models.RoleInterrogator),
			Channel(gameID, models.RoleHumanWitness, models.RoleInterrogator),
		}
	case models.RoleAI:
		return []string{Channel(gameID, models.RoleInterrogator, models.RoleAI)}
	default:
		return []string{Channel(gameID, models.RoleInterrogator, models.RoleHumanWitness)}
	}
}
