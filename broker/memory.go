package broker

import "sync"

// Memory is an in-process broker with the same ordering guarantee as the
// redis one. Used by tests and single-node development setups.
type Memory struct {
	mu   sync.Mutex
	subs map[string][]*memorySub
}

type memorySub struct {
	ch   chan []byte
	once sync.Once
}

// NewMemory creates an empty in-process broker
func NewMemory() *Memory {
	return &Memory{subs: make(map[string][]*memorySub)}
}

// Publish delivers payload to every live subscriber of channel in order.
// Subscribers that have fallen too far behind have their oldest payload
// dropped rather than blocking the publisher.
func (m *Memory) Publish(channel string, payload []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, sub := range m.subs[channel] {
		select {
		case sub.ch <- payload:
		default:
			select {
			case <-sub.ch:
			default:
			}
			sub.ch <- payload
		}
	}
	return nil
}

// Subscribe registers a subscriber on each of the given channels
func (m *Memory) Subscribe(channels ...string) (*Subscription, error) {
	sub := &memorySub{ch: make(chan []byte, 32)}

	m.mu.Lock()
	for _, c := range channels {
		m.subs[c] = append(m.subs[c], sub)
	}
	m.mu.Unlock()

	return &Subscription{
		C: sub.ch,
		close: func() error {
			m.mu.Lock()
			for _, c := range channels {
				list := m.subs[c]
				for i, s := range list {
					if s == sub {
						m.subs[c] = append(list[:i], list[i+1:]...)
						break
					}
				}
			}
			m.mu.Unlock()
			sub.once.Do(func() { close(sub.ch) })
			return nil
		},
	}, nil
}
