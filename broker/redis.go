package broker

import (
	"time"

	"github.com/gomodule/redigo/redis"
	"go.uber.org/zap"
)

// Redis is the redis pub/sub backed broker used in production
type Redis struct {
	pool *redis.Pool
}

// NewRedis builds a broker on top of a redis connection pool for the given URL
func NewRedis(url string) *Redis {
	return &Redis{
		pool: &redis.Pool{
			MaxIdle:     10,
			IdleTimeout: 240 * time.Second,
			Dial: func() (redis.Conn, error) {
				return redis.DialURL(url)
			},
		},
	}
}

// Publish sends payload to every subscriber of channel
func (r *Redis) Publish(channel string, payload []byte) error {
	conn := r.pool.Get()
	defer conn.Close()

	_, err := conn.Do("PUBLISH", channel, payload)
	return err
}

// Subscribe opens a dedicated connection subscribed to the given channels and
// starts draining it into the returned Subscription
func (r *Redis) Subscribe(channels ...string) (*Subscription, error) {
	psc := redis.PubSubConn{Conn: r.pool.Get()}

	args := make([]interface{}, len(channels))
	for i, ch := range channels {
		args[i] = ch
	}
	if err := psc.Subscribe(args...); err != nil {
		psc.Close()
		return nil, err
	}

	out := make(chan []byte, 32)
	done := make(chan struct{})

	go func() {
		defer close(out)
		for {
			switch v := psc.Receive().(type) {
			case redis.Message:
				select {
				case out <- v.Data:
				case <-done:
					return
				}
			case error:
				select {
				case <-done:
				default:
					zap.S().Debugw("redis subscription closed", "error", v)
				}
				return
			}
		}
	}()

	return &Subscription{
		C: out,
		close: func() error {
			close(done)
			psc.Unsubscribe()
			return psc.Close()
		},
	}, nil
}
