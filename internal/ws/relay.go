package ws

import (
	"encoding/json"

	"github.com/go-redis/redis"

	"github.com/sujalbistaa/whisperwall/internal/log"
)

// Relay carries frames between hubs running on different instances.
type Relay interface {
	Publish(env envelope) error
	// Subscribe feeds every relayed frame to fn until done is closed.
	Subscribe(done <-chan struct{}, fn func(envelope)) error
}

const relayChannel = "whisperwall:ws"

// RedisRelay fans frames out over a Redis pub/sub channel.
type RedisRelay struct {
	client  *redis.Client
	channel string
}

// NewRedisRelay connects to url (redis://[:password@]host:port/db).
func NewRedisRelay(url string) (*RedisRelay, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	client := redis.NewClient(opts)
	if err := client.Ping().Err(); err != nil {
		client.Close()
		return nil, err
	}
	return &RedisRelay{client: client, channel: relayChannel}, nil
}

func (r *RedisRelay) Publish(env envelope) error {
	b, err := json.Marshal(env)
	if err != nil {
		return err
	}
	return r.client.Publish(r.channel, b).Err()
}

func (r *RedisRelay) Subscribe(done <-chan struct{}, fn func(envelope)) error {
	sub := r.client.Subscribe(r.channel)
	defer sub.Close()
	if _, err := sub.Receive(); err != nil {
		return err
	}

	msgs := sub.Channel()
	for {
		select {
		case <-done:
			return nil
		case m, ok := <-msgs:
			if !ok {
				return nil
			}
			var env envelope
			if err := json.Unmarshal([]byte(m.Payload), &env); err != nil {
				log.Warn.Printf("dropping malformed relay frame: %v", err)
				continue
			}
			fn(env)
		}
	}
}

func (r *RedisRelay) Close() error {
	return r.client.Close()
}
