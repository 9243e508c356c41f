package docstore

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"poojaconstructions/api/internal/util"
)

const invalidationChannel = "docstore:invalidate"

// Invalidator broadcasts collection writes over a redis channel so peer
// instances drop their cached copy instead of serving stale data for the
// rest of the freshness window.
type Invalidator struct {
	client   *redis.Client
	instance string
}

func NewInvalidator(redisURL string) (*Invalidator, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return &Invalidator{client: client, instance: util.NewID("node")}, nil
}

// NewInvalidatorWithClient wraps an existing redis client.
func NewInvalidatorWithClient(client *redis.Client) *Invalidator {
	return &Invalidator{client: client, instance: util.NewID("node")}
}

// Publish announces that a collection was rewritten by this instance.
func (i *Invalidator) Publish(ctx context.Context, key string) error {
	payload := i.instance + "|" + key
	return i.client.Publish(ctx, invalidationChannel, payload).Err()
}

// Listen drops cache entries announced by other instances. It returns after
// starting the subscriber; the subscription ends when ctx is cancelled.
func (i *Invalidator) Listen(ctx context.Context, drop func(key string)) {
	sub := i.client.Subscribe(ctx, invalidationChannel)
	go func() {
		defer sub.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-sub.Channel():
				if !ok {
					return
				}
				instance, key, found := strings.Cut(msg.Payload, "|")
				if !found || key == "" {
					log.Printf("docstore: malformed invalidation %q", msg.Payload)
					continue
				}
				if instance == i.instance {
					continue
				}
				drop(key)
			}
		}
	}()
}

// Close releases the redis connection.
func (i *Invalidator) Close() error {
	return i.client.Close()
}
