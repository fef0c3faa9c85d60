package hub

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/hydroaid/hydroaid-backend/internal/metrics"
	"github.com/redis/go-redis/v9"
)

const roomChannelPrefix = "rooms:" // Pub/Sub channel per room: rooms:{room}

// RedisBus publishes room events through Redis Pub/Sub so that every
// process delivers to the connections it holds locally.
type RedisBus struct {
	client *redis.Client
	local  *Registry
}

func NewRedisBus(client *redis.Client, local *Registry) *RedisBus {
	return &RedisBus{client: client, local: local}
}

func (b *RedisBus) Publish(ctx context.Context, room, event string, payload json.RawMessage) error {
	data, err := json.Marshal(Event{Room: room, Name: event, Payload: payload})
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	metrics.Publishes.WithLabelValues(event).Inc()
	receivers, err := b.client.Publish(ctx, roomChannel(room), data).Result()
	if err != nil {
		return fmt.Errorf("redis publish: %w", err)
	}
	if receivers == 0 {
		return ErrNoRecipients
	}
	return nil
}

// Start subscribes to every room channel and returns once the subscription
// is confirmed. Messages are delivered to the local registry until ctx ends.
func (b *RedisBus) Start(ctx context.Context) error {
	sub := b.client.PSubscribe(ctx, roomChannelPrefix+"*")
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("redis psubscribe: %w", err)
	}

	go func() {
		defer sub.Close()
		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var ev Event
				if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
					log.Printf("[warn] operation=redis_bus channel=%s error=%v", msg.Channel, err)
					continue
				}
				if ev.Room == "" {
					ev.Room = strings.TrimPrefix(msg.Channel, roomChannelPrefix)
				}
				b.local.Deliver(ev)
			}
		}
	}()
	return nil
}

func roomChannel(room string) string {
	return roomChannelPrefix + room
}

// Ping reports whether the redis server is reachable.
func (b *RedisBus) Ping(ctx context.Context) error {
	return b.client.Ping(ctx).Err()
}
