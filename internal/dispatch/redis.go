package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"reelvault/internal/archive"
	"reelvault/internal/config"
	"reelvault/internal/services"
)

const (
	keyPrefix   = "reelvault:dispatch:"
	receivePoll = 5 * time.Second
)

// RedisQueue dispatches hints through Redis lists, one list per stage.
type RedisQueue struct {
	client *redis.Client
}

// NewRedisQueue connects to Redis and verifies the connection.
func NewRedisQueue(ctx context.Context, cfg config.Redis) (*RedisQueue, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, services.Wrap(services.ErrUnavailable, "", "redis_connect",
			fmt.Sprintf("connect to redis at %s", cfg.Addr), err)
	}

	return &RedisQueue{client: client}, nil
}

func stageKey(stage archive.Stage) string {
	return keyPrefix + string(stage)
}

// Publish pushes a hint onto the stage's list. Delivery is best effort.
func (q *RedisQueue) Publish(ctx context.Context, msg Message) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal dispatch message: %w", err)
	}
	if err := q.client.LPush(ctx, stageKey(msg.Stage), payload).Err(); err != nil {
		return services.Wrap(services.ErrTransient, string(msg.Stage), "publish",
			"push dispatch message", err)
	}
	return nil
}

// Receive blocks on the stage's list until a message arrives or the context
// ends. Malformed payloads are skipped; the store never trusted them anyway.
func (q *RedisQueue) Receive(ctx context.Context, stage archive.Stage) (Message, error) {
	key := stageKey(stage)
	for {
		if err := ctx.Err(); err != nil {
			return Message{}, err
		}
		res, err := q.client.BRPop(ctx, receivePoll, key).Result()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				return Message{}, ctx.Err()
			}
			return Message{}, services.Wrap(services.ErrTransient, string(stage), "receive",
				"pop dispatch message", err)
		}
		if len(res) != 2 {
			continue
		}
		var msg Message
		if err := json.Unmarshal([]byte(res[1]), &msg); err != nil {
			continue
		}
		return msg, nil
	}
}

// Close releases the Redis connection.
func (q *RedisQueue) Close() error {
	return q.client.Close()
}
