package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// statusMessage is the JSON document published on the redis channel.
type statusMessage struct {
	JobID          string  `json:"jobId,omitempty"`
	Status         Kind    `json:"status"`
	Error          string  `json:"error,omitempty"`
	Frames         int     `json:"frames,omitempty"`
	ElapsedSeconds float64 `json:"elapsedSeconds,omitempty"`
	Timestamp      string  `json:"timestamp"`
}

type redisPublisher struct {
	client  *redis.Client
	channel string
}

func newRedisPublisher(addr, channel string, timeout time.Duration) *redisPublisher {
	return &redisPublisher{
		client: redis.NewClient(&redis.Options{
			Addr:         addr,
			DialTimeout:  timeout,
			ReadTimeout:  timeout,
			WriteTimeout: timeout,
			MaxRetries:   1,
		}),
		channel: channel,
	}
}

func encodeStatus(event Event) ([]byte, error) {
	msg := statusMessage{
		JobID:     event.JobID,
		Status:    event.Kind,
		Error:     event.Message,
		Frames:    event.Frames,
		Timestamp: event.At.Format(time.RFC3339),
	}
	if event.Kind == KindCompleted {
		msg.ElapsedSeconds = event.Elapsed.Round(time.Millisecond).Seconds()
	}
	return json.Marshal(msg)
}

func (r *redisPublisher) send(ctx context.Context, event Event) error {
	body, err := encodeStatus(event)
	if err != nil {
		return fmt.Errorf("encode redis status: %w", err)
	}
	if err := r.client.Publish(ctx, r.channel, body).Err(); err != nil {
		return fmt.Errorf("publish redis status: %w", err)
	}
	return nil
}

func (r *redisPublisher) close() error {
	return r.client.Close()
}
