package publisher

import (
	"context"
	"encoding/base64"
	"encoding/json"

	"github.com/redis/go-redis/v9"

	shoperrors "sjsage522/shopcollagebot/pkg/errors"
)

// RedisPublisher mirrors every post into a Redis stream for downstream consumers
type RedisPublisher struct {
	client          *redis.Client
	stream          string
	streamMaxLength int64
}

// Ensure RedisPublisher implements Publisher
var _ Publisher = (*RedisPublisher)(nil)

// NewRedisPublisher creates a new Redis stream publisher
func NewRedisPublisher(addr string, db int, stream string, streamMaxLength int) *RedisPublisher {
	client := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   db,
	})

	return &RedisPublisher{
		client:          client,
		stream:          stream,
		streamMaxLength: int64(streamMaxLength),
	}
}

// PublishCollage adds the post to the stream. Attachments are base64 encoded
// under "file:<name>" fields.
func (p *RedisPublisher) PublishCollage(ctx context.Context, post Post) error {
	values := map[string]interface{}{
		"kind":    "collage",
		"caption": post.Caption,
	}
	for _, f := range post.Files {
		values["file:"+f.Name] = base64.StdEncoding.EncodeToString(f.Data)
	}
	return p.add(ctx, values)
}

// PublishPromo adds the promo to the stream as JSON
func (p *RedisPublisher) PublishPromo(ctx context.Context, promo Promo) error {
	data, err := json.Marshal(promo)
	if err != nil {
		return shoperrors.NewDelivery("redis", "cannot encode promo", err)
	}
	return p.add(ctx, map[string]interface{}{
		"kind":  "promo",
		"promo": string(data),
	})
}

// add appends to the stream, trimming it to roughly the configured length
func (p *RedisPublisher) add(ctx context.Context, values map[string]interface{}) error {
	err := p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		MaxLen: p.streamMaxLength,
		Approx: true,
		Values: values,
	}).Err()
	if err != nil {
		return shoperrors.NewDelivery("redis", "cannot add to stream "+p.stream, err)
	}
	return nil
}

// Close closes the Redis connection
func (p *RedisPublisher) Close() error {
	return p.client.Close()
}
