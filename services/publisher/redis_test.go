package publisher

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// This test requires a running Redis instance
// If Redis is not available, the test will be skipped
func TestRedisPublisher(t *testing.T) {
	ctx := context.Background()
	stream := "shopbot_test_stream"

	client := redis.NewClient(&redis.Options{Addr: "localhost:6379", DB: 0})
	defer client.Close()
	if _, err := client.Ping(ctx).Result(); err != nil {
		t.Skip("Redis is not available, skipping test")
	}
	client.Del(ctx, stream)

	p := NewRedisPublisher("localhost:6379", 0, stream, 10)
	defer p.Close()

	require.NoError(t, p.PublishCollage(ctx, Post{
		Caption: "shop",
		Files:   []File{{Name: "shop-collage.png", Data: []byte("test_message")}},
	}))
	require.NoError(t, p.PublishPromo(ctx, Promo{Title: "Jixx's Market"}))

	ctx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	messages, err := client.XRange(ctx, stream, "-", "+").Result()
	require.NoError(t, err)
	require.Len(t, messages, 2)

	assert.Equal(t, "collage", messages[0].Values["kind"])
	assert.Equal(t, base64.StdEncoding.EncodeToString([]byte("test_message")), messages[0].Values["file:shop-collage.png"])

	var promo Promo
	require.NoError(t, json.Unmarshal([]byte(messages[1].Values["promo"].(string)), &promo))
	assert.Equal(t, "Jixx's Market", promo.Title)
}
