package messaging

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConsumerDefaults(t *testing.T) {
	c := NewConsumer(nil, ConsumerConfig{
		Stream: StreamAppScreenshot,
		Group:  ConsumerGroupScreenshotWorker,
	})

	assert.Equal(t, 5*time.Second, c.blockTimeout)
	assert.Equal(t, 30*time.Second, c.claimInterval)
	assert.Equal(t, 3, c.retryLimit)
	assert.Equal(t, DefaultBackoffConfig(), c.backoff)
	// 接管阈值不低于最大退避的两倍，避免抢走还在退避中的消息
	assert.Equal(t, 5*time.Minute, c.reclaimIdle)

	c = NewConsumer(nil, ConsumerConfig{
		Stream:  StreamAppScreenshot,
		Group:   ConsumerGroupScreenshotWorker,
		Backoff: BackoffConfig{Initial: time.Second, Max: 10 * time.Minute, Multiplier: 2},
	})
	assert.Equal(t, 20*time.Minute, c.reclaimIdle)
}

func TestDecodeRejectsMalformedPayload(t *testing.T) {
	c := NewConsumer(nil, ConsumerConfig{Stream: StreamAppScreenshot, Group: ConsumerGroupScreenshotWorker})
	ctx := context.Background()

	_, ok := c.decode(ctx, redis.XMessage{ID: "1-0", Values: map[string]interface{}{}})
	assert.False(t, ok)

	_, ok = c.decode(ctx, redis.XMessage{ID: "1-1", Values: map[string]interface{}{"data": "{bad json"}})
	assert.False(t, ok)

	msg, err := NewMessage("a1", MsgTypeScreenshot, "a1", "u1", nil)
	require.NoError(t, err)
	data, err := json.Marshal(msg)
	require.NoError(t, err)
	got, ok := c.decode(ctx, redis.XMessage{ID: "1-2", Values: map[string]interface{}{"data": string(data)}})
	require.True(t, ok)
	assert.Equal(t, "a1", got.AppID)
	assert.Equal(t, MsgTypeScreenshot, got.Type)
}
