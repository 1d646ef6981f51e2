package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"ai-code-generate-api/pkg/logger"
	"ai-code-generate-api/pkg/metrics"
)

// MessageHandler 消息处理函数
type MessageHandler func(ctx context.Context, msg *Message) error

// Consumer 基于 Redis Streams 消费者组的异步任务消费者。
// 截图等任务处理失败后留在 pending，按退避间隔重投，
// 超过重试上限移入死信流；其它消费者的僵死消息定期抢占接管。
type Consumer struct {
	client        *redis.Client
	stream        Stream
	group         ConsumerGroup
	consumerName  string
	blockTimeout  time.Duration
	claimInterval time.Duration
	reclaimIdle   time.Duration
	retryLimit    int
	backoff       BackoffConfig

	handlers map[string]MessageHandler
	mu       sync.RWMutex
	running  bool
	stopCh   chan struct{}
}

// ConsumerConfig 消费者配置
type ConsumerConfig struct {
	Stream        Stream
	Group         ConsumerGroup
	ConsumerName  string
	BlockTimeout  time.Duration
	ClaimInterval time.Duration
	RetryLimit    int
	Backoff       BackoffConfig
}

// NewConsumer 创建消费者
func NewConsumer(client *redis.Client, cfg ConsumerConfig) *Consumer {
	if cfg.BlockTimeout <= 0 {
		cfg.BlockTimeout = 5 * time.Second
	}
	if cfg.ClaimInterval <= 0 {
		cfg.ClaimInterval = 30 * time.Second
	}
	if cfg.RetryLimit <= 0 {
		cfg.RetryLimit = 3
	}
	if cfg.Backoff.Initial <= 0 {
		cfg.Backoff = DefaultBackoffConfig()
	}

	reclaimIdle := 5 * time.Minute
	if d := cfg.Backoff.Max * 2; d > reclaimIdle {
		reclaimIdle = d
	}

	return &Consumer{
		client:        client,
		stream:        cfg.Stream,
		group:         cfg.Group,
		consumerName:  cfg.ConsumerName,
		blockTimeout:  cfg.BlockTimeout,
		claimInterval: cfg.ClaimInterval,
		reclaimIdle:   reclaimIdle,
		retryLimit:    cfg.RetryLimit,
		backoff:       cfg.Backoff,
		handlers:      make(map[string]MessageHandler),
		stopCh:        make(chan struct{}),
	}
}

// RegisterHandler 按消息类型注册处理器
func (c *Consumer) RegisterHandler(msgType string, handler MessageHandler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers[msgType] = handler
}

// Start 创建消费者组（幂等）并启动消费循环
func (c *Consumer) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return fmt.Errorf("consumer already running")
	}
	c.running = true
	c.mu.Unlock()

	err := c.client.XGroupCreateMkStream(ctx, string(c.stream), string(c.group), "0").Err()
	if err != nil && err.Error() != "BUSYGROUP Consumer Group name already exists" {
		return fmt.Errorf("failed to create consumer group: %w", err)
	}

	go c.run(ctx)
	return nil
}

// Stop 停止消费者
func (c *Consumer) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.running {
		close(c.stopCh)
		c.running = false
	}
}

// run 消费循环：重投到期的自有 pending 消息、定期接管僵死消息并上报积压，
// 然后阻塞读取新消息。
func (c *Consumer) run(ctx context.Context) {
	log := logger.FromContext(ctx)
	log.Info("consumer started",
		"stream", c.stream,
		"group", c.group,
		"consumer", c.consumerName,
	)

	lastClaim := time.Now().Add(-c.claimInterval)

	for {
		select {
		case <-ctx.Done():
			log.Info("consumer stopped due to context cancellation")
			return
		case <-c.stopCh:
			log.Info("consumer stopped")
			return
		default:
		}

		c.retryDuePending(ctx)
		if time.Since(lastClaim) >= c.claimInterval {
			c.reclaimStale(ctx)
			c.reportLag(ctx)
			lastClaim = time.Now()
		}

		streams, err := c.client.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    string(c.group),
			Consumer: c.consumerName,
			Streams:  []string{string(c.stream), ">"},
			Count:    10,
			Block:    c.blockTimeout,
		}).Result()

		if err != nil {
			if err == redis.Nil {
				continue
			}
			log.Error("failed to read from stream", "error", err)
			time.Sleep(time.Second)
			continue
		}

		for _, stream := range streams {
			for _, xmsg := range stream.Messages {
				c.processMessage(ctx, xmsg)
			}
		}
	}
}

// processMessage 处理单条消息。格式错误的消息直接 ack 丢弃，
// 处理器失败的消息留在 pending 等待重投。
func (c *Consumer) processMessage(ctx context.Context, xmsg redis.XMessage) {
	ctx, span := tracer.Start(ctx, "consumer.processMessage",
		trace.WithAttributes(
			attribute.String("stream", string(c.stream)),
			attribute.String("stream.message_id", xmsg.ID),
		))
	defer span.End()

	msg, ok := c.decode(ctx, xmsg)
	if !ok {
		c.ack(ctx, xmsg.ID)
		return
	}

	ctx = c.enrichContext(ctx, msg)
	log := logger.FromContext(ctx)

	span.SetAttributes(
		attribute.String("message.id", msg.ID),
		attribute.String("message.type", msg.Type),
		attribute.String("app_id", msg.AppID),
	)

	c.mu.RLock()
	handler, exists := c.handlers[msg.Type]
	c.mu.RUnlock()

	if !exists {
		log.Warn("no handler for message type", "type", msg.Type)
		c.ack(ctx, xmsg.ID)
		return
	}

	if err := handler(ctx, msg); err != nil {
		span.RecordError(err)
		metrics.RedisStreamProcessed.WithLabelValues(string(c.stream), "error").Inc()

		retryCount := c.pendingRetryCount(ctx, xmsg.ID)
		if retryCount >= c.retryLimit {
			log.Warn("message moved to DLQ after max retries", "message_id", msg.ID, "retry_count", retryCount)
			c.moveToDLQ(ctx, msg, err)
			c.ack(ctx, xmsg.ID)
			return
		}
		log.Error("handler failed, message left pending for retry", "error", err,
			"message_id", msg.ID, "retry_count", retryCount)
		return
	}

	metrics.RedisStreamProcessed.WithLabelValues(string(c.stream), "success").Inc()
	c.ack(ctx, xmsg.ID)
}

// decode 解析流消息体。格式非法返回 false，调用方负责 ack 丢弃。
func (c *Consumer) decode(ctx context.Context, xmsg redis.XMessage) (*Message, bool) {
	raw, ok := xmsg.Values["data"].(string)
	if !ok {
		logger.FromContext(ctx).Error("invalid message format", "message_id", xmsg.ID)
		return nil, false
	}
	var msg Message
	if err := json.Unmarshal([]byte(raw), &msg); err != nil {
		logger.FromContext(ctx).Error("failed to unmarshal message", "error", err, "message_id", xmsg.ID)
		return nil, false
	}
	return &msg, true
}

// enrichContext 把消息携带的标识注入日志上下文
func (c *Consumer) enrichContext(ctx context.Context, msg *Message) context.Context {
	if msg.AppID != "" {
		ctx = logger.WithContext(ctx, logger.AppIDKey, msg.AppID)
	}
	if msg.UserID != "" {
		ctx = logger.WithContext(ctx, logger.UserIDKey, msg.UserID)
	}
	if reqID := msg.GetMetadata("request_id"); reqID != "" {
		ctx = logger.WithContext(ctx, logger.RequestIDKey, reqID)
	}
	if traceID := msg.GetMetadata("trace_id"); traceID != "" {
		ctx = logger.WithContext(ctx, logger.TraceIDKey, traceID)
	}
	return ctx
}

// ack 确认消息
func (c *Consumer) ack(ctx context.Context, id string) {
	if err := c.client.XAck(ctx, string(c.stream), string(c.group), id).Err(); err != nil {
		logger.FromContext(ctx).Error("failed to ack message", "error", err, "message_id", id)
	}
}

// pendingRetryCount 通过 XPENDING 查询消息的投递次数
func (c *Consumer) pendingRetryCount(ctx context.Context, messageID string) int {
	pending, err := c.client.XPendingExt(ctx, &redis.XPendingExtArgs{
		Stream: string(c.stream),
		Group:  string(c.group),
		Start:  messageID,
		End:    messageID,
		Count:  1,
	}).Result()
	if err != nil || len(pending) == 0 {
		return 0
	}
	return int(pending[0].RetryCount)
}

// moveToDLQ 移入死信流，附带原始流与失败原因
func (c *Consumer) moveToDLQ(ctx context.Context, msg *Message, err error) {
	dlqMsg := map[string]interface{}{
		"original_stream": string(c.stream),
		"data":            msg,
		"error":           err.Error(),
		"failed_at":       time.Now().Unix(),
	}

	data, _ := json.Marshal(dlqMsg)
	c.client.XAdd(ctx, &redis.XAddArgs{
		Stream: c.stream.DLQStream(),
		Values: map[string]interface{}{"data": string(data)},
	})
}

// claim 把指定 pending 消息转移到本消费者名下
func (c *Consumer) claim(ctx context.Context, id string, minIdle time.Duration) []redis.XMessage {
	claimed, err := c.client.XClaim(ctx, &redis.XClaimArgs{
		Stream:   string(c.stream),
		Group:    string(c.group),
		Consumer: c.consumerName,
		MinIdle:  minIdle,
		Messages: []string{id},
	}).Result()
	if err != nil {
		logger.FromContext(ctx).Error("failed to claim pending message", "error", err, "message_id", id)
		return nil
	}
	return claimed
}

// handlePending 对一条 pending 记录做出处置：
// 重试耗尽的直接移入死信流，未到退避时间的跳过，到期的重新处理。
func (c *Consumer) handlePending(ctx context.Context, p redis.XPendingExt, minIdle time.Duration) {
	if int(p.RetryCount) >= c.retryLimit {
		for _, xmsg := range c.claim(ctx, p.ID, minIdle) {
			if msg, ok := c.decode(ctx, xmsg); ok {
				c.moveToDLQ(ctx, msg, fmt.Errorf("message exceeded max retries"))
			}
			c.ack(ctx, xmsg.ID)
		}
		return
	}

	backoff := c.backoff.CalculateBackoff(int(p.RetryCount))
	if backoff > minIdle {
		minIdle = backoff
	}
	if p.Idle < minIdle {
		return
	}
	for _, xmsg := range c.claim(ctx, p.ID, minIdle) {
		c.processMessage(ctx, xmsg)
	}
}

// retryDuePending 重投本消费者名下已到退避时间的 pending 消息
func (c *Consumer) retryDuePending(ctx context.Context) {
	pending, err := c.client.XPendingExt(ctx, &redis.XPendingExtArgs{
		Stream:   string(c.stream),
		Group:    string(c.group),
		Start:    "-",
		End:      "+",
		Count:    20,
		Consumer: c.consumerName,
	}).Result()
	if err != nil {
		if err != redis.Nil {
			logger.FromContext(ctx).Error("failed to query pending messages", "error", err)
		}
		return
	}

	for i := range pending {
		c.handlePending(ctx, pending[i], 0)
	}
}

// reclaimStale 接管其它消费者名下长时间无人处理的消息（实例宕机场景）
func (c *Consumer) reclaimStale(ctx context.Context) {
	if c.reclaimIdle <= 0 {
		return
	}

	pending, err := c.client.XPendingExt(ctx, &redis.XPendingExtArgs{
		Stream: string(c.stream),
		Group:  string(c.group),
		Start:  "-",
		End:    "+",
		Count:  20,
	}).Result()
	if err != nil {
		if err != redis.Nil {
			logger.FromContext(ctx).Error("failed to query pending messages for reclaim", "error", err)
		}
		return
	}

	for i := range pending {
		p := pending[i]
		if p.Consumer == c.consumerName || p.Idle < c.reclaimIdle {
			continue
		}
		c.handlePending(ctx, p, c.reclaimIdle)
	}
}

// reportLag 上报消费者组积压数量
func (c *Consumer) reportLag(ctx context.Context) {
	summary, err := c.client.XPending(ctx, string(c.stream), string(c.group)).Result()
	if err != nil {
		return
	}
	metrics.RedisStreamLag.WithLabelValues(string(c.stream), string(c.group)).Set(float64(summary.Count))
}

// MonitorDLQ 周期性检查死信流长度，超过阈值时告警日志
func (c *Consumer) MonitorDLQ(ctx context.Context, alertThreshold int64) {
	log := logger.FromContext(ctx)
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-c.stopCh:
			return
		case <-ticker.C:
			info, err := c.client.XInfoStream(ctx, c.stream.DLQStream()).Result()
			if err != nil {
				continue
			}
			if info.Length > alertThreshold {
				log.Warn("DLQ has pending messages",
					"stream", c.stream.DLQStream(),
					"count", info.Length,
				)
			}
		}
	}
}
