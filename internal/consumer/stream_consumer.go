package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	commonredis "groundwater-analytics/internal/common/redis"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// StreamConsumer Redis Streams 遥测消费者
// 消费上游管道写入的事件流（消息 data 字段为完整 JSON 读数）
type StreamConsumer struct {
	redisClient   *redis.Client
	handler       TelemetryHandler
	stream        string
	consumerGroup string
	consumerName  string
	batchSize     int64
	logger        *zap.Logger

	stopCh chan struct{}
}

// NewStreamConsumer 创建 Redis Streams 消费者
func NewStreamConsumer(redisClient *redis.Client, handler TelemetryHandler, stream, consumerGroup, consumerName string, batchSize int64, logger *zap.Logger) *StreamConsumer {
	return &StreamConsumer{
		redisClient:   redisClient,
		handler:       handler,
		stream:        stream,
		consumerGroup: consumerGroup,
		consumerName:  consumerName,
		batchSize:     batchSize,
		logger:        logger,
		stopCh:        make(chan struct{}),
	}
}

// Start 启动消费循环（阻塞，直到 ctx 取消或 Stop）
func (c *StreamConsumer) Start(ctx context.Context) error {
	if err := commonredis.CreateConsumerGroup(ctx, c.redisClient, c.stream, c.consumerGroup); err != nil {
		return fmt.Errorf("failed to create consumer group: %w", err)
	}

	c.logger.Info("Stream consumer started",
		zap.String("stream", c.stream),
		zap.String("consumer_group", c.consumerGroup),
		zap.String("consumer_name", c.consumerName),
	)

	backoff := time.Second
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.stopCh:
			return nil
		default:
		}

		messages, err := commonredis.ReadFromStream(ctx, c.redisClient, c.stream, c.consumerGroup, c.consumerName, c.batchSize)
		if err != nil {
			c.logger.Error("Failed to read from stream",
				zap.String("stream", c.stream),
				zap.Duration("backoff", backoff),
				zap.Error(err),
			)
			// 指数退避，最大 30 秒
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return ctx.Err()
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		for _, msg := range messages {
			c.processMessage(ctx, msg)
			// 先 ack 再处理结果落库：至多一次交付
			if err := commonredis.AckMessage(ctx, c.redisClient, c.stream, c.consumerGroup, msg.ID); err != nil {
				c.logger.Warn("Failed to ack message",
					zap.String("message_id", msg.ID),
					zap.Error(err),
				)
			}
		}
	}
}

// Stop 停止消费循环
func (c *StreamConsumer) Stop() {
	close(c.stopCh)
}

func (c *StreamConsumer) processMessage(ctx context.Context, msg commonredis.StreamMessage) {
	raw, ok := msg.Values["data"].(string)
	if !ok {
		c.logger.Warn("Discarding stream message without data field",
			zap.String("message_id", msg.ID),
		)
		return
	}

	var payload map[string]interface{}
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		c.logger.Warn("Discarding stream message with invalid JSON",
			zap.String("message_id", msg.ID),
			zap.Error(err),
		)
		return
	}

	stationID, _ := payload["station_id"].(string)
	sensorID, _ := payload["sensor_id"].(string)
	if stationID == "" || sensorID == "" {
		c.logger.Warn("Discarding stream message without station/sensor id",
			zap.String("message_id", msg.ID),
		)
		return
	}

	if err := c.handler.HandleData(ctx, stationID, sensorID, payload); err != nil {
		c.logger.Error("Failed to handle stream message",
			zap.String("message_id", msg.ID),
			zap.String("station_id", stationID),
			zap.String("sensor_id", sensorID),
			zap.Error(err),
		)
	}
}
