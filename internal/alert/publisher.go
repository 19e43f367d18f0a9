// Package alert 报警事件投递
package alert

import (
	"context"
	"fmt"

	commonredis "groundwater-analytics/internal/common/redis"
	"groundwater-analytics/internal/models"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// Publisher 把报警事件发布到 Redis Streams，由下游通知服务消费
type Publisher struct {
	redisClient *redis.Client
	stream      string
	logger      *zap.Logger
}

// NewPublisher 创建报警发布器
func NewPublisher(redisClient *redis.Client, stream string, logger *zap.Logger) *Publisher {
	return &Publisher{
		redisClient: redisClient,
		stream:      stream,
		logger:      logger,
	}
}

// PublishAlert 发布一条报警事件
func (p *Publisher) PublishAlert(ctx context.Context, event *models.AlertEvent) error {
	id, err := commonredis.PublishJSONToStream(ctx, p.redisClient, p.stream, event)
	if err != nil {
		return fmt.Errorf("failed to publish alert: %w", err)
	}

	p.logger.Info("Alert published",
		zap.String("message_id", id),
		zap.String("station_id", event.StationID),
		zap.String("alert_type", event.AlertType),
		zap.String("severity", event.Severity),
	)
	return nil
}
