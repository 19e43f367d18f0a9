package anomaly

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	commonredis "groundwater-analytics/internal/common/redis"
	"groundwater-analytics/internal/telemetry"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

const scoringGroup = "anomaly-scorer"

// WorkerPool 评分队列消费者池
type WorkerPool struct {
	redisClient *redis.Client
	detector    *Detector
	stream      string
	workers     int
	batchSize   int64
	logger      *zap.Logger

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// NewWorkerPool 创建评分 worker 池
func NewWorkerPool(redisClient *redis.Client, detector *Detector, stream string, workers int, batchSize int64, logger *zap.Logger) *WorkerPool {
	if workers < 1 {
		workers = 1
	}
	return &WorkerPool{
		redisClient: redisClient,
		detector:    detector,
		stream:      stream,
		workers:     workers,
		batchSize:   batchSize,
		logger:      logger,
		stopCh:      make(chan struct{}),
	}
}

// Start 启动 worker 池（非阻塞）
func (p *WorkerPool) Start(ctx context.Context) error {
	if err := commonredis.CreateConsumerGroup(ctx, p.redisClient, p.stream, scoringGroup); err != nil {
		return fmt.Errorf("failed to create scoring consumer group: %w", err)
	}

	for i := 0; i < p.workers; i++ {
		name := fmt.Sprintf("scorer-%d", i+1)
		p.wg.Add(1)
		go p.run(ctx, name)
	}

	p.logger.Info("Scoring worker pool started",
		zap.String("stream", p.stream),
		zap.Int("workers", p.workers),
	)
	return nil
}

// Stop 停止 worker 池并等待退出
func (p *WorkerPool) Stop() {
	close(p.stopCh)
	p.wg.Wait()
}

func (p *WorkerPool) run(ctx context.Context, consumerName string) {
	defer p.wg.Done()

	backoff := time.Second
	for {
		select {
		case <-ctx.Done():
			return
		case <-p.stopCh:
			return
		default:
		}

		messages, err := commonredis.ReadFromStream(ctx, p.redisClient, p.stream, scoringGroup, consumerName, p.batchSize)
		if err != nil {
			p.logger.Error("Failed to read scoring stream",
				zap.String("consumer", consumerName),
				zap.Duration("backoff", backoff),
				zap.Error(err),
			)
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return
			case <-p.stopCh:
				return
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		for _, msg := range messages {
			p.processMessage(ctx, msg)
			if err := commonredis.AckMessage(ctx, p.redisClient, p.stream, scoringGroup, msg.ID); err != nil {
				p.logger.Warn("Failed to ack scoring message",
					zap.String("message_id", msg.ID),
					zap.Error(err),
				)
			}
		}
	}
}

func (p *WorkerPool) processMessage(ctx context.Context, msg commonredis.StreamMessage) {
	raw, ok := msg.Values["data"].(string)
	if !ok {
		p.logger.Warn("Discarding scoring message without data field",
			zap.String("message_id", msg.ID),
		)
		return
	}

	var req telemetry.ScoringRequest
	if err := json.Unmarshal([]byte(raw), &req); err != nil {
		p.logger.Warn("Discarding malformed scoring request",
			zap.String("message_id", msg.ID),
			zap.Error(err),
		)
		return
	}

	if _, err := p.detector.Detect(ctx, req.StationID, req.SensorID, req.Timestamp, req.Value); err != nil {
		p.logger.Error("Anomaly detection failed",
			zap.String("station_id", req.StationID),
			zap.String("sensor_id", req.SensorID),
			zap.Error(err),
		)
	}
}
