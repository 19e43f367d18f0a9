// Package consumer 订阅传感器遥测的两路入口：MQTT 主题和 Redis Streams
package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"groundwater-analytics/internal/common/mqtt"

	"go.uber.org/zap"
)

// TelemetryHandler 遥测消息处理接口
type TelemetryHandler interface {
	// HandleData 处理数据读数（校验失败静默丢弃并记录）
	HandleData(ctx context.Context, stationID, sensorID string, payload map[string]interface{}) error
	// HandleStatus 处理状态上报
	HandleStatus(ctx context.Context, stationID, sensorID string, payload map[string]interface{}) error
}

// MQTTConsumer MQTT 遥测消费者
// 订阅 groundwater/{station_id}/{sensor_id}/data 和 .../status
type MQTTConsumer struct {
	mqttClient  *mqtt.Client
	handler     TelemetryHandler
	dataTopic   string
	statusTopic string
	qos         byte
	logger      *zap.Logger
}

// NewMQTTConsumer 创建 MQTT 消费者
func NewMQTTConsumer(mqttClient *mqtt.Client, handler TelemetryHandler, dataTopic, statusTopic string, qos byte, logger *zap.Logger) *MQTTConsumer {
	return &MQTTConsumer{
		mqttClient:  mqttClient,
		handler:     handler,
		dataTopic:   dataTopic,
		statusTopic: statusTopic,
		qos:         qos,
		logger:      logger,
	}
}

// Start 订阅数据和状态主题
func (c *MQTTConsumer) Start(ctx context.Context) error {
	if err := c.mqttClient.Subscribe(c.dataTopic, c.qos, func(topic string, payload []byte) error {
		return c.handleMessage(ctx, topic, payload, "data")
	}); err != nil {
		return fmt.Errorf("failed to subscribe data topic: %w", err)
	}

	if err := c.mqttClient.Subscribe(c.statusTopic, c.qos, func(topic string, payload []byte) error {
		return c.handleMessage(ctx, topic, payload, "status")
	}); err != nil {
		return fmt.Errorf("failed to subscribe status topic: %w", err)
	}

	c.logger.Info("MQTT consumer started",
		zap.String("data_topic", c.dataTopic),
		zap.String("status_topic", c.statusTopic),
	)
	return nil
}

// Stop 取消订阅
func (c *MQTTConsumer) Stop() {
	if err := c.mqttClient.Unsubscribe(c.dataTopic, c.statusTopic); err != nil {
		c.logger.Warn("Failed to unsubscribe", zap.Error(err))
	}
}

func (c *MQTTConsumer) handleMessage(ctx context.Context, topic string, payload []byte, kind string) error {
	stationID, sensorID, err := parseTopic(topic, kind)
	if err != nil {
		c.logger.Warn("Discarding message with malformed topic",
			zap.String("topic", topic),
			zap.Error(err),
		)
		return nil
	}

	var data map[string]interface{}
	if err := json.Unmarshal(payload, &data); err != nil {
		c.logger.Warn("Discarding message with invalid JSON payload",
			zap.String("topic", topic),
			zap.Error(err),
		)
		return nil
	}

	switch kind {
	case "data":
		return c.handler.HandleData(ctx, stationID, sensorID, data)
	case "status":
		return c.handler.HandleStatus(ctx, stationID, sensorID, data)
	}
	return nil
}

// parseTopic 解析 groundwater/{station_id}/{sensor_id}/{kind} 形式的主题
func parseTopic(topic, kind string) (stationID, sensorID string, err error) {
	parts := strings.Split(topic, "/")
	if len(parts) != 4 || parts[0] != "groundwater" || parts[3] != kind {
		return "", "", fmt.Errorf("unexpected topic format: %s", topic)
	}
	if parts[1] == "" || parts[2] == "" {
		return "", "", fmt.Errorf("empty station or sensor id in topic: %s", topic)
	}
	return parts[1], parts[2], nil
}
