// Package repository PostgreSQL 持久化层
package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"groundwater-analytics/internal/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AnomalyRepository 异常记录仓库
type AnomalyRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewAnomalyRepository 创建异常记录仓库
func NewAnomalyRepository(db *sql.DB, logger *zap.Logger) *AnomalyRepository {
	return &AnomalyRepository{
		db:     db,
		logger: logger,
	}
}

// InsertAnomaly 插入异常记录（ID 和 CreatedAt 由本方法填充）
func (r *AnomalyRepository) InsertAnomaly(ctx context.Context, record *models.AnomalyRecord) error {
	record.ID = uuid.New().String()
	record.CreatedAt = time.Now().UTC()

	query := `
		INSERT INTO anomaly_detections (
			id, station_id, sensor_id, timestamp, anomaly_type, severity,
			anomaly_score, expected_value, actual_value, description,
			is_resolved, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	_, err := r.db.ExecContext(ctx, query,
		record.ID,
		record.StationID,
		record.SensorID,
		record.Timestamp,
		record.AnomalyType,
		record.Severity,
		record.AnomalyScore,
		record.ExpectedValue,
		record.ActualValue,
		record.Description,
		record.IsResolved,
		record.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert anomaly: %w", err)
	}

	r.logger.Debug("Anomaly record inserted",
		zap.String("id", record.ID),
		zap.String("station_id", record.StationID),
		zap.String("severity", record.Severity),
	)
	return nil
}

// ResolveAnomaly 标记异常已处理（记录不可变，只允许翻转 is_resolved）
func (r *AnomalyRepository) ResolveAnomaly(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `UPDATE anomaly_detections SET is_resolved = true WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to resolve anomaly: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check resolve result: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("anomaly not found: %s", id)
	}
	return nil
}

// ListUnresolved 查询某站点未处理的异常（按时间倒序）
func (r *AnomalyRepository) ListUnresolved(ctx context.Context, stationID string, limit int) ([]*models.AnomalyRecord, error) {
	query := `
		SELECT id, station_id, sensor_id, timestamp, anomaly_type, severity,
		       anomaly_score, expected_value, actual_value, description,
		       is_resolved, created_at
		FROM anomaly_detections
		WHERE station_id = $1 AND is_resolved = false
		ORDER BY timestamp DESC
		LIMIT $2
	`
	rows, err := r.db.QueryContext(ctx, query, stationID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query anomalies: %w", err)
	}
	defer rows.Close()

	var records []*models.AnomalyRecord
	for rows.Next() {
		record := &models.AnomalyRecord{}
		if err := rows.Scan(
			&record.ID,
			&record.StationID,
			&record.SensorID,
			&record.Timestamp,
			&record.AnomalyType,
			&record.Severity,
			&record.AnomalyScore,
			&record.ExpectedValue,
			&record.ActualValue,
			&record.Description,
			&record.IsResolved,
			&record.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan anomaly row: %w", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("anomaly rows iteration error: %w", err)
	}

	return records, nil
}
