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

// ForecastRepository 预测结果仓库
type ForecastRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewForecastRepository 创建预测结果仓库
func NewForecastRepository(db *sql.DB, logger *zap.Logger) *ForecastRepository {
	return &ForecastRepository{
		db:     db,
		logger: logger,
	}
}

// InsertForecasts 批量插入预测点（单事务，失败整体回滚）
func (r *ForecastRepository) InsertForecasts(ctx context.Context, points []*models.ForecastPoint) error {
	if len(points) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO water_level_forecasts (
			id, station_id, sensor_id, forecast_timestamp, predicted_level,
			confidence_lower, confidence_upper, horizon_hours,
			model_name, model_version, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare forecast insert: %w", err)
	}
	defer stmt.Close()

	createdAt := time.Now().UTC()
	for _, p := range points {
		if _, err := stmt.ExecContext(ctx,
			uuid.New().String(),
			p.StationID,
			p.SensorID,
			p.Timestamp,
			p.PredictedLevel,
			p.ConfidenceLower,
			p.ConfidenceUpper,
			p.HorizonHours,
			p.ModelName,
			p.ModelVersion,
			createdAt,
		); err != nil {
			return fmt.Errorf("failed to insert forecast point: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit forecasts: %w", err)
	}

	r.logger.Debug("Forecast points inserted",
		zap.String("station_id", points[0].StationID),
		zap.String("sensor_id", points[0].SensorID),
		zap.Int("count", len(points)),
	)
	return nil
}
