package repository

import (
	"context"
	"database/sql"
	"fmt"

	"groundwater-analytics/internal/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// RechargeRepository 补给估算仓库
type RechargeRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewRechargeRepository 创建补给估算仓库
func NewRechargeRepository(db *sql.DB, logger *zap.Logger) *RechargeRepository {
	return &RechargeRepository{
		db:     db,
		logger: logger,
	}
}

// InsertEstimate 插入一条补给估算（ID 由本方法填充）
func (r *RechargeRepository) InsertEstimate(ctx context.Context, e *models.RechargeEstimate) error {
	e.ID = uuid.New().String()

	query := `
		INSERT INTO recharge_estimates (
			id, station_id, date, recharge_mm, method,
			rainfall_mm, level_change_m, period_days, confidence_score
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := r.db.ExecContext(ctx, query,
		e.ID,
		e.StationID,
		e.Date,
		e.RechargeMM,
		e.Method,
		e.RainfallMM,
		e.LevelChangeM,
		e.PeriodDays,
		e.ConfidenceScore,
	)
	if err != nil {
		return fmt.Errorf("failed to insert recharge estimate: %w", err)
	}

	r.logger.Debug("Recharge estimate inserted",
		zap.String("id", e.ID),
		zap.String("station_id", e.StationID),
		zap.Float64("recharge_mm", e.RechargeMM),
	)
	return nil
}

// ListEstimates 查询某站点的补给估算（按日期倒序）
func (r *RechargeRepository) ListEstimates(ctx context.Context, stationID string, limit int) ([]*models.RechargeEstimate, error) {
	query := `
		SELECT id, station_id, date, recharge_mm, method,
		       rainfall_mm, level_change_m, period_days, confidence_score
		FROM recharge_estimates
		WHERE station_id = $1
		ORDER BY date DESC
		LIMIT $2
	`
	rows, err := r.db.QueryContext(ctx, query, stationID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query recharge estimates: %w", err)
	}
	defer rows.Close()

	var estimates []*models.RechargeEstimate
	for rows.Next() {
		e := &models.RechargeEstimate{}
		if err := rows.Scan(
			&e.ID,
			&e.StationID,
			&e.Date,
			&e.RechargeMM,
			&e.Method,
			&e.RainfallMM,
			&e.LevelChangeM,
			&e.PeriodDays,
			&e.ConfidenceScore,
		); err != nil {
			return nil, fmt.Errorf("failed to scan recharge row: %w", err)
		}
		estimates = append(estimates, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("recharge rows iteration error: %w", err)
	}

	return estimates, nil
}
