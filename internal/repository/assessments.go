package repository

import (
	"context"
	"database/sql"
	"fmt"

	"groundwater-analytics/internal/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AssessmentRepository 干旱风险评估仓库
type AssessmentRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewAssessmentRepository 创建评估仓库
func NewAssessmentRepository(db *sql.DB, logger *zap.Logger) *AssessmentRepository {
	return &AssessmentRepository{
		db:     db,
		logger: logger,
	}
}

// InsertAssessment 插入一条评估快照（ID 由本方法填充）
func (r *AssessmentRepository) InsertAssessment(ctx context.Context, a *models.DroughtRiskAssessment) error {
	a.ID = uuid.New().String()

	query := `
		INSERT INTO drought_risk_assessments (
			id, station_id, assessment_date, risk_level, risk_score,
			days_to_drought, current_level, historical_average, trend, trend_slope
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := r.db.ExecContext(ctx, query,
		a.ID,
		a.StationID,
		a.AssessmentDate,
		a.RiskLevel,
		a.RiskScore,
		a.DaysToDrought,
		a.CurrentLevelM,
		a.HistoricalAverage,
		a.Trend,
		a.TrendSlope,
	)
	if err != nil {
		return fmt.Errorf("failed to insert drought assessment: %w", err)
	}

	r.logger.Debug("Drought assessment inserted",
		zap.String("id", a.ID),
		zap.String("station_id", a.StationID),
		zap.String("risk_level", a.RiskLevel),
	)
	return nil
}

// LatestAssessment 查询某站点最近一次评估
func (r *AssessmentRepository) LatestAssessment(ctx context.Context, stationID string) (*models.DroughtRiskAssessment, error) {
	query := `
		SELECT id, station_id, assessment_date, risk_level, risk_score,
		       days_to_drought, current_level, historical_average, trend, trend_slope
		FROM drought_risk_assessments
		WHERE station_id = $1
		ORDER BY assessment_date DESC
		LIMIT 1
	`
	a := &models.DroughtRiskAssessment{}
	err := r.db.QueryRowContext(ctx, query, stationID).Scan(
		&a.ID,
		&a.StationID,
		&a.AssessmentDate,
		&a.RiskLevel,
		&a.RiskScore,
		&a.DaysToDrought,
		&a.CurrentLevelM,
		&a.HistoricalAverage,
		&a.Trend,
		&a.TrendSlope,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query latest assessment: %w", err)
	}
	return a, nil
}
