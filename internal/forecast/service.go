package forecast

import (
	"context"
	"fmt"
	"math"
	"time"

	"groundwater-analytics/internal/config"
	"groundwater-analytics/internal/models"
	"groundwater-analytics/internal/timeseries"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/stat"
)

// 模型元信息
const (
	modelName    = "random_forest"
	modelVersion = "1.0"
)

// ForecastSink 预测结果持久化接口
type ForecastSink interface {
	InsertForecasts(ctx context.Context, points []*models.ForecastPoint) error
}

// Service 预测服务
type Service struct {
	store      timeseries.Store
	forecasts  ForecastSink
	modelStore *ModelStore
	registry   *Registry
	cfg        config.AnalyticsConfig
	logger     *zap.Logger
}

// NewService 创建预测服务
func NewService(store timeseries.Store, forecasts ForecastSink, modelStore *ModelStore, registry *Registry, cfg config.AnalyticsConfig, logger *zap.Logger) *Service {
	return &Service{
		store:      store,
		forecasts:  forecasts,
		modelStore: modelStore,
		registry:   registry,
		cfg:        cfg,
		logger:     logger,
	}
}

// Train 训练某传感器的水位预测模型
// 永远返回结构化结果，训练过程中的 panic 也折叠为 error 状态
func (s *Service) Train(ctx context.Context, stationID, sensorID string) (result *models.TrainResult) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("Training panicked",
				zap.String("station_id", stationID),
				zap.String("sensor_id", sensorID),
				zap.Any("panic", r),
			)
			result = &models.TrainResult{
				Status:  models.TrainStatusError,
				Message: fmt.Sprintf("training panic: %v", r),
			}
		}
	}()

	rows, err := s.loadTrainingRows(ctx, stationID, sensorID)
	if err != nil {
		return &models.TrainResult{Status: models.TrainStatusError, Message: err.Error()}
	}
	if len(rows) < s.cfg.TrainMinRawRows {
		s.logger.Warn("Insufficient data for training",
			zap.String("station_id", stationID),
			zap.String("sensor_id", sensorID),
			zap.Int("rows", len(rows)),
		)
		return &models.TrainResult{Status: models.TrainStatusInsufficientData}
	}

	set := BuildFeatures(rows)
	if len(set.X) < s.cfg.TrainMinFeatureRows {
		return &models.TrainResult{Status: models.TrainStatusInsufficientFeatures}
	}

	// 按时间顺序 80/20 切分，不打乱
	splitIdx := int(float64(len(set.X)) * 0.8)
	xTrain, xTest := set.X[:splitIdx], set.X[splitIdx:]
	yTrain, yTest := set.Y[:splitIdx], set.Y[splitIdx:]

	scaler := FitScaler(xTrain, set.Names)
	xTrainScaled, err := scaler.Transform(xTrain)
	if err != nil {
		return &models.TrainResult{Status: models.TrainStatusError, Message: err.Error()}
	}
	xTestScaled, err := scaler.Transform(xTest)
	if err != nil {
		return &models.TrainResult{Status: models.TrainStatusError, Message: err.Error()}
	}

	forest, err := TrainForest(xTrainScaled, yTrain)
	if err != nil {
		return &models.TrainResult{Status: models.TrainStatusError, Message: err.Error()}
	}

	predictions, err := forest.PredictBatch(xTestScaled)
	if err != nil {
		return &models.TrainResult{Status: models.TrainStatusError, Message: err.Error()}
	}
	mae, rmse := evaluate(yTest, predictions)

	key := ModelKey(stationID, sensorID)
	pair := &ModelPair{Model: forest, Scaler: scaler}
	if err := s.modelStore.Save(key, pair); err != nil {
		return &models.TrainResult{Status: models.TrainStatusError, Message: err.Error()}
	}
	s.registry.Put(key, pair)

	s.logger.Info("Model trained",
		zap.String("station_id", stationID),
		zap.String("sensor_id", sensorID),
		zap.Float64("mae", mae),
		zap.Float64("rmse", rmse),
		zap.Int("training_samples", len(xTrain)),
		zap.Int("test_samples", len(xTest)),
	)
	return &models.TrainResult{
		Status:          models.TrainStatusSuccess,
		MAE:             mae,
		RMSE:            rmse,
		TrainingSamples: len(xTrain),
		TestSamples:     len(xTest),
	}
}

// Predict 自回归预测未来 horizonHours 小时的水位
// 模型或近期数据缺失时返回空结果（不报错）；
// 置信区间为 ±10%·|预测值|·√horizon，随预测距离变宽。
func (s *Service) Predict(ctx context.Context, stationID, sensorID string, horizonHours int) ([]*models.ForecastPoint, error) {
	key := ModelKey(stationID, sensorID)
	pair, ok := s.registry.Get(key)
	if !ok {
		s.logger.Warn("No trained model available",
			zap.String("station_id", stationID),
			zap.String("sensor_id", sensorID),
		)
		return nil, nil
	}

	queryCtx, cancel := context.WithTimeout(ctx, s.cfg.QueryTimeout)
	defer cancel()

	now := time.Now().UTC()
	samples, err := s.store.QueryValues(queryCtx, timeseries.MeasurementSensorData, stationID, sensorID, "value", now.Add(-48*time.Hour), now)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent data: %w", err)
	}
	if len(samples) == 0 {
		return nil, nil
	}

	// 预测上下文：历史值加逐步回填的预测值
	values := make([]float64, len(samples))
	for i, v := range samples {
		values[i] = v.Value
	}

	var points []*models.ForecastPoint
	for hour := 1; hour <= horizonHours; hour++ {
		predTime := now.Add(time.Duration(hour) * time.Hour)
		row := buildPredictionVector(pair.Scaler.FeatureNames, predTime, values)

		scaled, err := pair.Scaler.TransformRow(row)
		if err != nil {
			return nil, fmt.Errorf("failed to scale prediction features: %w", err)
		}
		prediction, err := pair.Model.Predict(scaled)
		if err != nil {
			return nil, fmt.Errorf("prediction failed: %w", err)
		}

		interval := 0.1 * math.Abs(prediction) * math.Sqrt(float64(hour))
		points = append(points, &models.ForecastPoint{
			StationID:       stationID,
			SensorID:        sensorID,
			Timestamp:       predTime,
			PredictedLevel:  prediction,
			ConfidenceLower: prediction - interval,
			ConfidenceUpper: prediction + interval,
			HorizonHours:    hour,
			ModelName:       modelName,
			ModelVersion:    modelVersion,
		})

		// 预测值回填，供下一小时的滞后特征使用
		values = append(values, prediction)
	}

	if err := s.forecasts.InsertForecasts(ctx, points); err != nil {
		s.logger.Error("Failed to store forecasts",
			zap.String("station_id", stationID),
			zap.String("sensor_id", sensorID),
			zap.Error(err),
		)
	}
	return points, nil
}

// loadTrainingRows 读取训练窗口内的水位序列并按时间戳并上气象数据
func (s *Service) loadTrainingRows(ctx context.Context, stationID, sensorID string) ([]Row, error) {
	queryCtx, cancel := context.WithTimeout(ctx, s.cfg.QueryTimeout)
	defer cancel()

	now := time.Now().UTC()
	start := now.AddDate(0, 0, -s.cfg.TrainWindowDays)

	samples, err := s.store.QueryValues(queryCtx, timeseries.MeasurementSensorData, stationID, sensorID, "value", start, now)
	if err != nil {
		return nil, fmt.Errorf("failed to query sensor data: %w", err)
	}

	weather, err := s.store.QueryStationFields(queryCtx, timeseries.MeasurementWeatherData, stationID, start, now)
	if err != nil {
		return nil, fmt.Errorf("failed to query weather data: %w", err)
	}

	weatherByTime := make(map[time.Time]map[string]float64)
	for _, w := range weather {
		m, ok := weatherByTime[w.Timestamp]
		if !ok {
			m = make(map[string]float64)
			weatherByTime[w.Timestamp] = m
		}
		m[w.Field] = w.Value
	}

	rows := make([]Row, len(samples))
	for i, sample := range samples {
		rows[i] = Row{
			Timestamp:  sample.Timestamp,
			WaterLevel: sample.Value,
			Weather:    weatherByTime[sample.Timestamp],
		}
	}
	return rows, nil
}

// buildPredictionVector 按训练时的特征列顺序构造预测特征
// 无法计算的特征（气象、越界滞后）补 0
func buildPredictionVector(names []string, predTime time.Time, values []float64) []float64 {
	available := make(map[string]float64, len(names))

	calendar := CalendarFeatures(predTime)
	available["hour"] = calendar[0]
	available["day_of_year"] = calendar[1]
	available["month"] = calendar[2]
	available["is_weekend"] = calendar[3]

	n := len(values)
	for _, lag := range lagHours {
		if n >= lag {
			available[fmt.Sprintf("water_level_lag_%dh", lag)] = values[n-lag]
		}
	}
	for _, w := range rollingWindows {
		if n >= w {
			window := values[n-w:]
			available[fmt.Sprintf("water_level_mean_%dh", w)] = stat.Mean(window, nil)
			available[fmt.Sprintf("water_level_std_%dh", w)] = stat.StdDev(window, nil)
		}
	}

	row := make([]float64, len(names))
	for i, name := range names {
		row[i] = available[name]
	}
	return row
}

// evaluate 计算 MAE 和 RMSE
func evaluate(actual, predicted []float64) (mae, rmse float64) {
	if len(actual) == 0 {
		return 0, 0
	}
	var absSum, sqSum float64
	for i := range actual {
		d := predicted[i] - actual[i]
		absSum += math.Abs(d)
		sqSum += d * d
	}
	n := float64(len(actual))
	return absSum / n, math.Sqrt(sqSum / n)
}
