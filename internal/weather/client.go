// Package weather 外部气象数据接入
//
// 从 OpenWeather 拉取站点当前天气并写入时序库 weather_data 测点，
// 供预测特征构造和补给估算的降雨累计使用。未配置 API key 时跳过拉取。
package weather

import (
	"context"
	"fmt"
	"time"

	"groundwater-analytics/internal/timeseries"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// Observation 一次天气观测（已折算公制单位）
type Observation struct {
	StationID        string    `json:"station_id"`
	Timestamp        time.Time `json:"timestamp"`
	TemperatureC     float64   `json:"temperature_c"`
	HumidityPercent  float64   `json:"humidity_percent"`
	PressureHPa      float64   `json:"pressure_hpa"`
	WindSpeedMS      float64   `json:"wind_speed_ms"`
	WindDirectionDeg float64   `json:"wind_direction_deg"`
	Condition        string    `json:"weather_condition"`
	CloudinessPct    float64   `json:"cloudiness_percent"`
	VisibilityM      float64   `json:"visibility_m"`
	RainfallMM       float64   `json:"rainfall_mm"`
	Source           string    `json:"source"`
}

type openWeatherResponse struct {
	Main struct {
		Temp     float64 `json:"temp"`
		Humidity float64 `json:"humidity"`
		Pressure float64 `json:"pressure"`
	} `json:"main"`
	Weather []struct {
		Description string `json:"description"`
	} `json:"weather"`
	Wind struct {
		Speed float64 `json:"speed"`
		Deg   float64 `json:"deg"`
	} `json:"wind"`
	Clouds struct {
		All float64 `json:"all"`
	} `json:"clouds"`
	// 过去一小时降雨量 mm，无降雨时整个对象缺失
	Rain struct {
		OneHour float64 `json:"1h"`
	} `json:"rain"`
	Visibility float64 `json:"visibility"`
}

// Client OpenWeather 客户端
type Client struct {
	httpClient *resty.Client
	apiKey     string
	store      timeseries.Store
	logger     *zap.Logger
}

// NewClient 创建天气客户端
func NewClient(baseURL, apiKey string, store timeseries.Store, logger *zap.Logger) *Client {
	httpClient := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(10 * time.Second).
		SetRetryCount(2).
		SetRetryWaitTime(1 * time.Second)

	return &Client{
		httpClient: httpClient,
		apiKey:     apiKey,
		store:      store,
		logger:     logger,
	}
}

// FetchCurrent 拉取某站点坐标的当前天气
func (c *Client) FetchCurrent(ctx context.Context, stationID string, lat, lon float64) (*Observation, error) {
	if c.apiKey == "" {
		return nil, fmt.Errorf("openweather api key not configured")
	}

	var result openWeatherResponse
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"lat":   fmt.Sprintf("%f", lat),
			"lon":   fmt.Sprintf("%f", lon),
			"appid": c.apiKey,
			"units": "metric",
		}).
		SetResult(&result).
		Get("/data/2.5/weather")
	if err != nil {
		return nil, fmt.Errorf("failed to fetch weather: %w", err)
	}
	if resp.StatusCode() != 200 {
		return nil, fmt.Errorf("openweather api error: status %d", resp.StatusCode())
	}

	obs := &Observation{
		StationID:        stationID,
		Timestamp:        time.Now().UTC(),
		TemperatureC:     result.Main.Temp,
		HumidityPercent:  result.Main.Humidity,
		PressureHPa:      result.Main.Pressure,
		WindSpeedMS:      result.Wind.Speed,
		WindDirectionDeg: result.Wind.Deg,
		CloudinessPct:    result.Clouds.All,
		VisibilityM:      result.Visibility,
		RainfallMM:       result.Rain.OneHour,
		Source:           "openweather",
	}
	if len(result.Weather) > 0 {
		obs.Condition = result.Weather[0].Description
	}
	return obs, nil
}

// FetchAndStore 拉取并写入时序库（只存数值字段）
func (c *Client) FetchAndStore(ctx context.Context, stationID string, lat, lon float64) error {
	obs, err := c.FetchCurrent(ctx, stationID, lat, lon)
	if err != nil {
		return err
	}

	point := timeseries.Point{
		Measurement: timeseries.MeasurementWeatherData,
		Tags: map[string]string{
			"station_id": obs.StationID,
			"source":     obs.Source,
		},
		Fields: map[string]interface{}{
			"temperature_c":      obs.TemperatureC,
			"humidity_percent":   obs.HumidityPercent,
			"pressure_hpa":       obs.PressureHPa,
			"wind_speed_ms":      obs.WindSpeedMS,
			"wind_direction_deg": obs.WindDirectionDeg,
			"cloudiness_percent": obs.CloudinessPct,
			"visibility_m":       obs.VisibilityM,
			"rainfall_mm":        obs.RainfallMM,
		},
		Time: obs.Timestamp,
	}
	if err := c.store.WritePoint(ctx, point); err != nil {
		return fmt.Errorf("failed to store weather data: %w", err)
	}

	c.logger.Debug("Weather observation stored",
		zap.String("station_id", stationID),
		zap.Float64("temperature_c", obs.TemperatureC),
	)
	return nil
}
