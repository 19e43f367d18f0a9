package config

import (
	"os"
	"strconv"
	"time"

	"groundwater-analytics/internal/common/config"
)

// Config 地下水遥测分析服务配置
type Config struct {
	Database config.DatabaseConfig
	Redis    config.RedisConfig
	MQTT     config.MQTTConfig
	Influx   config.InfluxConfig

	// 遥测接入配置
	Ingest struct {
		// MQTT 主题（通配符订阅）
		Topics struct {
			Data   string // 数据主题，如 "groundwater/+/+/data"
			Status string // 状态主题，如 "groundwater/+/+/status"
		}
		// Redis Streams 配置
		Streams struct {
			Events  string // 外部事件流，如 "groundwater-data"
			Scoring string // 内部异常评分队列，如 "sensor:scoring:stream"
			Alerts  string // 报警事件流，如 "alerts:stream"
		}
		ConsumerGroup  string // 消费者组名称
		ConsumerName   string // 消费者名称
		BatchSize      int64  // 批量读取大小
		ScoringWorkers int    // 异常评分 worker 数量
	}

	// 分析阈值配置
	Analytics AnalyticsConfig

	// 天气数据源配置
	Weather struct {
		BaseURL string
		APIKey  string
	}

	Log struct {
		Level  string
		Format string
	}
}

// AnalyticsConfig 分析阈值配置
// 原实现把这些散落为字面量，这里集中为命名字段，允许按部署调整
type AnalyticsConfig struct {
	// 异常检测
	AnomalyWindowDays   int     // 历史窗口天数
	AnomalyMinPoints    int     // 最小历史点数
	AnomalyZThreshold   float64 // z-score 报警阈值
	AnomalyHighSeverity float64 // z-score 高严重度阈值

	// 模式检测
	PatternMinPoints    int     // 模式检测最小点数
	DailyMinHours       int     // 日模式最少覆盖小时数
	DailyVarianceRatio  float64 // 日模式方差比阈值
	WeeklyMinDays       int     // 周模式最少覆盖天数
	WeeklyVarianceRatio float64 // 周模式方差比阈值

	// 训练
	TrainWindowDays     int // 训练数据窗口天数
	TrainMinRawRows     int // 特征构造前最小行数
	TrainMinFeatureRows int // 特征构造后最小行数

	// 干旱风险
	RiskWindowDays int // 风险评估窗口天数

	// 补给估算
	RechargeMinPoints int // 水位数据最小点数

	// 模型注册表
	RegistryCapacity int    // LRU 容量
	ModelDir         string // 模型文件目录

	// 查询超时（历史窗口无上界，必须有界）
	QueryTimeout time.Duration

	// 批处理调度
	BatchInterval      time.Duration // 趋势/模式批处理间隔
	BatchLookback      time.Duration // 批处理回看窗口
	AssessmentInterval time.Duration // 干旱风险评估间隔
}

// Load 加载配置
func Load() (*Config, error) {
	cfg := &Config{}

	// 从环境变量加载（默认值）
	cfg.Database.Host = getEnv("DB_HOST", "localhost")
	cfg.Database.Port = 5432
	cfg.Database.User = getEnv("DB_USER", "postgres")
	cfg.Database.Password = getEnv("DB_PASSWORD", "postgres")
	cfg.Database.Database = getEnv("DB_NAME", "groundwater")
	cfg.Database.SSLMode = getEnv("DB_SSLMODE", "disable")

	cfg.Redis.Addr = getEnv("REDIS_ADDR", "localhost:6379")
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", "")
	cfg.Redis.DB = 0

	cfg.MQTT.Broker = getEnv("MQTT_BROKER", "tcp://localhost:1883")
	cfg.MQTT.ClientID = getEnv("MQTT_CLIENT_ID", "groundwater-analytics")
	cfg.MQTT.Username = getEnv("MQTT_USERNAME", "")
	cfg.MQTT.Password = getEnv("MQTT_PASSWORD", "")
	cfg.MQTT.QoS = 1

	cfg.Influx.URL = getEnv("INFLUXDB_URL", "http://localhost:8086")
	cfg.Influx.Token = getEnv("INFLUXDB_TOKEN", "")
	cfg.Influx.Org = getEnv("INFLUXDB_ORG", "groundwater")
	cfg.Influx.Bucket = getEnv("INFLUXDB_BUCKET", "groundwater")

	// 接入配置
	cfg.Ingest.Topics.Data = getEnv("MQTT_TOPIC_DATA", "groundwater/+/+/data")
	cfg.Ingest.Topics.Status = getEnv("MQTT_TOPIC_STATUS", "groundwater/+/+/status")
	cfg.Ingest.Streams.Events = getEnv("STREAM_EVENTS", "groundwater-data")
	cfg.Ingest.Streams.Scoring = getEnv("STREAM_SCORING", "sensor:scoring:stream")
	cfg.Ingest.Streams.Alerts = getEnv("STREAM_ALERTS", "alerts:stream")
	cfg.Ingest.ConsumerGroup = getEnv("CONSUMER_GROUP", "groundwater-processor")
	cfg.Ingest.ConsumerName = getEnv("CONSUMER_NAME", "groundwater-analytics-1")
	cfg.Ingest.BatchSize = 10
	cfg.Ingest.ScoringWorkers = getEnvInt("SCORING_WORKERS", 4)

	// 分析阈值（默认值与观测到的原始行为一致）
	cfg.Analytics.AnomalyWindowDays = 30
	cfg.Analytics.AnomalyMinPoints = 10
	cfg.Analytics.AnomalyZThreshold = 3.0
	cfg.Analytics.AnomalyHighSeverity = 5.0

	cfg.Analytics.PatternMinPoints = 24
	cfg.Analytics.DailyMinHours = 12
	cfg.Analytics.DailyVarianceRatio = 0.10
	cfg.Analytics.WeeklyMinDays = 4
	cfg.Analytics.WeeklyVarianceRatio = 0.05

	cfg.Analytics.TrainWindowDays = 365
	cfg.Analytics.TrainMinRawRows = 100
	cfg.Analytics.TrainMinFeatureRows = 50

	cfg.Analytics.RiskWindowDays = 90
	cfg.Analytics.RechargeMinPoints = 7

	cfg.Analytics.RegistryCapacity = getEnvInt("MODEL_REGISTRY_CAPACITY", 64)
	cfg.Analytics.ModelDir = getEnv("MODEL_DIR", "models")

	cfg.Analytics.QueryTimeout = getEnvDuration("QUERY_TIMEOUT", 30*time.Second)
	cfg.Analytics.BatchInterval = getEnvDuration("BATCH_INTERVAL", 1*time.Hour)
	cfg.Analytics.BatchLookback = getEnvDuration("BATCH_LOOKBACK", 7*24*time.Hour)
	cfg.Analytics.AssessmentInterval = getEnvDuration("ASSESSMENT_INTERVAL", 24*time.Hour)

	cfg.Weather.BaseURL = getEnv("OPENWEATHER_BASE_URL", "https://api.openweathermap.org")
	cfg.Weather.APIKey = getEnv("OPENWEATHER_API_KEY", "")

	cfg.Log.Level = getEnv("LOG_LEVEL", "info")
	cfg.Log.Format = getEnv("LOG_FORMAT", "json")

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
