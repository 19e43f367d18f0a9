// Package analyzer 批量趋势/模式/健康分析
//
// 定时对每个活跃传感器在回看窗口内的读数做三件事：
// 线性趋势拟合（追加写入 trend_data）、日/周周期模式检测
// （追加写入 pattern_data）、传感器健康快照（写入缓存）。
package analyzer

import (
	"groundwater-analytics/internal/cache"
	"groundwater-analytics/internal/config"
	"groundwater-analytics/internal/timeseries"

	"go.uber.org/zap"
)

// Analyzer 批量分析器
type Analyzer struct {
	store        timeseries.Store
	cacheManager *cache.CacheManager
	cfg          config.AnalyticsConfig
	logger       *zap.Logger
}

// NewAnalyzer 创建分析器
func NewAnalyzer(store timeseries.Store, cacheManager *cache.CacheManager, cfg config.AnalyticsConfig, logger *zap.Logger) *Analyzer {
	return &Analyzer{
		store:        store,
		cacheManager: cacheManager,
		cfg:          cfg,
		logger:       logger,
	}
}
