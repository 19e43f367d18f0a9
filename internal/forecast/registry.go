package forecast

import (
	"os"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"
)

// Registry 内存模型注册表
// LRU 容量有界，淘汰的模型下次按需从磁盘重新加载
type Registry struct {
	mu     sync.Mutex
	cache  *lru.Cache[string, *ModelPair]
	store  *ModelStore
	logger *zap.Logger
}

// NewRegistry 创建模型注册表
func NewRegistry(store *ModelStore, capacity int, logger *zap.Logger) (*Registry, error) {
	cache, err := lru.New[string, *ModelPair](capacity)
	if err != nil {
		return nil, err
	}
	return &Registry{
		cache:  cache,
		store:  store,
		logger: logger,
	}, nil
}

// Put 注册训练产物
func (r *Registry) Put(key string, pair *ModelPair) {
	r.cache.Add(key, pair)
}

// Get 获取模型，内存未命中时从磁盘加载
// 磁盘上也没有时返回 (nil, false)
func (r *Registry) Get(key string) (*ModelPair, bool) {
	if pair, ok := r.cache.Get(key); ok {
		return pair, true
	}

	// 加载路径串行化，避免并发重复读盘
	r.mu.Lock()
	defer r.mu.Unlock()
	if pair, ok := r.cache.Get(key); ok {
		return pair, true
	}

	pair, err := r.store.Load(key)
	if err != nil {
		if !os.IsNotExist(err) {
			r.logger.Warn("Failed to load model from disk",
				zap.String("model_key", key),
				zap.Error(err),
			)
		}
		return nil, false
	}

	r.cache.Add(key, pair)
	return pair, true
}
