package forecast

import (
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"
)

// ModelPair 一对训练产物
type ModelPair struct {
	Model  *RandomForest
	Scaler *StandardScaler
}

// ModelStore 模型文件存取
// 模型与缩放器编码进同一个产物文件 {station}_{sensor}_model.gob，
// 替换只靠一次 rename 完成：写入失败时旧的配对原样保留，
// 磁盘上不可能出现新模型配旧缩放器的组合。
type ModelStore struct {
	dir string
}

// NewModelStore 创建模型文件存取器
func NewModelStore(dir string) *ModelStore {
	return &ModelStore{dir: dir}
}

// ModelKey 模型标识
func ModelKey(stationID, sensorID string) string {
	return stationID + "_" + sensorID
}

func (s *ModelStore) artifactPath(key string) string {
	return filepath.Join(s.dir, key+"_model.gob")
}

// Save 保存训练产物（临时文件 + 重命名）
func (s *ModelStore) Save(key string, pair *ModelPair) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create model dir: %w", err)
	}

	path := s.artifactPath(key)
	tmpPath := path + ".tmp"
	tmp, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmpPath)

	if err := gob.NewEncoder(tmp).Encode(pair); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to encode model pair %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("failed to rename model artifact %s: %w", key, err)
	}
	return nil
}

// Load 加载训练产物，文件不存在时返回 os.ErrNotExist
func (s *ModelStore) Load(key string) (*ModelPair, error) {
	f, err := os.Open(s.artifactPath(key))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	pair := &ModelPair{}
	if err := gob.NewDecoder(f).Decode(pair); err != nil {
		return nil, fmt.Errorf("failed to decode model artifact %s: %w", key, err)
	}
	return pair, nil
}
