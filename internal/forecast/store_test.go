package forecast

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func trainedPair(t *testing.T) *ModelPair {
	t.Helper()
	x, y := stepTrainingSet(80)
	forest, err := TrainForest(x, y)
	require.NoError(t, err)
	return &ModelPair{
		Model:  forest,
		Scaler: FitScaler(x, []string{"x"}),
	}
}

func TestModelStore_SaveLoadRoundTrip(t *testing.T) {
	store := NewModelStore(t.TempDir())
	pair := trainedPair(t)
	key := ModelKey("ST001", "well_1")

	require.NoError(t, store.Save(key, pair))

	loaded, err := store.Load(key)
	require.NoError(t, err)
	require.NotNil(t, loaded.Model)
	require.NotNil(t, loaded.Scaler)

	// 加载后的模型预测结果一致
	original, err := pair.Model.Predict([]float64{0.5})
	require.NoError(t, err)
	restored, err := loaded.Model.Predict([]float64{0.5})
	require.NoError(t, err)
	assert.Equal(t, original, restored)

	assert.Equal(t, pair.Scaler.Mean, loaded.Scaler.Mean)
	assert.Equal(t, pair.Scaler.FeatureNames, loaded.Scaler.FeatureNames)
}

func TestModelStore_FailedSaveKeepsPreviousPair(t *testing.T) {
	dir := t.TempDir()
	store := NewModelStore(dir)
	key := ModelKey("ST001", "well_1")

	first := trainedPair(t)
	require.NoError(t, store.Save(key, first))

	// 占住临时文件路径，迫使下一次保存失败
	tmpPath := filepath.Join(dir, key+"_model.gob.tmp")
	require.NoError(t, os.Mkdir(tmpPath, 0o755))

	second := trainedPair(t)
	second.Scaler.Mean = append([]float64(nil), second.Scaler.Mean...)
	second.Scaler.Mean[0] += 5
	require.Error(t, store.Save(key, second))

	// 旧的模型/缩放器配对原样保留
	loaded, err := store.Load(key)
	require.NoError(t, err)
	assert.Equal(t, first.Scaler.Mean, loaded.Scaler.Mean)
	assert.NotEqual(t, second.Scaler.Mean, loaded.Scaler.Mean)

	original, err := first.Model.Predict([]float64{0.5})
	require.NoError(t, err)
	restored, err := loaded.Model.Predict([]float64{0.5})
	require.NoError(t, err)
	assert.Equal(t, original, restored)
}

func TestModelStore_LoadMissing(t *testing.T) {
	store := NewModelStore(t.TempDir())

	_, err := store.Load("missing_key")
	assert.Error(t, err)
}

func TestRegistry_PutGet(t *testing.T) {
	store := NewModelStore(t.TempDir())
	registry, err := NewRegistry(store, 4, zap.NewNop())
	require.NoError(t, err)

	pair := trainedPair(t)
	registry.Put("a", pair)

	got, ok := registry.Get("a")
	require.True(t, ok)
	assert.Same(t, pair, got)
}

func TestRegistry_GetMissing(t *testing.T) {
	store := NewModelStore(t.TempDir())
	registry, err := NewRegistry(store, 4, zap.NewNop())
	require.NoError(t, err)

	_, ok := registry.Get("nope")
	assert.False(t, ok)
}

func TestRegistry_EvictedModelReloadsFromDisk(t *testing.T) {
	store := NewModelStore(t.TempDir())
	registry, err := NewRegistry(store, 1, zap.NewNop())
	require.NoError(t, err)

	pair := trainedPair(t)
	require.NoError(t, store.Save("a", pair))
	registry.Put("a", pair)

	// 容量 1，放入 b 后 a 被淘汰
	registry.Put("b", trainedPair(t))
	_, ok := registry.Get("b")
	require.True(t, ok)

	// a 从磁盘重新加载
	reloaded, ok := registry.Get("a")
	require.True(t, ok)
	assert.Equal(t, pair.Scaler.Mean, reloaded.Scaler.Mean)
}
