package weather

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"groundwater-analytics/internal/timeseries"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const sampleResponse = `{
	"main": {"temp": 21.4, "humidity": 63, "pressure": 1015},
	"weather": [{"description": "scattered clouds"}],
	"wind": {"speed": 3.6, "deg": 220},
	"clouds": {"all": 40},
	"rain": {"1h": 2.3},
	"visibility": 10000
}`

func TestClient_FetchCurrent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/data/2.5/weather", r.URL.Path)
		assert.Equal(t, "test-key", r.URL.Query().Get("appid"))
		assert.Equal(t, "metric", r.URL.Query().Get("units"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(sampleResponse))
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-key", timeseries.NewMemoryStore(), zap.NewNop())

	obs, err := client.FetchCurrent(context.Background(), "ST001", 40.0, -3.7)

	require.NoError(t, err)
	assert.Equal(t, "ST001", obs.StationID)
	assert.Equal(t, 21.4, obs.TemperatureC)
	assert.Equal(t, 63.0, obs.HumidityPercent)
	assert.Equal(t, 2.3, obs.RainfallMM)
	assert.Equal(t, "scattered clouds", obs.Condition)
	assert.Equal(t, "openweather", obs.Source)
}

func TestClient_FetchCurrent_NoRain(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"main": {"temp": 21.4, "humidity": 63, "pressure": 1015}}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-key", timeseries.NewMemoryStore(), zap.NewNop())

	obs, err := client.FetchCurrent(context.Background(), "ST001", 40.0, -3.7)

	require.NoError(t, err)
	assert.Equal(t, 0.0, obs.RainfallMM)
}

func TestClient_FetchCurrent_MissingKey(t *testing.T) {
	client := NewClient("http://localhost", "", timeseries.NewMemoryStore(), zap.NewNop())

	_, err := client.FetchCurrent(context.Background(), "ST001", 40.0, -3.7)

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "api key not configured")
}

func TestClient_FetchCurrent_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	client := NewClient(server.URL, "bad-key", timeseries.NewMemoryStore(), zap.NewNop())

	_, err := client.FetchCurrent(context.Background(), "ST001", 40.0, -3.7)

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "status 401")
}

func TestClient_FetchAndStore(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(sampleResponse))
	}))
	defer server.Close()

	store := timeseries.NewMemoryStore()
	client := NewClient(server.URL, "test-key", store, zap.NewNop())

	err := client.FetchAndStore(context.Background(), "ST001", 40.0, -3.7)
	require.NoError(t, err)

	points := store.Points()
	require.Len(t, points, 1)
	assert.Equal(t, timeseries.MeasurementWeatherData, points[0].Measurement)
	assert.Equal(t, "ST001", points[0].Tags["station_id"])
	assert.Equal(t, "openweather", points[0].Tags["source"])
	assert.Equal(t, 21.4, points[0].Fields["temperature_c"])
	assert.Equal(t, 1015.0, points[0].Fields["pressure_hpa"])
	assert.Equal(t, 2.3, points[0].Fields["rainfall_mm"])
}
