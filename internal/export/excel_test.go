package export

import (
	"bytes"
	"testing"
	"time"

	"groundwater-analytics/internal/timeseries"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestGenerateReadingsExport(t *testing.T) {
	ts := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	rows := RowsFromSamples("ST001", "well_1", []timeseries.Sample{
		{Timestamp: ts, Value: 12.5},
		{Timestamp: ts.Add(time.Hour), Value: 12.6},
	})

	data, err := GenerateReadingsExport(rows)
	require.NoError(t, err)
	require.NotEmpty(t, data)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	sheets := f.GetSheetList()
	require.Contains(t, sheets, "Sensor Readings")

	cells, err := f.GetRows("Sensor Readings")
	require.NoError(t, err)
	require.Len(t, cells, 3)

	assert.Equal(t, ReadingsExportHeader, cells[0])
	assert.Equal(t, []string{"ST001", "well_1", "2026-03-01 12:00:00", "12.5"}, cells[1])
	assert.Equal(t, "12.6", cells[2][3])
}

func TestGenerateReadingsExport_EmptyRows(t *testing.T) {
	data, err := GenerateReadingsExport(nil)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	cells, err := f.GetRows("Sensor Readings")
	require.NoError(t, err)
	require.Len(t, cells, 1)
	assert.Equal(t, ReadingsExportHeader, cells[0])
}
