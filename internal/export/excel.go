// Package export 生成传感器读数的 Excel 导出文件
package export

import (
	"bytes"
	"fmt"
	"time"

	"groundwater-analytics/internal/timeseries"

	"github.com/xuri/excelize/v2"
)

// ReadingsExportHeader 读数导出表头
var ReadingsExportHeader = []string{
	"Station ID",
	"Sensor ID",
	"Timestamp",
	"Value",
}

const readingsSheetName = "Sensor Readings"

// ReadingRow 单行导出数据
type ReadingRow struct {
	StationID string
	SensorID  string
	Timestamp time.Time
	Value     float64
}

// RowsFromSamples 把单传感器的时序采样转换为导出行
func RowsFromSamples(stationID, sensorID string, samples []timeseries.Sample) []ReadingRow {
	rows := make([]ReadingRow, 0, len(samples))
	for _, s := range samples {
		rows = append(rows, ReadingRow{
			StationID: stationID,
			SensorID:  sensorID,
			Timestamp: s.Timestamp,
			Value:     s.Value,
		})
	}
	return rows
}

// GenerateReadingsExport 生成读数导出 Excel 文件
// rows 为空时只生成表头
func GenerateReadingsExport(rows []ReadingRow) ([]byte, error) {
	f := excelize.NewFile()
	// Note: Don't defer Close() here, because WriteTo needs the file to be open

	index, err := f.NewSheet(readingsSheetName)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}

	// 删除默认的 Sheet1
	f.DeleteSheet("Sheet1")
	f.SetActiveSheet(index)

	// 设置表头样式
	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{
			Bold: true,
		},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"#E6F3FF"},
			Pattern: 1,
		},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
	})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	// 写入表头
	for col, header := range ReadingsExportHeader {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to convert coordinates: %w", err)
		}
		if err := f.SetCellValue(readingsSheetName, cell, header); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to set header cell %s: %w", cell, err)
		}
		if err := f.SetCellStyle(readingsSheetName, cell, cell, headerStyle); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to set header style: %w", err)
		}
	}

	// 设置列宽
	columnWidths := []float64{
		15, // Station ID
		15, // Sensor ID
		22, // Timestamp
		12, // Value
	}
	for i := range ReadingsExportHeader {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to convert column number: %w", err)
		}
		if err := f.SetColWidth(readingsSheetName, col, col, columnWidths[i]); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to set column width: %w", err)
		}
	}

	// 写入数据（第 1 行是表头）
	for rowIdx, r := range rows {
		row := rowIdx + 2
		values := []interface{}{
			r.StationID,
			r.SensorID,
			r.Timestamp.UTC().Format("2006-01-02 15:04:05"),
			r.Value,
		}
		for colIdx, value := range values {
			cell, err := excelize.CoordinatesToCellName(colIdx+1, row)
			if err != nil {
				f.Close()
				return nil, fmt.Errorf("failed to convert coordinates: %w", err)
			}
			if err := f.SetCellValue(readingsSheetName, cell, value); err != nil {
				f.Close()
				return nil, fmt.Errorf("failed to set cell value at row %d, col %d: %w", row, colIdx+1, err)
			}
		}
	}

	// 冻结表头
	if err := f.SetPanes(readingsSheetName, &excelize.Panes{
		Freeze:      true,
		Split:       false,
		XSplit:      0,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to freeze panes: %w", err)
	}

	// Note: File must remain open during Write operation
	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to write to buffer: %w", err)
	}

	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("failed to close file: %w", err)
	}

	return buf.Bytes(), nil
}
