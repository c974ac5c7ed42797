package excel

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"well-report/internal/models"
	"well-report/internal/table"

	"github.com/xuri/excelize/v2"
)

var ErrEmptySheet = errors.New("sheet has no header row")

func OpenFile(filename string) (*excelize.File, error) {
	return excelize.OpenFile(filename)
}

// LoadTable opens a workbook and reads one sheet. An empty sheetName means
// the first sheet.
func LoadTable(path, sheetName string) (*table.Table, error) {
	f, err := OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	return ReadTable(f, sheetName)
}

// ReadTable reads a sheet into a table. The first non-empty row is the
// header; fully empty rows are skipped.
func ReadTable(f *excelize.File, sheetName string) (*table.Table, error) {
	if sheetName == "" {
		sheetName = f.GetSheetName(0)
	}
	rows, err := f.GetRows(sheetName)
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheetName, err)
	}

	var header []string
	var data [][]string
	for _, row := range rows {
		if isBlank(row) {
			continue
		}
		if header == nil {
			header = row
			continue
		}
		data = append(data, row)
	}
	if header == nil {
		return nil, fmt.Errorf("sheet %q: %w", sheetName, ErrEmptySheet)
	}
	return table.New(header, data), nil
}

func isBlank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// WriteCoordinates saves map locations to a new workbook at path.
func WriteCoordinates(path string, data []models.WellLocation, sheetName string) error {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(sheetName)
	if err != nil {
		return err
	}

	sw, err := f.NewStreamWriter(sheetName)
	if err != nil {
		return err
	}

	headers := []interface{}{"well_id", "lat", "lon", "target", "distance_m"}
	if err := sw.SetRow("A1", headers); err != nil {
		return err
	}

	for i, w := range data {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		row := []interface{}{w.WellID, w.Loc.Lat, w.Loc.Lon, w.Target, w.DistanceToTarget}
		if err := sw.SetRow(cell, row); err != nil {
			return err
		}
	}

	if err := sw.Flush(); err != nil {
		return err
	}

	f.SetActiveSheet(index)
	if sheetName != "Sheet1" {
		f.DeleteSheet("Sheet1")
	}

	return f.SaveAs(path)
}

// WriteTemplate writes an empty input workbook with the given header to w.
func WriteTemplate(w io.Writer, headers []string) error {
	f := excelize.NewFile()
	defer f.Close()

	row := make([]interface{}, len(headers))
	for i, h := range headers {
		row[i] = h
	}
	if err := f.SetSheetRow("Sheet1", "A1", &row); err != nil {
		return err
	}
	return f.Write(w)
}
