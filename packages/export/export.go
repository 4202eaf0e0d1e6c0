package export

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"healthrisk/packages/models"
)

const (
	SheetName   = "Predictions"
	ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

var header = []any{
	"created_at", "age", "bmi", "gender", "kras", "apc", "tp53", "mmr",
	"risk_5yr_percent", "risk_10yr_percent", "alpha", "source",
}

// HistoryWorkbook строит xlsx с историей прогнозов.
// Колонки входных данных совпадают с форматом пакетной загрузки.
func HistoryWorkbook(records []models.PredictionRecord) (*excelize.File, error) {
	f := excelize.NewFile()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		f.Close()
		return nil, fmt.Errorf("ошибка создания листа: %w", err)
	}

	if err := f.SetSheetRow(SheetName, "A1", &header); err != nil {
		f.Close()
		return nil, fmt.Errorf("ошибка записи заголовка: %w", err)
	}

	for i, r := range records {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			f.Close()
			return nil, err
		}

		row := []any{
			r.CreatedAt.UTC().Format("2006-01-02 15:04:05"),
			r.Input.Age, r.Input.BMI, r.Input.Gender,
			r.Input.KRAS, r.Input.APC, r.Input.TP53, r.Input.MMR,
			r.Result.Risk5YrPercent, r.Result.Risk10YrPercent, r.Result.Alpha,
			r.Source,
		}
		if err := f.SetSheetRow(SheetName, cell, &row); err != nil {
			f.Close()
			return nil, fmt.Errorf("ошибка записи строки %d: %w", i+1, err)
		}
	}

	return f, nil
}
