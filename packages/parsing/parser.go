package parsing

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"healthrisk/packages/models"
)

// Колонки таблицы пациентов, порядок в файле произвольный
var RequiredColumns = []string{"age", "bmi", "gender", "kras", "apc", "tp53", "mmr"}

// Columns - индекс колонки по имени
type Columns map[string]int

// ParseHeader разбирает строку заголовка (первая строка листа)
func ParseHeader(header []string) (Columns, error) {
	cols := make(Columns)
	for i, name := range header {
		name = strings.ToLower(strings.TrimSpace(name))
		if name != "" {
			cols[name] = i
		}
	}

	var missing []string
	for _, name := range RequiredColumns {
		if _, ok := cols[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("в заголовке нет колонок: %s", strings.Join(missing, ", "))
	}
	return cols, nil
}

// Безопасное получение элемента из массива
func safeGet(arr []string, index int) string {
	if index < len(arr) {
		return strings.TrimSpace(arr[index])
	}
	return ""
}

func parseFloat(name, s string) (float64, error) {
	if s == "" {
		return 0, fmt.Errorf("%s: пустое значение", name)
	}
	// Excel с русской локалью пишет запятую
	val, err := strconv.ParseFloat(strings.Replace(s, ",", ".", 1), 64)
	if err != nil {
		return 0, fmt.Errorf("%s: не число %q", name, s)
	}
	return val, nil
}

func parseFlag(name, s string) (int, error) {
	switch strings.ToLower(s) {
	case "1", "yes", "true", "+":
		return 1, nil
	case "0", "no", "false", "-", "":
		return 0, nil
	}
	// "1.0" из Excel допустим, дробные значения нет
	val, err := parseFloat(name, s)
	if err != nil {
		return 0, err
	}
	if val != 0 && val != 1 {
		return 0, fmt.Errorf("%s: ожидается 0 или 1, получено %q", name, s)
	}
	return int(val), nil
}

// IsEmptyRow - строка без значений
func IsEmptyRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

// ParsePatientRow создает PatientInput из строки Excel
func ParsePatientRow(cols Columns, row []string) (models.PatientInput, error) {
	var input models.PatientInput
	var errs []error

	var err error
	if input.Age, err = parseFloat("age", safeGet(row, cols["age"])); err != nil {
		errs = append(errs, err)
	}
	if input.BMI, err = parseFloat("bmi", safeGet(row, cols["bmi"])); err != nil {
		errs = append(errs, err)
	}
	input.Gender = safeGet(row, cols["gender"])

	flags := []struct {
		name string
		dst  *int
	}{
		{"kras", &input.KRAS},
		{"apc", &input.APC},
		{"tp53", &input.TP53},
		{"mmr", &input.MMR},
	}
	for _, f := range flags {
		if *f.dst, err = parseFlag(f.name, safeGet(row, cols[f.name])); err != nil {
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		return input, errors.Join(errs...)
	}

	input.Normalize()
	if err := input.Validate(); err != nil {
		return input, err
	}
	return input, nil
}
