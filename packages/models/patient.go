package models

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

const (
	GenderMale   = "male"
	GenderFemale = "female"
)

// PatientInput - клинические и генетические параметры пациента,
// в том виде, в каком их принимает ML сервис
type PatientInput struct {
	Age    float64 `bson:"age" json:"age"`
	BMI    float64 `bson:"bmi" json:"bmi"`
	Gender string  `bson:"gender" json:"gender"`
	KRAS   int     `bson:"kras" json:"kras"`
	APC    int     `bson:"apc" json:"apc"`
	TP53   int     `bson:"tp53" json:"tp53"`
	MMR    int     `bson:"mmr" json:"mmr"`
}

// RiskResult - ответ ML сервиса
type RiskResult struct {
	Risk5YrPercent  float64 `bson:"risk5yrPercent" json:"risk_5yr_percent"`
	Risk10YrPercent float64 `bson:"risk10yrPercent" json:"risk_10yr_percent"`
	Alpha           float64 `bson:"alpha" json:"alpha"`
}

// Normalize приводит пол к нижнему регистру без пробелов
func (p *PatientInput) Normalize() {
	p.Gender = strings.ToLower(strings.TrimSpace(p.Gender))
}

// Validate проверяет диапазоны. Вызывать после Normalize.
func (p PatientInput) Validate() error {
	var errs []error

	// NaN не попадает ни под одно сравнение, проверяем отдельно
	if !isFinite(p.Age) || p.Age <= 0 || p.Age > 120 {
		errs = append(errs, fmt.Errorf("age must be in (0, 120], got %v", p.Age))
	}
	if !isFinite(p.BMI) || p.BMI <= 0 || p.BMI > 100 {
		errs = append(errs, fmt.Errorf("bmi must be in (0, 100], got %v", p.BMI))
	}
	if p.Gender != GenderMale && p.Gender != GenderFemale {
		errs = append(errs, fmt.Errorf("gender must be %q or %q, got %q", GenderMale, GenderFemale, p.Gender))
	}

	flags := []struct {
		name  string
		value int
	}{
		{"kras", p.KRAS},
		{"apc", p.APC},
		{"tp53", p.TP53},
		{"mmr", p.MMR},
	}
	for _, f := range flags {
		if f.value != 0 && f.value != 1 {
			errs = append(errs, fmt.Errorf("%s must be 0 or 1, got %d", f.name, f.value))
		}
	}

	return errors.Join(errs...)
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
