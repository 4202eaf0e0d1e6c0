package predict

import (
	"context"
	"sync"

	"healthrisk/packages/models"
)

// ResultCache - кэш ответов ML сервиса. Модель детерминирована,
// одинаковые параметры дают одинаковый результат.
type ResultCache struct {
	sync.RWMutex
	data    map[models.PatientInput]models.RiskResult
	maxSize int
}

// NewResultCache создает кэш. maxSize 0 отключает кэширование.
func NewResultCache(maxSize int) *ResultCache {
	return &ResultCache{
		data:    make(map[models.PatientInput]models.RiskResult),
		maxSize: maxSize,
	}
}

func (rc *ResultCache) Get(input models.PatientInput) (models.RiskResult, bool) {
	rc.RLock()
	defer rc.RUnlock()

	value, exists := rc.data[input]
	return value, exists
}

func (rc *ResultCache) Set(input models.PatientInput, result models.RiskResult) {
	if rc.maxSize <= 0 {
		return
	}

	rc.Lock()
	defer rc.Unlock()

	// Простая стратегия: очищаем кэш когда он заполнен
	if len(rc.data) >= rc.maxSize {
		rc.data = make(map[models.PatientInput]models.RiskResult)
	}
	rc.data[input] = result
}

func (rc *ResultCache) Len() int {
	rc.RLock()
	defer rc.RUnlock()
	return len(rc.data)
}

// CachedPredictor проверяет кэш перед обращением к ML сервису
type CachedPredictor struct {
	next  Predictor
	cache *ResultCache
}

func NewCachedPredictor(next Predictor, cache *ResultCache) *CachedPredictor {
	return &CachedPredictor{next: next, cache: cache}
}

func (p *CachedPredictor) Predict(ctx context.Context, input models.PatientInput) (*models.RiskResult, error) {
	input.Normalize()

	if cached, ok := p.cache.Get(input); ok {
		return &cached, nil
	}

	result, err := p.next.Predict(ctx, input)
	if err != nil {
		return nil, err
	}

	p.cache.Set(input, *result)
	return result, nil
}
