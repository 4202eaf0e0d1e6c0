package predict

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"healthrisk/packages/models"
)

// BatchItem - строка пакетного прогноза
type BatchItem struct {
	Row    int                 `json:"row"`
	Input  models.PatientInput `json:"input"`
	Result *models.RiskResult  `json:"result,omitempty"`
	Error  string              `json:"error,omitempty"`
}

type batchJob struct {
	index int
	item  BatchItem
}

type batchResult struct {
	index int
	item  BatchItem
}

// RunBatch выполняет прогнозы пулом воркеров.
// Строки с уже заполненной ошибкой (не прошли разбор) пропускаются.
// Порядок результата совпадает с порядком items.
func RunBatch(ctx context.Context, predictor Predictor, items []BatchItem, numWorkers int, log *zap.Logger) []BatchItem {
	out := make([]BatchItem, len(items))
	copy(out, items)

	if numWorkers <= 0 {
		numWorkers = 1
	}

	jobs := make(chan batchJob, len(items))
	results := make(chan batchResult, len(items))

	startTime := time.Now()

	// Запускаем worker'ов
	var wgWorkers sync.WaitGroup
	for i := 0; i < numWorkers; i++ {
		wgWorkers.Add(1)
		go batchWorker(ctx, predictor, jobs, results, &wgWorkers)
	}

	// Сборщик результатов
	var wgCollector sync.WaitGroup
	wgCollector.Add(1)
	go func() {
		defer wgCollector.Done()
		for r := range results {
			out[r.index] = r.item
		}
	}()

	var sentCount int
	for i, item := range items {
		if item.Error != "" {
			continue
		}
		jobs <- batchJob{index: i, item: item}
		sentCount++
	}

	// Завершаем пайплайн
	close(jobs)
	wgWorkers.Wait()
	close(results)
	wgCollector.Wait()

	log.Info("📊 Пакетный прогноз завершен",
		zap.Int("rows", len(items)),
		zap.Int("sent", sentCount),
		zap.Int("workers", numWorkers),
		zap.Duration("elapsed", time.Since(startTime)),
	)
	return out
}

func batchWorker(ctx context.Context, predictor Predictor, jobs <-chan batchJob, results chan<- batchResult, wg *sync.WaitGroup) {
	defer wg.Done()

	for job := range jobs {
		item := job.item

		if err := ctx.Err(); err != nil {
			item.Error = err.Error()
			results <- batchResult{index: job.index, item: item}
			continue
		}

		result, err := predictor.Predict(ctx, item.Input)
		if err != nil {
			item.Error = userMessage(err)
		} else {
			item.Result = result
		}
		results <- batchResult{index: job.index, item: item}
	}
}

// CountSucceeded - сколько строк получили результат
func CountSucceeded(items []BatchItem) int {
	n := 0
	for _, item := range items {
		if item.Result != nil {
			n++
		}
	}
	return n
}

// userMessage скрывает детали ответа ML сервиса
func userMessage(err error) string {
	switch {
	case errors.Is(err, ErrUnavailable):
		return msgUnavailable
	case errors.Is(err, ErrUpstream):
		return msgUpstream
	default:
		return err.Error()
	}
}
