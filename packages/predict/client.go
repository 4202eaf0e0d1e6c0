package predict

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"healthrisk/packages/models"
)

var (
	// ErrUnavailable - ML сервис не ответил (сеть, таймаут)
	ErrUnavailable = errors.New("ml service unavailable")
	// ErrUpstream - ML сервис ответил не 200 или мусором
	ErrUpstream = errors.New("ml service error")
)

const maxErrorBody = 512

// Predictor - источник прогноза риска
type Predictor interface {
	Predict(ctx context.Context, input models.PatientInput) (*models.RiskResult, error)
}

// Client - HTTP клиент внешнего ML сервиса
type Client struct {
	http *resty.Client
	log  *zap.Logger
}

func NewClient(baseURL string, timeout time.Duration, retries int, log *zap.Logger) *Client {
	httpClient := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetTimeout(timeout).
		SetRetryCount(retries).
		SetRetryWaitTime(200 * time.Millisecond).
		SetRetryMaxWaitTime(2 * time.Second).
		SetHeader("Accept", "application/json")

	return &Client{http: httpClient, log: log}
}

// Predict отправляет параметры пациента в POST /predict
func (c *Client) Predict(ctx context.Context, input models.PatientInput) (*models.RiskResult, error) {
	var result models.RiskResult

	start := time.Now()
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(input).
		SetResult(&result).
		ForceContentType("application/json").
		Post("/predict")

	if err != nil {
		// Ответ получен, но не разобран
		if resp != nil && resp.RawResponse != nil {
			return nil, fmt.Errorf("%w: decode response: %w", ErrUpstream, err)
		}
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}

	if resp.StatusCode() != http.StatusOK {
		body := string(resp.Body())
		if len(body) > maxErrorBody {
			body = body[:maxErrorBody]
		}
		return nil, fmt.Errorf("%w: status %d: %s", ErrUpstream, resp.StatusCode(), body)
	}

	c.log.Debug("ML prediction",
		zap.Duration("latency", time.Since(start)),
		zap.Float64("risk_5yr_percent", result.Risk5YrPercent),
	)
	return &result, nil
}
