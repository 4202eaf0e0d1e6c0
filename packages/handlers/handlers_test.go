package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"healthrisk/packages/auth"
	"healthrisk/packages/models"
	"healthrisk/packages/predict"
	"healthrisk/packages/users"
)

type stubPinger struct{ err error }

func (p stubPinger) Ping(context.Context) error { return p.err }

type fixedPredictor struct{}

func (fixedPredictor) Predict(context.Context, models.PatientInput) (*models.RiskResult, error) {
	return &models.RiskResult{Risk5YrPercent: 0.8, Risk10YrPercent: 1.9, Alpha: 1.2}, nil
}

type sliceHistory struct {
	records []models.PredictionRecord
}

func (h *sliceHistory) Save(_ context.Context, r *models.PredictionRecord) error {
	r.ID = primitive.NewObjectID()
	h.records = append(h.records, *r)
	return nil
}

func (h *sliceHistory) SaveMany(_ context.Context, records []models.PredictionRecord) (int, error) {
	h.records = append(h.records, records...)
	return len(records), nil
}

func (h *sliceHistory) ListByUser(_ context.Context, userID string, _ int64) ([]models.PredictionRecord, error) {
	out := []models.PredictionRecord{}
	for _, r := range h.records {
		if r.UserID == userID {
			out = append(out, r)
		}
	}
	return out, nil
}

func newTestRouter(db stubPinger) *gin.Engine {
	gin.SetMode(gin.TestMode)
	log := zap.NewNop()
	tokens := auth.NewTokenManager("0123456789abcdef0123", time.Hour)

	return NewRouter(Deps{
		DB:           db,
		Auth:         auth.NewHandler(users.NewMemoryStore(), tokens, log),
		Predict:      predict.NewHandler(fixedPredictor{}, &sliceHistory{}, 2, log),
		RequireAuth:  auth.JWTAuth(log, false, tokens),
		RequireAdmin: auth.RequireRole(log, models.RoleAdmin),
		LoginLimit:   auth.NewIPRateLimiter(100).Middleware(log),
		Origins:      []string{"http://localhost:3000"},
		Log:          log,
	})
}

func do(r http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestPing(t *testing.T) {
	w := do(newTestRouter(stubPinger{}), http.MethodGet, "/ping", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"message":"pong"}`, w.Body.String())
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestAPIHealth(t *testing.T) {
	w := do(newTestRouter(stubPinger{}), http.MethodGet, "/api/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok","database":"up"}`, w.Body.String())

	w = do(newTestRouter(stubPinger{err: errors.New("no primary")}), http.MethodGet, "/api/health", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.JSONEq(t, `{"status":"degraded","database":"down"}`, w.Body.String())
}

func TestPredictRequiresAuth(t *testing.T) {
	w := do(newTestRouter(stubPinger{}), http.MethodPost, "/api/predict", "", gin.H{"age": 50})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

// Полный путь: регистрация, вход, прогноз, история
func TestRegisterPredictHistoryFlow(t *testing.T) {
	r := newTestRouter(stubPinger{})

	w := do(r, http.MethodPost, "/api/auth/register", "", gin.H{
		"name": "Ann", "email": "ann@example.com", "password": "secret1",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = do(r, http.MethodPost, "/api/auth/login", "", gin.H{"email": "ann@example.com", "password": "secret1"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var login struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &login))
	require.NotEmpty(t, login.Token)

	w = do(r, http.MethodPost, "/api/predict", login.Token, gin.H{
		"age": 62, "bmi": 29, "gender": "female", "kras": 0, "apc": 1, "tp53": 0, "mmr": 0,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"risk_5yr_percent":0.8`)

	w = do(r, http.MethodGet, "/api/predict/history", login.Token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var records []models.PredictionRecord
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &records))
	require.Len(t, records, 1)
	assert.Equal(t, 62.0, records[0].Input.Age)
}

func TestAdminRoutesRequireAdminRole(t *testing.T) {
	r := newTestRouter(stubPinger{})

	w := do(r, http.MethodGet, "/api/admin/users/someone/history", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = do(r, http.MethodPost, "/api/auth/register", "", gin.H{
		"name": "Bob", "email": "bob@example.com", "password": "secret1",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var reg struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &reg))

	// Обычный пользователь не видит чужую историю
	w = do(r, http.MethodGet, "/api/admin/users/someone/history", reg.Token, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestBatchUploadTooLarge(t *testing.T) {
	r := newTestRouter(stubPinger{})

	w := do(r, http.MethodPost, "/api/auth/register", "", gin.H{
		"name": "Eve", "email": "eve@example.com", "password": "secret1",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var reg struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &reg))

	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	part, err := mw.CreateFormFile("excel_file", "patients.xlsx")
	require.NoError(t, err)
	_, err = part.Write(bytes.Repeat([]byte("x"), maxBodyBytes+1024))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/predict/batch", body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+reg.Token)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code, w.Body.String())
}

func TestCORSPreflight(t *testing.T) {
	req := httptest.NewRequest(http.MethodOptions, "/api/predict", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", "POST")
	w := httptest.NewRecorder()
	newTestRouter(stubPinger{}).ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))
}
