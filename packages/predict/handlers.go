package predict

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"healthrisk/packages/apperrors"
	"healthrisk/packages/auth"
	"healthrisk/packages/export"
	"healthrisk/packages/models"
	"healthrisk/packages/parsing"
)

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 100
	maxExportRows       = 1000
	maxBatchRows        = 1000

	msgUnavailable = "ML сервис недоступен"
	msgUpstream    = "ML сервис вернул ошибку"
)

type Handler struct {
	predictor Predictor
	history   HistoryStore
	workers   int
	log       *zap.Logger
}

func NewHandler(predictor Predictor, history HistoryStore, workers int, log *zap.Logger) *Handler {
	return &Handler{predictor: predictor, history: history, workers: workers, log: log}
}

// RegisterRoutes монтирует маршруты прогноза. Группа уже защищена JWTAuth.
func (h *Handler) RegisterRoutes(group *gin.RouterGroup) {
	group.POST("", h.predict)
	group.POST("/batch", h.batch)
	group.GET("/history", h.listHistory)
	group.GET("/history/export", h.exportHistory)
}

// RegisterAdminRoutes монтирует просмотр истории других пользователей.
// Группа уже защищена JWTAuth и проверкой роли admin.
func (h *Handler) RegisterAdminRoutes(group *gin.RouterGroup) {
	group.GET("/users/:userID/history", h.listUserHistory)
}

// predictRequest - тело POST /api/predict. Указатели отличают
// отсутствующее поле от нуля.
type predictRequest struct {
	Age    *float64 `json:"age"`
	BMI    *float64 `json:"bmi"`
	Gender *string  `json:"gender"`
	KRAS   *int     `json:"kras"`
	APC    *int     `json:"apc"`
	TP53   *int     `json:"tp53"`
	MMR    *int     `json:"mmr"`
}

// toInput возвращает ошибку со списком всех отсутствующих полей
func (r predictRequest) toInput() (models.PatientInput, error) {
	var missing []string
	var input models.PatientInput

	if r.Age == nil {
		missing = append(missing, "age")
	} else {
		input.Age = *r.Age
	}
	if r.BMI == nil {
		missing = append(missing, "bmi")
	} else {
		input.BMI = *r.BMI
	}
	if r.Gender == nil {
		missing = append(missing, "gender")
	} else {
		input.Gender = *r.Gender
	}

	flags := []struct {
		name string
		src  *int
		dst  *int
	}{
		{"kras", r.KRAS, &input.KRAS},
		{"apc", r.APC, &input.APC},
		{"tp53", r.TP53, &input.TP53},
		{"mmr", r.MMR, &input.MMR},
	}
	for _, f := range flags {
		if f.src == nil {
			missing = append(missing, f.name)
			continue
		}
		*f.dst = *f.src
	}

	if len(missing) > 0 {
		return input, fmt.Errorf("отсутствуют обязательные поля: %s", strings.Join(missing, ", "))
	}
	return input, nil
}

type predictResponse struct {
	models.RiskResult
	ID string `json:"id,omitempty"`
}

type batchResponse struct {
	Total     int         `json:"total"`
	Succeeded int         `json:"succeeded"`
	Failed    int         `json:"failed"`
	Rows      []BatchItem `json:"rows"`
}

// Прогноз для одного пациента
func (h *Handler) predict(c *gin.Context) {
	var req predictRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.Respond(c, h.log, apperrors.NewValidationError("Некорректный JSON", err))
		return
	}

	input, err := req.toInput()
	if err != nil {
		apperrors.Respond(c, h.log, apperrors.NewValidationError(err.Error(), err))
		return
	}

	input.Normalize()
	if err := input.Validate(); err != nil {
		apperrors.Respond(c, h.log, apperrors.NewValidationError(err.Error(), err))
		return
	}

	result, err := h.predictor.Predict(c.Request.Context(), input)
	if err != nil {
		apperrors.Respond(c, h.log, mapPredictError(err))
		return
	}

	userID, _ := auth.GetUserID(c)
	record := &models.PredictionRecord{
		UserID:    userID,
		Input:     input,
		Result:    *result,
		Source:    models.SourceSingle,
		CreatedAt: time.Now().UTC(),
	}

	resp := predictResponse{RiskResult: *result}
	// История вторична, прогноз отдаем в любом случае
	if err := h.history.Save(c.Request.Context(), record); err != nil {
		h.log.Warn("❌ Ошибка сохранения прогноза", zap.String("user_id", userID), zap.Error(err))
	} else {
		resp.ID = record.ID.Hex()
	}

	c.JSON(http.StatusOK, resp)
}

// Пакетный прогноз из Excel файла
func (h *Handler) batch(c *gin.Context) {
	file, err := c.FormFile("excel_file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			apperrors.Respond(c, h.log, apperrors.NewTooLargeError(
				fmt.Sprintf("Файл слишком большой: максимум %d байт", tooLarge.Limit), err))
			return
		}
		apperrors.Respond(c, h.log, apperrors.NewValidationError("Файл не получен", err))
		return
	}

	uploadedFile, err := file.Open()
	if err != nil {
		apperrors.Respond(c, h.log, apperrors.NewInternalError("open upload", err))
		return
	}
	defer uploadedFile.Close()

	xlsxFile, err := excelize.OpenReader(uploadedFile)
	if err != nil {
		apperrors.Respond(c, h.log, apperrors.NewValidationError("Ошибка чтения Excel", err))
		return
	}
	defer xlsxFile.Close()

	// Получаем первый лист с данными
	sheets := xlsxFile.GetSheetList()
	if len(sheets) == 0 {
		apperrors.Respond(c, h.log, apperrors.NewValidationError("Нет листов в файле", nil))
		return
	}

	rows, err := xlsxFile.GetRows(sheets[0])
	if err != nil {
		apperrors.Respond(c, h.log, apperrors.NewValidationError("Ошибка чтения строк", err))
		return
	}
	if len(rows) < 2 {
		apperrors.Respond(c, h.log, apperrors.NewValidationError("В файле нет данных", nil))
		return
	}
	if len(rows)-1 > maxBatchRows {
		apperrors.Respond(c, h.log, apperrors.NewValidationError(
			fmt.Sprintf("Слишком много строк: максимум %d", maxBatchRows), nil))
		return
	}

	cols, err := parsing.ParseHeader(rows[0])
	if err != nil {
		apperrors.Respond(c, h.log, apperrors.NewValidationError(err.Error(), err))
		return
	}

	// Пропускаем первую строку (заголовок), номера строк как в Excel
	var items []BatchItem
	for i, row := range rows[1:] {
		if parsing.IsEmptyRow(row) {
			continue
		}
		item := BatchItem{Row: i + 2}
		input, err := parsing.ParsePatientRow(cols, row)
		item.Input = input
		if err != nil {
			item.Error = err.Error()
		}
		items = append(items, item)
	}

	items = RunBatch(c.Request.Context(), h.predictor, items, h.workers, h.log)

	userID, _ := auth.GetUserID(c)
	now := time.Now().UTC()
	var records []models.PredictionRecord
	for _, item := range items {
		if item.Result == nil {
			continue
		}
		records = append(records, models.PredictionRecord{
			UserID:    userID,
			Input:     item.Input,
			Result:    *item.Result,
			Source:    models.SourceBatch,
			CreatedAt: now,
		})
	}
	if _, err := h.history.SaveMany(c.Request.Context(), records); err != nil {
		h.log.Warn("❌ Ошибка сохранения пакета прогнозов", zap.String("user_id", userID), zap.Error(err))
	}

	succeeded := CountSucceeded(items)
	c.JSON(http.StatusOK, batchResponse{
		Total:     len(items),
		Succeeded: succeeded,
		Failed:    len(items) - succeeded,
		Rows:      items,
	})
}

// История прогнозов текущего пользователя
func (h *Handler) listHistory(c *gin.Context) {
	userID, _ := auth.GetUserID(c)
	h.respondHistory(c, userID)
}

// История любого пользователя, только для администратора
func (h *Handler) listUserHistory(c *gin.Context) {
	userID := strings.TrimSpace(c.Param("userID"))
	if userID == "" {
		apperrors.Respond(c, h.log, apperrors.NewValidationError("Не указан пользователь", nil))
		return
	}
	h.respondHistory(c, userID)
}

func (h *Handler) respondHistory(c *gin.Context, userID string) {
	limit := defaultHistoryLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			apperrors.Respond(c, h.log, apperrors.NewValidationError("Параметр limit должен быть положительным числом", err))
			return
		}
		limit = min(n, maxHistoryLimit)
	}

	records, err := h.history.ListByUser(c.Request.Context(), userID, int64(limit))
	if err != nil {
		apperrors.Respond(c, h.log, apperrors.NewInternalError("list history", err))
		return
	}

	c.JSON(http.StatusOK, records)
}

// Выгрузка истории в xlsx
func (h *Handler) exportHistory(c *gin.Context) {
	userID, _ := auth.GetUserID(c)
	records, err := h.history.ListByUser(c.Request.Context(), userID, maxExportRows)
	if err != nil {
		apperrors.Respond(c, h.log, apperrors.NewInternalError("list history", err))
		return
	}

	f, err := export.HistoryWorkbook(records)
	if err != nil {
		apperrors.Respond(c, h.log, apperrors.NewInternalError("build workbook", err))
		return
	}
	defer f.Close()

	buf, err := f.WriteToBuffer()
	if err != nil {
		apperrors.Respond(c, h.log, apperrors.NewInternalError("write workbook", err))
		return
	}

	c.Header("Content-Disposition", `attachment; filename="predictions.xlsx"`)
	c.Data(http.StatusOK, export.ContentType, buf.Bytes())
}

func mapPredictError(err error) error {
	switch {
	case errors.Is(err, ErrUnavailable):
		return apperrors.NewUnavailableError(msgUnavailable, err)
	case errors.Is(err, ErrUpstream):
		return apperrors.NewBadGatewayError(msgUpstream, err)
	default:
		return apperrors.NewInternalError("predict", err)
	}
}
