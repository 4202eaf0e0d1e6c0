package predict

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"healthrisk/packages/models"
)

const HistoryCollection = "predictions"

// HistoryStore - история прогнозов пользователей
type HistoryStore interface {
	Save(ctx context.Context, record *models.PredictionRecord) error
	SaveMany(ctx context.Context, records []models.PredictionRecord) (int, error)
	ListByUser(ctx context.Context, userID string, limit int64) ([]models.PredictionRecord, error)
}

type MongoHistory struct {
	collection *mongo.Collection
}

func NewMongoHistory(collection *mongo.Collection) *MongoHistory {
	return &MongoHistory{collection: collection}
}

// EnsureIndexes - индекс под выборку истории пользователя
func (h *MongoHistory) EnsureIndexes(ctx context.Context) error {
	_, err := h.collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "userID", Value: 1}, {Key: "createdAt", Value: -1}},
		Options: options.Index().SetName("user_created"),
	})
	if err != nil {
		return fmt.Errorf("ошибка создания индекса predictions: %w", err)
	}
	return nil
}

func (h *MongoHistory) Save(ctx context.Context, record *models.PredictionRecord) error {
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}

	result, err := h.collection.InsertOne(ctx, record)
	if err != nil {
		return fmt.Errorf("ошибка сохранения прогноза: %w", err)
	}
	if id, ok := result.InsertedID.(primitive.ObjectID); ok {
		record.ID = id
	}
	return nil
}

func (h *MongoHistory) SaveMany(ctx context.Context, records []models.PredictionRecord) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}

	documents := make([]any, 0, len(records))
	now := time.Now().UTC()
	for _, r := range records {
		if r.CreatedAt.IsZero() {
			r.CreatedAt = now
		}
		documents = append(documents, r)
	}

	// Неупорядоченная вставка, чтобы одна ошибка не останавливала остальные
	result, err := h.collection.InsertMany(ctx, documents, options.InsertMany().SetOrdered(false))
	inserted := 0
	if result != nil {
		inserted = len(result.InsertedIDs)
	}
	if err != nil {
		return inserted, fmt.Errorf("ошибка сохранения пакета прогнозов: %w", err)
	}
	return inserted, nil
}

// ListByUser - последние прогнозы пользователя, новые первыми
func (h *MongoHistory) ListByUser(ctx context.Context, userID string, limit int64) ([]models.PredictionRecord, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetLimit(limit)

	cursor, err := h.collection.Find(ctx, bson.M{"userID": userID}, opts)
	if err != nil {
		return nil, fmt.Errorf("ошибка выполнения запроса к базе данных: %w", err)
	}
	defer cursor.Close(ctx)

	records := []models.PredictionRecord{}
	if err := cursor.All(ctx, &records); err != nil {
		return nil, fmt.Errorf("ошибка декодирования данных: %w", err)
	}
	return records, nil
}
