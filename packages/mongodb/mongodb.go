package mongodb

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

const (
	connectTimeout = 10 * time.Second
	pingTimeout    = 3 * time.Second
)

// Connect подключается к MongoDB и проверяет соединение.
// Клиент держится весь срок жизни процесса.
func Connect(ctx context.Context, uri string, log *zap.Logger) (*mongo.Client, error) {

	clientOptions := options.Client().
		ApplyURI(uri).
		SetConnectTimeout(connectTimeout).
		SetServerSelectionTimeout(connectTimeout)

	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("ошибка подключения к MongoDB: %w", err)
	}

	// Проверяем подключение
	if err := Ping(ctx, client); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("MongoDB не доступна: %w", err)
	}

	log.Info("✅ Успешное подключение к MongoDB")
	return client, nil
}

// Ping проверяет доступность primary
func Ping(ctx context.Context, client *mongo.Client) error {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	return client.Ping(ctx, readpref.Primary())
}

// GetCollection возвращает коллекцию по имени
func GetCollection(client *mongo.Client, databaseName, collectionName string) *mongo.Collection {
	return client.Database(databaseName).Collection(collectionName)
}

// Pinger - проверка доступности базы для health check
type Pinger interface {
	Ping(ctx context.Context) error
}

// ClientPinger оборачивает *mongo.Client в Pinger
type ClientPinger struct {
	Client *mongo.Client
}

func (p ClientPinger) Ping(ctx context.Context) error {
	return Ping(ctx, p.Client)
}
