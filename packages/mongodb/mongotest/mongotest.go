// Package mongotest поднимает MongoDB в docker для интеграционных тестов.
package mongotest

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Start запускает контейнер mongo:7 и возвращает подключенный клиент.
// Тест пропускается в -short режиме или если docker недоступен.
func Start(t *testing.T) *mongo.Client {
	t.Helper()
	if testing.Short() {
		t.Skip("integration test, skipped in -short mode")
	}

	pool, err := dockertest.NewPool("")
	if err != nil {
		t.Skipf("could not connect to docker: %v", err)
	}
	if err := pool.Client.Ping(); err != nil {
		t.Skipf("docker is not reachable: %v", err)
	}

	resource, err := pool.RunWithOptions(&dockertest.RunOptions{
		Repository: "mongo",
		Tag:        "7",
	}, func(config *docker.HostConfig) {
		config.AutoRemove = true
	})
	if err != nil {
		t.Fatalf("could not start mongo: %v", err)
	}
	t.Cleanup(func() { _ = pool.Purge(resource) })

	uri := fmt.Sprintf("mongodb://localhost:%s/", resource.GetPort("27017/tcp"))
	pool.MaxWait = time.Minute

	var client *mongo.Client
	if err := pool.Retry(func() error {
		var err error
		client, err = mongo.Connect(context.Background(), options.Client().ApplyURI(uri))
		if err != nil {
			return err
		}
		return client.Ping(context.Background(), nil)
	}); err != nil {
		t.Fatalf("mongo not ready: %v", err)
	}
	t.Cleanup(func() { _ = client.Disconnect(context.Background()) })

	return client
}
