// Package testutil connects integration tests to a disposable MongoDB
// database. Tests are skipped unless TEST_MONGO_URI is set.
package testutil

import (
	"context"
	"fmt"
	"medbook/internal/migrations/mongo"
	"medbook/pkg/config"
	"medbook/pkg/logger"
	"os"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	mongodriver "go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	EnvMongoURI = "TEST_MONGO_URI"

	ConnectionTimeout = 10 * time.Second
)

type MongoHelper struct {
	Client   *mongodriver.Client
	Database *mongodriver.Database
	DBName   string
}

// NewMongoHelper connects to TEST_MONGO_URI, migrates a fresh database named
// after the test and drops it when the test ends.
func NewMongoHelper(t *testing.T) *MongoHelper {
	t.Helper()

	uri := os.Getenv(EnvMongoURI)
	if uri == "" {
		t.Skipf("%s not set", EnvMongoURI)
	}

	ctx, cancel := context.WithTimeout(context.Background(), ConnectionTimeout)
	defer cancel()

	client, err := mongodriver.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		t.Fatalf("failed to connect to MongoDB: %v", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		t.Fatalf("failed to ping MongoDB: %v", err)
	}

	dbName := fmt.Sprintf("medbook_test_%d", time.Now().UnixNano())
	m := &MongoHelper{
		Client:   client,
		Database: client.Database(dbName),
		DBName:   dbName,
	}
	t.Cleanup(func() { m.close(t) })

	if err := mongo.RunMigration(ctx, client, dbName); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
	return m
}

// Config returns a configuration whose repositories use the test database.
func (m *MongoHelper) Config() *config.Config {
	cfg := config.FromEnv("integration-tests")
	cfg.Log = logger.Discard()
	cfg.MongoDatabaseName = m.DBName
	cfg.Client.Mongo = m.Client
	return cfg
}

func (m *MongoHelper) CountDocuments(t *testing.T, collectionName string) int64 {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	count, err := m.Database.Collection(collectionName).CountDocuments(ctx, bson.M{})
	if err != nil {
		t.Fatalf("failed to count documents in %s: %v", collectionName, err)
	}
	return count
}

func (m *MongoHelper) close(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := m.Database.Drop(ctx); err != nil {
		t.Logf("warning: failed to drop %s: %v", m.DBName, err)
	}
	if err := m.Client.Disconnect(ctx); err != nil {
		t.Logf("warning: failed to disconnect from MongoDB: %v", err)
	}
}
