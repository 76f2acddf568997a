// internal/app/bootstrap/db.go
package bootstrap

import (
	"context"
	"fmt"

	"github.com/dalemusser/collegehub/internal/app/store/docstore"
	"github.com/dalemusser/collegehub/internal/app/system/indexes"
	"github.com/dalemusser/collegehub/internal/app/system/timeouts"
	"github.com/dalemusser/waffle/config"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

// ConnectDB opens the configured document store. For MongoDB the client is
// pinged before returning so a bad URI fails startup instead of the first
// request.
func ConnectDB(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) (DBDeps, error) {
	timeouts.Configure(timeoutConfig(appCfg))
	deps := DBDeps{Services: &Services{}}

	if appCfg.StoreBackend == BackendMemory {
		logger.Warn("using in-memory document store; data is lost on restart")
		deps.Documents = docstore.NewMemStore()
		return deps, nil
	}

	opts := options.Client().
		ApplyURI(appCfg.MongoURI).
		SetMaxPoolSize(appCfg.MongoMaxPoolSize).
		SetMinPoolSize(appCfg.MongoMinPoolSize)
	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return DBDeps{}, fmt.Errorf("connect MongoDB: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, timeouts.Ping())
	defer cancel()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return DBDeps{}, fmt.Errorf("ping MongoDB: %w", err)
	}

	db := client.Database(appCfg.MongoDatabase)
	logger.Info("connected to MongoDB",
		zap.String("database", appCfg.MongoDatabase),
		zap.Uint64("max_pool_size", appCfg.MongoMaxPoolSize))

	deps.MongoClient = client
	deps.MongoDatabase = db
	deps.Documents = docstore.New(db, logger)
	return deps, nil
}

// EnsureSchema creates the documents collection indexes. The memory backend
// needs none.
func EnsureSchema(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	if deps.MongoDatabase == nil {
		return nil
	}
	return indexes.EnsureAll(ctx, deps.MongoDatabase, logger)
}
